// Package fqdn builds 3GPP-format FQDNs from PLMNs and cell identities.
// It is a pure, stateless package: no network or carrier-config access.
package fqdn

import (
	"fmt"
	"strconv"
	"strings"
)

// Purpose selects which FQDN template family to generate.
type Purpose int

const (
	PurposeStatic Purpose = iota
	PurposePLMN
	PurposeCell
	PurposePCO
)

// PLMN is a 3-digit MCC + 2-or-3-digit MNC pair.
type PLMN struct {
	MCC string
	MNC string
}

// Valid reports whether the PLMN has the digit-count shape required for a
// 3GPP FQDN: MCC exactly 3 digits, MNC 2 or 3 digits, all digits.
func (p PLMN) Valid() bool {
	return isDigits(p.MCC, 3) && (isDigits(p.MNC, 2) || isDigits(p.MNC, 3))
}

// MccMnc renders the "MCC-MNC" form used by the carrier allow-list filter.
func (p PLMN) MccMnc() string {
	return p.MCC + "-" + p.MNC
}

func isDigits(s string, n int) bool {
	if len(s) != n {
		return false
	}
	for _, r := range s {
		if r < '0' || r > '9' {
			return false
		}
	}
	return true
}

// PLMNSource tags where a PLMN value originated, driving the carrier
// priority order consumed by BuildPLMN.
type PLMNSource int

const (
	SourceRPLMN PLMNSource = iota
	SourceHPLMN
	SourceEHPLMNFirst
	SourceEHPLMNAll
)

// PLMNInput bundles every PLMN source value the carrier policy may draw on.
type PLMNInput struct {
	RPLMN   *PLMN
	HPLMN   *PLMN
	EHPLMNs []PLMN // first element is "EHPLMN-first"
}

func (p PLMN) base(emergency bool) string {
	mnc3 := zeroPad3(p.MNC)
	name := fmt.Sprintf("epdg.epc.mnc%s.mcc%s.pub.3gppnetwork.org", mnc3, p.MCC)
	if emergency {
		name = "sos." + name
	}
	return name
}

func zeroPad3(mnc string) string {
	if len(mnc) == 2 {
		return "0" + mnc
	}
	return mnc
}

// plmnEntry is a single (PLMN, source) pair queued for FQDN emission,
// preserving the priority order the caller requested.
type plmnEntry struct {
	plmn   PLMN
	source PLMNSource
}

// BuildPLMN walks the carrier-supplied source order, emitting FQDNs for
// each valid, not-yet-seen PLMN, honoring the MCC-MNC allow-list (nil means
// "no filter") and the RPLMN always-included rule.
func BuildPLMN(order []PLMNSource, in PLMNInput, allowList []string, emergency bool) []string {
	seen := map[PLMN]bool{}
	var entries []plmnEntry

	addIfNew := func(p *PLMN, src PLMNSource) {
		if p == nil || !p.Valid() || seen[*p] {
			return
		}
		seen[*p] = true
		entries = append(entries, plmnEntry{plmn: *p, source: src})
	}

	for _, src := range order {
		switch src {
		case SourceRPLMN:
			addIfNew(in.RPLMN, SourceRPLMN)
		case SourceHPLMN:
			addIfNew(in.HPLMN, SourceHPLMN)
		case SourceEHPLMNFirst:
			if len(in.EHPLMNs) > 0 {
				addIfNew(&in.EHPLMNs[0], SourceEHPLMNFirst)
			}
		case SourceEHPLMNAll:
			for i := range in.EHPLMNs {
				addIfNew(&in.EHPLMNs[i], SourceEHPLMNAll)
			}
		}
	}

	allowed := func(e plmnEntry) bool {
		if len(allowList) == 0 {
			return true
		}
		if e.source == SourceRPLMN {
			// RPLMN is always included regardless of the allow-list.
			return true
		}
		for _, a := range allowList {
			if a == e.plmn.MccMnc() {
				return true
			}
		}
		return false
	}

	var out []string
	for _, e := range entries {
		if !allowed(e) {
			continue
		}
		if emergency {
			out = append(out, e.plmn.base(true), e.plmn.base(false))
		} else {
			out = append(out, e.plmn.base(false))
		}
	}
	return out
}

// CellKind identifies which radio-access-technology FQDN template to use.
type CellKind int

const (
	CellGSMWCDMA CellKind = iota
	CellLTE
	CellNR
)

// Cell is a single registered cell identity.
type Cell struct {
	Kind CellKind
	PLMN PLMN
	// LAC for GSM/WCDMA, TAC for LTE/NR (16-bit for LTE, 24-bit for NR).
	AreaCode uint32
}

// BuildCell produces the cellular FQDN for one registered cell. Returns ""
// if the cell's PLMN is invalid.
func BuildCell(c Cell, emergency bool) string {
	if !c.PLMN.Valid() {
		return ""
	}
	mnc3 := zeroPad3(c.PLMN.MNC)
	var prefix string
	switch c.Kind {
	case CellGSMWCDMA:
		prefix = fmt.Sprintf("lac%s", hex4(c.AreaCode))
	case CellLTE:
		prefix = fmt.Sprintf("tac-lb%s.tac-hb%s.tac", hexByte(c.AreaCode), hexByte(c.AreaCode>>8))
	case CellNR:
		prefix = fmt.Sprintf("tac-lb%s.tac-mb%s.tac-hb%s.5gstac", hexByte(c.AreaCode), hexByte(c.AreaCode>>8), hexByte(c.AreaCode>>16))
	default:
		return ""
	}
	mid := fmt.Sprintf("%s.epdg.epc.mnc%s.mcc%s.pub.3gppnetwork.org", prefix, mnc3, c.PLMN.MCC)
	if emergency {
		// Emergency variant inserts "sos." immediately before "epdg.".
		mid = strings.Replace(mid, ".epdg.", ".sos.epdg.", 1)
	}
	return mid
}

func hex4(v uint32) string {
	return fmt.Sprintf("%04x", v&0xFFFF)
}

func hexByte(v uint32) string {
	return fmt.Sprintf("%02x", v&0xFF)
}

// BuildCellOrdered produces, for one cell, the emergency-ordered FQDN pair
// (sos first, then non-sos), or the single non-emergency name when
// emergency is false.
func BuildCellOrdered(c Cell, emergency bool) []string {
	if !c.PLMN.Valid() {
		return nil
	}
	if !emergency {
		if n := BuildCell(c, false); n != "" {
			return []string{n}
		}
		return nil
	}
	sos := BuildCell(c, true)
	plain := BuildCell(c, false)
	var out []string
	if sos != "" {
		out = append(out, sos)
	}
	if plain != "" {
		out = append(out, plain)
	}
	return out
}

// ParseMNC validates and normalizes a raw MNC string (helper for callers
// building PLMN values from radio/SIM data sources).
func ParseMNC(raw string) (string, error) {
	if _, err := strconv.Atoi(raw); err != nil {
		return "", fmt.Errorf("mnc %q is not numeric: %w", raw, err)
	}
	if len(raw) != 2 && len(raw) != 3 {
		return "", fmt.Errorf("mnc %q must be 2 or 3 digits", raw)
	}
	return raw, nil
}
