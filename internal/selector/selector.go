// Package selector implements the ePDG selector: it orchestrates the FQDN
// builder, DNS client, PCO store, and exclusion set to produce an ordered,
// filtered ePDG candidate address list, off the caller's goroutine, through
// a bounded two-slot execution pool.
package selector

import (
	"context"
	"fmt"
	"net"
	"time"

	"golang.org/x/sync/semaphore"
	"golang.org/x/sync/singleflight"

	"github.com/datawire/dlib/dlog"

	"github.com/datawire-oss/epdgtunnel/internal/carrierconfig"
	"github.com/datawire-oss/epdgtunnel/internal/dnsclient"
	"github.com/datawire-oss/epdgtunnel/internal/exclusion"
	"github.com/datawire-oss/epdgtunnel/internal/fqdn"
	"github.com/datawire-oss/epdgtunnel/internal/ikeerr"
	"github.com/datawire-oss/epdgtunnel/internal/netprobe"
	"github.com/datawire-oss/epdgtunnel/internal/pco"
	"github.com/datawire-oss/epdgtunnel/pkg/epdgapi"
)

// Purpose distinguishes a prefetch resolution from the one that gates an
// actual IKE setup, matching the pool's "one prefetch slot + one setup
// slot" shape.
type Purpose int

const (
	PurposeSetup Purpose = iota
	PurposePrefetch
)

// Callback receives the async result of a resolution.
type Callback interface {
	OnServerListChanged(txID string, list []net.IP)
	OnError(txID string, err *ikeerr.Error)
}

// Selector produces ordered ePDG candidate lists for one APN family of
// requests. The exclusion set and PCO store are owned per-Selector.
type Selector struct {
	cfg  *carrierconfig.Config
	pco  *pco.Store
	excl *exclusion.Set
	dns  dnsclient.Client

	prefetchSem *semaphore.Weighted
	setupSem    *semaphore.Weighted
	sf          singleflight.Group
}

// New builds a Selector. pcoStore and excl are owned by the caller (usually
// one pair per APN) so that bringUpTunnel and the carrier-signal pipeline
// can push into the same PcoStore the Selector reads from.
func New(cfg *carrierconfig.Config, pcoStore *pco.Store, excl *exclusion.Set, dns dnsclient.Client) *Selector {
	return &Selector{
		cfg:         cfg,
		pco:         pcoStore,
		excl:        excl,
		dns:         dns,
		prefetchSem: semaphore.NewWeighted(1),
		setupSem:    semaphore.NewWeighted(1),
	}
}

// ErrPoolExhausted is returned (via Callback.OnError) when a second setup
// request arrives while one is already in flight and preventExhaustion is
// off.
var ErrPoolExhausted = ikeerr.New(ikeerr.ServerSelectionFailed)

// GetValidatedServerList is the selector's public entry point. It returns
// immediately; the result (or error) is delivered later through cb. probe
// must reflect the chosen underlying network's current local addresses.
func (s *Selector) GetValidatedServerList(
	ctx context.Context,
	txID string,
	filter epdgapi.AddressFilter,
	order epdgapi.AddressOrder,
	isRoaming, isEmergency bool,
	purpose Purpose,
	probe *netprobe.Probe,
	rctx ResolveContext,
	cb Callback,
) {
	sem := s.setupSem
	if purpose == PurposePrefetch {
		sem = s.prefetchSem
	}
	key := coalesceKey(filter, order, isRoaming, isEmergency, purpose)

	if sem.TryAcquire(1) {
		go func() {
			defer sem.Release(1)
			s.runResolution(ctx, txID, key, filter, order, isRoaming, isEmergency, probe, rctx, cb)
		}()
		return
	}

	if purpose == PurposeSetup && !s.cfg.Bool(carrierconfig.KeyPreventExhaustion) {
		dlog.Warnf(ctx, "selector pool exhausted for txId %s, rejecting", txID)
		cb.OnError(txID, ErrPoolExhausted)
		return
	}

	// preventExhaustion: this request shares the singleflight key with the
	// in-flight computation for the same resolution parameters, so it is
	// coalesced onto that computation rather than running its own.
	go s.runResolution(ctx, txID, key, filter, order, isRoaming, isEmergency, probe, rctx, cb)
}

func coalesceKey(filter epdgapi.AddressFilter, order epdgapi.AddressOrder, isRoaming, isEmergency bool, purpose Purpose) string {
	return fmt.Sprintf("%d|%d|%v|%v|%d", filter, order, isRoaming, isEmergency, purpose)
}

func (s *Selector) runResolution(
	ctx context.Context,
	txID, key string,
	filter epdgapi.AddressFilter,
	order epdgapi.AddressOrder,
	isRoaming, isEmergency bool,
	probe *netprobe.Probe,
	rctx ResolveContext,
	cb Callback,
) {
	start := time.Now()
	res, err, _ := s.sf.Do(key, func() (interface{}, error) {
		return s.resolveOnce(ctx, filter, order, isRoaming, isEmergency, probe, rctx)
	})
	if err != nil {
		if ie, ok := err.(*ikeerr.Error); ok {
			cb.OnError(txID, ie)
		} else {
			cb.OnError(txID, ikeerr.Newf(ikeerr.ServerSelectionFailed, err))
		}
		return
	}
	ips := res.([]net.IP)
	dlog.Debugf(ctx, "selector resolved %d addresses for txId %s in %s", len(ips), txID, time.Since(start))
	cb.OnServerListChanged(txID, ips)
}

// resolveOnce runs the full pipeline synchronously: source concatenation,
// dedup, family filter, ordering, and exclusion, in that order.
func (s *Selector) resolveOnce(
	ctx context.Context,
	filter epdgapi.AddressFilter,
	order epdgapi.AddressOrder,
	isRoaming, isEmergency bool,
	probe *netprobe.Probe,
	rctx ResolveContext,
) ([]net.IP, error) {
	sources := addressSources(s.cfg.StringArray(carrierconfig.KeyAddressSourcePriority))

	var perSource [][]epdgapi.CandidateAddress
	for _, src := range sources {
		switch src {
		case epdgapi.SourceStatic:
			raw := s.cfg.String(carrierconfig.KeyStaticAddress)
			if isRoaming {
				if r := s.cfg.String(carrierconfig.KeyStaticAddressRoaming); r != "" {
					raw = r
				}
			}
			perSource = append(perSource, staticAddresses(ctx, s.dns, raw))
		case epdgapi.SourcePLMN:
			plmnOrder := plmnSourceOrder(s.cfg.StringArray(carrierconfig.KeyPlmnPriority))
			allow := s.cfg.StringArray(carrierconfig.KeyMccMncs)
			perSource = append(perSource, plmnAddresses(ctx, s.dns, plmnOrder, rctx.PLMN, allow, isEmergency))
		case epdgapi.SourcePCO:
			perSource = append(perSource, pcoAddresses(s.pco))
		case epdgapi.SourceCellularLoc:
			perSource = append(perSource, cellularLocAddresses(ctx, s.dns, rctx.Cells, isEmergency))
		}
	}

	candidates := dedupFirstWins(perSource...)

	filtered, ferr := applyFamilyFilter(candidates, filter, probe)
	if ferr != nil {
		return nil, ferr
	}

	ordered := applyOrder(filtered, order)

	ips := make([]net.IP, len(ordered))
	for i, c := range ordered {
		ips[i] = c.IP
	}
	return s.excl.Apply(ips), nil
}

func addressSources(raw []string) []epdgapi.AddressSource {
	out := make([]epdgapi.AddressSource, 0, len(raw))
	for _, r := range raw {
		switch r {
		case "STATIC":
			out = append(out, epdgapi.SourceStatic)
		case "PLMN":
			out = append(out, epdgapi.SourcePLMN)
		case "PCO":
			out = append(out, epdgapi.SourcePCO)
		case "CELLULAR_LOC":
			out = append(out, epdgapi.SourceCellularLoc)
		}
	}
	return out
}

func plmnSourceOrder(raw []string) []fqdn.PLMNSource {
	out := make([]fqdn.PLMNSource, 0, len(raw))
	for _, r := range raw {
		switch r {
		case "RPLMN":
			out = append(out, fqdn.SourceRPLMN)
		case "HPLMN":
			out = append(out, fqdn.SourceHPLMN)
		case "EHPLMN_FIRST":
			out = append(out, fqdn.SourceEHPLMNFirst)
		case "EHPLMN_ALL":
			out = append(out, fqdn.SourceEHPLMNAll)
		}
	}
	return out
}

// OnEpdgConnectionFailed updates the exclusion set per the class of
// failure: only Network and Protocol classes are recorded.
func (s *Selector) OnEpdgConnectionFailed(ip net.IP, class ikeerr.Class) {
	switch class {
	case ikeerr.ClassNetwork, ikeerr.ClassProtocol:
		s.excl.Add(ip)
	}
}

// OnEpdgConnectedSuccessfully clears the exclusion set.
func (s *Selector) OnEpdgConnectedSuccessfully() {
	s.excl.Clear()
}

// PushPco forwards a carrier-signal PCO push to the PcoStore.
func (s *Selector) PushPco(apnType pco.APNType, pcoID int, payload []byte) {
	s.pco.Push(apnType, pcoID, payload)
}

// ClearPco drops all PCO entries.
func (s *Selector) ClearPco() {
	s.pco.ClearPco()
}
