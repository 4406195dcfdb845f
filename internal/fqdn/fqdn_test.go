package fqdn

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestPLMNValid(t *testing.T) {
	assert.True(t, PLMN{MCC: "311", MNC: "12"}.Valid())
	assert.True(t, PLMN{MCC: "311", MNC: "120"}.Valid())
	assert.False(t, PLMN{MCC: "31", MNC: "12"}.Valid())
	assert.False(t, PLMN{MCC: "311", MNC: "1"}.Valid())
	assert.False(t, PLMN{MCC: "31a", MNC: "12"}.Valid())
}

func TestBuildPLMNEmergencyInterleavesSourcesInPriorityOrder(t *testing.T) {
	// RPLMN 311-121, HPLMN 311-120, EHPLMN 300-120, all carrier-allowed.
	in := PLMNInput{
		RPLMN: &PLMN{MCC: "311", MNC: "121"},
		HPLMN: &PLMN{MCC: "311", MNC: "120"},
		EHPLMNs: []PLMN{
			{MCC: "300", MNC: "120"},
		},
	}
	allow := []string{"310-480", "300-120", "311-120", "311-121"}
	order := []PLMNSource{SourceRPLMN, SourceHPLMN, SourceEHPLMNAll}
	got := BuildPLMN(order, in, allow, true)
	want := []string{
		"sos.epdg.epc.mnc121.mcc311.pub.3gppnetwork.org",
		"epdg.epc.mnc121.mcc311.pub.3gppnetwork.org",
		"sos.epdg.epc.mnc120.mcc311.pub.3gppnetwork.org",
		"epdg.epc.mnc120.mcc311.pub.3gppnetwork.org",
		"sos.epdg.epc.mnc120.mcc300.pub.3gppnetwork.org",
		"epdg.epc.mnc120.mcc300.pub.3gppnetwork.org",
	}
	assert.Equal(t, want, got)
}

func TestBuildPLMNAllowListExcludes(t *testing.T) {
	in := PLMNInput{HPLMN: &PLMN{MCC: "310", MNC: "480"}}
	allow := []string{"311-121"}
	got := BuildPLMN([]PLMNSource{SourceHPLMN}, in, allow, false)
	assert.Empty(t, got)
}

func TestBuildPLMNRPLMNAlwaysIncluded(t *testing.T) {
	in := PLMNInput{RPLMN: &PLMN{MCC: "999", MNC: "99"}}
	allow := []string{"311-121"} // does not include 999-99
	got := BuildPLMN([]PLMNSource{SourceRPLMN}, in, allow, false)
	assert.Equal(t, []string{"epdg.epc.mnc099.mcc999.pub.3gppnetwork.org"}, got)
}

func TestBuildCellTemplates(t *testing.T) {
	p := PLMN{MCC: "311", MNC: "12"}
	gsm := Cell{Kind: CellGSMWCDMA, PLMN: p, AreaCode: 0xBEEF}
	assert.Equal(t, "lacbeef.epdg.epc.mnc012.mcc311.pub.3gppnetwork.org", BuildCell(gsm, false))

	lte := Cell{Kind: CellLTE, PLMN: p, AreaCode: 0xABCD}
	assert.Equal(t, "tac-lbcd.tac-hbab.tac.epdg.epc.mnc012.mcc311.pub.3gppnetwork.org", BuildCell(lte, false))
	assert.Equal(t, "tac-lbcd.tac-hbab.tac.sos.epdg.epc.mnc012.mcc311.pub.3gppnetwork.org", BuildCell(lte, true))

	nr := Cell{Kind: CellNR, PLMN: p, AreaCode: 0x010203}
	assert.Equal(t, "tac-lb03.tac-mb02.tac-hb01.5gstac.epdg.epc.mnc012.mcc311.pub.3gppnetwork.org", BuildCell(nr, false))
}

func TestBuildCellOrdered(t *testing.T) {
	p := PLMN{MCC: "311", MNC: "12"}
	c := Cell{Kind: CellLTE, PLMN: p, AreaCode: 1}
	got := BuildCellOrdered(c, true)
	assert.Len(t, got, 2)
	assert.Contains(t, got[0], "sos.")
}

func TestBuildCellInvalidPLMN(t *testing.T) {
	c := Cell{Kind: CellLTE, PLMN: PLMN{MCC: "3", MNC: "1"}, AreaCode: 1}
	assert.Equal(t, "", BuildCell(c, false))
	assert.Nil(t, BuildCellOrdered(c, true))
}
