package selector

import (
	"context"
	"net"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/datawire-oss/epdgtunnel/internal/carrierconfig"
	"github.com/datawire-oss/epdgtunnel/internal/dnsclient"
	"github.com/datawire-oss/epdgtunnel/internal/exclusion"
	"github.com/datawire-oss/epdgtunnel/internal/fqdn"
	"github.com/datawire-oss/epdgtunnel/internal/ikeerr"
	"github.com/datawire-oss/epdgtunnel/internal/netprobe"
	"github.com/datawire-oss/epdgtunnel/internal/pco"
	"github.com/datawire-oss/epdgtunnel/pkg/epdgapi"
)

type dualStackProbe struct{}

func (dualStackProbe) LocalAddresses() []net.IP { return []net.IP{net.ParseIP("192.0.2.9"), net.ParseIP("2001:db8::9")} }
func (dualStackProbe) IsReachable(net.IP) bool   { return true }

type v4OnlyProbe struct{}

func (v4OnlyProbe) LocalAddresses() []net.IP { return []net.IP{net.ParseIP("192.0.2.9")} }
func (v4OnlyProbe) IsReachable(net.IP) bool  { return true }

type recordingCallback struct {
	mu   sync.Mutex
	list []net.IP
	err  *ikeerr.Error
	done chan struct{}
}

func newRecordingCallback() *recordingCallback {
	return &recordingCallback{done: make(chan struct{}, 8)}
}

func (c *recordingCallback) OnServerListChanged(txID string, list []net.IP) {
	c.mu.Lock()
	c.list = list
	c.mu.Unlock()
	c.done <- struct{}{}
}

func (c *recordingCallback) OnError(txID string, err *ikeerr.Error) {
	c.mu.Lock()
	c.err = err
	c.mu.Unlock()
	c.done <- struct{}{}
}

func (c *recordingCallback) wait(t *testing.T) {
	t.Helper()
	select {
	case <-c.done:
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for selector callback")
	}
}

func newTestSelector(t *testing.T, cfgYaml string) (*Selector, *dnsclient.Fake) {
	cfg, err := carrierconfig.LoadBytes([]byte(cfgYaml))
	require.NoError(t, err)
	fake := dnsclient.NewFake()
	sel := New(cfg, pco.NewStore(10, 11), exclusion.New(), fake)
	return sel, fake
}

func TestS1_StaticFQDNResolution(t *testing.T) {
	sel, fake := newTestSelector(t, `
strArrays:
  EPDG_ADDRESS_SOURCE_PRIORITY: ["STATIC"]
strings:
  EPDG_STATIC_ADDRESS: "epdg.epc.mnc088.mcc888.pub.3gppnetwork.org"
`)
	fake.Set("epdg.epc.mnc088.mcc888.pub.3gppnetwork.org", dnsclient.FamilyIPv4, net.ParseIP("127.0.0.1"))

	cb := newRecordingCallback()
	sel.GetValidatedServerList(context.Background(), "tx1", epdgapi.FilterIPv4v6, epdgapi.OrderIPv4Preferred, false, false, PurposeSetup, netprobe.New(dualStackProbe{}), ResolveContext{}, cb)
	cb.wait(t)
	require.Nil(t, cb.err)
	assert.Equal(t, []net.IP{net.ParseIP("127.0.0.1")}, cb.list)
}

func TestS2_PLMNEmergencyOrdering(t *testing.T) {
	sel, fake := newTestSelector(t, `
strArrays:
  EPDG_ADDRESS_SOURCE_PRIORITY: ["PLMN"]
  EPDG_PLMN_PRIORITY: ["RPLMN", "HPLMN", "EHPLMN_ALL"]
  MCC_MNCS: ["310-480", "300-120", "311-120", "311-121"]
`)
	set := func(name, ip string) {
		fake.Set(name, dnsclient.FamilyIPv4, net.ParseIP(ip))
	}
	set("epdg.epc.mnc121.mcc311.pub.3gppnetwork.org", "127.0.0.7")
	set("sos.epdg.epc.mnc121.mcc311.pub.3gppnetwork.org", "127.0.0.8")
	set("epdg.epc.mnc120.mcc311.pub.3gppnetwork.org", "127.0.0.1")
	set("sos.epdg.epc.mnc120.mcc311.pub.3gppnetwork.org", "127.0.0.4")
	set("epdg.epc.mnc120.mcc300.pub.3gppnetwork.org", "127.0.0.2")
	set("sos.epdg.epc.mnc120.mcc300.pub.3gppnetwork.org", "127.0.0.5")
	set("epdg.epc.mnc480.mcc310.pub.3gppnetwork.org", "127.0.0.3")

	rctx := ResolveContext{PLMN: fqdn.PLMNInput{
		RPLMN: &fqdn.PLMN{MCC: "311", MNC: "121"},
		HPLMN: &fqdn.PLMN{MCC: "311", MNC: "120"},
		EHPLMNs: []fqdn.PLMN{{MCC: "300", MNC: "120"}},
	}}

	cb := newRecordingCallback()
	sel.GetValidatedServerList(context.Background(), "tx2", epdgapi.FilterIPv4v6, epdgapi.OrderSystem, false, true, PurposeSetup, netprobe.New(dualStackProbe{}), rctx, cb)
	cb.wait(t)
	require.Nil(t, cb.err)
	want := []net.IP{
		net.ParseIP("127.0.0.8"), net.ParseIP("127.0.0.7"),
		net.ParseIP("127.0.0.4"), net.ParseIP("127.0.0.1"),
		net.ParseIP("127.0.0.5"), net.ParseIP("127.0.0.2"),
	}
	assert.Equal(t, want, cb.list)
}

func TestS3_ExclusionEnableThenSuccess(t *testing.T) {
	sel, fake := newTestSelector(t, `
strArrays:
  EPDG_ADDRESS_SOURCE_PRIORITY: ["STATIC"]
strings:
  EPDG_STATIC_ADDRESS: "a.example,b.example,epdg.epc.mnc010.mcc999.pub.3gppnetwork.org"
`)
	a, b := net.ParseIP("192.0.2.1"), net.ParseIP("192.0.2.2")
	v6 := net.ParseIP("2001:db8::3")
	fake.Set("a.example", dnsclient.FamilyIPv4, a)
	fake.Set("b.example", dnsclient.FamilyIPv4, b)
	fake.Set("epdg.epc.mnc010.mcc999.pub.3gppnetwork.org", dnsclient.FamilyIPv6, v6)

	resolve := func() []net.IP {
		cb := newRecordingCallback()
		sel.GetValidatedServerList(context.Background(), "tx", epdgapi.FilterIPv4v6, epdgapi.OrderSystem, false, false, PurposeSetup, netprobe.New(dualStackProbe{}), ResolveContext{}, cb)
		cb.wait(t)
		return cb.list
	}

	assert.Equal(t, []net.IP{a, b, v6}, resolve())

	sel.OnEpdgConnectionFailed(a, ikeerr.ClassNetwork)
	assert.Equal(t, []net.IP{b, v6}, resolve())

	sel.OnEpdgConnectionFailed(b, ikeerr.ClassProtocol)
	assert.Equal(t, []net.IP{v6}, resolve())

	sel.OnEpdgConnectedSuccessfully()
	assert.Equal(t, []net.IP{a, b, v6}, resolve())
}

func TestS4_WouldEmptyReset(t *testing.T) {
	sel, fake := newTestSelector(t, `
strArrays:
  EPDG_ADDRESS_SOURCE_PRIORITY: ["STATIC"]
strings:
  EPDG_STATIC_ADDRESS: "a.example"
`)
	a := net.ParseIP("192.0.2.1")
	fake.Set("a.example", dnsclient.FamilyIPv4, a)

	cb := newRecordingCallback()
	sel.GetValidatedServerList(context.Background(), "tx", epdgapi.FilterIPv4, epdgapi.OrderSystem, false, false, PurposeSetup, netprobe.New(v4OnlyProbe{}), ResolveContext{}, cb)
	cb.wait(t)
	require.Equal(t, []net.IP{a}, cb.list)

	sel.OnEpdgConnectionFailed(a, ikeerr.ClassNetwork)

	cb2 := newRecordingCallback()
	sel.GetValidatedServerList(context.Background(), "tx", epdgapi.FilterIPv4, epdgapi.OrderSystem, false, false, PurposeSetup, netprobe.New(v4OnlyProbe{}), ResolveContext{}, cb2)
	cb2.wait(t)
	assert.Equal(t, []net.IP{a}, cb2.list)
}

func TestFamilyFilterFailsWhenNetworkLacksFamily(t *testing.T) {
	sel, fake := newTestSelector(t, `
strArrays:
  EPDG_ADDRESS_SOURCE_PRIORITY: ["STATIC"]
strings:
  EPDG_STATIC_ADDRESS: "192.0.2.1"
`)
	_ = fake

	cb := newRecordingCallback()
	sel.GetValidatedServerList(context.Background(), "tx", epdgapi.FilterIPv6, epdgapi.OrderSystem, false, false, PurposeSetup, netprobe.New(v4OnlyProbe{}), ResolveContext{}, cb)
	cb.wait(t)
	require.NotNil(t, cb.err)
	assert.Equal(t, ikeerr.AddressOnlyIPv6Allowed, cb.err.Kind())
}

func TestPoolRejectsSecondSetupWithoutPreventExhaustion(t *testing.T) {
	sel, fake := newTestSelector(t, `
strArrays:
  EPDG_ADDRESS_SOURCE_PRIORITY: ["STATIC"]
strings:
  EPDG_STATIC_ADDRESS: "slow.example"
`)
	blockedDNS := dnsclient.NewFake()
	_ = blockedDNS
	_ = fake

	// Use a real selector whose first resolution never gets a chance to
	// release because we hold the setup semaphore ourselves.
	require.True(t, sel.setupSem.TryAcquire(1))
	defer sel.setupSem.Release(1)

	cb := newRecordingCallback()
	sel.GetValidatedServerList(context.Background(), "tx", epdgapi.FilterIPv4v6, epdgapi.OrderSystem, false, false, PurposeSetup, netprobe.New(dualStackProbe{}), ResolveContext{}, cb)
	cb.wait(t)
	require.NotNil(t, cb.err)
	assert.Equal(t, ikeerr.ServerSelectionFailed, cb.err.Kind())
}

func TestPoolCoalescesWithPreventExhaustion(t *testing.T) {
	sel, fake := newTestSelector(t, `
strArrays:
  EPDG_ADDRESS_SOURCE_PRIORITY: ["STATIC"]
strings:
  EPDG_STATIC_ADDRESS: "a.example"
bools:
  EPDG_PREVENT_EXHAUSTION: true
`)
	fake.Set("a.example", dnsclient.FamilyIPv4, net.ParseIP("192.0.2.1"))

	require.True(t, sel.setupSem.TryAcquire(1))

	cb := newRecordingCallback()
	sel.GetValidatedServerList(context.Background(), "tx", epdgapi.FilterIPv4v6, epdgapi.OrderSystem, false, false, PurposeSetup, netprobe.New(dualStackProbe{}), ResolveContext{}, cb)
	sel.setupSem.Release(1)
	cb.wait(t)
	require.Nil(t, cb.err)
	assert.Equal(t, []net.IP{net.ParseIP("192.0.2.1")}, cb.list)
}

func TestDedupDropsDuplicates(t *testing.T) {
	sel, fake := newTestSelector(t, `
strArrays:
  EPDG_ADDRESS_SOURCE_PRIORITY: ["STATIC", "PCO"]
strings:
  EPDG_STATIC_ADDRESS: "a.example"
`)
	ip := net.ParseIP("192.0.2.1")
	fake.Set("a.example", dnsclient.FamilyIPv4, ip)
	sel.PushPco(pco.APNTypeIMS, 10, append([]byte{1, 2, 3}, ip.To4()...))

	cb := newRecordingCallback()
	sel.GetValidatedServerList(context.Background(), "tx", epdgapi.FilterIPv4v6, epdgapi.OrderSystem, false, false, PurposeSetup, netprobe.New(dualStackProbe{}), ResolveContext{}, cb)
	cb.wait(t)
	require.Nil(t, cb.err)
	assert.Equal(t, []net.IP{ip}, cb.list)
}
