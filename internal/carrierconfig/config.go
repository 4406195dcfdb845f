// Package carrierconfig provides a read-only, keyed view over carrier
// policy: ints, int arrays, strings, string arrays, and booleans, each with
// a built-in default used when the carrier hasn't pushed a value for that
// key.
package carrierconfig

import (
	"os"
	"sync"

	"github.com/pkg/errors"
	"gopkg.in/yaml.v3"
)

// Key enumerates the carrier-config keys recognized by this system.
// Unknown keys fall through to defaults; they are never an error.
type Key string

const (
	KeyAddressPriority              Key = "EPDG_ADDRESS_PRIORITY"
	KeyPlmnPriority                 Key = "EPDG_PLMN_PRIORITY"
	KeyStaticAddress                Key = "EPDG_STATIC_ADDRESS"
	KeyStaticAddressRoaming         Key = "EPDG_STATIC_ADDRESS_ROAMING"
	KeyMccMncs                      Key = "MCC_MNCS"
	KeyAddressIPTypePreference      Key = "EPDG_ADDRESS_IP_TYPE_PREFERENCE"
	KeyPcoIDIPv4                    Key = "EPDG_PCO_ID_IPV4"
	KeyPcoIDIPv6                    Key = "EPDG_PCO_ID_IPV6"
	KeyIkeRekeyHardTimerSec         Key = "IKE_REKEY_HARD_TIMER_SEC"
	KeyIkeRekeySoftTimerSec         Key = "IKE_REKEY_SOFT_TIMER_SEC"
	KeyChildSaRekeyHardTimerSec     Key = "CHILD_SA_REKEY_HARD_TIMER_SEC"
	KeyChildSaRekeySoftTimerSec     Key = "CHILD_SA_REKEY_SOFT_TIMER_SEC"
	KeyNattKeepAliveTimerSec        Key = "NATT_KEEP_ALIVE_TIMER_SEC"
	KeyDpdTimerSec                  Key = "DPD_TIMER_SEC"
	KeyRetransmitTimerMsec          Key = "RETRANSMIT_TIMER_MSEC"
	KeySupportedIkeAeadAlgorithms   Key = "SUPPORTED_IKE_SESSION_AEAD_ALGORITHMS"
	KeySupportedChildAeadAlgorithms Key = "SUPPORTED_CHILD_SESSION_AEAD_ALGORITHMS"
	KeySupportsMultipleSaProposals  Key = "SUPPORTS_MULTIPLE_SA_PROPOSALS"
	KeyDistinctEpdgForEmergency     Key = "KEY_DISTINCT_EPDG_FOR_EMERGENCY_ALLOWED"
	KeyValidateNetworkOnNoResponse  Key = "KEY_VALIDATE_UNDERLYING_NETWORK_ON_NO_RESPONSE"
	KeyIkeDeviceIdentitySupported   Key = "KEY_IKE_DEVICE_IDENTITY_SUPPORTED"
	KeyAddressSourcePriority        Key = "EPDG_ADDRESS_SOURCE_PRIORITY" // STATIC/PLMN/PCO/CELLULAR_LOC order
	KeyPreventExhaustion            Key = "EPDG_PREVENT_EXHAUSTION"
	KeyDNSTimeoutMsec               Key = "EPDG_DNS_TIMEOUT_MSEC"
	KeyExclusionDrivenIteration     Key = "EPDG_EXCLUSION_DRIVEN_ITERATION"
)

// IPPreference mirrors EPDG_ADDRESS_IP_TYPE_PREFERENCE.
type IPPreference int

const (
	PrefIPv4Only IPPreference = iota
	PrefIPv6Only
	PrefIPv4Preferred
	PrefIPv6Preferred
	PrefSystem
)

// defaults holds the built-in fallback for every recognized key.
var defaults = struct {
	ints      map[Key]int
	intArrays map[Key][]int
	strings   map[Key]string
	strArrays map[Key][]string
	bools     map[Key]bool
}{
	ints: map[Key]int{
		KeyAddressIPTypePreference:  int(PrefSystem),
		KeyPcoIDIPv4:                pcoIDDefaultIPv4,
		KeyPcoIDIPv6:                pcoIDDefaultIPv6,
		KeyIkeRekeyHardTimerSec:     28800,
		KeyIkeRekeySoftTimerSec:     27000,
		KeyChildSaRekeyHardTimerSec: 3600,
		KeyChildSaRekeySoftTimerSec: 3000,
		KeyNattKeepAliveTimerSec:    20,
		KeyDpdTimerSec:              120,
		KeyDNSTimeoutMsec:           2000,
	},
	intArrays: map[Key][]int{
		KeyRetransmitTimerMsec: {500, 1000, 2000, 4000, 8000, 8000},
	},
	strings: map[Key]string{},
	strArrays: map[Key][]string{
		KeyAddressPriority:       {"STATIC", "PLMN", "PCO", "CELLULAR_LOC"},
		KeyAddressSourcePriority: {"STATIC", "PLMN", "PCO", "CELLULAR_LOC"},
		KeyPlmnPriority:          {"RPLMN", "HPLMN", "EHPLMN_FIRST", "EHPLMN_ALL"},
	},
	bools: map[Key]bool{
		KeyDistinctEpdgForEmergency:    false,
		KeyValidateNetworkOnNoResponse: false,
		KeyIkeDeviceIdentitySupported:  false,
		KeySupportsMultipleSaProposals: false,
		KeyPreventExhaustion:           false,
		KeyExclusionDrivenIteration:    true,
	},
}

const (
	pcoIDDefaultIPv4 = 0
	pcoIDDefaultIPv6 = 0
)

// Config is the read-only view the rest of the system consumes. It is safe
// for concurrent reads; Reload (used by the fsnotify watcher) swaps the
// backing values atomically under a mutex.
type Config struct {
	mu        sync.RWMutex
	ints      map[Key]int
	intArrays map[Key][]int
	strings   map[Key]string
	strArrays map[Key][]string
	bools     map[Key]bool
}

// New returns an empty Config; every lookup falls back to defaults until
// Reload is called with carrier-pushed data.
func New() *Config {
	return &Config{}
}

// document is the YAML shape persisted/loaded for a carrier config file.
type document struct {
	Ints      map[string]int      `yaml:"ints,omitempty"`
	IntArrays map[string][]int    `yaml:"intArrays,omitempty"`
	Strings   map[string]string   `yaml:"strings,omitempty"`
	StrArrays map[string][]string `yaml:"strArrays,omitempty"`
	Bools     map[string]bool     `yaml:"bools,omitempty"`
}

// LoadFile parses a YAML carrier-config document from disk.
func LoadFile(path string) (*Config, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.Wrapf(err, "reading carrier config %s", path)
	}
	return LoadBytes(b)
}

// LoadBytes parses a YAML carrier-config document from memory.
func LoadBytes(b []byte) (*Config, error) {
	var doc document
	if err := yaml.Unmarshal(b, &doc); err != nil {
		return nil, errors.Wrap(err, "parsing carrier config")
	}
	c := New()
	c.apply(doc)
	return c, nil
}

func (c *Config) apply(doc document) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.ints = toKeyMapInt(doc.Ints)
	c.intArrays = toKeyMapIntArray(doc.IntArrays)
	c.strings = toKeyMapString(doc.Strings)
	c.strArrays = toKeyMapStringArray(doc.StrArrays)
	c.bools = toKeyMapBool(doc.Bools)
}

// Reload atomically replaces this Config's values with those from a freshly
// parsed document -- used by the fsnotify-driven file watcher.
func (c *Config) Reload(path string) error {
	b, err := os.ReadFile(path)
	if err != nil {
		return errors.Wrapf(err, "reloading carrier config %s", path)
	}
	var doc document
	if err := yaml.Unmarshal(b, &doc); err != nil {
		return errors.Wrap(err, "parsing reloaded carrier config")
	}
	c.apply(doc)
	return nil
}

func toKeyMapInt(m map[string]int) map[Key]int {
	out := make(map[Key]int, len(m))
	for k, v := range m {
		out[Key(k)] = v
	}
	return out
}

func toKeyMapIntArray(m map[string][]int) map[Key][]int {
	out := make(map[Key][]int, len(m))
	for k, v := range m {
		out[Key(k)] = v
	}
	return out
}

func toKeyMapString(m map[string]string) map[Key]string {
	out := make(map[Key]string, len(m))
	for k, v := range m {
		out[Key(k)] = v
	}
	return out
}

func toKeyMapStringArray(m map[string][]string) map[Key][]string {
	out := make(map[Key][]string, len(m))
	for k, v := range m {
		out[Key(k)] = v
	}
	return out
}

func toKeyMapBool(m map[string]bool) map[Key]bool {
	out := make(map[Key]bool, len(m))
	for k, v := range m {
		out[Key(k)] = v
	}
	return out
}

func (c *Config) Int(key Key) int {
	c.mu.RLock()
	v, ok := c.ints[key]
	c.mu.RUnlock()
	if ok {
		return v
	}
	return defaults.ints[key]
}

func (c *Config) IntArray(key Key) []int {
	c.mu.RLock()
	v, ok := c.intArrays[key]
	c.mu.RUnlock()
	if ok && len(v) > 0 {
		return v
	}
	return defaults.intArrays[key]
}

func (c *Config) String(key Key) string {
	c.mu.RLock()
	v, ok := c.strings[key]
	c.mu.RUnlock()
	if ok {
		return v
	}
	return defaults.strings[key]
}

func (c *Config) StringArray(key Key) []string {
	c.mu.RLock()
	v, ok := c.strArrays[key]
	c.mu.RUnlock()
	if ok && len(v) > 0 {
		return v
	}
	return defaults.strArrays[key]
}

func (c *Config) Bool(key Key) bool {
	c.mu.RLock()
	v, ok := c.bools[key]
	c.mu.RUnlock()
	if ok {
		return v
	}
	return defaults.bools[key]
}

// NattKeepAliveSeconds applies the clamp rule: values outside [0, 3600]
// fall back to the default.
func (c *Config) NattKeepAliveSeconds() int {
	v := c.Int(KeyNattKeepAliveTimerSec)
	if v < 0 || v > 3600 {
		return defaults.ints[KeyNattKeepAliveTimerSec]
	}
	return v
}

// RetransmitTimerMsec applies the "6 integer millisecond values, default
// preserved if carrier config invalid" rule.
func (c *Config) RetransmitTimerMsec() []int {
	v := c.IntArray(KeyRetransmitTimerMsec)
	if len(v) != 6 {
		return defaults.intArrays[KeyRetransmitTimerMsec]
	}
	return v
}
