package tunnel

import "sync"

// TokenTable is a per-APN monotonic epoch counter: every new session for an
// APN is issued the next token, and any callback whose (apn, token) pair
// does not match the current entry must be dropped before it mutates any
// state.
type TokenTable struct {
	mu     sync.Mutex
	tokens map[string]uint64
}

// NewTokenTable returns an empty TokenTable; Current(apn) is 0 for any APN
// that has never had Next called.
func NewTokenTable() *TokenTable {
	return &TokenTable{tokens: make(map[string]uint64)}
}

// Next issues and records the next token for apn.
func (t *TokenTable) Next(apn string) uint64 {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.tokens[apn]++
	return t.tokens[apn]
}

// Current returns the most recently issued token for apn, or 0.
func (t *TokenTable) Current(apn string) uint64 {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.tokens[apn]
}

// Valid reports whether token is still the current token for apn -- the
// gate every IKE/child callback must pass before mutating state.
func (t *TokenTable) Valid(apn string, token uint64) bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.tokens[apn] == token
}
