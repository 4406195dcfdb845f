// Package exclusion implements the selector's temporary address-exclusion
// memory: addresses that recently failed an external (network or protocol
// class) connection attempt are removed from candidate lists until a
// success clears the set, or until removing them would have emptied the
// list.
package exclusion

import (
	"net"
	"sync"
)

// Set is mutated from both the manager event loop (on failure callbacks)
// and the selector worker (on resolution); a mutex guards every access.
type Set struct {
	mu      sync.Mutex
	members map[string]struct{}
}

func New() *Set {
	return &Set{members: make(map[string]struct{})}
}

// Add records ip as temporarily excluded.
func (s *Set) Add(ip net.IP) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.members[ip.String()] = struct{}{}
}

// Clear empties the set, used on success and on the would-empty reset rule.
func (s *Set) Clear() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.members = make(map[string]struct{})
}

func (s *Set) contains(ip net.IP) bool {
	_, ok := s.members[ip.String()]
	return ok
}

// Apply subtracts the exclusion set from candidates, honoring the
// would-empty reset invariant: if the subtraction would leave zero
// addresses but candidates was non-empty, the set is cleared atomically
// and the original (pre-subtraction) list is returned instead.
//
// The whole check-then-clear sequence holds the set's lock throughout so
// it is atomic with respect to concurrent Add calls from the manager event
// loop.
func (s *Set) Apply(candidates []net.IP) []net.IP {
	if len(candidates) == 0 {
		return candidates
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	filtered := make([]net.IP, 0, len(candidates))
	for _, ip := range candidates {
		if !s.contains(ip) {
			filtered = append(filtered, ip)
		}
	}
	if len(filtered) == 0 {
		s.members = make(map[string]struct{})
		return candidates
	}
	return filtered
}
