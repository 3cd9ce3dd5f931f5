// Package node implements the Dispatcher: orchestration of local vs.
// remote routing, publish vs. point-to-point dispatch, and the
// request/response correlation used for a remote dispatch's round trip.
package node

import "github.com/dispatchmesh/dispatch/pkg/wire"

// Scope is an end-point address plus the implicit "route by local rules"
// case. The zero value is NoScope.
type Scope struct {
	addr wire.Address
}

// NoScope returns the scope meaning "route locally" regardless of the
// dispatcher's own address.
func NoScope() Scope { return Scope{} }

// NewScope returns the scope identifying the end-point at addr.
func NewScope(addr wire.Address) Scope { return Scope{addr: addr} }

// IsZero reports whether s is NoScope.
func (s Scope) IsZero() bool { return s.addr.IsZero() }

// Address returns the scope's end-point address. Meaningless if IsZero.
func (s Scope) Address() wire.Address { return s.addr }

// Equal reports whether s and other denote the same scope.
func (s Scope) Equal(other Scope) bool { return s.addr.Equal(other.addr) }
