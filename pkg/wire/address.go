package wire

import (
	"bytes"
	"fmt"
	"net"
)

// Address is an opaque byte string identifying a transport end-point, with
// a text form used for the TCP variant ("host:port" or "[ipv6]:port").
// Equality is structural: two Addresses are equal iff their raw bytes are
// equal. An Address is assigned by the local endpoint on bind and is
// immutable thereafter.
type Address struct {
	raw []byte
}

// ParseAddress validates text as a "host:port" or "[ipv6]:port" form and
// returns the corresponding Address. The raw wire encoding is simply the
// UTF-8 bytes of the validated text form.
func ParseAddress(text string) (Address, error) {
	if _, _, err := net.SplitHostPort(text); err != nil {
		return Address{}, fmt.Errorf("%w: %q: %v", ErrInvalidAddress, text, err)
	}
	return Address{raw: []byte(text)}, nil
}

// DecodeAddress interprets b as the UTF-8 text form of an Address and
// validates it, mirroring ParseAddress's acceptance rules. It is the
// inverse of Address.Bytes.
func DecodeAddress(b []byte) (Address, error) {
	return ParseAddress(string(b))
}

// Bytes returns the address's wire-encoded byte form. The returned slice
// must not be mutated by callers.
func (a Address) Bytes() []byte { return a.raw }

// String returns the address's text form.
func (a Address) String() string { return string(a.raw) }

// IsZero reports whether a is the zero-value Address (no bytes assigned).
func (a Address) IsZero() bool { return len(a.raw) == 0 }

// Equal reports whether a and other denote the same address.
func (a Address) Equal(other Address) bool {
	return bytes.Equal(a.raw, other.raw)
}

// Host returns the address's host component, stripping brackets from a
// literal IPv6 host.
func (a Address) Host() string {
	host, _, _ := net.SplitHostPort(a.String())
	return host
}

// Port returns the address's port component.
func (a Address) Port() string {
	_, port, _ := net.SplitHostPort(a.String())
	return port
}
