package registry

import (
	"reflect"
	"sort"
)

// tier groups every Registration sharing one declared MessageType.
type tier struct {
	messageType   reflect.Type
	registrations []*Registration
	firstOrder    int
}

// HandlerProvider is an immutable snapshot of registrations, queried by
// message type. A HandlerRegistry publishes a new HandlerProvider on
// every Register/Unregister; holders of an existing HandlerProvider are
// unaffected by later mutations.
type HandlerProvider struct {
	tiers []tier
}

func newProvider(regs []*Registration) *HandlerProvider {
	byType := make(map[reflect.Type]*tier)
	var ordered []*tier
	for _, r := range regs {
		t, ok := byType[r.MessageType]
		if !ok {
			t = &tier{messageType: r.MessageType, firstOrder: r.order}
			byType[r.MessageType] = t
			ordered = append(ordered, t)
		}
		t.registrations = append(t.registrations, r)
	}
	tiers := make([]tier, len(ordered))
	for i, t := range ordered {
		tiers[i] = *t
	}
	return &HandlerProvider{tiers: tiers}
}

// GetHandlers returns every Registration whose MessageType equals or is a
// base of queryType (i.e. queryType is AssignableTo it), ordered
// most-derived tier first and registration order within a tier.
//
// "Most derived" is a partial order over the registered tiers: tier A
// precedes tier B when A.AssignableTo(B) holds and the reverse does not
// — a value assignable to A is always assignable to B, so A is the more
// specific (smaller) type. Registered tiers with no such relationship
// (e.g. two unrelated interfaces) keep their relative registration
// order, since Go's type system gives no canonical ranking between them.
func (p *HandlerProvider) GetHandlers(queryType reflect.Type) []*Registration {
	if p == nil || queryType == nil {
		return nil
	}

	var matched []tier
	for _, t := range p.tiers {
		if queryType.AssignableTo(t.messageType) {
			matched = append(matched, t)
		}
	}

	sort.SliceStable(matched, func(i, j int) bool {
		a, b := matched[i], matched[j]
		if a.messageType == b.messageType {
			return false
		}
		aToB := a.messageType.AssignableTo(b.messageType)
		bToA := b.messageType.AssignableTo(a.messageType)
		switch {
		case aToB && !bToA:
			return true
		case bToA && !aToB:
			return false
		default:
			return a.firstOrder < b.firstOrder
		}
	})

	var out []*Registration
	for _, t := range matched {
		out = append(out, t.registrations...)
	}
	return out
}

// All returns every registration held by the snapshot, in registration
// order, for introspection purposes (e.g. a CLI listing).
func (p *HandlerProvider) All() []*Registration {
	if p == nil {
		return nil
	}
	var out []*Registration
	for _, t := range p.tiers {
		out = append(out, t.registrations...)
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].order < out[j].order })
	return out
}
