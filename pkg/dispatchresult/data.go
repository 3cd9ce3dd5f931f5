// Package dispatchresult defines the dispatch envelope types —
// DispatchData, the DispatchResult variants, and their wire codec — shared
// between local and remote dispatch.
package dispatchresult

// nullSentinel is the type of Null, the value an Aggregate override uses
// to mean "remove this key" rather than "set this key to nil".
type nullSentinel struct{}

// Null, set as a key's value in an Aggregate override Data, removes that
// key from the aggregate's merged resultData instead of overriding it.
var Null = nullSentinel{}

// Data is a small ordered string-keyed map used for both DispatchData's
// auxiliary fields and every DispatchResult variant's resultData. Key
// order is insertion order, so enumeration is stable; a missing key
// returns (nil, false) from Get and nil from GetOrNil, matching the
// "missing key returns a null sentinel" rule rather than panicking.
type Data struct {
	keys   []string
	values map[string]any
}

// NewData returns an empty Data.
func NewData() *Data {
	return &Data{values: make(map[string]any)}
}

// DataOf builds a Data from a plain map. The key order is taken from one
// (randomized) iteration of m and is therefore unspecified, but it is then
// stored in the Data, so repeated enumeration of the same Data instance is
// stable.
func DataOf(m map[string]any) *Data {
	d := NewData()
	for k, v := range m {
		d.Set(k, v)
	}
	return d
}

// Set assigns key to value, appending key to the enumeration order on
// first assignment.
func (d *Data) Set(key string, value any) {
	if d.values == nil {
		d.values = make(map[string]any)
	}
	if _, exists := d.values[key]; !exists {
		d.keys = append(d.keys, key)
	}
	d.values[key] = value
}

// Delete removes key, if present.
func (d *Data) Delete(key string) {
	if d == nil {
		return
	}
	if _, exists := d.values[key]; !exists {
		return
	}
	delete(d.values, key)
	for i, k := range d.keys {
		if k == key {
			d.keys = append(d.keys[:i], d.keys[i+1:]...)
			break
		}
	}
}

// Get returns the value at key and whether it was present.
func (d *Data) Get(key string) (any, bool) {
	if d == nil || d.values == nil {
		return nil, false
	}
	v, ok := d.values[key]
	return v, ok
}

// GetOrNil returns the value at key, or nil if absent — the "null
// sentinel" read behaviour required of resultData and DispatchData.
func (d *Data) GetOrNil(key string) any {
	v, _ := d.Get(key)
	return v
}

// Keys returns the enumeration order of d's keys. The returned slice must
// not be mutated by callers.
func (d *Data) Keys() []string {
	if d == nil {
		return nil
	}
	return d.keys
}

// Len returns the number of entries in d.
func (d *Data) Len() int {
	if d == nil {
		return 0
	}
	return len(d.keys)
}

// Clone returns a deep-enough copy of d (key order and top-level values;
// values themselves are not deep-copied).
func (d *Data) Clone() *Data {
	out := NewData()
	if d == nil {
		return out
	}
	for _, k := range d.keys {
		out.Set(k, d.values[k])
	}
	return out
}

// Map returns a plain map view of d, for callers that don't need stable
// enumeration order.
func (d *Data) Map() map[string]any {
	out := make(map[string]any, d.Len())
	if d == nil {
		return out
	}
	for k, v := range d.values {
		out[k] = v
	}
	return out
}
