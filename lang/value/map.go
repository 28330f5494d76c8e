package value

import (
	"fmt"
	"hash/fnv"
	"strconv"

	"github.com/aislang/aisl/lang/gc"
)

// Map is AISL's map value: a separate-chained hash table with 16 initial
// buckets, growing by doubling whenever the load factor would exceed 1
// (spec.md's explicit chaining requirement -- this is why lang/value rolls
// its own table instead of reusing the pack's open-addressing swiss.Map,
// which is used elsewhere only for the loader's module cache, where
// chaining semantics are not observable).
type Map struct {
	gc.Header
	buckets [][]mapEntry
	size    int
}

type mapEntry struct {
	key, val Value
}

const initialBucketCount = 16

// NewMapValue allocates and registers an empty Map.
func NewMapValue(h *gc.Heap) Value {
	m := &Map{buckets: make([][]mapEntry, initialBucketCount)}
	return fromObject(MapT, h.Register(m))
}

func (m *Map) Trace(visit func(gc.Object)) {
	for _, bucket := range m.buckets {
		for _, e := range bucket {
			if o := e.key.Object(); o != nil {
				visit(o)
			}
			if o := e.val.Object(); o != nil {
				visit(o)
			}
		}
	}
}

func (m *Map) Size() uintptr { return uintptr(24 + 48*len(m.buckets)) }

// Len returns the number of entries.
func (m *Map) Len() int { return m.size }

// mapKeyString normalises a key to the stringifiable form spec.md's map
// semantics require: strings are used directly, integer keys are formatted
// in decimal, so that map_set(m, 1, x) and map_set(m, "1", y) address the
// same entry. Other scalar kinds normalise the same way to their string
// form; compound keys (no stringify rule applies) fall back to their heap
// object's pointer identity, so two distinct array/map/json values are
// never equal as map keys.
func mapKeyString(v Value) string {
	switch v.tag {
	case StringT:
		return v.AsString()
	case IntT:
		return strconv.FormatInt(v.AsInt(), 10)
	case FloatT:
		return strconv.FormatFloat(v.AsFloat(), 'g', -1, 64)
	case BoolT:
		return strconv.FormatBool(v.AsBool())
	case DecimalT:
		return v.AsDecimal().String()
	case Unit:
		return ""
	default:
		return fmt.Sprintf("%p", v.obj)
	}
}

func hashKeyString(s string) uint64 {
	h := fnv.New64a()
	h.Write([]byte(s))
	return h.Sum64()
}

// valuesEqual reports whether a and b are equal by AISL's scalar equality
// rules (same tag, same payload); compound values compare by identity.
func valuesEqual(a, b Value) bool {
	if a.tag != b.tag {
		return false
	}
	switch a.tag {
	case Unit:
		return true
	case IntT, BoolT:
		return a.num == b.num
	case FloatT:
		return a.AsFloat() == b.AsFloat()
	case StringT:
		return a.AsString() == b.AsString()
	default:
		return a.obj == b.obj
	}
}

func (m *Map) bucketIndex(keyStr string) int {
	return int(hashKeyString(keyStr) % uint64(len(m.buckets)))
}

// Get returns the value stored for key, or (zero, false) if absent.
func (m *Map) Get(key Value) (Value, bool) {
	ks := mapKeyString(key)
	idx := m.bucketIndex(ks)
	for _, e := range m.buckets[idx] {
		if mapKeyString(e.key) == ks {
			return e.val, true
		}
	}
	return Value{}, false
}

// Set inserts or replaces the value stored for key.
func (m *Map) Set(key, val Value) {
	if float64(m.size+1)/float64(len(m.buckets)) > 1.0 {
		m.grow()
	}
	ks := mapKeyString(key)
	idx := m.bucketIndex(ks)
	for i, e := range m.buckets[idx] {
		if mapKeyString(e.key) == ks {
			m.buckets[idx][i].val = val
			return
		}
	}
	m.buckets[idx] = append(m.buckets[idx], mapEntry{key: key, val: val})
	m.size++
}

// Delete removes the entry for key, if present, and reports whether it
// existed.
func (m *Map) Delete(key Value) bool {
	ks := mapKeyString(key)
	idx := m.bucketIndex(ks)
	for i, e := range m.buckets[idx] {
		if mapKeyString(e.key) == ks {
			m.buckets[idx] = append(m.buckets[idx][:i], m.buckets[idx][i+1:]...)
			m.size--
			return true
		}
	}
	return false
}

func (m *Map) grow() {
	old := m.buckets
	m.buckets = make([][]mapEntry, len(old)*2)
	m.size = 0
	for _, bucket := range old {
		for _, e := range bucket {
			m.Set(e.key, e.val)
		}
	}
}

// Each calls fn once per entry, in unspecified order.
func (m *Map) Each(fn func(key, val Value)) {
	for _, bucket := range m.buckets {
		for _, e := range bucket {
			fn(e.key, e.val)
		}
	}
}
