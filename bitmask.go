package kizami

import "math/bits"

// bitmask256 represents a set of up to 256 component IDs. It is used to
// uniquely identify archetypes and tables. Each bit corresponds to a component
// ID, and if the bit is set, the component is present.
type bitmask256 [4]uint64

// set enables the bit corresponding to the given component ID.
func (m *bitmask256) set(id ComponentID) {
	i := id >> 6 // (id / 64) to find the uint64 index
	o := id & 63 // (id % 64) to find the bit offset
	m[i] |= uint64(1) << o
}

// unset disables the bit corresponding to the given component ID.
func (m *bitmask256) unset(id ComponentID) {
	i := id >> 6
	o := id & 63
	m[i] &^= uint64(1) << o
}

// contains checks if all the bits set in sub are also set in m. It is used
// to determine if an archetype's component set is a superset of a filter's
// required components.
func (m bitmask256) contains(sub bitmask256) bool {
	return (m[0]&sub[0]) == sub[0] &&
		(m[1]&sub[1]) == sub[1] &&
		(m[2]&sub[2]) == sub[2] &&
		(m[3]&sub[3]) == sub[3]
}

// intersects reports whether m and o share at least one bit.
func (m bitmask256) intersects(o bitmask256) bool {
	return (m[0]&o[0])|(m[1]&o[1])|(m[2]&o[2])|(m[3]&o[3]) != 0
}

// containsBit checks if a specific bit is set in the mask.
func (m bitmask256) containsBit(id ComponentID) bool {
	if id >= MaxComponentTypes {
		return false
	}
	i := id >> 6
	o := id & 63
	return (m[i] & (uint64(1) << o)) != 0
}

func (m bitmask256) or(o bitmask256) bitmask256 {
	return bitmask256{m[0] | o[0], m[1] | o[1], m[2] | o[2], m[3] | o[3]}
}

func (m bitmask256) and(o bitmask256) bitmask256 {
	return bitmask256{m[0] & o[0], m[1] & o[1], m[2] & o[2], m[3] & o[3]}
}

func (m bitmask256) andNot(o bitmask256) bitmask256 {
	return bitmask256{m[0] &^ o[0], m[1] &^ o[1], m[2] &^ o[2], m[3] &^ o[3]}
}

func (m bitmask256) isEmpty() bool {
	return m[0]|m[1]|m[2]|m[3] == 0
}

func (m bitmask256) count() int {
	return bits.OnesCount64(m[0]) + bits.OnesCount64(m[1]) +
		bits.OnesCount64(m[2]) + bits.OnesCount64(m[3])
}

// ids appends the set component IDs to dst in ascending order.
func (m bitmask256) ids(dst []ComponentID) []ComponentID {
	for w, word := range m {
		for word != 0 {
			b := bits.TrailingZeros64(word)
			word &^= uint64(1) << b
			dst = append(dst, ComponentID(w*64+b))
		}
	}
	return dst
}

func maskOf(ids ...ComponentID) bitmask256 {
	var m bitmask256
	for _, id := range ids {
		m.set(id)
	}
	return m
}
