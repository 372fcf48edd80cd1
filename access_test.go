package kizami

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

// go test -run ^TestAccess$ . -count 1
func TestAccess(t *testing.T) {
	t.Run("reads are compatible", func(t *testing.T) {
		var a, b Access
		a.AddRead(1)
		b.AddRead(1)
		assert.True(t, a.IsCompatible(&b))
	})

	t.Run("write conflicts with read", func(t *testing.T) {
		var a, b Access
		a.AddWrite(1)
		b.AddRead(1)
		assert.False(t, a.IsCompatible(&b))
		assert.False(t, b.IsCompatible(&a))
		assert.Equal(t, []ComponentID{1}, a.Conflicts(&b))
	})

	t.Run("disjoint writes", func(t *testing.T) {
		var a, b Access
		a.AddWrite(1)
		b.AddWrite(2)
		assert.True(t, a.IsCompatible(&b))
		assert.Empty(t, a.Conflicts(&b))
	})

	t.Run("write all", func(t *testing.T) {
		var a, b, empty Access
		a.WriteAll()
		b.AddRead(7)
		assert.False(t, a.IsCompatible(&b))
		assert.True(t, a.IsCompatible(&empty))
		assert.True(t, a.HasWrite(200))
	})

	t.Run("read all", func(t *testing.T) {
		var a, b Access
		a.ReadAll()
		b.AddRead(3)
		assert.True(t, a.IsCompatible(&b))
		b.AddWrite(4)
		assert.False(t, a.IsCompatible(&b))
	})

	t.Run("extend", func(t *testing.T) {
		var a, b Access
		a.AddRead(1)
		b.AddWrite(2)
		a.Extend(&b)
		assert.Equal(t, []ComponentID{1, 2}, a.Reads())
		assert.Equal(t, []ComponentID{2}, a.Writes())
	})
}

// go test -run ^TestFilteredAccess$ . -count 1
func TestFilteredAccess(t *testing.T) {
	const (
		pos ComponentID = 1
		vel ComponentID = 2
		tag ComponentID = 3
	)

	t.Run("disjoint filters make writes compatible", func(t *testing.T) {
		a := NewFilteredAccess()
		a.AddWrite(pos)
		a.AndWith(tag)

		b := NewFilteredAccess()
		b.AddWrite(pos)
		b.AndWithout(tag)

		assert.True(t, a.IsCompatible(&b))
		assert.True(t, b.IsCompatible(&a))
	})

	t.Run("overlapping filters conflict", func(t *testing.T) {
		a := NewFilteredAccess()
		a.AddWrite(pos)
		b := NewFilteredAccess()
		b.AddRead(pos)
		b.AndWithout(tag)
		assert.False(t, a.IsCompatible(&b))
	})

	t.Run("or needs every branch ruled out", func(t *testing.T) {
		a := NewFilteredAccess()
		a.AddWrite(pos)
		a.AndWithout(tag)

		// b = Read<pos> and (With<tag> or With<vel>)
		b := NewFilteredAccess()
		b.AddRead(pos)
		withTag := b.Clone()
		withTag.AndWith(tag)
		withVel := b.Clone()
		withVel.AndWith(vel)
		combined := matchesNothing()
		combined.AppendOr(&withTag)
		combined.AppendOr(&withVel)
		combined.ExtendAccess(&b)

		assert.False(t, a.IsCompatible(&combined), "the With<vel> branch can overlap")

		a.AndWithout(vel)
		assert.True(t, a.IsCompatible(&combined))
	})

	t.Run("extend is a cartesian product", func(t *testing.T) {
		a := NewFilteredAccess()
		a.AppendOr(&FilteredAccess{filterSets: []AccessFilters{{}}})
		b := NewFilteredAccess()
		b.AndWith(tag)
		c := NewFilteredAccess()
		c.AndWithout(tag)
		b.AppendOr(&c)

		a.Extend(&b)
		assert.Len(t, a.filterSets, 4)
	})

	t.Run("required", func(t *testing.T) {
		a := NewFilteredAccess()
		a.AddRead(pos)
		a.AddWrite(vel)
		a.AndWith(tag)
		assert.Equal(t, []ComponentID{pos, vel}, a.Required())
	})

	t.Run("clone is independent", func(t *testing.T) {
		a := NewFilteredAccess()
		c := a.Clone()
		c.AndWith(tag)
		assert.False(t, a.filterSets[0].with.containsBit(tag))
	})
}

// go test -run ^TestQueryAccess$ . -count 1
func TestQueryAccess(t *testing.T) {
	w := NewWorld()
	pos := ComponentIDOrInsert[struct{ X float32 }](w.components)
	tag := ComponentIDOrInsert[struct{}](w.components)

	writer := NewQueryBuilder(w).MutID(pos).WithID(tag).Access()
	reader := NewQueryBuilder(w).RefID(pos).WithoutID(tag).Access()
	assert.True(t, writer.IsCompatible(&reader))

	either := NewQueryBuilder(w).RefID(pos).Filter(Or(WithID(tag), WithoutID(tag))).Access()
	assert.False(t, writer.IsCompatible(&either))
}

// go test -run ^TestBitmask$ . -count 1
func TestBitmask(t *testing.T) {
	m := maskOf(0, 63, 64, 255)
	assert.Equal(t, 4, m.count())
	assert.True(t, m.containsBit(255))
	assert.False(t, m.containsBit(256))
	assert.Equal(t, []ComponentID{0, 63, 64, 255}, m.ids(nil))

	sub := maskOf(63, 255)
	assert.True(t, m.contains(sub))
	assert.False(t, sub.contains(m))
	assert.Equal(t, maskOf(0, 64), m.andNot(sub))
	assert.True(t, m.intersects(sub))
	assert.False(t, maskOf(1).intersects(maskOf(2)))

	m.unset(0)
	assert.False(t, m.containsBit(0))
	assert.True(t, bitmask256{}.isEmpty())
}
