package kizami

import (
	"reflect"
	"unsafe"
)

// Column stores the values of one component contiguously, together with the
// added and changed tick of every slot. Values, added and changed always have
// the same length.
type Column struct {
	info    *ComponentInfo
	data    reflect.Value // typed backing slice, keeps the values reachable
	base    unsafe.Pointer
	added   []Tick
	changed []Tick
	size    uintptr
	len     int
}

func newColumn(info *ComponentInfo, capacity int) *Column {
	c := &Column{
		info:    info,
		size:    info.backing.Size(),
		added:   make([]Tick, 0, capacity),
		changed: make([]Tick, 0, capacity),
	}
	c.data = reflect.MakeSlice(reflect.SliceOf(info.backing), capacity, capacity)
	c.base = c.data.UnsafePointer()
	return c
}

// Info returns the component stored in the column.
func (c *Column) Info() *ComponentInfo { return c.info }

// Len returns the number of rows.
func (c *Column) Len() int { return c.len }

// Get returns a pointer to the value at row.
func (c *Column) Get(row TableRow) unsafe.Pointer {
	return unsafe.Add(c.base, uintptr(row)*c.size)
}

// Ticks returns the ticks of the value at row.
func (c *Column) Ticks(row TableRow) ComponentTicks {
	return ComponentTicks{Added: c.added[row], Changed: c.changed[row]}
}

// AddedTicks exposes the added tick of every row.
func (c *Column) AddedTicks() []Tick { return c.added }

// ChangedTicks exposes the changed tick of every row.
func (c *Column) ChangedTicks() []Tick { return c.changed }

func (c *Column) grow(need int) {
	capacity := c.data.Len()
	if capacity >= need {
		return
	}
	newCap := capacity * 2
	if newCap < 8 {
		newCap = 8
	}
	if newCap < need {
		newCap = need
	}
	grown := reflect.MakeSlice(c.data.Type(), newCap, newCap)
	reflect.Copy(grown, c.data.Slice(0, c.len))
	c.data = grown
	c.base = grown.UnsafePointer()
}

func (c *Column) reserve(additional int) {
	c.grow(c.len + additional)
}

// pushZero appends a zero value with zero ticks.
func (c *Column) pushZero() {
	c.grow(c.len + 1)
	c.len++
	c.added = append(c.added, 0)
	c.changed = append(c.changed, 0)
}

// initialize writes a value into a freshly allocated row.
func (c *Column) initialize(row TableRow, src unsafe.Pointer, ticks ComponentTicks) {
	c.copyValue(c.Get(row), src)
	c.added[row] = ticks.Added
	c.changed[row] = ticks.Changed
}

// replace drops the value at row, writes src and stamps the changed tick.
func (c *Column) replace(row TableRow, src unsafe.Pointer, changeTick Tick) {
	dst := c.Get(row)
	c.info.drop(dst)
	c.copyValue(dst, src)
	c.changed[row] = changeTick
}

// initializeFrom copies the value and ticks of srcRow in other into row.
func (c *Column) initializeFrom(row TableRow, other *Column, srcRow TableRow) {
	c.copyValue(c.Get(row), other.Get(srcRow))
	c.added[row] = other.added[srcRow]
	c.changed[row] = other.changed[srcRow]
}

// swapRemove moves the last value into row and shrinks the column by one. The
// value previously at row is dropped first when drop is set.
func (c *Column) swapRemove(row TableRow, drop bool) {
	dst := c.Get(row)
	if drop {
		c.info.drop(dst)
	}
	last := c.len - 1
	if int(row) != last {
		c.copyValue(dst, c.Get(TableRow(last)))
		c.added[row] = c.added[last]
		c.changed[row] = c.changed[last]
	}
	c.zero(c.Get(TableRow(last)))
	c.added = c.added[:last]
	c.changed = c.changed[:last]
	c.len = last
}

func (c *Column) clear() {
	for row := range c.len {
		p := c.Get(TableRow(row))
		c.info.drop(p)
		c.zero(p)
	}
	c.added = c.added[:0]
	c.changed = c.changed[:0]
	c.len = 0
}

func (c *Column) checkChangeTicks(thisRun Tick) int {
	return checkTickSlice(c.added, thisRun) + checkTickSlice(c.changed, thisRun)
}

func (c *Column) copyValue(dst, src unsafe.Pointer) {
	if c.size == 0 || dst == src {
		return
	}
	if !c.info.hasPointers {
		memCopy(dst, src, c.info.valueSize)
		return
	}
	t := c.info.backing
	reflect.NewAt(t, dst).Elem().Set(reflect.NewAt(t, src).Elem())
}

func (c *Column) zero(p unsafe.Pointer) {
	if c.size == 0 {
		return
	}
	if !c.info.hasPointers {
		clear(unsafe.Slice((*byte)(p), c.size))
		return
	}
	reflect.NewAt(c.info.backing, p).Elem().SetZero()
}

// memCopy copies size bytes from src to dst using built-in copy for
// performance. Only valid for pointer-free values.
func memCopy(dst, src unsafe.Pointer, size uintptr) {
	if size == 0 {
		return
	}
	dstBytes := unsafe.Slice((*byte)(dst), size)
	srcBytes := unsafe.Slice((*byte)(src), size)
	copy(dstBytes, srcBytes)
}
