package kizami_test

import (
	"fmt"
	"reflect"
	"testing"
	"unsafe"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/edwinsyarief/kizami"
)

// go test -run ^TestComponents$ . -count 1
func TestComponents(t *testing.T) {
	t.Run("ids are dense and stable", func(t *testing.T) {
		c := kizami.NewComponents()
		_, ok := kizami.ComponentIDOf[Position](c)
		assert.False(t, ok)

		pos := kizami.ComponentIDOrInsert[Position](c)
		vel := kizami.ComponentIDOrInsert[Velocity](c)
		assert.Equal(t, kizami.ComponentID(0), pos)
		assert.Equal(t, kizami.ComponentID(1), vel)
		assert.Equal(t, pos, kizami.ComponentIDOrInsert[Position](c))

		id, ok := kizami.ComponentIDOf[Position](c)
		require.True(t, ok)
		assert.Equal(t, pos, id)
		assert.Equal(t, 2, c.Len())

		info, ok := c.Info(vel)
		require.True(t, ok)
		assert.Equal(t, reflect.TypeFor[Velocity](), info.Type())
		assert.Equal(t, unsafe.Sizeof(Velocity{}), info.Layout().Size)
		_, ok = c.Info(99)
		assert.False(t, ok)
	})

	t.Run("duplicates are rejected", func(t *testing.T) {
		c := kizami.NewComponents()
		_, err := c.NewComponent(kizami.DescriptorOf[Health]())
		require.NoError(t, err)
		_, err = c.NewComponent(kizami.DescriptorOf[Health]())
		assert.ErrorIs(t, err, kizami.ErrComponentAlreadyExists)

		_, err = c.NewResource(kizami.DescriptorOf[Health]())
		require.NoError(t, err, "a type may be both a component and a resource")
		_, err = c.NewResource(kizami.DescriptorOf[Health]())
		assert.ErrorIs(t, err, kizami.ErrResourceAlreadyExists)
		assert.Equal(t, 1, c.Len())
		assert.Equal(t, 1, c.ResourceLen())
	})

	t.Run("dynamic components by name", func(t *testing.T) {
		c := kizami.NewComponents()
		desc := kizami.NewDynamicDescriptor("script.mass", kizami.Layout{Size: 12, Align: 4}, kizami.StorageTable, true, nil)
		info, err := c.NewComponent(desc)
		require.NoError(t, err)
		assert.Nil(t, info.Type())
		assert.Equal(t, "script.mass", info.Name())

		id, ok := c.ComponentIDByName("script.mass")
		require.True(t, ok)
		assert.Equal(t, info.ID(), id)

		_, err = c.NewComponent(desc)
		assert.ErrorIs(t, err, kizami.ErrComponentAlreadyExists)
	})

	t.Run("too many components", func(t *testing.T) {
		c := kizami.NewComponents()
		for i := range kizami.MaxComponentTypes {
			desc := kizami.NewDynamicDescriptor(fmt.Sprintf("c%d", i), kizami.Layout{Size: 4, Align: 4}, kizami.StorageTable, true, nil)
			_, err := c.NewComponent(desc)
			require.NoError(t, err)
		}
		desc := kizami.NewDynamicDescriptor("overflow", kizami.Layout{Size: 4, Align: 4}, kizami.StorageTable, true, nil)
		_, err := c.NewComponent(desc)
		assert.ErrorIs(t, err, kizami.ErrTooManyComponents)
	})

	t.Run("unchecked info panics out of range", func(t *testing.T) {
		c := kizami.NewComponents()
		kizami.ComponentIDOrInsert[Tag](c)
		assert.NotPanics(t, func() { c.InfoUnchecked(0) })
		assert.Panics(t, func() { c.InfoUnchecked(1) })
		// The registry lock is released after the panic.
		kizami.ComponentIDOrInsert[Position](c)
	})
}

// go test -run ^TestDescriptorOf$ . -count 1
func TestDescriptorOf(t *testing.T) {
	tests := []struct {
		name    string
		desc    kizami.ComponentDescriptor
		storage kizami.StorageType
		send    bool
		drop    bool
	}{
		{"plain", kizami.DescriptorOf[Position](), kizami.StorageTable, true, false},
		{"sparse", kizami.DescriptorOf[Burning](), kizami.StorageSparseSet, true, false},
		{"non send", kizami.DescriptorOf[Window](), kizami.StorageTable, false, false},
		{"dropper", kizami.DescriptorOf[Handle](), kizami.StorageTable, true, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.storage, tt.desc.Storage)
			assert.Equal(t, tt.send, tt.desc.Send)
			assert.Equal(t, tt.drop, tt.desc.Drop != nil)
		})
	}

	t.Run("drop calls the method", func(t *testing.T) {
		drops := 0
		h := Handle{ID: 1, drops: &drops}
		kizami.DescriptorOf[Handle]().Drop(unsafe.Pointer(&h))
		assert.Equal(t, 1, drops)
	})

	assert.Equal(t, "sparse_set", kizami.StorageSparseSet.String())
	assert.Equal(t, "table", kizami.StorageTable.String())
}
