package kizami

import (
	"fmt"
	"testing"
	"unsafe"
)

type benchPosition struct{ X, Y float32 }
type benchVelocity struct{ VX, VY float32 }
type benchHealth struct{ Current, Max int32 }
type benchMarker struct{ ID int64 }

var benchSizes = []int{1000, 10000, 100000}

func sizeName(size int) string {
	if size >= 1000000 {
		return fmt.Sprintf("%dM", size/1000000)
	}
	return fmt.Sprintf("%dK", size/1000)
}

func benchWorld(size int) *World {
	cfg := DefaultConfig()
	cfg.InitialCapacity = size
	return NewWorld(WithConfig(cfg))
}

// World Entity Creation Benchmarks
func BenchmarkWorldSpawn(b *testing.B) {
	for _, size := range benchSizes {
		b.Run(sizeName(size), func(b *testing.B) {
			for b.Loop() {
				b.StopTimer()
				w := benchWorld(size)
				b.StartTimer()
				for range size {
					w.Spawn(benchPosition{}, benchVelocity{})
				}
			}
			b.ReportAllocs()
		})
	}
}

func BenchmarkBuilderNewEntities(b *testing.B) {
	for _, size := range benchSizes {
		b.Run(sizeName(size), func(b *testing.B) {
			for b.Loop() {
				b.StopTimer()
				w := benchWorld(size)
				builder := NewBuilder2[benchPosition, benchVelocity](w)
				b.StartTimer()
				builder.NewEntities(size)
			}
			b.ReportAllocs()
		})
	}
}

func BenchmarkBuilderNewEntitiesWithValueSet(b *testing.B) {
	for _, size := range benchSizes {
		b.Run(sizeName(size), func(b *testing.B) {
			for b.Loop() {
				b.StopTimer()
				w := benchWorld(size)
				builder := NewBuilder2[benchPosition, benchVelocity](w)
				b.StartTimer()
				builder.NewEntitiesWithValueSet(size, benchPosition{X: 1}, benchVelocity{VX: 1})
			}
			b.ReportAllocs()
		})
	}
}

func BenchmarkFunctionsGetComponent(b *testing.B) {
	for _, size := range benchSizes {
		b.Run(sizeName(size), func(b *testing.B) {
			w := benchWorld(size)
			NewBuilder[benchPosition](w).NewEntities(size)
			ents := NewQuery[benchPosition](w).Entities()
			b.ResetTimer()
			for b.Loop() {
				for _, e := range ents {
					_ = GetComponent[benchPosition](w, e)
				}
			}
			b.ReportAllocs()
		})
	}
}

func BenchmarkFunctionsSetComponentNew(b *testing.B) {
	for _, size := range benchSizes {
		b.Run(sizeName(size), func(b *testing.B) {
			for b.Loop() {
				b.StopTimer()
				w := benchWorld(size)
				NewBuilder[benchPosition](w).NewEntities(size)
				ents := NewQuery[benchPosition](w).Entities()
				b.StartTimer()
				for _, e := range ents {
					_ = SetComponent(w, e, benchHealth{Current: 10})
				}
			}
			b.ReportAllocs()
		})
	}
}

func BenchmarkFunctionsRemoveComponent(b *testing.B) {
	for _, size := range benchSizes {
		b.Run(sizeName(size), func(b *testing.B) {
			for b.Loop() {
				b.StopTimer()
				w := benchWorld(size)
				NewBuilder2[benchPosition, benchVelocity](w).NewEntities(size)
				ents := NewQuery[benchPosition](w).Entities()
				b.StartTimer()
				for _, e := range ents {
					_ = RemoveComponent[benchVelocity](w, e)
				}
			}
			b.ReportAllocs()
		})
	}
}

func BenchmarkSparseInsertRemove(b *testing.B) {
	for _, size := range benchSizes {
		b.Run(sizeName(size), func(b *testing.B) {
			w := benchWorld(size)
			info, err := w.components.NewComponent(NewDynamicDescriptor("bench.sparse", Layout{Size: 8, Align: 8}, StorageSparseSet, true, nil))
			if err != nil {
				b.Fatal(err)
			}
			NewBuilder[benchPosition](w).NewEntities(size)
			ents := NewQuery[benchPosition](w).Entities()
			var v int64
			b.ResetTimer()
			for b.Loop() {
				for _, e := range ents {
					_ = w.InsertByID(e, info.ID(), unsafe.Pointer(&v))
				}
				for _, e := range ents {
					_ = w.RemoveBundle(e, info.ID())
				}
			}
			b.ReportAllocs()
		})
	}
}

func BenchmarkWorldDespawn(b *testing.B) {
	for _, size := range benchSizes {
		b.Run(sizeName(size), func(b *testing.B) {
			for b.Loop() {
				b.StopTimer()
				w := benchWorld(size)
				NewBuilder[benchPosition](w).NewEntities(size)
				ents := NewQuery[benchPosition](w).Entities()
				b.StartTimer()
				for _, e := range ents {
					_ = w.Despawn(e)
				}
			}
			b.ReportAllocs()
		})
	}
}

func BenchmarkWorldClear(b *testing.B) {
	for _, size := range benchSizes {
		b.Run(sizeName(size), func(b *testing.B) {
			for b.Loop() {
				b.StopTimer()
				w := benchWorld(size)
				NewBuilder2[benchPosition, benchVelocity](w).NewEntities(size)
				b.StartTimer()
				w.Clear()
			}
			b.ReportAllocs()
		})
	}
}

func BenchmarkCommandsSpawnApply(b *testing.B) {
	for _, size := range benchSizes {
		b.Run(sizeName(size), func(b *testing.B) {
			for b.Loop() {
				b.StopTimer()
				w := benchWorld(size)
				cmds := NewCommands(w)
				b.StartTimer()
				for range size {
					cmds.Spawn(benchPosition{}, benchHealth{})
				}
				if err := cmds.Apply(w); err != nil {
					b.Fatal(err)
				}
			}
			b.ReportAllocs()
		})
	}
}

func BenchmarkQueryIterate(b *testing.B) {
	for _, size := range benchSizes {
		b.Run(sizeName(size), func(b *testing.B) {
			w := benchWorld(size)
			NewBuilder[benchPosition](w).NewEntities(size)
			q := NewQuery[benchPosition](w)
			b.ResetTimer()
			for b.Loop() {
				q.Reset()
				for q.Next() {
					p := q.Get()
					p.X++
				}
			}
			b.ReportAllocs()
		})
	}
}

func BenchmarkQuery2Iterate(b *testing.B) {
	for _, size := range benchSizes {
		b.Run(sizeName(size), func(b *testing.B) {
			w := benchWorld(size)
			NewBuilder2[benchPosition, benchVelocity](w).NewEntitiesWithValueSet(size, benchPosition{}, benchVelocity{VX: 1, VY: 1})
			q := NewQuery2[benchPosition, benchVelocity](w)
			b.ResetTimer()
			for b.Loop() {
				q.Reset()
				for q.Next() {
					p, v := q.GetMut()
					p.X += v.VX
					p.Y += v.VY
				}
			}
			b.ReportAllocs()
		})
	}
}

func BenchmarkQuery4Iterate(b *testing.B) {
	for _, size := range benchSizes {
		b.Run(sizeName(size), func(b *testing.B) {
			w := benchWorld(size)
			builder := NewBuilder3[benchPosition, benchVelocity, benchHealth](w)
			builder.NewEntities(size)
			for _, e := range NewQuery[benchPosition](w).Entities() {
				_ = SetComponent(w, e, benchMarker{})
			}
			q := NewQuery4[benchPosition, benchVelocity, benchHealth, benchMarker](w)
			b.ResetTimer()
			for b.Loop() {
				q.Reset()
				for q.Next() {
					p, v, _, m := q.Get()
					p.X += v.VX
					m.ID++
				}
			}
			b.ReportAllocs()
		})
	}
}

func BenchmarkQueryChangedFilter(b *testing.B) {
	for _, size := range benchSizes {
		b.Run(sizeName(size), func(b *testing.B) {
			w := benchWorld(size)
			NewBuilder[benchPosition](w).NewEntities(size)
			w.ClearTrackers()
			q := NewQuery[benchPosition](w, Changed[benchPosition]())
			b.ResetTimer()
			for b.Loop() {
				q.Reset()
				for q.Next() {
					_ = q.Get()
				}
			}
			b.ReportAllocs()
		})
	}
}

func BenchmarkParIterate(b *testing.B) {
	for _, size := range benchSizes {
		b.Run(sizeName(size), func(b *testing.B) {
			w := benchWorld(size)
			NewBuilder2[benchPosition, benchVelocity](w).NewEntitiesWithValueSet(size, benchPosition{}, benchVelocity{VX: 1})
			q := NewQuery2[benchPosition, benchVelocity](w)
			b.ResetTimer()
			for b.Loop() {
				q.Reset()
				q.ParForEachMut(0, func(_ Entity, p *benchPosition, v *benchVelocity) {
					p.X += v.VX
				})
			}
			b.ReportAllocs()
		})
	}
}

func BenchmarkQueryStateCached(b *testing.B) {
	w := benchWorld(1000)
	NewBuilder2[benchPosition, benchVelocity](w).NewEntities(1000)
	pos := ComponentIDOrInsert[benchPosition](w.components)
	vel := ComponentIDOrInsert[benchVelocity](w.components)
	for b.Loop() {
		_ = NewQueryState(w, []ComponentID{pos, vel}, Without[benchHealth]())
	}
	b.ReportAllocs()
}
