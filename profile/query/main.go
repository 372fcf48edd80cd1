// Profiling:
// go build ./profile/query
// go tool pprof -http=":8000" -nodefraction=0.001 ./query mem.prof

package main

import (
	"os"
	"runtime"
	"runtime/pprof"

	"github.com/edwinsyarief/kizami"
)

type comp1 struct {
	V int64
	W int64
}

type comp2 struct {
	V int64
	W int64
}

type comp3 struct {
	V int64
	W int64
}

type comp4 struct {
	V int64
	W int64
}

func main() {
	// CPU Profiling
	f, _ := os.Create("cpu.prof")
	_ = pprof.StartCPUProfile(f)
	defer pprof.StopCPUProfile()

	count := 50
	iters := 1000
	entities := 100000
	run(count, iters, entities)

	// Memory Profiling
	memFile, _ := os.Create("mem.prof")
	defer memFile.Close()
	runtime.GC()
	_ = pprof.WriteHeapProfile(memFile)
}

func run(rounds, iters, numEntities int) {
	for range rounds {
		w := kizami.NewWorld()
		batch := kizami.NewBuilder3[comp1, comp2, comp3](w)
		batch.NewEntities(numEntities)
		// Half of the entities get a fourth component so the query spans two tables.
		i := 0
		for _, e := range kizami.NewQuery[comp1](w).Entities() {
			if i%2 == 0 {
				_ = kizami.SetComponent(w, e, comp4{})
			}
			i++
		}
		query := kizami.NewQuery3[comp1, comp2, comp3](w)
		par := kizami.NewQuery2[comp1, comp2](w, kizami.With[comp4]())

		for range iters {
			query.Reset()
			for query.Next() {
				comp1, comp2, _ := query.GetMut()
				comp1.V += comp2.V
				comp1.W += comp2.W
			}
			par.Reset()
			par.ParForEachMut(0, func(_ kizami.Entity, a *comp1, b *comp2) {
				a.V -= b.W
			})
		}
	}
}
