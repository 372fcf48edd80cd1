package kizami

import (
	"fmt"
	"time"

	"go.uber.org/multierr"
	"go.uber.org/zap"
)

// System is a unit of per-frame work. Run receives the ticks to evaluate
// change filters against and a command buffer that is applied right after
// it returns.
type System struct {
	Name string
	Run  func(w *World, cmds *Commands, ticks SystemTicks) error
}

type systemSlot struct {
	System
	cmds    *Commands
	lastRun Tick
}

// Runner runs systems one after another against a world, keeping each
// system's last run tick. It is a minimal sequential schedule.
type Runner struct {
	world   *World
	systems []*systemSlot
}

// NewRunner creates a runner for w.
func NewRunner(w *World) *Runner {
	return &Runner{world: w}
}

// Add appends sys to the schedule. A newly added system sees every existing
// component as added.
func (r *Runner) Add(sys System) *Runner {
	if sys.Run == nil {
		panic(fmt.Sprintf("kizami: system %q has no Run function", sys.Name))
	}
	r.systems = append(r.systems, &systemSlot{
		System:  sys,
		cmds:    NewCommands(r.world),
		lastRun: r.world.ChangeTick() - Tick(MaxChangeAge),
	})
	return r
}

// Len returns the number of systems.
func (r *Runner) Len() int { return len(r.systems) }

// RunOnce runs every system once in the order they were added. A failing
// system does not stop the others; the returned error combines the failures.
func (r *Runner) RunOnce() error {
	w := r.world
	var errs error
	for _, s := range r.systems {
		thisRun := w.IncrementChangeTick()
		start := time.Now()
		err := s.Run(w, s.cmds, SystemTicks{LastRun: s.lastRun, ThisRun: thisRun})
		if err != nil {
			errs = multierr.Append(errs, fmt.Errorf("system %s: %w", s.Name, err))
		}
		if err := s.cmds.Apply(w); err != nil {
			errs = multierr.Append(errs, fmt.Errorf("system %s commands: %w", s.Name, err))
		}
		s.lastRun = thisRun
		w.log.Debug("system ran",
			zap.String("system", s.Name),
			zap.Uint32("tick", uint32(thisRun)),
			zap.Duration("took", time.Since(start)))
	}
	if w.CheckChangeTicks() {
		now := w.ChangeTick()
		for _, s := range r.systems {
			s.lastRun.Check(now)
		}
	}
	return errs
}

// Run calls RunOnce n times, stopping at the first frame that fails.
func (r *Runner) Run(n int) error {
	for i := range n {
		if err := r.RunOnce(); err != nil {
			return fmt.Errorf("frame %d: %w", i, err)
		}
	}
	return nil
}
