package kizami

import (
	"errors"
	"fmt"
	"reflect"

	"github.com/google/uuid"
	"go.uber.org/multierr"
	"go.uber.org/zap"
)

// Command is a deferred world mutation.
type Command interface {
	Apply(w *World) error
}

// CommandFunc adapts a function to Command.
type CommandFunc func(w *World) error

// Apply calls f(w).
func (f CommandFunc) Apply(w *World) error { return f(w) }

// Commands records structural changes to run later, at a point where no
// query is borrowing the world. Entities spawned through Commands get their
// handle immediately; they become visible in the world on Apply.
//
// A Commands value is not safe for concurrent use.
type Commands struct {
	entities *EntityAllocator
	worldID  uuid.UUID
	reserved []Entity
	queue    []Command
}

// NewCommands creates a buffer for w. Reserved entities are taken from the
// world's own allocator; they have no location, and so are not alive, until
// Apply places them.
func NewCommands(w *World) *Commands {
	return &Commands{entities: w.entities, worldID: w.id}
}

// Len returns the number of recorded commands.
func (c *Commands) Len() int { return len(c.queue) }

// Add records cmd.
func (c *Commands) Add(cmd Command) *Commands {
	c.queue = append(c.queue, cmd)
	return c
}

// SpawnEmpty reserves an entity that is placed without components on Apply.
func (c *Commands) SpawnEmpty() Entity {
	e := c.entities.CreateEntity()
	c.reserved = append(c.reserved, e)
	return e
}

// Spawn reserves an entity and records the insertion of components into it.
func (c *Commands) Spawn(components ...any) Entity {
	e := c.SpawnEmpty()
	if len(components) > 0 {
		c.Insert(e, components...)
	}
	return e
}

// Despawn records the removal of e. Despawning an entity that is already
// gone is not an error.
func (c *Commands) Despawn(e Entity) *Commands {
	return c.Add(despawnCommand{entity: e})
}

// Insert records the insertion of component values into e.
func (c *Commands) Insert(e Entity, components ...any) *Commands {
	return c.Add(insertCommand{entity: e, components: components})
}

// Remove records the removal of the components ids from e. If e lacks some
// of them the components it does have are still removed.
func (c *Commands) Remove(e Entity, ids ...ComponentID) *Commands {
	return c.Add(removeCommand{entity: e, ids: ids})
}

// InsertResource records storing v as the resource of its dynamic type.
func (c *Commands) InsertResource(v any) *Commands {
	if v == nil {
		panic("kizami: nil resource value")
	}
	return c.Add(insertResourceCommand{value: v})
}

// RemoveResource records dropping resource id.
func (c *Commands) RemoveResource(id ComponentID) *Commands {
	return c.Add(CommandFunc(func(w *World) error {
		w.RemoveResourceByID(id)
		return nil
	}))
}

// Apply runs every recorded command in order against w and empties the
// buffer. Reserved entities are placed first, so commands may refer to them.
// A failing command does not stop the rest; the returned error combines
// every failure. Applying to a world other than the one the buffer was
// created for panics.
func (c *Commands) Apply(w *World) error {
	if w.id != c.worldID {
		panic(fmt.Errorf("%w: commands of world %s applied to %s", ErrWorldMismatch, c.worldID, w.id))
	}
	for _, e := range c.reserved {
		// Clear may have released the reservation.
		if w.entities.IsAlive(e) {
			w.placeEmpty(e)
		}
	}
	c.reserved = c.reserved[:0]

	queue := c.queue
	c.queue = nil
	var errs error
	for i, cmd := range queue {
		if err := cmd.Apply(w); err != nil {
			w.log.Warn("command failed",
				zap.Int("index", i),
				zap.String("command", fmt.Sprintf("%T", cmd)),
				zap.Error(err))
			errs = multierr.Append(errs, err)
		}
	}
	return errs
}

type despawnCommand struct {
	entity Entity
}

func (cmd despawnCommand) Apply(w *World) error {
	if err := w.Despawn(cmd.entity); err != nil && !errors.Is(err, ErrNoSuchEntity) {
		return err
	}
	return nil
}

type insertCommand struct {
	entity     Entity
	components []any
}

func (cmd insertCommand) Apply(w *World) error {
	return w.Insert(cmd.entity, cmd.components...)
}

type removeCommand struct {
	entity Entity
	ids    []ComponentID
}

func (cmd removeCommand) Apply(w *World) error {
	err := w.RemoveBundle(cmd.entity, cmd.ids...)
	if !errors.Is(err, ErrBundleNotPresent) {
		return err
	}
	w.log.Warn("bundle not present, removing components one by one",
		zap.Stringer("entity", cmd.entity),
		zap.Any("components", cmd.ids))
	return w.RemoveIntersection(cmd.entity, cmd.ids...)
}

type insertResourceCommand struct {
	value any
}

func (cmd insertResourceCommand) Apply(w *World) error {
	w.insertResourceValue(cmd.value)
	return nil
}

// RemoveOf records the removal of component T from e.
func RemoveOf[T any](c *Commands, w *World, e Entity) *Commands {
	id := w.components.componentIDOrInsert(reflect.TypeFor[T]())
	return c.Remove(e, id)
}
