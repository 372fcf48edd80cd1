package kizami

import "errors"

var (
	// ErrComponentAlreadyExists is returned by NewComponent when the type (or,
	// for dynamic descriptors, the name) is already registered as a component.
	ErrComponentAlreadyExists = errors.New("kizami: component already exists")
	// ErrResourceAlreadyExists is the resource namespace counterpart of
	// ErrComponentAlreadyExists.
	ErrResourceAlreadyExists = errors.New("kizami: resource already exists")
	// ErrTooManyComponents is returned once MaxComponentTypes components exist.
	ErrTooManyComponents = errors.New("kizami: too many component types")
	// ErrUnknownComponent is returned when a ComponentID has no registry entry.
	ErrUnknownComponent = errors.New("kizami: unknown component id")
	// ErrNoSuchEntity is returned when an entity handle is stale or was never
	// allocated.
	ErrNoSuchEntity = errors.New("kizami: no such entity")
	// ErrBundleNotPresent is returned by RemoveBundle when the entity does not
	// carry every component of the bundle.
	ErrBundleNotPresent = errors.New("kizami: bundle not present on entity")
	// ErrTransmuteAccess is returned when a QueryBuilder does not hold the
	// access needed by the query it is transmuted into.
	ErrTransmuteAccess = errors.New("kizami: builder access does not cover transmuted query")
	// ErrQueryNotSingle is returned by Single when zero or several entities match.
	ErrQueryNotSingle = errors.New("kizami: query does not match exactly one entity")
	// ErrWorldMismatch is the panic value when a query state or command buffer
	// is used with a world it was not built for.
	ErrWorldMismatch = errors.New("kizami: used with a world it does not belong to")
)
