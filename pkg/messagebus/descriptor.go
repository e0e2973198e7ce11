package messagebus

import "reflect"

// Invoker is the polymorphic invocation capability a HandlerDescriptor
// carries. Two variants are expected in practice (plain reflective call,
// and a cached/bound call), selected when the descriptor is constructed;
// the core never branches on which one it is.
type Invoker interface {
	Invoke(listener any, args []reflect.Value) error
}

// HandlerDescriptor is an immutable record describing one handler method on
// a listener class. A descriptor is produced once by a Describer and never
// mutated afterward; the manager treats it as a value.
type HandlerDescriptor struct {
	// DeclaringType is the listener type (after pointer indirection) that
	// declares this handler.
	DeclaringType reflect.Type

	// HandlerID distinguishes handlers declared on the same DeclaringType,
	// typically the method name. Used for error reporting and as part of
	// a Subscription's identity.
	HandlerID string

	// MessageTypes is the handler's declared parameter signature, in
	// order. Length 1 is a single-arg handler; length >= 2 is a multi-arg
	// handler; a handler declared over a slice type is a var-arg handler
	// and has exactly one entry (the slice type itself).
	MessageTypes []reflect.Type

	// AcceptsSubtypes controls whether this handler participates in
	// super-type expansion (default true).
	AcceptsSubtypes bool

	// Enabled controls whether this handler is indexed at all. A disabled
	// descriptor must never reach the index; Describer implementations
	// filter it out rather than relying on callers to check.
	Enabled bool

	// Synchronized requests per-listener mutual exclusion around
	// invocation, implemented by the invoke package's SynchronizedInvoker.
	Synchronized bool

	// IsVararg is true when MessageTypes[0] is a slice type.
	IsVararg bool

	// Priority is carried for forward compatibility with the source
	// system but is never read by the index or matcher; see the design
	// notes on why it is reserved rather than wired to an ordering.
	Priority int

	// Invoker performs the actual call against a listener instance.
	Invoker Invoker
}
