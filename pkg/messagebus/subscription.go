package messagebus

import (
	"fmt"
	"reflect"
	"sync/atomic"

	msgerrors "github.com/ori346/MessageBus/pkg/errors"
)

// ErrorContext carries everything the error handler needs to report a
// failed or panicked handler invocation.
type ErrorContext struct {
	Cause            error
	Handler          *HandlerDescriptor
	Listener         any
	PublishedObjects []any
}

// ErrorHandler is the external collaborator that every invocation failure
// is routed to. Implementations must not block meaningfully; the core
// reports and continues.
type ErrorHandler interface {
	Handle(ErrorContext)
}

// Subscription binds one HandlerDescriptor to the set of live listener
// instances whose class declared that handler. A Subscription exists for
// exactly one (declaringType, handlerID) pair for the lifetime of the
// manager: it is created once and never removed from the index, even once
// its listener set becomes empty, so publish paths can hold raw references
// into the index without coordinating against deletion.
type Subscription struct {
	descriptor *HandlerDescriptor

	// listeners is a copy-on-write snapshot. Every mutation (Add, Remove)
	// installs a brand new slice; Snapshot/Publish load the current
	// pointer once and iterate it without further synchronization. This
	// is the release-publication discipline called for by the concurrency
	// model: a writer holds the manager's exclusive lock across the CAS
	// loop below, so there is never more than one concurrent mutator, but
	// readers running concurrently under the shared lock must still see a
	// consistent snapshot rather than a half-built slice.
	listeners atomic.Pointer[[]any]
}

// NewSubscription creates a Subscription with an empty listener set.
func NewSubscription(descriptor *HandlerDescriptor) *Subscription {
	s := &Subscription{descriptor: descriptor}
	empty := make([]any, 0)
	s.listeners.Store(&empty)
	return s
}

// Descriptor returns the handler descriptor this Subscription binds to.
func (s *Subscription) Descriptor() *HandlerDescriptor {
	return s.descriptor
}

// Add appends listener to the live set. The caller is expected to hold the
// manager's write lock; Add itself only needs the CAS loop to be safe
// against concurrent readers, not against concurrent writers.
func (s *Subscription) Add(listener any) {
	for {
		old := s.listeners.Load()
		next := make([]any, len(*old)+1)
		copy(next, *old)
		next[len(*old)] = listener
		if s.listeners.CompareAndSwap(old, &next) {
			return
		}
	}
}

// Remove deletes the first listener equal by reference. It is a no-op if
// listener is not present, matching the spec's "unsubscribe of a
// never-subscribed listener is a no-op" invariant applied at the
// Subscription level.
func (s *Subscription) Remove(listener any) {
	for {
		old := s.listeners.Load()
		idx := -1
		for i, l := range *old {
			if l == listener {
				idx = i
				break
			}
		}
		if idx == -1 {
			return
		}
		next := make([]any, 0, len(*old)-1)
		next = append(next, (*old)[:idx]...)
		next = append(next, (*old)[idx+1:]...)
		if s.listeners.CompareAndSwap(old, &next) {
			return
		}
	}
}

// Snapshot returns the current listener set. The returned slice is never
// mutated in place and is safe to iterate without any lock.
func (s *Subscription) Snapshot() []any {
	return *s.listeners.Load()
}

// Publish invokes every current listener with args, in insertion order.
// Each invocation is isolated: a panic or error from one listener is
// converted into a HandlerInvocationError and reported to errHandler, and
// iteration continues with the remaining listeners. Publish returns the
// number of listeners in the snapshot it iterated, which callers use to
// decide whether any handler was actually invoked for DeadMessage purposes.
func (s *Subscription) Publish(errHandler ErrorHandler, args ...any) int {
	snapshot := s.Snapshot()
	for _, listener := range snapshot {
		s.invokeOne(errHandler, listener, args)
	}
	return len(snapshot)
}

func (s *Subscription) invokeOne(errHandler ErrorHandler, listener any, args []any) {
	defer func() {
		if r := recover(); r != nil {
			err := fmt.Errorf("panic: %v", r)
			s.report(errHandler, listener, args, err)
		}
	}()

	values := make([]reflect.Value, len(args))
	for i, a := range args {
		if a == nil {
			values[i] = reflect.Zero(s.descriptor.MessageTypes[minInt(i, len(s.descriptor.MessageTypes)-1)])
			continue
		}
		values[i] = reflect.ValueOf(a)
	}

	if err := s.descriptor.Invoker.Invoke(listener, values); err != nil {
		s.report(errHandler, listener, args, err)
	}
}

// PublishVararg invokes every current listener with args bundled into a
// single slice value of the handler's declared component type
// (descriptor.MessageTypes[0].Elem()), the var-arg fan-out call shape of
// §4.7: a handler declared over T[] receives one []T argument built from
// the published tuple, not the tuple itself. Element values whose runtime
// type is a strict subtype of T (embedding T, or implementing an
// interface T) are narrowed to T before insertion. Panics and invocation
// errors are isolated exactly as Publish does.
func (s *Subscription) PublishVararg(errHandler ErrorHandler, args ...any) int {
	snapshot := s.Snapshot()
	for _, listener := range snapshot {
		s.invokeOneVararg(errHandler, listener, args)
	}
	return len(snapshot)
}

func (s *Subscription) invokeOneVararg(errHandler ErrorHandler, listener any, args []any) {
	defer func() {
		if r := recover(); r != nil {
			err := fmt.Errorf("panic: %v", r)
			s.report(errHandler, listener, args, err)
		}
	}()

	sliceType := s.descriptor.MessageTypes[0]
	elemType := sliceType.Elem()

	slice := reflect.MakeSlice(sliceType, len(args), len(args))
	for i, a := range args {
		slice.Index(i).Set(componentValue(a, elemType))
	}

	if err := s.descriptor.Invoker.Invoke(listener, []reflect.Value{slice}); err != nil {
		s.report(errHandler, listener, args, err)
	}
}

// componentValue narrows a published argument to target, the var-arg
// handler's declared component type. It handles the three ways a runtime
// value can be a "subtype" of target in Go: identity, embedding (walked
// the same way TypeHierarchyCache.computeEmbeddedClosure walks it), and
// interface satisfaction. A value with no path to target is returned
// unconverted, which surfaces as a recovered reflect panic rather than a
// silently wrong delivery.
func componentValue(a any, target reflect.Type) reflect.Value {
	if a == nil {
		return reflect.Zero(target)
	}
	rv := reflect.ValueOf(a)
	if rv.Type() == target {
		return rv
	}
	if target.Kind() == reflect.Interface && rv.Type().Implements(target) {
		return rv.Convert(target)
	}
	// Walk an addressable copy so a value reached through an unexported
	// embedded field (read-only to reflect) can be re-pointed at the same
	// memory without the read-only flag, letting callers Set/Interface it.
	addressable := reflect.New(rv.Type()).Elem()
	addressable.Set(rv)
	if embedded, ok := findEmbedded(addressable, target); ok {
		if !embedded.CanInterface() && embedded.CanAddr() {
			embedded = reflect.NewAt(target, embedded.Addr().UnsafePointer()).Elem()
		}
		return embedded
	}
	return rv
}

// findEmbedded walks v's anonymous struct/pointer fields looking for one
// of type target, the value-level counterpart of the type-level BFS in
// TypeHierarchyCache.computeEmbeddedClosure.
func findEmbedded(v reflect.Value, target reflect.Type) (reflect.Value, bool) {
	t := v.Type()
	if t == target {
		return v, true
	}
	if t.Kind() == reflect.Ptr {
		if v.IsNil() {
			return reflect.Value{}, false
		}
		return findEmbedded(v.Elem(), target)
	}
	if t.Kind() != reflect.Struct {
		return reflect.Value{}, false
	}
	for i := 0; i < t.NumField(); i++ {
		field := t.Field(i)
		if !field.Anonymous {
			continue
		}
		if found, ok := findEmbedded(v.Field(i), target); ok {
			return found, true
		}
	}
	return reflect.Value{}, false
}

func (s *Subscription) report(errHandler ErrorHandler, listener any, args []any, cause error) {
	if errHandler == nil {
		return
	}
	wrapped := msgerrors.NewHandlerInvocationError(s.descriptor.HandlerID, cause)
	errHandler.Handle(ErrorContext{
		Cause:            wrapped,
		Handler:          s.descriptor,
		Listener:         listener,
		PublishedObjects: args,
	})
}

func minInt(a, b int) int {
	if a < b {
		return a
	}
	return b
}
