package messagebus

import (
	"reflect"
	"sync"

	msgerrors "github.com/ori346/MessageBus/pkg/errors"
)

// Describer reflects a listener's concrete type into the deterministic set
// of HandlerDescriptors it declares. Implementations are expected to cache
// by type identity; see the describe package for the reflection-based
// implementation used by the Bus façade.
type Describer interface {
	Describe(listener any) ([]*HandlerDescriptor, error)
}

// DeadMessage wraps a published message (or tuple of messages) for which no
// handler was invoked across any tier. DeadMessage is itself an ordinary
// message type: handlers may subscribe to it like any other, but only via
// exact match, regardless of the manager's configured PublishMode.
type DeadMessage struct {
	Messages []any
}

// SubscriptionManager is the front door described by C8: it serialises
// subscribe/unsubscribe through a single exclusive writer lock, exposes
// lookup operations to publishers under a shared reader lock, and
// invalidates the derived caches on every write.
type SubscriptionManager struct {
	mu sync.RWMutex

	describer  Describer
	errHandler ErrorHandler

	hierarchy *TypeHierarchyCache
	classTree *ClassTree
	index     *SubscriberIndex
	super     *SuperTypeResolver
	vararg    *VarArgResolver
	matcher   *Matcher

	mode     PublishMode
	shutdown bool
}

// NewSubscriptionManager creates a manager with empty indices and caches.
func NewSubscriptionManager(mode PublishMode, describer Describer, errHandler ErrorHandler) *SubscriptionManager {
	if errHandler == nil {
		errHandler = newDefaultErrorHandler()
	}

	hierarchy := NewTypeHierarchyCache()
	tree := NewClassTree()
	index := NewSubscriberIndex(hierarchy, tree)
	super := NewSuperTypeResolver(index, hierarchy)
	vararg := NewVarArgResolver(index, hierarchy)
	matcher := NewMatcher(mode, index, super, vararg)

	return &SubscriptionManager{
		describer:  describer,
		errHandler: errHandler,
		hierarchy:  hierarchy,
		classTree:  tree,
		index:      index,
		super:      super,
		vararg:     vararg,
		matcher:    matcher,
		mode:       mode,
	}
}

func listenerType(listener any) reflect.Type {
	t := reflect.TypeOf(listener)
	if t != nil && t.Kind() == reflect.Ptr {
		return t.Elem()
	}
	return t
}

// Subscribe registers listener against every handler its class declares.
// A nil listener is silently ignored. A listener whose class was already
// found to have zero usable handlers short-circuits before any reflection.
func (m *SubscriptionManager) Subscribe(listener any) error {
	if listener == nil {
		return nil
	}
	lt := listenerType(listener)

	m.mu.Lock()
	defer m.mu.Unlock()

	if m.shutdown {
		return msgerrors.NewShutdownError()
	}
	if m.index.IsNonListener(lt) {
		return nil
	}

	// Caches are invalidated unconditionally at entry, before any index
	// mutation, per the component design: a subscribe that turns out to
	// be a no-op (already-existing group) still clears the derived caches
	// so concurrent readers never observe a stale super/vararg result
	// racing a write they didn't yet see.
	m.super.Invalidate()
	m.vararg.Invalidate()

	group, existed := m.index.Group(lt)
	if !existed {
		descriptors, err := m.describer.Describe(listener)
		if err != nil {
			m.index.MarkNonListener(lt)
			m.reportDescribeFailure(lt, listener, err)
			return nil
		}
		group, _ = m.index.EnsureGroup(lt, descriptors)
		if group == nil {
			// EnsureGroup marked lt as a non-listener (zero descriptors).
			return nil
		}
	}

	m.index.Attach(group, listener)
	return nil
}

// Unsubscribe removes listener from every handler its class declares. A
// nil listener, or a listener whose class was never subscribed, is a
// no-op.
func (m *SubscriptionManager) Unsubscribe(listener any) error {
	if listener == nil {
		return nil
	}
	lt := listenerType(listener)

	m.mu.Lock()
	defer m.mu.Unlock()

	if m.shutdown {
		return msgerrors.NewShutdownError()
	}

	m.super.Invalidate()
	m.vararg.Invalidate()

	group, ok := m.index.Group(lt)
	if !ok {
		return nil
	}
	m.index.Detach(group, listener)
	return nil
}

func (m *SubscriptionManager) reportDescribeFailure(lt reflect.Type, listener any, cause error) {
	if m.errHandler == nil {
		return
	}
	wrapped := msgerrors.NewReflectionFailureError(lt.String(), cause)
	m.errHandler.Handle(ErrorContext{
		Cause:    wrapped,
		Listener: listener,
	})
}

// PublishN publishes an N-ary message tuple. A nil entry anywhere in
// messages is rejected with a domain error and nothing is dispatched; this
// mirrors the spec's distinction between the sync path (domain error) and
// the async dispatcher path (reported to the error handler instead).
func (m *SubscriptionManager) PublishN(messages []any) error {
	for _, msg := range messages {
		if msg == nil {
			return msgerrors.NewNullMessageError()
		}
	}

	m.mu.RLock()
	defer m.mu.RUnlock()

	if m.shutdown {
		return msgerrors.NewShutdownError()
	}

	types := make([]reflect.Type, len(messages))
	for i, msg := range messages {
		types[i] = reflect.TypeOf(msg)
	}

	result := m.matcher.MatchN(types)
	invoked := m.invokeAll(result, messages)
	if !invoked {
		m.invokeDeadMessage(messages)
	}
	return nil
}

func (m *SubscriptionManager) invokeAll(result MatchResult, args []any) bool {
	invoked := false
	for _, sub := range result.Exact {
		if !sub.Descriptor().Enabled {
			continue
		}
		n := sub.Publish(m.errHandler, args...)
		if n > 0 {
			invoked = true
		}
	}
	for _, sub := range result.Vararg {
		if !sub.Descriptor().Enabled {
			continue
		}
		n := sub.PublishVararg(m.errHandler, args...)
		if n > 0 {
			invoked = true
		}
	}
	return invoked
}

func (m *SubscriptionManager) invokeDeadMessage(messages []any) {
	deadType := reflect.TypeOf(DeadMessage{})
	subs := m.index.ExactSingle(deadType)
	if len(subs) == 0 {
		return
	}
	dead := DeadMessage{Messages: messages}
	for _, sub := range subs {
		if !sub.Descriptor().Enabled {
			continue
		}
		sub.Publish(m.errHandler, dead)
	}
}

// Publish1 publishes a single message.
func (m *SubscriptionManager) Publish1(msg any) error {
	return m.PublishN([]any{msg})
}

// Publish2 publishes a two-message tuple.
func (m *SubscriptionManager) Publish2(msg1, msg2 any) error {
	return m.PublishN([]any{msg1, msg2})
}

// Publish3 publishes a three-message tuple.
func (m *SubscriptionManager) Publish3(msg1, msg2, msg3 any) error {
	return m.PublishN([]any{msg1, msg2, msg3})
}

// GetExact returns a snapshot of the subscriptions registered for exactly t.
func (m *SubscriptionManager) GetExact(t reflect.Type) []*Subscription {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return append([]*Subscription(nil), m.index.ExactSingle(t)...)
}

// GetExactAndSuper returns a snapshot of the union of GetExact(t) and the
// SuperTypeResolver result for t.
func (m *SubscriptionManager) GetExactAndSuper(t reflect.Type) []*Subscription {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := append([]*Subscription(nil), m.index.ExactSingle(t)...)
	out = append(out, m.super.Super(t)...)
	return out
}

// GetExactMulti returns a snapshot of the subscriptions registered for
// exactly this ordered type tuple.
func (m *SubscriptionManager) GetExactMulti(types ...reflect.Type) []*Subscription {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return append([]*Subscription(nil), m.index.ExactMulti(types...)...)
}

// Shutdown clears all indices and caches. Idempotent: a second call is a
// no-op equivalent to the first.
func (m *SubscriptionManager) Shutdown() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.shutdown {
		return nil
	}
	m.index.Clear()
	m.super.Invalidate()
	m.vararg.Invalidate()
	m.shutdown = true
	return nil
}
