package messagebus

import "go.uber.org/multierr"

// AsyncDispatcher is the subset of dispatch.Dispatcher the Bus façade
// depends on, kept as an interface (rather than importing the dispatch
// package directly) to avoid a cyclic import between pkg/messagebus and
// pkg/messagebus/dispatch.
type AsyncDispatcher interface {
	Submit(messages []any)
	Submit1(msg any)
	Submit2(msg1, msg2 any)
	Submit3(msg1, msg2, msg3 any)
	Close() error
}

// Bus multiplexes synchronous and asynchronous publish over a single
// SubscriptionManager, modelled on the teacher's ClientAdapter: a thin
// struct pairing the core with an optional async collaborator so callers
// get one façade regardless of which publish mode they use.
type Bus struct {
	manager    *SubscriptionManager
	dispatcher AsyncDispatcher
}

// NewBus wraps manager. dispatcher may be nil; PublishAsync* then falls
// back to a synchronous publish on the caller's goroutine.
func NewBus(manager *SubscriptionManager, dispatcher AsyncDispatcher) *Bus {
	return &Bus{manager: manager, dispatcher: dispatcher}
}

// Subscribe registers listener with the underlying manager.
func (b *Bus) Subscribe(listener any) error {
	return b.manager.Subscribe(listener)
}

// Unsubscribe removes listener from the underlying manager.
func (b *Bus) Unsubscribe(listener any) error {
	return b.manager.Unsubscribe(listener)
}

// Publish synchronously publishes an N-ary message tuple.
func (b *Bus) Publish(messages ...any) error {
	return b.manager.PublishN(messages)
}

// PublishAsync enqueues an N-ary message tuple for asynchronous publish,
// falling back to a synchronous publish when no dispatcher is configured.
func (b *Bus) PublishAsync(messages ...any) {
	if b.dispatcher == nil {
		_ = b.manager.PublishN(messages)
		return
	}
	b.dispatcher.Submit(messages)
}

// Shutdown shuts down the dispatcher (if any) and then the manager,
// combining both teardown errors rather than masking one with the other.
func (b *Bus) Shutdown() error {
	var errs []error
	if b.dispatcher != nil {
		if err := b.dispatcher.Close(); err != nil {
			errs = append(errs, err)
		}
	}
	if err := b.manager.Shutdown(); err != nil {
		errs = append(errs, err)
	}
	return multierr.Combine(errs...)
}
