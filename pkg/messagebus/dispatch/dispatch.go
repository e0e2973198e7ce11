// Package dispatch provides the asynchronous dispatcher collaborator of
// spec §6: a small bounded worker pool that accepts (m1), (m1,m2),
// (m1,m2,m3), or (messages []any) jobs and performs the corresponding
// synchronous publish on a worker goroutine.
package dispatch

import (
	"context"
	"sync/atomic"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	msgerrors "github.com/ori346/MessageBus/pkg/errors"
	"github.com/ori346/MessageBus/pkg/logging"
	"github.com/ori346/MessageBus/pkg/messagebus"
)

// Publisher is the subset of *messagebus.SubscriptionManager the dispatcher
// depends on, kept as an interface so tests can substitute a fake.
type Publisher interface {
	PublishN(messages []any) error
}

type job struct {
	id       string
	messages []any
}

// Dispatcher runs NumberOfThreads worker goroutines pulling jobs off a
// buffered channel and performing a synchronous Publish on manager for
// each one, the submit-to-queue / pool-worker-calls-sync-publish pattern
// spec §9 describes for async dispatch.
type Dispatcher struct {
	manager    Publisher
	errHandler messagebus.ErrorHandler
	logger     *zap.Logger

	jobs   chan job
	group  *errgroup.Group
	cancel context.CancelFunc
	closed atomic.Bool
}

// Config controls Dispatcher construction.
type Config struct {
	NumberOfThreads int
	QueueDepth      int
	ErrorHandler    messagebus.ErrorHandler
	Logger          *zap.Logger
}

// New starts a Dispatcher with cfg.NumberOfThreads workers. NumberOfThreads
// below 2 is floored to 2 and QueueDepth below 1 defaults to 64, mirroring
// the config package's own normalization so a Dispatcher built directly is
// never accidentally single-threaded or unbuffered.
func New(manager Publisher, cfg Config) *Dispatcher {
	threads := cfg.NumberOfThreads
	if threads < 2 {
		threads = 2
	}
	depth := cfg.QueueDepth
	if depth < 1 {
		depth = 64
	}
	logger := cfg.Logger
	if logger == nil {
		logger = zap.NewNop()
	}

	ctx, cancel := context.WithCancel(context.Background())
	group, gctx := errgroup.WithContext(ctx)

	d := &Dispatcher{
		manager:    manager,
		errHandler: cfg.ErrorHandler,
		logger:     logger,
		jobs:       make(chan job, depth),
		group:      group,
		cancel:     cancel,
	}

	for i := 0; i < threads; i++ {
		d.group.Go(func() error {
			return d.worker(gctx)
		})
	}

	return d
}

func (d *Dispatcher) worker(ctx context.Context) error {
	for {
		select {
		case <-ctx.Done():
			return nil
		case j, ok := <-d.jobs:
			if !ok {
				return nil
			}
			d.run(j)
		}
	}
}

func (d *Dispatcher) run(j job) {
	if err := d.manager.PublishN(j.messages); err != nil {
		d.report(j, err)
	}
}

func (d *Dispatcher) report(j job, cause error) {
	if d.errHandler == nil {
		d.logger.Error("dispatch job failed", zap.String("jobID", j.id), zap.Error(cause),
			zap.String("component", string(logging.ComponentDispatch)))
		return
	}
	d.errHandler.Handle(messagebus.ErrorContext{
		Cause:            cause,
		PublishedObjects: j.messages,
	})
}

// Submit enqueues an N-ary message tuple for asynchronous publish. Unlike
// the synchronous path, a nil entry is reported to the error handler
// rather than returned to the caller, matching spec §6's split between
// the sync (domain error) and async (error-handler) null-message paths.
func (d *Dispatcher) Submit(messages []any) {
	d.enqueue(messages)
}

// Submit1 enqueues a single message.
func (d *Dispatcher) Submit1(msg any) { d.enqueue([]any{msg}) }

// Submit2 enqueues a two-message tuple.
func (d *Dispatcher) Submit2(msg1, msg2 any) { d.enqueue([]any{msg1, msg2}) }

// Submit3 enqueues a three-message tuple.
func (d *Dispatcher) Submit3(msg1, msg2, msg3 any) { d.enqueue([]any{msg1, msg2, msg3}) }

func (d *Dispatcher) enqueue(messages []any) {
	if d.closed.Load() {
		d.report(job{id: "rejected", messages: messages}, msgerrors.NewShutdownError())
		return
	}

	for _, msg := range messages {
		if msg == nil {
			d.report(job{id: "rejected", messages: messages}, msgerrors.NewNullMessageError())
			return
		}
	}

	d.send(job{id: uuid.NewString(), messages: messages})
}

// send enqueues j, guarding against the race between a Submit racing
// Close: closed.Load() above can observe false and still lose the race to
// Close setting closed and closing d.jobs before the send below runs,
// which would otherwise panic on a send to a closed channel. The recover
// converts that race outcome into the same rejection path enqueue already
// uses for a post-close Submit.
func (d *Dispatcher) send(j job) {
	defer func() {
		if recover() != nil {
			d.report(j, msgerrors.NewShutdownError())
		}
	}()
	d.jobs <- j
}

// Close stops accepting new jobs, drains the queue, and waits for every
// worker to exit. It is safe to call more than once.
func (d *Dispatcher) Close() error {
	if !d.closed.CompareAndSwap(false, true) {
		return nil
	}
	close(d.jobs)
	err := d.group.Wait()
	d.cancel()
	return err
}
