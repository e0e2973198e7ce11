package dispatch

import (
	"sync"
	"testing"
	"time"

	"github.com/ori346/MessageBus/pkg/messagebus"
)

type fakePublisher struct {
	mu       sync.Mutex
	received [][]any
	fail     bool
}

func (f *fakePublisher) PublishN(messages []any) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.received = append(f.received, messages)
	if f.fail {
		return assertErr
	}
	return nil
}

func (f *fakePublisher) count() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.received)
}

var assertErr = &testPublishError{}

type testPublishError struct{}

func (*testPublishError) Error() string { return "publish failed" }

func waitFor(t *testing.T, timeout time.Duration, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(timeout)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(time.Millisecond)
	}
	t.Fatalf("condition not met within %v", timeout)
}

func TestSubmit1DispatchesToPublisher(t *testing.T) {
	pub := &fakePublisher{}
	d := New(pub, Config{NumberOfThreads: 2, QueueDepth: 8})
	defer d.Close()

	d.Submit1("hello")

	waitFor(t, time.Second, func() bool { return pub.count() == 1 })
}

func TestSubmit2And3PackageArgsAsTuples(t *testing.T) {
	pub := &fakePublisher{}
	d := New(pub, Config{NumberOfThreads: 2, QueueDepth: 8})
	defer d.Close()

	d.Submit2("a", "b")
	d.Submit3("a", "b", "c")

	waitFor(t, time.Second, func() bool { return pub.count() == 2 })

	pub.mu.Lock()
	defer pub.mu.Unlock()
	if len(pub.received[0]) != 2 || len(pub.received[1]) != 3 {
		t.Fatalf("expected tuples of length 2 and 3, got %v", pub.received)
	}
}

type capturingErrorHandler struct {
	mu   sync.Mutex
	ctxs []messagebus.ErrorContext
}

func (c *capturingErrorHandler) Handle(ctx messagebus.ErrorContext) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.ctxs = append(c.ctxs, ctx)
}

func (c *capturingErrorHandler) count() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.ctxs)
}

func TestNullMessageIsReportedNotReturned(t *testing.T) {
	pub := &fakePublisher{}
	errHandler := &capturingErrorHandler{}
	d := New(pub, Config{NumberOfThreads: 2, QueueDepth: 8, ErrorHandler: errHandler})
	defer d.Close()

	d.Submit1(nil)

	waitFor(t, time.Second, func() bool { return errHandler.count() == 1 })
	if pub.count() != 0 {
		t.Fatalf("expected the publisher never to be called for a nil message")
	}
}

func TestPublishFailureIsReportedToErrorHandler(t *testing.T) {
	pub := &fakePublisher{fail: true}
	errHandler := &capturingErrorHandler{}
	d := New(pub, Config{NumberOfThreads: 2, QueueDepth: 8, ErrorHandler: errHandler})
	defer d.Close()

	d.Submit1("x")

	waitFor(t, time.Second, func() bool { return errHandler.count() == 1 })
}

func TestCloseIsIdempotentAndDrainsQueue(t *testing.T) {
	pub := &fakePublisher{}
	d := New(pub, Config{NumberOfThreads: 2, QueueDepth: 8})

	for i := 0; i < 5; i++ {
		d.Submit1(i)
	}

	if err := d.Close(); err != nil {
		t.Fatalf("unexpected error from Close: %v", err)
	}
	if err := d.Close(); err != nil {
		t.Fatalf("expected a second Close to be a no-op, got %v", err)
	}
	if pub.count() != 5 {
		t.Fatalf("expected all 5 jobs to drain before Close returns, got %d", pub.count())
	}
}

func TestSubmitAfterCloseIsReportedAsShutdown(t *testing.T) {
	pub := &fakePublisher{}
	errHandler := &capturingErrorHandler{}
	d := New(pub, Config{NumberOfThreads: 2, QueueDepth: 8, ErrorHandler: errHandler})
	d.Close()

	d.Submit1("too-late")

	if errHandler.count() != 1 {
		t.Fatalf("expected a shutdown error to be reported for a post-Close submit, got %d reports", errHandler.count())
	}
	if pub.count() != 0 {
		t.Fatalf("expected the publisher never to be called after Close")
	}
}

func TestSendRecoversFromSendOnClosedChannel(t *testing.T) {
	// Reproduces the race window enqueue's closed.Load() check cannot
	// close: a Submit that wins the closed.Load() race but loses the
	// send race against Close closing d.jobs concurrently. Exercised
	// directly via send/close(d.jobs) rather than via Close, since Close
	// itself also waits on the worker pool.
	pub := &fakePublisher{}
	errHandler := &capturingErrorHandler{}
	d := New(pub, Config{NumberOfThreads: 2, QueueDepth: 8, ErrorHandler: errHandler})

	close(d.jobs)
	d.send(job{id: "raced", messages: []any{"x"}})

	if errHandler.count() != 1 {
		t.Fatalf("expected a send on an already-closed channel to be recovered and reported, got %d reports", errHandler.count())
	}

	d.closed.Store(true)
	d.cancel()
	d.group.Wait()
}

func TestNewFloorsThreadsAndQueueDepth(t *testing.T) {
	pub := &fakePublisher{}
	d := New(pub, Config{NumberOfThreads: 0, QueueDepth: 0})
	defer d.Close()

	d.Submit1("ok")
	waitFor(t, time.Second, func() bool { return pub.count() == 1 })
}
