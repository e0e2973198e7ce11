// Package errorhandler provides the error-handler collaborator of spec §6:
// a zap-backed console reporter, and a chaining combinator substituting
// for the original's multi-handler registration (see SPEC_FULL.md §4).
package errorhandler

import (
	"sync"

	"go.uber.org/zap"

	"github.com/ori346/MessageBus/pkg/logging"
	"github.com/ori346/MessageBus/pkg/messagebus"
)

// ConsoleHandler logs every ErrorContext, plus a one-time notice on its
// first Handle call, and never panics or blocks meaningfully, per spec §7's
// policy. Callers pass it to the manager explicitly; the manager's own
// fallback for a nil handler is messagebus's defaultErrorHandler.
type ConsoleHandler struct {
	logger *zap.Logger
	once   sync.Once
}

// NewConsoleHandler creates a handler that logs through logger. A nil
// logger falls back to zap.NewNop(), matching the teacher's no-op-by-default
// logging convention.
func NewConsoleHandler(logger *zap.Logger) *ConsoleHandler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &ConsoleHandler{logger: logger}
}

// Handle implements messagebus.ErrorHandler.
func (h *ConsoleHandler) Handle(ctx messagebus.ErrorContext) {
	h.once.Do(func() {
		h.logger.Info("no error handler configured; installed default console reporter",
			zap.String("component", string(logging.ComponentManager)))
	})

	fields := []zap.Field{
		zap.Error(ctx.Cause),
		zap.Any("listener", ctx.Listener),
		zap.Int("publishedObjectCount", len(ctx.PublishedObjects)),
	}
	if ctx.Handler != nil {
		fields = append(fields,
			zap.String("handlerID", ctx.Handler.HandlerID),
			zap.String("declaringType", ctx.Handler.DeclaringType.String()),
		)
	}
	h.logger.Error("handler invocation failed", fields...)
}

// Chain composes multiple ErrorHandlers into one that calls every handler
// in order, substituting for the original library's support for more than
// one registered IPublicationErrorHandler.
func Chain(handlers ...messagebus.ErrorHandler) messagebus.ErrorHandler {
	return &chainHandler{handlers: handlers}
}

type chainHandler struct {
	handlers []messagebus.ErrorHandler
}

// Handle implements messagebus.ErrorHandler, invoking every wrapped
// handler in order. Each handler runs under its own recover, so a panic
// from one handler does not prevent the rest from running.
func (c *chainHandler) Handle(ctx messagebus.ErrorContext) {
	for _, h := range c.handlers {
		c.invokeOne(h, ctx)
	}
}

func (c *chainHandler) invokeOne(h messagebus.ErrorHandler, ctx messagebus.ErrorContext) {
	defer func() {
		recover()
	}()
	h.Handle(ctx)
}
