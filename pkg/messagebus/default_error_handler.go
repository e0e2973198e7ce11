package messagebus

import (
	"sync"

	"go.uber.org/zap"

	"github.com/ori346/MessageBus/pkg/logging"
)

// defaultErrorHandler is installed by NewSubscriptionManager when the
// caller passes a nil ErrorHandler, per spec §7's requirement that a
// default reporter be in place rather than silently dropping invocation
// errors. It logs a one-time notice on first use so an operator who never
// configured a handler still sees why errors are appearing unattributed.
//
// This type, not errorhandler.ConsoleHandler, is the one the core installs
// by default: errorhandler imports messagebus for the ErrorHandler and
// ErrorContext types, so messagebus cannot import errorhandler back
// without a cycle. Both log the same way through pkg/logging/zap; callers
// who want Chain or a custom sink still construct and pass an
// errorhandler.ConsoleHandler explicitly.
type defaultErrorHandler struct {
	logger *zap.Logger
	once   sync.Once
}

func newDefaultErrorHandler() *defaultErrorHandler {
	logger, err := logging.NewDefaultLogger(logging.ComponentManager)
	if err != nil {
		return &defaultErrorHandler{logger: zap.NewNop()}
	}
	return &defaultErrorHandler{logger: logger.Logger}
}

func (h *defaultErrorHandler) Handle(ctx ErrorContext) {
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
