package errors

import "errors"

// IsNullMessage checks if an error indicates a publish call with a nil message.
func IsNullMessage(err error) bool {
	if err == nil {
		return false
	}

	var nullMessageErr *NullMessageError
	return errors.As(err, &nullMessageErr)
}

// IsReflectionFailure checks if an error indicates listener descriptor
// construction failed.
func IsReflectionFailure(err error) bool {
	if err == nil {
		return false
	}

	var reflectionErr *ReflectionFailureError
	return errors.As(err, &reflectionErr)
}

// IsShutdown checks if an error indicates the subscription manager has
// already been shut down.
func IsShutdown(err error) bool {
	if err == nil {
		return false
	}

	var shutdownErr *ShutdownError
	return errors.As(err, &shutdownErr)
}

// IsHandlerInvocation checks if an error originated from a listener
// handler invocation.
func IsHandlerInvocation(err error) bool {
	if err == nil {
		return false
	}

	var handlerErr *HandlerInvocationError
	return errors.As(err, &handlerErr)
}

// GetErrorCode extracts the error code from an error.
func GetErrorCode(err error) string {
	if err == nil {
		return CodeOK
	}

	var customErr Error
	if errors.As(err, &customErr) {
		return customErr.Code()
	}
	return CodeInternal
}

// GetErrorMessage extracts a human-readable message from an error.
func GetErrorMessage(err error) string {
	if err == nil {
		return ""
	}

	var customErr Error
	if errors.As(err, &customErr) {
		return customErr.Message()
	}

	return err.Error()
}

// Cause returns the underlying cause of an error.
// It unwraps the error chain until it finds the root cause.
func Cause(err error) error {
	for {
		unwrapper, ok := err.(interface{ Unwrap() error })
		if !ok {
			return err
		}
		underlying := unwrapper.Unwrap()
		if underlying == nil {
			return err
		}
		err = underlying
	}
}
