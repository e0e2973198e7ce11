// Package describe reflects listener values into the HandlerDescriptor
// set the messagebus core indexes, the Go-idiomatic substitute for the
// annotation scanning carved out of the core by spec §6.
package describe

import (
	"reflect"
	"strings"
	"sync"

	"github.com/ori346/MessageBus/pkg/messagebus"
	"github.com/ori346/MessageBus/pkg/messagebus/invoke"
)

// HandlerOptions carries the per-handler configuration a listener can opt
// into via an optional MessageBusOptions method, substituting for the
// annotation attributes of spec §6 (struct tags cannot attach to methods).
type HandlerOptions struct {
	// AcceptsSubtypes defaults to true when unset via MessageBusOptions.
	AcceptsSubtypes *bool
	// Enabled defaults to true when unset via MessageBusOptions.
	Enabled *bool
	// Synchronized defaults to false when unset via MessageBusOptions.
	Synchronized bool
}

// OptionsProvider is the optional interface a listener may implement to
// configure its handlers beyond the naming-convention defaults.
type OptionsProvider interface {
	MessageBusOptions() map[string]HandlerOptions
}

const handlerPrefix = "Handle"

// Scanner is a messagebus.Describer that scans a listener's method set for
// exported methods named Handle<Name>(args...), builds one
// HandlerDescriptor per match, and caches the result by the listener's
// (pointer-indirected) type.
type Scanner struct {
	cache sync.Map // reflect.Type -> []*messagebus.HandlerDescriptor
}

// NewScanner creates an empty, ready-to-use Scanner.
func NewScanner() *Scanner {
	return &Scanner{}
}

// Describe implements messagebus.Describer.
func (s *Scanner) Describe(listener any) ([]*messagebus.HandlerDescriptor, error) {
	rv := reflect.ValueOf(listener)
	rt := rv.Type()
	cacheKey := rt
	if cacheKey.Kind() == reflect.Ptr {
		cacheKey = cacheKey.Elem()
	}

	if cached, ok := s.cache.Load(cacheKey); ok {
		return cached.([]*messagebus.HandlerDescriptor), nil
	}

	descriptors := s.scan(rt, cacheKey, listener)
	actual, _ := s.cache.LoadOrStore(cacheKey, descriptors)
	return actual.([]*messagebus.HandlerDescriptor), nil
}

func (s *Scanner) scan(methodHolderType, declaringType reflect.Type, listener any) []*messagebus.HandlerDescriptor {
	options := map[string]HandlerOptions{}
	if provider, ok := listener.(OptionsProvider); ok {
		options = provider.MessageBusOptions()
	}

	var descriptors []*messagebus.HandlerDescriptor
	for i := 0; i < methodHolderType.NumMethod(); i++ {
		method := methodHolderType.Method(i)
		if !isHandlerMethod(method) {
			continue
		}

		messageTypes := messageTypesOf(method)
		if len(messageTypes) == 0 {
			continue
		}

		opts := options[method.Name]
		acceptsSubtypes := true
		if opts.AcceptsSubtypes != nil {
			acceptsSubtypes = *opts.AcceptsSubtypes
		}
		enabled := true
		if opts.Enabled != nil {
			enabled = *opts.Enabled
		}
		if !enabled {
			continue
		}

		descriptor := &messagebus.HandlerDescriptor{
			DeclaringType:   declaringType,
			HandlerID:       method.Name,
			MessageTypes:    messageTypes,
			AcceptsSubtypes: acceptsSubtypes,
			Enabled:         enabled,
			Synchronized:    opts.Synchronized,
			IsVararg:        len(messageTypes) == 1 && messageTypes[0].Kind() == reflect.Slice,
		}

		var inv messagebus.Invoker = invoke.NewCachedInvoker(method)
		if descriptor.Synchronized {
			inv = invoke.NewSynchronizedInvoker(inv)
		}
		descriptor.Invoker = inv

		descriptors = append(descriptors, descriptor)
	}
	return descriptors
}

func isHandlerMethod(method reflect.Method) bool {
	if !strings.HasPrefix(method.Name, handlerPrefix) || method.Name == handlerPrefix {
		return false
	}
	return method.PkgPath == ""
}

// messageTypesOf returns the declared message-type signature of a handler
// method, skipping the implicit receiver argument at index 0.
func messageTypesOf(method reflect.Method) []reflect.Type {
	numIn := method.Func.Type().NumIn()
	if numIn < 2 {
		return nil
	}
	types := make([]reflect.Type, 0, numIn-1)
	for i := 1; i < numIn; i++ {
		types = append(types, method.Func.Type().In(i))
	}
	return types
}
