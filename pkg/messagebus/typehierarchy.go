package messagebus

import (
	"reflect"
	"sync"
)

// TypeHierarchyCache memoises, per type, its ordered supertype closure and
// its array-of-T type. Go has no single root class and cannot enumerate the
// interfaces a concrete type implements without a candidate list, so the
// cache also keeps a growing catalog of interface types observed across
// subscribed handlers and tests each concrete type against that catalog.
//
// The embedded-struct portion of a type's closure is purely structural and
// never changes, so it is memoised permanently. The interface portion
// depends on registeredInterfaces, which grows monotonically as handlers
// over new interface types subscribe; caching it would freeze a type's
// interface closure against whatever the catalog looked like the first
// time that type was queried, which makes ExactWithSuperTypes dispatch
// depend on subscribe order. Supertypes therefore recomputes the interface
// portion fresh on every call and merges it with the cached embedded
// portion, so a newly registered interface is visible to every type's
// closure on its very next query, not just types warmed afterward.
//
// The subscribe path pre-warms the embedded-portion cache for every type a
// handler declares. A publish of a runtime type not seen before computes
// its entry on the read path and stores it with LoadOrStore; the cache is a
// sync.Map, which gives safe publication without a lock on the hot path,
// and the computation is pure, so a redundant concurrent fill is benign.
type TypeHierarchyCache struct {
	embeddedSupertypes sync.Map // reflect.Type -> []reflect.Type, structural only
	arrayOf            sync.Map // reflect.Type -> reflect.Type

	mu         sync.Mutex
	interfaces []reflect.Type
}

// NewTypeHierarchyCache creates an empty cache.
func NewTypeHierarchyCache() *TypeHierarchyCache {
	return &TypeHierarchyCache{}
}

// RegisterInterface adds t to the catalog of interface types considered
// during supertype BFS. t must be an interface type; other kinds are
// ignored. The zero-method interface (any) is never registered: it is the
// root universal type and is excluded from every supertype closure.
func (c *TypeHierarchyCache) RegisterInterface(t reflect.Type) {
	if t == nil || t.Kind() != reflect.Interface || t.NumMethod() == 0 {
		return
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	for _, existing := range c.interfaces {
		if existing == t {
			return
		}
	}
	c.interfaces = append(c.interfaces, t)
}

func (c *TypeHierarchyCache) registeredInterfaces() []reflect.Type {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]reflect.Type, len(c.interfaces))
	copy(out, c.interfaces)
	return out
}

// IsArray reports whether t is a slice type. Go has no fixed-size "array of
// unknown length" concept at the reflect.Type level that matches a Java
// T[]; slices are the idiomatic analogue used throughout this package.
func (c *TypeHierarchyCache) IsArray(t reflect.Type) bool {
	return t != nil && t.Kind() == reflect.Slice
}

// ArrayOf returns (and memoises) the slice-of-t type.
func (c *TypeHierarchyCache) ArrayOf(t reflect.Type) reflect.Type {
	if v, ok := c.arrayOf.Load(t); ok {
		return v.(reflect.Type)
	}
	arr := reflect.SliceOf(t)
	c.arrayOf.Store(t, arr)
	return arr
}

// Supertypes returns the ordered, deduplicated supertype closure of t,
// excluding t itself and excluding the root universal type. For slice
// types, each entry of Supertypes(elem) is promoted to its slice form.
func (c *TypeHierarchyCache) Supertypes(t reflect.Type) []reflect.Type {
	if t == nil {
		return nil
	}
	if c.IsArray(t) {
		elemSupers := c.Supertypes(t.Elem())
		out := make([]reflect.Type, 0, len(elemSupers))
		for _, s := range elemSupers {
			out = append(out, c.ArrayOf(s))
		}
		return out
	}

	embedded := c.embeddedClosure(t)
	ifaces := c.interfaceClosure(t, embedded)
	if len(ifaces) == 0 {
		return embedded
	}

	out := make([]reflect.Type, 0, len(embedded)+len(ifaces))
	out = append(out, embedded...)
	out = append(out, ifaces...)
	return out
}

// embeddedClosure returns (and memoises) the superclass-chain analogue of
// t: its anonymous embedded struct/pointer fields, walked breadth-first,
// the way Go models "is-a" without classical inheritance. This part of the
// closure is purely structural and is therefore safe to cache forever.
func (c *TypeHierarchyCache) embeddedClosure(t reflect.Type) []reflect.Type {
	if v, ok := c.embeddedSupertypes.Load(t); ok {
		return v.([]reflect.Type)
	}
	computed := c.computeEmbeddedClosure(t)
	// Concurrent callers may race to compute the same entry; the result is
	// pure, so a redundant computation is benign. LoadOrStore keeps the
	// winner stable for every later reader.
	actual, _ := c.embeddedSupertypes.LoadOrStore(t, computed)
	return actual.([]reflect.Type)
}

func (c *TypeHierarchyCache) computeEmbeddedClosure(t reflect.Type) []reflect.Type {
	visited := map[reflect.Type]bool{t: true}
	var out []reflect.Type

	queue := []reflect.Type{t}
	for len(queue) > 0 {
		cur := queue[0]
		queue = queue[1:]
		structType := cur
		if structType.Kind() == reflect.Ptr {
			structType = structType.Elem()
		}
		if structType.Kind() != reflect.Struct {
			continue
		}
		for i := 0; i < structType.NumField(); i++ {
			field := structType.Field(i)
			if !field.Anonymous {
				continue
			}
			embedded := field.Type
			if visited[embedded] {
				continue
			}
			visited[embedded] = true
			out = append(out, embedded)
			queue = append(queue, embedded)
		}
	}
	return out
}

// interfaceClosure tests t against every currently registered interface,
// deliberately uncached: the catalog grows as handlers over new interface
// types subscribe, and a cached result would freeze t's interface closure
// against whatever the catalog looked like on t's first query.
func (c *TypeHierarchyCache) interfaceClosure(t reflect.Type, alreadyFound []reflect.Type) []reflect.Type {
	var out []reflect.Type
	for _, iface := range c.registeredInterfaces() {
		if containsType(alreadyFound, iface) {
			continue
		}
		if t.Implements(iface) || reflect.PointerTo(t).Implements(iface) {
			out = append(out, iface)
		}
	}
	return out
}
