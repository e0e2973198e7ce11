package messagebus

import (
	"reflect"
	"sync"
)

// VarArgResolver implements varArgSubs(T)/varArgSuperSubs(T) and their
// multi-arg generalizations, consulted only when the index has observed at
// least one handler declared over a slice type. The single-arg results of
// Exact and Super (and so ExactN, which delegates to Exact) are memoised
// with the same invalidate-on-write, refill-lazily-on-read lifecycle as
// SuperTypeResolver; SuperN recomputes its result on every call.
type VarArgResolver struct {
	index     *SubscriberIndex
	hierarchy *TypeHierarchyCache

	mu         sync.Mutex
	exactCache map[reflect.Type][]*Subscription
	superCache map[reflect.Type][]*Subscription
}

// NewVarArgResolver creates a resolver over the given index and hierarchy
// cache.
func NewVarArgResolver(index *SubscriberIndex, hierarchy *TypeHierarchyCache) *VarArgResolver {
	return &VarArgResolver{
		index:      index,
		hierarchy:  hierarchy,
		exactCache: make(map[reflect.Type][]*Subscription),
		superCache: make(map[reflect.Type][]*Subscription),
	}
}

// Invalidate clears both memo tables.
func (r *VarArgResolver) Invalidate() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.exactCache = make(map[reflect.Type][]*Subscription)
	r.superCache = make(map[reflect.Type][]*Subscription)
}

// Exact returns subscriptions declared as exactly arrayOf(t).
func (r *VarArgResolver) Exact(t reflect.Type) []*Subscription {
	if !r.index.VarArgPossible() {
		return nil
	}
	r.mu.Lock()
	if cached, ok := r.exactCache[t]; ok {
		r.mu.Unlock()
		return cached
	}
	r.mu.Unlock()

	out := r.index.ExactSingle(r.hierarchy.ArrayOf(t))

	r.mu.Lock()
	r.exactCache[t] = out
	r.mu.Unlock()
	return out
}

// Super returns subscriptions declared as arrayOf(u) for some strict
// supertype u of t, filtered to acceptsSubtypes.
func (r *VarArgResolver) Super(t reflect.Type) []*Subscription {
	if !r.index.VarArgPossible() {
		return nil
	}
	r.mu.Lock()
	if cached, ok := r.superCache[t]; ok {
		r.mu.Unlock()
		return cached
	}
	r.mu.Unlock()

	var out []*Subscription
	for _, u := range r.hierarchy.Supertypes(t) {
		for _, sub := range r.index.ExactSingle(r.hierarchy.ArrayOf(u)) {
			if sub.Descriptor().AcceptsSubtypes {
				out = append(out, sub)
			}
		}
	}

	r.mu.Lock()
	r.superCache[t] = out
	r.mu.Unlock()
	return out
}

// ExactN fires the var-arg fan-out for an N-ary publish only when every
// argument class is identical, producing an array of that common class.
func (r *VarArgResolver) ExactN(types []reflect.Type) []*Subscription {
	if !r.index.VarArgPossible() || len(types) == 0 {
		return nil
	}
	first := types[0]
	for _, t := range types[1:] {
		if t != first {
			return nil
		}
	}
	return r.Exact(first)
}

// SuperN fires the var-arg-super fan-out for an N-ary publish by computing
// the common supertype set across all argument classes — including each
// argument's own runtime class, reflexively, since any one of the
// arguments may itself be the common supertype of the tuple (e.g.
// publish(a1, b1) where b1's class embeds a1's: a1's own class is the
// component type, not a strict supertype of it) — in the order dictated
// by the first argument's reflexive candidate list, and consulting
// arrayOf(u) subscriptions for each common u. It excludes the case where
// every type is already identical, since that is covered by ExactN.
func (r *VarArgResolver) SuperN(types []reflect.Type) []*Subscription {
	if !r.index.VarArgPossible() || len(types) == 0 {
		return nil
	}
	allEqual := true
	for _, t := range types[1:] {
		if t != types[0] {
			allEqual = false
			break
		}
	}
	if allEqual {
		return nil
	}

	var out []*Subscription
	for _, u := range r.commonSupertypes(types) {
		for _, sub := range r.index.ExactSingle(r.hierarchy.ArrayOf(u)) {
			if sub.Descriptor().AcceptsSubtypes {
				out = append(out, sub)
			}
		}
	}
	return out
}

// commonSupertypes returns every type U such that each of types is either
// U itself or a strict subtype of U, enumerated from the first argument's
// reflexive candidate set ({types[0]} union Supertypes(types[0])): any
// common U must be types[0] or one of its supertypes, since types[0] is
// itself required to be U-or-a-subtype-of-U.
func (r *VarArgResolver) commonSupertypes(types []reflect.Type) []reflect.Type {
	candidates := append([]reflect.Type{types[0]}, r.hierarchy.Supertypes(types[0])...)
	var common []reflect.Type
	for _, candidate := range candidates {
		if r.isSubtypeOrEqualToAll(candidate, types[1:]) {
			common = append(common, candidate)
		}
	}
	return common
}

func (r *VarArgResolver) isSubtypeOrEqualToAll(candidate reflect.Type, types []reflect.Type) bool {
	for _, t := range types {
		if t == candidate {
			continue
		}
		if !containsType(r.hierarchy.Supertypes(t), candidate) {
			return false
		}
	}
	return true
}

func containsType(types []reflect.Type, t reflect.Type) bool {
	for _, x := range types {
		if x == t {
			return true
		}
	}
	return false
}
