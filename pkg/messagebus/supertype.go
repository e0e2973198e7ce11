package messagebus

import (
	"reflect"
	"strings"
	"sync"
)

// SuperTypeResolver implements superSubs(T) and its multi-arg generalization:
// subscriptions registered under a strict supertype of the query type(s)
// that declare acceptsSubtypes. Results are memoised; the cache is cleared
// at the start of every subscribe/unsubscribe and refilled lazily by
// readers racing under the shared lock, which is safe because the
// computation is pure.
type SuperTypeResolver struct {
	index     *SubscriberIndex
	hierarchy *TypeHierarchyCache

	mu         sync.Mutex
	cache      map[reflect.Type][]*Subscription
	multiCache map[string][]*Subscription
}

// NewSuperTypeResolver creates a resolver over the given index and
// hierarchy cache.
func NewSuperTypeResolver(index *SubscriberIndex, hierarchy *TypeHierarchyCache) *SuperTypeResolver {
	return &SuperTypeResolver{
		index:      index,
		hierarchy:  hierarchy,
		cache:      make(map[reflect.Type][]*Subscription),
		multiCache: make(map[string][]*Subscription),
	}
}

// Invalidate clears both memo tables. Called by the manager at the start of
// every subscribe/unsubscribe, before the index mutation.
func (r *SuperTypeResolver) Invalidate() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.cache = make(map[reflect.Type][]*Subscription)
	r.multiCache = make(map[string][]*Subscription)
}

// Super returns, in deterministic order, every Subscription registered
// under a strict supertype of t that accepts subtypes.
func (r *SuperTypeResolver) Super(t reflect.Type) []*Subscription {
	r.mu.Lock()
	if cached, ok := r.cache[t]; ok {
		r.mu.Unlock()
		return cached
	}
	r.mu.Unlock()

	seen := make(map[*Subscription]bool)
	var out []*Subscription
	for _, u := range r.hierarchy.Supertypes(t) {
		for _, sub := range r.index.ExactSingle(u) {
			if !sub.Descriptor().AcceptsSubtypes || seen[sub] {
				continue
			}
			seen[sub] = true
			out = append(out, sub)
		}
	}

	r.mu.Lock()
	r.cache[t] = out
	r.mu.Unlock()
	return out
}

// SuperMulti generalizes Super to arbitrary arity N: it walks the
// cross-product of {Ti} union Supertypes(Ti) over every position, excludes
// the all-exact tuple (already covered by the Exact tier), and includes
// only Subscriptions whose handler accepts subtypes. Results are
// deduplicated within the single query.
func (r *SuperTypeResolver) SuperMulti(types []reflect.Type) []*Subscription {
	key := multiKey(types)

	r.mu.Lock()
	if cached, ok := r.multiCache[key]; ok {
		r.mu.Unlock()
		return cached
	}
	r.mu.Unlock()

	candidateSets := make([][]reflect.Type, len(types))
	for i, t := range types {
		set := []reflect.Type{t}
		set = append(set, r.hierarchy.Supertypes(t)...)
		candidateSets[i] = set
	}

	seen := make(map[*Subscription]bool)
	var out []*Subscription
	tuple := make([]reflect.Type, len(types))
	var walk func(pos int, allExact bool)
	walk = func(pos int, allExact bool) {
		if pos == len(types) {
			if allExact {
				// Covered by the Exact tier; skip to avoid double-counting.
				return
			}
			for _, sub := range r.index.ExactMulti(tuple...) {
				if !sub.Descriptor().AcceptsSubtypes || seen[sub] {
					continue
				}
				seen[sub] = true
				out = append(out, sub)
			}
			return
		}
		for i, candidate := range candidateSets[pos] {
			tuple[pos] = candidate
			walk(pos+1, allExact && i == 0)
		}
	}
	walk(0, true)

	r.mu.Lock()
	r.multiCache[key] = out
	r.mu.Unlock()
	return out
}

func multiKey(types []reflect.Type) string {
	parts := make([]string, len(types))
	for i, t := range types {
		parts[i] = t.PkgPath() + "." + t.Name()
		if parts[i] == "." {
			parts[i] = t.String()
		}
	}
	return strings.Join(parts, ",")
}
