package messagebus

import "reflect"

// PublishMode selects which matcher tiers a publish consults.
type PublishMode int

const (
	// Exact consults only the per-message index for the runtime type(s)
	// of the published arguments.
	Exact PublishMode = iota

	// ExactWithSuperTypes additionally consults the SuperTypeResolver.
	ExactWithSuperTypes

	// ExactWithSuperTypesAndVarArgs additionally consults the
	// VarArgResolver, in both its exact and super variants.
	ExactWithSuperTypesAndVarArgs
)

func (m PublishMode) String() string {
	switch m {
	case Exact:
		return "Exact"
	case ExactWithSuperTypes:
		return "ExactWithSuperTypes"
	case ExactWithSuperTypesAndVarArgs:
		return "ExactWithSuperTypesAndVarArgs"
	default:
		return "Unknown"
	}
}

// Matcher layers the three composable matching policies over C5-C7,
// dispatching in the fixed order the spec requires: exact subs, then super
// subs, then var-arg subs, then var-arg-super subs.
type Matcher struct {
	mode   PublishMode
	index  *SubscriberIndex
	super  *SuperTypeResolver
	vararg *VarArgResolver
}

// NewMatcher creates a matcher over the given tiers.
func NewMatcher(mode PublishMode, index *SubscriberIndex, super *SuperTypeResolver, vararg *VarArgResolver) *Matcher {
	return &Matcher{mode: mode, index: index, super: super, vararg: vararg}
}

// MatchResult separates the subscriptions a publish must reach by call
// shape: Exact receives the published arguments as-is (one per declared
// parameter), while Vararg must receive them bundled into a single slice
// value of the handler's declared component type (§4.7).
type MatchResult struct {
	Exact  []*Subscription
	Vararg []*Subscription
}

// MatchN returns every Subscription that should receive a publish of the
// given argument types, split by call shape, in dispatch order within each
// group, for arity 1..N.
func (m *Matcher) MatchN(types []reflect.Type) MatchResult {
	var result MatchResult

	if len(types) == 1 {
		result.Exact = append(result.Exact, m.index.ExactSingle(types[0])...)
	} else {
		result.Exact = append(result.Exact, m.index.ExactMulti(types...)...)
	}

	if m.mode == Exact {
		return result
	}

	if len(types) == 1 {
		result.Exact = append(result.Exact, m.super.Super(types[0])...)
	} else {
		result.Exact = append(result.Exact, m.super.SuperMulti(types)...)
	}

	if m.mode == ExactWithSuperTypes {
		return result
	}

	if len(types) == 1 {
		result.Vararg = append(result.Vararg, m.vararg.Exact(types[0])...)
		result.Vararg = append(result.Vararg, m.vararg.Super(types[0])...)
	} else {
		result.Vararg = append(result.Vararg, m.vararg.ExactN(types)...)
		result.Vararg = append(result.Vararg, m.vararg.SuperN(types)...)
	}

	return result
}
