package validation

import (
	"context"
	"fmt"
	"regexp"
	"slices"
	"strings"
	"unicode/utf8"

	"github.com/Breeze/breeze.sharp-sub000"
	"github.com/Breeze/breeze.sharp-sub000/entity"
	"github.com/Breeze/breeze.sharp-sub000/schema/field"
)

// Property returns a rule validating the value at path with fn. Paths of
// complex properties are dotted, e.g. "address.city". Errors returned by
// fn are reported as validation errors of the property.
func Property(path string, fn func(any) error) Rule {
	return RuleFunc(func(_ context.Context, e *entity.Entity) error {
		v, ok := value(e, path)
		if !ok {
			return breeze.NewValidationError(e.String(), path, fmt.Errorf("unknown property"))
		}
		if err := fn(v); err != nil {
			return breeze.NewValidationError(e.String(), path, err)
		}
		return nil
	})
}

// Required returns a rule rejecting entities whose properties at paths
// are nil or zero.
func Required(paths ...string) Rule {
	rules := make(Policy, len(paths))
	for i, path := range paths {
		rules[i] = Property(path, func(v any) error {
			if field.IsZero(v) {
				return fmt.Errorf("%s is required", path)
			}
			return nil
		})
	}
	return rules
}

// MaxLength returns a rule rejecting strings longer than n runes. Nil
// values pass.
func MaxLength(path string, n int) Rule {
	return Property(path, func(v any) error {
		s, ok := v.(string)
		if !ok || utf8.RuneCountInString(s) <= n {
			return nil
		}
		return fmt.Errorf("%s is longer than %d characters", path, n)
	})
}

// Range returns a rule rejecting numbers outside [lo, hi]. Nil values
// pass.
func Range(path string, lo, hi float64) Rule {
	return Property(path, func(v any) error {
		if v == nil {
			return nil
		}
		f, err := field.TypeFloat64.Coerce(v)
		if err != nil {
			return fmt.Errorf("%s is not a number", path)
		}
		if x := f.(float64); x < lo || x > hi {
			return fmt.Errorf("%s must be between %v and %v", path, lo, hi)
		}
		return nil
	})
}

// Match returns a rule rejecting strings that do not match re. Nil and
// empty values pass.
func Match(path string, re *regexp.Regexp) Rule {
	return Property(path, func(v any) error {
		s, _ := v.(string)
		if s == "" || re.MatchString(s) {
			return nil
		}
		return fmt.Errorf("%s does not match %s", path, re)
	})
}

// OnStates evaluates rule only for entities in one of the given states.
func OnStates(rule Rule, states ...breeze.EntityState) Rule {
	return RuleFunc(func(ctx context.Context, e *entity.Entity) error {
		if slices.Contains(states, e.State()) {
			return rule.EvalEntity(ctx, e)
		}
		return Skip
	})
}

// AcceptIfDeleted returns a rule accepting deleted entities, which are
// not sent as values to the store.
func AcceptIfDeleted() Rule {
	return RuleFunc(func(_ context.Context, e *entity.Entity) error {
		if e.State() == breeze.Deleted {
			return Accept
		}
		return Skip
	})
}

// value returns the value at a dotted path of e.
func value(e *entity.Entity, path string) (any, bool) {
	name, rest, nested := strings.Cut(path, ".")
	if _, ok := e.Type().Property(name); !ok {
		return nil, false
	}
	if !nested {
		return e.Get(name), true
	}
	co := e.Complex(name)
	for co != nil {
		name, rest, nested = strings.Cut(rest, ".")
		if _, ok := co.Type().Property(name); !ok {
			return nil, false
		}
		if !nested {
			return co.Get(name), true
		}
		co, _ = co.Get(name).(*entity.ComplexObject)
	}
	return nil, false
}
