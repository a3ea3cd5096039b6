package validation

import (
	"context"
	"errors"
	"fmt"

	"github.com/Breeze/breeze.sharp-sub000/entity"
	"github.com/Breeze/breeze.sharp-sub000/graph"
)

// Rule decision sentinel errors. Use errors.Is to check for them.
var (
	// Accept ends the evaluation of a policy. Errors recorded by the
	// previous rules are kept.
	Accept = errors.New("breeze/validation: accept rule")

	// Reject marks the entity invalid. Evaluation continues with the next
	// rule.
	Reject = errors.New("breeze/validation: reject rule")

	// Skip lets the next rule decide.
	Skip = errors.New("breeze/validation: skip rule")
)

// Acceptf returns a formatted wrapped Accept decision.
func Acceptf(format string, a ...any) error {
	return fmt.Errorf(format+": %w", append(a, Accept)...)
}

// Rejectf returns a formatted wrapped Reject decision.
func Rejectf(format string, a ...any) error {
	return fmt.Errorf(format+": %w", append(a, Reject)...)
}

// Skipf returns a formatted wrapped Skip decision.
func Skipf(format string, a ...any) error {
	return fmt.Errorf(format+": %w", append(a, Skip)...)
}

// Rule decides whether an entity is valid.
type Rule interface {
	EvalEntity(context.Context, *entity.Entity) error
}

// RuleFunc type is an adapter which allows the use of ordinary functions
// as rules.
type RuleFunc func(context.Context, *entity.Entity) error

// EvalEntity returns f(ctx, e).
func (f RuleFunc) EvalEntity(ctx context.Context, e *entity.Entity) error {
	return f(ctx, e)
}

// AlwaysAcceptRule returns a rule that always accepts.
func AlwaysAcceptRule() Rule {
	return fixedDecision{Accept}
}

// AlwaysRejectRule returns a rule that always rejects.
func AlwaysRejectRule() Rule {
	return fixedDecision{Reject}
}

// ContextRule creates a rule from a context evaluation function.
func ContextRule(eval func(context.Context) error) Rule {
	return RuleFunc(func(ctx context.Context, _ *entity.Entity) error {
		return eval(ctx)
	})
}

// Policy combines rules into a single rule.
type Policy []Rule

// EvalEntity evaluates the rules in order and returns the errors they
// reported, joined.
func (p Policy) EvalEntity(ctx context.Context, e *entity.Entity) error {
	var errs []error
	for _, rule := range p {
		switch decision := rule.EvalEntity(ctx, e); {
		case decision == nil || errors.Is(decision, Skip):
		case errors.Is(decision, Accept):
			return errors.Join(errs...)
		default:
			errs = append(errs, decision)
		}
	}
	return errors.Join(errs...)
}

// Policies maps entity type names to their policy. It implements
// entity.Validator.
type Policies map[string]Policy

var _ entity.Validator = Policies(nil)

// Validate evaluates the policies of the type of e and of its base types,
// base first. An Accept from one policy does not stop the policies of the
// subtypes.
func (ps Policies) Validate(ctx context.Context, e *entity.Entity) error {
	if decision, ok := DecisionFromContext(ctx); ok {
		return decision
	}
	var errs []error
	for _, t := range hierarchy(e.Type()) {
		if p, ok := ps[t.Name]; ok {
			if err := p.EvalEntity(ctx, e); err != nil {
				errs = append(errs, err)
			}
		}
	}
	return errors.Join(errs...)
}

// hierarchy returns t and its base types, root first.
func hierarchy(t *graph.Type) []*graph.Type {
	var ts []*graph.Type
	for c := t; c != nil; c = c.Base {
		ts = append([]*graph.Type{c}, ts...)
	}
	return ts
}

type decisionCtxKey struct{}

// DecisionContext creates a new context from the given parent context with
// a validation decision attached to it.
func DecisionContext(parent context.Context, decision error) context.Context {
	if decision == nil || errors.Is(decision, Skip) {
		return parent
	}
	return context.WithValue(parent, decisionCtxKey{}, decision)
}

// DecisionFromContext retrieves the validation decision from the context.
func DecisionFromContext(ctx context.Context) (error, bool) {
	decision, ok := ctx.Value(decisionCtxKey{}).(error)
	if ok && errors.Is(decision, Accept) {
		decision = nil
	}
	return decision, ok
}

type fixedDecision struct {
	decision error
}

func (f fixedDecision) EvalEntity(context.Context, *entity.Entity) error {
	return f.decision
}
