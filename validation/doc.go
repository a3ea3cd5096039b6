// Package validation provides rule chains validating cached entities.
//
// A Policy is a list of rules evaluated in order. Each rule returns one of
// the decisions below, or a validation error:
//
//   - Accept: the entity is valid, the remaining rules are not evaluated
//   - Skip (or nil): the rule abstains and evaluation continues
//   - Reject or any other error: the error is recorded and evaluation
//     continues, so that every problem of the entity is reported at once
//
// Policies maps entity type names to policies and implements
// entity.Validator:
//
//	m, err := entity.NewManager(g, entity.WithValidator(validation.Policies{
//	    "Customer": {
//	        validation.Required("companyName"),
//	        validation.MaxLength("address.postalCode", 10),
//	    },
//	    "Order": {
//	        validation.OnStates(validation.Range("freight", 0, 1000), breeze.Added),
//	    },
//	}))
//
// Policies of base types apply to their subtypes, base first.
//
// A decision attached to a context with DecisionContext short-circuits
// every policy evaluated with that context.
package validation
