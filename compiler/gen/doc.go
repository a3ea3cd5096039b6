// Package gen generates typed wrappers for the entity and complex types of
// a graph.
//
// Every entity type becomes a struct embedding *entity.Entity with a getter
// and a setter per data property and an accessor per navigation. Complex
// types embed *entity.ComplexObject:
//
//	type Order struct{ *entity.Entity }
//
//	func (x Order) Freight() float64
//	func (x Order) SetFreight(v float64) error
//	func (x Order) Customer() Customer
//	func (x Order) SetCustomer(v Customer) error
//	func (x Order) Details() *entity.NavigationSet
//
// AsOrder converts an untyped entity, and Wrap converts any entity of the
// graph to its wrapper.
//
// # Pipeline
//
//	Go schemas or metadata documents
//	        ↓
//	   graph.Graph
//	        ↓
//	   Generator (one jennifer file per type)
//	        ↓
//	   goimports, written in parallel
//
// # Error Handling
//
//   - ConfigError: invalid options, matches ErrMissingConfig
//   - GenerationError: rendering or writing failures, matches ErrGenerationFailed
//
// Example:
//
//	g, err := gen.New(model, gen.WithTarget("./model"), gen.WithPackage("model"))
//	if err != nil {
//	    return err
//	}
//	if err := g.Generate(ctx); err != nil {
//	    if errors.Is(err, gen.ErrGenerationFailed) {
//	        // rendering or writing failed
//	    }
//	    return err
//	}
package gen
