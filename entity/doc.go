// Package entity implements the client side entity cache.
//
// A Manager caches entities of the types of a graph.Graph, tracks their
// changes and keeps related entities consistent: setting a foreign key
// updates the navigation properties on both sides, adding an entity to a
// collection updates its foreign key, and so on.
//
//	g := graph.MustNewGraph(schema.Customer{}, schema.Order{})
//	mgr, err := entity.NewManager(g, entity.WithLogger(logger))
//	if err != nil {
//	    return err
//	}
//	cust, err := mgr.CreateEntity("Customer", map[string]any{"companyName": "Acme"})
//	order, err := mgr.CreateEntity("Order", nil)
//	err = cust.Collection("orders").Add(order) // order.customerID == cust key
//
// # States
//
// Every entity is in one of five states. Created entities are Added;
// queried or attached entities are Unchanged and become Modified on the
// first write. AcceptChanges and RejectChanges return them to Unchanged,
// while Delete marks them Deleted until the deletion is saved or
// rejected.
//
// # Keys
//
// Types with generated keys receive temporary keys from a KeyGenerator
// when they are added. Saving replaces them with the keys assigned by the
// store and rewrites every foreign key that referenced them.
//
// # Concurrency
//
// A Manager is not safe for concurrent use. Callers own a manager from a
// single goroutine; only the network part of ExecuteQueries and
// FetchMetadata runs concurrently, and its results are merged on the
// caller's goroutine.
package entity
