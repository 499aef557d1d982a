// Package engine reconciles checklists across linked artifacts.
//
// An Engine wraps one in-memory registry. Each operation reads or mutates
// that registry; persisting it is the caller's job, normally through Run,
// which brackets a batch of operations in a registry.Transact
// load-mutate-save cycle.
//
// Reconciling an artifact hashes its raw content and compares the hash
// with the one recorded at the last reconcile. Unchanged content returns
// immediately without touching the registry. Otherwise the content is
// parsed, matched against the entry's merged items and merged with
// newest-wins status resolution; items missing from the newest parse are
// dropped.
//
// Thread-safety model:
//   - All Engine methods are safe from any goroutine; a single mutex
//     serializes access to the registry.
//   - The registry passed to New must not be touched by the caller while
//     the Engine is in use.
package engine
