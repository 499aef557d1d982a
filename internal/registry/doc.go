// Package registry persists the sync registry.
//
// The registry is loaded whole, mutated in memory by the engine and saved
// whole. Three backends implement Store:
//
//   - FileStore: the canonical JSON document, written atomically and
//     guarded by an advisory file lock during Transact.
//   - SQLiteStore: the same aggregate normalized into tables, with a
//     UNIQUE(source_type, artifact_id) constraint backing link uniqueness.
//   - MemoryStore: deep copies, for tests and one-shot runs.
//
// The JSON shape is described by an embedded CUE schema (schema.cue);
// ValidateJSON checks a document against it.
package registry
