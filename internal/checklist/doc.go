// Package checklist provides the canonical data model for tasksync.
//
// This package contains the types every other package exchanges: checklist
// items, source types, sync entries and the registry aggregate, plus the
// pure functions that operate on them (content hashing, title
// normalization, canonical JSON). checklist imports nothing internal, so it
// remains the foundational layer with no circular dependencies.
//
// Key constraints:
//   - Content hashes are computed over raw content exactly as received
//   - Registry JSON uses camelCase field names (persisted shape is versioned)
//   - Every source type appears in a serialized entry, null when unlinked
//   - Item order is significant and always preserved
package checklist
