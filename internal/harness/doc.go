// Package harness runs reconciliation scenarios end to end.
//
// A scenario is a YAML file listing registry operations in order. Each
// step runs as its own load-mutate-save transaction against a registry
// store, the way separate CLI invocations would:
//
//	name: cross_source_merge
//	description: "Plan edits merge into the issue checklist"
//	steps:
//	  - op: reconcile
//	    type: github_issue
//	    id: org/repo#42
//	    content: |
//	      - [ ] a
//	    expect: { drift: true, added: 1 }
//	  - op: link
//	    type: github_issue
//	    id: org/repo#42
//	    links: { plan_step: docs/plan.md }
//	assertions:
//	  - type: items
//	    artifact: plan_step:docs/plan.md
//	    items:
//	      - { title: a, status: pending }
//
// # Steps
//
//   - reconcile: merge content for type/id (expect: drift, added, removed, status_changes)
//   - link: link the links map to type/id
//   - unlink: clear type/id from its entry (expect: unlinked)
//   - drift: check the contents map against type/id's entry (expect: drifted)
//   - state: read the merged checklist
//
// Any step may expect an error code instead (expect: { error: LINK_CONFLICT }).
//
// # Assertions
//
//   - items: the merged checklist of an artifact's entry, in order
//   - linked: the artifacts sharing an entry with an artifact
//   - entries: the number of registry entries
//
// # Deterministic Testing
//
// Every run uses a DeterministicClock starting at testutil.DefaultEpoch
// and advancing a minute per reconcile, and sequential entry ids
// (entry-1, entry-2, ...). The step trace plus the final registry are
// serialized as canonical JSON and compared against
// testdata/golden/<name>.golden.
package harness
