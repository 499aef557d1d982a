// Package parse turns raw artifact content into canonical checklist items.
//
// There is one Parser per checklist.SourceType, selected through a
// Canonicalizer. Parsers share a checkbox grammar (see checkbox.go):
//
//   - [ ] pending task
//   - [x] completed task
//   - [-] in-progress task        (also [~] and [/])
//
// Parsers are pure: the same content and fetch time always produce the same
// items with the same ids in the same order. Content with no tasks yields
// an empty list. A task-like line that cannot be understood is skipped and
// reported in ParseResult.Unparsed; content that cannot be parsed at all
// yields a *ParseError.
package parse
