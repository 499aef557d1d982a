package parse

import (
	"fmt"
	"time"
	"unicode/utf8"

	"github.com/roach88/tasksync/internal/checklist"
)

// ParseResult is the outcome of parsing one artifact.
type ParseResult struct {
	Items    []checklist.ChecklistItem
	Unparsed []checklist.UnparsedLine

	// StableIDs is true when every item id is native to the source (an
	// OpenSpec task number, a task record id) and so survives reordering.
	// Position-derived ids are not stable.
	StableIDs bool
}

// Parser understands one source type's native task representation.
type Parser interface {
	SourceType() checklist.SourceType
	Parse(content string, fetchedAt time.Time) (*ParseResult, error)
}

// Canonicalizer dispatches content to the parser for its source type.
type Canonicalizer struct {
	parsers map[checklist.SourceType]Parser
}

// NewCanonicalizer returns a Canonicalizer with the built-in parser for
// every source type registered.
func NewCanonicalizer() *Canonicalizer {
	c := &Canonicalizer{parsers: make(map[checklist.SourceType]Parser)}
	c.Register(GitHubIssueParser{})
	c.Register(ClaudeTaskParser{})
	c.Register(OpenSpecParser{})
	c.Register(PlanStepParser{})
	return c
}

// Register installs p for its source type, replacing any previous parser.
func (c *Canonicalizer) Register(p Parser) {
	c.parsers[p.SourceType()] = p
}

// Parser returns the parser registered for t.
func (c *Canonicalizer) Parser(t checklist.SourceType) (Parser, error) {
	p, ok := c.parsers[t]
	if !ok {
		return nil, fmt.Errorf("no parser registered for source type %q", t)
	}
	return p, nil
}

// ParseByType parses content with the parser registered for t.
func (c *Canonicalizer) ParseByType(t checklist.SourceType, content string, fetchedAt time.Time) (*ParseResult, error) {
	p, err := c.Parser(t)
	if err != nil {
		return nil, err
	}
	res, err := p.Parse(content, fetchedAt)
	if err != nil {
		return nil, err
	}
	for i := range res.Items {
		if res.Items[i].IDSource == "" {
			res.Items[i].IDSource = t
		}
	}
	return res, nil
}

var defaultCanonicalizer = NewCanonicalizer()

// ParseByType parses content with the built-in parser for t.
func ParseByType(t checklist.SourceType, content string, fetchedAt time.Time) (*ParseResult, error) {
	return defaultCanonicalizer.ParseByType(t, content, fetchedAt)
}

// checkUTF8 rejects content that is not valid UTF-8.
func checkUTF8(t checklist.SourceType, content string) error {
	if utf8.ValidString(content) {
		return nil
	}
	return &ParseError{SourceType: t, Reason: "content is not valid UTF-8"}
}

// finish applies the shared post-conditions: a non-nil item list with
// every id attributed to t, and a ParseError when every task-like line
// was malformed.
func finish(t checklist.SourceType, res *ParseResult) (*ParseResult, error) {
	if res.Items == nil {
		res.Items = []checklist.ChecklistItem{}
	}
	for i := range res.Items {
		res.Items[i].IDSource = t
	}
	if len(res.Items) == 0 && len(res.Unparsed) > 0 {
		first := res.Unparsed[0]
		return nil, &ParseError{
			SourceType: t,
			Line:       first.Line,
			Reason:     fmt.Sprintf("no parseable tasks (%d malformed): %s", len(res.Unparsed), first.Reason),
		}
	}
	return res, nil
}

// uniqueIDs suffixes repeated ids ("1.1", "1.1#2") so ids stay unique
// within a single parse.
func uniqueIDs(items []checklist.ChecklistItem) {
	seen := make(map[string]int, len(items))
	for i := range items {
		id := items[i].ID
		seen[id]++
		if n := seen[id]; n > 1 {
			items[i].ID = fmt.Sprintf("%s#%d", id, n)
		}
	}
}
