package parse

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/tasksync/internal/checklist"
)

var fetched = time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

func TestPlanStepTwoPendingItems(t *testing.T) {
	res, err := ParseByType(checklist.SourcePlanStep, "- [ ] write tests\n- [ ] write docs", fetched)
	require.NoError(t, err)

	require.Len(t, res.Items, 2)
	assert.Equal(t, "write tests", res.Items[0].Title)
	assert.Equal(t, "write docs", res.Items[1].Title)
	for _, it := range res.Items {
		assert.Equal(t, checklist.StatusPending, it.Status)
		assert.Equal(t, fetched, it.Updated, "no per-item timestamp: fetch time is used")
	}
	assert.Equal(t, "step-1", res.Items[0].ID)
	assert.Equal(t, "step-2", res.Items[1].ID)
	assert.False(t, res.StableIDs)
	assert.Empty(t, res.Unparsed)
}

func TestParseRoundTripStability(t *testing.T) {
	content := "# Plan\n\n- [x] a\n- [ ] b\n  - [-] nested c\n"
	for _, st := range checklist.SourceTypes {
		t.Run(string(st), func(t *testing.T) {
			r1, err := ParseByType(st, content, fetched)
			require.NoError(t, err)
			r2, err := ParseByType(st, content, fetched)
			require.NoError(t, err)
			assert.Equal(t, r1.Items, r2.Items)
			require.Len(t, r1.Items, 3)
		})
	}
}

func TestCheckboxMarkers(t *testing.T) {
	content := "- [ ] one\n* [x] two\n+ [X] three\n1. [-] four\n2) [~] five\n- [/] six"
	res, err := ParseByType(checklist.SourceGitHubIssue, content, fetched)
	require.NoError(t, err)

	want := []checklist.Status{
		checklist.StatusPending,
		checklist.StatusCompleted,
		checklist.StatusCompleted,
		checklist.StatusInProgress,
		checklist.StatusInProgress,
		checklist.StatusInProgress,
	}
	require.Len(t, res.Items, len(want))
	for i, st := range want {
		assert.Equal(t, st, res.Items[i].Status, res.Items[i].Title)
		assert.Equal(t, "gh-"+string(rune('1'+i)), res.Items[i].ID)
	}
}

func TestEmptyContentYieldsEmptyList(t *testing.T) {
	for _, st := range checklist.SourceTypes {
		t.Run(string(st), func(t *testing.T) {
			res, err := ParseByType(st, "", fetched)
			require.NoError(t, err)
			require.NotNil(t, res.Items)
			assert.Empty(t, res.Items)
		})
	}

	res, err := ParseByType(checklist.SourceGitHubIssue, "Just a description.\n\n- a plain bullet\n- [a link](https://example.com)", fetched)
	require.NoError(t, err)
	assert.Empty(t, res.Items)
	assert.Empty(t, res.Unparsed, "links and plain bullets are not task-like")
}

func TestMalformedLineIsSkipped(t *testing.T) {
	content := "- [ ] good one\n- [?] bad marker\n- []\n- [ ]\n- [x] good two"
	res, err := ParseByType(checklist.SourcePlanStep, content, fetched)
	require.NoError(t, err)

	require.Len(t, res.Items, 2)
	assert.Equal(t, "good one", res.Items[0].Title)
	assert.Equal(t, "good two", res.Items[1].Title)
	assert.Equal(t, "step-2", res.Items[1].ID, "ids count recognized tasks only")

	require.Len(t, res.Unparsed, 3)
	assert.Equal(t, 2, res.Unparsed[0].Line)
	assert.Contains(t, res.Unparsed[0].Reason, "unknown checkbox marker")
	assert.Equal(t, "malformed checkbox", res.Unparsed[1].Reason)
	assert.Equal(t, "empty task title", res.Unparsed[2].Reason)
}

func TestAllLinesMalformedIsParseError(t *testing.T) {
	_, err := ParseByType(checklist.SourceGitHubIssue, "- [?] nope\n- [!] also nope", fetched)
	require.Error(t, err)
	assert.True(t, IsParseError(err))

	var pe *ParseError
	require.ErrorAs(t, err, &pe)
	assert.Equal(t, checklist.SourceGitHubIssue, pe.SourceType)
	assert.Equal(t, 1, pe.Line)
}

func TestInvalidUTF8IsParseError(t *testing.T) {
	for _, st := range checklist.SourceTypes {
		_, err := ParseByType(st, "- [ ] ok\n\xff\xfe", fetched)
		require.Error(t, err, st)
		assert.True(t, IsParseError(err), st)
	}
}

func TestFencedCodeBlocksIgnored(t *testing.T) {
	content := "- [ ] real\n```md\n- [ ] example in code\n```\n~~~\n- [x] another example\n~~~\n- [x] also real"
	res, err := ParseByType(checklist.SourceGitHubIssue, content, fetched)
	require.NoError(t, err)
	require.Len(t, res.Items, 2)
	assert.Equal(t, "real", res.Items[0].Title)
	assert.Equal(t, "also real", res.Items[1].Title)
}

func TestTitleWhitespaceNormalized(t *testing.T) {
	res, err := ParseByType(checklist.SourcePlanStep, "-   [ ]   Step 1:   set up\tCI  \r\n", fetched)
	require.NoError(t, err)
	require.Len(t, res.Items, 1)
	assert.Equal(t, "Step 1: set up CI", res.Items[0].Title)
}

func TestCanonicalizerUnknownType(t *testing.T) {
	c := &Canonicalizer{parsers: map[checklist.SourceType]Parser{}}
	_, err := c.ParseByType(checklist.SourcePlanStep, "- [ ] a", fetched)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "no parser registered")
}

type stubParser struct{}

func (stubParser) SourceType() checklist.SourceType { return checklist.SourcePlanStep }

func (stubParser) Parse(content string, fetchedAt time.Time) (*ParseResult, error) {
	return &ParseResult{Items: []checklist.ChecklistItem{{ID: "only", Title: content, Status: checklist.StatusPending, Updated: fetchedAt}}}, nil
}

func TestCanonicalizerRegisterReplaces(t *testing.T) {
	c := NewCanonicalizer()
	c.Register(stubParser{})

	res, err := c.ParseByType(checklist.SourcePlanStep, "anything", fetched)
	require.NoError(t, err)
	require.Len(t, res.Items, 1)
	assert.Equal(t, "only", res.Items[0].ID)
	assert.Equal(t, checklist.SourcePlanStep, res.Items[0].IDSource)
}

func TestItemsCarryIDSource(t *testing.T) {
	tests := []struct {
		t       checklist.SourceType
		content string
	}{
		{checklist.SourceGitHubIssue, "- [ ] a"},
		{checklist.SourcePlanStep, "- [ ] a"},
		{checklist.SourceOpenSpecChange, "- [ ] 1.1 a"},
		{checklist.SourceClaudeTask, `[{"id": "1", "subject": "a", "status": "pending"}]`},
	}
	for _, tt := range tests {
		t.Run(string(tt.t), func(t *testing.T) {
			res, err := ParseByType(tt.t, tt.content, fetched)
			require.NoError(t, err)
			require.Len(t, res.Items, 1)
			assert.Equal(t, tt.t, res.Items[0].IDSource)
		})
	}
}
