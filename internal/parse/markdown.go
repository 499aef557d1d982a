package parse

import (
	"fmt"
	"time"

	"github.com/roach88/tasksync/internal/checklist"
)

// parsePositional parses checkbox markdown whose only identity is position.
// Ids are prefix + 1-based index among the recognized tasks.
func parsePositional(t checklist.SourceType, prefix, content string, fetchedAt time.Time) (*ParseResult, error) {
	if err := checkUTF8(t, content); err != nil {
		return nil, err
	}
	boxes, unparsed := scanCheckboxes(content, nil)

	res := &ParseResult{Unparsed: unparsed}
	for i, b := range boxes {
		res.Items = append(res.Items, checklist.ChecklistItem{
			ID:      fmt.Sprintf("%s-%d", prefix, i+1),
			Title:   b.Text,
			Status:  b.Status,
			Updated: fetchedAt,
		})
	}
	return finish(t, res)
}

// GitHubIssueParser reads task lists from an issue body.
type GitHubIssueParser struct{}

func (GitHubIssueParser) SourceType() checklist.SourceType { return checklist.SourceGitHubIssue }

func (GitHubIssueParser) Parse(content string, fetchedAt time.Time) (*ParseResult, error) {
	return parsePositional(checklist.SourceGitHubIssue, "gh", content, fetchedAt)
}

// PlanStepParser reads the checklist of a plan file.
type PlanStepParser struct{}

func (PlanStepParser) SourceType() checklist.SourceType { return checklist.SourcePlanStep }

func (PlanStepParser) Parse(content string, fetchedAt time.Time) (*ParseResult, error) {
	return parsePositional(checklist.SourcePlanStep, "step", content, fetchedAt)
}
