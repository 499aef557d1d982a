package parse

import (
	"fmt"
	"regexp"
	"strings"
	"time"

	"github.com/roach88/tasksync/internal/checklist"
)

var (
	// heading matches a markdown heading; OpenSpec groups tasks under
	// "## 1. Section name".
	heading = regexp.MustCompile(`^\s{0,3}#{1,6}\s+(.*?)\s*#*\s*$`)

	// taskNumber matches the native "1.2" numbering at the start of a task.
	taskNumber = regexp.MustCompile(`^(\d+(?:\.\d+)+|\d+)\.?\s+(.+)$`)
)

// OpenSpecParser reads an OpenSpec change's tasks.md:
//
//	## 1. Storage
//	- [ ] 1.1 Add registry table
//	- [x] 1.2 Wire migrations
//
// The task number becomes the item id; the section heading becomes notes.
type OpenSpecParser struct{}

func (OpenSpecParser) SourceType() checklist.SourceType { return checklist.SourceOpenSpecChange }

func (OpenSpecParser) Parse(content string, fetchedAt time.Time) (*ParseResult, error) {
	const t = checklist.SourceOpenSpecChange
	if err := checkUTF8(t, content); err != nil {
		return nil, err
	}

	// Headings are tracked by line so each task can find its section.
	sections := make(map[int]string)
	current := ""
	boxes, unparsed := scanCheckboxes(content, func(lineNo int, line string) bool {
		if m := heading.FindStringSubmatch(line); m != nil {
			current = checklist.CleanTitle(m[1])
			return true
		}
		sections[lineNo] = current
		return false
	})

	res := &ParseResult{Unparsed: unparsed, StableIDs: true}
	for i, b := range boxes {
		item := checklist.ChecklistItem{
			ID:      fmt.Sprintf("task-%d", i+1),
			Title:   b.Text,
			Status:  b.Status,
			Updated: fetchedAt,
			Notes:   sections[b.Line],
		}
		if m := taskNumber.FindStringSubmatch(b.Text); m != nil {
			item.ID = strings.TrimSuffix(m[1], ".")
			item.Title = m[2]
		} else {
			res.StableIDs = false
		}
		res.Items = append(res.Items, item)
	}
	uniqueIDs(res.Items)
	if len(res.Items) == 0 {
		res.StableIDs = false
	}
	return finish(t, res)
}
