package parse

import (
	"bufio"
	"regexp"
	"strings"

	"github.com/roach88/tasksync/internal/checklist"
)

var (
	// taskPrefix matches anything that claims to be a task list line: a
	// bullet or ordinal, then a bracket pair holding at most one character.
	// Markdown links ("- [text](url)") do not match.
	taskPrefix = regexp.MustCompile(`^\s*(?:[-*+]|\d+[.)])\s+\[[^\]]?\](?:\s|$)`)

	// checkboxLine captures the marker and the text of a well-formed line.
	checkboxLine = regexp.MustCompile(`^\s*(?:[-*+]|\d+[.)])\s+\[(.)\](?:\s+(.*))?$`)

	// fence opens or closes a fenced code block.
	fence = regexp.MustCompile("^\\s*(```|~~~)")
)

// markerStatus maps a checkbox marker to a status.
var markerStatus = map[string]checklist.Status{
	" ": checklist.StatusPending,
	"x": checklist.StatusCompleted,
	"X": checklist.StatusCompleted,
	"-": checklist.StatusInProgress,
	"~": checklist.StatusInProgress,
	"/": checklist.StatusInProgress,
}

// checkbox is one recognized task line.
type checkbox struct {
	Line   int
	Status checklist.Status
	Text   string
}

// lineVisitor sees every line outside fenced code blocks. Returning true
// means the visitor consumed the line and the checkbox scan skips it.
type lineVisitor func(lineNo int, line string) bool

// scanCheckboxes walks content line by line and returns the well-formed
// checkbox lines plus the malformed task-like ones. Lines inside fenced
// code blocks are ignored.
func scanCheckboxes(content string, visit lineVisitor) ([]checkbox, []checklist.UnparsedLine) {
	var (
		boxes    []checkbox
		unparsed []checklist.UnparsedLine
		inFence  bool
		fenceTok string
	)

	sc := bufio.NewScanner(strings.NewReader(content))
	sc.Buffer(make([]byte, 0, 64*1024), 4*1024*1024)
	lineNo := 0
	for sc.Scan() {
		lineNo++
		line := strings.TrimRight(sc.Text(), "\r")

		if m := fence.FindStringSubmatch(line); m != nil {
			switch {
			case !inFence:
				inFence, fenceTok = true, m[1]
			case m[1] == fenceTok:
				inFence = false
			}
			continue
		}
		if inFence {
			continue
		}
		if visit != nil && visit(lineNo, line) {
			continue
		}
		if !taskPrefix.MatchString(line) {
			continue
		}

		m := checkboxLine.FindStringSubmatch(line)
		if m == nil {
			unparsed = append(unparsed, checklist.UnparsedLine{Line: lineNo, Text: line, Reason: "malformed checkbox"})
			continue
		}
		status, ok := markerStatus[m[1]]
		if !ok {
			unparsed = append(unparsed, checklist.UnparsedLine{Line: lineNo, Text: line, Reason: "unknown checkbox marker " + quote(m[1])})
			continue
		}
		text := checklist.CleanTitle(m[2])
		if text == "" {
			unparsed = append(unparsed, checklist.UnparsedLine{Line: lineNo, Text: line, Reason: "empty task title"})
			continue
		}
		boxes = append(boxes, checkbox{Line: lineNo, Status: status, Text: text})
	}
	return boxes, unparsed
}

func quote(s string) string {
	return "\"" + s + "\""
}

// hasCheckbox reports whether content contains at least one task-like line.
func hasCheckbox(content string) bool {
	for _, line := range strings.Split(content, "\n") {
		if taskPrefix.MatchString(line) {
			return true
		}
	}
	return false
}
