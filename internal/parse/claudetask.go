package parse

import (
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/roach88/tasksync/internal/checklist"
)

// TaskRecord is one structured task-list record, as kept by the agent task
// store (~/.claude/tasks/<session>/<id>.json) or an active.yaml manifest.
type TaskRecord struct {
	ID          string     `json:"id" yaml:"id"`
	Subject     string     `json:"subject,omitempty" yaml:"subject,omitempty"`
	Title       string     `json:"title,omitempty" yaml:"title,omitempty"`
	Content     string     `json:"content,omitempty" yaml:"content,omitempty"`
	Description string     `json:"description,omitempty" yaml:"description,omitempty"`
	Status      string     `json:"status" yaml:"status"`
	Priority    FlexString `json:"priority,omitempty" yaml:"priority,omitempty"`
	UpdatedAt   string     `json:"updatedAt,omitempty" yaml:"updated_at,omitempty"`
}

// subject returns the first non-empty of subject, title and content.
func (r TaskRecord) subject() string {
	for _, s := range []string{r.Subject, r.Title, r.Content} {
		if s = checklist.CleanTitle(s); s != "" {
			return s
		}
	}
	return ""
}

// FlexString decodes from a JSON/YAML string or number. Task stores
// disagree on whether priority is "high" or 1.
type FlexString string

func (f *FlexString) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err == nil {
		*f = FlexString(s)
		return nil
	}
	var n json.Number
	if err := json.Unmarshal(data, &n); err != nil {
		return fmt.Errorf("priority must be a string or number: %s", data)
	}
	*f = FlexString(n.String())
	return nil
}

func (f *FlexString) UnmarshalYAML(node *yaml.Node) error {
	if node.Kind != yaml.ScalarNode {
		return fmt.Errorf("line %d: priority must be a scalar", node.Line)
	}
	*f = FlexString(node.Value)
	return nil
}

type taskEnvelope struct {
	Tasks []TaskRecord `json:"tasks" yaml:"tasks"`
}

// ClaudeTaskParser reads the agent's ephemeral task list. It accepts a JSON
// array of records, a JSON object with a "tasks" array (or a single
// record), a YAML manifest with a "tasks" list, or a plain checkbox list.
type ClaudeTaskParser struct{}

func (ClaudeTaskParser) SourceType() checklist.SourceType { return checklist.SourceClaudeTask }

func (p ClaudeTaskParser) Parse(content string, fetchedAt time.Time) (*ParseResult, error) {
	const t = checklist.SourceClaudeTask
	if err := checkUTF8(t, content); err != nil {
		return nil, err
	}

	trimmed := strings.TrimSpace(content)
	switch {
	case trimmed == "":
		return finish(t, &ParseResult{})
	case strings.HasPrefix(trimmed, "["), strings.HasPrefix(trimmed, "{"):
		records, err := decodeJSONRecords(trimmed)
		if err != nil {
			return nil, &ParseError{SourceType: t, Reason: "invalid task record JSON", Err: err}
		}
		return p.fromRecords(records, fetchedAt)
	case hasCheckbox(content):
		return parsePositional(t, "ct", content, fetchedAt)
	}

	if records, ok := decodeYAMLRecords(content); ok {
		return p.fromRecords(records, fetchedAt)
	}
	return parsePositional(t, "ct", content, fetchedAt)
}

// ParseRecords canonicalizes already-structured records.
func (p ClaudeTaskParser) ParseRecords(records []TaskRecord, fetchedAt time.Time) (*ParseResult, error) {
	return p.fromRecords(records, fetchedAt)
}

func (ClaudeTaskParser) fromRecords(records []TaskRecord, fetchedAt time.Time) (*ParseResult, error) {
	const t = checklist.SourceClaudeTask
	res := &ParseResult{StableIDs: true}
	for i, r := range records {
		line := i + 1
		title := r.subject()
		if title == "" {
			res.Unparsed = append(res.Unparsed, checklist.UnparsedLine{Line: line, Text: r.ID, Reason: "record has no subject"})
			continue
		}
		status := checklist.StatusPending
		if r.Status != "" {
			st, ok := checklist.ParseStatus(r.Status)
			if !ok {
				res.Unparsed = append(res.Unparsed, checklist.UnparsedLine{Line: line, Text: title, Reason: "unknown status " + quote(r.Status)})
				continue
			}
			status = st
		}

		item := checklist.ChecklistItem{
			ID:       strings.TrimSpace(r.ID),
			Title:    title,
			Status:   status,
			Updated:  fetchedAt,
			Priority: string(r.Priority),
			Notes:    strings.TrimSpace(r.Description),
		}
		if item.ID == "" {
			item.ID = "ct-" + strconv.Itoa(line)
			res.StableIDs = false
		}
		if ts, err := time.Parse(time.RFC3339, strings.TrimSpace(r.UpdatedAt)); err == nil {
			item.Updated = ts
		}
		res.Items = append(res.Items, item)
	}
	uniqueIDs(res.Items)
	if len(res.Items) == 0 {
		res.StableIDs = false
	}
	return finish(t, res)
}

func decodeJSONRecords(s string) ([]TaskRecord, error) {
	if strings.HasPrefix(s, "[") {
		var records []TaskRecord
		if err := json.Unmarshal([]byte(s), &records); err != nil {
			return nil, err
		}
		return records, nil
	}

	var top map[string]json.RawMessage
	if err := json.Unmarshal([]byte(s), &top); err != nil {
		return nil, err
	}
	if _, ok := top["tasks"]; ok {
		var env taskEnvelope
		if err := json.Unmarshal([]byte(s), &env); err != nil {
			return nil, err
		}
		return env.Tasks, nil
	}
	var single TaskRecord
	if err := json.Unmarshal([]byte(s), &single); err != nil {
		return nil, err
	}
	return []TaskRecord{single}, nil
}

// decodeYAMLRecords accepts a manifest mapping with a "tasks" key or a
// top-level sequence of records. Anything else is not structured content.
func decodeYAMLRecords(s string) ([]TaskRecord, bool) {
	var root yaml.Node
	if err := yaml.Unmarshal([]byte(s), &root); err != nil || len(root.Content) == 0 {
		return nil, false
	}
	doc := root.Content[0]
	switch doc.Kind {
	case yaml.MappingNode:
		var env taskEnvelope
		if !hasKey(doc, "tasks") || doc.Decode(&env) != nil {
			return nil, false
		}
		return env.Tasks, true
	case yaml.SequenceNode:
		for _, n := range doc.Content {
			if n.Kind != yaml.MappingNode {
				return nil, false
			}
		}
		var records []TaskRecord
		if doc.Decode(&records) != nil {
			return nil, false
		}
		return records, true
	}
	return nil, false
}

func hasKey(m *yaml.Node, key string) bool {
	for i := 0; i+1 < len(m.Content); i += 2 {
		if m.Content[i].Value == key {
			return true
		}
	}
	return false
}

// EncodeTaskRecords serializes records to canonical JSON. The result is
// the content that gets hashed when a caller hands over structured records,
// so equal record lists always hash equally.
func EncodeTaskRecords(records []TaskRecord) (string, error) {
	arr := make([]any, len(records))
	for i, r := range records {
		obj := map[string]any{"id": r.ID, "status": r.Status}
		for k, v := range map[string]string{
			"subject":     r.Subject,
			"title":       r.Title,
			"content":     r.Content,
			"description": r.Description,
			"priority":    string(r.Priority),
			"updatedAt":   r.UpdatedAt,
		} {
			if v != "" {
				obj[k] = v
			}
		}
		arr[i] = obj
	}
	data, err := checklist.MarshalCanonical(arr)
	if err != nil {
		return "", fmt.Errorf("encode task records: %w", err)
	}
	return string(data), nil
}
