package harness

import (
	"bytes"
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/roach88/tasksync/internal/checklist"
	"github.com/roach88/tasksync/internal/engine"
)

// Scenario is one end-to-end reconciliation test.
type Scenario struct {
	// Name uniquely identifies this scenario and names its golden file.
	Name string `yaml:"name"`

	// Description explains what this scenario validates.
	Description string `yaml:"description"`

	// Match is the merge strategy: "key" (default) or "title".
	Match string `yaml:"match,omitempty"`

	// LinkPolicy is "steal" (default) or "reject".
	LinkPolicy string `yaml:"link_policy,omitempty"`

	// Steps run in order, each as its own transaction.
	Steps []Step `yaml:"steps"`

	// Assertions validate the final registry.
	Assertions []Assertion `yaml:"assertions"`
}

// Step is one registry operation.
type Step struct {
	// Op is reconcile, link, unlink, drift or state.
	Op string `yaml:"op"`

	// Type and ID name the artifact the operation is about.
	Type string `yaml:"type"`
	ID   string `yaml:"id"`

	// Content is the artifact content (reconcile).
	Content string `yaml:"content,omitempty"`

	// Links maps source type to artifact id (link).
	Links map[string]string `yaml:"links,omitempty"`

	// Contents maps source type to current content (drift).
	Contents map[string]string `yaml:"contents,omitempty"`

	// Expect validates the outcome. Nil means the step must not fail.
	Expect *Expect `yaml:"expect,omitempty"`
}

// Expect is a subset match on a step outcome. Unset fields are not
// checked.
type Expect struct {
	Error         string   `yaml:"error,omitempty"`
	Drift         *bool    `yaml:"drift,omitempty"`
	Added         *int     `yaml:"added,omitempty"`
	Removed       *int     `yaml:"removed,omitempty"`
	StatusChanges *int     `yaml:"status_changes,omitempty"`
	Unlinked      *bool    `yaml:"unlinked,omitempty"`
	Drifted       []string `yaml:"drifted,omitempty"`
	Found         *bool    `yaml:"found,omitempty"`
}

// Assertion validates the final registry.
type Assertion struct {
	// Type is items, linked or entries.
	Type string `yaml:"type"`

	// Artifact is "type:id" (items, linked).
	Artifact string `yaml:"artifact,omitempty"`

	// Items is the expected merged checklist, in order (items).
	Items []ItemExpect `yaml:"items,omitempty"`

	// Linked is the expected set of linked artifacts by source type
	// (linked). Types not listed must be unlinked.
	Linked map[string]string `yaml:"linked,omitempty"`

	// Count is the expected number of entries (entries).
	Count int `yaml:"count,omitempty"`
}

// ItemExpect matches one merged item. An empty ID is not checked.
type ItemExpect struct {
	ID     string `yaml:"id,omitempty"`
	Title  string `yaml:"title"`
	Status string `yaml:"status"`
}

// Step operations.
const (
	OpReconcile = "reconcile"
	OpLink      = "link"
	OpUnlink    = "unlink"
	OpDrift     = "drift"
	OpState     = "state"
)

// Assertion type constants.
const (
	AssertItems   = "items"
	AssertLinked  = "linked"
	AssertEntries = "entries"
)

// LoadScenario reads and parses a scenario YAML file.
// Returns an error if the file doesn't exist, is malformed,
// contains unknown fields (typos), or is missing required fields.
func LoadScenario(path string) (*Scenario, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read scenario file: %w", err)
	}
	return ParseScenario(data)
}

// ParseScenario parses scenario YAML.
func ParseScenario(data []byte) (*Scenario, error) {
	var scenario Scenario
	decoder := yaml.NewDecoder(bytes.NewReader(data))
	decoder.KnownFields(true) // Reject unknown fields
	if err := decoder.Decode(&scenario); err != nil {
		return nil, fmt.Errorf("failed to parse YAML: %w", err)
	}

	if err := validateScenario(&scenario); err != nil {
		return nil, fmt.Errorf("invalid scenario: %w", err)
	}
	return &scenario, nil
}

// validateScenario checks that required fields are present and valid.
func validateScenario(s *Scenario) error {
	if s.Name == "" {
		return fmt.Errorf("name is required")
	}
	if s.Description == "" {
		return fmt.Errorf("description is required")
	}
	if len(s.Steps) == 0 {
		return fmt.Errorf("steps list is required and must be non-empty")
	}
	if _, err := engine.ParseLinkPolicy(s.LinkPolicy); err != nil {
		return err
	}
	switch s.Match {
	case "", "key", "title":
	default:
		return fmt.Errorf("unknown match strategy %q", s.Match)
	}

	for i, step := range s.Steps {
		if err := validateStep(i, &step); err != nil {
			return err
		}
	}
	for i, a := range s.Assertions {
		if err := validateAssertion(i, &a); err != nil {
			return err
		}
	}
	return nil
}

func validateStep(index int, st *Step) error {
	if st.ID == "" || st.Type == "" {
		return fmt.Errorf("steps[%d]: type and id are required", index)
	}
	switch st.Op {
	case OpReconcile, OpUnlink, OpState:
	case OpLink:
		if len(st.Links) == 0 {
			return fmt.Errorf("steps[%d]: links is required for link", index)
		}
	case OpDrift:
		if len(st.Contents) == 0 {
			return fmt.Errorf("steps[%d]: contents is required for drift", index)
		}
	case "":
		return fmt.Errorf("steps[%d]: op is required", index)
	default:
		return fmt.Errorf("steps[%d]: unknown op %q", index, st.Op)
	}
	return nil
}

// validateAssertion validates a single assertion based on its type.
func validateAssertion(index int, a *Assertion) error {
	switch a.Type {
	case AssertItems, AssertLinked:
		if _, err := engine.ParseArtifactRef(a.Artifact); err != nil {
			return fmt.Errorf("assertions[%d]: %w", index, err)
		}
	case AssertEntries:
		if a.Count < 0 {
			return fmt.Errorf("assertions[%d]: count must be non-negative", index)
		}
	case "":
		return fmt.Errorf("assertions[%d]: type is required", index)
	default:
		return fmt.Errorf("assertions[%d]: unknown assertion type %q", index, a.Type)
	}
	for j, it := range a.Items {
		if _, ok := checklist.ParseStatus(it.Status); !ok {
			return fmt.Errorf("assertions[%d].items[%d]: unknown status %q", index, j, it.Status)
		}
	}
	return nil
}
