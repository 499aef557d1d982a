package registry

import (
	_ "embed"
	"fmt"
	"strings"
	"sync"

	"cuelang.org/go/cue"
	"cuelang.org/go/cue/cuecontext"
	cueerrors "cuelang.org/go/cue/errors"
	cuejson "cuelang.org/go/encoding/json"
)

//go:embed schema.cue
var schemaCUE string

// Issue is one schema violation.
type Issue struct {
	Path    string `json:"path"`
	Message string `json:"message"`
	Line    int    `json:"line,omitempty"`
}

func (i Issue) String() string {
	var b strings.Builder
	if i.Line > 0 {
		fmt.Fprintf(&b, "line %d: ", i.Line)
	}
	if i.Path != "" {
		b.WriteString(i.Path + ": ")
	}
	b.WriteString(i.Message)
	return b.String()
}

// ValidationError reports a registry document that does not match the
// schema.
type ValidationError struct {
	Issues []Issue `json:"issues"`
}

func (e *ValidationError) Error() string {
	switch len(e.Issues) {
	case 0:
		return "invalid registry"
	case 1:
		return "invalid registry: " + e.Issues[0].String()
	default:
		return fmt.Sprintf("invalid registry: %s (and %d more)", e.Issues[0], len(e.Issues)-1)
	}
}

var (
	schemaOnce sync.Once
	schemaCtx  *cue.Context
	schemaDef  cue.Value
	schemaErr  error
)

func loadSchema() (*cue.Context, cue.Value, error) {
	schemaOnce.Do(func() {
		schemaCtx = cuecontext.New()
		v := schemaCtx.CompileString(schemaCUE, cue.Filename("schema.cue"))
		if err := v.Err(); err != nil {
			schemaErr = fmt.Errorf("compile registry schema: %w", err)
			return
		}
		schemaDef = v.LookupPath(cue.ParsePath("#Registry"))
		if err := schemaDef.Err(); err != nil {
			schemaErr = fmt.Errorf("compile registry schema: %w", err)
		}
	})
	return schemaCtx, schemaDef, schemaErr
}

// ValidateJSON checks a registry document against the embedded schema.
// Violations are returned as a *ValidationError.
func ValidateJSON(data []byte) error {
	ctx, def, err := loadSchema()
	if err != nil {
		return err
	}

	expr, err := cuejson.Extract("registry.json", data)
	if err != nil {
		return &ValidationError{Issues: issuesFrom(err)}
	}
	v := ctx.BuildExpr(expr)
	if err := v.Err(); err != nil {
		return &ValidationError{Issues: issuesFrom(err)}
	}
	if err := def.Unify(v).Validate(cue.Concrete(true)); err != nil {
		return &ValidationError{Issues: issuesFrom(err)}
	}
	return nil
}

// issuesFrom flattens a CUE error list, keeping the first position of
// each error.
func issuesFrom(err error) []Issue {
	var issues []Issue
	for _, e := range cueerrors.Errors(err) {
		format, args := e.Msg()
		issue := Issue{
			Path:    strings.Join(e.Path(), "."),
			Message: fmt.Sprintf(format, args...),
		}
		for _, pos := range cueerrors.Positions(e) {
			if pos.Filename() == "registry.json" {
				issue.Line = pos.Line()
				break
			}
		}
		issues = append(issues, issue)
	}
	if len(issues) == 0 {
		issues = append(issues, Issue{Message: err.Error()})
	}
	return issues
}
