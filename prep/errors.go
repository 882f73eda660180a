package prep

import (
	"errors"
	"fmt"
	"strings"
)

// ErrAlreadyRewritten is returned when a prep file already carries the
// old_sample_name audit column.
var ErrAlreadyRewritten = errors.New("prep file already rewritten")

// MalformedTableError reports a table that cannot be keyed by its identifier
// column.
type MalformedTableError struct {
	Path   string
	Line   int
	Reason string
}

func (e *MalformedTableError) Error() string {
	if e.Line > 0 {
		return fmt.Sprintf("malformed table %s (line %d): %s", e.Path, e.Line, e.Reason)
	}
	return fmt.Sprintf("malformed table %s: %s", e.Path, e.Reason)
}

// DuplicateIdentifierError reports an identifier that appears on more than one
// row.
type DuplicateIdentifierError struct {
	Path  string
	ID    SampleID
	Lines []int
}

func (e *DuplicateIdentifierError) Error() string {
	return fmt.Sprintf("duplicate identifier %q in %s at lines %v", e.ID, e.Path, e.Lines)
}

// UnmappedProjectError reports a prep file that cannot be tied to a project.
type UnmappedProjectError struct {
	Path    string
	Project string
}

func (e *UnmappedProjectError) Error() string {
	if e.Project != "" {
		return fmt.Sprintf("prep file %s names unknown project %q", e.Path, e.Project)
	}
	return fmt.Sprintf("prep file %s does not match any project", e.Path)
}

// AmbiguousProjectError reports a prep file path that matches several project
// names equally well.
type AmbiguousProjectError struct {
	Path       string
	Candidates []string
}

func (e *AmbiguousProjectError) Error() string {
	return fmt.Sprintf("prep file %s matches several projects: %s", e.Path, strings.Join(e.Candidates, ", "))
}
