// Package registry describes the remote sample-metadata registry (Qiita) the
// reconciliation code depends on, and provides adapters for it.
package registry

import (
	"context"
	"errors"
	"fmt"
	"sort"

	"github.com/samber/lo"
)

// DefaultAliasCategory is the metadata category holding tube ids.
const DefaultAliasCategory = "tube_id"

// Client is the query contract of the sample registry. Sample ids returned
// by ListSamples and used as AliasCategory keys are fully qualified, i.e.
// prefixed with "{projectID}.".
type Client interface {
	ListSamples(ctx context.Context, projectID string) ([]string, error)
	// GetAliasCategory returns nil when the project has no such category.
	GetAliasCategory(ctx context.Context, projectID, category string) (*AliasCategory, error)
	GetMetadataCategories(ctx context.Context, projectID string) (*CategoryInfo, error)
}

// JobStatusUpdater publishes progress messages for a registry job.
type JobStatusUpdater interface {
	UpdateJobStep(ctx context.Context, jobID, msg string) error
}

// AliasCategory is the per-sample value table of one metadata category. Each
// sample maps to a one-element list holding its value.
type AliasCategory struct {
	Header  []string            `json:"header" yaml:"header"`
	Samples map[string][]string `json:"samples" yaml:"samples"`
}

// CategoryInfo summarises the metadata declared for a project.
type CategoryInfo struct {
	SampleCount int      `json:"number-of-samples" yaml:"number-of-samples"`
	Categories  []string `json:"categories" yaml:"categories"`
}

// Has reports whether category is declared.
func (c *CategoryInfo) Has(category string) bool {
	if c == nil {
		return false
	}
	for _, v := range c.Categories {
		if v == category {
			return true
		}
	}
	return false
}

// UnavailableError wraps any failure of a registry query.
type UnavailableError struct {
	Op        string
	ProjectID string
	Err       error
}

func (e *UnavailableError) Error() string {
	return fmt.Sprintf("registry %s for project %s: %v", e.Op, e.ProjectID, e.Err)
}

func (e *UnavailableError) Unwrap() error { return e.Err }

// Unavailable wraps err as an *UnavailableError unless it already is one.
func Unavailable(op, projectID string, err error) error {
	if err == nil {
		return nil
	}
	var ue *UnavailableError
	if errors.As(err, &ue) {
		return err
	}
	return &UnavailableError{Op: op, ProjectID: projectID, Err: err}
}

// SortedKeys returns the sample keys of an alias table in order.
func (a *AliasCategory) SortedKeys() []string {
	if a == nil {
		return nil
	}
	keys := lo.Keys(a.Samples)
	sort.Strings(keys)
	return keys
}
