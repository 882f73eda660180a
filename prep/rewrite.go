package prep

import (
	"fmt"
	"log/slog"

	"github.com/gmaffy/klp/utils"
)

// OldSampleNameColumn keeps the sample_name values a prep file had before it
// was rewritten.
const OldSampleNameColumn = "old_sample_name"

// AliasLookup maps a normalized sample name to its registry alias.
type AliasLookup interface {
	Lookup(normalized string) (string, bool)
}

// PrepFile is a prep file together with the project it belongs to.
type PrepFile struct {
	Path    string
	Project string
}

// Rewriter substitutes registry aliases into the sample_name column of prep
// files, in place.
type Rewriter struct {
	Logger *slog.Logger
}

// Rewrite rewrites every file using the alias lookup of its project. A project
// whose lookup is nil has no aliasing: its names are left as they are, but the
// old_sample_name column is still appended. Every file is parsed and rewritten
// in memory before any is replaced, so a bad file leaves the whole batch
// untouched. Each replacement is atomic.
func (rw *Rewriter) Rewrite(files []PrepFile, mappings map[string]AliasLookup) error {
	logger := rw.Logger
	if logger == nil {
		logger = slog.Default()
	}

	tables := make([]*Table, len(files))
	for i, f := range files {
		lookup, ok := mappings[f.Project]
		if !ok {
			return &UnmappedProjectError{Path: f.Path, Project: f.Project}
		}
		table, err := rewriteTable(f.Path, lookup)
		if err != nil {
			return err
		}
		tables[i] = table
	}

	for i, f := range files {
		table := tables[i]
		if err := utils.ReplaceFile(f.Path, table.Write); err != nil {
			return fmt.Errorf("writing %s: %w", f.Path, err)
		}
		logger.Info("prep file rewritten", "project", f.Project, "path", f.Path, "rows", table.Nrow(), "aliased", mappings[f.Project] != nil)
	}
	return nil
}

// Rewrite is a convenience wrapper around a Rewriter with the default logger.
func Rewrite(files []PrepFile, mappings map[string]AliasLookup) error {
	return (&Rewriter{}).Rewrite(files, mappings)
}

func rewriteTable(path string, lookup AliasLookup) (*Table, error) {
	table, err := ParseTable(path, WithIndexColumn(SampleNameColumn))
	if err != nil {
		return nil, err
	}
	if table.HasColumn(OldSampleNameColumn) {
		return nil, fmt.Errorf("%s: %w", path, ErrAlreadyRewritten)
	}

	names, err := table.Column(SampleNameColumn)
	if err != nil {
		return nil, err
	}
	old := make([]string, len(names))
	copy(old, names)

	if lookup != nil {
		for i, name := range names {
			id := SampleID(name)
			if id.IsBlank() {
				continue
			}
			if alias, ok := lookup.Lookup(id.StripLeadingZeros().String()); ok {
				names[i] = alias
			}
		}
	}

	if err := table.SetColumn(SampleNameColumn, names); err != nil {
		return nil, err
	}
	if err := table.SetColumn(OldSampleNameColumn, old); err != nil {
		return nil, err
	}
	return table, nil
}
