package reconcile

import (
	"context"
	"log/slog"
	"sort"

	"github.com/gmaffy/klp/prep"
	"github.com/gmaffy/klp/registry"
	"golang.org/x/exp/rand"
)

// DefaultExampleCap bounds Result.ExamplesInRegistry.
const DefaultExampleCap = 5

// Project is a project of the run and its registry id.
type Project struct {
	Name       string
	RegistryID string
}

// Result is the reconciliation of one project.
type Result struct {
	Project     string
	RegistryID  string
	UsesAliases bool
	// LocalSampleCount is the number of local samples compared.
	LocalSampleCount int
	// AliasedSampleCount is the number of local samples that have an alias.
	AliasedSampleCount int
	// SamplesNotInRegistry are local ids, as given, that the registry does
	// not know under any name.
	SamplesNotInRegistry []string
	// ExamplesInRegistry is a bounded sample of registry names that local
	// samples matched. When the project uses aliases these are alias values.
	ExamplesInRegistry  []string
	RegistrySampleCount int
	Mapping             *AliasMapping
}

// Engine compares local samples against the registry, project by project.
type Engine struct {
	Resolver   *Resolver
	ExampleCap int
	// Seed makes example sampling reproducible.
	Seed   uint64
	Logger *slog.Logger
}

// NewEngine returns an Engine using the default alias category.
func NewEngine(client registry.Client, logger *slog.Logger) *Engine {
	return &Engine{
		Resolver:   &Resolver{Client: client, Logger: logger},
		ExampleCap: DefaultExampleCap,
		Logger:     logger,
	}
}

// Compare returns one Result per project, in the order of projects. local is
// keyed by project name.
func (e *Engine) Compare(ctx context.Context, projects []Project, local map[string][]prep.SampleID) ([]Result, error) {
	logger := e.Logger
	if logger == nil {
		logger = slog.Default()
	}

	results := make([]Result, 0, len(projects))
	for _, project := range projects {
		res, err := e.compareProject(ctx, project, local[project.Name])
		if err != nil {
			return nil, err
		}
		logger.Info("project reconciled", "project", project.Name, "registry_id", project.RegistryID,
			"aliases", res.UsesAliases, "not_in_registry", len(res.SamplesNotInRegistry))
		results = append(results, res)
	}
	return results, nil
}

func (e *Engine) compareProject(ctx context.Context, project Project, local []prep.SampleID) (Result, error) {
	id := project.RegistryID
	raw, err := e.Resolver.Client.ListSamples(ctx, id)
	if err != nil {
		return Result{}, registry.Unavailable("list samples", id, err)
	}
	inRegistry := make(map[string]struct{}, len(raw))
	for _, s := range raw {
		inRegistry[prep.SampleID(s).Unqualified(id).String()] = struct{}{}
	}

	resolution, err := e.Resolver.Resolve(ctx, id, local)
	if err != nil {
		return Result{}, err
	}
	mapping := resolution.Mapping
	known := func(v string) bool {
		_, ok := inRegistry[v]
		return ok || mapping.IsRegistryAlias(v)
	}

	notIn := make(map[string]struct{})
	matched := make(map[string]struct{})
	for _, sample := range local {
		var candidate string
		if mapping == nil {
			candidate = sample.Unqualified(id).String()
		} else {
			norm := sample.Normalize(id)
			candidate = norm.String()
			if alias, ok := mapping.Lookup(candidate); ok {
				candidate = alias
			}
		}

		if !known(candidate) {
			notIn[sample.String()] = struct{}{}
			continue
		}
		// With aliasing, examples are drawn from alias values only.
		if mapping == nil || mapping.IsRegistryAlias(candidate) {
			matched[candidate] = struct{}{}
		}
	}

	return Result{
		Project:              project.Name,
		RegistryID:           id,
		UsesAliases:          mapping != nil,
		LocalSampleCount:     len(local),
		AliasedSampleCount:   len(resolution.Matched),
		SamplesNotInRegistry: sortedKeys(notIn),
		ExamplesInRegistry:   e.examples(sortedKeys(matched)),
		RegistrySampleCount:  resolution.Info.SampleCount,
		Mapping:              mapping,
	}, nil
}

func (e *Engine) examples(matched []string) []string {
	limit := e.ExampleCap
	if limit <= 0 {
		limit = DefaultExampleCap
	}
	if len(matched) <= limit {
		return matched
	}
	r := rand.New(rand.NewSource(e.Seed))
	picked := make([]string, 0, limit)
	for _, i := range r.Perm(len(matched))[:limit] {
		picked = append(picked, matched[i])
	}
	sort.Strings(picked)
	return picked
}

// Lookups converts results into the per-project alias lookups the prep
// rewriter expects, keyed by project name. Projects without aliasing map to a
// nil lookup.
func Lookups(results []Result) map[string]prep.AliasLookup {
	out := make(map[string]prep.AliasLookup, len(results))
	for _, r := range results {
		if r.Mapping == nil {
			out[r.Project] = nil
			continue
		}
		out[r.Project] = r.Mapping
	}
	return out
}
