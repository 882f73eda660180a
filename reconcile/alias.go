package reconcile

import (
	"context"
	"log/slog"
	"sort"

	"github.com/gmaffy/klp/prep"
	"github.com/gmaffy/klp/registry"
	"github.com/samber/lo"
)

// AliasMapping maps normalized local sample ids to registry aliases for one
// project. A nil *AliasMapping means the project does not support aliasing;
// an empty one means aliasing is supported but nothing matched.
type AliasMapping struct {
	entries map[string]string
	aliases map[string]struct{}
}

// Lookup returns the alias for a normalized sample id. It is safe on a nil
// mapping.
func (m *AliasMapping) Lookup(normalized string) (string, bool) {
	if m == nil {
		return "", false
	}
	alias, ok := m.entries[normalized]
	return alias, ok
}

// Len returns the number of mapped samples.
func (m *AliasMapping) Len() int {
	if m == nil {
		return 0
	}
	return len(m.entries)
}

// Entries returns the mapped (normalized) sample ids, sorted.
func (m *AliasMapping) Entries() []string {
	if m == nil {
		return nil
	}
	return sortedKeys(m.entries)
}

// IsRegistryAlias reports whether v is any alias value the registry knows of,
// whether or not a local sample maps to it.
func (m *AliasMapping) IsRegistryAlias(v string) bool {
	if m == nil {
		return false
	}
	_, ok := m.aliases[v]
	return ok
}

// Resolution is the outcome of resolving one project's local samples.
type Resolution struct {
	// Matched holds the local ids, as given, that have an alias.
	Matched map[prep.SampleID]struct{}
	Mapping *AliasMapping
	Info    *registry.CategoryInfo
}

// Resolver builds alias mappings from the registry.
type Resolver struct {
	Client   registry.Client
	Category string
	Logger   *slog.Logger
}

func (r *Resolver) category() string {
	if r.Category == "" {
		return registry.DefaultAliasCategory
	}
	return r.Category
}

func (r *Resolver) logger() *slog.Logger {
	if r.Logger == nil {
		return slog.Default()
	}
	return r.Logger
}

// Resolve maps the local samples of projectID to their registry aliases.
// Blanks are never aliased, and leading zeros are stripped from the other ids
// before lookup because the registry stores them stripped.
func (r *Resolver) Resolve(ctx context.Context, projectID string, local []prep.SampleID) (*Resolution, error) {
	info, err := r.Client.GetMetadataCategories(ctx, projectID)
	if err != nil {
		return nil, registry.Unavailable("metadata categories", projectID, err)
	}
	if info == nil {
		info = &registry.CategoryInfo{}
	}
	res := &Resolution{Matched: make(map[prep.SampleID]struct{}), Info: info}
	if !info.Has(r.category()) {
		r.logger().Info("aliasing not supported", "project", projectID, "category", r.category())
		return res, nil
	}

	table, err := r.Client.GetAliasCategory(ctx, projectID, r.category())
	if err != nil {
		return nil, registry.Unavailable("alias category", projectID, err)
	}

	registryAliases := make(map[string]string)
	mapping := &AliasMapping{entries: make(map[string]string), aliases: make(map[string]struct{})}
	if table != nil {
		for _, key := range table.SortedKeys() {
			values := table.Samples[key]
			if len(values) == 0 || values[0] == "" {
				continue
			}
			registryAliases[prep.SampleID(key).Unqualified(projectID).String()] = values[0]
			mapping.aliases[values[0]] = struct{}{}
		}
	}

	for _, id := range local {
		norm := id.Normalize(projectID)
		if norm.IsBlank() {
			continue
		}
		alias, ok := registryAliases[norm.String()]
		if !ok {
			continue
		}
		mapping.entries[norm.String()] = alias
		res.Matched[id] = struct{}{}
	}
	res.Mapping = mapping

	r.logger().Info("aliases resolved", "project", projectID, "local", len(local), "mapped", mapping.Len(), "registry_aliases", len(mapping.aliases))
	r.logger().Debug("alias mapping", "project", projectID, "samples", mapping.Entries())
	return res, nil
}

func sortedKeys[V any](m map[string]V) []string {
	keys := lo.Keys(m)
	sort.Strings(keys)
	return keys
}
