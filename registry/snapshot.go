package registry

import (
	"context"
	"fmt"
	"os"
	"sync"

	"gopkg.in/yaml.v3"
)

// ProjectSnapshot is the registry content of one project.
type ProjectSnapshot struct {
	Samples    []string                       `yaml:"samples"`
	Categories []string                       `yaml:"categories"`
	Count      *int                           `yaml:"sample_count"`
	Aliases    map[string]map[string][]string `yaml:"aliases"`
}

// Snapshot is a registry held in memory, usually loaded from a YAML or JSON
// export. It is used for offline runs and in tests.
type Snapshot struct {
	Projects map[string]*ProjectSnapshot `yaml:"projects"`

	mu   sync.Mutex
	jobs map[string][]string
}

// LoadSnapshot reads a snapshot file.
func LoadSnapshot(path string) (*Snapshot, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var s Snapshot
	if err := yaml.Unmarshal(data, &s); err != nil {
		return nil, fmt.Errorf("registry snapshot %s: %w", path, err)
	}
	if s.Projects == nil {
		s.Projects = make(map[string]*ProjectSnapshot)
	}
	return &s, nil
}

func (s *Snapshot) project(op, projectID string) (*ProjectSnapshot, error) {
	p, ok := s.Projects[projectID]
	if !ok || p == nil {
		return nil, &UnavailableError{Op: op, ProjectID: projectID, Err: fmt.Errorf("project not found")}
	}
	return p, nil
}

// ListSamples implements Client.
func (s *Snapshot) ListSamples(_ context.Context, projectID string) ([]string, error) {
	p, err := s.project("list samples", projectID)
	if err != nil {
		return nil, err
	}
	return append([]string(nil), p.Samples...), nil
}

// GetMetadataCategories implements Client.
func (s *Snapshot) GetMetadataCategories(_ context.Context, projectID string) (*CategoryInfo, error) {
	p, err := s.project("metadata categories", projectID)
	if err != nil {
		return nil, err
	}
	count := len(p.Samples)
	if p.Count != nil {
		count = *p.Count
	}
	return &CategoryInfo{SampleCount: count, Categories: append([]string(nil), p.Categories...)}, nil
}

// GetAliasCategory implements Client.
func (s *Snapshot) GetAliasCategory(_ context.Context, projectID, category string) (*AliasCategory, error) {
	p, err := s.project("alias category", projectID)
	if err != nil {
		return nil, err
	}
	table, ok := p.Aliases[category]
	if !ok {
		return nil, nil
	}
	out := &AliasCategory{Header: []string{category}, Samples: make(map[string][]string, len(table))}
	for k, v := range table {
		out.Samples[k] = append([]string(nil), v...)
	}
	return out, nil
}

// UpdateJobStep implements JobStatusUpdater by recording the message.
func (s *Snapshot) UpdateJobStep(_ context.Context, jobID, msg string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.jobs == nil {
		s.jobs = make(map[string][]string)
	}
	s.jobs[jobID] = append(s.jobs[jobID], msg)
	return nil
}

// JobSteps returns the messages recorded for jobID.
func (s *Snapshot) JobSteps(jobID string) []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]string(nil), s.jobs[jobID]...)
}
