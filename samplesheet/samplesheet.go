// Package samplesheet loads the local description of a run: Illumina sample
// sheets for metagenomic and metatranscriptomic runs, and mapping files for
// amplicon runs.
package samplesheet

import (
	"bufio"
	"encoding/csv"
	"fmt"
	"os"
	"strings"

	"github.com/gmaffy/klp/prep"
	"github.com/gocarina/gocsv"
	"github.com/samber/lo"
)

// Sample is one sample of the run.
type Sample struct {
	ID      string
	Project string
}

// Project is a project of the run and its Qiita study id.
type Project struct {
	Name    string
	QiitaID string
}

// Sheet is the parsed sample list of a run.
type Sheet struct {
	Path     string
	Samples  []Sample
	Projects []Project
}

// ByProject groups sample ids by project, in sheet order.
func (s *Sheet) ByProject() map[string][]prep.SampleID {
	out := make(map[string][]prep.SampleID, len(s.Projects))
	for _, smpl := range s.Samples {
		out[smpl.Project] = append(out[smpl.Project], prep.SampleID(smpl.ID))
	}
	return out
}

// ProjectNames returns the project names in sheet order.
func (s *Sheet) ProjectNames() []string {
	return lo.Map(s.Projects, func(p Project, _ int) string { return p.Name })
}

type dataRow struct {
	SampleID string `csv:"Sample_ID"`
	Project  string `csv:"Sample_Project"`
	Lane     string `csv:"Lane"`
}

type bioinformaticsRow struct {
	Project string `csv:"Sample_Project"`
	QiitaID string `csv:"QiitaID"`
}

// ReadSampleSheet parses the [Data] and [Bioinformatics] sections of an
// Illumina sample sheet. A sample listed on several lanes is reported once.
func ReadSampleSheet(path string) (*Sheet, error) {
	sections, err := readSections(path)
	if err != nil {
		return nil, err
	}

	var data []*dataRow
	if err := unmarshalSection(sections, "Data", &data); err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	var bioinformatics []*bioinformaticsRow
	if err := unmarshalSection(sections, "Bioinformatics", &bioinformatics); err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}

	sheet := &Sheet{Path: path}
	known := make(map[string]bool)
	for _, row := range bioinformatics {
		if row.Project == "" {
			continue
		}
		if known[row.Project] {
			return nil, fmt.Errorf("%s: project %s listed twice in [Bioinformatics]", path, row.Project)
		}
		known[row.Project] = true
		sheet.Projects = append(sheet.Projects, Project{Name: row.Project, QiitaID: row.QiitaID})
	}

	seen := make(map[string]string)
	for i, row := range data {
		if row.SampleID == "" {
			return nil, &prep.MalformedTableError{Path: path, Reason: fmt.Sprintf("[Data] row %d has no Sample_ID", i+1)}
		}
		if !known[row.Project] {
			return nil, fmt.Errorf("%s: sample %s belongs to project %q missing from [Bioinformatics]", path, row.SampleID, row.Project)
		}
		if project, ok := seen[row.SampleID]; ok {
			if project != row.Project {
				return nil, &prep.DuplicateIdentifierError{Path: path, ID: prep.SampleID(row.SampleID)}
			}
			continue
		}
		seen[row.SampleID] = row.Project
		sheet.Samples = append(sheet.Samples, Sample{ID: row.SampleID, Project: row.Project})
	}
	return sheet, nil
}

func readSections(path string) (map[string][]string, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer file.Close()

	sections := make(map[string][]string)
	current := ""
	scanner := bufio.NewScanner(file)
	for scanner.Scan() {
		line := strings.TrimRight(scanner.Text(), "\r")
		trimmed := strings.TrimRight(strings.TrimSpace(line), ",")
		if trimmed == "" {
			continue
		}
		if strings.HasPrefix(trimmed, "[") && strings.HasSuffix(trimmed, "]") {
			current = strings.Trim(trimmed, "[]")
			sections[current] = nil
			continue
		}
		if current != "" {
			sections[current] = append(sections[current], line)
		}
	}
	if err := scanner.Err(); err != nil {
		return nil, err
	}
	return sections, nil
}

func unmarshalSection(sections map[string][]string, name string, out interface{}) error {
	lines, ok := sections[name]
	if !ok {
		return fmt.Errorf("missing [%s] section", name)
	}
	reader := csv.NewReader(strings.NewReader(strings.Join(lines, "\n")))
	reader.FieldsPerRecord = -1
	if err := gocsv.UnmarshalCSV(reader, out); err != nil {
		return fmt.Errorf("[%s] section: %w", name, err)
	}
	return nil
}
