package samplesheet

import (
	"fmt"
	"os"

	"github.com/csimplestring/go-csv/detector"
	"github.com/gmaffy/klp/prep"
)

// Mapping file columns.
const (
	ProjectNameColumn = "project_name"
	QiitaIDColumn     = "qiita_study_id"
)

// DetectDelimiter returns the most likely delimiter of a delimited file,
// defaulting to tab.
func DetectDelimiter(path string) (rune, error) {
	file, err := os.Open(path)
	if err != nil {
		return 0, err
	}
	defer file.Close()

	delimiters := detector.New().DetectDelimiter(file, '"')
	if len(delimiters) > 0 && delimiters[0] != "" {
		return rune(delimiters[0][0]), nil
	}
	return '\t', nil
}

// ReadMappingFile parses an amplicon mapping file keyed by sample_name.
func ReadMappingFile(path string) (*Sheet, error) {
	delim, err := DetectDelimiter(path)
	if err != nil {
		return nil, err
	}
	records, err := prep.Parse(path, prep.WithIndexColumn(prep.SampleNameColumn), prep.WithDelimiter(delim))
	if err != nil {
		return nil, err
	}

	sheet := &Sheet{Path: path}
	qiitaIDs := make(map[string]string)
	for _, id := range records.IDs {
		rec, _ := records.Get(id)
		project, ok := rec[ProjectNameColumn]
		if !ok {
			return nil, &prep.MalformedTableError{Path: path, Reason: fmt.Sprintf("missing column %q", ProjectNameColumn)}
		}
		if project == "" {
			return nil, &prep.MalformedTableError{Path: path, Reason: fmt.Sprintf("sample %s has no %s", id, ProjectNameColumn)}
		}
		qiitaID := rec[QiitaIDColumn]
		if prev, ok := qiitaIDs[project]; ok {
			if prev != qiitaID {
				return nil, fmt.Errorf("%s: project %s has qiita ids %s and %s", path, project, prev, qiitaID)
			}
		} else {
			qiitaIDs[project] = qiitaID
			sheet.Projects = append(sheet.Projects, Project{Name: project, QiitaID: qiitaID})
		}
		sheet.Samples = append(sheet.Samples, Sample{ID: id.String(), Project: project})
	}
	return sheet, nil
}
