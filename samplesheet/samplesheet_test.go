package samplesheet

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/gmaffy/klp/prep"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const sheetText = `[Header],,,,
IEMFileVersion,4,,,
Investigator Name,Knight,,,
,,,,
[Reads],,,,
151,,,,
151,,,,
,,,,
[Data],,,,
Sample_ID,Sample_Name,Sample_Project,index,Lane
sample1,sample.1,Feist_11661,AACC,1
sample2,sample.2,Feist_11661,GGTT,1
sample1,sample.1,Feist_11661,AACC,2
4A,4A,Gerwick_6123,CCAA,1
BLANK_1_A,BLANK.1.A,Gerwick_6123,TTGG,1
,,,,
[Bioinformatics],,,,
Sample_Project,QiitaID,BarcodesAreRC,ForwardAdapter,ReverseAdapter
Feist_11661,11661,False,AACC,GGTT
Gerwick_6123,6123,False,AACC,GGTT
,,,,
[Contact],,,,
Sample_Project,Email,,,
Feist_11661,a@b.c,,,
`

func writeFile(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))
	return path
}

func TestReadSampleSheet(t *testing.T) {
	sheet, err := ReadSampleSheet(writeFile(t, "run.csv", sheetText))
	require.NoError(t, err)

	assert.Equal(t, []Project{{Name: "Feist_11661", QiitaID: "11661"}, {Name: "Gerwick_6123", QiitaID: "6123"}}, sheet.Projects)
	assert.Equal(t, []Sample{
		{ID: "sample1", Project: "Feist_11661"},
		{ID: "sample2", Project: "Feist_11661"},
		{ID: "4A", Project: "Gerwick_6123"},
		{ID: "BLANK_1_A", Project: "Gerwick_6123"},
	}, sheet.Samples)
	assert.Equal(t, map[string][]prep.SampleID{
		"Feist_11661":  {"sample1", "sample2"},
		"Gerwick_6123": {"4A", "BLANK_1_A"},
	}, sheet.ByProject())
	assert.Equal(t, []string{"Feist_11661", "Gerwick_6123"}, sheet.ProjectNames())
}

func TestReadSampleSheetErrors(t *testing.T) {
	t.Run("missing section", func(t *testing.T) {
		_, err := ReadSampleSheet(writeFile(t, "run.csv", "[Data]\nSample_ID,Sample_Project\ns1,P_1\n"))
		assert.ErrorContains(t, err, "[Bioinformatics]")
	})

	t.Run("unknown project", func(t *testing.T) {
		text := "[Data]\nSample_ID,Sample_Project\ns1,Other_2\n[Bioinformatics]\nSample_Project,QiitaID\nP_1,1\n"
		_, err := ReadSampleSheet(writeFile(t, "run.csv", text))
		assert.ErrorContains(t, err, "Other_2")
	})

	t.Run("sample in two projects", func(t *testing.T) {
		text := "[Data]\nSample_ID,Sample_Project\ns1,P_1\ns1,Q_2\n[Bioinformatics]\nSample_Project,QiitaID\nP_1,1\nQ_2,2\n"
		_, err := ReadSampleSheet(writeFile(t, "run.csv", text))
		var dup *prep.DuplicateIdentifierError
		assert.ErrorAs(t, err, &dup)
	})

	t.Run("missing file", func(t *testing.T) {
		_, err := ReadSampleSheet(filepath.Join(t.TempDir(), "nope.csv"))
		assert.ErrorIs(t, err, os.ErrNotExist)
	})
}

func TestReadMappingFile(t *testing.T) {
	t.Run("tab delimited", func(t *testing.T) {
		text := "sample_name\tbarcode\tproject_name\tqiita_study_id\n" +
			"s.1\tAAAA\tStudyA_10317\t10317\n" +
			"s.2\tCCCC\tStudyA_10317\t10317\n" +
			"BLANK.1\tGGGG\tStudyB_11661\t11661\n"
		sheet, err := ReadMappingFile(writeFile(t, "map.tsv", text))
		require.NoError(t, err)
		assert.Equal(t, []Project{{Name: "StudyA_10317", QiitaID: "10317"}, {Name: "StudyB_11661", QiitaID: "11661"}}, sheet.Projects)
		assert.Equal(t, []prep.SampleID{"s.1", "s.2"}, sheet.ByProject()["StudyA_10317"])
	})

	t.Run("comma delimited", func(t *testing.T) {
		text := "sample_name,project_name,qiita_study_id\ns.1,StudyA_10317,10317\n"
		sheet, err := ReadMappingFile(writeFile(t, "map.csv", text))
		require.NoError(t, err)
		assert.Len(t, sheet.Samples, 1)
	})

	t.Run("conflicting qiita ids", func(t *testing.T) {
		text := "sample_name\tproject_name\tqiita_study_id\ns.1\tA_1\t1\ns.2\tA_1\t2\n"
		_, err := ReadMappingFile(writeFile(t, "map.tsv", text))
		assert.ErrorContains(t, err, "qiita ids")
	})

	t.Run("missing project column", func(t *testing.T) {
		text := "sample_name\tbarcode\ns.1\tAAAA\n"
		_, err := ReadMappingFile(writeFile(t, "map.tsv", text))
		var malformed *prep.MalformedTableError
		assert.ErrorAs(t, err, &malformed)
	})
}
