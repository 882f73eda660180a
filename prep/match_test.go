package prep

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMatchPrepFiles(t *testing.T) {
	projects := []string{"Proj_12", "Proj_1234", "Other_55"}

	files, err := MatchPrepFiles([]string{
		"/run/prep/Proj_1234/1.Proj_1234.L001.tsv",
		"/run/prep/Proj_12/1.Proj_12.L001.tsv",
		"/run/prep/Other_55.tsv",
	}, projects)
	require.NoError(t, err)
	assert.Equal(t, []PrepFile{
		{Path: "/run/prep/Proj_1234/1.Proj_1234.L001.tsv", Project: "Proj_1234"},
		{Path: "/run/prep/Proj_12/1.Proj_12.L001.tsv", Project: "Proj_12"},
		{Path: "/run/prep/Other_55.tsv", Project: "Other_55"},
	}, files)
}

func TestMatchPrepFilesErrors(t *testing.T) {
	_, err := MatchPrepFiles([]string{"/run/prep/Nobody.tsv"}, []string{"Proj_12"})
	var unmapped *UnmappedProjectError
	require.True(t, errors.As(err, &unmapped))
	assert.Equal(t, "/run/prep/Nobody.tsv", unmapped.Path)

	_, err = MatchPrepFiles([]string{"/run/AB_1/CD_1.tsv"}, []string{"CD_1", "AB_1"})
	var ambiguous *AmbiguousProjectError
	require.True(t, errors.As(err, &ambiguous))
	assert.Equal(t, []string{"AB_1", "CD_1"}, ambiguous.Candidates)
}
