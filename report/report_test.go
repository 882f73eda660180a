package report

import (
	"bytes"
	"testing"

	"github.com/gmaffy/klp/ledger"
	"github.com/gmaffy/klp/reconcile"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStageCounts(t *testing.T) {
	rows := []ledger.Row{
		{Project: "Gerwick_6123", SampleID: "3A", FailedAt: "ConvertJob"},
		{Project: "Gerwick_6123", SampleID: "4A", FailedAt: "QCJob"},
		{Project: "Feist_11661", SampleID: "s1", FailedAt: "QCJob"},
	}
	assert.Equal(t, map[string]int{"ConvertJob": 1, "QCJob": 2}, StageCounts(rows))
	assert.Empty(t, StageCounts(nil))
}

func TestRenderSummary(t *testing.T) {
	results := []reconcile.Result{
		{Project: "Gerwick_6123", RegistryID: "6123", LocalSampleCount: 5, SamplesNotInRegistry: []string{"7A"}, RegistrySampleCount: 4},
		{Project: "NYU_BMS_Melanoma_13059", RegistryID: "13059", UsesAliases: true, LocalSampleCount: 5, RegistrySampleCount: 5},
	}
	failures := []ledger.Row{{Project: "Gerwick_6123", SampleID: "7A", FailedAt: "QCJob"}}

	var buf bytes.Buffer
	require.NoError(t, RenderSummary(&buf, results, failures))

	html := buf.String()
	assert.Contains(t, html, "Run summary")
	assert.Contains(t, html, "Samples per project")
	assert.Contains(t, html, "Failed samples per stage")
	assert.Contains(t, html, "NYU_BMS_Melanoma_13059")
}
