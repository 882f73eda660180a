package cmd

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"

	"github.com/gmaffy/klp/reconcile"
	"github.com/gmaffy/klp/samplesheet"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testSheet = `[Header],,,
IEMFileVersion,4,,
[Data],,,
Sample_ID,Sample_Name,Sample_Project,Lane
3A,3A,Gerwick_6123,1
4A,4A,Gerwick_6123,1
SP331130A04,SP331130A04,NYU_BMS_Melanoma_13059,1
BLANK3.3B,BLANK3.3B,NYU_BMS_Melanoma_13059,1
[Bioinformatics],,,
Sample_Project,QiitaID,BarcodesAreRC,
Gerwick_6123,6123,False,
NYU_BMS_Melanoma_13059,13059,False,
`

const testSnapshot = `projects:
  "6123":
    samples: ["6123.3A", "6123.4A"]
    categories: [host_subject_id]
  "13059":
    samples: ["13059.SP331130A04", "13059.BLANK3.3B"]
    categories: [tube_id]
    aliases:
      tube_id:
        "13059.SP331130A04": ["SP331130A-4"]
`

func write(t *testing.T, path, content string) string {
	t.Helper()
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0755))
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))
	return path
}

func TestRewritePrepCommand(t *testing.T) {
	dir := t.TempDir()
	sheet := write(t, filepath.Join(dir, "run.csv"), testSheet)
	snapshot := write(t, filepath.Join(dir, "registry.yaml"), testSnapshot)
	gerwick := write(t, filepath.Join(dir, "prep", "211021_A00000_0000_SAMPLE.Gerwick_6123.1.tsv"),
		"sample_name\tbarcode\n3A\tAAAA\n4A\tCCCC\n")
	nyu := write(t, filepath.Join(dir, "prep", "211021_A00000_0000_SAMPLE.NYU_BMS_Melanoma_13059.1.tsv"),
		"sample_name\tbarcode\nSP331130A04\tGGGG\nBLANK3.3B\tTTTT\n")
	out := filepath.Join(dir, "out")

	var stdout bytes.Buffer
	rootCmd.SetOut(&stdout)
	rootCmd.SetArgs([]string{"rewrite-prep", "--registry-snapshot", snapshot, "-s", sheet,
		"-d", filepath.Join(dir, "prep"), "-o", out})
	require.NoError(t, rootCmd.Execute())

	got, err := os.ReadFile(gerwick)
	require.NoError(t, err)
	assert.Equal(t, "sample_name\tbarcode\told_sample_name\n3A\tAAAA\t3A\n4A\tCCCC\t4A\n", string(got))

	got, err = os.ReadFile(nyu)
	require.NoError(t, err)
	assert.Equal(t, "sample_name\tbarcode\told_sample_name\nSP331130A-4\tGGGG\tSP331130A04\nBLANK3.3B\tTTTT\tBLANK3.3B\n", string(got))

	assert.Contains(t, stdout.String(), "Gerwick_6123\t"+gerwick)
	assert.FileExists(t, filepath.Join(out, logFileName))
}

func TestMissingSamplesMessage(t *testing.T) {
	assert.Empty(t, missingSamplesMessage([]reconcile.Result{{Project: "Gerwick_6123"}}))

	msg := missingSamplesMessage([]reconcile.Result{
		{Project: "Gerwick_6123", SamplesNotInRegistry: []string{"7A", "8A"}, ExamplesInRegistry: []string{"3A"}},
		{Project: "Feist_11661"},
	})
	assert.Equal(t, "Gerwick_6123: the following samples are not in Qiita: 7A, 8A. Some samples from Qiita: 3A.\n", msg)
}

func TestPrintResults(t *testing.T) {
	var buf bytes.Buffer
	printResults(&buf, []reconcile.Result{{
		Project: "NYU_BMS_Melanoma_13059", RegistryID: "13059", UsesAliases: true,
		LocalSampleCount: 2, AliasedSampleCount: 1, RegistrySampleCount: 2, ExamplesInRegistry: []string{"SP331130A-4"},
	}})
	assert.Equal(t, "NYU_BMS_Melanoma_13059 (13059): 2 local, 2 in Qiita, tube_id aliases: true\n"+
		"  aliased: 1\n"+
		"  e.g. in Qiita: SP331130A-4\n", buf.String())
}

func TestSheetConversions(t *testing.T) {
	sheet := &samplesheet.Sheet{
		Samples:  []samplesheet.Sample{{ID: "3A", Project: "Gerwick_6123"}},
		Projects: []samplesheet.Project{{Name: "Gerwick_6123", QiitaID: "6123"}},
	}
	assert.Equal(t, []reconcile.Project{{Name: "Gerwick_6123", RegistryID: "6123"}}, registryProjects(sheet))
	samples := ledgerSamples(sheet)
	require.Len(t, samples, 1)
	assert.Equal(t, "3A", samples[0].ID)
}

func TestLoadConfigWithoutFileUsesEnv(t *testing.T) {
	t.Setenv("QIITA_URL", "https://qiita.example.org")
	prev := cfgFile
	cfgFile = ""
	t.Cleanup(func() { cfgFile = prev })

	cfg, err := loadConfig()
	require.NoError(t, err)
	assert.Equal(t, "https://qiita.example.org", cfg.Registry.BaseURL)
}
