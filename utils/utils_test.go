package utils

import (
	"context"
	"errors"
	"io"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestReplaceFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "prep.tsv")
	require.NoError(t, os.WriteFile(path, []byte("original\n"), 0600))

	t.Run("success swaps content and keeps mode", func(t *testing.T) {
		err := ReplaceFile(path, func(w io.Writer) error {
			_, err := io.WriteString(w, "rewritten\n")
			return err
		})
		require.NoError(t, err)

		got, err := os.ReadFile(path)
		require.NoError(t, err)
		assert.Equal(t, "rewritten\n", string(got))

		info, err := os.Stat(path)
		require.NoError(t, err)
		assert.Equal(t, os.FileMode(0600), info.Mode().Perm())
	})

	t.Run("failure leaves original and no temp files", func(t *testing.T) {
		boom := errors.New("boom")
		err := ReplaceFile(path, func(w io.Writer) error {
			_, _ = io.WriteString(w, "half")
			return boom
		})
		assert.ErrorIs(t, err, boom)

		got, err := os.ReadFile(path)
		require.NoError(t, err)
		assert.Equal(t, "rewritten\n", string(got))

		entries, err := os.ReadDir(dir)
		require.NoError(t, err)
		assert.Len(t, entries, 1)
	})
}

func TestRunBashCmdVerbose(t *testing.T) {
	if err := CheckDeps("bash"); err != nil {
		t.Skip(err)
	}
	out := filepath.Join(t.TempDir(), "touched")

	require.NoError(t, RunBashCmdVerbose(context.Background(), "touch "+out))
	assert.FileExists(t, out)

	assert.Error(t, RunBashCmdVerbose(context.Background(), "exit 3"))
}

func TestCheckDeps(t *testing.T) {
	assert.Error(t, CheckDeps("definitely-not-a-real-binary-klp"))
}
