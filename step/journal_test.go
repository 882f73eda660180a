package step

import (
	"context"
	"errors"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestJournalSkipsCompletedStages(t *testing.T) {
	path := filepath.Join(t.TempDir(), "klp.journal")
	ctx := context.Background()

	j, err := OpenJournal(path)
	require.NoError(t, err)
	calls := map[string]int{}
	stage := func(name string, err error) func(context.Context) error {
		return func(context.Context) error {
			calls[name]++
			return err
		}
	}
	require.NoError(t, j.Run(ctx, "ConvertJob", stage("ConvertJob", nil)))
	assert.Error(t, j.Run(ctx, "QCJob", stage("QCJob", errors.New("boom"))))
	assert.True(t, j.Done("ConvertJob"))
	assert.False(t, j.Done("QCJob"))
	require.NoError(t, j.Close())

	j, err = OpenJournal(path)
	require.NoError(t, err)
	defer j.Close()
	require.NoError(t, j.Run(ctx, "ConvertJob", stage("ConvertJob", nil)))
	require.NoError(t, j.Run(ctx, "QCJob", stage("QCJob", nil)))

	assert.Equal(t, map[string]int{"ConvertJob": 1, "QCJob": 2}, calls)
	assert.True(t, j.Done("QCJob"))
}
