package step

import (
	"compress/gzip"
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/biogo/biogo/alphabet"
	"github.com/biogo/biogo/io/seqio"
	"github.com/biogo/biogo/io/seqio/fastq"
	"github.com/biogo/biogo/seq/linear"
	"golang.org/x/sync/errgroup"
	"gonum.org/v1/gonum/stat"
)

// AuditFastq checks that every sample of the run has a non-empty R1 FASTQ
// under dir/<project>/, records the samples that do not under stage, and
// returns their ids in run order.
func (rc *RunContext) AuditFastq(ctx context.Context, dir, stage string) ([]string, error) {
	samples := rc.Ledger.Samples()
	failed := make([]bool, len(samples))
	reads := make([]float64, len(samples))

	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(rc.workers())
	for i, smpl := range samples {
		i, smpl := i, smpl
		g.Go(func() error {
			if err := ctx.Err(); err != nil {
				return err
			}
			path, err := findR1(filepath.Join(dir, smpl.Project), smpl.ID)
			if err != nil {
				return err
			}
			if path == "" {
				rc.Logger.Warn("no R1 fastq found", "sample", smpl.ID, "project", smpl.Project, "stage", stage)
				failed[i] = true
				return nil
			}
			n, err := CountReads(path)
			if err != nil {
				rc.Logger.Warn("unreadable fastq", "sample", smpl.ID, "path", path, "error", err)
				failed[i] = true
				return nil
			}
			if n == 0 {
				rc.Logger.Warn("empty fastq", "sample", smpl.ID, "path", path)
				failed[i] = true
			}
			reads[i] = float64(n)
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	var ids []string
	var passed []float64
	for i, f := range failed {
		if f {
			ids = append(ids, samples[i].ID)
			continue
		}
		passed = append(passed, reads[i])
	}
	if err := rc.Fail(ids, stage); err != nil {
		return ids, fmt.Errorf("writing failure report: %w", err)
	}
	attrs := []any{"stage", stage, "samples", len(samples), "failed", len(ids)}
	if len(passed) > 0 {
		mean, std := stat.MeanStdDev(passed, nil)
		attrs = append(attrs, "mean_reads", mean, "stddev_reads", std)
	}
	rc.Logger.Info("fastq audit finished", attrs...)
	return ids, nil
}

// findR1 returns the first R1 file of sample in dir, or "" when there is
// none. A missing directory counts as no file.
func findR1(dir, sample string) (string, error) {
	matches, err := filepath.Glob(filepath.Join(dir, sample+"_S*_R1_*.fastq*"))
	if err != nil {
		return "", err
	}
	if len(matches) == 0 {
		return "", nil
	}
	return matches[0], nil
}

// CountReads returns the number of records in a FASTQ file, gzipped or not.
func CountReads(path string) (int, error) {
	f, err := os.Open(path)
	if err != nil {
		return 0, err
	}
	defer f.Close()

	var r io.Reader = f
	if strings.HasSuffix(path, ".gz") {
		gz, err := gzip.NewReader(f)
		if err != nil {
			return 0, err
		}
		defer gz.Close()
		r = gz
	}

	sc := seqio.NewScanner(fastq.NewReader(r, linear.NewQSeq("", nil, alphabet.DNA, alphabet.Sanger)))
	n := 0
	for sc.Next() {
		n++
	}
	if err := sc.Error(); err != nil {
		return n, err
	}
	return n, nil
}
