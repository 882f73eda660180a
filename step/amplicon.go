package step

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"golang.org/x/sync/errgroup"
)

const (
	convertJobDir = "ConvertJob"
	qcJobDir      = "QCJob"
)

// FakeAmpliconQC copies the FASTQ files produced by the conversion into
// QCJob/<project>/amplicon and ConvertJob/<project> for every project, so
// later stages find the layout they expect. Undetermined reads are left out.
func (s *Step) FakeAmpliconQC(ctx context.Context) error {
	if s.Kind != AmpliconType {
		return fmt.Errorf("faked QC is only valid for %s runs, not %s", AmpliconType, s.Kind)
	}
	convertDir := filepath.Join(s.OutputPath, convertJobDir)
	fastqs, err := convertedFastqs(convertDir)
	if err != nil {
		return err
	}

	dests := make(map[string][]string, len(s.Projects))
	for _, project := range s.Projects {
		dirs := []string{
			filepath.Join(s.OutputPath, qcJobDir, project, AmpliconType),
			filepath.Join(convertDir, project),
		}
		for _, dir := range dirs {
			if err := os.MkdirAll(dir, 0755); err != nil {
				return err
			}
		}
		dests[project] = dirs
	}

	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(s.workers())
	for _, project := range s.Projects {
		for _, dest := range dests[project] {
			for _, src := range fastqs {
				src, dst := src, filepath.Join(dest, filepath.Base(src))
				g.Go(func() error {
					if err := ctx.Err(); err != nil {
						return err
					}
					return copyFile(src, dst)
				})
			}
		}
		s.Logger.Info("amplicon QC faked", "project", project, "files", len(fastqs))
	}
	return g.Wait()
}

func convertedFastqs(dir string) ([]string, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, err
	}
	var out []string
	for _, e := range entries {
		name := e.Name()
		if !e.Type().IsRegular() || !strings.HasSuffix(name, "fastq.gz") || strings.HasPrefix(name, "Undetermined") {
			continue
		}
		out = append(out, filepath.Join(dir, name))
	}
	return out, nil
}

func copyFile(src, dst string) error {
	in, err := os.Open(src)
	if err != nil {
		return err
	}
	defer in.Close()

	out, err := os.Create(dst)
	if err != nil {
		return err
	}
	if _, err := io.Copy(out, in); err != nil {
		out.Close()
		return fmt.Errorf("copying %s: %w", src, err)
	}
	return out.Close()
}
