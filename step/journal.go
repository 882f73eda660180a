package step

import (
	"bufio"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"strings"
	"sync"
)

const completedMsg = "Completed"

// Journal is an append-only JSON log of stages. Stages logged as completed
// by an earlier run are skipped by Run.
type Journal struct {
	file   *os.File
	logger *slog.Logger

	mu        sync.Mutex
	completed map[string]struct{}
}

// OpenJournal reads the completed stages from path and opens it for
// appending.
func OpenJournal(path string) (*Journal, error) {
	completed, err := readCompletedStages(path)
	if err != nil {
		return nil, err
	}
	file, err := os.OpenFile(path, os.O_RDWR|os.O_CREATE|os.O_APPEND, 0644)
	if err != nil {
		return nil, fmt.Errorf("opening journal: %w", err)
	}
	logger := slog.New(slog.NewJSONHandler(file, &slog.HandlerOptions{
		AddSource: true,
		Level:     slog.LevelInfo,
	}))
	return &Journal{file: file, logger: logger, completed: completed}, nil
}

// Done reports whether stage has completed.
func (j *Journal) Done(stage string) bool {
	j.mu.Lock()
	defer j.mu.Unlock()
	_, ok := j.completed[stage]
	return ok
}

// Run runs fn unless stage already completed. A stage is only marked
// completed when fn returns nil.
func (j *Journal) Run(ctx context.Context, stage string, fn func(ctx context.Context) error) error {
	if j.Done(stage) {
		j.logger.Info("Skipping (already completed)", "stage", stage)
		return nil
	}
	j.logger.Info("Starting", "stage", stage)
	if err := fn(ctx); err != nil {
		j.logger.Error("Failed", "stage", stage, "error", err)
		return fmt.Errorf("stage %s: %w", stage, err)
	}
	j.logger.Info(completedMsg, "stage", stage)

	j.mu.Lock()
	j.completed[stage] = struct{}{}
	j.mu.Unlock()
	return nil
}

// Close closes the journal file.
func (j *Journal) Close() error {
	return j.file.Close()
}

func readCompletedStages(path string) (map[string]struct{}, error) {
	completed := make(map[string]struct{})
	file, err := os.Open(path)
	if errors.Is(err, os.ErrNotExist) {
		return completed, nil
	}
	if err != nil {
		return nil, fmt.Errorf("reading journal: %w", err)
	}
	defer file.Close()

	scanner := bufio.NewScanner(file)
	for scanner.Scan() {
		var entry struct {
			Level string `json:"level"`
			Msg   string `json:"msg"`
			Stage string `json:"stage"`
		}
		if err := json.Unmarshal(scanner.Bytes(), &entry); err != nil {
			continue
		}
		if entry.Level == "INFO" && strings.HasPrefix(entry.Msg, completedMsg) && entry.Stage != "" {
			completed[entry.Stage] = struct{}{}
		}
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("scanning journal: %w", err)
	}
	return completed, nil
}
