package pipeline

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"runtime"
	"sort"
	"strings"
	"sync"

	"github.com/xmlforge/xmlmod/pkg/config"
	"github.com/xmlforge/xmlmod/pkg/schema"
)

// BatchSummary aggregates the per-document results of one run.
type BatchSummary struct {
	Processed int
	Modified  int
	Failed    int

	// Failures lists failed documents as "<name>: <status>", sorted.
	Failures []string
}

// ProcessDirectory processes every .xml file in the configured input
// directory through the pipeline, fanning documents out to a bounded
// worker pool. Workers share only the read-only configuration and
// schema; each document's tree, records, and output paths are owned by
// a single worker.
func ProcessDirectory(cfg *config.Config, sch *schema.Schema, logger *slog.Logger) (*BatchSummary, error) {
	entries, err := os.ReadDir(cfg.InputDirectory)
	if err != nil {
		return nil, fmt.Errorf("reading input directory: %w", err)
	}
	if err := os.MkdirAll(cfg.OutputDirectory, 0o755); err != nil {
		return nil, fmt.Errorf("creating output directory: %w", err)
	}

	var files []string
	for _, entry := range entries {
		if entry.IsDir() || !strings.EqualFold(filepath.Ext(entry.Name()), ".xml") {
			continue
		}
		files = append(files, filepath.Join(cfg.InputDirectory, entry.Name()))
	}

	workers := cfg.Workers
	if workers <= 0 {
		workers = runtime.NumCPU()
	}
	if workers > len(files) {
		workers = len(files)
	}

	jobs := make(chan string)
	results := make(chan *DocumentResult, len(files))
	var wg sync.WaitGroup
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for path := range jobs {
				logger.Debug("processing document", "file", path)
				results <- ProcessFile(path, cfg, sch, logger)
			}
		}()
	}
	for _, path := range files {
		jobs <- path
	}
	close(jobs)
	wg.Wait()
	close(results)

	summary := &BatchSummary{}
	for res := range results {
		summary.Processed++
		if res.Modified && res.Status == StatusSuccess {
			summary.Modified++
		}
		if res.Status != StatusSuccess {
			summary.Failed++
			summary.Failures = append(summary.Failures, fmt.Sprintf("%s: %s", filepath.Base(res.Input), res.Status))
			logger.Warn("document failed", "file", res.Input, "status", res.Status.String(), "error", res.Err)
		}
	}
	sort.Strings(summary.Failures)
	return summary, nil
}
