package ingest

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/joseph-ayodele/marksheet-extractor/constants"
	"github.com/joseph-ayodele/marksheet-extractor/internal/async"
	"github.com/joseph-ayodele/marksheet-extractor/internal/common"
)

// FSIngestor reads marksheets from the local filesystem and enqueues them.
// Files whose content was already ingested are skipped.
type FSIngestor struct {
	queue       async.Queue
	validator   *common.FileValidator
	allowedExts map[string]struct{}
	logger      *slog.Logger

	mu   sync.Mutex
	seen map[string]struct{} // sha256 hex
}

// NewFSIngestor builds an ingestor. A nil validator skips file checks.
func NewFSIngestor(q async.Queue, v *common.FileValidator, allowedExts []string, logger *slog.Logger) *FSIngestor {
	if logger == nil {
		logger = slog.Default()
	}
	return &FSIngestor{
		queue:       q,
		validator:   v,
		allowedExts: ExtSet(allowedExts),
		logger:      logger,
		seen:        map[string]struct{}{},
	}
}

func (i *FSIngestor) allowed(path string) bool {
	_, ok := i.allowedExts[constants.NormalizeExt(filepath.Ext(path))]
	return ok
}

func (i *FSIngestor) IngestPath(ctx context.Context, path string) (IngestionResult, error) {
	out := IngestionResult{SourcePath: path}

	abs, err := filepath.Abs(path)
	if err != nil {
		return out, fmt.Errorf("abs path: %w", err)
	}
	out.SourcePath = abs
	out.FileExt = constants.NormalizeExt(filepath.Ext(abs))
	if out.FileExt == "" || !i.allowed(abs) {
		return out, fmt.Errorf("unsupported or missing extension: %q", out.FileExt)
	}

	data, err := os.ReadFile(abs)
	if err != nil {
		return out, fmt.Errorf("read: %w", err)
	}
	out.Size = len(data)

	sum := sha256.Sum256(data)
	out.HashHex = hex.EncodeToString(sum[:])

	i.mu.Lock()
	_, dup := i.seen[out.HashHex]
	i.mu.Unlock()
	if dup {
		out.Deduplicated = true
		i.logger.Info("ingest.dedup", "path", abs, "sha256", out.HashHex)
		return out, nil
	}

	if i.validator != nil {
		if err := i.validator.Validate(abs, data); err != nil {
			return out, err
		}
	}

	out.JobID = uuid.New()
	job := async.Job{ID: out.JobID, Filename: abs, Data: data, SubmittedAt: time.Now()}
	if err := i.queue.Enqueue(ctx, job); err != nil {
		return out, fmt.Errorf("enqueue: %w", err)
	}

	i.mu.Lock()
	i.seen[out.HashHex] = struct{}{}
	i.mu.Unlock()

	i.logger.Info("ingest.enqueued", "path", abs, "job_id", out.JobID, "size", out.Size)
	return out, nil
}

// IngestDirectory walks root, skips hidden entries if requested,
// and calls IngestPath for each file. Returns per-file results + aggregate stats.
func (i *FSIngestor) IngestDirectory(ctx context.Context, root string, skipHidden bool) ([]IngestionResult, DirStats, error) {
	if strings.TrimSpace(root) == "" {
		return nil, DirStats{}, errors.New("root path is required")
	}

	var results []IngestionResult
	var stats DirStats

	err := filepath.WalkDir(root, func(path string, d fs.DirEntry, walkErr error) error {
		if err := ctx.Err(); err != nil {
			return err
		}
		stats.Scanned++
		if walkErr != nil {
			results = append(results, IngestionResult{SourcePath: path, Err: walkErr.Error()})
			stats.Failed++
			return nil
		}
		if skipHidden && path != root && IsHidden(path) {
			if d.IsDir() {
				return filepath.SkipDir
			}
			return nil
		}
		if d.IsDir() || !i.allowed(path) {
			return nil
		}
		stats.Matched++

		r, err := i.IngestPath(ctx, path)
		if err != nil {
			r.Err = err.Error()
			results = append(results, r)
			stats.Failed++
			return nil
		}

		results = append(results, r)
		stats.Succeeded++
		if r.Deduplicated {
			stats.Deduplicated++
		}
		return nil
	})

	if err != nil {
		return results, stats, fmt.Errorf("walk: %w", err)
	}
	return results, stats, nil
}

// CollectFiles expands paths into the supported files they name. Directories
// are walked (hidden entries skipped); files are kept as given. The result is
// sorted and free of duplicates.
func CollectFiles(paths []string, allowedExts []string) ([]string, error) {
	exts := ExtSet(allowedExts)
	set := map[string]struct{}{}
	for _, p := range paths {
		info, err := os.Stat(p)
		if err != nil {
			return nil, err
		}
		if !info.IsDir() {
			set[p] = struct{}{}
			continue
		}
		err = filepath.WalkDir(p, func(path string, d fs.DirEntry, walkErr error) error {
			if walkErr != nil {
				return walkErr
			}
			if path != p && IsHidden(path) {
				if d.IsDir() {
					return filepath.SkipDir
				}
				return nil
			}
			if d.IsDir() {
				return nil
			}
			if _, ok := exts[constants.NormalizeExt(filepath.Ext(path))]; ok {
				set[path] = struct{}{}
			}
			return nil
		})
		if err != nil {
			return nil, fmt.Errorf("walk %s: %w", p, err)
		}
	}

	out := make([]string, 0, len(set))
	for p := range set {
		out = append(out, p)
	}
	sort.Strings(out)
	return out, nil
}
