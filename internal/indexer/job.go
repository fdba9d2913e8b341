package indexer

import (
	"context"
	"fmt"
	"log/slog"
	"path/filepath"
	"time"

	"github.com/harinath-reddy-b/ally-legal-assistant-dev/internal/config"
	"github.com/harinath-reddy-b/ally-legal-assistant-dev/internal/source"
)

// IndexResult contains statistics about a folder run.
type IndexResult struct {
	TotalDocs int
	Indexed   int
	Records   int
	// Skipped holds files left alone because they were already indexed.
	Skipped    []string
	FailedDocs []FailedDoc
	// Cancelled is set when the run stopped early; files after the one in
	// flight were not touched.
	Cancelled bool
	Duration  time.Duration
}

// FailedDoc is a file that needs reprocessing.
type FailedDoc struct {
	Filename string
	Reason   string
}

// JobOptions tune a single document run.
type JobOptions struct {
	// Force re-indexes files that already have records.
	Force bool
	// Mode overrides the configured indexing mode when set.
	Mode string
}

// Job walks the configured folders and feeds every file through the
// document or policy pipeline. One file is processed at a time; a cancelled
// context stops the run after the file in flight has been uploaded.
type Job struct {
	documents *DocumentPipeline
	policies  *PolicyPipeline
	cfg       config.IndexingConfig
	list      func(dir string) ([]string, error)
	read      func(path string) ([]string, error)
	logger    *slog.Logger
}

// NewJob creates a folder job. Either pipeline may be nil when only the other
// folder is indexed.
func NewJob(documents *DocumentPipeline, policies *PolicyPipeline, cfg config.IndexingConfig, logger *slog.Logger) *Job {
	if logger == nil {
		logger = slog.Default()
	}
	return &Job{
		documents: documents,
		policies:  policies,
		cfg:       cfg,
		list:      source.List,
		read:      source.Paragraphs,
		logger:    logger,
	}
}

// IndexDocuments indexes every supported file of the document folder.
func (j *Job) IndexDocuments(ctx context.Context, opts JobOptions) (*IndexResult, error) {
	if j.documents == nil {
		return nil, fmt.Errorf("document pipeline not configured")
	}
	mode := opts.Mode
	if mode == "" {
		mode = j.cfg.Mode
	}
	if mode != config.ModeChunk && mode != config.ModeParagraph {
		return nil, fmt.Errorf("unknown indexing mode %q", mode)
	}
	skip := j.cfg.SkipIndexed && !opts.Force

	return j.run(ctx, j.cfg.DocumentFolder, func(ctx context.Context, name string, paras []string, res *IndexResult) error {
		if skip {
			indexed, err := j.documents.IsIndexed(ctx, name)
			if err != nil {
				return fmt.Errorf("check indexed: %w", err)
			}
			if indexed {
				j.logger.Info("Skipping already indexed document", "filename", name)
				res.Skipped = append(res.Skipped, name)
				return nil
			}
		}

		var (
			doc *IndexedDocument
			err error
		)
		if mode == config.ModeParagraph {
			doc, err = j.documents.IndexParagraphs(ctx, name, paras)
		} else {
			doc, err = j.documents.IndexDocument(ctx, name, source.Text(paras))
		}
		if err != nil {
			return err
		}
		if !doc.Confirmed {
			return fmt.Errorf("upload incomplete: %d of %d records stored", doc.Uploaded, doc.Records)
		}
		res.Indexed++
		res.Records += doc.Records
		return nil
	})
}

// IndexPolicies indexes every supported file of the policy folder. Policies
// have no existence check, so re-running creates duplicates.
func (j *Job) IndexPolicies(ctx context.Context) (*IndexResult, error) {
	if j.policies == nil {
		return nil, fmt.Errorf("policy pipeline not configured")
	}
	return j.run(ctx, j.cfg.PolicyFolder, func(ctx context.Context, name string, paras []string, res *IndexResult) error {
		pol, err := j.policies.IndexPolicy(ctx, name, source.Text(paras))
		if err != nil {
			return err
		}
		if !pol.Confirmed {
			return fmt.Errorf("upload failed for policy %s", pol.Policy.ID)
		}
		res.Indexed++
		res.Records++
		return nil
	})
}

type fileFunc func(ctx context.Context, name string, paragraphs []string, res *IndexResult) error

func (j *Job) run(ctx context.Context, dir string, process fileFunc) (*IndexResult, error) {
	start := time.Now()
	names, err := j.list(dir)
	if err != nil {
		return nil, fmt.Errorf("list documents: %w", err)
	}
	res := &IndexResult{TotalDocs: len(names)}
	j.logger.Info("Found documents", "folder", dir, "count", len(names))

	// The file in flight finishes even if ctx is cancelled meanwhile.
	work := context.WithoutCancel(ctx)

	for _, name := range names {
		if ctx.Err() != nil {
			res.Cancelled = true
			j.logger.Warn("Run cancelled, stopping before next file", "next", name)
			break
		}

		paras, err := j.read(filepath.Join(dir, name))
		if err == nil {
			err = process(work, name, paras, res)
		}
		if err != nil {
			j.logger.Warn("Failed to process document", "filename", name, "error", err)
			res.FailedDocs = append(res.FailedDocs, FailedDoc{Filename: name, Reason: err.Error()})
		}
	}

	res.Duration = time.Since(start)
	j.logger.Info("Indexing complete",
		"indexed", res.Indexed,
		"skipped", len(res.Skipped),
		"failed", len(res.FailedDocs),
		"records", res.Records,
		"cancelled", res.Cancelled,
		"duration", res.Duration,
	)
	return res, nil
}
