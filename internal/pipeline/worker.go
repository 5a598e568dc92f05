package pipeline

import (
	"bytes"
	"context"
	"fmt"
	"log/slog"

	"github.com/qqlww1987/KnowFlow-sub000/internal/config"
	"github.com/qqlww1987/KnowFlow-sub000/internal/coordmap"
	"github.com/qqlww1987/KnowFlow-sub000/internal/hierarchy"
	"github.com/qqlww1987/KnowFlow-sub000/internal/parser"
	"github.com/qqlww1987/KnowFlow-sub000/internal/segment"
	"github.com/qqlww1987/KnowFlow-sub000/internal/token"
)

// Worker processes a single document job.
type Worker struct {
	log     *slog.Logger
	cfg     config.Config
	counter *token.Counter
}

func NewWorker(log *slog.Logger, cfg config.Config, counter *token.Counter) *Worker {
	return &Worker{log: log, cfg: cfg, counter: counter}
}

// Process runs the full pipeline for a job.
func (w *Worker) Process(ctx context.Context, job *Job) {
	log := w.log.With("job_id", job.ID, "doc_id", job.DocID)

	// Phase 1: Convert to markdown.
	job.SetStatus(StatusConverting, "converting")
	text, err := w.convert(job)
	if err != nil {
		log.Error("conversion failed", "error", err)
		job.AddError(fmt.Sprintf("convert: %s", err))
		job.SetStatus(StatusFailed, "converting")
		return
	}

	// Phase 2: Segment.
	job.SetStatus(StatusChunking, "chunking")
	chunks, used := segment.Segment(text, w.counter, segment.Options{
		Strategy:     job.Strategy,
		DocID:        job.DocID,
		TargetTokens: job.TargetTokens,
		MinTokens:    job.MinTokens,
		Advanced: segment.AdvancedOptions{
			BoundaryLevels:      w.cfg.BoundaryLevels,
			MaxFactor:           w.cfg.AdvancedMaxFactor,
			MergeFactor:         w.cfg.AdvancedMergeFactor,
			NumberingMaxLen:     w.cfg.NumberingMaxLen,
			NumberingDigitRatio: w.cfg.NumberingDigitRatio,
			NumberingLookahead:  w.cfg.NumberingLookahead,
		},
	})
	if used != job.Strategy {
		log.Warn("structural parse degraded", "requested", job.Strategy, "used", used)
	}
	if len(chunks) == 0 {
		job.AddError("document produced no chunks")
		job.SetStatus(StatusFailed, "chunking")
		return
	}

	res := Result{Chunks: chunks, UsedStrategy: used}

	// Phase 3: Parent hierarchy.
	if job.BuildParents {
		job.SetStatus(StatusGrouping, "grouping")
		res.Parents, res.Relationships = hierarchy.Build(job.DocID, chunks, job.ParentBudget, w.counter)
	}

	// Phase 4: Coordinate mapping, when the caller supplied a layout.
	// One consumed set spans the whole document so elements are claimed
	// at most once, in chunk order.
	if len(job.Layout) > 0 {
		job.SetStatus(StatusMapping, "mapping")
		consumed := coordmap.NewConsumedSet()
		res.Positions = make(map[string][]coordmap.Position)
		for _, c := range chunks {
			if ctx.Err() != nil {
				job.AddError("canceled")
				job.SetStatus(StatusFailed, "mapping")
				return
			}
			if pos := coordmap.Map(c.Content, job.Layout, job.LayoutSystem, consumed); pos != nil {
				res.Positions[c.ID] = pos
			}
		}
		log.Info("coordinate mapping done",
			"chunks", len(chunks),
			"positioned", len(res.Positions),
			"elements_consumed", consumed.Len(),
		)
	}

	job.setResult(res)
	job.SetStatus(StatusCompleted, "done")
	log.Info("job completed", "chunks", len(chunks), "parents", len(res.Parents), "strategy", used)
}

func (w *Worker) convert(job *Job) (string, error) {
	conv, err := parser.ForFile(job.Filename)
	if err != nil {
		return "", err
	}
	if p, ok := conv.(*parser.PDFConverter); ok {
		p.FallbackPdftotext = w.cfg.PDFFallbackPdftotext
	}
	return conv.ToMarkdown(bytes.NewReader(job.FileData()), job.Filename)
}
