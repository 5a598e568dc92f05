package pipeline

import (
	"context"
	"io"
	"log/slog"
	"strings"
	"testing"

	"github.com/qqlww1987/KnowFlow-sub000/internal/config"
	"github.com/qqlww1987/KnowFlow-sub000/internal/coordmap"
	"github.com/qqlww1987/KnowFlow-sub000/internal/segment"
	"github.com/qqlww1987/KnowFlow-sub000/internal/token"
)

func testWorker() *Worker {
	log := slog.New(slog.NewTextHandler(io.Discard, nil))
	cfg := config.Config{BoundaryLevels: []int{1, 2, 3}}
	return NewWorker(log, cfg, token.NewCounter())
}

func TestWorker_ProcessMarkdownEndToEnd(t *testing.T) {
	job := &Job{
		ID:           "test-job",
		DocID:        "doc-1",
		Filename:     "report.md",
		Strategy:     segment.StrategySmart,
		TargetTokens: 60,
		MinTokens:    5,
		ParentBudget: 200,
		BuildParents: true,
	}
	job.SetFileData([]byte("# Report\n\n" + strings.Repeat("finding text here. ", 40) +
		"\n\n## Appendix\n\n" + strings.Repeat("appendix note. ", 40)))

	testWorker().Process(context.Background(), job)

	if job.Status != StatusCompleted {
		t.Fatalf("expected completed, got %s (%v)", job.Status, job.Progress.Errors)
	}
	res := job.Result()
	if res == nil || len(res.Chunks) < 2 {
		t.Fatalf("expected multiple chunks, got %+v", res)
	}
	if len(res.Parents) == 0 || len(res.Relationships) != len(res.Chunks) {
		t.Errorf("hierarchy incomplete: %d parents, %d relationships for %d chunks",
			len(res.Parents), len(res.Relationships), len(res.Chunks))
	}
}

func TestWorker_ProcessWithLayout(t *testing.T) {
	content := "exactly one paragraph of content for coordinate alignment"
	job := &Job{
		ID:           "layout-job",
		DocID:        "doc-2",
		Filename:     "page.md",
		Strategy:     segment.StrategyBasic,
		TargetTokens: 100,
		Layout: []coordmap.LayoutElement{
			{Text: content, BBox: []float64{10, 200, 30, 60}, Page: 0},
		},
		LayoutSystem: coordmap.SystemMinerU,
	}
	job.SetFileData([]byte(content))

	testWorker().Process(context.Background(), job)

	res := job.Result()
	if res == nil {
		t.Fatal("no result")
	}
	if len(res.Positions) != 1 {
		t.Fatalf("expected 1 positioned chunk, got %d", len(res.Positions))
	}
	for _, positions := range res.Positions {
		if positions[0] != (coordmap.Position{0, 10, 200, 30, 60}) {
			t.Errorf("unexpected position %v", positions[0])
		}
	}
}

func TestWorker_UnsupportedFileFails(t *testing.T) {
	job := &Job{ID: "bad", DocID: "d", Filename: "malware.exe"}
	job.SetFileData([]byte("x"))
	testWorker().Process(context.Background(), job)
	if job.Status != StatusFailed {
		t.Errorf("expected failed, got %s", job.Status)
	}
}

func TestOrchestrator_SubmitAssignsID(t *testing.T) {
	log := slog.New(slog.NewTextHandler(io.Discard, nil))
	cfg := config.Config{WorkerCount: 1, MaxQueueSize: 4, BoundaryLevels: []int{1}}
	o := NewOrchestrator(cfg, token.NewCounter(), log)

	job := &Job{DocID: "d", Filename: "a.md", Strategy: segment.StrategyBasic, TargetTokens: 50}
	job.SetFileData([]byte("hello world paragraph"))
	if err := o.Submit(job); err != nil {
		t.Fatalf("submit: %v", err)
	}
	if job.ID == "" {
		t.Error("submit should assign an id")
	}
	if o.Job(job.ID) != job {
		t.Error("job not registered in store")
	}
}
