package segment

import (
	"strings"

	"github.com/qqlww1987/KnowFlow-sub000/internal/mdparse"
	"github.com/qqlww1987/KnowFlow-sub000/internal/token"
)

// Options controls a segmentation pass.
type Options struct {
	Strategy     Strategy
	DocID        string
	TargetTokens int // budget per chunk
	MinTokens    int // below this a chunk is considered too small
	Advanced     AdvancedOptions
}

// AdvancedOptions tunes the heading-scoped strategy. Zero values are
// replaced with defaults; the thresholds are empirical and exposed so
// callers can adjust them per corpus.
type AdvancedOptions struct {
	// BoundaryLevels lists heading levels that open a new group.
	BoundaryLevels []int
	// MaxFactor caps chunk size at MaxFactor×target before splitting.
	MaxFactor float64
	// MergeFactor caps a small-chunk merge at MergeFactor×target.
	MergeFactor float64
	// NumberingMaxLen / NumberingDigitRatio / NumberingLookahead control
	// the fold-in of short numbering-only headings ("1.2.3") into the
	// descriptive heading that follows them.
	NumberingMaxLen     int
	NumberingDigitRatio float64
	NumberingLookahead  int
}

func (o *Options) applyDefaults() {
	if o.Strategy == "" {
		o.Strategy = StrategySmart
	}
	if o.TargetTokens <= 0 {
		o.TargetTokens = 512
	}
	if o.MinTokens <= 0 {
		o.MinTokens = 64
	}
	if len(o.Advanced.BoundaryLevels) == 0 {
		o.Advanced.BoundaryLevels = []int{1, 2, 3}
	}
	if o.Advanced.MaxFactor <= 0 {
		o.Advanced.MaxFactor = 1.5
	}
	if o.Advanced.MergeFactor <= 0 {
		o.Advanced.MergeFactor = 1.2
	}
	if o.Advanced.NumberingMaxLen <= 0 {
		o.Advanced.NumberingMaxLen = 12
	}
	if o.Advanced.NumberingDigitRatio <= 0 {
		o.Advanced.NumberingDigitRatio = 0.6
	}
	if o.Advanced.NumberingLookahead <= 0 {
		o.Advanced.NumberingLookahead = 3
	}
}

// Segment splits text into chunks using the requested strategy. The
// returned Strategy is the one actually used: structural parse failures
// degrade smart/advanced to basic instead of failing the document.
func Segment(text string, counter *token.Counter, opts Options) ([]Chunk, Strategy) {
	opts.applyDefaults()
	if strings.TrimSpace(text) == "" {
		return nil, opts.Strategy
	}

	if opts.Strategy == StrategyBasic {
		return assemble(opts.DocID, basicSegment(text, counter, opts.TargetTokens), counter), StrategyBasic
	}

	blocks, err := mdparse.Parse(text)
	if err != nil || len(blocks) == 0 {
		return assemble(opts.DocID, basicSegment(text, counter, opts.TargetTokens), counter), StrategyBasic
	}

	switch opts.Strategy {
	case StrategyAdvanced:
		pieces := advancedSegment(blocks, counter, opts)
		return assemblePieces(opts.DocID, pieces, counter), StrategyAdvanced
	default:
		return assemble(opts.DocID, smartSegment(blocks, counter, opts.TargetTokens, opts.MinTokens), counter), StrategySmart
	}
}

// piece is a rendered chunk candidate carrying repair metadata.
type piece struct {
	content   string
	oversized bool
}

func assemble(docID string, contents []string, counter *token.Counter) []Chunk {
	chunks := make([]Chunk, 0, len(contents))
	for _, c := range contents {
		c = strings.TrimSpace(c)
		if c == "" {
			continue
		}
		chunks = append(chunks, newChunk(docID, len(chunks), c, counter, false))
	}
	return chunks
}

func assemblePieces(docID string, pieces []piece, counter *token.Counter) []Chunk {
	chunks := make([]Chunk, 0, len(pieces))
	for _, p := range pieces {
		c := strings.TrimSpace(p.content)
		if c == "" {
			continue
		}
		chunks = append(chunks, newChunk(docID, len(chunks), c, counter, p.oversized))
	}
	return chunks
}
