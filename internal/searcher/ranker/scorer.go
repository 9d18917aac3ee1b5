package ranker

import (
	"fmt"
	"math"

	"github.com/Adithya-Monish-Kumar-K/Text-Retrieval-Core/pkg/config"
	apperrors "github.com/Adithya-Monish-Kumar-K/Text-Retrieval-Core/pkg/errors"
)

// Match carries the statistics of one query term matched in one document.
type Match struct {
	QueryTF        int
	DocTF          int
	DocLen         int
	AvgDocLen      float64
	DocFreq        int
	CollectionDocs float64
}

// Scorer computes the contribution of one matched term to a document score.
// The set of scorers is closed: BM25 and PL2 are the only implementations.
type Scorer interface {
	Name() string
	Score(m Match) float64
	sealed()
}

const (
	NameBM25 = "bm25"
	NamePL2  = "pl2"
)

// BM25 is Okapi BM25 with saturation k and length normalisation weight b.
type BM25 struct {
	K float64
	B float64
}

func DefaultBM25() BM25 {
	return BM25{K: 1.2, B: 0.75}
}

func (BM25) Name() string { return NameBM25 }

// Score returns qtf * (k+1)*tf / (tf + k*norm) * ln((M+1)/df), where norm is
// 1-b + b*dl/avdl and M is Match.CollectionDocs.
func (s BM25) Score(m Match) float64 {
	norm := 1.0 - s.B + s.B*float64(m.DocLen)/m.AvgDocLen
	tf := float64(m.DocTF)
	tfComponent := (s.K + 1.0) * tf / (tf + s.K*norm)
	idf := math.Log((m.CollectionDocs + 1.0) / float64(m.DocFreq))
	return float64(m.QueryTF) * tfComponent * idf
}

func (BM25) sealed() {}

// PL2 is the divergence-from-randomness Poisson model with Laplace after-effect
// and length normalisation 2. It depends only on the document side of the
// match; query frequency, document frequency and collection size are unused.
type PL2 struct {
	C      float64
	Lambda float64
}

func DefaultPL2() PL2 {
	return PL2{C: 7.0, Lambda: 0.1}
}

func (PL2) Name() string { return NamePL2 }

// Score requires DocTF > 0, which holds for every matched term.
func (s PL2) Score(m Match) float64 {
	tfn := float64(m.DocTF) * math.Log2(1+s.C*m.AvgDocLen/float64(m.DocLen))
	return 1.0 / (tfn + 1) * (tfn*math.Log2(tfn/s.Lambda) +
		(s.Lambda+1.0/(12*tfn)-tfn)*math.Log2(math.E) +
		0.5*math.Log2(2*math.Pi*tfn))
}

func (PL2) sealed() {}

// FromConfig returns the scorer called name, parameterised from cfg. An empty
// name selects cfg.Scorer.
func FromConfig(name string, cfg config.SearchConfig) (Scorer, error) {
	if name == "" {
		name = cfg.Scorer
	}
	switch name {
	case NameBM25:
		return BM25{K: cfg.BM25.K, B: cfg.BM25.B}, nil
	case NamePL2:
		return PL2{C: cfg.PL2.C, Lambda: cfg.PL2.Lambda}, nil
	default:
		return nil, fmt.Errorf("%w: %q", apperrors.ErrUnknownScorer, name)
	}
}
