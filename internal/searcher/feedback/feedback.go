// Package feedback is the seam for relevance feedback: users mark returned
// documents as relevant or not, and later queries are re-weighted from those
// judgements. Only the no-op implementation exists today.
package feedback

import (
	"context"

	"github.com/Adithya-Monish-Kumar-K/Text-Retrieval-Core/internal/searcher/parser"
)

// Judgement marks one returned document as relevant or irrelevant to a query.
type Judgement struct {
	DocID    int  `json:"doc_id"`
	Relevant bool `json:"relevant"`
}

// RelevanceFeedback adjusts query scoring from recorded judgements.
type RelevanceFeedback interface {
	// Record stores judgements made against the results of plan.
	Record(ctx context.Context, plan *parser.QueryPlan, judgements []Judgement) error
	// Adjust returns the plan to score in place of plan. Implementations may
	// add, drop or re-weight terms but must not modify plan itself.
	Adjust(ctx context.Context, plan *parser.QueryPlan) (*parser.QueryPlan, error)
}

// Noop discards judgements and leaves every plan unchanged.
type Noop struct{}

func (Noop) Record(context.Context, *parser.QueryPlan, []Judgement) error {
	return nil
}

func (Noop) Adjust(_ context.Context, plan *parser.QueryPlan) (*parser.QueryPlan, error) {
	return plan, nil
}
