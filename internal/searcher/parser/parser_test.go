package parser

import (
	"reflect"
	"testing"

	"github.com/Adithya-Monish-Kumar-K/Text-Retrieval-Core/internal/indexer/tokenizer"
)

func TestParse(t *testing.T) {
	pre := tokenizer.NewDefault()
	plan := Parse(pre, "Running dogs and the running of dogs")
	if plan.RawQuery != "Running dogs and the running of dogs" {
		t.Errorf("RawQuery = %q", plan.RawQuery)
	}
	if !reflect.DeepEqual(plan.Terms, []string{"dog", "run"}) {
		t.Errorf("Terms = %v", plan.Terms)
	}
	if plan.Stats["run"].Count != 2 || plan.Stats["dog"].Count != 2 {
		t.Errorf("Stats = %v", plan.Stats)
	}
	if got := plan.Canonical(); got != "dog:2 run:2" {
		t.Errorf("Canonical = %q", got)
	}
}

func TestParseEmpty(t *testing.T) {
	pre := tokenizer.NewDefault()
	for _, q := range []string{"", "   ", "the and of", "!!!"} {
		plan := Parse(pre, q)
		if !plan.Empty() || plan.Canonical() != "" {
			t.Errorf("Parse(%q) = %+v, want empty plan", q, plan)
		}
	}
}

func TestCanonicalIgnoresWordOrder(t *testing.T) {
	pre := tokenizer.NewDefault()
	a := Parse(pre, "park dogs")
	b := Parse(pre, "DOGS, park!")
	if a.Canonical() != b.Canonical() {
		t.Errorf("canonical forms differ: %q vs %q", a.Canonical(), b.Canonical())
	}
}
