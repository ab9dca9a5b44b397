package assessment

import (
	"reflect"
	"testing"
)

func TestKnowledgeLabel(t *testing.T) {
	cases := []struct {
		answer string
		want   KnowledgeLabel
	}{
		{answer: "I used a technical term in my explanation", want: Strong},
		{answer: "technical term", want: Strong},
		{answer: "I used a Technical Term once", want: Weak},
		{answer: "I don't know much", want: Weak},
		{answer: "", want: Weak},
	}

	for _, tc := range cases {
		if got := Knowledge(tc.answer); got != tc.want {
			t.Errorf("Knowledge(%q) = %s, want %s", tc.answer, got, tc.want)
		}
	}
}

func TestCommunicationLabel(t *testing.T) {
	cases := []struct {
		answer string
		want   CommunicationLabel
	}{
		{answer: "I spoke clearly", want: Good},
		{answer: "it was unclear", want: Good},
		{answer: "CLEAR", want: NeedsImprovement},
		{answer: "", want: NeedsImprovement},
	}

	for _, tc := range cases {
		if got := Communication(tc.answer); got != tc.want {
			t.Errorf("Communication(%q) = %s, want %s", tc.answer, got, tc.want)
		}
	}
}

func TestScoreMapping(t *testing.T) {
	knowledge := map[KnowledgeLabel]int{
		Strong:   5,
		Moderate: 3,
		Weak:     2,
		"":       2,
		"other":  2,
	}
	for label, want := range knowledge {
		if got := KnowledgeScore(label); got != want {
			t.Errorf("KnowledgeScore(%q) = %d, want %d", label, got, want)
		}
	}

	communication := map[CommunicationLabel]int{
		Good:             5,
		NeedsImprovement: 3,
		"":               2,
		"poor":           2,
	}
	for label, want := range communication {
		if got := CommunicationScore(label); got != want {
			t.Errorf("CommunicationScore(%q) = %d, want %d", label, got, want)
		}
	}
}

func TestStrongClearAnswerHasNoTips(t *testing.T) {
	a := Assess("I used a technical term in my explanation and spoke clearly")
	if a.Knowledge != Strong || a.Communication != Good {
		t.Fatalf("unexpected assessment: %+v", a)
	}

	scores := a.Scores()
	if scores != (Scores{Knowledge: 5, Communication: 5}) {
		t.Fatalf("unexpected scores: %+v", scores)
	}
	if tips := scores.Tips(); len(tips) != 0 {
		t.Fatalf("expected no tips, got %v", tips)
	}
	if got := scores.Summary(); got != "Knowledge: 5/5, Communication: 5/5." {
		t.Fatalf("unexpected summary: %s", got)
	}
}

func TestWeakAnswerOnlyKnowledgeTip(t *testing.T) {
	scores := Assess("I don't know much").Scores()
	if scores != (Scores{Knowledge: 2, Communication: 3}) {
		t.Fatalf("unexpected scores: %+v", scores)
	}

	// communication 3 sits on the threshold and gets no tip
	want := []string{KnowledgeTip}
	if got := scores.Tips(); !reflect.DeepEqual(got, want) {
		t.Fatalf("Tips() = %v, want %v", got, want)
	}
}

func TestTipsBelowThreshold(t *testing.T) {
	got := Scores{Knowledge: 2, Communication: 2}.Tips()
	want := []string{KnowledgeTip, CommunicationTip}
	if !reflect.DeepEqual(got, want) {
		t.Fatalf("Tips() = %v, want %v", got, want)
	}
}
