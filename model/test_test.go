package model

import (
	"testing"

	"gorm.io/datatypes"
)

func TestDecodeAnswerSingleChoice(t *testing.T) {
	q := Question{
		Kind:   QuestionSingleChoice,
		Answer: datatypes.JSON([]byte(`"B"`)),
	}

	ans, err := q.DecodeAnswer()
	if err != nil {
		t.Fatalf("DecodeAnswer failed: %v", err)
	}
	if ans.Single != "B" {
		t.Errorf("expected single answer B, got %q", ans.Single)
	}
}

func TestDecodeAnswerMultiChoice(t *testing.T) {
	q := Question{
		Kind:   QuestionMultiChoice,
		Answer: datatypes.JSON([]byte(`["A","C"]`)),
	}

	ans, err := q.DecodeAnswer()
	if err != nil {
		t.Fatalf("DecodeAnswer failed: %v", err)
	}
	if len(ans.Multi) != 2 || ans.Multi[0] != "A" || ans.Multi[1] != "C" {
		t.Errorf("expected multi answer [A C], got %v", ans.Multi)
	}
}

func TestDecodeAnswerShapeMismatch(t *testing.T) {
	// A single_choice question carrying an array is a data error
	q := Question{
		Kind:   QuestionSingleChoice,
		Answer: datatypes.JSON([]byte(`["A","C"]`)),
	}
	if _, err := q.DecodeAnswer(); err == nil {
		t.Error("expected error for mismatched answer shape")
	}

	q = Question{
		Kind:   QuestionMultiChoice,
		Answer: datatypes.JSON([]byte(`"A"`)),
	}
	if _, err := q.DecodeAnswer(); err == nil {
		t.Error("expected error for mismatched answer shape")
	}
}

func TestMatchesSingleChoice(t *testing.T) {
	ans := CorrectAnswer{Single: "B"}

	if !ans.Matches(QuestionSingleChoice, "B", nil) {
		t.Error("expected matching single answer to grade correct")
	}
	if ans.Matches(QuestionSingleChoice, "A", nil) {
		t.Error("expected wrong single answer to grade incorrect")
	}
	if ans.Matches(QuestionSingleChoice, "", nil) {
		t.Error("expected empty answer to grade incorrect")
	}
}

func TestMatchesMultiChoiceIsSetComparison(t *testing.T) {
	ans := CorrectAnswer{Multi: []string{"A", "C"}}

	cases := []struct {
		name      string
		submitted []string
		want      bool
	}{
		{"exact order", []string{"A", "C"}, true},
		{"reversed order", []string{"C", "A"}, true},
		{"missing option", []string{"A"}, false},
		{"extra option", []string{"A", "C", "D"}, false},
		{"wrong option", []string{"A", "B"}, false},
		{"duplicated correct option", []string{"A", "A"}, false},
		{"duplicates alongside full set", []string{"A", "A", "C"}, true},
		{"empty", nil, false},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if got := ans.Matches(QuestionMultiChoice, "", tc.submitted); got != tc.want {
				t.Errorf("Matches(%v) = %v, want %v", tc.submitted, got, tc.want)
			}
		})
	}
}

func TestMatchesWrongKind(t *testing.T) {
	ans := CorrectAnswer{Single: "A"}
	if ans.Matches("essay", "A", nil) {
		t.Error("expected unknown kind to grade incorrect")
	}
}
