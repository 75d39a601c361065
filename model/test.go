package model

import (
	"encoding/json"
	"errors"
	"time"

	"gorm.io/datatypes"
	"gorm.io/gorm"
)

// QuestionKind determines how answers are stored and graded
type QuestionKind string

const (
	QuestionSingleChoice QuestionKind = "single_choice"
	QuestionMultiChoice  QuestionKind = "multi_choice"
)

// Test represents a mock test attached to a course
type Test struct {
	ID          uint           `gorm:"primaryKey" json:"id"`
	CreatedAt   time.Time      `json:"created_at"`
	UpdatedAt   time.Time      `json:"updated_at"`
	DeletedAt   gorm.DeletedAt `gorm:"index" json:"-"`
	CourseID    uint           `gorm:"not null;index" json:"course_id"`
	Title       string         `gorm:"not null" json:"title"`
	Description string         `gorm:"type:text" json:"description"`
	DurationMin int            `gorm:"default:60" json:"duration_min"`

	// Relationships
	Course    Course     `gorm:"foreignKey:CourseID;constraint:OnDelete:CASCADE" json:"-"`
	Questions []Question `gorm:"foreignKey:TestID;constraint:OnDelete:CASCADE" json:"questions,omitempty"`
}

// TableName specifies the table name for Test
func (Test) TableName() string {
	return "tests"
}

// Question represents one question in a test. Options and the correct answer
// are stored as JSON; the answer shape depends on Kind (a single option for
// single_choice, a set of options for multi_choice).
type Question struct {
	ID        uint           `gorm:"primaryKey" json:"id"`
	CreatedAt time.Time      `json:"created_at"`
	UpdatedAt time.Time      `json:"updated_at"`
	DeletedAt gorm.DeletedAt `gorm:"index" json:"-"`
	TestID    uint           `gorm:"not null;index" json:"test_id"`
	Text      string         `gorm:"type:text;not null" json:"text"`
	Kind      QuestionKind   `gorm:"type:varchar(20);not null" json:"kind"`
	Options   datatypes.JSON `gorm:"type:jsonb;not null" json:"options"`
	Answer    datatypes.JSON `gorm:"type:jsonb;not null" json:"-"` // never exposed to students
	Marks     int            `gorm:"default:1" json:"marks"`

	// Relationships
	Test Test `gorm:"foreignKey:TestID;constraint:OnDelete:CASCADE" json:"-"`
}

// TableName specifies the table name for Question
func (Question) TableName() string {
	return "questions"
}

// CorrectAnswer is the tagged answer variant carried by a question: either a
// single option or a set of options, never an untyped field.
type CorrectAnswer struct {
	Single string
	Multi  []string
}

var errBadAnswerShape = errors.New("answer shape does not match question kind")

// DecodeAnswer parses the stored answer JSON according to the question kind
func (q *Question) DecodeAnswer() (CorrectAnswer, error) {
	var ans CorrectAnswer
	switch q.Kind {
	case QuestionSingleChoice:
		if err := json.Unmarshal(q.Answer, &ans.Single); err != nil {
			return ans, errBadAnswerShape
		}
	case QuestionMultiChoice:
		if err := json.Unmarshal(q.Answer, &ans.Multi); err != nil {
			return ans, errBadAnswerShape
		}
	default:
		return ans, errBadAnswerShape
	}
	return ans, nil
}

// Matches grades a submitted answer against the correct one. Multi-choice
// answers are compared as sets.
func (a CorrectAnswer) Matches(kind QuestionKind, single string, multi []string) bool {
	switch kind {
	case QuestionSingleChoice:
		return single != "" && single == a.Single
	case QuestionMultiChoice:
		if len(a.Multi) == 0 {
			return false
		}
		want := make(map[string]struct{}, len(a.Multi))
		for _, opt := range a.Multi {
			want[opt] = struct{}{}
		}
		// Deduplicate the submission; a repeated correct option must not
		// stand in for a missing one
		got := make(map[string]struct{}, len(multi))
		for _, opt := range multi {
			if _, ok := want[opt]; !ok {
				return false
			}
			got[opt] = struct{}{}
		}
		return len(got) == len(want)
	}
	return false
}

// TestResult represents one user's graded attempt at a test
type TestResult struct {
	ID          uint           `gorm:"primaryKey" json:"id"`
	CreatedAt   time.Time      `json:"created_at"`
	UpdatedAt   time.Time      `json:"updated_at"`
	DeletedAt   gorm.DeletedAt `gorm:"index" json:"-"`
	TestID      uint           `gorm:"not null;index" json:"test_id"`
	UserID      uint           `gorm:"not null;index" json:"user_id"`
	Score       int            `gorm:"not null" json:"score"`
	TotalMarks  int            `gorm:"not null" json:"total_marks"`
	Correct     int            `json:"correct"`
	Incorrect   int            `json:"incorrect"`
	Unanswered  int            `json:"unanswered"`
	SubmittedAt time.Time      `gorm:"not null" json:"submitted_at"`

	// Relationships
	Test Test `gorm:"foreignKey:TestID;constraint:OnDelete:CASCADE" json:"test,omitempty"`
	User User `gorm:"foreignKey:UserID;constraint:OnDelete:CASCADE" json:"-"`
}

// TableName specifies the table name for TestResult
func (TestResult) TableName() string {
	return "test_results"
}
