package quiz

import (
	"testing"

	"github.com/google/uuid"
)

func TestGradeAllCorrect(t *testing.T) {
	q1 := Question{ID: uuid.New(), CorrectOptionIDs: []uuid.UUID{uuid.New()}}
	q2 := Question{ID: uuid.New(), CorrectOptionIDs: []uuid.UUID{uuid.New(), uuid.New()}}
	answers := []Answer{
		{QuestionID: q1.ID, SelectedOptionIDs: q1.CorrectOptionIDs},
		{QuestionID: q2.ID, SelectedOptionIDs: []uuid.UUID{q2.CorrectOptionIDs[1], q2.CorrectOptionIDs[0]}},
	}
	result := Grade([]Question{q1, q2}, answers, 2)
	if result.Score != 1 || result.CorrectCount != 2 {
		t.Fatalf("expected full score, got %+v", result)
	}
}

func TestGradeNoPartialCredit(t *testing.T) {
	correct := []uuid.UUID{uuid.New(), uuid.New()}
	q := Question{ID: uuid.New(), CorrectOptionIDs: correct}
	// only one of two correct options selected
	result := Grade([]Question{q}, []Answer{{QuestionID: q.ID, SelectedOptionIDs: correct[:1]}}, 2)
	if result.CorrectCount != 0 {
		t.Fatalf("expected no credit, got %+v", result)
	}
}

func TestGradeExtraSelectionIsWrong(t *testing.T) {
	correct := []uuid.UUID{uuid.New()}
	q := Question{ID: uuid.New(), CorrectOptionIDs: correct}
	selected := append([]uuid.UUID{}, correct...)
	selected = append(selected, uuid.New())
	result := Grade([]Question{q}, []Answer{{QuestionID: q.ID, SelectedOptionIDs: selected}}, 2)
	if result.CorrectCount != 0 {
		t.Fatalf("expected no credit, got %+v", result)
	}
}

func TestGradeUnansweredCountsWrong(t *testing.T) {
	q1 := Question{ID: uuid.New(), CorrectOptionIDs: []uuid.UUID{uuid.New()}}
	q2 := Question{ID: uuid.New(), CorrectOptionIDs: []uuid.UUID{uuid.New()}}
	answers := []Answer{{QuestionID: q1.ID, SelectedOptionIDs: q1.CorrectOptionIDs}}
	result := Grade([]Question{q1, q2}, answers, 2)
	if result.Score != 0.5 || result.CorrectCount != 1 || result.TotalCount != 2 {
		t.Fatalf("unexpected result: %+v", result)
	}
}

func TestGradeRounding(t *testing.T) {
	questions := make([]Question, 3)
	answers := make([]Answer, 0, 1)
	for i := range questions {
		questions[i] = Question{ID: uuid.New(), CorrectOptionIDs: []uuid.UUID{uuid.New()}}
	}
	answers = append(answers, Answer{QuestionID: questions[0].ID, SelectedOptionIDs: questions[0].CorrectOptionIDs})
	result := Grade(questions, answers, 2)
	if result.Score != 0.33 {
		t.Fatalf("expected 0.33, got %v", result.Score)
	}
}
