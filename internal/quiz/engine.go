package quiz

import (
	"math"

	"github.com/google/uuid"
)

// Question carries the stored correct option set for grading.
type Question struct {
	ID               uuid.UUID
	CorrectOptionIDs []uuid.UUID
}

// Answer is one submitted question response.
type Answer struct {
	QuestionID        uuid.UUID
	SelectedOptionIDs []uuid.UUID
}

// QuestionResult reports per-question grading.
type QuestionResult struct {
	QuestionID uuid.UUID `json:"questionId"`
	Correct    bool      `json:"correct"`
}

// GradeResult aggregates an attempt's grading outcome.
type GradeResult struct {
	Score        float64          `json:"score"`
	CorrectCount int              `json:"correctCount"`
	TotalCount   int              `json:"totalCount"`
	Questions    []QuestionResult `json:"questions"`
}

// Grade scores the submitted answers against the quiz questions. A question
// is correct only when the selected option set equals the stored correct set.
// There is no partial credit. Unanswered questions count as wrong.
func Grade(questions []Question, answers []Answer, precision int) GradeResult {
	byQuestion := make(map[uuid.UUID][]uuid.UUID, len(answers))
	for _, a := range answers {
		byQuestion[a.QuestionID] = a.SelectedOptionIDs
	}
	result := GradeResult{
		TotalCount: len(questions),
		Questions:  make([]QuestionResult, 0, len(questions)),
	}
	for _, q := range questions {
		correct := sameSet(q.CorrectOptionIDs, byQuestion[q.ID])
		if correct {
			result.CorrectCount++
		}
		result.Questions = append(result.Questions, QuestionResult{QuestionID: q.ID, Correct: correct})
	}
	if result.TotalCount > 0 {
		result.Score = round(float64(result.CorrectCount)/float64(result.TotalCount), precision)
	}
	return result
}

func sameSet(want, got []uuid.UUID) bool {
	if len(want) == 0 || len(want) != len(got) {
		return len(want) == 0 && len(got) == 0
	}
	set := make(map[uuid.UUID]struct{}, len(want))
	for _, id := range want {
		set[id] = struct{}{}
	}
	if len(set) != len(want) {
		return false
	}
	for _, id := range got {
		if _, ok := set[id]; !ok {
			return false
		}
		delete(set, id)
	}
	return len(set) == 0
}

func round(v float64, precision int) float64 {
	if precision < 0 {
		precision = 0
	}
	factor := math.Pow10(precision)
	return math.Round(v*factor) / factor
}
