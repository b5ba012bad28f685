package quiz

import "fmt"

// Grade scores a submission against its stored questions. Every question
// needs an answer slot; clients send -1 for questions the student skipped,
// and those count as wrong.
func Grade(sub Submission) (*Result, error) {
	if len(sub.Questions) == 0 {
		return nil, fmt.Errorf("grade quiz %d: no questions", sub.QuizID)
	}
	if len(sub.Answers) != len(sub.Questions) {
		return nil, fmt.Errorf("grade quiz %d: got %d answers for %d questions",
			sub.QuizID, len(sub.Answers), len(sub.Questions))
	}

	var correct int
	details := make([]QuestionResult, 0, len(sub.Questions))
	for i, q := range sub.Questions {
		answer := sub.Answers[i]
		isCorrect := answer == q.CorrectIndex
		if isCorrect {
			correct++
		}
		details = append(details, QuestionResult{
			Question:      q.Text,
			Options:       q.Options,
			UserAnswer:    answer,
			CorrectAnswer: q.CorrectIndex,
			IsCorrect:     isCorrect,
			Explanation:   q.Explanation,
		})
	}

	score := round2(float64(correct) / float64(len(sub.Questions)) * 100)
	return &Result{
		ID:         sub.QuizID,
		UserID:     sub.UserID,
		Subject:    sub.Subject,
		Topic:      sub.Topic,
		Difficulty: sub.Difficulty,
		Total:      len(sub.Questions),
		Correct:    correct,
		Score:      score,
		Passed:     score >= passThreshold,
		Details:    details,
		TimeTaken:  sub.TimeTaken,
	}, nil
}
