package domain

import (
	"strings"
	"time"
)

// NoAnswer is the stored selectedOption value for a question the user skipped.
const NoAnswer = -1

// NoAnswerText is the display sentinel for a skipped question.
const NoAnswerText = "No answer"

const tempUserPrefix = "temp_"

// Stats tracks a user's accumulated quiz results.
type Stats struct {
	TotalScore            int `json:"totalScore"`
	TotalQuizzesCompleted int `json:"totalQuizzesCompleted"`
}

// User is a registered account. Placeholder marks records synthesized for
// temporary user IDs that submitted a quiz without ever registering.
type User struct {
	ID          string `json:"id"`
	Email       string `json:"email"`
	Password    string `json:"password,omitempty"`
	Username    string `json:"username"`
	Avatar      string `json:"avatar,omitempty"` // URL, data URI, or relative path
	Stats       Stats  `json:"stats"`
	Placeholder bool   `json:"placeholder,omitempty"`
}

// Public returns a copy of the user with the password stripped.
func (u User) Public() User {
	u.Password = ""
	return u
}

// IsTemporaryUserID reports whether id follows the ad-hoc user naming
// convention used for quiz takers created outside the registration flow.
func IsTemporaryUserID(id string) bool {
	return strings.HasPrefix(id, tempUserPrefix)
}

// Question models an MCQ question with exactly one correct option.
type Question struct {
	Text          string   `json:"text"`
	Options       []string `json:"options"`
	CorrectAnswer int      `json:"correctAnswer"` // index into Options
}

// Quiz is an ordered collection of questions.
type Quiz struct {
	ID        string     `json:"id"`
	Title     string     `json:"title"`
	Category  string     `json:"category"`
	Questions []Question `json:"questions"`
}

// QuizSummary is the listing projection of a quiz; questions and answers
// are never exposed through it.
type QuizSummary struct {
	ID       string `json:"id"`
	Title    string `json:"title"`
	Category string `json:"category"`
}

// Summary projects the quiz for listings.
func (q Quiz) Summary() QuizSummary {
	return QuizSummary{ID: q.ID, Title: q.Title, Category: q.Category}
}

// Answer records the user's choice for a single question. SelectedOption
// is NoAnswer when the question was skipped.
type Answer struct {
	QuestionIndex  int `json:"questionIndex"`
	SelectedOption int `json:"selectedOption"`
}

// Submission is an immutable scored quiz attempt.
type Submission struct {
	ID          string    `json:"id"`
	UserID      string    `json:"userId"`
	QuizID      string    `json:"quizId"`
	Answers     []Answer  `json:"answers"`
	Score       int       `json:"score"`
	SubmittedAt time.Time `json:"submittedAt"`
}

// SubmitResult is returned from a quiz submission.
type SubmitResult struct {
	Score        int    `json:"score"`
	Total        int    `json:"total"`
	SubmissionID string `json:"submissionId"`
}

// AnswerDetail reconstructs one answered question for the results screen.
type AnswerDetail struct {
	Question       string `json:"question"`
	SelectedAnswer string `json:"selectedAnswer"`
	CorrectAnswer  string `json:"correctAnswer"`
	IsCorrect      bool   `json:"isCorrect"`
}

// SubmissionDetail is the full review of a past submission.
type SubmissionDetail struct {
	Score   int            `json:"score"`
	Total   int            `json:"total"`
	Results []AnswerDetail `json:"results"`
}

// SubmissionSummary is one row in a user's submission history.
type SubmissionSummary struct {
	SubmissionID string    `json:"submissionId"`
	QuizTitle    string    `json:"quizTitle"`
	Score        int       `json:"score"`
	Total        int       `json:"total"`
	SubmittedAt  time.Time `json:"submittedAt"`
}
