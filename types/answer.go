package types

import "time"

// Answer represents a response to a question.
type Answer struct {
	// ID is the unique identifier of the answer.
	ID string `json:"id"`

	// Content is the rich body of the answer, stored as submitted.
	Content string `json:"content"`

	// QuestionID identifies the question this answer belongs to.
	QuestionID string `json:"question_id"`

	// AuthorID identifies the user who wrote the answer.
	AuthorID string `json:"author_id"`

	// Author is a snapshot of the answering user taken at creation time.
	Author User `json:"author"`

	// Votes is the running vote score. It may go negative.
	Votes int `json:"votes"`

	// IsAccepted is true iff the owning question's AcceptedAnswerID is this ID.
	IsAccepted bool `json:"is_accepted"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}
