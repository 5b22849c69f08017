package types

import (
	"strings"
	"time"
)

// Question represents an inquiry posted to the forum.
type Question struct {
	// ID is the unique identifier of the question.
	ID string `json:"id"`

	// Title is the one-line summary of the question.
	Title string `json:"title"`

	// Description is the rich body of the question. It is stored as
	// submitted and must be sanitized by whatever renders it.
	Description string `json:"description"`

	// Tags are the labels attached to the question, in submission order.
	Tags []string `json:"tags"`

	// AuthorID identifies the user who asked the question.
	AuthorID string `json:"author_id"`

	// Author is a snapshot of the asking user taken at creation time.
	Author User `json:"author"`

	// Votes is the running vote score. It may go negative.
	Votes int `json:"votes"`

	// AnswerCount always equals the number of answers held for the question.
	AnswerCount int `json:"answer_count"`

	// AcceptedAnswerID is empty until an answer is accepted. Once set it
	// never changes.
	AcceptedAnswerID string `json:"accepted_answer_id,omitempty"`

	// CreatedAt is the timestamp at which the question was posted.
	CreatedAt time.Time `json:"created_at"`

	// UpdatedAt is the timestamp of the most recent change to the question.
	UpdatedAt time.Time `json:"updated_at"`
}

// Solved reports whether an answer has been accepted.
func (q Question) Solved() bool {
	return q.AcceptedAnswerID != ""
}

// HasTag reports whether the question carries tag, ignoring case.
func (q Question) HasTag(tag string) bool {
	for _, t := range q.Tags {
		if equalFold(t, tag) {
			return true
		}
	}
	return false
}

// Tag is a label together with the number of questions carrying it.
type Tag struct {
	Name  string `json:"name"`
	Count int    `json:"count"`
}

func equalFold(a, b string) bool {
	return strings.EqualFold(strings.TrimSpace(a), strings.TrimSpace(b))
}
