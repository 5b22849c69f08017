package services

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/stackit-qa/apiserver/types"
	"go.uber.org/zap"
)

// Notifier receives notifications produced as side effects of forum mutations.
type Notifier interface {
	Append(ctx context.Context, n types.Notification) (types.Notification, error)
}

// ForumOption configures a ForumService.
type ForumOption func(*ForumService)

// WithClock overrides the time source used for timestamps.
func WithClock(now func() time.Time) ForumOption {
	return func(s *ForumService) {
		if now != nil {
			s.now = now
		}
	}
}

// WithIDGenerator overrides how question and answer ids are generated.
func WithIDGenerator(newID func() string) ForumOption {
	return func(s *ForumService) {
		if newID != nil {
			s.newID = newID
		}
	}
}

// WithForumLogger sets the logger used by the service.
func WithForumLogger(logger *zap.Logger) ForumOption {
	return func(s *ForumService) {
		if logger != nil {
			s.logger = logger
		}
	}
}

// QuestionFilter narrows the question list.
type QuestionFilter struct {
	// Tag keeps only questions carrying the tag, ignoring case.
	Tag string
}

// ForumService owns questions and their answers. Every write goes through
// its operations, which keep AnswerCount and the acceptance flags in step
// with the answer lists.
type ForumService struct {
	mu sync.Mutex

	// questions is ordered most recent first.
	questions []*types.Question
	byID      map[string]*types.Question

	// answers holds each question's answers in submission order.
	answers     map[string][]*types.Answer
	answerIndex map[string]*types.Answer

	notifier Notifier
	now      func() time.Time
	newID    func() string
	logger   *zap.Logger
}

// NewForumService constructs an empty ForumService. notifier may be nil,
// in which case no notifications are produced.
func NewForumService(notifier Notifier, opts ...ForumOption) *ForumService {
	s := &ForumService{
		byID:        make(map[string]*types.Question),
		answers:     make(map[string][]*types.Answer),
		answerIndex: make(map[string]*types.Answer),
		notifier:    notifier,
		now:         time.Now,
		newID:       uuid.NewString,
		logger:      zap.NewNop(),
	}
	for _, opt := range opts {
		if opt != nil {
			opt(s)
		}
	}
	return s
}

// CreateQuestion posts a new question on behalf of author.
// Title and tag content are not validated here.
func (s *ForumService) CreateQuestion(ctx context.Context, title, description string, tags []string, author *types.User) (types.Question, error) {
	if author == nil {
		return types.Question{}, ErrUnauthenticated
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.now()
	question := &types.Question{
		ID:          s.newID(),
		Title:       title,
		Description: description,
		Tags:        append([]string(nil), tags...),
		AuthorID:    author.ID,
		Author:      *author,
		CreatedAt:   now,
		UpdatedAt:   now,
	}

	s.questions = append([]*types.Question{question}, s.questions...)
	s.byID[question.ID] = question
	s.answers[question.ID] = nil

	s.logger.Debug("question created",
		zap.String("question_id", question.ID),
		zap.String("author_id", author.ID),
		zap.Int("tags", len(tags)),
	)
	return cloneQuestion(question), nil
}

// CreateAnswer appends an answer to the question and notifies the question
// author unless they wrote the answer themselves.
func (s *ForumService) CreateAnswer(ctx context.Context, questionID, content string, author *types.User) (types.Answer, error) {
	if author == nil {
		return types.Answer{}, ErrUnauthenticated
	}

	answer, notification, err := s.createAnswer(questionID, content, author)
	if err != nil {
		return types.Answer{}, err
	}

	if notification != nil {
		s.notify(ctx, *notification)
	}
	return answer, nil
}

func (s *ForumService) createAnswer(questionID, content string, author *types.User) (types.Answer, *types.Notification, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	question, ok := s.byID[questionID]
	if !ok {
		return types.Answer{}, nil, fmt.Errorf("question %q: %w", questionID, ErrNotFound)
	}

	now := s.now()
	answer := &types.Answer{
		ID:         s.newID(),
		Content:    content,
		QuestionID: questionID,
		AuthorID:   author.ID,
		Author:     *author,
		CreatedAt:  now,
		UpdatedAt:  now,
	}

	s.answers[questionID] = append(s.answers[questionID], answer)
	s.answerIndex[answer.ID] = answer
	question.AnswerCount++

	s.logger.Debug("answer created",
		zap.String("question_id", questionID),
		zap.String("answer_id", answer.ID),
		zap.Int("answer_count", question.AnswerCount),
	)

	if question.AuthorID == author.ID {
		return *answer, nil, nil
	}
	return *answer, &types.Notification{
		UserID:    question.AuthorID,
		Type:      types.NotificationAnswer,
		Message:   fmt.Sprintf("%s answered your question %q", author.Username, question.Title),
		RelatedID: questionID,
	}, nil
}

// CastVote applies a +1 or -1 to the target's score and returns the new
// score. There is no floor and no duplicate detection: calling it twice
// doubles the effect.
func (s *ForumService) CastVote(ctx context.Context, targetID string, target types.VoteTarget, direction types.VoteDirection) (int, error) {
	if !target.Valid() {
		return 0, fmt.Errorf("target type %q: %w", target, ErrInvalidVote)
	}
	delta := direction.Delta()
	if delta == 0 {
		return 0, fmt.Errorf("direction %q: %w", direction, ErrInvalidVote)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	switch target {
	case types.VoteTargetQuestion:
		question, ok := s.byID[targetID]
		if !ok {
			return 0, fmt.Errorf("question %q: %w", targetID, ErrNotFound)
		}
		question.Votes += delta
		return question.Votes, nil
	default:
		answer, ok := s.answerIndex[targetID]
		if !ok {
			return 0, fmt.Errorf("answer %q: %w", targetID, ErrNotFound)
		}
		answer.Votes += delta
		return answer.Votes, nil
	}
}

// AcceptAnswer marks answerID as the solution of questionID. The transition
// happens at most once per question.
func (s *ForumService) AcceptAnswer(ctx context.Context, questionID, answerID string, acceptor *types.User) (types.Question, error) {
	if acceptor == nil {
		return types.Question{}, ErrUnauthenticated
	}

	question, notification, err := s.acceptAnswer(questionID, answerID, acceptor)
	if err != nil {
		return types.Question{}, err
	}

	if notification != nil {
		s.notify(ctx, *notification)
	}
	return question, nil
}

func (s *ForumService) acceptAnswer(questionID, answerID string, acceptor *types.User) (types.Question, *types.Notification, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	question, ok := s.byID[questionID]
	if !ok {
		return types.Question{}, nil, fmt.Errorf("question %q: %w", questionID, ErrNotFound)
	}
	if question.AcceptedAnswerID != "" {
		return types.Question{}, nil, fmt.Errorf("question %q: %w", questionID, ErrAlreadyAccepted)
	}
	answer, ok := s.answerIndex[answerID]
	if !ok || answer.QuestionID != questionID {
		return types.Question{}, nil, fmt.Errorf("answer %q on question %q: %w", answerID, questionID, ErrNotFound)
	}

	now := s.now()
	question.AcceptedAnswerID = answerID
	question.UpdatedAt = now
	for _, a := range s.answers[questionID] {
		a.IsAccepted = a.ID == answerID
	}
	answer.UpdatedAt = now

	s.logger.Debug("answer accepted",
		zap.String("question_id", questionID),
		zap.String("answer_id", answerID),
	)

	if answer.AuthorID == acceptor.ID {
		return cloneQuestion(question), nil, nil
	}
	return cloneQuestion(question), &types.Notification{
		UserID:    answer.AuthorID,
		Type:      types.NotificationAccepted,
		Message:   "Your answer was accepted!",
		RelatedID: questionID,
	}, nil
}

func (s *ForumService) notify(ctx context.Context, n types.Notification) {
	if s.notifier == nil {
		return
	}
	if _, err := s.notifier.Append(ctx, n); err != nil {
		s.logger.Warn("failed to append notification",
			zap.String("user_id", n.UserID),
			zap.String("type", string(n.Type)),
			zap.Error(err),
		)
	}
}

// Questions returns the questions most recent first.
func (s *ForumService) Questions(ctx context.Context, filter QuestionFilter) []types.Question {
	s.mu.Lock()
	defer s.mu.Unlock()

	tag := strings.TrimSpace(filter.Tag)
	items := make([]types.Question, 0, len(s.questions))
	for _, q := range s.questions {
		if tag != "" && !q.HasTag(tag) {
			continue
		}
		items = append(items, cloneQuestion(q))
	}
	return items
}

// Question returns a single question.
func (s *ForumService) Question(ctx context.Context, id string) (types.Question, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	question, ok := s.byID[id]
	if !ok {
		return types.Question{}, fmt.Errorf("question %q: %w", id, ErrNotFound)
	}
	return cloneQuestion(question), nil
}

// Answers returns the answers of a question in submission order.
func (s *ForumService) Answers(ctx context.Context, questionID string) ([]types.Answer, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.byID[questionID]; !ok {
		return nil, fmt.Errorf("question %q: %w", questionID, ErrNotFound)
	}
	return cloneAnswers(s.answers[questionID]), nil
}

// AnswersByQuestion returns every answer list keyed by question id.
func (s *ForumService) AnswersByQuestion(ctx context.Context) map[string][]types.Answer {
	s.mu.Lock()
	defer s.mu.Unlock()

	out := make(map[string][]types.Answer, len(s.answers))
	for questionID, answers := range s.answers {
		out[questionID] = cloneAnswers(answers)
	}
	return out
}

// Tags counts how many questions carry each tag, most used first.
func (s *ForumService) Tags(ctx context.Context) []types.Tag {
	s.mu.Lock()
	defer s.mu.Unlock()

	counts := make(map[string]int)
	names := make(map[string]string)
	for _, q := range s.questions {
		counted := make(map[string]struct{}, len(q.Tags))
		for _, tag := range q.Tags {
			key := strings.ToLower(strings.TrimSpace(tag))
			if key == "" {
				continue
			}
			if _, dup := counted[key]; dup {
				continue
			}
			counted[key] = struct{}{}
			if _, seen := names[key]; !seen {
				names[key] = strings.TrimSpace(tag)
			}
			counts[key]++
		}
	}

	tags := make([]types.Tag, 0, len(counts))
	for key, count := range counts {
		tags = append(tags, types.Tag{Name: names[key], Count: count})
	}
	sort.Slice(tags, func(i, j int) bool {
		if tags[i].Count != tags[j].Count {
			return tags[i].Count > tags[j].Count
		}
		return strings.ToLower(tags[i].Name) < strings.ToLower(tags[j].Name)
	})
	return tags
}

// CheckInvariants verifies the answer counts and acceptance flags.
func (s *ForumService) CheckInvariants(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, q := range s.questions {
		answers := s.answers[q.ID]
		if q.AnswerCount != len(answers) {
			return fmt.Errorf("question %q: answer count %d, have %d answers", q.ID, q.AnswerCount, len(answers))
		}
		accepted := 0
		for _, a := range answers {
			if a.QuestionID != q.ID {
				return fmt.Errorf("answer %q listed under question %q belongs to %q", a.ID, q.ID, a.QuestionID)
			}
			if a.IsAccepted {
				accepted++
			}
			if a.IsAccepted != (a.ID == q.AcceptedAnswerID) {
				return fmt.Errorf("answer %q: accepted flag %t disagrees with question %q", a.ID, a.IsAccepted, q.ID)
			}
		}
		if accepted > 1 {
			return fmt.Errorf("question %q has %d accepted answers", q.ID, accepted)
		}
		if q.AcceptedAnswerID != "" && accepted == 0 {
			return fmt.Errorf("question %q: accepted answer %q not found", q.ID, q.AcceptedAnswerID)
		}
	}
	return nil
}

func cloneQuestion(q *types.Question) types.Question {
	out := *q
	out.Tags = append([]string(nil), q.Tags...)
	return out
}

func cloneAnswers(answers []*types.Answer) []types.Answer {
	out := make([]types.Answer, 0, len(answers))
	for _, a := range answers {
		out = append(out, *a)
	}
	return out
}
