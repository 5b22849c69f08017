package services

import (
	"context"
	"fmt"
	"strings"
	"testing"
	"time"

	"github.com/stackit-qa/apiserver/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var (
	alice = &types.User{ID: "u-alice", Username: "alice", Email: "alice@example.com", Role: types.RoleUser}
	bob   = &types.User{ID: "u-bob", Username: "bob", Email: "bob@example.com", Role: types.RoleUser}
	carol = &types.User{ID: "u-carol", Username: "carol", Email: "carol@example.com", Role: types.RoleUser}
)

func sequentialIDs(prefix string) func() string {
	n := 0
	return func() string {
		n++
		return fmt.Sprintf("%s-%d", prefix, n)
	}
}

func fixedClock(start time.Time) func() time.Time {
	now := start
	return func() time.Time {
		now = now.Add(time.Second)
		return now
	}
}

func newTestForum(t *testing.T) (*ForumService, *NotificationService) {
	t.Helper()
	notifications := NewNotificationService(WithNotificationClock(fixedClock(time.Unix(0, 0))))
	forum := NewForumService(notifications,
		WithIDGenerator(sequentialIDs("id")),
		WithClock(fixedClock(time.Unix(1000, 0))),
	)
	return forum, notifications
}

func TestForumAcceptScenario(t *testing.T) {
	ctx := context.Background()
	forum, notifications := newTestForum(t)

	q1, err := forum.CreateQuestion(ctx, "Hooks?", "<p>How?</p>", []string{"React"}, alice)
	require.NoError(t, err)
	assert.Equal(t, 0, q1.Votes)
	assert.Equal(t, 0, q1.AnswerCount)
	assert.False(t, q1.Solved())

	ans1, err := forum.CreateAnswer(ctx, q1.ID, "<p>Like this</p>", bob)
	require.NoError(t, err)

	q1, err = forum.Question(ctx, q1.ID)
	require.NoError(t, err)
	assert.Equal(t, 1, q1.AnswerCount)

	aliceFeed := notifications.List(ctx, alice.ID)
	require.Len(t, aliceFeed, 1)
	assert.Equal(t, types.NotificationAnswer, aliceFeed[0].Type)
	assert.Equal(t, q1.ID, aliceFeed[0].RelatedID)
	assert.Contains(t, aliceFeed[0].Message, "bob")
	assert.False(t, aliceFeed[0].IsRead)

	accepted, err := forum.AcceptAnswer(ctx, q1.ID, ans1.ID, alice)
	require.NoError(t, err)
	assert.Equal(t, ans1.ID, accepted.AcceptedAnswerID)
	assert.True(t, accepted.Solved())
	assert.True(t, accepted.UpdatedAt.After(accepted.CreatedAt))

	answers, err := forum.Answers(ctx, q1.ID)
	require.NoError(t, err)
	require.Len(t, answers, 1)
	assert.True(t, answers[0].IsAccepted)

	bobFeed := notifications.List(ctx, bob.ID)
	require.Len(t, bobFeed, 1)
	assert.Equal(t, types.NotificationAccepted, bobFeed[0].Type)
	assert.Equal(t, "Your answer was accepted!", bobFeed[0].Message)

	ans2, err := forum.CreateAnswer(ctx, q1.ID, "<p>Another way</p>", carol)
	require.NoError(t, err)

	_, err = forum.AcceptAnswer(ctx, q1.ID, ans2.ID, alice)
	require.ErrorIs(t, err, ErrAlreadyAccepted)

	q1, err = forum.Question(ctx, q1.ID)
	require.NoError(t, err)
	assert.Equal(t, ans1.ID, q1.AcceptedAnswerID)
	require.NoError(t, forum.CheckInvariants(ctx))
}

func TestForumAnswerCountTracksAnswers(t *testing.T) {
	ctx := context.Background()
	forum, _ := newTestForum(t)

	q, err := forum.CreateQuestion(ctx, "Title", "Body", []string{"Go"}, alice)
	require.NoError(t, err)

	authors := []*types.User{bob, carol, alice, bob}
	for i, author := range authors {
		_, err := forum.CreateAnswer(ctx, q.ID, fmt.Sprintf("answer %d", i), author)
		require.NoError(t, err)

		current, err := forum.Question(ctx, q.ID)
		require.NoError(t, err)
		answers, err := forum.Answers(ctx, q.ID)
		require.NoError(t, err)
		assert.Equal(t, i+1, current.AnswerCount)
		assert.Len(t, answers, current.AnswerCount)
	}

	answers, err := forum.Answers(ctx, q.ID)
	require.NoError(t, err)
	for i, a := range answers {
		assert.Equal(t, fmt.Sprintf("answer %d", i), a.Content, "answers keep insertion order")
	}
	require.NoError(t, forum.CheckInvariants(ctx))
}

func TestForumCreateRequiresAuthor(t *testing.T) {
	ctx := context.Background()
	forum, _ := newTestForum(t)

	_, err := forum.CreateQuestion(ctx, "Title", "Body", []string{"Go"}, nil)
	require.ErrorIs(t, err, ErrUnauthenticated)
	assert.Empty(t, forum.Questions(ctx, QuestionFilter{}))

	q, err := forum.CreateQuestion(ctx, "Title", "Body", []string{"Go"}, alice)
	require.NoError(t, err)

	_, err = forum.CreateAnswer(ctx, q.ID, "content", nil)
	require.ErrorIs(t, err, ErrUnauthenticated)

	_, err = forum.AcceptAnswer(ctx, q.ID, "whatever", nil)
	require.ErrorIs(t, err, ErrUnauthenticated)
}

func TestForumCreateAnswerUnknownQuestion(t *testing.T) {
	ctx := context.Background()
	forum, notifications := newTestForum(t)

	_, err := forum.CreateAnswer(ctx, "missing", "content", bob)
	require.ErrorIs(t, err, ErrNotFound)
	assert.Empty(t, forum.AnswersByQuestion(ctx))
	assert.Empty(t, notifications.List(ctx, alice.ID))
}

func TestForumQuestionsNewestFirst(t *testing.T) {
	ctx := context.Background()
	forum, _ := newTestForum(t)

	for _, title := range []string{"first", "second", "third"} {
		_, err := forum.CreateQuestion(ctx, title, "body", []string{"Go"}, alice)
		require.NoError(t, err)
	}

	questions := forum.Questions(ctx, QuestionFilter{})
	require.Len(t, questions, 3)
	assert.Equal(t, "third", questions[0].Title)
	assert.Equal(t, "second", questions[1].Title)
	assert.Equal(t, "first", questions[2].Title)
}

func TestForumQuestionReturnsCopy(t *testing.T) {
	ctx := context.Background()
	forum, _ := newTestForum(t)

	q, err := forum.CreateQuestion(ctx, "Title", "Body", []string{"Go"}, alice)
	require.NoError(t, err)

	q.Tags[0] = "mutated"
	q.Votes = 99

	stored, err := forum.Question(ctx, q.ID)
	require.NoError(t, err)
	assert.Equal(t, []string{"Go"}, stored.Tags)
	assert.Equal(t, 0, stored.Votes)
}

func TestForumVoteNetZero(t *testing.T) {
	ctx := context.Background()
	forum, _ := newTestForum(t)

	q, err := forum.CreateQuestion(ctx, "Title", "Body", []string{"Go"}, alice)
	require.NoError(t, err)
	a, err := forum.CreateAnswer(ctx, q.ID, "content", bob)
	require.NoError(t, err)

	votes, err := forum.CastVote(ctx, q.ID, types.VoteTargetQuestion, types.VoteUp)
	require.NoError(t, err)
	assert.Equal(t, 1, votes)
	votes, err = forum.CastVote(ctx, q.ID, types.VoteTargetQuestion, types.VoteDown)
	require.NoError(t, err)
	assert.Equal(t, 0, votes)

	votes, err = forum.CastVote(ctx, a.ID, types.VoteTargetAnswer, types.VoteDown)
	require.NoError(t, err)
	assert.Equal(t, -1, votes, "scores may go negative")
	votes, err = forum.CastVote(ctx, a.ID, types.VoteTargetAnswer, types.VoteDown)
	require.NoError(t, err)
	assert.Equal(t, -2, votes, "repeat votes are not deduplicated")
}

func TestForumVoteMissingTarget(t *testing.T) {
	ctx := context.Background()
	forum, _ := newTestForum(t)

	q, err := forum.CreateQuestion(ctx, "Title", "Body", []string{"Go"}, alice)
	require.NoError(t, err)
	a, err := forum.CreateAnswer(ctx, q.ID, "content", bob)
	require.NoError(t, err)

	before := forum.AnswersByQuestion(ctx)

	_, err = forum.CastVote(ctx, "missing-id", types.VoteTargetAnswer, types.VoteUp)
	require.ErrorIs(t, err, ErrNotFound)
	_, err = forum.CastVote(ctx, a.ID, types.VoteTargetQuestion, types.VoteUp)
	require.ErrorIs(t, err, ErrNotFound, "answer ids do not resolve as questions")

	assert.Equal(t, before, forum.AnswersByQuestion(ctx))
	stored, err := forum.Question(ctx, q.ID)
	require.NoError(t, err)
	assert.Equal(t, 0, stored.Votes)
}

func TestForumVoteInvalid(t *testing.T) {
	ctx := context.Background()
	forum, _ := newTestForum(t)

	q, err := forum.CreateQuestion(ctx, "Title", "Body", []string{"Go"}, alice)
	require.NoError(t, err)

	_, err = forum.CastVote(ctx, q.ID, types.VoteTarget("comment"), types.VoteUp)
	require.ErrorIs(t, err, ErrInvalidVote)
	_, err = forum.CastVote(ctx, q.ID, types.VoteTargetQuestion, types.VoteDirection("sideways"))
	require.ErrorIs(t, err, ErrInvalidVote)
}

func TestForumSelfActionsDoNotNotify(t *testing.T) {
	ctx := context.Background()
	forum, notifications := newTestForum(t)

	q, err := forum.CreateQuestion(ctx, "Title", "Body", []string{"Go"}, alice)
	require.NoError(t, err)
	a, err := forum.CreateAnswer(ctx, q.ID, "answering myself", alice)
	require.NoError(t, err)
	_, err = forum.AcceptAnswer(ctx, q.ID, a.ID, alice)
	require.NoError(t, err)

	assert.Empty(t, notifications.List(ctx, alice.ID))
	require.NoError(t, forum.CheckInvariants(ctx))
}

func TestForumAcceptAnswerOfOtherQuestion(t *testing.T) {
	ctx := context.Background()
	forum, _ := newTestForum(t)

	q1, err := forum.CreateQuestion(ctx, "One", "Body", []string{"Go"}, alice)
	require.NoError(t, err)
	q2, err := forum.CreateQuestion(ctx, "Two", "Body", []string{"Go"}, alice)
	require.NoError(t, err)
	a2, err := forum.CreateAnswer(ctx, q2.ID, "content", bob)
	require.NoError(t, err)

	_, err = forum.AcceptAnswer(ctx, q1.ID, a2.ID, alice)
	require.ErrorIs(t, err, ErrNotFound)
	_, err = forum.AcceptAnswer(ctx, "missing", a2.ID, alice)
	require.ErrorIs(t, err, ErrNotFound)

	stored, err := forum.Question(ctx, q1.ID)
	require.NoError(t, err)
	assert.Empty(t, stored.AcceptedAnswerID)
}

func TestForumTagFilterAndCounts(t *testing.T) {
	ctx := context.Background()
	forum, _ := newTestForum(t)

	_, err := forum.CreateQuestion(ctx, "a", "body", []string{"React", "JavaScript"}, alice)
	require.NoError(t, err)
	_, err = forum.CreateQuestion(ctx, "b", "body", []string{"Go"}, bob)
	require.NoError(t, err)
	_, err = forum.CreateQuestion(ctx, "c", "body", []string{"javascript", "Node.js"}, carol)
	require.NoError(t, err)

	filtered := forum.Questions(ctx, QuestionFilter{Tag: "JavaScript"})
	require.Len(t, filtered, 2)
	assert.Equal(t, "c", filtered[0].Title)
	assert.Equal(t, "a", filtered[1].Title)

	assert.Empty(t, forum.Questions(ctx, QuestionFilter{Tag: "rust"}))

	tags := forum.Tags(ctx)
	require.NotEmpty(t, tags)
	assert.True(t, strings.EqualFold("JavaScript", tags[0].Name), "tags group case-insensitively")
	assert.Equal(t, 2, tags[0].Count)
	assert.Len(t, tags, 4)
	assert.Equal(t, "Go", tags[1].Name)
}

func TestForumTagCountsEachQuestionOnce(t *testing.T) {
	ctx := context.Background()
	forum, _ := newTestForum(t)

	_, err := forum.CreateQuestion(ctx, "a", "body", []string{"Go", "go", " GO "}, alice)
	require.NoError(t, err)

	tags := forum.Tags(ctx)
	require.Len(t, tags, 1)
	assert.Equal(t, "Go", tags[0].Name)
	assert.Equal(t, 1, tags[0].Count)

	_, err = forum.CreateQuestion(ctx, "b", "body", []string{"go"}, bob)
	require.NoError(t, err)

	tags = forum.Tags(ctx)
	require.Len(t, tags, 1)
	assert.Equal(t, 2, tags[0].Count)
}

func TestForumAcceptAmongSeveralAnswers(t *testing.T) {
	ctx := context.Background()
	forum, notifications := newTestForum(t)

	q, err := forum.CreateQuestion(ctx, "Generics?", "<p>extends?</p>", []string{"TypeScript"}, alice)
	require.NoError(t, err)
	first, err := forum.CreateAnswer(ctx, q.ID, "<p>first</p>", bob)
	require.NoError(t, err)
	second, err := forum.CreateAnswer(ctx, q.ID, "<p>second</p>", carol)
	require.NoError(t, err)

	accepted, err := forum.AcceptAnswer(ctx, q.ID, second.ID, alice)
	require.NoError(t, err)
	assert.Equal(t, second.ID, accepted.AcceptedAnswerID)

	answers, err := forum.Answers(ctx, q.ID)
	require.NoError(t, err)
	require.Len(t, answers, 2)
	assert.Equal(t, first.ID, answers[0].ID)
	assert.False(t, answers[0].IsAccepted)
	assert.Equal(t, second.ID, answers[1].ID)
	assert.True(t, answers[1].IsAccepted)

	assert.Len(t, notifications.List(ctx, carol.ID), 1)
	assert.Empty(t, notifications.List(ctx, bob.ID))
	require.NoError(t, forum.CheckInvariants(ctx))
}

func TestSeedDemo(t *testing.T) {
	ctx := context.Background()
	forum, notifications := newTestForum(t)
	identity := NewIdentityService(nil, IdentityConfig{})

	require.NoError(t, SeedDemo(ctx, forum, identity))
	require.NoError(t, forum.CheckInvariants(ctx))

	questions := forum.Questions(ctx, QuestionFilter{})
	require.Len(t, questions, 3)
	assert.Equal(t, "How to use React hooks effectively?", questions[0].Title)
	assert.Equal(t, 15, questions[0].Votes)
	assert.Equal(t, 2, questions[0].AnswerCount)
	assert.True(t, questions[1].Solved())

	author, err := identity.UserByID(ctx, questions[0].AuthorID)
	require.NoError(t, err)
	assert.Equal(t, "AyushiSoni", author.Username)
	assert.NotEmpty(t, notifications.List(ctx, author.ID))
}
