package server

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stackit-qa/apiserver/config"
	"github.com/stackit-qa/apiserver/internal/app"
	"github.com/stackit-qa/apiserver/internal/handlers"
	"github.com/stackit-qa/apiserver/internal/storage"
	"github.com/stackit-qa/apiserver/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testSecret = "test-secret"

func newTestServer(t *testing.T) *httptest.Server {
	t.Helper()
	ctx := context.Background()

	local, err := storage.NewLocalClient(t.TempDir())
	require.NoError(t, err)
	sessions := storage.NewStorage(local)
	require.NoError(t, sessions.EnsureBucket(ctx))

	a, err := app.NewInMemory(ctx, config.Config{}, sessions, nil)
	require.NoError(t, err)

	srv := httptest.NewServer(NewRouter(a, testSecret, time.Hour))
	t.Cleanup(srv.Close)
	return srv
}

func doJSON(t *testing.T, srv *httptest.Server, method, path, token string, body any) (int, []byte) {
	t.Helper()

	var reader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(data)
	}
	req, err := http.NewRequest(method, srv.URL+path, reader)
	require.NoError(t, err)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	resp, err := srv.Client().Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()
	data, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	return resp.StatusCode, data
}

func register(t *testing.T, srv *httptest.Server, username, email string) handlers.AuthResponse {
	t.Helper()
	status, body := doJSON(t, srv, http.MethodPost, "/auth/register", "", map[string]string{
		"username": username,
		"email":    email,
	})
	require.Equal(t, http.StatusCreated, status, string(body))
	var resp handlers.AuthResponse
	require.NoError(t, json.Unmarshal(body, &resp))
	require.NotEmpty(t, resp.Token)
	return resp
}

func createQuestion(t *testing.T, srv *httptest.Server, token string, tags []string) handlers.QuestionView {
	t.Helper()
	status, body := doJSON(t, srv, http.MethodPost, "/questions", token, map[string]any{
		"title":       "How to use React hooks?",
		"description": `<p>When to use <strong>useState</strong>?</p><script>alert(1)</script>`,
		"tags":        tags,
	})
	require.Equal(t, http.StatusCreated, status, string(body))
	var q handlers.QuestionView
	require.NoError(t, json.Unmarshal(body, &q))
	return q
}

func createAnswer(t *testing.T, srv *httptest.Server, token, questionID, content string) handlers.AnswerView {
	t.Helper()
	status, body := doJSON(t, srv, http.MethodPost, "/questions/"+questionID+"/answers", token, map[string]string{
		"content": content,
	})
	require.Equal(t, http.StatusCreated, status, string(body))
	var a handlers.AnswerView
	require.NoError(t, json.Unmarshal(body, &a))
	return a
}

func TestHealthz(t *testing.T) {
	srv := newTestServer(t)
	status, body := doJSON(t, srv, http.MethodGet, "/healthz", "", nil)
	assert.Equal(t, http.StatusOK, status)
	assert.JSONEq(t, `{"status":"ok"}`, string(body))
}

func TestQuestionLifecycle(t *testing.T) {
	srv := newTestServer(t)
	alice := register(t, srv, "alice", "alice@example.com")
	bob := register(t, srv, "bob", "bob@example.com")
	carol := register(t, srv, "carol", "carol@example.com")

	q := createQuestion(t, srv, alice.Token, []string{"React", "Hooks"})
	assert.Equal(t, alice.User.ID, q.AuthorID)
	assert.Equal(t, "alice", q.Author.Username)
	assert.Contains(t, q.Description, "<script>", "stored verbatim")
	assert.NotContains(t, q.DescriptionHTML, "<script>")
	assert.Contains(t, q.DescriptionHTML, "<strong>useState</strong>")

	first := createAnswer(t, srv, bob.Token, q.ID, "<p>Use useState</p>")
	second := createAnswer(t, srv, carol.Token, q.ID, "<p>Use useReducer</p>")

	status, body := doJSON(t, srv, http.MethodGet, "/notifications", alice.Token, nil)
	require.Equal(t, http.StatusOK, status)
	var feed handlers.NotificationListResponse
	require.NoError(t, json.Unmarshal(body, &feed))
	require.Len(t, feed.Items, 2)
	assert.Equal(t, 2, feed.UnreadCount)
	assert.Equal(t, types.NotificationAnswer, feed.Items[0].Type)

	status, _ = doJSON(t, srv, http.MethodPost, "/questions/"+q.ID+"/accept", bob.Token, map[string]string{"answer_id": first.ID})
	assert.Equal(t, http.StatusForbidden, status)

	status, body = doJSON(t, srv, http.MethodPost, "/questions/"+q.ID+"/accept", alice.Token, map[string]string{"answer_id": second.ID})
	require.Equal(t, http.StatusOK, status, string(body))
	var accepted handlers.QuestionView
	require.NoError(t, json.Unmarshal(body, &accepted))
	assert.Equal(t, second.ID, accepted.AcceptedAnswerID)
	assert.True(t, accepted.Solved)

	status, _ = doJSON(t, srv, http.MethodPost, "/questions/"+q.ID+"/accept", alice.Token, map[string]string{"answer_id": first.ID})
	assert.Equal(t, http.StatusConflict, status)

	status, body = doJSON(t, srv, http.MethodGet, "/questions/"+q.ID, "", nil)
	require.Equal(t, http.StatusOK, status)
	var detail handlers.QuestionDetailResponse
	require.NoError(t, json.Unmarshal(body, &detail))
	assert.Equal(t, 2, detail.Question.AnswerCount)
	require.Len(t, detail.Answers, 2)
	assert.Equal(t, second.ID, detail.Answers[0].ID, "accepted answer first")
	assert.True(t, detail.Answers[0].IsAccepted)
	assert.Equal(t, first.ID, detail.Answers[1].ID)

	status, body = doJSON(t, srv, http.MethodGet, "/notifications", carol.Token, nil)
	require.Equal(t, http.StatusOK, status)
	require.NoError(t, json.Unmarshal(body, &feed))
	require.Len(t, feed.Items, 1)
	assert.Equal(t, types.NotificationAccepted, feed.Items[0].Type)
}

func TestCreateQuestionValidation(t *testing.T) {
	srv := newTestServer(t)
	alice := register(t, srv, "alice", "alice@example.com")

	status, _ := doJSON(t, srv, http.MethodPost, "/questions", "", map[string]any{
		"title": "t", "description": "d", "tags": []string{"Go"},
	})
	assert.Equal(t, http.StatusUnauthorized, status)

	cases := map[string]map[string]any{
		"no tags":        {"title": "t", "description": "d", "tags": []string{}},
		"too many tags":  {"title": "t", "description": "d", "tags": []string{"a", "b", "c", "d", "e", "f"}},
		"duplicate tags": {"title": "t", "description": "d", "tags": []string{"Go", "Go"}},
		"blank tag":      {"title": "t", "description": "d", "tags": []string{"  "}},
		"blank title":    {"title": "  ", "description": "d", "tags": []string{"Go"}},
		"no description": {"title": "t", "tags": []string{"Go"}},
	}
	for name, body := range cases {
		t.Run(name, func(t *testing.T) {
			status, _ := doJSON(t, srv, http.MethodPost, "/questions", alice.Token, body)
			assert.Equal(t, http.StatusBadRequest, status)
		})
	}

	status, body := doJSON(t, srv, http.MethodGet, "/questions", "", nil)
	require.Equal(t, http.StatusOK, status)
	var list handlers.QuestionListResponse
	require.NoError(t, json.Unmarshal(body, &list))
	assert.Zero(t, list.Total)
}

func TestVotes(t *testing.T) {
	srv := newTestServer(t)
	alice := register(t, srv, "alice", "alice@example.com")
	q := createQuestion(t, srv, alice.Token, []string{"Go"})
	a := createAnswer(t, srv, alice.Token, q.ID, "self answer")

	status, body := doJSON(t, srv, http.MethodPost, "/questions/"+q.ID+"/vote", alice.Token, map[string]string{"direction": "up"})
	require.Equal(t, http.StatusOK, status)
	var vote handlers.VoteResponse
	require.NoError(t, json.Unmarshal(body, &vote))
	assert.Equal(t, 1, vote.Votes)

	status, body = doJSON(t, srv, http.MethodPost, "/answers/"+a.ID+"/vote", alice.Token, map[string]string{"direction": "down"})
	require.Equal(t, http.StatusOK, status)
	require.NoError(t, json.Unmarshal(body, &vote))
	assert.Equal(t, -1, vote.Votes)

	status, _ = doJSON(t, srv, http.MethodPost, "/answers/missing-id/vote", alice.Token, map[string]string{"direction": "up"})
	assert.Equal(t, http.StatusNotFound, status)

	status, _ = doJSON(t, srv, http.MethodPost, "/questions/"+q.ID+"/vote", alice.Token, map[string]string{"direction": "sideways"})
	assert.Equal(t, http.StatusBadRequest, status)

	status, _ = doJSON(t, srv, http.MethodPost, "/questions/"+q.ID+"/vote", "", map[string]string{"direction": "up"})
	assert.Equal(t, http.StatusUnauthorized, status)

	status, _ = doJSON(t, srv, http.MethodGet, "/notifications", alice.Token, nil)
	assert.Equal(t, http.StatusOK, status)
}

func TestListQuestionsByTagAndTags(t *testing.T) {
	srv := newTestServer(t)
	alice := register(t, srv, "alice", "alice@example.com")
	createQuestion(t, srv, alice.Token, []string{"React"})
	createQuestion(t, srv, alice.Token, []string{"Go", "React"})
	createQuestion(t, srv, alice.Token, []string{"Go"})

	status, body := doJSON(t, srv, http.MethodGet, "/questions?tag=react&limit=1", "", nil)
	require.Equal(t, http.StatusOK, status)
	var list handlers.QuestionListResponse
	require.NoError(t, json.Unmarshal(body, &list))
	assert.Equal(t, 2, list.Total)
	assert.Len(t, list.Items, 1)
	assert.Equal(t, 1, list.Limit)

	status, _ = doJSON(t, srv, http.MethodGet, "/questions?page=0", "", nil)
	assert.Equal(t, http.StatusBadRequest, status)

	status, body = doJSON(t, srv, http.MethodGet, "/tags", "", nil)
	require.Equal(t, http.StatusOK, status)
	var tags []types.Tag
	require.NoError(t, json.Unmarshal(body, &tags))
	assert.Equal(t, []types.Tag{{Name: "Go", Count: 2}, {Name: "React", Count: 2}}, tags)
}

func TestNotificationsReadFlow(t *testing.T) {
	srv := newTestServer(t)
	alice := register(t, srv, "alice", "alice@example.com")
	bob := register(t, srv, "bob", "bob@example.com")
	q := createQuestion(t, srv, alice.Token, []string{"Go"})
	createAnswer(t, srv, bob.Token, q.ID, "one")
	createAnswer(t, srv, bob.Token, q.ID, "two")

	var feed handlers.NotificationListResponse
	_, body := doJSON(t, srv, http.MethodGet, "/notifications", alice.Token, nil)
	require.NoError(t, json.Unmarshal(body, &feed))
	require.Len(t, feed.Items, 2)

	status, _ := doJSON(t, srv, http.MethodPost, "/notifications/"+feed.Items[0].ID+"/read", bob.Token, nil)
	assert.Equal(t, http.StatusNoContent, status)
	_, body = doJSON(t, srv, http.MethodGet, "/notifications", alice.Token, nil)
	require.NoError(t, json.Unmarshal(body, &feed))
	assert.Equal(t, 2, feed.UnreadCount, "other users cannot mark the feed")

	status, _ = doJSON(t, srv, http.MethodPost, "/notifications/"+feed.Items[0].ID+"/read", alice.Token, nil)
	assert.Equal(t, http.StatusNoContent, status)
	_, body = doJSON(t, srv, http.MethodGet, "/notifications", alice.Token, nil)
	require.NoError(t, json.Unmarshal(body, &feed))
	assert.Equal(t, 1, feed.UnreadCount)

	status, _ = doJSON(t, srv, http.MethodPost, "/notifications/read-all", alice.Token, nil)
	assert.Equal(t, http.StatusNoContent, status)
	_, body = doJSON(t, srv, http.MethodGet, "/notifications", alice.Token, nil)
	require.NoError(t, json.Unmarshal(body, &feed))
	assert.Zero(t, feed.UnreadCount)
}

func TestAuthSession(t *testing.T) {
	srv := newTestServer(t)

	status, _ := doJSON(t, srv, http.MethodGet, "/auth/session", "", nil)
	assert.Equal(t, http.StatusNoContent, status)

	alice := register(t, srv, "alice", "alice@example.com")

	status, body := doJSON(t, srv, http.MethodPost, "/auth/login", "", map[string]string{"email": "alice@example.com"})
	require.Equal(t, http.StatusOK, status)
	var login handlers.AuthResponse
	require.NoError(t, json.Unmarshal(body, &login))
	assert.Equal(t, alice.User.ID, login.User.ID)

	status, body = doJSON(t, srv, http.MethodGet, "/auth/me", login.Token, nil)
	require.Equal(t, http.StatusOK, status)
	var me types.User
	require.NoError(t, json.Unmarshal(body, &me))
	assert.Equal(t, "alice", me.Username)

	status, _ = doJSON(t, srv, http.MethodGet, "/auth/me", "not-a-token", nil)
	assert.Equal(t, http.StatusUnauthorized, status)

	status, _ = doJSON(t, srv, http.MethodGet, "/auth/session", "", nil)
	assert.Equal(t, http.StatusOK, status)

	status, _ = doJSON(t, srv, http.MethodPost, "/auth/logout", login.Token, nil)
	assert.Equal(t, http.StatusNoContent, status)
	status, _ = doJSON(t, srv, http.MethodGet, "/auth/session", "", nil)
	assert.Equal(t, http.StatusNoContent, status)

	status, _ = doJSON(t, srv, http.MethodPost, "/auth/register", "", map[string]string{"username": "x", "email": "not-an-email"})
	assert.Equal(t, http.StatusBadRequest, status)
}

func TestHelp(t *testing.T) {
	srv := newTestServer(t)

	status, body := doJSON(t, srv, http.MethodPost, "/help", "", map[string]string{"message": "How do I vote?"})
	require.Equal(t, http.StatusOK, status)
	var reply handlers.HelpResponse
	require.NoError(t, json.Unmarshal(body, &reply))
	assert.Equal(t, "vote", reply.Topic)
	assert.Contains(t, reply.Reply, "Voting helps")

	status, _ = doJSON(t, srv, http.MethodPost, "/help", "", map[string]string{})
	assert.Equal(t, http.StatusBadRequest, status)

	status, body = doJSON(t, srv, http.MethodGet, "/help", "", nil)
	require.Equal(t, http.StatusOK, status)
	require.NoError(t, json.Unmarshal(body, &reply))
	assert.Contains(t, reply.Reply, "StackBot")
}
