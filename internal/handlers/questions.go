package handlers

import (
	"net/http"
	"sort"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/stackit-qa/apiserver/internal/render"
	"github.com/stackit-qa/apiserver/internal/services"
	"github.com/stackit-qa/apiserver/types"
)

// QuestionHandler provides HTTP handlers for questions, answers, votes and tags.
type QuestionHandler struct {
	forum     *services.ForumService
	sanitizer *render.Sanitizer
}

// NewQuestionHandler constructs a handler over the forum service.
func NewQuestionHandler(forum *services.ForumService, sanitizer *render.Sanitizer) *QuestionHandler {
	if sanitizer == nil {
		sanitizer = render.NewSanitizer()
	}
	return &QuestionHandler{
		forum:     forum,
		sanitizer: sanitizer,
	}
}

// QuestionRouter registers question routes on the given router.
func QuestionRouter(r chi.Router, handler *QuestionHandler, authMiddleware func(http.Handler) http.Handler) {
	r.Get("/", handler.ListQuestions)
	r.With(authMiddleware).Post("/", handler.CreateQuestion)
	r.Route("/{questionID}", func(r chi.Router) {
		r.Get("/", handler.GetQuestion)
		r.With(authMiddleware).Post("/answers", handler.CreateAnswer)
		r.With(authMiddleware).Post("/vote", handler.VoteQuestion)
		r.With(authMiddleware).Post("/accept", handler.AcceptAnswer)
	})
}

// AnswerRouter registers answer routes on the given router.
func AnswerRouter(r chi.Router, handler *QuestionHandler, authMiddleware func(http.Handler) http.Handler) {
	r.With(authMiddleware).Post("/{answerID}/vote", handler.VoteAnswer)
}

// ListQuestions returns questions newest first, optionally filtered by tag.
func (h *QuestionHandler) ListQuestions(w http.ResponseWriter, r *http.Request) {
	page, limit, offset, err := parsePagination(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	filter := services.QuestionFilter{Tag: strings.TrimSpace(r.URL.Query().Get("tag"))}
	questions := h.forum.Questions(r.Context(), filter)

	items := paginate(questions, offset, limit)
	views := make([]QuestionView, 0, len(items))
	for _, q := range items {
		views = append(views, h.questionView(q))
	}

	writeJSON(w, http.StatusOK, QuestionListResponse{
		Items: views,
		Page:  page,
		Limit: limit,
		Total: len(questions),
	})
}

// GetQuestion returns a question and its answers, accepted answer first.
func (h *QuestionHandler) GetQuestion(w http.ResponseWriter, r *http.Request) {
	questionID := chi.URLParam(r, "questionID")

	question, err := h.forum.Question(r.Context(), questionID)
	if err != nil {
		writeServiceError(w, err, "failed to load question")
		return
	}
	answers, err := h.forum.Answers(r.Context(), questionID)
	if err != nil {
		writeServiceError(w, err, "failed to load answers")
		return
	}
	sort.SliceStable(answers, func(i, j int) bool {
		return answers[i].IsAccepted && !answers[j].IsAccepted
	})

	views := make([]AnswerView, 0, len(answers))
	for _, a := range answers {
		views = append(views, h.answerView(a))
	}

	writeJSON(w, http.StatusOK, QuestionDetailResponse{
		Question: h.questionView(question),
		Answers:  views,
	})
}

// CreateQuestion posts a new question as the authenticated user.
func (h *QuestionHandler) CreateQuestion(w http.ResponseWriter, r *http.Request) {
	user, err := userFromContext(r.Context())
	if err != nil {
		writeError(w, http.StatusUnauthorized, "unauthorized")
		return
	}

	var req CreateQuestionRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	req.normalize()
	if err := validateRequest(req); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	question, err := h.forum.CreateQuestion(r.Context(), req.Title, req.Description, req.Tags, user)
	if err != nil {
		writeServiceError(w, err, "failed to create question")
		return
	}

	writeJSON(w, http.StatusCreated, h.questionView(question))
}

// CreateAnswer posts an answer to a question as the authenticated user.
func (h *QuestionHandler) CreateAnswer(w http.ResponseWriter, r *http.Request) {
	user, err := userFromContext(r.Context())
	if err != nil {
		writeError(w, http.StatusUnauthorized, "unauthorized")
		return
	}

	var req CreateAnswerRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	req.Content = strings.TrimSpace(req.Content)
	if err := validateRequest(req); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	answer, err := h.forum.CreateAnswer(r.Context(), chi.URLParam(r, "questionID"), req.Content, user)
	if err != nil {
		writeServiceError(w, err, "failed to create answer")
		return
	}

	writeJSON(w, http.StatusCreated, h.answerView(answer))
}

// VoteQuestion adjusts the score of a question.
func (h *QuestionHandler) VoteQuestion(w http.ResponseWriter, r *http.Request) {
	h.vote(w, r, chi.URLParam(r, "questionID"), types.VoteTargetQuestion)
}

// VoteAnswer adjusts the score of an answer.
func (h *QuestionHandler) VoteAnswer(w http.ResponseWriter, r *http.Request) {
	h.vote(w, r, chi.URLParam(r, "answerID"), types.VoteTargetAnswer)
}

func (h *QuestionHandler) vote(w http.ResponseWriter, r *http.Request, id string, target types.VoteTarget) {
	var req VoteRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	req.Direction = strings.ToLower(strings.TrimSpace(req.Direction))
	if err := validateRequest(req); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	votes, err := h.forum.CastVote(r.Context(), id, target, types.VoteDirection(req.Direction))
	if err != nil {
		writeServiceError(w, err, "failed to record vote")
		return
	}

	writeJSON(w, http.StatusOK, VoteResponse{ID: id, Votes: votes})
}

// AcceptAnswer marks an answer as the solution. Only the question owner may
// accept.
func (h *QuestionHandler) AcceptAnswer(w http.ResponseWriter, r *http.Request) {
	user, err := userFromContext(r.Context())
	if err != nil {
		writeError(w, http.StatusUnauthorized, "unauthorized")
		return
	}

	var req AcceptRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	req.AnswerID = strings.TrimSpace(req.AnswerID)
	if err := validateRequest(req); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	questionID := chi.URLParam(r, "questionID")
	question, err := h.forum.Question(r.Context(), questionID)
	if err != nil {
		writeServiceError(w, err, "failed to load question")
		return
	}
	if question.AuthorID != user.ID {
		writeError(w, http.StatusForbidden, "only the question owner can accept an answer")
		return
	}

	question, err = h.forum.AcceptAnswer(r.Context(), questionID, req.AnswerID, user)
	if err != nil {
		writeServiceError(w, err, "failed to accept answer")
		return
	}

	writeJSON(w, http.StatusOK, h.questionView(question))
}

// ListTags returns every tag in use with its question count.
func (h *QuestionHandler) ListTags(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, h.forum.Tags(r.Context()))
}

func (h *QuestionHandler) questionView(q types.Question) QuestionView {
	return QuestionView{
		Question:        q,
		DescriptionHTML: h.sanitizer.HTML(q.Description),
		Solved:          q.Solved(),
	}
}

func (h *QuestionHandler) answerView(a types.Answer) AnswerView {
	return AnswerView{
		Answer:      a,
		ContentHTML: h.sanitizer.HTML(a.Content),
	}
}

type CreateQuestionRequest struct {
	Title       string   `json:"title" validate:"required,max=200"`
	Description string   `json:"description" validate:"required"`
	Tags        []string `json:"tags" validate:"min=1,max=5,unique,dive,required,max=50"`
}

func (req *CreateQuestionRequest) normalize() {
	req.Title = strings.TrimSpace(req.Title)
	req.Description = strings.TrimSpace(req.Description)
	for i, tag := range req.Tags {
		req.Tags[i] = strings.TrimSpace(tag)
	}
}

type CreateAnswerRequest struct {
	Content string `json:"content" validate:"required"`
}

type VoteRequest struct {
	Direction string `json:"direction" validate:"required,oneof=up down"`
}

type AcceptRequest struct {
	AnswerID string `json:"answer_id" validate:"required"`
}

type VoteResponse struct {
	ID    string `json:"id"`
	Votes int    `json:"votes"`
}

// QuestionView is a question with its sanitized description.
type QuestionView struct {
	types.Question
	DescriptionHTML string `json:"description_html"`
	Solved          bool   `json:"solved"`
}

// AnswerView is an answer with its sanitized content.
type AnswerView struct {
	types.Answer
	ContentHTML string `json:"content_html"`
}

type QuestionListResponse struct {
	Items []QuestionView `json:"items"`
	Page  int            `json:"page"`
	Limit int            `json:"limit"`
	Total int            `json:"total"`
}

type QuestionDetailResponse struct {
	Question QuestionView `json:"question"`
	Answers  []AnswerView `json:"answers"`
}
