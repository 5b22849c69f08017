package handlers

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/stackit-qa/apiserver/internal/services"
)

type HelpHandler struct {
	bot *services.HelpBot
}

func NewHelpHandler(bot *services.HelpBot) *HelpHandler {
	return &HelpHandler{bot: bot}
}

// HelpRouter registers the help widget routes.
func HelpRouter(r chi.Router, handler *HelpHandler) {
	r.Get("/", handler.Greeting)
	r.Post("/", handler.Ask)
}

// Greeting returns the opening message of the widget.
func (h *HelpHandler) Greeting(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, HelpResponse{Reply: h.bot.Greeting()})
}

// Ask answers a free-text message after the simulated typing delay.
func (h *HelpHandler) Ask(w http.ResponseWriter, r *http.Request) {
	var req HelpRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	if err := validateRequest(req); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	reply, err := h.bot.Reply(r.Context(), req.Message)
	if err != nil {
		writeServiceError(w, err, "failed to reply")
		return
	}
	writeJSON(w, http.StatusOK, HelpResponse{Reply: reply, Topic: h.bot.Match(req.Message)})
}

type HelpRequest struct {
	Message string `json:"message" validate:"required"`
}

type HelpResponse struct {
	Reply string `json:"reply"`
	Topic string `json:"topic,omitempty"`
}
