package handlers

import (
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stackit-qa/apiserver/internal/services"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParsePagination(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/questions?page=3&limit=500", nil)
	page, limit, offset, err := parsePagination(req)
	require.NoError(t, err)
	assert.Equal(t, 3, page)
	assert.Equal(t, maxLimit, limit)
	assert.Equal(t, 2*maxLimit, offset)

	_, _, _, err = parsePagination(httptest.NewRequest(http.MethodGet, "/questions?limit=x", nil))
	require.Error(t, err)
}

func TestPaginate(t *testing.T) {
	items := []int{1, 2, 3, 4, 5}
	assert.Equal(t, []int{3, 4}, paginate(items, 2, 2))
	assert.Equal(t, []int{5}, paginate(items, 4, 10))
	assert.Empty(t, paginate(items, 10, 2))
}

func TestWriteServiceError(t *testing.T) {
	tests := []struct {
		err  error
		want int
	}{
		{fmt.Errorf("question %q: %w", "x", services.ErrNotFound), http.StatusNotFound},
		{services.ErrAlreadyAccepted, http.StatusConflict},
		{services.ErrUnauthenticated, http.StatusUnauthorized},
		{services.ErrInvalidVote, http.StatusBadRequest},
		{services.ErrEmailTaken, http.StatusConflict},
		{errors.New("boom"), http.StatusInternalServerError},
	}
	for _, tt := range tests {
		rec := httptest.NewRecorder()
		writeServiceError(rec, tt.err, "failed")
		assert.Equal(t, tt.want, rec.Code, tt.err.Error())
	}
}

func TestValidationMessages(t *testing.T) {
	err := validateRequest(CreateQuestionRequest{Title: "t", Description: "d", Tags: []string{"Go", "Go"}})
	require.Error(t, err)
	assert.Equal(t, "tags must not contain duplicates", err.Error())

	err = validateRequest(CreateQuestionRequest{Tags: []string{"Go"}})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "title is required")
	assert.Contains(t, err.Error(), "description is required")

	err = validateRequest(VoteRequest{Direction: "left"})
	require.Error(t, err)
	assert.Equal(t, "direction must be one of: up down", err.Error())
}
