package models_test

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pwscontext/pwscontext/internal/api/models"
)

func TestProblem_NewProblem(t *testing.T) {
	p := models.NewProblem(
		models.ProblemTypeInternal,
		"Internal server error",
		http.StatusInternalServerError,
		"req_test123",
	)

	assert.Equal(t, models.ProblemTypeInternal, p.Type)
	assert.Equal(t, "Internal server error", p.Title)
	assert.Equal(t, http.StatusInternalServerError, p.Status)
	assert.Equal(t, "req_test123", p.TraceID)
	assert.Empty(t, p.Detail)
	assert.Empty(t, p.Instance)
}

func TestProblem_WithInstance(t *testing.T) {
	p := models.NewTooManyRequests("req_test123", "slow down").WithInstance("/v2/op/query")

	assert.Equal(t, "/v2/op/query", p.Instance)
	assert.Equal(t, "slow down", p.Detail)
}

func TestProblem_Write(t *testing.T) {
	p := models.NewInternalError("req_test123", "an unexpected error occurred").WithInstance("/v2/op/query")

	w := httptest.NewRecorder()
	p.Write(w)

	assert.Equal(t, http.StatusInternalServerError, w.Code)
	assert.Equal(t, "application/problem+json", w.Header().Get("Content-Type"))
	assert.Equal(t, "req_test123", w.Header().Get("X-Request-Id"))

	var result models.Problem
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &result))

	assert.Equal(t, models.ProblemTypeInternal, result.Type)
	assert.Equal(t, "Internal server error", result.Title)
	assert.Equal(t, http.StatusInternalServerError, result.Status)
	assert.Equal(t, "an unexpected error occurred", result.Detail)
	assert.Equal(t, "/v2/op/query", result.Instance)
	assert.Equal(t, "req_test123", result.TraceID)
}

func TestProblem_WriteWithoutTraceID(t *testing.T) {
	w := httptest.NewRecorder()
	models.NewInternalError("", "boom").Write(w)

	assert.Empty(t, w.Header().Get("X-Request-Id"))
}

func TestProblemConstructors(t *testing.T) {
	tests := []struct {
		name       string
		problem    *models.Problem
		wantType   string
		wantTitle  string
		wantStatus int
	}{
		{"tls required", models.NewTLSRequired("req_1"), models.ProblemTypeTLSRequired, "TLS required", http.StatusForbidden},
		{"too many requests", models.NewTooManyRequests("req_1", "x"), models.ProblemTypeTooManyRequests, "Too many requests", http.StatusTooManyRequests},
		{"internal", models.NewInternalError("req_1", "x"), models.ProblemTypeInternal, "Internal server error", http.StatusInternalServerError},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.wantType, tt.problem.Type)
			assert.Equal(t, tt.wantTitle, tt.problem.Title)
			assert.Equal(t, tt.wantStatus, tt.problem.Status)
			assert.Equal(t, "req_1", tt.problem.TraceID)
			assert.NotEmpty(t, tt.problem.Detail)
		})
	}
}
