package huly

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/oculairmedia/hvbsync/internal/types"
)

func TestGetIssueReturnsNilOnNotFound(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	}))
	defer server.Close()

	client := NewClient(server.URL, "token")
	issue, err := client.GetIssue(context.Background(), "PROJ-1")
	require.NoError(t, err)
	require.Nil(t, issue)
}

func TestGetIssueParsesBody(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "Bearer token", r.Header.Get("Authorization"))
		_ = json.NewEncoder(w).Encode(Issue{Identifier: "PROJ-1", Title: "Fix bug"})
	}))
	defer server.Close()

	client := NewClient(server.URL, "token")
	issue, err := client.GetIssue(context.Background(), "PROJ-1")
	require.NoError(t, err)
	require.NotNil(t, issue)
	require.Equal(t, "Fix bug", issue.Title)
}

func TestClassifyStatusRetryableVsNonRetryable(t *testing.T) {
	cases := []struct {
		status    int
		wantKind  types.ErrKind
		retryable bool
	}{
		{http.StatusInternalServerError, types.ErrKindTransient, true},
		{http.StatusServiceUnavailable, types.ErrKindTransient, true},
		{http.StatusTooManyRequests, types.ErrKindTransient, true},
		{http.StatusBadRequest, types.ErrKindValidation, false},
		{http.StatusUnauthorized, types.ErrKindAuthN, false},
		{http.StatusNotFound, types.ErrKindNotFound, false},
		{http.StatusConflict, types.ErrKindConflict, true},
	}
	for _, tc := range cases {
		err := classifyStatus("Op", tc.status, []byte("body"))
		require.Error(t, err)
		te, ok := err.(*types.TrackerError)
		require.True(t, ok)
		require.Equal(t, tc.wantKind, te.Kind)
		require.Equal(t, tc.retryable, types.IsRetryable(err))
	}
}

func TestPatchIssueSendsOnlyChangedFields(t *testing.T) {
	var received map[string]interface{}
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, http.MethodPatch, r.Method)
		_ = json.NewDecoder(r.Body).Decode(&received)
		w.WriteHeader(http.StatusOK)
	}))
	defer server.Close()

	client := NewClient(server.URL, "token")
	err := client.PatchIssue(context.Background(), "PROJ-1", map[string]interface{}{"status": "Done"})
	require.NoError(t, err)
	require.Equal(t, "Done", received["status"])
	require.Len(t, received, 1)
}
