package vibe

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestGetTaskReturnsNilOnNotFound(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	}))
	defer server.Close()

	client := NewClient(server.URL, "token")
	task, err := client.GetTask(context.Background(), "11111111-1111-1111-1111-111111111111")
	require.NoError(t, err)
	require.Nil(t, task)
}

func TestCreateTaskIncludesProjectID(t *testing.T) {
	var received map[string]interface{}
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_ = json.NewDecoder(r.Body).Decode(&received)
		_ = json.NewEncoder(w).Encode(Task{ID: "uuid-1", Title: received["title"].(string)})
	}))
	defer server.Close()

	client := NewClient(server.URL, "token")
	task, err := client.CreateTask(context.Background(), "proj-1", map[string]interface{}{"title": "New task"})
	require.NoError(t, err)
	require.Equal(t, "proj-1", received["project_id"])
	require.Equal(t, "New task", task.Title)
}
