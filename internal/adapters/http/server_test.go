package http

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	graphstore "github.com/stoneforge-ai/stoneforge-sub017"
	"github.com/stoneforge-ai/stoneforge-sub017/pkg/domain"
)

func newTestHandler(t *testing.T) http.Handler {
	t.Helper()
	return NewHandler(graphstore.New())
}

func doJSON(t *testing.T, handler http.Handler, method, path string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	rr := httptest.NewRecorder()
	handler.ServeHTTP(rr, req)
	return rr
}

func createTask(t *testing.T, handler http.Handler, title string) *domain.Element {
	t.Helper()
	rr := doJSON(t, handler, "POST", "/api/elements", CreateElementRequest{
		Kind:  "task",
		Title: title,
		Actor: "tester",
	})
	require.Equal(t, http.StatusCreated, rr.Code, rr.Body.String())
	var el domain.Element
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &el))
	return &el
}

func TestGetHealth(t *testing.T) {
	handler := newTestHandler(t)

	rr := doJSON(t, handler, "GET", "/health", nil)
	assert.Equal(t, http.StatusOK, rr.Code)

	var resp map[string]string
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &resp))
	assert.Equal(t, "ok", resp["status"])
}

func TestCreateAndGetElement(t *testing.T) {
	handler := newTestHandler(t)

	el := createTask(t, handler, "Write docs")
	assert.NotEmpty(t, el.ID)
	assert.Equal(t, domain.KindTask, el.Kind)
	require.NotNil(t, el.Task)
	assert.Equal(t, domain.StatusOpen, el.Task.Explicit)

	rr := doJSON(t, handler, "GET", "/api/elements/"+el.ID, nil)
	assert.Equal(t, http.StatusOK, rr.Code)

	var got domain.Element
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &got))
	assert.Equal(t, el.ID, got.ID)
	assert.Equal(t, "Write docs", got.Title)
}

func TestCreateElementInvalidKind(t *testing.T) {
	handler := newTestHandler(t)

	rr := doJSON(t, handler, "POST", "/api/elements", CreateElementRequest{
		Kind:  "widget",
		Title: "nope",
	})
	assert.Equal(t, http.StatusBadRequest, rr.Code)
}

func TestGetElementNotFound(t *testing.T) {
	handler := newTestHandler(t)

	rr := doJSON(t, handler, "GET", "/api/elements/missing", nil)
	assert.Equal(t, http.StatusNotFound, rr.Code)
}

func TestAddDependencyBlocksTask(t *testing.T) {
	handler := newTestHandler(t)

	blocker := createTask(t, handler, "Build API")
	blocked := createTask(t, handler, "Release")

	rr := doJSON(t, handler, "POST", "/api/dependencies", DependencyRequest{
		BlockerID: blocker.ID,
		BlockedID: blocked.ID,
		Type:      "blocks",
		Actor:     "tester",
	})
	require.Equal(t, http.StatusCreated, rr.Code, rr.Body.String())

	rr = doJSON(t, handler, "GET", "/api/elements/"+blocked.ID, nil)
	require.Equal(t, http.StatusOK, rr.Code)
	var got domain.Element
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &got))
	require.NotNil(t, got.Task)
	assert.True(t, got.Task.Blocked)
	assert.Equal(t, domain.StatusBlocked, got.Task.Effective())
}

func TestAddDependencyUnknownEndpoint(t *testing.T) {
	handler := newTestHandler(t)
	blocked := createTask(t, handler, "Release")

	rr := doJSON(t, handler, "POST", "/api/dependencies", DependencyRequest{
		BlockerID: "missing",
		BlockedID: blocked.ID,
		Type:      "blocks",
	})
	assert.Equal(t, http.StatusNotFound, rr.Code)
}

func TestRemoveDependencyUnblocks(t *testing.T) {
	handler := newTestHandler(t)

	blocker := createTask(t, handler, "Build API")
	blocked := createTask(t, handler, "Release")

	rr := doJSON(t, handler, "POST", "/api/dependencies", DependencyRequest{
		BlockerID: blocker.ID,
		BlockedID: blocked.ID,
		Type:      "blocks",
	})
	require.Equal(t, http.StatusCreated, rr.Code)

	rr = doJSON(t, handler, "DELETE", "/api/dependencies", DependencyRequest{
		BlockerID: blocker.ID,
		BlockedID: blocked.ID,
		Type:      "blocks",
	})
	assert.Equal(t, http.StatusNoContent, rr.Code)

	rr = doJSON(t, handler, "GET", "/api/elements/"+blocked.ID, nil)
	var got domain.Element
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &got))
	assert.False(t, got.Task.Blocked)
}

func TestRemoveDependencyMissing(t *testing.T) {
	handler := newTestHandler(t)
	a := createTask(t, handler, "A")
	b := createTask(t, handler, "B")

	rr := doJSON(t, handler, "DELETE", "/api/dependencies", DependencyRequest{
		BlockerID: a.ID,
		BlockedID: b.ID,
		Type:      "blocks",
	})
	assert.Equal(t, http.StatusNotFound, rr.Code)
}

func TestUpdateStatus(t *testing.T) {
	handler := newTestHandler(t)
	el := createTask(t, handler, "Task")

	rr := doJSON(t, handler, "PATCH", "/api/elements/"+el.ID+"/status", UpdateStatusRequest{
		Status: "in_progress",
		Actor:  "tester",
	})
	require.Equal(t, http.StatusOK, rr.Code, rr.Body.String())

	var got domain.Element
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &got))
	assert.Equal(t, domain.StatusInProgress, got.Task.Explicit)
}

func TestUpdateStatusRejectsBlocked(t *testing.T) {
	handler := newTestHandler(t)
	el := createTask(t, handler, "Task")

	rr := doJSON(t, handler, "PATCH", "/api/elements/"+el.ID+"/status", UpdateStatusRequest{
		Status: "blocked",
	})
	assert.Equal(t, http.StatusBadRequest, rr.Code)
}

func TestReadyAndBlockedQueries(t *testing.T) {
	handler := newTestHandler(t)

	blocker := createTask(t, handler, "Build API")
	blocked := createTask(t, handler, "Release")

	rr := doJSON(t, handler, "POST", "/api/dependencies", DependencyRequest{
		BlockerID: blocker.ID,
		BlockedID: blocked.ID,
		Type:      "blocks",
	})
	require.Equal(t, http.StatusCreated, rr.Code)

	rr = doJSON(t, handler, "GET", "/api/tasks/ready", nil)
	require.Equal(t, http.StatusOK, rr.Code)
	var ready []*domain.Element
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &ready))
	require.Len(t, ready, 1)
	assert.Equal(t, blocker.ID, ready[0].ID)

	rr = doJSON(t, handler, "GET", "/api/tasks/blocked", nil)
	require.Equal(t, http.StatusOK, rr.Code)
	var blockedList []*domain.Element
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &blockedList))
	require.Len(t, blockedList, 1)
	assert.Equal(t, blocked.ID, blockedList[0].ID)
}

func TestReconcileEndpoint(t *testing.T) {
	handler := newTestHandler(t)
	el := createTask(t, handler, "Task")

	rr := doJSON(t, handler, "POST", "/api/elements/"+el.ID+"/reconcile", nil)
	require.Equal(t, http.StatusOK, rr.Code)

	var got domain.Element
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &got))
	assert.False(t, got.Task.Blocked)

	rr = doJSON(t, handler, "POST", "/api/elements/missing/reconcile", nil)
	assert.Equal(t, http.StatusNotFound, rr.Code)
}

func TestListEvents(t *testing.T) {
	handler := newTestHandler(t)
	el := createTask(t, handler, "Task")

	rr := doJSON(t, handler, "GET", "/api/elements/"+el.ID+"/events", nil)
	require.Equal(t, http.StatusOK, rr.Code)

	var events []*domain.Event
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &events))
	require.NotEmpty(t, events)
	assert.Equal(t, domain.EventCreated, events[0].Type)
}
