package rewariosdk_test

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"rewario/internal/catalog"
	"rewario/internal/domain"
	"rewario/internal/fetch"
	rewariosdk "rewario/sdk/go"
)

var _ fetch.Source = (*rewariosdk.Client)(nil)

func writeJSON(w http.ResponseWriter, v any) {
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(v)
}

func fakeAPI(t *testing.T) *httptest.Server {
	t.Helper()
	mux := http.NewServeMux()
	mux.HandleFunc("/v0/tasks", func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "surveys", r.URL.Query().Get("category"))
		writeJSON(w, map[string]any{"items": []domain.Task{{ID: "task-2", Title: "Complete Survey"}}})
	})
	mux.HandleFunc("/v0/tasks/task-9", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusNotFound)
		_, _ = w.Write([]byte(`{"error":{"code":"not_found","message":"task task-9: not found"}}`))
	})
	mux.HandleFunc("/v0/session/login", func(w http.ResponseWriter, r *http.Request) {
		var body map[string]string
		_ = json.NewDecoder(r.Body).Decode(&body)
		assert.Equal(t, "a@b.com", body["email"])
		writeJSON(w, map[string]any{"token": "tok", "user": domain.User{ID: "u1", Email: "a@b.com"}})
	})
	mux.HandleFunc("/v0/me", func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("Authorization") != "Bearer tok" {
			w.WriteHeader(http.StatusUnauthorized)
			_, _ = w.Write([]byte(`{"error":{"code":"unauthorized","message":"authentication required"}}`))
			return
		}
		writeJSON(w, domain.User{ID: "u1", Coins: 100})
	})
	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)
	return srv
}

func TestListTasks(t *testing.T) {
	srv := fakeAPI(t)
	c := rewariosdk.New(srv.URL + "/v0")
	tasks, err := c.ListTasks(context.Background(), catalog.Filter{Category: "surveys"})
	require.NoError(t, err)
	require.Len(t, tasks, 1)
	assert.Equal(t, "task-2", tasks[0].ID)
}

func TestErrorEnvelope(t *testing.T) {
	srv := fakeAPI(t)
	c := rewariosdk.New(srv.URL + "/v0")
	_, err := c.GetTask(context.Background(), "task-9")
	var apiErr *rewariosdk.APIError
	require.True(t, errors.As(err, &apiErr))
	assert.Equal(t, http.StatusNotFound, apiErr.StatusCode)
	assert.Equal(t, "not_found", apiErr.Code)
	assert.ErrorIs(t, err, domain.ErrNotFound)

	_, err = c.Me(context.Background())
	assert.ErrorIs(t, err, domain.ErrNotAuthenticated)
}

func TestLoginSetsToken(t *testing.T) {
	srv := fakeAPI(t)
	c := rewariosdk.New(srv.URL + "/v0")
	sess, err := c.Login(context.Background(), "a@b.com", "pw")
	require.NoError(t, err)
	assert.Equal(t, "tok", sess.Token)
	me, err := c.Me(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 100, me.Coins)
}
