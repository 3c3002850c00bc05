package apitest

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mmcdole/perch/internal/domain"
)

func do(t *testing.T, s *Server, method, path, token, body string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	rec := httptest.NewRecorder()
	s.ServeHTTP(rec, req)
	return rec
}

func TestRequiresToken(t *testing.T) {
	s := NewServer("tok")

	assert.Equal(t, http.StatusUnauthorized, do(t, s, http.MethodGet, "/api/health", "", "").Code)
	assert.Equal(t, http.StatusUnauthorized, do(t, s, http.MethodGet, "/api/health", "bad", "").Code)
	assert.Equal(t, http.StatusOK, do(t, s, http.MethodGet, "/api/health", "tok", "").Code)
}

func TestEmptyTokenDisablesAuth(t *testing.T) {
	s := NewServer("")
	assert.Equal(t, http.StatusOK, do(t, s, http.MethodGet, "/api/board", "", "").Code)
}

func TestPutAndDelete(t *testing.T) {
	s := NewServer("tok")
	start := s.UpdatedAt()

	rec := do(t, s, http.MethodPut, "/api/entries/e1", "tok", `{"kind":"note","title":"hello"}`)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"id":"e1"`)
	assert.Greater(t, s.UpdatedAt(), start)

	entries := s.Entries()
	require.Len(t, entries, 1)
	assert.Equal(t, "hello", entries[0].Title)

	assert.Equal(t, http.StatusNoContent, do(t, s, http.MethodDelete, "/api/entries/e1", "tok", "").Code)
	assert.Equal(t, http.StatusNotFound, do(t, s, http.MethodDelete, "/api/entries/e1", "tok", "").Code)
}

func TestPutValidation(t *testing.T) {
	s := NewServer("")

	assert.Equal(t, http.StatusBadRequest, do(t, s, http.MethodPut, "/api/entries/e1", "", `{`).Code)
	assert.Equal(t, http.StatusBadRequest, do(t, s, http.MethodPut, "/api/entries/e1", "", `{"title":" "}`).Code)
	assert.Equal(t, http.StatusBadRequest, do(t, s, http.MethodPut, "/api/entries/e1", "", `{"id":"e2","title":"x"}`).Code)
}

func TestSetFailing(t *testing.T) {
	s := NewServer("")
	s.SetFailing(true)
	assert.Equal(t, http.StatusServiceUnavailable, do(t, s, http.MethodGet, "/api/entries", "", "").Code)
	s.SetFailing(false)
	assert.Equal(t, http.StatusOK, do(t, s, http.MethodGet, "/api/entries", "", "").Code)
	assert.Equal(t, 2, s.Requests())
}

func TestSeedOrdersByID(t *testing.T) {
	s := NewServer("")
	s.Seed(
		domain.Entry{ID: "b", Kind: domain.KindNote, Title: "second"},
		domain.Entry{ID: "a", Kind: domain.KindLink, Title: "first", URL: "https://example.com"},
	)

	entries := s.Entries()
	require.Len(t, entries, 2)
	assert.Equal(t, "a", entries[0].ID)
	assert.Equal(t, "https://example.com", entries[0].URL)

	rec := do(t, s, http.MethodGet, "/api/entries", "", "")
	assert.Less(t, strings.Index(rec.Body.String(), `"id":"a"`), strings.Index(rec.Body.String(), `"id":"b"`))
}
