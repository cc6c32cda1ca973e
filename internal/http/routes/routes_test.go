package routes

import (
	"bytes"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aanand-mishra/student-records/internal/http/middleware"
	"github.com/aanand-mishra/student-records/internal/storage/sqlite"
	"github.com/aanand-mishra/student-records/internal/types"
)

func newTestServer(t *testing.T) *httptest.Server {
	t.Helper()
	store, err := sqlite.New(filepath.Join(t.TempDir(), "students.db"))
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() })

	srv := httptest.NewServer(New(store, slog.New(slog.NewTextHandler(io.Discard, nil))))
	t.Cleanup(srv.Close)
	return srv
}

func do(t *testing.T, srv *httptest.Server, method, path, body string) *http.Response {
	t.Helper()
	var rd io.Reader
	if body != "" {
		rd = bytes.NewBufferString(body)
	}
	req, err := http.NewRequest(method, srv.URL+path, rd)
	require.NoError(t, err)
	if body != "" {
		req.Header.Set("Content-Type", "application/json")
	}
	resp, err := srv.Client().Do(req)
	require.NoError(t, err)
	t.Cleanup(func() { resp.Body.Close() })
	return resp
}

func decode[T any](t *testing.T, resp *http.Response) T {
	t.Helper()
	var v T
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&v))
	return v
}

func TestStudentLifecycle(t *testing.T) {
	srv := newTestServer(t)

	resp := do(t, srv, http.MethodGet, "/students/", "")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Empty(t, decode[[]types.Student](t, resp))

	resp = do(t, srv, http.MethodPost, "/students/",
		`{"first_name":"Ana","last_name":"Gomez","email":"ana@x.com","age":20}`)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.NotEmpty(t, resp.Header.Get(middleware.RequestIDHeader))
	created := decode[types.Student](t, resp)
	assert.Equal(t, types.Student{ID: 1, FirstName: "Ana", LastName: "Gomez", Email: "ana@x.com", Age: 20}, created)

	resp = do(t, srv, http.MethodPost, "/students/",
		`{"first_name":"Otra","last_name":"Ana","email":"ana@x.com","age":30}`)
	require.Equal(t, http.StatusBadRequest, resp.StatusCode)
	assert.Equal(t, "email already registered", decode[map[string]string](t, resp)["error"])

	resp = do(t, srv, http.MethodPut, "/students/1", `{"age":21}`)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, types.Student{ID: 1, FirstName: "Ana", LastName: "Gomez", Email: "ana@x.com", Age: 21},
		decode[types.Student](t, resp))

	resp = do(t, srv, http.MethodPut, "/students/1", `{}`)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, 21, decode[types.Student](t, resp).Age)

	resp = do(t, srv, http.MethodGet, "/students/1", "")
	require.Equal(t, http.StatusOK, resp.StatusCode)

	resp = do(t, srv, http.MethodPut, "/students/99", `{"age":21}`)
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)

	resp = do(t, srv, http.MethodDelete, "/students/1", "")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "deleted successfully", decode[map[string]string](t, resp)["message"])

	resp = do(t, srv, http.MethodDelete, "/students/1", "")
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)

	resp = do(t, srv, http.MethodGet, "/students", "")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Empty(t, decode[[]types.Student](t, resp))
}

func TestUpdateEmailCollision(t *testing.T) {
	srv := newTestServer(t)

	do(t, srv, http.MethodPost, "/students/", `{"first_name":"Ana","last_name":"Gomez","email":"ana@x.com","age":20}`)
	do(t, srv, http.MethodPost, "/students/", `{"first_name":"Luis","last_name":"Perez","email":"luis@x.com","age":22}`)

	resp := do(t, srv, http.MethodPut, "/students/1", `{"email":"luis@x.com"}`)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestHealthz(t *testing.T) {
	srv := newTestServer(t)

	resp := do(t, srv, http.MethodGet, "/healthz", "")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "ok", decode[map[string]string](t, resp)["status"])
}

func TestUnknownRoute(t *testing.T) {
	srv := newTestServer(t)

	resp := do(t, srv, http.MethodPatch, "/students/1", `{}`)
	assert.Equal(t, http.StatusMethodNotAllowed, resp.StatusCode)
}

func TestCreateChecksShapeOnly(t *testing.T) {
	srv := newTestServer(t)

	bodies := []string{
		`{"first_name":"Ana","last_name":"Gomez","email":"ana","age":20}`,
		`{"first_name":"Luis","last_name":"Perez","email":"luis@x.com","age":200}`,
		`{"id":5,"first_name":"Eva","last_name":"Ruiz","email":"eva@x.com","age":20}`,
		`{"first_name":"Sol","last_name":"","email":"sol@x.com","age":20}`,
	}
	for i, body := range bodies {
		resp := do(t, srv, http.MethodPost, "/students/", body)
		require.Equal(t, http.StatusOK, resp.StatusCode, body)
		assert.Equal(t, int64(i+1), decode[types.Student](t, resp).ID, "client-sent id must be ignored")
	}

	resp := do(t, srv, http.MethodPost, "/students/", `{"first_name":"Ana","last_name":"Gomez","email":"x@x.com"}`)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestUpdateMissingIDIsNotFoundForAnyFields(t *testing.T) {
	srv := newTestServer(t)

	for _, body := range []string{`{}`, `{"email":"zz"}`, `{"first_name":""}`, `{"age":-5}`} {
		resp := do(t, srv, http.MethodPut, "/students/99", body)
		assert.Equal(t, http.StatusNotFound, resp.StatusCode, body)
	}
}
