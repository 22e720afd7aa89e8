package api

import (
	"bytes"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pbaille/taxonomist/internal/session"
)

type testEnv struct {
	labelsDir string
	inputDir  string
	outputDir string
	handler   http.Handler
}

func newTestEnv(t *testing.T, images ...string) testEnv {
	t.Helper()
	root := t.TempDir()
	env := testEnv{
		labelsDir: filepath.Join(root, "labels"),
		inputDir:  filepath.Join(root, "in"),
		outputDir: filepath.Join(root, "out"),
	}
	require.NoError(t, os.MkdirAll(env.labelsDir, 0755))
	require.NoError(t, os.MkdirAll(env.inputDir, 0755))
	require.NoError(t, os.WriteFile(filepath.Join(env.labelsDir, "animals.txt"), []byte("cat\ndog\n"), 0644))
	require.NoError(t, os.WriteFile(filepath.Join(env.labelsDir, "single.txt"), []byte("only\n"), 0644))
	for _, name := range images {
		require.NoError(t, os.WriteFile(filepath.Join(env.inputDir, name), []byte("data-"+name), 0644))
	}

	sess, err := session.New([]string{"cat", "dog"}, env.inputDir, env.outputDir)
	require.NoError(t, err)

	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	env.handler = New(sess, env.labelsDir, ":0", logger).Router()
	return env
}

func (e testEnv) do(t *testing.T, method, path, body string) *httptest.ResponseRecorder {
	t.Helper()
	var r io.Reader
	if body != "" {
		r = strings.NewReader(body)
	}
	req := httptest.NewRequest(method, path, r)
	rec := httptest.NewRecorder()
	e.handler.ServeHTTP(rec, req)
	return rec
}

func decode[T any](t *testing.T, rec *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &v))
	return v
}

func TestHealth(t *testing.T) {
	env := newTestEnv(t, "a.png")
	rec := env.do(t, http.MethodGet, "/health", "")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "ok", decode[map[string]string](t, rec)["status"])
}

func TestListLabelSets(t *testing.T) {
	env := newTestEnv(t, "a.png")
	rec := env.do(t, http.MethodGet, "/labels", "")
	require.Equal(t, http.StatusOK, rec.Code)

	resp := decode[LabelSetsResponse](t, rec)
	assert.Equal(t, env.labelsDir, resp.LabelsDir)
	require.Len(t, resp.Sets, 1)
	assert.Equal(t, "animals", resp.Sets[0].Name)
	assert.Equal(t, []string{"cat", "dog"}, resp.Sets[0].Labels)
}

func TestGetState(t *testing.T) {
	env := newTestEnv(t, "a.png", "b.jpg")
	rec := env.do(t, http.MethodGet, "/session", "")
	require.Equal(t, http.StatusOK, rec.Code)

	state := decode[StateResponse](t, rec)
	assert.Equal(t, 0, state.Index)
	assert.Equal(t, 2, state.Total)
	assert.True(t, state.Remaining)
	assert.Equal(t, filepath.Join(env.inputDir, "b.jpg"), state.Current)
	require.NotNil(t, state.Image)
	assert.Equal(t, "b.jpg", state.Image.Name)
	assert.Nil(t, state.LastChoice)
}

func TestClassifyIgnoreUndo(t *testing.T) {
	env := newTestEnv(t, "a.png", "b.jpg")

	rec := env.do(t, http.MethodPost, "/session/classify", `{"label":"cat"}`)
	require.Equal(t, http.StatusOK, rec.Code)
	resp := decode[ActionResponse](t, rec)
	assert.Equal(t, "cat", resp.Choice.Label)
	assert.Equal(t, filepath.Join(env.outputDir, "cat", "b.jpg"), resp.Choice.DestFile)
	assert.Equal(t, 1, resp.State.Index)
	assert.FileExists(t, resp.Choice.DestFile)

	rec = env.do(t, http.MethodPost, "/session/ignore", "")
	require.Equal(t, http.StatusOK, rec.Code)
	resp = decode[ActionResponse](t, rec)
	assert.True(t, resp.Choice.Ignored())
	assert.False(t, resp.State.Remaining)

	rec = env.do(t, http.MethodGet, "/session/choices", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"label":"cat"`)

	rec = env.do(t, http.MethodPost, "/session/undo", "")
	require.Equal(t, http.StatusOK, rec.Code)
	rec = env.do(t, http.MethodPost, "/session/undo", "")
	require.Equal(t, http.StatusOK, rec.Code)
	resp = decode[ActionResponse](t, rec)
	assert.Equal(t, 0, resp.State.Index)
	assert.NoFileExists(t, filepath.Join(env.outputDir, "cat", "b.jpg"))
}

func TestErrorMapping(t *testing.T) {
	env := newTestEnv(t, "a.png")

	rec := env.do(t, http.MethodPost, "/session/undo", "")
	assert.Equal(t, http.StatusConflict, rec.Code)

	rec = env.do(t, http.MethodPost, "/session/classify", `{"label":"Cat"}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Contains(t, decode[map[string]string](t, rec)["error"], "Cat")

	rec = env.do(t, http.MethodPost, "/session/classify", `not json`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = env.do(t, http.MethodPost, "/session/ignore", "")
	require.Equal(t, http.StatusOK, rec.Code)

	rec = env.do(t, http.MethodPost, "/session/ignore", "")
	assert.Equal(t, http.StatusConflict, rec.Code)
	rec = env.do(t, http.MethodGet, "/session/image", "")
	assert.Equal(t, http.StatusConflict, rec.Code)
}

func TestCopyFailureIsInternalError(t *testing.T) {
	env := newTestEnv(t, "a.png")
	require.NoError(t, os.Remove(filepath.Join(env.inputDir, "a.png")))

	rec := env.do(t, http.MethodPost, "/session/classify", `{"label":"dog"}`)
	assert.Equal(t, http.StatusInternalServerError, rec.Code)

	state := decode[StateResponse](t, env.do(t, http.MethodGet, "/session", ""))
	assert.Equal(t, 0, state.Index)
}

func TestCurrentImage(t *testing.T) {
	env := newTestEnv(t, "a.png")
	rec := env.do(t, http.MethodGet, "/session/image", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.True(t, bytes.Equal([]byte("data-a.png"), rec.Body.Bytes()))
	assert.Equal(t, "image/png", rec.Header().Get("Content-Type"))
}

func TestCORSPreflight(t *testing.T) {
	env := newTestEnv(t, "a.png")
	rec := env.do(t, http.MethodOptions, "/session/classify", "")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "*", rec.Header().Get("Access-Control-Allow-Origin"))
}
