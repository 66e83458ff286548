package devserver

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/recera/uimacro/cmd/uimacro/internal/build"
	"github.com/recera/uimacro/pkg/backend/jinja"
	"github.com/recera/uimacro/pkg/compiler"
)

func newServer(t *testing.T) (*Server, string, string) {
	t.Helper()
	in, out := t.TempDir(), t.TempDir()
	b := build.New(compiler.New(&jinja.Backend{}, compiler.Options{}), build.Options{
		InputDir:   in,
		OutputDir:  out,
		Extensions: []string{".html"},
	})
	return New(b, 10*time.Millisecond), in, out
}

func dial(t *testing.T, ts *httptest.Server) *websocket.Conn {
	t.Helper()
	url := "ws" + strings.TrimPrefix(ts.URL, "http") + LivePath
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)
	t.Cleanup(func() { conn.Close() })

	require.NoError(t, conn.WriteJSON(map[string]string{"type": "HELLO"}))
	var ack map[string]interface{}
	require.NoError(t, conn.ReadJSON(&ack))
	require.Equal(t, "ACK", ack["type"])
	return conn
}

func read(t *testing.T, conn *websocket.Conn) map[string]interface{} {
	t.Helper()
	require.NoError(t, conn.SetReadDeadline(time.Now().Add(5*time.Second)))
	var msg map[string]interface{}
	require.NoError(t, conn.ReadJSON(&msg))
	return msg
}

func TestHandleFileChanges_Notifies(t *testing.T) {
	s, in, out := newServer(t)
	ts := httptest.NewServer(s.Handler())
	defer ts.Close()
	conn := dial(t, ts)

	path := filepath.Join(in, "chip.html")
	require.NoError(t, os.WriteFile(path, []byte("<span>{label}</span>"), 0644))
	s.HandleFileChanges([]fsnotify.Event{
		{Name: path, Op: fsnotify.Create},
		{Name: path, Op: fsnotify.Write},
	})

	msg := read(t, conn)
	assert.Equal(t, MsgCompiled, msg["type"])
	assert.Equal(t, "chip", msg["component"])
	assert.Equal(t, "chip.html", msg["output"])
	assert.FileExists(t, filepath.Join(out, "chip.html"))

	require.NoError(t, os.WriteFile(path, []byte("<p></p><p></p>"), 0644))
	s.HandleFileChanges([]fsnotify.Event{{Name: path, Op: fsnotify.Write}})
	msg = read(t, conn)
	assert.Equal(t, MsgError, msg["type"])
	assert.NotEmpty(t, msg["error"])

	require.NoError(t, os.Remove(path))
	s.HandleFileChanges([]fsnotify.Event{{Name: path, Op: fsnotify.Remove}})
	msg = read(t, conn)
	assert.Equal(t, MsgRemoved, msg["type"])
	assert.Empty(t, s.Results())
}

func TestRebuild_ServesStatusAndMacros(t *testing.T) {
	s, in, _ := newServer(t)
	require.NoError(t, os.WriteFile(filepath.Join(in, "card.html"), []byte(`<div class="card"><slot></slot></div>`), 0644))
	require.NoError(t, os.WriteFile(filepath.Join(in, "bad.html"), []byte("text only"), 0644))

	summary, err := s.Rebuild(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, summary.Compiled)
	assert.Equal(t, 1, summary.Failed)

	ts := httptest.NewServer(s.Handler())
	defer ts.Close()

	resp, err := http.Get(ts.URL + "/api/components")
	require.NoError(t, err)
	defer resp.Body.Close()
	var results []map[string]interface{}
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&results))
	require.Len(t, results, 2)
	assert.NotEmpty(t, results[0]["error"], "bad.html sorts first")
	assert.Equal(t, "card", results[1]["component"])

	resp, err = http.Get(ts.URL + "/macros/card.html")
	require.NoError(t, err)
	body, err := io.ReadAll(resp.Body)
	resp.Body.Close()
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(string(body), "{% macro card() -%}"), string(body))

	resp, err = http.Get(ts.URL + "/")
	require.NoError(t, err)
	body, err = io.ReadAll(resp.Body)
	resp.Body.Close()
	require.NoError(t, err)
	assert.Contains(t, string(body), `href="/macros/card.html"`)

	resp, err = http.Get(ts.URL + "/missing")
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}

func TestIsRelevantFile(t *testing.T) {
	s, in, _ := newServer(t)
	assert.True(t, s.isRelevantFile(filepath.Join(in, "a.html")))
	assert.False(t, s.isRelevantFile(filepath.Join(in, "a.txt")))
	assert.False(t, s.isRelevantFile(filepath.Join(in, ".a.html")))
}

func TestWatch_StopsWithContext(t *testing.T) {
	s, _, _ := newServer(t)
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- s.Watch(ctx) }()
	cancel()

	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("watch did not stop")
	}
}
