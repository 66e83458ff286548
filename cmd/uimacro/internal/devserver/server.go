// Package devserver rebuilds macros as component files change and pushes the
// results to connected browsers.
package devserver

import (
	"context"
	"encoding/json"
	"fmt"
	"html/template"
	"log"
	"net/http"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/gorilla/websocket"

	"github.com/recera/uimacro/cmd/uimacro/internal/build"
)

// LivePath is the websocket endpoint browsers subscribe to
const LivePath = "/uimacro/live"

// Message types pushed to clients
const (
	MsgCompiled = "COMPILED"
	MsgError    = "ERROR"
	MsgRemoved  = "REMOVED"
)

// Server watches a component directory and serves the generated macros.
type Server struct {
	builder  *build.Builder
	debounce time.Duration

	wsClients map[*websocket.Conn]bool
	wsMutex   sync.RWMutex
	upgrader  websocket.Upgrader

	buildMutex sync.Mutex
	statusMu   sync.RWMutex
	status     map[string]*build.Result
}

// New creates a dev server around b. Events arriving within debounce of each
// other are handled as one batch.
func New(b *build.Builder, debounce time.Duration) *Server {
	return &Server{
		builder:   b,
		debounce:  debounce,
		wsClients: make(map[*websocket.Conn]bool),
		status:    make(map[string]*build.Result),
		upgrader: websocket.Upgrader{
			CheckOrigin: func(r *http.Request) bool {
				// Allow all origins in dev mode
				return true
			},
		},
	}
}

// Rebuild compiles every component and records the results.
func (s *Server) Rebuild(ctx context.Context) (*build.Summary, error) {
	s.buildMutex.Lock()
	defer s.buildMutex.Unlock()

	summary, err := s.builder.BuildAll(ctx)
	if err != nil {
		return nil, err
	}

	s.statusMu.Lock()
	s.status = make(map[string]*build.Result, len(summary.Files))
	for _, r := range summary.Files {
		s.status[r.Source] = r
	}
	s.statusMu.Unlock()
	return summary, nil
}

// Watch blocks until ctx is done, rebuilding components as they change.
func (s *Server) Watch(ctx context.Context) error {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("failed to create file watcher: %w", err)
	}
	defer watcher.Close()

	if err := watcher.Add(s.builder.InputDir()); err != nil {
		return fmt.Errorf("failed to watch %s: %w", s.builder.InputDir(), err)
	}

	debounce := time.NewTimer(0)
	<-debounce.C // drain initial timer

	var pendingEvents []fsnotify.Event
	for {
		select {
		case <-ctx.Done():
			return nil

		case event, ok := <-watcher.Events:
			if !ok {
				return nil
			}
			if !s.isRelevantFile(event.Name) {
				continue
			}
			pendingEvents = append(pendingEvents, event)
			debounce.Reset(s.debounce)

		case err, ok := <-watcher.Errors:
			if !ok {
				return nil
			}
			log.Println("Watcher error:", err)

		case <-debounce.C:
			events := pendingEvents
			pendingEvents = nil
			if len(events) > 0 {
				s.HandleFileChanges(events)
			}
		}
	}
}

func (s *Server) isRelevantFile(path string) bool {
	if strings.HasPrefix(filepath.Base(path), ".") {
		return false
	}
	return s.builder.Accepts(path)
}

// HandleFileChanges rebuilds or removes each file touched by events. Several
// events for one file collapse into its final state on disk.
func (s *Server) HandleFileChanges(events []fsnotify.Event) {
	s.buildMutex.Lock()
	defer s.buildMutex.Unlock()

	seen := make(map[string]bool)
	var paths []string
	for _, event := range events {
		if !seen[event.Name] {
			seen[event.Name] = true
			paths = append(paths, event.Name)
		}
	}
	sort.Strings(paths)

	for _, path := range paths {
		if _, err := os.Stat(path); os.IsNotExist(err) {
			s.remove(path)
			continue
		}
		s.rebuild(path)
	}
}

func (s *Server) rebuild(path string) {
	res := s.builder.BuildFile(path)

	s.statusMu.Lock()
	s.status[path] = res
	s.statusMu.Unlock()

	if res.Err != nil {
		log.Printf("❌ %v", res.Err)
		s.notifyClients(MsgError, map[string]interface{}{
			"source": path,
			"error":  res.Error,
		})
		return
	}

	for _, d := range res.Diagnostics {
		log.Printf("⚠️  %s", d)
	}
	log.Printf("✅ Rebuilt %s in %v", filepath.Base(res.Output), res.Duration)
	s.notifyClients(MsgCompiled, map[string]interface{}{
		"source":      path,
		"component":   res.Component,
		"output":      filepath.Base(res.Output),
		"diagnostics": res.Diagnostics,
	})
}

func (s *Server) remove(path string) {
	s.statusMu.Lock()
	delete(s.status, path)
	s.statusMu.Unlock()

	out, err := s.builder.Remove(path)
	if err != nil {
		log.Printf("❌ %v", err)
		return
	}
	log.Printf("🗑️  Removed %s", filepath.Base(out))
	s.notifyClients(MsgRemoved, map[string]interface{}{
		"source": path,
		"output": filepath.Base(out),
	})
}

// Results returns the latest build result per component file, sorted by source.
func (s *Server) Results() []*build.Result {
	s.statusMu.RLock()
	defer s.statusMu.RUnlock()

	results := make([]*build.Result, 0, len(s.status))
	for _, r := range s.status {
		results = append(results, r)
	}
	sort.Slice(results, func(i, j int) bool {
		return results[i].Source < results[j].Source
	})
	return results
}

// Handler returns the HTTP routes of the dev server
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc(LivePath, s.handleWebSocket)
	mux.HandleFunc("/api/components", s.serveStatus)
	mux.Handle("/macros/", http.StripPrefix("/macros/", http.FileServer(http.Dir(s.builder.OutputDir()))))
	mux.HandleFunc("/", s.serveIndex)
	return mux
}

func (s *Server) serveStatus(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	w.Header().Set("Cache-Control", "no-cache")
	if err := json.NewEncoder(w).Encode(s.Results()); err != nil {
		log.Printf("Failed to encode status: %v", err)
	}
}

var indexTemplate = template.Must(template.New("index").Funcs(template.FuncMap{
	"base": filepath.Base,
	"live": func() string { return LivePath },
}).Parse(`<!DOCTYPE html>
<html>
<head>
<meta charset="utf-8">
<title>uimacro</title>
<style>
body { font-family: system-ui, sans-serif; margin: 2rem; color: #1e293b; }
.ok { color: #10b981; } .fail { color: #ef4444; } .warn { color: #f59e0b; }
pre { background: #f1f5f9; padding: 1rem; overflow-x: auto; }
</style>
</head>
<body>
<h1>Components</h1>
{{range .}}
<section>
  {{if .Err}}
  <h2 class="fail">✗ {{.Source}}</h2>
  <pre>{{.Error}}</pre>
  {{else}}
  <h2 class="ok">✓ <a href="/macros/{{base .Output}}">{{.Component}}</a></h2>
  {{range .Diagnostics}}<p class="warn">{{.}}</p>{{end}}
  {{end}}
</section>
{{else}}
<p>No components found.</p>
{{end}}
<script>
(function connect() {
  var ws = new WebSocket((location.protocol === "https:" ? "wss://" : "ws://") + location.host + "{{live}}");
  ws.onopen = function () { ws.send(JSON.stringify({type: "HELLO"})); };
  ws.onmessage = function (e) {
    var msg = JSON.parse(e.data);
    if (msg.type !== "ACK") location.reload();
  };
  ws.onclose = function () { setTimeout(connect, 1000); };
})();
</script>
</body>
</html>
`))

func (s *Server) serveIndex(w http.ResponseWriter, r *http.Request) {
	if r.URL.Path != "/" {
		http.NotFound(w, r)
		return
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.Header().Set("Cache-Control", "no-cache")
	if err := indexTemplate.Execute(w, s.Results()); err != nil {
		log.Printf("Failed to render index: %v", err)
	}
}

func (s *Server) handleWebSocket(w http.ResponseWriter, r *http.Request) {
	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Println("WebSocket upgrade error:", err)
		return
	}
	defer conn.Close()

	s.wsMutex.Lock()
	s.wsClients[conn] = true
	s.wsMutex.Unlock()

	defer func() {
		s.wsMutex.Lock()
		delete(s.wsClients, conn)
		s.wsMutex.Unlock()
	}()

	for {
		var msg map[string]interface{}
		if err := conn.ReadJSON(&msg); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				log.Printf("WebSocket error: %v", err)
			}
			break
		}

		switch msg["type"] {
		case "HELLO":
			s.wsMutex.Lock()
			err := conn.WriteJSON(map[string]interface{}{"type": "ACK"})
			s.wsMutex.Unlock()
			if err != nil {
				return
			}
		default:
			log.Printf("Unknown WebSocket message type: %v", msg["type"])
		}
	}
}

// notifyClients holds the write lock; gorilla connections allow one writer.
func (s *Server) notifyClients(msgType string, data map[string]interface{}) {
	s.wsMutex.Lock()
	defer s.wsMutex.Unlock()

	message := map[string]interface{}{
		"type": strings.ToUpper(msgType),
	}
	for k, v := range data {
		message[k] = v
	}

	for client := range s.wsClients {
		if err := client.WriteJSON(message); err != nil {
			log.Printf("Failed to send message to client: %v", err)
		}
	}
}

// ListenAndServe serves until ctx is done, then shuts down gracefully.
func (s *Server) ListenAndServe(ctx context.Context, addr string) error {
	srv := &http.Server{
		Addr:    addr,
		Handler: s.Handler(),
	}

	errCh := make(chan error, 1)
	go func() {
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	}
}
