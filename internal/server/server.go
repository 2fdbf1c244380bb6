package server

import (
	"context"
	crand "crypto/rand"
	"database/sql"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"sync"
	"syscall"
	"time"

	"lostfound/internal/config"
	"lostfound/internal/embedding"
	mylog "lostfound/internal/log"
	"lostfound/internal/store"
	"lostfound/internal/vectorstore"
	"lostfound/internal/version"
)

// API wires the capabilities behind the HTTP handlers. Handlers stay
// stateless; the only shared mutable state lives inside the vector
// store's session manager and the embedding cache.
type API struct {
	items      store.ItemStore
	emb        embedding.Embedder
	vs         vectorstore.VectorStore
	collection string
	dim        int
	lg         *mylog.Logger
}

func NewAPI(items store.ItemStore, emb embedding.Embedder, vs vectorstore.VectorStore) *API {
	return &API{
		items:      items,
		emb:        emb,
		vs:         vs,
		collection: config.Collection(),
		dim:        config.VectorDim(),
		lg:         mylog.New(),
	}
}

func (a *API) mux() *http.ServeMux {
	mux := http.NewServeMux()
	mux.HandleFunc("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})
	mux.HandleFunc("/api/items", a.handleIngest)
	mux.HandleFunc("/api/list", a.handleList)
	mux.HandleFunc("/api/search", a.handleSearch)
	mux.HandleFunc("/metrics", a.handleMetrics)
	return mux
}

// Run starts the HTTP server with store, embedder and vector store
// selected from the environment. It blocks until SIGINT/SIGTERM.
func Run(addr string) error {
	lg := mylog.New()

	var st store.ItemStore
	var db *sql.DB
	if path := os.Getenv("LOSTFOUND_SQLITE_PATH"); path != "" {
		if sdb, err := store.NewSQLite(path); err == nil {
			st = sdb
			db = sdb.DB()
			lg.Info("store.sqlite", "path", path)
		} else {
			lg.Warn("store.sqlite_failed", "err", err.Error())
			st = store.NewMemory()
		}
	} else {
		st = store.NewMemory()
		lg.Info("store.memory", "reason", "LOSTFOUND_SQLITE_PATH unset")
	}

	dim := config.VectorDim()
	emb := embedding.NewFromEnv(dim)

	var vs vectorstore.VectorStore
	if os.Getenv("LOSTFOUND_VECTOR_PROVIDER") == "sqlite" && db != nil {
		vs = vectorstore.NewSQLite(db)
		lg.Info("vectorstore.sqlite")
	} else {
		vs = vectorstore.NewFromEnv()
	}

	api := NewAPI(st, emb, vs)
	srv := &http.Server{Addr: addr, Handler: logMiddleware(api.mux())}

	errCh := make(chan error, 1)
	go func() {
		lg.Info("server.listen", "addr", addr, "version", version.String())
		errCh <- srv.ListenAndServe()
	}()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	select {
	case err := <-errCh:
		return err
	case sig := <-sigCh:
		lg.Info("server.shutdown", "signal", sig.String())
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		return srv.Shutdown(ctx)
	}
}

func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(v)
}

// writeFail sends the uniform failure envelope.
func writeFail(w http.ResponseWriter, code int, msg string) {
	writeJSON(w, code, map[string]any{"ok": false, "error": msg})
}

// Authorization: optional token via env LOSTFOUND_API_TOKEN.
// Accepts Authorization: Bearer <token> or query param ?token=...
func authorize(w http.ResponseWriter, r *http.Request) bool {
	tok := os.Getenv("LOSTFOUND_API_TOKEN")
	if tok == "" {
		return true
	}
	h := r.Header.Get("Authorization")
	if strings.HasPrefix(h, "Bearer ") && strings.TrimPrefix(h, "Bearer ") == tok {
		return true
	}
	if r.URL.Query().Get("token") == tok {
		return true
	}
	writeFail(w, http.StatusUnauthorized, "unauthorized")
	return false
}

// lightweight in-process metrics collector
type metricsCollector struct {
	mu sync.Mutex
	// counters keyed by method|path|status
	reqTotal map[string]int
	// duration sum/count keyed by method|path
	durSum   map[string]float64
	durCount map[string]int
}

var metrics = &metricsCollector{
	reqTotal: make(map[string]int),
	durSum:   make(map[string]float64),
	durCount: make(map[string]int),
}

type statusRecorder struct {
	http.ResponseWriter
	status int
	nbytes int
}

func (r *statusRecorder) WriteHeader(code int) {
	r.status = code
	r.ResponseWriter.WriteHeader(code)
}

func (r *statusRecorder) Write(p []byte) (int, error) {
	if r.status == 0 {
		r.status = http.StatusOK
	}
	n, err := r.ResponseWriter.Write(p)
	r.nbytes += n
	return n, err
}

func newRequestID() string {
	var b [8]byte
	if _, err := crand.Read(b[:]); err != nil {
		return fmt.Sprintf("%d", time.Now().UnixNano())
	}
	return hex.EncodeToString(b[:])
}

func logMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		// request-id propagation: accept client-provided or generate
		reqID := strings.TrimSpace(r.Header.Get("X-Request-ID"))
		if reqID == "" {
			reqID = newRequestID()
		}
		w.Header().Set("X-Request-ID", reqID)
		rec := &statusRecorder{ResponseWriter: w}
		next.ServeHTTP(rec, r)
		dur := time.Since(start)
		lg := mylog.New()
		lg.Info("http.req",
			"req_id", reqID,
			"method", r.Method,
			"path", r.URL.Path,
			"remoteIP", clientIP(r),
			"status", rec.status,
			"duration_ms", int(dur/time.Millisecond),
			"bytes", rec.nbytes,
		)
		mkey := r.Method + "|" + r.URL.Path + "|" + fmt.Sprintf("%d", rec.status)
		dkey := r.Method + "|" + r.URL.Path
		metrics.mu.Lock()
		metrics.reqTotal[mkey]++
		metrics.durSum[dkey] += dur.Seconds()
		metrics.durCount[dkey]++
		metrics.mu.Unlock()
	})
}

func clientIP(r *http.Request) string {
	if v := r.Header.Get("X-Forwarded-For"); v != "" {
		if i := strings.IndexByte(v, ','); i >= 0 {
			return strings.TrimSpace(v[:i])
		}
		return strings.TrimSpace(v)
	}
	host := r.RemoteAddr
	if i := strings.LastIndexByte(host, ':'); i >= 0 {
		host = host[:i]
	}
	return host
}

func (a *API) handleMetrics(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	w.Header().Set("Content-Type", "text/plain; version=0.0.4; charset=utf-8")

	items, _ := a.items.ListItems(r.Context())
	io.WriteString(w, "# HELP lostfound_items Number of reported items.\n")
	io.WriteString(w, "# TYPE lostfound_items gauge\n")
	io.WriteString(w, fmt.Sprintf("lostfound_items %d\n", len(items)))

	metrics.mu.Lock()
	for key, v := range metrics.reqTotal {
		parts := strings.Split(key, "|")
		if len(parts) == 3 {
			io.WriteString(w, "# TYPE lostfound_http_requests_total counter\n")
			io.WriteString(w, fmt.Sprintf("lostfound_http_requests_total{method=%q,path=%q,status=%q} %d\n", parts[0], parts[1], parts[2], v))
		}
	}
	for key, sum := range metrics.durSum {
		cnt := metrics.durCount[key]
		parts := strings.Split(key, "|")
		if len(parts) == 2 {
			io.WriteString(w, "# TYPE lostfound_http_request_duration_seconds summary\n")
			io.WriteString(w, fmt.Sprintf("lostfound_http_request_duration_seconds_sum{method=%q,path=%q} %f\n", parts[0], parts[1], sum))
			io.WriteString(w, fmt.Sprintf("lostfound_http_request_duration_seconds_count{method=%q,path=%q} %d\n", parts[0], parts[1], cnt))
		}
	}
	metrics.mu.Unlock()

	if c, ok := a.emb.(*embedding.Cache); ok {
		hits, misses := c.Stats()
		io.WriteString(w, "# HELP lostfound_embed_cache_hits_total Embedding cache hits.\n")
		io.WriteString(w, "# TYPE lostfound_embed_cache_hits_total counter\n")
		io.WriteString(w, fmt.Sprintf("lostfound_embed_cache_hits_total %d\n", hits))
		io.WriteString(w, "# HELP lostfound_embed_cache_misses_total Embedding cache misses.\n")
		io.WriteString(w, "# TYPE lostfound_embed_cache_misses_total counter\n")
		io.WriteString(w, fmt.Sprintf("lostfound_embed_cache_misses_total %d\n", misses))
	}

	io.WriteString(w, "# HELP lostfound_build_info Build information.\n")
	io.WriteString(w, "# TYPE lostfound_build_info gauge\n")
	io.WriteString(w, fmt.Sprintf("lostfound_build_info{version=%q,commit=%q} 1\n", version.Version, version.Commit))
}
