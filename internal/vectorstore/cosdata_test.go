package vectorstore

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"sort"
	"strings"
	"sync"
	"testing"
)

// fakeCosdata emulates just enough of the remote vector service:
// session login, collection list/create, transactions, dense search and
// the existence probe.
type fakeCosdata struct {
	mu          sync.Mutex
	logins      int
	validToken  string
	alwaysDeny  bool
	collections []string
	creates     int
	malformed   bool
	failVectors bool
	txnSeq      int
	staged      map[string]map[string][]float32 // txn -> id -> vector
	committed   map[string][]float32
	aborted     []string
}

func newFakeCosdata() *fakeCosdata {
	return &fakeCosdata{
		staged:    make(map[string]map[string][]float32),
		committed: make(map[string][]float32),
	}
}

func (f *fakeCosdata) handler() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		f.mu.Lock()
		defer f.mu.Unlock()

		if r.URL.Path == "/auth/create-session" {
			f.logins++
			tok := fmt.Sprintf("tok-%d", f.logins)
			f.validToken = tok
			json.NewEncoder(w).Encode(map[string]string{"access_token": tok})
			return
		}
		auth := strings.TrimPrefix(r.Header.Get("Authorization"), "Bearer ")
		if f.alwaysDeny || auth == "" || auth != f.validToken {
			w.WriteHeader(http.StatusUnauthorized)
			return
		}

		switch {
		case r.URL.Path == "/vectordb/collections" && r.Method == http.MethodGet:
			if f.malformed {
				json.NewEncoder(w).Encode(map[string]any{"unexpected": true})
				return
			}
			cols := make([]map[string]string, 0, len(f.collections))
			for _, c := range f.collections {
				cols = append(cols, map[string]string{"name": c})
			}
			json.NewEncoder(w).Encode(map[string]any{"collections": cols})
		case r.URL.Path == "/vectordb/collections" && r.Method == http.MethodPost:
			var body struct {
				Name string `json:"name"`
			}
			json.NewDecoder(r.Body).Decode(&body)
			f.creates++
			f.collections = append(f.collections, body.Name)
		case strings.HasSuffix(r.URL.Path, "/transactions"):
			f.txnSeq++
			id := fmt.Sprintf("txn-%d", f.txnSeq)
			f.staged[id] = make(map[string][]float32)
			json.NewEncoder(w).Encode(map[string]string{"transaction_id": id})
		case strings.HasSuffix(r.URL.Path, "/vectors") && r.Method == http.MethodPost:
			if f.failVectors {
				w.WriteHeader(http.StatusInternalServerError)
				w.Write([]byte(`{"error":"upsert rejected"}`))
				return
			}
			txn := pathSegment(r.URL.Path, "transactions")
			var recs []struct {
				ID          string    `json:"id"`
				DenseValues []float32 `json:"dense_values"`
			}
			json.NewDecoder(r.Body).Decode(&recs)
			for _, rec := range recs {
				f.staged[txn][rec.ID] = rec.DenseValues
			}
		case strings.HasSuffix(r.URL.Path, "/commit"):
			txn := pathSegment(r.URL.Path, "transactions")
			for id, v := range f.staged[txn] {
				f.committed[id] = v
			}
			delete(f.staged, txn)
		case strings.HasSuffix(r.URL.Path, "/abort"):
			txn := pathSegment(r.URL.Path, "transactions")
			f.aborted = append(f.aborted, txn)
			delete(f.staged, txn)
		case strings.HasSuffix(r.URL.Path, "/search/dense"):
			var body struct {
				QueryVector []float32 `json:"query_vector"`
				TopK        int       `json:"top_k"`
			}
			json.NewDecoder(r.Body).Decode(&body)
			var results []Result
			for id, v := range f.committed {
				results = append(results, Result{ID: id, Score: cosine(body.QueryVector, v)})
			}
			sort.Slice(results, func(i, j int) bool { return results[i].Score > results[j].Score })
			if body.TopK > 0 && len(results) > body.TopK {
				results = results[:body.TopK]
			}
			json.NewEncoder(w).Encode(map[string]any{"results": results})
		case strings.Contains(r.URL.Path, "/vectors") && r.Method == http.MethodGet:
			id := r.URL.Query().Get("document_id")
			if _, ok := f.committed[id]; ok {
				json.NewEncoder(w).Encode([]map[string]string{{"id": id}})
				return
			}
			json.NewEncoder(w).Encode([]map[string]string{})
		default:
			w.WriteHeader(http.StatusNotFound)
		}
	})
}

func pathSegment(path, after string) string {
	parts := strings.Split(path, "/")
	for i, p := range parts {
		if p == after && i+1 < len(parts) {
			return parts[i+1]
		}
	}
	return ""
}

func newTestClient(t *testing.T, f *fakeCosdata) *Cosdata {
	t.Helper()
	srv := httptest.NewServer(f.handler())
	t.Cleanup(srv.Close)
	return NewCosdata(srv.URL, "admin", "secret")
}

func TestEnsureCollectionIdempotent(t *testing.T) {
	f := newFakeCosdata()
	c := newTestClient(t, f)
	ctx := context.Background()
	if err := c.EnsureCollection(ctx, "lost_items", 8); err != nil {
		t.Fatal(err)
	}
	if err := c.EnsureCollection(ctx, "lost_items", 8); err != nil {
		t.Fatal(err)
	}
	if f.creates != 1 {
		t.Fatalf("creates=%d, want 1", f.creates)
	}
	if f.logins != 1 {
		t.Fatalf("logins=%d, want 1 (token should be cached)", f.logins)
	}
}

func TestEnsureCollectionMalformedList(t *testing.T) {
	f := newFakeCosdata()
	f.malformed = true
	c := newTestClient(t, f)
	err := c.EnsureCollection(context.Background(), "lost_items", 8)
	var cerr *CollectionCreateError
	if !errors.As(err, &cerr) {
		t.Fatalf("expected CollectionCreateError, got %v", err)
	}
}

func TestInsertCommits(t *testing.T) {
	f := newFakeCosdata()
	c := newTestClient(t, f)
	ctx := context.Background()
	if err := c.Insert(ctx, "lost_items", "item-1", []float32{1, 0, 0}); err != nil {
		t.Fatal(err)
	}
	if len(f.aborted) != 0 {
		t.Fatalf("aborted=%v, want none", f.aborted)
	}
	ok, err := c.Exists(ctx, "lost_items", "item-1")
	if err != nil || !ok {
		t.Fatalf("exists=%v err=%v", ok, err)
	}
}

func TestInsertAbortsOnFailure(t *testing.T) {
	f := newFakeCosdata()
	f.failVectors = true
	c := newTestClient(t, f)
	ctx := context.Background()
	err := c.Insert(ctx, "lost_items", "item-1", []float32{1, 0, 0})
	var ierr *InsertError
	if !errors.As(err, &ierr) {
		t.Fatalf("expected InsertError, got %v", err)
	}
	if len(f.aborted) != 1 {
		t.Fatalf("aborted=%v, want exactly one", f.aborted)
	}
	// nothing must be visible after the failed insert
	ok, err := c.Exists(ctx, "lost_items", "item-1")
	if err != nil {
		t.Fatal(err)
	}
	if ok {
		t.Fatal("partial vector visible after aborted transaction")
	}
	hits, err := c.Search(ctx, "lost_items", []float32{1, 0, 0}, 10)
	if err != nil {
		t.Fatal(err)
	}
	if len(hits) != 0 {
		t.Fatalf("hits=%v, want none", hits)
	}
}

func TestUnauthorizedRetriesOnce(t *testing.T) {
	f := newFakeCosdata()
	c := newTestClient(t, f)
	ctx := context.Background()
	if err := c.EnsureCollection(ctx, "lost_items", 8); err != nil {
		t.Fatal(err)
	}
	// server-side session expiry: the cached token is no longer valid
	f.mu.Lock()
	f.validToken = ""
	f.mu.Unlock()
	if err := c.EnsureCollection(ctx, "lost_items", 8); err != nil {
		t.Fatalf("expected transparent re-auth, got %v", err)
	}
	if f.logins != 2 {
		t.Fatalf("logins=%d, want 2", f.logins)
	}
}

func TestUnauthorizedDoesNotLoop(t *testing.T) {
	f := newFakeCosdata()
	f.alwaysDeny = true
	c := newTestClient(t, f)
	err := c.EnsureCollection(context.Background(), "lost_items", 8)
	if err == nil {
		t.Fatal("expected error against an always-401 server")
	}
	// one login for the first attempt, one for the single retry
	if f.logins != 2 {
		t.Fatalf("logins=%d, want 2 (exactly one retry)", f.logins)
	}
}

func TestSearchOrdering(t *testing.T) {
	f := newFakeCosdata()
	c := newTestClient(t, f)
	ctx := context.Background()
	vectors := map[string][]float32{
		"a": {1, 0, 0},
		"b": {0.9, 0.1, 0},
		"c": {0, 1, 0},
	}
	for id, v := range vectors {
		if err := c.Insert(ctx, "lost_items", id, v); err != nil {
			t.Fatal(err)
		}
	}
	hits, err := c.Search(ctx, "lost_items", []float32{1, 0, 0}, 2)
	if err != nil {
		t.Fatal(err)
	}
	if len(hits) != 2 {
		t.Fatalf("hits=%d, want 2", len(hits))
	}
	if hits[0].ID != "a" {
		t.Fatalf("best hit=%s, want a", hits[0].ID)
	}
	for i := 1; i < len(hits); i++ {
		if hits[i].Score > hits[i-1].Score {
			t.Fatalf("scores not non-increasing: %v", hits)
		}
	}
}
