package vectorstore

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"os"
	"strings"
	"sync"
	"time"
)

// Index parameters sent on collection creation. The remote service owns
// the index; these only pin down how it is built.
const (
	cosdataMetric         = "cosine"
	cosdataIndexType      = "hnsw"
	cosdataEFConstruction = 128
	cosdataEFSearch       = 64
	cosdataNeighbors      = 16
)

// session holds the cached bearer token for the Cosdata API. Refresh is
// serialized behind the mutex so racing requests coalesce into a single
// login instead of each firing their own.
type session struct {
	host     string
	username string
	password string
	http     *http.Client

	mu    sync.Mutex
	token string
}

// Token returns the cached token, logging in first if none is held.
func (s *session) Token(ctx context.Context) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.token != "" {
		return s.token, nil
	}
	body, _ := json.Marshal(map[string]string{
		"username": s.username,
		"password": s.password,
	})
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.host+"/auth/create-session", bytes.NewReader(body))
	if err != nil {
		return "", err
	}
	req.Header.Set("Content-Type", "application/json")
	resp, err := s.http.Do(req)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()
	data, _ := io.ReadAll(resp.Body)
	if resp.StatusCode/100 != 2 {
		return "", fmt.Errorf("cosdata auth http %d: %s", resp.StatusCode, string(data))
	}
	var out struct {
		AccessToken string `json:"access_token"`
	}
	if err := json.Unmarshal(data, &out); err != nil || out.AccessToken == "" {
		return "", errors.New("cosdata auth: no access_token in response")
	}
	s.token = out.AccessToken
	return s.token, nil
}

// Invalidate drops the cached token, but only if it is still the one
// the caller saw fail; a concurrently refreshed token stays.
func (s *session) Invalidate(stale string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.token == stale {
		s.token = ""
	}
}

// Cosdata is a client for a remote Cosdata vector-index service.
type Cosdata struct {
	host string
	sess *session
	http *http.Client
}

func NewCosdata(host, username, password string) *Cosdata {
	host = strings.TrimRight(host, "/")
	hc := &http.Client{Timeout: 30 * time.Second}
	return &Cosdata{
		host: host,
		sess: &session{host: host, username: username, password: password, http: hc},
		http: hc,
	}
}

func NewCosdataFromEnv() *Cosdata {
	return NewCosdata(
		os.Getenv("LOSTFOUND_COSDATA_HOST"),
		os.Getenv("LOSTFOUND_COSDATA_USERNAME"),
		os.Getenv("LOSTFOUND_COSDATA_PASSWORD"),
	)
}

// send performs one authed request and returns status, body, and the
// token that was used (so a 401 can invalidate exactly that token).
func (c *Cosdata) send(ctx context.Context, method, path string, payload []byte) (int, []byte, string, error) {
	tok, err := c.sess.Token(ctx)
	if err != nil {
		return 0, nil, "", err
	}
	var body io.Reader
	if payload != nil {
		body = bytes.NewReader(payload)
	}
	req, err := http.NewRequestWithContext(ctx, method, c.host+path, body)
	if err != nil {
		return 0, nil, tok, err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+tok)
	resp, err := c.http.Do(req)
	if err != nil {
		return 0, nil, tok, err
	}
	defer resp.Body.Close()
	data, _ := io.ReadAll(resp.Body)
	return resp.StatusCode, data, tok, nil
}

// doJSON issues a request with the cached token. On 401 the token is
// invalidated and the request retried exactly once after re-login; any
// other non-2xx is a hard failure carrying status and body.
func (c *Cosdata) doJSON(ctx context.Context, method, path string, reqBody any) ([]byte, error) {
	var payload []byte
	if reqBody != nil {
		b, err := json.Marshal(reqBody)
		if err != nil {
			return nil, err
		}
		payload = b
	}
	status, data, tok, err := c.send(ctx, method, path, payload)
	if err != nil {
		return nil, err
	}
	if status == http.StatusUnauthorized {
		c.sess.Invalidate(tok)
		status, data, _, err = c.send(ctx, method, path, payload)
		if err != nil {
			return nil, err
		}
	}
	if status/100 != 2 {
		return nil, fmt.Errorf("cosdata http %d: %s", status, string(data))
	}
	return data, nil
}

// EnsureCollection lists existing collections and creates the named one
// only when absent. Calling it again is a no-op.
func (c *Cosdata) EnsureCollection(ctx context.Context, name string, dim int) error {
	data, err := c.doJSON(ctx, http.MethodGet, "/vectordb/collections", nil)
	if err != nil {
		return &CollectionCreateError{Collection: name, Err: err}
	}
	// Validate the list shape at the boundary instead of letting a
	// malformed payload surface deeper as a nil dereference.
	var raw map[string]json.RawMessage
	if err := json.Unmarshal(data, &raw); err != nil {
		return &CollectionCreateError{Collection: name, Err: fmt.Errorf("malformed list response: %w", err)}
	}
	colsRaw, ok := raw["collections"]
	if !ok {
		return &CollectionCreateError{Collection: name, Err: errors.New("malformed list response: missing collections field")}
	}
	var cols []struct {
		Name string `json:"name"`
	}
	if err := json.Unmarshal(colsRaw, &cols); err != nil {
		return &CollectionCreateError{Collection: name, Err: fmt.Errorf("malformed list response: %w", err)}
	}
	for _, col := range cols {
		if col.Name == name {
			return nil
		}
	}
	body := map[string]any{
		"name":        name,
		"description": "Lost & Found item embeddings",
		"dense_vector": map[string]any{
			"enabled":   true,
			"dimension": dim,
		},
		"sparse_vector":  map[string]any{"enabled": false},
		"tf_idf_options": map[string]any{"enabled": false},
		"config": map[string]any{
			"metric": cosdataMetric,
			"index": map[string]any{
				"type":            cosdataIndexType,
				"ef_construction": cosdataEFConstruction,
				"ef_search":       cosdataEFSearch,
				"neighbors_count": cosdataNeighbors,
			},
		},
		"store_raw_text": false,
	}
	if _, err := c.doJSON(ctx, http.MethodPost, "/vectordb/collections", body); err != nil {
		return &CollectionCreateError{Collection: name, Err: err}
	}
	return nil
}

// Insert writes one vector inside a remote transaction. Once the
// transaction is open every exit path either commits or aborts it, so a
// failed insert leaves no partial vector visible to searches.
func (c *Cosdata) Insert(ctx context.Context, collection, id string, vector []float32) (err error) {
	base := "/vectordb/collections/" + url.PathEscape(collection) + "/transactions"
	data, derr := c.doJSON(ctx, http.MethodPost, base, nil)
	if derr != nil {
		return &InsertError{Collection: collection, ID: id, Err: derr}
	}
	var txn struct {
		TransactionID string `json:"transaction_id"`
	}
	if uerr := json.Unmarshal(data, &txn); uerr != nil || txn.TransactionID == "" {
		return &InsertError{Collection: collection, ID: id, Err: fmt.Errorf("malformed transaction response: %s", string(data))}
	}
	committed := false
	defer func() {
		if committed {
			return
		}
		// The request context may already be canceled; the abort still
		// has to reach the server.
		abortCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		_, _ = c.doJSON(abortCtx, http.MethodPost, base+"/"+txn.TransactionID+"/abort", nil)
	}()
	records := []map[string]any{{
		"id":           id,
		"document_id":  id,
		"dense_values": vector,
	}}
	if _, derr := c.doJSON(ctx, http.MethodPost, base+"/"+txn.TransactionID+"/vectors", records); derr != nil {
		return &InsertError{Collection: collection, ID: id, Err: derr}
	}
	if _, derr := c.doJSON(ctx, http.MethodPost, base+"/"+txn.TransactionID+"/commit", nil); derr != nil {
		return &InsertError{Collection: collection, ID: id, Err: derr}
	}
	committed = true
	return nil
}

// Search runs a dense similarity query. Results come back in the
// remote ranker's order; no local re-ranking.
func (c *Cosdata) Search(ctx context.Context, collection string, vector []float32, topK int) ([]Result, error) {
	body := map[string]any{
		"query_vector":    vector,
		"top_k":           topK,
		"return_raw_text": false,
	}
	data, err := c.doJSON(ctx, http.MethodPost, "/vectordb/collections/"+url.PathEscape(collection)+"/search/dense", body)
	if err != nil {
		return nil, &SearchError{Collection: collection, Err: err}
	}
	var out struct {
		Results []Result `json:"results"`
	}
	if err := json.Unmarshal(data, &out); err != nil {
		return nil, &SearchError{Collection: collection, Err: fmt.Errorf("malformed search response: %w", err)}
	}
	if out.Results == nil {
		return []Result{}, nil
	}
	return out.Results, nil
}

// Exists probes for a vector by document_id.
func (c *Cosdata) Exists(ctx context.Context, collection, id string) (bool, error) {
	data, err := c.doJSON(ctx, http.MethodGet, "/vectordb/collections/"+url.PathEscape(collection)+"/vectors?document_id="+url.QueryEscape(id), nil)
	if err != nil {
		return false, err
	}
	var vectors []json.RawMessage
	if err := json.Unmarshal(data, &vectors); err != nil {
		return false, nil
	}
	return len(vectors) > 0, nil
}
