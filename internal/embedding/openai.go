package embedding

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"os"
	"strings"
	"time"
)

// OpenAI calls an OpenAI-compatible /embeddings endpoint. Any server
// speaking that API works (OpenAI itself, LM Studio, ollama, ...).
type OpenAI struct {
	baseURL string
	apiKey  string
	model   string
	dim     int
	http    *http.Client
}

func NewOpenAIFromEnv(dim int) *OpenAI {
	base := os.Getenv("LOSTFOUND_OPENAI_BASE_URL")
	if base == "" {
		base = "https://api.openai.com/v1"
	}
	model := os.Getenv("LOSTFOUND_EMBEDDING_MODEL")
	if model == "" {
		model = "text-embedding-3-small"
	}
	return &OpenAI{
		baseURL: strings.TrimRight(base, "/"),
		apiKey:  os.Getenv("LOSTFOUND_OPENAI_API_KEY"),
		model:   model,
		dim:     dim,
		http:    &http.Client{Timeout: 60 * time.Second},
	}
}

func (c *OpenAI) Dim() int { return c.dim }

func (c *OpenAI) Embed(ctx context.Context, text string) ([]float32, error) {
	reqBody := map[string]any{
		"model": c.model,
		"input": []string{text},
	}
	b, _ := json.Marshal(reqBody)
	req, _ := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/embeddings", bytes.NewReader(b))
	req.Header.Set("Content-Type", "application/json")
	if c.apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+c.apiKey)
	}
	resp, err := c.do(req, b)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()
	if resp.StatusCode/100 != 2 {
		data, _ := io.ReadAll(resp.Body)
		return nil, fmt.Errorf("embeddings http %d: %s", resp.StatusCode, string(data))
	}
	var out struct {
		Data []struct {
			Embedding []float32 `json:"embedding"`
		} `json:"data"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return nil, err
	}
	if len(out.Data) == 0 {
		return nil, fmt.Errorf("embeddings: empty response")
	}
	return out.Data[0].Embedding, nil
}

// do retries on 429/5xx with a short backoff.
func (c *OpenAI) do(req *http.Request, body []byte) (*http.Response, error) {
	backoff := 200 * time.Millisecond
	for attempt := 0; attempt < 3; attempt++ {
		if body != nil {
			req.Body = io.NopCloser(bytes.NewReader(body))
		}
		resp, err := c.http.Do(req)
		if err != nil {
			return nil, err
		}
		if resp.StatusCode != 429 && resp.StatusCode/100 != 5 {
			return resp, nil
		}
		io.Copy(io.Discard, resp.Body)
		resp.Body.Close()
		time.Sleep(backoff + time.Duration(attempt)*100*time.Millisecond)
	}
	if body != nil {
		req.Body = io.NopCloser(bytes.NewReader(body))
	}
	return c.http.Do(req)
}
