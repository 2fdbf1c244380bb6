package server

import (
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/google/uuid"

	"lostfound/internal/embedding"
	img "lostfound/internal/image"
	"lostfound/internal/models"
)

// searchTopK neighbors are fetched before location filtering, so fewer
// may remain in the response.
const searchTopK = 20

// ingestEmbedInput builds the text that gets embedded for a stored
// item. Search inputs must stay phrased compatibly (see
// queryEmbedInput): with the placeholder provider, retrieval only works
// at all because both sides share this shape.
func ingestEmbedInput(title, desc, locationName, campusTag string) string {
	return fmt.Sprintf("%s. %s. Location: %s, %s.", title, desc, locationName, campusTag)
}

func queryEmbedInput(queryText, campusTag string) string {
	return fmt.Sprintf("%s. Lost in %s", queryText, campusTag)
}

type ingestRequest struct {
	Title           string   `json:"title"`
	TextDescription string   `json:"textDescription"`
	CampusTag       string   `json:"campusTag"`
	LocationName    string   `json:"locationName"`
	Lat             *float64 `json:"lat"`
	Lng             *float64 `json:"lng"`
	ImageBase64     string   `json:"imageBase64"`
	ContactName     string   `json:"contactName"`
	ContactPhone    string   `json:"contactPhone"`
	ContactNote     string   `json:"contactNote"`
}

func (a *API) handleIngest(w http.ResponseWriter, r *http.Request) {
	if !authorize(w, r) {
		return
	}
	if r.Method != http.MethodPost {
		writeFail(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}
	var req ingestRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeFail(w, http.StatusBadRequest, "invalid JSON body")
		return
	}
	if req.Title == "" || req.TextDescription == "" || req.CampusTag == "" || req.LocationName == "" {
		writeFail(w, http.StatusBadRequest, "Missing required fields")
		return
	}

	id := uuid.NewString()
	createdAt := time.Now().UTC()

	imageBase64 := req.ImageBase64
	if imageBase64 != "" {
		imageBase64 = img.Compress(imageBase64, img.DefaultMaxWidth, img.DefaultQuality)
	}

	item := &models.Item{
		ID:              id,
		Title:           req.Title,
		TextDescription: req.TextDescription,
		CampusTag:       req.CampusTag,
		LocationName:    req.LocationName,
		Lat:             req.Lat,
		Lng:             req.Lng,
		ImageBase64:     imageBase64,
		ContactName:     req.ContactName,
		ContactPhone:    req.ContactPhone,
		ContactNote:     req.ContactNote,
		Status:          models.StatusFound,
		CreatedAt:       createdAt,
	}
	if err := a.items.InsertItem(r.Context(), item); err != nil {
		a.lg.Error("ingest.db_insert", "id", id, "err", err.Error())
		writeFail(w, http.StatusInternalServerError, "failed DB insert")
		return
	}

	// NOTE: from here on the row already exists; a failure below leaves
	// the relational store and the vector index inconsistent. There is
	// no compensating rollback, only the log line.
	input := ingestEmbedInput(req.Title, req.TextDescription, req.LocationName, req.CampusTag)
	vec, err := a.emb.Embed(r.Context(), input)
	if err != nil {
		a.lg.Error("ingest.embed", "id", id, "err", err.Error())
		writeFail(w, http.StatusInternalServerError, "embedding failed")
		return
	}
	if len(vec) != a.dim {
		derr := &embedding.DimensionError{Got: len(vec), Want: a.dim}
		a.lg.Error("ingest.embed_dim", "id", id, "err", derr.Error())
		writeFail(w, http.StatusInternalServerError, derr.Error())
		return
	}

	if err := a.vs.EnsureCollection(r.Context(), a.collection, a.dim); err != nil {
		a.lg.Error("ingest.ensure_collection", "collection", a.collection, "err", err.Error())
		writeFail(w, http.StatusInternalServerError, "vector store unavailable")
		return
	}
	if err := a.vs.Insert(r.Context(), a.collection, id, vec); err != nil {
		a.lg.Error("ingest.vector_insert", "id", id, "err", err.Error())
		writeFail(w, http.StatusInternalServerError, "vector insert failed")
		return
	}

	// best-effort verification; a miss here is logged, not fatal
	if ok, err := a.vs.Exists(r.Context(), a.collection, id); err != nil || !ok {
		msg := "not visible"
		if err != nil {
			msg = err.Error()
		}
		a.lg.Warn("ingest.vector_verify", "id", id, "err", msg)
	}

	writeJSON(w, http.StatusOK, map[string]any{"ok": true, "id": id})
}

func (a *API) handleList(w http.ResponseWriter, r *http.Request) {
	if !authorize(w, r) {
		return
	}
	if r.Method != http.MethodGet {
		writeFail(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}
	items, err := a.items.ListItems(r.Context())
	if err != nil {
		a.lg.Error("list.db_fetch", "err", err.Error())
		writeFail(w, http.StatusInternalServerError, "DB fetch failed")
		return
	}
	if items == nil {
		items = []*models.Item{}
	}
	writeJSON(w, http.StatusOK, map[string]any{"ok": true, "items": items})
}

type searchRequest struct {
	CampusTag string `json:"campusTag"`
	QueryText string `json:"queryText"`
}

func (a *API) handleSearch(w http.ResponseWriter, r *http.Request) {
	if !authorize(w, r) {
		return
	}
	if r.Method != http.MethodPost {
		writeFail(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}
	var req searchRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeFail(w, http.StatusBadRequest, "invalid JSON body")
		return
	}
	if req.CampusTag == "" || req.QueryText == "" {
		writeFail(w, http.StatusBadRequest, "Missing campusTag or queryText")
		return
	}

	if err := a.vs.EnsureCollection(r.Context(), a.collection, a.dim); err != nil {
		a.lg.Error("search.ensure_collection", "collection", a.collection, "err", err.Error())
		writeFail(w, http.StatusInternalServerError, "vector store unavailable")
		return
	}

	vec, err := a.emb.Embed(r.Context(), queryEmbedInput(req.QueryText, req.CampusTag))
	if err != nil {
		a.lg.Error("search.embed", "err", err.Error())
		writeFail(w, http.StatusInternalServerError, "embedding failed")
		return
	}

	hits, err := a.vs.Search(r.Context(), a.collection, vec, searchTopK)
	if err != nil {
		a.lg.Error("search.vector_search", "err", err.Error())
		writeFail(w, http.StatusInternalServerError, "vector search failed")
		return
	}
	results := make([]models.SearchResult, 0, len(hits))
	if len(hits) == 0 {
		writeJSON(w, http.StatusOK, map[string]any{"ok": true, "results": results})
		return
	}

	ids := make([]string, len(hits))
	for i, h := range hits {
		ids[i] = h.ID
	}
	rows, err := a.items.GetItemsByIDs(r.Context(), ids)
	if err != nil {
		a.lg.Error("search.db_fetch", "err", err.Error())
		writeFail(w, http.StatusInternalServerError, "DB fetch failed")
		return
	}

	// Merge + filter. Neighbor ids without a row are dropped (the two
	// stores can drift apart), as is anything outside the requested
	// campus. This is a post-hoc filter over a globally ranked list, so
	// fewer than topK results may remain; the ranker's order is kept.
	for _, h := range hits {
		row, ok := rows[h.ID]
		if !ok {
			continue
		}
		if row.CampusTag != req.CampusTag {
			continue
		}
		results = append(results, models.SearchResult{
			ID:              row.ID,
			Score:           h.Score,
			Title:           row.Title,
			TextDescription: row.TextDescription,
			CampusTag:       row.CampusTag,
			LocationName:    row.LocationName,
			ImageBase64:     row.ImageBase64,
			ContactName:     row.ContactName,
			ContactPhone:    row.ContactPhone,
			ContactNote:     row.ContactNote,
			CreatedAt:       row.CreatedAt.UTC().Format(time.RFC3339),
		})
	}
	writeJSON(w, http.StatusOK, map[string]any{"ok": true, "results": results})
}
