package models

import "time"

type ItemStatus string

const (
	// StatusFound is the only status reachable today; items are created
	// once on ingestion and never edited.
	StatusFound ItemStatus = "found"
)

// Item is a reported found item. ID is the join key between the
// relational row and the vector-index entry; it never changes.
type Item struct {
	ID              string     `json:"id"`
	Title           string     `json:"title"`
	TextDescription string     `json:"textDescription"`
	CampusTag       string     `json:"campusTag"`
	LocationName    string     `json:"locationName"`
	Lat             *float64   `json:"lat,omitempty"`
	Lng             *float64   `json:"lng,omitempty"`
	ImageBase64     string     `json:"imageBase64,omitempty"`
	ContactName     string     `json:"contactName,omitempty"`
	ContactPhone    string     `json:"contactPhone,omitempty"`
	ContactNote     string     `json:"contactNote,omitempty"`
	Status          ItemStatus `json:"status"`
	CreatedAt       time.Time  `json:"createdAt"`
}

// SearchResult merges a vector-search score with the matching row.
// Transient; never persisted.
type SearchResult struct {
	ID              string  `json:"id"`
	Score           float64 `json:"score"`
	Title           string  `json:"title"`
	TextDescription string  `json:"textDescription"`
	CampusTag       string  `json:"campusTag"`
	LocationName    string  `json:"locationName"`
	ImageBase64     string  `json:"imageBase64,omitempty"`
	ContactName     string  `json:"contactName,omitempty"`
	ContactPhone    string  `json:"contactPhone,omitempty"`
	ContactNote     string  `json:"contactNote,omitempty"`
	CreatedAt       string  `json:"createdAt"`
}
