package models

import "time"

// CacheEntry is the extracted text of one article, keyed by the MD5 of its URL.
type CacheEntry struct {
	Key      string    `json:"key"`
	Content  string    `json:"content"`
	StoredAt time.Time `json:"stored_at"`
}

// CacheStats reports what the article cache currently holds.
type CacheStats struct {
	Entries int64 `json:"entries"`
	Fresh   int64 `json:"fresh"`
	Bytes   int64 `json:"bytes"`
}
