package models

import (
	"encoding/json"
	"time"
)

// Metadata describes how a response was produced.
type Metadata struct {
	Model     string    `json:"model"`
	Tokens    int       `json:"tokens"`
	Duration  int64     `json:"duration"` // milliseconds of wall-clock time
	Cost      float64   `json:"cost"`     // estimated USD
	CacheHit  bool      `json:"cacheHit"`
	Timestamp time.Time `json:"timestamp"`
}

// Response is the dispatcher's result envelope. It is always returned, even
// on failure: Success is false and Error carries the code-bearing message
// rather than an error escaping the dispatcher.
type Response struct {
	Success  bool            `json:"success"`
	Data     json.RawMessage `json:"data"`
	Metadata Metadata        `json:"metadata"`
	Error    string          `json:"error,omitempty"`
	Code     string          `json:"code,omitempty"`
}

// BulkMatchItem is one entry of a bulk job-matching result: either a match
// or a per-item failure marker. Failures never abort the batch.
type BulkMatchItem struct {
	JobID string          `json:"jobId"`
	Match json.RawMessage `json:"match,omitempty"`
	Error string          `json:"error,omitempty"`

	// Score is extracted from Match for sorting; items without a score
	// sort last.
	Score float64 `json:"-"`
}

// Usage reports token consumption from the completion service.
type Usage struct {
	PromptTokens     int `json:"prompt_tokens"`
	CompletionTokens int `json:"completion_tokens"`
	TotalTokens      int `json:"total_tokens"`
}
