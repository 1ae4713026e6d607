package models

import "time"

// UsageRecord tracks one dispatched AI request.
type UsageRecord struct {
	ID          int64       `json:"id"`
	UserID      string      `json:"user_id"`
	RequestType RequestType `json:"request_type"`
	Model       string      `json:"model"`
	Tokens      int         `json:"tokens"`
	Cost        float64     `json:"cost"`
	DurationMs  int64       `json:"duration_ms"`
	CacheHit    bool        `json:"cache_hit"`
	Success     bool        `json:"success"`
	CreatedAt   time.Time   `json:"created_at"`
}

// TypeSummary aggregates usage for one request type.
type TypeSummary struct {
	RequestType  RequestType `json:"request_type"`
	RequestCount int64       `json:"request_count"`
	TotalTokens  int64       `json:"total_tokens"`
	TotalCost    float64     `json:"total_cost"`
	AvgLatencyMs float64     `json:"avg_latency_ms"`
	CacheHits    int64       `json:"cache_hits"`
}

// UsageStats is the aggregate view served by the admin stats endpoint.
type UsageStats struct {
	TotalRequests      int64         `json:"totalRequests"`
	SuccessfulRequests int64         `json:"successfulRequests"`
	FailedRequests     int64         `json:"failedRequests"`
	CacheHits          int64         `json:"cacheHits"`
	TotalTokens        int64         `json:"totalTokens"`
	TotalCost          float64       `json:"totalCost"`
	AvgLatencyMs       float64       `json:"averageResponseTime"`
	ByType             []TypeSummary `json:"requestsByType"`
}
