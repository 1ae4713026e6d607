package models

import "time"

// AuditEntry records a single AI request/response pair. User identity is
// stored hashed; a short prefix remains for operator lookups.
type AuditEntry struct {
	RequestID    string      `json:"request_id"`
	UserHash     string      `json:"user_hash"`
	UserPrefix   string      `json:"user_prefix"`
	RequestType  RequestType `json:"request_type"`
	Model        string      `json:"model"`
	Prompt       string      `json:"prompt,omitempty"`
	ResponseBody string      `json:"response_body,omitempty"`
	Success      bool        `json:"success"`
	ErrorCode    string      `json:"error_code,omitempty"`
	Tokens       int         `json:"tokens"`
	LatencyMs    int64       `json:"latency_ms"`
	CreatedAt    time.Time   `json:"created_at"`
}

// AuditQueryOpts filters an audit log query. Zero values match everything.
type AuditQueryOpts struct {
	RequestID   string
	RequestType RequestType
	UserPrefix  string
	Since       time.Time
	Limit       int
}

// AuditStat is a per-type, per-day entry count.
type AuditStat struct {
	RequestType RequestType `json:"request_type"`
	Day         string      `json:"day"`
	Count       int64       `json:"count"`
}

// AuditConfig controls the audit logging subsystem.
type AuditConfig struct {
	Enabled       bool   `yaml:"enabled"`
	DBPath        string `yaml:"db_path"`
	RetentionDays int    `yaml:"retention_days"`
	MaxBodySize   int    `yaml:"max_body_size"` // bytes; bodies are truncated, not dropped
}
