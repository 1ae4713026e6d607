package httpapi

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"time"

	"github.com/kru-ai/kru/pkg/ai"
	"github.com/kru-ai/kru/pkg/apperrors"
	"github.com/kru-ai/kru/pkg/audit"
	"github.com/kru-ai/kru/pkg/auth"
	"github.com/kru-ai/kru/pkg/budget"
	"github.com/kru-ai/kru/pkg/models"
)

const maxBodyBytes = 1 << 20

func readBody(w http.ResponseWriter, r *http.Request) ([]byte, error) {
	body, err := io.ReadAll(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	if err != nil {
		return nil, apperrors.Wrap(apperrors.Validation, "unreadable request body", err)
	}
	if len(body) == 0 || !json.Valid(body) {
		return nil, apperrors.New(apperrors.Validation, "request body must be a JSON object")
	}
	return body, nil
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

// handleProcess dispatches a fully typed request envelope.
func (s *Server) handleProcess(w http.ResponseWriter, r *http.Request) {
	body, err := readBody(w, r)
	if err != nil {
		apperrors.WriteHTTP(w, r, err)
		return
	}
	var req models.Request
	if err := json.Unmarshal(body, &req); err != nil {
		apperrors.WriteHTTP(w, r, apperrors.Wrap(apperrors.Validation, "malformed request envelope", err))
		return
	}
	if req.Type == "" {
		apperrors.WriteHTTP(w, r, apperrors.New(apperrors.Validation, "type is required"))
		return
	}
	s.dispatch(w, r, req)
}

// typed returns a handler for one task route. The whole body is the task
// payload; per-request options ride in the options field and are split off
// before dispatch.
func (s *Server) typed(reqType models.RequestType) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		body, err := readBody(w, r)
		if err != nil {
			apperrors.WriteHTTP(w, r, err)
			return
		}
		var opts struct {
			Options *models.Options `json:"options"`
		}
		_ = json.Unmarshal(body, &opts)
		s.dispatch(w, r, models.Request{Type: reqType, Data: body, Options: opts.Options})
	}
}

// dispatch runs budget enforcement, the dispatcher, and usage recording for
// one request, then writes the dispatcher's envelope.
func (s *Server) dispatch(w http.ResponseWriter, r *http.Request, req models.Request) {
	id, _ := auth.IdentityFromContext(r.Context())

	if s.enforcer != nil && id.UserID != "" {
		if err := s.enforcer.Check(r.Context(), id.UserID, req.Type); err != nil {
			if errors.Is(err, budget.ErrBudgetExceeded) {
				apperrors.WriteHTTP(w, r, apperrors.New(apperrors.AIQuota, "token budget exceeded"))
				return
			}
			s.logger.Printf("budget check degraded: %v", err)
		}
	}

	resp := s.dispatcher.Process(r.Context(), req)
	s.recordUsage(r, id, req, resp)
	s.writeDispatchResponse(w, resp)
}

// writeDispatchResponse writes the envelope. The success flag and code in
// the body carry the outcome; dispatch failures still answer HTTP 200.
// Only requests rejected as invalid map to 400.
func (s *Server) writeDispatchResponse(w http.ResponseWriter, resp models.Response) {
	status := http.StatusOK
	if !resp.Success {
		switch apperrors.KindForCode(resp.Code) {
		case apperrors.Validation, apperrors.InvalidAIRequest:
			status = http.StatusBadRequest
		}
	}
	writeJSON(w, status, resp)
}

// recordUsage persists the tracker record synchronously and the audit entry
// on a background goroutine, matching their durability needs.
func (s *Server) recordUsage(r *http.Request, id auth.Identity, req models.Request, resp models.Response) {
	userID := id.UserID
	if userID == "" {
		userID = "anonymous"
	}

	if s.tracker != nil {
		rec := models.UsageRecord{
			UserID:      userID,
			RequestType: req.Type,
			Model:       resp.Metadata.Model,
			Tokens:      resp.Metadata.Tokens,
			Cost:        resp.Metadata.Cost,
			DurationMs:  resp.Metadata.Duration,
			CacheHit:    resp.Metadata.CacheHit,
			Success:     resp.Success,
			CreatedAt:   time.Now().UTC(),
		}
		if err := s.tracker.Record(r.Context(), rec); err != nil {
			s.logger.Printf("usage record error: %v", err)
		}
	}

	if s.auditor != nil {
		hash, prefix := audit.HashUser(userID)
		entry := models.AuditEntry{
			RequestID:    r.Header.Get(RequestIDHeader),
			UserHash:     hash,
			UserPrefix:   prefix,
			RequestType:  req.Type,
			Model:        resp.Metadata.Model,
			Prompt:       string(req.Data),
			ResponseBody: string(resp.Data),
			Success:      resp.Success,
			ErrorCode:    resp.Code,
			Tokens:       resp.Metadata.Tokens,
			LatencyMs:    resp.Metadata.Duration,
			CreatedAt:    time.Now().UTC(),
		}
		go func() {
			if err := s.auditor.Log(context.Background(), entry); err != nil {
				s.logger.Printf("audit log error: %v", err)
			}
		}()
	}
}

func (s *Server) handleBulkMatch(w http.ResponseWriter, r *http.Request) {
	body, err := readBody(w, r)
	if err != nil {
		apperrors.WriteHTTP(w, r, err)
		return
	}
	var payload ai.BulkMatchPayload
	if err := json.Unmarshal(body, &payload); err != nil {
		apperrors.WriteHTTP(w, r, apperrors.Wrap(apperrors.Validation, "malformed bulk match payload", err))
		return
	}

	items, err := s.dispatcher.BulkMatch(r.Context(), payload)
	if err != nil {
		apperrors.WriteHTTP(w, r, err)
		return
	}

	processed := len(items)
	writeJSON(w, http.StatusOK, map[string]any{
		"success": true,
		"data": map[string]any{
			"matches":   items,
			"totalJobs": len(payload.Jobs),
			"processed": processed,
		},
		"timestamp": time.Now().UTC().Format(time.RFC3339),
	})
}

// handleHealth exercises the full dispatch path with a trivial chatbot
// request, so a broken completion backend flips the reported status.
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	services := map[string]string{
		"ai": "configured",
	}
	status := http.StatusOK
	healthy := true

	if s.cfg != nil && s.cfg.AI.APIKey == "" {
		services["ai"] = "unconfigured"
		healthy = false
	}
	if s.store != nil {
		if err := s.store.Ping(r.Context()); err != nil {
			services["cache"] = "unavailable"
			healthy = false
		} else {
			services["cache"] = "connected"
		}
	}
	if s.dispatcher != nil {
		resp := s.dispatcher.Process(r.Context(), models.Request{
			Type: models.Chatbot,
			Data: json.RawMessage(`{"message":"health check"}`),
		})
		if resp.Success {
			services["aiService"] = "operational"
		} else {
			services["aiService"] = "error"
			healthy = false
		}
	}
	state := "healthy"
	if !healthy {
		status = http.StatusServiceUnavailable
		state = "degraded"
	}

	writeJSON(w, status, map[string]any{
		"success":   healthy,
		"status":    state,
		"services":  services,
		"timestamp": time.Now().UTC().Format(time.RFC3339),
	})
}

func (s *Server) handleStats(w http.ResponseWriter, r *http.Request) {
	if s.tracker == nil {
		apperrors.WriteHTTP(w, r, apperrors.New(apperrors.Internal, "usage tracking disabled"))
		return
	}

	window := 24 * time.Hour
	if raw := r.URL.Query().Get("window"); raw != "" {
		d, err := time.ParseDuration(raw)
		if err != nil || d <= 0 {
			apperrors.WriteHTTP(w, r, apperrors.New(apperrors.Validation, "window must be a positive duration"))
			return
		}
		window = d
	}

	stats, err := s.tracker.Stats(r.Context(), r.URL.Query().Get("user"), time.Now().UTC().Add(-window))
	if err != nil {
		s.logger.Printf("stats query error: %v", err)
		apperrors.WriteHTTP(w, r, apperrors.New(apperrors.Internal, "stats unavailable"))
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"success":   true,
		"data":      stats,
		"timestamp": time.Now().UTC().Format(time.RFC3339),
	})
}

// handleConfig reports the dispatch configuration without secrets.
func (s *Server) handleConfig(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"success": true,
		"data": map[string]any{
			"model":           s.cfg.AI.Model,
			"maxTokens":       s.cfg.AI.MaxTokens,
			"temperature":     s.cfg.AI.Temperature,
			"costPer1kTokens": s.cfg.AI.CostPer1KTokens,
			"cacheEnabled":    s.cfg.Cache.Enabled,
			"cacheTTL":        s.cfg.Cache.TTL.String(),
			"rateLimit": map[string]any{
				"max":    s.cfg.RateLimit.Max,
				"window": s.cfg.RateLimit.Window.String(),
			},
			"requestTypes": models.RequestTypes(),
		},
		"timestamp": time.Now().UTC().Format(time.RFC3339),
	})
}

// handleBudget reports the caller's own budget standing.
func (s *Server) handleBudget(w http.ResponseWriter, r *http.Request) {
	id, _ := auth.IdentityFromContext(r.Context())
	if s.enforcer == nil {
		writeJSON(w, http.StatusOK, map[string]any{
			"success": true,
			"data":    []models.BudgetStatus{},
		})
		return
	}

	statuses, err := s.enforcer.Status(r.Context(), id.UserID)
	if err != nil {
		s.logger.Printf("budget status error: %v", err)
		apperrors.WriteHTTP(w, r, apperrors.New(apperrors.Internal, "budget status unavailable"))
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"success": true,
		"data":    statuses,
	})
}
