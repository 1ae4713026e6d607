package ai

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"log"
	"strings"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
	"go.opentelemetry.io/otel/trace/noop"

	"github.com/kru-ai/kru/pkg/apperrors"
	"github.com/kru-ai/kru/pkg/metrics"
	"github.com/kru-ai/kru/pkg/models"
	"github.com/kru-ai/kru/pkg/store"
)

const cacheKeyPrefix = "ai:"

// handler prepares the chat messages for one task type and says whether the
// completion text must parse as JSON.
type handler struct {
	build      func(models.Request) ([]models.ChatMessage, error)
	structured bool
}

// DispatcherConfig carries the knobs Process needs per completion.
type DispatcherConfig struct {
	Model           string
	MaxTokens       int
	Temperature     float64
	CostPer1KTokens float64
	CacheTTL        time.Duration
}

// Dispatcher routes AI requests to the completion backend, consulting the
// cache first and pricing every upstream call.
type Dispatcher struct {
	completer Completer
	cache     store.Store
	metrics   *metrics.Metrics
	tracer    trace.Tracer
	logger    *log.Logger
	cfg       DispatcherConfig
	handlers  map[models.RequestType]handler
}

// NewDispatcher wires a dispatcher. cache, m and tracer may be nil; a nil
// cache disables caching.
func NewDispatcher(completer Completer, cache store.Store, m *metrics.Metrics, tracer trace.Tracer, logger *log.Logger, cfg DispatcherConfig) *Dispatcher {
	if tracer == nil {
		tracer = noop.NewTracerProvider().Tracer("")
	}
	if logger == nil {
		logger = log.Default()
	}
	d := &Dispatcher{
		completer: completer,
		cache:     cache,
		metrics:   m,
		tracer:    tracer,
		logger:    logger,
		cfg:       cfg,
	}
	d.handlers = map[models.RequestType]handler{
		models.JobMatching: {structured: true, build: func(req models.Request) ([]models.ChatMessage, error) {
			var p models.MatchPayload
			if err := decodePayload(req.Data, &p); err != nil {
				return nil, err
			}
			if len(p.TeacherProfile) == 0 || len(p.JobRequirements) == 0 {
				return nil, apperrors.New(apperrors.InvalidAIRequest, "teacherProfile and jobRequirements are required")
			}
			msgs, err := buildMatchPrompt(p.TeacherProfile, p.JobRequirements)
			if err != nil {
				return nil, apperrors.Wrap(apperrors.InvalidAIRequest, "invalid match payload", err)
			}
			return msgs, nil
		}},
		models.ContentGeneration: {build: func(req models.Request) ([]models.ChatMessage, error) {
			var p models.ContentPayload
			if err := decodePayload(req.Data, &p); err != nil {
				return nil, err
			}
			if p.ContentType == "" {
				return nil, apperrors.New(apperrors.InvalidAIRequest, "content type is required")
			}
			return buildContentPrompt(p), nil
		}},
		models.DocumentAnalysis: {structured: true, build: func(req models.Request) ([]models.ChatMessage, error) {
			var p models.DocumentPayload
			if err := decodePayload(req.Data, &p); err != nil {
				return nil, err
			}
			if p.Body() == "" {
				return nil, apperrors.New(apperrors.InvalidAIRequest, "document content is required")
			}
			return buildDocumentPrompt(p), nil
		}},
		models.Translation: {structured: true, build: func(req models.Request) ([]models.ChatMessage, error) {
			var p models.TranslationPayload
			if err := decodePayload(req.Data, &p); err != nil {
				return nil, err
			}
			if p.Text == "" || p.FromLanguage == "" || p.ToLanguage == "" {
				return nil, apperrors.New(apperrors.InvalidAIRequest, "text, fromLanguage and toLanguage are required")
			}
			return buildTranslationPrompt(p), nil
		}},
		models.Chatbot: {build: func(req models.Request) ([]models.ChatMessage, error) {
			var p models.ChatPayload
			if err := decodePayload(req.Data, &p); err != nil {
				return nil, err
			}
			if p.Message == "" {
				return nil, apperrors.New(apperrors.InvalidAIRequest, "message is required")
			}
			return buildChatMessages(p), nil
		}},
		models.ResumeParsing: {structured: true, build: func(req models.Request) ([]models.ChatMessage, error) {
			var p models.ResumePayload
			if err := decodePayload(req.Data, &p); err != nil {
				return nil, err
			}
			if p.ResumeText == "" {
				return nil, apperrors.New(apperrors.InvalidAIRequest, "resumeText is required")
			}
			return buildResumePrompt(p), nil
		}},
		models.InterviewPrep: {build: func(req models.Request) ([]models.ChatMessage, error) {
			var p models.InterviewPayload
			if err := decodePayload(req.Data, &p); err != nil {
				return nil, err
			}
			if len(p.JobDetails) == 0 || len(p.TeacherProfile) == 0 {
				return nil, apperrors.New(apperrors.InvalidAIRequest, "jobDetails and teacherProfile are required")
			}
			return buildInterviewPrompt(p), nil
		}},
	}
	return d
}

func decodePayload(raw json.RawMessage, dst any) error {
	if len(raw) == 0 {
		return apperrors.New(apperrors.InvalidAIRequest, "request data is required")
	}
	if err := json.Unmarshal(raw, dst); err != nil {
		return apperrors.Wrap(apperrors.InvalidAIRequest, "malformed request data", err)
	}
	return nil
}

// CacheKey derives the deterministic cache key for a request. Options are
// hashed along with the payload because model and temperature change the
// completion.
func CacheKey(req models.Request) string {
	h := sha256.New()
	h.Write([]byte(req.Type))
	h.Write([]byte{0})
	h.Write(req.Data)
	if req.Options != nil {
		opts, _ := json.Marshal(req.Options)
		h.Write([]byte{0})
		h.Write(opts)
	}
	return cacheKeyPrefix + hex.EncodeToString(h.Sum(nil))
}

// Process dispatches one request. It never returns an error; failures come
// back as a Response with Success=false and a wire code.
func (d *Dispatcher) Process(ctx context.Context, req models.Request) models.Response {
	start := time.Now()
	ctx, span := d.tracer.Start(ctx, "ai.process",
		trace.WithAttributes(attribute.String("ai.request_type", string(req.Type))))
	defer span.End()

	resp := d.process(ctx, req, start)
	span.SetAttributes(
		attribute.Bool("ai.success", resp.Success),
		attribute.Bool("ai.cache_hit", resp.Metadata.CacheHit),
	)
	if d.metrics != nil {
		d.metrics.ObserveDispatch(string(req.Type), resp.Success, resp.Metadata.CacheHit, resp.Metadata.Tokens, resp.Metadata.Cost)
	}
	return resp
}

func (d *Dispatcher) process(ctx context.Context, req models.Request, start time.Time) models.Response {
	h, ok := d.handlers[req.Type]
	if !ok {
		return d.failure(req, start, apperrors.Newf(apperrors.InvalidAIRequest, "unsupported request type: %s", req.Type))
	}

	messages, err := h.build(req)
	if err != nil {
		return d.failure(req, start, err)
	}

	key := CacheKey(req)
	if data, hit := d.cacheLookup(ctx, key); hit {
		return models.Response{
			Success: true,
			Data:    data,
			Metadata: models.Metadata{
				Model:     d.model(req),
				Duration:  time.Since(start).Milliseconds(),
				CacheHit:  true,
				Timestamp: time.Now().UTC(),
			},
		}
	}

	comp, err := d.completer.Complete(ctx, CompletionRequest{
		Model:       d.model(req),
		Messages:    messages,
		MaxTokens:   d.maxTokens(req),
		Temperature: d.temperature(req),
	})
	if err != nil {
		return d.failure(req, start, err)
	}

	data, err := shapeResult(comp.Text, h.structured)
	if err != nil {
		return d.failure(req, start, err)
	}

	d.cacheStore(ctx, key, data)

	tokens := comp.Usage.TotalTokens
	return models.Response{
		Success: true,
		Data:    data,
		Metadata: models.Metadata{
			Model:     comp.Model,
			Tokens:    tokens,
			Duration:  time.Since(start).Milliseconds(),
			Cost:      d.Cost(tokens),
			Timestamp: time.Now().UTC(),
		},
	}
}

// Cost prices a completion by its total token count.
func (d *Dispatcher) Cost(tokens int) float64 {
	return float64(tokens) / 1000 * d.cfg.CostPer1KTokens
}

func (d *Dispatcher) failure(req models.Request, start time.Time, err error) models.Response {
	kind := apperrors.KindOf(err)
	d.logger.Printf("ai: %s failed: %v", req.Type, err)
	return models.Response{
		Success: false,
		Error:   apperrors.MessageOf(err),
		Code:    kind.Code(),
		Metadata: models.Metadata{
			Model:     d.model(req),
			Duration:  time.Since(start).Milliseconds(),
			Timestamp: time.Now().UTC(),
		},
	}
}

func (d *Dispatcher) cacheLookup(ctx context.Context, key string) (json.RawMessage, bool) {
	if d.cache == nil {
		return nil, false
	}
	val, ok, err := d.cache.Get(ctx, key)
	if err != nil {
		d.logger.Printf("ai: cache read degraded: %v", err)
		return nil, false
	}
	return val, ok
}

func (d *Dispatcher) cacheStore(ctx context.Context, key string, data json.RawMessage) {
	if d.cache == nil || d.cfg.CacheTTL <= 0 {
		return
	}
	if err := d.cache.Set(ctx, key, data, d.cfg.CacheTTL); err != nil {
		d.logger.Printf("ai: cache write degraded: %v", err)
	}
}

func (d *Dispatcher) model(req models.Request) string {
	if req.Options != nil && req.Options.Model != "" {
		return req.Options.Model
	}
	return d.cfg.Model
}

func (d *Dispatcher) maxTokens(req models.Request) int {
	if req.Options != nil && req.Options.MaxTokens != nil {
		return *req.Options.MaxTokens
	}
	return d.cfg.MaxTokens
}

func (d *Dispatcher) temperature(req models.Request) float64 {
	if req.Options != nil && req.Options.Temperature != nil {
		return *req.Options.Temperature
	}
	return d.cfg.Temperature
}

// shapeResult turns completion text into the response payload. Structured
// task types must yield valid JSON; free-text types are wrapped so the
// payload is always a JSON object.
func shapeResult(text string, structured bool) (json.RawMessage, error) {
	if structured {
		cleaned := stripFences(text)
		if !json.Valid([]byte(cleaned)) {
			return nil, apperrors.New(apperrors.AIProcessing, "model returned malformed structured output")
		}
		return json.RawMessage(cleaned), nil
	}
	wrapped, err := json.Marshal(map[string]string{"response": text})
	if err != nil {
		return nil, apperrors.Wrap(apperrors.AIProcessing, "encode completion", err)
	}
	return wrapped, nil
}

// stripFences removes a markdown code fence the model sometimes wraps JSON
// output in.
func stripFences(s string) string {
	s = strings.TrimSpace(s)
	if !strings.HasPrefix(s, "```") {
		return s
	}
	s = strings.TrimPrefix(s, "```json")
	s = strings.TrimPrefix(s, "```")
	s = strings.TrimSuffix(strings.TrimSpace(s), "```")
	return strings.TrimSpace(s)
}
