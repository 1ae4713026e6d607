package ai

import (
	"context"
	"encoding/json"
	"sort"

	"github.com/kru-ai/kru/pkg/apperrors"
	"github.com/kru-ai/kru/pkg/models"
)

// BulkJob is one job posting in a bulk-match batch.
type BulkJob struct {
	ID           string          `json:"id"`
	Requirements json.RawMessage `json:"requirements"`
}

// BulkMatchPayload is the Data shape for a bulk-match request.
type BulkMatchPayload struct {
	TeacherProfile json.RawMessage `json:"teacherProfile"`
	Jobs           []BulkJob       `json:"jobs"`
	Limit          int             `json:"limit,omitempty"`
}

// DefaultBulkLimit bounds a batch when the caller does not set one. A
// caller-supplied limit is honored as given.
const DefaultBulkLimit = 10

// BulkMatch scores one teacher against min(limit, len(jobs)) jobs. Per-job
// failures are reported in place and never abort the batch. Items come back
// sorted by match score descending, with failed items last.
func (d *Dispatcher) BulkMatch(ctx context.Context, p BulkMatchPayload) ([]models.BulkMatchItem, error) {
	if len(p.TeacherProfile) == 0 {
		return nil, apperrors.New(apperrors.InvalidAIRequest, "teacherProfile is required")
	}
	if len(p.Jobs) == 0 {
		return nil, apperrors.New(apperrors.InvalidAIRequest, "jobs must not be empty")
	}

	limit := p.Limit
	if limit <= 0 {
		limit = DefaultBulkLimit
	}
	if limit > len(p.Jobs) {
		limit = len(p.Jobs)
	}

	items := make([]models.BulkMatchItem, 0, limit)
	for _, job := range p.Jobs[:limit] {
		items = append(items, d.matchOne(ctx, p.TeacherProfile, job))
	}

	sort.SliceStable(items, func(i, j int) bool {
		return items[i].Score > items[j].Score
	})
	return items, nil
}

func (d *Dispatcher) matchOne(ctx context.Context, teacher json.RawMessage, job BulkJob) models.BulkMatchItem {
	data, err := json.Marshal(models.MatchPayload{
		TeacherProfile:  teacher,
		JobRequirements: job.Requirements,
	})
	if err != nil {
		return models.BulkMatchItem{JobID: job.ID, Error: "invalid job requirements", Score: -1}
	}

	resp := d.Process(ctx, models.Request{Type: models.JobMatching, Data: data})
	if !resp.Success {
		return models.BulkMatchItem{JobID: job.ID, Error: resp.Error, Score: -1}
	}

	item := models.BulkMatchItem{JobID: job.ID, Match: resp.Data, Score: -1}
	var result models.MatchResult
	if err := json.Unmarshal(resp.Data, &result); err == nil {
		item.Score = result.MatchScore
	}
	return item
}
