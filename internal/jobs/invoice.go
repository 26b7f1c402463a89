package jobs

import (
	"context"

	"github.com/google/uuid"

	"github.com/dukerupert/bidwell/internal/repository"
)

// Job type constants for conversion jobs
const (
	JobTypeConvertEstimate = "estimate:convert"
)

// ConvertEstimatePayload represents the payload for converting an estimate
// into its full invoice once the deposit has cleared.
type ConvertEstimatePayload struct {
	EstimateID uuid.UUID `json:"estimate_id"`
}

// EnqueueConvertEstimate enqueues conversion of an estimate. Only one
// conversion job ever exists per estimate.
func EnqueueConvertEstimate(ctx context.Context, q repository.Querier, ownerID, estimateID uuid.UUID) (bool, error) {
	return enqueue(ctx, q, spec{
		ownerID:        ownerID,
		jobType:        JobTypeConvertEstimate,
		queue:          QueueDefault,
		payload:        ConvertEstimatePayload{EstimateID: estimateID},
		priority:       50,
		maxRetries:     5,
		timeoutSeconds: 60,
		key:            "convert:" + estimateID.String(),
	})
}

// IsConversionJob checks if a job type is a conversion job
func IsConversionJob(jobType string) bool {
	return jobType == JobTypeConvertEstimate
}
