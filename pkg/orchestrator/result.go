package orchestrator

import "github.com/codeready-toolchain/transclassify/pkg/types"

// Phase is the externally visible outcome of a Submit/Clarify call (spec
// §4.1, §6).
type Phase string

const (
	PhaseClassified         Phase = "classified"
	PhaseClarifying         Phase = "clarifying"
	PhaseManualReview       Phase = "manual_review"
	PhasePendingAdminReview Phase = "pending_admin_review"
)

// Result is returned by Submit and Clarify.
type Result struct {
	SessionID string
	Phase     Phase
	Session   *types.Session
	Questions []string
}

// ReclassifyResult is returned by Reclassify.
type ReclassifyResult struct {
	Original         types.Classification
	New              types.Classification
	Changed          bool
	ConfidenceDelta  float64
	MatrixEvaluation *types.MatrixEvaluation
}
