// Package matrix implements the Decision Matrix Engine (spec §4.4): rule
// validation/sanitization, priority-ordered evaluation with
// first-override-wins semantics, and the admin matrix-generation prompt.
package matrix

import (
	"context"

	"github.com/codeready-toolchain/transclassify/pkg/pipelineerr"
	"github.com/codeready-toolchain/transclassify/pkg/types"
)

// ContentStore is the minimal surface pkg/matrix needs from
// pkg/contentstore, named locally per this repo's narrow-local-interface
// convention.
type ContentStore interface {
	GetLatestMatrix() (types.DecisionMatrix, error)
	GetMatrixVersion(version string) (types.DecisionMatrix, error)
	SaveMatrix(ctx context.Context, matrix types.DecisionMatrix, explicitVersion, userID string, warnings []string) (types.DecisionMatrix, error)
}

// Service owns matrix load/validate/save and rule evaluation.
type Service struct {
	store  ContentStore
	engine *Engine
}

func NewService(store ContentStore) (*Service, error) {
	engine, err := NewEngine()
	if err != nil {
		return nil, err
	}
	return &Service{store: store, engine: engine}, nil
}

// Load fetches the latest matrix (or a specific version, if given) and
// sanitizes it, dropping invalid rules with a warning rather than failing
// closed (spec §4.4). It fails only when the content store errors, or
// when sanitization leaves neither a usable rule nor any attribute.
func (s *Service) Load(version string) (types.DecisionMatrix, []string, error) {
	var m types.DecisionMatrix
	var err error
	if version == "" {
		m, err = s.store.GetLatestMatrix()
	} else {
		m, err = s.store.GetMatrixVersion(version)
	}
	if err != nil {
		return types.DecisionMatrix{}, nil, err
	}

	result := Sanitize(m)
	if len(result.Matrix.Rules) == 0 && len(result.Matrix.Attributes) == 0 {
		return types.DecisionMatrix{}, result.Warnings, pipelineerr.New(pipelineerr.KindValidationWarning, pipelineerr.ErrInvalidMatrix)
	}
	return result.Matrix, result.Warnings, nil
}

// Save parses raw JSON (coercing an array-valued targetCategory per spec
// §4.4), sanitizes it, and persists the result as a new immutable version.
func (s *Service) Save(ctx context.Context, raw []byte, explicitVersion, userID string) (types.DecisionMatrix, []string, error) {
	parsed, parseWarnings, err := ParseRaw(raw)
	if err != nil {
		return types.DecisionMatrix{}, nil, pipelineerr.Wrap(pipelineerr.KindInvalidInput, err, "matrix: save")
	}

	result := Sanitize(parsed)
	warnings := append(parseWarnings, result.Warnings...)
	if len(result.Matrix.Rules) == 0 && len(result.Matrix.Attributes) == 0 {
		return types.DecisionMatrix{}, warnings, pipelineerr.New(pipelineerr.KindInvalidInput, pipelineerr.ErrInvalidMatrix)
	}

	saved, err := s.store.SaveMatrix(ctx, result.Matrix, explicitVersion, userID, warnings)
	if err != nil {
		return types.DecisionMatrix{}, warnings, err
	}
	return saved, warnings, nil
}

// Evaluate runs m's rules against attrs, seeded from the LLM's proposed
// category/confidence (spec §4.4).
func (s *Service) Evaluate(m types.DecisionMatrix, attrs types.Attributes, proposedCategory types.Category, proposedConfidence float64) (types.Category, float64, types.MatrixEvaluation, error) {
	return s.engine.Evaluate(m, attrs, proposedCategory, proposedConfidence)
}
