// Package holomesh provides default stand-ins for the two external
// advisory collaborators the semi-automatic and manual strategies consult
// (the HoloMesh recommender and the tool-guidance provider). Neither is
// the real integration; both report that clearly rather than silently
// no-oping.
package holomesh

import (
	"context"
	"log"

	"github.com/holomesh/cadopt/internal/domain"
)

// ReferenceRecommender returns the current parameters unchanged, logging
// that it is a stand-in. A real deployment wires its own
// domain.Recommender backed by the actual HoloMesh service.
type ReferenceRecommender struct{}

// GetRecommendations implements domain.Recommender.
func (ReferenceRecommender) GetRecommendations(ctx context.Context, toolName string, params domain.ParamMap, targets domain.TargetMetrics, mode domain.InteractionMode) (domain.ParamMap, error) {
	log.Printf("[holomesh] recommender integration not configured; echoing current params for tool=%s", toolName)
	return params.Clone(), nil
}

// ReferenceGuidance returns the current parameters unchanged, logging that
// it is a stand-in. A real deployment wires its own domain.GuidanceProvider
// backed by the actual tool-guidance service.
type ReferenceGuidance struct{}

// GetToolGuidance implements domain.GuidanceProvider.
func (ReferenceGuidance) GetToolGuidance(ctx context.Context, toolName string, params domain.ParamMap, targets domain.TargetMetrics) (domain.ParamMap, error) {
	log.Printf("[holomesh] tool-guidance integration not configured; echoing current params for tool=%s", toolName)
	return params.Clone(), nil
}

var (
	_ domain.Recommender      = ReferenceRecommender{}
	_ domain.GuidanceProvider = ReferenceGuidance{}
)
