// Package svcctx provides service context for dependency injection via context.
// This package is separate from server to avoid import cycles with endpoints.
package svcctx

import (
	"context"
	"log/slog"

	"github.com/labsight/labsight/internal/config"
	"github.com/labsight/labsight/internal/pipeline"
	"github.com/labsight/labsight/internal/plan"
	"github.com/labsight/labsight/internal/providers"
)

// Services holds all core services that flow through context.
// Components extract what they need via the individual extractors.
type Services struct {
	Pipeline  pipeline.Runner
	Planner   *plan.Planner
	Vision    providers.VisionClient
	ConfigMgr *config.Manager
	Logger    *slog.Logger
}

type servicesKey struct{}

// WithServices returns a new context with services attached.
func WithServices(ctx context.Context, s *Services) context.Context {
	return context.WithValue(ctx, servicesKey{}, s)
}

// ServicesFrom extracts the full Services struct from context.
// Returns nil if not present.
func ServicesFrom(ctx context.Context) *Services {
	s, _ := ctx.Value(servicesKey{}).(*Services)
	return s
}

// PipelineFrom extracts the extraction pipeline from context.
func PipelineFrom(ctx context.Context) pipeline.Runner {
	if s := ServicesFrom(ctx); s != nil {
		return s.Pipeline
	}
	return nil
}

// PlannerFrom extracts the plan generator from context.
func PlannerFrom(ctx context.Context) *plan.Planner {
	if s := ServicesFrom(ctx); s != nil {
		return s.Planner
	}
	return nil
}

// VisionFrom extracts the vision model client from context.
func VisionFrom(ctx context.Context) providers.VisionClient {
	if s := ServicesFrom(ctx); s != nil {
		return s.Vision
	}
	return nil
}

// ConfigManagerFrom extracts the config manager from context.
func ConfigManagerFrom(ctx context.Context) *config.Manager {
	if s := ServicesFrom(ctx); s != nil {
		return s.ConfigMgr
	}
	return nil
}

// LoggerFrom extracts the logger from context.
func LoggerFrom(ctx context.Context) *slog.Logger {
	if s := ServicesFrom(ctx); s != nil {
		return s.Logger
	}
	return nil
}
