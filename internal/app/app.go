package app

import (
	"context"
	"fmt"
	"io"
	"log/slog"

	"github.com/vk/surveynav/internal/ctxlog"
	"github.com/vk/surveynav/internal/survey"
)

// Loader builds a survey from definition files.
type Loader interface {
	Load(ctx context.Context, paths ...string) (*survey.Survey, error)
}

// App encapsulates the application's dependencies, configuration, and
// output streams.
type App struct {
	outW   io.Writer
	logger *slog.Logger
	config *Config
	loader Loader
}

// NewApp is the constructor for the main application. Command output goes
// to outW and logs to logW, each App with its own isolated logger.
func NewApp(outW, logW io.Writer, cfg *Config, loader Loader) *App {
	logger := newLogger(cfg.LogLevel, cfg.LogFormat, logW)
	logger.Debug("Logger configured successfully.")
	return &App{
		outW:   outW,
		logger: logger,
		config: cfg,
		loader: loader,
	}
}

// Logger returns the application's logger. This is primarily for testing.
func (a *App) Logger() *slog.Logger { return a.logger }

func (a *App) withLogger(ctx context.Context) context.Context {
	return ctxlog.WithLogger(ctx, a.logger)
}

// loadSurvey loads the configured survey and checks its dependency graph.
func (a *App) loadSurvey(ctx context.Context) (*survey.Survey, error) {
	if len(a.config.SurveyPaths) == 0 {
		return nil, fmt.Errorf("no survey path configured")
	}
	s, err := a.loader.Load(ctx, a.config.SurveyPaths...)
	if err != nil {
		return nil, fmt.Errorf("failed to load survey: %w", err)
	}
	if err := s.Validate(); err != nil {
		return nil, fmt.Errorf("invalid survey: %w", err)
	}
	a.logger.Debug("Survey loaded.", "questions", s.Len(), "rules", s.Rules().Len())
	return s, nil
}
