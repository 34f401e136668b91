package main

import (
	"context"
	"errors"
	"fmt"
	"io"

	"go.opentelemetry.io/otel/log/global"
	"go.uber.org/zap"

	"github.com/fyrsmithlabs/medtriage/internal/config"
	"github.com/fyrsmithlabs/medtriage/internal/logging"
	"github.com/fyrsmithlabs/medtriage/internal/pipeline"
	"github.com/fyrsmithlabs/medtriage/internal/risk"
	"github.com/fyrsmithlabs/medtriage/internal/scheduling"
	"github.com/fyrsmithlabs/medtriage/internal/sentiment"
	"github.com/fyrsmithlabs/medtriage/internal/telemetry"
	"github.com/fyrsmithlabs/medtriage/internal/vocabulary"
)

// app holds the wired services for one command invocation.
type app struct {
	cfg       *config.Config
	logger    *logging.Logger
	telemetry *telemetry.Telemetry
	engine    *pipeline.Engine
	scheduler *scheduling.Service
}

type appOptions struct {
	// withScheduling enables booking even when scheduling.enabled is false.
	withScheduling bool
	// authOut receives the consent URL during interactive authorization.
	authOut io.Writer
}

// loadConfig loads the configuration and applies flag overrides.
func loadConfig() (*config.Config, error) {
	cfg, err := config.LoadWithFile(configPath)
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}
	if logLevel != "" {
		cfg.Observability.LogLevel = logLevel
	}
	return cfg, nil
}

// initLogger creates the application logger.
func initLogger(cfg *config.Config) (*logging.Logger, error) {
	logCfg, err := logging.FromObservability(cfg.Observability)
	if err != nil {
		return nil, err
	}
	return logging.NewLogger(logCfg, global.GetLoggerProvider())
}

// newApp wires configuration, logging, telemetry and the analysis engine.
//
//  1. Loads configuration and applies flag overrides
//  2. Initializes logger and telemetry
//  3. Builds the vocabulary matcher and the risk classifier
//  4. Builds the scheduling service when enabled
//  5. Creates the pipeline engine
func newApp(ctx context.Context, opts appOptions) (*app, error) {
	cfg, err := loadConfig()
	if err != nil {
		return nil, err
	}

	logger, err := initLogger(cfg)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize logger: %w", err)
	}

	tel, err := telemetry.New(ctx, telemetry.FromObservability(cfg.Observability, version))
	if err != nil {
		return nil, fmt.Errorf("failed to initialize telemetry: %w", err)
	}
	if h := tel.Health(); h.Degraded {
		logger.Warn(ctx, "telemetry degraded", zap.String("error", h.LastError))
	}

	matcher, err := vocabulary.NewMatcherFromConfig(cfg.Vocabulary)
	if err != nil {
		return nil, fmt.Errorf("invalid vocabulary: %w", err)
	}

	classifier, err := newClassifier(cfg, logger)
	if err != nil {
		return nil, err
	}

	a := &app{cfg: cfg, logger: logger, telemetry: tel}

	var sched pipeline.Scheduler
	if cfg.Scheduling.Enabled || opts.withScheduling {
		svc, err := newScheduler(ctx, cfg.Scheduling, logger, opts.authOut)
		if err != nil {
			return nil, fmt.Errorf("failed to initialize scheduling: %w", err)
		}
		a.scheduler = svc
		sched = svc
	}

	a.engine, err = pipeline.New(matcher, classifier, sched, pipeline.ConfigFrom(cfg.Pipeline), logger)
	if err != nil {
		return nil, err
	}

	logger.Debug(ctx, "medtriage initialized",
		zap.String("strategy", string(classifier.Name())),
		zap.Bool("scheduling", a.scheduler != nil),
		zap.Int("workers", cfg.Pipeline.Workers))
	return a, nil
}

func newClassifier(cfg *config.Config, logger *logging.Logger) (risk.Classifier, error) {
	var analyzer risk.SentimentAnalyzer
	if cfg.Risk.Strategy == config.StrategySentiment {
		client, err := sentiment.NewClient(cfg.Sentiment, sentiment.WithLogger(logger))
		if err != nil {
			return nil, fmt.Errorf("failed to create sentiment client: %w", err)
		}
		analyzer = client
	}
	classifier, err := risk.New(cfg.Risk, analyzer, logger)
	if err != nil {
		return nil, fmt.Errorf("failed to create risk classifier: %w", err)
	}
	return classifier, nil
}

// newTokenManager builds the credential manager from the scheduling section.
func newTokenManager(cfg config.SchedulingConfig, logger *logging.Logger, authOut io.Writer) (*scheduling.TokenManager, error) {
	secretPath, err := config.ExpandHome(cfg.ClientSecretPath)
	if err != nil {
		return nil, err
	}
	tokenPath, err := config.ExpandHome(cfg.TokenPath)
	if err != nil {
		return nil, err
	}

	oauthCfg, err := scheduling.LoadOAuthConfig(secretPath)
	if err != nil {
		return nil, err
	}
	authorizer := scheduling.NewInstalledAppAuthorizer(oauthCfg, cfg.RedirectPort, authOut, logger)
	return scheduling.NewTokenManager(scheduling.NewFileCredentialStore(tokenPath), authorizer, oauthCfg, logger), nil
}

func newScheduler(ctx context.Context, cfg config.SchedulingConfig, logger *logging.Logger, authOut io.Writer) (*scheduling.Service, error) {
	tokens, err := newTokenManager(cfg, logger, authOut)
	if err != nil {
		return nil, err
	}

	cal, err := scheduling.NewGoogleCalendar(ctx, scheduling.GoogleCalendarConfig{
		CalendarID: cfg.CalendarID,
		Endpoint:   cfg.Endpoint,
		RateLimit:  cfg.RateLimit,
	}, tokens.TokenSource())
	if err != nil {
		return nil, err
	}

	opts := append(scheduling.OptionsFromConfig(cfg),
		scheduling.WithCredentials(tokens),
		scheduling.WithLogger(logger))
	return scheduling.NewService(cal, opts...), nil
}

// Close flushes telemetry and the logger.
func (a *app) Close() error {
	var errs []error
	if err := a.telemetry.Shutdown(context.Background()); err != nil {
		errs = append(errs, fmt.Errorf("telemetry shutdown: %w", err))
	}
	_ = a.logger.Sync() // Best-effort sync on shutdown
	return errors.Join(errs...)
}
