// Package logging provides structured logging with OpenTelemetry integration.
//
// Logger wraps Zap with:
//   - a Trace level below Debug
//   - console (stderr) and OpenTelemetry outputs
//   - context field injection (trace_id, conversation.id, request.id, booking.key)
//   - encoder-level redaction of credential fields and OAuth token patterns
//   - sampling below Error
//
// Usage:
//
//	cfg, _ := logging.FromObservability(appCfg.Observability)
//	logger, err := logging.NewLogger(cfg, otelProvider)
//	if err != nil {
//	    return err
//	}
//	defer logger.Sync()
//
//	ctx = logging.WithConversationID(ctx, conv.ID)
//	logger.Info(ctx, "conversation analyzed", zap.String("tier", tier.String()))
//
// Tests use TestLogger:
//
//	tl := logging.NewTestLogger()
//	svc := scheduling.NewService(..., tl.Logger)
//	tl.AssertLogged(t, zapcore.WarnLevel, "retrying")
//	tl.AssertNoSecrets(t, refreshToken)
package logging
