// Package logging provides structured, context-aware logging for medichat.
//
// Logger wraps zap with methods that take a context.Context and inject
// correlation fields automatically: OpenTelemetry trace and span IDs, the
// chat session ID and the HTTP request ID.
//
//	logger, err := logging.NewLogger(logging.NewDefaultConfig(), nil)
//	if err != nil {
//	    return err
//	}
//	defer logger.Sync()
//
//	ctx = logging.WithSessionID(ctx, sess.ID())
//	logger.Info(ctx, "question answered", zap.Duration("elapsed", d))
//
// Field names that look like credentials (api_key, password, token) and
// values matching bearer or api-key patterns are redacted by the encoder.
// Below-error entries can be sampled; errors are never dropped.
//
// Tests use NewTestLogger, which records entries in memory for assertions.
package logging
