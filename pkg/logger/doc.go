// Package logger builds configured slog.Logger instances with environment
// presets and a small set of domain attribute helpers.
//
// Production defaults to JSON output at info level for log aggregation;
// development switches to human-readable text at debug level.
//
//	log := logger.New(logger.WithEnvironment(cfg.Env, "authkit"))
//	log.Info("token issued", logger.UserID(user.ID), logger.TokenID(tok.ID))
package logger
