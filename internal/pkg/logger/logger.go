package logger

import (
	"context"
	"fmt"
	"os"
	"strings"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// RequestIDKey is the gin context key holding the request id.
const RequestIDKey = "request_id"

// New builds the application logger. Production-like envs get JSON output,
// everything else gets the colored console encoder.
func New(env string) *zap.Logger {
	var cfg zap.Config

	switch strings.ToLower(strings.TrimSpace(env)) {
	case "prod", "production", "release":
		cfg = zap.NewProductionConfig()
		cfg.EncoderConfig.TimeKey = "timestamp"
		cfg.EncoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder
	default:
		cfg = zap.NewDevelopmentConfig()
		cfg.EncoderConfig.EncodeLevel = zapcore.CapitalColorLevelEncoder
	}

	log, err := cfg.Build()
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to initialize logger: %v\n", err)
		os.Exit(1)
	}
	return log
}

// OrNop returns l, or a no-op logger when l is nil.
func OrNop(l *zap.Logger) *zap.Logger {
	if l == nil {
		return zap.NewNop()
	}
	return l
}

// WithRequest attaches the request id stored on a gin context, if any.
func WithRequest(ctx context.Context, l *zap.Logger) *zap.Logger {
	l = OrNop(l)
	if gc, ok := ctx.(*gin.Context); ok {
		if rid := gc.GetString(RequestIDKey); rid != "" {
			return l.With(zap.String("request_id", rid))
		}
	}
	return l
}
