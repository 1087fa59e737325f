package middleware

import (
	"net/http"
	"slices"

	"github.com/go-chi/cors"
	"github.com/straye-as/kosthorys-api/internal/config"
	"go.uber.org/zap"
)

// apiExposedHeaders are read by the web client: Location after creating a
// budget, contract or vehicle, and the file name and stored path of an xlsx
// budget report.
var apiExposedHeaders = []string{"Location", "Content-Disposition", "X-Report-Path", "X-Request-ID"}

// CORS returns the cross-origin policy for the budget API. Without an
// explicit origin list every origin is allowed on local environments and
// none elsewhere.
func CORS(cfg *config.CORSConfig, environment string, logger *zap.Logger) func(http.Handler) http.Handler {
	options := cors.Options{
		AllowedMethods:   cfg.AllowedMethods,
		AllowedHeaders:   cfg.AllowedHeaders,
		ExposedHeaders:   exposedHeaders(cfg.ExposedHeaders),
		AllowCredentials: cfg.AllowCredentials,
		MaxAge:           cfg.MaxAge,
	}

	local := isLocalEnvironment(environment)
	switch {
	case slices.Contains(cfg.AllowedOrigins, "*"):
		if !local {
			logger.Warn("CORS allows any origin outside a local environment",
				zap.String("environment", environment))
		}
		options.AllowOriginFunc = anyOrigin
	case len(cfg.AllowedOrigins) > 0:
		options.AllowedOrigins = cfg.AllowedOrigins
		logger.Info("CORS origins configured", zap.Strings("origins", cfg.AllowedOrigins))
	case local:
		options.AllowOriginFunc = anyOrigin
		logger.Info("CORS allows any origin in local environment")
	default:
		// an empty AllowedOrigins means "*" to go-chi/cors
		options.AllowOriginFunc = func(*http.Request, string) bool { return false }
		logger.Warn("CORS has no origins configured; cross-origin requests are denied",
			zap.String("environment", environment))
	}

	return cors.Handler(options)
}

func anyOrigin(_ *http.Request, origin string) bool {
	return origin != ""
}

func isLocalEnvironment(environment string) bool {
	switch environment {
	case "", "development", "local", "test":
		return true
	}
	return false
}

func exposedHeaders(configured []string) []string {
	out := slices.Clone(configured)
	for _, h := range apiExposedHeaders {
		if !slices.Contains(out, h) {
			out = append(out, h)
		}
	}
	return out
}
