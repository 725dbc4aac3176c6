package middleware

import (
	"net/http"
	"strings"

	"github.com/go-chi/cors"
)

var defaultCORSOrigins = []string{
	"http://localhost:3000", // local dev
	"http://localhost:5173", // vite dev server
}

// CORS returns middleware that allows the configured public site plus the
// local dev origins.
func CORS(publicURL string) func(http.Handler) http.Handler {
	origins := append([]string(nil), defaultCORSOrigins...)
	if origin := strings.TrimRight(strings.TrimSpace(publicURL), "/"); origin != "" {
		origins = append(origins, origin)
	}
	return cors.New(cors.Options{
		AllowedOrigins:   origins,
		AllowedMethods:   []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type", "X-Request-Id", "X-Requested-With"},
		ExposedHeaders:   []string{"Content-Disposition", "X-Request-Id"},
		AllowCredentials: true,
		MaxAge:           300,
	}).Handler
}
