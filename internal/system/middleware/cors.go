package middleware

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
)

type CORSOptions struct {
	AllowedOrigins   []string
	AllowedMethods   string
	AllowedHeaders   string
	AllowCredentials bool
}

// CORSMiddleware applies CORS headers on gin routes.
func CORSMiddleware(opts CORSOptions) gin.HandlerFunc {
	return func(c *gin.Context) {
		origin := c.GetHeader("Origin")
		if origin != "" && isOriginAllowed(origin, opts.AllowedOrigins) {
			applyCORSHeaders(c.Writer.Header(), origin, opts)
			if c.Request.Method == http.MethodOptions {
				c.AbortWithStatus(http.StatusNoContent)
				return
			}
		}
		c.Next()
	}
}

// WithCORS decorates a mux route with CORS handling. It returns the pattern
// and wrapped handler so it can be passed straight to mux.HandleFunc.
func WithCORS(pattern string, h http.HandlerFunc, opts CORSOptions) (string, http.HandlerFunc) {
	return pattern, func(w http.ResponseWriter, r *http.Request) {
		origin := r.Header.Get("Origin")
		if origin != "" && isOriginAllowed(origin, opts.AllowedOrigins) {
			applyCORSHeaders(w.Header(), origin, opts)
		}
		h(w, r)
	}
}

func applyCORSHeaders(h http.Header, origin string, opts CORSOptions) {
	h.Set("Access-Control-Allow-Origin", origin)
	h.Set("Access-Control-Allow-Methods", opts.AllowedMethods)
	h.Set("Access-Control-Allow-Headers", opts.AllowedHeaders)
	if opts.AllowCredentials {
		h.Set("Access-Control-Allow-Credentials", "true")
	}
}

func isOriginAllowed(origin string, allowedOrigins []string) bool {
	for _, allowed := range allowedOrigins {
		if allowed == "*" || strings.EqualFold(allowed, origin) {
			return true
		}
	}
	return false
}
