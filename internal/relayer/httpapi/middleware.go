package httpapi

import (
	"context"
	"net/http"
	"time"

	"github.com/dmitrijs2005/invisibledrop/internal/common"
	"github.com/dmitrijs2005/invisibledrop/internal/fhe"
	"github.com/dmitrijs2005/invisibledrop/internal/relayer/auth"
	"github.com/go-chi/chi/v5/middleware"
)

type ctxKey string

const clientKey ctxKey = "client"

func (s *Server) accessTokenMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		accessToken := r.Header.Get(common.AccessTokenHeaderName)
		if accessToken == "" {
			writeError(w, http.StatusUnauthorized, fhe.CodeUnauthorized, "missing token")
			return
		}

		client, err := auth.GetClientFromToken(accessToken, s.jwtSecret)
		if err != nil {
			writeError(w, http.StatusUnauthorized, fhe.CodeUnauthorized, "invalid token")
			return
		}

		next.ServeHTTP(w, r.WithContext(context.WithValue(r.Context(), clientKey, client)))
	})
}

func clientFromContext(ctx context.Context) string {
	if c, ok := ctx.Value(clientKey).(string); ok {
		return c
	}
	return ""
}

func (s *Server) requestLogger(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		started := time.Now()

		next.ServeHTTP(ww, r)

		s.logger.Debug(r.Context(), "request",
			"method", r.Method,
			"path", r.URL.Path,
			"status", ww.Status(),
			"duration", time.Since(started),
			"request_id", middleware.GetReqID(r.Context()))
	})
}
