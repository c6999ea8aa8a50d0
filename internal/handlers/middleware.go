package handlers

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"

	"github.com/inkwave/member-back/internal/config"
	"github.com/inkwave/member-back/internal/services"

	"golang.org/x/time/rate"
)

type Middleware func(http.HandlerFunc) http.HandlerFunc

func WithMidWare(finalHandler http.HandlerFunc, middlwares ...Middleware) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		f := finalHandler
		for _, m := range middlwares {
			f = m(f)
		}
		f(w, r)
	}
}

// Middleware is a middleware function for request validation
func ApiAuthCheck(h http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		// Get API key from request
		providedKey := r.Header.Get("appKey")

		// Validate API key
		if providedKey != config.GetConfig().InkAPIKey {
			// If key is incorrect, return error response
			http.Error(w, "Invalid appKey", http.StatusUnauthorized)
			return
		}

		// If key is correct, call next handler
		h.ServeHTTP(w, r)
	}
}

func JWTMiddleware(h http.HandlerFunc) http.HandlerFunc {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {

		// Get Authorization token from request Header
		tokenString := r.Header.Get("Authorization")
		if len(tokenString) < 1 {
			http.Error(w, "Unauthorized", http.StatusUnauthorized)
			return
		}

		claims, err := services.NewJWTService().ValidateToken(tokenString)
		if err != nil {
			http.Error(w, "Unauthorized", http.StatusUnauthorized)
			return
		}
		slog.Debug(fmt.Sprintf("[%s] %s userid:[%v] role:[%s]", r.Method, r.URL.Path, claims.UserID, claims.Role))
		ctx := context.WithValue(r.Context(), "userid", claims.UserID)
		ctx = context.WithValue(ctx, "role", claims.Role)
		r = r.WithContext(ctx)

		// Call next handler
		h.ServeHTTP(w, r)
	})
}

// RateLimit 令牌桶限流，凭证提交接口防刷
func RateLimit(limiter *rate.Limiter) Middleware {
	return func(h http.HandlerFunc) http.HandlerFunc {
		return func(w http.ResponseWriter, r *http.Request) {
			if !limiter.Allow() {
				http.Error(w, "Too many requests", http.StatusTooManyRequests)
				return
			}
			h.ServeHTTP(w, r)
		}
	}
}
