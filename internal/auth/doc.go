// Package auth identifies the owner of each HTTP request.
//
// It supports two authentication modes:
//   - "none": No authentication required (default), every request acts on
//     AUTH_DEFAULT_USER_ID
//   - "token": Requests carry "Authorization: Bearer <token>" with a user's
//     API token; /health and /ping stay public
//
// Repeated invalid tokens from one client IP trigger a temporary lockout
// (AUTH_MAX_FAILED_ATTEMPTS within AUTH_RATE_LIMIT_WINDOW locks the client
// out for AUTH_LOCKOUT_DURATION).
//
// # Usage
//
//	limiter := auth.NewRateLimiter(auth.RateLimitConfig{MaxAttempts: cfg.Auth.MaxFailedAttempts})
//	router.Use(auth.NewMiddleware(userRepo, limiter, cfg.Auth).Handler())
//
// Extract the owner in handlers:
//
//	ownerID := auth.GetUserID(c)
package auth
