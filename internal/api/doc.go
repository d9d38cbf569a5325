// Package api exposes the HTTP surface of tutor-gateway.
//
// # Endpoints
//
//   - POST /api/login: exchange email+password for a session JWT
//   - POST /api/password-reset-request: admission-gated, always 202 unless
//     a blocking axis is exhausted (no enumeration)
//   - POST /api/password-reset: consume a reset token, set a new password
//   - POST /api/chat: one tutoring turn (auth required, per-user gated)
//   - GET  /api/chat: bounded history read-back (auth required)
//   - GET  /api/sessions: the caller's sessions (auth required)
//   - GET  /api/admin/admissions: admission audit trail (admin)
//   - GET  /api/admin/transcripts/{id}: session transcript as HTML (admin)
//   - GET  /health: liveness probe
//
// # Error Shape
//
// Errors are JSON objects {"error": "..."} with conventional status codes:
// 400 validation, 401 authentication, 403 authorization, 404 unknown or
// foreign resources, 429 rate limited, 500 dependency or generation
// failures. Rate-limited responses carry X-RateLimit-* headers; the
// password-reset flow additionally reports the email axis via
// X-RateLimit-Email-*.
package api
