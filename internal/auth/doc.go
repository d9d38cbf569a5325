// Package auth provides authentication and authorization for tutor-gateway.
//
// # Authentication Method
//
// Users authenticate with JWT tokens signed with HS256 using the configured
// jwt_secret. Tokens carry the user ID in the "sub" claim.
//
// # User Roles
//
// Every user has exactly one role:
//
//   - "student": Can create tutoring sessions and chat with the AI tutor.
//   - "admin": Can additionally list admission events and view transcripts.
//
// # HTTP Middleware
//
// The package provides composable HTTP middleware:
//
//	HTTPAuthMiddleware(users, verifier) // Requires a valid bearer token
//	RequireAdminHTTP()                  // Requires the admin role
//
// Handlers retrieve the authenticated identity with FromContext:
//
//	authCtx := auth.FromContext(r.Context())
//	if authCtx != nil { ... }
//
// # Token Management
//
// Tokens are generated and verified through JWTVerifier:
//
//	verifier := auth.NewJWTVerifier(secret)
//	token, err := verifier.Generate(userID, 24*time.Hour)
//	userID, err := verifier.Verify(token)
package auth
