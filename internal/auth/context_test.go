// ABOUTME: Unit tests for auth context propagation
// ABOUTME: Tests WithAuth/FromContext round-trips and role checks

package auth

import (
	"context"
	"testing"
)

func TestWithAuth_FromContext(t *testing.T) {
	authCtx := &AuthContext{
		UserID: "user-123",
		Email:  "student@example.com",
		Role:   "student",
	}

	ctx := WithAuth(context.Background(), authCtx)
	got := FromContext(ctx)

	if got == nil {
		t.Fatal("FromContext() returned nil")
	}
	if got.UserID != "user-123" {
		t.Errorf("UserID = %q, want %q", got.UserID, "user-123")
	}
	if got.Email != "student@example.com" {
		t.Errorf("Email = %q, want %q", got.Email, "student@example.com")
	}
	if got.Role != "student" {
		t.Errorf("Role = %q, want %q", got.Role, "student")
	}
}

func TestFromContext_Missing(t *testing.T) {
	got := FromContext(context.Background())
	if got != nil {
		t.Errorf("FromContext() = %+v, want nil", got)
	}
}

func TestMustFromContext_Panics(t *testing.T) {
	defer func() {
		if r := recover(); r == nil {
			t.Error("MustFromContext() should panic when no AuthContext present")
		}
	}()
	MustFromContext(context.Background())
}

func TestAuthContext_IsAdmin(t *testing.T) {
	tests := []struct {
		name string
		role string
		want bool
	}{
		{name: "admin role", role: "admin", want: true},
		{name: "student role", role: "student", want: false},
		{name: "empty role", role: "", want: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			a := &AuthContext{UserID: "u", Role: tt.role}
			if got := a.IsAdmin(); got != tt.want {
				t.Errorf("IsAdmin() = %v, want %v", got, tt.want)
			}
		})
	}
}
