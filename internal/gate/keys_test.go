// ABOUTME: Unit tests for axis key construction and identity hashing

package gate

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestAxisKeys(t *testing.T) {
	assert.Equal(t, "ip:1.2.3.4", IPKey("1.2.3.4"))
	assert.Equal(t, "e:a@x.com", EmailKey(" A@X.com "))
	assert.Equal(t, "u:user-123", UserKey("user-123"))
}

func TestAxisKeys_NoCrossAxisCollision(t *testing.T) {
	// The same raw identity on different axes maps to different keys
	assert.NotEqual(t, IPKey("a@x.com"), EmailKey("a@x.com"))
	assert.NotEqual(t, EmailKey("user-1"), UserKey("user-1"))
}

func TestNormalizeEmail(t *testing.T) {
	assert.Equal(t, "a@x.com", NormalizeEmail("  A@X.Com\t"))
	assert.Equal(t, "", NormalizeEmail("   "))
}

func TestHashIdentity(t *testing.T) {
	h1 := HashIdentity("a@x.com")
	h2 := HashIdentity("a@x.com")
	h3 := HashIdentity("b@x.com")

	assert.Equal(t, h1, h2, "hashing is deterministic")
	assert.NotEqual(t, h1, h3)
	assert.Len(t, h1, 64, "hex-encoded SHA-256")
	assert.NotContains(t, h1, "@")
}
