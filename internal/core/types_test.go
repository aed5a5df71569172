package core

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestClampScore(t *testing.T) {
	assert.Equal(t, 0.0, ClampScore(-5))
	assert.Equal(t, 100.0, ClampScore(150))
	assert.Equal(t, 42.5, ClampScore(42.5))
}

func TestMaskSecret(t *testing.T) {
	assert.Equal(t, "short…", MaskSecret("short"))
	assert.Equal(t, "12345678901234567890…", MaskSecret("123456789012345678901234567890"))
}

func TestCredentialEligible(t *testing.T) {
	c := &Credential{IsActive: true, Status: CredentialStatusValid}
	assert.True(t, c.Eligible())
	c.Status = CredentialStatusInvalid
	assert.False(t, c.Eligible())
	c.Status = CredentialStatusValid
	c.IsActive = false
	assert.False(t, c.Eligible())
}

func TestPostStatusTerminal(t *testing.T) {
	assert.False(t, PostStatusNew.IsTerminal())
	assert.True(t, PostStatusAccepted.IsTerminal())
	assert.True(t, PostStatusRejected.IsTerminal())
}

func TestPostEngagement(t *testing.T) {
	p := &Post{Views: 10, Likes: 5, Reposts: 2, Comments: 1}
	assert.Equal(t, float64(10+2*5+3*2+4*1), p.Engagement())
}

func TestErrorKindWrapping(t *testing.T) {
	err := NewError(KindUpstreamAuth, "token %s invalid", "abc")
	assert.Equal(t, KindUpstreamAuth, KindOf(err))
	assert.False(t, IsRetryable(err))

	wrapped := Wrap(KindUpstreamTransport, err, "fetch failed")
	assert.Equal(t, KindUpstreamTransport, KindOf(wrapped))
	assert.True(t, IsRetryable(wrapped))
}
