package api_test

import (
	"testing"
	"time"

	"github.com/scoins/coinmarket/internal/api"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTokenRoundTrip(t *testing.T) {
	t.Parallel()

	issuer := api.NewTokenIssuer("test-secret", time.Hour)
	now := time.Now()

	token, err := issuer.Issue("user_abc", "Anna", now)
	require.NoError(t, err)

	userID, name, err := issuer.Parse(token)
	require.NoError(t, err)
	assert.Equal(t, "user_abc", userID)
	assert.Equal(t, "Anna", name)
}

func TestParseRejectsForgedTokens(t *testing.T) {
	t.Parallel()

	issuer := api.NewTokenIssuer("test-secret", time.Hour)
	other := api.NewTokenIssuer("other-secret", time.Hour)

	token, err := other.Issue("user_abc", "Anna", time.Now())
	require.NoError(t, err)

	_, _, err = issuer.Parse(token)
	assert.ErrorIs(t, err, api.ErrInvalidToken)

	_, _, err = issuer.Parse("not.a.token")
	assert.ErrorIs(t, err, api.ErrInvalidToken)
}

func TestParseRejectsExpiredTokens(t *testing.T) {
	t.Parallel()

	issuer := api.NewTokenIssuer("test-secret", time.Minute)

	token, err := issuer.Issue("user_abc", "Anna", time.Now().Add(-time.Hour))
	require.NoError(t, err)

	_, _, err = issuer.Parse(token)
	assert.ErrorIs(t, err, api.ErrInvalidToken)
}
