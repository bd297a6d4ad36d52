package auth_test

import (
	"testing"
	"time"

	"github.com/rpggio/fieldwork/internal/auth"
	"github.com/stretchr/testify/require"
)

var cfg = auth.Config{Secret: "test-secret", Issuer: "fieldwork-test", TTL: time.Hour}

func TestIssueAndParse(t *testing.T) {
	token, err := auth.Issue(cfg, "r1", time.Now())
	require.NoError(t, err)

	claims, err := auth.Parse(token, cfg)
	require.NoError(t, err)
	require.Equal(t, "r1", claims.RangerID)
	require.WithinDuration(t, time.Now().Add(time.Hour), claims.ExpiresAt, time.Minute)
}

func TestParse_Rejects(t *testing.T) {
	_, err := auth.Parse("  ", cfg)
	require.ErrorIs(t, err, auth.ErrMissingToken)

	other, err := auth.Issue(auth.Config{Secret: "other", Issuer: cfg.Issuer}, "r1", time.Now())
	require.NoError(t, err)
	_, err = auth.Parse(other, cfg)
	require.ErrorIs(t, err, auth.ErrInvalidToken)

	wrongIssuer, err := auth.Issue(auth.Config{Secret: cfg.Secret, Issuer: "someone-else"}, "r1", time.Now())
	require.NoError(t, err)
	_, err = auth.Parse(wrongIssuer, cfg)
	require.ErrorIs(t, err, auth.ErrInvalidToken)

	expired, err := auth.Issue(cfg, "r1", time.Now().Add(-2*time.Hour))
	require.NoError(t, err)
	_, err = auth.Parse(expired, cfg)
	require.ErrorIs(t, err, auth.ErrInvalidToken)

	_, err = auth.Issue(cfg, "", time.Now())
	require.Error(t, err)
}

func TestSession(t *testing.T) {
	token, err := auth.Issue(cfg, "ranger-7", time.Now())
	require.NoError(t, err)

	s := auth.NewSession()
	require.Empty(t, s.Token())

	rangerID, err := s.SignIn(token)
	require.NoError(t, err)
	require.Equal(t, "ranger-7", rangerID)
	require.Equal(t, token, s.Token())
	require.Equal(t, "ranger-7", s.RangerID())

	_, err = s.SignIn("not-a-jwt")
	require.ErrorIs(t, err, auth.ErrInvalidToken)
	require.Equal(t, "ranger-7", s.RangerID())

	s.SignOut()
	require.Empty(t, s.Token())
	require.Empty(t, s.RangerID())
}
