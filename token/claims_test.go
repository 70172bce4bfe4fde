package token_test

import (
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/jrsteele09/beetrack-client/token"
	"github.com/stretchr/testify/require"
)

func signed(t *testing.T, claims jwt.MapClaims) string {
	t.Helper()
	raw, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte("not-known-to-the-client"))
	require.NoError(t, err)
	return raw
}

func TestSessionID(t *testing.T) {
	exp := time.Now().Add(time.Hour).Unix()

	tests := []struct {
		name   string
		raw    string
		wantID int64
		wantOK bool
	}{
		{
			name:   "numeric claim",
			raw:    signed(t, jwt.MapClaims{"sub": "alice", "session_id": 42, "exp": exp}),
			wantID: 42,
			wantOK: true,
		},
		{
			name:   "string claim",
			raw:    signed(t, jwt.MapClaims{"sub": "alice", "session_id": "7"}),
			wantID: 7,
			wantOK: true,
		},
		{
			name: "no session claim",
			raw:  signed(t, jwt.MapClaims{"sub": "alice", "exp": exp}),
		},
		{
			name: "non numeric claim",
			raw:  signed(t, jwt.MapClaims{"session_id": "abc"}),
		},
		{
			name: "garbage",
			raw:  "not.a.jwt",
		},
		{
			name: "empty",
			raw:  "",
		},
		{
			name: "two segments",
			raw:  "eyJhbGciOiJIUzI1NiJ9.eyJzZXNzaW9uX2lkIjoxfQ",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			id, ok := token.SessionID(tt.raw)
			require.Equal(t, tt.wantOK, ok)
			require.Equal(t, tt.wantID, id)
		})
	}
}

// TestParseClaims_ExpiredTokenStillDecodes checks that decoding is not validation
func TestParseClaims_ExpiredTokenStillDecodes(t *testing.T) {
	exp := time.Now().Add(-time.Hour).Truncate(time.Second)
	raw := signed(t, jwt.MapClaims{"sub": "bob", "session_id": 3, "exp": exp.Unix()})

	c, err := token.ParseClaims(raw)
	require.NoError(t, err)
	require.Equal(t, "bob", c.Subject)
	require.Equal(t, int64(3), c.SessionID)
	require.True(t, c.HasSID)
	require.True(t, exp.Equal(c.ExpiresAt))
}

func TestPairOAuth2(t *testing.T) {
	exp := time.Now().Add(30 * time.Minute).Truncate(time.Second)
	raw := signed(t, jwt.MapClaims{"sub": "alice", "exp": exp.Unix()})

	tok := token.Pair{AccessToken: raw, TokenType: "bearer"}.OAuth2()

	require.Equal(t, raw, tok.AccessToken)
	require.Equal(t, "Bearer", tok.Type())
	require.True(t, exp.Equal(tok.Expiry))
	require.True(t, tok.Valid())
}

func TestBearerDefaultsTokenType(t *testing.T) {
	tok := token.Bearer("opaque", "", "")

	require.Equal(t, "Bearer", tok.Type())
	require.True(t, tok.Expiry.IsZero())
}
