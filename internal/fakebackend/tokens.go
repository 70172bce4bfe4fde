package fakebackend

import (
	"errors"
	"fmt"
	"strconv"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/jrsteele09/beetrack-client/token"
)

var errTokenRevoked = errors.New("token revoked")

// accessClaims is what an issued access token carries
type accessClaims struct {
	Username  string
	SessionID *int64
	seq       int64
}

// issueAccessToken signs an HS256 token for username. Remembered logins
// carry the session id so the client can recognise its own session.
func (s *Server) issueAccessToken(username string, sessionID *int64) (string, error) {
	s.lock.Lock()
	s.tokenSeq++
	seq := s.tokenSeq
	s.lock.Unlock()

	now := s.nowFunc()
	claims := jwt.MapClaims{
		"sub": username,
		"iat": now.Unix(),
		"exp": now.Add(s.accessTTL).Unix(),
		"jti": strconv.FormatInt(seq, 10),
	}
	if sessionID != nil {
		claims[token.SessionIDClaim] = *sessionID
	}

	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(s.signingKey)
	if err != nil {
		return "", fmt.Errorf("[fakebackend.issueAccessToken] sign: %w", err)
	}
	return signed, nil
}

// parseAccessToken verifies signature, expiry and revocation
func (s *Server) parseAccessToken(raw string) (*accessClaims, error) {
	parsed, err := jwt.Parse(raw, func(*jwt.Token) (any, error) {
		return s.signingKey, nil
	},
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithTimeFunc(s.nowFunc),
		jwt.WithExpirationRequired(),
		jwt.WithJSONNumber(),
	)
	if err != nil {
		return nil, err
	}

	mapClaims, ok := parsed.Claims.(jwt.MapClaims)
	if !ok {
		return nil, errors.New("error extracting claims")
	}

	username, err := mapClaims.GetSubject()
	if err != nil || username == "" {
		return nil, errors.New("missing subject")
	}

	jti, _ := mapClaims["jti"].(string)
	seq, err := strconv.ParseInt(jti, 10, 64)
	if err != nil {
		return nil, errors.New("missing token id")
	}

	s.lock.Lock()
	revoked := seq <= s.revokedSeq
	s.lock.Unlock()
	if revoked {
		return nil, errTokenRevoked
	}

	claims := &accessClaims{Username: username, seq: seq}
	if sid, ok := token.SessionID(raw); ok {
		claims.SessionID = &sid
	}
	return claims, nil
}

func newRefreshToken() string {
	return uuid.NewString()
}
