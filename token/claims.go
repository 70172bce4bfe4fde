package token

import (
	"encoding/json"
	"errors"
	"strconv"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// SessionIDClaim is the claim carrying the server-side session id
const SessionIDClaim = "session_id"

// Claims is the subset of the access token payload the client looks at.
// None of it is verified client-side: it is for display only and must never
// drive an authorization decision.
type Claims struct {
	Subject   string
	SessionID int64
	HasSID    bool
	ExpiresAt time.Time
}

// ParseClaims decodes the payload of a JWT without verifying its signature
func ParseClaims(raw string) (Claims, error) {
	if strings.TrimSpace(raw) == "" {
		return Claims{}, errors.New("empty token")
	}

	parsed, _, err := jwt.NewParser(jwt.WithJSONNumber()).ParseUnverified(raw, jwt.MapClaims{})
	if err != nil {
		return Claims{}, err
	}

	mapClaims, ok := parsed.Claims.(jwt.MapClaims)
	if !ok {
		return Claims{}, errors.New("error extracting claims")
	}

	var c Claims
	c.Subject, _ = mapClaims["sub"].(string)
	c.SessionID, c.HasSID = toInt64(mapClaims[SessionIDClaim])
	if exp, ok := toInt64(mapClaims["exp"]); ok {
		c.ExpiresAt = time.Unix(exp, 0)
	}
	return c, nil
}

// SessionID returns the session id embedded in the access token. Malformed
// tokens or tokens without the claim report false ("unknown").
func SessionID(raw string) (int64, bool) {
	c, err := ParseClaims(raw)
	if err != nil {
		return 0, false
	}
	return c.SessionID, c.HasSID
}

// Expiry returns the exp claim, or the zero time when it is absent
func Expiry(raw string) time.Time {
	c, err := ParseClaims(raw)
	if err != nil {
		return time.Time{}
	}
	return c.ExpiresAt
}

func toInt64(v any) (int64, bool) {
	switch n := v.(type) {
	case json.Number:
		if i, err := n.Int64(); err == nil {
			return i, true
		}
		if f, err := n.Float64(); err == nil {
			return int64(f), true
		}
	case float64:
		return int64(n), true
	case string:
		if i, err := strconv.ParseInt(strings.TrimSpace(n), 10, 64); err == nil {
			return i, true
		}
	}
	return 0, false
}
