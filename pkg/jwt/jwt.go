// Package jwt reads claims from access tokens issued by the booking backend.
// Signatures are not verified here; the backend remains the authority.
package jwt

import (
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// FlexID accepts a claim encoded either as a JSON number or a string
type FlexID string

// UnmarshalJSON implements json.Unmarshaler
func (id *FlexID) UnmarshalJSON(data []byte) error {
	s := strings.TrimSpace(string(data))
	if s == "null" {
		*id = ""
		return nil
	}
	if strings.HasPrefix(s, `"`) {
		var str string
		if err := json.Unmarshal(data, &str); err != nil {
			return err
		}
		*id = FlexID(strings.TrimSpace(str))
		return nil
	}
	var n json.Number
	if err := json.Unmarshal(data, &n); err != nil {
		return fmt.Errorf("invalid id claim: %s", s)
	}
	if i, err := n.Int64(); err == nil {
		*id = FlexID(strconv.FormatInt(i, 10))
		return nil
	}
	*id = FlexID(n.String())
	return nil
}

// Claims represents the claims the client reads from an access token
type Claims struct {
	UserID FlexID `json:"userId,omitempty"`
	Name   string `json:"name,omitempty"`
	Email  string `json:"email,omitempty"`
	Role   string `json:"role,omitempty"`
	jwt.RegisteredClaims
}

// Identity returns the user id claim, falling back to the subject
func (c *Claims) Identity() string {
	if c.UserID != "" {
		return string(c.UserID)
	}
	return c.Subject
}

// Inspector decodes tokens without verifying them
type Inspector struct {
	parser *jwt.Parser
	now    func() time.Time
}

// NewInspector creates a new Inspector
func NewInspector() *Inspector {
	return &Inspector{parser: jwt.NewParser(), now: time.Now}
}

// ExtractClaims extracts claims from a token without validation
func (i *Inspector) ExtractClaims(tokenString string) (*Claims, error) {
	token, _, err := i.parser.ParseUnverified(tokenString, &Claims{})
	if err != nil {
		return nil, fmt.Errorf("failed to parse token: %w", err)
	}

	claims, ok := token.Claims.(*Claims)
	if !ok {
		return nil, fmt.Errorf("invalid token claims")
	}

	return claims, nil
}

// IsTokenExpired checks if a token is expired. Tokens that cannot be read
// count as expired; tokens without an exp claim do not.
func (i *Inspector) IsTokenExpired(tokenString string) bool {
	claims, err := i.ExtractClaims(tokenString)
	if err != nil {
		return true
	}

	if claims.ExpiresAt == nil {
		return false
	}

	return !claims.ExpiresAt.Time.After(i.now())
}

// ExpiresWithin reports whether the token expires inside the window
func (i *Inspector) ExpiresWithin(tokenString string, window time.Duration) bool {
	expiry, err := i.GetTokenExpiry(tokenString)
	if err != nil {
		return false
	}
	return expiry.Before(i.now().Add(window))
}

// GetTokenExpiry returns the expiry time of a token
func (i *Inspector) GetTokenExpiry(tokenString string) (time.Time, error) {
	claims, err := i.ExtractClaims(tokenString)
	if err != nil {
		return time.Time{}, err
	}

	if claims.ExpiresAt == nil {
		return time.Time{}, fmt.Errorf("token has no expiry time")
	}

	return claims.ExpiresAt.Time, nil
}
