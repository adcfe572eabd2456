package sharelink

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/base64"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
	"time"
)

// Claims describe the export a share link grants access to.
type Claims struct {
	ID       string `json:"id"`
	Day      string `json:"day"`
	Building string `json:"building"`
	Format   string `json:"format"`
}

// Signer creates and validates signed share tokens.
type Signer struct {
	secret []byte
	ttl    time.Duration
	now    func() time.Time
}

// NewSigner constructs a signer with the provided secret and TTL.
func NewSigner(secret string, ttl time.Duration) *Signer {
	if ttl <= 0 {
		ttl = 7 * 24 * time.Hour
	}
	return &Signer{
		secret: []byte(secret),
		ttl:    ttl,
		now:    time.Now,
	}
}

// TTL returns how long issued tokens stay valid.
func (s *Signer) TTL() time.Duration {
	return s.ttl
}

// Sign returns a token of the form id.expiry.payload.signature.
func (s *Signer) Sign(claims Claims) (string, time.Time, error) {
	if claims.ID == "" || claims.Format == "" {
		return "", time.Time{}, fmt.Errorf("id and format required")
	}
	if len(s.secret) == 0 {
		return "", time.Time{}, fmt.Errorf("signing secret missing")
	}
	raw, err := json.Marshal(claims)
	if err != nil {
		return "", time.Time{}, fmt.Errorf("encode claims: %w", err)
	}
	expiresAt := s.now().Add(s.ttl).Truncate(time.Second)
	expiry := strconv.FormatInt(expiresAt.Unix(), 10)
	payload := base64.RawURLEncoding.EncodeToString(raw)
	token := strings.Join([]string{claims.ID, expiry, payload, s.sign(claims.ID, expiry, payload)}, ".")
	return token, expiresAt, nil
}

// Verify validates a token and returns the embedded claims.
func (s *Signer) Verify(token string) (Claims, time.Time, error) {
	parts := strings.Split(token, ".")
	if len(parts) != 4 {
		return Claims{}, time.Time{}, fmt.Errorf("invalid token format")
	}
	id, expiry, payload, signature := parts[0], parts[1], parts[2], parts[3]

	if !hmac.Equal([]byte(s.sign(id, expiry, payload)), []byte(signature)) {
		return Claims{}, time.Time{}, fmt.Errorf("invalid token signature")
	}
	expUnix, err := strconv.ParseInt(expiry, 10, 64)
	if err != nil {
		return Claims{}, time.Time{}, fmt.Errorf("invalid timestamp")
	}
	expiresAt := time.Unix(expUnix, 0)
	if s.now().After(expiresAt) {
		return Claims{}, time.Time{}, fmt.Errorf("token expired")
	}

	raw, err := base64.RawURLEncoding.DecodeString(payload)
	if err != nil {
		return Claims{}, time.Time{}, fmt.Errorf("decode payload: %w", err)
	}
	var claims Claims
	if err := json.Unmarshal(raw, &claims); err != nil {
		return Claims{}, time.Time{}, fmt.Errorf("decode claims: %w", err)
	}
	if claims.ID != id {
		return Claims{}, time.Time{}, fmt.Errorf("token id mismatch")
	}
	return claims, expiresAt, nil
}

func (s *Signer) sign(id, expiry, payload string) string {
	mac := hmac.New(sha256.New, s.secret)
	_, _ = mac.Write([]byte(id + "|" + expiry + "|" + payload))
	return hex.EncodeToString(mac.Sum(nil))
}
