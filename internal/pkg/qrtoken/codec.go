package qrtoken

import (
	"bytes"
	"crypto/hmac"
	"crypto/rand"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"math/big"
	"strconv"
	"strings"
	"time"

	"github.com/cmlabs-hris/qr-attendance/internal/domain/attendance"
)

// DefaultValidityWindow matches the auto-refresh cadence of the employee QR screen.
const DefaultValidityWindow = 20 * time.Second

// nonceBytes of entropy, rendered base-36.
const nonceBytes = 8

var (
	ErrExpired      = errors.New("scan token expired")
	ErrBadSignature = errors.New("scan token signature mismatch")
	ErrMalformed    = errors.New("scan token malformed")
	ErrReplayed     = errors.New("scan token already used")
)

// Token is the wire form of a scan token:
// {"uid":"...","mode":"check-in","ts":1700000000,"nonce":"...","sig":"<hex>"}
type Token struct {
	EmployeeID string          `json:"uid"`
	Mode       attendance.Mode `json:"mode"`
	IssuedAt   int64           `json:"ts"`
	Nonce      string          `json:"nonce"`
	Signature  string          `json:"sig"`
}

// Claims is what a verified token asserts.
type Claims struct {
	EmployeeID string
	Mode       attendance.Mode
	IssuedAt   time.Time
	Nonce      string
}

type Codec interface {
	Issue(employeeID string, mode attendance.Mode, now time.Time) (Token, error)
	Verify(token Token, now time.Time) (Claims, error)
	Encode(token Token) (string, error)
	Decode(payload string) (Token, error)
	ValidityWindow() time.Duration
}

type HMACCodec struct {
	secret []byte
	window time.Duration
	rand   io.Reader
}

type Option func(*HMACCodec)

// WithValidityWindow overrides the 20 second default.
func WithValidityWindow(window time.Duration) Option {
	return func(c *HMACCodec) {
		if window > 0 {
			c.window = window
		}
	}
}

// WithRandom replaces the nonce entropy source.
func WithRandom(r io.Reader) Option {
	return func(c *HMACCodec) {
		if r != nil {
			c.rand = r
		}
	}
}

func NewHMACCodec(secret string, opts ...Option) *HMACCodec {
	c := &HMACCodec{
		secret: []byte(secret),
		window: DefaultValidityWindow,
		rand:   rand.Reader,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

func (c *HMACCodec) ValidityWindow() time.Duration {
	return c.window
}

// Issue builds and signs a token for employeeID.
func (c *HMACCodec) Issue(employeeID string, mode attendance.Mode, now time.Time) (Token, error) {
	if strings.TrimSpace(employeeID) == "" {
		return Token{}, fmt.Errorf("%w: empty employee id", ErrMalformed)
	}
	if _, err := attendance.ParseMode(string(mode)); err != nil {
		return Token{}, fmt.Errorf("%w: %v", ErrMalformed, err)
	}

	nonce, err := c.nonce()
	if err != nil {
		return Token{}, fmt.Errorf("failed to generate nonce: %w", err)
	}

	token := Token{
		EmployeeID: employeeID,
		Mode:       mode,
		IssuedAt:   now.Unix(),
		Nonce:      nonce,
	}
	token.Signature = hex.EncodeToString(c.sign(token))
	return token, nil
}

// Verify checks shape, expiry and signature, in that order. It does not track nonces.
func (c *HMACCodec) Verify(token Token, now time.Time) (Claims, error) {
	if token.EmployeeID == "" || token.Nonce == "" || token.Signature == "" || token.IssuedAt <= 0 {
		return Claims{}, fmt.Errorf("%w: missing required field", ErrMalformed)
	}
	if strings.Contains(token.EmployeeID, "|") || strings.Contains(token.Nonce, "|") {
		return Claims{}, fmt.Errorf("%w: reserved separator in field", ErrMalformed)
	}
	if _, err := attendance.ParseMode(string(token.Mode)); err != nil {
		return Claims{}, fmt.Errorf("%w: %v", ErrMalformed, err)
	}
	given, err := hex.DecodeString(token.Signature)
	if err != nil || len(given) != sha256.Size {
		return Claims{}, fmt.Errorf("%w: signature is not a sha256 hex digest", ErrMalformed)
	}

	if now.Unix()-token.IssuedAt > int64(c.window/time.Second) {
		return Claims{}, ErrExpired
	}

	if !hmac.Equal(given, c.sign(token)) {
		return Claims{}, ErrBadSignature
	}

	return Claims{
		EmployeeID: token.EmployeeID,
		Mode:       token.Mode,
		IssuedAt:   time.Unix(token.IssuedAt, 0),
		Nonce:      token.Nonce,
	}, nil
}

// Encode renders the token as the JSON text carried by the QR code.
func (c *HMACCodec) Encode(token Token) (string, error) {
	b, err := json.Marshal(token)
	if err != nil {
		return "", fmt.Errorf("failed to encode scan token: %w", err)
	}
	return string(b), nil
}

// Decode parses a QR payload. Unknown fields and wrongly typed fields are Malformed.
func (c *HMACCodec) Decode(payload string) (Token, error) {
	dec := json.NewDecoder(strings.NewReader(payload))
	dec.DisallowUnknownFields()

	var token Token
	if err := dec.Decode(&token); err != nil {
		return Token{}, fmt.Errorf("%w: %v", ErrMalformed, err)
	}
	if dec.More() {
		return Token{}, fmt.Errorf("%w: trailing data", ErrMalformed)
	}
	return token, nil
}

// CanonicalString is the signed message "{uid}|{mode}|{ts}|{nonce}".
func CanonicalString(token Token) string {
	var b bytes.Buffer
	b.WriteString(token.EmployeeID)
	b.WriteByte('|')
	b.WriteString(string(token.Mode))
	b.WriteByte('|')
	b.WriteString(strconv.FormatInt(token.IssuedAt, 10))
	b.WriteByte('|')
	b.WriteString(token.Nonce)
	return b.String()
}

func (c *HMACCodec) sign(token Token) []byte {
	mac := hmac.New(sha256.New, c.secret)
	mac.Write([]byte(CanonicalString(token)))
	return mac.Sum(nil)
}

func (c *HMACCodec) nonce() (string, error) {
	buf := make([]byte, nonceBytes)
	if _, err := io.ReadFull(c.rand, buf); err != nil {
		return "", err
	}
	return new(big.Int).SetBytes(buf).Text(36), nil
}
