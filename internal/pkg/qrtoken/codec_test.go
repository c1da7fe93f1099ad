package qrtoken

import (
	"bytes"
	"encoding/hex"
	"strings"
	"testing"
	"time"

	"github.com/cmlabs-hris/qr-attendance/internal/domain/attendance"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testSecret = "test-qr-secret"

var testNow = time.Date(2025, 11, 3, 8, 0, 0, 0, time.UTC)

func TestHMACCodec_IssueAndVerify(t *testing.T) {
	codec := NewHMACCodec(testSecret)

	token, err := codec.Issue("emp-1", attendance.ModeCheckIn, testNow)
	require.NoError(t, err)
	assert.Equal(t, "emp-1", token.EmployeeID)
	assert.Equal(t, testNow.Unix(), token.IssuedAt)
	assert.NotEmpty(t, token.Nonce)
	assert.Len(t, token.Signature, 64)

	claims, err := codec.Verify(token, testNow.Add(5*time.Second))
	require.NoError(t, err)
	assert.Equal(t, "emp-1", claims.EmployeeID)
	assert.Equal(t, attendance.ModeCheckIn, claims.Mode)
	assert.Equal(t, token.Nonce, claims.Nonce)
}

func TestHMACCodec_Verify_ExpiryBoundary(t *testing.T) {
	codec := NewHMACCodec(testSecret)
	token, err := codec.Issue("emp-1", attendance.ModeCheckOut, testNow)
	require.NoError(t, err)

	_, err = codec.Verify(token, testNow.Add(20*time.Second))
	assert.NoError(t, err, "exactly 20s old is still valid")

	_, err = codec.Verify(token, testNow.Add(21*time.Second))
	assert.ErrorIs(t, err, ErrExpired)
}

func TestHMACCodec_Verify_CustomWindow(t *testing.T) {
	codec := NewHMACCodec(testSecret, WithValidityWindow(5*time.Second))
	token, err := codec.Issue("emp-1", attendance.ModeCheckIn, testNow)
	require.NoError(t, err)

	_, err = codec.Verify(token, testNow.Add(6*time.Second))
	assert.ErrorIs(t, err, ErrExpired)
	assert.Equal(t, 5*time.Second, codec.ValidityWindow())
}

func TestHMACCodec_Verify_ExpiredWinsOverBadSignature(t *testing.T) {
	codec := NewHMACCodec(testSecret)
	token, err := codec.Issue("emp-1", attendance.ModeCheckIn, testNow)
	require.NoError(t, err)
	token.EmployeeID = "emp-2"

	_, err = codec.Verify(token, testNow.Add(time.Minute))
	assert.ErrorIs(t, err, ErrExpired)
}

func TestHMACCodec_Verify_WrongSecret(t *testing.T) {
	token, err := NewHMACCodec(testSecret).Issue("emp-1", attendance.ModeCheckIn, testNow)
	require.NoError(t, err)

	_, err = NewHMACCodec("another-secret").Verify(token, testNow)
	assert.ErrorIs(t, err, ErrBadSignature)
}

func TestHMACCodec_Verify_SingleBitMutations(t *testing.T) {
	codec := NewHMACCodec(testSecret)
	token, err := codec.Issue("emp-1", attendance.ModeCheckIn, testNow)
	require.NoError(t, err)

	flip := func(s string, i int) string {
		b := []byte(s)
		b[i] ^= 0x01
		return string(b)
	}

	for i := range len(token.EmployeeID) {
		mutated := token
		mutated.EmployeeID = flip(token.EmployeeID, i)
		_, err := codec.Verify(mutated, testNow)
		assert.Error(t, err, "uid byte %d", i)
	}
	for i := range len(token.Nonce) {
		mutated := token
		mutated.Nonce = flip(token.Nonce, i)
		_, err := codec.Verify(mutated, testNow)
		assert.Error(t, err, "nonce byte %d", i)
	}
	for bit := range 8 {
		mutated := token
		mutated.IssuedAt = token.IssuedAt ^ (1 << bit)
		if testNow.Unix()-mutated.IssuedAt > 20 {
			continue
		}
		_, err := codec.Verify(mutated, testNow)
		assert.ErrorIs(t, err, ErrBadSignature, "ts bit %d", bit)
	}

	sig, err := hex.DecodeString(token.Signature)
	require.NoError(t, err)
	for i := range sig {
		mutated := token
		b := bytes.Clone(sig)
		b[i] ^= 0x80
		mutated.Signature = hex.EncodeToString(b)
		_, err := codec.Verify(mutated, testNow)
		assert.ErrorIs(t, err, ErrBadSignature, "sig byte %d", i)
	}

	mutated := token
	mutated.Mode = attendance.ModeCheckOut
	_, err = codec.Verify(mutated, testNow)
	assert.ErrorIs(t, err, ErrBadSignature)
}

func TestHMACCodec_Verify_Malformed(t *testing.T) {
	codec := NewHMACCodec(testSecret)
	valid, err := codec.Issue("emp-1", attendance.ModeCheckIn, testNow)
	require.NoError(t, err)

	cases := map[string]func(tk *Token){
		"missing uid":       func(tk *Token) { tk.EmployeeID = "" },
		"missing nonce":     func(tk *Token) { tk.Nonce = "" },
		"missing signature": func(tk *Token) { tk.Signature = "" },
		"zero ts":           func(tk *Token) { tk.IssuedAt = 0 },
		"unknown mode":      func(tk *Token) { tk.Mode = "lunch" },
		"non-hex signature": func(tk *Token) { tk.Signature = strings.Repeat("z", 64) },
		"short signature":   func(tk *Token) { tk.Signature = "abcd" },
		"separator in uid":  func(tk *Token) { tk.EmployeeID = "emp|1" },
	}
	for name, mutate := range cases {
		t.Run(name, func(t *testing.T) {
			tk := valid
			mutate(&tk)
			_, err := codec.Verify(tk, testNow)
			assert.ErrorIs(t, err, ErrMalformed)
		})
	}
}

func TestHMACCodec_EncodeDecode(t *testing.T) {
	codec := NewHMACCodec(testSecret)
	token, err := codec.Issue("emp-1", attendance.ModeCheckOut, testNow)
	require.NoError(t, err)

	payload, err := codec.Encode(token)
	require.NoError(t, err)
	assert.Contains(t, payload, `"uid":"emp-1"`)
	assert.Contains(t, payload, `"mode":"check-out"`)
	assert.Contains(t, payload, `"sig":"`)

	decoded, err := codec.Decode(payload)
	require.NoError(t, err)
	assert.Equal(t, token, decoded)

	_, err = codec.Verify(decoded, testNow)
	assert.NoError(t, err)
}

func TestHMACCodec_Decode_Malformed(t *testing.T) {
	codec := NewHMACCodec(testSecret)
	payloads := []string{
		"",
		"not json",
		"4f6d2a51-static-code",
		`{"uid":"emp-1","mode":"check-in","ts":"1700000000","nonce":"a","sig":"b"}`,
		`{"uid":"emp-1","mode":"check-in","ts":1.5,"nonce":"a","sig":"b"}`,
		`{"uid":"emp-1","mode":"check-in","ts":1,"nonce":"a","sig":"b","extra":true}`,
		`{"uid":"emp-1","mode":"check-in","ts":1,"nonce":"a","sig":"b"} {}`,
	}
	for _, p := range payloads {
		_, err := codec.Decode(p)
		assert.ErrorIs(t, err, ErrMalformed, "payload %q", p)
	}
}

func TestCanonicalString(t *testing.T) {
	got := CanonicalString(Token{EmployeeID: "emp-1", Mode: attendance.ModeCheckIn, IssuedAt: 1700000000, Nonce: "k3x9"})
	assert.Equal(t, "emp-1|check-in|1700000000|k3x9", got)
}

func TestHMACCodec_NonceIsRandom(t *testing.T) {
	codec := NewHMACCodec(testSecret)
	seen := make(map[string]bool)
	for range 100 {
		token, err := codec.Issue("emp-1", attendance.ModeCheckIn, testNow)
		require.NoError(t, err)
		assert.False(t, seen[token.Nonce], "nonce repeated")
		seen[token.Nonce] = true
	}
}

func TestReplayGuard(t *testing.T) {
	guard := NewReplayGuard(20 * time.Second)
	claims := Claims{EmployeeID: "emp-1", Nonce: "abc", IssuedAt: testNow}

	require.NoError(t, guard.Consume(claims, testNow))
	assert.ErrorIs(t, guard.Consume(claims, testNow.Add(10*time.Second)), ErrReplayed)

	other := claims
	other.EmployeeID = "emp-2"
	assert.NoError(t, guard.Consume(other, testNow))

	assert.Equal(t, 0, guard.Purge(testNow.Add(5*time.Second)))
	assert.Equal(t, 2, guard.Purge(testNow.Add(time.Minute)))
	assert.Equal(t, 0, guard.Len())
}

func TestReplayGuard_Release(t *testing.T) {
	guard := NewReplayGuard(20 * time.Second)
	claims := Claims{EmployeeID: "emp-1", Nonce: "abc", IssuedAt: testNow}

	require.NoError(t, guard.Consume(claims, testNow))
	guard.Release(claims)
	assert.NoError(t, guard.Consume(claims, testNow.Add(time.Second)))
}
