package jwt

import (
	"context"
	"testing"

	"github.com/cmlabs-hris/qr-attendance/internal/domain/auth"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newService() Service {
	return NewJWTService("test-secret", "720h", "12h")
}

func TestJWTService_StationToken(t *testing.T) {
	svc := newService()

	tokenString, expiresAt, err := svc.GenerateStationToken("gate-1")
	require.NoError(t, err)
	assert.NotZero(t, expiresAt)

	token, err := svc.JWTAuth().Decode(tokenString)
	require.NoError(t, err)

	principal, err := PrincipalFromToken(context.Background(), token)
	require.NoError(t, err)
	assert.Equal(t, auth.TokenTypeStation, principal.Type)
	assert.Equal(t, "gate-1", principal.StationID)
	assert.Empty(t, principal.EmployeeID)

	_, _, err = svc.GenerateStationToken("")
	assert.Error(t, err)
}

func TestJWTService_IssuerToken(t *testing.T) {
	svc := newService()

	tokenString, _, err := svc.GenerateIssuerToken("emp-1")
	require.NoError(t, err)

	token, err := svc.JWTAuth().Decode(tokenString)
	require.NoError(t, err)

	principal, err := PrincipalFromToken(context.Background(), token)
	require.NoError(t, err)
	assert.Equal(t, auth.TokenTypeIssuer, principal.Type)
	assert.Equal(t, "emp-1", principal.EmployeeID)
}

func TestJWTService_StreamToken(t *testing.T) {
	svc := newService()

	tokenString, expiresIn, err := svc.GenerateStreamToken(auth.Principal{StationID: "gate-1"})
	require.NoError(t, err)
	assert.Equal(t, 300, expiresIn)

	subject, err := svc.ValidateStreamToken(tokenString)
	require.NoError(t, err)
	assert.Equal(t, auth.TokenTypeStream, subject.Type)
	assert.Equal(t, "gate-1", subject.StationID)
	assert.Empty(t, subject.EmployeeID)

	stationToken, _, err := svc.GenerateStationToken("gate-1")
	require.NoError(t, err)
	_, err = svc.ValidateStreamToken(stationToken)
	assert.ErrorIs(t, err, auth.ErrInvalidToken)

	_, err = NewJWTService("other-secret", "1h", "1h").ValidateStreamToken(tokenString)
	assert.Error(t, err)
}

func TestJWTService_EmployeeStreamToken(t *testing.T) {
	svc := newService()

	tokenString, _, err := svc.GenerateStreamToken(auth.Principal{EmployeeID: "emp-1"})
	require.NoError(t, err)

	subject, err := svc.ValidateStreamToken(tokenString)
	require.NoError(t, err)
	assert.Equal(t, "emp-1", subject.EmployeeID)
	assert.Empty(t, subject.StationID)
}

func TestJWTService_StreamTokenNeedsOneSubject(t *testing.T) {
	svc := newService()

	_, _, err := svc.GenerateStreamToken(auth.Principal{})
	assert.Error(t, err)

	_, _, err = svc.GenerateStreamToken(auth.Principal{StationID: "gate-1", EmployeeID: "emp-1"})
	assert.Error(t, err)
}

func TestJWTService_InvalidExpiration(t *testing.T) {
	svc := NewJWTService("test-secret", "forever", "12h")
	_, _, err := svc.GenerateStationToken("gate-1")
	assert.Error(t, err)
}
