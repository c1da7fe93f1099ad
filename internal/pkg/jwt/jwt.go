package jwt

import (
	"context"
	"fmt"
	"time"

	"github.com/cmlabs-hris/qr-attendance/internal/domain/auth"
	"github.com/go-chi/jwtauth/v5"
	"github.com/lestrrat-go/jwx/v2/jwt"
)

// streamTokenTTL bounds how long a stream token may be used to open an event stream.
const streamTokenTTL = 5 * time.Minute

type Service interface {
	GenerateStationToken(stationID string) (token string, expiresAt int64, err error)
	GenerateIssuerToken(employeeID string) (token string, expiresAt int64, err error)
	GenerateStreamToken(subject auth.Principal) (token string, expiresIn int, err error)
	ValidateStreamToken(tokenString string) (auth.Principal, error)
	JWTAuth() *jwtauth.JWTAuth
}

type JWTService struct {
	secretKey                  string
	stationTokenExpirationTime string
	issuerTokenExpirationTime  string
	tokenAuth                  *jwtauth.JWTAuth
	now                        func() time.Time
}

func (j *JWTService) JWTAuth() *jwtauth.JWTAuth {
	return j.tokenAuth
}

func NewJWTService(secretKey string, stationTokenExpirationTime string, issuerTokenExpirationTime string) Service {
	return &JWTService{
		secretKey:                  secretKey,
		stationTokenExpirationTime: stationTokenExpirationTime,
		issuerTokenExpirationTime:  issuerTokenExpirationTime,
		tokenAuth:                  jwtauth.New("HS256", []byte(secretKey), nil, jwt.WithAcceptableSkew(30*time.Second)),
		now:                        time.Now,
	}
}

func (j *JWTService) GenerateStationToken(stationID string) (token string, expiresAt int64, err error) {
	if stationID == "" {
		return "", 0, fmt.Errorf("station id is required")
	}
	return j.generate(j.stationTokenExpirationTime, map[string]interface{}{
		auth.ClaimStationID: stationID,
		auth.ClaimType:      string(auth.TokenTypeStation),
	})
}

func (j *JWTService) GenerateIssuerToken(employeeID string) (token string, expiresAt int64, err error) {
	if employeeID == "" {
		return "", 0, fmt.Errorf("employee id is required")
	}
	return j.generate(j.issuerTokenExpirationTime, map[string]interface{}{
		auth.ClaimEmployeeID: employeeID,
		auth.ClaimType:       string(auth.TokenTypeIssuer),
	})
}

func (j *JWTService) generate(expiration string, claims map[string]interface{}) (string, int64, error) {
	expDuration, err := time.ParseDuration(expiration)
	if err != nil {
		return "", 0, err
	}
	expiresAt := j.now().Add(expDuration).Unix()
	claims["exp"] = expiresAt

	_, tokenString, err := j.tokenAuth.Encode(claims)
	return tokenString, expiresAt, err
}

// GenerateStreamToken generates a short-lived token for the event stream of one station
// or one employee; subject must name exactly one of them.
// EventSource cannot send headers, so the token travels in the query string.
func (j *JWTService) GenerateStreamToken(subject auth.Principal) (token string, expiresIn int, err error) {
	if (subject.StationID == "") == (subject.EmployeeID == "") {
		return "", 0, fmt.Errorf("stream token needs exactly one of station id or employee id")
	}
	expiresIn = int(streamTokenTTL / time.Second)
	expiresAt := j.now().Add(streamTokenTTL).Unix()

	claims := map[string]interface{}{
		auth.ClaimType: string(auth.TokenTypeStream),
		"exp":          expiresAt,
	}
	if subject.StationID != "" {
		claims[auth.ClaimStationID] = subject.StationID
	} else {
		claims[auth.ClaimEmployeeID] = subject.EmployeeID
	}

	_, tokenString, err := j.tokenAuth.Encode(claims)
	if err != nil {
		return "", 0, err
	}

	return tokenString, expiresIn, nil
}

// ValidateStreamToken validates a stream token and returns the stream it opens
func (j *JWTService) ValidateStreamToken(tokenString string) (auth.Principal, error) {
	token, err := j.tokenAuth.Decode(tokenString)
	if err != nil {
		return auth.Principal{}, err
	}

	principal, err := PrincipalFromToken(context.Background(), token)
	if err != nil {
		return auth.Principal{}, err
	}
	if principal.Type != auth.TokenTypeStream || (principal.StationID == "") == (principal.EmployeeID == "") {
		return auth.Principal{}, auth.ErrInvalidToken
	}

	return principal, nil
}

// PrincipalFromToken reads the caller identity from a decoded token.
func PrincipalFromToken(ctx context.Context, token jwt.Token) (auth.Principal, error) {
	if token == nil {
		return auth.Principal{}, auth.ErrInvalidToken
	}
	claims, err := token.AsMap(ctx)
	if err != nil {
		return auth.Principal{}, auth.ErrInvalidToken
	}

	tokenType, ok := claims[auth.ClaimType].(string)
	if !ok {
		return auth.Principal{}, auth.ErrInvalidToken
	}
	stationID, _ := claims[auth.ClaimStationID].(string)
	employeeID, _ := claims[auth.ClaimEmployeeID].(string)

	return auth.Principal{
		Type:       auth.TokenType(tokenType),
		StationID:  stationID,
		EmployeeID: employeeID,
	}, nil
}

// PrincipalFromContext reads the caller identity placed in ctx by jwtauth.Verifier.
func PrincipalFromContext(ctx context.Context) (auth.Principal, error) {
	token, _, err := jwtauth.FromContext(ctx)
	if err != nil {
		return auth.Principal{}, fmt.Errorf("%w: %v", auth.ErrInvalidToken, err)
	}
	return PrincipalFromToken(ctx, token)
}
