// Command tokengen mints station and issuer bearer tokens with the server's JWT secret.
//
//	tokengen -type station -id GATE-1
//	tokengen -type issuer -id EMP-0001
package main

import (
	"flag"
	"fmt"
	"os"
	"time"

	"github.com/cmlabs-hris/qr-attendance/internal/config"
	"github.com/cmlabs-hris/qr-attendance/internal/domain/auth"
	"github.com/cmlabs-hris/qr-attendance/internal/pkg/jwt"
)

func main() {
	tokenType := flag.String("type", string(auth.TokenTypeStation), "token type: station or issuer")
	id := flag.String("id", "", "station id or employee id the token is bound to")
	flag.Parse()

	if *id == "" {
		fmt.Fprintln(os.Stderr, "tokengen: -id is required")
		flag.Usage()
		os.Exit(2)
	}

	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintln(os.Stderr, "Error loading config:", err)
		os.Exit(1)
	}
	JWTService := jwt.NewJWTService(cfg.JWT.Secret, cfg.JWT.StationExpiration, cfg.JWT.IssuerExpiration)

	var (
		token     string
		expiresAt int64
	)
	switch auth.TokenType(*tokenType) {
	case auth.TokenTypeStation:
		token, expiresAt, err = JWTService.GenerateStationToken(*id)
	case auth.TokenTypeIssuer:
		token, expiresAt, err = JWTService.GenerateIssuerToken(*id)
	default:
		fmt.Fprintf(os.Stderr, "tokengen: unsupported token type %q\n", *tokenType)
		os.Exit(2)
	}
	if err != nil {
		fmt.Fprintln(os.Stderr, "tokengen:", err)
		os.Exit(1)
	}

	fmt.Println(token)
	fmt.Fprintf(os.Stderr, "expires at %s\n", time.Unix(expiresAt, 0).UTC().Format(time.RFC3339))
}
