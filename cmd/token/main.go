package main

// Mint a bearer token signed with JWT_SECRET:
//   go run ./cmd/token -sub ops@example.com

import (
	"flag"
	"fmt"
	"os"

	"exportdocs-backend/internal/shared/auth"
	"exportdocs-backend/internal/shared/config"
)

func main() {
	cfg := config.Load()

	subject := flag.String("sub", "", "token subject")
	admin := flag.Bool("admin", true, "grant the admin capability")
	ttl := flag.Duration("ttl", cfg.TokenTTL, "token lifetime")
	flag.Parse()

	signer, err := auth.NewSigner(cfg.JWTSecret, *ttl)
	if err != nil {
		fmt.Fprintf(os.Stderr, "signer: %v\n", err)
		os.Exit(1)
	}
	token, err := signer.Sign(*subject, *admin)
	if err != nil {
		fmt.Fprintf(os.Stderr, "sign: %v\n", err)
		os.Exit(1)
	}
	fmt.Println(token)
}
