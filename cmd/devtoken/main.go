// Command devtoken prints a signed ranger token for local development against storeserver.
package main

import (
	"flag"
	"fmt"
	"os"
	"time"

	"github.com/rpggio/fieldwork/internal/auth"
	"github.com/rpggio/fieldwork/internal/config"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "config error: %v\n", err)
		os.Exit(1)
	}

	ranger := flag.String("ranger", cfg.Ranger.ID, "ranger id to put in the token subject")
	ttl := flag.Duration("ttl", cfg.Auth.TokenTTL, "token lifetime")
	flag.Parse()

	if cfg.Auth.JWTSecret == "" {
		fmt.Fprintln(os.Stderr, "FIELDWORK_JWT_SECRET is required")
		os.Exit(1)
	}

	token, err := auth.Issue(auth.Config{
		Secret: cfg.Auth.JWTSecret,
		Issuer: cfg.Auth.JWTIssuer,
		TTL:    *ttl,
	}, *ranger, time.Now())
	if err != nil {
		fmt.Fprintf(os.Stderr, "issue token: %v\n", err)
		os.Exit(1)
	}
	fmt.Println(token)
}
