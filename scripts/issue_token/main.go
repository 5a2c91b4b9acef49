// Command issue_token signs a bearer token for a profile email with the
// configured JWT secret. Useful for local testing of owner-only routes.
package main

import (
	"flag"
	"fmt"
	"log"
	"os"

	"github.com/networkpro/user-service/internal/config"
	"github.com/networkpro/user-service/pkg/auth"
)

func main() {
	email := flag.String("email", os.Getenv("OWNER_EMAIL"), "profile email to put in the token subject")
	flag.Parse()

	if *email == "" {
		log.Fatal("usage: issue_token -email someone@example.com")
	}

	cfg, err := config.LoadConfig(".")
	if err != nil {
		log.Fatalf("cannot load config: %v", err)
	}
	if cfg.Auth.JWTSecret == "" {
		log.Fatal("JWT_SECRET_KEY is not set")
	}

	token, err := auth.NewJWTService(cfg.Auth.JWTSecret, cfg.Auth.TokenLifespan).GenerateToken(*email)
	if err != nil {
		log.Fatalf("cannot sign token: %v", err)
	}
	fmt.Println(token)
}
