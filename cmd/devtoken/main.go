// cmd/devtoken/main.go
package main

import (
	"flag"
	"fmt"
	"log"

	"github.com/qmart/storefront/internal/config"
	"github.com/qmart/storefront/internal/pkg/auth"
)

// Mints an access token signed with JWT_SECRET, for calling the API locally.
// Production tokens come from the identity service.
func main() {
	userID := flag.Uint("user", 1, "user ID to put in the token")
	admin := flag.Bool("admin", false, "grant admin access")
	flag.Parse()

	if *userID == 0 {
		log.Fatal("Usage: go run ./cmd/devtoken -user <id> [-admin]")
	}

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}
	if cfg.IsProduction() {
		log.Fatal("Refusing to mint tokens in production")
	}

	token, err := auth.NewJWTManager(cfg).GenerateAccessToken(*userID, *admin)
	if err != nil {
		log.Fatal("Error generating token:", err)
	}

	fmt.Printf("User: %d (admin: %t)\n", *userID, *admin)
	fmt.Printf("Expires in: %s\n", cfg.JWT.AccessTokenExpiry)
	fmt.Printf("Authorization: Bearer %s\n", token)
}
