// Command token-init mints an owner bearer token for deployments that set
// AUTH_SECRET. The token's subject is the owner every request will act for.
package main

import (
	"flag"
	"fmt"
	"log"
	"os"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/joho/godotenv"
)

func main() {
	owner := flag.String("owner", "", "owner the token acts for (required)")
	ttl := flag.Duration("ttl", 30*24*time.Hour, "token lifetime")
	flag.Parse()

	// Pick up AUTH_SECRET from .env for local development.
	_ = godotenv.Load()

	if *owner == "" {
		flag.Usage()
		log.Fatalf("missing -owner")
	}
	secret := os.Getenv("AUTH_SECRET")
	if secret == "" {
		log.Fatalf("set AUTH_SECRET (the server's token signing secret)")
	}

	now := time.Now()
	expiresAt := now.Add(*ttl)
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.RegisteredClaims{
		Subject:   *owner,
		IssuedAt:  jwt.NewNumericDate(now),
		ExpiresAt: jwt.NewNumericDate(expiresAt),
	})
	signed, err := token.SignedString([]byte(secret))
	if err != nil {
		log.Fatalf("sign token: %v", err)
	}

	fmt.Println(signed)
	fmt.Fprintf(os.Stderr, "Token for %q, valid until %s.\nSend it as: Authorization: Bearer <token>\n",
		*owner, expiresAt.Format(time.RFC3339))
}
