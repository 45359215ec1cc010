// gentoken mints a JWT bearer token for the ops surface (/v1/installations).
// Tokens are handed out manually; there is no interactive login flow.
package main

import (
	"flag"
	"fmt"
	"log"
	"os"
	"time"

	"github.com/joho/godotenv"

	"slackgate-backend/internal/auth"
)

func main() {
	operator := flag.String("operator", "", "operator name embedded in the token claims (required)")
	expiration := flag.Duration("expiration", 24*time.Hour, "token lifetime")
	flag.Parse()

	if *operator == "" {
		log.Fatal("FATAL: -operator is required")
	}

	if err := godotenv.Load(); err != nil {
		log.Println("Warning: Could not load .env file. Using environment variables only.", err)
	}

	jwtSecret := os.Getenv("OPS_JWT_SECRET")
	if jwtSecret == "" {
		log.Fatal("FATAL: OPS_JWT_SECRET environment variable is not set.")
	}

	token, err := auth.NewOpsToken(*operator, jwtSecret, *expiration)
	if err != nil {
		log.Fatalf("FATAL: Failed to generate ops token: %v", err)
	}

	fmt.Printf("Generated ops token for %s (valid %s):\n%s\n", *operator, *expiration, token)
}
