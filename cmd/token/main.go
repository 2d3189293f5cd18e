package main

import (
	"flag"
	"fmt"
	"os"
	"time"

	"github.com/OsianJL/questions-app/internal/auth"
)

func main() {
	secret := flag.String("secret", os.Getenv("JWT_SECRET"), "JWT signing secret (defaults to $JWT_SECRET)")
	userID := flag.Int64("user", 0, "User ID to issue the token for")
	purpose := flag.String("purpose", string(auth.PurposeAccess), "Token purpose: access, confirm or reset")
	ttl := flag.Duration("ttl", time.Hour, "Token lifetime")
	flag.Parse()

	if *secret == "" || *userID <= 0 {
		fmt.Fprintln(os.Stderr, "Usage: token -user <id> [-secret <jwt-secret>] [-purpose access|confirm|reset] [-ttl 1h]")
		os.Exit(1)
	}

	p := auth.Purpose(*purpose)
	switch p {
	case auth.PurposeAccess, auth.PurposeConfirm, auth.PurposeReset:
	default:
		fmt.Fprintf(os.Stderr, "Unknown purpose %q\n", *purpose)
		os.Exit(1)
	}

	tokens, err := auth.NewTokenService(*secret, *ttl, *ttl)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Invalid settings: %v\n", err)
		os.Exit(1)
	}

	tok, err := tokens.Issue(*userID, p)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to issue token: %v\n", err)
		os.Exit(1)
	}

	fmt.Printf("Authorization: Bearer %s\n", tok)
}
