package main

import (
	"crypto/rand"
	"encoding/hex"
	"flag"
	"fmt"
	"os"
)

func main() {
	size := flag.Int("bytes", 32, "Number of random bytes in the secret")
	flag.Parse()

	if *size < 16 {
		fmt.Fprintln(os.Stderr, "secret must be at least 16 bytes")
		os.Exit(1)
	}

	secret := make([]byte, *size)
	if _, err := rand.Read(secret); err != nil {
		panic(err)
	}

	fmt.Printf("JWT_SECRET=%s\n", hex.EncodeToString(secret))
}
