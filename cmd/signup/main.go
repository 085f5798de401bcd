// Command signup is a small smoke-test client for the waitlist API. It
// drives the same controller the embedded form uses, so a run exercises
// validation, normalization and the duplicate-as-success path end to end.
//
// Usage:
//
//	signup -server http://localhost:8080 -email user@example.com [-ref https://shop.example.com]
package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"
	"time"

	"github.com/ignite/waitlist/internal/client"
)

func main() {
	serverURL := flag.String("server", "http://localhost:8080", "waitlist API base URL")
	email := flag.String("email", "", "email address to sign up")
	refURL := flag.String("ref", "", "optional store/reference URL")
	flag.Parse()

	if *email == "" {
		flag.Usage()
		os.Exit(2)
	}

	sc := client.NewSignupController(*serverURL,
		client.WithSuccessCallback(func(normalized string) {
			fmt.Printf("signed up: %s\n", normalized)
		}),
		client.WithFailureCallback(func(kind client.FailureKind, msg string) {
			fmt.Printf("failed (%s): %s\n", kind, msg)
		}),
	)

	sc.UpdateEmail(*email)
	if *refURL != "" {
		sc.UpdateReferenceURL(*refURL)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := sc.Submit(ctx); err != nil {
		log.Fatalf("submit: %v", err)
	}

	if sc.State().Phase != client.PhaseSuccess {
		os.Exit(1)
	}
}
