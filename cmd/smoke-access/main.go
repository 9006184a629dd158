package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"os"
	"time"

	"asiste.org/internal/access"
	"asiste.org/internal/access/remote"
)

// Smoke test against a running instance: obtain a session, read the default
// selection, switch roles, verify the rejection path, sign out.
func main() {
	baseURL := os.Getenv("ASISTE_API_URL")
	if baseURL == "" {
		baseURL = "http://localhost:8080"
	}
	userID := os.Getenv("ASISTE_SMOKE_USER")
	if userID == "" {
		userID = "smoke-user"
	}

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	client := remote.New(baseURL)
	if _, err := client.Authenticate(ctx, userID, userID+"@smoke.asiste.org"); err != nil {
		log.Fatalf("authenticate against %s: %v", baseURL, err)
	}

	active, err := client.SelectedRole(ctx)
	if err != nil {
		log.Fatalf("read selected role: %v", err)
	}
	options, err := client.RoleOptions(ctx)
	if err != nil {
		log.Fatalf("list role options: %v", err)
	}
	if active == nil && len(options) > 0 {
		log.Fatalf("options present but no active selection: %d options", len(options))
	}

	if len(options) > 0 {
		// Re-select the last (lowest) option and read it back.
		target := options[len(options)-1]
		if err := client.SelectRole(ctx, target.Selection()); err != nil {
			log.Fatalf("select role %s: %v", target.RoleID, err)
		}
		reread, err := client.SelectedRole(ctx)
		if err != nil {
			log.Fatalf("re-read selected role: %v", err)
		}
		if reread == nil || reread.RoleID != target.RoleID {
			log.Fatalf("selection did not stick: want %s, got %+v", target.RoleID, reread)
		}
	}

	// A selection nobody granted must answer the single rejection message.
	err = client.SelectRole(ctx, access.RoleSelection{
		RoleID: access.SystemFacilitatorID,
		Role:   access.RoleFacilitador,
	})
	if err == nil && !hasSystemFacilitator(options) {
		log.Fatal("ungranted facilitator selection was accepted")
	}
	if err != nil && !errors.Is(err, remote.ErrRejected) {
		log.Fatalf("unexpected rejection error: %v", err)
	}

	if err := client.SignOut(ctx); err != nil {
		log.Fatalf("sign out: %v", err)
	}

	fmt.Printf("access smoke test passed: user=%s options=%d\n", userID, len(options))
}

func hasSystemFacilitator(options []access.RoleOption) bool {
	for _, opt := range options {
		if opt.RoleID == access.SystemFacilitatorID {
			return true
		}
	}
	return false
}
