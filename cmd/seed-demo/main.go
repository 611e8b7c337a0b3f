// seed-demo wipes and regenerates the demo account's transaction history
// (90 days of randomized income/expense entries) and resets its balance to
// the generated total.
//
// Usage (from backend directory):
//
//	DB_USER=... DB_PASSWORD=... DB_HOST=... DB_PORT=... DB_NAME=... \
//	DEMO_USER_ID=... DEMO_ACCOUNT_ID=... go run ./cmd/seed-demo
package main

import (
	"context"
	"fmt"
	"os"

	"bitbucket.org/mmdatafocus/wealth_backend/config"
	"bitbucket.org/mmdatafocus/wealth_backend/models"
)

func main() {
	ctx := context.Background()
	config.ConnectDatabaseWithRetry()
	db := config.GetDB()
	if db == nil {
		fmt.Fprintln(os.Stderr, "database not initialized (config.GetDB returned nil). Set DB_* env vars.")
		os.Exit(1)
	}

	inserted, err := models.SeedDemoTransactions(ctx)
	if err != nil {
		fmt.Fprintf(os.Stderr, "seeding failed: %v\n", err)
		os.Exit(1)
	}
	fmt.Printf("Seeded %d transactions for account %s\n", inserted, os.Getenv("DEMO_ACCOUNT_ID"))
}
