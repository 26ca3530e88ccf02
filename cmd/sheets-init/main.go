// Command sheets-init verifies Google Sheets access for first-time setup:
// it resolves credentials the same way the server and worker do, opens the
// configured spreadsheet and prints its title.
package main

import (
	"context"
	"fmt"
	"log"
	"os"
	"time"

	"github.com/joho/godotenv"

	gsheet "bilancio/internal/sheets/google"
)

func main() {
	// Pick up GOOGLE_* variables from .env for local development.
	_ = godotenv.Load()

	if os.Getenv("GOOGLE_SPREADSHEET_ID") == "" {
		log.Fatalf("set GOOGLE_SPREADSHEET_ID")
	}

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	client, err := gsheet.NewFromEnv(ctx)
	if err != nil {
		log.Fatalf("sheets client: %v", err)
	}

	title, err := client.Title(ctx)
	if err != nil {
		log.Fatalf("open spreadsheet: %v", err)
	}

	fmt.Printf("Credentials OK. Spreadsheet: %q\n", title)
	fmt.Println("The worker will sync records into it once AMQP is running.")
}
