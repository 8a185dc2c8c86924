// Command keygen prints a new host API key and the bcrypt hash to set as
// SYNC_API_KEY_HASH. The raw key goes into the host runtime's settings.
package main

import (
	"fmt"
	"log/slog"
	"os"

	"github.com/keyxmakerx/roadtothesky/internal/plugins/syncapi"
)

func main() {
	rawKey, hash, err := syncapi.GenerateKey()
	if err != nil {
		slog.Error("generating key", slog.Any("error", err))
		os.Exit(1)
	}
	fmt.Printf("API key (give to the host runtime): %s\n", rawKey)
	fmt.Printf("SYNC_API_KEY_HASH=%s\n", hash)
}
