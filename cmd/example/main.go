package main

import (
	"fmt"
	"log/slog"
	"os"
	"time"

	"contactdb/pkg/client"
	"contactdb/pkg/common"
)

func main() {
	logger := slog.New(slog.NewTextHandler(os.Stderr, nil))

	fmt.Println("Connecting to contactdb...")
	cli, err := client.Dial("localhost:9090")
	if err != nil {
		logger.Error("Failed to connect", "error", err)
		os.Exit(1)
	}
	defer cli.Close()

	in := common.ContactInput{
		Name:  fmt.Sprintf("Example Contact %d", time.Now().Unix()),
		Phone: "555-0199",
		Email: "example@contactdb.dev",
	}

	fmt.Printf("Adding: %s\n", in.Name)
	start := time.Now()
	added, err := cli.Add(in)
	if err != nil {
		logger.Error("Add failed", "error", err)
		os.Exit(1)
	}
	fmt.Printf("Added %s in %v\n", added.ID, time.Since(start))

	fmt.Printf("Searching %q...\n", in.Name)
	start = time.Now()
	got, err := cli.Search(in.Name)
	if err != nil {
		logger.Error("Search failed", "error", err)
		os.Exit(1)
	}
	fmt.Printf("Found %s <%s> (in %v)\n", got.Name, got.Email, time.Since(start))

	if _, err := cli.Delete(added.ID); err != nil {
		logger.Error("Delete failed", "error", err)
		os.Exit(1)
	}
	fmt.Println("Cleaned up.")
}
