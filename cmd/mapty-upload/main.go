package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/claude/mapty/internal/upload"
)

// Version is set at build time via -ldflags.
var Version = "dev"

func main() {
	serverURL := flag.String("server", "", "Mapty server URL (e.g. https://mapty.tail1234.ts.net)")
	apiKey := flag.String("key", os.Getenv("MAPTY_AUTH_API_KEY"), "API key (defaults to $MAPTY_AUTH_API_KEY)")
	exportPath := flag.String("file", "", "path to a localStorage workouts export (.json or .json.gz)")
	dryRun := flag.Bool("dry-run", false, "decode and validate but don't send to server")
	version := flag.Bool("version", false, "print version and exit")
	flag.Parse()

	if *version {
		fmt.Println("mapty-upload", Version)
		return
	}

	log := slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelInfo}))

	if *exportPath == "" {
		fmt.Fprintf(os.Stderr, "Usage: mapty-upload -server <URL> -file <export.json> [-key K] [-dry-run]\n\n")
		flag.PrintDefaults()
		os.Exit(1)
	}
	if *serverURL == "" && !*dryRun {
		fmt.Fprintf(os.Stderr, "Error: -server is required (or use -dry-run)\n")
		os.Exit(1)
	}

	// Strip trailing slash from server URL
	*serverURL = strings.TrimRight(*serverURL, "/")

	blob, err := upload.ReadExport(*exportPath)
	if err != nil {
		log.Error("failed to read export", "error", err)
		os.Exit(1)
	}

	// Client stays nil in dry-run mode
	var client upload.Sender
	if !*dryRun {
		client = upload.NewClient(*serverURL, *apiKey)
	} else {
		log.Info("DRY RUN mode: workouts will be decoded but not sent")
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	stats, err := upload.New(client, *dryRun, log).Run(ctx, blob)
	printStats(stats)
	if err != nil {
		log.Error("upload failed", "error", err)
		os.Exit(1)
	}
	log.Info("upload complete")
}

func printStats(stats *upload.Stats) {
	fmt.Println()
	fmt.Println("=== Upload Summary ===")
	fmt.Printf("  Records in export: %d\n", stats.Records)
	fmt.Printf("  Dropped:           %d (malformed)\n", stats.Dropped)
	fmt.Printf("  Sent:              %d\n", stats.Sent)
	fmt.Printf("  Rejected:          %d\n", stats.Rejected)
	fmt.Printf("  Errored:           %d\n", stats.Errored)
	fmt.Println()
}
