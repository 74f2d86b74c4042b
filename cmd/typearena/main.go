package main

import (
	"flag"
	"fmt"
	"log"
	"os"
	"time"

	"github.com/SuryaXyz-art/Type-Arena/internal/app"
	"github.com/SuryaXyz-art/Type-Arena/internal/logger"
	"github.com/SuryaXyz-art/Type-Arena/pkg/arena"
)

const version = "1.0.0"

func main() {
	port := flag.Int("port", 8081, "HTTP server port")
	dbPath := flag.String("db", "typearena.db", "SQLite database path")
	baseURL := flag.String("baseurl", "", "External base URL for join QR codes (default http://localhost:<port>)")
	arenaURL := flag.String("arena", "", "Arena mirror server URL (empty disables mirroring)")
	raceLimit := flag.Duration("racelimit", 0, "Force-finish races after this duration (0 disables)")
	logLevel := flag.String("loglevel", "info", "Log level (debug, info, warn, error)")
	httpLog := flag.Bool("httplog", false, "Log HTTP requests")
	showVersion := flag.Bool("version", false, "Show version and exit")

	flag.Usage = func() {
		fmt.Fprintf(os.Stderr, `TypeArena - Multiplayer Typing Race Server

Usage:
  typearena [options]

Options:
  -port int       HTTP server port (default 8081)
  -db string      SQLite database path (default "typearena.db")
  -baseurl str    External base URL for join QR codes
  -arena str      Arena mirror server URL (empty disables mirroring)
  -racelimit dur  Force-finish races after this duration, e.g. 5m (0 disables)
  -loglevel str   Log level: debug, info, warn, error (default "info")
  -httplog        Log HTTP requests
  -version        Show version and exit
  -help           Show this help message

Examples:
  typearena                          # Run on port 8081 with typearena.db
  typearena -port 8080               # Run on port 8080
  typearena -db /data/races.db       # Use custom database path
  typearena -racelimit 5m            # Abandon races after five minutes
  typearena -arena http://mirror:9000  # Mirror race results

`)
	}

	flag.Parse()

	if *showVersion {
		fmt.Printf("typearena %s\n", version)
		os.Exit(0)
	}

	appLog := logger.NewWithLevel(logger.ParseLevel(*logLevel))
	if *httpLog {
		appLog.EnableHTTPLogging()
	}

	var mirror arena.Client = arena.NewNopClient()
	if *arenaURL != "" {
		mirror = arena.NewHTTPClient(*arenaURL, appLog)
	}

	base := *baseURL
	if base == "" {
		base = fmt.Sprintf("http://localhost:%d", *port)
	}

	a, err := app.New(appLog, app.Config{
		DBPath:        *dbPath,
		BaseURL:       base,
		RaceTimeLimit: *raceLimit,
	}, mirror)
	if err != nil {
		log.Fatal("Failed to initialize application:", err)
	}
	defer a.Close()

	addr := fmt.Sprintf(":%d", *port)

	serverErr := make(chan error, 1)
	go func() {
		serverErr <- a.Run(addr)
	}()

	// Give the listener a moment before printing the banner
	time.Sleep(100 * time.Millisecond)
	fmt.Printf("TypeArena %s listening on %s\n", version, addr)

	if err := <-serverErr; err != nil {
		log.Fatal(err)
	}
}
