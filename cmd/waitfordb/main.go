package main

import (
	"context"
	"fmt"
	"os"
	"strconv"
	"time"

	"myconnectionsvr/loginportal/internal/config"
	"myconnectionsvr/loginportal/internal/database"
)

const pollInterval = 2 * time.Second

func main() {
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "load config: %v\n", err)
		os.Exit(2)
	}

	timeout, err := timeoutFromEnv(os.Getenv("WAIT_FOR_DB_TIMEOUT_SEC"))
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(2)
	}

	db, err := database.Open(cfg.DB)
	if err != nil {
		fmt.Fprintf(os.Stderr, "open %s: %v\n", cfg.DB.Driver, err)
		os.Exit(1)
	}
	defer db.Close()

	ping := func(ctx context.Context) error { return database.Ping(ctx, db) }
	if err := waitUntilReady(context.Background(), ping, timeout, pollInterval); err != nil {
		fmt.Fprintf(os.Stderr, "%s not ready within %s: %v\n", cfg.DB.Driver, timeout, err)
		db.Close()
		os.Exit(1)
	}
	fmt.Printf("%s ready\n", cfg.DB.Driver)
}

func timeoutFromEnv(raw string) (time.Duration, error) {
	if raw == "" {
		return 60 * time.Second, nil
	}
	secs, err := strconv.Atoi(raw)
	if err != nil || secs <= 0 {
		return 0, fmt.Errorf("invalid WAIT_FOR_DB_TIMEOUT_SEC: %q", raw)
	}
	return time.Duration(secs) * time.Second, nil
}

// waitUntilReady calls ping until it succeeds or timeout elapses, returning
// the last ping error in the latter case.
func waitUntilReady(ctx context.Context, ping func(context.Context) error, timeout, interval time.Duration) error {
	deadline := time.Now().Add(timeout)
	for {
		attemptCtx, cancel := context.WithTimeout(ctx, interval)
		err := ping(attemptCtx)
		cancel()
		if err == nil {
			return nil
		}
		if time.Now().After(deadline) {
			return err
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(interval):
		}
	}
}
