package main

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/dreschagin/health-checker/internal/infrastructure/collector"
	"github.com/dreschagin/health-checker/pkg/config"
	"github.com/dreschagin/health-checker/pkg/logger"
)

func main() {
	cfg, err := config.LoadAgent()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load config: %v\n", err)
		os.Exit(1)
	}

	log := logger.New(cfg.LogLevel).With("component", "node-agent")

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	nodeCollector := collector.NewNodeCollector(cfg.DiskPath, cfg.SecondaryPath)
	client := &http.Client{Timeout: cfg.Timeout}
	endpoint := cfg.ServerURL + "/nodes"

	log.Info("Node agent started", "server", cfg.ServerURL, "interval", cfg.Interval.String())

	ticker := time.NewTicker(cfg.Interval)
	defer ticker.Stop()

	for {
		if err := report(ctx, nodeCollector, client, endpoint); err != nil {
			log.Error("Failed to report node snapshot", err)
		}

		select {
		case <-ctx.Done():
			log.Info("Node agent stopped")
			return
		case <-ticker.C:
		}
	}
}

func report(ctx context.Context, nodeCollector *collector.NodeCollector, client *http.Client, endpoint string) error {
	snapshot, err := nodeCollector.Collect(ctx)
	if err != nil {
		return fmt.Errorf("failed to collect snapshot: %w", err)
	}

	body, err := json.Marshal(snapshot)
	if err != nil {
		return fmt.Errorf("failed to marshal snapshot: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("failed to build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := client.Do(req)
	if err != nil {
		return fmt.Errorf("failed to post snapshot: %w", err)
	}
	defer resp.Body.Close()
	_, _ = io.Copy(io.Discard, resp.Body)

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("server responded with %d", resp.StatusCode)
	}
	return nil
}
