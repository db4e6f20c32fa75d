package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"log"
	"os"
	"time"

	"github.com/lehelkovach/osl-agent-prototype-sub000/application/commands"
	"github.com/lehelkovach/osl-agent-prototype-sub000/application/ports"
	"github.com/lehelkovach/osl-agent-prototype-sub000/domain/core/valueobjects"
	"github.com/lehelkovach/osl-agent-prototype-sub000/infrastructure/config"
	"github.com/lehelkovach/osl-agent-prototype-sub000/infrastructure/di"
)

// agentctl is a thin CLI that enqueues a single agent request against a
// freshly built container and polls until it settles, for ad-hoc runs and
// scripting without standing up the HTTP server.
func main() {
	text := flag.String("text", "", "natural language request to dispatch")
	userID := flag.String("user", "cli", "user id to attach to the request")
	timeout := flag.Duration("timeout", 60*time.Second, "how long to wait for the run to settle")
	poll := flag.Duration("poll", 500*time.Millisecond, "polling interval")
	flag.Parse()

	if *text == "" {
		fmt.Fprintln(os.Stderr, "agentctl: -text is required")
		os.Exit(2)
	}

	ctx := context.Background()

	cfg, err := config.LoadConfig()
	if err != nil {
		log.Fatalf("failed to load configuration: %v", err)
	}

	container, err := di.BuildContainer(ctx, cfg)
	if err != nil {
		log.Fatalf("failed to build container: %v", err)
	}

	traceID := valueobjects.NewTraceID().String()
	cmd := commands.DispatchAgentRequestCommand{TraceID: traceID, Text: *text, UserID: *userID}

	if err := container.Mediator.Send(ctx, cmd); err != nil {
		log.Fatalf("failed to dispatch request: %v", err)
	}

	result, err := awaitResult(ctx, container.OperationStore, traceID, *timeout, *poll)
	if err != nil {
		log.Fatalf("run %s did not settle: %v", traceID, err)
	}

	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	if err := enc.Encode(result); err != nil {
		log.Fatalf("failed to encode result: %v", err)
	}

	if result.Status == ports.OperationStatusFailed {
		os.Exit(1)
	}
}

// awaitResult polls the operation store until the run leaves the pending
// state or the deadline passes.
func awaitResult(ctx context.Context, store ports.OperationStore, traceID string, timeout, pollInterval time.Duration) (*ports.OperationResult, error) {
	deadline := time.Now().Add(timeout)
	ticker := time.NewTicker(pollInterval)
	defer ticker.Stop()

	for {
		result, err := store.Get(ctx, traceID)
		if err != nil {
			return nil, err
		}
		if result.Status != ports.OperationStatusPending {
			return result, nil
		}
		if time.Now().After(deadline) {
			return nil, fmt.Errorf("timed out after %s", timeout)
		}

		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-ticker.C:
		}
	}
}
