package cli

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/beacon-analytics/beacon-go/internal/queue"
	"github.com/beacon-analytics/beacon-go/internal/storage"
	"github.com/beacon-analytics/beacon-go/internal/transport"
	"github.com/beacon-analytics/beacon-go/internal/wire"
)

// ReplayResult is the replay command's output payload.
type ReplayResult struct {
	Buffered int `json:"buffered"`
	Sent     int `json:"sent"`
	Batches  int `json:"batches"`
}

// replaySender is the transmission surface replay uses; the transport
// client satisfies it, tests substitute their own.
type replaySender interface {
	Send(batch wire.Batch) error
}

// newReplaySender is swapped in tests.
var newReplaySender = func(endpoint string) replaySender {
	return transport.NewClient(endpoint)
}

// NewReplayCommand creates the replay command.
func NewReplayCommand(rootOpts *RootOptions) *cobra.Command {
	var (
		dbPath    string
		endpoint  string
		projectID string
		batchSize int
	)

	cmd := &cobra.Command{
		Use:   "replay",
		Short: "Resend events from the durable failed buffer",
		Long: `Read the failed-event buffer from a SQLite-backed store and resend the
events to the collection endpoint.

The buffer is cleared only after every batch is accepted; a mid-replay
failure leaves the remaining events buffered for a later attempt.`,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runReplay(rootOpts, cmd, dbPath, endpoint, projectID, batchSize)
		},
	}

	cmd.Flags().StringVar(&dbPath, "db", "", "path to the SQLite store (required)")
	cmd.Flags().StringVar(&endpoint, "endpoint", "", "collection endpoint URL (required)")
	cmd.Flags().StringVar(&projectID, "project", "", "project id stamped on batches (required)")
	cmd.Flags().IntVar(&batchSize, "batch-size", queue.DefaultBatchSize, "events per batch")
	cmd.MarkFlagRequired("db")
	cmd.MarkFlagRequired("endpoint")
	cmd.MarkFlagRequired("project")

	return cmd
}

func runReplay(opts *RootOptions, cmd *cobra.Command, dbPath, endpoint, projectID string, batchSize int) error {
	formatter := newFormatter(opts, cmd)
	if batchSize <= 0 {
		batchSize = queue.DefaultBatchSize
	}

	store, err := storage.OpenSQLite(dbPath)
	if err != nil {
		formatter.Error(ErrCodeStore, fmt.Sprintf("cannot open store: %v", err), nil)
		return WrapExitError(ExitCommandError, "cannot open store", err)
	}
	defer store.Close()

	events := queue.FailedEvents(store)
	if len(events) == 0 {
		return formatter.Success("No buffered events to replay", ReplayResult{})
	}
	formatter.VerboseLog("Replaying %d buffered event(s) to %s", len(events), endpoint)

	sender := newReplaySender(endpoint)
	result := ReplayResult{Buffered: len(events)}
	for start := 0; start < len(events); start += batchSize {
		end := start + batchSize
		if end > len(events) {
			end = len(events)
		}
		batch := wire.Batch{
			ProjectID: projectID,
			Events:    events[start:end],
			Version:   wire.Version,
			Timestamp: time.Now().UnixMilli(),
		}
		if err := sender.Send(batch); err != nil {
			// Keep what was not yet accepted buffered for a later run.
			rewriteFailed(store, events[start:])
			formatter.Error(ErrCodeSend, fmt.Sprintf("batch %d failed: %v", result.Batches+1, err),
				map[string]any{"sent": result.Sent, "remaining": len(events) - result.Sent})
			return WrapExitError(ExitFailure, "replay incomplete", err)
		}
		result.Sent += end - start
		result.Batches++
	}

	queue.ClearFailed(store)
	return formatter.Success(
		fmt.Sprintf("Replayed %d event(s) in %d batch(es)", result.Sent, result.Batches),
		result,
	)
}

// rewriteFailed replaces the buffer with the still-unsent tail.
func rewriteFailed(store storage.Store, remaining []wire.Event) {
	queue.ClearFailed(store)
	storage.WriteJSON(store, storage.KeyFailedQueue, remaining)
}
