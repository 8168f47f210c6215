package audit

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"medshare/internal/ledger"
	"medshare/pkg/platform/sentinel"
)

// Recorder appends audit entries to the public log and reads typed history
// back. The public log is the source of truth; an optional mirror channel
// feeds the streaming pipeline on a best-effort basis and never blocks or
// fails an operation.
type Recorder struct {
	ledger ledger.Ledger
	logger *slog.Logger
	mirror chan<- Entry
}

// RecorderOption configures a Recorder.
type RecorderOption func(*Recorder)

// WithMirror attaches a best-effort mirror channel consumed by the streaming
// worker. Emission is non-blocking: when the channel is full the entry is
// dropped from the mirror (never from the log) and the drop is logged.
func WithMirror(mirror chan<- Entry) RecorderOption {
	return func(r *Recorder) { r.mirror = mirror }
}

func NewRecorder(l ledger.Ledger, logger *slog.Logger, opts ...RecorderOption) *Recorder {
	r := &Recorder{ledger: l, logger: logger}
	for _, opt := range opts {
		if opt != nil {
			opt(r)
		}
	}
	return r
}

// Record writes the entry to the public log under its deterministic key.
// Missing ID and Timestamp are filled in.
func (r *Recorder) Record(ctx context.Context, entry Entry) error {
	if entry.ID == "" {
		entry.ID = uuid.NewString()
	}
	if entry.Timestamp.IsZero() {
		entry.Timestamp = time.Now().UTC()
	}
	data, err := entry.Encode()
	if err != nil {
		return err
	}
	if err := r.ledger.PutState(ctx, entry.Key(), data); err != nil {
		return err
	}
	if r.mirror != nil {
		select {
		case r.mirror <- entry:
		default:
			r.logger.WarnContext(ctx, "audit mirror buffer full, entry not mirrored",
				"key", entry.Key())
		}
	}
	return nil
}

// Latest returns the most recent entry of the given kind for the asset.
// The second return is false when no such entry was ever written.
func (r *Recorder) Latest(ctx context.Context, assetID string, kind Kind) (Entry, bool, error) {
	data, err := r.ledger.GetState(ctx, assetID+"_"+string(kind))
	if errors.Is(err, sentinel.ErrNotFound) {
		return Entry{}, false, nil
	}
	if err != nil {
		return Entry{}, false, err
	}
	entry, err := Decode(data)
	if err != nil {
		return Entry{}, false, err
	}
	return entry, true, nil
}

// History returns every entry of the given kind recorded for the asset,
// oldest to newest.
func (r *Recorder) History(ctx context.Context, assetID string, kind Kind) ([]Entry, error) {
	values, err := r.ledger.HistoryForKey(ctx, assetID+"_"+string(kind))
	if err != nil {
		return nil, err
	}
	entries := make([]Entry, 0, len(values))
	for _, value := range values {
		entry, err := Decode(value)
		if err != nil {
			return nil, err
		}
		entries = append(entries, entry)
	}
	return entries, nil
}
