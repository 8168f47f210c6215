package audit

import (
	"context"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/suite"

	"medshare/internal/ledger"
	dErrors "medshare/pkg/domain-errors"
)

// RecorderSuite pins the audit trail contract: deterministic keys, history
// ordering, typed decoding, and best-effort mirroring that never blocks.
//
// Justification: the erasure protocol authorizes destructive operations from
// this trail, so its read-back semantics need unit coverage independent of
// the contract layer.
type RecorderSuite struct {
	suite.Suite
	ledger   *ledger.InMemoryLedger
	recorder *Recorder
}

func TestRecorderSuite(t *testing.T) {
	suite.Run(t, new(RecorderSuite))
}

func (s *RecorderSuite) SetupTest() {
	s.ledger = ledger.NewInMemory()
	s.recorder = NewRecorder(s.ledger, slog.New(slog.NewTextHandler(io.Discard, nil)))
}

func (s *RecorderSuite) TestRecordFillsDefaults() {
	ctx := context.Background()
	err := s.recorder.Record(ctx, Entry{Kind: KindRead, AssetID: "a1", Actor: "Org2MSP"})
	s.Require().NoError(err)

	entry, found, err := s.recorder.Latest(ctx, "a1", KindRead)
	s.NoError(err)
	s.True(found)
	s.NotEmpty(entry.ID)
	s.False(entry.Timestamp.IsZero())
	s.Equal("Org2MSP", entry.Actor)
}

func (s *RecorderSuite) TestLatestAbsent() {
	_, found, err := s.recorder.Latest(context.Background(), "a1", KindDeletion)
	s.NoError(err)
	s.False(found)
}

func (s *RecorderSuite) TestHistoryOrdering() {
	ctx := context.Background()
	for _, actor := range []string{"Org1MSP", "Org2MSP", "Org3MSP"} {
		err := s.recorder.Record(ctx, Entry{Kind: KindRead, AssetID: "a1", Actor: actor})
		s.Require().NoError(err)
	}

	entries, err := s.recorder.History(ctx, "a1", KindRead)
	s.NoError(err)
	s.Len(entries, 3)
	s.Equal("Org1MSP", entries[0].Actor)
	s.Equal("Org3MSP", entries[2].Actor)
}

func (s *RecorderSuite) TestHistoryCorruptEntry() {
	ctx := context.Background()
	s.Require().NoError(s.ledger.PutState(ctx, "a1_read", []byte("not json")))

	_, err := s.recorder.History(ctx, "a1", KindRead)
	s.Error(err)
	s.True(dErrors.HasCode(err, dErrors.CodeDataError))
}

func (s *RecorderSuite) TestMirrorNonBlocking() {
	ctx := context.Background()
	mirror := make(chan Entry, 1)
	recorder := NewRecorder(s.ledger, slog.New(slog.NewTextHandler(io.Discard, nil)), WithMirror(mirror))

	s.Require().NoError(recorder.Record(ctx, Entry{Kind: KindRead, AssetID: "a1", Actor: "Org1MSP"}))
	// Buffer now full: the second record must not block and must still land
	// in the public log.
	s.Require().NoError(recorder.Record(ctx, Entry{Kind: KindRead, AssetID: "a1", Actor: "Org2MSP"}))

	entries, err := recorder.History(ctx, "a1", KindRead)
	s.NoError(err)
	s.Len(entries, 2)

	mirrored := <-mirror
	s.Equal("Org1MSP", mirrored.Actor)
}

func (s *RecorderSuite) TestEntryEncodeDecodeRoundTrip() {
	in := Entry{
		ID:         "e1",
		Kind:       KindDeletion,
		AssetID:    "a1",
		Actor:      "Org1MSP",
		ActorID:    "doctor1",
		Subject:    "p1",
		Collection: "medCollection",
		Timestamp:  time.Date(2026, 5, 1, 12, 0, 0, 0, time.UTC),
	}
	data, err := in.Encode()
	s.Require().NoError(err)

	out, err := Decode(data)
	s.Require().NoError(err)
	s.Equal(in, out)
}
