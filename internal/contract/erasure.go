package contract

import (
	"context"
	"fmt"
	"strings"

	"medshare/internal/audit"
	"medshare/internal/contract/metrics"
	"medshare/internal/identity"
	dErrors "medshare/pkg/domain-errors"
)

// EraseData is the subject-erasure workflow. It is two-phase:
//
// When the asset is still present, it behaves like DeleteAsset plus an
// erasure entry, and returns the asset's read history as the erasure receipt.
//
// When the asset is already absent, authorization context is recovered from
// the deletion tombstone: the caller must be the organization that deleted
// the record and, for restricted roles, the recorded data subject. With no
// tombstone the asset never existed here and the request fails with
// asset_not_found.
//
// A repeated erasure after a successful one still correlates against the
// tombstone and succeeds, so the operation is idempotent for authorized
// callers.
func (s *Service) EraseData(ctx context.Context, caller identity.Identity, assetID string) (string, error) {
	a, err := s.getAsset(ctx, assetID)
	if dErrors.HasCode(err, dErrors.CodeAssetNotFound) {
		return s.eraseAbsent(ctx, caller, assetID)
	}
	if err != nil {
		return "", err
	}

	if err := s.requireOwnerOrg(caller, a, "erase_data"); err != nil {
		return "", err
	}
	if err := requireSelfSubject(caller, a.DataSubject); err != nil {
		metrics.ObserveDenial("erase_data")
		return "", err
	}

	if err := s.ledger.DelPrivate(ctx, s.cfg.CollectionName, assetID); err != nil {
		return "", dErrors.Wrap(err, dErrors.CodeUnavailable, "erase asset")
	}

	if err := s.record(ctx, audit.Entry{
		Kind:       audit.KindDeletion,
		AssetID:    assetID,
		Actor:      caller.MSPID,
		ActorID:    caller.CommonName,
		Subject:    a.DataSubject,
		Collection: s.cfg.CollectionName,
	}); err != nil {
		return "", err
	}
	if err := s.record(ctx, audit.Entry{
		Kind:       audit.KindErasure,
		AssetID:    assetID,
		Actor:      caller.MSPID,
		ActorID:    caller.CommonName,
		Subject:    a.DataSubject,
		Collection: s.cfg.CollectionName,
	}); err != nil {
		return "", err
	}

	metrics.ObserveOperation("erase_data", "ok")
	return s.readReceipt(ctx, assetID)
}

// eraseAbsent authorizes an erasure of residual audit traces from the
// deletion tombstone of an already-deleted asset.
func (s *Service) eraseAbsent(ctx context.Context, caller identity.Identity, assetID string) (string, error) {
	tombstone, found, err := s.audit.Latest(ctx, assetID, audit.KindDeletion)
	if err != nil {
		return "", err
	}
	if !found || tombstone.AssetID != assetID {
		metrics.ObserveOperation("erase_data", "not_found")
		return "", dErrors.New(dErrors.CodeAssetNotFound,
			fmt.Sprintf("asset %s not found", assetID))
	}

	if caller.MSPID != tombstone.Actor {
		return "", s.deny("erase_data", fmt.Sprintf(
			"client %s with role %s is not authorized to erase asset %s",
			caller.MSPID, caller.Role, assetID))
	}
	if err := requireSelfSubject(caller, tombstone.Subject); err != nil {
		metrics.ObserveDenial("erase_data")
		return "", err
	}

	if err := s.record(ctx, audit.Entry{
		Kind:       audit.KindErasure,
		AssetID:    assetID,
		Actor:      caller.MSPID,
		ActorID:    caller.CommonName,
		Subject:    tombstone.Subject,
		Collection: s.cfg.CollectionName,
	}); err != nil {
		return "", err
	}

	metrics.ObserveErasureCorrelation()
	metrics.ObserveOperation("erase_data", "ok")
	return s.readReceipt(ctx, assetID)
}

// readReceipt renders the asset's full read history, one line per recorded
// read, joined by commas. This is what the data subject receives as proof of
// who accessed the record before erasure.
func (s *Service) readReceipt(ctx context.Context, assetID string) (string, error) {
	reads, err := s.audit.History(ctx, assetID, audit.KindRead)
	if err != nil {
		return "", err
	}
	lines := make([]string, 0, len(reads))
	for _, entry := range reads {
		lines = append(lines, entry.String())
	}
	return strings.Join(lines, ","), nil
}
