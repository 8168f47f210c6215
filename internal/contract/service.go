package contract

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"medshare/internal/asset"
	"medshare/internal/audit"
	"medshare/internal/contract/metrics"
	"medshare/internal/identity"
	"medshare/internal/ledger"
	dErrors "medshare/pkg/domain-errors"
	"medshare/pkg/platform/sentinel"
)

// Config carries the collection and peer bindings that used to be implicit
// globals in older renditions of this contract.
type Config struct {
	// CollectionName is the confidential collection assets live in.
	CollectionName string
	// PeerMSPID is the organization operating this peer. State-changing
	// operations refuse callers from other organizations so one org cannot
	// write confidential data through another org's peer.
	PeerMSPID string
}

// Service is the authorization and audit state machine. Every operation takes
// the verified caller identity, consults the ledger for current state,
// evaluates the per-operation rule, applies the mutation, and records the
// audit entry last — a failure at any earlier stage leaves no audit trace.
type Service struct {
	ledger ledger.Ledger
	audit  *audit.Recorder
	cfg    Config
	logger *slog.Logger
}

func NewService(l ledger.Ledger, recorder *audit.Recorder, cfg Config, logger *slog.Logger) (*Service, error) {
	if l == nil {
		return nil, errors.New("ledger is required")
	}
	if recorder == nil {
		return nil, errors.New("audit recorder is required")
	}
	if cfg.CollectionName == "" || cfg.PeerMSPID == "" {
		return nil, errors.New("collection name and peer MSP id are required")
	}
	return &Service{ledger: l, audit: recorder, cfg: cfg, logger: logger}, nil
}

// CreateAssetInput is the confidential payload for CreateAsset. It arrives
// out-of-band and is never placed on the public log.
type CreateAssetInput struct {
	AssetID     string   `json:"assetID"`
	Pointer     string   `json:"pointer"`
	DataSubject string   `json:"dataSubject"`
	Version     int      `json:"version"`
	FileKey     string   `json:"filekey"`
	ACL         []string `json:"acl"`
}

func (in CreateAssetInput) validate() error {
	switch {
	case in.AssetID == "":
		return dErrors.New(dErrors.CodeIncompleteInput, "empty input: assetID")
	case in.Pointer == "":
		return dErrors.New(dErrors.CodeIncompleteInput, "empty input: pointer")
	case in.DataSubject == "":
		return dErrors.New(dErrors.CodeIncompleteInput, "empty input: dataSubject")
	case in.FileKey == "":
		return dErrors.New(dErrors.CodeIncompleteInput, "empty input: filekey")
	case len(in.ACL) == 0:
		return dErrors.New(dErrors.CodeIncompleteInput, "empty input: acl")
	case in.Version < 1:
		return dErrors.New(dErrors.CodeIncompleteInput, "wrong input: version")
	}
	return nil
}

// CreateAsset persists a new confidential record owned by the caller and
// records a creation entry on the public log.
func (s *Service) CreateAsset(ctx context.Context, caller identity.Identity, in CreateAssetInput) (asset.Asset, error) {
	if err := in.validate(); err != nil {
		metrics.ObserveOperation("create_asset", "invalid_input")
		return asset.Asset{}, err
	}

	if _, err := s.getAsset(ctx, in.AssetID); err == nil {
		metrics.ObserveOperation("create_asset", "conflict")
		return asset.Asset{}, dErrors.New(dErrors.CodeAssetAlreadyExists,
			fmt.Sprintf("asset %s already exists", in.AssetID))
	} else if !dErrors.HasCode(err, dErrors.CodeAssetNotFound) {
		return asset.Asset{}, err
	}

	if caller.Role == identity.RolePatient {
		return asset.Asset{}, s.deny("create_asset",
			fmt.Sprintf("client with role %s is not authorized to create assets", caller.Role))
	}
	if err := s.requirePeerOrg(caller, "create_asset"); err != nil {
		return asset.Asset{}, err
	}

	a := asset.Asset{
		AssetID:     in.AssetID,
		Pointer:     in.Pointer,
		DataSubject: in.DataSubject,
		Version:     in.Version,
		Owner:       caller.EnrollmentID,
		FileKey:     in.FileKey,
		ACL:         append([]string(nil), in.ACL...),
	}
	if err := s.putAsset(ctx, a); err != nil {
		return asset.Asset{}, err
	}

	if err := s.record(ctx, audit.Entry{
		Kind:       audit.KindCreation,
		AssetID:    a.AssetID,
		Actor:      caller.MSPID,
		ActorID:    caller.CommonName,
		Collection: s.cfg.CollectionName,
	}); err != nil {
		return asset.Asset{}, err
	}
	metrics.ObserveOperation("create_asset", "ok")
	return a, nil
}

// ReadAsset returns the formatted projection of the asset to callers on the
// ACL or from the owner organization. Reads are audited, which is why this is
// a state-changing operation despite being semantically a read.
func (s *Service) ReadAsset(ctx context.Context, caller identity.Identity, assetID string) (string, error) {
	a, err := s.getAsset(ctx, assetID)
	if err != nil {
		metrics.ObserveOperation("read_asset", "not_found")
		return "", err
	}

	ownerOrg, err := identity.OwnerOrg(a.Owner)
	if err != nil {
		return "", err
	}
	if caller.MSPID != ownerOrg && !a.ACLContains(caller.MSPID) {
		return "", s.deny("read_asset",
			fmt.Sprintf("client %s with role %s is not authorized to read asset %s", caller.MSPID, caller.Role, assetID))
	}
	if err := requireSelfSubject(caller, a.DataSubject); err != nil {
		metrics.ObserveDenial("read_asset")
		return "", err
	}

	if err := s.record(ctx, audit.Entry{
		Kind:    audit.KindRead,
		AssetID: assetID,
		Actor:   caller.MSPID,
		ActorID: caller.CommonName,
		Subject: a.DataSubject,
	}); err != nil {
		return "", err
	}
	metrics.ObserveOperation("read_asset", "ok")
	return a.Format(), nil
}

// ReadAcl returns the asset's ACL to the owner organization. No audit entry
// is written for ACL inspection.
func (s *Service) ReadAcl(ctx context.Context, caller identity.Identity, assetID string) ([]string, error) {
	a, err := s.getAsset(ctx, assetID)
	if err != nil {
		return nil, err
	}
	if err := s.requireOwnerOrg(caller, a, "read_acl"); err != nil {
		return nil, err
	}
	if err := requireSelfSubject(caller, a.DataSubject); err != nil {
		metrics.ObserveDenial("read_acl")
		return nil, err
	}
	metrics.ObserveOperation("read_acl", "ok")
	return append([]string(nil), a.ACL...), nil
}

// UpdateACLPermission grants newOrg read access. Only unrestricted callers
// from the owner organization may widen an ACL.
func (s *Service) UpdateACLPermission(ctx context.Context, caller identity.Identity, assetID, newOrg string) error {
	a, err := s.getAsset(ctx, assetID)
	if err != nil {
		metrics.ObserveOperation("update_acl", "not_found")
		return err
	}
	if err := s.requireOwnerOrg(caller, a, "update_acl"); err != nil {
		return err
	}
	if caller.Role == identity.RolePatient {
		return s.deny("update_acl",
			fmt.Sprintf("client %s with role %s is not authorized to update the ACL", caller.MSPID, caller.Role))
	}

	a.GrantACL(newOrg)
	if err := s.putAsset(ctx, a); err != nil {
		return err
	}

	if err := s.record(ctx, audit.Entry{
		Kind:    audit.KindACL,
		AssetID: assetID,
		Actor:   caller.MSPID,
		ActorID: caller.CommonName,
		Subject: a.DataSubject,
		Org:     newOrg,
	}); err != nil {
		return err
	}
	metrics.ObserveOperation("update_acl", "ok")
	return nil
}

// RevokeACLPermission removes targetOrg from the ACL. Removing an org that
// is not present still rewrites the asset and audits the revocation.
func (s *Service) RevokeACLPermission(ctx context.Context, caller identity.Identity, assetID, targetOrg string) error {
	a, err := s.getAsset(ctx, assetID)
	if err != nil {
		metrics.ObserveOperation("revoke_acl", "not_found")
		return err
	}
	if err := s.requireOwnerOrg(caller, a, "revoke_acl"); err != nil {
		return err
	}
	if err := requireSelfSubject(caller, a.DataSubject); err != nil {
		metrics.ObserveDenial("revoke_acl")
		return err
	}

	a.RevokeACL(targetOrg)
	if err := s.putAsset(ctx, a); err != nil {
		return err
	}

	if err := s.record(ctx, audit.Entry{
		Kind:    audit.KindACL,
		AssetID: assetID,
		Actor:   caller.MSPID,
		ActorID: caller.CommonName,
		Subject: a.DataSubject,
		Org:     targetOrg,
	}); err != nil {
		return err
	}
	metrics.ObserveOperation("revoke_acl", "ok")
	return nil
}

// DeleteAsset removes the confidential entry and writes the deletion
// tombstone the erasure protocol later correlates against.
func (s *Service) DeleteAsset(ctx context.Context, caller identity.Identity, assetID string) error {
	a, err := s.getAsset(ctx, assetID)
	if err != nil {
		metrics.ObserveOperation("delete_asset", "not_found")
		return err
	}
	if err := s.requirePeerOrg(caller, "delete_asset"); err != nil {
		return err
	}
	if err := requireSelfSubject(caller, a.DataSubject); err != nil {
		metrics.ObserveDenial("delete_asset")
		return err
	}
	if err := s.requireOwnerOrg(caller, a, "delete_asset"); err != nil {
		return err
	}

	if err := s.ledger.DelPrivate(ctx, s.cfg.CollectionName, assetID); err != nil {
		return dErrors.Wrap(err, dErrors.CodeUnavailable, "delete asset")
	}

	if err := s.record(ctx, audit.Entry{
		Kind:       audit.KindDeletion,
		AssetID:    assetID,
		Actor:      caller.MSPID,
		ActorID:    caller.CommonName,
		Subject:    a.DataSubject,
		Collection: s.cfg.CollectionName,
	}); err != nil {
		return err
	}
	metrics.ObserveOperation("delete_asset", "ok")
	return nil
}

// PurgeAsset removes the durable history of the confidential entry. It is
// idempotent and does not require the asset to exist: a delete may already
// have removed the live value. No audit entry is written.
func (s *Service) PurgeAsset(ctx context.Context, caller identity.Identity, assetID string) error {
	if assetID == "" {
		return dErrors.New(dErrors.CodeIncompleteInput, "empty input: assetID")
	}
	if err := s.requirePeerOrg(caller, "purge_asset"); err != nil {
		return err
	}
	if err := s.ledger.PurgePrivate(ctx, s.cfg.CollectionName, assetID); err != nil {
		return dErrors.Wrap(err, dErrors.CodeUnavailable, "purge asset")
	}
	metrics.ObserveOperation("purge_asset", "ok")
	return nil
}

// RequestPermission records an access request on the public log. It mutates
// no confidential state; the owner organization reads the trail and decides.
func (s *Service) RequestPermission(ctx context.Context, caller identity.Identity, assetID, purpose string) error {
	if caller.Role == identity.RolePatient {
		return s.deny("request_permission",
			fmt.Sprintf("client with role %s is not authorized to request access", caller.Role))
	}
	if err := s.record(ctx, audit.Entry{
		Kind:    audit.KindRequest,
		AssetID: assetID,
		Actor:   caller.MSPID,
		ActorID: caller.EnrollmentID,
		Purpose: purpose,
	}); err != nil {
		return err
	}
	metrics.ObserveOperation("request_permission", "ok")
	return nil
}

// UploadKey stores caller-scoped key material on the public log under
// <MSPID>_<keyType>. The key reference is opaque to this service.
func (s *Service) UploadKey(ctx context.Context, caller identity.Identity, key, keyType string) error {
	if key == "" {
		return dErrors.New(dErrors.CodeIncompleteInput, "empty input: key")
	}
	if keyType == "" {
		return dErrors.New(dErrors.CodeIncompleteInput, "empty input: keyType")
	}
	if err := s.ledger.PutState(ctx, caller.MSPID+"_"+keyType, []byte(key)); err != nil {
		return dErrors.Wrap(err, dErrors.CodeUnavailable, "upload key")
	}
	metrics.ObserveOperation("upload_key", "ok")
	return nil
}

// HistoryForAsset returns all historical public-log values for the given key
// joined by commas, oldest to newest.
func (s *Service) HistoryForAsset(ctx context.Context, key string) (string, error) {
	values, err := s.ledger.HistoryForKey(ctx, key)
	if err != nil {
		return "", dErrors.Wrap(err, dErrors.CodeUnavailable, "asset history")
	}
	parts := make([]string, 0, len(values))
	for _, v := range values {
		parts = append(parts, string(v))
	}
	metrics.ObserveOperation("asset_history", "ok")
	return strings.Join(parts, ","), nil
}

// getAsset resolves and decodes the confidential record.
func (s *Service) getAsset(ctx context.Context, assetID string) (asset.Asset, error) {
	data, err := s.ledger.GetPrivate(ctx, s.cfg.CollectionName, assetID)
	if errors.Is(err, sentinel.ErrNotFound) {
		return asset.Asset{}, dErrors.New(dErrors.CodeAssetNotFound,
			fmt.Sprintf("asset %s not found", assetID))
	}
	if err != nil {
		return asset.Asset{}, dErrors.Wrap(err, dErrors.CodeUnavailable, "get asset")
	}
	return asset.Deserialize(data)
}

func (s *Service) putAsset(ctx context.Context, a asset.Asset) error {
	data, err := a.Serialize()
	if err != nil {
		return err
	}
	if err := s.ledger.PutPrivate(ctx, s.cfg.CollectionName, a.AssetID, data); err != nil {
		return dErrors.Wrap(err, dErrors.CodeUnavailable, "put asset")
	}
	return nil
}

func (s *Service) record(ctx context.Context, entry audit.Entry) error {
	if err := s.audit.Record(ctx, entry); err != nil {
		return dErrors.Wrap(err, dErrors.CodeUnavailable, "record audit entry")
	}
	metrics.ObserveAuditEntry(string(entry.Kind))
	return nil
}
