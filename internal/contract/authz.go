package contract

import (
	"fmt"

	"medshare/internal/asset"
	"medshare/internal/contract/metrics"
	"medshare/internal/identity"
	dErrors "medshare/pkg/domain-errors"
)

// deny logs and counts an authorization failure and returns the typed error.
func (s *Service) deny(operation, message string) error {
	metrics.ObserveDenial(operation)
	if s.logger != nil {
		s.logger.Warn("access denied", "operation", operation, "reason", message)
	}
	return dErrors.New(dErrors.CodeInvalidAccess, message)
}

// requirePeerOrg enforces the self-org write guard: callers may only submit
// state-changing operations through their own organization's peer.
func (s *Service) requirePeerOrg(caller identity.Identity, operation string) error {
	if caller.MSPID != s.cfg.PeerMSPID {
		return s.deny(operation, fmt.Sprintf(
			"client from org %s is not authorized to read or write private data from an org %s peer",
			caller.MSPID, s.cfg.PeerMSPID))
	}
	return nil
}

// requireOwnerOrg enforces that the caller belongs to the organization
// derived from the asset's owner identity.
func (s *Service) requireOwnerOrg(caller identity.Identity, a asset.Asset, operation string) error {
	ownerOrg, err := identity.OwnerOrg(a.Owner)
	if err != nil {
		return err
	}
	if caller.MSPID != ownerOrg {
		return s.deny(operation, fmt.Sprintf(
			"client %s with role %s is not authorized: asset %s belongs to %s",
			caller.MSPID, caller.Role, a.AssetID, ownerOrg))
	}
	return nil
}

// requireSelfSubject enforces the restricted-role carve-out: a patient may
// act only on records about themselves. An empty common name never matches,
// so credentials without a CN fail closed.
func requireSelfSubject(caller identity.Identity, dataSubject string) error {
	if caller.Role != identity.RolePatient {
		return nil
	}
	if caller.CommonName != dataSubject {
		return dErrors.New(dErrors.CodeInvalidAccess, fmt.Sprintf(
			"patient with id %s is not authorized to act on a record of %s",
			caller.CommonName, dataSubject))
	}
	return nil
}
