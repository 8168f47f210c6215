package contract

import (
	"context"
	"fmt"
	"strings"

	"medshare/internal/asset"
	"medshare/internal/contract/metrics"
	"medshare/internal/identity"
	"medshare/internal/ledger"
	dErrors "medshare/pkg/domain-errors"
)

// QueryAssetsBySubject finds every asset in the collection whose data subject
// matches, and projects each hit to "<assetID>-<ownerOrg>". Results are not
// filtered by the caller's ACL membership: the projection exposes only the
// asset's existence and owning organization, never its contents.
func (s *Service) QueryAssetsBySubject(ctx context.Context, dataSubject string) (string, error) {
	if dataSubject == "" {
		return "", dErrors.New(dErrors.CodeIncompleteInput, "empty input: dataSubject")
	}

	results, err := s.ledger.PrivateQuery(ctx, s.cfg.CollectionName, ledger.Selector{
		Field: "dataSubject",
		Value: dataSubject,
	})
	if err != nil {
		return "", dErrors.Wrap(err, dErrors.CodeUnavailable, "query assets by subject")
	}

	parts := make([]string, 0, len(results))
	for _, kv := range results {
		a, err := asset.Deserialize(kv.Value)
		if err != nil {
			s.logger.Warn("skipping undecodable asset in subject query",
				"key", kv.Key, "error", err)
			continue
		}
		ownerOrg, err := identity.OwnerOrg(a.Owner)
		if err != nil {
			s.logger.Warn("skipping asset with malformed owner in subject query",
				"key", kv.Key, "error", err)
			continue
		}
		parts = append(parts, fmt.Sprintf("%s-%s", a.AssetID, ownerOrg))
	}
	metrics.ObserveOperation("query_by_subject", "ok")
	return strings.Join(parts, ","), nil
}

// AssetsByRange returns all decodable assets in the half-open key range
// [startID, endID). Empty and undecodable values are skipped with a warning
// rather than failing the whole scan.
func (s *Service) AssetsByRange(ctx context.Context, startID, endID string) ([]asset.Asset, error) {
	results, err := s.ledger.PrivateByRange(ctx, s.cfg.CollectionName, startID, endID)
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeUnavailable, "assets by range")
	}

	assets := make([]asset.Asset, 0, len(results))
	for _, kv := range results {
		if len(kv.Value) == 0 {
			continue
		}
		a, err := asset.Deserialize(kv.Value)
		if err != nil {
			s.logger.Warn("skipping undecodable asset in range scan",
				"key", kv.Key, "error", err)
			continue
		}
		assets = append(assets, a)
	}
	metrics.ObserveOperation("assets_by_range", "ok")
	return assets, nil
}
