package handler

import "medshare/internal/asset"

// AssetResponse is the JSON projection of a confidential record returned to
// authorized callers.
type AssetResponse struct {
	AssetID     string   `json:"assetID"`
	Pointer     string   `json:"pointer"`
	DataSubject string   `json:"dataSubject"`
	Version     int      `json:"version"`
	Owner       string   `json:"owner"`
	FileKey     string   `json:"filekey"`
	ACL         []string `json:"acl"`
}

// FromAsset converts a domain asset into its response form.
func FromAsset(a asset.Asset) AssetResponse {
	return AssetResponse{
		AssetID:     a.AssetID,
		Pointer:     a.Pointer,
		DataSubject: a.DataSubject,
		Version:     a.Version,
		Owner:       a.Owner,
		FileKey:     a.FileKey,
		ACL:         a.ACL,
	}
}

// FromAssets converts a range scan result.
func FromAssets(assets []asset.Asset) []AssetResponse {
	out := make([]AssetResponse, 0, len(assets))
	for _, a := range assets {
		out = append(out, FromAsset(a))
	}
	return out
}

// RecordResponse carries the formatted record line from a read.
type RecordResponse struct {
	Record string `json:"record"`
}

// ACLResponse carries the current access list of an asset.
type ACLResponse struct {
	AssetID string   `json:"assetID"`
	ACL     []string `json:"acl"`
}

// ReceiptResponse is the erasure receipt: the full read history of the record
// as recorded before its traces were removed.
type ReceiptResponse struct {
	AssetID     string `json:"assetID"`
	ReadHistory string `json:"readHistory"`
}

// SubjectQueryResponse lists the assets held about one data subject.
type SubjectQueryResponse struct {
	DataSubject string `json:"dataSubject"`
	Assets      string `json:"assets"`
}

// HistoryResponse carries the public-log history of a key.
type HistoryResponse struct {
	Key     string `json:"key"`
	History string `json:"history"`
}
