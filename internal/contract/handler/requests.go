package handler

import "medshare/internal/contract"

// CreateAssetRequest is the JSON body for POST /assets.
type CreateAssetRequest struct {
	AssetID     string   `json:"assetID"`
	Pointer     string   `json:"pointer"`
	DataSubject string   `json:"dataSubject"`
	Version     int      `json:"version"`
	FileKey     string   `json:"filekey"`
	ACL         []string `json:"acl"`
}

// ToInput converts the transport request into the contract input. Field
// validation belongs to the service so the rule set lives in one place.
func (r CreateAssetRequest) ToInput() contract.CreateAssetInput {
	return contract.CreateAssetInput{
		AssetID:     r.AssetID,
		Pointer:     r.Pointer,
		DataSubject: r.DataSubject,
		Version:     r.Version,
		FileKey:     r.FileKey,
		ACL:         r.ACL,
	}
}

// GrantRequest is the JSON body for POST /assets/{assetID}/acl.
type GrantRequest struct {
	Org string `json:"org"`
}

// RequestAccessRequest is the JSON body for POST /assets/{assetID}/requests.
type RequestAccessRequest struct {
	Purpose string `json:"purpose"`
}

// UploadKeyRequest is the JSON body for POST /keys.
type UploadKeyRequest struct {
	Key     string `json:"key"`
	KeyType string `json:"keyType"`
}
