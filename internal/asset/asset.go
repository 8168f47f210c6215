package asset

import (
	"encoding/json"
	"fmt"
	"slices"

	dErrors "medshare/pkg/domain-errors"
	pstrings "medshare/pkg/platform/strings"
)

// Asset is the confidential record. AssetID is the primary identity and is
// immutable once created; only ACL may change afterwards.
type Asset struct {
	// AssetID is the unique key within the confidential collection.
	AssetID string `json:"assetID"`
	// Pointer is an opaque reference to the off-store content location.
	Pointer string `json:"pointer"`
	// DataSubject identifies the person the record is about.
	DataSubject string `json:"dataSubject"`
	// Version is set at creation and never decreases.
	Version int `json:"version"`
	// Owner is the full distinguished-name string of the creating identity.
	// The owning organization is derived from its O= component.
	Owner string `json:"owner"`
	// FileKey is an opaque key material reference.
	FileKey string `json:"filekey"`
	// ACL lists organizations permitted to read the record. The owner's
	// organization is authorized through the owner-match rule independently
	// of ACL contents.
	ACL []string `json:"acl"`
}

// Serialize renders the canonical JSON form stored in the confidential
// collection.
func (a Asset) Serialize() ([]byte, error) {
	data, err := json.Marshal(a)
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeDataError, "serialize asset")
	}
	return data, nil
}

// raw mirrors Asset with pointer fields so absent and mistyped fields are
// distinguishable from zero values during deserialization.
type raw struct {
	AssetID     *string          `json:"assetID"`
	Pointer     *string          `json:"pointer"`
	DataSubject *string          `json:"dataSubject"`
	Version     *int             `json:"version"`
	Owner       *string          `json:"owner"`
	FileKey     *string          `json:"filekey"`
	ACL         *json.RawMessage `json:"acl"`
}

// Deserialize decodes a stored record. Any absent or wrongly typed required
// field is a data error: stored state is trusted input and corruption must
// surface loudly rather than as zero values.
func Deserialize(data []byte) (Asset, error) {
	var r raw
	if err := json.Unmarshal(data, &r); err != nil {
		return Asset{}, dErrors.Wrap(err, dErrors.CodeDataError, "deserialize asset: "+err.Error())
	}
	switch {
	case r.AssetID == nil:
		return Asset{}, dErrors.New(dErrors.CodeDataError, "deserialize asset: missing assetID")
	case r.Pointer == nil:
		return Asset{}, dErrors.New(dErrors.CodeDataError, "deserialize asset: missing pointer")
	case r.DataSubject == nil:
		return Asset{}, dErrors.New(dErrors.CodeDataError, "deserialize asset: missing dataSubject")
	case r.Version == nil:
		return Asset{}, dErrors.New(dErrors.CodeDataError, "deserialize asset: missing or non-integer version")
	case r.Owner == nil:
		return Asset{}, dErrors.New(dErrors.CodeDataError, "deserialize asset: missing owner")
	case r.FileKey == nil:
		return Asset{}, dErrors.New(dErrors.CodeDataError, "deserialize asset: missing filekey")
	case r.ACL == nil:
		return Asset{}, dErrors.New(dErrors.CodeDataError, "deserialize asset: missing acl")
	}
	var acl []string
	if err := json.Unmarshal(*r.ACL, &acl); err != nil {
		return Asset{}, dErrors.New(dErrors.CodeDataError, "deserialize asset: acl is not a string array")
	}
	return Asset{
		AssetID:     *r.AssetID,
		Pointer:     *r.Pointer,
		DataSubject: *r.DataSubject,
		Version:     *r.Version,
		Owner:       *r.Owner,
		FileKey:     *r.FileKey,
		ACL:         acl,
	}, nil
}

// ACLContains reports whether org is currently granted read access.
func (a Asset) ACLContains(org string) bool {
	return slices.Contains(a.ACL, org)
}

// GrantACL appends org to the ACL. Granting an org that already holds access
// is a no-op; the list never accumulates duplicates.
func (a *Asset) GrantACL(org string) {
	a.ACL = pstrings.DedupeAndTrim(append(a.ACL, org))
}

// RevokeACL removes every occurrence of org from the ACL. Absent entries are
// a no-op.
func (a *Asset) RevokeACL(org string) {
	a.ACL = slices.DeleteFunc(a.ACL, func(s string) bool { return s == org })
}

// Format renders the read projection returned to authorized callers.
func (a Asset) Format() string {
	return fmt.Sprintf("Asset ID: %s,  Data Subject: %s,  Version: %d,  Owner: %s,  File Key: %s,  Pointer: %s",
		a.AssetID, a.DataSubject, a.Version, a.Owner, a.FileKey, a.Pointer)
}

// Equal compares record identity: assetID, data subject, owner and version.
// ACL, pointer and filekey are excluded. Used by tests and diagnostics only,
// never by authorization rules.
func (a Asset) Equal(other Asset) bool {
	return a.AssetID == other.AssetID &&
		a.DataSubject == other.DataSubject &&
		a.Owner == other.Owner &&
		a.Version == other.Version
}
