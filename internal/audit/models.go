package audit

import (
	"encoding/json"
	"fmt"
	"time"

	dErrors "medshare/pkg/domain-errors"
)

// Kind classifies audit entries. Together with the asset id it determines the
// public-log key, so the set is closed and the strings are part of the wire
// contract.
type Kind string

const (
	KindRead     Kind = "read"
	KindCreation Kind = "creation"
	KindACL      Kind = "acl"
	KindDeletion Kind = "deletion"
	KindErasure  Kind = "erasure"
	KindRequest  Kind = "request"
)

// Entry is one immutable, publicly readable audit record. Entries are encoded
// as JSON with a fixed field set so later consumers (including the erasure
// correlation) read fields instead of parsing prose.
type Entry struct {
	// ID uniquely identifies this entry across the whole trail.
	ID string `json:"id"`
	// Kind is the action class; it also picks the public-log key suffix.
	Kind Kind `json:"kind"`
	// AssetID is the confidential record the action touched.
	AssetID string `json:"assetID"`
	// Actor is the organization (MSP id) that performed the action.
	Actor string `json:"actor"`
	// ActorID is the common name of the acting identity, when known.
	ActorID string `json:"actorID,omitempty"`
	// Subject is the data subject of the asset at the time of the action.
	Subject string `json:"subject,omitempty"`
	// Org is the organization an ACL action granted to or revoked from.
	Org string `json:"org,omitempty"`
	// Collection names the confidential collection involved.
	Collection string `json:"collection,omitempty"`
	// Purpose carries the stated usage purpose of an access request.
	Purpose string `json:"purpose,omitempty"`
	// Timestamp is when the action was decided.
	Timestamp time.Time `json:"timestamp"`
}

// Key returns the deterministic public-log key for this entry.
func (e Entry) Key() string {
	return e.AssetID + "_" + string(e.Kind)
}

// Encode renders the canonical JSON form written to the public log.
func (e Entry) Encode() ([]byte, error) {
	data, err := json.Marshal(e)
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeDataError, "encode audit entry")
	}
	return data, nil
}

// Decode parses a stored audit entry. A corrupt entry is a data error: the
// trail is the basis for erasure authorization and must not be guessed at.
func Decode(data []byte) (Entry, error) {
	var e Entry
	if err := json.Unmarshal(data, &e); err != nil {
		return Entry{}, dErrors.Wrap(err, dErrors.CodeDataError, "decode audit entry: "+err.Error())
	}
	if e.Kind == "" || e.AssetID == "" {
		return Entry{}, dErrors.New(dErrors.CodeDataError, "decode audit entry: missing kind or assetID")
	}
	return e, nil
}

// String renders the entry as a single human-readable line, used for history
// receipts returned to callers.
func (e Entry) String() string {
	ts := e.Timestamp.UTC().Format(time.RFC3339)
	switch e.Kind {
	case KindRead:
		return fmt.Sprintf("Asset %s read by %s at %s", e.AssetID, e.Actor, ts)
	case KindCreation:
		return fmt.Sprintf("Asset %s created by %s in %s at %s", e.AssetID, e.Actor, e.Collection, ts)
	case KindACL:
		return fmt.Sprintf("ACL of asset %s changed for %s by %s at %s", e.AssetID, e.Org, e.Actor, ts)
	case KindDeletion:
		return fmt.Sprintf("Asset %s of %s was deleted by %s with id %s from %s at %s",
			e.AssetID, e.Subject, e.Actor, e.ActorID, e.Collection, ts)
	case KindErasure:
		return fmt.Sprintf("Asset %s was erased by %s with id %s from %s at %s",
			e.AssetID, e.Actor, e.ActorID, e.Collection, ts)
	case KindRequest:
		return fmt.Sprintf("User %s requested access to asset %s for organization %s at %s, purpose: %s",
			e.ActorID, e.AssetID, e.Actor, ts, e.Purpose)
	default:
		return fmt.Sprintf("Asset %s %s by %s at %s", e.AssetID, e.Kind, e.Actor, ts)
	}
}
