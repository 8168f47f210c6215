package ledger

import "context"

// KV is one entry returned by range and rich queries.
type KV struct {
	Key   string
	Value []byte
}

// Selector is an equality filter over one JSON field of the stored value.
// Rich queries are point-in-time and non-transactional: results may include
// phantom reads against concurrent writers and must never feed a write
// decision.
type Selector struct {
	Field string
	Value string
}

// Ledger is the record store adapter: a thin synchronous wrapper over the
// replicated key space. It carries no business logic. Backends return
// sentinel.ErrNotFound for absent keys and wrap transport failures in
// sentinel.ErrUnavailable; the contract layer treats the latter as fatal and
// never retries.
//
// Private state is collection-scoped and versioned: every PutPrivate appends
// to the key's durable history, DelPrivate removes the live value but keeps
// history, PurgePrivate removes both. Public state is the append-only audit
// log; PutState appends to the key's history and HistoryForKey reads it back
// oldest to newest.
type Ledger interface {
	GetPrivate(ctx context.Context, collection, key string) ([]byte, error)
	PutPrivate(ctx context.Context, collection, key string, value []byte) error
	DelPrivate(ctx context.Context, collection, key string) error
	PurgePrivate(ctx context.Context, collection, key string) error

	// PrivateByRange returns entries with start <= key < end in lexical key
	// order. Empty bounds are unbounded on that side.
	PrivateByRange(ctx context.Context, collection, start, end string) ([]KV, error)
	// PrivateQuery returns entries whose JSON value matches the selector.
	PrivateQuery(ctx context.Context, collection string, sel Selector) ([]KV, error)

	PutState(ctx context.Context, key string, value []byte) error
	GetState(ctx context.Context, key string) ([]byte, error)
	// HistoryForKey returns all historical public values for key, oldest to
	// newest. An unknown key yields an empty history, not an error.
	HistoryForKey(ctx context.Context, key string) ([][]byte, error)
}
