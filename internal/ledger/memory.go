package ledger

import (
	"context"
	"encoding/json"
	"sort"
	"sync"

	"medshare/pkg/platform/sentinel"
)

// InMemoryLedger is the development and unit-test backend. History retention
// mirrors the durable backends so delete/purge semantics can be exercised
// without infrastructure.
type InMemoryLedger struct {
	mu          sync.RWMutex
	private     map[string]map[string][]byte
	privateHist map[string]map[string][][]byte
	public      map[string][]byte
	publicHist  map[string][][]byte
}

func NewInMemory() *InMemoryLedger {
	return &InMemoryLedger{
		private:     make(map[string]map[string][]byte),
		privateHist: make(map[string]map[string][][]byte),
		public:      make(map[string][]byte),
		publicHist:  make(map[string][][]byte),
	}
}

func (l *InMemoryLedger) GetPrivate(_ context.Context, collection, key string) ([]byte, error) {
	l.mu.RLock()
	defer l.mu.RUnlock()
	value, ok := l.private[collection][key]
	if !ok {
		return nil, sentinel.ErrNotFound
	}
	return append([]byte(nil), value...), nil
}

func (l *InMemoryLedger) PutPrivate(_ context.Context, collection, key string, value []byte) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.private[collection] == nil {
		l.private[collection] = make(map[string][]byte)
		l.privateHist[collection] = make(map[string][][]byte)
	}
	stored := append([]byte(nil), value...)
	l.private[collection][key] = stored
	l.privateHist[collection][key] = append(l.privateHist[collection][key], stored)
	return nil
}

func (l *InMemoryLedger) DelPrivate(_ context.Context, collection, key string) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	delete(l.private[collection], key)
	return nil
}

func (l *InMemoryLedger) PurgePrivate(_ context.Context, collection, key string) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	delete(l.private[collection], key)
	delete(l.privateHist[collection], key)
	return nil
}

func (l *InMemoryLedger) PrivateByRange(_ context.Context, collection, start, end string) ([]KV, error) {
	l.mu.RLock()
	defer l.mu.RUnlock()
	keys := make([]string, 0, len(l.private[collection]))
	for key := range l.private[collection] {
		if key < start {
			continue
		}
		if end != "" && key >= end {
			continue
		}
		keys = append(keys, key)
	}
	sort.Strings(keys)
	out := make([]KV, 0, len(keys))
	for _, key := range keys {
		out = append(out, KV{Key: key, Value: append([]byte(nil), l.private[collection][key]...)})
	}
	return out, nil
}

func (l *InMemoryLedger) PrivateQuery(ctx context.Context, collection string, sel Selector) ([]KV, error) {
	all, err := l.PrivateByRange(ctx, collection, "", "")
	if err != nil {
		return nil, err
	}
	out := make([]KV, 0, len(all))
	for _, kv := range all {
		if matchesSelector(kv.Value, sel) {
			out = append(out, kv)
		}
	}
	return out, nil
}

func (l *InMemoryLedger) PutState(_ context.Context, key string, value []byte) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	stored := append([]byte(nil), value...)
	l.public[key] = stored
	l.publicHist[key] = append(l.publicHist[key], stored)
	return nil
}

func (l *InMemoryLedger) GetState(_ context.Context, key string) ([]byte, error) {
	l.mu.RLock()
	defer l.mu.RUnlock()
	value, ok := l.public[key]
	if !ok {
		return nil, sentinel.ErrNotFound
	}
	return append([]byte(nil), value...), nil
}

func (l *InMemoryLedger) HistoryForKey(_ context.Context, key string) ([][]byte, error) {
	l.mu.RLock()
	defer l.mu.RUnlock()
	hist := l.publicHist[key]
	out := make([][]byte, 0, len(hist))
	for _, v := range hist {
		out = append(out, append([]byte(nil), v...))
	}
	return out, nil
}

// matchesSelector reports whether the JSON value has sel.Field equal to
// sel.Value as a string. Non-JSON values never match.
func matchesSelector(value []byte, sel Selector) bool {
	var fields map[string]any
	if err := json.Unmarshal(value, &fields); err != nil {
		return false
	}
	got, ok := fields[sel.Field].(string)
	return ok && got == sel.Value
}
