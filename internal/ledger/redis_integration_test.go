//go:build integration

package ledger_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/suite"

	"medshare/internal/ledger"
	"medshare/pkg/platform/sentinel"
	"medshare/pkg/testutil/containers"
)

type RedisLedgerSuite struct {
	suite.Suite
	redis  *containers.RedisContainer
	ledger *ledger.RedisLedger
}

func TestRedisLedgerSuite(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test in short mode")
	}
	suite.Run(t, new(RedisLedgerSuite))
}

func (s *RedisLedgerSuite) SetupSuite() {
	s.redis = containers.NewRedisContainer(s.T())
	s.ledger = ledger.NewRedis(s.redis.Client)
}

func (s *RedisLedgerSuite) SetupTest() {
	s.Require().NoError(s.redis.FlushAll(context.Background()))
}

func (s *RedisLedgerSuite) TestPrivateLifecycle() {
	ctx := context.Background()
	const coll = "medCollection"

	_, err := s.ledger.GetPrivate(ctx, coll, "a1")
	s.ErrorIs(err, sentinel.ErrNotFound)

	s.Require().NoError(s.ledger.PutPrivate(ctx, coll, "a1", []byte("v1")))
	got, err := s.ledger.GetPrivate(ctx, coll, "a1")
	s.NoError(err)
	s.Equal([]byte("v1"), got)

	s.Require().NoError(s.ledger.DelPrivate(ctx, coll, "a1"))
	_, err = s.ledger.GetPrivate(ctx, coll, "a1")
	s.ErrorIs(err, sentinel.ErrNotFound)
}

func (s *RedisLedgerSuite) TestRangeQueryLexicalBounds() {
	ctx := context.Background()
	const coll = "medCollection"
	for _, key := range []string{"a1", "a2", "a3", "b1"} {
		s.Require().NoError(s.ledger.PutPrivate(ctx, coll, key, []byte(key)))
	}

	kvs, err := s.ledger.PrivateByRange(ctx, coll, "a1", "a3")
	s.NoError(err)
	s.Len(kvs, 2)
	s.Equal("a1", kvs[0].Key)
	s.Equal("a2", kvs[1].Key)

	kvs, err = s.ledger.PrivateByRange(ctx, coll, "", "")
	s.NoError(err)
	s.Len(kvs, 4)

	// Deleted keys fall out of the range index.
	s.Require().NoError(s.ledger.DelPrivate(ctx, coll, "a2"))
	kvs, err = s.ledger.PrivateByRange(ctx, coll, "a1", "a3")
	s.NoError(err)
	s.Len(kvs, 1)
}

func (s *RedisLedgerSuite) TestPublicHistoryAndPurge() {
	ctx := context.Background()
	const coll = "medCollection"

	s.Require().NoError(s.ledger.PutState(ctx, "a1_read", []byte("r1")))
	s.Require().NoError(s.ledger.PutState(ctx, "a1_read", []byte("r2")))

	hist, err := s.ledger.HistoryForKey(ctx, "a1_read")
	s.NoError(err)
	s.Equal([][]byte{[]byte("r1"), []byte("r2")}, hist)

	s.Require().NoError(s.ledger.PutPrivate(ctx, coll, "a1", []byte("v1")))
	s.Require().NoError(s.ledger.PurgePrivate(ctx, coll, "a1"))
	_, err = s.ledger.GetPrivate(ctx, coll, "a1")
	s.ErrorIs(err, sentinel.ErrNotFound)
}
