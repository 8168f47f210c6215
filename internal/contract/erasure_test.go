package contract

import (
	"context"
	"strings"
	"testing"

	"github.com/stretchr/testify/suite"

	"medshare/internal/audit"
	"medshare/internal/identity"
	dErrors "medshare/pkg/domain-errors"
)

type ErasureSuite struct {
	suite.Suite
	svc      *Service
	recorder *audit.Recorder
	ctx      context.Context
}

func TestErasureSuite(t *testing.T) {
	suite.Run(t, new(ErasureSuite))
}

func (s *ErasureSuite) SetupTest() {
	s.svc, _, s.recorder = newTestService(s.T())
	s.ctx = context.Background()
}

func (s *ErasureSuite) TestErasePresentAsset() {
	_, err := s.svc.CreateAsset(s.ctx, org1Doctor, validInput("asset1"))
	s.Require().NoError(err)
	_, err = s.svc.ReadAsset(s.ctx, org1Doctor, "asset1")
	s.Require().NoError(err)
	s.Require().NoError(s.svc.UpdateACLPermission(s.ctx, org1Doctor, "asset1", "Org2MSP"))
	_, err = s.svc.ReadAsset(s.ctx, org2Doctor, "asset1")
	s.Require().NoError(err)

	receipt, err := s.svc.EraseData(s.ctx, org1Doctor, "asset1")
	s.Require().NoError(err)

	s.Run("receipt lists every recorded read", func() {
		lines := strings.Split(receipt, ",")
		s.Len(lines, 2)
		s.Contains(lines[0], "Asset asset1 read by Org1MSP")
		s.Contains(lines[1], "Asset asset1 read by Org2MSP")
	})

	s.Run("the confidential record is gone", func() {
		_, err := s.svc.ReadAsset(s.ctx, org1Doctor, "asset1")
		s.True(dErrors.HasCode(err, dErrors.CodeAssetNotFound))
	})

	s.Run("both deletion and erasure entries are written", func() {
		del, found, err := s.recorder.Latest(s.ctx, "asset1", audit.KindDeletion)
		s.Require().NoError(err)
		s.True(found)
		s.Equal("Org1MSP", del.Actor)

		ers, found, err := s.recorder.Latest(s.ctx, "asset1", audit.KindErasure)
		s.Require().NoError(err)
		s.True(found)
		s.Equal("alice", ers.Subject)
	})
}

func (s *ErasureSuite) TestEraseAfterDelete() {
	_, err := s.svc.CreateAsset(s.ctx, org1Doctor, validInput("asset1"))
	s.Require().NoError(err)
	_, err = s.svc.ReadAsset(s.ctx, org1Doctor, "asset1")
	s.Require().NoError(err)
	s.Require().NoError(s.svc.DeleteAsset(s.ctx, org1Doctor, "asset1"))

	// Justification: after deletion the asset record no longer exists, so
	// authorization context must be recovered from the deletion tombstone.
	s.Run("the deleting org erases residual traces", func() {
		receipt, err := s.svc.EraseData(s.ctx, org1Doctor, "asset1")
		s.Require().NoError(err)
		s.Contains(receipt, "Asset asset1 read by Org1MSP")

		entry, found, err := s.recorder.Latest(s.ctx, "asset1", audit.KindErasure)
		s.Require().NoError(err)
		s.True(found)
		s.Equal("alice", entry.Subject)
	})

	s.Run("a different org is denied", func() {
		_, err := s.svc.EraseData(s.ctx, org2Doctor, "asset1")
		s.True(dErrors.HasCode(err, dErrors.CodeInvalidAccess))
	})

	s.Run("a patient who is not the recorded subject is denied", func() {
		notAlice := identity.New("Org1MSP", "patient", "x509::CN=carol,OU=client::CN=ca.org1.example.com,O=org1.example.com,C=US")
		_, err := s.svc.EraseData(s.ctx, notAlice, "asset1")
		s.True(dErrors.HasCode(err, dErrors.CodeInvalidAccess))
	})

	s.Run("the recorded subject erases their own traces", func() {
		_, err := s.svc.EraseData(s.ctx, org1Alice, "asset1")
		s.NoError(err)
	})

	s.Run("repeating the erasure still succeeds", func() {
		_, err := s.svc.EraseData(s.ctx, org1Doctor, "asset1")
		s.NoError(err)
	})
}

func (s *ErasureSuite) TestEraseByPatientOnPresentAsset() {
	_, err := s.svc.CreateAsset(s.ctx, org1Doctor, validInput("asset1"))
	s.Require().NoError(err)

	s.Run("the data subject erases their live record", func() {
		_, err := s.svc.EraseData(s.ctx, org1Alice, "asset1")
		s.Require().NoError(err)
		_, err = s.svc.ReadAsset(s.ctx, org1Doctor, "asset1")
		s.True(dErrors.HasCode(err, dErrors.CodeAssetNotFound))
	})
}

func (s *ErasureSuite) TestEraseNeverCreatedAsset() {
	_, err := s.svc.EraseData(s.ctx, org1Doctor, "ghost")
	s.True(dErrors.HasCode(err, dErrors.CodeAssetNotFound))

	_, found, ferr := s.recorder.Latest(s.ctx, "ghost", audit.KindErasure)
	s.Require().NoError(ferr)
	s.False(found, "failed erasure must leave no audit trace")
}
