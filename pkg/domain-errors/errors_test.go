package domainerrors

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/suite"
)

// DomainErrorsSuite tests the domain error primitives.
//
// Justification: these are the error primitives used at every trust boundary.
// Unit tests ensure invariants like "wrapped domain errors preserve original
// code" and "errors.Is matches by code" are maintained.
type DomainErrorsSuite struct {
	suite.Suite
}

func TestDomainErrorsSuite(t *testing.T) {
	suite.Run(t, new(DomainErrorsSuite))
}

func (s *DomainErrorsSuite) TestErrorInterface() {
	s.Run("returns message when present", func() {
		err := &Error{Code: CodeAssetNotFound, Message: "asset a1 not found"}
		s.Equal("asset a1 not found", err.Error())
	})

	s.Run("returns code when message is empty", func() {
		err := &Error{Code: CodeAssetNotFound}
		s.Equal("asset_not_found", err.Error())
	})
}

func (s *DomainErrorsSuite) TestWrapPreservesCode() {
	inner := New(CodeInvalidAccess, "caller not in acl")
	wrapped := Wrap(inner, CodeInternal, "operation failed")

	s.True(HasCode(wrapped, CodeInvalidAccess))
	s.False(HasCode(wrapped, CodeInternal))
	s.True(errors.Is(wrapped, inner.(*Error)))
}

func (s *DomainErrorsSuite) TestWrapForeignError() {
	inner := errors.New("connection refused")
	wrapped := Wrap(inner, CodeUnavailable, "ledger unreachable")

	s.True(HasCode(wrapped, CodeUnavailable))
	s.True(errors.Is(wrapped, inner))
}

func (s *DomainErrorsSuite) TestHasCodeOnNonDomainError() {
	s.False(HasCode(errors.New("plain"), CodeDataError))
	s.False(HasCode(nil, CodeDataError))
}
