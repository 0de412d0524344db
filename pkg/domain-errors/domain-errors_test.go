package domainerrors

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/suite"
)

// DomainErrorsSuite tests the error primitives used at every component
// boundary: "wrapped domain errors preserve the original code" and
// "errors.Is matches by code" are relied on by the coordinator and the
// collections when deciding between degrade, rollback, and surface.
type DomainErrorsSuite struct {
	suite.Suite
}

func TestDomainErrorsSuite(t *testing.T) {
	suite.Run(t, new(DomainErrorsSuite))
}

func (s *DomainErrorsSuite) TestErrorInterface() {
	s.Run("returns message when present", func() {
		err := &Error{Code: CodeStoreUnavailable, Message: "profiles query failed"}
		s.Equal("profiles query failed", err.Error())
	})

	s.Run("returns code when message is empty", func() {
		err := &Error{Code: CodeStoreUnavailable}
		s.Equal("store_unavailable", err.Error())
	})
}

func (s *DomainErrorsSuite) TestUnwrap() {
	s.Run("returns wrapped error", func() {
		inner := errors.New("connection refused")
		err := &Error{Code: CodeStoreUnavailable, Message: "query failed", Err: inner}
		s.Equal(inner, errors.Unwrap(err))
	})

	s.Run("returns nil when no wrapped error", func() {
		err := &Error{Code: CodeNotFound, Message: "not found"}
		s.Nil(err.Unwrap())
	})
}

func (s *DomainErrorsSuite) TestIsMatching() {
	s.Run("matches by code only", func() {
		err1 := &Error{Code: CodeMutationRejected, Message: "insert rejected"}
		err2 := &Error{Code: CodeMutationRejected, Message: "delete rejected"}
		s.True(errors.Is(err1, err2))
	})

	s.Run("does not match a different code", func() {
		err1 := &Error{Code: CodeValidation}
		err2 := &Error{Code: CodeMutationRejected}
		s.False(errors.Is(err1, err2))
	})

	s.Run("does not match plain errors", func() {
		s.False(errors.Is(New(CodeNotFound, "x"), errors.New("x")))
	})
}

func (s *DomainErrorsSuite) TestWrapPreservesCode() {
	inner := New(CodeUnauthorized, "session expired")
	wrapped := Wrap(inner, CodeInternal, "sign-in failed")

	s.True(HasCode(wrapped, CodeUnauthorized))
	s.False(HasCode(wrapped, CodeInternal))
	s.Equal("sign-in failed", wrapped.Error())
}

func (s *DomainErrorsSuite) TestHasCode() {
	err := Wrap(errors.New("timeout"), CodeStoreUnavailable, "select failed")
	s.True(HasCode(err, CodeStoreUnavailable))
	s.False(HasCode(err, CodeNotFound))
	s.False(HasCode(nil, CodeNotFound))
}
