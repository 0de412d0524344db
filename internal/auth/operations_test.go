package auth

import (
	"context"

	"go.uber.org/mock/gomock"

	"mindspend/internal/backend/provider"
	"mindspend/internal/email"
	"mindspend/internal/flags"
	"mindspend/internal/profile"
	domainerrors "mindspend/pkg/domain-errors"
)

func (s *CoordinatorSuite) TestSignInRejectsInvalidAddress() {
	s.start(nil, flags.Flags{})
	s.waitFor(func(st State) bool { return !st.Loading })

	err := s.coordinator.SignIn(context.Background(), "not-an-address", "password1")
	s.True(domainerrors.HasCode(err, domainerrors.CodeValidation))
}

func (s *CoordinatorSuite) TestSignInClearsDepartureFlags() {
	s.start(nil, flags.Flags{})
	s.waitFor(func(st State) bool { return !st.Loading })

	sess := s.newSession("ada@test.dev")
	s.provider.EXPECT().SignIn(gomock.Any(), "ada@test.dev", "password1").Return(sess, nil)
	s.flagStore.EXPECT().SetUserSignedOut(false).Return(nil)
	s.flagStore.EXPECT().SetAccountDeleted(false).Return(nil)

	s.Require().NoError(s.coordinator.SignIn(context.Background(), "ada@test.dev", "password1"))
}

func (s *CoordinatorSuite) TestSignUpDerivesNameAndSendsVerification() {
	s.start(nil, flags.Flags{})
	s.waitFor(func(st State) bool { return !st.Loading })

	sess := s.newSession("ada.lovelace@test.dev")
	s.provider.EXPECT().SignUp(gomock.Any(), "ada.lovelace@test.dev", "password1", gomock.Any()).
		DoAndReturn(func(_ context.Context, _, _ string, metadata map[string]string) (*provider.Session, error) {
			s.Equal("Ada", metadata["first_name"])
			return sess, nil
		})
	s.flagStore.EXPECT().SetUserSignedOut(false).Return(nil)
	s.flagStore.EXPECT().SetAccountDeleted(false).Return(nil)
	s.mailer.EXPECT().SendAsync(email.KindVerification, "ada.lovelace@test.dev")

	err := s.coordinator.SignUp(context.Background(), "ada.lovelace@test.dev", "password1", "", "")
	s.Require().NoError(err)
}

func (s *CoordinatorSuite) TestSignUpRejectsShortPassword() {
	s.start(nil, flags.Flags{})
	s.waitFor(func(st State) bool { return !st.Loading })

	err := s.coordinator.SignUp(context.Background(), "ada@test.dev", "pw", "Ada", "Lovelace")
	s.True(domainerrors.HasCode(err, domainerrors.CodeValidation))
}

func (s *CoordinatorSuite) TestSignOutPersistsFlagBeforeProviderCall() {
	s.start(nil, flags.Flags{})
	s.waitFor(func(st State) bool { return !st.Loading })

	gomock.InOrder(
		s.flagStore.EXPECT().SetUserSignedOut(true).Return(nil),
		s.provider.EXPECT().SignOut(gomock.Any()).Return(nil),
	)

	s.Require().NoError(s.coordinator.SignOut(context.Background()))
}

func (s *CoordinatorSuite) TestRequestPasswordResetDispatchesMail() {
	s.start(nil, flags.Flags{})
	s.waitFor(func(st State) bool { return !st.Loading })

	s.provider.EXPECT().RequestPasswordReset(gomock.Any(), "ada@test.dev").Return(nil)
	s.mailer.EXPECT().SendAsync(email.KindPasswordReset, "ada@test.dev")

	s.Require().NoError(s.coordinator.RequestPasswordReset(context.Background(), "ada@test.dev"))
}

func (s *CoordinatorSuite) TestDeleteAccountRequiresAuthenticatedUser() {
	s.start(nil, flags.Flags{})
	s.waitFor(func(st State) bool { return !st.Loading })

	err := s.coordinator.DeleteAccount(context.Background())
	s.True(domainerrors.HasCode(err, domainerrors.CodeUnauthorized))
}

func (s *CoordinatorSuite) TestDeleteAccountFlagsMailsAndSignsOut() {
	sess := s.newSession("ada@test.dev")
	prof := &profile.Profile{ID: sess.User.ID, FirstName: "Ada"}
	s.loader.EXPECT().FetchOnce(gomock.Any(), sess.User.ID).Return(prof, nil)

	s.start(sess, flags.Flags{})
	s.waitFor(func(st State) bool { return st.User != nil })

	s.flagStore.EXPECT().SetAccountDeleted(true).Return(nil)
	s.mailer.EXPECT().SendAsync(email.KindDeletionConfirmation, "ada@test.dev")
	s.provider.EXPECT().SignOut(gomock.Any()).Return(nil)

	s.Require().NoError(s.coordinator.DeleteAccount(context.Background()))
}
