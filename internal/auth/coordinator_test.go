package auth

import (
	"time"

	"go.uber.org/mock/gomock"

	"mindspend/internal/backend/provider"
	"mindspend/internal/flags"
	"mindspend/internal/profile"
	domainerrors "mindspend/pkg/domain-errors"
)

func (s *CoordinatorSuite) TestNoSessionSettlesSignedOut() {
	s.start(nil, flags.Flags{})

	state := s.waitFor(func(st State) bool { return !st.Loading })
	s.Nil(state.User)
	s.Nil(state.Session)
	s.Nil(state.Profile)
}

func (s *CoordinatorSuite) TestInitialSessionLoadsProfile() {
	sess := s.newSession("ada@test.dev")
	prof := &profile.Profile{ID: sess.User.ID, Email: sess.User.Email, FirstName: "Ada"}
	s.loader.EXPECT().FetchOnce(gomock.Any(), sess.User.ID).Return(prof, nil)

	s.start(sess, flags.Flags{})

	state := s.waitFor(func(st State) bool { return !st.Loading })
	s.Require().NotNil(state.User)
	s.Equal(sess.User.ID, state.User.ID)
	s.Require().NotNil(state.Profile)
	s.Equal("Ada", state.Profile.FirstName)
}

func (s *CoordinatorSuite) TestSignedOutFlagKeepsLaunchSignedOut() {
	// A persisted explicit sign-out beats a lingering stored token.
	sess := s.newSession("ada@test.dev")

	s.start(sess, flags.Flags{UserSignedOut: true})

	state := s.waitFor(func(st State) bool { return !st.Loading })
	s.Nil(state.User)
	s.Nil(state.Profile)
}

func (s *CoordinatorSuite) TestAccountDeletedFlagShortCircuits() {
	sess := s.newSession("ada@test.dev")

	s.start(sess, flags.Flags{AccountDeleted: true})

	state := s.waitFor(func(st State) bool { return !st.Loading })
	s.Nil(state.User)
	s.Nil(state.Session)
}

func (s *CoordinatorSuite) TestSignInRetriesThroughProvisioningLag() {
	s.start(nil, flags.Flags{})
	s.waitFor(func(st State) bool { return !st.Loading })

	sess := s.newSession("ada@test.dev")
	prof := &profile.Profile{ID: sess.User.ID, Email: sess.User.Email, FirstName: "Ada"}
	s.loader.EXPECT().FetchOnce(gomock.Any(), sess.User.ID).Return(nil, nil)
	s.loader.EXPECT().FetchWithRetry(gomock.Any(), sess.User.ID, 3, 5*time.Millisecond).Return(prof, nil)

	s.handler(provider.EventSignedIn, sess)

	state := s.waitFor(func(st State) bool { return st.Profile != nil })
	s.Equal("Ada", state.Profile.FirstName)
}

func (s *CoordinatorSuite) TestTokenRefreshDoesNotRetryMissingProfile() {
	sess := s.newSession("ada@test.dev")
	s.loader.EXPECT().FetchOnce(gomock.Any(), sess.User.ID).Return(nil, nil).Times(2)

	s.start(sess, flags.Flags{})
	s.waitFor(func(st State) bool { return !st.Loading })

	s.handler(provider.EventTokenRefreshed, sess)

	state := s.waitFor(func(st State) bool { return !st.Loading && st.User != nil })
	s.Nil(state.Profile)
}

func (s *CoordinatorSuite) TestSignedOutEventClearsState() {
	sess := s.newSession("ada@test.dev")
	prof := &profile.Profile{ID: sess.User.ID, FirstName: "Ada"}
	s.loader.EXPECT().FetchOnce(gomock.Any(), sess.User.ID).Return(prof, nil)

	s.start(sess, flags.Flags{})
	s.waitFor(func(st State) bool { return st.Profile != nil })

	s.handler(provider.EventSignedOut, nil)

	state := s.waitFor(func(st State) bool { return st.User == nil && !st.Loading })
	s.Nil(state.Session)
	s.Nil(state.Profile)
}

func (s *CoordinatorSuite) TestPasswordRecoverySignalsSideChannel() {
	sess := s.newSession("ada@test.dev")
	s.loader.EXPECT().FetchOnce(gomock.Any(), sess.User.ID).Return(nil, nil).AnyTimes()

	s.start(nil, flags.Flags{})
	s.waitFor(func(st State) bool { return !st.Loading })

	s.handler(provider.EventPasswordRecovery, sess)

	select {
	case <-s.coordinator.Recovery():
	case <-time.After(time.Second):
		s.Fail("no recovery signal")
	}

	state := s.waitFor(func(st State) bool { return st.User != nil })
	s.Equal(sess.User.ID, state.User.ID)
}

func (s *CoordinatorSuite) TestLoaderFailureDegradesToNilProfile() {
	sess := s.newSession("ada@test.dev")
	s.loader.EXPECT().FetchOnce(gomock.Any(), sess.User.ID).
		Return(nil, domainerrors.New(domainerrors.CodeStoreUnavailable, "store down"))

	s.start(sess, flags.Flags{})

	state := s.waitFor(func(st State) bool { return !st.Loading })
	s.Require().NotNil(state.User)
	s.Nil(state.Profile)
}

func (s *CoordinatorSuite) TestSubscribeDeliversCurrentStateImmediately() {
	s.start(nil, flags.Flags{})
	s.waitFor(func(st State) bool { return !st.Loading })

	var seen State
	seen.Loading = true
	cancel := s.coordinator.Subscribe(func(st State) { seen = st })
	defer cancel()

	s.False(seen.Loading)
}

func (s *CoordinatorSuite) TestCancelledWatcherStopsReceiving() {
	sess := s.newSession("ada@test.dev")
	s.loader.EXPECT().FetchOnce(gomock.Any(), sess.User.ID).Return(nil, nil).AnyTimes()

	s.start(nil, flags.Flags{})
	s.waitFor(func(st State) bool { return !st.Loading })

	calls := 0
	cancel := s.coordinator.Subscribe(func(State) { calls++ })
	cancel()
	before := calls

	s.handler(provider.EventTokenRefreshed, sess)
	s.waitFor(func(st State) bool { return st.User != nil })
	s.Equal(before, calls)
}
