package auth_test

import (
	"context"
	"io"
	"log/slog"
	"net/http/httptest"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"mindspend/internal/auth"
	"mindspend/internal/backend/backendtest"
	"mindspend/internal/backend/provider"
	"mindspend/internal/backend/store"
	"mindspend/internal/email"
	"mindspend/internal/flags"
	"mindspend/internal/profile"
	"mindspend/internal/session"
)

type harness struct {
	backend     *backendtest.Server
	provider    *provider.Client
	sessions    *session.Store
	coordinator *auth.Coordinator
}

func newHarness(t *testing.T, configure func(*backendtest.Server)) *harness {
	t.Helper()

	backend := backendtest.New()
	if configure != nil {
		configure(backend)
	}
	ts := httptest.NewServer(backend.Router)
	t.Cleanup(ts.Close)

	prov := provider.New(ts.URL, "test-key")
	t.Cleanup(prov.Close)

	storeClient := store.New(ts.URL, "test-key", prov.AccessToken)
	sessions := session.New(prov)
	t.Cleanup(sessions.Close)

	flagStore, err := flags.Open(filepath.Join(t.TempDir(), "flags.json"))
	require.NoError(t, err)

	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	loader := profile.NewLoader(profile.NewRemoteStore(storeClient), profile.WithLogger(logger))
	mailer := email.New(ts.URL, "test-key", email.WithLogger(logger))

	coordinator := auth.New(sessions, loader, flagStore,
		auth.WithLogger(logger),
		auth.WithProvider(prov),
		auth.WithMailer(mailer),
		auth.WithRetryPolicy(5, 50*time.Millisecond),
	)
	t.Cleanup(coordinator.Close)

	return &harness{
		backend:     backend,
		provider:    prov,
		sessions:    sessions,
		coordinator: coordinator,
	}
}

func waitForState(t *testing.T, c *auth.Coordinator, cond func(auth.State) bool) auth.State {
	t.Helper()
	var last auth.State
	require.Eventually(t, func() bool {
		last = c.CurrentState()
		return cond(last)
	}, 3*time.Second, 10*time.Millisecond)
	return last
}

// A brand-new signup races the backend's provisioning trigger: the
// profile row appears only after a lag, and the retry loop must bridge
// it so the user's name shows up without any manual refresh.
func TestSignUpBridgesProvisioningLag(t *testing.T) {
	h := newHarness(t, func(b *backendtest.Server) {
		b.ProvisionDelay = 120 * time.Millisecond
	})
	waitForState(t, h.coordinator, func(st auth.State) bool { return !st.Loading })

	err := h.coordinator.SignUp(context.Background(), "ada@numbers.dev", "engine123", "Ada", "Lovelace")
	require.NoError(t, err)

	state := waitForState(t, h.coordinator, func(st auth.State) bool { return st.Profile != nil })
	require.Equal(t, "Ada", state.Profile.FirstName)
	require.Equal(t, "ada@numbers.dev", state.Profile.Email)

	require.Eventually(t, func() bool {
		for _, m := range h.backend.SentMail() {
			if m.Kind == string(email.KindVerification) && m.To == "ada@numbers.dev" {
				return true
			}
		}
		return false
	}, 2*time.Second, 20*time.Millisecond)
}

func TestSignInThenSignOutClearsEverything(t *testing.T) {
	h := newHarness(t, nil)
	userID := h.backend.Register("ada@numbers.dev", "engine123", nil)
	h.backend.Seed("profiles", map[string]any{
		"id":         userID.String(),
		"email":      "ada@numbers.dev",
		"first_name": "Ada",
		"last_name":  "Lovelace",
		"created_at": time.Now().UTC().Format(time.RFC3339Nano),
	})
	waitForState(t, h.coordinator, func(st auth.State) bool { return !st.Loading })

	require.NoError(t, h.coordinator.SignIn(context.Background(), "ada@numbers.dev", "engine123"))
	state := waitForState(t, h.coordinator, func(st auth.State) bool { return st.Profile != nil })
	require.Equal(t, "Lovelace", state.Profile.LastName)

	require.NoError(t, h.coordinator.SignOut(context.Background()))
	state = waitForState(t, h.coordinator, func(st auth.State) bool { return st.User == nil && !st.Loading })
	require.Nil(t, state.Session)
	require.Nil(t, state.Profile)
	require.Nil(t, h.sessions.Current())
}

func TestRecoveryTokenRoutesToSideChannel(t *testing.T) {
	h := newHarness(t, nil)
	h.backend.Register("ada@numbers.dev", "engine123", nil)
	waitForState(t, h.coordinator, func(st auth.State) bool { return !st.Loading })

	require.NoError(t, h.coordinator.RequestPasswordReset(context.Background(), "ada@numbers.dev"))
	require.Eventually(t, func() bool {
		return len(h.backend.ResetRequests()) > 0
	}, 2*time.Second, 20*time.Millisecond)

	token := h.backend.IssueRecoveryToken("ada@numbers.dev")
	require.NotEmpty(t, token)
	_, err := h.provider.ConsumeRecoveryToken(context.Background(), token)
	require.NoError(t, err)

	select {
	case <-h.coordinator.Recovery():
	case <-time.After(2 * time.Second):
		t.Fatal("no recovery signal")
	}

	require.NoError(t, h.coordinator.UpdatePassword(context.Background(), "newengine456"))
	_, err = h.provider.SignIn(context.Background(), "ada@numbers.dev", "newengine456")
	require.NoError(t, err)
}

func TestDeleteAccountStaysDeletedAcrossEvents(t *testing.T) {
	h := newHarness(t, nil)
	userID := h.backend.Register("ada@numbers.dev", "engine123", nil)
	h.backend.Seed("profiles", map[string]any{
		"id":    userID.String(),
		"email": "ada@numbers.dev",
	})
	waitForState(t, h.coordinator, func(st auth.State) bool { return !st.Loading })

	require.NoError(t, h.coordinator.SignIn(context.Background(), "ada@numbers.dev", "engine123"))
	waitForState(t, h.coordinator, func(st auth.State) bool { return st.User != nil })

	require.NoError(t, h.coordinator.DeleteAccount(context.Background()))
	state := waitForState(t, h.coordinator, func(st auth.State) bool { return st.User == nil && !st.Loading })
	require.Nil(t, state.Session)

	require.Eventually(t, func() bool {
		for _, m := range h.backend.SentMail() {
			if m.Kind == string(email.KindDeletionConfirmation) {
				return true
			}
		}
		return false
	}, 2*time.Second, 20*time.Millisecond)
}
