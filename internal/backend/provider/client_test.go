package provider_test

import (
	"context"
	"net/http/httptest"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"mindspend/internal/backend/backendtest"
	"mindspend/internal/backend/provider"
	domainerrors "mindspend/pkg/domain-errors"
)

type eventLog struct {
	mu     sync.Mutex
	events []provider.EventKind
}

func (l *eventLog) record(kind provider.EventKind, _ *provider.Session) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.events = append(l.events, kind)
}

func (l *eventLog) kinds() []provider.EventKind {
	l.mu.Lock()
	defer l.mu.Unlock()
	return append([]provider.EventKind(nil), l.events...)
}

func newClient(t *testing.T) (*provider.Client, *backendtest.Server, *eventLog) {
	t.Helper()
	backend := backendtest.New()
	ts := httptest.NewServer(backend.Router)
	t.Cleanup(ts.Close)

	client := provider.New(ts.URL, "test-key")
	t.Cleanup(client.Close)

	log := &eventLog{}
	cancel := client.Subscribe(log.record)
	t.Cleanup(cancel)

	return client, backend, log
}

func TestSignInAdoptsSessionAndEmits(t *testing.T) {
	client, backend, log := newClient(t)
	backend.Register("ada@test.dev", "engine123", nil)

	session, err := client.SignIn(context.Background(), "ada@test.dev", "engine123")
	require.NoError(t, err)
	require.NotNil(t, session)
	assert.Equal(t, "ada@test.dev", session.User.Email)
	assert.NotEmpty(t, session.AccessToken)
	assert.False(t, session.ExpiresAt.IsZero())

	require.NotNil(t, client.CurrentSession())
	assert.Equal(t, session.AccessToken, client.AccessToken())
	assert.Equal(t, []provider.EventKind{provider.EventSignedIn}, log.kinds())
}

func TestSignInWrongPassword(t *testing.T) {
	client, backend, log := newClient(t)
	backend.Register("ada@test.dev", "engine123", nil)

	_, err := client.SignIn(context.Background(), "ada@test.dev", "wrong")
	require.Error(t, err)
	assert.True(t, domainerrors.HasCode(err, domainerrors.CodeUnauthorized))
	assert.Nil(t, client.CurrentSession())
	assert.Empty(t, log.kinds())
}

func TestSignUpDuplicateEmailConflicts(t *testing.T) {
	client, backend, _ := newClient(t)
	backend.Register("ada@test.dev", "engine123", nil)

	_, err := client.SignUp(context.Background(), "ada@test.dev", "engine123", nil)
	require.Error(t, err)
	assert.True(t, domainerrors.HasCode(err, domainerrors.CodeConflict))
}

func TestRestoreEmitsInitialSession(t *testing.T) {
	client, backend, log := newClient(t)
	backend.Register("ada@test.dev", "engine123", nil)

	first, err := client.SignIn(context.Background(), "ada@test.dev", "engine123")
	require.NoError(t, err)

	restored, err := client.Restore(context.Background(), first.RefreshToken)
	require.NoError(t, err)
	assert.Equal(t, first.User.ID, restored.User.ID)
	assert.Equal(t, []provider.EventKind{provider.EventSignedIn, provider.EventInitialSession}, log.kinds())
}

func TestRestoreWithStaleTokenFails(t *testing.T) {
	client, _, _ := newClient(t)

	_, err := client.Restore(context.Background(), "refresh-that-never-was")
	require.Error(t, err)
	assert.True(t, domainerrors.HasCode(err, domainerrors.CodeUnauthorized))
}

func TestSignOutClearsLocalMirrorFirst(t *testing.T) {
	client, backend, log := newClient(t)
	backend.Register("ada@test.dev", "engine123", nil)

	_, err := client.SignIn(context.Background(), "ada@test.dev", "engine123")
	require.NoError(t, err)

	require.NoError(t, client.SignOut(context.Background()))
	assert.Nil(t, client.CurrentSession())
	assert.Empty(t, client.AccessToken())
	assert.Equal(t, []provider.EventKind{provider.EventSignedIn, provider.EventSignedOut}, log.kinds())
}

func TestRecoveryFlow(t *testing.T) {
	client, backend, log := newClient(t)
	backend.Register("ada@test.dev", "engine123", nil)

	require.NoError(t, client.RequestPasswordReset(context.Background(), "ada@test.dev"))
	assert.Equal(t, []string{"ada@test.dev"}, backend.ResetRequests())

	token := backend.IssueRecoveryToken("ada@test.dev")
	require.NotEmpty(t, token)

	session, err := client.ConsumeRecoveryToken(context.Background(), token)
	require.NoError(t, err)
	require.NotNil(t, session)
	assert.Contains(t, log.kinds(), provider.EventPasswordRecovery)

	require.NoError(t, client.UpdatePassword(context.Background(), "newengine456"))
	_, err = client.SignIn(context.Background(), "ada@test.dev", "newengine456")
	require.NoError(t, err)
}

func TestUpdatePasswordRequiresSession(t *testing.T) {
	client, _, _ := newClient(t)

	err := client.UpdatePassword(context.Background(), "whatever1")
	require.Error(t, err)
	assert.True(t, domainerrors.HasCode(err, domainerrors.CodeUnauthorized))
}
