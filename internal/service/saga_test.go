package service

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/schoolhub-io/schoolhub-api/internal/identity"
	"github.com/schoolhub-io/schoolhub-api/pkg/config"
	appErrors "github.com/schoolhub-io/schoolhub-api/pkg/errors"
)

type providerCall struct {
	ID    string
	Input identity.UpdateUserInput
}

type mockProvider struct {
	mu sync.Mutex

	createID     string
	createErr    error
	createInputs []identity.CreateUserInput

	updateErr   error
	updateCalls []providerCall

	deleteErr error
	deleteIDs []string
}

func (m *mockProvider) CreateUser(ctx context.Context, input identity.CreateUserInput) (*identity.User, error) {
	m.mu.Lock()
	m.createInputs = append(m.createInputs, input)
	m.mu.Unlock()
	if m.createErr != nil {
		return nil, m.createErr
	}
	id := m.createID
	if id == "" {
		id = "acct-1"
	}
	return &identity.User{
		ID:        id,
		Username:  input.Username,
		FirstName: input.FirstName,
		LastName:  input.LastName,
		Role:      string(input.Role),
	}, nil
}

func (m *mockProvider) UpdateUser(ctx context.Context, id string, input identity.UpdateUserInput) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.updateCalls = append(m.updateCalls, providerCall{ID: id, Input: input})
	return m.updateErr
}

func (m *mockProvider) DeleteUser(ctx context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.deleteIDs = append(m.deleteIDs, id)
	return m.deleteErr
}

func (m *mockProvider) deleted() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]string(nil), m.deleteIDs...)
}

func newTestCompensator(provider identity.Provider) *Compensator {
	return NewCompensator(provider, config.CleanupConfig{}, nil)
}

func TestCompensatorDeleteAccount(t *testing.T) {
	provider := &mockProvider{}
	comp := newTestCompensator(provider)

	err := comp.DeleteAccount(context.Background(), "acct-1")
	require.NoError(t, err)
	assert.Equal(t, []string{"acct-1"}, provider.deleteIDs)
}

func TestCompensatorDeleteAccountFailureIsPartial(t *testing.T) {
	provider := &mockProvider{deleteErr: errors.New("provider down")}
	comp := newTestCompensator(provider)

	err := comp.DeleteAccount(context.Background(), "acct-1")
	require.Error(t, err)
	var appErr *appErrors.Error
	require.ErrorAs(t, err, &appErr)
	assert.Equal(t, appErrors.ErrPartialFailure.Code, appErr.Code)
}

func TestCompensatorRestoreAccount(t *testing.T) {
	provider := &mockProvider{}
	comp := newTestCompensator(provider)

	previous := identity.UpdateUserInput{Username: "old", FirstName: "Old", LastName: "Name"}
	err := comp.RestoreAccount(context.Background(), "acct-1", previous)
	require.NoError(t, err)
	require.Len(t, provider.updateCalls, 1)
	assert.Equal(t, "acct-1", provider.updateCalls[0].ID)
	assert.Equal(t, previous, provider.updateCalls[0].Input)
}

func TestCompensatorRestoreAccountFailureIsPartial(t *testing.T) {
	provider := &mockProvider{updateErr: errors.New("provider down")}
	comp := newTestCompensator(provider)

	err := comp.RestoreAccount(context.Background(), "acct-1", identity.UpdateUserInput{Username: "old"})
	require.Error(t, err)
	var appErr *appErrors.Error
	require.ErrorAs(t, err, &appErr)
	assert.Equal(t, appErrors.ErrPartialFailure.Code, appErr.Code)
}

func TestCompensatorRetriesQueuedDeletes(t *testing.T) {
	provider := &mockProvider{deleteErr: errors.New("provider down")}
	comp := newTestCompensator(provider)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	comp.Start(ctx)
	defer comp.Stop()

	err := comp.DeleteAccount(ctx, "acct-1")
	require.Error(t, err)
	assert.NotEmpty(t, provider.deleted())
}
