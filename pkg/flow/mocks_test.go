package flow

import (
	"context"

	"github.com/stretchr/testify/mock"

	"github.com/dmitrymomot/oauthflow/pkg/token"
)

// MockGuard is a mock implementation of state.Guard.
type MockGuard struct {
	mock.Mock
}

func (m *MockGuard) Generate(ctx context.Context, profileName string) (string, error) {
	args := m.Called(ctx, profileName)
	return args.String(0), args.Error(1)
}

func (m *MockGuard) Check(ctx context.Context, profileName, stateToken string) error {
	args := m.Called(ctx, profileName, stateToken)
	return args.Error(0)
}

// MockStore is a mock implementation of tokenstore.Store.
type MockStore struct {
	mock.Mock
}

func (m *MockStore) Set(ctx context.Context, profileName, subject string, tok token.AccessToken) error {
	args := m.Called(ctx, profileName, subject, tok)
	return args.Error(0)
}

func (m *MockStore) Get(ctx context.Context, profileName, subject string) (token.AccessToken, error) {
	args := m.Called(ctx, profileName, subject)
	return args.Get(0).(token.AccessToken), args.Error(1)
}

func (m *MockStore) Delete(ctx context.Context, profileName, subject string) error {
	args := m.Called(ctx, profileName, subject)
	return args.Error(0)
}
