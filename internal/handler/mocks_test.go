package handler

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/mock"

	"github.com/BuzzLyutic/tasklist-api/internal/identity"
	"github.com/BuzzLyutic/tasklist-api/internal/model"
	"github.com/BuzzLyutic/tasklist-api/internal/service"
)

type MockTaskService struct {
	mock.Mock
}

func (m *MockTaskService) Create(ctx context.Context, username string, in service.NewTask) (model.Task, error) {
	args := m.Called(ctx, username, in)
	return args.Get(0).(model.Task), args.Error(1)
}

func (m *MockTaskService) List(ctx context.Context, username string) ([]model.Task, error) {
	args := m.Called(ctx, username)
	return args.Get(0).([]model.Task), args.Error(1)
}

func (m *MockTaskService) Get(ctx context.Context, username string, id uuid.UUID) (model.Task, error) {
	args := m.Called(ctx, username, id)
	return args.Get(0).(model.Task), args.Error(1)
}

func (m *MockTaskService) Update(ctx context.Context, username string, id uuid.UUID, patch model.TaskPatch) (model.Task, error) {
	args := m.Called(ctx, username, id, patch)
	return args.Get(0).(model.Task), args.Error(1)
}

func (m *MockTaskService) Delete(ctx context.Context, username string, id uuid.UUID) (model.Task, error) {
	args := m.Called(ctx, username, id)
	return args.Get(0).(model.Task), args.Error(1)
}

type MockAuthService struct {
	mock.Mock
}

func (m *MockAuthService) SignIn(ctx context.Context, code string) (identity.TokenSet, error) {
	args := m.Called(ctx, code)
	return args.Get(0).(identity.TokenSet), args.Error(1)
}

func (m *MockAuthService) Me(ctx context.Context, username string) (model.User, error) {
	args := m.Called(ctx, username)
	return args.Get(0).(model.User), args.Error(1)
}

func (m *MockAuthService) Logout(ctx context.Context, token string, expiresAt time.Time) error {
	args := m.Called(ctx, token, expiresAt)
	return args.Error(0)
}

type MockVerifier struct {
	mock.Mock
}

func (m *MockVerifier) Verify(ctx context.Context, token string) (identity.Claims, error) {
	args := m.Called(ctx, token)
	return args.Get(0).(identity.Claims), args.Error(1)
}

type MockRevocations struct {
	mock.Mock
}

func (m *MockRevocations) Check(ctx context.Context, token string) error {
	args := m.Called(ctx, token)
	return args.Error(0)
}

type stubPinger struct {
	err error
}

func (s stubPinger) Ping(context.Context) error { return s.err }
