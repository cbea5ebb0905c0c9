package service

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/shestoi/GoMarket/internal/user/repository"
	"github.com/shestoi/GoMarket/internal/user/repository/memory"
	"github.com/shestoi/GoMarket/platform/dispatch"
	"github.com/shestoi/GoMarket/platform/events"
)

type mockPublisher struct {
	mock.Mock
}

func (m *mockPublisher) PublishUserDeleted(ctx context.Context, userID, role string) error {
	return m.Called(ctx, userID, role).Error(0)
}

func TestRegister(t *testing.T) {
	svc := NewUserService(zap.NewNop(), memory.NewRepository(), &mockPublisher{})
	ctx := context.Background()

	u, err := svc.Register(ctx, RegisterInput{Name: "Ann", Email: "Ann@Example.com"})
	require.NoError(t, err)
	assert.Equal(t, repository.RoleClient, u.Role)
	assert.Equal(t, "ann@example.com", u.Email)

	_, err = svc.Register(ctx, RegisterInput{Name: "Ann 2", Email: "ann@example.com"})
	assert.ErrorIs(t, err, repository.ErrAlreadyExists)

	tests := []struct {
		name string
		in   RegisterInput
	}{
		{"no name", RegisterInput{Email: "a@b.c"}},
		{"bad email", RegisterInput{Name: "x", Email: "nope"}},
		{"admin role", RegisterInput{Name: "x", Email: "x@b.c", Role: repository.RoleAdmin}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := svc.Register(ctx, tt.in)
			assert.ErrorIs(t, err, ErrInvalidUser)
		})
	}
}

func TestDeleteAccount_PublishesThenDeletes(t *testing.T) {
	ctx := context.Background()
	repo := memory.NewRepository()
	bus := dispatch.NewBus(dispatch.NewRegistry(), zap.NewNop(), 1)
	svc := NewUserService(zap.NewNop(), repo, events.NewProducer(bus))

	u, err := svc.Register(ctx, RegisterInput{Name: "Seller", Email: "s@example.com", Role: repository.RoleSeller})
	require.NoError(t, err)

	require.NoError(t, svc.DeleteAccount(ctx, u.ID))
	_, err = repo.GetByID(ctx, u.ID)
	assert.ErrorIs(t, err, repository.ErrNotFound)

	msgs := bus.PublishedTo(events.TopicUserEvents)
	require.Len(t, msgs, 1)
	assert.Equal(t, u.ID, msgs[0].Key)
	ev, err := events.As[*events.UserDeleted](msgs[0].Envelope)
	require.NoError(t, err)
	assert.Equal(t, repository.RoleSeller, ev.UserRole)
}

func TestDeleteAccount_UnknownUser(t *testing.T) {
	pub := &mockPublisher{}
	svc := NewUserService(zap.NewNop(), memory.NewRepository(), pub)

	err := svc.DeleteAccount(context.Background(), "ghost")
	assert.ErrorIs(t, err, repository.ErrNotFound)
	pub.AssertNotCalled(t, "PublishUserDeleted", mock.Anything, mock.Anything, mock.Anything)
}

func TestDeleteAccount_PublishFailureKeepsUser(t *testing.T) {
	ctx := context.Background()
	repo := memory.NewRepository()
	require.NoError(t, repo.Create(ctx, repository.User{ID: "U1", Email: "u@example.com", Role: repository.RoleClient}))
	pub := &mockPublisher{}
	pub.On("PublishUserDeleted", mock.Anything, "U1", repository.RoleClient).Return(errors.New("broker down"))
	svc := NewUserService(zap.NewNop(), repo, pub)

	require.Error(t, svc.DeleteAccount(ctx, "U1"))
	_, err := repo.GetByID(ctx, "U1")
	assert.NoError(t, err)
}

type failingDeleteRepo struct {
	*memory.Repository
}

func (failingDeleteRepo) DeleteByID(context.Context, string) error {
	return errors.New("mongo timeout")
}

// Событие уже ушло, а строка осталась: каскад запущен для существующего пользователя
func TestDeleteAccount_DeleteFailureAfterPublish(t *testing.T) {
	ctx := context.Background()
	repo := failingDeleteRepo{memory.NewRepository()}
	require.NoError(t, repo.Create(ctx, repository.User{ID: "U1", Email: "u@example.com", Role: repository.RoleSeller}))
	pub := &mockPublisher{}
	pub.On("PublishUserDeleted", mock.Anything, "U1", repository.RoleSeller).Return(nil).Once()
	svc := NewUserService(zap.NewNop(), repo, pub)

	require.Error(t, svc.DeleteAccount(ctx, "U1"))
	_, err := repo.GetByID(ctx, "U1")
	assert.NoError(t, err)
	pub.AssertExpectations(t)
}
