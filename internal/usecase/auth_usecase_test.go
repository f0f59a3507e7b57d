package usecase_test

import (
	"context"
	"errors"
	"testing"

	"go-profile-backend/internal/domain"
	"go-profile-backend/internal/usecase"
	"go-profile-backend/pkg/apperror"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

func TestResolveUserProvisionsUserAndProfile(t *testing.T) {
	users := new(MockUserRepo)
	profiles := new(MockProfileRepo)
	uc := usecase.NewAuthUsecase(users, profiles)

	users.On("GetByAuth0ID", mock.Anything, "auth0|abc").Return(nil, nil).Once()
	users.On("Create", mock.Anything, mock.AnythingOfType("*domain.User")).Run(func(args mock.Arguments) {
		args.Get(1).(*domain.User).ID = 10
	}).Return(nil)
	profiles.On("GetByUserID", mock.Anything, int64(10)).Return(nil, nil)
	profiles.On("Create", mock.Anything, int64(10)).Return(&domain.Profile{ID: 42, UserID: 10}, nil)

	p, err := uc.ResolveUser(context.Background(), "auth0|abc", " Jane@Example.COM ")
	require.NoError(t, err)

	assert.Equal(t, int64(10), p.User.ID)
	assert.Equal(t, "jane@example.com", p.User.Email)
	assert.Equal(t, int64(42), p.Profile.ID)
	users.AssertExpectations(t)
	profiles.AssertExpectations(t)
}

func TestResolveUserExistingUserSyncsEmail(t *testing.T) {
	users := new(MockUserRepo)
	profiles := new(MockProfileRepo)
	uc := usecase.NewAuthUsecase(users, profiles)

	users.On("GetByAuth0ID", mock.Anything, "auth0|abc").Return(&domain.User{ID: 10, Auth0ID: "auth0|abc", Email: "old@example.com"}, nil)
	users.On("UpdateEmail", mock.Anything, int64(10), "new@example.com").Return(nil)
	profiles.On("GetByUserID", mock.Anything, int64(10)).Return(&domain.Profile{ID: 42, UserID: 10}, nil)

	p, err := uc.ResolveUser(context.Background(), "auth0|abc", "new@example.com")
	require.NoError(t, err)
	assert.Equal(t, "new@example.com", p.User.Email)
	profiles.AssertNotCalled(t, "Create", mock.Anything, mock.Anything)
}

func TestResolveUserWithoutEmailUsesPlaceholder(t *testing.T) {
	users := new(MockUserRepo)
	profiles := new(MockProfileRepo)
	uc := usecase.NewAuthUsecase(users, profiles)

	users.On("GetByAuth0ID", mock.Anything, "auth0|abc").Return(&domain.User{ID: 10, Email: "auth0|abc@auth0.user"}, nil)
	profiles.On("GetByUserID", mock.Anything, int64(10)).Return(&domain.Profile{ID: 42, UserID: 10}, nil)

	p, err := uc.ResolveUser(context.Background(), "auth0|abc", "")
	require.NoError(t, err)
	assert.Equal(t, "auth0|abc@auth0.user", p.User.Email)
	users.AssertNotCalled(t, "UpdateEmail", mock.Anything, mock.Anything, mock.Anything)
}

func TestResolveUserConcurrentCreateFallsBackToExisting(t *testing.T) {
	users := new(MockUserRepo)
	profiles := new(MockProfileRepo)
	uc := usecase.NewAuthUsecase(users, profiles)

	users.On("GetByAuth0ID", mock.Anything, "auth0|abc").Return(nil, nil).Once()
	users.On("Create", mock.Anything, mock.Anything).Return(apperror.Conflict("exists").Wrap(domain.ErrIntegrityViolation))
	users.On("GetByAuth0ID", mock.Anything, "auth0|abc").Return(&domain.User{ID: 11, Email: "jane@example.com"}, nil).Once()
	profiles.On("GetByUserID", mock.Anything, int64(11)).Return(&domain.Profile{ID: 43, UserID: 11}, nil)

	p, err := uc.ResolveUser(context.Background(), "auth0|abc", "jane@example.com")
	require.NoError(t, err)
	assert.Equal(t, int64(11), p.User.ID)
	assert.Equal(t, int64(43), p.Profile.ID)
}

func TestResolveUserRejectsEmptySubject(t *testing.T) {
	uc := usecase.NewAuthUsecase(new(MockUserRepo), new(MockProfileRepo))

	_, err := uc.ResolveUser(context.Background(), "", "jane@example.com")
	assert.Error(t, err)
}

func TestResolveUserDatabaseError(t *testing.T) {
	users := new(MockUserRepo)
	uc := usecase.NewAuthUsecase(users, new(MockProfileRepo))
	users.On("GetByAuth0ID", mock.Anything, "auth0|abc").Return(nil, errors.New("db down"))

	_, err := uc.ResolveUser(context.Background(), "auth0|abc", "jane@example.com")

	var appErr *apperror.AppError
	require.ErrorAs(t, err, &appErr)
	assert.Equal(t, 500, appErr.Code)
}
