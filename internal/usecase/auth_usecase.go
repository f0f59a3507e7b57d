package usecase

import (
	"context"
	"errors"
	"strings"

	"go-profile-backend/internal/domain"
	"go-profile-backend/pkg/apperror"
	"go-profile-backend/pkg/logger"
)

type authUsecase struct {
	userRepo    domain.UserRepository
	profileRepo domain.ProfileRepository
}

func NewAuthUsecase(userRepo domain.UserRepository, profileRepo domain.ProfileRepository) domain.AuthUsecase {
	return &authUsecase{userRepo: userRepo, profileRepo: profileRepo}
}

// ResolveUser is idempotent and safe under concurrent first requests for the same subject.
func (u *authUsecase) ResolveUser(ctx context.Context, auth0ID, email string) (*domain.Principal, error) {
	if auth0ID == "" {
		return nil, apperror.Unauthorized("Invalid token subject")
	}
	email = strings.ToLower(strings.TrimSpace(email))
	if email == "" {
		email = auth0ID + "@auth0.user"
	}

	user, err := u.ensureUser(ctx, auth0ID, email)
	if err != nil {
		return nil, err
	}

	profile, err := u.profileRepo.GetByUserID(ctx, user.ID)
	if err != nil {
		return nil, apperror.Internal(err)
	}
	if profile == nil {
		if profile, err = u.profileRepo.Create(ctx, user.ID); err != nil {
			return nil, apperror.Internal(err)
		}
		logger.Log.Info("Profile created", "user_id", user.ID, "profile_id", profile.ID)
	}

	return &domain.Principal{User: *user, Profile: *profile}, nil
}

func (u *authUsecase) ensureUser(ctx context.Context, auth0ID, email string) (*domain.User, error) {
	user, err := u.userRepo.GetByAuth0ID(ctx, auth0ID)
	if err != nil {
		return nil, apperror.Internal(err)
	}

	if user != nil {
		// keep the local email in step with the identity provider
		if user.Email != email {
			if err := u.userRepo.UpdateEmail(ctx, user.ID, email); err != nil {
				return nil, apperror.Internal(err)
			}
			user.Email = email
		}
		return user, nil
	}

	user = &domain.User{Auth0ID: auth0ID, Email: email, Username: auth0ID}
	if err := u.userRepo.Create(ctx, user); err != nil {
		if !errors.Is(err, domain.ErrIntegrityViolation) {
			return nil, repoError(err)
		}
		// lost a race with a concurrent first request
		existing, getErr := u.userRepo.GetByAuth0ID(ctx, auth0ID)
		if getErr != nil || existing == nil {
			return nil, repoError(err)
		}
		return existing, nil
	}
	logger.Log.Info("User provisioned from Auth0", "user_id", user.ID)
	return user, nil
}
