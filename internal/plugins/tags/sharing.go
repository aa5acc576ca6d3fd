package tags

import (
	"context"
	"log/slog"

	"github.com/keyxmakerx/tally/internal/apperror"
	"github.com/keyxmakerx/tally/internal/validate"
)

// SharingService grants and revokes read-only visibility of a tag to other
// users. Only the owner may change a tag's shares.
type SharingService interface {
	Share(ctx context.Context, userID string, tagID int64, input ShareInput) (*UserRef, error)
	Unshare(ctx context.Context, userID string, tagID int64, input UnshareInput) error
	ListSharedWithMe(ctx context.Context, userID string) ([]SharedTag, error)
}

// sharingService implements SharingService.
type sharingService struct {
	repo      TagRepository
	users     UserFinder
	validator *validate.Validator
}

// NewSharingService creates a new sharing service.
func NewSharingService(repo TagRepository, users UserFinder, v *validate.Validator) SharingService {
	return &sharingService{repo: repo, users: users, validator: v}
}

// Share gives the user with input.UserEmail read access to the tag.
func (s *sharingService) Share(ctx context.Context, userID string, tagID int64, input ShareInput) (*UserRef, error) {
	tag, err := loadOwned(ctx, s.repo, userID, tagID)
	if err != nil {
		return nil, err
	}

	if err := s.validator.Struct(input); err != nil {
		return nil, err
	}

	target, err := s.users.FindUserByEmail(ctx, input.UserEmail)
	if err != nil {
		if apperror.IsNotFound(err) {
			return nil, apperror.NewNotFound("user not found")
		}
		return nil, apperror.OrInternal(err, "finding share recipient")
	}

	if target.ID == userID {
		return nil, apperror.NewBadRequest("cannot share tag with yourself")
	}

	exists, err := s.repo.ShareExists(ctx, tag.ID, target.ID)
	if err != nil {
		return nil, apperror.OrInternal(err, "checking tag share")
	}
	if exists {
		return nil, apperror.NewConflict("tag already shared with this user")
	}

	if err := s.repo.AddShare(ctx, tag.ID, userID, target.ID); err != nil {
		return nil, apperror.OrInternal(err, "sharing tag")
	}

	slog.Info("tag shared",
		slog.Int64("tag_id", tag.ID),
		slog.String("user_id", userID),
		slog.String("shared_with", target.ID),
	)
	return target, nil
}

// Unshare revokes a share. Revoking a share that does not exist succeeds.
func (s *sharingService) Unshare(ctx context.Context, userID string, tagID int64, input UnshareInput) error {
	tag, err := loadOwned(ctx, s.repo, userID, tagID)
	if err != nil {
		return err
	}

	if err := s.validator.Struct(input); err != nil {
		return err
	}

	if err := s.repo.RemoveShare(ctx, tag.ID, input.UserID); err != nil {
		return apperror.OrInternal(err, "unsharing tag")
	}

	slog.Info("tag unshared",
		slog.Int64("tag_id", tag.ID),
		slog.String("user_id", userID),
		slog.String("shared_with", input.UserID),
	)
	return nil
}

// ListSharedWithMe returns the tags other users shared with userID.
func (s *sharingService) ListSharedWithMe(ctx context.Context, userID string) ([]SharedTag, error) {
	shared, err := s.repo.ListSharedWith(ctx, userID)
	if err != nil {
		return nil, apperror.OrInternal(err, "listing shared tags")
	}
	return shared, nil
}
