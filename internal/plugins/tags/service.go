package tags

import (
	"context"
	"log/slog"
	"strings"

	"github.com/keyxmakerx/tally/internal/apperror"
	"github.com/keyxmakerx/tally/internal/ownership"
	"github.com/keyxmakerx/tally/internal/validate"
)

// TagService handles business logic for a user's own tags.
type TagService interface {
	List(ctx context.Context, userID string) ([]Tag, error)
	Create(ctx context.Context, userID string, input TagInput) (*Tag, error)
	Get(ctx context.Context, userID string, id int64) (*Tag, error)
	Update(ctx context.Context, userID string, id int64, input TagInput) (*Tag, error)
	Delete(ctx context.Context, userID string, id int64) error
}

// tagService implements TagService.
type tagService struct {
	repo      TagRepository
	validator *validate.Validator
}

// NewTagService creates a new tag service.
func NewTagService(repo TagRepository, v *validate.Validator) TagService {
	return &tagService{repo: repo, validator: v}
}

// List returns the user's tags ordered by name.
func (s *tagService) List(ctx context.Context, userID string) ([]Tag, error) {
	tags, err := s.repo.ListByUser(ctx, userID)
	if err != nil {
		return nil, apperror.OrInternal(err, "listing tags")
	}
	return tags, nil
}

// Create validates the input and creates a tag. Names are unique per owner.
func (s *tagService) Create(ctx context.Context, userID string, input TagInput) (*Tag, error) {
	input.Name = strings.TrimSpace(input.Name)
	if err := s.validator.Struct(input); err != nil {
		return nil, err
	}

	if err := s.ensureNameFree(ctx, userID, input.Name, 0); err != nil {
		return nil, err
	}

	tag := &Tag{UserID: userID, Name: input.Name, Color: input.Color}
	if err := s.repo.Create(ctx, tag); err != nil {
		return nil, apperror.OrInternal(err, "creating tag")
	}

	slog.Info("tag created",
		slog.Int64("id", tag.ID),
		slog.String("user_id", userID),
	)
	return s.reload(ctx, tag.ID)
}

// Get returns a tag the user owns.
func (s *tagService) Get(ctx context.Context, userID string, id int64) (*Tag, error) {
	return loadOwned(ctx, s.repo, userID, id)
}

// Update renames or recolors a tag the user owns.
func (s *tagService) Update(ctx context.Context, userID string, id int64, input TagInput) (*Tag, error) {
	tag, err := loadOwned(ctx, s.repo, userID, id)
	if err != nil {
		return nil, err
	}

	input.Name = strings.TrimSpace(input.Name)
	if err := s.validator.Struct(input); err != nil {
		return nil, err
	}

	if err := s.ensureNameFree(ctx, userID, input.Name, id); err != nil {
		return nil, err
	}

	tag.Name = input.Name
	tag.Color = input.Color
	if err := s.repo.Update(ctx, tag); err != nil {
		return nil, apperror.OrInternal(err, "updating tag")
	}
	return s.reload(ctx, id)
}

// Delete removes a tag the user owns. Shares and entry links go with it.
func (s *tagService) Delete(ctx context.Context, userID string, id int64) error {
	if _, err := loadOwned(ctx, s.repo, userID, id); err != nil {
		return err
	}

	if err := s.repo.Delete(ctx, id); err != nil {
		return apperror.OrInternal(err, "deleting tag")
	}

	slog.Info("tag deleted",
		slog.Int64("id", id),
		slog.String("user_id", userID),
	)
	return nil
}

func (s *tagService) ensureNameFree(ctx context.Context, userID, name string, excludeID int64) error {
	taken, err := s.repo.NameExists(ctx, userID, name, excludeID)
	if err != nil {
		return apperror.OrInternal(err, "checking tag name")
	}
	if taken {
		return apperror.NewConflict("a tag with this name already exists")
	}
	return nil
}

func (s *tagService) reload(ctx context.Context, id int64) (*Tag, error) {
	tag, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return nil, apperror.OrInternal(err, "reloading tag")
	}
	return tag, nil
}

// loadOwned fetches a tag and applies the ownership guard.
func loadOwned(ctx context.Context, repo TagRepository, userID string, id int64) (*Tag, error) {
	tag, err := repo.FindByID(ctx, id)
	if err != nil {
		return nil, apperror.OrInternal(err, "finding tag")
	}
	if err := ownership.Check(tag, userID); err != nil {
		return nil, err
	}
	return tag, nil
}
