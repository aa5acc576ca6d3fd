package tags

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/keyxmakerx/tally/internal/apperror"
	"github.com/keyxmakerx/tally/internal/validate"
)

// --- Mock Repository ---

// mockTagRepo implements TagRepository for testing.
type mockTagRepo struct {
	createFn         func(ctx context.Context, tag *Tag) error
	findByIDFn       func(ctx context.Context, id int64) (*Tag, error)
	listByUserFn     func(ctx context.Context, userID string) ([]Tag, error)
	nameExistsFn     func(ctx context.Context, userID, name string, excludeID int64) (bool, error)
	updateFn         func(ctx context.Context, tag *Tag) error
	deleteFn         func(ctx context.Context, id int64) error
	shareExistsFn    func(ctx context.Context, tagID int64, sharedWith string) (bool, error)
	addShareFn       func(ctx context.Context, tagID int64, sharedBy, sharedWith string) error
	removeShareFn    func(ctx context.Context, tagID int64, sharedWith string) error
	listSharedWithFn func(ctx context.Context, userID string) ([]SharedTag, error)
}

func (m *mockTagRepo) Create(ctx context.Context, tag *Tag) error {
	if m.createFn != nil {
		return m.createFn(ctx, tag)
	}
	tag.ID = 1
	return nil
}

func (m *mockTagRepo) FindByID(ctx context.Context, id int64) (*Tag, error) {
	if m.findByIDFn != nil {
		return m.findByIDFn(ctx, id)
	}
	return nil, apperror.NewNotFound("Tag not found")
}

func (m *mockTagRepo) ListByUser(ctx context.Context, userID string) ([]Tag, error) {
	if m.listByUserFn != nil {
		return m.listByUserFn(ctx, userID)
	}
	return nil, nil
}

func (m *mockTagRepo) NameExists(ctx context.Context, userID, name string, excludeID int64) (bool, error) {
	if m.nameExistsFn != nil {
		return m.nameExistsFn(ctx, userID, name, excludeID)
	}
	return false, nil
}

func (m *mockTagRepo) Update(ctx context.Context, tag *Tag) error {
	if m.updateFn != nil {
		return m.updateFn(ctx, tag)
	}
	return nil
}

func (m *mockTagRepo) Delete(ctx context.Context, id int64) error {
	if m.deleteFn != nil {
		return m.deleteFn(ctx, id)
	}
	return nil
}

func (m *mockTagRepo) ShareExists(ctx context.Context, tagID int64, sharedWith string) (bool, error) {
	if m.shareExistsFn != nil {
		return m.shareExistsFn(ctx, tagID, sharedWith)
	}
	return false, nil
}

func (m *mockTagRepo) AddShare(ctx context.Context, tagID int64, sharedBy, sharedWith string) error {
	if m.addShareFn != nil {
		return m.addShareFn(ctx, tagID, sharedBy, sharedWith)
	}
	return nil
}

func (m *mockTagRepo) RemoveShare(ctx context.Context, tagID int64, sharedWith string) error {
	if m.removeShareFn != nil {
		return m.removeShareFn(ctx, tagID, sharedWith)
	}
	return nil
}

func (m *mockTagRepo) ListSharedWith(ctx context.Context, userID string) ([]SharedTag, error) {
	if m.listSharedWithFn != nil {
		return m.listSharedWithFn(ctx, userID)
	}
	return nil, nil
}

// --- Test Helpers ---

func newTestTagService(repo *mockTagRepo) TagService {
	return NewTagService(repo, validate.New())
}

// ownedBy returns a findByIDFn serving a single tag owned by userID.
func ownedBy(userID string) func(ctx context.Context, id int64) (*Tag, error) {
	return func(ctx context.Context, id int64) (*Tag, error) {
		return &Tag{ID: id, UserID: userID, Name: "Food", Color: "#FF5733"}, nil
	}
}

// assertAppError checks that err is an *apperror.AppError with the expected code.
func assertAppError(t *testing.T, err error, expectedCode int) *apperror.AppError {
	t.Helper()
	if err == nil {
		t.Fatalf("expected error with code %d, got nil", expectedCode)
	}
	var appErr *apperror.AppError
	if !errors.As(err, &appErr) {
		t.Fatalf("expected *apperror.AppError, got %T: %v", err, err)
	}
	if appErr.Code != expectedCode {
		t.Errorf("expected status %d, got %d (message: %s)", expectedCode, appErr.Code, appErr.Message)
	}
	return appErr
}

// --- Create Tests ---

func TestCreate_Success(t *testing.T) {
	var stored *Tag
	repo := &mockTagRepo{
		createFn: func(ctx context.Context, tag *Tag) error {
			tag.ID = 7
			stored = tag
			return nil
		},
		findByIDFn: func(ctx context.Context, id int64) (*Tag, error) {
			return stored, nil
		},
	}

	tag, err := newTestTagService(repo).Create(context.Background(), "user-a", TagInput{Name: "  Groceries ", Color: "#00ff00"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if tag.ID != 7 || tag.UserID != "user-a" || tag.Name != "Groceries" {
		t.Errorf("unexpected tag %+v", tag)
	}
	if tag.IsShared {
		t.Error("new tag must not be shared")
	}
}

func TestCreate_Validation(t *testing.T) {
	tests := []struct {
		name  string
		input TagInput
		field string
	}{
		{"missing name", TagInput{Color: "#FF5733"}, "name"},
		{"short name", TagInput{Name: "a", Color: "#FF5733"}, "name"},
		{"long name", TagInput{Name: strings.Repeat("a", 51), Color: "#FF5733"}, "name"},
		{"missing color", TagInput{Name: "Food"}, "color"},
		{"three digit color", TagInput{Name: "Food", Color: "#FFF"}, "color"},
		{"no hash", TagInput{Name: "Food", Color: "FF5733"}, "color"},
		{"non hex", TagInput{Name: "Food", Color: "#GG5733"}, "color"},
		{"markup in name", TagInput{Name: "<b>Food</b>", Color: "#FF5733"}, "name"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			repo := &mockTagRepo{
				createFn: func(ctx context.Context, tag *Tag) error {
					t.Fatal("repository must not be called on validation failure")
					return nil
				},
			}
			_, err := newTestTagService(repo).Create(context.Background(), "user-a", tt.input)
			appErr := assertAppError(t, err, 422)
			if _, ok := appErr.Fields[tt.field]; !ok {
				t.Errorf("expected %s field error, got %v", tt.field, appErr.Fields)
			}
		})
	}
}

func TestCreate_DuplicateName(t *testing.T) {
	repo := &mockTagRepo{
		nameExistsFn: func(ctx context.Context, userID, name string, excludeID int64) (bool, error) {
			if userID != "user-a" || name != "Food" || excludeID != 0 {
				t.Errorf("unexpected NameExists args %q %q %d", userID, name, excludeID)
			}
			return true, nil
		},
	}

	_, err := newTestTagService(repo).Create(context.Background(), "user-a", TagInput{Name: "Food", Color: "#FF5733"})
	assertAppError(t, err, 409)
}

func TestCreate_RepositoryFailureIsInternal(t *testing.T) {
	repo := &mockTagRepo{
		createFn: func(ctx context.Context, tag *Tag) error {
			return errors.New("connection refused")
		},
	}

	_, err := newTestTagService(repo).Create(context.Background(), "user-a", TagInput{Name: "Food", Color: "#FF5733"})
	assertAppError(t, err, 500)
}

// --- Read / Update / Delete Tests ---

func TestGet_OtherUsersTag(t *testing.T) {
	repo := &mockTagRepo{findByIDFn: ownedBy("user-b")}

	appErr := assertAppError(t, func() error {
		_, err := newTestTagService(repo).Get(context.Background(), "user-a", 3)
		return err
	}(), 403)
	if appErr.Message != "unauthorized" {
		t.Errorf("unexpected message %q", appErr.Message)
	}
}

func TestGet_Missing(t *testing.T) {
	_, err := newTestTagService(&mockTagRepo{}).Get(context.Background(), "user-a", 3)
	assertAppError(t, err, 404)
}

func TestUpdate_KeepsOwnNameAndIgnoresItself(t *testing.T) {
	var updated *Tag
	repo := &mockTagRepo{
		findByIDFn: ownedBy("user-a"),
		nameExistsFn: func(ctx context.Context, userID, name string, excludeID int64) (bool, error) {
			if excludeID != 3 {
				t.Errorf("expected the tag itself to be excluded, got %d", excludeID)
			}
			return false, nil
		},
		updateFn: func(ctx context.Context, tag *Tag) error {
			updated = tag
			return nil
		},
	}

	if _, err := newTestTagService(repo).Update(context.Background(), "user-a", 3, TagInput{Name: "Food", Color: "#000000"}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if updated == nil || updated.Color != "#000000" {
		t.Errorf("expected color to be updated, got %+v", updated)
	}
}

func TestUpdate_NameTakenByAnotherTag(t *testing.T) {
	repo := &mockTagRepo{
		findByIDFn: ownedBy("user-a"),
		nameExistsFn: func(ctx context.Context, userID, name string, excludeID int64) (bool, error) {
			return true, nil
		},
	}

	_, err := newTestTagService(repo).Update(context.Background(), "user-a", 3, TagInput{Name: "Travel", Color: "#000000"})
	assertAppError(t, err, 409)
}

func TestUpdate_OwnershipCheckedBeforeValidation(t *testing.T) {
	repo := &mockTagRepo{findByIDFn: ownedBy("user-b")}

	_, err := newTestTagService(repo).Update(context.Background(), "user-a", 3, TagInput{})
	assertAppError(t, err, 403)
}

func TestDelete_OtherUsersTag(t *testing.T) {
	deleted := false
	repo := &mockTagRepo{
		findByIDFn: ownedBy("user-b"),
		deleteFn: func(ctx context.Context, id int64) error {
			deleted = true
			return nil
		},
	}

	err := newTestTagService(repo).Delete(context.Background(), "user-a", 3)
	assertAppError(t, err, 403)
	if deleted {
		t.Error("tag of another user must not be deleted")
	}
}

func TestList_OnlyAsksForCallersTags(t *testing.T) {
	repo := &mockTagRepo{
		listByUserFn: func(ctx context.Context, userID string) ([]Tag, error) {
			if userID != "user-a" {
				t.Errorf("unexpected user %q", userID)
			}
			return []Tag{{ID: 1, UserID: userID, Name: "A"}}, nil
		},
	}

	tags, err := newTestTagService(repo).List(context.Background(), "user-a")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(tags) != 1 {
		t.Errorf("expected 1 tag, got %d", len(tags))
	}
}
