package entries

import (
	"context"
	"log/slog"
	"time"

	"github.com/keyxmakerx/tally/internal/apperror"
	"github.com/keyxmakerx/tally/internal/ownership"
	"github.com/keyxmakerx/tally/internal/validate"
)

// Service defines the business logic for one entry kind. The requesting
// user is always passed explicitly.
type Service interface {
	List(ctx context.Context, userID string, f Filter) (*Page, error)
	Create(ctx context.Context, userID string, in Payload) (*Entry, error)
	Get(ctx context.Context, userID string, id int64) (*Entry, error)
	Update(ctx context.Context, userID string, id int64, in Payload) (*Entry, error)
	Delete(ctx context.Context, userID string, id int64) error

	// Statistics aggregates all of the user's entries of this kind. The
	// current month is taken from the service clock.
	Statistics(ctx context.Context, userID string) (*Statistics, error)
}

// service implements Service for a single Kind.
type service struct {
	kind      Kind
	repo      Repository
	validator *validate.Validator
	now       func() time.Time
}

// NewService creates a service for kind backed by repo.
func NewService(kind Kind, repo Repository, v *validate.Validator) Service {
	return &service{kind: kind, repo: repo, validator: v, now: time.Now}
}

// List returns one page of the user's own entries.
func (s *service) List(ctx context.Context, userID string, f Filter) (*Page, error) {
	f.normalize()

	entries, total, err := s.repo.List(ctx, userID, f)
	if err != nil {
		return nil, apperror.OrInternal(err, "listing "+s.kind.Plural)
	}
	return newPage(entries, f, total), nil
}

// Create validates the payload and stores a new entry for userID.
func (s *service) Create(ctx context.Context, userID string, in Payload) (*Entry, error) {
	e, tagIDs, err := s.build(in)
	if err != nil {
		return nil, err
	}
	e.UserID = userID

	if err := s.repo.Create(ctx, e, tagIDs); err != nil {
		return nil, apperror.OrInternal(err, "creating "+s.kind.Name)
	}

	slog.Info(s.kind.Name+" created",
		slog.Int64("id", e.ID),
		slog.String("user_id", userID),
	)
	return s.reload(ctx, e.ID)
}

// Get returns an entry the user owns.
func (s *service) Get(ctx context.Context, userID string, id int64) (*Entry, error) {
	return s.loadOwned(ctx, userID, id)
}

// Update replaces every scalar field. Tags are synchronised only when the
// payload carries tag_ids.
func (s *service) Update(ctx context.Context, userID string, id int64, in Payload) (*Entry, error) {
	if _, err := s.loadOwned(ctx, userID, id); err != nil {
		return nil, err
	}

	e, tagIDs, err := s.build(in)
	if err != nil {
		return nil, err
	}
	e.ID = id
	e.UserID = userID

	if err := s.repo.Update(ctx, e, tagIDs, tagIDs != nil); err != nil {
		return nil, apperror.OrInternal(err, "updating "+s.kind.Name)
	}

	return s.reload(ctx, id)
}

// Delete removes an entry the user owns.
func (s *service) Delete(ctx context.Context, userID string, id int64) error {
	if _, err := s.loadOwned(ctx, userID, id); err != nil {
		return err
	}

	if err := s.repo.Delete(ctx, id); err != nil {
		return apperror.OrInternal(err, "deleting "+s.kind.Name)
	}

	slog.Info(s.kind.Name+" deleted",
		slog.Int64("id", id),
		slog.String("user_id", userID),
	)
	return nil
}

// Statistics computes totals, the current month's total, per-group sums and
// the most recent entries. Nothing is cached.
func (s *service) Statistics(ctx context.Context, userID string) (*Statistics, error) {
	from, to := monthBounds(s.now())

	total, monthly, err := s.repo.Totals(ctx, userID, from, to)
	if err != nil {
		return nil, apperror.OrInternal(err, "summing "+s.kind.Plural)
	}

	groups, err := s.repo.GroupTotals(ctx, userID)
	if err != nil {
		return nil, apperror.OrInternal(err, "grouping "+s.kind.Plural)
	}

	recent, err := s.repo.Recent(ctx, userID, recentLimit)
	if err != nil {
		return nil, apperror.OrInternal(err, "loading recent "+s.kind.Plural)
	}

	return &Statistics{
		Kind:    s.kind,
		Total:   total,
		Monthly: monthly,
		Groups:  groups,
		Recent:  recent,
	}, nil
}

// --- Helpers ---

// loadOwned fetches an entry and applies the ownership guard. Every
// read/update/delete goes through here.
func (s *service) loadOwned(ctx context.Context, userID string, id int64) (*Entry, error) {
	e, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return nil, apperror.OrInternal(err, "finding "+s.kind.Name)
	}
	if err := ownership.Check(e, userID); err != nil {
		return nil, err
	}
	return e, nil
}

func (s *service) reload(ctx context.Context, id int64) (*Entry, error) {
	e, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return nil, apperror.OrInternal(err, "reloading "+s.kind.Name)
	}
	return e, nil
}

// build validates a payload and converts it to an Entry (without owner or
// id) plus the requested tag ids. A nil tag slice means "not supplied".
func (s *service) build(in Payload) (*Entry, []int64, error) {
	if in == nil {
		return nil, nil, apperror.NewBadRequest("invalid request body")
	}
	in.clean()
	if err := s.validator.Struct(in); err != nil {
		return nil, nil, err
	}

	f := in.fields()
	date, err := time.Parse(DateLayout, f.date)
	if err != nil {
		// The datetime rule already checked this; keep the error shape anyway.
		return nil, nil, apperror.NewValidationFields(map[string]string{
			"date": "The date is not a valid date (expected YYYY-MM-DD).",
		})
	}

	e := &Entry{
		Amount:      f.amount,
		Description: f.description,
		Date:        Date{Time: date},
		Tags:        []TagRef{},
	}
	s.kind.setGroup(e, f.group)

	if s.kind.HasReceipt {
		e.ReceiptImageURL = f.receipt
	}

	return e, f.tagIDs, nil
}

// monthBounds returns the first day of now's month and of the next one.
func monthBounds(now time.Time) (time.Time, time.Time) {
	y, m, _ := now.Date()
	from := time.Date(y, m, 1, 0, 0, 0, 0, time.UTC)
	return from, from.AddDate(0, 1, 0)
}
