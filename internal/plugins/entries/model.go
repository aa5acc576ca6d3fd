// Package entries manages the two kinds of money movement a user records:
// expenses and incomes. Both share one schema shape (amount, description,
// a grouping column, a date and a tag set), so a single repository, service
// and handler serve both, parameterised by a Kind.
package entries

import (
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"github.com/keyxmakerx/tally/internal/validate"
)

// DateLayout is the wire and storage format of an entry date.
const DateLayout = "2006-01-02"

// Pagination bounds for list endpoints.
const (
	DefaultPerPage = 20
	MaxPerPage     = 100

	// recentLimit is how many entries the statistics "recent" list holds.
	recentLimit = 5
)

// Kind describes one entry type. Table and column names come from here and
// are never taken from user input.
type Kind struct {
	// Name is the singular resource name ("expense").
	Name string

	// Plural is the route and JSON key stem ("expenses").
	Plural string

	// Table holds the entries; LinkTable/LinkColumn the tag associations.
	Table      string
	LinkTable  string
	LinkColumn string

	// GroupColumn is the categorical field: "category" or "source".
	GroupColumn string

	// HasReceipt is true for kinds with a receipt_image_url column.
	HasReceipt bool

	newInput func() Payload
}

// Expense is the kind for money going out.
var Expense = Kind{
	Name:        "expense",
	Plural:      "expenses",
	Table:       "expenses",
	LinkTable:   "expense_tags",
	LinkColumn:  "expense_id",
	GroupColumn: "category",
	HasReceipt:  true,
	newInput:    func() Payload { return &ExpenseInput{} },
}

// Income is the kind for money coming in.
var Income = Kind{
	Name:        "income",
	Plural:      "incomes",
	Table:       "incomes",
	LinkTable:   "income_tags",
	LinkColumn:  "income_id",
	GroupColumn: "source",
	newInput:    func() Payload { return &IncomeInput{} },
}

// title returns the capitalised singular name for messages.
func (k Kind) title() string {
	return strings.ToUpper(k.Name[:1]) + k.Name[1:]
}

// Date is a calendar day serialised as YYYY-MM-DD.
type Date struct {
	time.Time
}

// MarshalJSON writes the date without a time component.
func (d Date) MarshalJSON() ([]byte, error) {
	return json.Marshal(d.Format(DateLayout))
}

// UnmarshalJSON accepts YYYY-MM-DD.
func (d *Date) UnmarshalJSON(b []byte) error {
	var s string
	if err := json.Unmarshal(b, &s); err != nil {
		return err
	}
	t, err := time.Parse(DateLayout, s)
	if err != nil {
		return fmt.Errorf("parsing date %q: %w", s, err)
	}
	d.Time = t
	return nil
}

// TagRef is the tag summary embedded in every entry.
type TagRef struct {
	ID    int64  `json:"id"`
	Name  string `json:"name"`
	Color string `json:"color"`
}

// Entry is one expense or income row with its tags.
type Entry struct {
	ID          int64           `json:"id"`
	UserID      string          `json:"user_id"`
	Amount      decimal.Decimal `json:"amount"`
	Description string          `json:"description"`

	// Exactly one of Category/Source is set, depending on the kind.
	Category string `json:"category,omitempty"`
	Source   string `json:"source,omitempty"`

	Date            Date      `json:"date"`
	ReceiptImageURL *string   `json:"receipt_image_url,omitempty"`
	CreatedAt       time.Time `json:"created_at"`
	UpdatedAt       time.Time `json:"updated_at"`

	// Tags is never nil so it always serialises as an array.
	Tags []TagRef `json:"tags"`
}

// OwnerID implements ownership.Owned.
func (e *Entry) OwnerID() string { return e.UserID }

// group returns the value of the kind's categorical column.
func (k Kind) group(e *Entry) string {
	if k.GroupColumn == "source" {
		return e.Source
	}
	return e.Category
}

func (k Kind) setGroup(e *Entry, v string) {
	if k.GroupColumn == "source" {
		e.Source = v
	} else {
		e.Category = v
	}
}

// --- Requests ---

// Payload is a validated create/update body of either kind.
type Payload interface {
	fields() entryFields

	// clean trims the free-text fields in place. A blank receipt URL
	// becomes absent.
	clean()
}

// ExpenseInput is the body of POST/PUT /api/expenses.
type ExpenseInput struct {
	Amount          *validate.Amount `json:"amount" validate:"required,decimal,amount"`
	Description     string           `json:"description" validate:"required,max=255,plaintext"`
	Category        string           `json:"category" validate:"required,max=100,plaintext"`
	Date            string           `json:"date" validate:"required,datetime=2006-01-02"`
	ReceiptImageURL *string          `json:"receipt_image_url" validate:"omitempty,url,max=2048"`

	// TagIDs nil means "leave associations alone" on update.
	TagIDs []int64 `json:"tag_ids" validate:"omitempty,dive,gt=0"`
}

func (in *ExpenseInput) clean() {
	in.Description = strings.TrimSpace(in.Description)
	in.Category = strings.TrimSpace(in.Category)
	if in.ReceiptImageURL != nil {
		url := strings.TrimSpace(*in.ReceiptImageURL)
		if url == "" {
			in.ReceiptImageURL = nil
		} else {
			in.ReceiptImageURL = &url
		}
	}
}

func (in *ExpenseInput) fields() entryFields {
	return entryFields{
		amount:      in.Amount.Decimal(),
		description: in.Description,
		group:       in.Category,
		date:        in.Date,
		receipt:     in.ReceiptImageURL,
		tagIDs:      in.TagIDs,
	}
}

// IncomeInput is the body of POST/PUT /api/incomes.
type IncomeInput struct {
	Amount      *validate.Amount `json:"amount" validate:"required,decimal,amount"`
	Description string           `json:"description" validate:"required,max=255,plaintext"`
	Source      string           `json:"source" validate:"required,max=100,plaintext"`
	Date        string           `json:"date" validate:"required,datetime=2006-01-02"`
	TagIDs      []int64          `json:"tag_ids" validate:"omitempty,dive,gt=0"`
}

func (in *IncomeInput) clean() {
	in.Description = strings.TrimSpace(in.Description)
	in.Source = strings.TrimSpace(in.Source)
}

func (in *IncomeInput) fields() entryFields {
	return entryFields{
		amount:      in.Amount.Decimal(),
		description: in.Description,
		group:       in.Source,
		date:        in.Date,
		tagIDs:      in.TagIDs,
	}
}

// entryFields is the kind-independent view of a payload.
type entryFields struct {
	amount      decimal.Decimal
	description string
	group       string
	date        string
	receipt     *string
	tagIDs      []int64
}

// --- Listing ---

// Filter narrows a list. Zero values mean "no filter". The date range only
// applies when both bounds are set.
type Filter struct {
	StartDate *time.Time
	EndDate   *time.Time
	Group     string
	TagID     int64

	Page    int
	PerPage int
}

// normalize clamps pagination to sane bounds.
func (f *Filter) normalize() {
	if f.Page < 1 {
		f.Page = 1
	}
	if f.PerPage < 1 {
		f.PerPage = DefaultPerPage
	}
	if f.PerPage > MaxPerPage {
		f.PerPage = MaxPerPage
	}
}

// Offset returns the SQL OFFSET value for the current page.
func (f Filter) Offset() int {
	return (f.Page - 1) * f.PerPage
}

// Page is the paginated list envelope.
type Page struct {
	Data        []Entry `json:"data"`
	CurrentPage int     `json:"current_page"`
	PerPage     int     `json:"per_page"`
	Total       int     `json:"total"`
	LastPage    int     `json:"last_page"`
}

func newPage(data []Entry, f Filter, total int) *Page {
	if data == nil {
		data = []Entry{}
	}
	last := (total + f.PerPage - 1) / f.PerPage
	if last < 1 {
		last = 1
	}
	return &Page{Data: data, CurrentPage: f.Page, PerPage: f.PerPage, Total: total, LastPage: last}
}

// --- Statistics ---

// GroupTotal is the sum of one category or source.
type GroupTotal struct {
	Name  string
	Total decimal.Decimal
}

// Statistics is the aggregate view of a user's entries of one kind. JSON
// keys depend on the kind, e.g. total_expenses and category_stats.
type Statistics struct {
	Kind    Kind
	Total   decimal.Decimal
	Monthly decimal.Decimal
	Groups  []GroupTotal
	Recent  []Entry
}

// MarshalJSON renders the kind-specific keys.
func (s Statistics) MarshalJSON() ([]byte, error) {
	groups := make([]map[string]any, 0, len(s.Groups))
	for _, g := range s.Groups {
		groups = append(groups, map[string]any{
			s.Kind.GroupColumn: g.Name,
			"total":            g.Total,
		})
	}
	recent := s.Recent
	if recent == nil {
		recent = []Entry{}
	}

	return json.Marshal(map[string]any{
		"total_" + s.Kind.Plural:      s.Total,
		"monthly_" + s.Kind.Plural:    s.Monthly,
		s.Kind.GroupColumn + "_stats": groups,
		"recent_" + s.Kind.Plural:     recent,
	})
}
