package transaction

import (
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"
)

type Type string

const (
	TypeIncome  Type = "INCOME"
	TypeExpense Type = "EXPENSE"
)

var ErrNotFound = errors.New("transaction not found")

// Owner is the slice of the owning user shown next to each transaction.
type Owner struct {
	Name  string `json:"name"`
	Email string `json:"email"`
}

type Transaction struct {
	ID        string    `json:"id"`
	Amount    Amount    `json:"amount"`
	Concept   string    `json:"concept"`
	Type      Type      `json:"type"`
	Date      time.Time `json:"date"`
	UserID    string    `json:"userId"`
	User      *Owner    `json:"user,omitempty"`
	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

var ErrInvalidDate = errors.New("Fecha inválida")

// Input is the full create/update payload. Amount arrives as a JSON number or a
// numeric string. Fields are checked in declaration order, so a bad type is
// reported before a bad amount or concept.
type Input struct {
	Type    string `json:"type" binding:"required,oneof=INCOME EXPENSE"`
	Amount  Amount `json:"amount" binding:"required,gt=0"`
	Concept string `json:"concept" binding:"required,trimmed_min=3"`
	Date    string `json:"date" binding:"required"`
}

// ParsedDate is the one check left after binding: the date accepts two layouts.
func (in Input) ParsedDate() (time.Time, error) {
	date, err := ParseDate(in.Date)
	if err != nil {
		return time.Time{}, ErrInvalidDate
	}
	return date, nil
}

// ParseDate accepts RFC3339 timestamps and plain YYYY-MM-DD dates.
func ParseDate(s string) (time.Time, error) {
	s = strings.TrimSpace(s)
	if t, err := time.Parse(time.RFC3339, s); err == nil {
		return t.UTC(), nil
	}
	return time.Parse(time.DateOnly, s)
}

func NewFromInput(in Input, date time.Time, userID string) Transaction {
	now := time.Now().UTC()

	return Transaction{
		ID:        uuid.NewString(),
		Amount:    in.Amount,
		Concept:   strings.TrimSpace(in.Concept),
		Type:      Type(in.Type),
		Date:      date,
		UserID:    userID,
		CreatedAt: now,
		UpdatedAt: now,
	}
}

// with pointers if optional, it will be nil
type ListFilter struct {
	Type  *Type
	Query *string
	From  *time.Time
	To    *time.Time
}

// Match applies the filter in memory. From and To are inclusive.
func (f ListFilter) Match(t Transaction) bool {
	if f.Type != nil && t.Type != *f.Type {
		return false
	}
	if f.Query != nil && !strings.Contains(strings.ToLower(t.Concept), strings.ToLower(*f.Query)) {
		return false
	}
	if f.From != nil && t.Date.Before(*f.From) {
		return false
	}
	if f.To != nil && t.Date.After(*f.To) {
		return false
	}
	return true
}
