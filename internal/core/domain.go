package core

import (
	"errors"
	"fmt"
	"strings"
	"time"
)

const (
	AccountChecking   AccountType = "checking"
	AccountSavings    AccountType = "savings"
	AccountCredit     AccountType = "credit"
	AccountInvestment AccountType = "investment"
	AccountCash       AccountType = "cash"
)

const (
	Income  TransactionType = "income"
	Expense TransactionType = "expense"
)

const (
	Weekly    Period = "weekly"
	Monthly   Period = "monthly"
	Quarterly Period = "quarterly"
	Yearly    Period = "yearly"
)

const (
	SubscriptionActive    SubscriptionStatus = "active"
	SubscriptionPaused    SubscriptionStatus = "paused"
	SubscriptionCancelled SubscriptionStatus = "cancelled"
)

const (
	LedgerDiezmo  LedgerKind = "diezmo"
	LedgerSavings LedgerKind = "savings"
)

type (
	AccountType        string
	TransactionType    string
	Period             string
	SubscriptionStatus string
	LedgerKind         string

	Account struct {
		ID       string
		UserID   string
		Name     string
		Type     AccountType
		Balance  Money
		Currency string
		BankName string
		IsActive bool
	}

	Category struct {
		ID     string
		UserID string
		Name   string
		Type   TransactionType
		Color  string
		Icon   string
	}

	Transaction struct {
		ID            string
		UserID        string
		Description   string
		Amount        Money
		Type          TransactionType
		Date          time.Time
		AccountID     string
		CategoryID    string
		GenerateTithe bool
	}

	Budget struct {
		ID         string
		UserID     string
		Name       string
		Amount     Money
		Period     Period
		StartDate  time.Time
		EndDate    time.Time
		CategoryID string
		IsActive   bool

		// Computed on read, never stored.
		Spent     Money
		Remaining Money
	}

	Subscription struct {
		ID              string
		UserID          string
		Name            string
		Amount          Money
		BillingCycle    Period
		NextBillingDate time.Time
		Status          SubscriptionStatus
		AccountID       string
		CategoryID      string
	}

	Goal struct {
		ID          string
		UserID      string
		Name        string
		Target      Money
		Current     Money
		Deadline    time.Time
		IsCompleted bool
	}

	GoalContribution struct {
		ID            string
		GoalID        string
		Amount        Money
		ContributedAt time.Time
		Notes         string
	}

	// PeriodEntry is one accumulated ledger row per accounting period,
	// either for tithe (diezmo) or for savings.
	PeriodEntry struct {
		ID          string
		UserID      string
		Kind        LedgerKind
		Amount      Money
		PeriodType  Period
		PeriodStart time.Time
		PeriodEnd   time.Time
		IsPaid      bool
		PaidDate    time.Time
		Notes       string
	}

	Profile struct {
		UserID            string
		TitheEnabled      bool
		TithePeriod       Period
		AutoDeductTithe   bool
		SavingsPercentage int
		DefaultCurrency   string
	}
)

var (
	ErrInvalidAmount      = errors.New("invalid amount")
	ErrEmptyName          = errors.New("empty name")
	ErrEmptyDescription   = errors.New("empty description")
	ErrInvalidAccountType = errors.New("invalid account type")
	ErrInvalidType        = errors.New("invalid transaction type")
	ErrInvalidPeriod      = errors.New("invalid period")
	ErrInvalidCurrency    = errors.New("invalid currency code")
	ErrInvalidStatus      = errors.New("invalid subscription status")
	ErrInvalidDateRange   = errors.New("end date must not precede start date")
	ErrMissingAccount     = errors.New("missing account id")
	ErrDescriptionTooLong = errors.New("description too long (max 200 characters)")
	ErrZeroDate           = errors.New("date cannot be zero")
	ErrInvalidPercentage  = errors.New("savings percentage must be between 0 and 100")
	ErrNotFound           = errors.New("not found")
)

func (t AccountType) Valid() bool {
	switch t {
	case AccountChecking, AccountSavings, AccountCredit, AccountInvestment, AccountCash:
		return true
	}
	return false
}

func (t TransactionType) Valid() bool {
	return t == Income || t == Expense
}

func (p Period) Valid() bool {
	switch p {
	case Weekly, Monthly, Quarterly, Yearly:
		return true
	}
	return false
}

func (s SubscriptionStatus) Valid() bool {
	switch s {
	case SubscriptionActive, SubscriptionPaused, SubscriptionCancelled:
		return true
	}
	return false
}

// ValidCurrency accepts three-letter uppercase ISO 4217 codes.
func ValidCurrency(code string) bool {
	if len(code) != 3 {
		return false
	}
	for _, r := range code {
		if r < 'A' || r > 'Z' {
			return false
		}
	}
	return true
}

func (a Account) Validate() error {
	if strings.TrimSpace(a.Name) == "" {
		return ErrEmptyName
	}
	if !a.Type.Valid() {
		return ErrInvalidAccountType
	}
	if !ValidCurrency(a.Currency) {
		return ErrInvalidCurrency
	}
	return nil
}

func (c Category) Validate() error {
	if strings.TrimSpace(c.Name) == "" {
		return ErrEmptyName
	}
	if !c.Type.Valid() {
		return ErrInvalidType
	}
	return nil
}

func (t Transaction) Validate() error {
	if strings.TrimSpace(t.Description) == "" {
		return ErrEmptyDescription
	}
	if len(t.Description) > 200 {
		return ErrDescriptionTooLong
	}
	if err := t.Amount.Validate(); err != nil {
		return err
	}
	if !t.Type.Valid() {
		return ErrInvalidType
	}
	if t.Date.IsZero() {
		return fmt.Errorf("transaction date: %w", ErrZeroDate)
	}
	if t.AccountID == "" {
		return ErrMissingAccount
	}
	return nil
}

func (b Budget) Validate() error {
	if strings.TrimSpace(b.Name) == "" {
		return ErrEmptyName
	}
	if err := b.Amount.Validate(); err != nil {
		return err
	}
	if !b.Period.Valid() {
		return ErrInvalidPeriod
	}
	if b.StartDate.IsZero() || b.EndDate.IsZero() {
		return fmt.Errorf("budget dates: %w", ErrZeroDate)
	}
	if b.EndDate.Before(b.StartDate) {
		return ErrInvalidDateRange
	}
	return nil
}

func (s Subscription) Validate() error {
	if strings.TrimSpace(s.Name) == "" {
		return ErrEmptyName
	}
	if err := s.Amount.Validate(); err != nil {
		return err
	}
	if !s.BillingCycle.Valid() {
		return ErrInvalidPeriod
	}
	if s.NextBillingDate.IsZero() {
		return fmt.Errorf("next billing date: %w", ErrZeroDate)
	}
	if !s.Status.Valid() {
		return ErrInvalidStatus
	}
	if s.AccountID == "" {
		return ErrMissingAccount
	}
	return nil
}

func (g Goal) Validate() error {
	if strings.TrimSpace(g.Name) == "" {
		return ErrEmptyName
	}
	if err := g.Target.Validate(); err != nil {
		return err
	}
	return nil
}

// Completed reports whether the goal has reached its target.
func (g Goal) Completed() bool {
	return g.Current.Cents >= g.Target.Cents
}

func (p Profile) Validate() error {
	if p.TithePeriod != Weekly && p.TithePeriod != Monthly {
		return ErrInvalidPeriod
	}
	if p.SavingsPercentage < 0 || p.SavingsPercentage > 100 {
		return ErrInvalidPercentage
	}
	if !ValidCurrency(p.DefaultCurrency) {
		return ErrInvalidCurrency
	}
	return nil
}

// DefaultProfile returns the settings a user starts with before
// touching anything in the preferences screen.
func DefaultProfile(userID string) Profile {
	return Profile{
		UserID:            userID,
		TitheEnabled:      false,
		TithePeriod:       Monthly,
		AutoDeductTithe:   false,
		SavingsPercentage: 0,
		DefaultCurrency:   "USD",
	}
}
