package services

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"
	"gorm.io/gorm"

	"tripplanner-backend/models"
	"tripplanner-backend/utils"
)

// ExpenseService is the trip ledger: expenses, their settlements and balances.
type ExpenseService struct {
	db     *gorm.DB
	events Publisher
	log    logrus.FieldLogger
	now    func() time.Time
}

func NewExpenseService(db *gorm.DB, events Publisher, log logrus.FieldLogger) *ExpenseService {
	return &ExpenseService{
		db:     db,
		events: events,
		log:    log,
		now:    func() time.Time { return time.Now().UTC() },
	}
}

type CreateExpenseParams struct {
	Category    models.ExpenseCategory
	Description string
	Amount      decimal.Decimal
	Currency    string
	ExpenseDate time.Time
	ReceiptURL  string
	IsShared    bool
	SplitMethod models.SplitMethod
	Shares      []ShareInput
}

// UpdateExpenseParams carries optional changes. Shares replaces the previous
// split inputs whenever it is non-nil.
type UpdateExpenseParams struct {
	Category    *models.ExpenseCategory
	Description *string
	Amount      *decimal.Decimal
	ExpenseDate *time.Time
	ReceiptURL  *string
	IsShared    *bool
	SplitMethod *models.SplitMethod
	Shares      []ShareInput
}

// CreateExpense records an expense paid by payerID. Shared expenses get one
// settlement per participant; the payer's own share is settled on creation.
func (s *ExpenseService) CreateExpense(ctx context.Context, tripID, payerID uuid.UUID, p CreateExpenseParams) (*models.Expense, []models.ExpenseSettlement, error) {
	p.Description = strings.TrimSpace(p.Description)
	if p.Description == "" {
		return nil, nil, invalid("description is required")
	}
	if p.Category == "" {
		p.Category = models.CategoryOther
	}
	if !p.Category.Valid() {
		return nil, nil, invalid("unknown category %q", p.Category)
	}
	if p.SplitMethod == "" {
		p.SplitMethod = models.SplitEqual
	}
	if !p.SplitMethod.Valid() {
		return nil, nil, invalid("unknown split method %q", p.SplitMethod)
	}

	var trip models.Trip
	var expense *models.Expense
	var settlements []models.ExpenseSettlement

	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := loadTrip(tx, tripID, &trip); err != nil {
			return err
		}
		if err := requireMember(tx, tripID, payerID); err != nil {
			return err
		}
		if p.Currency == "" {
			p.Currency = trip.Currency
		}
		if err := validateAmount(p.Amount, p.Currency); err != nil {
			return err
		}
		if p.ExpenseDate.IsZero() {
			p.ExpenseDate = s.now().Truncate(24 * time.Hour)
		}

		expense = &models.Expense{
			TripID:       tripID,
			PaidByUserID: payerID,
			Category:     p.Category,
			Description:  p.Description,
			Amount:       p.Amount,
			Currency:     p.Currency,
			ExpenseDate:  p.ExpenseDate,
			ReceiptURL:   p.ReceiptURL,
			IsShared:     p.IsShared,
			SplitMethod:  p.SplitMethod,
		}
		if err := tx.Create(expense).Error; err != nil {
			return fmt.Errorf("create expense: %w", err)
		}
		if !p.IsShared {
			return nil
		}

		var err error
		settlements, err = s.split(tx, expense, p.Shares, nil)
		return err
	})
	if err != nil {
		return nil, nil, err
	}

	s.publishExpense(ctx, EventExpenseCreated, &trip, expense, settlements, payerID)
	return expense, settlements, nil
}

// split computes and inserts settlements for a shared expense. prior holds the
// settlements being replaced; recorded payments carry over, capped at the new share.
func (s *ExpenseService) split(tx *gorm.DB, e *models.Expense, shares []ShareInput, prior []models.ExpenseSettlement) ([]models.ExpenseSettlement, error) {
	members, err := memberIDs(tx, e.TripID)
	if err != nil {
		return nil, err
	}
	allocations, err := computeSplit(e.SplitMethod, e.Amount, e.Currency, members, shares)
	if err != nil {
		return nil, err
	}

	paidBefore := make(map[uuid.UUID]models.ExpenseSettlement, len(prior))
	for _, st := range prior {
		paidBefore[st.UserID] = st
	}

	settlements := make([]models.ExpenseSettlement, 0, len(allocations))
	for _, a := range allocations {
		st := models.ExpenseSettlement{
			ExpenseID:  e.ID,
			UserID:     a.UserID,
			AmountOwed: a.Amount,
			AmountPaid: decimal.Zero,
		}
		if old, ok := paidBefore[a.UserID]; ok {
			st.AmountPaid = decimal.Min(old.AmountPaid, a.Amount)
			st.Notes = old.Notes
		}
		if a.UserID == e.PaidByUserID {
			st.AmountPaid = a.Amount
		}
		st.IsChecked = st.AmountPaid.Equal(st.AmountOwed)
		settlements = append(settlements, st)
	}
	if len(settlements) > 0 {
		if err := tx.Create(&settlements).Error; err != nil {
			return nil, fmt.Errorf("create settlements: %w", err)
		}
	}
	return settlements, nil
}

// UpdateExpense applies changes from the payer. Changing the amount, the split
// method, the shares or the shared flag regenerates the settlements.
func (s *ExpenseService) UpdateExpense(ctx context.Context, expenseID, userID uuid.UUID, p UpdateExpenseParams) (*models.Expense, []models.ExpenseSettlement, error) {
	var trip models.Trip
	var expense models.Expense
	var settlements []models.ExpenseSettlement

	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := loadExpense(tx, expenseID, &expense); err != nil {
			return err
		}
		if expense.PaidByUserID != userID {
			return forbidden("only the payer can edit this expense")
		}
		if err := loadTrip(tx, expense.TripID, &trip); err != nil {
			return err
		}

		resplit := p.Shares != nil
		if p.Description != nil {
			desc := strings.TrimSpace(*p.Description)
			if desc == "" {
				return invalid("description is required")
			}
			expense.Description = desc
		}
		if p.Category != nil {
			if !p.Category.Valid() {
				return invalid("unknown category %q", *p.Category)
			}
			expense.Category = *p.Category
		}
		if p.Amount != nil {
			if err := validateAmount(*p.Amount, expense.Currency); err != nil {
				return err
			}
			resplit = resplit || !p.Amount.Equal(expense.Amount)
			expense.Amount = *p.Amount
		}
		if p.ExpenseDate != nil {
			expense.ExpenseDate = *p.ExpenseDate
		}
		if p.ReceiptURL != nil {
			expense.ReceiptURL = *p.ReceiptURL
		}
		if p.SplitMethod != nil {
			if !p.SplitMethod.Valid() {
				return invalid("unknown split method %q", *p.SplitMethod)
			}
			resplit = resplit || *p.SplitMethod != expense.SplitMethod
			expense.SplitMethod = *p.SplitMethod
		}
		if p.IsShared != nil {
			resplit = resplit || *p.IsShared != expense.IsShared
			expense.IsShared = *p.IsShared
		}

		if err := tx.Model(&models.Expense{}).Where("id = ?", expense.ID).Updates(map[string]interface{}{
			"description":  expense.Description,
			"category":     expense.Category,
			"amount":       expense.Amount,
			"expense_date": expense.ExpenseDate,
			"receipt_url":  expense.ReceiptURL,
			"split_method": expense.SplitMethod,
			"is_shared":    expense.IsShared,
			"updated_at":   s.now(),
		}).Error; err != nil {
			return fmt.Errorf("update expense: %w", err)
		}

		var prior []models.ExpenseSettlement
		if err := tx.Where("expense_id = ?", expense.ID).Order("created_at ASC").Find(&prior).Error; err != nil {
			return fmt.Errorf("load settlements: %w", err)
		}
		if !resplit {
			settlements = prior
			return nil
		}
		if err := tx.Where("expense_id = ?", expense.ID).Delete(&models.ExpenseSettlement{}).Error; err != nil {
			return fmt.Errorf("delete settlements: %w", err)
		}
		if !expense.IsShared {
			return nil
		}
		shares := p.Shares
		if shares == nil {
			shares = sharesFromSettlements(prior, expense.SplitMethod)
		}
		var err error
		settlements, err = s.split(tx, &expense, shares, prior)
		return err
	})
	if err != nil {
		return nil, nil, err
	}

	s.publishExpense(ctx, EventExpenseUpdated, &trip, &expense, settlements, userID)
	return &expense, settlements, nil
}

// sharesFromSettlements rebuilds weights from an earlier split so a changed
// amount can be redistributed in the same proportions. An equal split keeps
// the earlier participants. Without prior settlements it returns nil and an
// equal split falls back to every accepted member.
func sharesFromSettlements(prior []models.ExpenseSettlement, method models.SplitMethod) []ShareInput {
	if len(prior) == 0 {
		return nil
	}
	if method == models.SplitEqual {
		shares := make([]ShareInput, len(prior))
		for i, st := range prior {
			shares[i] = ShareInput{UserID: st.UserID}
		}
		return shares
	}
	owed := make([]decimal.Decimal, len(prior))
	for i, st := range prior {
		owed[i] = st.AmountOwed
	}
	total := sum(owed)
	shares := make([]ShareInput, len(prior))
	for i, st := range prior {
		shares[i] = ShareInput{UserID: st.UserID, Value: st.AmountOwed}
		if method == models.SplitPercentage && total.IsPositive() {
			shares[i].Value = st.AmountOwed.Mul(hundred).Div(total)
		}
	}
	if method == models.SplitPercentage {
		// Division may leave the percentages a hair off 100; let the last share absorb it.
		values := make([]decimal.Decimal, len(shares))
		for i := range shares {
			values[i] = shares[i].Value
		}
		shares[len(shares)-1].Value = shares[len(shares)-1].Value.Add(hundred.Sub(sum(values)))
	}
	return shares
}

// DeleteExpense removes the expense and its settlements. Payer only.
func (s *ExpenseService) DeleteExpense(ctx context.Context, expenseID, userID uuid.UUID) error {
	var trip models.Trip
	var expense models.Expense
	var settlements []models.ExpenseSettlement

	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := loadExpense(tx, expenseID, &expense); err != nil {
			return err
		}
		if expense.PaidByUserID != userID {
			return forbidden("only the payer can delete this expense")
		}
		if err := loadTrip(tx, expense.TripID, &trip); err != nil {
			return err
		}
		if err := tx.Where("expense_id = ?", expense.ID).Find(&settlements).Error; err != nil {
			return fmt.Errorf("load settlements: %w", err)
		}
		if err := tx.Where("expense_id = ?", expense.ID).Delete(&models.ExpenseSettlement{}).Error; err != nil {
			return fmt.Errorf("delete settlements: %w", err)
		}
		if err := tx.Delete(&models.Expense{}, "id = ?", expense.ID).Error; err != nil {
			return fmt.Errorf("delete expense: %w", err)
		}
		return nil
	})
	if err != nil {
		return err
	}

	s.publishExpense(ctx, EventExpenseDeleted, &trip, &expense, settlements, userID)
	return nil
}

// CanUpdateSettlement reports whether userID is the settlement's debtor.
// A missing settlement yields false.
func (s *ExpenseService) CanUpdateSettlement(ctx context.Context, settlementID, userID uuid.UUID) (bool, error) {
	var st models.ExpenseSettlement
	err := s.db.WithContext(ctx).Select("user_id").First(&st, "id = ?", settlementID).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("load settlement: %w", err)
	}
	return st.UserID == userID, nil
}

// MarkSettlementPaid confirms the debtor has paid their full share.
func (s *ExpenseService) MarkSettlementPaid(ctx context.Context, settlementID, userID uuid.UUID) (*models.ExpenseSettlement, error) {
	return s.updateSettlement(ctx, settlementID, userID, func(st *models.ExpenseSettlement) error {
		st.AmountPaid = st.AmountOwed
		st.IsChecked = true
		return nil
	})
}

// RecordSettlementPayment stores a partial or full payment by the debtor.
func (s *ExpenseService) RecordSettlementPayment(ctx context.Context, settlementID, userID uuid.UUID, amountPaid decimal.Decimal, notes string) (*models.ExpenseSettlement, error) {
	return s.updateSettlement(ctx, settlementID, userID, func(st *models.ExpenseSettlement) error {
		if amountPaid.IsNegative() {
			return invalid("amount paid cannot be negative")
		}
		if amountPaid.GreaterThan(st.AmountOwed) {
			return invalid("amount paid cannot exceed the amount owed (%s)", st.AmountOwed.String())
		}
		st.AmountPaid = amountPaid
		st.IsChecked = amountPaid.Equal(st.AmountOwed)
		st.Notes = strings.TrimSpace(notes)
		return nil
	})
}

func (s *ExpenseService) updateSettlement(ctx context.Context, settlementID, userID uuid.UUID, apply func(*models.ExpenseSettlement) error) (*models.ExpenseSettlement, error) {
	var st models.ExpenseSettlement
	var expense models.Expense
	var trip models.Trip

	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.First(&st, "id = ?", settlementID).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return notFound("settlement not found")
			}
			return fmt.Errorf("load settlement: %w", err)
		}
		if st.UserID != userID {
			return forbidden("only the debtor can update this settlement")
		}
		if err := loadExpense(tx, st.ExpenseID, &expense); err != nil {
			return err
		}
		if err := loadTrip(tx, expense.TripID, &trip); err != nil {
			return err
		}
		if err := apply(&st); err != nil {
			return err
		}
		if !utils.FitsScale(st.AmountPaid, expense.Currency) {
			return invalid("amount paid has too many decimal places for %s", expense.Currency)
		}
		return tx.Model(&models.ExpenseSettlement{}).Where("id = ?", st.ID).Updates(map[string]interface{}{
			"amount_paid": st.AmountPaid,
			"is_checked":  st.IsChecked,
			"notes":       st.Notes,
			"updated_at":  s.now(),
		}).Error
	})
	if err != nil {
		return nil, err
	}

	s.events.Publish(ctx, Event{
		Kind:        EventSettlementUpdated,
		TripID:      trip.ID,
		TripName:    trip.Name,
		ActorID:     userID,
		ActorName:   userName(ctx, s.db, userID),
		SubjectID:   expense.PaidByUserID,
		ReferenceID: st.ID,
		Summary:     expense.Description,
		Currency:    expense.Currency,
		Recipients:  without([]uuid.UUID{expense.PaidByUserID}, userID),
		Amounts:     map[uuid.UUID]decimal.Decimal{userID: st.AmountPaid},
	})
	return &st, nil
}

// ExpenseDetail is an expense with its settlements and participant names.
type ExpenseDetail struct {
	Expense     models.Expense
	Settlements []models.ExpenseSettlement
	Users       map[uuid.UUID]*models.User
}

func (s *ExpenseService) GetExpense(ctx context.Context, expenseID, requesterID uuid.UUID) (*ExpenseDetail, error) {
	db := s.db.WithContext(ctx)
	detail := &ExpenseDetail{}
	if err := loadExpense(db, expenseID, &detail.Expense); err != nil {
		return nil, err
	}
	if err := requireMember(db, detail.Expense.TripID, requesterID); err != nil {
		return nil, err
	}
	if err := db.Where("expense_id = ?", expenseID).Order("created_at ASC").Find(&detail.Settlements).Error; err != nil {
		return nil, fmt.Errorf("load settlements: %w", err)
	}
	ids := []uuid.UUID{detail.Expense.PaidByUserID}
	for _, st := range detail.Settlements {
		ids = append(ids, st.UserID)
	}
	var err error
	detail.Users, err = usersByID(db, ids)
	if err != nil {
		return nil, err
	}
	return detail, nil
}

func (s *ExpenseService) ListTripExpenses(ctx context.Context, tripID, requesterID uuid.UUID) ([]models.Expense, map[uuid.UUID]*models.User, error) {
	db := s.db.WithContext(ctx)
	if err := exists(db, &models.Trip{}, "id = ?", tripID); err != nil {
		return nil, nil, err
	}
	if err := requireMember(db, tripID, requesterID); err != nil {
		return nil, nil, err
	}
	var expenses []models.Expense
	if err := db.Where("trip_id = ?", tripID).Order("expense_date DESC, created_at DESC").Find(&expenses).Error; err != nil {
		return nil, nil, fmt.Errorf("list expenses: %w", err)
	}
	ids := make([]uuid.UUID, len(expenses))
	for i, e := range expenses {
		ids[i] = e.PaidByUserID
	}
	users, err := usersByID(db, ids)
	if err != nil {
		return nil, nil, err
	}
	return expenses, users, nil
}

// ListUserExpenses returns expenses across all trips that the user paid or
// holds a settlement in, newest first.
func (s *ExpenseService) ListUserExpenses(ctx context.Context, userID uuid.UUID) ([]models.Expense, map[uuid.UUID]*models.User, error) {
	db := s.db.WithContext(ctx)
	owing := db.Model(&models.ExpenseSettlement{}).Select("expense_id").Where("user_id = ?", userID)
	var expenses []models.Expense
	if err := db.Where("paid_by_user_id = ? OR id IN (?)", userID, owing).
		Order("expense_date DESC, created_at DESC").Find(&expenses).Error; err != nil {
		return nil, nil, fmt.Errorf("list user expenses: %w", err)
	}
	ids := make([]uuid.UUID, len(expenses))
	for i, e := range expenses {
		ids[i] = e.PaidByUserID
	}
	users, err := usersByID(db, ids)
	if err != nil {
		return nil, nil, err
	}
	return expenses, users, nil
}

// CurrencySummary totals the part of a trip's ledger recorded in one currency.
type CurrencySummary struct {
	Currency         string
	TotalExpenses    decimal.Decimal
	TotalPaid        decimal.Decimal
	TotalConfirmed   decimal.Decimal
	RemainingBalance decimal.Decimal
	ExpenseCount     int
}

// ExpenseSummary totals a trip's ledger. The embedded totals cover the trip's
// own currency; ByCurrency lists every currency with at least one expense.
type ExpenseSummary struct {
	CurrencySummary
	ByCurrency []CurrencySummary
}

// GetTripExpenseSummary totals the trip's ledger per currency. TotalPaid sums
// the recorded AmountPaid of every settlement whether or not it is checked;
// TotalConfirmed only counts checked ones. Expenses without settlements add to
// TotalExpenses and therefore to RemainingBalance.
func (s *ExpenseService) GetTripExpenseSummary(ctx context.Context, tripID, requesterID uuid.UUID) (*ExpenseSummary, error) {
	db := s.db.WithContext(ctx)
	var trip models.Trip
	if err := loadTrip(db, tripID, &trip); err != nil {
		return nil, err
	}
	if err := requireMember(db, tripID, requesterID); err != nil {
		return nil, err
	}
	expenses, settlements, err := tripLedger(db, tripID)
	if err != nil {
		return nil, err
	}

	totals := map[string]*CurrencySummary{}
	var order []string
	bucket := func(currency string) *CurrencySummary {
		if c, ok := totals[currency]; ok {
			return c
		}
		c := &CurrencySummary{
			Currency:       currency,
			TotalExpenses:  decimal.Zero,
			TotalPaid:      decimal.Zero,
			TotalConfirmed: decimal.Zero,
		}
		totals[currency] = c
		order = append(order, currency)
		return c
	}

	currencyOf := make(map[uuid.UUID]string, len(expenses))
	for _, e := range expenses {
		currencyOf[e.ID] = e.Currency
		c := bucket(e.Currency)
		c.TotalExpenses = c.TotalExpenses.Add(e.Amount)
		c.ExpenseCount++
	}
	for _, st := range settlements {
		c := bucket(currencyOf[st.ExpenseID])
		c.TotalPaid = c.TotalPaid.Add(st.AmountPaid)
		if st.IsChecked {
			c.TotalConfirmed = c.TotalConfirmed.Add(st.AmountPaid)
		}
	}

	bucket(trip.Currency)
	sort.Strings(order)
	out := &ExpenseSummary{ByCurrency: make([]CurrencySummary, 0, len(order))}
	for _, cur := range order {
		c := totals[cur]
		c.RemainingBalance = c.TotalExpenses.Sub(c.TotalPaid)
		if c.ExpenseCount > 0 {
			out.ByCurrency = append(out.ByCurrency, *c)
		}
	}
	out.CurrencySummary = *totals[trip.Currency]
	return out, nil
}

// OutstandingSettlement is an unpaid share used for payment reminders.
type OutstandingSettlement struct {
	Settlement models.ExpenseSettlement
	Expense    models.Expense
	TripName   string
	DebtorName string
}

// ListOutstandingSettlements returns unchecked settlements that still have a balance.
func (s *ExpenseService) ListOutstandingSettlements(ctx context.Context) ([]OutstandingSettlement, error) {
	db := s.db.WithContext(ctx)
	var settlements []models.ExpenseSettlement
	if err := db.Where("is_checked = ?", false).Order("created_at ASC").Find(&settlements).Error; err != nil {
		return nil, fmt.Errorf("list settlements: %w", err)
	}
	var expenseIDs []uuid.UUID
	for _, st := range settlements {
		if st.Outstanding().IsPositive() {
			expenseIDs = append(expenseIDs, st.ExpenseID)
		}
	}
	if len(expenseIDs) == 0 {
		return nil, nil
	}

	var expenses []models.Expense
	if err := db.Where("id IN ?", expenseIDs).Find(&expenses).Error; err != nil {
		return nil, fmt.Errorf("load expenses: %w", err)
	}
	byID := make(map[uuid.UUID]models.Expense, len(expenses))
	tripIDs := make([]uuid.UUID, 0, len(expenses))
	for _, e := range expenses {
		byID[e.ID] = e
		tripIDs = append(tripIDs, e.TripID)
	}
	var trips []models.Trip
	if err := db.Where("id IN ?", tripIDs).Find(&trips).Error; err != nil {
		return nil, fmt.Errorf("load trips: %w", err)
	}
	tripNames := make(map[uuid.UUID]string, len(trips))
	for _, t := range trips {
		tripNames[t.ID] = t.Name
	}

	debtorIDs := make([]uuid.UUID, 0, len(settlements))
	for _, st := range settlements {
		debtorIDs = append(debtorIDs, st.UserID)
	}
	debtors, err := usersByID(db, debtorIDs)
	if err != nil {
		return nil, err
	}

	var out []OutstandingSettlement
	for _, st := range settlements {
		e, ok := byID[st.ExpenseID]
		if !ok || !st.Outstanding().IsPositive() {
			continue
		}
		item := OutstandingSettlement{Settlement: st, Expense: e, TripName: tripNames[e.TripID]}
		if u := debtors[st.UserID]; u != nil {
			item.DebtorName = u.Name
		}
		out = append(out, item)
	}
	return out, nil
}

func (s *ExpenseService) publishExpense(ctx context.Context, kind EventKind, trip *models.Trip, e *models.Expense, settlements []models.ExpenseSettlement, actorID uuid.UUID) {
	amounts := make(map[uuid.UUID]decimal.Decimal)
	var recipients []uuid.UUID
	for _, st := range settlements {
		if st.UserID == e.PaidByUserID {
			continue
		}
		amounts[st.UserID] = st.AmountOwed
		recipients = append(recipients, st.UserID)
	}
	s.events.Publish(ctx, Event{
		Kind:        kind,
		TripID:      trip.ID,
		TripName:    trip.Name,
		ActorID:     actorID,
		ActorName:   userName(ctx, s.db, actorID),
		ReferenceID: e.ID,
		Summary:     e.Description,
		Currency:    e.Currency,
		Recipients:  recipients,
		Amounts:     amounts,
	})
}

func loadExpense(tx *gorm.DB, id uuid.UUID, e *models.Expense) error {
	if err := tx.First(e, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return notFound("expense not found")
		}
		return fmt.Errorf("load expense: %w", err)
	}
	return nil
}

func validateAmount(amount decimal.Decimal, currency string) error {
	if !utils.ValidCurrency(currency) {
		return invalid("invalid currency %q", currency)
	}
	if !amount.IsPositive() {
		return invalid("amount must be greater than zero")
	}
	if !utils.FitsScale(amount, currency) {
		return invalid("amount has more than %d decimal places for %s", utils.CurrencyScale(currency), currency)
	}
	return nil
}

// tripLedger loads every expense of a trip with all of their settlements.
func tripLedger(db *gorm.DB, tripID uuid.UUID) ([]models.Expense, []models.ExpenseSettlement, error) {
	var expenses []models.Expense
	if err := db.Where("trip_id = ?", tripID).Order("created_at ASC").Find(&expenses).Error; err != nil {
		return nil, nil, fmt.Errorf("list expenses: %w", err)
	}
	if len(expenses) == 0 {
		return expenses, nil, nil
	}
	ids := make([]uuid.UUID, len(expenses))
	for i, e := range expenses {
		ids[i] = e.ID
	}
	var settlements []models.ExpenseSettlement
	if err := db.Where("expense_id IN ?", ids).Order("created_at ASC").Find(&settlements).Error; err != nil {
		return nil, nil, fmt.Errorf("list settlements: %w", err)
	}
	return expenses, settlements, nil
}
