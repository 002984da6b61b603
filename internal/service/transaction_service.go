package service

import (
	"context"
	"fmt"

	"github.com/hearthfin/hearth-backend/internal/domain"
	"github.com/hearthfin/hearth-backend/internal/util"
	"github.com/shopspring/decimal"
)

// TransactionService handles transaction listing, budget assignment, type
// marking and line item breakdowns
type TransactionService struct {
	transactionRepo domain.TransactionRepository
	budgetRepo      domain.BudgetRepository
	txm             domain.TxManager
}

// NewTransactionService creates a new TransactionService
func NewTransactionService(transactionRepo domain.TransactionRepository, budgetRepo domain.BudgetRepository, txm domain.TxManager) *TransactionService {
	return &TransactionService{
		transactionRepo: transactionRepo,
		budgetRepo:      budgetRepo,
		txm:             txm,
	}
}

// List returns a page of the user's transactions. The window defaults to the
// given month (current month when zero); explicit start and end dates in the
// filters override either bound.
func (s *TransactionService) List(ctx context.Context, userID int32, month, year int, filters *domain.TransactionFilters) (*domain.PaginatedTransactions, error) {
	month, year = util.ResolveMonth(month, year)
	if !util.ValidMonth(month) {
		return nil, fmt.Errorf("%w: month must be 1-12", domain.ErrInvalidInput)
	}
	if filters == nil {
		filters = &domain.TransactionFilters{}
	}
	for _, t := range filters.Types {
		if !domain.ValidTransactionType(t) {
			return nil, fmt.Errorf("%w: %q", domain.ErrInvalidTransactionType, t)
		}
	}

	start, end := util.MonthBounds(year, month)
	if filters.StartDate != nil {
		start = *filters.StartDate
	}
	if filters.EndDate != nil {
		end = *filters.EndDate
	}
	return s.transactionRepo.GetForUser(ctx, userID, start, end, filters)
}

// GetByID retrieves a transaction the user owns
func (s *TransactionService) GetByID(ctx context.Context, userID, id int32) (*domain.Transaction, error) {
	return s.transactionRepo.GetByID(ctx, userID, id)
}

// AssignBudget points a transaction at a budget, or clears the assignment
// when budgetID is nil. The budget must belong to the same user.
func (s *TransactionService) AssignBudget(ctx context.Context, userID, id int32, budgetID *int32) (*domain.Transaction, error) {
	if budgetID != nil {
		if _, err := s.budgetRepo.GetByID(ctx, userID, *budgetID); err != nil {
			return nil, err
		}
	}
	if err := s.transactionRepo.AssignBudget(ctx, userID, id, budgetID); err != nil {
		return nil, err
	}
	return s.transactionRepo.GetByID(ctx, userID, id)
}

// MarkType marks a transaction as a transfer, credit payment or loan payment,
// excluding it from budget math; a nil type clears the mark and brings the
// transaction back into the budget.
func (s *TransactionService) MarkType(ctx context.Context, userID, id int32, transactionType *domain.TransactionType) (*domain.Transaction, error) {
	if transactionType != nil && !domain.ValidTransactionType(*transactionType) {
		return nil, fmt.Errorf("%w: %q", domain.ErrInvalidTransactionType, *transactionType)
	}
	return s.transactionRepo.MarkType(ctx, userID, id, transactionType, transactionType != nil)
}

// Breakdown splits a transaction into line items. The items must sum to the
// transaction amount within the rounding tolerance, every targeted budget
// must belong to the user, and either all items land or none do.
func (s *TransactionService) Breakdown(ctx context.Context, userID, id int32, items []*domain.LineItem) ([]*domain.LineItem, error) {
	if len(items) == 0 {
		return nil, fmt.Errorf("%w: at least one line item is required", domain.ErrInvalidInput)
	}

	var created []*domain.LineItem
	err := s.txm.WithinTx(ctx, func(ctx context.Context) error {
		transaction, err := s.transactionRepo.GetByID(ctx, userID, id)
		if err != nil {
			return err
		}

		total := decimal.Zero
		for _, item := range items {
			total = total.Add(item.Amount)
			if item.BudgetID != nil {
				if _, err := s.budgetRepo.GetByID(ctx, userID, *item.BudgetID); err != nil {
					return err
				}
			}
		}
		if total.Sub(transaction.Amount).Abs().GreaterThan(domain.LineItemTolerance) {
			return fmt.Errorf("%w: items total %s, transaction amount %s",
				domain.ErrLineItemSumMismatch, total, transaction.Amount)
		}

		created, err = s.transactionRepo.CreateLineItems(ctx, id, items)
		return err
	})
	return created, err
}

// GetLineItems lists a transaction's line items, scoped to the owner
func (s *TransactionService) GetLineItems(ctx context.Context, userID, id int32) ([]*domain.LineItem, error) {
	if _, err := s.transactionRepo.GetByID(ctx, userID, id); err != nil {
		return nil, err
	}
	return s.transactionRepo.GetLineItems(ctx, id)
}

// UpdateLineItem updates one line item after checking the parent transaction
// and any newly targeted budget belong to the user
func (s *TransactionService) UpdateLineItem(ctx context.Context, userID int32, item *domain.LineItem) (*domain.LineItem, error) {
	existing, err := s.transactionRepo.GetLineItem(ctx, item.ID)
	if err != nil {
		return nil, err
	}
	if _, err := s.transactionRepo.GetByID(ctx, userID, existing.TransactionID); err != nil {
		return nil, err
	}
	if item.BudgetID != nil {
		if _, err := s.budgetRepo.GetByID(ctx, userID, *item.BudgetID); err != nil {
			return nil, err
		}
	}
	item.TransactionID = existing.TransactionID
	return s.transactionRepo.UpdateLineItem(ctx, item)
}

// DeleteLineItem removes one line item, scoped to the owner
func (s *TransactionService) DeleteLineItem(ctx context.Context, userID, id int32) error {
	existing, err := s.transactionRepo.GetLineItem(ctx, id)
	if err != nil {
		return err
	}
	if _, err := s.transactionRepo.GetByID(ctx, userID, existing.TransactionID); err != nil {
		return err
	}
	return s.transactionRepo.DeleteLineItem(ctx, id)
}
