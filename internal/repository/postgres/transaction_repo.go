package postgres

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/hearthfin/hearth-backend/internal/domain"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"
)

// TransactionRepository implements domain.TransactionRepository using PostgreSQL
type TransactionRepository struct {
	pool *pgxpool.Pool
}

// NewTransactionRepository creates a new TransactionRepository
func NewTransactionRepository(pool *pgxpool.Pool) *TransactionRepository {
	return &TransactionRepository{pool: pool}
}

const transactionColumns = `
	t.id, t.external_id, t.account_id, t.amount, t.description, t.payee, t.memo,
	t.posted, t.transacted_at, t.pending, t.is_split, t.type, t.exclude_from_budget, t.budget_id`

func scanTransaction(row rowScanner) (*domain.Transaction, error) {
	var t domain.Transaction
	var amount pgtype.Numeric
	var payee, memo, txType pgtype.Text
	var posted pgtype.Timestamptz
	var budgetID pgtype.Int4

	err := row.Scan(
		&t.ID, &t.ExternalID, &t.AccountID, &amount, &t.Description, &payee, &memo,
		&posted, &t.TransactedAt, &t.Pending, &t.IsSplit, &txType, &t.ExcludeFromBudget, &budgetID,
	)
	if err != nil {
		return nil, err
	}

	t.Amount = pgNumericToDecimal(amount)
	t.Payee = textToPtr(payee)
	t.Memo = textToPtr(memo)
	if posted.Valid {
		t.Posted = &posted.Time
	}
	if txType.Valid {
		tt := domain.TransactionType(txType.String)
		t.Type = &tt
	}
	t.BudgetID = int4ToPtr(budgetID)
	return &t, nil
}

// UpsertBatch inserts or refreshes transactions for an account, keyed by the
// external id. Budget assignment, split state and type marks on existing rows
// are left untouched.
func (r *TransactionRepository) UpsertBatch(ctx context.Context, accountID string, transactions []*domain.Transaction) (int, error) {
	db := conn(ctx, r.pool)
	written := 0
	for _, t := range transactions {
		amount, err := decimalToPgNumeric(t.Amount)
		if err != nil {
			return written, fmt.Errorf("invalid amount for %s: %w", t.ExternalID, err)
		}
		var posted pgtype.Timestamptz
		if t.Posted != nil {
			posted = pgtype.Timestamptz{Time: *t.Posted, Valid: true}
		}

		tag, err := db.Exec(ctx, `
			INSERT INTO transactions (external_id, account_id, amount, description,
				payee, memo, posted, transacted_at, pending)
			VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
			ON CONFLICT (account_id, external_id) DO UPDATE SET
				amount = EXCLUDED.amount,
				description = EXCLUDED.description,
				payee = EXCLUDED.payee,
				memo = EXCLUDED.memo,
				posted = EXCLUDED.posted,
				transacted_at = EXCLUDED.transacted_at,
				pending = EXCLUDED.pending,
				updated_at = now()`,
			t.ExternalID, accountID, amount, t.Description,
			textPtr(t.Payee), textPtr(t.Memo), posted, t.TransactedAt, t.Pending)
		if err != nil {
			return written, err
		}
		written += int(tag.RowsAffected())
	}
	return written, nil
}

// GetByID retrieves a transaction owned by the user
func (r *TransactionRepository) GetByID(ctx context.Context, userID, id int32) (*domain.Transaction, error) {
	row := conn(ctx, r.pool).QueryRow(ctx, `
		SELECT `+transactionColumns+`
		FROM transactions t
		JOIN accounts a ON a.id = t.account_id
		WHERE t.id = $1 AND a.user_id = $2`,
		id, userID)
	t, err := scanTransaction(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrTransactionNotFound
		}
		return nil, err
	}
	return t, nil
}

// GetForUser retrieves a page of the user's transactions in [start, end),
// newest first unless filters say otherwise.
func (r *TransactionRepository) GetForUser(ctx context.Context, userID int32, start, end time.Time, filters *domain.TransactionFilters) (*domain.PaginatedTransactions, error) {
	if filters == nil {
		filters = &domain.TransactionFilters{}
	}
	page := filters.Page
	if page < 1 {
		page = 1
	}
	pageSize := filters.PageSize
	if pageSize < 1 {
		pageSize = domain.DefaultPageSize
	}
	if pageSize > domain.MaxPageSize {
		pageSize = domain.MaxPageSize
	}

	where := []string{
		"a.user_id = $1",
		"t.transacted_at >= $2",
		"t.transacted_at < $3",
	}
	args := []any{userID, start, end}

	if !filters.IncludeExcluded {
		where = append(where, "NOT t.exclude_from_budget")
	}
	if len(filters.Types) > 0 {
		types := make([]string, len(filters.Types))
		for i, tt := range filters.Types {
			types[i] = string(tt)
		}
		args = append(args, types)
		where = append(where, fmt.Sprintf("t.type = ANY($%d)", len(args)))
	}

	from := `
		FROM transactions t
		JOIN accounts a ON a.id = t.account_id
		WHERE ` + strings.Join(where, " AND ")

	db := conn(ctx, r.pool)

	var total int64
	if err := db.QueryRow(ctx, "SELECT count(*)"+from, args...).Scan(&total); err != nil {
		return nil, err
	}

	order := "DESC"
	if filters.SortAsc {
		order = "ASC"
	}
	args = append(args, pageSize, (page-1)*pageSize)
	query := fmt.Sprintf(`
		SELECT %s%s
		ORDER BY t.transacted_at %s, t.id %s
		LIMIT $%d OFFSET $%d`,
		transactionColumns, from, order, order, len(args)-1, len(args))

	rows, err := db.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var data []*domain.Transaction
	for rows.Next() {
		t, err := scanTransaction(rows)
		if err != nil {
			return nil, err
		}
		data = append(data, t)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	return &domain.PaginatedTransactions{
		Data:       data,
		Page:       page,
		PageSize:   pageSize,
		TotalItems: total,
	}, nil
}

// AssignBudget sets or clears the budget a transaction counts toward
func (r *TransactionRepository) AssignBudget(ctx context.Context, userID, id int32, budgetID *int32) error {
	tag, err := conn(ctx, r.pool).Exec(ctx, `
		UPDATE transactions t SET budget_id = $1, updated_at = now()
		FROM accounts a
		WHERE t.id = $2 AND a.id = t.account_id AND a.user_id = $3`,
		int4Ptr(budgetID), id, userID)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrTransactionNotFound
	}
	return nil
}

// MarkType sets the transaction's type mark and its budget exclusion flag,
// returning the updated row. A nil type clears the mark.
func (r *TransactionRepository) MarkType(ctx context.Context, userID, id int32, transactionType *domain.TransactionType, excludeFromBudget bool) (*domain.Transaction, error) {
	var txType pgtype.Text
	if transactionType != nil {
		txType = pgtype.Text{String: string(*transactionType), Valid: true}
	}

	row := conn(ctx, r.pool).QueryRow(ctx, `
		UPDATE transactions t SET type = $1, exclude_from_budget = $2, updated_at = now()
		FROM accounts a
		WHERE t.id = $3 AND a.id = t.account_id AND a.user_id = $4
		RETURNING `+transactionColumns,
		txType, excludeFromBudget, id, userID)
	t, err := scanTransaction(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrTransactionNotFound
		}
		return nil, err
	}
	return t, nil
}

const lineItemColumns = `
	id, transaction_id, description, amount, quantity, unit_price, category, notes, budget_id`

func scanLineItem(row rowScanner) (*domain.LineItem, error) {
	var li domain.LineItem
	var amount, quantity, unitPrice pgtype.Numeric
	var category, notes pgtype.Text
	var budgetID pgtype.Int4

	err := row.Scan(
		&li.ID, &li.TransactionID, &li.Description, &amount, &quantity, &unitPrice,
		&category, &notes, &budgetID,
	)
	if err != nil {
		return nil, err
	}

	li.Amount = pgNumericToDecimal(amount)
	li.Quantity = pgNumericToDecimalPtr(quantity)
	li.UnitPrice = pgNumericToDecimalPtr(unitPrice)
	li.Category = textToPtr(category)
	li.Notes = textToPtr(notes)
	li.BudgetID = int4ToPtr(budgetID)
	return &li, nil
}

// CreateLineItems inserts the items and marks the parent transaction as split.
// Callers run it inside a transaction so a failed insert leaves no partial split.
func (r *TransactionRepository) CreateLineItems(ctx context.Context, transactionID int32, items []*domain.LineItem) ([]*domain.LineItem, error) {
	db := conn(ctx, r.pool)

	created := make([]*domain.LineItem, 0, len(items))
	for _, item := range items {
		amount, err := decimalToPgNumeric(item.Amount)
		if err != nil {
			return nil, fmt.Errorf("invalid amount: %w", err)
		}
		quantity, err := decimalPtrToPgNumeric(item.Quantity)
		if err != nil {
			return nil, fmt.Errorf("invalid quantity: %w", err)
		}
		unitPrice, err := decimalPtrToPgNumeric(item.UnitPrice)
		if err != nil {
			return nil, fmt.Errorf("invalid unit price: %w", err)
		}

		row := db.QueryRow(ctx, `
			INSERT INTO transaction_line_items (transaction_id, description, amount,
				quantity, unit_price, category, notes, budget_id)
			VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
			RETURNING `+lineItemColumns,
			transactionID, item.Description, amount, quantity, unitPrice,
			textPtr(item.Category), textPtr(item.Notes), int4Ptr(item.BudgetID))
		li, err := scanLineItem(row)
		if err != nil {
			return nil, err
		}
		created = append(created, li)
	}

	tag, err := db.Exec(ctx,
		`UPDATE transactions SET is_split = TRUE, updated_at = now() WHERE id = $1`,
		transactionID)
	if err != nil {
		return nil, err
	}
	if tag.RowsAffected() == 0 {
		return nil, domain.ErrTransactionNotFound
	}
	return created, nil
}

// GetLineItems retrieves a transaction's line items
func (r *TransactionRepository) GetLineItems(ctx context.Context, transactionID int32) ([]*domain.LineItem, error) {
	rows, err := conn(ctx, r.pool).Query(ctx, `
		SELECT `+lineItemColumns+`
		FROM transaction_line_items
		WHERE transaction_id = $1
		ORDER BY id`,
		transactionID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var items []*domain.LineItem
	for rows.Next() {
		li, err := scanLineItem(rows)
		if err != nil {
			return nil, err
		}
		items = append(items, li)
	}
	return items, rows.Err()
}

// GetLineItem retrieves a line item by id
func (r *TransactionRepository) GetLineItem(ctx context.Context, id int32) (*domain.LineItem, error) {
	row := conn(ctx, r.pool).QueryRow(ctx,
		`SELECT `+lineItemColumns+` FROM transaction_line_items WHERE id = $1`, id)
	li, err := scanLineItem(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrLineItemNotFound
		}
		return nil, err
	}
	return li, nil
}

// UpdateLineItem updates a line item's mutable fields and returns the result
func (r *TransactionRepository) UpdateLineItem(ctx context.Context, item *domain.LineItem) (*domain.LineItem, error) {
	amount, err := decimalToPgNumeric(item.Amount)
	if err != nil {
		return nil, fmt.Errorf("invalid amount: %w", err)
	}
	quantity, err := decimalPtrToPgNumeric(item.Quantity)
	if err != nil {
		return nil, fmt.Errorf("invalid quantity: %w", err)
	}
	unitPrice, err := decimalPtrToPgNumeric(item.UnitPrice)
	if err != nil {
		return nil, fmt.Errorf("invalid unit price: %w", err)
	}

	row := conn(ctx, r.pool).QueryRow(ctx, `
		UPDATE transaction_line_items
		SET description = $1, amount = $2, quantity = $3, unit_price = $4,
			category = $5, notes = $6, budget_id = $7
		WHERE id = $8
		RETURNING `+lineItemColumns,
		item.Description, amount, quantity, unitPrice,
		textPtr(item.Category), textPtr(item.Notes), int4Ptr(item.BudgetID), item.ID)
	li, err := scanLineItem(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrLineItemNotFound
		}
		return nil, err
	}
	return li, nil
}

// DeleteLineItem removes a line item
func (r *TransactionRepository) DeleteLineItem(ctx context.Context, id int32) error {
	tag, err := conn(ctx, r.pool).Exec(ctx,
		`DELETE FROM transaction_line_items WHERE id = $1`, id)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrLineItemNotFound
	}
	return nil
}

// SumForBudget returns the lifetime transaction sum for a budget: unsplit
// transactions assigned to it plus line items assigned to it.
func (r *TransactionRepository) SumForBudget(ctx context.Context, budgetID int32) (decimal.Decimal, error) {
	var txSum, itemSum pgtype.Numeric
	err := conn(ctx, r.pool).QueryRow(ctx, `
		SELECT
			COALESCE((
				SELECT sum(amount) FROM transactions
				WHERE budget_id = $1 AND NOT is_split
			), 0),
			COALESCE((
				SELECT sum(amount) FROM transaction_line_items
				WHERE budget_id = $1
			), 0)`,
		budgetID).Scan(&txSum, &itemSum)
	if err != nil {
		return decimal.Zero, err
	}
	return pgNumericToDecimal(txSum).Add(pgNumericToDecimal(itemSum)), nil
}

// SumForBudgetInRange is SumForBudget restricted to [start, end). Line items
// take the date of their parent transaction.
func (r *TransactionRepository) SumForBudgetInRange(ctx context.Context, budgetID int32, start, end time.Time) (decimal.Decimal, error) {
	var txSum, itemSum pgtype.Numeric
	err := conn(ctx, r.pool).QueryRow(ctx, `
		SELECT
			COALESCE((
				SELECT sum(amount) FROM transactions
				WHERE budget_id = $1 AND NOT is_split
				  AND transacted_at >= $2 AND transacted_at < $3
			), 0),
			COALESCE((
				SELECT sum(li.amount)
				FROM transaction_line_items li
				JOIN transactions t ON t.id = li.transaction_id
				WHERE li.budget_id = $1
				  AND t.transacted_at >= $2 AND t.transacted_at < $3
			), 0)`,
		budgetID, start, end).Scan(&txSum, &itemSum)
	if err != nil {
		return decimal.Zero, err
	}
	return pgNumericToDecimal(txSum).Add(pgNumericToDecimal(itemSum)), nil
}

// MonthSums returns the per-budget transaction sums for every budget with
// activity in [start, end) in two grouped queries.
func (r *TransactionRepository) MonthSums(ctx context.Context, start, end time.Time) (map[int32]decimal.Decimal, error) {
	db := conn(ctx, r.pool)
	sums := make(map[int32]decimal.Decimal)

	rows, err := db.Query(ctx, `
		SELECT budget_id, sum(amount)
		FROM transactions
		WHERE budget_id IS NOT NULL AND NOT is_split
		  AND transacted_at >= $1 AND transacted_at < $2
		GROUP BY budget_id`,
		start, end)
	if err != nil {
		return nil, err
	}
	if err := mergeSums(rows, sums); err != nil {
		return nil, err
	}

	rows, err = db.Query(ctx, `
		SELECT li.budget_id, sum(li.amount)
		FROM transaction_line_items li
		JOIN transactions t ON t.id = li.transaction_id
		WHERE li.budget_id IS NOT NULL
		  AND t.transacted_at >= $1 AND t.transacted_at < $2
		GROUP BY li.budget_id`,
		start, end)
	if err != nil {
		return nil, err
	}
	if err := mergeSums(rows, sums); err != nil {
		return nil, err
	}

	return sums, nil
}

func mergeSums(rows pgx.Rows, sums map[int32]decimal.Decimal) error {
	defer rows.Close()
	for rows.Next() {
		var budgetID int32
		var sum pgtype.Numeric
		if err := rows.Scan(&budgetID, &sum); err != nil {
			return err
		}
		sums[budgetID] = sums[budgetID].Add(pgNumericToDecimal(sum))
	}
	return rows.Err()
}
