package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/hearthfin/hearth-backend/internal/domain"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/jackc/pgx/v5/pgxpool"
)

// BudgetRepository implements domain.BudgetRepository using PostgreSQL
type BudgetRepository struct {
	pool *pgxpool.Pool
}

// NewBudgetRepository creates a new BudgetRepository
func NewBudgetRepository(pool *pgxpool.Pool) *BudgetRepository {
	return &BudgetRepository{pool: pool}
}

// budgetRowColumns selects a budget with all three variant extensions
// outer-joined plus the master name for fund rows. Kept in one place because
// every multi-row read scans the same shape.
const budgetRowColumns = `
	b.id, b.user_id, b.name, b.enabled, b.deleted, b.month, b.year, b.created_at,
	i.budget_id, i.fixed, i.expected_amount, i.min_amount, i.max_amount,
	e.budget_id, e.fixed, e.flexible, e.expected_amount, e.min_amount, e.max_amount,
	f.budget_id, f.priority, f.increment, f.month_amount, f.max_amount, f.master_fund_id,
	fm.name`

const budgetRowJoins = `
	LEFT JOIN incomes i ON i.budget_id = b.id
	LEFT JOIN expenses e ON e.budget_id = b.id
	LEFT JOIN funds f ON f.budget_id = b.id
	LEFT JOIN fund_masters fm ON fm.id = f.master_fund_id`

type rowScanner interface {
	Scan(dest ...any) error
}

func scanBudgetRow(row rowScanner) (*domain.BudgetRow, error) {
	var br domain.BudgetRow

	var incomeID pgtype.Int4
	var incomeFixed pgtype.Bool
	var incomeExpected, incomeMin, incomeMax pgtype.Numeric

	var expenseID pgtype.Int4
	var expenseFixed, expenseFlexible pgtype.Bool
	var expenseExpected, expenseMin, expenseMax pgtype.Numeric

	var fundID, fundPriority, masterFundID pgtype.Int4
	var fundIncrement, fundMonthAmount, fundMax pgtype.Numeric

	var masterName pgtype.Text

	err := row.Scan(
		&br.ID, &br.UserID, &br.Name, &br.Enabled, &br.Deleted, &br.Month, &br.Year, &br.CreatedAt,
		&incomeID, &incomeFixed, &incomeExpected, &incomeMin, &incomeMax,
		&expenseID, &expenseFixed, &expenseFlexible, &expenseExpected, &expenseMin, &expenseMax,
		&fundID, &fundPriority, &fundIncrement, &fundMonthAmount, &fundMax, &masterFundID,
		&masterName,
	)
	if err != nil {
		return nil, err
	}

	switch {
	case incomeID.Valid:
		br.Income = &domain.Income{
			BudgetID:       incomeID.Int32,
			Fixed:          incomeFixed.Bool,
			ExpectedAmount: pgNumericToDecimal(incomeExpected),
			Min:            pgNumericToDecimalPtr(incomeMin),
			Max:            pgNumericToDecimalPtr(incomeMax),
		}
	case expenseID.Valid:
		br.Expense = &domain.Expense{
			BudgetID:       expenseID.Int32,
			Fixed:          expenseFixed.Bool,
			Flexible:       expenseFlexible.Bool,
			ExpectedAmount: pgNumericToDecimal(expenseExpected),
			Min:            pgNumericToDecimalPtr(expenseMin),
			Max:            pgNumericToDecimalPtr(expenseMax),
		}
	case fundID.Valid:
		br.Fund = &domain.Fund{
			BudgetID:     fundID.Int32,
			Priority:     fundPriority.Int32,
			Increment:    pgNumericToDecimal(fundIncrement),
			MonthAmount:  pgNumericToDecimal(fundMonthAmount),
			Max:          pgNumericToDecimalPtr(fundMax),
			MasterFundID: masterFundID.Int32,
		}
		br.MasterName = textToPtr(masterName)
	}

	return &br, nil
}

func collectBudgetRows(rows pgx.Rows) ([]*domain.BudgetRow, error) {
	defer rows.Close()
	var result []*domain.BudgetRow
	for rows.Next() {
		br, err := scanBudgetRow(rows)
		if err != nil {
			return nil, err
		}
		result = append(result, br)
	}
	return result, rows.Err()
}

// Create inserts a budget and returns it with the generated id
func (r *BudgetRepository) Create(ctx context.Context, budget *domain.Budget) (*domain.Budget, error) {
	row := conn(ctx, r.pool).QueryRow(ctx, `
		INSERT INTO budgets (user_id, name, enabled, deleted, month, year)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING id, created_at`,
		budget.UserID, budget.Name, budget.Enabled, budget.Deleted, budget.Month, budget.Year)

	created := *budget
	if err := row.Scan(&created.ID, &created.CreatedAt); err != nil {
		return nil, err
	}
	return &created, nil
}

// CreateIncome inserts the income extension for a budget
func (r *BudgetRepository) CreateIncome(ctx context.Context, income *domain.Income) error {
	expected, err := decimalToPgNumeric(income.ExpectedAmount)
	if err != nil {
		return fmt.Errorf("invalid expected amount: %w", err)
	}
	minAmount, err := decimalPtrToPgNumeric(income.Min)
	if err != nil {
		return fmt.Errorf("invalid min: %w", err)
	}
	maxAmount, err := decimalPtrToPgNumeric(income.Max)
	if err != nil {
		return fmt.Errorf("invalid max: %w", err)
	}

	_, err = conn(ctx, r.pool).Exec(ctx, `
		INSERT INTO incomes (budget_id, fixed, expected_amount, min_amount, max_amount)
		VALUES ($1, $2, $3, $4, $5)`,
		income.BudgetID, income.Fixed, expected, minAmount, maxAmount)
	return err
}

// CreateExpense inserts the expense extension for a budget
func (r *BudgetRepository) CreateExpense(ctx context.Context, expense *domain.Expense) error {
	expected, err := decimalToPgNumeric(expense.ExpectedAmount)
	if err != nil {
		return fmt.Errorf("invalid expected amount: %w", err)
	}
	minAmount, err := decimalPtrToPgNumeric(expense.Min)
	if err != nil {
		return fmt.Errorf("invalid min: %w", err)
	}
	maxAmount, err := decimalPtrToPgNumeric(expense.Max)
	if err != nil {
		return fmt.Errorf("invalid max: %w", err)
	}

	_, err = conn(ctx, r.pool).Exec(ctx, `
		INSERT INTO expenses (budget_id, fixed, flexible, expected_amount, min_amount, max_amount)
		VALUES ($1, $2, $3, $4, $5, $6)`,
		expense.BudgetID, expense.Fixed, expense.Flexible, expected, minAmount, maxAmount)
	return err
}

// CreateFund inserts the fund extension for a budget
func (r *BudgetRepository) CreateFund(ctx context.Context, fund *domain.Fund) error {
	increment, err := decimalToPgNumeric(fund.Increment)
	if err != nil {
		return fmt.Errorf("invalid increment: %w", err)
	}
	monthAmount, err := decimalToPgNumeric(fund.MonthAmount)
	if err != nil {
		return fmt.Errorf("invalid month amount: %w", err)
	}
	maxAmount, err := decimalPtrToPgNumeric(fund.Max)
	if err != nil {
		return fmt.Errorf("invalid max: %w", err)
	}

	_, err = conn(ctx, r.pool).Exec(ctx, `
		INSERT INTO funds (budget_id, priority, increment, month_amount, max_amount, master_fund_id)
		VALUES ($1, $2, $3, $4, $5, $6)`,
		fund.BudgetID, fund.Priority, increment, monthAmount, maxAmount, fund.MasterFundID)
	return err
}

// GetByID retrieves a budget owned by the user
func (r *BudgetRepository) GetByID(ctx context.Context, userID, id int32) (*domain.Budget, error) {
	var b domain.Budget
	err := conn(ctx, r.pool).QueryRow(ctx, `
		SELECT id, user_id, name, enabled, deleted, month, year, created_at
		FROM budgets
		WHERE id = $1 AND user_id = $2`,
		id, userID).Scan(&b.ID, &b.UserID, &b.Name, &b.Enabled, &b.Deleted, &b.Month, &b.Year, &b.CreatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrBudgetNotFound
		}
		return nil, err
	}
	return &b, nil
}

// GetMonthRows retrieves a month's budgets with their variant extensions
func (r *BudgetRepository) GetMonthRows(ctx context.Context, userID int32, month, year int) ([]*domain.BudgetRow, error) {
	rows, err := conn(ctx, r.pool).Query(ctx, `
		SELECT `+budgetRowColumns+`
		FROM budgets b`+budgetRowJoins+`
		WHERE b.user_id = $1 AND b.month = $2 AND b.year = $3
		ORDER BY b.id`,
		userID, month, year)
	if err != nil {
		return nil, err
	}
	return collectBudgetRows(rows)
}

// GetNames retrieves budget ids and names for a month
func (r *BudgetRepository) GetNames(ctx context.Context, userID int32, month, year int) ([]*domain.BudgetName, error) {
	rows, err := conn(ctx, r.pool).Query(ctx, `
		SELECT b.id, b.name, f.master_fund_id
		FROM budgets b
		LEFT JOIN funds f ON f.budget_id = b.id
		WHERE b.user_id = $1 AND b.month = $2 AND b.year = $3
		ORDER BY b.id`,
		userID, month, year)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var names []*domain.BudgetName
	for rows.Next() {
		var n domain.BudgetName
		var masterID pgtype.Int4
		if err := rows.Scan(&n.ID, &n.Name, &masterID); err != nil {
			return nil, err
		}
		n.MasterFundID = int4ToPtr(masterID)
		names = append(names, &n)
	}
	return names, rows.Err()
}

// GetEarlierByName retrieves budgets with the given names from months
// strictly before (month, year)
func (r *BudgetRepository) GetEarlierByName(ctx context.Context, userID int32, names []string, month, year int) ([]*domain.BudgetRow, error) {
	if len(names) == 0 {
		return nil, nil
	}
	rows, err := conn(ctx, r.pool).Query(ctx, `
		SELECT `+budgetRowColumns+`
		FROM budgets b`+budgetRowJoins+`
		WHERE b.user_id = $1
		  AND b.name = ANY($2)
		  AND (b.year < $3 OR (b.year = $3 AND b.month < $4))
		ORDER BY b.year, b.month, b.id`,
		userID, names, year, month)
	if err != nil {
		return nil, err
	}
	return collectBudgetRows(rows)
}

// HasBudgets reports whether any budget exists for the month
func (r *BudgetRepository) HasBudgets(ctx context.Context, userID int32, month, year int) (bool, error) {
	var exists bool
	err := conn(ctx, r.pool).QueryRow(ctx, `
		SELECT EXISTS (
			SELECT 1 FROM budgets WHERE user_id = $1 AND month = $2 AND year = $3
		)`,
		userID, month, year).Scan(&exists)
	return exists, err
}

// Delete removes a budget owned by the user; extensions cascade
func (r *BudgetRepository) Delete(ctx context.Context, userID, id int32) error {
	tag, err := conn(ctx, r.pool).Exec(ctx,
		`DELETE FROM budgets WHERE id = $1 AND user_id = $2`, id, userID)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrBudgetNotFound
	}
	return nil
}

// DeleteMonth removes every budget for the month and returns the count
func (r *BudgetRepository) DeleteMonth(ctx context.Context, userID int32, month, year int) (int, error) {
	tag, err := conn(ctx, r.pool).Exec(ctx,
		`DELETE FROM budgets WHERE user_id = $1 AND month = $2 AND year = $3`,
		userID, month, year)
	if err != nil {
		return 0, err
	}
	return int(tag.RowsAffected()), nil
}
