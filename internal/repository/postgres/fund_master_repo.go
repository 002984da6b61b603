package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/hearthfin/hearth-backend/internal/domain"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"
)

// FundMasterRepository implements domain.FundMasterRepository using PostgreSQL
type FundMasterRepository struct {
	pool *pgxpool.Pool
}

// NewFundMasterRepository creates a new FundMasterRepository
func NewFundMasterRepository(pool *pgxpool.Pool) *FundMasterRepository {
	return &FundMasterRepository{pool: pool}
}

// CreateMaster inserts a new fund master
func (r *FundMasterRepository) CreateMaster(ctx context.Context, name *string) (*domain.FundMaster, error) {
	var m domain.FundMaster
	var masterName pgtype.Text
	err := conn(ctx, r.pool).QueryRow(ctx, `
		INSERT INTO fund_masters (name)
		VALUES ($1)
		RETURNING id, name, created_at`,
		textPtr(name)).Scan(&m.ID, &masterName, &m.CreatedAt)
	if err != nil {
		return nil, err
	}
	m.Name = textToPtr(masterName)
	return &m, nil
}

// GetMaster retrieves a fund master by id
func (r *FundMasterRepository) GetMaster(ctx context.Context, id int32) (*domain.FundMaster, error) {
	var m domain.FundMaster
	var name pgtype.Text
	err := conn(ctx, r.pool).QueryRow(ctx,
		`SELECT id, name, created_at FROM fund_masters WHERE id = $1`, id).
		Scan(&m.ID, &name, &m.CreatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrMasterNotFound
		}
		return nil, err
	}
	m.Name = textToPtr(name)
	return &m, nil
}

// DeleteMaster removes a fund master. Fails if any fund still references it.
func (r *FundMasterRepository) DeleteMaster(ctx context.Context, id int32) error {
	tag, err := conn(ctx, r.pool).Exec(ctx,
		`DELETE FROM fund_masters WHERE id = $1`, id)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrMasterNotFound
	}
	return nil
}

// GetFundRow retrieves a fund's full budget row
func (r *FundMasterRepository) GetFundRow(ctx context.Context, budgetID int32) (*domain.BudgetRow, error) {
	row := conn(ctx, r.pool).QueryRow(ctx, `
		SELECT `+budgetRowColumns+`
		FROM budgets b`+budgetRowJoins+`
		WHERE b.id = $1 AND f.budget_id IS NOT NULL`,
		budgetID)
	br, err := scanBudgetRow(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrFundNotFound
		}
		return nil, err
	}
	return br, nil
}

// GetFundsByMaster retrieves member fund rows ordered oldest first
func (r *FundMasterRepository) GetFundsByMaster(ctx context.Context, masterID int32) ([]*domain.BudgetRow, error) {
	rows, err := conn(ctx, r.pool).Query(ctx, `
		SELECT `+budgetRowColumns+`
		FROM budgets b`+budgetRowJoins+`
		WHERE f.master_fund_id = $1
		ORDER BY b.year, b.month, b.id`,
		masterID)
	if err != nil {
		return nil, err
	}
	return collectBudgetRows(rows)
}

// GetMastersForUser retrieves every master referenced by a fund the user owns
func (r *FundMasterRepository) GetMastersForUser(ctx context.Context, userID int32) ([]*domain.FundMaster, error) {
	rows, err := conn(ctx, r.pool).Query(ctx, `
		SELECT DISTINCT fm.id, fm.name, fm.created_at
		FROM fund_masters fm
		JOIN funds f ON f.master_fund_id = fm.id
		JOIN budgets b ON b.id = f.budget_id
		WHERE b.user_id = $1
		ORDER BY fm.id`,
		userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var masters []*domain.FundMaster
	for rows.Next() {
		var m domain.FundMaster
		var name pgtype.Text
		if err := rows.Scan(&m.ID, &name, &m.CreatedAt); err != nil {
			return nil, err
		}
		m.Name = textToPtr(name)
		masters = append(masters, &m)
	}
	return masters, rows.Err()
}

// HasFundForMonth reports whether the master already has a fund row in the month
func (r *FundMasterRepository) HasFundForMonth(ctx context.Context, masterID int32, month, year int) (bool, error) {
	var exists bool
	err := conn(ctx, r.pool).QueryRow(ctx, `
		SELECT EXISTS (
			SELECT 1
			FROM funds f
			JOIN budgets b ON b.id = f.budget_id
			WHERE f.master_fund_id = $1 AND b.month = $2 AND b.year = $3
		)`,
		masterID, month, year).Scan(&exists)
	return exists, err
}

// LastFund retrieves the most recent member fund row by (year, month)
func (r *FundMasterRepository) LastFund(ctx context.Context, masterID int32) (*domain.BudgetRow, error) {
	row := conn(ctx, r.pool).QueryRow(ctx, `
		SELECT `+budgetRowColumns+`
		FROM budgets b`+budgetRowJoins+`
		WHERE f.master_fund_id = $1
		ORDER BY b.year DESC, b.month DESC, b.id DESC
		LIMIT 1`,
		masterID)
	br, err := scanBudgetRow(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrFundNotFound
		}
		return nil, err
	}
	return br, nil
}

// Repoint moves every fund on fromMasterID to toMasterID
func (r *FundMasterRepository) Repoint(ctx context.Context, fromMasterID, toMasterID int32) (int, error) {
	tag, err := conn(ctx, r.pool).Exec(ctx,
		`UPDATE funds SET master_fund_id = $1 WHERE master_fund_id = $2`,
		toMasterID, fromMasterID)
	if err != nil {
		return 0, err
	}
	return int(tag.RowsAffected()), nil
}

// SetMaster repoints a single fund to a master
func (r *FundMasterRepository) SetMaster(ctx context.Context, budgetID, masterID int32) error {
	tag, err := conn(ctx, r.pool).Exec(ctx,
		`UPDATE funds SET master_fund_id = $1 WHERE budget_id = $2`,
		masterID, budgetID)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrFundNotFound
	}
	return nil
}

// AddToMonthAmount adds delta to a fund's month allocation
func (r *FundMasterRepository) AddToMonthAmount(ctx context.Context, budgetID int32, delta decimal.Decimal) error {
	amount, err := decimalToPgNumeric(delta)
	if err != nil {
		return fmt.Errorf("invalid delta: %w", err)
	}
	tag, err := conn(ctx, r.pool).Exec(ctx,
		`UPDATE funds SET month_amount = month_amount + $1 WHERE budget_id = $2`,
		amount, budgetID)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrFundNotFound
	}
	return nil
}

// EnabledFundsForMonth retrieves the user's enabled funds for the month in
// allocation order, locking the fund rows until the surrounding transaction
// ends so concurrent allocator runs serialize.
func (r *FundMasterRepository) EnabledFundsForMonth(ctx context.Context, userID int32, month, year int) ([]*domain.BudgetRow, error) {
	// Inner join on funds so FOR UPDATE can lock the fund rows; the master
	// name stays a left join and is not locked.
	rows, err := conn(ctx, r.pool).Query(ctx, `
		SELECT b.id, b.user_id, b.name, b.enabled, b.deleted, b.month, b.year, b.created_at,
			f.budget_id, f.priority, f.increment, f.month_amount, f.max_amount, f.master_fund_id,
			fm.name
		FROM budgets b
		JOIN funds f ON f.budget_id = b.id
		LEFT JOIN fund_masters fm ON fm.id = f.master_fund_id
		WHERE b.user_id = $1 AND b.month = $2 AND b.year = $3 AND b.enabled
		ORDER BY f.priority ASC, f.budget_id ASC
		FOR UPDATE OF f`,
		userID, month, year)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []*domain.BudgetRow
	for rows.Next() {
		var br domain.BudgetRow
		var fund domain.Fund
		var increment, monthAmount, maxAmount pgtype.Numeric
		var masterName pgtype.Text
		if err := rows.Scan(
			&br.ID, &br.UserID, &br.Name, &br.Enabled, &br.Deleted, &br.Month, &br.Year, &br.CreatedAt,
			&fund.BudgetID, &fund.Priority, &increment, &monthAmount, &maxAmount, &fund.MasterFundID,
			&masterName,
		); err != nil {
			return nil, err
		}
		fund.Increment = pgNumericToDecimal(increment)
		fund.MonthAmount = pgNumericToDecimal(monthAmount)
		fund.Max = pgNumericToDecimalPtr(maxAmount)
		br.Fund = &fund
		br.MasterName = textToPtr(masterName)
		result = append(result, &br)
	}
	return result, rows.Err()
}
