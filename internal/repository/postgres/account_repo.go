package postgres

import (
	"context"
	"fmt"

	"github.com/hearthfin/hearth-backend/internal/domain"
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/jackc/pgx/v5/pgxpool"
)

// AccountRepository implements domain.AccountRepository using PostgreSQL
type AccountRepository struct {
	pool *pgxpool.Pool
}

// NewAccountRepository creates a new AccountRepository
func NewAccountRepository(pool *pgxpool.Pool) *AccountRepository {
	return &AccountRepository{pool: pool}
}

// UpsertOrganization inserts the organization if its domain is new
func (r *AccountRepository) UpsertOrganization(ctx context.Context, org *domain.Organization) error {
	_, err := conn(ctx, r.pool).Exec(ctx, `
		INSERT INTO organizations (domain, name, sfin_url, url, org_id)
		VALUES ($1, $2, $3, $4, $5)
		ON CONFLICT (domain) DO NOTHING`,
		org.Domain, org.Name, org.SfinURL, org.URL, org.OrgID)
	return err
}

// UpsertAccount inserts or refreshes the account by its external id
func (r *AccountRepository) UpsertAccount(ctx context.Context, account *domain.Account) error {
	balance, err := decimalToPgNumeric(account.Balance)
	if err != nil {
		return fmt.Errorf("invalid balance: %w", err)
	}
	availableBalance, err := decimalPtrToPgNumeric(account.AvailableBalance)
	if err != nil {
		return fmt.Errorf("invalid available balance: %w", err)
	}

	_, err = conn(ctx, r.pool).Exec(ctx, `
		INSERT INTO accounts (id, user_id, org_domain, name, currency, balance,
			available_balance, balance_date, possible_error)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		ON CONFLICT (id) DO UPDATE SET
			name = EXCLUDED.name,
			currency = EXCLUDED.currency,
			balance = EXCLUDED.balance,
			available_balance = EXCLUDED.available_balance,
			balance_date = EXCLUDED.balance_date,
			possible_error = EXCLUDED.possible_error,
			updated_at = now()`,
		account.ID, account.UserID, account.OrgDomain, account.Name, account.Currency,
		balance, availableBalance, account.BalanceDate, account.PossibleError)
	return err
}

// GetByUser retrieves all accounts for a user
func (r *AccountRepository) GetByUser(ctx context.Context, userID int32) ([]*domain.Account, error) {
	rows, err := conn(ctx, r.pool).Query(ctx, `
		SELECT id, user_id, org_domain, name, currency, balance, available_balance,
			balance_date, possible_error, created_at, updated_at
		FROM accounts
		WHERE user_id = $1
		ORDER BY name`,
		userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var accounts []*domain.Account
	for rows.Next() {
		var a domain.Account
		var balance, availableBalance pgtype.Numeric
		if err := rows.Scan(&a.ID, &a.UserID, &a.OrgDomain, &a.Name, &a.Currency,
			&balance, &availableBalance, &a.BalanceDate, &a.PossibleError,
			&a.CreatedAt, &a.UpdatedAt); err != nil {
			return nil, err
		}
		a.Balance = pgNumericToDecimal(balance)
		a.AvailableBalance = pgNumericToDecimalPtr(availableBalance)
		accounts = append(accounts, &a)
	}
	return accounts, rows.Err()
}
