package service

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/hearthfin/hearth-backend/internal/domain"
	"github.com/rs/zerolog/log"
	"golang.org/x/sync/errgroup"
)

// syncWorkers caps how many accounts are persisted concurrently per sync run
const syncWorkers = 4

// SyncService pulls accounts and transactions from the bank aggregator and
// persists them
type SyncService struct {
	userRepo        domain.UserRepository
	accountRepo     domain.AccountRepository
	transactionRepo domain.TransactionRepository
	client          domain.BankDataClient
}

// NewSyncService creates a new SyncService
func NewSyncService(userRepo domain.UserRepository, accountRepo domain.AccountRepository, transactionRepo domain.TransactionRepository, client domain.BankDataClient) *SyncService {
	return &SyncService{
		userRepo:        userRepo,
		accountRepo:     accountRepo,
		transactionRepo: transactionRepo,
		client:          client,
	}
}

// SyncResult reports one sync run
type SyncResult struct {
	BatchID             string
	AccountsSynced      int
	TransactionsWritten int
	Errors              []string
}

// Sync fetches the user's bank data and upserts organizations, accounts and
// transactions. Accounts are persisted concurrently; transaction upserts are
// idempotent on the external id, so a re-run after a partial failure heals.
func (s *SyncService) Sync(ctx context.Context, userID int32, start, end time.Time) (*SyncResult, error) {
	user, err := s.userRepo.GetByID(ctx, userID)
	if err != nil {
		return nil, err
	}
	if user.AccessURL == nil || *user.AccessURL == "" {
		return nil, domain.ErrAccessURLNotSet
	}

	data, err := s.client.FetchAccounts(ctx, *user.AccessURL, start, end)
	if err != nil {
		return nil, err
	}

	result := &SyncResult{
		BatchID: uuid.NewString(),
		Errors:  data.Errors,
	}

	var mu sync.Mutex
	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(syncWorkers)

	for _, account := range data.Accounts {
		account := account
		g.Go(func() error {
			written, err := s.saveAccount(ctx, userID, &account)
			if err != nil {
				return err
			}
			mu.Lock()
			result.AccountsSynced++
			result.TransactionsWritten += written
			mu.Unlock()
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	log.Info().
		Str("batch_id", result.BatchID).
		Int32("user_id", userID).
		Int("accounts", result.AccountsSynced).
		Int("transactions", result.TransactionsWritten).
		Msg("bank sync completed")
	return result, nil
}

func (s *SyncService) saveAccount(ctx context.Context, userID int32, account *domain.BankAccount) (int, error) {
	err := s.accountRepo.UpsertOrganization(ctx, &domain.Organization{
		Domain:  account.Org.Domain,
		Name:    account.Org.Name,
		SfinURL: account.Org.SfinURL,
		URL:     account.Org.URL,
		OrgID:   account.Org.ID,
	})
	if err != nil {
		return 0, err
	}

	err = s.accountRepo.UpsertAccount(ctx, &domain.Account{
		ID:               account.ID,
		UserID:           userID,
		OrgDomain:        account.Org.Domain,
		Name:             account.Name,
		Currency:         account.Currency,
		Balance:          account.Balance,
		AvailableBalance: account.AvailableBalance,
		BalanceDate:      account.BalanceDate,
		PossibleError:    account.PossibleError,
	})
	if err != nil {
		return 0, err
	}

	transactions := make([]*domain.Transaction, 0, len(account.Transactions))
	for _, t := range account.Transactions {
		posted := t.Posted
		transactions = append(transactions, &domain.Transaction{
			ExternalID:   t.ID,
			AccountID:    account.ID,
			Amount:       t.Amount,
			Description:  t.Description,
			Payee:        optionalString(t.Payee),
			Memo:         optionalString(t.Memo),
			Posted:       &posted,
			TransactedAt: t.TransactedAt,
			Pending:      t.Pending,
		})
	}
	return s.transactionRepo.UpsertBatch(ctx, account.ID, transactions)
}

func optionalString(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}

// Accounts lists the user's synced accounts
func (s *SyncService) Accounts(ctx context.Context, userID int32) ([]*domain.Account, error) {
	return s.accountRepo.GetByUser(ctx, userID)
}
