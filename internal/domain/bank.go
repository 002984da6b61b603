package domain

import (
	"context"
	"time"

	"github.com/shopspring/decimal"
)

// BankOrganization is the institution block of an aggregator account payload.
type BankOrganization struct {
	ID      string
	Domain  string
	SfinURL string
	URL     string
	Name    string
}

// BankTransaction is a raw synced transaction, normalized by the client.
type BankTransaction struct {
	ID           string
	Posted       time.Time
	Amount       decimal.Decimal
	Description  string
	Payee        string
	Memo         string
	TransactedAt time.Time
	Pending      bool
}

// BankAccount is an account with its embedded transactions as returned by
// one aggregator fetch.
type BankAccount struct {
	Org              BankOrganization
	ID               string
	Name             string
	Currency         string
	Balance          decimal.Decimal
	AvailableBalance *decimal.Decimal
	BalanceDate      time.Time
	Transactions     []BankTransaction
	PossibleError    bool
}

// BankData is the full payload of one aggregator fetch.
type BankData struct {
	Errors   []string
	Accounts []BankAccount
}

// BankDataClient talks to the external bank-data aggregator.
type BankDataClient interface {
	// ClaimAccessURL exchanges a one-time setup token for an access URL.
	ClaimAccessURL(ctx context.Context, setupToken string) (string, error)
	// FetchAccounts retrieves accounts and transactions visible through the
	// access URL, filtered to transactions on or after start when non-zero.
	FetchAccounts(ctx context.Context, accessURL string, start, end time.Time) (*BankData, error)
}
