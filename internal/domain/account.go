package domain

import (
	"context"
	"time"

	"github.com/shopspring/decimal"
)

// Organization is a financial institution as reported by the aggregator.
type Organization struct {
	Domain  string `json:"domain"`
	Name    string `json:"name"`
	SfinURL string `json:"sfinUrl"`
	URL     string `json:"url"`
	OrgID   string `json:"orgId"`
}

// Account is a bank account synced from the aggregator. The ID is the
// aggregator's external account id and acts as the natural key.
type Account struct {
	ID               string           `json:"id"`
	UserID           int32            `json:"userId"`
	OrgDomain        string           `json:"orgDomain"`
	Name             string           `json:"name"`
	Currency         string           `json:"currency"`
	Balance          decimal.Decimal  `json:"balance"`
	AvailableBalance *decimal.Decimal `json:"availableBalance,omitempty"`
	BalanceDate      time.Time        `json:"balanceDate"`
	PossibleError    bool             `json:"possibleError"`
	CreatedAt        time.Time        `json:"createdAt"`
	UpdatedAt        time.Time        `json:"updatedAt"`
}

type AccountRepository interface {
	// UpsertOrganization inserts the organization if its domain is new.
	UpsertOrganization(ctx context.Context, org *Organization) error
	// UpsertAccount inserts or refreshes the account by its external id.
	UpsertAccount(ctx context.Context, account *Account) error
	GetByUser(ctx context.Context, userID int32) ([]*Account, error)
}
