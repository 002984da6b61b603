// Package simplefin implements domain.BankDataClient against a SimpleFIN
// bank-data aggregator.
package simplefin

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/hearthfin/hearth-backend/internal/domain"
	"github.com/shopspring/decimal"
)

// defaultStartDate is the epoch used when no start date is given, far enough
// back to cover any account's history (2001-01-01).
const defaultStartDate = 978360153

// Client talks to a SimpleFIN server over HTTP
type Client struct {
	httpClient *http.Client
}

// NewClient creates a new Client
func NewClient() *Client {
	return &Client{
		httpClient: &http.Client{Timeout: 60 * time.Second},
	}
}

// ClaimAccessURL exchanges a one-time setup token for a permanent access URL.
// The setup token is the base64-encoded claim URL; claiming it is a POST with
// empty credentials whose response body is the access URL.
func (c *Client) ClaimAccessURL(ctx context.Context, setupToken string) (string, error) {
	claimURL, err := base64.StdEncoding.DecodeString(strings.TrimSpace(setupToken))
	if err != nil {
		return "", fmt.Errorf("%w: %v", domain.ErrInvalidSetupToken, err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, string(claimURL), nil)
	if err != nil {
		return "", err
	}
	req.SetBasicAuth("", "")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusForbidden {
		return "", domain.ErrClaimFailed
	}
	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("claim returned status %d", resp.StatusCode)
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", err
	}
	return strings.TrimSpace(string(body)), nil
}

// accountsPayload mirrors the SimpleFIN /accounts response. Amounts come as
// numeric strings and timestamps as unix seconds.
type accountsPayload struct {
	Errors   []string `json:"errors"`
	Accounts []struct {
		Org struct {
			Domain  string `json:"domain"`
			SfinURL string `json:"sfin-url"`
			URL     string `json:"url"`
			Name    string `json:"name"`
			ID      string `json:"id"`
		} `json:"org"`
		ID               string  `json:"id"`
		Name             string  `json:"name"`
		Currency         string  `json:"currency"`
		Balance          string  `json:"balance"`
		AvailableBalance *string `json:"available-balance"`
		BalanceDate      int64   `json:"balance-date"`
		Transactions     []struct {
			ID           string `json:"id"`
			Posted       int64  `json:"posted"`
			Amount       string `json:"amount"`
			Description  string `json:"description"`
			Payee        string `json:"payee"`
			Memo         string `json:"memo"`
			TransactedAt *int64 `json:"transacted_at"`
			Pending      bool   `json:"pending"`
		} `json:"transactions"`
	} `json:"accounts"`
}

// FetchAccounts retrieves accounts with their transactions through the access
// URL. A zero start falls back to an epoch old enough to cover everything.
func (c *Client) FetchAccounts(ctx context.Context, accessURL string, start, end time.Time) (*domain.BankData, error) {
	query := url.Values{}
	query.Set("pending", "1")
	if start.IsZero() {
		query.Set("start-date", strconv.FormatInt(defaultStartDate, 10))
	} else {
		query.Set("start-date", strconv.FormatInt(start.Unix(), 10))
	}
	if !end.IsZero() {
		query.Set("end-date", strconv.FormatInt(end.Unix(), 10))
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet,
		strings.TrimRight(accessURL, "/")+"/accounts?"+query.Encode(), nil)
	if err != nil {
		return nil, err
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	switch resp.StatusCode {
	case http.StatusOK:
	case http.StatusPaymentRequired:
		return nil, domain.ErrPaymentRequired
	case http.StatusForbidden:
		return nil, domain.ErrBankAuthFailed
	default:
		return nil, fmt.Errorf("accounts fetch returned status %d", resp.StatusCode)
	}

	var payload accountsPayload
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		return nil, fmt.Errorf("decoding accounts payload: %w", err)
	}
	return convertPayload(&payload)
}

func convertPayload(payload *accountsPayload) (*domain.BankData, error) {
	data := &domain.BankData{Errors: payload.Errors}

	for _, account := range payload.Accounts {
		balance, err := decimal.NewFromString(account.Balance)
		if err != nil {
			return nil, fmt.Errorf("account %s balance: %w", account.ID, err)
		}
		var availableBalance *decimal.Decimal
		if account.AvailableBalance != nil {
			parsed, err := decimal.NewFromString(*account.AvailableBalance)
			if err != nil {
				return nil, fmt.Errorf("account %s available balance: %w", account.ID, err)
			}
			availableBalance = &parsed
		}

		converted := domain.BankAccount{
			Org: domain.BankOrganization{
				ID:      account.Org.ID,
				Domain:  account.Org.Domain,
				SfinURL: account.Org.SfinURL,
				URL:     account.Org.URL,
				Name:    account.Org.Name,
			},
			ID:               account.ID,
			Name:             account.Name,
			Currency:         account.Currency,
			Balance:          balance,
			AvailableBalance: availableBalance,
			BalanceDate:      time.Unix(account.BalanceDate, 0).UTC(),
			PossibleError:    orgNeedsAttention(payload.Errors, account.Org.Name),
		}

		for _, t := range account.Transactions {
			amount, err := decimal.NewFromString(t.Amount)
			if err != nil {
				return nil, fmt.Errorf("transaction %s amount: %w", t.ID, err)
			}
			posted := time.Unix(t.Posted, 0).UTC()
			transactedAt := posted
			if t.TransactedAt != nil {
				transactedAt = time.Unix(*t.TransactedAt, 0).UTC()
			}
			converted.Transactions = append(converted.Transactions, domain.BankTransaction{
				ID:           t.ID,
				Posted:       posted,
				Amount:       amount,
				Description:  t.Description,
				Payee:        t.Payee,
				Memo:         t.Memo,
				TransactedAt: transactedAt,
				Pending:      t.Pending,
			})
		}
		data.Accounts = append(data.Accounts, converted)
	}
	return data, nil
}

// orgNeedsAttention reports whether the server flagged the institution in its
// errors list. The server phrases these as "Connection to X may need attention".
func orgNeedsAttention(errors []string, orgName string) bool {
	if orgName == "" {
		return false
	}
	for _, message := range errors {
		if strings.Contains(message, orgName) {
			return true
		}
	}
	return false
}
