package testutil

import (
	"context"
	"sort"
	"time"

	"github.com/hearthfin/hearth-backend/internal/domain"
	"github.com/shopspring/decimal"
)

// MockTxManager is a mock implementation of domain.TxManager. It runs the
// function directly; tests assert on repository state instead of commits.
type MockTxManager struct {
	Calls int
}

// NewMockTxManager creates a new MockTxManager
func NewMockTxManager() *MockTxManager {
	return &MockTxManager{}
}

// WithinTx runs fn on the given context
func (m *MockTxManager) WithinTx(ctx context.Context, fn func(ctx context.Context) error) error {
	m.Calls++
	return fn(ctx)
}

// MockUserRepository is a mock implementation of domain.UserRepository
type MockUserRepository struct {
	Users    map[int32]*domain.User
	ByAuthID map[string]*domain.User
	NextID   int32
}

// NewMockUserRepository creates a new MockUserRepository
func NewMockUserRepository() *MockUserRepository {
	return &MockUserRepository{
		Users:    make(map[int32]*domain.User),
		ByAuthID: make(map[string]*domain.User),
		NextID:   1,
	}
}

// AddUser adds a user to the mock repository (helper for tests)
func (m *MockUserRepository) AddUser(user *domain.User) {
	if user.ID == 0 {
		user.ID = m.NextID
		m.NextID++
	} else if user.ID >= m.NextID {
		m.NextID = user.ID + 1
	}
	m.Users[user.ID] = user
	m.ByAuthID[user.AuthID] = user
}

// GetByID retrieves a user by id
func (m *MockUserRepository) GetByID(_ context.Context, id int32) (*domain.User, error) {
	if user, ok := m.Users[id]; ok {
		return user, nil
	}
	return nil, domain.ErrUserNotFound
}

// GetByAuthID retrieves a user by auth subject
func (m *MockUserRepository) GetByAuthID(_ context.Context, authID string) (*domain.User, error) {
	if user, ok := m.ByAuthID[authID]; ok {
		return user, nil
	}
	return nil, domain.ErrUserNotFound
}

// EnsureByAuthID returns the user for the auth subject, creating it if needed
func (m *MockUserRepository) EnsureByAuthID(_ context.Context, authID string) (*domain.User, error) {
	if user, ok := m.ByAuthID[authID]; ok {
		return user, nil
	}
	user := &domain.User{ID: m.NextID, AuthID: authID}
	m.NextID++
	m.Users[user.ID] = user
	m.ByAuthID[authID] = user
	return user, nil
}

// UpdateAccessURL stores the access URL for a user
func (m *MockUserRepository) UpdateAccessURL(_ context.Context, userID int32, accessURL string) error {
	user, ok := m.Users[userID]
	if !ok {
		return domain.ErrUserNotFound
	}
	user.AccessURL = &accessURL
	return nil
}

// MockAccountRepository is a mock implementation of domain.AccountRepository
type MockAccountRepository struct {
	Organizations map[string]*domain.Organization
	Accounts      map[string]*domain.Account
}

// NewMockAccountRepository creates a new MockAccountRepository
func NewMockAccountRepository() *MockAccountRepository {
	return &MockAccountRepository{
		Organizations: make(map[string]*domain.Organization),
		Accounts:      make(map[string]*domain.Account),
	}
}

// UpsertOrganization inserts the organization if its domain is new
func (m *MockAccountRepository) UpsertOrganization(_ context.Context, org *domain.Organization) error {
	if _, ok := m.Organizations[org.Domain]; !ok {
		m.Organizations[org.Domain] = org
	}
	return nil
}

// UpsertAccount inserts or replaces the account
func (m *MockAccountRepository) UpsertAccount(_ context.Context, account *domain.Account) error {
	m.Accounts[account.ID] = account
	return nil
}

// GetByUser retrieves all accounts for a user
func (m *MockAccountRepository) GetByUser(_ context.Context, userID int32) ([]*domain.Account, error) {
	var accounts []*domain.Account
	for _, a := range m.Accounts {
		if a.UserID == userID {
			accounts = append(accounts, a)
		}
	}
	sort.Slice(accounts, func(i, j int) bool { return accounts[i].Name < accounts[j].Name })
	return accounts, nil
}

// MockBudgetRepository is a mock implementation of domain.BudgetRepository.
// Budgets are stored as full rows; the variant Create methods attach their
// extension to the row created beforehand.
type MockBudgetRepository struct {
	Rows   map[int32]*domain.BudgetRow
	NextID int32
}

// NewMockBudgetRepository creates a new MockBudgetRepository
func NewMockBudgetRepository() *MockBudgetRepository {
	return &MockBudgetRepository{
		Rows:   make(map[int32]*domain.BudgetRow),
		NextID: 1,
	}
}

// AddRow adds a complete budget row to the mock repository (helper for tests)
func (m *MockBudgetRepository) AddRow(row *domain.BudgetRow) *domain.BudgetRow {
	if row.ID == 0 {
		row.ID = m.NextID
		m.NextID++
	} else if row.ID >= m.NextID {
		m.NextID = row.ID + 1
	}
	switch {
	case row.Income != nil:
		row.Income.BudgetID = row.ID
	case row.Expense != nil:
		row.Expense.BudgetID = row.ID
	case row.Fund != nil:
		row.Fund.BudgetID = row.ID
	}
	m.Rows[row.ID] = row
	return row
}

func (m *MockBudgetRepository) sortedRows(match func(*domain.BudgetRow) bool) []*domain.BudgetRow {
	var rows []*domain.BudgetRow
	for _, row := range m.Rows {
		if match(row) {
			rows = append(rows, row)
		}
	}
	sort.Slice(rows, func(i, j int) bool { return rows[i].ID < rows[j].ID })
	return rows
}

// Create inserts a budget and returns it with a generated id
func (m *MockBudgetRepository) Create(_ context.Context, budget *domain.Budget) (*domain.Budget, error) {
	created := *budget
	created.ID = m.NextID
	created.CreatedAt = time.Now()
	m.NextID++
	m.Rows[created.ID] = &domain.BudgetRow{Budget: created}
	return &created, nil
}

// CreateIncome attaches the income extension
func (m *MockBudgetRepository) CreateIncome(_ context.Context, income *domain.Income) error {
	row, ok := m.Rows[income.BudgetID]
	if !ok {
		return domain.ErrBudgetNotFound
	}
	row.Income = income
	return nil
}

// CreateExpense attaches the expense extension
func (m *MockBudgetRepository) CreateExpense(_ context.Context, expense *domain.Expense) error {
	row, ok := m.Rows[expense.BudgetID]
	if !ok {
		return domain.ErrBudgetNotFound
	}
	row.Expense = expense
	return nil
}

// CreateFund attaches the fund extension
func (m *MockBudgetRepository) CreateFund(_ context.Context, fund *domain.Fund) error {
	row, ok := m.Rows[fund.BudgetID]
	if !ok {
		return domain.ErrBudgetNotFound
	}
	row.Fund = fund
	return nil
}

// GetByID retrieves a budget owned by the user
func (m *MockBudgetRepository) GetByID(_ context.Context, userID, id int32) (*domain.Budget, error) {
	row, ok := m.Rows[id]
	if !ok || row.UserID != userID {
		return nil, domain.ErrBudgetNotFound
	}
	budget := row.Budget
	return &budget, nil
}

// GetMonthRows retrieves a month's budget rows
func (m *MockBudgetRepository) GetMonthRows(_ context.Context, userID int32, month, year int) ([]*domain.BudgetRow, error) {
	return m.sortedRows(func(row *domain.BudgetRow) bool {
		return row.UserID == userID && row.Month == month && row.Year == year
	}), nil
}

// GetNames retrieves budget names for a month
func (m *MockBudgetRepository) GetNames(ctx context.Context, userID int32, month, year int) ([]*domain.BudgetName, error) {
	rows, _ := m.GetMonthRows(ctx, userID, month, year)
	names := make([]*domain.BudgetName, 0, len(rows))
	for _, row := range rows {
		name := &domain.BudgetName{ID: row.ID, Name: row.Name}
		if row.Fund != nil {
			masterID := row.Fund.MasterFundID
			name.MasterFundID = &masterID
		}
		names = append(names, name)
	}
	return names, nil
}

// GetEarlierByName retrieves same-named budgets from strictly earlier months
func (m *MockBudgetRepository) GetEarlierByName(_ context.Context, userID int32, names []string, month, year int) ([]*domain.BudgetRow, error) {
	wanted := make(map[string]bool, len(names))
	for _, name := range names {
		wanted[name] = true
	}
	rows := m.sortedRows(func(row *domain.BudgetRow) bool {
		if row.UserID != userID || !wanted[row.Name] {
			return false
		}
		return row.Year < year || (row.Year == year && row.Month < month)
	})
	sort.Slice(rows, func(i, j int) bool {
		if rows[i].Year != rows[j].Year {
			return rows[i].Year < rows[j].Year
		}
		if rows[i].Month != rows[j].Month {
			return rows[i].Month < rows[j].Month
		}
		return rows[i].ID < rows[j].ID
	})
	return rows, nil
}

// HasBudgets reports whether any budget exists for the month
func (m *MockBudgetRepository) HasBudgets(ctx context.Context, userID int32, month, year int) (bool, error) {
	rows, _ := m.GetMonthRows(ctx, userID, month, year)
	return len(rows) > 0, nil
}

// Delete removes a budget owned by the user
func (m *MockBudgetRepository) Delete(_ context.Context, userID, id int32) error {
	row, ok := m.Rows[id]
	if !ok || row.UserID != userID {
		return domain.ErrBudgetNotFound
	}
	delete(m.Rows, id)
	return nil
}

// DeleteMonth removes every budget for the month
func (m *MockBudgetRepository) DeleteMonth(ctx context.Context, userID int32, month, year int) (int, error) {
	rows, _ := m.GetMonthRows(ctx, userID, month, year)
	for _, row := range rows {
		delete(m.Rows, row.ID)
	}
	return len(rows), nil
}

// MockFundMasterRepository is a mock implementation of
// domain.FundMasterRepository. Fund rows live in the budget mock so services
// see one consistent view.
type MockFundMasterRepository struct {
	Masters      map[int32]*domain.FundMaster
	Budgets      *MockBudgetRepository
	NextMasterID int32
}

// NewMockFundMasterRepository creates a new MockFundMasterRepository backed
// by the given budget mock
func NewMockFundMasterRepository(budgets *MockBudgetRepository) *MockFundMasterRepository {
	return &MockFundMasterRepository{
		Masters:      make(map[int32]*domain.FundMaster),
		Budgets:      budgets,
		NextMasterID: 1,
	}
}

// AddMaster adds a master to the mock repository (helper for tests)
func (m *MockFundMasterRepository) AddMaster(master *domain.FundMaster) *domain.FundMaster {
	if master.ID == 0 {
		master.ID = m.NextMasterID
		m.NextMasterID++
	} else if master.ID >= m.NextMasterID {
		m.NextMasterID = master.ID + 1
	}
	m.Masters[master.ID] = master
	return master
}

// CreateMaster inserts a new fund master
func (m *MockFundMasterRepository) CreateMaster(_ context.Context, name *string) (*domain.FundMaster, error) {
	master := &domain.FundMaster{ID: m.NextMasterID, Name: name, CreatedAt: time.Now()}
	m.NextMasterID++
	m.Masters[master.ID] = master
	return master, nil
}

// GetMaster retrieves a fund master by id
func (m *MockFundMasterRepository) GetMaster(_ context.Context, id int32) (*domain.FundMaster, error) {
	if master, ok := m.Masters[id]; ok {
		return master, nil
	}
	return nil, domain.ErrMasterNotFound
}

// DeleteMaster removes a fund master
func (m *MockFundMasterRepository) DeleteMaster(_ context.Context, id int32) error {
	if _, ok := m.Masters[id]; !ok {
		return domain.ErrMasterNotFound
	}
	delete(m.Masters, id)
	return nil
}

// GetFundRow retrieves a fund's budget row
func (m *MockFundMasterRepository) GetFundRow(_ context.Context, budgetID int32) (*domain.BudgetRow, error) {
	row, ok := m.Budgets.Rows[budgetID]
	if !ok || row.Fund == nil {
		return nil, domain.ErrFundNotFound
	}
	return row, nil
}

func (m *MockFundMasterRepository) memberRows(masterID int32) []*domain.BudgetRow {
	rows := m.Budgets.sortedRows(func(row *domain.BudgetRow) bool {
		return row.Fund != nil && row.Fund.MasterFundID == masterID
	})
	sort.Slice(rows, func(i, j int) bool {
		if rows[i].Year != rows[j].Year {
			return rows[i].Year < rows[j].Year
		}
		if rows[i].Month != rows[j].Month {
			return rows[i].Month < rows[j].Month
		}
		return rows[i].ID < rows[j].ID
	})
	return rows
}

// GetFundsByMaster retrieves member fund rows oldest first
func (m *MockFundMasterRepository) GetFundsByMaster(_ context.Context, masterID int32) ([]*domain.BudgetRow, error) {
	return m.memberRows(masterID), nil
}

// GetMastersForUser retrieves every master referenced by the user's funds
func (m *MockFundMasterRepository) GetMastersForUser(_ context.Context, userID int32) ([]*domain.FundMaster, error) {
	seen := make(map[int32]bool)
	var masters []*domain.FundMaster
	for _, row := range m.Budgets.sortedRows(func(row *domain.BudgetRow) bool {
		return row.UserID == userID && row.Fund != nil
	}) {
		if seen[row.Fund.MasterFundID] {
			continue
		}
		seen[row.Fund.MasterFundID] = true
		if master, ok := m.Masters[row.Fund.MasterFundID]; ok {
			masters = append(masters, master)
		}
	}
	sort.Slice(masters, func(i, j int) bool { return masters[i].ID < masters[j].ID })
	return masters, nil
}

// HasFundForMonth reports whether the master has a fund row in the month
func (m *MockFundMasterRepository) HasFundForMonth(_ context.Context, masterID int32, month, year int) (bool, error) {
	for _, row := range m.memberRows(masterID) {
		if row.Month == month && row.Year == year {
			return true, nil
		}
	}
	return false, nil
}

// LastFund retrieves the most recent member fund row
func (m *MockFundMasterRepository) LastFund(_ context.Context, masterID int32) (*domain.BudgetRow, error) {
	rows := m.memberRows(masterID)
	if len(rows) == 0 {
		return nil, domain.ErrFundNotFound
	}
	return rows[len(rows)-1], nil
}

// Repoint moves every fund on fromMasterID to toMasterID
func (m *MockFundMasterRepository) Repoint(_ context.Context, fromMasterID, toMasterID int32) (int, error) {
	moved := 0
	for _, row := range m.memberRows(fromMasterID) {
		row.Fund.MasterFundID = toMasterID
		moved++
	}
	return moved, nil
}

// SetMaster repoints a single fund to a master
func (m *MockFundMasterRepository) SetMaster(_ context.Context, budgetID, masterID int32) error {
	row, ok := m.Budgets.Rows[budgetID]
	if !ok || row.Fund == nil {
		return domain.ErrFundNotFound
	}
	row.Fund.MasterFundID = masterID
	return nil
}

// AddToMonthAmount adds delta to a fund's month allocation
func (m *MockFundMasterRepository) AddToMonthAmount(_ context.Context, budgetID int32, delta decimal.Decimal) error {
	row, ok := m.Budgets.Rows[budgetID]
	if !ok || row.Fund == nil {
		return domain.ErrFundNotFound
	}
	row.Fund.MonthAmount = row.Fund.MonthAmount.Add(delta)
	return nil
}

// EnabledFundsForMonth retrieves enabled fund rows in allocation order
func (m *MockFundMasterRepository) EnabledFundsForMonth(_ context.Context, userID int32, month, year int) ([]*domain.BudgetRow, error) {
	rows := m.Budgets.sortedRows(func(row *domain.BudgetRow) bool {
		return row.UserID == userID && row.Fund != nil && row.Enabled &&
			row.Month == month && row.Year == year
	})
	sort.Slice(rows, func(i, j int) bool {
		if rows[i].Fund.Priority != rows[j].Fund.Priority {
			return rows[i].Fund.Priority < rows[j].Fund.Priority
		}
		return rows[i].ID < rows[j].ID
	})
	return rows, nil
}

// MockTransactionRepository is a mock implementation of
// domain.TransactionRepository. AccountOwners maps account ids to user ids
// for ownership scoping.
type MockTransactionRepository struct {
	Transactions  map[int32]*domain.Transaction
	LineItems     map[int32]*domain.LineItem
	AccountOwners map[string]int32
	NextID        int32
	NextItemID    int32
}

// NewMockTransactionRepository creates a new MockTransactionRepository
func NewMockTransactionRepository() *MockTransactionRepository {
	return &MockTransactionRepository{
		Transactions:  make(map[int32]*domain.Transaction),
		LineItems:     make(map[int32]*domain.LineItem),
		AccountOwners: make(map[string]int32),
		NextID:        1,
		NextItemID:    1,
	}
}

// AddTransaction adds a transaction to the mock repository (helper for tests)
func (m *MockTransactionRepository) AddTransaction(userID int32, t *domain.Transaction) *domain.Transaction {
	if t.ID == 0 {
		t.ID = m.NextID
		m.NextID++
	} else if t.ID >= m.NextID {
		m.NextID = t.ID + 1
	}
	if t.AccountID == "" {
		t.AccountID = "acct-mock"
	}
	m.AccountOwners[t.AccountID] = userID
	m.Transactions[t.ID] = t
	return t
}

func (m *MockTransactionRepository) owned(userID int32, t *domain.Transaction) bool {
	return m.AccountOwners[t.AccountID] == userID
}

// UpsertBatch inserts or replaces transactions by external id
func (m *MockTransactionRepository) UpsertBatch(_ context.Context, accountID string, transactions []*domain.Transaction) (int, error) {
	written := 0
	for _, incoming := range transactions {
		var existing *domain.Transaction
		for _, t := range m.Transactions {
			if t.AccountID == accountID && t.ExternalID == incoming.ExternalID {
				existing = t
				break
			}
		}
		if existing != nil {
			existing.Amount = incoming.Amount
			existing.Description = incoming.Description
			existing.Payee = incoming.Payee
			existing.Memo = incoming.Memo
			existing.Posted = incoming.Posted
			existing.TransactedAt = incoming.TransactedAt
			existing.Pending = incoming.Pending
		} else {
			t := *incoming
			t.ID = m.NextID
			t.AccountID = accountID
			m.NextID++
			m.Transactions[t.ID] = &t
		}
		written++
	}
	return written, nil
}

// GetByID retrieves a transaction owned by the user
func (m *MockTransactionRepository) GetByID(_ context.Context, userID, id int32) (*domain.Transaction, error) {
	t, ok := m.Transactions[id]
	if !ok || !m.owned(userID, t) {
		return nil, domain.ErrTransactionNotFound
	}
	return t, nil
}

// GetForUser retrieves a page of the user's transactions in [start, end)
func (m *MockTransactionRepository) GetForUser(_ context.Context, userID int32, start, end time.Time, filters *domain.TransactionFilters) (*domain.PaginatedTransactions, error) {
	if filters == nil {
		filters = &domain.TransactionFilters{}
	}
	typeWanted := make(map[domain.TransactionType]bool)
	for _, t := range filters.Types {
		typeWanted[t] = true
	}

	var all []*domain.Transaction
	for _, t := range m.Transactions {
		if !m.owned(userID, t) {
			continue
		}
		if t.TransactedAt.Before(start) || !t.TransactedAt.Before(end) {
			continue
		}
		if t.ExcludeFromBudget && !filters.IncludeExcluded {
			continue
		}
		if len(typeWanted) > 0 && (t.Type == nil || !typeWanted[*t.Type]) {
			continue
		}
		all = append(all, t)
	}
	sort.Slice(all, func(i, j int) bool {
		if filters.SortAsc {
			return all[i].TransactedAt.Before(all[j].TransactedAt)
		}
		return all[j].TransactedAt.Before(all[i].TransactedAt)
	})

	page := filters.Page
	if page < 1 {
		page = 1
	}
	pageSize := filters.PageSize
	if pageSize < 1 {
		pageSize = domain.DefaultPageSize
	}
	offset := int(page-1) * int(pageSize)
	data := []*domain.Transaction{}
	if offset < len(all) {
		limit := offset + int(pageSize)
		if limit > len(all) {
			limit = len(all)
		}
		data = all[offset:limit]
	}

	return &domain.PaginatedTransactions{
		Data:       data,
		Page:       page,
		PageSize:   pageSize,
		TotalItems: int64(len(all)),
	}, nil
}

// AssignBudget sets or clears the transaction's budget
func (m *MockTransactionRepository) AssignBudget(_ context.Context, userID, id int32, budgetID *int32) error {
	t, ok := m.Transactions[id]
	if !ok || !m.owned(userID, t) {
		return domain.ErrTransactionNotFound
	}
	t.BudgetID = budgetID
	return nil
}

// MarkType sets the transaction's type and exclusion flag
func (m *MockTransactionRepository) MarkType(_ context.Context, userID, id int32, transactionType *domain.TransactionType, excludeFromBudget bool) (*domain.Transaction, error) {
	t, ok := m.Transactions[id]
	if !ok || !m.owned(userID, t) {
		return nil, domain.ErrTransactionNotFound
	}
	t.Type = transactionType
	t.ExcludeFromBudget = excludeFromBudget
	return t, nil
}

// CreateLineItems persists the items and marks the parent as split
func (m *MockTransactionRepository) CreateLineItems(_ context.Context, transactionID int32, items []*domain.LineItem) ([]*domain.LineItem, error) {
	parent, ok := m.Transactions[transactionID]
	if !ok {
		return nil, domain.ErrTransactionNotFound
	}
	created := make([]*domain.LineItem, 0, len(items))
	for _, item := range items {
		li := *item
		li.ID = m.NextItemID
		li.TransactionID = transactionID
		m.NextItemID++
		m.LineItems[li.ID] = &li
		created = append(created, &li)
	}
	parent.IsSplit = true
	return created, nil
}

// GetLineItems retrieves a transaction's line items
func (m *MockTransactionRepository) GetLineItems(_ context.Context, transactionID int32) ([]*domain.LineItem, error) {
	var items []*domain.LineItem
	for _, li := range m.LineItems {
		if li.TransactionID == transactionID {
			items = append(items, li)
		}
	}
	sort.Slice(items, func(i, j int) bool { return items[i].ID < items[j].ID })
	return items, nil
}

// GetLineItem retrieves a line item by id
func (m *MockTransactionRepository) GetLineItem(_ context.Context, id int32) (*domain.LineItem, error) {
	if li, ok := m.LineItems[id]; ok {
		return li, nil
	}
	return nil, domain.ErrLineItemNotFound
}

// UpdateLineItem replaces a line item's mutable fields
func (m *MockTransactionRepository) UpdateLineItem(_ context.Context, item *domain.LineItem) (*domain.LineItem, error) {
	existing, ok := m.LineItems[item.ID]
	if !ok {
		return nil, domain.ErrLineItemNotFound
	}
	existing.Description = item.Description
	existing.Amount = item.Amount
	existing.Quantity = item.Quantity
	existing.UnitPrice = item.UnitPrice
	existing.Category = item.Category
	existing.Notes = item.Notes
	existing.BudgetID = item.BudgetID
	return existing, nil
}

// DeleteLineItem removes a line item
func (m *MockTransactionRepository) DeleteLineItem(_ context.Context, id int32) error {
	if _, ok := m.LineItems[id]; !ok {
		return domain.ErrLineItemNotFound
	}
	delete(m.LineItems, id)
	return nil
}

// SumForBudget returns the lifetime transaction sum for a budget
func (m *MockTransactionRepository) SumForBudget(_ context.Context, budgetID int32) (decimal.Decimal, error) {
	return m.sumForBudget(budgetID, nil, nil), nil
}

// SumForBudgetInRange returns the transaction sum for a budget in [start, end)
func (m *MockTransactionRepository) SumForBudgetInRange(_ context.Context, budgetID int32, start, end time.Time) (decimal.Decimal, error) {
	return m.sumForBudget(budgetID, &start, &end), nil
}

func (m *MockTransactionRepository) sumForBudget(budgetID int32, start, end *time.Time) decimal.Decimal {
	inRange := func(at time.Time) bool {
		if start != nil && at.Before(*start) {
			return false
		}
		if end != nil && !at.Before(*end) {
			return false
		}
		return true
	}

	sum := decimal.Zero
	for _, t := range m.Transactions {
		if t.BudgetID != nil && *t.BudgetID == budgetID && !t.IsSplit && inRange(t.TransactedAt) {
			sum = sum.Add(t.Amount)
		}
	}
	for _, li := range m.LineItems {
		if li.BudgetID == nil || *li.BudgetID != budgetID {
			continue
		}
		if parent, ok := m.Transactions[li.TransactionID]; ok && inRange(parent.TransactedAt) {
			sum = sum.Add(li.Amount)
		}
	}
	return sum
}

// MonthSums returns per-budget transaction sums for [start, end)
func (m *MockTransactionRepository) MonthSums(_ context.Context, start, end time.Time) (map[int32]decimal.Decimal, error) {
	inRange := func(at time.Time) bool {
		return !at.Before(start) && at.Before(end)
	}

	sums := make(map[int32]decimal.Decimal)
	for _, t := range m.Transactions {
		if t.BudgetID != nil && !t.IsSplit && inRange(t.TransactedAt) {
			sums[*t.BudgetID] = sums[*t.BudgetID].Add(t.Amount)
		}
	}
	for _, li := range m.LineItems {
		if li.BudgetID == nil {
			continue
		}
		if parent, ok := m.Transactions[li.TransactionID]; ok && inRange(parent.TransactedAt) {
			sums[*li.BudgetID] = sums[*li.BudgetID].Add(li.Amount)
		}
	}
	return sums, nil
}

// MockBankDataClient is a mock implementation of domain.BankDataClient
type MockBankDataClient struct {
	AccessURL string
	ClaimErr  error
	Data      *domain.BankData
	FetchErr  error
	Claims    []string
	Fetches   int
}

// NewMockBankDataClient creates a new MockBankDataClient
func NewMockBankDataClient() *MockBankDataClient {
	return &MockBankDataClient{Data: &domain.BankData{}}
}

// ClaimAccessURL records the token and returns the configured access URL
func (m *MockBankDataClient) ClaimAccessURL(_ context.Context, setupToken string) (string, error) {
	m.Claims = append(m.Claims, setupToken)
	if m.ClaimErr != nil {
		return "", m.ClaimErr
	}
	return m.AccessURL, nil
}

// FetchAccounts returns the configured payload
func (m *MockBankDataClient) FetchAccounts(_ context.Context, _ string, _, _ time.Time) (*domain.BankData, error) {
	m.Fetches++
	if m.FetchErr != nil {
		return nil, m.FetchErr
	}
	return m.Data, nil
}
