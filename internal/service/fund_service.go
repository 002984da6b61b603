package service

import (
	"context"
	"fmt"

	"github.com/hearthfin/hearth-backend/internal/domain"
	"github.com/shopspring/decimal"
)

// FundService handles master fund balances and fund lifecycle mutations.
// Master balances are never stored: every read recomputes them from the
// member fund rows so the balance cannot drift from its inputs.
type FundService struct {
	fundRepo        domain.FundMasterRepository
	budgetRepo      domain.BudgetRepository
	transactionRepo domain.TransactionRepository
	txm             domain.TxManager
}

// NewFundService creates a new FundService
func NewFundService(fundRepo domain.FundMasterRepository, budgetRepo domain.BudgetRepository, transactionRepo domain.TransactionRepository, txm domain.TxManager) *FundService {
	return &FundService{
		fundRepo:        fundRepo,
		budgetRepo:      budgetRepo,
		transactionRepo: transactionRepo,
		txm:             txm,
	}
}

// FundBreakdownEntry describes one fund's contribution to a master balance
type FundBreakdownEntry struct {
	FundID        int32
	FundName      string
	Month         int
	Year          int
	MasterID      int32
	MasterName    *string
	MasterBalance decimal.Decimal
	Transactions  decimal.Decimal
}

// FundBalanceResult holds the recomputed balance view for a single fund
type FundBalanceResult struct {
	TotalBalance  decimal.Decimal
	MasterBalance decimal.Decimal
	Transactions  decimal.Decimal
	Breakdown     []FundBreakdownEntry
}

// CombineResult reports a merge of two master fund families
type CombineResult struct {
	TargetMasterID  int32
	DeletedMasterID int32
	CombinedBalance decimal.Decimal
	FundsCombined   int
}

// UnlinkResult reports a fund split off to its own master
type UnlinkResult struct {
	FundID           int32
	NewMasterID      int32
	NewMasterBalance decimal.Decimal
	OldMasterID      int32
	OldMasterBalance decimal.Decimal
}

// DiscontinueResult reports a master closed out by a withdrawal fund.
// WithdrawalAmount is the negated prior balance, matching the stored row.
type DiscontinueResult struct {
	MasterID         int32
	BudgetID         int32
	WithdrawalAmount decimal.Decimal
	Month            int
	Year             int
}

// ReattachResult reports a fund row added to a dormant master
type ReattachResult struct {
	FundID        int32
	MasterID      int32
	MasterBalance decimal.Decimal
	Month         int
	Year          int
}

// MasterFundMember is one member fund's contribution to its family balance
type MasterFundMember struct {
	FundID       int32
	Name         string
	Month        int
	Year         int
	MonthAmount  decimal.Decimal
	Transactions decimal.Decimal
	Contribution decimal.Decimal
}

// MasterFundDetails is the full view of a master fund family
type MasterFundDetails struct {
	MasterID int32
	Name     *string
	Balance  decimal.Decimal
	Members  []MasterFundMember
}

// OrphanedMaster describes a master holding money with no fund row in the
// asked-about month
type OrphanedMaster struct {
	MasterID        int32
	Name            string
	Balance         decimal.Decimal
	LastActiveMonth int
	LastActiveYear  int
	LastFundName    string
}

// masterBalanceFromRows sums (month_amount + lifetime transaction sum) over
// member fund rows. The second return is the transaction portion alone.
func (s *FundService) masterBalanceFromRows(ctx context.Context, members []*domain.BudgetRow) (decimal.Decimal, decimal.Decimal, error) {
	balance := decimal.Zero
	transactions := decimal.Zero
	for _, member := range members {
		txSum, err := s.transactionRepo.SumForBudget(ctx, member.ID)
		if err != nil {
			return decimal.Zero, decimal.Zero, fmt.Errorf("summing transactions for fund %d: %w", member.ID, err)
		}
		balance = balance.Add(member.Fund.MonthAmount).Add(txSum)
		transactions = transactions.Add(txSum)
	}
	return balance, transactions, nil
}

// MasterBalance recomputes the balance of a master fund family
func (s *FundService) MasterBalance(ctx context.Context, masterID int32) (decimal.Decimal, error) {
	members, err := s.fundRepo.GetFundsByMaster(ctx, masterID)
	if err != nil {
		return decimal.Zero, err
	}
	balance, _, err := s.masterBalanceFromRows(ctx, members)
	return balance, err
}

// memberOwnership returns domain.ErrNotOwner unless some member fund belongs
// to the user. A master is reachable only through its funds, so a master with
// no member owned by the caller is not theirs to touch.
func memberOwnership(members []*domain.BudgetRow, userID int32) error {
	for _, member := range members {
		if member.UserID == userID {
			return nil
		}
	}
	return domain.ErrNotOwner
}

// FundBalance recomputes the balance view for one fund row, including the
// full master balance it participates in.
func (s *FundService) FundBalance(ctx context.Context, userID, budgetID int32) (*FundBalanceResult, error) {
	row, err := s.fundRepo.GetFundRow(ctx, budgetID)
	if err != nil {
		return nil, err
	}
	if row.UserID != userID {
		return nil, domain.ErrNotOwner
	}

	master, err := s.fundRepo.GetMaster(ctx, row.Fund.MasterFundID)
	if err != nil {
		return nil, err
	}
	members, err := s.fundRepo.GetFundsByMaster(ctx, master.ID)
	if err != nil {
		return nil, err
	}
	balance, transactions, err := s.masterBalanceFromRows(ctx, members)
	if err != nil {
		return nil, err
	}

	return &FundBalanceResult{
		TotalBalance:  balance,
		MasterBalance: balance,
		Transactions:  transactions,
		Breakdown: []FundBreakdownEntry{{
			FundID:        row.ID,
			FundName:      row.Name,
			Month:         row.Month,
			Year:          row.Year,
			MasterID:      master.ID,
			MasterName:    master.Name,
			MasterBalance: balance,
			Transactions:  transactions,
		}},
	}, nil
}

// MasterDetails lists a master's member funds oldest first with each fund's
// net contribution to the recomputed family balance.
func (s *FundService) MasterDetails(ctx context.Context, userID, masterID int32) (*MasterFundDetails, error) {
	master, err := s.fundRepo.GetMaster(ctx, masterID)
	if err != nil {
		return nil, err
	}
	members, err := s.fundRepo.GetFundsByMaster(ctx, masterID)
	if err != nil {
		return nil, err
	}
	if err := memberOwnership(members, userID); err != nil {
		return nil, err
	}

	details := &MasterFundDetails{
		MasterID: master.ID,
		Name:     master.Name,
		Balance:  decimal.Zero,
		Members:  make([]MasterFundMember, 0, len(members)),
	}
	for _, member := range members {
		txSum, err := s.transactionRepo.SumForBudget(ctx, member.ID)
		if err != nil {
			return nil, fmt.Errorf("summing transactions for fund %d: %w", member.ID, err)
		}
		contribution := member.Fund.MonthAmount.Add(txSum)
		details.Balance = details.Balance.Add(contribution)
		details.Members = append(details.Members, MasterFundMember{
			FundID:       member.ID,
			Name:         member.Name,
			Month:        member.Month,
			Year:         member.Year,
			MonthAmount:  member.Fund.MonthAmount,
			Transactions: txSum,
			Contribution: contribution,
		})
	}
	return details, nil
}

// OrphanedMasters lists masters still holding money that have no fund row in
// the given month. Zero and negative balances are not reported.
func (s *FundService) OrphanedMasters(ctx context.Context, userID int32, month, year int) ([]*OrphanedMaster, error) {
	masters, err := s.fundRepo.GetMastersForUser(ctx, userID)
	if err != nil {
		return nil, err
	}

	var orphans []*OrphanedMaster
	for _, master := range masters {
		balance, err := s.MasterBalance(ctx, master.ID)
		if err != nil {
			return nil, err
		}
		if !balance.IsPositive() {
			continue
		}
		hasFund, err := s.fundRepo.HasFundForMonth(ctx, master.ID, month, year)
		if err != nil {
			return nil, err
		}
		if hasFund {
			continue
		}

		last, err := s.fundRepo.LastFund(ctx, master.ID)
		if err != nil {
			return nil, err
		}
		name := "Unknown"
		if master.Name != nil {
			name = *master.Name
		} else if last.Name != "" {
			name = last.Name
		}
		orphans = append(orphans, &OrphanedMaster{
			MasterID:        master.ID,
			Name:            name,
			Balance:         balance,
			LastActiveMonth: last.Month,
			LastActiveYear:  last.Year,
			LastFundName:    last.Name,
		})
	}
	return orphans, nil
}

// Combine merges the source fund's master family into the target fund's
// master family. Every fund of the source master is repointed and the source
// master is deleted.
func (s *FundService) Combine(ctx context.Context, userID, sourceFundID, targetFundID int32) (*CombineResult, error) {
	var result *CombineResult
	err := s.txm.WithinTx(ctx, func(ctx context.Context) error {
		source, err := s.fundRepo.GetFundRow(ctx, sourceFundID)
		if err != nil {
			return err
		}
		target, err := s.fundRepo.GetFundRow(ctx, targetFundID)
		if err != nil {
			return err
		}
		if source.UserID != userID || target.UserID != userID {
			return domain.ErrNotOwner
		}
		if source.Fund.MasterFundID == target.Fund.MasterFundID {
			return domain.ErrSameMaster
		}

		moved, err := s.fundRepo.Repoint(ctx, source.Fund.MasterFundID, target.Fund.MasterFundID)
		if err != nil {
			return err
		}
		if err := s.fundRepo.DeleteMaster(ctx, source.Fund.MasterFundID); err != nil {
			return err
		}

		combined, err := s.MasterBalance(ctx, target.Fund.MasterFundID)
		if err != nil {
			return err
		}
		result = &CombineResult{
			TargetMasterID:  target.Fund.MasterFundID,
			DeletedMasterID: source.Fund.MasterFundID,
			CombinedBalance: combined,
			FundsCombined:   moved,
		}
		return nil
	})
	return result, err
}

// Unlink splits a fund off its master into a fresh master of its own.
// keepAmount declares how much of the old family's balance the fund takes
// with it and may not exceed that balance.
func (s *FundService) Unlink(ctx context.Context, userID, fundID int32, keepAmount decimal.Decimal) (*UnlinkResult, error) {
	if keepAmount.IsNegative() {
		return nil, fmt.Errorf("%w: keep amount cannot be negative", domain.ErrInvalidInput)
	}

	var result *UnlinkResult
	err := s.txm.WithinTx(ctx, func(ctx context.Context) error {
		row, err := s.fundRepo.GetFundRow(ctx, fundID)
		if err != nil {
			return err
		}
		if row.UserID != userID {
			return domain.ErrNotOwner
		}

		oldMasterID := row.Fund.MasterFundID
		oldBalance, err := s.MasterBalance(ctx, oldMasterID)
		if err != nil {
			return err
		}
		if keepAmount.GreaterThan(oldBalance) {
			return domain.ErrKeepAmountExceedsBalance
		}

		name := row.Name
		newMaster, err := s.fundRepo.CreateMaster(ctx, &name)
		if err != nil {
			return err
		}
		if err := s.fundRepo.SetMaster(ctx, fundID, newMaster.ID); err != nil {
			return err
		}

		result = &UnlinkResult{
			FundID:           fundID,
			NewMasterID:      newMaster.ID,
			NewMasterBalance: keepAmount,
			OldMasterID:      oldMasterID,
			OldMasterBalance: oldBalance.Sub(keepAmount),
		}
		return nil
	})
	return result, err
}

// Discontinue closes out a master by creating a withdrawal fund in the given
// month whose month amount is the negated balance, bringing the family to zero.
func (s *FundService) Discontinue(ctx context.Context, userID, masterID int32, month, year int) (*DiscontinueResult, error) {
	var result *DiscontinueResult
	err := s.txm.WithinTx(ctx, func(ctx context.Context) error {
		if _, err := s.fundRepo.GetMaster(ctx, masterID); err != nil {
			return err
		}
		members, err := s.fundRepo.GetFundsByMaster(ctx, masterID)
		if err != nil {
			return err
		}
		if err := memberOwnership(members, userID); err != nil {
			return err
		}

		hasFund, err := s.fundRepo.HasFundForMonth(ctx, masterID, month, year)
		if err != nil {
			return err
		}
		if hasFund {
			return domain.ErrFundExistsForMonth
		}

		balance, _, err := s.masterBalanceFromRows(ctx, members)
		if err != nil {
			return err
		}

		name := "Discontinued Fund"
		if len(members) > 0 {
			name = members[len(members)-1].Name
		}

		budget, err := s.budgetRepo.Create(ctx, &domain.Budget{
			UserID:  userID,
			Name:    name,
			Enabled: true,
			Month:   month,
			Year:    year,
		})
		if err != nil {
			return err
		}
		// Priority 999 keeps the withdrawal row out of the allocator's way.
		err = s.budgetRepo.CreateFund(ctx, &domain.Fund{
			BudgetID:     budget.ID,
			Priority:     999,
			Increment:    decimal.Zero,
			MonthAmount:  balance.Neg(),
			MasterFundID: masterID,
		})
		if err != nil {
			return err
		}

		result = &DiscontinueResult{
			MasterID:         masterID,
			BudgetID:         budget.ID,
			WithdrawalAmount: balance.Neg(),
			Month:            month,
			Year:             year,
		}
		return nil
	})
	return result, err
}

// AddFundToOrphan reattaches a dormant master by creating a fresh fund row
// for it in the given month with a zero month amount.
func (s *FundService) AddFundToOrphan(ctx context.Context, userID, masterID int32, month, year int, priority int32, increment decimal.Decimal, max *decimal.Decimal) (*ReattachResult, error) {
	var result *ReattachResult
	err := s.txm.WithinTx(ctx, func(ctx context.Context) error {
		master, err := s.fundRepo.GetMaster(ctx, masterID)
		if err != nil {
			return err
		}
		members, err := s.fundRepo.GetFundsByMaster(ctx, masterID)
		if err != nil {
			return err
		}
		if err := memberOwnership(members, userID); err != nil {
			return err
		}

		hasFund, err := s.fundRepo.HasFundForMonth(ctx, masterID, month, year)
		if err != nil {
			return err
		}
		if hasFund {
			return domain.ErrFundExistsForMonth
		}

		name := "Resumed Fund"
		if master.Name != nil {
			name = *master.Name
		} else if len(members) > 0 {
			name = members[len(members)-1].Name
		}

		budget, err := s.budgetRepo.Create(ctx, &domain.Budget{
			UserID:  userID,
			Name:    name,
			Enabled: true,
			Month:   month,
			Year:    year,
		})
		if err != nil {
			return err
		}
		err = s.budgetRepo.CreateFund(ctx, &domain.Fund{
			BudgetID:     budget.ID,
			Priority:     priority,
			Increment:    increment,
			MonthAmount:  decimal.Zero,
			Max:          max,
			MasterFundID: masterID,
		})
		if err != nil {
			return err
		}

		balance, _, err := s.masterBalanceFromRows(ctx, members)
		if err != nil {
			return err
		}
		result = &ReattachResult{
			FundID:        budget.ID,
			MasterID:      masterID,
			MasterBalance: balance,
			Month:         month,
			Year:          year,
		}
		return nil
	})
	return result, err
}
