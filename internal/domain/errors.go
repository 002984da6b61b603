package domain

import "errors"

// Domain errors
var (
	ErrNotFound            = errors.New("resource not found")
	ErrInvalidInput        = errors.New("invalid input")
	ErrUserNotFound        = errors.New("user not found")
	ErrAccountNotFound     = errors.New("account not found")
	ErrBudgetNotFound      = errors.New("budget not found")
	ErrFundNotFound        = errors.New("fund not found")
	ErrMasterNotFound      = errors.New("master fund not found")
	ErrTransactionNotFound = errors.New("transaction not found")
	ErrLineItemNotFound    = errors.New("line item not found")
	ErrNotOwner            = errors.New("user does not own this resource")
	ErrAccessURLNotSet     = errors.New("no bank access url configured")

	// Precondition/conflict errors, distinguishable so callers can present
	// a specific remediation.
	ErrTargetMonthHasBudgets    = errors.New("target month already has budgets")
	ErrSourceMonthEmpty         = errors.New("no budgets found in source month")
	ErrFundExistsForMonth       = errors.New("fund already exists for this master in the given month")
	ErrSameMaster               = errors.New("funds are already in the same master fund family")
	ErrKeepAmountExceedsBalance = errors.New("keep amount exceeds master balance")

	ErrLineItemSumMismatch    = errors.New("line items total does not match transaction amount")
	ErrInvalidTransactionType = errors.New("invalid transaction type")

	// Bank aggregator errors
	ErrInvalidSetupToken = errors.New("setup token is not valid base64")
	ErrClaimFailed       = errors.New("setup token claim was rejected")
	ErrPaymentRequired   = errors.New("bank data provider requires payment")
	ErrBankAuthFailed    = errors.New("bank data provider rejected credentials")
)
