package loan

import (
	"errors"

	"auctionlend/internal/domain/revert"
)

var (
	ErrNotFound         = errors.New("loan not found")
	ErrTemplateNotFound = errors.New("template not found")
)

var (
	ErrNotProxy         = revert.Unauthorized("caller is not the loan proxy")
	ErrNotBorrower      = revert.Unauthorized("caller is not the borrower")
	ErrNotAdministrator = revert.Unauthorized("caller is not the administrator")
	ErrNotLender        = revert.Unauthorized("caller is not a lender")

	ErrAuctionClosed     = revert.State("auction closed")
	ErrAuctionExpired    = revert.State("auction expired")
	ErrNotActive         = revert.State("loan not active")
	ErrNotFailedToFund   = revert.State("loan not failed to fund")
	ErrNotRepaid         = revert.State("loan not repaid")
	ErrNotFrozen         = revert.State("loan not frozen")
	ErrCannotFreeze      = revert.State("loan cannot be frozen")
	ErrLoanNotWithdrawn  = revert.State("loan not withdrawn")
	ErrBorrowerWithdrew  = revert.State("borrower already withdrew")
	ErrInvalidTransition = revert.State("invalid state transition")

	ErrZeroAmount        = revert.Bounds("amount must be positive")
	ErrRepaymentMismatch = revert.Bounds("repayment must equal instalment or total debt")
	ErrNothingToWithdraw = revert.Bounds("nothing to withdraw")
	ErrZeroAddress       = revert.Bounds("zero address")
	ErrFeeTooHigh        = revert.Bounds("operator fee above 100 percent")
	ErrInvalidPeriod     = revert.Bounds("period must be positive")

	ErrAlreadyWithdrawn     = revert.DoubleAction("already withdrawn")
	ErrLoanAlreadyWithdrawn = revert.DoubleAction("loan already withdrawn")
	ErrFeesAlreadyWithdrawn = revert.DoubleAction("fees already withdrawn")
)
