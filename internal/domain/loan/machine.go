package loan

import (
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/holiman/uint256"
)

func (l *Loan) transition(to State, at time.Time) error {
	if !CanTransition(l.State, to) {
		return ErrInvalidTransition
	}
	l.transitions = append(l.transitions, Transition{From: l.State, To: to, At: at})
	l.State = to
	l.StateUpdatedAt = at
	return nil
}

func (l *Loan) freezeRate(at time.Time) {
	l.FrozenRate = l.rateAt(at)
	l.RateFrozen = true
}

// activate closes the auction with the current balance as principal.
func (l *Loan) activate(at time.Time) error {
	l.freezeRate(at)
	l.TermStart = at
	l.TermEnd = at.Add(l.Terms.TermLength)
	l.BorrowerDebt = l.withInterest(l.AuctionBalance, l.FrozenRate)
	l.OperatorBalance = new(uint256.Int)
	if l.Rules != nil {
		l.OperatorBalance = mulDiv(l.AuctionBalance, uint256.NewInt(l.Rules.OperatorFeePercent), hundred)
	}
	return l.transition(StateActive, at)
}

// settle closes the loan once every lender has taken their share. A repaid
// loan also waits for the borrower's principal to leave.
func (l *Loan) settle(now time.Time) {
	switch l.State {
	case StateFailedToFund, StateFrozen:
	case StateRepaid:
		if !l.LoanWithdrawn {
			return
		}
	default:
		return
	}
	if l.LenderCount() > 0 && l.WithdrawnCount() == l.LenderCount() {
		_ = l.transition(StateClosed, now)
	}
}

// Funding is the outcome of a bid.
type Funding struct {
	Accepted  *uint256.Int
	Excess    *uint256.Int // to be returned to the lender in the same call
	Activated bool
}

// ApplyFunding records a bid. The accepted part is capped at what is left
// below the maximum amount; reaching the maximum activates the loan at once.
func (l *Loan) ApplyFunding(lender common.Address, amount *uint256.Int, now time.Time) (Funding, error) {
	if l.State != StateCreated {
		return Funding{}, ErrAuctionClosed
	}
	if !now.Before(l.AuctionEnd()) {
		return Funding{}, ErrAuctionExpired
	}
	if lender == (common.Address{}) {
		return Funding{}, ErrZeroAddress
	}
	if amount == nil || amount.IsZero() {
		return Funding{}, ErrZeroAmount
	}

	remaining := new(uint256.Int).Sub(l.Terms.MaxAmount, l.AuctionBalance)
	accepted := minU(amount, remaining)
	out := Funding{Accepted: accepted, Excess: new(uint256.Int).Sub(amount, accepted)}

	rec, ok := l.Lenders[lender]
	if !ok {
		rec = &Lender{Address: lender, BidAmount: new(uint256.Int), PenaltyWithdrawn: new(uint256.Int)}
		l.Lenders[lender] = rec
	}
	rec.BidAmount.Add(rec.BidAmount, accepted)
	l.AuctionBalance.Add(l.AuctionBalance, accepted)

	if !l.AuctionBalance.Lt(l.Terms.MinAmount) {
		l.MinimumReached = true
	}
	if l.AuctionBalance.Eq(l.Terms.MaxAmount) {
		if err := l.activate(now); err != nil {
			return Funding{}, err
		}
		out.Activated = true
	}
	return out, nil
}

// UpdateState applies every transition that elapsed time alone makes due.
// Calling it again without time passing changes nothing.
func (l *Loan) UpdateState(now time.Time) bool {
	changed := false
	for {
		switch {
		case l.State == StateCreated && !now.Before(l.AuctionEnd()):
			end := l.AuctionEnd()
			if l.MinimumReached {
				_ = l.activate(end)
			} else {
				l.freezeRate(end)
				_ = l.transition(StateFailedToFund, now)
			}
		case l.State == StateActive && now.After(l.TermEnd) && l.InstalmentsPaid < l.instalments():
			_ = l.transition(StateDefaulted, now)
		default:
			return changed
		}
		changed = true
	}
}

// Repayment is the outcome of an accepted repayment.
type Repayment struct {
	Amount      *uint256.Int
	Penalty     *uint256.Int
	Instalments uint64 // instalments paid after this repayment
	Settled     bool
}

// ApplyRepayment accepts exactly the current instalment debt or the full
// remaining debt; any other amount is rejected.
func (l *Loan) ApplyRepayment(amount *uint256.Int, now time.Time) (Repayment, error) {
	l.UpdateState(now)
	if l.State != StateActive {
		return Repayment{}, ErrNotActive
	}
	if amount == nil || amount.IsZero() {
		return Repayment{}, ErrZeroAmount
	}

	penalty := l.penalties(now)
	switch {
	case amount.Eq(l.TotalDebt(now)):
		l.InstalmentsPaid = l.instalments()
	case amount.Eq(l.InstalmentDebt(now)):
		l.InstalmentsPaid = l.CurrentInstalment(now)
	default:
		return Repayment{}, ErrRepaymentMismatch
	}
	l.PenaltiesPaid.Add(l.PenaltiesPaid, penalty)
	l.RepaidAmount.Add(l.RepaidAmount, amount)

	out := Repayment{Amount: amount.Clone(), Penalty: penalty, Instalments: l.InstalmentsPaid}
	if l.InstalmentsPaid >= l.instalments() {
		if err := l.transition(StateRepaid, now); err != nil {
			return Repayment{}, err
		}
		out.Settled = true
	}
	return out, nil
}

// WithdrawLoan hands the principal minus the operator fee to the borrower,
// once. The principal stays claimable after the auction funded, even when the
// borrower repaid or defaulted before taking it.
func (l *Loan) WithdrawLoan(caller common.Address, now time.Time) (*uint256.Int, error) {
	if caller != l.Borrower {
		return nil, ErrNotBorrower
	}
	l.UpdateState(now)
	if l.LoanWithdrawn {
		return nil, ErrLoanAlreadyWithdrawn
	}
	switch l.State {
	case StateActive, StateDefaulted, StateRepaid:
	default:
		return nil, ErrNotActive
	}
	amount := new(uint256.Int).Sub(l.AuctionBalance, l.OperatorBalance)
	l.WithdrawnAmount = amount.Clone()
	l.LoanWithdrawn = true
	l.settle(now)
	return amount, nil
}

func (l *Loan) lenderFor(caller common.Address) (*Lender, error) {
	rec, ok := l.Lenders[caller]
	if !ok || rec.BidAmount.IsZero() {
		return nil, ErrNotLender
	}
	if rec.Withdrawn {
		return nil, ErrAlreadyWithdrawn
	}
	return rec, nil
}

// WithdrawRefund returns a lender's bid after a failed auction.
func (l *Loan) WithdrawRefund(caller common.Address, now time.Time) (*uint256.Int, error) {
	rec, err := l.lenderFor(caller)
	if err != nil {
		return nil, err
	}
	l.UpdateState(now)
	if l.State != StateFailedToFund {
		return nil, ErrNotFailedToFund
	}
	rec.Withdrawn = true
	l.settle(now)
	return rec.BidAmount.Clone(), nil
}

// WithdrawRepayment pays the lender's share of what the borrower has repaid.
// Balloon lenders claim once, after full repayment. Instalment lenders may
// claim each paid instalment as it arrives, including the ones paid before a
// default; their record is marked withdrawn with the final claim.
func (l *Loan) WithdrawRepayment(caller common.Address, now time.Time) (*uint256.Int, error) {
	rec, err := l.lenderFor(caller)
	if err != nil {
		return nil, err
	}
	l.UpdateState(now)
	switch {
	case l.State == StateRepaid:
	case l.State == StateActive && l.IsInstalment():
	case l.State == StateDefaulted && l.IsInstalment():
	default:
		return nil, ErrNotRepaid
	}

	amount := l.Claimable(caller)
	if l.State != StateRepaid && amount.IsZero() {
		return nil, ErrNothingToWithdraw
	}
	rec.InstalmentsWithdrawn = l.InstalmentsPaid
	rec.PenaltyWithdrawn = l.lenderPenaltyShare(rec.BidAmount)
	if l.State == StateRepaid {
		rec.Withdrawn = true
		l.settle(now)
	}
	return amount, nil
}

// WithdrawFundsUnlocked returns a lender's original bid from a frozen loan
// whose principal never reached the borrower.
func (l *Loan) WithdrawFundsUnlocked(caller common.Address, now time.Time) (*uint256.Int, error) {
	rec, err := l.lenderFor(caller)
	if err != nil {
		return nil, err
	}
	if l.State != StateFrozen {
		return nil, ErrNotFrozen
	}
	if l.LoanWithdrawn {
		return nil, ErrBorrowerWithdrew
	}
	rec.Withdrawn = true
	l.settle(now)
	return rec.BidAmount.Clone(), nil
}

// WithdrawFees pays the operator fee to the administrator, once, after the
// borrower took the principal.
func (l *Loan) WithdrawFees(caller common.Address) (*uint256.Int, error) {
	if caller != l.Administrator {
		return nil, ErrNotAdministrator
	}
	if !l.LoanWithdrawn {
		return nil, ErrLoanNotWithdrawn
	}
	if l.FeesWithdrawn {
		return nil, ErrFeesAlreadyWithdrawn
	}
	l.FeesWithdrawn = true
	return l.OperatorBalance.Clone(), nil
}

// Unlock is the administrator's emergency freeze.
func (l *Loan) Unlock(caller common.Address, now time.Time) error {
	if caller != l.Administrator {
		return ErrNotAdministrator
	}
	if !CanTransition(l.State, StateFrozen) {
		return ErrCannotFreeze
	}
	return l.transition(StateFrozen, now)
}

// SetProxy repoints the loan's callbacks to another proxy. The ledger is untouched.
func (l *Loan) SetProxy(caller, proxy common.Address) error {
	if caller != l.Administrator {
		return ErrNotAdministrator
	}
	if proxy == (common.Address{}) {
		return ErrZeroAddress
	}
	l.Proxy = proxy
	return nil
}

// CheckProxy rejects callbacks that do not come from the configured proxy.
func (l *Loan) CheckProxy(caller common.Address) error {
	if caller != l.Proxy {
		return ErrNotProxy
	}
	return nil
}
