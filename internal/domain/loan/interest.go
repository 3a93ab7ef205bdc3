package loan

import (
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/holiman/uint256"
)

var hundred = uint256.NewInt(100)

func seconds(d time.Duration) *uint256.Int {
	if d <= 0 {
		return new(uint256.Int)
	}
	return uint256.NewInt(uint64(d / time.Second))
}

// mulDiv returns x*y/d with a 512-bit intermediate product; d == 0 yields 0.
func mulDiv(x, y, d *uint256.Int) *uint256.Int {
	if d.IsZero() {
		return new(uint256.Int)
	}
	z, _ := new(uint256.Int).MulDivOverflow(x, y, d)
	return z
}

func minU(a, b *uint256.Int) *uint256.Int {
	if a.Lt(b) {
		return a.Clone()
	}
	return b.Clone()
}

// InterestRate grows linearly across the auction window from 0 to the
// maximum rate, clamped to [min, max]. Once the auction has closed the rate is
// frozen and every later read returns the same value.
func (l *Loan) InterestRate(now time.Time) uint64 {
	if l.RateFrozen {
		return l.FrozenRate
	}
	return l.rateAt(now)
}

func (l *Loan) rateAt(t time.Time) uint64 {
	end := l.AuctionEnd()
	if t.After(end) {
		t = end
	}
	maxRate := l.Terms.MaxInterestRate
	length := seconds(l.Terms.AuctionLength)
	if length.IsZero() {
		return maxRate
	}
	elapsed := seconds(t.Sub(l.Terms.AuctionStart))
	rate := mulDiv(uint256.NewInt(maxRate), elapsed, length).Uint64()
	if rate < l.Terms.MinInterestRate {
		rate = l.Terms.MinInterestRate
	}
	if rate > maxRate {
		rate = maxRate
	}
	return rate
}

// TermMonths is the term length in whole interest periods.
func (l *Loan) TermMonths() uint64 {
	if l.Rules == nil || l.Rules.Period <= 0 {
		return 0
	}
	return uint64(l.Terms.TermLength / l.Rules.Period)
}

func (l *Loan) withInterest(v *uint256.Int, rate uint64) *uint256.Int {
	factor := new(uint256.Int).Mul(uint256.NewInt(rate), uint256.NewInt(l.TermMonths()))
	interest := mulDiv(v, factor, hundred)
	return interest.Add(interest, v)
}

// AmountWithInterest scales value by the interest rate in effect at now:
// value + value*rate*months/100. It is used both for the borrower's debt and
// for a single lender's bid.
func (l *Loan) AmountWithInterest(value *uint256.Int, now time.Time) *uint256.Int {
	return l.withInterest(value, l.InterestRate(now))
}

func (l *Loan) instalments() uint64 {
	if l.Terms.InstalmentCount == 0 {
		return 1
	}
	return l.Terms.InstalmentCount
}

// InstalmentLength is the time between two instalment due dates.
func (l *Loan) InstalmentLength() time.Duration {
	return l.Terms.TermLength / time.Duration(l.instalments())
}

// DueDate of the i-th instalment, 1-based.
func (l *Loan) DueDate(i uint64) time.Time {
	return l.TermStart.Add(time.Duration(i) * l.InstalmentLength())
}

// slices sums instalment slices from+1..to. The last slice absorbs the
// rounding remainder so that all slices add up to the borrower debt.
func (l *Loan) slices(from, to uint64) *uint256.Int {
	n := l.instalments()
	if to > n {
		to = n
	}
	if from >= to {
		return new(uint256.Int)
	}
	base := new(uint256.Int).Div(l.BorrowerDebt, uint256.NewInt(n))
	sum := new(uint256.Int).Mul(base, uint256.NewInt(to-from))
	if to == n {
		rem := new(uint256.Int).Mul(base, uint256.NewInt(n))
		rem.Sub(l.BorrowerDebt, rem)
		sum.Add(sum, rem)
	}
	return sum
}

// boundariesPassed counts the due dates strictly before now, capped at N.
func (l *Loan) boundariesPassed(now time.Time) uint64 {
	elapsed := now.Sub(l.TermStart)
	if elapsed <= 0 {
		return 0
	}
	length := l.InstalmentLength()
	if length <= 0 {
		return l.instalments()
	}
	passed := uint64((elapsed - 1) / length)
	if n := l.instalments(); passed > n {
		passed = n
	}
	return passed
}

// CurrentInstalment is the 1-based instalment whose due date is the next one
// at or after now, capped at N.
func (l *Loan) CurrentInstalment(now time.Time) uint64 {
	current := l.boundariesPassed(now) + 1
	if n := l.instalments(); current > n {
		current = n
	}
	return current
}

func (l *Loan) overdueUnpaid(now time.Time) uint64 {
	passed := l.boundariesPassed(now)
	if passed <= l.InstalmentsPaid {
		return 0
	}
	return passed - l.InstalmentsPaid
}

// PenaltyPerSlice is the late fee charged for each overdue instalment:
// auctionBalance*rate*multiplier*termLength / (period*100), spread over N.
func (l *Loan) PenaltyPerSlice() *uint256.Int {
	if l.Rules == nil {
		return new(uint256.Int)
	}
	num := new(uint256.Int).Mul(uint256.NewInt(l.FrozenRate), uint256.NewInt(l.Rules.PenaltyMultiplier))
	num.Mul(num, seconds(l.Terms.TermLength))
	den := new(uint256.Int).Mul(seconds(l.Rules.Period), hundred)
	den.Mul(den, uint256.NewInt(l.instalments()))
	return mulDiv(l.AuctionBalance, num, den)
}

func (l *Loan) penalties(now time.Time) *uint256.Int {
	overdue := l.overdueUnpaid(now)
	if overdue == 0 {
		return new(uint256.Int)
	}
	return new(uint256.Int).Mul(l.PenaltyPerSlice(), uint256.NewInt(overdue))
}

// InstalmentDebt is what the borrower owes right now: unpaid slices up to the
// current instalment plus a penalty for each overdue one.
func (l *Loan) InstalmentDebt(now time.Time) *uint256.Int {
	if !l.RateFrozen || l.InstalmentsPaid >= l.instalments() {
		return new(uint256.Int)
	}
	current := l.CurrentInstalment(now)
	if current <= l.InstalmentsPaid {
		return new(uint256.Int)
	}
	debt := l.slices(l.InstalmentsPaid, current)
	return debt.Add(debt, l.penalties(now))
}

// TotalDebt settles the loan: every unpaid slice plus penalties for overdue ones.
// For a balloon loan this is the borrower debt.
func (l *Loan) TotalDebt(now time.Time) *uint256.Int {
	if !l.RateFrozen || l.InstalmentsPaid >= l.instalments() {
		return new(uint256.Int)
	}
	debt := l.slices(l.InstalmentsPaid, l.instalments())
	return debt.Add(debt, l.penalties(now))
}

// lenderOwed is the part of a lender's principal-plus-interest covered by the
// first paid instalments. Scaling by the paid share of the borrower debt keeps
// the sum over all lenders within what was actually repaid.
func (l *Loan) lenderOwed(bid *uint256.Int, paid uint64) *uint256.Int {
	total := l.withInterest(bid, l.FrozenRate)
	return mulDiv(total, l.slices(0, paid), l.BorrowerDebt)
}

func (l *Loan) lenderPenaltyShare(bid *uint256.Int) *uint256.Int {
	return mulDiv(l.PenaltiesPaid, bid, l.AuctionBalance)
}

// Claimable is what the lender could withdraw from repayments at this point.
func (l *Loan) Claimable(addr common.Address) *uint256.Int {
	rec := l.Lender(addr)
	if rec.Withdrawn || rec.BidAmount.IsZero() {
		return new(uint256.Int)
	}
	owed := l.lenderOwed(rec.BidAmount, l.InstalmentsPaid)
	owed.Sub(owed, l.lenderOwed(rec.BidAmount, rec.InstalmentsWithdrawn))
	penalty := l.lenderPenaltyShare(rec.BidAmount)
	if penalty.Gt(rec.PenaltyWithdrawn) {
		penalty.Sub(penalty, rec.PenaltyWithdrawn)
		owed.Add(owed, penalty)
	}
	return owed
}
