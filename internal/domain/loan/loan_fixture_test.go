package loan

import (
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/holiman/uint256"
)

var (
	t0       = time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)
	borrower = common.HexToAddress("0x00000000000000000000000000000000000000b0")
	admin    = common.HexToAddress("0x00000000000000000000000000000000000000ad")
	proxy    = common.HexToAddress("0x00000000000000000000000000000000000000f0")
	alice    = common.HexToAddress("0x00000000000000000000000000000000000000a1")
	bob      = common.HexToAddress("0x00000000000000000000000000000000000000a2")
	carol    = common.HexToAddress("0x00000000000000000000000000000000000000a3")
)

const (
	auctionLength = 1000 * time.Second
	termLength    = 360 * 24 * time.Hour // 12 periods
)

func u(v uint64) *uint256.Int { return uint256.NewInt(v) }

func newTestLoan(minAmount, maxAmount, instalments uint64) *Loan {
	rules := DefaultRuleset()
	return New(NewParams{
		Address:       common.HexToAddress("0x00000000000000000000000000000000000000c0"),
		Borrower:      borrower,
		Administrator: admin,
		Proxy:         proxy,
		Token:         common.HexToAddress("0x0000000000000000000000000000000000000070"),
		Rules:         &rules,
		Terms: Terms{
			MinAmount:       u(minAmount),
			MaxAmount:       u(maxAmount),
			MinInterestRate: 5,
			MaxInterestRate: 20,
			AuctionStart:    t0,
			AuctionLength:   auctionLength,
			TermLength:      termLength,
			InstalmentCount: instalments,
		},
	})
}

// fundAt is a convenience for tests that only care about the ledger effect.
func fundAt(l *Loan, who common.Address, amount uint64, at time.Duration) Funding {
	f, err := l.ApplyFunding(who, u(amount), t0.Add(at))
	if err != nil {
		panic(err)
	}
	return f
}
