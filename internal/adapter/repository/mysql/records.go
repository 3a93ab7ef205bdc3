package mysql

import (
	"fmt"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/holiman/uint256"
)

// Amounts are stored as decimal strings: 78 digits hold any uint256.
type loanRecord struct {
	ID            uint64 `gorm:"primaryKey;column:id"`
	Address       string `gorm:"size:42;uniqueIndex"`
	Factory       string `gorm:"size:42;index"`
	Borrower      string `gorm:"size:42;index"`
	Administrator string `gorm:"size:42"`
	Token         string `gorm:"size:42"`
	Proxy         string `gorm:"size:42"`
	Template      string `gorm:"size:42"`

	// ruleset copy; unused when Template is set
	OperatorFeePercent uint64
	PenaltyMultiplier  uint64
	PeriodSecs         int64

	MinAmount         string `gorm:"type:varchar(78)"`
	MaxAmount         string `gorm:"type:varchar(78)"`
	MinInterestRate   uint64
	MaxInterestRate   uint64
	AuctionStart      time.Time
	AuctionLengthSecs int64
	TermLengthSecs    int64
	InstalmentCount   uint64

	State           int    `gorm:"index"`
	AuctionBalance  string `gorm:"type:varchar(78)"`
	OperatorBalance string `gorm:"type:varchar(78)"`
	WithdrawnAmount string `gorm:"type:varchar(78)"`
	BorrowerDebt    string `gorm:"type:varchar(78)"`
	RepaidAmount    string `gorm:"type:varchar(78)"`
	PenaltiesPaid   string `gorm:"type:varchar(78)"`
	FrozenRate      uint64
	RateFrozen      bool
	InstalmentsPaid uint64
	LoanWithdrawn   bool
	MinimumReached  bool
	FeesWithdrawn   bool
	TermStart       *time.Time
	TermEnd         *time.Time

	StateUpdatedAt time.Time
	CreatedAt      time.Time
	UpdatedAt      time.Time
}

func (loanRecord) TableName() string { return "loans" }

type lenderRecord struct {
	ID                   uint64 `gorm:"primaryKey;column:id"`
	LoanID               uint64 `gorm:"uniqueIndex:idx_loan_lender"`
	Address              string `gorm:"size:42;uniqueIndex:idx_loan_lender"`
	BidAmount            string `gorm:"type:varchar(78)"`
	Withdrawn            bool
	InstalmentsWithdrawn uint64
	PenaltyWithdrawn     string `gorm:"type:varchar(78)"`
	CreatedAt            time.Time
	UpdatedAt            time.Time
}

func (lenderRecord) TableName() string { return "loan_lenders" }

type templateRecord struct {
	Address            string `gorm:"primaryKey;size:42"`
	OperatorFeePercent uint64
	PenaltyMultiplier  uint64
	PeriodSecs         int64
	CreatedAt          time.Time
}

func (templateRecord) TableName() string { return "loan_templates" }

type factoryRecord struct {
	Address              string `gorm:"primaryKey;size:42"`
	Administrator        string `gorm:"size:42"`
	Proxy                string `gorm:"size:42"`
	Template             string `gorm:"size:42"`
	OperatorFeePercent   uint64
	PenaltyMultiplier    uint64
	PeriodSecs           int64
	MinAmount            string `gorm:"type:varchar(78)"`
	MaxAmount            string `gorm:"type:varchar(78)"`
	MinInterestRate      uint64
	MaxInterestRate      uint64
	MinTermLengthSecs    int64
	MinAuctionLengthSecs int64
	Nonce                uint64
	CreatedAt            time.Time
	UpdatedAt            time.Time
}

func (factoryRecord) TableName() string { return "factories" }

type factoryLoanRecord struct {
	Factory   string `gorm:"primaryKey;size:42"`
	Loan      string `gorm:"primaryKey;size:42"`
	CreatedAt time.Time
}

func (factoryLoanRecord) TableName() string { return "factory_loans" }

type proxyRecord struct {
	Address         string `gorm:"primaryKey;size:42"`
	Administrator   string `gorm:"size:42"`
	DepositRequired bool
	CreatedAt       time.Time
	UpdatedAt       time.Time
}

func (proxyRecord) TableName() string { return "proxies" }

type nonceRecord struct {
	Address string `gorm:"primaryKey;size:42"`
	Nonce   uint64
}

func (nonceRecord) TableName() string { return "account_nonces" }

type identityRecord struct {
	Address    string `gorm:"primaryKey;size:42"`
	Verified   bool
	VerifiedBy string `gorm:"size:42"`
	UpdatedAt  time.Time
}

func (identityRecord) TableName() string { return "gateway_identities" }

type depositRecord struct {
	Address   string `gorm:"primaryKey;size:42"`
	Amount    string `gorm:"type:varchar(78)"`
	UpdatedAt time.Time
}

func (depositRecord) TableName() string { return "gateway_deposits" }

type balanceRecord struct {
	Token  string `gorm:"primaryKey;size:42"`
	Holder string `gorm:"primaryKey;size:42"`
	Amount string `gorm:"type:varchar(78)"`
}

func (balanceRecord) TableName() string { return "token_balances" }

type allowanceRecord struct {
	Token   string `gorm:"primaryKey;size:42"`
	Owner   string `gorm:"primaryKey;size:42"`
	Spender string `gorm:"primaryKey;size:42"`
	Amount  string `gorm:"type:varchar(78)"`
}

func (allowanceRecord) TableName() string { return "token_allowances" }

type eventRecord struct {
	ID        uint64 `gorm:"primaryKey;column:id"`
	EventID   string `gorm:"size:32;uniqueIndex"`
	Loan      string `gorm:"size:42;index"`
	Kind      string `gorm:"size:32"`
	Actor     string `gorm:"size:42"`
	Amount    string `gorm:"type:varchar(78)"`
	FromState string `gorm:"size:16"`
	ToState   string `gorm:"size:16"`
	At        time.Time
}

func (eventRecord) TableName() string { return "loan_events" }

// Models lists every table, in migration order.
func Models() []any {
	return []any{
		&loanRecord{}, &lenderRecord{}, &templateRecord{},
		&factoryRecord{}, &factoryLoanRecord{},
		&proxyRecord{}, &nonceRecord{},
		&identityRecord{}, &depositRecord{},
		&balanceRecord{}, &allowanceRecord{},
		&eventRecord{},
	}
}

func dec(v *uint256.Int) string {
	if v == nil {
		return "0"
	}
	return v.Dec()
}

func amount(s string) (*uint256.Int, error) {
	if s == "" {
		return new(uint256.Int), nil
	}
	v, err := uint256.FromDecimal(s)
	if err != nil {
		return nil, fmt.Errorf("decode amount %q: %w", s, err)
	}
	return v, nil
}

// hexOf stores the zero address as an empty string so "unset" reads naturally in SQL.
func hexOf(a common.Address) string {
	if a == (common.Address{}) {
		return ""
	}
	return a.Hex()
}

func addressOf(s string) common.Address {
	if s == "" {
		return common.Address{}
	}
	return common.HexToAddress(s)
}

func secs(d time.Duration) int64 { return int64(d / time.Second) }

func duration(s int64) time.Duration { return time.Duration(s) * time.Second }

func timePtr(t time.Time) *time.Time {
	if t.IsZero() {
		return nil
	}
	return &t
}

func timeOf(p *time.Time) time.Time {
	if p == nil {
		return time.Time{}
	}
	return *p
}
