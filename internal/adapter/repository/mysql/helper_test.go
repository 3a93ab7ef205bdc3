package mysql

import (
	"testing"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/holiman/uint256"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	loanDomain "auctionlend/internal/domain/loan"
)

// openTestDB creates an in-memory sqlite DB with the full schema.
func openTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{Logger: logger.Default.LogMode(logger.Silent)})
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	sqlDB, err := db.DB()
	if err != nil {
		t.Fatalf("sql db: %v", err)
	}
	// every connection to :memory: is a different database
	sqlDB.SetMaxOpenConns(1)
	if err := Migrate(db); err != nil {
		t.Fatalf("auto-migrate: %v", err)
	}
	return db
}

var (
	testBorrower = common.HexToAddress("0x00000000000000000000000000000000000000b0")
	testAdmin    = common.HexToAddress("0x00000000000000000000000000000000000000ad")
	testProxy    = common.HexToAddress("0x00000000000000000000000000000000000000f0")
	testToken    = common.HexToAddress("0x0000000000000000000000000000000000000d41")
	testLender   = common.HexToAddress("0x00000000000000000000000000000000000000a1")
	testStart    = time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)
)

func makeLoan(addr common.Address) *loanDomain.Loan {
	rules := loanDomain.DefaultRuleset()
	return loanDomain.New(loanDomain.NewParams{
		Address:       addr,
		Borrower:      testBorrower,
		Administrator: testAdmin,
		Token:         testToken,
		Proxy:         testProxy,
		Rules:         &rules,
		Terms: loanDomain.Terms{
			MinAmount:       uint256.NewInt(200),
			MaxAmount:       uint256.NewInt(400),
			MinInterestRate: 2,
			MaxInterestRate: 20,
			AuctionStart:    testStart,
			AuctionLength:   time.Hour,
			TermLength:      360 * 24 * time.Hour,
			InstalmentCount: 1,
		},
	})
}
