package mysql

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/holiman/uint256"
	"gorm.io/gorm"

	loanDomain "auctionlend/internal/domain/loan"
)

func TestLoanRepository_CreateAndGetRoundTrip(t *testing.T) {
	db := openTestDB(t)
	repo := NewLoanRepository(db)
	ctx := context.Background()

	addr := common.HexToAddress("0x00000000000000000000000000000000000000c1")
	l := makeLoan(addr)
	if _, err := l.ApplyFunding(testLender, uint256.NewInt(250), testStart.Add(time.Minute)); err != nil {
		t.Fatalf("ApplyFunding: %v", err)
	}
	if err := repo.Create(ctx, l); err != nil {
		t.Fatalf("Create: %v", err)
	}
	if l.ID == 0 {
		t.Fatalf("Create did not set auto-increment ID")
	}

	got, err := repo.GetByAddress(ctx, addr)
	if err != nil {
		t.Fatalf("GetByAddress: %v", err)
	}
	if got.Borrower != testBorrower || got.Proxy != testProxy || got.State != loanDomain.StateCreated {
		t.Fatalf("unexpected loan: %+v", got)
	}
	if got.Terms.MaxAmount.Dec() != "400" || got.AuctionBalance.Dec() != "250" {
		t.Fatalf("amounts not restored: max=%s balance=%s", got.Terms.MaxAmount.Dec(), got.AuctionBalance.Dec())
	}
	if got.Rules == nil || got.Rules.OperatorFeePercent != 2 || got.Rules.Period != loanDomain.DefaultPeriod {
		t.Fatalf("ruleset not restored: %+v", got.Rules)
	}
	if bid := got.Lender(testLender).BidAmount; bid.Dec() != "250" {
		t.Fatalf("lender bid = %s", bid.Dec())
	}
	if !got.MinimumReached || !got.TermStart.IsZero() {
		t.Fatalf("flags not restored: minimumReached=%v termStart=%v", got.MinimumReached, got.TermStart)
	}
}

func TestLoanRepository_SaveUpdatesLedgerAndLenders(t *testing.T) {
	db := openTestDB(t)
	repo := NewLoanRepository(db)
	ctx := context.Background()

	addr := common.HexToAddress("0x00000000000000000000000000000000000000c2")
	l := makeLoan(addr)
	if err := repo.Create(ctx, l); err != nil {
		t.Fatalf("Create: %v", err)
	}

	if _, err := l.ApplyFunding(testLender, uint256.NewInt(400), testStart.Add(time.Minute)); err != nil {
		t.Fatalf("ApplyFunding: %v", err)
	}
	if err := repo.Save(ctx, l); err != nil {
		t.Fatalf("Save: %v", err)
	}
	// a second save must update the lender row, not duplicate it
	l.Lenders[testLender].Withdrawn = true
	if err := repo.Save(ctx, l); err != nil {
		t.Fatalf("Save again: %v", err)
	}

	got, err := repo.GetByAddress(ctx, addr)
	if err != nil {
		t.Fatalf("GetByAddress: %v", err)
	}
	if got.State != loanDomain.StateActive || !got.RateFrozen {
		t.Fatalf("state=%s rateFrozen=%v", got.State, got.RateFrozen)
	}
	if !got.TermEnd.Equal(l.TermEnd) {
		t.Fatalf("termEnd=%v want %v", got.TermEnd, l.TermEnd)
	}
	if got.LenderCount() != 1 || !got.Lender(testLender).Withdrawn {
		t.Fatalf("lenders not updated: %+v", got.Lenders)
	}
	if got.BorrowerDebt.Dec() != l.BorrowerDebt.Dec() {
		t.Fatalf("debt=%s want %s", got.BorrowerDebt.Dec(), l.BorrowerDebt.Dec())
	}
}

func TestLoanRepository_CloneReadsRulesFromTemplate(t *testing.T) {
	db := openTestDB(t)
	repo := NewLoanRepository(db)
	ctx := context.Background()

	tpl := &loanDomain.Template{
		Address: common.HexToAddress("0x00000000000000000000000000000000000000e1"),
		Rules:   loanDomain.Ruleset{OperatorFeePercent: 5, PenaltyMultiplier: 3, Period: 7 * 24 * time.Hour},
	}
	if err := repo.CreateTemplate(ctx, tpl); err != nil {
		t.Fatalf("CreateTemplate: %v", err)
	}

	addr := common.HexToAddress("0x00000000000000000000000000000000000000c3")
	l := makeLoan(addr)
	l.Template = tpl.Address
	l.Rules = &tpl.Rules
	if err := repo.Create(ctx, l); err != nil {
		t.Fatalf("Create: %v", err)
	}

	got, err := repo.GetByAddressForUpdate(ctx, addr)
	if err != nil {
		t.Fatalf("GetByAddressForUpdate: %v", err)
	}
	if !got.IsClone() || got.Rules.OperatorFeePercent != 5 || got.Rules.Period != 7*24*time.Hour {
		t.Fatalf("clone rules = %+v", got.Rules)
	}
}

func TestLoanRepository_GetByAddress_NotFound(t *testing.T) {
	repo := NewLoanRepository(openTestDB(t))

	_, err := repo.GetByAddress(context.Background(), common.HexToAddress("0xdead"))
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		t.Fatalf("expected ErrRecordNotFound, got %v", err)
	}
}

func TestLoanRepository_ListAddressesByState(t *testing.T) {
	db := openTestDB(t)
	repo := NewLoanRepository(db)
	ctx := context.Background()

	created := common.HexToAddress("0x00000000000000000000000000000000000000c4")
	closed := common.HexToAddress("0x00000000000000000000000000000000000000c5")
	for _, a := range []common.Address{created, closed} {
		if err := repo.Create(ctx, makeLoan(a)); err != nil {
			t.Fatalf("Create: %v", err)
		}
	}
	if err := db.Model(&loanRecord{}).Where("address = ?", closed.Hex()).Update("state", int(loanDomain.StateClosed)).Error; err != nil {
		t.Fatal(err)
	}

	got, err := repo.ListAddressesByState(ctx, []loanDomain.State{loanDomain.StateCreated, loanDomain.StateActive}, 10)
	if err != nil {
		t.Fatalf("ListAddressesByState: %v", err)
	}
	if len(got) != 1 || got[0] != created {
		t.Fatalf("got %v", got)
	}

	mine, err := repo.ListByBorrower(ctx, testBorrower)
	if err != nil || len(mine) != 2 {
		t.Fatalf("ListByBorrower = %d loans, err=%v", len(mine), err)
	}
}
