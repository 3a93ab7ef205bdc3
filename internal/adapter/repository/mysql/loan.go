package mysql

import (
	"context"
	"errors"

	"github.com/ethereum/go-ethereum/common"
	"github.com/holiman/uint256"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	loanDomain "auctionlend/internal/domain/loan"
)

type LoanRepository struct{ db *gorm.DB }

func NewLoanRepository(db *gorm.DB) *LoanRepository { return &LoanRepository{db: db} }

func (r *LoanRepository) Create(ctx context.Context, l *loanDomain.Loan) error {
	rec := toLoanRecord(l)
	if err := r.db.WithContext(ctx).Create(&rec).Error; err != nil {
		return err
	}
	l.ID, l.CreatedAt, l.UpdatedAt = rec.ID, rec.CreatedAt, rec.UpdatedAt
	return r.saveLenders(ctx, l)
}

func (r *LoanRepository) Save(ctx context.Context, l *loanDomain.Loan) error {
	rec := toLoanRecord(l)
	if err := r.db.WithContext(ctx).Save(&rec).Error; err != nil {
		return err
	}
	l.UpdatedAt = rec.UpdatedAt
	return r.saveLenders(ctx, l)
}

func (r *LoanRepository) saveLenders(ctx context.Context, l *loanDomain.Loan) error {
	if len(l.Lenders) == 0 {
		return nil
	}
	recs := make([]lenderRecord, 0, len(l.Lenders))
	for _, ln := range l.Lenders {
		recs = append(recs, lenderRecord{
			LoanID:               l.ID,
			Address:              hexOf(ln.Address),
			BidAmount:            dec(ln.BidAmount),
			Withdrawn:            ln.Withdrawn,
			InstalmentsWithdrawn: ln.InstalmentsWithdrawn,
			PenaltyWithdrawn:     dec(ln.PenaltyWithdrawn),
		})
	}
	return r.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "loan_id"}, {Name: "address"}},
		DoUpdates: clause.AssignmentColumns([]string{"bid_amount", "withdrawn", "instalments_withdrawn", "penalty_withdrawn", "updated_at"}),
	}).Create(&recs).Error
}

func (r *LoanRepository) GetByAddress(ctx context.Context, addr common.Address) (*loanDomain.Loan, error) {
	return r.get(r.db.WithContext(ctx), addr)
}

func (r *LoanRepository) GetByAddressForUpdate(ctx context.Context, addr common.Address) (*loanDomain.Loan, error) {
	return r.get(r.db.WithContext(ctx).Clauses(clause.Locking{Strength: "UPDATE"}), addr)
}

func (r *LoanRepository) get(q *gorm.DB, addr common.Address) (*loanDomain.Loan, error) {
	var rec loanRecord
	if err := q.Where("address = ?", hexOf(addr)).First(&rec).Error; err != nil {
		return nil, err
	}
	return r.hydrate(q, &rec)
}

func (r *LoanRepository) hydrate(q *gorm.DB, rec *loanRecord) (*loanDomain.Loan, error) {
	l, err := fromLoanRecord(rec)
	if err != nil {
		return nil, err
	}
	db := q.Session(&gorm.Session{NewDB: true})
	if l.IsClone() {
		var tpl templateRecord
		if err := db.Where("address = ?", rec.Template).First(&tpl).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return nil, loanDomain.ErrTemplateNotFound
			}
			return nil, err
		}
		rules := fromTemplateRecord(&tpl).Rules
		l.Rules = &rules
	}

	var lenders []lenderRecord
	if err := db.Where("loan_id = ?", rec.ID).Order("id ASC").Find(&lenders).Error; err != nil {
		return nil, err
	}
	for i := range lenders {
		ln, err := fromLenderRecord(&lenders[i])
		if err != nil {
			return nil, err
		}
		l.Lenders[ln.Address] = ln
	}
	return l, nil
}

func (r *LoanRepository) ListAddressesByState(ctx context.Context, states []loanDomain.State, limit int) ([]common.Address, error) {
	ints := make([]int, len(states))
	for i, s := range states {
		ints[i] = int(s)
	}
	var raw []string
	q := r.db.WithContext(ctx).Model(&loanRecord{}).Where("state IN ?", ints).Order("id ASC")
	if limit > 0 {
		q = q.Limit(limit)
	}
	if err := q.Pluck("address", &raw).Error; err != nil {
		return nil, err
	}
	out := make([]common.Address, len(raw))
	for i, s := range raw {
		out[i] = addressOf(s)
	}
	return out, nil
}

func (r *LoanRepository) ListByBorrower(ctx context.Context, borrower common.Address) ([]*loanDomain.Loan, error) {
	var recs []loanRecord
	db := r.db.WithContext(ctx)
	if err := db.Where("borrower = ?", hexOf(borrower)).Order("id DESC").Find(&recs).Error; err != nil {
		return nil, err
	}
	out := make([]*loanDomain.Loan, 0, len(recs))
	for i := range recs {
		l, err := r.hydrate(db, &recs[i])
		if err != nil {
			return nil, err
		}
		out = append(out, l)
	}
	return out, nil
}

func (r *LoanRepository) CreateTemplate(ctx context.Context, t *loanDomain.Template) error {
	rec := templateRecord{
		Address:            hexOf(t.Address),
		OperatorFeePercent: t.Rules.OperatorFeePercent,
		PenaltyMultiplier:  t.Rules.PenaltyMultiplier,
		PeriodSecs:         secs(t.Rules.Period),
	}
	if err := r.db.WithContext(ctx).Create(&rec).Error; err != nil {
		return err
	}
	t.CreatedAt = rec.CreatedAt
	return nil
}

func (r *LoanRepository) GetTemplate(ctx context.Context, addr common.Address) (*loanDomain.Template, error) {
	var rec templateRecord
	if err := r.db.WithContext(ctx).Where("address = ?", hexOf(addr)).First(&rec).Error; err != nil {
		return nil, err
	}
	return fromTemplateRecord(&rec), nil
}

func toLoanRecord(l *loanDomain.Loan) loanRecord {
	rec := loanRecord{
		ID:                l.ID,
		Address:           hexOf(l.Address),
		Factory:           hexOf(l.Factory),
		Borrower:          hexOf(l.Borrower),
		Administrator:     hexOf(l.Administrator),
		Token:             hexOf(l.Token),
		Proxy:             hexOf(l.Proxy),
		Template:          hexOf(l.Template),
		MinAmount:         dec(l.Terms.MinAmount),
		MaxAmount:         dec(l.Terms.MaxAmount),
		MinInterestRate:   l.Terms.MinInterestRate,
		MaxInterestRate:   l.Terms.MaxInterestRate,
		AuctionStart:      l.Terms.AuctionStart,
		AuctionLengthSecs: secs(l.Terms.AuctionLength),
		TermLengthSecs:    secs(l.Terms.TermLength),
		InstalmentCount:   l.Terms.InstalmentCount,
		State:             int(l.State),
		AuctionBalance:    dec(l.AuctionBalance),
		OperatorBalance:   dec(l.OperatorBalance),
		WithdrawnAmount:   dec(l.WithdrawnAmount),
		BorrowerDebt:      dec(l.BorrowerDebt),
		RepaidAmount:      dec(l.RepaidAmount),
		PenaltiesPaid:     dec(l.PenaltiesPaid),
		FrozenRate:        l.FrozenRate,
		RateFrozen:        l.RateFrozen,
		InstalmentsPaid:   l.InstalmentsPaid,
		LoanWithdrawn:     l.LoanWithdrawn,
		MinimumReached:    l.MinimumReached,
		FeesWithdrawn:     l.FeesWithdrawn,
		TermStart:         timePtr(l.TermStart),
		TermEnd:           timePtr(l.TermEnd),
		StateUpdatedAt:    l.StateUpdatedAt,
		CreatedAt:         l.CreatedAt,
	}
	if !l.IsClone() && l.Rules != nil {
		rec.OperatorFeePercent = l.Rules.OperatorFeePercent
		rec.PenaltyMultiplier = l.Rules.PenaltyMultiplier
		rec.PeriodSecs = secs(l.Rules.Period)
	}
	return rec
}

func fromLoanRecord(rec *loanRecord) (*loanDomain.Loan, error) {
	amounts := []string{
		rec.MinAmount, rec.MaxAmount, rec.AuctionBalance, rec.OperatorBalance,
		rec.WithdrawnAmount, rec.BorrowerDebt, rec.RepaidAmount, rec.PenaltiesPaid,
	}
	parsed := make([]*uint256.Int, len(amounts))
	for i, s := range amounts {
		v, err := amount(s)
		if err != nil {
			return nil, err
		}
		parsed[i] = v
	}
	l := loanDomain.New(loanDomain.NewParams{
		Address:       addressOf(rec.Address),
		Factory:       addressOf(rec.Factory),
		Borrower:      addressOf(rec.Borrower),
		Administrator: addressOf(rec.Administrator),
		Token:         addressOf(rec.Token),
		Proxy:         addressOf(rec.Proxy),
		Template:      addressOf(rec.Template),
		Terms: loanDomain.Terms{
			MinAmount:       parsed[0],
			MaxAmount:       parsed[1],
			MinInterestRate: rec.MinInterestRate,
			MaxInterestRate: rec.MaxInterestRate,
			AuctionStart:    rec.AuctionStart,
			AuctionLength:   duration(rec.AuctionLengthSecs),
			TermLength:      duration(rec.TermLengthSecs),
			InstalmentCount: rec.InstalmentCount,
		},
	})
	if !l.IsClone() {
		l.Rules = &loanDomain.Ruleset{
			OperatorFeePercent: rec.OperatorFeePercent,
			PenaltyMultiplier:  rec.PenaltyMultiplier,
			Period:             duration(rec.PeriodSecs),
		}
	}
	l.ID = rec.ID
	l.State = loanDomain.State(rec.State)
	l.AuctionBalance, l.OperatorBalance = parsed[2], parsed[3]
	l.WithdrawnAmount, l.BorrowerDebt = parsed[4], parsed[5]
	l.RepaidAmount, l.PenaltiesPaid = parsed[6], parsed[7]
	l.FrozenRate = rec.FrozenRate
	l.RateFrozen = rec.RateFrozen
	l.InstalmentsPaid = rec.InstalmentsPaid
	l.LoanWithdrawn = rec.LoanWithdrawn
	l.MinimumReached = rec.MinimumReached
	l.FeesWithdrawn = rec.FeesWithdrawn
	l.TermStart = timeOf(rec.TermStart)
	l.TermEnd = timeOf(rec.TermEnd)
	l.StateUpdatedAt = rec.StateUpdatedAt
	l.CreatedAt = rec.CreatedAt
	l.UpdatedAt = rec.UpdatedAt
	return l, nil
}

func fromLenderRecord(rec *lenderRecord) (*loanDomain.Lender, error) {
	bid, err := amount(rec.BidAmount)
	if err != nil {
		return nil, err
	}
	penalty, err := amount(rec.PenaltyWithdrawn)
	if err != nil {
		return nil, err
	}
	return &loanDomain.Lender{
		Address:              addressOf(rec.Address),
		BidAmount:            bid,
		Withdrawn:            rec.Withdrawn,
		InstalmentsWithdrawn: rec.InstalmentsWithdrawn,
		PenaltyWithdrawn:     penalty,
	}, nil
}

func fromTemplateRecord(rec *templateRecord) *loanDomain.Template {
	return &loanDomain.Template{
		Address: addressOf(rec.Address),
		Rules: loanDomain.Ruleset{
			OperatorFeePercent: rec.OperatorFeePercent,
			PenaltyMultiplier:  rec.PenaltyMultiplier,
			Period:             duration(rec.PeriodSecs),
		},
		CreatedAt: rec.CreatedAt,
	}
}
