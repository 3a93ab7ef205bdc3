package mysql

import (
	"context"
	"errors"

	"github.com/ethereum/go-ethereum/common"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"auctionlend/internal/domain/factory"
	"auctionlend/internal/domain/loan"
)

type FactoryRepository struct{ db *gorm.DB }

func NewFactoryRepository(db *gorm.DB) *FactoryRepository { return &FactoryRepository{db: db} }

func (r *FactoryRepository) Create(ctx context.Context, f *factory.Factory) error {
	rec := toFactoryRecord(f)
	if err := r.db.WithContext(ctx).Create(&rec).Error; err != nil {
		return err
	}
	f.CreatedAt, f.UpdatedAt = rec.CreatedAt, rec.UpdatedAt
	return nil
}

func (r *FactoryRepository) Save(ctx context.Context, f *factory.Factory) error {
	rec := toFactoryRecord(f)
	if err := r.db.WithContext(ctx).Save(&rec).Error; err != nil {
		return err
	}
	f.UpdatedAt = rec.UpdatedAt
	return nil
}

func (r *FactoryRepository) Get(ctx context.Context, addr common.Address) (*factory.Factory, error) {
	return r.get(r.db.WithContext(ctx), addr)
}

func (r *FactoryRepository) GetForUpdate(ctx context.Context, addr common.Address) (*factory.Factory, error) {
	return r.get(r.db.WithContext(ctx).Clauses(clause.Locking{Strength: "UPDATE"}), addr)
}

func (r *FactoryRepository) get(q *gorm.DB, addr common.Address) (*factory.Factory, error) {
	var rec factoryRecord
	if err := q.Where("address = ?", hexOf(addr)).First(&rec).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, factory.ErrNotFound
		}
		return nil, err
	}
	return fromFactoryRecord(&rec)
}

func (r *FactoryRepository) AddLoan(ctx context.Context, f, l common.Address) error {
	return r.db.WithContext(ctx).Create(&factoryLoanRecord{Factory: hexOf(f), Loan: hexOf(l)}).Error
}

func (r *FactoryRepository) IsLoan(ctx context.Context, f, l common.Address) (bool, error) {
	var n int64
	err := r.db.WithContext(ctx).Model(&factoryLoanRecord{}).
		Where("factory = ? AND loan = ?", hexOf(f), hexOf(l)).
		Count(&n).Error
	return n > 0, err
}

func toFactoryRecord(f *factory.Factory) factoryRecord {
	return factoryRecord{
		Address:              hexOf(f.Address),
		Administrator:        hexOf(f.Administrator),
		Proxy:                hexOf(f.Proxy),
		Template:             hexOf(f.Template),
		OperatorFeePercent:   f.Rules.OperatorFeePercent,
		PenaltyMultiplier:    f.Rules.PenaltyMultiplier,
		PeriodSecs:           secs(f.Rules.Period),
		MinAmount:            dec(f.Bounds.MinAmount),
		MaxAmount:            dec(f.Bounds.MaxAmount),
		MinInterestRate:      f.Bounds.MinInterestRate,
		MaxInterestRate:      f.Bounds.MaxInterestRate,
		MinTermLengthSecs:    secs(f.Bounds.MinTermLength),
		MinAuctionLengthSecs: secs(f.Bounds.MinAuctionLength),
		Nonce:                f.Nonce,
		CreatedAt:            f.CreatedAt,
	}
}

func fromFactoryRecord(rec *factoryRecord) (*factory.Factory, error) {
	minAmount, err := amount(rec.MinAmount)
	if err != nil {
		return nil, err
	}
	maxAmount, err := amount(rec.MaxAmount)
	if err != nil {
		return nil, err
	}
	return &factory.Factory{
		Address:       addressOf(rec.Address),
		Administrator: addressOf(rec.Administrator),
		Proxy:         addressOf(rec.Proxy),
		Template:      addressOf(rec.Template),
		Rules: loan.Ruleset{
			OperatorFeePercent: rec.OperatorFeePercent,
			PenaltyMultiplier:  rec.PenaltyMultiplier,
			Period:             duration(rec.PeriodSecs),
		},
		Bounds: factory.Bounds{
			MinAmount:        minAmount,
			MaxAmount:        maxAmount,
			MinInterestRate:  rec.MinInterestRate,
			MaxInterestRate:  rec.MaxInterestRate,
			MinTermLength:    duration(rec.MinTermLengthSecs),
			MinAuctionLength: duration(rec.MinAuctionLengthSecs),
		},
		Nonce:     rec.Nonce,
		CreatedAt: rec.CreatedAt,
		UpdatedAt: rec.UpdatedAt,
	}, nil
}
