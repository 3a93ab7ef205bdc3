package mysql

import (
	"context"
	"errors"

	"github.com/ethereum/go-ethereum/common"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"auctionlend/internal/domain/gateway"
)

type GatewayRepository struct{ db *gorm.DB }

func NewGatewayRepository(db *gorm.DB) *GatewayRepository { return &GatewayRepository{db: db} }

func (r *GatewayRepository) GetIdentity(ctx context.Context, addr common.Address) (*gateway.Identity, error) {
	var rec identityRecord
	if err := r.db.WithContext(ctx).Where("address = ?", hexOf(addr)).First(&rec).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, gateway.ErrNotFound
		}
		return nil, err
	}
	return &gateway.Identity{
		Address:    addressOf(rec.Address),
		Verified:   rec.Verified,
		VerifiedBy: addressOf(rec.VerifiedBy),
		UpdatedAt:  rec.UpdatedAt,
	}, nil
}

func (r *GatewayRepository) SaveIdentity(ctx context.Context, id *gateway.Identity) error {
	rec := identityRecord{
		Address:    hexOf(id.Address),
		Verified:   id.Verified,
		VerifiedBy: hexOf(id.VerifiedBy),
		UpdatedAt:  id.UpdatedAt,
	}
	return r.db.WithContext(ctx).Clauses(clause.OnConflict{UpdateAll: true}).Create(&rec).Error
}

func (r *GatewayRepository) GetDeposit(ctx context.Context, addr common.Address) (*gateway.Deposit, error) {
	var rec depositRecord
	if err := r.db.WithContext(ctx).Where("address = ?", hexOf(addr)).First(&rec).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, gateway.ErrNotFound
		}
		return nil, err
	}
	v, err := amount(rec.Amount)
	if err != nil {
		return nil, err
	}
	return &gateway.Deposit{Address: addressOf(rec.Address), Amount: v, UpdatedAt: rec.UpdatedAt}, nil
}

func (r *GatewayRepository) SaveDeposit(ctx context.Context, d *gateway.Deposit) error {
	rec := depositRecord{Address: hexOf(d.Address), Amount: dec(d.Amount), UpdatedAt: d.UpdatedAt}
	return r.db.WithContext(ctx).Clauses(clause.OnConflict{UpdateAll: true}).Create(&rec).Error
}
