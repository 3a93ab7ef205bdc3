package mysql

import (
	"context"
	"errors"

	"github.com/ethereum/go-ethereum/common"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"auctionlend/internal/domain/proxy"
)

type ProxyRepository struct{ db *gorm.DB }

func NewProxyRepository(db *gorm.DB) *ProxyRepository { return &ProxyRepository{db: db} }

func (r *ProxyRepository) Create(ctx context.Context, p *proxy.Proxy) error {
	rec := toProxyRecord(p)
	if err := r.db.WithContext(ctx).Create(&rec).Error; err != nil {
		return err
	}
	p.CreatedAt, p.UpdatedAt = rec.CreatedAt, rec.UpdatedAt
	return nil
}

func (r *ProxyRepository) Save(ctx context.Context, p *proxy.Proxy) error {
	rec := toProxyRecord(p)
	if err := r.db.WithContext(ctx).Save(&rec).Error; err != nil {
		return err
	}
	p.UpdatedAt = rec.UpdatedAt
	return nil
}

func (r *ProxyRepository) Get(ctx context.Context, addr common.Address) (*proxy.Proxy, error) {
	return r.get(r.db.WithContext(ctx), addr)
}

func (r *ProxyRepository) GetForUpdate(ctx context.Context, addr common.Address) (*proxy.Proxy, error) {
	return r.get(r.db.WithContext(ctx).Clauses(clause.Locking{Strength: "UPDATE"}), addr)
}

func (r *ProxyRepository) get(q *gorm.DB, addr common.Address) (*proxy.Proxy, error) {
	var rec proxyRecord
	if err := q.Where("address = ?", hexOf(addr)).First(&rec).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, proxy.ErrNotFound
		}
		return nil, err
	}
	return &proxy.Proxy{
		Address:         addressOf(rec.Address),
		Administrator:   addressOf(rec.Administrator),
		DepositRequired: rec.DepositRequired,
		CreatedAt:       rec.CreatedAt,
		UpdatedAt:       rec.UpdatedAt,
	}, nil
}

// NextNonce locks the deployer's counter row, returns its value and bumps it.
func (r *ProxyRepository) NextNonce(ctx context.Context, deployer common.Address) (uint64, error) {
	db := r.db.WithContext(ctx)
	var rec nonceRecord
	err := db.Clauses(clause.Locking{Strength: "UPDATE"}).Where("address = ?", hexOf(deployer)).First(&rec).Error
	switch {
	case errors.Is(err, gorm.ErrRecordNotFound):
		rec = nonceRecord{Address: hexOf(deployer)}
		if err := db.Create(&nonceRecord{Address: rec.Address, Nonce: 1}).Error; err != nil {
			return 0, err
		}
		return 0, nil
	case err != nil:
		return 0, err
	}
	if err := db.Model(&nonceRecord{}).Where("address = ?", rec.Address).Update("nonce", rec.Nonce+1).Error; err != nil {
		return 0, err
	}
	return rec.Nonce, nil
}

func toProxyRecord(p *proxy.Proxy) proxyRecord {
	return proxyRecord{
		Address:         hexOf(p.Address),
		Administrator:   hexOf(p.Administrator),
		DepositRequired: p.DepositRequired,
		CreatedAt:       p.CreatedAt,
	}
}
