package mysql

import (
	"context"
	"errors"

	"github.com/ethereum/go-ethereum/common"
	"github.com/holiman/uint256"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// TokenStore keeps token balances in the same database as the loans so that
// transfers commit or roll back together with the loan ledger.
//
// A store bound to a transaction reads rows FOR UPDATE: every ledger write is
// a read-modify-write, and the same holder is shared by many loans.
type TokenStore struct {
	db   *gorm.DB
	lock bool
}

func NewTokenStore(db *gorm.DB) *TokenStore { return &TokenStore{db: db} }

func newTxTokenStore(tx *gorm.DB) *TokenStore { return &TokenStore{db: tx, lock: true} }

func (s *TokenStore) read(ctx context.Context) *gorm.DB {
	q := s.db.WithContext(ctx)
	if s.lock {
		q = q.Clauses(clause.Locking{Strength: "UPDATE"})
	}
	return q
}

func (s *TokenStore) Balance(ctx context.Context, token, holder common.Address) (*uint256.Int, error) {
	var rec balanceRecord
	err := s.read(ctx).Where("token = ? AND holder = ?", hexOf(token), hexOf(holder)).First(&rec).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return new(uint256.Int), nil
	}
	if err != nil {
		return nil, err
	}
	return amount(rec.Amount)
}

func (s *TokenStore) SetBalance(ctx context.Context, token, holder common.Address, v *uint256.Int) error {
	rec := balanceRecord{Token: hexOf(token), Holder: hexOf(holder), Amount: dec(v)}
	return s.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "token"}, {Name: "holder"}},
		DoUpdates: clause.AssignmentColumns([]string{"amount"}),
	}).Create(&rec).Error
}

func (s *TokenStore) Allowance(ctx context.Context, token, owner, spender common.Address) (*uint256.Int, error) {
	var rec allowanceRecord
	err := s.read(ctx).
		Where("token = ? AND owner = ? AND spender = ?", hexOf(token), hexOf(owner), hexOf(spender)).
		First(&rec).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return new(uint256.Int), nil
	}
	if err != nil {
		return nil, err
	}
	return amount(rec.Amount)
}

func (s *TokenStore) SetAllowance(ctx context.Context, token, owner, spender common.Address, v *uint256.Int) error {
	rec := allowanceRecord{Token: hexOf(token), Owner: hexOf(owner), Spender: hexOf(spender), Amount: dec(v)}
	return s.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "token"}, {Name: "owner"}, {Name: "spender"}},
		DoUpdates: clause.AssignmentColumns([]string{"amount"}),
	}).Create(&rec).Error
}
