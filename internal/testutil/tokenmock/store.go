package tokenmock

import (
	"context"
	"sync"

	"github.com/ethereum/go-ethereum/common"
	"github.com/holiman/uint256"
)

type balanceKey struct{ token, holder common.Address }
type allowanceKey struct{ token, owner, spender common.Address }

// MemStore is an in-memory token.Store.
type MemStore struct {
	mu         sync.Mutex
	balances   map[balanceKey]*uint256.Int
	allowances map[allowanceKey]*uint256.Int

	// BalanceErr, when set, is returned by every Balance call.
	BalanceErr error
}

func NewMemStore() *MemStore {
	return &MemStore{
		balances:   map[balanceKey]*uint256.Int{},
		allowances: map[allowanceKey]*uint256.Int{},
	}
}

func (m *MemStore) Balance(_ context.Context, token, holder common.Address) (*uint256.Int, error) {
	if m.BalanceErr != nil {
		return nil, m.BalanceErr
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if v, ok := m.balances[balanceKey{token, holder}]; ok {
		return v.Clone(), nil
	}
	return new(uint256.Int), nil
}

func (m *MemStore) SetBalance(_ context.Context, token, holder common.Address, amount *uint256.Int) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.balances[balanceKey{token, holder}] = amount.Clone()
	return nil
}

func (m *MemStore) Allowance(_ context.Context, token, owner, spender common.Address) (*uint256.Int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if v, ok := m.allowances[allowanceKey{token, owner, spender}]; ok {
		return v.Clone(), nil
	}
	return new(uint256.Int), nil
}

func (m *MemStore) SetAllowance(_ context.Context, token, owner, spender common.Address, amount *uint256.Int) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.allowances[allowanceKey{token, owner, spender}] = amount.Clone()
	return nil
}
