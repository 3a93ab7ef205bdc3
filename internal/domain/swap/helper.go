package swap

import (
	"context"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/holiman/uint256"

	"auctionlend/internal/domain/revert"
	"auctionlend/internal/domain/token"
)

var (
	ErrUsed            = revert.DoubleAction("helper already used")
	ErrNothingToSwap   = revert.Bounds("nothing to swap")
	ErrInsufficientOut = revert.Bounds("insufficient output amount")
	ErrNoRoute         = revert.Bounds("no exchange route")
	ErrResidualBalance = revert.State("helper retained a balance")
)

// Exchange quotes and settles swaps against a reserve account.
type Exchange interface {
	Quote(ctx context.Context, in, out common.Address, amountIn *uint256.Int) (*uint256.Int, error)
	Reserve() common.Address
}

// Depositor credits collateral held by from to the beneficiary.
type Depositor interface {
	DepositFor(ctx context.Context, from, beneficiary common.Address, token common.Address, amount *uint256.Int) error
}

// Params describe one swap-and-redeposit.
type Params struct {
	InputToken   common.Address
	OutputToken  common.Address
	MinAmountOut *uint256.Int
	Beneficiary  common.Address
}

// Helper is deployed for a single withdrawal and is useless afterwards.
type Helper struct {
	Address common.Address
	params  Params
	ledger  *token.Ledger
	ex      Exchange
	dep     Depositor
	used    bool
}

// NewHelper derives the helper address from its deployer and a one-off salt.
func NewHelper(deployer common.Address, salt common.Hash, p Params, l *token.Ledger, ex Exchange, dep Depositor) *Helper {
	addr := crypto.CreateAddress2(deployer, salt, crypto.Keccak256(p.InputToken.Bytes(), p.OutputToken.Bytes()))
	return &Helper{Address: addr, params: p, ledger: l, ex: ex, dep: dep}
}

// Run swaps everything the helper holds in the input token and deposits the
// proceeds for the beneficiary. It returns the deposited amount.
func (h *Helper) Run(ctx context.Context) (*uint256.Int, error) {
	if h.used {
		return nil, ErrUsed
	}
	h.used = true

	in, err := h.ledger.BalanceOf(ctx, h.params.InputToken, h.Address)
	if err != nil {
		return nil, err
	}
	if in.IsZero() {
		return nil, ErrNothingToSwap
	}

	out := in.Clone()
	if h.params.InputToken != h.params.OutputToken {
		if out, err = h.ex.Quote(ctx, h.params.InputToken, h.params.OutputToken, in); err != nil {
			return nil, err
		}
	}
	if h.params.MinAmountOut != nil && out.Lt(h.params.MinAmountOut) {
		return nil, ErrInsufficientOut
	}

	if h.params.InputToken != h.params.OutputToken {
		reserve := h.ex.Reserve()
		if err := h.ledger.Transfer(ctx, h.params.InputToken, h.Address, reserve, in); err != nil {
			return nil, err
		}
		if err := h.ledger.Transfer(ctx, h.params.OutputToken, reserve, h.Address, out); err != nil {
			return nil, err
		}
	}
	if err := h.dep.DepositFor(ctx, h.Address, h.params.Beneficiary, h.params.OutputToken, out); err != nil {
		return nil, err
	}

	for _, tok := range []common.Address{h.params.InputToken, h.params.OutputToken} {
		left, err := h.ledger.BalanceOf(ctx, tok, h.Address)
		if err != nil {
			return nil, err
		}
		if !left.IsZero() {
			return nil, ErrResidualBalance
		}
	}
	return out, nil
}
