package token_test

import (
	"context"
	"errors"
	"testing"

	"github.com/ethereum/go-ethereum/common"
	"github.com/holiman/uint256"
	"github.com/stretchr/testify/require"

	"auctionlend/internal/domain/token"
	"auctionlend/internal/testutil/tokenmock"
)

var (
	dai     = common.HexToAddress("0x0000000000000000000000000000000000000d41")
	holder  = common.HexToAddress("0x00000000000000000000000000000000000000a1")
	spender = common.HexToAddress("0x00000000000000000000000000000000000000f0")
	dest    = common.HexToAddress("0x00000000000000000000000000000000000000c0")
)

func TestLedger_TransferMovesBalance(t *testing.T) {
	ctx := context.Background()
	l := token.NewLedger(tokenmock.NewMemStore())
	require.NoError(t, l.Mint(ctx, dai, holder, uint256.NewInt(100)))

	require.NoError(t, l.Transfer(ctx, dai, holder, dest, uint256.NewInt(40)))

	got, _ := l.BalanceOf(ctx, dai, holder)
	require.Equal(t, "60", got.Dec())
	got, _ = l.BalanceOf(ctx, dai, dest)
	require.Equal(t, "40", got.Dec())

	err := l.Transfer(ctx, dai, holder, dest, uint256.NewInt(61))
	require.ErrorIs(t, err, token.ErrInsufficientBalance)
	require.ErrorIs(t, l.Transfer(ctx, dai, holder, common.Address{}, uint256.NewInt(1)), token.ErrZeroAddress)
}

func TestLedger_TransferFromSpendsAllowance(t *testing.T) {
	ctx := context.Background()
	l := token.NewLedger(tokenmock.NewMemStore())
	require.NoError(t, l.Mint(ctx, dai, holder, uint256.NewInt(100)))

	err := l.TransferFrom(ctx, dai, spender, holder, dest, uint256.NewInt(10))
	require.ErrorIs(t, err, token.ErrInsufficientAllowance)

	require.NoError(t, l.Approve(ctx, dai, holder, spender, uint256.NewInt(150)))
	require.NoError(t, l.TransferFrom(ctx, dai, spender, holder, dest, uint256.NewInt(100)))

	left, _ := l.Allowance(ctx, dai, holder, spender)
	require.Equal(t, "50", left.Dec())

	err = l.TransferFrom(ctx, dai, spender, holder, dest, uint256.NewInt(1))
	require.ErrorIs(t, err, token.ErrInsufficientBalance)
	left, _ = l.Allowance(ctx, dai, holder, spender)
	require.Equal(t, "50", left.Dec(), "allowance untouched on failure")
}

func TestLedger_StoreErrorsPropagate(t *testing.T) {
	store := tokenmock.NewMemStore()
	store.BalanceErr = errors.New("db down")
	l := token.NewLedger(store)

	err := l.Transfer(context.Background(), dai, holder, dest, uint256.NewInt(1))
	require.EqualError(t, err, "db down")
}
