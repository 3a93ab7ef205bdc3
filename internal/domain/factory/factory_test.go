package factory

import (
	"testing"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/holiman/uint256"
	"github.com/stretchr/testify/require"

	"auctionlend/internal/domain/loan"
	"auctionlend/internal/domain/revert"
)

var (
	admin = common.HexToAddress("0x00000000000000000000000000000000000000ad")
	dai   = common.HexToAddress("0x0000000000000000000000000000000000000d41")
)

func newFactory() *Factory {
	return &Factory{
		Address:       common.HexToAddress("0x00000000000000000000000000000000000000fa"),
		Administrator: admin,
		Proxy:         common.HexToAddress("0x00000000000000000000000000000000000000f0"),
		Template:      common.HexToAddress("0x00000000000000000000000000000000000000e1"),
		Rules:         loan.DefaultRuleset(),
		Bounds: Bounds{
			MinAmount:        uint256.NewInt(100),
			MaxAmount:        uint256.NewInt(10_000),
			MinInterestRate:  2,
			MaxInterestRate:  30,
			MinTermLength:    30 * 24 * time.Hour,
			MinAuctionLength: time.Hour,
		},
	}
}

func validRequest() Request {
	return Request{
		Token:           dai,
		MinAmount:       uint256.NewInt(200),
		MaxAmount:       uint256.NewInt(400),
		MaxInterestRate: 20,
		TermLength:      360 * 24 * time.Hour,
		AuctionLength:   24 * time.Hour,
		Instalments:     12,
	}
}

func TestValidate_AcceptsRequestInsideBounds(t *testing.T) {
	require.NoError(t, newFactory().Validate(validRequest()))
}

func TestValidate_Rejections(t *testing.T) {
	cases := []struct {
		name string
		edit func(f *Factory, r *Request)
		want error
	}{
		{"no administrator", func(f *Factory, _ *Request) { f.Administrator = common.Address{} }, ErrNoAdministrator},
		{"unset min bound", func(f *Factory, _ *Request) { f.Bounds.MinAmount = nil }, ErrNoAmountBounds},
		{"unset max bound", func(f *Factory, _ *Request) { f.Bounds.MaxAmount = nil }, ErrNoAmountBounds},
		{"zero token", func(_ *Factory, r *Request) { r.Token = common.Address{} }, ErrZeroToken},
		{"min above max", func(_ *Factory, r *Request) { r.MinAmount = uint256.NewInt(500) }, ErrAmountRange},
		{"zero min", func(_ *Factory, r *Request) { r.MinAmount = uint256.NewInt(0) }, ErrAmountRange},
		{"min below bound", func(_ *Factory, r *Request) { r.MinAmount = uint256.NewInt(50) }, ErrMinAmountTooLow},
		{"max above bound", func(_ *Factory, r *Request) { r.MaxAmount = uint256.NewInt(20_000) }, ErrMaxAmountTooHigh},
		{"rate above bound", func(_ *Factory, r *Request) { r.MaxInterestRate = 31 }, ErrInterestRateRange},
		{"rate below bound", func(_ *Factory, r *Request) { r.MaxInterestRate = 1 }, ErrInterestRateRange},
		{"short term", func(_ *Factory, r *Request) { r.TermLength = time.Hour }, ErrTermTooShort},
		{"short auction", func(_ *Factory, r *Request) { r.AuctionLength = time.Minute }, ErrAuctionTooShort},
		{"zero instalments", func(_ *Factory, r *Request) { r.Instalments = 0 }, ErrInvalidInstalments},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			f, r := newFactory(), validRequest()
			tc.edit(f, &r)
			err := f.Validate(r)
			require.ErrorIs(t, err, tc.want)
			require.NotZero(t, revert.KindOf(err))
		})
	}
}

func TestTerms_BindsFactoryMinimumRate(t *testing.T) {
	now := time.Date(2025, 3, 1, 0, 0, 0, 0, time.UTC)
	terms := newFactory().Terms(validRequest(), now)

	require.Equal(t, uint64(2), terms.MinInterestRate)
	require.Equal(t, uint64(20), terms.MaxInterestRate)
	require.Equal(t, now, terms.AuctionStart)
	require.Equal(t, uint64(12), terms.InstalmentCount)
}

func TestAddresses_AreDeterministicAndDistinct(t *testing.T) {
	f := newFactory()
	borrower := common.HexToAddress("0x00000000000000000000000000000000000000b0")

	require.Equal(t, f.DeployAddress(1), f.DeployAddress(1))
	require.NotEqual(t, f.DeployAddress(1), f.DeployAddress(2))
	require.Equal(t, f.CloneAddress(borrower, 1), f.CloneAddress(borrower, 1))
	require.NotEqual(t, f.CloneAddress(borrower, 1), f.CloneAddress(borrower, 2))
	require.NotEqual(t, f.DeployAddress(1), f.CloneAddress(borrower, 1))
}

func TestSetters_KeepBoundsOrdered(t *testing.T) {
	f := newFactory()
	other := common.HexToAddress("0x01")

	require.ErrorIs(t, f.SetMinAmount(other, uint256.NewInt(1)), ErrNotAdministrator)
	require.ErrorIs(t, f.SetMinAmount(admin, uint256.NewInt(20_000)), ErrBoundsOrder)
	require.ErrorIs(t, f.SetMaxAmount(admin, uint256.NewInt(10)), ErrBoundsOrder)
	require.NoError(t, f.SetMaxAmount(admin, uint256.NewInt(50_000)))
	require.NoError(t, f.SetMinAmount(admin, uint256.NewInt(20_000)))

	require.ErrorIs(t, f.SetMinInterestRate(admin, 31), ErrBoundsOrder)
	require.ErrorIs(t, f.SetMaxInterestRate(admin, 1), ErrBoundsOrder)
	require.ErrorIs(t, f.SetMaxInterestRate(admin, 101), ErrInterestRateTooLarge)
	require.NoError(t, f.SetMaxInterestRate(admin, 40))

	require.ErrorIs(t, f.SetMinTermLength(admin, 0), ErrNonPositiveLength)
	require.ErrorIs(t, f.SetMinAuctionLength(admin, -time.Second), ErrNonPositiveLength)
	require.NoError(t, f.SetMinAuctionLength(admin, 2*time.Hour))

	require.ErrorIs(t, f.SetProxy(admin, common.Address{}), ErrZeroAddress)
	require.NoError(t, f.SetAdministrator(admin, other))
	require.ErrorIs(t, f.SetProxy(admin, other), ErrNotAdministrator)
}
