package http

import (
	"net/http"
	"time"

	"github.com/labstack/echo/v4"

	factoryuc "auctionlend/internal/usecase/factory"
)

type FactoryHandler struct{ uc *factoryuc.Usecase }

func NewFactoryHandler(uc *factoryuc.Usecase) *FactoryHandler { return &FactoryHandler{uc: uc} }

type createLoanReq struct {
	Token             string `json:"token" validate:"required,address"`
	MinAmount         string `json:"min_amount" validate:"required,amount"`
	MaxAmount         string `json:"max_amount" validate:"required,amount"`
	MaxInterestRate   uint64 `json:"max_interest_rate"`
	TermLengthSecs    int64  `json:"term_length_secs" validate:"gte=0"`
	AuctionLengthSecs int64  `json:"auction_length_secs" validate:"gte=0"`
	Instalments       uint64 `json:"instalments"`
	Clone             bool   `json:"clone"`
}

// CreateLoan deploys a loan for the caller, as a full deployment or as a
// clone of the factory template.
func (h *FactoryHandler) CreateLoan(c echo.Context) error {
	caller, ok := callerOf(c)
	if !ok {
		return missingCaller(c)
	}
	var req createLoanReq
	if ok, err := bindValid(c, &req); !ok {
		return err
	}
	in := factoryuc.CreateLoanInput{
		Token:           toAddress(req.Token),
		MinAmount:       toAmount(req.MinAmount),
		MaxAmount:       toAmount(req.MaxAmount),
		MaxInterestRate: req.MaxInterestRate,
		TermLength:      time.Duration(req.TermLengthSecs) * time.Second,
		AuctionLength:   time.Duration(req.AuctionLengthSecs) * time.Second,
		Instalments:     req.Instalments,
	}
	create := h.uc.Deploy
	if req.Clone {
		create = h.uc.Clone
	}
	dto, err := create(c.Request().Context(), caller, in)
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusCreated, dto)
}

func (h *FactoryHandler) Get(c echo.Context) error {
	dto, err := h.uc.Get(c.Request().Context())
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusOK, dto)
}

func (h *FactoryHandler) IsLoan(c echo.Context) error {
	addr, ok := pathAddress(c, "address")
	if !ok {
		return badPath(c, "address")
	}
	is, err := h.uc.IsLoan(c.Request().Context(), addr)
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusOK, map[string]any{"address": addr.Hex(), "is_loan": is})
}

type factorySettingsReq struct {
	MinAmount            *string `json:"min_amount" validate:"omitempty,amount"`
	MaxAmount            *string `json:"max_amount" validate:"omitempty,amount"`
	MinInterestRate      *uint64 `json:"min_interest_rate"`
	MaxInterestRate      *uint64 `json:"max_interest_rate"`
	MinTermLengthSecs    *int64  `json:"min_term_length_secs"`
	MinAuctionLengthSecs *int64  `json:"min_auction_length_secs"`
	Administrator        *string `json:"administrator" validate:"omitempty,address"`
	Proxy                *string `json:"proxy" validate:"omitempty,address"`
}

func (r factorySettingsReq) settings() factoryuc.Settings {
	s := factoryuc.Settings{MinInterestRate: r.MinInterestRate, MaxInterestRate: r.MaxInterestRate}
	if r.MinAmount != nil {
		s.MinAmount = toAmount(*r.MinAmount)
	}
	if r.MaxAmount != nil {
		s.MaxAmount = toAmount(*r.MaxAmount)
	}
	if r.MinTermLengthSecs != nil {
		d := time.Duration(*r.MinTermLengthSecs) * time.Second
		s.MinTermLength = &d
	}
	if r.MinAuctionLengthSecs != nil {
		d := time.Duration(*r.MinAuctionLengthSecs) * time.Second
		s.MinAuctionLength = &d
	}
	if r.Administrator != nil {
		a := toAddress(*r.Administrator)
		s.Administrator = &a
	}
	if r.Proxy != nil {
		p := toAddress(*r.Proxy)
		s.Proxy = &p
	}
	return s
}

// Update applies a partial settings change; it is all-or-nothing.
func (h *FactoryHandler) Update(c echo.Context) error {
	caller, ok := callerOf(c)
	if !ok {
		return missingCaller(c)
	}
	var req factorySettingsReq
	if ok, err := bindValid(c, &req); !ok {
		return err
	}
	dto, err := h.uc.Update(c.Request().Context(), caller, req.settings())
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusOK, dto)
}
