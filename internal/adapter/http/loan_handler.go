package http

import (
	"context"
	"net/http"
	"strconv"

	"github.com/ethereum/go-ethereum/common"
	"github.com/holiman/uint256"
	"github.com/labstack/echo/v4"

	"auctionlend/internal/usecase/loan"
)

const (
	defaultEventLimit = 50
	maxEventLimit     = 500
)

type LoanHandler struct{ uc *loan.Usecase }

func NewLoanHandler(uc *loan.Usecase) *LoanHandler { return &LoanHandler{uc: uc} }

func (h *LoanHandler) GetLoan(c echo.Context) error {
	addr, ok := pathAddress(c, "address")
	if !ok {
		return badPath(c, "address")
	}
	dto, err := h.uc.Get(c.Request().Context(), addr)
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusOK, dto)
}

func (h *LoanHandler) GetLender(c echo.Context) error {
	addr, ok := pathAddress(c, "address")
	if !ok {
		return badPath(c, "address")
	}
	lender, ok := pathAddress(c, "lender")
	if !ok {
		return badPath(c, "lender")
	}
	dto, err := h.uc.Lender(c.Request().Context(), addr, lender)
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusOK, dto)
}

func (h *LoanHandler) ListByBorrower(c echo.Context) error {
	borrower, ok := pathAddress(c, "address")
	if !ok {
		return badPath(c, "address")
	}
	dtos, err := h.uc.ListByBorrower(c.Request().Context(), borrower)
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusOK, dtos)
}

// Events lists the loan's recorded events, newest last. ?limit caps the count.
func (h *LoanHandler) Events(c echo.Context) error {
	addr, ok := pathAddress(c, "address")
	if !ok {
		return badPath(c, "address")
	}
	limit := defaultEventLimit
	if raw := c.QueryParam("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n <= 0 || n > maxEventLimit {
			return c.JSON(http.StatusBadRequest, ErrorResponse{
				Error:   "invalid query",
				Details: []FieldError{{Field: "limit", Message: "must be between 1 and " + strconv.Itoa(maxEventLimit)}},
			})
		}
		limit = n
	}
	evs, err := h.uc.Events(c.Request().Context(), addr, limit)
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusOK, evs)
}

// UpdateState applies any time-driven transitions and persists them.
func (h *LoanHandler) UpdateState(c echo.Context) error {
	addr, ok := pathAddress(c, "address")
	if !ok {
		return badPath(c, "address")
	}
	st, err := h.uc.UpdateStateMachine(c.Request().Context(), addr)
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusOK, map[string]string{"address": addr.Hex(), "state": st.String()})
}

type withdrawFn func(ctx context.Context, addr, caller common.Address) (*uint256.Int, error)

// Withdraw adapts one of the loan's withdrawal operations to a route.
func (h *LoanHandler) Withdraw(fn withdrawFn) echo.HandlerFunc {
	return func(c echo.Context) error {
		addr, ok := pathAddress(c, "address")
		if !ok {
			return badPath(c, "address")
		}
		caller, ok := callerOf(c)
		if !ok {
			return missingCaller(c)
		}
		amt, err := fn(c.Request().Context(), addr, caller)
		if err != nil {
			return writeError(c, err)
		}
		return c.JSON(http.StatusOK, map[string]string{"loan": addr.Hex(), "amount": amt.Dec()})
	}
}

type repaymentDepositReq struct {
	OutputToken string `json:"output_token" validate:"required,address"`
	MinOut      string `json:"min_out" validate:"required,amount"`
}

// WithdrawRepaymentAndDeposit swaps the caller's repayment share into
// output_token and deposits it with the gateway on the caller's behalf.
func (h *LoanHandler) WithdrawRepaymentAndDeposit(c echo.Context) error {
	addr, ok := pathAddress(c, "address")
	if !ok {
		return badPath(c, "address")
	}
	caller, ok := callerOf(c)
	if !ok {
		return missingCaller(c)
	}
	var req repaymentDepositReq
	if ok, err := bindValid(c, &req); !ok {
		return err
	}
	out, err := h.uc.WithdrawRepaymentAndDeposit(c.Request().Context(), addr, caller, toAddress(req.OutputToken), toAmount(req.MinOut))
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusOK, map[string]string{"loan": addr.Hex(), "deposited": out.Dec()})
}

func (h *LoanHandler) Unlock(c echo.Context) error {
	addr, ok := pathAddress(c, "address")
	if !ok {
		return badPath(c, "address")
	}
	caller, ok := callerOf(c)
	if !ok {
		return missingCaller(c)
	}
	if err := h.uc.Unlock(c.Request().Context(), addr, caller); err != nil {
		return writeError(c, err)
	}
	return h.GetLoan(c)
}

type setProxyReq struct {
	Proxy string `json:"proxy" validate:"required,address"`
}

func (h *LoanHandler) SetProxy(c echo.Context) error {
	addr, ok := pathAddress(c, "address")
	if !ok {
		return badPath(c, "address")
	}
	caller, ok := callerOf(c)
	if !ok {
		return missingCaller(c)
	}
	var req setProxyReq
	if ok, err := bindValid(c, &req); !ok {
		return err
	}
	if err := h.uc.SetProxy(c.Request().Context(), addr, caller, toAddress(req.Proxy)); err != nil {
		return writeError(c, err)
	}
	return h.GetLoan(c)
}
