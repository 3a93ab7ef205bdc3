package http

import (
	"net/http"

	"github.com/labstack/echo/v4"

	proxyuc "auctionlend/internal/usecase/proxy"
)

type ProxyHandler struct{ uc *proxyuc.Usecase }

func NewProxyHandler(uc *proxyuc.Usecase) *ProxyHandler { return &ProxyHandler{uc: uc} }

type deployProxyReq struct {
	DepositRequired bool `json:"deposit_required"`
}

func (h *ProxyHandler) Deploy(c echo.Context) error {
	caller, ok := callerOf(c)
	if !ok {
		return missingCaller(c)
	}
	var req deployProxyReq
	if ok, err := bindValid(c, &req); !ok {
		return err
	}
	dto, err := h.uc.Deploy(c.Request().Context(), caller, req.DepositRequired)
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusCreated, dto)
}

func (h *ProxyHandler) Get(c echo.Context) error {
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

type transferReq struct {
	Loan   string `json:"loan" validate:"required,address"`
	Amount string `json:"amount" validate:"required,amount"`
}

// Fund pulls amount from the caller into the loan as a bid.
func (h *ProxyHandler) Fund(c echo.Context) error {
	addr, ok := pathAddress(c, "address")
	if !ok {
		return badPath(c, "address")
	}
	caller, ok := callerOf(c)
	if !ok {
		return missingCaller(c)
	}
	var req transferReq
	if ok, err := bindValid(c, &req); !ok {
		return err
	}
	dto, err := h.uc.Fund(c.Request().Context(), addr, caller, toAddress(req.Loan), toAmount(req.Amount))
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusOK, dto)
}

// Repay pulls amount from the caller into the loan as a repayment.
func (h *ProxyHandler) Repay(c echo.Context) error {
	addr, ok := pathAddress(c, "address")
	if !ok {
		return badPath(c, "address")
	}
	caller, ok := callerOf(c)
	if !ok {
		return missingCaller(c)
	}
	var req transferReq
	if ok, err := bindValid(c, &req); !ok {
		return err
	}
	dto, err := h.uc.Repay(c.Request().Context(), addr, caller, toAddress(req.Loan), toAmount(req.Amount))
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusOK, dto)
}

type setAdministratorReq struct {
	Administrator string `json:"administrator" validate:"required,address"`
}

func (h *ProxyHandler) SetAdministrator(c echo.Context) error {
	addr, ok := pathAddress(c, "address")
	if !ok {
		return badPath(c, "address")
	}
	caller, ok := callerOf(c)
	if !ok {
		return missingCaller(c)
	}
	var req setAdministratorReq
	if ok, err := bindValid(c, &req); !ok {
		return err
	}
	dto, err := h.uc.SetAdministrator(c.Request().Context(), addr, caller, toAddress(req.Administrator))
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusOK, dto)
}

type depositRequirementReq struct {
	Required *bool `json:"required" validate:"required"`
}

func (h *ProxyHandler) SetDepositRequirement(c echo.Context) error {
	addr, ok := pathAddress(c, "address")
	if !ok {
		return badPath(c, "address")
	}
	caller, ok := callerOf(c)
	if !ok {
		return missingCaller(c)
	}
	var req depositRequirementReq
	if ok, err := bindValid(c, &req); !ok {
		return err
	}
	dto, err := h.uc.SetDepositRequirement(c.Request().Context(), addr, caller, *req.Required)
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusOK, dto)
}
