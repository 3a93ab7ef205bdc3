package http

import (
	"net/http"

	"github.com/labstack/echo/v4"

	gatewayuc "auctionlend/internal/usecase/gateway"
)

type GatewayHandler struct{ uc *gatewayuc.Usecase }

func NewGatewayHandler(uc *gatewayuc.Usecase) *GatewayHandler { return &GatewayHandler{uc: uc} }

func (h *GatewayHandler) Status(c echo.Context) error {
	addr, ok := pathAddress(c, "address")
	if !ok {
		return badPath(c, "address")
	}
	dto, err := h.uc.Status(c.Request().Context(), addr)
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusOK, dto)
}

type setVerifiedReq struct {
	Verified *bool `json:"verified" validate:"required"`
}

func (h *GatewayHandler) SetVerified(c echo.Context) error {
	addr, ok := pathAddress(c, "address")
	if !ok {
		return badPath(c, "address")
	}
	caller, ok := callerOf(c)
	if !ok {
		return missingCaller(c)
	}
	var req setVerifiedReq
	if ok, err := bindValid(c, &req); !ok {
		return err
	}
	if err := h.uc.SetVerified(c.Request().Context(), caller, addr, *req.Verified); err != nil {
		return writeError(c, err)
	}
	return h.Status(c)
}

type depositReq struct {
	Amount string `json:"amount" validate:"required,amount"`
}

// Deposit moves the caller's collateral into the gateway.
func (h *GatewayHandler) Deposit(c echo.Context) error {
	caller, ok := callerOf(c)
	if !ok {
		return missingCaller(c)
	}
	var req depositReq
	if ok, err := bindValid(c, &req); !ok {
		return err
	}
	if err := h.uc.Deposit(c.Request().Context(), caller, toAmount(req.Amount)); err != nil {
		return writeError(c, err)
	}
	dto, err := h.uc.Status(c.Request().Context(), caller)
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusCreated, dto)
}
