package http

import (
	"context"
	"net/http"

	"github.com/ethereum/go-ethereum/common"
	"github.com/holiman/uint256"
	"github.com/labstack/echo/v4"

	tokenuc "auctionlend/internal/usecase/token"
)

type TokenHandler struct{ uc *tokenuc.Usecase }

func NewTokenHandler(uc *tokenuc.Usecase) *TokenHandler { return &TokenHandler{uc: uc} }

func (h *TokenHandler) Balance(c echo.Context) error {
	tok, ok := pathAddress(c, "token")
	if !ok {
		return badPath(c, "token")
	}
	holder, ok := pathAddress(c, "holder")
	if !ok {
		return badPath(c, "holder")
	}
	bal, err := h.uc.BalanceOf(c.Request().Context(), tok, holder)
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusOK, map[string]string{"token": tok.Hex(), "holder": holder.Hex(), "balance": bal.Dec()})
}

func (h *TokenHandler) Allowance(c echo.Context) error {
	tok, ok := pathAddress(c, "token")
	if !ok {
		return badPath(c, "token")
	}
	owner, ok := pathAddress(c, "owner")
	if !ok {
		return badPath(c, "owner")
	}
	spender, ok := pathAddress(c, "spender")
	if !ok {
		return badPath(c, "spender")
	}
	amt, err := h.uc.Allowance(c.Request().Context(), tok, owner, spender)
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusOK, map[string]string{
		"token":     tok.Hex(),
		"owner":     owner.Hex(),
		"spender":   spender.Hex(),
		"allowance": amt.Dec(),
	})
}

type approveReq struct {
	Spender string `json:"spender" validate:"required,address"`
	Amount  string `json:"amount" validate:"required,amount"`
}

func (h *TokenHandler) Approve(c echo.Context) error {
	tok, ok := pathAddress(c, "token")
	if !ok {
		return badPath(c, "token")
	}
	caller, ok := callerOf(c)
	if !ok {
		return missingCaller(c)
	}
	var req approveReq
	if ok, err := bindValid(c, &req); !ok {
		return err
	}
	if err := h.uc.Approve(c.Request().Context(), tok, caller, toAddress(req.Spender), toAmount(req.Amount)); err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusOK, map[string]string{"token": tok.Hex(), "spender": toAddress(req.Spender).Hex(), "allowance": toAmount(req.Amount).Dec()})
}

type moveReq struct {
	To     string `json:"to" validate:"required,address"`
	Amount string `json:"amount" validate:"required,amount"`
}

func (h *TokenHandler) Transfer(c echo.Context) error { return h.move(c, h.uc.Transfer) }

// Mint is restricted to the token administrator.
func (h *TokenHandler) Mint(c echo.Context) error { return h.move(c, h.uc.Mint) }

func (h *TokenHandler) move(c echo.Context, fn func(ctx context.Context, tok, caller, to common.Address, amount *uint256.Int) error) error {
	tok, ok := pathAddress(c, "token")
	if !ok {
		return badPath(c, "token")
	}
	caller, ok := callerOf(c)
	if !ok {
		return missingCaller(c)
	}
	var req moveReq
	if ok, err := bindValid(c, &req); !ok {
		return err
	}
	to := toAddress(req.To)
	if err := fn(c.Request().Context(), tok, caller, to, toAmount(req.Amount)); err != nil {
		return writeError(c, err)
	}
	bal, err := h.uc.BalanceOf(c.Request().Context(), tok, to)
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusOK, map[string]string{"token": tok.Hex(), "holder": to.Hex(), "balance": bal.Dec()})
}
