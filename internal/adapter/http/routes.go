package http

import (
	"github.com/labstack/echo/v4"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

type Handlers struct {
	Health  *Handler
	Factory *FactoryHandler
	Proxies *ProxyHandler
	Loans   *LoanHandler
	Gateway *GatewayHandler
	Tokens  *TokenHandler
}

// Register mounts every route on e. Caller resolution and idempotency are
// expected on e (or passed as mw) so they cover the mutating routes.
func Register(e *echo.Echo, h Handlers, mw ...echo.MiddlewareFunc) {
	e.GET("/health", h.Health.Health)
	e.GET("/metrics", echo.WrapHandler(promhttp.Handler()))

	api := e.Group("", mw...)

	f := h.Factory
	api.GET("/factory", f.Get)
	api.PATCH("/factory", f.Update)
	api.POST("/factory/loans", f.CreateLoan)
	api.GET("/factory/loans/:address", f.IsLoan)

	p := h.Proxies
	api.POST("/proxies", p.Deploy)
	api.GET("/proxies/:address", p.Get)
	api.POST("/proxies/:address/fund", p.Fund)
	api.POST("/proxies/:address/repay", p.Repay)
	api.PUT("/proxies/:address/administrator", p.SetAdministrator)
	api.PUT("/proxies/:address/deposit-requirement", p.SetDepositRequirement)

	l := h.Loans
	api.GET("/loans/:address", l.GetLoan)
	api.GET("/loans/:address/lenders/:lender", l.GetLender)
	api.GET("/loans/:address/events", l.Events)
	api.GET("/borrowers/:address/loans", l.ListByBorrower)
	api.POST("/loans/:address/state", l.UpdateState)
	api.POST("/loans/:address/unlock", l.Unlock)
	api.PUT("/loans/:address/proxy", l.SetProxy)
	api.POST("/loans/:address/withdrawals/loan", l.Withdraw(l.uc.WithdrawLoan))
	api.POST("/loans/:address/withdrawals/refund", l.Withdraw(l.uc.WithdrawRefund))
	api.POST("/loans/:address/withdrawals/repayment", l.Withdraw(l.uc.WithdrawRepayment))
	api.POST("/loans/:address/withdrawals/repayment-deposit", l.WithdrawRepaymentAndDeposit)
	api.POST("/loans/:address/withdrawals/unlocked", l.Withdraw(l.uc.WithdrawFundsUnlocked))
	api.POST("/loans/:address/withdrawals/fees", l.Withdraw(l.uc.WithdrawFees))

	g := h.Gateway
	api.GET("/gateway/:address", g.Status)
	api.PUT("/gateway/:address/verified", g.SetVerified)
	api.POST("/gateway/deposits", g.Deposit)

	t := h.Tokens
	api.GET("/tokens/:token/balances/:holder", t.Balance)
	api.GET("/tokens/:token/allowances/:owner/:spender", t.Allowance)
	api.POST("/tokens/:token/approvals", t.Approve)
	api.POST("/tokens/:token/transfers", t.Transfer)
	api.POST("/tokens/:token/mints", t.Mint)
}
