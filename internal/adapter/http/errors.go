package http

import (
	"errors"
	"net/http"
	"strings"

	"github.com/ethereum/go-ethereum/common"
	"github.com/labstack/echo/v4"
	"gorm.io/gorm"

	"auctionlend/internal/adapter/middleware"
	"auctionlend/internal/domain/factory"
	"auctionlend/internal/domain/gateway"
	"auctionlend/internal/domain/loan"
	"auctionlend/internal/domain/proxy"
	"auctionlend/internal/domain/revert"
)

var notFound = []error{
	loan.ErrNotFound,
	loan.ErrTemplateNotFound,
	factory.ErrNotFound,
	proxy.ErrNotFound,
	gateway.ErrNotFound,
	gorm.ErrRecordNotFound,
}

// StatusOf maps a usecase error to an HTTP status.
func StatusOf(err error) int {
	for _, nf := range notFound {
		if errors.Is(err, nf) {
			return http.StatusNotFound
		}
	}
	switch revert.KindOf(err) {
	case revert.KindUnauthorized, revert.KindIdentity:
		return http.StatusForbidden
	case revert.KindState, revert.KindDoubleAction:
		return http.StatusConflict
	case revert.KindBounds:
		return http.StatusUnprocessableEntity
	}
	return http.StatusInternalServerError
}

func writeError(c echo.Context, err error) error {
	code := StatusOf(err)
	if code == http.StatusInternalServerError {
		c.Logger().Error(err)
		return c.JSON(code, ErrorResponse{Error: "internal error"})
	}
	resp := ErrorResponse{Error: err.Error()}
	if k := revert.KindOf(err); k != 0 {
		resp.Kind = k.String()
	}
	return c.JSON(code, resp)
}

// bindValid binds the body into req and validates it; on failure the 400 has
// already been written and ok is false.
func bindValid(c echo.Context, req any) (bool, error) {
	if err := c.Bind(req); err != nil {
		return false, c.JSON(http.StatusBadRequest, ErrorResponse{Error: "invalid body"})
	}
	if err := c.Validate(req); err != nil {
		return false, c.JSON(http.StatusBadRequest, ErrorResponse{Error: "validation failed", Details: ToFieldErrors(err)})
	}
	return true, nil
}

func callerOf(c echo.Context) (common.Address, bool) {
	return middleware.CallerFrom(c)
}

func missingCaller(c echo.Context) error {
	return c.JSON(http.StatusBadRequest, ErrorResponse{Error: "missing " + middleware.HeaderCaller})
}

// pathAddress parses the named path parameter as an address.
func pathAddress(c echo.Context, name string) (common.Address, bool) {
	raw := strings.TrimSpace(c.Param(name))
	if !common.IsHexAddress(raw) {
		return common.Address{}, false
	}
	return common.HexToAddress(raw), true
}

func badPath(c echo.Context, name string) error {
	return c.JSON(http.StatusBadRequest, ErrorResponse{
		Error:   "invalid path",
		Details: []FieldError{{Field: name, Message: "must be a 20-byte hex address"}},
	})
}
