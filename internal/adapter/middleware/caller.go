package middleware

import (
	"net/http"
	"strings"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/labstack/echo/v4"
)

const (
	HeaderCaller    = "Ax-Caller"
	HeaderSignature = "Ax-Signature"
	HeaderRequestID = "Ax-Request-Id"

	callerKey = "ax.caller"
)

// CallerFrom returns the address resolved by CallerMiddleware.
func CallerFrom(c echo.Context) (common.Address, bool) {
	addr, ok := c.Get(callerKey).(common.Address)
	return addr, ok
}

// SigningHash is the digest a client signs for a mutating request:
// keccak256(method|path|requestID|hex(sha256(body))).
func SigningHash(method, path, requestID string, body []byte) []byte {
	msg := strings.ToUpper(method) + "|" + path + "|" + requestID + "|" + bodyHash(body)
	return crypto.Keccak256([]byte(msg))
}

// CallerMiddleware resolves Ax-Caller on mutating requests and stores it on
// the context. With verify set, Ax-Signature must be a 65-byte secp256k1
// signature over SigningHash that recovers to the same address.
func CallerMiddleware(verify bool) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			req := c.Request()
			if !mutating(req.Method) {
				return next(c)
			}
			caller, err := parseCaller(req.Header.Get(HeaderCaller))
			if err != nil {
				return c.JSON(http.StatusBadRequest, map[string]string{"error": err.Error()})
			}
			if verify {
				sig, err := hexutil.Decode(strings.TrimSpace(req.Header.Get(HeaderSignature)))
				if err != nil || len(sig) != crypto.SignatureLength {
					return c.JSON(http.StatusUnauthorized, map[string]string{"error": "invalid Ax-Signature"})
				}
				digest := SigningHash(req.Method, req.URL.Path, strings.TrimSpace(req.Header.Get(HeaderRequestID)), bufferBody(req))
				pub, err := crypto.SigToPub(digest, sig)
				if err != nil || crypto.PubkeyToAddress(*pub) != caller {
					return c.JSON(http.StatusUnauthorized, map[string]string{"error": "Ax-Signature does not match Ax-Caller"})
				}
			}
			c.Set(callerKey, caller)
			return next(c)
		}
	}
}
