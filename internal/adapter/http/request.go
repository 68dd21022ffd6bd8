package http

import (
	"errors"
	"strconv"
	"strings"

	"github.com/labstack/echo/v4"
)

const HeaderUserID = "Ax-User-Id"

var errBadUserID = errors.New("invalid Ax-User-Id: must be a positive integer")

// holderFrom returns the acting user from Ax-User-Id; nil when the header is absent.
func holderFrom(c echo.Context) (*uint64, error) {
	raw := strings.TrimSpace(c.Request().Header.Get(HeaderUserID))
	if raw == "" {
		return nil, nil
	}
	n, err := strconv.ParseUint(raw, 10, 64)
	if err != nil || n == 0 {
		return nil, errBadUserID
	}
	return &n, nil
}

func uintParam(c echo.Context, name string) (uint64, bool) {
	n, err := strconv.ParseUint(c.Param(name), 10, 64)
	return n, err == nil && n > 0
}
