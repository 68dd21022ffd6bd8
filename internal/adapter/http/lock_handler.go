package http

import (
	"net/http"
	"strconv"

	lockDomain "collections-backend/internal/domain/lock"
	"collections-backend/internal/logger"
	lockuc "collections-backend/internal/usecase/lock"

	"github.com/labstack/echo/v4"
	"go.uber.org/zap"
)

// LockHandler exposes the operator surface of the lock manager.
type LockHandler struct {
	m   *lockuc.Manager
	log *zap.Logger
}

func NewLockHandler(m *lockuc.Manager, log *zap.Logger) *LockHandler {
	return &LockHandler{m: m, log: logger.OrNop(log)}
}

func (h *LockHandler) key(c echo.Context) (lockDomain.Key, error) {
	t, err := lockDomain.ParseResourceType(c.Param("type"))
	if err != nil {
		return lockDomain.Key{}, err
	}
	id, ok := uintParam(c, "id")
	if !ok {
		return lockDomain.Key{}, lockDomain.Key{Type: t}.Validate()
	}
	return lockDomain.Key{Type: t, ID: id}, nil
}

func (h *LockHandler) Status(c echo.Context) error {
	key, err := h.key(c)
	if err != nil {
		return respondError(c, h.log, err)
	}
	st, err := h.m.Status(c.Request().Context(), key)
	if err != nil {
		return respondError(c, h.log, err)
	}
	return c.JSON(http.StatusOK, st)
}

func (h *LockHandler) History(c echo.Context) error {
	key, err := h.key(c)
	if err != nil {
		return respondError(c, h.log, err)
	}
	limit := 0
	if raw := c.QueryParam("limit"); raw != "" {
		if limit, err = strconv.Atoi(raw); err != nil || limit < 0 || limit > 500 {
			return badRequest(c, "limit must be between 0 and 500")
		}
	}
	entries, err := h.m.History(c.Request().Context(), key, limit)
	if err != nil {
		return respondError(c, h.log, err)
	}
	return c.JSON(http.StatusOK, map[string]any{"resource": key.String(), "entries": entries})
}

func (h *LockHandler) ReleaseAll(c echo.Context) error {
	key, err := h.key(c)
	if err != nil {
		return respondError(c, h.log, err)
	}
	n, err := h.m.ReleaseAllForResource(c.Request().Context(), key)
	if err != nil {
		return respondError(c, h.log, err)
	}
	h.log.Warn("locks force-released", zap.Stringer("resource", key), zap.Int64("count", n))
	return c.JSON(http.StatusOK, map[string]any{"resource": key.String(), "released": n})
}

func (h *LockHandler) Release(c echo.Context) error {
	lockID, ok := uintParam(c, "lock_id")
	if !ok {
		return badRequest(c, "invalid lock id")
	}
	holder, err := holderFrom(c)
	if err != nil {
		return badRequest(c, err.Error())
	}
	released, err := h.m.Release(c.Request().Context(), lockID, holder)
	if err != nil {
		return respondError(c, h.log, err)
	}
	return c.JSON(http.StatusOK, map[string]any{"lock_id": lockID, "released": released})
}

func (h *LockHandler) Sweep(c echo.Context) error {
	n, err := h.m.SweepExpired(c.Request().Context())
	if err != nil {
		return respondError(c, h.log, err)
	}
	return c.JSON(http.StatusOK, map[string]any{"reclaimed": n})
}
