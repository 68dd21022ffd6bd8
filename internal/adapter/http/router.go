package http

import (
	"net/http"

	"github.com/labstack/echo/v4"
)

type Routes struct {
	Health   *Handler
	Loans    *LoanHandler
	Payments *PaymentHandler
	Locks    *LockHandler
	// served at /metrics when set
	Metrics http.Handler
	// wraps the money-moving POSTs when set
	Idempotency echo.MiddlewareFunc
}

func RegisterRoutes(e *echo.Echo, r Routes) {
	var money []echo.MiddlewareFunc
	if r.Idempotency != nil {
		money = append(money, r.Idempotency)
	}

	e.GET("/health", r.Health.Health)
	if r.Metrics != nil {
		e.GET("/metrics", echo.WrapHandler(r.Metrics))
	}

	loans := e.Group("/loans")
	loans.POST("", r.Loans.CreateLoan, money...)
	loans.GET("/:id", r.Loans.GetLoan)
	loans.POST("/:id/mora", r.Loans.ApplyMora, money...)
	loans.POST("/:id/refinance", r.Loans.Refinance, money...)
	loans.POST("/:id/restructure", r.Loans.Restructure, money...)
	loans.POST("/:id/write-off", r.Loans.WriteOff, money...)
	loans.POST("/:id/payments", r.Payments.RegisterPayment, money...)
	loans.GET("/:id/payments", r.Payments.ListLoanPayments)
	e.GET("/payments/:reference", r.Payments.GetPayment)

	locks := e.Group("/locks")
	locks.GET("/:type/:id", r.Locks.Status)
	locks.GET("/:type/:id/history", r.Locks.History)
	locks.DELETE("/:type/:id", r.Locks.ReleaseAll)
	locks.DELETE("/entries/:lock_id", r.Locks.Release)
	locks.POST("/sweep", r.Locks.Sweep)
}
