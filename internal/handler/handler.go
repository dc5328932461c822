package handler

import (
	"net/http"

	"github.com/pkg/errors"

	"github.com/bookrent/rental-service/internal/errs"
	"github.com/bookrent/rental-service/internal/model"
	"github.com/bookrent/rental-service/internal/policy"
	"github.com/bookrent/rental-service/pkg/auth"
	"github.com/bookrent/rental-service/pkg/validate"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"go.uber.org/zap"
)

type Handler struct {
	rentalSvc RentalService
	authCfg   auth.Config
	log       *zap.Logger
}

func New(rentalSvc RentalService, authCfg auth.Config, log *zap.Logger) *Handler {
	return &Handler{
		rentalSvc: rentalSvc,
		authCfg:   authCfg,
		log:       log,
	}
}

func (h *Handler) NewRouter() *echo.Echo {
	e := echo.New()
	const (
		baseRPS = 10
		apiRPS  = 100
	)
	e.Use(middleware.RecoverWithConfig(middleware.RecoverConfig{
		StackSize: 4 << 10, // 4 KB
	}))
	e.Use(middleware.CORSWithConfig(middleware.CORSConfig{
		AllowOrigins:     []string{"*"},
		AllowMethods:     []string{http.MethodGet, http.MethodOptions, http.MethodHead, http.MethodPut, http.MethodPatch, http.MethodPost, http.MethodDelete},
		AllowCredentials: true,
	}))

	base := e.Group("", newRateLimiterMW(baseRPS))
	base.GET("/manage/health", h.Health)

	e.Validator = validate.NewCustomValidator()
	api := e.Group("/api/v1",
		middleware.RequestLoggerWithConfig(requestLoggerConfig(h.log)),
		middleware.RequestID(),
		newRateLimiterMW(apiRPS),
		auth.Middleware(h.authCfg),
	)

	api.POST("/rentals", h.CreateRental)
	api.GET("/rentals", h.GetRentals)
	api.POST("/rentals/:rentalUid/return", h.ReturnBook)
	api.POST("/wallet/deposit", h.Deposit)
	api.GET("/wallet/ledger", h.Ledger)

	return e
}

func (h *Handler) Health(c echo.Context) error {
	return c.String(http.StatusOK, "OK")
}

func (h *Handler) CreateRental(c echo.Context) error {
	caller, err := auth.GetUser(c)
	if err != nil {
		return err
	}
	if !policy.Allow(model.Role(caller.Role), policy.RentBook) {
		return echo.NewHTTPError(http.StatusForbidden, "role may not rent")
	}

	var req model.CreateRentalRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	req.RenterID = caller.ID
	if err := c.Validate(req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}

	ctx := c.Request().Context()
	rental, err := h.rentalSvc.CreateRental(ctx, req)
	if err != nil {
		return h.mapError(err)
	}
	return c.JSON(http.StatusOK, rental)
}

func (h *Handler) ReturnBook(c echo.Context) error {
	caller, err := auth.GetUser(c)
	if err != nil {
		return err
	}
	if !policy.Allow(model.Role(caller.Role), policy.ReturnBook) {
		return echo.NewHTTPError(http.StatusForbidden, "role may not return")
	}
	rentalUID := c.Param("rentalUid")
	if rentalUID == "" {
		return echo.NewHTTPError(http.StatusBadRequest, "rentalUid is empty")
	}

	ctx := c.Request().Context()
	resp, err := h.rentalSvc.ReturnBook(ctx, caller.ID, rentalUID)
	if err != nil {
		return h.mapError(err)
	}
	return c.JSON(http.StatusOK, resp)
}

func (h *Handler) GetRentals(c echo.Context) error {
	caller, err := auth.GetUser(c)
	if err != nil {
		return err
	}
	if !policy.Allow(model.Role(caller.Role), policy.ListRentals) {
		return echo.NewHTTPError(http.StatusForbidden, "role may not list rentals")
	}
	ctx := c.Request().Context()
	rentals, err := h.rentalSvc.GetRentals(ctx, caller.ID)
	if err != nil {
		return h.mapError(err)
	}
	return c.JSON(http.StatusOK, rentals)
}

func (h *Handler) Deposit(c echo.Context) error {
	caller, err := auth.GetUser(c)
	if err != nil {
		return err
	}
	if !policy.Allow(model.Role(caller.Role), policy.DepositWallet) {
		return echo.NewHTTPError(http.StatusForbidden, "role may not deposit")
	}
	var req model.DepositRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	if err := c.Validate(req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}

	ctx := c.Request().Context()
	resp, err := h.rentalSvc.Deposit(ctx, caller.ID, req.Amount)
	if err != nil {
		return h.mapError(err)
	}
	return c.JSON(http.StatusOK, resp)
}

func (h *Handler) Ledger(c echo.Context) error {
	caller, err := auth.GetUser(c)
	if err != nil {
		return err
	}
	if !policy.Allow(model.Role(caller.Role), policy.ViewLedger) {
		return echo.NewHTTPError(http.StatusForbidden, "role may not view ledger")
	}
	ctx := c.Request().Context()
	entries, err := h.rentalSvc.Ledger(ctx, caller.ID)
	if err != nil {
		return h.mapError(err)
	}
	return c.JSON(http.StatusOK, entries)
}

func (h *Handler) mapError(err error) error {
	switch {
	case errors.Is(err, errs.ErrNotFound):
		return echo.NewHTTPError(http.StatusNotFound, err.Error())
	case errors.Is(err, errs.ErrOutOfStock), errors.Is(err, errs.ErrDuplicateRental):
		return echo.NewHTTPError(http.StatusConflict, err.Error())
	case errs.IsForbidden(err):
		return echo.NewHTTPError(http.StatusForbidden, err.Error())
	case errors.Is(err, errs.ErrInsufficientFunds):
		return echo.NewHTTPError(http.StatusPaymentRequired, err.Error())
	case errors.Is(err, errs.ErrUnavailable):
		return echo.NewHTTPError(http.StatusServiceUnavailable, err.Error())
	default:
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}
}
