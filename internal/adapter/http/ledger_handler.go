package http

import (
	"net/http"
	"strconv"

	"github.com/labstack/echo/v4"

	"collateral-ledger/internal/adapter/caller"
	"collateral-ledger/internal/domain/loan"
	"collateral-ledger/internal/usecase/ledger"
	"collateral-ledger/pkg/amount"
)

type LedgerHandler struct{ uc *ledger.Usecase }

func NewLedgerHandler(uc *ledger.Usecase) *LedgerHandler { return &LedgerHandler{uc: uc} }

// Register mounts the ledger routes on g.
func (h *LedgerHandler) Register(g *echo.Group) {
	g.POST("/loans", h.RequestLoan)
	g.GET("/loans/:loan_id", h.GetLoan)
	g.GET("/loans/:loan_id/events", h.LoanEvents)
	g.POST("/loans/:loan_id/fund", h.FundLoan)
	g.POST("/loans/:loan_id/repay", h.RepayLoan)
	g.POST("/loans/:loan_id/claim", h.ClaimCollateral)
	g.GET("/borrowers/:address/loans", h.BorrowerLoans)
	g.GET("/events", h.ListEvents)
}

type requestLoanReq struct {
	InterestRate     uint32 `json:"interest_rate"`
	Duration         uint64 `json:"duration"` // seconds
	CollateralAmount string `json:"collateral_amount" validate:"required,wei"`
	LoanAmount       string `json:"loan_amount"       validate:"required,wei"`
	Value            string `json:"value"             validate:"required,wei"`
}

type valueReq struct {
	Value string `json:"value" validate:"required,wei"`
}

type borrowerReq struct {
	Address string `param:"address" validate:"required,address"`
}

func callerOf(c echo.Context) (string, error) {
	addr, ok := caller.FromRequest(c.Request())
	if !ok {
		return "", loan.ErrInvalidCaller
	}
	return addr, nil
}

func loanIDParam(c echo.Context) (uint64, bool) {
	id, err := strconv.ParseUint(c.Param("loan_id"), 10, 64)
	return id, err == nil
}

// bindValid binds the JSON body into req and validates it. ok is false when
// a response has already been written.
func bindValid(c echo.Context, req any) (bool, error) {
	if err := c.Bind(req); err != nil {
		return false, c.JSON(http.StatusBadRequest, ErrorResponse{Error: "invalid body"})
	}
	if err := c.Validate(req); err != nil {
		return false, c.JSON(http.StatusUnprocessableEntity, ErrorResponse{
			Error:   "validation failed",
			Details: ToFieldErrors(err),
		})
	}
	return true, nil
}

func badLoanID(c echo.Context) error {
	return c.JSON(http.StatusBadRequest, ErrorResponse{Error: "loan_id must be a non-negative integer"})
}

func (h *LedgerHandler) RequestLoan(c echo.Context) error {
	who, err := callerOf(c)
	if err != nil {
		return writeError(c, err)
	}
	var req requestLoanReq
	if ok, err := bindValid(c, &req); !ok {
		return err
	}
	// validated above
	collateral, _ := amount.ParseWei(req.CollateralAmount)
	principal, _ := amount.ParseWei(req.LoanAmount)
	value, _ := amount.ParseWei(req.Value)

	res, err := h.uc.RequestLoan(c.Request().Context(), ledger.RequestLoanInput{
		Caller:           who,
		InterestRate:     req.InterestRate,
		Duration:         req.Duration,
		CollateralAmount: collateral,
		LoanAmount:       principal,
		Value:            value,
	})
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusCreated, toResultResponse(res))
}

func (h *LedgerHandler) FundLoan(c echo.Context) error {
	return h.withValue(c, func(who string, id uint64, v valueReq) (*ledger.Result, error) {
		value, _ := amount.ParseWei(v.Value)
		return h.uc.FundLoan(c.Request().Context(), ledger.FundLoanInput{Caller: who, LoanID: id, Value: value})
	})
}

func (h *LedgerHandler) RepayLoan(c echo.Context) error {
	return h.withValue(c, func(who string, id uint64, v valueReq) (*ledger.Result, error) {
		value, _ := amount.ParseWei(v.Value)
		return h.uc.RepayLoan(c.Request().Context(), ledger.RepayLoanInput{Caller: who, LoanID: id, Value: value})
	})
}

func (h *LedgerHandler) withValue(c echo.Context, op func(who string, id uint64, v valueReq) (*ledger.Result, error)) error {
	who, err := callerOf(c)
	if err != nil {
		return writeError(c, err)
	}
	id, ok := loanIDParam(c)
	if !ok {
		return badLoanID(c)
	}
	var req valueReq
	if ok, err := bindValid(c, &req); !ok {
		return err
	}
	res, err := op(who, id, req)
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusOK, toResultResponse(res))
}

func (h *LedgerHandler) ClaimCollateral(c echo.Context) error {
	who, err := callerOf(c)
	if err != nil {
		return writeError(c, err)
	}
	id, ok := loanIDParam(c)
	if !ok {
		return badLoanID(c)
	}
	res, err := h.uc.ClaimCollateral(c.Request().Context(), ledger.ClaimCollateralInput{Caller: who, LoanID: id})
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusOK, toResultResponse(res))
}

func (h *LedgerHandler) GetLoan(c echo.Context) error {
	id, ok := loanIDParam(c)
	if !ok {
		return badLoanID(c)
	}
	v, err := h.uc.GetLoan(c.Request().Context(), id)
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusOK, toLoanResponse(v))
}

func (h *LedgerHandler) LoanEvents(c echo.Context) error {
	id, ok := loanIDParam(c)
	if !ok {
		return badLoanID(c)
	}
	evs, err := h.uc.LoanEvents(c.Request().Context(), id)
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusOK, map[string]any{"events": toEventResponses(evs)})
}

func (h *LedgerHandler) BorrowerLoans(c echo.Context) error {
	var req borrowerReq
	if ok, err := bindValid(c, &req); !ok {
		return err
	}
	addr, _ := caller.Normalize(req.Address)
	views, err := h.uc.ListBorrowerLoans(c.Request().Context(), addr)
	if err != nil {
		return writeError(c, err)
	}
	out := make([]LoanResponse, 0, len(views))
	for _, v := range views {
		out = append(out, toLoanResponse(v))
	}
	return c.JSON(http.StatusOK, map[string]any{"loans": out})
}

// ListEvents pages the ledger-wide log: ?after=<seq>&limit=<n>. The response
// carries next_after, the cursor for the following page.
func (h *LedgerHandler) ListEvents(c echo.Context) error {
	var (
		after uint64
		limit int
		err   error
	)
	if raw := c.QueryParam("after"); raw != "" {
		if after, err = strconv.ParseUint(raw, 10, 64); err != nil {
			return c.JSON(http.StatusBadRequest, ErrorResponse{Error: "after must be a non-negative integer"})
		}
	}
	if raw := c.QueryParam("limit"); raw != "" {
		if limit, err = strconv.Atoi(raw); err != nil || limit < 0 {
			return c.JSON(http.StatusBadRequest, ErrorResponse{Error: "limit must be a non-negative integer"})
		}
	}
	evs, err := h.uc.ListEvents(c.Request().Context(), after, limit)
	if err != nil {
		return writeError(c, err)
	}
	next := after
	if n := len(evs); n > 0 {
		next = evs[n-1].Seq
	}
	return c.JSON(http.StatusOK, map[string]any{
		"events":     toEventResponses(evs),
		"next_after": next,
	})
}
