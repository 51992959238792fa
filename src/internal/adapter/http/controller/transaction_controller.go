package controller

import (
	"context"
	"encoding/json"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/PersonalHub360/gateway-sub002/src/internal/adapter/http/models"
	"github.com/PersonalHub360/gateway-sub002/src/internal/commons"
	"github.com/PersonalHub360/gateway-sub002/src/internal/domain"
	"github.com/PersonalHub360/gateway-sub002/src/internal/logger"
)

type TransactionService interface {
	SubmitTransaction(ctx context.Context, req models.SubmitTransactionRequest) (commons.Response[models.TransactionResponse], error)
	ListTransactions(ctx context.Context, filter domain.TransactionFilter, page, pageSize int) (commons.Response[commons.Page[models.TransactionResponse]], error)
	AuditTrail(ctx context.Context, transactionID string) (commons.Response[[]models.AuditEventResponse], error)
}

type ApprovalService interface {
	ApproveTransaction(ctx context.Context, req models.ApproveTransactionRequest) (commons.Response[models.TransactionResponse], error)
	RejectTransaction(ctx context.Context, req models.RejectTransactionRequest) (commons.Response[models.TransactionResponse], error)
	RefundTransaction(ctx context.Context, req models.RefundTransactionRequest) (commons.Response[models.TransactionResponse], error)
}

type TransactionController struct {
	transactions TransactionService
	approvals    ApprovalService
}

func NewTransactionController(transactions TransactionService, approvals ApprovalService) *TransactionController {
	return &TransactionController{transactions: transactions, approvals: approvals}
}

func (c *TransactionController) RegisterRoutes(mux *http.ServeMux, authMiddleware func(http.Handler) http.Handler) {
	wrap := func(handler http.HandlerFunc) http.Handler {
		if authMiddleware != nil {
			return authMiddleware(handler)
		}
		return handler
	}

	mux.Handle("/transactions/submit", wrap(c.submit))
	mux.Handle("/transactions/approve", wrap(c.approve))
	mux.Handle("/transactions/reject", wrap(c.reject))
	mux.Handle("/transactions/refund", wrap(c.refund))
	mux.Handle("/transactions/audit", wrap(c.auditTrail))
	mux.Handle("/transactions", wrap(c.list))
}

func (c *TransactionController) submit(w http.ResponseWriter, r *http.Request) {
	start := time.Now()

	if r.Method != http.MethodPost {
		response := commons.ErrorResponse[models.TransactionResponse]("method not allowed")
		writeJSON(w, http.StatusMethodNotAllowed, response)
		logResponse(r, http.StatusMethodNotAllowed, response, start)
		return
	}

	var req models.SubmitTransactionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		logError(r, err, nil)
		response := commons.ErrorResponse[models.TransactionResponse]("invalid request body", err.Error())
		writeJSON(w, http.StatusBadRequest, response)
		logResponse(r, http.StatusBadRequest, response, start)
		return
	}
	logRequest(r, req)

	response, err := c.transactions.SubmitTransaction(r.Context(), req)
	if err != nil {
		logError(r, err, logger.Fields{"message": response.Message})
		status := statusFromError(err)
		writeJSON(w, status, response)
		logResponse(r, status, response, start)
		return
	}

	status := http.StatusCreated
	if response.Data != nil && response.Data.Status == string(domain.TransactionStatusPendingReview) {
		status = http.StatusAccepted
	}
	writeJSON(w, status, response)
	logResponse(r, status, response, start)
}

func (c *TransactionController) approve(w http.ResponseWriter, r *http.Request) {
	start := time.Now()

	if r.Method != http.MethodPost {
		response := commons.ErrorResponse[models.TransactionResponse]("method not allowed")
		writeJSON(w, http.StatusMethodNotAllowed, response)
		logResponse(r, http.StatusMethodNotAllowed, response, start)
		return
	}

	var req models.ApproveTransactionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		logError(r, err, nil)
		response := commons.ErrorResponse[models.TransactionResponse]("invalid request body", err.Error())
		writeJSON(w, http.StatusBadRequest, response)
		logResponse(r, http.StatusBadRequest, response, start)
		return
	}
	logRequest(r, req)

	response, err := c.approvals.ApproveTransaction(r.Context(), req)
	if err != nil {
		logError(r, err, logger.Fields{"message": response.Message})
		status := statusFromError(err)
		writeJSON(w, status, response)
		logResponse(r, status, response, start)
		return
	}

	writeJSON(w, http.StatusOK, response)
	logResponse(r, http.StatusOK, response, start)
}

func (c *TransactionController) reject(w http.ResponseWriter, r *http.Request) {
	start := time.Now()

	if r.Method != http.MethodPost {
		response := commons.ErrorResponse[models.TransactionResponse]("method not allowed")
		writeJSON(w, http.StatusMethodNotAllowed, response)
		logResponse(r, http.StatusMethodNotAllowed, response, start)
		return
	}

	var req models.RejectTransactionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		logError(r, err, nil)
		response := commons.ErrorResponse[models.TransactionResponse]("invalid request body", err.Error())
		writeJSON(w, http.StatusBadRequest, response)
		logResponse(r, http.StatusBadRequest, response, start)
		return
	}
	logRequest(r, req)

	response, err := c.approvals.RejectTransaction(r.Context(), req)
	if err != nil {
		logError(r, err, logger.Fields{"message": response.Message})
		status := statusFromError(err)
		writeJSON(w, status, response)
		logResponse(r, status, response, start)
		return
	}

	writeJSON(w, http.StatusOK, response)
	logResponse(r, http.StatusOK, response, start)
}

func (c *TransactionController) refund(w http.ResponseWriter, r *http.Request) {
	start := time.Now()

	if r.Method != http.MethodPost {
		response := commons.ErrorResponse[models.TransactionResponse]("method not allowed")
		writeJSON(w, http.StatusMethodNotAllowed, response)
		logResponse(r, http.StatusMethodNotAllowed, response, start)
		return
	}

	var req models.RefundTransactionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		logError(r, err, nil)
		response := commons.ErrorResponse[models.TransactionResponse]("invalid request body", err.Error())
		writeJSON(w, http.StatusBadRequest, response)
		logResponse(r, http.StatusBadRequest, response, start)
		return
	}
	logRequest(r, req)

	response, err := c.approvals.RefundTransaction(r.Context(), req)
	if err != nil {
		logError(r, err, logger.Fields{"message": response.Message})
		status := statusFromError(err)
		writeJSON(w, status, response)
		logResponse(r, status, response, start)
		return
	}

	writeJSON(w, http.StatusCreated, response)
	logResponse(r, http.StatusCreated, response, start)
}

func (c *TransactionController) list(w http.ResponseWriter, r *http.Request) {
	start := time.Now()
	logRequest(r, nil)

	if r.Method != http.MethodGet {
		response := commons.ErrorResponse[commons.Page[models.TransactionResponse]]("method not allowed")
		writeJSON(w, http.StatusMethodNotAllowed, response)
		logResponse(r, http.StatusMethodNotAllowed, response, start)
		return
	}

	filter, err := parseTransactionFilter(r.URL.Query())
	if err != nil {
		logError(r, err, nil)
		response := commons.ErrorResponse[commons.Page[models.TransactionResponse]]("validation failed", err.Error())
		writeJSON(w, http.StatusBadRequest, response)
		logResponse(r, http.StatusBadRequest, response, start)
		return
	}

	page, _ := strconv.Atoi(r.URL.Query().Get("page"))
	pageSize, _ := strconv.Atoi(r.URL.Query().Get("pageSize"))

	response, err := c.transactions.ListTransactions(r.Context(), filter, page, pageSize)
	if err != nil {
		logError(r, err, logger.Fields{"message": response.Message})
		status := statusFromError(err)
		writeJSON(w, status, response)
		logResponse(r, status, response, start)
		return
	}

	writeJSON(w, http.StatusOK, response)
	logResponse(r, http.StatusOK, response, start)
}

func (c *TransactionController) auditTrail(w http.ResponseWriter, r *http.Request) {
	start := time.Now()
	logRequest(r, nil)

	if r.Method != http.MethodGet {
		response := commons.ErrorResponse[[]models.AuditEventResponse]("method not allowed")
		writeJSON(w, http.StatusMethodNotAllowed, response)
		logResponse(r, http.StatusMethodNotAllowed, response, start)
		return
	}

	response, err := c.transactions.AuditTrail(r.Context(), r.URL.Query().Get("transactionId"))
	if err != nil {
		logError(r, err, logger.Fields{"message": response.Message})
		status := statusFromError(err)
		writeJSON(w, status, response)
		logResponse(r, status, response, start)
		return
	}

	writeJSON(w, http.StatusOK, response)
	logResponse(r, http.StatusOK, response, start)
}

func parseTransactionFilter(query map[string][]string) (domain.TransactionFilter, error) {
	get := func(key string) string {
		if values := query[key]; len(values) > 0 {
			return strings.TrimSpace(values[0])
		}
		return ""
	}

	var filter domain.TransactionFilter

	if raw := get("status"); raw != "" {
		status := domain.TransactionStatus(strings.ToUpper(raw))
		if !status.Valid() {
			return filter, &domain.ValidationError{Detail: "status filter is not a valid transaction status"}
		}
		filter.Status = &status
	}
	if raw := get("type"); raw != "" {
		txType := domain.TransactionType(strings.ToUpper(raw))
		if !txType.Valid() {
			return filter, &domain.ValidationError{Detail: "type filter is not a valid transaction type"}
		}
		filter.Type = &txType
	}
	if raw := get("dateFrom"); raw != "" {
		from, err := parseFilterTime(raw)
		if err != nil {
			return filter, &domain.ValidationError{Detail: "dateFrom must be RFC3339 or YYYY-MM-DD"}
		}
		filter.DateFrom = &from
	}
	if raw := get("dateTo"); raw != "" {
		to, err := parseFilterTime(raw)
		if err != nil {
			return filter, &domain.ValidationError{Detail: "dateTo must be RFC3339 or YYYY-MM-DD"}
		}
		filter.DateTo = &to
	}
	filter.SearchText = get("search")

	return filter, nil
}

func parseFilterTime(raw string) (time.Time, error) {
	if parsed, err := time.Parse(time.RFC3339, raw); err == nil {
		return parsed, nil
	}
	return time.Parse("2006-01-02", raw)
}
