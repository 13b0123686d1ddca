/*
handlers.go - HTTP handlers for the overtime engine

PURPOSE:
  Exposes every core operation over REST. Handlers parse and validate
  the wire shape, resolve the caller from headers, delegate to the
  engine, and translate tagged errors into HTTP statuses. No business
  rule lives here.

CALLER IDENTITY:
  Authentication is out of scope. The caller arrives as headers set by
  the fronting gateway:
    X-Actor-Id:    opaque identity
    X-Actor-Roles: comma-separated subset of the closed role set
  Requests without an actor id are rejected with 401; unknown role
  strings are dropped.

ENDPOINTS:
  Orders / submissions:
    POST /api/orders                      insertOrder
    POST /api/submissions                 insertSubmission
    POST /api/submissions/payout          insertPayoutRequest

  Shared request operations:
    GET    /api/requests/{id}
    POST   /api/requests/{id}/approve
    POST   /api/requests/{id}/reject
    POST   /api/requests/{id}/account
    POST   /api/requests/{id}/cancel
    POST   /api/requests/{id}/correct
    POST   /api/requests/{id}/convert-to-payout
    POST   /api/requests/{id}/scheduled-day-off
    DELETE /api/requests/{id}
    POST   /api/requests/bulk/{approve|reject|account|cancel}

  Read models:
    GET /api/supervisors/{id}/quota
    GET /api/supervisors/{id}/pending
    GET /api/employees/{id}/requests
    GET /api/employees/{id}/balance
    GET /api/employees  POST /api/employees

SEE ALSO:
  - dto.go: Wire shapes and error mapping
  - server.go: Router wiring
*/
package api

import (
	"encoding/json"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/warp/overtime-engine/orders"
	"github.com/warp/overtime-engine/overtime"
	"github.com/warp/overtime-engine/store/sqlite"
	"github.com/warp/overtime-engine/submissions"
)

// Handler holds all dependencies of the HTTP surface.
type Handler struct {
	Machine     *overtime.Machine
	Orders      *orders.Service
	Submissions *submissions.Service
	Quota       *overtime.QuotaCalculator
	Store       *sqlite.Store
	Log         *zap.Logger
}

func NewHandler(machine *overtime.Machine, store *sqlite.Store, log *zap.Logger) *Handler {
	return &Handler{
		Machine:     machine,
		Orders:      &orders.Service{Machine: machine},
		Submissions: &submissions.Service{Machine: machine},
		Quota:       machine.Quota,
		Store:       store,
		Log:         log,
	}
}

// =============================================================================
// ACTOR RESOLUTION
// =============================================================================

func actorFrom(r *http.Request) (overtime.Actor, bool) {
	id := strings.TrimSpace(r.Header.Get("X-Actor-Id"))
	if id == "" {
		return overtime.Actor{}, false
	}
	actor := overtime.Actor{ID: overtime.Identity(id)}
	for _, raw := range strings.Split(r.Header.Get("X-Actor-Roles"), ",") {
		if role, ok := overtime.ParseRole(strings.TrimSpace(raw)); ok {
			actor.Roles = append(actor.Roles, role)
		}
	}
	return actor, true
}

func (h *Handler) withActor(w http.ResponseWriter, r *http.Request) (overtime.Actor, bool) {
	actor, ok := actorFrom(r)
	if !ok {
		h.writeJSON(w, http.StatusUnauthorized, errorResponse{Error: "unauthorized"})
	}
	return actor, ok
}

// =============================================================================
// CREATION
// =============================================================================

func (h *Handler) InsertOrder(w http.ResponseWriter, r *http.Request) {
	actor, ok := h.withActor(w, r)
	if !ok {
		return
	}
	var req insertOrderRequest
	if !h.decode(w, r, &req) {
		return
	}

	workStart, err := parseOptionalInstant(&req.WorkStart)
	if err != nil {
		h.writeError(w, err)
		return
	}
	workEnd, err := parseOptionalInstant(&req.WorkEnd)
	if err != nil {
		h.writeError(w, err)
		return
	}

	created, err := h.Orders.Insert(r.Context(), actor, orders.Data{
		Employee:   overtime.Identity(req.Employee),
		Supervisor: overtime.Identity(req.Supervisor),
		WorkStart:  *workStart,
		WorkEnd:    *workEnd,
		Hours:      overtime.NewHours(req.Hours),
		Payment:    req.Payment,
		Reason:     req.Reason,
	})
	if err != nil {
		h.writeError(w, err)
		return
	}
	h.writeJSON(w, http.StatusCreated, toRequestResponse(created))
}

func (h *Handler) InsertSubmission(w http.ResponseWriter, r *http.Request) {
	actor, ok := h.withActor(w, r)
	if !ok {
		return
	}
	var req insertSubmissionRequest
	if !h.decode(w, r, &req) {
		return
	}

	date, err := parseDay(req.Date)
	if err != nil {
		h.writeError(w, overtime.ErrInvalidDate)
		return
	}
	data := submissions.Data{
		Supervisor: overtime.Identity(req.Supervisor),
		Date:       date,
		Hours:      overtime.NewHours(req.Hours),
		Payment:    req.Payment,
		Reason:     req.Reason,
	}
	if req.ScheduledDayOff != "" {
		day, err := parseDay(req.ScheduledDayOff)
		if err != nil {
			h.writeError(w, overtime.ErrInvalidDate)
			return
		}
		data.ScheduledDayOff = &day
	}

	created, err := h.Submissions.Insert(r.Context(), actor, data)
	if err != nil {
		h.writeError(w, err)
		return
	}
	h.writeJSON(w, http.StatusCreated, toRequestResponse(created))
}

func (h *Handler) InsertPayout(w http.ResponseWriter, r *http.Request) {
	actor, ok := h.withActor(w, r)
	if !ok {
		return
	}
	var req insertPayoutRequest
	if !h.decode(w, r, &req) {
		return
	}

	created, err := h.Submissions.InsertPayout(r.Context(), actor, submissions.PayoutData{
		Supervisor: overtime.Identity(req.Supervisor),
		Hours:      overtime.NewHours(req.Hours),
		Reason:     req.Reason,
	})
	if err != nil {
		h.writeError(w, err)
		return
	}
	h.writeJSON(w, http.StatusCreated, toRequestResponse(created))
}

// =============================================================================
// SHARED REQUEST OPERATIONS
// =============================================================================

func (h *Handler) GetRequest(w http.ResponseWriter, r *http.Request) {
	if _, ok := h.withActor(w, r); !ok {
		return
	}
	req, err := h.Machine.Store.FindRequest(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		h.writeError(w, overtime.WrapOp("getRequest", err))
		return
	}
	h.writeJSON(w, http.StatusOK, toRequestResponse(req))
}

func (h *Handler) Approve(w http.ResponseWriter, r *http.Request) {
	actor, ok := h.withActor(w, r)
	if !ok {
		return
	}
	outcome, err := h.Machine.Approve(r.Context(), actor, chi.URLParam(r, "id"))
	if err != nil {
		h.writeError(w, err)
		return
	}
	h.writeJSON(w, http.StatusOK, resultResponse{Success: string(outcome)})
}

func (h *Handler) Reject(w http.ResponseWriter, r *http.Request) {
	actor, ok := h.withActor(w, r)
	if !ok {
		return
	}
	var req reasonRequest
	if !h.decode(w, r, &req) {
		return
	}
	if err := h.Machine.Reject(r.Context(), actor, chi.URLParam(r, "id"), req.Reason); err != nil {
		h.writeError(w, err)
		return
	}
	h.writeJSON(w, http.StatusOK, resultResponse{Success: "rejected"})
}

func (h *Handler) MarkAsAccounted(w http.ResponseWriter, r *http.Request) {
	actor, ok := h.withActor(w, r)
	if !ok {
		return
	}
	if err := h.Machine.MarkAsAccounted(r.Context(), actor, chi.URLParam(r, "id")); err != nil {
		h.writeError(w, err)
		return
	}
	h.writeJSON(w, http.StatusOK, resultResponse{Success: "accounted"})
}

func (h *Handler) Cancel(w http.ResponseWriter, r *http.Request) {
	actor, ok := h.withActor(w, r)
	if !ok {
		return
	}
	var req reasonRequest
	if !h.decode(w, r, &req) {
		return
	}
	if err := h.Machine.Cancel(r.Context(), actor, chi.URLParam(r, "id"), req.Reason); err != nil {
		h.writeError(w, err)
		return
	}
	h.writeJSON(w, http.StatusOK, resultResponse{Success: "cancelled"})
}

func (h *Handler) Correct(w http.ResponseWriter, r *http.Request) {
	actor, ok := h.withActor(w, r)
	if !ok {
		return
	}
	var req correctRequest
	if !h.decode(w, r, &req) {
		return
	}
	data, err := req.toData()
	if err != nil {
		h.writeError(w, err)
		return
	}
	err = h.Machine.Correct(r.Context(), actor, chi.URLParam(r, "id"),
		data, req.CorrectionReason, req.MarkAsCancelled)
	if err != nil {
		h.writeError(w, err)
		return
	}
	h.writeJSON(w, http.StatusOK, resultResponse{Success: "corrected"})
}

func (h *Handler) ConvertToPayout(w http.ResponseWriter, r *http.Request) {
	actor, ok := h.withActor(w, r)
	if !ok {
		return
	}
	if err := h.Machine.ConvertToPayout(r.Context(), actor, chi.URLParam(r, "id")); err != nil {
		h.writeError(w, err)
		return
	}
	h.writeJSON(w, http.StatusOK, resultResponse{Success: "converted"})
}

func (h *Handler) SetScheduledDayOff(w http.ResponseWriter, r *http.Request) {
	actor, ok := h.withActor(w, r)
	if !ok {
		return
	}
	var req scheduledDayOffRequest
	if !h.decode(w, r, &req) {
		return
	}
	day, err := parseDay(req.Date)
	if err != nil {
		h.writeError(w, overtime.ErrInvalidDate)
		return
	}
	err = h.Machine.SupervisorSetScheduledDayOff(r.Context(), actor,
		chi.URLParam(r, "id"), day, req.Reason)
	if err != nil {
		h.writeError(w, err)
		return
	}
	h.writeJSON(w, http.StatusOK, resultResponse{Success: "approved"})
}

func (h *Handler) DeleteRequest(w http.ResponseWriter, r *http.Request) {
	actor, ok := h.withActor(w, r)
	if !ok {
		return
	}
	if err := h.Machine.Delete(r.Context(), actor, chi.URLParam(r, "id")); err != nil {
		h.writeError(w, err)
		return
	}
	h.writeJSON(w, http.StatusOK, resultResponse{Success: "deleted"})
}

// =============================================================================
// BULK OPERATIONS
// =============================================================================

func (h *Handler) BulkApprove(w http.ResponseWriter, r *http.Request) {
	h.bulk(w, r, func(actor overtime.Actor, req bulkRequest) (overtime.BulkResult, error) {
		return h.Machine.BulkApprove(r.Context(), actor, req.IDs)
	})
}

func (h *Handler) BulkReject(w http.ResponseWriter, r *http.Request) {
	h.bulk(w, r, func(actor overtime.Actor, req bulkRequest) (overtime.BulkResult, error) {
		return h.Machine.BulkReject(r.Context(), actor, req.IDs, req.Reason)
	})
}

func (h *Handler) BulkMarkAsAccounted(w http.ResponseWriter, r *http.Request) {
	h.bulk(w, r, func(actor overtime.Actor, req bulkRequest) (overtime.BulkResult, error) {
		return h.Machine.BulkMarkAsAccounted(r.Context(), actor, req.IDs)
	})
}

func (h *Handler) BulkCancel(w http.ResponseWriter, r *http.Request) {
	h.bulk(w, r, func(actor overtime.Actor, req bulkRequest) (overtime.BulkResult, error) {
		return h.Machine.BulkCancel(r.Context(), actor, req.IDs)
	})
}

func (h *Handler) bulk(w http.ResponseWriter, r *http.Request, apply func(overtime.Actor, bulkRequest) (overtime.BulkResult, error)) {
	actor, ok := h.withActor(w, r)
	if !ok {
		return
	}
	var req bulkRequest
	if !h.decode(w, r, &req) {
		return
	}
	res, err := apply(actor, req)
	if err != nil {
		h.writeError(w, err)
		return
	}
	h.writeJSON(w, http.StatusOK, bulkResponse{Success: "applied", Count: res.Applied, Total: res.Total})
}

// =============================================================================
// READ MODELS
// =============================================================================

func (h *Handler) GetSupervisorQuota(w http.ResponseWriter, r *http.Request) {
	if _, ok := h.withActor(w, r); !ok {
		return
	}
	quota, err := h.Quota.Quota(r.Context(), overtime.Identity(chi.URLParam(r, "id")))
	if err != nil {
		h.writeError(w, overtime.WrapOp("getSupervisorQuota", err))
		return
	}
	limit, _ := quota.Limit.Float64()
	used, _ := quota.Used.Float64()
	remaining, _ := quota.Remaining.Float64()
	h.writeJSON(w, http.StatusOK, quotaResponse{Limit: limit, Used: used, Remaining: remaining})
}

func (h *Handler) ListPendingForSupervisor(w http.ResponseWriter, r *http.Request) {
	if _, ok := h.withActor(w, r); !ok {
		return
	}
	requests, err := h.Store.PendingForSupervisor(r.Context(), overtime.Identity(chi.URLParam(r, "id")))
	if err != nil {
		h.writeError(w, overtime.WrapOp("listPending", err))
		return
	}
	h.writeRequestList(w, requests)
}

func (h *Handler) ListBySubmitter(w http.ResponseWriter, r *http.Request) {
	if _, ok := h.withActor(w, r); !ok {
		return
	}
	requests, err := h.Store.BySubmitter(r.Context(), overtime.Identity(chi.URLParam(r, "id")))
	if err != nil {
		h.writeError(w, overtime.WrapOp("listRequests", err))
		return
	}
	h.writeRequestList(w, requests)
}

func (h *Handler) GetBalance(w http.ResponseWriter, r *http.Request) {
	if _, ok := h.withActor(w, r); !ok {
		return
	}
	id := chi.URLParam(r, "id")
	balance, err := h.Submissions.Balance(r.Context(), overtime.Identity(id))
	if err != nil {
		h.writeError(w, err)
		return
	}
	f, _ := balance.Float64()
	h.writeJSON(w, http.StatusOK, balanceResponse{Employee: id, Balance: f})
}

func (h *Handler) ListEmployees(w http.ResponseWriter, r *http.Request) {
	if _, ok := h.withActor(w, r); !ok {
		return
	}
	employees, err := h.Store.ListEmployees(r.Context())
	if err != nil {
		h.writeError(w, overtime.WrapOp("listEmployees", err))
		return
	}
	out := make([]employeeRequest, 0, len(employees))
	for _, e := range employees {
		out = append(out, employeeRequest{
			ID: string(e.ID), Name: e.Name, Email: e.Email, Manager: string(e.ManagerID),
		})
	}
	h.writeJSON(w, http.StatusOK, out)
}

func (h *Handler) SaveEmployee(w http.ResponseWriter, r *http.Request) {
	actor, ok := h.withActor(w, r)
	if !ok {
		return
	}
	if !actor.HasRole(overtime.RoleAdmin, overtime.RoleHR) {
		h.writeError(w, overtime.ErrUnauthorized)
		return
	}
	var req employeeRequest
	if !h.decode(w, r, &req) {
		return
	}
	if req.ID == "" || req.Name == "" {
		h.writeJSON(w, http.StatusBadRequest, errorResponse{Error: "id and name required"})
		return
	}
	err := h.Store.SaveEmployee(r.Context(), overtime.Employee{
		ID:        overtime.Identity(req.ID),
		Name:      req.Name,
		Email:     req.Email,
		ManagerID: overtime.Identity(req.Manager),
	})
	if err != nil {
		h.writeError(w, overtime.WrapOp("saveEmployee", err))
		return
	}
	h.writeJSON(w, http.StatusCreated, resultResponse{Success: "saved"})
}

// =============================================================================
// PLUMBING
// =============================================================================

func (h *Handler) decode(w http.ResponseWriter, r *http.Request, dst any) bool {
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		h.writeJSON(w, http.StatusBadRequest, errorResponse{Error: "invalid request body"})
		return false
	}
	return true
}

func (h *Handler) writeRequestList(w http.ResponseWriter, requests []*overtime.Request) {
	out := make([]requestResponse, 0, len(requests))
	for _, r := range requests {
		out = append(out, toRequestResponse(r))
	}
	h.writeJSON(w, http.StatusOK, out)
}

func (h *Handler) writeError(w http.ResponseWriter, err error) {
	status, tag := errorStatus(err)
	if status == http.StatusInternalServerError && h.Log != nil {
		h.Log.Error("operation failed", zap.Error(err))
	}
	h.writeJSON(w, status, errorResponse{Error: tag})
}

func (h *Handler) writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil && h.Log != nil {
		h.Log.Warn("response encode failed", zap.Error(err))
	}
}
