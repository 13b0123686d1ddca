/*
dto.go - Request/response data structures for the HTTP surface

PURPOSE:
  JSON shapes exchanged with clients, conversion helpers into core
  types, and the error envelope. Hours travel as floats at the boundary
  and become decimals immediately; day-valued fields use "2006-01-02",
  instants use RFC 3339.

ERROR ENVELOPE:
  { "error": "<tag>" } with the tag taken from the core taxonomy.
  Collaborators map tags to localized messages; unknown tags fall back
  to a generic message on their side.

SEE ALSO:
  - handlers.go: The handlers speaking these shapes
*/
package api

import (
	"errors"
	"net/http"
	"time"

	"github.com/warp/overtime-engine/overtime"
)

const dayFormat = "2006-01-02"

// =============================================================================
// REQUEST PAYLOADS
// =============================================================================

type insertOrderRequest struct {
	Employee   string  `json:"employee"`
	Supervisor string  `json:"supervisor"`
	WorkStart  string  `json:"workStartTime"` // RFC 3339
	WorkEnd    string  `json:"workEndTime"`   // RFC 3339
	Hours      float64 `json:"hours"`
	Payment    bool    `json:"payment"`
	Reason     string  `json:"reason"`
}

type insertSubmissionRequest struct {
	Supervisor      string  `json:"supervisor"`
	Date            string  `json:"date"` // 2006-01-02
	Hours           float64 `json:"hours"`
	Payment         bool    `json:"payment"`
	ScheduledDayOff string  `json:"scheduledDayOff,omitempty"`
	Reason          string  `json:"reason"`
}

type insertPayoutRequest struct {
	Supervisor string  `json:"supervisor"`
	Hours      float64 `json:"hours"`
	Reason     string  `json:"reason"`
}

type reasonRequest struct {
	Reason string `json:"reason"`
}

type scheduledDayOffRequest struct {
	Date   string `json:"date"` // 2006-01-02
	Reason string `json:"reason"`
}

type correctRequest struct {
	Supervisor      *string  `json:"supervisor,omitempty"`
	Hours           *float64 `json:"hours,omitempty"`
	Reason          *string  `json:"reason,omitempty"`
	Payment         *bool    `json:"payment,omitempty"`
	ScheduledDayOff *string  `json:"scheduledDayOff,omitempty"`
	WorkStart       *string  `json:"workStartTime,omitempty"`
	WorkEnd         *string  `json:"workEndTime,omitempty"`
	Date            *string  `json:"date,omitempty"`

	CorrectionReason string `json:"correctionReason"`
	MarkAsCancelled  bool   `json:"markAsCancelled,omitempty"`
}

func (c correctRequest) toData() (overtime.CorrectionData, error) {
	var data overtime.CorrectionData
	if c.Supervisor != nil {
		id := overtime.Identity(*c.Supervisor)
		data.Supervisor = &id
	}
	if c.Hours != nil {
		h := overtime.NewHours(*c.Hours)
		data.Hours = &h
	}
	data.Reason = c.Reason
	data.Payment = c.Payment

	var err error
	if data.ScheduledDayOff, err = parseOptionalDay(c.ScheduledDayOff); err != nil {
		return data, err
	}
	if data.Date, err = parseOptionalDay(c.Date); err != nil {
		return data, err
	}
	if data.WorkStart, err = parseOptionalInstant(c.WorkStart); err != nil {
		return data, err
	}
	if data.WorkEnd, err = parseOptionalInstant(c.WorkEnd); err != nil {
		return data, err
	}
	return data, nil
}

type bulkRequest struct {
	IDs    []string `json:"ids"`
	Reason string   `json:"reason,omitempty"`
}

type employeeRequest struct {
	ID      string `json:"id"`
	Name    string `json:"name"`
	Email   string `json:"email"`
	Manager string `json:"manager"`
}

// =============================================================================
// RESPONSES
// =============================================================================

type resultResponse struct {
	Success string `json:"success"`
}

type bulkResponse struct {
	Success string `json:"success"`
	Count   int    `json:"count"`
	Total   int    `json:"total"`
}

type quotaResponse struct {
	Limit     float64 `json:"limit"`
	Used      float64 `json:"used"`
	Remaining float64 `json:"remaining"`
}

type balanceResponse struct {
	Employee string  `json:"employee"`
	Balance  float64 `json:"balance"`
}

type requestResponse struct {
	ID              string  `json:"id"`
	Kind            string  `json:"kind"`
	InternalID      string  `json:"internalId"`
	SubmittedBy     string  `json:"submittedBy"`
	CreatedBy       string  `json:"createdBy"`
	Supervisor      string  `json:"supervisor"`
	Status          string  `json:"status"`
	Payment         bool    `json:"payment"`
	Hours           float64 `json:"hours"`
	Date            string  `json:"date,omitempty"`
	WorkStart       string  `json:"workStartTime,omitempty"`
	WorkEnd         string  `json:"workEndTime,omitempty"`
	ScheduledDayOff string  `json:"scheduledDayOff,omitempty"`
	Reason          string  `json:"reason,omitempty"`

	SupervisorFinalApproval bool `json:"supervisorFinalApproval,omitempty"`

	SupervisorApprovedAt   *time.Time `json:"supervisorApprovedAt,omitempty"`
	SupervisorApprovedBy   string     `json:"supervisorApprovedBy,omitempty"`
	PlantManagerApprovedAt *time.Time `json:"plantManagerApprovedAt,omitempty"`
	PlantManagerApprovedBy string     `json:"plantManagerApprovedBy,omitempty"`
	ApprovedAt             *time.Time `json:"approvedAt,omitempty"`
	ApprovedBy             string     `json:"approvedBy,omitempty"`
	RejectedAt             *time.Time `json:"rejectedAt,omitempty"`
	RejectedBy             string     `json:"rejectedBy,omitempty"`
	RejectionReason        string     `json:"rejectionReason,omitempty"`
	AccountedAt            *time.Time `json:"accountedAt,omitempty"`
	AccountedBy            string     `json:"accountedBy,omitempty"`
	CancelledAt            *time.Time `json:"cancelledAt,omitempty"`
	CancelledBy            string     `json:"cancelledBy,omitempty"`
	CancellationReason     string     `json:"cancellationReason,omitempty"`

	CorrectionHistory []overtime.CorrectionEntry `json:"correctionHistory"`

	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

func toRequestResponse(r *overtime.Request) requestResponse {
	hours, _ := r.Hours.Float64()
	return requestResponse{
		ID:                      r.ID,
		Kind:                    string(r.Kind),
		InternalID:              r.InternalID,
		SubmittedBy:             string(r.SubmittedBy),
		CreatedBy:               string(r.CreatedBy),
		Supervisor:              string(r.Supervisor),
		Status:                  string(r.Status),
		Payment:                 r.Payment,
		Hours:                   hours,
		Date:                    formatDay(r.Date),
		WorkStart:               formatInstant(r.WorkStart),
		WorkEnd:                 formatInstant(r.WorkEnd),
		ScheduledDayOff:         formatDay(r.ScheduledDayOff),
		Reason:                  r.Reason,
		SupervisorFinalApproval: r.SupervisorFinalApproval,
		SupervisorApprovedAt:    r.SupervisorApprovedAt,
		SupervisorApprovedBy:    string(r.SupervisorApprovedBy),
		PlantManagerApprovedAt:  r.PlantManagerApprovedAt,
		PlantManagerApprovedBy:  string(r.PlantManagerApprovedBy),
		ApprovedAt:              r.ApprovedAt,
		ApprovedBy:              string(r.ApprovedBy),
		RejectedAt:              r.RejectedAt,
		RejectedBy:              string(r.RejectedBy),
		RejectionReason:         r.RejectionReason,
		AccountedAt:             r.AccountedAt,
		AccountedBy:             string(r.AccountedBy),
		CancelledAt:             r.CancelledAt,
		CancelledBy:             string(r.CancelledBy),
		CancellationReason:      r.CancellationReason,
		CorrectionHistory:       r.CorrectionHistory,
		CreatedAt:               r.CreatedAt,
		UpdatedAt:               r.UpdatedAt,
	}
}

// =============================================================================
// ERROR ENVELOPE
// =============================================================================

type errorResponse struct {
	Error string `json:"error"`
}

// errorStatus maps a core error to its HTTP status and wire tag.
func errorStatus(err error) (int, string) {
	switch {
	case errors.Is(err, overtime.ErrUnauthorized):
		return http.StatusForbidden, "unauthorized"
	case errors.Is(err, overtime.ErrNotFound):
		return http.StatusNotFound, "not found"
	case errors.Is(err, overtime.ErrInvalidStatus):
		return http.StatusConflict, "invalid status"
	case errors.Is(err, overtime.ErrConcurrentModification):
		return http.StatusConflict, "invalid status"
	case errors.Is(err, overtime.ErrReasonRequired):
		return http.StatusBadRequest, "reason required"
	case errors.Is(err, overtime.ErrInvalidDate):
		return http.StatusBadRequest, "invalid date"
	case errors.Is(err, overtime.ErrInvalidHours):
		return http.StatusBadRequest, "invalid hours"
	case errors.Is(err, overtime.ErrCannotCancel):
		return http.StatusConflict, "cannot cancel"
	case errors.Is(err, overtime.ErrCannotCorrectAccounted):
		return http.StatusConflict, "cannot correct accounted"
	case errors.Is(err, overtime.ErrExceedsBalance):
		return http.StatusUnprocessableEntity, "exceeds_balance"
	case errors.Is(err, overtime.ErrNoBalance):
		return http.StatusUnprocessableEntity, "no_balance"
	case errors.Is(err, overtime.ErrDuplicateInternalID):
		return http.StatusConflict, "duplicate config"
	case errors.Is(err, overtime.ErrNoEligibleRequests):
		return http.StatusBadRequest, "no eligible requests"
	default:
		// OperationError renders as "<op> server action error". Anything
		// else is an unwrapped fault; its raw message stays in the logs
		// and never reaches the wire.
		var op *overtime.OperationError
		if errors.As(err, &op) {
			return http.StatusInternalServerError, op.Error()
		}
		return http.StatusInternalServerError, "server action error"
	}
}

// =============================================================================
// PARSE HELPERS
// =============================================================================

func parseDay(s string) (time.Time, error) {
	return time.ParseInLocation(dayFormat, s, time.Local)
}

func parseOptionalDay(s *string) (*time.Time, error) {
	if s == nil {
		return nil, nil
	}
	t, err := parseDay(*s)
	if err != nil {
		return nil, overtime.ErrInvalidDate
	}
	return &t, nil
}

func parseOptionalInstant(s *string) (*time.Time, error) {
	if s == nil {
		return nil, nil
	}
	t, err := time.Parse(time.RFC3339, *s)
	if err != nil {
		return nil, overtime.ErrInvalidDate
	}
	return &t, nil
}

func formatDay(t *time.Time) string {
	if t == nil {
		return ""
	}
	return t.Format(dayFormat)
}

func formatInstant(t *time.Time) string {
	if t == nil {
		return ""
	}
	return t.Format(time.RFC3339)
}
