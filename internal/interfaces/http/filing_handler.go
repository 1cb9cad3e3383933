package http

import (
	"errors"
	"time"

	"github.com/gofiber/fiber/v2"

	appfiling "github.com/tu-usuario/filing-pro/internal/application/filing"
	"github.com/tu-usuario/filing-pro/internal/domain/entity"
	"github.com/tu-usuario/filing-pro/internal/domain/filing"
	"github.com/tu-usuario/filing-pro/internal/domain/repository"
)

// ErrorResponse is the uniform error body of the admin API.
type ErrorResponse struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

// FilingResponse is the read model of a submission. The payload snapshot is
// deliberately omitted; it can be megabytes of XML.
type FilingResponse struct {
	ID                 string    `json:"id"`
	SubjectID          string    `json:"subject_id"`
	Status             string    `json:"status"`
	Attempts           uint32    `json:"attempts"`
	RejectionCode      string    `json:"rejection_code,omitempty"`
	RejectionMessage   string    `json:"rejection_message,omitempty"`
	ReceiptID          string    `json:"receipt_id,omitempty"`
	Filename           string    `json:"filename,omitempty"`
	TotalConsideration string    `json:"total_consideration"`
	CreatedAt          time.Time `json:"created_at"`
	UpdatedAt          time.Time `json:"updated_at"`
}

func toFilingResponse(sub *entity.FilingSubmission) FilingResponse {
	return FilingResponse{
		ID:                 sub.ID,
		SubjectID:          sub.SubjectID,
		Status:             sub.Status,
		Attempts:           sub.Attempts,
		RejectionCode:      sub.RejectionCode,
		RejectionMessage:   sub.RejectionMessage,
		ReceiptID:          sub.ReceiptID,
		Filename:           sub.Filename,
		TotalConsideration: sub.TotalConsideration.String(),
		CreatedAt:          sub.CreatedAt,
		UpdatedAt:          sub.UpdatedAt,
	}
}

// FilingHandler exposes the operational admin surface over submissions:
// inspect status, kick off a filing, retry a rejected one. This is an
// operator tool, not the end-user API.
type FilingHandler struct {
	repo repository.SubmissionRepository
	orch *appfiling.Orchestrator
}

// NewFilingHandler builds the handler.
func NewFilingHandler(repo repository.SubmissionRepository, orch *appfiling.Orchestrator) *FilingHandler {
	return &FilingHandler{repo: repo, orch: orch}
}

// List returns submissions, optionally filtered by status.
// GET /api/admin/filings?status=REJECTED&status=NEEDS_REVIEW
func (h *FilingHandler) List(c *fiber.Ctx) error {
	var statuses []string
	if q := c.Query("status"); q != "" {
		statuses = append(statuses, q)
	}
	subs, err := h.repo.ListByStatus(c.Context(), statuses...)
	if err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(ErrorResponse{Code: "INTERNAL", Message: err.Error()})
	}
	out := make([]FilingResponse, 0, len(subs))
	for _, sub := range subs {
		out = append(out, toFilingResponse(sub))
	}
	return c.JSON(out)
}

// GetByID returns one submission by id, falling back to the subject id so
// operators can look up either.
// GET /api/admin/filings/:id
func (h *FilingHandler) GetByID(c *fiber.Ctx) error {
	id := c.Params("id")
	if id == "" {
		return c.Status(fiber.StatusBadRequest).JSON(ErrorResponse{Code: "VALIDATION", Message: "id required"})
	}
	sub, err := h.repo.GetByID(c.Context(), id)
	if errors.Is(err, repository.ErrNotFound) {
		sub, err = h.repo.GetBySubject(c.Context(), id)
	}
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return c.Status(fiber.StatusNotFound).JSON(ErrorResponse{Code: "NOT_FOUND", Message: "filing not found"})
		}
		return c.Status(fiber.StatusInternalServerError).JSON(ErrorResponse{Code: "INTERNAL", Message: err.Error()})
	}
	return c.JSON(toFilingResponse(sub))
}

type submitRequest struct {
	SubjectID string `json:"subject_id"`
}

// Submit kicks off the filing pipeline for a subject. The work runs
// asynchronously; poll the filing status for the outcome.
// POST /api/admin/filings
func (h *FilingHandler) Submit(c *fiber.Ctx) error {
	var in submitRequest
	if err := c.BodyParser(&in); err != nil || in.SubjectID == "" {
		return c.Status(fiber.StatusBadRequest).JSON(ErrorResponse{Code: "VALIDATION", Message: "subject_id required"})
	}
	h.orch.SubmitAsync(in.SubjectID)
	return c.Status(fiber.StatusAccepted).JSON(fiber.Map{"subject_id": in.SubjectID, "status": "submitting"})
}

// Retry re-queues a rejected or needs-review filing.
// POST /api/admin/filings/:id/retry
func (h *FilingHandler) Retry(c *fiber.Ctx) error {
	id := c.Params("id")
	sub, err := h.repo.GetByID(c.Context(), id)
	if errors.Is(err, repository.ErrNotFound) {
		sub, err = h.repo.GetBySubject(c.Context(), id)
	}
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return c.Status(fiber.StatusNotFound).JSON(ErrorResponse{Code: "NOT_FOUND", Message: "filing not found"})
		}
		return c.Status(fiber.StatusInternalServerError).JSON(ErrorResponse{Code: "INTERNAL", Message: err.Error()})
	}
	switch sub.Status {
	case entity.StatusAccepted:
		return c.Status(fiber.StatusConflict).JSON(ErrorResponse{Code: "TERMINAL", Message: filing.ErrTerminal.Error()})
	case entity.StatusQueued, entity.StatusSubmitted:
		return c.Status(fiber.StatusConflict).JSON(ErrorResponse{Code: "IN_FLIGHT", Message: filing.ErrSubmissionInFlight.Error()})
	}
	h.orch.SubmitAsync(sub.SubjectID)
	return c.Status(fiber.StatusAccepted).JSON(fiber.Map{"subject_id": sub.SubjectID, "status": "retrying"})
}
