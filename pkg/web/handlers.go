package web

import (
	"net/http"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v3"

	"github.com/esly-abro/JKhomes-sub000/pkg/engine"
	"github.com/esly-abro/JKhomes-sub000/pkg/events"
	"github.com/esly-abro/JKhomes-sub000/pkg/ingestion"
	"github.com/esly-abro/JKhomes-sub000/pkg/models"
	"github.com/esly-abro/JKhomes-sub000/pkg/persistence"
	"github.com/esly-abro/JKhomes-sub000/pkg/services"
)

type APIHandlers struct {
	workflowService *services.Workflow
	persistence     persistence.Persistence
	engine          *engine.Engine
	ingestor        *ingestion.Ingestor
	validator       *validator.Validate
}

func NewAPIHandlers(
	workflowService *services.Workflow,
	p persistence.Persistence,
	eng *engine.Engine,
	ingestor *ingestion.Ingestor,
	v *validator.Validate,
) *APIHandlers {
	return &APIHandlers{
		workflowService: workflowService,
		persistence:     p,
		engine:          eng,
		ingestor:        ingestor,
		validator:       v,
	}
}

func (h *APIHandlers) CreateWorkflow(c fiber.Ctx) error {
	var req CreateWorkflowRequest
	if err := c.Bind().JSON(&req); err != nil {
		return badRequest(c, "Invalid JSON format")
	}

	if err := h.validator.Struct(req); err != nil {
		return badRequest(c, err.Error())
	}

	def := &models.WorkflowDefinition{
		TenantID: req.TenantID,
		Name:     req.Name,
		Nodes:    req.Nodes,
		Edges:    req.Edges,
	}

	created, err := h.workflowService.Create(c.Context(), def)
	if err != nil {
		return handleServiceError(c, err)
	}

	return c.Status(fiber.StatusCreated).JSON(created)
}

func (h *APIHandlers) GetWorkflows(c fiber.Ctx) error {
	tenantID := c.Query("tenant_id")
	if tenantID == "" {
		return badRequest(c, "tenant_id query parameter is required")
	}

	workflows, err := h.workflowService.List(c.Context(), tenantID)
	if err != nil {
		return handleServiceError(c, err)
	}

	return c.JSON(fiber.Map{"workflows": workflows})
}

func (h *APIHandlers) GetWorkflow(c fiber.Ctx) error {
	id := c.Params("id")
	if id == "" {
		return badRequest(c, "Workflow ID is required")
	}

	def, err := h.workflowService.FetchByID(c.Context(), id)
	if err != nil {
		return handleServiceError(c, err)
	}

	return c.JSON(def)
}

func (h *APIHandlers) PublishWorkflow(c fiber.Ctx) error {
	id := c.Params("id")
	if id == "" {
		return badRequest(c, "Workflow ID is required")
	}

	def, err := h.workflowService.Publish(c.Context(), id)
	if err != nil {
		return handleServiceError(c, err)
	}

	return c.JSON(def)
}

func (h *APIHandlers) ArchiveWorkflow(c fiber.Ctx) error {
	id := c.Params("id")
	if id == "" {
		return badRequest(c, "Workflow ID is required")
	}

	def, err := h.workflowService.Archive(c.Context(), id)
	if err != nil {
		return handleServiceError(c, err)
	}

	return c.JSON(def)
}

func (h *APIHandlers) CreateWorkflowVersion(c fiber.Ctx) error {
	id := c.Params("id")
	if id == "" {
		return badRequest(c, "Workflow ID is required")
	}

	draft, err := h.workflowService.NewVersion(c.Context(), id)
	if err != nil {
		return handleServiceError(c, err)
	}

	return c.Status(fiber.StatusCreated).JSON(draft)
}

// CancelWorkflowInstances is the explicit opt-in mass cancellation. Archiving
// alone never touches running instances.
func (h *APIHandlers) CancelWorkflowInstances(c fiber.Ctx) error {
	id := c.Params("id")
	if id == "" {
		return badRequest(c, "Workflow ID is required")
	}

	cancelled, err := h.engine.CancelInstances(c.Context(), id)
	if err != nil {
		return internalError(c, err)
	}

	return c.JSON(fiber.Map{"cancelled": cancelled})
}

func (h *APIHandlers) GetInstance(c fiber.Ctx) error {
	id := c.Params("id")
	if id == "" {
		return badRequest(c, "Instance ID is required")
	}

	instance, err := h.persistence.InstanceRepository().GetByID(c.Context(), id)
	if err != nil {
		return handleServiceError(c, err)
	}

	resp := toInstanceResponse(instance)

	// Best effort enrichment; a missing definition leaves the node fields
	// empty rather than failing the lookup.
	if def, defErr := h.persistence.WorkflowRepository().GetByID(c.Context(), instance.WorkflowID); defErr == nil {
		if node := def.NodeByID(instance.CurrentNodeID); node != nil {
			resp.CurrentNodeName = node.Name
			resp.CurrentNodeKind = node.Kind
		}
	}

	return c.JSON(resp)
}

func (h *APIHandlers) GetLeadActivities(c fiber.Ctx) error {
	leadID := c.Params("id")

	tenantID := c.Query("tenant_id")
	if tenantID == "" {
		return badRequest(c, "tenant_id query parameter is required")
	}

	activities, err := h.persistence.ActivityRepository().ListByLead(c.Context(), tenantID, leadID)
	if err != nil {
		return internalError(c, err)
	}

	return c.JSON(fiber.Map{"activities": activities})
}

// IngestEvent accepts a generic lead-domain event.
func (h *APIHandlers) IngestEvent(c fiber.Ctx) error {
	var req EventRequest
	if err := c.Bind().JSON(&req); err != nil {
		return badRequest(c, "Invalid JSON format")
	}

	if err := h.validator.Struct(req); err != nil {
		return badRequest(c, err.Error())
	}

	accepted, err := h.ingestor.Ingest(c.Context(), ingestion.InboundEvent{
		TenantID:       req.TenantID,
		LeadID:         req.LeadID,
		EventType:      events.EventType(req.EventType),
		Payload:        req.Payload,
		IdempotencyKey: req.IdempotencyKey,
		OccurredAt:     req.OccurredAt,
	})
	if err != nil {
		if ingestion.IsInvalid(err) {
			return badRequest(c, err.Error())
		}

		return internalError(c, err)
	}

	if !accepted {
		return c.Status(fiber.StatusOK).JSON(fiber.Map{"status": "duplicate"})
	}

	return c.Status(fiber.StatusAccepted).JSON(fiber.Map{"status": "accepted"})
}

// WhatsAppWebhook receives inbound reply notifications from the messaging
// provider.
func (h *APIHandlers) WhatsAppWebhook(c fiber.Ctx) error {
	return h.providerWebhook(c, ingestion.NormalizeWhatsAppWebhook)
}

// CallWebhook receives call completion notifications from the telephony
// provider.
func (h *APIHandlers) CallWebhook(c fiber.Ctx) error {
	return h.providerWebhook(c, ingestion.NormalizeCallWebhook)
}

func (h *APIHandlers) providerWebhook(c fiber.Ctx, normalize func(string, map[string]any) (ingestion.InboundEvent, error)) error {
	var req WebhookRequest
	if err := c.Bind().JSON(&req); err != nil {
		return badRequest(c, "Invalid JSON format")
	}

	if err := h.validator.Struct(req); err != nil {
		return badRequest(c, err.Error())
	}

	inbound, err := normalize(req.TenantID, req.Payload)
	if err != nil {
		return badRequest(c, err.Error())
	}

	accepted, err := h.ingestor.Ingest(c.Context(), inbound)
	if err != nil {
		if ingestion.IsInvalid(err) {
			return badRequest(c, err.Error())
		}

		return internalError(c, err)
	}

	if !accepted {
		return c.Status(fiber.StatusOK).JSON(fiber.Map{"status": "duplicate"})
	}

	return c.Status(fiber.StatusAccepted).JSON(fiber.Map{"status": "accepted"})
}

func (h *APIHandlers) HealthCheck(c fiber.Ctx) error {
	err := h.persistence.HealthCheck(c.Context())

	status := "healthy"
	httpStatus := http.StatusOK

	if err != nil {
		status = "unhealthy"
		httpStatus = http.StatusInternalServerError
	}

	return c.Status(httpStatus).JSON(fiber.Map{
		"status":    status,
		"timestamp": time.Now().UTC(),
	})
}
