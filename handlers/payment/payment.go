package payment

import (
	"strconv"

	"github.com/gofiber/fiber/v2"
	"github.com/prepnest/prepnest-api/services"
	"github.com/prepnest/prepnest-api/utils/middleware"
	"github.com/prepnest/prepnest-api/utils/response"
	"github.com/prepnest/prepnest-api/utils/validation"
)

// PaymentHandler handles the payment lifecycle endpoints
type PaymentHandler struct {
	payments  *services.PaymentService
	validator *validation.Validator
}

// NewPaymentHandler creates a new payment handler
func NewPaymentHandler(payments *services.PaymentService) *PaymentHandler {
	return &PaymentHandler{
		payments:  payments,
		validator: validation.NewValidator(),
	}
}

// InitiateRequest starts a course purchase
type InitiateRequest struct {
	CourseID uint    `json:"course_id" validate:"required"`
	Amount   float64 `json:"amount" validate:"required,gt=0"`
}

// Initiate handles POST /api/v1/payments/initiate
func (h *PaymentHandler) Initiate(c *fiber.Ctx) error {
	userID, ok := middleware.GetUserID(c)
	if !ok {
		return response.Unauthorized(c, "User not authenticated")
	}

	var req InitiateRequest
	if err := c.BodyParser(&req); err != nil {
		return response.BadRequest(c, "Invalid request body")
	}
	if err := h.validator.ValidateStruct(req); err != nil {
		return response.ValidationError(c, err)
	}

	result, err := h.payments.Initiate(c.Context(), userID, req.CourseID, req.Amount)
	if err != nil {
		return response.FromAppError(c, err)
	}

	return response.Created(c, result)
}

// Webhook handles POST /api/v1/payments/webhook.
// Public endpoint; authentication is the HMAC signature over the raw body.
func (h *PaymentHandler) Webhook(c *fiber.Ctx) error {
	signature := c.Get("x-webhook-signature")
	if signature == "" {
		return response.Unauthorized(c, "Missing webhook signature")
	}

	// Body() is the raw bytes the signature was computed over
	if err := h.payments.HandleWebhook(c.Context(), c.Body(), signature); err != nil {
		return response.FromAppError(c, err)
	}

	return response.Success(c, fiber.Map{"message": "ok"})
}

// Verify handles POST /api/v1/payments/:order_id/verify.
// Client-side poll for when the webhook has not landed yet.
func (h *PaymentHandler) Verify(c *fiber.Ctx) error {
	userID, ok := middleware.GetUserID(c)
	if !ok {
		return response.Unauthorized(c, "User not authenticated")
	}

	orderID := c.Params("order_id")
	if orderID == "" {
		return response.BadRequest(c, "Order ID is required")
	}

	if err := h.payments.VerifyOrder(c.Context(), orderID, userID); err != nil {
		return response.FromAppError(c, err)
	}

	return response.Success(c, fiber.Map{"message": "Payment confirmed and enrollment created"})
}

// List handles GET /api/v1/payments
func (h *PaymentHandler) List(c *fiber.Ctx) error {
	userID, ok := middleware.GetUserID(c)
	if !ok {
		return response.Unauthorized(c, "User not authenticated")
	}

	payments, err := h.payments.ListForUser(c.Context(), userID)
	if err != nil {
		return response.FromAppError(c, err)
	}

	return response.Success(c, payments)
}

// Invoice handles GET /api/v1/payments/:id/invoice
func (h *PaymentHandler) Invoice(c *fiber.Ctx) error {
	userID, ok := middleware.GetUserID(c)
	if !ok {
		return response.Unauthorized(c, "User not authenticated")
	}

	paymentID, err := strconv.ParseUint(c.Params("id"), 10, 32)
	if err != nil {
		return response.BadRequest(c, "Invalid payment ID")
	}

	payment, err := h.payments.GetInvoice(c.Context(), uint(paymentID), userID)
	if err != nil {
		return response.FromAppError(c, err)
	}

	return response.Success(c, fiber.Map{
		"invoice_no":   payment.InvoiceNo,
		"payer_name":   payment.PayerName,
		"course":       payment.Course.Title,
		"base_price":   payment.BasePrice,
		"tax":          payment.Tax,
		"total":        payment.Total,
		"currency":     payment.Currency,
		"purchased_at": payment.PurchasedAt,
	})
}
