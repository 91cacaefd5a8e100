package handler

import (
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"

	"clinic-appointment-service/internal/delivery/dto"
	"clinic-appointment-service/internal/service"
	"clinic-appointment-service/internal/usecase"
	"clinic-appointment-service/pkg/response"
	"clinic-appointment-service/pkg/validator"

	"github.com/sirupsen/logrus"
)

const stripeSignatureHeader = "Stripe-Signature"

type PaymentHandler struct {
	paymentUsecase usecase.PaymentUsecase
	validator      *validator.CustomValidator
	log            *logrus.Logger
}

func NewPaymentHandler(paymentUsecase usecase.PaymentUsecase, validator *validator.CustomValidator, log *logrus.Logger) *PaymentHandler {
	return &PaymentHandler{
		paymentUsecase: paymentUsecase,
		validator:      validator,
		log:            log,
	}
}

func (h *PaymentHandler) CreateCheckoutSession(w http.ResponseWriter, r *http.Request) {
	requester, ok := requesterFromRequest(w, r)
	if !ok {
		return
	}

	var req dto.CreateCheckoutSessionRequest
	if !bindJSON(w, r, h.validator, &req) {
		return
	}

	session, err := h.paymentUsecase.CreateCheckoutSession(r.Context(), requester, &req)
	if err != nil {
		writeAppointmentError(w, err, "Failed to create checkout session")
		return
	}

	response.Success(w, http.StatusCreated, "Checkout session created", session)
}

// VerifyPayment confirms a checkout session after the redirect back from the gateway
func (h *PaymentHandler) VerifyPayment(w http.ResponseWriter, r *http.Request) {
	requester, ok := requesterFromRequest(w, r)
	if !ok {
		return
	}

	var req dto.ConfirmPaymentRequest
	if !bindJSON(w, r, h.validator, &req) {
		return
	}

	result, err := h.paymentUsecase.ConfirmPayment(r.Context(), requester, &req)
	if err != nil {
		writeAppointmentError(w, err, "Failed to verify payment")
		return
	}

	if !result.Paid {
		response.Success(w, http.StatusOK, "Payment not completed", result)
		return
	}
	response.Success(w, http.StatusOK, "Payment successful", result)
}

// Webhook receives gateway events. The raw body is needed for signature checks.
func (h *PaymentHandler) Webhook(w http.ResponseWriter, r *http.Request) {
	payload, err := io.ReadAll(http.MaxBytesReader(w, r.Body, maxWebhookPayload))
	if err != nil {
		response.BadRequest(w, "Unable to read request body")
		return
	}

	err = h.paymentUsecase.HandleWebhook(r.Context(), payload, r.Header.Get(stripeSignatureHeader))
	if err != nil {
		switch {
		case errors.Is(err, service.ErrMissingWebhookSignature), errors.Is(err, service.ErrInvalidSignature):
			h.log.Warnf("Rejected payment webhook: %v", err)
			response.BadRequest(w, "Invalid signature")
		default:
			h.log.Warnf("Failed to handle payment webhook: %+v", err)
			response.InternalServerError(w, "Failed to handle webhook")
		}
		return
	}

	response.Success(w, http.StatusOK, "Webhook received", nil)
}

// GetReceipt streams the PDF receipt of a paid appointment.
func (h *PaymentHandler) GetReceipt(w http.ResponseWriter, r *http.Request) {
	requester, ok := requesterFromRequest(w, r)
	if !ok {
		return
	}
	appointmentID, ok := uuidVar(w, r, "id", "appointment")
	if !ok {
		return
	}

	receipt, err := h.paymentUsecase.GetReceipt(r.Context(), requester, appointmentID)
	if err != nil {
		writeAppointmentError(w, err, "Failed to generate receipt")
		return
	}

	w.Header().Set("Content-Type", "application/pdf")
	w.Header().Set("Content-Disposition", fmt.Sprintf(`attachment; filename="receipt-%s.pdf"`, appointmentID))
	w.Header().Set("Content-Length", strconv.Itoa(len(receipt)))
	w.WriteHeader(http.StatusOK)
	if _, err := w.Write(receipt); err != nil {
		h.log.Warnf("Failed to write receipt: %+v", err)
	}
}
