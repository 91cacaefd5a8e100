package handler

import (
	"context"

	"clinic-appointment-service/config"
	"clinic-appointment-service/internal/delivery/dto"
	"clinic-appointment-service/internal/domain/entity"
	"clinic-appointment-service/internal/usecase"

	"github.com/google/uuid"
	"github.com/stretchr/testify/mock"
)

type mockBooking struct {
	mock.Mock
}

var _ usecase.AppointmentBookingUsecase = (*mockBooking)(nil)

func (m *mockBooking) BookAppointment(ctx context.Context, requester entity.Requester, req *dto.BookAppointmentRequest) (*dto.AppointmentResponse, error) {
	args := m.Called(ctx, requester, req)
	return appointmentResult(args)
}

func (m *mockBooking) GetAppointment(ctx context.Context, requester entity.Requester, appointmentID uuid.UUID) (*dto.AppointmentResponse, error) {
	args := m.Called(ctx, requester, appointmentID)
	return appointmentResult(args)
}

func (m *mockBooking) GetMyAppointments(ctx context.Context, requester entity.Requester) (*dto.AppointmentListResponse, error) {
	args := m.Called(ctx, requester)
	return listResult(args)
}

func (m *mockBooking) GetDoctorAppointments(ctx context.Context, requester entity.Requester) (*dto.AppointmentListResponse, error) {
	args := m.Called(ctx, requester)
	return listResult(args)
}

func (m *mockBooking) GetAllAppointments(ctx context.Context, req *dto.AppointmentListRequest) (*dto.AppointmentListResponse, error) {
	args := m.Called(ctx, req)
	return listResult(args)
}

func (m *mockBooking) GetBookedSlots(ctx context.Context, doctorID uuid.UUID) (*dto.BookedSlotsResponse, error) {
	args := m.Called(ctx, doctorID)
	if v := args.Get(0); v != nil {
		return v.(*dto.BookedSlotsResponse), args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *mockBooking) CheckSlot(ctx context.Context, slot entity.Slot) (*dto.SlotAvailabilityResponse, error) {
	args := m.Called(ctx, slot)
	if v := args.Get(0); v != nil {
		return v.(*dto.SlotAvailabilityResponse), args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *mockBooking) ReleaseStaleSlot(ctx context.Context, requester entity.Requester, slot entity.Slot) error {
	return m.Called(ctx, requester, slot).Error(0)
}

type mockLifecycle struct {
	mock.Mock
}

var _ usecase.AppointmentLifecycleUsecase = (*mockLifecycle)(nil)

func (m *mockLifecycle) MarkPaid(ctx context.Context, appointmentID uuid.UUID, ref entity.PaymentReference) (*dto.AppointmentResponse, error) {
	args := m.Called(ctx, appointmentID, ref)
	return appointmentResult(args)
}

func (m *mockLifecycle) Cancel(ctx context.Context, requester entity.Requester, appointmentID uuid.UUID) (*dto.AppointmentResponse, error) {
	args := m.Called(ctx, requester, appointmentID)
	return appointmentResult(args)
}

func (m *mockLifecycle) Complete(ctx context.Context, requester entity.Requester, appointmentID uuid.UUID) (*dto.AppointmentResponse, error) {
	args := m.Called(ctx, requester, appointmentID)
	return appointmentResult(args)
}

type mockPayment struct {
	mock.Mock
}

var _ usecase.PaymentUsecase = (*mockPayment)(nil)

func (m *mockPayment) CreateCheckoutSession(ctx context.Context, requester entity.Requester, req *dto.CreateCheckoutSessionRequest) (*dto.CheckoutSessionResponse, error) {
	args := m.Called(ctx, requester, req)
	if v := args.Get(0); v != nil {
		return v.(*dto.CheckoutSessionResponse), args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *mockPayment) ConfirmPayment(ctx context.Context, requester entity.Requester, req *dto.ConfirmPaymentRequest) (*dto.PaymentConfirmationResponse, error) {
	args := m.Called(ctx, requester, req)
	if v := args.Get(0); v != nil {
		return v.(*dto.PaymentConfirmationResponse), args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *mockPayment) HandleWebhook(ctx context.Context, payload []byte, signature string) error {
	return m.Called(ctx, payload, signature).Error(0)
}

func (m *mockPayment) GetReceipt(ctx context.Context, requester entity.Requester, appointmentID uuid.UUID) ([]byte, error) {
	args := m.Called(ctx, requester, appointmentID)
	if v := args.Get(0); v != nil {
		return v.([]byte), args.Error(1)
	}
	return nil, args.Error(1)
}

func appointmentResult(args mock.Arguments) (*dto.AppointmentResponse, error) {
	if v := args.Get(0); v != nil {
		return v.(*dto.AppointmentResponse), args.Error(1)
	}
	return nil, args.Error(1)
}

func listResult(args mock.Arguments) (*dto.AppointmentListResponse, error) {
	if v := args.Get(0); v != nil {
		return v.(*dto.AppointmentListResponse), args.Error(1)
	}
	return nil, args.Error(1)
}

type mockAuth struct {
	mock.Mock
}

var _ usecase.AuthUsecase = (*mockAuth)(nil)

func (m *mockAuth) RegisterPatient(ctx context.Context, req *dto.RegisterPatientRequest) (*dto.UserResponse, error) {
	args := m.Called(ctx, req)
	if v := args.Get(0); v != nil {
		return v.(*dto.UserResponse), args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *mockAuth) Login(ctx context.Context, req *dto.LoginRequest) (*dto.TokenResponse, error) {
	args := m.Called(ctx, req)
	return tokenResult(args)
}

func (m *mockAuth) Logout(ctx context.Context, userID uuid.UUID, accessTokenID string) error {
	return m.Called(ctx, userID, accessTokenID).Error(0)
}

func (m *mockAuth) RefreshToken(ctx context.Context, req *dto.RefreshTokenRequest) (*dto.TokenResponse, error) {
	args := m.Called(ctx, req)
	return tokenResult(args)
}

func (m *mockAuth) GetCurrentUser(ctx context.Context, userID uuid.UUID) (*dto.UserResponse, error) {
	args := m.Called(ctx, userID)
	if v := args.Get(0); v != nil {
		return v.(*dto.UserResponse), args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *mockAuth) EnsureAdmin(ctx context.Context, cfg config.AdminConfig) error {
	return m.Called(ctx, cfg).Error(0)
}

func tokenResult(args mock.Arguments) (*dto.TokenResponse, error) {
	if v := args.Get(0); v != nil {
		return v.(*dto.TokenResponse), args.Error(1)
	}
	return nil, args.Error(1)
}
