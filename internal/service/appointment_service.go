package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"go.uber.org/zap"

	"github.com/spec-kit/appointment-service/internal/domain"
	"github.com/spec-kit/appointment-service/internal/events"
	"github.com/spec-kit/appointment-service/internal/lock"
	"github.com/spec-kit/appointment-service/internal/observability"
	"github.com/spec-kit/appointment-service/internal/repository"
	apperrors "github.com/spec-kit/appointment-service/pkg/util/errorutil"
)

const (
	defaultPageSize = 20
	maxPageSize     = 100
)

// AppointmentService coordinates booking, listing and cancellation.
type AppointmentService struct {
	users         repository.UserRepository
	appointments  repository.AppointmentRepository
	locker        lock.Locker
	validator     *SlotValidator
	policy        CancellationPolicy
	notifications *NotificationService
	dispatcher    events.Dispatcher
	metrics       *observability.Metrics
	logger        *zap.Logger
	pageSize      int
}

// AppointmentDependencies bundles collaborators for the appointment service.
type AppointmentDependencies struct {
	UserRepo        repository.UserRepository
	AppointmentRepo repository.AppointmentRepository
	Locker          lock.Locker
	Validator       *SlotValidator
	Policy          CancellationPolicy
	Notifications   *NotificationService
	Dispatcher      events.Dispatcher
	Metrics         *observability.Metrics
	Logger          *zap.Logger
	PageSize        int
}

// NewAppointmentService constructs the service.
func NewAppointmentService(deps AppointmentDependencies) *AppointmentService {
	locker := deps.Locker
	if locker == nil {
		locker = lock.NewLocalLocker()
	}
	validator := deps.Validator
	if validator == nil {
		validator = NewSlotValidator(time.UTC)
	}
	policy := deps.Policy
	if policy.cutoff <= 0 {
		policy = NewCancellationPolicy(0)
	}
	logger := deps.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	pageSize := deps.PageSize
	if pageSize <= 0 {
		pageSize = defaultPageSize
	}
	return &AppointmentService{
		users:         deps.UserRepo,
		appointments:  deps.AppointmentRepo,
		locker:        locker,
		validator:     validator,
		policy:        policy,
		notifications: deps.Notifications,
		dispatcher:    deps.Dispatcher,
		metrics:       deps.Metrics,
		logger:        logger,
		pageSize:      min(pageSize, maxPageSize),
	}
}

// Book reserves the hour containing rawDate with providerID for customerID.
func (s *AppointmentService) Book(ctx context.Context, customerID, providerID int64, rawDate string, now time.Time) (*domain.Appointment, error) {
	isProvider, err := s.users.IsProvider(ctx, providerID)
	if err != nil {
		return nil, fmt.Errorf("book: lookup provider %d: %w", providerID, err)
	}
	if !isProvider {
		return nil, s.rejectBooking(apperrors.ErrNotAProvider)
	}

	hour, err := s.validator.Normalize(rawDate, now)
	if err != nil {
		return nil, s.rejectBooking(err)
	}

	release, err := s.locker.Acquire(ctx, lock.SlotKey(providerID, hour))
	if err != nil {
		if errors.Is(err, lock.ErrNotAcquired) {
			return nil, s.rejectBooking(apperrors.ErrSlotTaken)
		}
		return nil, fmt.Errorf("book: lock slot: %w", err)
	}
	defer release()

	taken, err := s.appointments.SlotOccupied(ctx, providerID, hour)
	if err != nil {
		return nil, fmt.Errorf("book: check slot provider=%d date=%s: %w", providerID, hour.Format(time.RFC3339), err)
	}
	if taken {
		return nil, s.rejectBooking(apperrors.ErrSlotTaken)
	}

	appt := &domain.Appointment{
		UserID:     customerID,
		ProviderID: providerID,
		Date:       hour,
		CreatedAt:  now,
		UpdatedAt:  now,
	}
	if err := s.appointments.Create(ctx, appt); err != nil {
		if errors.Is(err, apperrors.ErrSlotTaken) {
			return nil, s.rejectBooking(err)
		}
		return nil, fmt.Errorf("book: create provider=%d user=%d: %w", providerID, customerID, err)
	}
	s.metrics.RecordBooked()

	s.publish(ctx, events.NewEvent(events.EventAppointmentBooked, appt.ID, customerID, now, events.AppointmentBookedPayload{
		UserID:     appt.UserID,
		ProviderID: appt.ProviderID,
		Date:       appt.Date,
	}))
	return appt, nil
}

// ListActive returns the customer's active appointments ordered by date, one page at a time.
func (s *AppointmentService) ListActive(ctx context.Context, customerID int64, page, pageSize int) ([]domain.Appointment, error) {
	isProvider, err := s.users.IsProvider(ctx, customerID)
	if err != nil {
		return nil, fmt.Errorf("list: lookup user %d: %w", customerID, err)
	}
	if isProvider {
		return nil, apperrors.ErrForbidden
	}

	if page < 1 {
		page = 1
	}
	if pageSize <= 0 {
		pageSize = s.pageSize
	}
	if pageSize > maxPageSize {
		pageSize = maxPageSize
	}

	list, err := s.appointments.ListActiveByUser(ctx, customerID, pageSize, (page-1)*pageSize)
	if err != nil {
		return nil, fmt.Errorf("list: user %d page %d: %w", customerID, page, err)
	}
	return list, nil
}

// Cancel moves the requester's appointment to canceled at now and queues the provider email.
func (s *AppointmentService) Cancel(ctx context.Context, requesterID, appointmentID int64, now time.Time) (*domain.Appointment, error) {
	isProvider, err := s.users.IsProvider(ctx, requesterID)
	if err != nil {
		return nil, fmt.Errorf("cancel: lookup user %d: %w", requesterID, err)
	}
	if isProvider {
		return nil, apperrors.ErrForbidden
	}

	appt, err := s.appointments.GetByID(ctx, appointmentID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperrors.ErrAppointmentNotFound
		}
		return nil, fmt.Errorf("cancel: load appointment %d: %w", appointmentID, err)
	}
	if appt.UserID != requesterID {
		return nil, apperrors.ErrForbidden
	}
	if !appt.Active() {
		return nil, apperrors.ErrAlreadyCanceled
	}
	if !s.policy.CanCancel(appt.Date, now) {
		return nil, apperrors.ErrCancellationWindowExpired.WithDetails(map[string]any{
			"cutoff_minutes": int(s.policy.Cutoff().Minutes()),
		})
	}

	release, err := s.locker.Acquire(ctx, lock.AppointmentKey(appointmentID))
	if err != nil {
		if errors.Is(err, lock.ErrNotAcquired) {
			// Another cancel for the same id is still in flight.
			return nil, apperrors.ErrAlreadyCanceled
		}
		return nil, fmt.Errorf("cancel: lock appointment %d: %w", appointmentID, err)
	}
	defer release()

	var mail *domain.Mail
	if s.notifications != nil {
		m := s.notifications.CancellationMail(appt)
		mail = &m
	}
	changed, err := s.appointments.MarkCanceled(ctx, appointmentID, now, mail)
	if err != nil {
		return nil, fmt.Errorf("cancel: mark appointment %d: %w", appointmentID, err)
	}
	if !changed {
		return nil, apperrors.ErrAlreadyCanceled
	}

	appt.Cancel(now)
	appt.UpdatedAt = now
	s.metrics.RecordCanceled()

	s.publish(ctx, events.NewEvent(events.EventAppointmentCanceled, appt.ID, requesterID, now, events.AppointmentCanceledPayload{
		UserID:     appt.UserID,
		ProviderID: appt.ProviderID,
		Date:       appt.Date,
		CanceledAt: now,
	}))
	return appt, nil
}

func (s *AppointmentService) rejectBooking(err error) error {
	var domainErr *apperrors.DomainError
	if errors.As(err, &domainErr) {
		s.metrics.RecordBookingRejected(domainErr.Code)
	}
	return err
}

func (s *AppointmentService) publish(ctx context.Context, event events.Event) {
	if s.dispatcher == nil {
		return
	}
	if err := s.dispatcher.Publish(ctx, event); err != nil {
		s.logger.Warn("event not dispatched",
			zap.String("event_type", string(event.Type)),
			zap.Int64("appointment_id", event.AppointmentID),
			zap.Error(err))
	}
}
