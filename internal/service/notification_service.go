package service

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"github.com/goodsign/monday"
	"go.uber.org/zap"

	"github.com/spec-kit/appointment-service/internal/domain"
	"github.com/spec-kit/appointment-service/internal/events"
	"github.com/spec-kit/appointment-service/internal/observability"
	"github.com/spec-kit/appointment-service/internal/repository"
)

type localeFormat struct {
	locale monday.Locale
	// dateLayout covers day and month; dateTime joins it with the unpadded clock.
	dateLayout    string
	dateTime      string
	bookedMessage string
	cancelSubject string
}

var localeFormats = map[string]localeFormat{
	"pt_BR": {
		locale:        monday.LocalePtBR,
		dateLayout:    "02 de January",
		dateTime:      "%s, às %sh",
		bookedMessage: "Novo agendamento de %s para o dia %s",
		cancelSubject: "Agendamento cancelado",
	},
	"en_US": {
		locale:        monday.LocaleEnUS,
		dateLayout:    "January 02",
		dateTime:      "%s, at %sh",
		bookedMessage: "New appointment of %s at %s",
		cancelSubject: "Appointment canceled",
	},
}

// NotificationService composes booking notices and cancellation mail.
type NotificationService struct {
	dispatcher    events.Dispatcher
	users         repository.UserRepository
	notifications repository.NotificationRepository
	metrics       *observability.Metrics
	logger        *zap.Logger
	format        localeFormat
	loc           *time.Location
}

// NotificationDependencies bundles collaborators for the notification service.
type NotificationDependencies struct {
	Dispatcher       events.Dispatcher
	UserRepo         repository.UserRepository
	NotificationRepo repository.NotificationRepository
	Metrics          *observability.Metrics
	Logger           *zap.Logger
	Locale           string
	Location         *time.Location
}

// NewNotificationService creates the service. Unknown locales fall back to pt_BR.
func NewNotificationService(deps NotificationDependencies) *NotificationService {
	format, ok := localeFormats[deps.Locale]
	if !ok {
		format = localeFormats["pt_BR"]
	}
	logger := deps.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	loc := deps.Location
	if loc == nil {
		loc = time.UTC
	}
	return &NotificationService{
		dispatcher:    deps.Dispatcher,
		users:         deps.UserRepo,
		notifications: deps.NotificationRepo,
		metrics:       deps.Metrics,
		logger:        logger,
		format:        format,
		loc:           loc,
	}
}

// RegisterHandlers subscribes to events.
func (n *NotificationService) RegisterHandlers() {
	if n.dispatcher == nil {
		return
	}
	n.dispatcher.Subscribe(events.EventAppointmentBooked, n.handleAppointmentBooked)
	n.dispatcher.Subscribe(events.EventAppointmentCanceled, n.handleAppointmentCanceled)
}

// FormatDate renders t with the locale's month names and an unpadded hour,
// e.g. "10 de março, às 9:00h".
func (n *NotificationService) FormatDate(t time.Time) string {
	t = t.In(n.loc)
	clock := strconv.Itoa(t.Hour()) + t.Format(":04")
	return fmt.Sprintf(n.format.dateTime, monday.Format(t, n.format.dateLayout, n.format.locale), clock)
}

// BookedContent is the provider-facing notice for a new booking.
func (n *NotificationService) BookedContent(customerName string, date time.Time) string {
	return fmt.Sprintf(n.format.bookedMessage, customerName, n.FormatDate(date))
}

// OnBooked stores the provider notification for appt.
func (n *NotificationService) OnBooked(ctx context.Context, appt *domain.Appointment, customerName string) error {
	notification := &domain.Notification{
		Content: n.BookedContent(customerName, appt.Date),
		UserID:  appt.ProviderID,
	}
	if err := n.notifications.Create(ctx, notification); err != nil {
		n.metrics.RecordNotification("booking", "failed")
		return fmt.Errorf("create booking notification for appointment %d: %w", appt.ID, err)
	}
	n.metrics.RecordNotification("booking", "stored")
	return nil
}

// CancellationMail builds the provider-facing email queued when appt is canceled.
// appt must carry its Provider and User.
func (n *NotificationService) CancellationMail(appt *domain.Appointment) domain.Mail {
	var provider, user domain.User
	if appt.Provider != nil {
		provider = *appt.Provider
	}
	if appt.User != nil {
		user = *appt.User
	}
	return domain.Mail{
		To:       provider.Email,
		ToName:   provider.Name,
		Subject:  n.format.cancelSubject,
		Template: domain.MailTemplateCancellation,
		Context: map[string]string{
			"provider": provider.Name,
			"user":     user.Name,
			"date":     n.FormatDate(appt.Date),
		},
	}
}

func (n *NotificationService) handleAppointmentBooked(ctx context.Context, event events.Event) error {
	payload, ok := event.Payload.(events.AppointmentBookedPayload)
	if !ok {
		return fmt.Errorf("unexpected payload %T for %s", event.Payload, event.Type)
	}

	customerName := "?"
	customer, err := n.users.GetByID(ctx, payload.UserID)
	if err != nil {
		n.logger.Warn("customer lookup failed for booking notification",
			zap.Int64("appointment_id", event.AppointmentID),
			zap.Int64("user_id", payload.UserID),
			zap.Error(err))
	} else {
		customerName = customer.Name
	}

	appt := &domain.Appointment{
		ID:         event.AppointmentID,
		UserID:     payload.UserID,
		ProviderID: payload.ProviderID,
		Date:       payload.Date,
	}
	if err := n.OnBooked(ctx, appt, customerName); err != nil {
		n.logger.Warn("booking notification not stored",
			zap.Int64("appointment_id", appt.ID),
			zap.Int64("provider_id", appt.ProviderID),
			zap.Error(err))
		return nil
	}
	n.logger.Debug("booking notification stored",
		zap.Int64("appointment_id", appt.ID),
		zap.Int64("provider_id", appt.ProviderID))
	return nil
}

func (n *NotificationService) handleAppointmentCanceled(_ context.Context, event events.Event) error {
	n.logger.Info("AppointmentCanceled",
		zap.Int64("appointment_id", event.AppointmentID),
		zap.Int64("actor_id", event.ActorID))
	return nil
}
