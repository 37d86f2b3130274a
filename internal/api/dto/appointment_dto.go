package dto

import (
	"strings"
	"time"

	"github.com/spec-kit/appointment-service/internal/domain"
)

// WireDateLayout is the zone-less date format used on the wire.
const WireDateLayout = "2006-01-02T15:04:05"

// CreateAppointmentRequest payload.
type CreateAppointmentRequest struct {
	ProviderID int64  `json:"provider_id"`
	Date       string `json:"date"`
}

// AppointmentResponse is returned by create and cancel.
type AppointmentResponse struct {
	ID         int64   `json:"id"`
	UserID     int64   `json:"user_id"`
	ProviderID int64   `json:"provider_id"`
	Date       string  `json:"date"`
	CanceledAt *string `json:"canceled_at,omitempty"`
}

// AvatarResponse points at a provider's avatar file.
type AvatarResponse struct {
	Path string `json:"path"`
	URL  string `json:"url"`
}

// ProviderSummary is the provider embedded in listings.
type ProviderSummary struct {
	ID     int64           `json:"id"`
	Name   string          `json:"name"`
	Avatar *AvatarResponse `json:"avatar"`
}

// AppointmentListItem is one row of the customer's agenda.
type AppointmentListItem struct {
	ID       int64           `json:"id"`
	Date     string          `json:"date"`
	Provider ProviderSummary `json:"provider"`
}

// Presenter renders domain values for the wire.
type Presenter struct {
	Location *time.Location
	FilesURL string
}

// NewPresenter formats dates in loc and builds avatar URLs under baseURL/files.
func NewPresenter(loc *time.Location, baseURL string) Presenter {
	if loc == nil {
		loc = time.UTC
	}
	return Presenter{Location: loc, FilesURL: strings.TrimRight(baseURL, "/") + "/files/"}
}

// Date formats t in the presenter's location.
func (p Presenter) Date(t time.Time) string {
	return t.In(p.Location).Format(WireDateLayout)
}

// Appointment builds the create/cancel response.
func (p Presenter) Appointment(appt *domain.Appointment) AppointmentResponse {
	resp := AppointmentResponse{
		ID:         appt.ID,
		UserID:     appt.UserID,
		ProviderID: appt.ProviderID,
		Date:       p.Date(appt.Date),
	}
	if appt.CanceledAt != nil {
		canceled := p.Date(*appt.CanceledAt)
		resp.CanceledAt = &canceled
	}
	return resp
}

// ListItem builds one listing row.
func (p Presenter) ListItem(appt *domain.Appointment) AppointmentListItem {
	item := AppointmentListItem{
		ID:       appt.ID,
		Date:     p.Date(appt.Date),
		Provider: ProviderSummary{ID: appt.ProviderID},
	}
	if appt.Provider != nil {
		item.Provider.Name = appt.Provider.Name
		if avatar := appt.Provider.Avatar; avatar != nil {
			item.Provider.Avatar = &AvatarResponse{Path: avatar.Path, URL: p.FilesURL + avatar.Path}
		}
	}
	return item
}
