package service

import (
	"context"
	"sync"
	"time"

	"github.com/jackc/pgx/v5"

	"github.com/spec-kit/appointment-service/internal/domain"
	apperrors "github.com/spec-kit/appointment-service/pkg/util/errorutil"
)

type fakeUsers struct {
	users map[int64]*domain.User
}

func newFakeUsers(users ...domain.User) *fakeUsers {
	f := &fakeUsers{users: make(map[int64]*domain.User)}
	for i := range users {
		u := users[i]
		f.users[u.ID] = &u
	}
	return f
}

func (f *fakeUsers) GetByID(_ context.Context, id int64) (*domain.User, error) {
	u, ok := f.users[id]
	if !ok {
		return nil, pgx.ErrNoRows
	}
	cp := *u
	return &cp, nil
}

func (f *fakeUsers) IsProvider(_ context.Context, id int64) (bool, error) {
	u, ok := f.users[id]
	return ok && u.Provider, nil
}

func (f *fakeUsers) Exists(_ context.Context, id int64) (bool, error) {
	_, ok := f.users[id]
	return ok, nil
}

// memAppointments mimics the appointments table including its partial unique index.
type memAppointments struct {
	mu     sync.Mutex
	users  *fakeUsers
	rows   map[int64]*domain.Appointment
	nextID int64
	mails  []domain.Mail
}

func newMemAppointments(users *fakeUsers) *memAppointments {
	return &memAppointments{users: users, rows: make(map[int64]*domain.Appointment)}
}

func (m *memAppointments) Create(_ context.Context, appt *domain.Appointment) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, row := range m.rows {
		if row.ProviderID == appt.ProviderID && row.Date.Equal(appt.Date) && row.CanceledAt == nil {
			return apperrors.ErrSlotTaken
		}
	}
	m.nextID++
	appt.ID = m.nextID
	cp := *appt
	m.rows[cp.ID] = &cp
	return nil
}

func (m *memAppointments) GetByID(ctx context.Context, id int64) (*domain.Appointment, error) {
	m.mu.Lock()
	row, ok := m.rows[id]
	var cp domain.Appointment
	if ok {
		cp = *row
	}
	m.mu.Unlock()
	if !ok {
		return nil, pgx.ErrNoRows
	}
	cp.Provider, _ = m.users.GetByID(ctx, cp.ProviderID)
	cp.User, _ = m.users.GetByID(ctx, cp.UserID)
	return &cp, nil
}

func (m *memAppointments) SlotOccupied(_ context.Context, providerID int64, hourStart time.Time) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, row := range m.rows {
		if row.ProviderID == providerID && row.Date.Equal(hourStart) && row.CanceledAt == nil {
			return true, nil
		}
	}
	return false, nil
}

func (m *memAppointments) ListActiveByUser(_ context.Context, userID int64, limit, offset int) ([]domain.Appointment, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var active []domain.Appointment
	for _, row := range m.rows {
		if row.UserID == userID && row.CanceledAt == nil {
			active = append(active, *row)
		}
	}
	for i := 1; i < len(active); i++ {
		for j := i; j > 0 && active[j].Date.Before(active[j-1].Date); j-- {
			active[j], active[j-1] = active[j-1], active[j]
		}
	}
	result := []domain.Appointment{}
	for i := offset; i < len(active) && i < offset+limit; i++ {
		result = append(result, active[i])
	}
	return result, nil
}

func (m *memAppointments) MarkCanceled(_ context.Context, id int64, now time.Time, mail *domain.Mail) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	row, ok := m.rows[id]
	if !ok || row.CanceledAt != nil {
		return false, nil
	}
	row.CanceledAt = &now
	row.UpdatedAt = now
	if mail != nil {
		m.mails = append(m.mails, *mail)
	}
	return true, nil
}

func (m *memAppointments) get(id int64) domain.Appointment {
	m.mu.Lock()
	defer m.mu.Unlock()
	return *m.rows[id]
}

type memNotifications struct {
	mu   sync.Mutex
	rows []domain.Notification
	err  error
}

func (m *memNotifications) Create(_ context.Context, n *domain.Notification) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return m.err
	}
	n.ID = int64(len(m.rows) + 1)
	m.rows = append(m.rows, *n)
	return nil
}

type noopLocker struct{}

func (noopLocker) Acquire(context.Context, string) (func(), error) { return func() {}, nil }
