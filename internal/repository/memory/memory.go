// Package memory holds map-backed repositories for service and worker tests.
package memory

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/jwalitptl/appointment-api/internal/model"
	"github.com/jwalitptl/appointment-api/internal/repository"
)

// Store keeps every table in memory. The repositories it hands out share it.
type Store struct {
	mu            sync.Mutex
	doctors       map[uuid.UUID]*model.Doctor
	patients      map[uuid.UUID]*model.Patient
	favorites     map[uuid.UUID][]uuid.UUID
	appointments  map[uuid.UUID]*model.Appointment
	notifications map[uuid.UUID]*model.Notification
	failures      map[string]error
}

func NewStore() *Store {
	return &Store{
		doctors:       make(map[uuid.UUID]*model.Doctor),
		patients:      make(map[uuid.UUID]*model.Patient),
		favorites:     make(map[uuid.UUID][]uuid.UUID),
		appointments:  make(map[uuid.UUID]*model.Appointment),
		notifications: make(map[uuid.UUID]*model.Notification),
		failures:      make(map[string]error),
	}
}

// FailOn makes the named operation (e.g. "notifications.Create") return err.
func (s *Store) FailOn(op string, err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.failures[op] = err
}

func (s *Store) fail(op string) error {
	return s.failures[op]
}

func (s *Store) AddDoctor(d *model.Doctor) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.doctors[d.ID] = d
}

func (s *Store) AddPatient(p *model.Patient) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.patients[p.ID] = p
}

// PutAppointment stores a copy of a as is.
func (s *Store) PutAppointment(a *model.Appointment) {
	s.mu.Lock()
	defer s.mu.Unlock()
	cp := *a
	s.appointments[a.ID] = &cp
}

// PutNotification stores a copy of n as is, keeping its CreatedAt.
func (s *Store) PutNotification(n *model.Notification) {
	s.mu.Lock()
	defer s.mu.Unlock()
	cp := *n
	s.notifications[n.ID] = &cp
}

// Notification returns a copy of the stored record, or nil.
func (s *Store) Notification(id uuid.UUID) *model.Notification {
	s.mu.Lock()
	defer s.mu.Unlock()
	n, ok := s.notifications[id]
	if !ok {
		return nil
	}
	cp := *n
	return &cp
}

// Appointment returns a copy of the stored record, or nil.
func (s *Store) Appointment(id uuid.UUID) *model.Appointment {
	s.mu.Lock()
	defer s.mu.Unlock()
	a, ok := s.appointments[id]
	if !ok {
		return nil
	}
	cp := *a
	return &cp
}

// AllNotifications returns copies of every notification, oldest first.
func (s *Store) AllNotifications() []*model.Notification {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]*model.Notification, 0, len(s.notifications))
	for _, n := range s.notifications {
		cp := *n
		out = append(out, &cp)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.Before(out[j].CreatedAt) })
	return out
}

func (s *Store) AppointmentCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.appointments)
}

func (s *Store) Doctors() repository.DoctorRepository             { return doctorRepo{s} }
func (s *Store) Patients() repository.PatientRepository           { return patientRepo{s} }
func (s *Store) Appointments() repository.AppointmentRepository   { return appointmentRepo{s} }
func (s *Store) Notifications() repository.NotificationRepository { return notificationRepo{s} }

type doctorRepo struct{ s *Store }

func (r doctorRepo) Get(_ context.Context, id uuid.UUID) (*model.Doctor, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if err := r.s.fail("doctors.Get"); err != nil {
		return nil, err
	}
	d, ok := r.s.doctors[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	cp := *d
	return &cp, nil
}

type patientRepo struct{ s *Store }

func (r patientRepo) Get(_ context.Context, id uuid.UUID) (*model.Patient, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if err := r.s.fail("patients.Get"); err != nil {
		return nil, err
	}
	p, ok := r.s.patients[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	cp := *p
	return &cp, nil
}

func (r patientRepo) UpdateFCMToken(_ context.Context, id uuid.UUID, token string) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	p, ok := r.s.patients[id]
	if !ok {
		return repository.ErrNotFound
	}
	p.FCMToken = token
	return nil
}

func (r patientRepo) AddFavorite(_ context.Context, patientID, doctorID uuid.UUID) (bool, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	for _, id := range r.s.favorites[patientID] {
		if id == doctorID {
			return false, nil
		}
	}
	r.s.favorites[patientID] = append(r.s.favorites[patientID], doctorID)
	return true, nil
}

func (r patientRepo) ListFavorites(_ context.Context, patientID uuid.UUID) ([]*model.Doctor, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	var out []*model.Doctor
	for _, id := range r.s.favorites[patientID] {
		if d, ok := r.s.doctors[id]; ok {
			cp := *d
			out = append(out, &cp)
		}
	}
	return out, nil
}

func (r patientRepo) DeleteCascade(_ context.Context, patientID uuid.UUID) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if err := r.s.fail("patients.DeleteCascade"); err != nil {
		return err
	}
	if _, ok := r.s.patients[patientID]; !ok {
		return repository.ErrNotFound
	}
	for id, a := range r.s.appointments {
		if a.PatientID == patientID {
			delete(r.s.appointments, id)
		}
	}
	for id, n := range r.s.notifications {
		if n.PatientID != nil && *n.PatientID == patientID {
			delete(r.s.notifications, id)
		}
	}
	delete(r.s.favorites, patientID)
	delete(r.s.patients, patientID)
	return nil
}

type appointmentRepo struct{ s *Store }

func (r appointmentRepo) Create(_ context.Context, a *model.Appointment) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if err := r.s.fail("appointments.Create"); err != nil {
		return err
	}
	if a.ID == uuid.Nil {
		a.ID = uuid.New()
	}
	if a.CreatedAt.IsZero() {
		a.CreatedAt = time.Now()
	}
	a.UpdatedAt = a.CreatedAt
	cp := *a
	r.s.appointments[a.ID] = &cp
	return nil
}

func (r appointmentRepo) Get(_ context.Context, id uuid.UUID) (*model.Appointment, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	a, ok := r.s.appointments[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	cp := *a
	return &cp, nil
}

func (r appointmentRepo) Update(_ context.Context, a *model.Appointment) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if err := r.s.fail("appointments.Update"); err != nil {
		return err
	}
	stored, ok := r.s.appointments[a.ID]
	if !ok {
		return repository.ErrNotFound
	}
	a.UpdatedAt = time.Now()
	stored.Date, stored.Time, stored.Status, stored.UpdatedAt = a.Date, a.Time, a.Status, a.UpdatedAt
	return nil
}

func (r appointmentRepo) ListByPatient(_ context.Context, patientID uuid.UUID) ([]*model.Appointment, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if err := r.s.fail("appointments.ListByPatient"); err != nil {
		return nil, err
	}
	var out []*model.Appointment
	for _, a := range r.s.appointments {
		if a.PatientID == patientID {
			cp := *a
			out = append(out, &cp)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if !out[i].Date.Equal(out[j].Date.Time) {
			return out[i].Date.Before(out[j].Date.Time)
		}
		return out[i].Time < out[j].Time
	})
	return out, nil
}

func (r appointmentRepo) DeleteOnOrBefore(_ context.Context, cutoff model.Date, limit int) (int64, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if err := r.s.fail("appointments.DeleteOnOrBefore"); err != nil {
		return 0, err
	}
	var n int64
	for id, a := range r.s.appointments {
		if int(n) >= limit {
			break
		}
		if !a.Date.After(cutoff.Time) {
			delete(r.s.appointments, id)
			n++
		}
	}
	return n, nil
}

type notificationRepo struct{ s *Store }

func (r notificationRepo) Create(_ context.Context, n *model.Notification) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if err := r.s.fail("notifications.Create"); err != nil {
		return err
	}
	if n.ID == uuid.Nil {
		n.ID = uuid.New()
	}
	cp := *n
	r.s.notifications[n.ID] = &cp
	return nil
}

func (r notificationRepo) list(match func(*model.Notification) bool) []*model.Notification {
	var out []*model.Notification
	for _, n := range r.s.notifications {
		if match(n) {
			cp := *n
			out = append(out, &cp)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	return out
}

func (r notificationRepo) ListByPatient(_ context.Context, patientID uuid.UUID, unreadOnly bool) ([]*model.Notification, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	return r.list(func(n *model.Notification) bool {
		if n.PatientID == nil || *n.PatientID != patientID {
			return false
		}
		return !unreadOnly || n.Status != model.NotificationStatusRead
	}), nil
}

func (r notificationRepo) ListByDoctor(_ context.Context, doctorID uuid.UUID) ([]*model.Notification, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	return r.list(func(n *model.Notification) bool {
		return n.DoctorID != nil && *n.DoctorID == doctorID
	}), nil
}

func (r notificationRepo) MarkRead(_ context.Context, id, patientID uuid.UUID, at time.Time) (*model.Notification, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	n, ok := r.s.notifications[id]
	if !ok || n.PatientID == nil || *n.PatientID != patientID {
		return nil, repository.ErrNotFound
	}
	n.Status = model.NotificationStatusRead
	n.ReadAt = &at
	cp := *n
	return &cp, nil
}

func (r notificationRepo) DeleteForPatient(_ context.Context, id, patientID uuid.UUID) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	n, ok := r.s.notifications[id]
	if !ok || n.PatientID == nil || *n.PatientID != patientID {
		return repository.ErrNotFound
	}
	delete(r.s.notifications, id)
	return nil
}

func (r notificationRepo) ListDueReminders(_ context.Context, now time.Time, limit int) ([]*model.Notification, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if err := r.s.fail("notifications.ListDueReminders"); err != nil {
		return nil, err
	}
	var out []*model.Notification
	for _, n := range r.s.notifications {
		if n.Type == model.NotificationTypeReminder && n.Status == model.NotificationStatusPending &&
			n.RemindAt != nil && !n.RemindAt.After(now) {
			cp := *n
			out = append(out, &cp)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].RemindAt.Before(*out[j].RemindAt) })
	if len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (r notificationRepo) MarkSent(_ context.Context, id uuid.UUID) (bool, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if err := r.s.fail("notifications.MarkSent"); err != nil {
		return false, err
	}
	n, ok := r.s.notifications[id]
	if !ok || n.Status != model.NotificationStatusPending {
		return false, nil
	}
	n.Status = model.NotificationStatusSent
	return true, nil
}

func (r notificationRepo) pendingReminders(appointmentID uuid.UUID) []*model.Notification {
	var out []*model.Notification
	for _, n := range r.s.notifications {
		if n.AppointmentID != nil && *n.AppointmentID == appointmentID &&
			n.Type == model.NotificationTypeReminder && n.Status == model.NotificationStatusPending {
			out = append(out, n)
		}
	}
	return out
}

func (r notificationRepo) ReschedulePendingReminders(_ context.Context, appointmentID uuid.UUID, remindAt time.Time, message string) (int64, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	found := r.pendingReminders(appointmentID)
	for _, n := range found {
		at := remindAt
		n.RemindAt = &at
		n.Message = message
	}
	return int64(len(found)), nil
}

func (r notificationRepo) DeletePendingReminders(_ context.Context, appointmentID uuid.UUID) (int64, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	found := r.pendingReminders(appointmentID)
	for _, n := range found {
		delete(r.s.notifications, n.ID)
	}
	return int64(len(found)), nil
}

func (r notificationRepo) DeleteCreatedOnOrBefore(_ context.Context, cutoff time.Time, limit int) (int64, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if err := r.s.fail("notifications.DeleteCreatedOnOrBefore"); err != nil {
		return 0, err
	}
	var n int64
	for id, rec := range r.s.notifications {
		if int(n) >= limit {
			break
		}
		if !rec.CreatedAt.After(cutoff) {
			delete(r.s.notifications, id)
			n++
		}
	}
	return n, nil
}
