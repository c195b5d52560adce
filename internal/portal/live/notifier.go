// Package live keeps dashboard state current from push-channel events.
package live

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/zatekoja/patientcare/backend/internal/domain/entities"
	"github.com/zatekoja/patientcare/backend/internal/portal/toast"
)

const statsRefreshTimeout = 10 * time.Second

// StatsAPI fetches aggregate dashboard statistics
type StatsAPI interface {
	DashboardStats(ctx context.Context, scope entities.StatsScope) (*entities.DashboardStats, error)
}

// Snapshot is the dashboard state derived from events
type Snapshot struct {
	PendingCount       int
	PrescriptionCount  int
	ActiveConsultation bool
	// ConsultationID identifies the active consultation, if any
	ConsultationID string
	Stats          *entities.DashboardStats
	Appointments   []entities.Appointment
}

// Notifier turns push events into local state updates and toasts.
// Duplicate or out-of-order deliveries are applied as received.
type Notifier struct {
	stats   StatsAPI
	scope   entities.StatsScope
	toaster toast.Toaster
	// resultsLink builds the deep link offered when a consultation ends
	resultsLink func(appointmentID string) string
	onChange    func(Snapshot)

	mu    sync.Mutex
	state Snapshot
}

// Option configures a Notifier
type Option func(*Notifier)

// WithToaster sets where notifications go
func WithToaster(t toast.Toaster) Option {
	return func(n *Notifier) {
		if t != nil {
			n.toaster = t
		}
	}
}

// WithScope narrows stats re-fetches to one patient or doctor
func WithScope(scope entities.StatsScope) Option {
	return func(n *Notifier) { n.scope = scope }
}

// WithOnChange registers a callback invoked with a copy of the state after each update
func WithOnChange(fn func(Snapshot)) Option {
	return func(n *Notifier) { n.onChange = fn }
}

// WithResultsLink overrides the consultation results deep link
func WithResultsLink(fn func(appointmentID string) string) Option {
	return func(n *Notifier) {
		if fn != nil {
			n.resultsLink = fn
		}
	}
}

// NewNotifier creates a notifier seeded with the initial dashboard state
func NewNotifier(stats StatsAPI, initial Snapshot, opts ...Option) *Notifier {
	n := &Notifier{
		stats:   stats,
		toaster: toast.Discard,
		resultsLink: func(appointmentID string) string {
			return fmt.Sprintf("/appointments/%s/results", appointmentID)
		},
		state: initial,
	}
	for _, opt := range opts {
		opt(n)
	}
	return n
}

// Mount subscribes to the push channel. The returned function unregisters
// every handler and cancels any stats re-fetch still running.
func (n *Notifier) Mount(ctx context.Context, ch Channel) (unmount func()) {
	ctx, cancel := context.WithCancel(ctx)

	offs := []func(){
		ch.On(entities.EventAppointmentCreated, n.handleAppointmentCreated),
		ch.On(entities.EventAppointmentUpdated, func(e *entities.PortalEvent) { n.handleAppointmentUpdated(ctx, e) }),
		ch.On(entities.EventConsultationStarted, n.handleConsultationStarted),
		ch.On(entities.EventConsultationEnded, n.handleConsultationEnded),
		ch.On(entities.EventPrescriptionCreated, n.handlePrescriptionCreated),
	}

	var once sync.Once
	return func() {
		once.Do(func() {
			cancel()
			for _, off := range offs {
				off()
			}
		})
	}
}

// Snapshot returns a copy of the current state
func (n *Notifier) Snapshot() Snapshot {
	n.mu.Lock()
	defer n.mu.Unlock()
	return n.copyLocked()
}

// SetAppointments replaces the local list, e.g. after a manual refresh
func (n *Notifier) SetAppointments(items []entities.Appointment) {
	n.update(func(s *Snapshot) {
		s.Appointments = append([]entities.Appointment(nil), items...)
	})
}

// SetStats replaces the cached stats and the counters derived from them
func (n *Notifier) SetStats(stats *entities.DashboardStats) {
	n.update(func(s *Snapshot) { applyStats(s, stats) })
}

func (n *Notifier) handleAppointmentCreated(e *entities.PortalEvent) {
	n.update(func(s *Snapshot) { s.PendingCount++ })
	n.toaster.Notify(toast.Notification{
		Level:   toast.LevelInfo,
		Title:   "New appointment",
		Message: "Appointment " + e.AppointmentID + " was booked",
	})
}

func (n *Notifier) handleAppointmentUpdated(ctx context.Context, e *entities.PortalEvent) {
	message := "Appointment " + e.AppointmentID + " was updated"

	if appt, err := e.DecodeAppointment(); err != nil {
		log.Warn().Err(err).Str("event_id", e.ID).Msg("could not decode appointment payload")
	} else if appt != nil {
		id := appt.ID
		if id == "" {
			id = e.AppointmentID
		}
		if appt.Status != "" {
			message = fmt.Sprintf("Appointment %s is now %s", id, appt.Status)
		}
		n.update(func(s *Snapshot) {
			for i := range s.Appointments {
				if s.Appointments[i].ID == id {
					s.Appointments[i] = *appt
					break
				}
			}
		})
	}

	n.toaster.Notify(toast.Notification{
		Level:   toast.LevelInfo,
		Title:   "Appointment updated",
		Message: message,
	})
	n.refreshStats(ctx)
}

func (n *Notifier) refreshStats(ctx context.Context) {
	ctx, cancel := context.WithTimeout(ctx, statsRefreshTimeout)
	defer cancel()

	stats, err := n.stats.DashboardStats(ctx, n.scope)
	if err != nil {
		if ctx.Err() == nil {
			log.Warn().Err(err).Msg("stats refresh failed")
			n.toaster.Notify(toast.Notification{
				Level:   toast.LevelError,
				Title:   "Could not refresh statistics",
				Message: err.Error(),
			})
		}
		return
	}
	if ctx.Err() != nil {
		return
	}
	n.SetStats(stats)
}

func (n *Notifier) handleConsultationStarted(e *entities.PortalEvent) {
	n.update(func(s *Snapshot) {
		s.ActiveConsultation = true
		s.ConsultationID = consultationID(e)
	})
	n.toaster.Notify(toast.Notification{
		Level:   toast.LevelInfo,
		Title:   "Consultation started",
		Message: "Your doctor has started the consultation",
	})
}

func (n *Notifier) handleConsultationEnded(e *entities.PortalEvent) {
	n.update(func(s *Snapshot) {
		s.ActiveConsultation = false
		s.ConsultationID = ""
	})
	n.toaster.Notify(toast.Notification{
		Level:   toast.LevelSuccess,
		Title:   "Consultation ended",
		Message: "Your consultation results are ready",
		Link:    n.resultsLink(e.AppointmentID),
	})
}

func (n *Notifier) handlePrescriptionCreated(e *entities.PortalEvent) {
	n.update(func(s *Snapshot) { s.PrescriptionCount++ })
	n.toaster.Notify(toast.Notification{
		Level:   toast.LevelInfo,
		Title:   "New prescription",
		Message: "A prescription was added for appointment " + e.AppointmentID,
	})
}

func (n *Notifier) update(fn func(s *Snapshot)) {
	n.mu.Lock()
	fn(&n.state)
	snap := n.copyLocked()
	n.mu.Unlock()

	if n.onChange != nil {
		n.onChange(snap)
	}
}

func (n *Notifier) copyLocked() Snapshot {
	snap := n.state
	snap.Appointments = append([]entities.Appointment(nil), n.state.Appointments...)
	if n.state.Stats != nil {
		stats := *n.state.Stats
		snap.Stats = &stats
	}
	return snap
}

func applyStats(s *Snapshot, stats *entities.DashboardStats) {
	if stats == nil {
		return
	}
	cp := *stats
	s.Stats = &cp
	s.PendingCount = stats.Pending
	s.PrescriptionCount = stats.Prescriptions
}

func consultationID(e *entities.PortalEvent) string {
	if e.ConsultationID != "" {
		return e.ConsultationID
	}
	return e.AppointmentID
}
