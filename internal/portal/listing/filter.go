// Package listing derives the visible appointment list from the full
// collection and the user's search, filters and active tab.
package listing

import (
	"fmt"
	"sort"
	"strings"

	"github.com/zatekoja/patientcare/backend/internal/domain/entities"
)

// All disables the type or payment filter
const All = "all"

// Tab partitions appointments by status
type Tab string

const (
	TabUpcoming  Tab = "upcoming"
	TabPast      Tab = "past"
	TabCancelled Tab = "cancelled"
)

// ParseTab validates a tab name; empty means upcoming
func ParseTab(s string) (Tab, error) {
	switch Tab(strings.ToLower(strings.TrimSpace(s))) {
	case "", TabUpcoming:
		return TabUpcoming, nil
	case TabPast:
		return TabPast, nil
	case TabCancelled:
		return TabCancelled, nil
	}
	return "", fmt.Errorf("unknown tab %q", s)
}

// Includes reports whether an appointment with status belongs on the tab
func (t Tab) Includes(status entities.AppointmentStatus) bool {
	switch t {
	case TabUpcoming:
		return status == entities.AppointmentStatusScheduled ||
			status == entities.AppointmentStatusConfirmed ||
			status == entities.AppointmentStatusPending
	case TabPast:
		return status == entities.AppointmentStatusCompleted
	case TabCancelled:
		return status == entities.AppointmentStatusCancelled ||
			status == entities.AppointmentStatusNoShow
	}
	return false
}

// Criteria is the user's current search and filter selection
type Criteria struct {
	Query   string
	Type    string
	Payment string
	Tab     Tab
}

// Counts are the per-tab badge numbers
type Counts struct {
	Upcoming  int `json:"upcoming"`
	Past      int `json:"past"`
	Cancelled int `json:"cancelled"`
}

// View is the derived list for one Criteria
type View struct {
	Items  []entities.Appointment
	Counts Counts
}

// Apply filters and sorts appointments. The input slice is not modified.
// Counts reflect the search, type and payment filters but not the tab.
func Apply(appointments []entities.Appointment, c Criteria) View {
	tab := c.Tab
	if tab == "" {
		tab = TabUpcoming
	}

	var view View
	for _, appt := range appointments {
		if !MatchesQuery(appt, c.Query) || !matchesType(appt, c.Type) || !matchesPayment(appt, c.Payment) {
			continue
		}

		switch {
		case TabUpcoming.Includes(appt.Status):
			view.Counts.Upcoming++
		case TabPast.Includes(appt.Status):
			view.Counts.Past++
		case TabCancelled.Includes(appt.Status):
			view.Counts.Cancelled++
		}

		if tab.Includes(appt.Status) {
			view.Items = append(view.Items, appt)
		}
	}

	SortByDate(view.Items, tab == TabUpcoming)
	return view
}

// MatchesQuery is a case-insensitive substring match on the doctor's name,
// their specialization and the visit reason. An empty query matches everything.
func MatchesQuery(appt entities.Appointment, query string) bool {
	q := strings.ToLower(strings.TrimSpace(query))
	if q == "" {
		return true
	}
	for _, field := range []string{appt.DoctorName(), appt.DoctorSpecialization(), appt.Reason} {
		if strings.Contains(strings.ToLower(field), q) {
			return true
		}
	}
	return false
}

func matchesType(appt entities.Appointment, filter string) bool {
	return filter == "" || filter == All || string(appt.Type) == filter
}

func matchesPayment(appt entities.Appointment, filter string) bool {
	return filter == "" || filter == All || string(appt.PaymentMode) == filter
}

// SortByDate orders appointments by date then time, ascending or descending.
// Equal keys keep their input order.
func SortByDate(items []entities.Appointment, ascending bool) {
	sort.SliceStable(items, func(i, j int) bool {
		a, b := sortKey(items[i]), sortKey(items[j])
		if ascending {
			return a < b
		}
		return a > b
	})
}

// DateLayout and TimeLayout are fixed-width, so the concatenation sorts lexically
func sortKey(appt entities.Appointment) string {
	return appt.Date + " " + appt.Time
}
