// Package dashboard loads the data a portal view needs before it becomes interactive.
package dashboard

import (
	"context"
	"fmt"

	"golang.org/x/sync/errgroup"

	"github.com/zatekoja/patientcare/backend/internal/domain/entities"
	"github.com/zatekoja/patientcare/backend/internal/domain/repositories"
)

// DefaultLimit caps the initial appointment and doctor fetches
const DefaultLimit = 100

// API lists the collections shown on a dashboard
type API interface {
	ListAppointments(ctx context.Context, filter repositories.AppointmentFilter) ([]entities.Appointment, error)
	ListDoctors(ctx context.Context, limit int) ([]entities.Doctor, error)
}

// Data is the joined result of the initial fetch
type Data struct {
	Appointments []entities.Appointment
	Doctors      []entities.Doctor
}

// Load fetches appointments and doctors concurrently. Both must succeed;
// the first failure cancels the other request.
func Load(ctx context.Context, api API, filter repositories.AppointmentFilter) (*Data, error) {
	if filter.Limit <= 0 {
		filter.Limit = DefaultLimit
	}

	var data Data
	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		items, err := api.ListAppointments(gctx, filter)
		if err != nil {
			return fmt.Errorf("load appointments: %w", err)
		}
		data.Appointments = items
		return nil
	})

	g.Go(func() error {
		items, err := api.ListDoctors(gctx, filter.Limit)
		if err != nil {
			return fmt.Errorf("load doctors: %w", err)
		}
		data.Doctors = items
		return nil
	})

	if err := g.Wait(); err != nil {
		return nil, err
	}
	return &data, nil
}
