package loaders

import (
	"context"
	"fmt"
	"net/http"

	"github.com/graph-gophers/dataloader/v7"
	"github.com/zatekoja/patientcare/backend/internal/domain/entities"
	"github.com/zatekoja/patientcare/backend/internal/domain/repositories"
)

type ctxKey string

const loadersKey ctxKey = "dataloaders"

// Loaders contains the per-request dataloaders
type Loaders struct {
	DoctorLoader *dataloader.Loader[string, *entities.Doctor]
}

// NewLoaders creates a new instance of Loaders
func NewLoaders(doctorRepo repositories.DoctorRepository) *Loaders {
	return &Loaders{
		DoctorLoader: dataloader.NewBatchedLoader(func(ctx context.Context, keys []string) []*dataloader.Result[*entities.Doctor] {
			results := make([]*dataloader.Result[*entities.Doctor], len(keys))
			doctors, err := doctorRepo.GetByIDs(ctx, keys)

			doctorMap := make(map[string]*entities.Doctor, len(doctors))
			if err == nil {
				for _, d := range doctors {
					doctorMap[d.ID] = d
				}
			}

			for i, key := range keys {
				if err != nil {
					results[i] = &dataloader.Result[*entities.Doctor]{Error: err}
				} else if d, ok := doctorMap[key]; ok {
					results[i] = &dataloader.Result[*entities.Doctor]{Data: d}
				} else {
					results[i] = &dataloader.Result[*entities.Doctor]{Error: fmt.Errorf("doctor %s not found", key)}
				}
			}
			return results
		}, dataloader.WithCache[string, *entities.Doctor](&dataloader.NoCache[string, *entities.Doctor]{})),
	}
}

// For returns the loaders attached to ctx, or nil
func For(ctx context.Context) *Loaders {
	l, _ := ctx.Value(loadersKey).(*Loaders)
	return l
}

// WithLoaders returns a new context with the loaders attached
func WithLoaders(ctx context.Context, loaders *Loaders) context.Context {
	return context.WithValue(ctx, loadersKey, loaders)
}

// LoadDoctors resolves doctors for ids in one batch. Ids that fail to load
// are absent from the result.
func (l *Loaders) LoadDoctors(ctx context.Context, ids []string) map[string]*entities.Doctor {
	out := make(map[string]*entities.Doctor, len(ids))
	if len(ids) == 0 {
		return out
	}
	doctors, errs := l.DoctorLoader.LoadMany(ctx, ids)()
	for i, id := range ids {
		if i < len(errs) && errs[i] != nil {
			continue
		}
		if i < len(doctors) && doctors[i] != nil {
			out[id] = doctors[i]
		}
	}
	return out
}

// Middleware attaches a fresh set of loaders to every request
func Middleware(doctorRepo repositories.DoctorRepository, next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ctx := WithLoaders(r.Context(), NewLoaders(doctorRepo))
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}
