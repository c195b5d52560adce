package main

import (
	"context"
	"os"
	"strings"
	"time"

	"github.com/doug-martin/goqu/v9"
	_ "github.com/doug-martin/goqu/v9/dialect/postgres"
	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
	"github.com/shopspring/decimal"
	"github.com/zatekoja/patientcare/backend/internal/infrastructure/clients/postgres"
	"github.com/zatekoja/patientcare/backend/internal/infrastructure/observability"
	"github.com/zatekoja/patientcare/backend/pkg/config"
)

type seedDoctor struct {
	name           string
	specialization string
	fee            string
}

type seedPatient struct {
	name  string
	phone string
}

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to load config")
	}
	observability.InitLogger("patientcare-seed", cfg.App.Env)

	ctx := context.Background()

	pgClient, err := postgres.NewClient(ctx, &cfg.Database)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to connect to DB")
	}
	defer pgClient.Close()

	if err := pgClient.ApplySchema(ctx); err != nil {
		log.Fatal().Err(err).Msg("Failed to apply schema")
	}

	if os.Getenv("RESET_DB") == "true" {
		log.Info().Msg("RESET_DB=true detected, truncating tables before seeding")
		_, err := pgClient.DB().ExecContext(ctx, `
			TRUNCATE TABLE
				receipt_notifications,
				prescriptions,
				payments,
				payment_orders,
				appointments,
				doctors,
				patients,
				users
			RESTART IDENTITY CASCADE
		`)
		if err != nil {
			log.Fatal().Err(err).Msg("Failed to reset tables")
		}
	}

	db := goqu.New("postgres", pgClient.DB())
	now := time.Now().UTC()

	doctors := []seedDoctor{
		{name: "Dr. Asha Rao", specialization: "Cardiology", fee: "800.00"},
		{name: "Dr. Vikram Shah", specialization: "Dermatology", fee: "600.00"},
		{name: "Dr. Meera Iyer", specialization: "Pediatrics", fee: "500.00"},
		{name: "Dr. Arjun Menon", specialization: "General Medicine", fee: "350.50"},
	}

	for _, d := range doctors {
		userID := uuid.New().String()
		if err := insert(ctx, db, "users", goqu.Record{
			"id":         userID,
			"name":       d.name,
			"email":      emailFor(d.name),
			"role":       "doctor",
			"created_at": now,
		}); err != nil {
			log.Error().Err(err).Str("doctor", d.name).Msg("Failed to create doctor user")
			continue
		}

		if err := insert(ctx, db, "doctors", goqu.Record{
			"id":               uuid.New().String(),
			"user_id":          userID,
			"specialization":   d.specialization,
			"consultation_fee": decimal.RequireFromString(d.fee),
			"is_active":        true,
			"created_at":       now,
			"updated_at":       now,
		}); err != nil {
			log.Error().Err(err).Str("doctor", d.name).Msg("Failed to create doctor")
		}
	}

	patients := []seedPatient{
		{name: "Priya Nair", phone: "+919800000001"},
		{name: "Rahul Verma", phone: "+919800000002"},
	}

	for _, p := range patients {
		userID := uuid.New().String()
		if err := insert(ctx, db, "users", goqu.Record{
			"id":         userID,
			"name":       p.name,
			"email":      emailFor(p.name),
			"role":       "patient",
			"created_at": now,
		}); err != nil {
			log.Error().Err(err).Str("patient", p.name).Msg("Failed to create patient user")
			continue
		}

		if err := insert(ctx, db, "patients", goqu.Record{
			"id":         uuid.New().String(),
			"user_id":    userID,
			"name":       p.name,
			"email":      emailFor(p.name),
			"phone":      p.phone,
			"created_at": now,
		}); err != nil {
			log.Error().Err(err).Str("patient", p.name).Msg("Failed to create patient")
		}
	}

	log.Info().Int("doctors", len(doctors)).Int("patients", len(patients)).Msg("Seeding completed")
}

func insert(ctx context.Context, db *goqu.Database, table string, record goqu.Record) error {
	_, err := db.Insert(table).Rows(record).Executor().ExecContext(ctx)
	return err
}

func emailFor(name string) string {
	local := strings.NewReplacer("Dr. ", "", " ", ".").Replace(name)
	return strings.ToLower(local) + "@patientcare.example"
}
