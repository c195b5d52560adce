package main

import (
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"github.com/zatekoja/patientcare/backend/internal/infrastructure/clients/portalapi"
	"github.com/zatekoja/patientcare/backend/internal/infrastructure/observability"
)

// cliConfig is resolved from flags, PORTAL_* environment variables and an
// optional portal.yaml, in that order of precedence
type cliConfig struct {
	APIURL       string `mapstructure:"api_url"`
	PatientID    string `mapstructure:"patient_id"`
	PatientName  string `mapstructure:"patient_name"`
	PatientEmail string `mapstructure:"patient_email"`
	PatientPhone string `mapstructure:"patient_phone"`
	DoctorID     string `mapstructure:"doctor_id"`
	Env          string `mapstructure:"env"`
}

func newViper() *viper.Viper {
	v := viper.New()
	v.SetEnvPrefix("PORTAL")
	v.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	v.AutomaticEnv()

	v.SetConfigName("portal")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")

	v.SetDefault("api_url", "http://localhost:8080")
	v.SetDefault("env", "development")

	// Bind env vars explicitly so Unmarshal picks them up
	for _, key := range []string{"api_url", "patient_id", "patient_name", "patient_email", "patient_phone", "doctor_id", "env"} {
		_ = v.BindEnv(key)
	}
	return v
}

func loadConfig(v *viper.Viper) (*cliConfig, error) {
	// A missing portal.yaml is fine
	_ = v.ReadInConfig()

	cfg := &cliConfig{}
	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}
	if cfg.APIURL == "" {
		return nil, fmt.Errorf("api url is required")
	}
	return cfg, nil
}

func newRootCmd() *cobra.Command {
	v := newViper()
	cfg := &cliConfig{}

	rootCmd := &cobra.Command{
		Use:           "portal",
		Short:         "Patient portal client: book, list and watch appointments",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			loaded, err := loadConfig(v)
			if err != nil {
				return err
			}
			*cfg = *loaded
			observability.InitLogger("patientcare-portal", cfg.Env)
			return nil
		},
	}

	flags := rootCmd.PersistentFlags()
	flags.String("api-url", "", "portal API base URL (PORTAL_API_URL)")
	flags.String("patient-id", "", "acting patient id (PORTAL_PATIENT_ID)")
	flags.String("patient-name", "", "patient name for checkout prefill (PORTAL_PATIENT_NAME)")
	flags.String("patient-email", "", "patient email for checkout prefill (PORTAL_PATIENT_EMAIL)")
	flags.String("patient-phone", "", "patient phone for receipts (PORTAL_PATIENT_PHONE)")
	flags.String("doctor-id", "", "acting doctor id (PORTAL_DOCTOR_ID)")
	for _, name := range []string{"api-url", "patient-id", "patient-name", "patient-email", "patient-phone", "doctor-id"} {
		_ = v.BindPFlag(strings.ReplaceAll(name, "-", "_"), flags.Lookup(name))
	}

	client := func() *portalapi.HTTPClient { return portalapi.NewClient(cfg.APIURL) }

	rootCmd.AddCommand(appointmentsCmd(cfg, client))
	rootCmd.AddCommand(bookCmd(cfg, client))
	rootCmd.AddCommand(watchCmd(cfg, client))
	rootCmd.AddCommand(statusCmd(client))
	return rootCmd
}

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		os.Exit(1)
	}
}
