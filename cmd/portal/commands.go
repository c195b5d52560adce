package main

import (
	"fmt"
	"io"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"text/tabwriter"

	"github.com/spf13/cobra"
	"github.com/zatekoja/patientcare/backend/internal/domain/entities"
	"github.com/zatekoja/patientcare/backend/internal/domain/repositories"
	"github.com/zatekoja/patientcare/backend/internal/infrastructure/clients/portalapi"
	"github.com/zatekoja/patientcare/backend/internal/portal/booking"
	"github.com/zatekoja/patientcare/backend/internal/portal/dashboard"
	"github.com/zatekoja/patientcare/backend/internal/portal/listing"
	"github.com/zatekoja/patientcare/backend/internal/portal/live"
	"github.com/zatekoja/patientcare/backend/internal/portal/toast"
)

type clientFactory func() *portalapi.HTTPClient

func printToast(out io.Writer) toast.Toaster {
	return toast.Func(func(n toast.Notification) {
		fmt.Fprintf(out, "[%s] %s: %s", n.Level, n.Title, n.Message)
		if n.Link != "" {
			fmt.Fprintf(out, " (%s)", n.Link)
		}
		fmt.Fprintln(out)
	})
}

func appointmentsCmd(cfg *cliConfig, client clientFactory) *cobra.Command {
	var criteria listing.Criteria
	var tab string

	cmd := &cobra.Command{
		Use:   "appointments",
		Short: "List appointments for the acting patient or doctor",
		RunE: func(cmd *cobra.Command, args []string) error {
			parsed, err := listing.ParseTab(tab)
			if err != nil {
				return err
			}
			criteria.Tab = parsed

			data, err := dashboard.Load(cmd.Context(), client(), repositories.AppointmentFilter{
				PatientID: cfg.PatientID,
				DoctorID:  cfg.DoctorID,
			})
			if err != nil {
				return err
			}

			view := listing.Apply(data.Appointments, criteria)
			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "upcoming %d | past %d | cancelled %d\n\n",
				view.Counts.Upcoming, view.Counts.Past, view.Counts.Cancelled)
			return writeAppointments(out, view.Items)
		},
	}

	cmd.Flags().StringVar(&tab, "tab", "upcoming", "upcoming, past or cancelled")
	cmd.Flags().StringVarP(&criteria.Query, "query", "q", "", "search doctor, specialty or reason")
	cmd.Flags().StringVar(&criteria.Type, "type", listing.All, "video, phone, in-person or all")
	cmd.Flags().StringVar(&criteria.Payment, "payment", listing.All, "online, offline or all")
	return cmd
}

func writeAppointments(out io.Writer, items []entities.Appointment) error {
	if len(items) == 0 {
		fmt.Fprintln(out, "No appointments")
		return nil
	}
	tw := tabwriter.NewWriter(out, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "ID\tDATE\tTIME\tDOCTOR\tTYPE\tPAYMENT\tSTATUS")
	for _, appt := range items {
		doctor := appt.DoctorID
		if appt.Doctor != nil {
			doctor = appt.Doctor.User.Name
		}
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%s\t%s\t%s\n",
			appt.ID, appt.Date, appt.Time, doctor, appt.Type, appt.PaymentMode, appt.Status)
	}
	return tw.Flush()
}

func bookCmd(cfg *cliConfig, client clientFactory) *cobra.Command {
	var (
		doctor   booking.DoctorStep
		schedule booking.ScheduleStep
		mode     string
		apptType string
	)

	cmd := &cobra.Command{
		Use:   "book",
		Short: "Book an appointment, paying online or at the clinic",
		RunE: func(cmd *cobra.Command, args []string) error {
			if cfg.PatientID == "" {
				return fmt.Errorf("patient id is required to book")
			}

			form := booking.NewForm(nil)
			doctor.Type = entities.AppointmentType(apptType)
			form.SetDoctor(doctor)
			if err := form.Next(); err != nil {
				return err
			}
			if err := form.SetSchedule(schedule); err != nil {
				return err
			}
			if err := form.Next(); err != nil {
				return err
			}
			if err := form.SetPaymentMode(entities.PaymentMode(mode)); err != nil {
				return err
			}

			api := client()
			coordinator := booking.NewCoordinator(api, api,
				newConsoleCheckout(cmd.InOrStdin(), cmd.OutOrStdout()),
				booking.WithToaster(printToast(cmd.ErrOrStderr())),
			)

			appt, err := coordinator.Submit(cmd.Context(), form, entities.PatientSummary{
				ID:    cfg.PatientID,
				Name:  cfg.PatientName,
				Email: cfg.PatientEmail,
				Phone: cfg.PatientPhone,
			})
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Booked %s (%s)\n", appt.ID, appt.Status)
			return nil
		},
	}

	flags := cmd.Flags()
	flags.StringVar(&doctor.DoctorID, "doctor", "", "doctor to book")
	flags.StringVar(&doctor.Reason, "reason", "", "reason for the visit")
	flags.StringVar(&doctor.Notes, "notes", "", "additional notes")
	flags.StringVar(&apptType, "type", string(entities.AppointmentTypeInPerson), "video, phone or in-person")
	flags.StringVar(&schedule.Date, "date", "", "date as YYYY-MM-DD")
	flags.StringVar(&schedule.Time, "time", "", "time as HH:MM")
	flags.StringVar(&mode, "mode", string(entities.PaymentModeOffline), "online or offline")
	_ = cmd.MarkFlagRequired("doctor")
	_ = cmd.MarkFlagRequired("reason")
	_ = cmd.MarkFlagRequired("date")
	_ = cmd.MarkFlagRequired("time")
	return cmd
}

func watchCmd(cfg *cliConfig, client clientFactory) *cobra.Command {
	return &cobra.Command{
		Use:   "watch",
		Short: "Stream live appointment and consultation updates",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			api := client()
			scope := entities.StatsScope{PatientID: cfg.PatientID, DoctorID: cfg.DoctorID}
			topics := watchTopics(scope)

			initial := live.Snapshot{}
			if stats, err := api.DashboardStats(ctx, scope); err == nil {
				initial.Stats = stats
				initial.PendingCount = stats.Pending
				initial.PrescriptionCount = stats.Prescriptions
				initial.ActiveConsultation = stats.ActiveConsultations > 0
			}

			out := cmd.OutOrStdout()
			notifier := live.NewNotifier(api, initial,
				live.WithScope(scope),
				live.WithToaster(printToast(out)),
				live.WithOnChange(func(s live.Snapshot) {
					fmt.Fprintf(out, "pending %d | prescriptions %d | consultation active %t\n",
						s.PendingCount, s.PrescriptionCount, s.ActiveConsultation)
				}),
			)

			emitter := live.NewEmitter()
			unmount := notifier.Mount(ctx, emitter)
			defer unmount()

			sub, err := portalapi.NewPushSubscriber(api.BaseURL(), topics, emitter)
			if err != nil {
				return err
			}
			fmt.Fprintf(out, "watching %s\n", strings.Join(topics, ", "))

			if err := sub.Run(ctx); err != nil && ctx.Err() == nil {
				return err
			}
			return nil
		},
	}
}

func watchTopics(scope entities.StatsScope) []string {
	var topics []string
	if scope.PatientID != "" {
		topics = append(topics, entities.PatientTopic(scope.PatientID))
	}
	if scope.DoctorID != "" {
		topics = append(topics, entities.DoctorTopic(scope.DoctorID))
	}
	if len(topics) == 0 {
		topics = []string{entities.TopicStaff}
	}
	return topics
}

func statusCmd(client clientFactory) *cobra.Command {
	var reason string

	cmd := &cobra.Command{
		Use:   "status <appointment-id> <status>",
		Short: "Move an appointment to a new status",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			appt, err := client().UpdateAppointmentStatus(cmd.Context(), args[0], entities.StatusUpdateRequest{
				Status:             entities.AppointmentStatus(args[1]),
				CancellationReason: reason,
			})
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "%s is now %s\n", appt.ID, appt.Status)
			return nil
		},
	}
	cmd.Flags().StringVar(&reason, "reason", "", "cancellation reason")
	return cmd
}
