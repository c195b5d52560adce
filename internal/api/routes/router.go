package routes

import (
	"net/http"

	"github.com/zatekoja/patientcare/backend/internal/api/handlers"
	"github.com/zatekoja/patientcare/backend/internal/api/middleware"
	"github.com/zatekoja/patientcare/backend/internal/infrastructure/observability"
)

// Router holds all route handlers
type Router struct {
	mux *http.ServeMux

	appointmentHandler  *handlers.AppointmentHandler
	doctorHandler       *handlers.DoctorHandler
	paymentHandler      *handlers.PaymentHandler
	prescriptionHandler *handlers.PrescriptionHandler
	statsHandler        *handlers.StatsHandler
	pushHandler         *handlers.PushHandler

	allowedOrigins []string
	metrics        *observability.Metrics
}

// NewRouter creates a new router
func NewRouter(
	appointmentHandler *handlers.AppointmentHandler,
	doctorHandler *handlers.DoctorHandler,
	paymentHandler *handlers.PaymentHandler,
	prescriptionHandler *handlers.PrescriptionHandler,
	statsHandler *handlers.StatsHandler,
	pushHandler *handlers.PushHandler,
	allowedOrigins []string,
	metrics *observability.Metrics,
) *Router {
	return &Router{
		mux:                 http.NewServeMux(),
		appointmentHandler:  appointmentHandler,
		doctorHandler:       doctorHandler,
		paymentHandler:      paymentHandler,
		prescriptionHandler: prescriptionHandler,
		statsHandler:        statsHandler,
		pushHandler:         pushHandler,
		allowedOrigins:      allowedOrigins,
		metrics:             metrics,
	}
}

// SetupRoutes configures all application routes
func (r *Router) SetupRoutes() http.Handler {
	r.mux.HandleFunc("GET /health", func(w http.ResponseWriter, req *http.Request) {
		w.WriteHeader(http.StatusOK)
		if _, err := w.Write([]byte("OK")); err != nil {
			return
		}
	})

	// Appointment endpoints
	r.mux.HandleFunc("GET /api/appointments", r.appointmentHandler.ListAppointments)
	r.mux.HandleFunc("POST /api/appointments", r.appointmentHandler.BookAppointment)
	r.mux.HandleFunc("GET /api/appointments/{id}", r.appointmentHandler.GetAppointment)
	r.mux.HandleFunc("PATCH /api/appointments/{id}/status", r.appointmentHandler.UpdateStatus)
	r.mux.HandleFunc("POST /api/appointments/{id}/consultation/start", r.appointmentHandler.StartConsultation)
	r.mux.HandleFunc("POST /api/appointments/{id}/consultation/end", r.appointmentHandler.EndConsultation)

	// Doctor endpoints
	r.mux.HandleFunc("GET /api/doctors", r.doctorHandler.ListDoctors)
	r.mux.HandleFunc("GET /api/doctors/{id}", r.doctorHandler.GetDoctor)

	// Payment endpoints
	r.mux.HandleFunc("POST /api/payment/order", r.paymentHandler.CreateOrder)
	r.mux.HandleFunc("POST /api/payment/verify", r.paymentHandler.VerifyPayment)
	r.mux.HandleFunc("GET /api/admin/payments/unreconciled", r.paymentHandler.ListUnreconciled)

	// Prescription endpoints
	r.mux.HandleFunc("POST /api/prescriptions", r.prescriptionHandler.CreatePrescription)
	r.mux.HandleFunc("GET /api/prescriptions", r.prescriptionHandler.ListPrescriptions)

	r.mux.HandleFunc("GET /api/dashboard/stats", r.statsHandler.GetDashboardStats)

	// Push channel
	r.mux.HandleFunc("GET /ws", r.pushHandler.Connect)

	// Apply middleware in reverse order (last middleware wraps first)
	var handler http.Handler = r.mux
	handler = middleware.LoggingMiddleware(handler)
	handler = middleware.ObservabilityMiddleware(r.metrics)(handler)

	// Compression, ETag and cache headers; upgrades skip these
	handler = middleware.ResponseOptimization(handler)

	// CORS wraps everything so headers are set even on 304s
	handler = middleware.CORSMiddleware(r.allowedOrigins)(handler)

	return handler
}
