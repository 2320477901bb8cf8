package main

import (
	"context"
	"net/http"
	_ "time/tzdata"

	"github.com/gorilla/mux"
	cron "github.com/robfig/cron/v3"
	"github.com/rs/cors"
	"github.com/sendgrid/sendgrid-go"
	twilio "github.com/twilio/twilio-go"

	"github.com/maisha0055/Shohojogi-sub000/internal/app"
	"github.com/maisha0055/Shohojogi-sub000/internal/config"
	"github.com/maisha0055/Shohojogi-sub000/internal/controllers"
	"github.com/maisha0055/Shohojogi-sub000/internal/middleware"
	"github.com/maisha0055/Shohojogi-sub000/internal/presence"
	"github.com/maisha0055/Shohojogi-sub000/internal/realtime"
	"github.com/maisha0055/Shohojogi-sub000/internal/repositories"
	"github.com/maisha0055/Shohojogi-sub000/internal/routes"
	"github.com/maisha0055/Shohojogi-sub000/internal/services"
	"github.com/maisha0055/Shohojogi-sub000/internal/utils"
)

func main() {
	utils.InitLogger(config.AppName)
	cfg := config.LoadConfig()

	application, err := app.NewApp(cfg)
	if err != nil {
		utils.Logger.Fatal("Failed to initialize dispatch-service:", err)
	}
	defer application.Close()

	jobRepo := repositories.NewJobRequestRepository(application.DB)
	estimateRepo := repositories.NewEstimateRepository(application.DB)
	workerRepo := repositories.NewWorkerRepository(application.DB)
	customerRepo := repositories.NewCustomerRepository(application.DB)
	notifRepo := repositories.NewJobNotificationRepository(application.DB)

	var twClient *twilio.RestClient
	if cfg.TwilioAccountSID != "" && cfg.TwilioAuthToken != "" {
		twClient = twilio.NewRestClientWithParams(twilio.ClientParams{
			Username: cfg.TwilioAccountSID,
			Password: cfg.TwilioAuthToken,
		})
	}
	var sgClient *sendgrid.Client
	if cfg.SendGridAPIKey != "" {
		sgClient = sendgrid.NewSendClient(cfg.SendGridAPIKey)
	}
	notifier := services.NewNotifier(
		twClient, sgClient,
		cfg.TwilioFromPhone, cfg.SendGridFromEmail, config.OrganizationName,
	)

	registry := presence.NewRegistry()
	hub := realtime.NewHub(registry)
	gateway := realtime.NewGateway(hub, registry, workerRepo, customerRepo, cfg.RSAPublicKey)

	jobService := services.NewJobService(
		jobRepo,
		estimateRepo,
		workerRepo,
		customerRepo,
		notifRepo,
		hub,
		gateway,
		notifier,
	)
	workerService := services.NewWorkerService(workerRepo, notifRepo, gateway)

	jobsController := controllers.NewJobsController(jobService)
	workersController := controllers.NewWorkersController(workerService)
	healthController := controllers.NewHealthController()

	router := mux.NewRouter()

	// Public
	router.HandleFunc(routes.Health, healthController.HealthHandler).Methods(http.MethodGet)
	// The gateway validates the token itself before upgrading.
	router.HandleFunc(routes.WS, gateway.HandleWS).Methods(http.MethodGet)

	customerSecured := router.NewRoute().Subrouter()
	customerSecured.Use(
		middleware.AuthMiddleware(cfg.RSAPublicKey),
		middleware.RequireRole(middleware.RoleCustomer),
	)
	customerSecured.HandleFunc(routes.JobsRequest, jobsController.CreateJobRequestHandler).Methods(http.MethodPost)
	customerSecured.HandleFunc(routes.JobsEstimates, jobsController.ListEstimatesHandler).Methods(http.MethodGet)
	customerSecured.HandleFunc(routes.JobsSelect, jobsController.SelectWorkerHandler).Methods(http.MethodPost)
	customerSecured.HandleFunc(routes.JobsCancel, jobsController.CancelJobHandler).Methods(http.MethodPost)

	workerSecured := router.NewRoute().Subrouter()
	workerSecured.Use(
		middleware.AuthMiddleware(cfg.RSAPublicKey),
		middleware.RequireRole(middleware.RoleWorker),
	)
	workerSecured.HandleFunc(routes.JobsEstimate, jobsController.SubmitEstimateHandler).Methods(http.MethodPost)
	workerSecured.HandleFunc(routes.JobsStart, jobsController.StartJobHandler).Methods(http.MethodPost)
	workerSecured.HandleFunc(routes.JobsComplete, jobsController.CompleteJobHandler).Methods(http.MethodPost)
	workerSecured.HandleFunc(routes.WorkersAvailability, workersController.UpdateAvailabilityHandler).Methods(http.MethodPut)
	workerSecured.HandleFunc(routes.WorkersNotifications, workersController.ListNotificationsHandler).Methods(http.MethodGet)
	workerSecured.HandleFunc(routes.WorkersNotificationsSeen, workersController.MarkNotificationsSeenHandler).Methods(http.MethodPost)

	c := cron.New()
	_, sweepErr := c.AddFunc("@every 1m", func() {
		gateway.ReconcilePresence(context.Background())
	})
	if sweepErr != nil {
		utils.Logger.WithError(sweepErr).Fatal("Failed to schedule presence reconciliation cron")
	}

	_, purgeErr := c.AddFunc("15 0 * * *", func() {
		deleted, e := workerService.PurgeSeenNotifications(context.Background(), cfg.NotificationRetention)
		if e != nil {
			utils.Logger.WithError(e).Error("Scheduled notification purge failed")
			return
		}
		utils.Logger.Infof("Purged %d seen job notifications", deleted)
	})
	if purgeErr != nil {
		utils.Logger.WithError(purgeErr).Fatal("Failed to schedule notification purge cron")
	}
	c.Start()

	co := cors.New(cors.Options{
		AllowedOrigins:   []string{cfg.AppUrl},
		AllowedMethods:   []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Authorization", "Content-Type"},
		AllowCredentials: true,
	})

	utils.Logger.Infof("Starting %s on port: %s", cfg.AppName, cfg.AppPort)
	if err := http.ListenAndServe(":"+cfg.AppPort, co.Handler(router)); err != nil {
		utils.Logger.Fatal("dispatch-service failed to start:", err)
	}
}
