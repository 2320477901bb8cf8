package routes

const (
	// Health
	Health = "/healthz"

	// Realtime upgrade endpoint (token via header or ?token=)
	WS = "/ws"

	// Customer endpoints
	JobsRequest   = "/api/v1/jobs/request"
	JobsEstimates = "/api/v1/jobs/{jobRequestID}/estimates"
	JobsSelect    = "/api/v1/jobs/select"
	JobsCancel    = "/api/v1/jobs/cancel"

	// Worker endpoints
	JobsEstimate = "/api/v1/jobs/estimate"
	JobsStart    = "/api/v1/jobs/start"
	JobsComplete = "/api/v1/jobs/complete"

	WorkersAvailability      = "/api/v1/workers/availability"
	WorkersNotifications     = "/api/v1/workers/notifications"
	WorkersNotificationsSeen = "/api/v1/workers/notifications/seen"
)
