package jobs

import (
	"rentloop-backend/internal/config"
	"rentloop-backend/internal/logger"
	"rentloop-backend/internal/payments"
	"rentloop-backend/internal/repository"
	"rentloop-backend/internal/service"
)

// Store groups the persistence the jobs depend on. Wired from the postgres
// store in production, from fakes in tests.
type Store struct {
	Payments repository.PaymentRepository
	Bookings repository.BookingRepository
}

// JobRunner coordinates all scheduled jobs
type JobRunner struct {
	store    *Store
	executor *payments.Executor
	services *Services
	config   *config.Config
}

// Services holds all service dependencies needed by jobs
type Services struct {
	Email  service.EmailService
	Alerts service.AlertService
}

// NewJobRunner creates a new job runner with all dependencies
func NewJobRunner(store *Store, executor *payments.Executor, services *Services, cfg *config.Config) *JobRunner {
	return &JobRunner{
		store:    store,
		executor: executor,
		services: services,
		config:   cfg,
	}
}

// Config exposes the runner's configuration to HTTP trigger handlers.
func (jr *JobRunner) Config() *config.Config {
	return jr.config
}

// runWithRecovery wraps job execution with panic recovery
func (jr *JobRunner) runWithRecovery(jobName string, jobFunc func()) {
	defer func() {
		if r := recover(); r != nil {
			logger.Error("Job panicked", "job", jobName, "panic", r)
		}
	}()

	logger.Info("Starting job", "job", jobName)
	jobFunc()
	logger.Info("Job completed", "job", jobName)
}

// RunAllDailyJobs runs all daily jobs (for manual execution)
func (jr *JobRunner) RunAllDailyJobs() {
	jr.ProcessDueRentPayments()
	jr.RetryFailedRentPayments()
}
