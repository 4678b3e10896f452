package cron

import (
	"time"

	"github.com/robfig/cron/v3"
	"github.com/sahilchouksey/adaptive-tutor-api/model"
	"github.com/sahilchouksey/adaptive-tutor-api/services"
	"github.com/sahilchouksey/adaptive-tutor-api/utils/logger"
	"gorm.io/gorm"
)

// Job names recorded in cron_job_logs.
const (
	JobStudyReminders       = "study_reminders"
	JobCleanupNotifications = "cleanup_notifications"
)

const cleanupSchedule = "0 0 3 * * 0"

// CronManager manages all scheduled cron jobs
type CronManager struct {
	cron             *cron.Cron
	db               *gorm.DB
	notifications    *services.NotificationService
	reminderSchedule string
	now              services.Clock
	log              *logger.Logger
}

// NewCronManager creates a manager whose schedules are read in KST.
func NewCronManager(db *gorm.DB, notifications *services.NotificationService, reminderSchedule string, log *logger.Logger) *CronManager {
	if log == nil {
		log = logger.NewNop()
	}
	c := cron.New(cron.WithSeconds(), cron.WithLocation(services.KST))

	return &CronManager{
		cron:             c,
		db:               db,
		notifications:    notifications,
		reminderSchedule: reminderSchedule,
		now:              time.Now,
		log:              log.With("component", "cron"),
	}
}

// Start starts all cron jobs
func (m *CronManager) Start() error {
	if err := m.registerJobs(); err != nil {
		return err
	}
	m.cron.Start()
	m.log.Info("cron jobs started", "entries", len(m.cron.Entries()))
	return nil
}

// Stop stops all cron jobs and waits for running ones.
func (m *CronManager) Stop() {
	ctx := m.cron.Stop()
	<-ctx.Done()
	m.log.Info("cron jobs stopped")
}

func (m *CronManager) registerJobs() error {
	// daily reminders, 08:00 KST by default
	if _, err := m.cron.AddFunc(m.reminderSchedule, m.SendStudyReminders); err != nil {
		return err
	}
	// weekly, Sunday 03:00 KST
	if _, err := m.cron.AddFunc(cleanupSchedule, m.CleanupNotifications); err != nil {
		return err
	}
	return nil
}

func (m *CronManager) logJobStart(jobName string) *model.CronJobLog {
	m.log.Info("starting job", "job", jobName)
	entry := &model.CronJobLog{
		JobName:   jobName,
		Status:    "running",
		StartedAt: m.now(),
	}
	if err := m.db.Create(entry).Error; err != nil {
		m.log.Warn("failed to record job start", "job", jobName, "error", err)
	}
	return entry
}

func (m *CronManager) logJobComplete(entry *model.CronJobLog, message string) {
	m.log.Info("completed job", "job", entry.JobName, "message", message)
	m.finish(entry, "completed", message)
}

func (m *CronManager) logJobError(entry *model.CronJobLog, err error) {
	m.log.Error("job failed", "job", entry.JobName, "error", err)
	m.finish(entry, "failed", err.Error())
}

func (m *CronManager) finish(entry *model.CronJobLog, status, message string) {
	if entry.ID == 0 {
		return
	}
	err := m.db.Model(entry).Updates(map[string]interface{}{
		"status":       status,
		"completed_at": m.now(),
		"message":      message,
	}).Error
	if err != nil {
		m.log.Warn("failed to record job end", "job", entry.JobName, "error", err)
	}
}
