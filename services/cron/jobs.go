package cron

import (
	"context"
	"fmt"
	"time"

	"github.com/sahilchouksey/adaptive-tutor-api/model"
	"github.com/sahilchouksey/adaptive-tutor-api/services"
)

// countdownDays are the days-before-exam that get a countdown reminder.
var countdownDays = map[int]bool{7: true, 3: true, 1: true}

const notificationRetention = 30 * 24 * time.Hour

// SendStudyReminders writes today's plan entry and exam countdown
// notifications for subjects with reminders on. Each kind is written at most
// once per subject per day.
func (m *CronManager) SendStudyReminders() {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Minute)
	defer cancel()

	entry := m.logJobStart(JobStudyReminders)
	created, err := m.sendStudyReminders(ctx)
	if err != nil {
		m.logJobError(entry, err)
		return
	}
	m.logJobComplete(entry, fmt.Sprintf("Created %d notifications", created))
}

func (m *CronManager) sendStudyReminders(ctx context.Context) (int, error) {
	today := services.DayOf(m.now())
	todayKey := today.Format("2006-01-02")

	var subjects []model.Subject
	err := m.db.WithContext(ctx).
		Where("is_notification_on = ? AND exam_date IS NOT NULL", true).
		Preload("User").
		Find(&subjects).Error
	if err != nil {
		return 0, fmt.Errorf("failed to query subjects: %w", err)
	}

	created := 0
	for i := range subjects {
		subject := &subjects[i]
		if subject.User == nil || !subject.User.PushNotifications {
			continue
		}
		examDay := services.DayOf(*subject.ExamDate)
		if !examDay.After(today) {
			continue
		}
		daysLeft := services.DaysBetween(today, examDay)
		meta := &model.NotificationMetadata{
			SubjectName: subject.Name,
			ExamDate:    examDay.Format("2006-01-02"),
			DaysLeft:    daysLeft,
		}

		if text, ok := subject.StudyPlan.EntryFor(todayKey); ok {
			planMeta := *meta
			planMeta.PlanDate = todayKey
			n, err := m.notifyOnce(ctx, subject, todayKey, model.NotificationCategoryStudyPlan,
				fmt.Sprintf("오늘의 학습 계획: %s", subject.Name), text, &planMeta)
			if err != nil {
				return created, err
			}
			created += n
		}

		if countdownDays[daysLeft] {
			n, err := m.notifyOnce(ctx, subject, todayKey, model.NotificationCategoryExamCountdown,
				fmt.Sprintf("D-%d %s 시험", daysLeft, subject.Name),
				fmt.Sprintf("%s 시험까지 %d일 남았습니다.", subject.Name, daysLeft), meta)
			if err != nil {
				return created, err
			}
			created += n
		}
	}
	return created, nil
}

func (m *CronManager) notifyOnce(ctx context.Context, subject *model.Subject, day string, category model.NotificationCategory, title, message string, meta *model.NotificationMetadata) (int, error) {
	key := string(category) + ":" + day
	exists, err := m.notifications.Exists(ctx, subject.UserID, subject.ID, key)
	if err != nil {
		return 0, err
	}
	if exists {
		return 0, nil
	}
	subjectID := subject.ID
	_, err = m.notifications.CreateNotification(ctx, services.CreateNotificationRequest{
		UserID:    subject.UserID,
		SubjectID: &subjectID,
		Category:  category,
		Title:     title,
		Message:   message,
		Metadata:  meta,
		DedupeKey: key,
	})
	if err != nil {
		return 0, err
	}
	return 1, nil
}

// CleanupNotifications deletes read notifications past the retention window.
func (m *CronManager) CleanupNotifications() {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Minute)
	defer cancel()

	entry := m.logJobStart(JobCleanupNotifications)
	deleted, err := m.notifications.CleanupOldNotifications(ctx, notificationRetention)
	if err != nil {
		m.logJobError(entry, err)
		return
	}
	m.logJobComplete(entry, fmt.Sprintf("Deleted %d notifications", deleted))
}
