package subject

import (
	"strings"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/sahilchouksey/adaptive-tutor-api/handlers"
	"github.com/sahilchouksey/adaptive-tutor-api/services"
	"github.com/sahilchouksey/adaptive-tutor-api/utils/response"
	"github.com/sahilchouksey/adaptive-tutor-api/utils/validation"
)

// ExamHandler handles exam settings and study plans of a subject
type ExamHandler struct {
	validator        *validation.Validator
	subjectService   *services.SubjectService
	studyPlanService *services.StudyPlanService
}

// NewExamHandler creates a new exam handler
func NewExamHandler(subjectService *services.SubjectService, studyPlanService *services.StudyPlanService) *ExamHandler {
	return &ExamHandler{
		validator:        validation.NewValidator(),
		subjectService:   subjectService,
		studyPlanService: studyPlanService,
	}
}

// ExamDateRequest represents the exam settings of a subject
type ExamDateRequest struct {
	ExamDate      string  `json:"exam_date" validate:"required"`
	ExamType      *string `json:"exam_type" validate:"omitempty,oneof=midterm final"`
	ExamWeekStart *int    `json:"exam_week_start" validate:"omitempty,min=1"`
	ExamWeekEnd   *int    `json:"exam_week_end" validate:"omitempty,min=1"`
}

// NotificationRequest toggles reminders for a subject
type NotificationRequest struct {
	IsNotificationOn *bool `json:"is_notification_on"`
}

var examDateLayouts = []string{
	"2006-01-02T15:04:05",
	"2006-01-02T15:04",
	"2006-01-02 15:04:05",
	"2006-01-02",
}

// ParseExamDate accepts an ISO date or date-time. A trailing Z or an
// offset is honored; a value without a zone is read as KST.
func ParseExamDate(raw string) (time.Time, bool) {
	raw = strings.TrimSpace(raw)
	if t, err := time.Parse(time.RFC3339Nano, raw); err == nil {
		return t, true
	}
	for _, layout := range examDateLayouts {
		if t, err := time.ParseInLocation(layout, raw, services.KST); err == nil {
			return t, true
		}
	}
	return time.Time{}, false
}

// SetExamDate handles PUT /api/subjects/:id/exam-date
func (h *ExamHandler) SetExamDate(c *fiber.Ctx) error {
	subjectID, ok := handlers.ParamID(c, "id")
	if !ok {
		return response.BadRequest(c, "Invalid subject ID")
	}
	var req ExamDateRequest
	if err := c.BodyParser(&req); err != nil {
		return response.BadRequest(c, "Invalid request body")
	}
	if err := h.validator.ValidateStruct(req); err != nil {
		return response.ValidationError(c, err)
	}
	examDate, ok := ParseExamDate(req.ExamDate)
	if !ok {
		return response.ErrorWithDetails(c, fiber.StatusBadRequest, "exam_date must be an ISO date", "VALIDATION_ERROR", "exam_date")
	}

	subject, err := h.subjectService.SetExamDate(c.UserContext(), subjectID, services.ExamSettings{
		ExamDate:  examDate,
		ExamType:  req.ExamType,
		WeekStart: req.ExamWeekStart,
		WeekEnd:   req.ExamWeekEnd,
	})
	if err != nil {
		return handlers.RespondError(c, err, "Failed to set exam date")
	}
	return response.SuccessWithMessage(c, "Exam date saved", fiber.Map{"subject": subject})
}

// ClearExamDate handles DELETE /api/subjects/:id/exam-date
func (h *ExamHandler) ClearExamDate(c *fiber.Ctx) error {
	subjectID, ok := handlers.ParamID(c, "id")
	if !ok {
		return response.BadRequest(c, "Invalid subject ID")
	}

	subject, err := h.subjectService.ClearExamDate(c.UserContext(), subjectID)
	if err != nil {
		return handlers.RespondError(c, err, "Failed to clear exam date")
	}
	return response.SuccessWithMessage(c, "Exam date cleared", fiber.Map{"subject": subject})
}

// SetNotification handles PUT /api/subjects/:id/notification
func (h *ExamHandler) SetNotification(c *fiber.Ctx) error {
	subjectID, ok := handlers.ParamID(c, "id")
	if !ok {
		return response.BadRequest(c, "Invalid subject ID")
	}
	var req NotificationRequest
	if len(c.Body()) > 0 {
		if err := c.BodyParser(&req); err != nil {
			return response.BadRequest(c, "Invalid request body")
		}
	}
	on := true
	if req.IsNotificationOn != nil {
		on = *req.IsNotificationOn
	}

	subject, err := h.subjectService.SetNotification(c.UserContext(), subjectID, on)
	if err != nil {
		return handlers.RespondError(c, err, "Failed to update notification setting")
	}
	return response.Success(c, fiber.Map{"subject": subject})
}

// GeneratePlan handles POST /api/subjects/:id/study-plan
func (h *ExamHandler) GeneratePlan(c *fiber.Ctx) error {
	subjectID, ok := handlers.ParamID(c, "id")
	if !ok {
		return response.BadRequest(c, "Invalid subject ID")
	}
	userID, ok := handlers.QueryUserID(c)
	if !ok {
		return response.BadRequest(c, "user_id is required")
	}

	plan, err := h.studyPlanService.GeneratePlan(c.UserContext(), subjectID, userID)
	if err != nil {
		return handlers.RespondError(c, err, "Failed to generate study plan")
	}
	return response.Success(c, fiber.Map{"study_plan": plan.Plan})
}

// GetPlan handles GET /api/subjects/:id/study-plan
func (h *ExamHandler) GetPlan(c *fiber.Ctx) error {
	subjectID, ok := handlers.ParamID(c, "id")
	if !ok {
		return response.BadRequest(c, "Invalid subject ID")
	}

	plan, err := h.studyPlanService.GetPlan(c.UserContext(), subjectID)
	if err != nil {
		return handlers.RespondError(c, err, "Failed to fetch study plan")
	}
	if plan == nil {
		return response.Success(c, fiber.Map{"study_plan": nil})
	}
	return response.Success(c, fiber.Map{"study_plan": plan.Plan})
}
