package subject

import (
	"github.com/gofiber/fiber/v2"
	"github.com/sahilchouksey/adaptive-tutor-api/handlers"
	"github.com/sahilchouksey/adaptive-tutor-api/services"
	"github.com/sahilchouksey/adaptive-tutor-api/utils/response"
	"github.com/sahilchouksey/adaptive-tutor-api/utils/validation"
)

// SubjectHandler handles subject-related requests
type SubjectHandler struct {
	validator       *validation.Validator
	subjectService  *services.SubjectService
	analysisService *services.AnalysisService
}

// NewSubjectHandler creates a new subject handler
func NewSubjectHandler(subjectService *services.SubjectService, analysisService *services.AnalysisService) *SubjectHandler {
	return &SubjectHandler{
		validator:       validation.NewValidator(),
		subjectService:  subjectService,
		analysisService: analysisService,
	}
}

// CreateSubjectForm represents the multipart fields of a new subject
type CreateSubjectForm struct {
	UserID      uint   `form:"user_id"`
	Name        string `form:"name" validate:"required,notblank,max=100"`
	SubjectType string `form:"subject_type" validate:"required"`
}

// UpdateWeekTopicRequest edits one week of the analysis
type UpdateWeekTopicRequest struct {
	WeekNo int    `json:"week_no" validate:"required,min=1"`
	Topic  string `json:"topic" validate:"required,notblank,max=200"`
}

// ReorderRequest is the learner's subject order
type ReorderRequest struct {
	UserID     uint   `json:"user_id"`
	SubjectIDs []uint `json:"subject_ids" validate:"required,min=1"`
}

// ColorRequest sets a subject's display color
type ColorRequest struct {
	UserID uint   `json:"user_id"`
	Color  string `json:"color" validate:"required,color"`
}

// ListSubjects handles GET /subjects
func (h *SubjectHandler) ListSubjects(c *fiber.Ctx) error {
	userID, ok := handlers.QueryUserID(c)
	if !ok {
		return response.BadRequest(c, "user_id is required")
	}

	subjects, err := h.subjectService.ListSubjects(c.UserContext(), userID)
	if err != nil {
		return handlers.RespondError(c, err, "Failed to fetch subjects")
	}
	return response.Success(c, fiber.Map{"subjects": subjects})
}

// CreateSubject handles POST /subjects
func (h *SubjectHandler) CreateSubject(c *fiber.Ctx) error {
	var form CreateSubjectForm
	if err := c.BodyParser(&form); err != nil {
		return response.BadRequest(c, "Invalid form data")
	}
	userID, ok := handlers.ResolveUserID(c, form.UserID)
	if !ok {
		return response.BadRequest(c, "user_id is required")
	}
	if err := h.validator.ValidateStruct(form); err != nil {
		return response.ValidationError(c, err)
	}

	file, err := c.FormFile("file")
	if err != nil || file.Filename == "" {
		return response.BadRequest(c, "Syllabus file is required")
	}
	content, err := file.Open()
	if err != nil {
		return response.InternalServerError(c, "Failed to open file")
	}
	defer content.Close()

	outcome, err := h.subjectService.CreateSubject(c.UserContext(), services.CreateSubjectRequest{
		UserID:      userID,
		Name:        form.Name,
		SubjectType: form.SubjectType,
		FileName:    file.Filename,
		File:        content,
	})
	if err != nil {
		return handlers.RespondError(c, err, "Failed to create subject")
	}

	data := fiber.Map{
		"subject":         outcome.Subject,
		"analysis_status": outcome.Status,
	}
	if outcome.Err != nil {
		data["analysis_error"] = outcome.Err.Error()
	}
	return response.Created(c, data)
}

// GetSubject handles GET /subjects/:id
func (h *SubjectHandler) GetSubject(c *fiber.Ctx) error {
	subjectID, ok := handlers.ParamID(c, "id")
	if !ok {
		return response.BadRequest(c, "Invalid subject ID")
	}

	detail, err := h.subjectService.GetSubjectDetail(c.UserContext(), subjectID)
	if err != nil {
		return handlers.RespondError(c, err, "Failed to fetch subject")
	}
	return response.Success(c, fiber.Map{
		"subject":         detail.Subject,
		"weeks":           detail.Weeks,
		"analysis_status": detail.AnalysisStatus,
	})
}

// DeleteSubject handles DELETE /subjects/:id
func (h *SubjectHandler) DeleteSubject(c *fiber.Ctx) error {
	subjectID, ok := handlers.ParamID(c, "id")
	if !ok {
		return response.BadRequest(c, "Invalid subject ID")
	}

	var owner *uint
	if userID, ok := handlers.QueryUserID(c); ok {
		owner = &userID
	} else if c.Query("user_id") != "" {
		return response.BadRequest(c, "Invalid user_id")
	}

	if err := h.subjectService.DeleteSubject(c.UserContext(), subjectID, owner); err != nil {
		return handlers.RespondError(c, err, "Failed to delete subject")
	}
	return response.SuccessWithMessage(c, "Subject deleted", nil)
}

// UpdateWeekTopic handles PUT /subjects/:id/update-week-topic
func (h *SubjectHandler) UpdateWeekTopic(c *fiber.Ctx) error {
	subjectID, ok := handlers.ParamID(c, "id")
	if !ok {
		return response.BadRequest(c, "Invalid subject ID")
	}
	var req UpdateWeekTopicRequest
	if err := c.BodyParser(&req); err != nil {
		return response.BadRequest(c, "Invalid request body")
	}
	if err := h.validator.ValidateStruct(req); err != nil {
		return response.ValidationError(c, err)
	}

	subject, err := h.subjectService.UpdateWeekTopic(c.UserContext(), subjectID, req.WeekNo, req.Topic)
	if err != nil {
		return handlers.RespondError(c, err, "Failed to update week topic")
	}
	return response.SuccessWithMessage(c, "Week topic updated", fiber.Map{"subject": subject})
}

// Reanalyze handles POST /api/subjects/:id/reanalyze
func (h *SubjectHandler) Reanalyze(c *fiber.Ctx) error {
	subjectID, ok := handlers.ParamID(c, "id")
	if !ok {
		return response.BadRequest(c, "Invalid subject ID")
	}

	outcome, err := h.analysisService.Reanalyze(c.UserContext(), subjectID)
	if err != nil {
		return handlers.RespondError(c, err, "Failed to analyze syllabus")
	}
	if outcome.Err != nil {
		return handlers.RespondError(c, outcome.Err, "Failed to analyze syllabus")
	}
	return response.Success(c, fiber.Map{
		"subject":         outcome.Subject,
		"analysis_status": outcome.Status,
	})
}

// ReorderSubjects handles PATCH /api/subjects/reorder
func (h *SubjectHandler) ReorderSubjects(c *fiber.Ctx) error {
	var req ReorderRequest
	if err := c.BodyParser(&req); err != nil {
		return response.BadRequest(c, "Invalid request body")
	}
	userID, ok := handlers.ResolveUserID(c, req.UserID)
	if !ok {
		return response.BadRequest(c, "user_id is required")
	}
	if err := h.validator.ValidateStruct(req); err != nil {
		return response.ValidationError(c, err)
	}

	if err := h.subjectService.ReorderSubjects(c.UserContext(), userID, req.SubjectIDs); err != nil {
		return handlers.RespondError(c, err, "Failed to reorder subjects")
	}
	return response.SuccessWithMessage(c, "Subjects reordered", nil)
}

// UpdateColor handles PATCH /api/subjects/:id/color
func (h *SubjectHandler) UpdateColor(c *fiber.Ctx) error {
	subjectID, ok := handlers.ParamID(c, "id")
	if !ok {
		return response.BadRequest(c, "Invalid subject ID")
	}
	var req ColorRequest
	if err := c.BodyParser(&req); err != nil {
		return response.BadRequest(c, "Invalid request body")
	}
	userID, ok := handlers.ResolveUserID(c, req.UserID)
	if !ok {
		return response.BadRequest(c, "user_id is required")
	}
	if err := h.validator.ValidateStruct(req); err != nil {
		return response.ValidationError(c, err)
	}

	subject, err := h.subjectService.UpdateColor(c.UserContext(), subjectID, userID, req.Color)
	if err != nil {
		return handlers.RespondError(c, err, "Failed to update color")
	}
	return response.Success(c, fiber.Map{"subject": subject})
}
