package material

import (
	"github.com/gofiber/fiber/v2"
	"github.com/sahilchouksey/adaptive-tutor-api/handlers"
	"github.com/sahilchouksey/adaptive-tutor-api/services"
	"github.com/sahilchouksey/adaptive-tutor-api/utils/response"
)

// MaterialHandler handles lecture material uploads
type MaterialHandler struct {
	materialService *services.MaterialService
}

// NewMaterialHandler creates a new material handler
func NewMaterialHandler(materialService *services.MaterialService) *MaterialHandler {
	return &MaterialHandler{materialService: materialService}
}

// UploadForm carries the week to create when :id does not exist yet
type UploadForm struct {
	SubjectID  *uint `form:"subject_id"`
	WeekNumber *int  `form:"week_number"`
}

// UploadMaterial handles POST /weeks/:id/materials
func (h *MaterialHandler) UploadMaterial(c *fiber.Ctx) error {
	weekID, ok := handlers.ParamID(c, "id")
	if !ok {
		return response.BadRequest(c, "Invalid week ID")
	}
	var form UploadForm
	if err := c.BodyParser(&form); err != nil {
		return response.BadRequest(c, "Invalid form data")
	}

	file, err := c.FormFile("file")
	if err != nil || file.Filename == "" {
		return response.BadRequest(c, "File is required")
	}
	content, err := file.Open()
	if err != nil {
		return response.InternalServerError(c, "Failed to open file")
	}
	defer content.Close()

	result, err := h.materialService.UploadMaterial(c.UserContext(), services.UploadMaterialRequest{
		WeekID:     weekID,
		SubjectID:  form.SubjectID,
		WeekNumber: form.WeekNumber,
		FileName:   file.Filename,
		File:       content,
	})
	if err != nil {
		return handlers.RespondError(c, err, "Failed to upload material")
	}

	return response.Created(c, fiber.Map{
		"material":         result.Material,
		"material_text_id": result.MaterialTextID,
	})
}

// DeleteMaterial handles DELETE /api/materials/:id
func (h *MaterialHandler) DeleteMaterial(c *fiber.Ctx) error {
	materialID, ok := handlers.ParamID(c, "id")
	if !ok {
		return response.BadRequest(c, "Invalid material ID")
	}

	weekID, err := h.materialService.DeleteMaterial(c.UserContext(), materialID)
	if err != nil {
		return handlers.RespondError(c, err, "Failed to delete material")
	}
	return response.SuccessWithMessage(c, "Material deleted", fiber.Map{"week_id": weekID})
}
