package quiz

import (
	"github.com/gofiber/fiber/v2"
	"github.com/sahilchouksey/adaptive-tutor-api/handlers"
	"github.com/sahilchouksey/adaptive-tutor-api/services"
	"github.com/sahilchouksey/adaptive-tutor-api/utils/response"
	"github.com/sahilchouksey/adaptive-tutor-api/utils/validation"
)

// QuizHandler serves /api/quiz
type QuizHandler struct {
	validator   *validation.Validator
	quizService *services.QuizService
}

// NewQuizHandler creates a new quiz handler
func NewQuizHandler(quizService *services.QuizService) *QuizHandler {
	return &QuizHandler{
		validator:   validation.NewValidator(),
		quizService: quizService,
	}
}

// GenerateRequest selects weeks and shapes the quiz
type GenerateRequest struct {
	SubjectID       uint     `json:"subject_id" validate:"required"`
	UserID          uint     `json:"user_id"`
	WeekNumbers     []int    `json:"week_numbers" validate:"required,min=1,dive,min=1"`
	Difficulty      string   `json:"difficulty" validate:"omitempty,oneof=easy medium hard"`
	QuestionTypes   []string `json:"question_types" validate:"omitempty,dive,oneof=multiple_choice true_false short_answer"`
	Language        string   `json:"language" validate:"omitempty,max=20"`
	NumQuestions    int      `json:"num_questions" validate:"omitempty,min=1,max=50"`
	PastExamContext string   `json:"past_exam_context" validate:"omitempty,max=20000"`
}

// AnswerRequest is one submitted answer
type AnswerRequest struct {
	QuestionID uint   `json:"question_id" validate:"required"`
	Answer     string `json:"answer"`
}

// SubmitRequest is a full submission
type SubmitRequest struct {
	UserID  uint            `json:"user_id"`
	Answers []AnswerRequest `json:"answers" validate:"dive"`
}

// GenerateQuiz handles POST /api/quiz/generate
func (h *QuizHandler) GenerateQuiz(c *fiber.Ctx) error {
	var req GenerateRequest
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

	quiz, err := h.quizService.GenerateQuiz(c.UserContext(), services.GenerateQuizRequest{
		SubjectID:       req.SubjectID,
		UserID:          userID,
		WeekNumbers:     req.WeekNumbers,
		Difficulty:      req.Difficulty,
		QuestionTypes:   req.QuestionTypes,
		Language:        req.Language,
		NumQuestions:    req.NumQuestions,
		PastExamContext: req.PastExamContext,
	})
	if err != nil {
		return handlers.RespondError(c, err, "Failed to generate quiz")
	}

	return response.Created(c, fiber.Map{
		"quiz":      quiz,
		"questions": quiz.Questions,
	})
}

// GetQuiz handles GET /api/quiz/:id
func (h *QuizHandler) GetQuiz(c *fiber.Ctx) error {
	quizID, ok := handlers.ParamID(c, "id")
	if !ok {
		return response.BadRequest(c, "Invalid quiz ID")
	}

	detail, err := h.quizService.GetQuiz(c.UserContext(), quizID)
	if err != nil {
		return handlers.RespondError(c, err, "Failed to fetch quiz")
	}
	return response.Success(c, fiber.Map{
		"quiz":           detail.Quiz,
		"questions":      detail.Questions,
		"user_responses": detail.Responses,
		"report":         detail.Report,
	})
}

// SubmitQuiz handles POST /api/quiz/:id/submit
func (h *QuizHandler) SubmitQuiz(c *fiber.Ctx) error {
	quizID, ok := handlers.ParamID(c, "id")
	if !ok {
		return response.BadRequest(c, "Invalid quiz ID")
	}
	var req SubmitRequest
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

	answers := make([]services.SubmittedAnswer, len(req.Answers))
	for i, a := range req.Answers {
		answers[i] = services.SubmittedAnswer{QuestionID: a.QuestionID, Answer: a.Answer}
	}

	result, err := h.quizService.SubmitQuiz(c.UserContext(), quizID, userID, answers)
	if err != nil {
		return handlers.RespondError(c, err, "Failed to submit quiz")
	}
	return response.Success(c, fiber.Map{
		"score":   result.Score,
		"total":   result.Total,
		"results": result.Results,
		"report":  result.Report,
	})
}

// History handles GET /api/subjects/:id/quizzes
func (h *QuizHandler) History(c *fiber.Ctx) error {
	subjectID, ok := handlers.ParamID(c, "id")
	if !ok {
		return response.BadRequest(c, "Invalid subject ID")
	}
	userID, ok := handlers.QueryUserID(c)
	if !ok {
		return response.BadRequest(c, "user_id is required")
	}

	quizzes, err := h.quizService.History(c.UserContext(), subjectID, userID)
	if err != nil {
		return handlers.RespondError(c, err, "Failed to fetch quiz history")
	}
	return response.Success(c, fiber.Map{"quizzes": quizzes})
}

// DeleteQuiz handles DELETE /api/quiz/:id
func (h *QuizHandler) DeleteQuiz(c *fiber.Ctx) error {
	quizID, ok := handlers.ParamID(c, "id")
	if !ok {
		return response.BadRequest(c, "Invalid quiz ID")
	}
	userID, ok := handlers.QueryUserID(c)
	if !ok {
		return response.BadRequest(c, "user_id is required")
	}

	if err := h.quizService.DeleteQuiz(c.UserContext(), quizID, userID); err != nil {
		return handlers.RespondError(c, err, "Failed to delete quiz")
	}
	return response.SuccessWithMessage(c, "Quiz deleted", nil)
}
