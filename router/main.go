package router

import (
	"github.com/gofiber/fiber/v2"
	"github.com/sahilchouksey/adaptive-tutor-api/database"
	"github.com/sahilchouksey/adaptive-tutor-api/handlers"
	auth_handlers "github.com/sahilchouksey/adaptive-tutor-api/handlers/auth"
	concept_handlers "github.com/sahilchouksey/adaptive-tutor-api/handlers/concept"
	material_handlers "github.com/sahilchouksey/adaptive-tutor-api/handlers/material"
	notification_handlers "github.com/sahilchouksey/adaptive-tutor-api/handlers/notification"
	quiz_handlers "github.com/sahilchouksey/adaptive-tutor-api/handlers/quiz"
	subject_handlers "github.com/sahilchouksey/adaptive-tutor-api/handlers/subject"
	"github.com/sahilchouksey/adaptive-tutor-api/services"
	"github.com/sahilchouksey/adaptive-tutor-api/utils/auth"
	"github.com/sahilchouksey/adaptive-tutor-api/utils/middleware"
)

// Dependencies are the services the routes are served by
type Dependencies struct {
	Store         *database.GORMStore
	Accounts      *services.AccountService
	Subjects      *services.SubjectService
	Analysis      *services.AnalysisService
	Materials     *services.MaterialService
	Concepts      *services.ConceptService
	Quizzes       *services.QuizService
	StudyPlans    *services.StudyPlanService
	Notifications *services.NotificationService

	JWTManager   *auth.JWTManager
	BruteForce   *middleware.BruteForceProtection
	UploadFolder string
}

func SetupRoutes(app *fiber.App, deps Dependencies) {
	identity := middleware.NewIdentityMiddleware(deps.JWTManager)

	healthHandler := handlers.NewHealthHandler(deps.Store)
	authHandler := auth_handlers.NewAuthHandler(deps.Accounts, deps.JWTManager, deps.BruteForce)
	subjectHandler := subject_handlers.NewSubjectHandler(deps.Subjects, deps.Analysis)
	examHandler := subject_handlers.NewExamHandler(deps.Subjects, deps.StudyPlans)
	materialHandler := material_handlers.NewMaterialHandler(deps.Materials)
	conceptHandler := concept_handlers.NewConceptHandler(deps.Concepts)
	quizHandler := quiz_handlers.NewQuizHandler(deps.Quizzes)
	notificationHandler := notification_handlers.NewNotificationHandler(deps.Notifications)

	app.Use(identity.Optional())

	app.Get("/", healthHandler.Check)

	if deps.UploadFolder != "" {
		app.Static("/uploads", deps.UploadFolder)
	}

	// Accounts
	app.Post("/register", authHandler.Register)
	app.Post("/login", deps.BruteForce.CheckAndRecordAttempt(), authHandler.Login)
	app.Post("/save-profile", authHandler.SaveProfile)

	// Subjects and weekly materials
	app.Get("/subjects", subjectHandler.ListSubjects)
	app.Post("/subjects", subjectHandler.CreateSubject)
	app.Get("/subjects/:id", subjectHandler.GetSubject)
	app.Delete("/subjects/:id", subjectHandler.DeleteSubject)
	app.Put("/subjects/:id/update-week-topic", subjectHandler.UpdateWeekTopic)
	app.Post("/weeks/:id/materials", materialHandler.UploadMaterial)

	api := app.Group("/api")

	user := api.Group("/user")
	user.Get("/", authHandler.GetUser)
	user.Put("/profile", authHandler.UpdateProfile)
	user.Put("/password", authHandler.ChangePassword)
	user.Put("/preferences", authHandler.UpdatePreferences)
	user.Delete("/account", authHandler.DeleteAccount)

	// reorder is registered before /:id so it never matches as an id
	subjects := api.Group("/subjects")
	subjects.Patch("/reorder", subjectHandler.ReorderSubjects)
	subjects.Post("/:id/reanalyze", subjectHandler.Reanalyze)
	subjects.Patch("/:id/color", subjectHandler.UpdateColor)
	subjects.Get("/:id/quizzes", quizHandler.History)
	subjects.Put("/:id/exam-date", examHandler.SetExamDate)
	subjects.Delete("/:id/exam-date", examHandler.ClearExamDate)
	subjects.Put("/:id/notification", examHandler.SetNotification)
	subjects.Post("/:id/study-plan", examHandler.GeneratePlan)
	subjects.Get("/:id/study-plan", examHandler.GetPlan)

	api.Delete("/materials/:id", materialHandler.DeleteMaterial)

	api.Post("/concept/generate", conceptHandler.Generate)

	quiz := api.Group("/quiz")
	quiz.Post("/generate", quizHandler.GenerateQuiz)
	quiz.Get("/:id", quizHandler.GetQuiz)
	quiz.Post("/:id/submit", quizHandler.SubmitQuiz)
	quiz.Delete("/:id", quizHandler.DeleteQuiz)

	notifications := api.Group("/notifications")
	notifications.Get("/", notificationHandler.GetNotifications)
	notifications.Patch("/read-all", notificationHandler.MarkAllAsRead)
	notifications.Patch("/:id/read", notificationHandler.MarkAsRead)
}
