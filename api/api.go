package api

import (
	"errors"

	"github.com/gofiber/fiber/v2"
	"github.com/sahilchouksey/adaptive-tutor-api/utils/logger"
	"github.com/sahilchouksey/adaptive-tutor-api/utils/response"
)

type APIServer struct {
	app            *fiber.App
	listenAddress  string
	maxUploadBytes int
	log            *logger.Logger
}

// NewAPIServer builds the fiber app. Request bodies are capped at
// maxUploadBytes.
func NewAPIServer(listenAddress string, maxUploadBytes int, log *logger.Logger) *APIServer {
	if log == nil {
		log = logger.NewNop()
	}
	s := &APIServer{
		listenAddress:  listenAddress,
		maxUploadBytes: maxUploadBytes,
		log:            log,
	}
	s.app = fiber.New(fiber.Config{
		AppName:      "adaptive-tutor-api",
		BodyLimit:    maxUploadBytes,
		ErrorHandler: s.handleError,
	})
	return s
}

func (s *APIServer) GetEngine() *fiber.App {
	return s.app
}

func (s *APIServer) Run() error {
	s.log.Info("starting API server", "address", s.listenAddress)
	return s.app.Listen(s.listenAddress)
}

func (s *APIServer) Shutdown() error {
	return s.app.Shutdown()
}

// handleError renders errors that escaped a handler in the response envelope.
func (s *APIServer) handleError(c *fiber.Ctx, err error) error {
	var fe *fiber.Error
	if errors.As(err, &fe) {
		switch fe.Code {
		case fiber.StatusRequestEntityTooLarge:
			return response.FileTooLarge(c, s.maxUploadBytes)
		case fiber.StatusNotFound:
			return response.NotFound(c, fe.Message)
		case fiber.StatusMethodNotAllowed:
			return response.Error(c, fe.Code, fe.Message, "METHOD_NOT_ALLOWED")
		}
		if fe.Code < fiber.StatusInternalServerError {
			return response.Error(c, fe.Code, fe.Message, "REQUEST_ERROR")
		}
	}

	s.log.Error("unhandled request error", "method", c.Method(), "path", c.Path(), "error", err)
	return response.InternalServerError(c, "Internal server error")
}
