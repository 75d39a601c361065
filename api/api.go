package api

import (
	"log"

	"github.com/gofiber/fiber/v2"
)

// APIServer wraps the fiber app and its listen address
type APIServer struct {
	app           *fiber.App
	listenAddress string
}

// NewAPIServer creates the server
func NewAPIServer(listenAddress string) *APIServer {
	return &APIServer{
		app: fiber.New(fiber.Config{
			AppName:   "PrepNest API",
			BodyLimit: 32 * 1024 * 1024, // note uploads
		}),
		listenAddress: listenAddress,
	}
}

// GetEngine exposes the underlying fiber app for route registration
func (s *APIServer) GetEngine() *fiber.App {
	return s.app
}

// Run starts listening
func (s *APIServer) Run() error {
	log.Println("Starting API Server")
	log.Printf("Listening on %s", s.listenAddress)

	return s.app.Listen(s.listenAddress)
}

// Shutdown stops the server gracefully
func (s *APIServer) Shutdown() error {
	return s.app.Shutdown()
}
