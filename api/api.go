package api

import (
	"log"

	"github.com/gofiber/fiber/v2"
)

type APIServer struct {
	app           *fiber.App
	listenAddress string
}

// NewAPIServer creates the fiber app; views may be nil when no pages are served
func NewAPIServer(listenAddress string, views fiber.Views) *APIServer {
	return &APIServer{
		app: fiber.New(fiber.Config{
			AppName:   "pyq-archive",
			Views:     views,
			BodyLimit: 16 * 1024 * 1024,
		}),
		listenAddress: listenAddress,
	}
}

func (s *APIServer) GetEngine() *fiber.App {
	return s.app
}

func (s *APIServer) Run() error {
	log.Println("Starting API Server")
	log.Printf("Listening on %s", s.listenAddress)

	return s.app.Listen(s.listenAddress)
}
