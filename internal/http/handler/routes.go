package handler

import (
	"database/sql"

	"github.com/gofiber/fiber/v2"

	"dochub/internal/service"
)

// Services are the dependencies of the HTTP routes. Signatures and DB may be
// nil; the signature routes are only mounted when Signatures is set.
type Services struct {
	Pipeline   service.PipelineService
	Files      service.FileService
	Signatures service.SignatureService
	DB         *sql.DB
}

// RegisterRoutes attaches the API routes to app. limit guards the processing
// and upload endpoints and may be nil.
func RegisterRoutes(app *fiber.App, svc Services, limit fiber.Handler) {
	app.Get("/health", HealthCheck(svc.DB))
	app.Get("/healthz", LivenessProbe())

	api := app.Group("/api")
	guarded := []fiber.Handler{}
	if limit != nil {
		guarded = append(guarded, limit)
	}

	api.Get("/tools", ListTools(svc.Pipeline))
	api.Post("/process", append(guarded, ProcessFiles(svc.Pipeline))...)
	api.Post("/upload", append(guarded, UploadFiles(svc.Files))...)

	api.Get("/files/:id", ServeFile(svc.Files))
	api.Delete("/files/:id", DeleteFile(svc.Files))
	api.Options("/files/:id", FileOptions("GET, HEAD, DELETE, OPTIONS"))

	api.Get("/download/:id", Download(svc.Files))
	api.Delete("/download/:id", DeleteFile(svc.Files))

	if svc.Signatures != nil {
		api.Post("/sign/generate-hash", append(guarded, GenerateSignature(svc.Signatures))...)
		api.Get("/sign/verify/:hash", VerifySignature(svc.Signatures))
		api.Post("/sign/verify", VerifySignature(svc.Signatures))
	}
}
