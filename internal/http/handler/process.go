package handler

import (
	"errors"
	"fmt"
	"io"
	"mime/multipart"

	"github.com/gofiber/fiber/v2"

	"dochub/internal/http/middleware"
	"dochub/internal/logger"
	"dochub/internal/service"
	"dochub/internal/tool"
)

// formFileFields are the multipart field names accepted for uploaded files.
var formFileFields = []string{"files[]", "files", "file"}

// formFiles collects uploaded files from every accepted field, in form order.
func formFiles(c *fiber.Ctx) []*multipart.FileHeader {
	form, err := c.MultipartForm()
	if err != nil {
		return nil
	}
	var out []*multipart.FileHeader
	for _, field := range formFileFields {
		out = append(out, form.File[field]...)
	}
	return out
}

func readFileHeader(fh *multipart.FileHeader) ([]byte, error) {
	f, err := fh.Open()
	if err != nil {
		return nil, err
	}
	defer f.Close()
	return io.ReadAll(f)
}

func contentType(fh *multipart.FileHeader) string {
	if ct := fh.Header.Get("Content-Type"); ct != "" {
		return ct
	}
	return "application/octet-stream"
}

// ProcessFiles runs one tool against the uploaded files and returns the
// outputs inline.
// @Summary Process files with a tool
// @Tags process
// @Accept mpfd
// @Produce json
// @Param toolId formData string true "Tool identifier"
// @Param options formData string false "Tool options as JSON"
// @Param annotations formData string false "Annotations as JSON (pdf-annotate)"
// @Param files formData file true "Files to process"
// @Success 200 {object} successPayload
// @Failure 400 {object} errorPayload
// @Failure 500 {object} errorPayload
// @Router /api/process [post]
func ProcessFiles(svc service.PipelineService) fiber.Handler {
	return func(c *fiber.Ctx) error {
		headers := formFiles(c)
		in := service.ProcessInput{
			ToolID:      c.FormValue("toolId"),
			Options:     c.FormValue("options"),
			Annotations: c.FormValue("annotations"),
			Files:       make([]service.FileInput, 0, len(headers)),
		}
		for _, fh := range headers {
			data, err := readFileHeader(fh)
			if err != nil {
				return writeError(c, fiber.StatusBadRequest, "FILE_OPEN_ERROR", "cannot read uploaded file", "", fiber.Map{"file": fh.Filename})
			}
			in.Files = append(in.Files, service.FileInput{Name: fh.Filename, MIMEType: contentType(fh), Data: data})
		}

		res, err := svc.Run(c.UserContext(), in)
		if err != nil {
			return writeProcessError(c, err)
		}
		return writeSuccess(c, fiber.StatusOK, res.Files, res.Message)
	}
}

func writeProcessError(c *fiber.Ctx, err error) error {
	var details any
	var fe *service.FileError
	if errors.As(err, &fe) {
		details = fiber.Map{"file": fe.File}
	}

	switch {
	case errors.Is(err, service.ErrNoFiles):
		return writeError(c, fiber.StatusBadRequest, "NO_FILES", "No files provided", "", nil)
	case errors.Is(err, service.ErrToolIDRequired):
		return writeError(c, fiber.StatusBadRequest, "TOOL_ID_REQUIRED", "Tool ID is required", "", nil)
	case errors.Is(err, tool.ErrUnknownTool):
		return writeError(c, fiber.StatusBadRequest, "INVALID_TOOL", "Invalid tool ID", err.Error(), nil)
	case errors.Is(err, service.ErrTooFewFiles):
		return writeError(c, fiber.StatusBadRequest, "TOO_FEW_FILES", "At least 2 files are required", "", nil)
	case errors.Is(err, service.ErrEmptyFile):
		return writeError(c, fiber.StatusBadRequest, "EMPTY_FILE", "File is empty", err.Error(), details)
	case errors.Is(err, service.ErrInvalidAnnotations):
		return writeError(c, fiber.StatusBadRequest, "INVALID_ANNOTATIONS", "Invalid annotations", err.Error(), nil)
	case errors.Is(err, tool.ErrInvalidOptions):
		return writeError(c, fiber.StatusBadRequest, "INVALID_OPTIONS", "Invalid options", err.Error(), details)
	case errors.Is(err, tool.ErrUnsupportedInput):
		return writeError(c, fiber.StatusBadRequest, "UNSUPPORTED_INPUT", "Unsupported input file", err.Error(), details)
	}

	log := logger.Component("http")
	log.Error().Err(err).Str("request_id", middleware.GetRequestID(c)).Msg("process_failed")
	summary, message := "Processing failed", err.Error()
	if fe != nil {
		summary, message = fmt.Sprintf("Failed to process %s", fe.File), fe.Err.Error()
	}
	return writeError(c, fiber.StatusInternalServerError, "PROCESSING_FAILED", summary, message, details)
}

// ListTools returns the tool catalog.
// @Summary List available tools
// @Tags process
// @Produce json
// @Success 200 {object} successPayload
// @Router /api/tools [get]
func ListTools(svc service.PipelineService) fiber.Handler {
	return func(c *fiber.Ctx) error {
		return writeSuccess(c, fiber.StatusOK, svc.Tools(), "")
	}
}
