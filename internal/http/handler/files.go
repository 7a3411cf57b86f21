package handler

import (
	"errors"
	"mime"
	"net/http"
	"strconv"
	"time"

	"github.com/gofiber/fiber/v2"

	"dochub/internal/http/middleware"
	"dochub/internal/logger"
	"dochub/internal/model"
	"dochub/internal/service"
)

const fileCacheControl = "private, max-age=3600"

// UploadFiles stores each uploaded file independently and reports per-file
// rejections alongside the stored files.
// @Summary Upload files
// @Tags files
// @Accept mpfd
// @Produce json
// @Param files formData file true "Files to upload"
// @Success 200 {object} successPayload
// @Failure 400 {object} errorPayload
// @Router /api/upload [post]
func UploadFiles(svc service.FileService) fiber.Handler {
	return func(c *fiber.Ctx) error {
		headers := formFiles(c)
		if len(headers) == 0 {
			return writeError(c, fiber.StatusBadRequest, "NO_FILES", "No files provided", "", nil)
		}

		inputs := make([]service.UploadInput, 0, len(headers))
		for _, fh := range headers {
			f, err := fh.Open()
			if err != nil {
				return writeError(c, fiber.StatusBadRequest, "FILE_OPEN_ERROR", "cannot open uploaded file", "", fiber.Map{"file": fh.Filename})
			}
			defer f.Close()
			inputs = append(inputs, service.UploadInput{
				Name:        fh.Filename,
				ContentType: contentType(fh),
				Size:        fh.Size,
				Reader:      f,
			})
		}

		res := svc.Upload(c.UserContext(), inputs)
		if len(res.UploadedFiles) == 0 {
			return writeError(c, fiber.StatusBadRequest, "UPLOAD_FAILED", "No files were uploaded", "", res.Errors)
		}
		return writeSuccess(c, fiber.StatusOK, res, strconv.Itoa(len(res.UploadedFiles))+" file(s) uploaded")
	}
}

// ServeFile streams a stored file. HEAD requests get the headers only and
// If-Modified-Since is honoured with 304.
// @Summary Retrieve a stored file
// @Tags files
// @Produce octet-stream
// @Param id path string true "File id"
// @Param preview query bool false "Serve inline instead of as an attachment"
// @Success 200 {file} file
// @Success 304
// @Failure 404 {object} errorPayload
// @Router /api/files/{id} [get]
func ServeFile(svc service.FileService) fiber.Handler {
	return serveFile(svc, false)
}

// Download always serves the stored file as an attachment.
// @Summary Download a stored file
// @Tags files
// @Produce octet-stream
// @Param id path string true "File id"
// @Success 200 {file} file
// @Failure 404 {object} errorPayload
// @Router /api/download/{id} [get]
func Download(svc service.FileService) fiber.Handler {
	return serveFile(svc, true)
}

func serveFile(svc service.FileService, forceAttachment bool) fiber.Handler {
	return func(c *fiber.Ctx) error {
		id := c.Params("id")
		info, err := svc.Stat(c.UserContext(), id)
		if err != nil {
			return writeFileError(c, err)
		}

		lastModified := info.UploadedAt.UTC().Truncate(time.Second)
		if ims := c.Get(fiber.HeaderIfModifiedSince); ims != "" {
			if t, err := http.ParseTime(ims); err == nil && !lastModified.After(t) {
				setValidators(c, lastModified)
				return c.SendStatus(fiber.StatusNotModified)
			}
		}

		setFileHeaders(c, info, lastModified, !forceAttachment && c.QueryBool("preview"))
		if c.Method() == fiber.MethodHead {
			c.Response().Header.SetContentLength(int(info.Size))
			return nil
		}

		rc, _, err := svc.Open(c.UserContext(), id)
		if err != nil {
			return writeFileError(c, err)
		}
		return c.SendStream(rc, int(info.Size))
	}
}

func setFileHeaders(c *fiber.Ctx, info *model.StoredFile, lastModified time.Time, inline bool) {
	disposition := "attachment"
	if inline {
		disposition = "inline"
	}
	c.Set(fiber.HeaderContentType, info.Type)
	c.Set(fiber.HeaderXContentTypeOptions, "nosniff")
	setValidators(c, lastModified)
	c.Set(fiber.HeaderContentDisposition, mime.FormatMediaType(disposition, map[string]string{"filename": info.OriginalName}))
}

func setValidators(c *fiber.Ctx, lastModified time.Time) {
	c.Set(fiber.HeaderLastModified, lastModified.Format(http.TimeFormat))
	c.Set(fiber.HeaderCacheControl, fileCacheControl)
}

// DeleteFile removes a stored file.
// @Summary Delete a stored file
// @Tags files
// @Produce json
// @Param id path string true "File id"
// @Success 200 {object} successPayload
// @Failure 404 {object} errorPayload
// @Router /api/files/{id} [delete]
func DeleteFile(svc service.FileService) fiber.Handler {
	return func(c *fiber.Ctx) error {
		if err := svc.Delete(c.UserContext(), c.Params("id")); err != nil {
			return writeFileError(c, err)
		}
		return writeSuccess(c, fiber.StatusOK, nil, "File deleted successfully")
	}
}

// FileOptions answers preflight requests for the file routes.
func FileOptions(methods string) fiber.Handler {
	return func(c *fiber.Ctx) error {
		c.Set(fiber.HeaderAllow, methods)
		return c.SendStatus(fiber.StatusNoContent)
	}
}

func writeFileError(c *fiber.Ctx, err error) error {
	switch {
	case errors.Is(err, service.ErrNotFound), errors.Is(err, service.ErrIDRequired):
		return writeError(c, fiber.StatusNotFound, "NOT_FOUND", "File not found", "", nil)
	default:
		log := logger.Component("http")
		log.Error().Err(err).Str("request_id", middleware.GetRequestID(c)).Msg("file_access_failed")
		return writeError(c, fiber.StatusInternalServerError, "INTERNAL_ERROR", "internal server error", "", nil)
	}
}
