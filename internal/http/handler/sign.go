package handler

import (
	"errors"
	"strings"

	"github.com/gofiber/fiber/v2"

	"dochub/internal/http/middleware"
	"dochub/internal/logger"
	"dochub/internal/model"
	"dochub/internal/service"
)

type signatureResponse struct {
	Signature       *model.Signature `json:"signature"`
	VerificationURL string           `json:"verificationUrl"`
}

type verifyRequest struct {
	Hash         string `json:"hash"`
	DocumentHash string `json:"documentHash"`
}

// GenerateSignature registers a signature for the uploaded document.
// @Summary Sign a document
// @Tags signatures
// @Accept mpfd
// @Produce json
// @Param file formData file true "Document to sign"
// @Param signerName formData string true "Signer name"
// @Param signerEmail formData string false "Signer email"
// @Success 201 {object} successPayload
// @Failure 400 {object} errorPayload
// @Router /api/sign/generate-hash [post]
func GenerateSignature(svc service.SignatureService) fiber.Handler {
	return func(c *fiber.Ctx) error {
		fh, err := c.FormFile("file")
		if err != nil {
			return writeError(c, fiber.StatusBadRequest, "FILE_REQUIRED", "file is required", "", nil)
		}
		f, err := fh.Open()
		if err != nil {
			return writeError(c, fiber.StatusBadRequest, "FILE_OPEN_ERROR", "cannot open uploaded file", "", nil)
		}
		defer f.Close()

		name := c.FormValue("documentName")
		if name == "" {
			name = fh.Filename
		}
		sig, err := svc.Generate(c.UserContext(), service.SignRequest{
			DocumentName: name,
			SignerName:   c.FormValue("signerName"),
			SignerEmail:  c.FormValue("signerEmail"),
			Document:     f,
		})
		switch {
		case errors.Is(err, service.ErrSignerRequired):
			return writeError(c, fiber.StatusBadRequest, "SIGNER_REQUIRED", "Signer name is required", "", nil)
		case errors.Is(err, service.ErrEmptyFile):
			return writeError(c, fiber.StatusBadRequest, "EMPTY_FILE", "File is empty", "", nil)
		case err != nil:
			log := logger.Component("http")
			log.Error().Err(err).Str("request_id", middleware.GetRequestID(c)).Msg("signature_generate_failed")
			return writeError(c, fiber.StatusInternalServerError, "INTERNAL_ERROR", "internal server error", "", nil)
		}

		return writeSuccess(c, fiber.StatusCreated, signatureResponse{
			Signature:       sig,
			VerificationURL: c.BaseURL() + "/api/sign/verify/" + sig.Hash,
		}, "Document signed")
	}
}

// VerifySignature looks a signature up by its hash or by the document hash.
// The hash comes from the path or a JSON body.
// @Summary Verify a signature
// @Tags signatures
// @Produce json
// @Param hash path string true "Signature or document hash"
// @Success 200 {object} successPayload
// @Failure 404 {object} errorPayload
// @Router /api/sign/verify/{hash} [get]
func VerifySignature(svc service.SignatureService) fiber.Handler {
	return func(c *fiber.Ctx) error {
		hash := c.Params("hash")
		if hash == "" && len(c.Body()) > 0 {
			var req verifyRequest
			if err := c.BodyParser(&req); err != nil {
				return writeError(c, fiber.StatusBadRequest, "INVALID_BODY", "invalid request body", "", nil)
			}
			hash = req.Hash
			if hash == "" {
				hash = req.DocumentHash
			}
		}
		if strings.TrimSpace(hash) == "" {
			return writeError(c, fiber.StatusBadRequest, "HASH_REQUIRED", "Hash is required", "", nil)
		}

		v, err := svc.Verify(c.UserContext(), hash)
		switch {
		case errors.Is(err, service.ErrSignatureNotFound):
			return writeError(c, fiber.StatusNotFound, "SIGNATURE_NOT_FOUND", "Signature not found", "", fiber.Map{"valid": false})
		case errors.Is(err, service.ErrHashRequired):
			return writeError(c, fiber.StatusBadRequest, "HASH_REQUIRED", "Hash is required", "", nil)
		case err != nil:
			log := logger.Component("http")
			log.Error().Err(err).Str("request_id", middleware.GetRequestID(c)).Msg("signature_verify_failed")
			return writeError(c, fiber.StatusInternalServerError, "INTERNAL_ERROR", "internal server error", "", nil)
		}
		return writeSuccess(c, fiber.StatusOK, v, "")
	}
}
