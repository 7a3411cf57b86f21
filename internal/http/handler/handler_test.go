package handler

import (
	"bytes"
	"encoding/json"
	"errors"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"dochub/internal/model"
	"dochub/internal/service"
	serviceMocks "dochub/internal/service/mocks"
	"dochub/internal/tool"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

type formFile struct {
	field, name string
	data        []byte
}

func multipartBody(t *testing.T, fields map[string]string, files ...formFile) (*bytes.Buffer, string) {
	t.Helper()
	body := &bytes.Buffer{}
	writer := multipart.NewWriter(body)
	for k, v := range fields {
		require.NoError(t, writer.WriteField(k, v))
	}
	for _, f := range files {
		part, err := writer.CreateFormFile(f.field, f.name)
		require.NoError(t, err)
		_, err = part.Write(f.data)
		require.NoError(t, err)
	}
	require.NoError(t, writer.Close())
	return body, writer.FormDataContentType()
}

func decodeError(t *testing.T, resp *http.Response) errorPayload {
	t.Helper()
	var body errorPayload
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&body))
	return body
}

func TestHealthCheck(t *testing.T) {
	db, dbMock, err := sqlmock.New(sqlmock.MonitorPingsOption(true))
	require.NoError(t, err)
	defer db.Close()

	app := fiber.New()
	app.Get("/health", HealthCheck(db))

	t.Run("healthy", func(t *testing.T) {
		dbMock.ExpectPing().WillReturnError(nil)

		resp, _ := app.Test(httptest.NewRequest(http.MethodGet, "/health", nil))
		assert.Equal(t, http.StatusOK, resp.StatusCode)

		var body map[string]string
		json.NewDecoder(resp.Body).Decode(&body)
		assert.Equal(t, "healthy", body["status"])
		assert.Equal(t, "up", body["database"])
	})

	t.Run("unhealthy", func(t *testing.T) {
		dbMock.ExpectPing().WillReturnError(errors.New("db error"))

		resp, _ := app.Test(httptest.NewRequest(http.MethodGet, "/health", nil))
		assert.Equal(t, http.StatusServiceUnavailable, resp.StatusCode)
		body := decodeError(t, resp)
		assert.False(t, body.Success)
		assert.Equal(t, "SERVICE_UNAVAILABLE", body.Code)
	})

	t.Run("database disabled", func(t *testing.T) {
		app := fiber.New()
		app.Get("/health", HealthCheck(nil))

		resp, _ := app.Test(httptest.NewRequest(http.MethodGet, "/health", nil))
		assert.Equal(t, http.StatusOK, resp.StatusCode)
		var body map[string]string
		json.NewDecoder(resp.Body).Decode(&body)
		assert.Equal(t, "disabled", body["database"])
	})
}

func TestLivenessProbe(t *testing.T) {
	app := fiber.New()
	app.Get("/healthz", LivenessProbe())

	resp, _ := app.Test(httptest.NewRequest(http.MethodGet, "/healthz", nil))
	assert.Equal(t, http.StatusOK, resp.StatusCode)
}

func TestProcessFiles(t *testing.T) {
	mockSvc := new(serviceMocks.MockPipelineService)
	app := fiber.New()
	app.Post("/api/process", ProcessFiles(mockSvc))

	post := func(t *testing.T, fields map[string]string, files ...formFile) *http.Response {
		body, ct := multipartBody(t, fields, files...)
		req := httptest.NewRequest(http.MethodPost, "/api/process", body)
		req.Header.Set("Content-Type", ct)
		resp, err := app.Test(req, -1)
		require.NoError(t, err)
		return resp
	}

	t.Run("success", func(t *testing.T) {
		created := time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)
		mockSvc.On("Run", mock.Anything, mock.MatchedBy(func(in service.ProcessInput) bool {
			return in.ToolID == "pdf-merge" &&
				in.Options == `{"outputName":"all"}` &&
				len(in.Files) == 3 &&
				in.Files[0].Name == "a.pdf" && in.Files[1].Name == "b.pdf" && in.Files[2].Name == "c.pdf" &&
				string(in.Files[0].Data) == "A"
		})).Return(&service.ProcessResult{
			Files: []model.ProcessedFile{{
				ID: "0190-out", Name: "all.pdf", OriginalName: "a.pdf", Size: 2,
				Type: "application/pdf", Data: model.ByteArray("%P"), CreatedAt: created, ToolUsed: "pdf-merge",
			}},
			Message: "Processed 1 file(s) with pdf-merge",
		}, nil).Once()

		resp := post(t, map[string]string{"toolId": "pdf-merge", "options": `{"outputName":"all"}`},
			formFile{"files[]", "a.pdf", []byte("A")},
			formFile{"files", "b.pdf", []byte("B")},
			formFile{"file", "c.pdf", []byte("C")},
		)
		assert.Equal(t, http.StatusOK, resp.StatusCode)

		raw, _ := io.ReadAll(resp.Body)
		assert.Contains(t, string(raw), `"data":[{"id":"0190-out"`)
		assert.Contains(t, string(raw), `"data":[37,80]`)
		assert.Contains(t, string(raw), `"message":"Processed 1 file(s) with pdf-merge"`)
		mockSvc.AssertExpectations(t)
	})

	cases := []struct {
		name   string
		err    error
		status int
		code   string
	}{
		{"no files", service.ErrNoFiles, http.StatusBadRequest, "NO_FILES"},
		{"missing tool", service.ErrToolIDRequired, http.StatusBadRequest, "TOOL_ID_REQUIRED"},
		{"unknown tool", errors.Join(tool.ErrUnknownTool), http.StatusBadRequest, "INVALID_TOOL"},
		{"too few files", service.ErrTooFewFiles, http.StatusBadRequest, "TOO_FEW_FILES"},
		{"bad options", errors.Join(tool.ErrInvalidOptions), http.StatusBadRequest, "INVALID_OPTIONS"},
		{"empty file", &service.FileError{File: "blank.pdf", Err: service.ErrEmptyFile}, http.StatusBadRequest, "EMPTY_FILE"},
		{"unsupported input", &service.FileError{File: "cat.png", Err: tool.ErrUnsupportedInput}, http.StatusBadRequest, "UNSUPPORTED_INPUT"},
		{"processing failure", &service.FileError{File: "b.pdf", Err: errors.New("corrupt xref table")}, http.StatusInternalServerError, "PROCESSING_FAILED"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			mockSvc.On("Run", mock.Anything, mock.Anything).Return(nil, tc.err).Once()

			resp := post(t, map[string]string{"toolId": "pdf-split"}, formFile{"files", "b.pdf", []byte("B")})
			assert.Equal(t, tc.status, resp.StatusCode)
			body := decodeError(t, resp)
			assert.False(t, body.Success)
			assert.Equal(t, tc.code, body.Code)
			mockSvc.AssertExpectations(t)
		})
	}

	t.Run("processing failure names the file", func(t *testing.T) {
		mockSvc.On("Run", mock.Anything, mock.Anything).
			Return(nil, &service.FileError{File: "b.pdf", Err: errors.New("corrupt xref table")}).Once()

		resp := post(t, map[string]string{"toolId": "pdf-split"}, formFile{"files", "b.pdf", []byte("B")})
		body := decodeError(t, resp)
		assert.Equal(t, "Failed to process b.pdf", body.Error)
		assert.Equal(t, "corrupt xref table", body.Message)
		assert.Equal(t, map[string]any{"file": "b.pdf"}, body.Details)
	})
}

func TestListTools(t *testing.T) {
	mockSvc := new(serviceMocks.MockPipelineService)
	app := fiber.New()
	app.Get("/api/tools", ListTools(mockSvc))

	mockSvc.On("Tools").Return(tool.DefaultRegistry().Entries()).Once()

	resp, _ := app.Test(httptest.NewRequest(http.MethodGet, "/api/tools", nil))
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	var body struct {
		Success bool         `json:"success"`
		Data    []tool.Entry `json:"data"`
	}
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&body))
	assert.True(t, body.Success)
	require.Len(t, body.Data, len(tool.AllIDs))
	assert.Equal(t, tool.PDFMerge, body.Data[0].ID)
	mockSvc.AssertExpectations(t)
}

func TestUploadFiles(t *testing.T) {
	mockSvc := new(serviceMocks.MockFileService)
	app := fiber.New()
	app.Post("/api/upload", UploadFiles(mockSvc))

	post := func(t *testing.T, files ...formFile) *http.Response {
		body, ct := multipartBody(t, nil, files...)
		req := httptest.NewRequest(http.MethodPost, "/api/upload", body)
		req.Header.Set("Content-Type", ct)
		resp, err := app.Test(req, -1)
		require.NoError(t, err)
		return resp
	}

	t.Run("partial success", func(t *testing.T) {
		mockSvc.On("Upload", mock.Anything, mock.MatchedBy(func(in []service.UploadInput) bool {
			return len(in) == 2 && in[0].Name == "notes.pdf" && in[0].Size == 5 && in[1].Name == "tool.exe"
		})).Return(service.UploadResult{
			UploadedFiles: []model.StoredFile{{ID: "1-abc.pdf", OriginalName: "notes.pdf", Size: 5, URL: "/api/files/1-abc.pdf"}},
			Errors:        []service.UploadError{{File: "tool.exe", Error: "file type application/x-msdownload is not allowed"}},
		}).Once()

		resp := post(t, formFile{"files", "notes.pdf", []byte("hello")}, formFile{"files", "tool.exe", []byte("MZ")})
		assert.Equal(t, http.StatusOK, resp.StatusCode)

		var body struct {
			Success bool                 `json:"success"`
			Data    service.UploadResult `json:"data"`
		}
		require.NoError(t, json.NewDecoder(resp.Body).Decode(&body))
		assert.True(t, body.Success)
		require.Len(t, body.Data.UploadedFiles, 1)
		assert.Equal(t, "1-abc.pdf", body.Data.UploadedFiles[0].ID)
		require.Len(t, body.Data.Errors, 1)
		assert.Equal(t, "tool.exe", body.Data.Errors[0].File)
		mockSvc.AssertExpectations(t)
	})

	t.Run("all rejected", func(t *testing.T) {
		mockSvc.On("Upload", mock.Anything, mock.Anything).Return(service.UploadResult{
			UploadedFiles: []model.StoredFile{},
			Errors:        []service.UploadError{{File: "tool.exe", Error: "not allowed"}},
		}).Once()

		resp := post(t, formFile{"files", "tool.exe", []byte("MZ")})
		assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
		body := decodeError(t, resp)
		assert.Equal(t, "UPLOAD_FAILED", body.Code)
		assert.NotNil(t, body.Details)
	})

	t.Run("no files", func(t *testing.T) {
		resp, _ := app.Test(httptest.NewRequest(http.MethodPost, "/api/upload", nil))
		assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
		assert.Equal(t, "NO_FILES", decodeError(t, resp).Code)
	})
}

func TestServeFile(t *testing.T) {
	uploaded := time.Date(2026, 3, 1, 10, 0, 0, 500, time.UTC)
	info := &model.StoredFile{
		ID:           "1-abc.pdf",
		OriginalName: "lecture notes.pdf",
		Size:         5,
		Type:         "application/pdf",
		UploadedAt:   uploaded,
	}

	mockSvc := new(serviceMocks.MockFileService)
	app := fiber.New()
	app.Get("/api/files/:id", ServeFile(mockSvc))
	app.Get("/api/download/:id", Download(mockSvc))

	mockSvc.On("Stat", mock.Anything, "1-abc.pdf").Return(info, nil)
	mockSvc.On("Stat", mock.Anything, "missing.pdf").Return(nil, service.ErrNotFound)
	expectOpen := func() {
		mockSvc.On("Open", mock.Anything, "1-abc.pdf").Return(io.NopCloser(strings.NewReader("%PDF-")), info, nil).Once()
	}

	t.Run("attachment by default", func(t *testing.T) {
		expectOpen()
		resp, err := app.Test(httptest.NewRequest(http.MethodGet, "/api/files/1-abc.pdf", nil))
		require.NoError(t, err)
		assert.Equal(t, http.StatusOK, resp.StatusCode)

		raw, _ := io.ReadAll(resp.Body)
		assert.Equal(t, "%PDF-", string(raw))
		assert.Equal(t, "application/pdf", resp.Header.Get("Content-Type"))
		assert.Equal(t, "5", resp.Header.Get("Content-Length"))
		assert.Equal(t, "Sun, 01 Mar 2026 10:00:00 GMT", resp.Header.Get("Last-Modified"))
		assert.Equal(t, fileCacheControl, resp.Header.Get("Cache-Control"))
		assert.Equal(t, `attachment; filename="lecture notes.pdf"`, resp.Header.Get("Content-Disposition"))
		assert.Equal(t, "nosniff", resp.Header.Get("X-Content-Type-Options"))
	})

	t.Run("inline preview", func(t *testing.T) {
		expectOpen()
		resp, _ := app.Test(httptest.NewRequest(http.MethodGet, "/api/files/1-abc.pdf?preview=true", nil))
		assert.Equal(t, http.StatusOK, resp.StatusCode)
		assert.True(t, strings.HasPrefix(resp.Header.Get("Content-Disposition"), "inline;"))
	})

	t.Run("download ignores preview", func(t *testing.T) {
		expectOpen()
		resp, _ := app.Test(httptest.NewRequest(http.MethodGet, "/api/download/1-abc.pdf?preview=true", nil))
		assert.Equal(t, http.StatusOK, resp.StatusCode)
		assert.True(t, strings.HasPrefix(resp.Header.Get("Content-Disposition"), "attachment;"))
	})

	t.Run("not modified", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/api/files/1-abc.pdf", nil)
		req.Header.Set("If-Modified-Since", "Sun, 01 Mar 2026 10:00:00 GMT")
		resp, _ := app.Test(req)
		assert.Equal(t, http.StatusNotModified, resp.StatusCode)
		raw, _ := io.ReadAll(resp.Body)
		assert.Empty(t, raw)
		assert.Equal(t, "Sun, 01 Mar 2026 10:00:00 GMT", resp.Header.Get("Last-Modified"))
		assert.Equal(t, fileCacheControl, resp.Header.Get("Cache-Control"))
	})

	t.Run("modified since older date", func(t *testing.T) {
		expectOpen()
		req := httptest.NewRequest(http.MethodGet, "/api/files/1-abc.pdf", nil)
		req.Header.Set("If-Modified-Since", "Sat, 28 Feb 2026 10:00:00 GMT")
		resp, _ := app.Test(req)
		assert.Equal(t, http.StatusOK, resp.StatusCode)
	})

	t.Run("head", func(t *testing.T) {
		resp, _ := app.Test(httptest.NewRequest(http.MethodHead, "/api/files/1-abc.pdf", nil))
		assert.Equal(t, http.StatusOK, resp.StatusCode)
		assert.Equal(t, "application/pdf", resp.Header.Get("Content-Type"))
		assert.Equal(t, "5", resp.Header.Get("Content-Length"))
	})

	t.Run("not found", func(t *testing.T) {
		resp, _ := app.Test(httptest.NewRequest(http.MethodGet, "/api/files/missing.pdf", nil))
		assert.Equal(t, http.StatusNotFound, resp.StatusCode)
		assert.Equal(t, "NOT_FOUND", decodeError(t, resp).Code)
	})
}

func TestDeleteFile(t *testing.T) {
	mockSvc := new(serviceMocks.MockFileService)
	app := fiber.New()
	app.Delete("/api/files/:id", DeleteFile(mockSvc))

	t.Run("success", func(t *testing.T) {
		mockSvc.On("Delete", mock.Anything, "1-abc.pdf").Return(nil).Once()

		resp, _ := app.Test(httptest.NewRequest(http.MethodDelete, "/api/files/1-abc.pdf", nil))
		assert.Equal(t, http.StatusOK, resp.StatusCode)
		var body successPayload
		json.NewDecoder(resp.Body).Decode(&body)
		assert.True(t, body.Success)
		mockSvc.AssertExpectations(t)
	})

	t.Run("not found", func(t *testing.T) {
		mockSvc.On("Delete", mock.Anything, "gone.pdf").Return(service.ErrNotFound).Once()

		resp, _ := app.Test(httptest.NewRequest(http.MethodDelete, "/api/files/gone.pdf", nil))
		assert.Equal(t, http.StatusNotFound, resp.StatusCode)
	})

	t.Run("storage error", func(t *testing.T) {
		mockSvc.On("Delete", mock.Anything, "1-x.pdf").Return(errors.New("permission denied")).Once()

		resp, _ := app.Test(httptest.NewRequest(http.MethodDelete, "/api/files/1-x.pdf", nil))
		assert.Equal(t, http.StatusInternalServerError, resp.StatusCode)
		assert.Equal(t, "INTERNAL_ERROR", decodeError(t, resp).Code)
	})
}

func TestGenerateSignature(t *testing.T) {
	mockSvc := new(serviceMocks.MockSignatureService)
	app := fiber.New()
	app.Post("/api/sign/generate-hash", GenerateSignature(mockSvc))

	post := func(t *testing.T, fields map[string]string, files ...formFile) *http.Response {
		body, ct := multipartBody(t, fields, files...)
		req := httptest.NewRequest(http.MethodPost, "/api/sign/generate-hash", body)
		req.Header.Set("Content-Type", ct)
		resp, err := app.Test(req, -1)
		require.NoError(t, err)
		return resp
	}

	t.Run("success", func(t *testing.T) {
		sig := &model.Signature{ID: "sig-1", Hash: "abc123", DocumentName: "thesis.pdf", SignerName: "Ama Mensah"}
		mockSvc.On("Generate", mock.Anything, mock.MatchedBy(func(r service.SignRequest) bool {
			return r.DocumentName == "thesis.pdf" && r.SignerName == "Ama Mensah" && r.SignerEmail == "ama@upsamail.edu.gh"
		})).Return(sig, nil).Once()

		resp := post(t, map[string]string{"signerName": "Ama Mensah", "signerEmail": "ama@upsamail.edu.gh"},
			formFile{"file", "thesis.pdf", []byte("%PDF-1.4")})
		assert.Equal(t, http.StatusCreated, resp.StatusCode)

		var body struct {
			Data signatureResponse `json:"data"`
		}
		require.NoError(t, json.NewDecoder(resp.Body).Decode(&body))
		assert.Equal(t, "abc123", body.Data.Signature.Hash)
		assert.True(t, strings.HasSuffix(body.Data.VerificationURL, "/api/sign/verify/abc123"))
		mockSvc.AssertExpectations(t)
	})

	t.Run("signer required", func(t *testing.T) {
		mockSvc.On("Generate", mock.Anything, mock.Anything).Return(nil, service.ErrSignerRequired).Once()

		resp := post(t, nil, formFile{"file", "thesis.pdf", []byte("%PDF-1.4")})
		assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
		assert.Equal(t, "SIGNER_REQUIRED", decodeError(t, resp).Code)
	})

	t.Run("file required", func(t *testing.T) {
		resp := post(t, map[string]string{"signerName": "Ama Mensah"})
		assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
		assert.Equal(t, "FILE_REQUIRED", decodeError(t, resp).Code)
	})
}

func TestVerifySignature(t *testing.T) {
	mockSvc := new(serviceMocks.MockSignatureService)
	app := fiber.New()
	app.Get("/api/sign/verify/:hash", VerifySignature(mockSvc))
	app.Post("/api/sign/verify", VerifySignature(mockSvc))

	t.Run("by path", func(t *testing.T) {
		mockSvc.On("Verify", mock.Anything, "abc123").Return(&service.Verification{
			Valid:     true,
			Signature: &model.Signature{Hash: "abc123"},
		}, nil).Once()

		resp, _ := app.Test(httptest.NewRequest(http.MethodGet, "/api/sign/verify/abc123", nil))
		assert.Equal(t, http.StatusOK, resp.StatusCode)

		var body struct {
			Data service.Verification `json:"data"`
		}
		require.NoError(t, json.NewDecoder(resp.Body).Decode(&body))
		assert.True(t, body.Data.Valid)
		mockSvc.AssertExpectations(t)
	})

	t.Run("by body", func(t *testing.T) {
		mockSvc.On("Verify", mock.Anything, "def456").Return(nil, service.ErrSignatureNotFound).Once()

		req := httptest.NewRequest(http.MethodPost, "/api/sign/verify", strings.NewReader(`{"hash":"def456"}`))
		req.Header.Set("Content-Type", "application/json")
		resp, _ := app.Test(req)
		assert.Equal(t, http.StatusNotFound, resp.StatusCode)
		assert.Equal(t, "SIGNATURE_NOT_FOUND", decodeError(t, resp).Code)
		mockSvc.AssertExpectations(t)
	})

	t.Run("by document hash", func(t *testing.T) {
		mockSvc.On("Verify", mock.Anything, "feed01").Return(&service.Verification{Valid: true}, nil).Once()

		req := httptest.NewRequest(http.MethodPost, "/api/sign/verify", strings.NewReader(`{"documentHash":"feed01"}`))
		req.Header.Set("Content-Type", "application/json")
		resp, _ := app.Test(req)
		assert.Equal(t, http.StatusOK, resp.StatusCode)
		mockSvc.AssertExpectations(t)
	})

	t.Run("hash required", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodPost, "/api/sign/verify", strings.NewReader(`{}`))
		req.Header.Set("Content-Type", "application/json")
		resp, _ := app.Test(req)
		assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
		assert.Equal(t, "HASH_REQUIRED", decodeError(t, resp).Code)
	})
}
