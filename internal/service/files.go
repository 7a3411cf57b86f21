package service

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"mime"
	"path/filepath"
	"slices"
	"strings"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/gabriel-vasile/mimetype"
	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"dochub/internal/events"
	"dochub/internal/logger"
	"dochub/internal/model"
	"dochub/internal/storage"
)

// AllowedTypes is the upload allow-list. Each type maps to the extensions a
// stored key may carry; the first one is used when the filename has none of them.
var AllowedTypes = map[string][]string{
	"application/pdf":    {".pdf"},
	"image/jpeg":         {".jpg", ".jpeg"},
	"image/png":          {".png"},
	"image/gif":          {".gif"},
	"image/webp":         {".webp"},
	"image/tiff":         {".tiff", ".tif"},
	"image/bmp":          {".bmp"},
	"application/msword": {".doc"},
	"application/vnd.openxmlformats-officedocument.wordprocessingml.document": {".docx"},
	"application/vnd.ms-excel": {".xls"},
	"application/vnd.openxmlformats-officedocument.spreadsheetml.sheet":         {".xlsx"},
	"application/vnd.ms-powerpoint":                                             {".ppt"},
	"application/vnd.openxmlformats-officedocument.presentationml.presentation": {".pptx"},
	"text/plain": {".txt"},
	"text/csv":   {".csv"},
}

// Containers that sniff generically; the declared type decides for these.
var genericTypes = map[string]bool{
	"application/octet-stream":  true,
	"application/zip":           true,
	"application/x-ole-storage": true,
}

// Declared types that may refine a sniffed text/plain.
var textRefinements = map[string]bool{
	"text/csv": true,
}

const (
	metaOriginalName = "original-filename"
	sniffLen         = 3072
)

// UploadInput is one file from a multipart upload.
type UploadInput struct {
	Name        string
	ContentType string
	Size        int64
	Reader      io.Reader
}

// UploadError explains why one file of a batch was rejected.
type UploadError struct {
	File  string `json:"file"`
	Error string `json:"error"`
}

// UploadResult reports every file of a batch. Rejected files do not prevent
// the others from being stored.
type UploadResult struct {
	UploadedFiles []model.StoredFile `json:"uploadedFiles"`
	Errors        []UploadError      `json:"errors,omitempty"`
}

// FileService manages files in the uploads store.
type FileService interface {
	// Upload validates and stores each file independently.
	Upload(ctx context.Context, files []UploadInput) UploadResult

	// Stat returns metadata for a stored file.
	Stat(ctx context.Context, id string) (*model.StoredFile, error)

	// Open returns the content of a stored file with its metadata. Callers close the reader.
	Open(ctx context.Context, id string) (io.ReadCloser, *model.StoredFile, error)

	// Delete removes a stored file.
	Delete(ctx context.Context, id string) error

	// URL returns the retrieval URL for id.
	URL(id string) string
}

type fileService struct {
	store     storage.Storage
	maxSize   int64
	baseURL   string
	metrics   *Metrics
	publisher events.Publisher
	log       zerolog.Logger
	now       func() time.Time
}

// NewFileService constructs a FileService. baseURL may be empty for relative URLs.
func NewFileService(store storage.Storage, maxSize int64, baseURL string, metrics *Metrics, publisher events.Publisher) FileService {
	if publisher == nil {
		publisher = events.Noop{}
	}
	return &fileService{
		store:     store,
		maxSize:   maxSize,
		baseURL:   strings.TrimRight(baseURL, "/"),
		metrics:   metrics,
		publisher: publisher,
		log:       logger.Component("files"),
		now:       time.Now,
	}
}

func (s *fileService) Upload(ctx context.Context, files []UploadInput) UploadResult {
	res := UploadResult{UploadedFiles: []model.StoredFile{}}
	for _, f := range files {
		stored, err := s.uploadOne(ctx, f)
		if err != nil {
			s.metrics.upload("rejected")
			s.log.Info().Err(err).Str("file", f.Name).Msg("upload_rejected")
			res.Errors = append(res.Errors, UploadError{File: f.Name, Error: err.Error()})
			continue
		}
		s.metrics.upload("stored")
		events.Emit(ctx, s.publisher, s.log, events.Event{
			Type:      events.FileUploaded,
			FileID:    stored.ID,
			Name:      stored.OriginalName,
			Size:      stored.Size,
			Timestamp: stored.UploadedAt,
		})
		res.UploadedFiles = append(res.UploadedFiles, *stored)
	}
	return res
}

func (s *fileService) uploadOne(ctx context.Context, f UploadInput) (*model.StoredFile, error) {
	if f.Reader == nil || f.Size == 0 {
		return nil, ErrEmptyFile
	}
	if s.maxSize > 0 && f.Size > s.maxSize {
		return nil, fmt.Errorf("file size %s exceeds the %s limit", humanize.IBytes(uint64(f.Size)), humanize.IBytes(uint64(s.maxSize)))
	}

	head := make([]byte, sniffLen)
	n, err := io.ReadFull(f.Reader, head)
	if err != nil && !errors.Is(err, io.ErrUnexpectedEOF) && !errors.Is(err, io.EOF) {
		return nil, fmt.Errorf("read upload: %w", err)
	}
	head = head[:n]

	detected := mimetype.Detect(head)
	ct, ok := acceptedType(f.ContentType, detected)
	if !ok {
		return nil, fmt.Errorf("file type %s is not allowed", baseType(detected.String()))
	}

	key := s.newKey(f.Name, ct)
	info, err := s.store.Put(ctx, key, io.MultiReader(bytes.NewReader(head), f.Reader), storage.PutObjectOptions{
		Size:        f.Size,
		ContentType: ct,
		Metadata:    map[string]string{metaOriginalName: f.Name},
	})
	if err != nil {
		return nil, fmt.Errorf("store file: %w", err)
	}

	uploadedAt := info.LastModified
	if uploadedAt.IsZero() {
		uploadedAt = s.now()
	}
	return &model.StoredFile{
		ID:           key,
		OriginalName: f.Name,
		Size:         info.Size,
		Type:         ct,
		UploadedAt:   uploadedAt.UTC(),
		Path:         info.Key,
		URL:          s.URL(key),
	}, nil
}

// acceptedType picks the stored content type. The sniffed type must itself be
// allowed; the declared type only decides when sniffing was inconclusive.
func acceptedType(declared string, detected *mimetype.MIME) (string, bool) {
	sniffed := baseType(detected.String())
	declared = baseType(declared)
	switch {
	case sniffed == "text/plain" && textRefinements[declared]:
		return declared, true
	case AllowedTypes[sniffed] != nil:
		return sniffed, true
	case genericTypes[sniffed] && AllowedTypes[declared] != nil:
		return declared, true
	}
	return "", false
}

func baseType(ct string) string {
	if t, _, err := mime.ParseMediaType(ct); err == nil {
		return t
	}
	return strings.ToLower(strings.TrimSpace(ct))
}

// newKey builds "<unixmillis>-<random><ext>". The extension always matches ct.
func (s *fileService) newKey(name, ct string) string {
	exts := AllowedTypes[ct]
	ext := strings.ToLower(filepath.Ext(name))
	if !slices.Contains(exts, ext) {
		ext = exts[0]
	}
	rnd := strings.ReplaceAll(uuid.NewString(), "-", "")[:10]
	return fmt.Sprintf("%d-%s%s", s.now().UnixMilli(), rnd, ext)
}

func (s *fileService) Stat(ctx context.Context, id string) (*model.StoredFile, error) {
	if id == "" {
		return nil, ErrIDRequired
	}
	info, err := s.store.Stat(ctx, id)
	if err != nil {
		return nil, mapStorageErr(err)
	}
	return s.toStoredFile(id, info), nil
}

func (s *fileService) Open(ctx context.Context, id string) (io.ReadCloser, *model.StoredFile, error) {
	if id == "" {
		return nil, nil, ErrIDRequired
	}
	rc, info, err := s.store.Get(ctx, id)
	if err != nil {
		return nil, nil, mapStorageErr(err)
	}
	return rc, s.toStoredFile(id, info), nil
}

func (s *fileService) Delete(ctx context.Context, id string) error {
	if id == "" {
		return ErrIDRequired
	}
	if err := s.store.Delete(ctx, id); err != nil {
		return mapStorageErr(err)
	}
	s.log.Info().Str("file_id", id).Msg("file_deleted")
	events.Emit(ctx, s.publisher, s.log, events.Event{Type: events.FileDeleted, FileID: id, Timestamp: s.now().UTC()})
	return nil
}

func (s *fileService) URL(id string) string {
	return s.baseURL + "/api/files/" + id
}

func (s *fileService) toStoredFile(id string, info storage.ObjectInfo) *model.StoredFile {
	name := info.Metadata[metaOriginalName]
	if name == "" {
		name = id
	}
	return &model.StoredFile{
		ID:           id,
		OriginalName: name,
		Size:         info.Size,
		Type:         info.ContentType,
		UploadedAt:   info.LastModified.UTC(),
		Path:         info.Key,
		URL:          s.URL(id),
	}
}

// mapStorageErr folds invalid keys into not found so ids never reveal layout.
func mapStorageErr(err error) error {
	if errors.Is(err, storage.ErrNotFound) || errors.Is(err, storage.ErrInvalidKey) {
		return ErrNotFound
	}
	return err
}
