package service

import (
	"context"
	"crypto/sha256"
	"database/sql"
	"encoding/hex"
	"errors"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/google/uuid"

	"dochub/internal/model"
	"dochub/internal/repository"
)

// SignRequest describes a document to sign.
type SignRequest struct {
	DocumentName string
	SignerName   string
	SignerEmail  string
	Document     io.Reader
}

// Verification is the outcome of a signature lookup.
type Verification struct {
	Valid     bool             `json:"valid"`
	Signature *model.Signature `json:"signature,omitempty"`
}

// SignatureService registers and verifies document signatures.
type SignatureService interface {
	// Generate hashes the document, derives a signature hash and stores the record.
	Generate(ctx context.Context, req SignRequest) (*model.Signature, error)

	// Verify looks a signature up by its hash, or by the signed document's hash.
	Verify(ctx context.Context, hash string) (*Verification, error)

	// List returns registered signatures, newest first.
	List(ctx context.Context, limit, offset int) (*repository.PageResult[model.Signature], error)
}

type signatureService struct {
	repo repository.SignatureRepository
	now  func() time.Time
}

// NewSignatureService constructs a SignatureService.
func NewSignatureService(repo repository.SignatureRepository) SignatureService {
	return &signatureService{repo: repo, now: time.Now}
}

func (s *signatureService) Generate(ctx context.Context, req SignRequest) (*model.Signature, error) {
	if req.Document == nil {
		return nil, ErrEmptyFile
	}
	signer := strings.TrimSpace(req.SignerName)
	if signer == "" {
		return nil, ErrSignerRequired
	}

	h := sha256.New()
	n, err := io.Copy(h, req.Document)
	if err != nil {
		return nil, fmt.Errorf("hash document: %w", err)
	}
	if n == 0 {
		return nil, ErrEmptyFile
	}
	docHash := hex.EncodeToString(h.Sum(nil))

	signedAt := s.now().UTC().Truncate(time.Microsecond)
	sig := &model.Signature{
		ID:           uuid.NewString(),
		Hash:         signatureHash(docHash, signer, strings.TrimSpace(req.SignerEmail), signedAt),
		DocumentName: req.DocumentName,
		DocumentHash: docHash,
		SignerName:   signer,
		SignerEmail:  strings.TrimSpace(req.SignerEmail),
		SignedAt:     signedAt,
	}
	stored, err := s.repo.Create(ctx, sig)
	if err != nil {
		return nil, fmt.Errorf("save signature: %w", err)
	}
	return stored, nil
}

// signatureHash binds the document hash to the signer and signing time.
func signatureHash(docHash, signer, email string, at time.Time) string {
	sum := sha256.Sum256([]byte(strings.Join([]string{docHash, signer, email, at.Format(time.RFC3339Nano)}, "|")))
	return hex.EncodeToString(sum[:])
}

func (s *signatureService) Verify(ctx context.Context, hash string) (*Verification, error) {
	hash = strings.ToLower(strings.TrimSpace(hash))
	if hash == "" {
		return nil, ErrHashRequired
	}
	sig, err := s.repo.FindByHash(ctx, hash)
	if errors.Is(err, sql.ErrNoRows) {
		sig, err = s.repo.FindByDocumentHash(ctx, hash)
	}
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrSignatureNotFound
		}
		return nil, err
	}
	return &Verification{Valid: true, Signature: sig}, nil
}

func (s *signatureService) List(ctx context.Context, limit, offset int) (*repository.PageResult[model.Signature], error) {
	if limit <= 0 {
		limit = 10
	}
	if offset < 0 {
		offset = 0
	}
	return s.repo.List(ctx, repository.PageQuery{Limit: limit, Offset: offset})
}
