package postgres

import (
	"context"
	"database/sql"

	"dochub/internal/model"
	"dochub/internal/repository"
)

// SignaturePostgres is a PostgreSQL implementation of repository.SignatureRepository.
type SignaturePostgres struct {
	db *sql.DB
}

// NewSignaturePostgres creates a new SignaturePostgres repository.
func NewSignaturePostgres(db *sql.DB) *SignaturePostgres {
	return &SignaturePostgres{db: db}
}

var _ repository.SignatureRepository = (*SignaturePostgres)(nil)

const signatureColumns = `id, hash, document_name, document_hash, signer_name, signer_email, signed_at`

type scanner interface {
	Scan(dest ...any) error
}

func scanSignature(s scanner) (*model.Signature, error) {
	var (
		sig   model.Signature
		email sql.NullString
	)
	if err := s.Scan(
		&sig.ID,
		&sig.Hash,
		&sig.DocumentName,
		&sig.DocumentHash,
		&sig.SignerName,
		&email,
		&sig.SignedAt,
	); err != nil {
		return nil, err
	}
	sig.SignerEmail = email.String
	return &sig, nil
}

// Create inserts a signature row and returns the stored record.
func (r *SignaturePostgres) Create(ctx context.Context, sig *model.Signature) (*model.Signature, error) {
	const q = `
		INSERT INTO signatures (id, hash, document_name, document_hash, signer_name, signer_email, signed_at)
		VALUES ($1, $2, $3, $4, $5, NULLIF($6, ''), $7)
		RETURNING ` + signatureColumns
	row := r.db.QueryRowContext(ctx, q,
		sig.ID,
		sig.Hash,
		sig.DocumentName,
		sig.DocumentHash,
		sig.SignerName,
		sig.SignerEmail,
		sig.SignedAt,
	)
	return scanSignature(row)
}

// FindByHash fetches a signature by its signature hash.
func (r *SignaturePostgres) FindByHash(ctx context.Context, hash string) (*model.Signature, error) {
	const q = `SELECT ` + signatureColumns + ` FROM signatures WHERE hash = $1`
	return scanSignature(r.db.QueryRowContext(ctx, q, hash))
}

// FindByDocumentHash fetches the newest signature over a document.
func (r *SignaturePostgres) FindByDocumentHash(ctx context.Context, documentHash string) (*model.Signature, error) {
	const q = `
		SELECT ` + signatureColumns + `
		FROM signatures
		WHERE document_hash = $1
		ORDER BY signed_at DESC
		LIMIT 1
	`
	return scanSignature(r.db.QueryRowContext(ctx, q, documentHash))
}

// List returns signatures using LIMIT/OFFSET pagination and a total count.
func (r *SignaturePostgres) List(ctx context.Context, pq repository.PageQuery) (*repository.PageResult[model.Signature], error) {
	const qCount = `SELECT COUNT(*) FROM signatures`
	var total int
	if err := r.db.QueryRowContext(ctx, qCount).Scan(&total); err != nil {
		return nil, err
	}

	const qList = `
		SELECT ` + signatureColumns + `
		FROM signatures
		ORDER BY signed_at DESC, id DESC
		LIMIT $1 OFFSET $2
	`
	rows, err := r.db.QueryContext(ctx, qList, pq.Limit, pq.Offset)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	items := make([]model.Signature, 0)
	for rows.Next() {
		sig, err := scanSignature(rows)
		if err != nil {
			return nil, err
		}
		items = append(items, *sig)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	return &repository.PageResult[model.Signature]{
		Items: items,
		Total: total,
	}, nil
}
