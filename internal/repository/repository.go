package repository

import (
	"context"

	"dochub/internal/model"
)

// Package repository contains data access layer abstractions.
// Implementations live in subpackages (e.g., postgres) inside this directory.

// SignatureRepository persists document signatures. No business logic here:
// strictly persistence operations.
type SignatureRepository interface {
	// Create inserts a new signature record and returns the stored row.
	Create(ctx context.Context, sig *model.Signature) (*model.Signature, error)

	// FindByHash returns the signature with the given signature hash.
	// It returns sql.ErrNoRows when none exists.
	FindByHash(ctx context.Context, hash string) (*model.Signature, error)

	// FindByDocumentHash returns the most recent signature over a document hash.
	// It returns sql.ErrNoRows when none exists.
	FindByDocumentHash(ctx context.Context, documentHash string) (*model.Signature, error)

	// List returns a page of signatures, newest first, and the total row count.
	List(ctx context.Context, pq PageQuery) (*PageResult[model.Signature], error)
}

// PageQuery holds limit/offset pagination parameters.
type PageQuery struct {
	Limit  int
	Offset int
}

// PageResult is a generic pagination result wrapper.
type PageResult[T any] struct {
	Items []T `json:"items" yaml:"items"`
	Total int `json:"total" yaml:"total"`
}
