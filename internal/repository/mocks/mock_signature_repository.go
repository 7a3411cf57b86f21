package mocks

import (
	"context"

	"dochub/internal/model"
	"dochub/internal/repository"

	"github.com/stretchr/testify/mock"
)

type MockSignatureRepository struct {
	mock.Mock
}

var _ repository.SignatureRepository = (*MockSignatureRepository)(nil)

func (m *MockSignatureRepository) Create(ctx context.Context, sig *model.Signature) (*model.Signature, error) {
	args := m.Called(ctx, sig)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.Signature), args.Error(1)
}

func (m *MockSignatureRepository) FindByHash(ctx context.Context, hash string) (*model.Signature, error) {
	args := m.Called(ctx, hash)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.Signature), args.Error(1)
}

func (m *MockSignatureRepository) FindByDocumentHash(ctx context.Context, documentHash string) (*model.Signature, error) {
	args := m.Called(ctx, documentHash)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.Signature), args.Error(1)
}

func (m *MockSignatureRepository) List(ctx context.Context, pq repository.PageQuery) (*repository.PageResult[model.Signature], error) {
	args := m.Called(ctx, pq)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*repository.PageResult[model.Signature]), args.Error(1)
}
