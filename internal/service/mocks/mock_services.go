package mocks

import (
	"context"
	"io"

	"dochub/internal/model"
	"dochub/internal/repository"
	"dochub/internal/service"
	"dochub/internal/tool"

	"github.com/stretchr/testify/mock"
)

type MockPipelineService struct {
	mock.Mock
}

var _ service.PipelineService = (*MockPipelineService)(nil)

func (m *MockPipelineService) Run(ctx context.Context, in service.ProcessInput) (*service.ProcessResult, error) {
	args := m.Called(ctx, in)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*service.ProcessResult), args.Error(1)
}

func (m *MockPipelineService) Tools() []tool.Entry {
	args := m.Called()
	return args.Get(0).([]tool.Entry)
}

type MockFileService struct {
	mock.Mock
}

var _ service.FileService = (*MockFileService)(nil)

func (m *MockFileService) Upload(ctx context.Context, files []service.UploadInput) service.UploadResult {
	args := m.Called(ctx, files)
	return args.Get(0).(service.UploadResult)
}

func (m *MockFileService) Stat(ctx context.Context, id string) (*model.StoredFile, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.StoredFile), args.Error(1)
}

func (m *MockFileService) Open(ctx context.Context, id string) (io.ReadCloser, *model.StoredFile, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, nil, args.Error(2)
	}
	return args.Get(0).(io.ReadCloser), args.Get(1).(*model.StoredFile), args.Error(2)
}

func (m *MockFileService) Delete(ctx context.Context, id string) error {
	args := m.Called(ctx, id)
	return args.Error(0)
}

func (m *MockFileService) URL(id string) string {
	args := m.Called(id)
	return args.String(0)
}

type MockSignatureService struct {
	mock.Mock
}

var _ service.SignatureService = (*MockSignatureService)(nil)

func (m *MockSignatureService) Generate(ctx context.Context, req service.SignRequest) (*model.Signature, error) {
	args := m.Called(ctx, req)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.Signature), args.Error(1)
}

func (m *MockSignatureService) Verify(ctx context.Context, hash string) (*service.Verification, error) {
	args := m.Called(ctx, hash)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*service.Verification), args.Error(1)
}

func (m *MockSignatureService) List(ctx context.Context, limit, offset int) (*repository.PageResult[model.Signature], error) {
	args := m.Called(ctx, limit, offset)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*repository.PageResult[model.Signature]), args.Error(1)
}
