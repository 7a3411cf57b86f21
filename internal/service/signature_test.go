package service

import (
	"context"
	"crypto/sha256"
	"database/sql"
	"encoding/hex"
	"errors"
	"strings"
	"testing"
	"time"

	"dochub/internal/model"
	"dochub/internal/repository"
	repoMocks "dochub/internal/repository/mocks"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

func TestSignatureService_Generate(t *testing.T) {
	ctx := context.Background()
	docSum := sha256.Sum256([]byte("transcript"))
	docHash := hex.EncodeToString(docSum[:])
	signedAt := time.Date(2025, 6, 1, 9, 30, 0, 0, time.UTC)

	tests := []struct {
		name       string
		req        SignRequest
		setupMocks func(mRepo *repoMocks.MockSignatureRepository)
		wantErr    error
		wantErrMsg string
	}{
		{
			name: "happy path",
			req:  SignRequest{DocumentName: "transcript.pdf", SignerName: " Registrar ", SignerEmail: "reg@upsamail.edu.gh", Document: strings.NewReader("transcript")},
			setupMocks: func(mRepo *repoMocks.MockSignatureRepository) {
				mRepo.On("Create", ctx, mock.MatchedBy(func(sig *model.Signature) bool {
					return sig.DocumentHash == docHash &&
						sig.SignerName == "Registrar" &&
						sig.Hash == signatureHash(docHash, "Registrar", "reg@upsamail.edu.gh", signedAt) &&
						sig.SignedAt.Equal(signedAt)
				})).Return(&model.Signature{ID: "sig-1", DocumentHash: docHash}, nil)
			},
		},
		{
			name:       "missing signer",
			req:        SignRequest{Document: strings.NewReader("x")},
			setupMocks: func(*repoMocks.MockSignatureRepository) {},
			wantErr:    ErrSignerRequired,
		},
		{
			name:       "empty document",
			req:        SignRequest{SignerName: "A", Document: strings.NewReader("")},
			setupMocks: func(*repoMocks.MockSignatureRepository) {},
			wantErr:    ErrEmptyFile,
		},
		{
			name: "repository error",
			req:  SignRequest{SignerName: "A", Document: strings.NewReader("x")},
			setupMocks: func(mRepo *repoMocks.MockSignatureRepository) {
				mRepo.On("Create", ctx, mock.Anything).Return(nil, errors.New("db down"))
			},
			wantErrMsg: "save signature: db down",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			mRepo := new(repoMocks.MockSignatureRepository)
			tt.setupMocks(mRepo)
			svc := NewSignatureService(mRepo).(*signatureService)
			svc.now = func() time.Time { return signedAt }

			sig, err := svc.Generate(ctx, tt.req)

			switch {
			case tt.wantErr != nil:
				assert.ErrorIs(t, err, tt.wantErr)
			case tt.wantErrMsg != "":
				assert.EqualError(t, err, tt.wantErrMsg)
			default:
				require.NoError(t, err)
				assert.Equal(t, "sig-1", sig.ID)
			}
			mRepo.AssertExpectations(t)
		})
	}
}

func TestSignatureService_Verify(t *testing.T) {
	ctx := context.Background()

	t.Run("by signature hash", func(t *testing.T) {
		mRepo := new(repoMocks.MockSignatureRepository)
		mRepo.On("FindByHash", ctx, "abc").Return(&model.Signature{ID: "sig-1"}, nil)

		v, err := NewSignatureService(mRepo).Verify(ctx, " ABC ")

		require.NoError(t, err)
		assert.True(t, v.Valid)
		assert.Equal(t, "sig-1", v.Signature.ID)
	})

	t.Run("falls back to document hash", func(t *testing.T) {
		mRepo := new(repoMocks.MockSignatureRepository)
		mRepo.On("FindByHash", ctx, "doc").Return(nil, sql.ErrNoRows)
		mRepo.On("FindByDocumentHash", ctx, "doc").Return(&model.Signature{ID: "sig-2"}, nil)

		v, err := NewSignatureService(mRepo).Verify(ctx, "doc")

		require.NoError(t, err)
		assert.Equal(t, "sig-2", v.Signature.ID)
	})

	t.Run("unknown", func(t *testing.T) {
		mRepo := new(repoMocks.MockSignatureRepository)
		mRepo.On("FindByHash", ctx, "nope").Return(nil, sql.ErrNoRows)
		mRepo.On("FindByDocumentHash", ctx, "nope").Return(nil, sql.ErrNoRows)

		_, err := NewSignatureService(mRepo).Verify(ctx, "nope")
		assert.ErrorIs(t, err, ErrSignatureNotFound)
	})

	t.Run("blank hash", func(t *testing.T) {
		_, err := NewSignatureService(new(repoMocks.MockSignatureRepository)).Verify(ctx, "  ")
		assert.ErrorIs(t, err, ErrHashRequired)
	})
}

func TestSignatureService_List(t *testing.T) {
	ctx := context.Background()
	mRepo := new(repoMocks.MockSignatureRepository)
	mRepo.On("List", ctx, repository.PageQuery{Limit: 10, Offset: 0}).
		Return(&repository.PageResult[model.Signature]{Items: []model.Signature{{ID: "s"}}, Total: 1}, nil)

	res, err := NewSignatureService(mRepo).List(ctx, 0, -5)

	require.NoError(t, err)
	assert.Equal(t, 1, res.Total)
	mRepo.AssertExpectations(t)
}
