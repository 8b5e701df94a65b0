package service

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"io"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"pmapi/internal/access"
	"pmapi/internal/model"
	repoMocks "pmapi/internal/repository/mocks"
	"pmapi/internal/storage"
	storeMocks "pmapi/internal/storage/mocks"
)

type attachmentMocks struct {
	store    *storeMocks.MockStorage
	repo     *repoMocks.MockRecordRepository[*model.Attachment]
	projects *repoMocks.MockRecordRepository[*model.Project]
	tasks    *repoMocks.MockRecordRepository[*model.Task]
}

func newAttachmentService(t *testing.T) (AttachmentService, attachmentMocks) {
	t.Helper()
	m := attachmentMocks{
		store:    new(storeMocks.MockStorage),
		repo:     new(repoMocks.MockRecordRepository[*model.Attachment]),
		projects: new(repoMocks.MockRecordRepository[*model.Project]),
		tasks:    new(repoMocks.MockRecordRepository[*model.Task]),
	}
	lookup := NewRelatedLookup(m.projects, m.tasks)
	lc := NewLifecycle[*model.Attachment](model.KindAttachment, m.repo, WithReferences[*model.Attachment](lookup))
	return NewAttachmentService(lc, m.store, time.Minute), m
}

func TestAttachmentService_Upload(t *testing.T) {
	ctx := context.Background()
	projectID := uuid.NewString()

	tests := []struct {
		name       string
		filename   string
		related    *model.RelatedRef
		caller     access.Caller
		setupMocks func(m attachmentMocks) io.Reader
		wantErr    error
		wantErrMsg string
		wantField  string
	}{
		{
			name:     "happy path",
			filename: "report.pdf",
			caller:   member,
			setupMocks: func(m attachmentMocks) io.Reader {
				r := strings.NewReader("hello world")
				m.store.On("Put", ctx, mock.MatchedBy(func(key string) bool {
					return strings.HasPrefix(key, "attachments/") && strings.HasSuffix(key, ".pdf")
				}), r, storage.PutObjectOptions{
					Size:        11,
					ContentType: "application/pdf",
					Metadata:    map[string]string{"original-filename": "report.pdf", "owner-id": "user-1"},
				}).Return(storage.ObjectInfo{Size: 11}, nil)

				m.repo.On("Create", ctx, mock.MatchedBy(func(a *model.Attachment) bool {
					return a.Filename == "report.pdf" && a.OwnerID == "user-1" && a.Size == 11
				})).Return(&model.Attachment{Record: model.Record{ID: "gen-id"}, Filename: "report.pdf"}, nil)
				return r
			},
		},
		{
			name:     "with related project",
			filename: "brief.txt",
			related:  &model.RelatedRef{Kind: model.RelatedProject, ID: projectID},
			caller:   member,
			setupMocks: func(m attachmentMocks) io.Reader {
				r := strings.NewReader("hello world")
				m.projects.On("FindActive", ctx, projectID, access.Resolve(member, access.ViewActive, "")).
					Return(&model.Project{Record: model.Record{ID: projectID}}, nil)
				m.store.On("Put", ctx, mock.Anything, r, mock.Anything).Return(storage.ObjectInfo{Size: 11}, nil)
				m.repo.On("Create", ctx, mock.MatchedBy(func(a *model.Attachment) bool {
					return a.Related != nil && a.Related.ID == projectID
				})).Return(&model.Attachment{Record: model.Record{ID: "gen-id"}}, nil)
				return r
			},
		},
		{
			name:     "related task not visible",
			filename: "brief.txt",
			related:  &model.RelatedRef{Kind: model.RelatedTask, ID: projectID},
			caller:   member,
			setupMocks: func(m attachmentMocks) io.Reader {
				m.tasks.On("FindActive", ctx, projectID, mock.Anything).Return(nil, sql.ErrNoRows)
				return strings.NewReader("hello world")
			},
			wantField: "related_object",
		},
		{
			name:     "validation error - nil reader",
			filename: "report.pdf",
			caller:   member,
			setupMocks: func(m attachmentMocks) io.Reader {
				return nil
			},
			wantErr: ErrReaderNil,
		},
		{
			name:     "validation error - missing filename",
			filename: "",
			caller:   member,
			setupMocks: func(m attachmentMocks) io.Reader {
				return strings.NewReader("hello world")
			},
			wantField: "filename",
		},
		{
			name:     "anonymous caller",
			filename: "report.pdf",
			caller:   access.Anonymous(),
			setupMocks: func(m attachmentMocks) io.Reader {
				return strings.NewReader("hello world")
			},
			wantErr: ErrForbidden,
		},
		{
			name:     "storage error",
			filename: "report.pdf",
			caller:   member,
			setupMocks: func(m attachmentMocks) io.Reader {
				r := strings.NewReader("hello world")
				m.store.On("Put", ctx, mock.Anything, r, mock.Anything).
					Return(storage.ObjectInfo{}, errors.New("storage fail"))
				return r
			},
			wantErrMsg: "upload to storage: storage fail",
		},
		{
			name:     "repository error with successful rollback",
			filename: "report.pdf",
			caller:   member,
			setupMocks: func(m attachmentMocks) io.Reader {
				r := strings.NewReader("hello world")
				var key string
				m.store.On("Put", ctx, mock.Anything, r, mock.Anything).
					Return(func(ctx context.Context, k string, r io.Reader, opt storage.PutObjectOptions) storage.ObjectInfo {
						key = k
						return storage.ObjectInfo{Key: k, Size: 11}
					}, nil)
				m.repo.On("Create", ctx, mock.Anything).Return(nil, errors.New("db fail"))
				m.store.On("Delete", ctx, mock.MatchedBy(func(k string) bool { return k == key })).Return(nil)
				return r
			},
			wantErrMsg: "db save failed: db fail",
		},
		{
			name:     "repository error with failed rollback",
			filename: "report.pdf",
			caller:   member,
			setupMocks: func(m attachmentMocks) io.Reader {
				r := strings.NewReader("hello world")
				m.store.On("Put", ctx, mock.Anything, r, mock.Anything).Return(storage.ObjectInfo{Size: 11}, nil)
				m.repo.On("Create", ctx, mock.Anything).Return(nil, errors.New("db fail"))
				m.store.On("Delete", ctx, mock.Anything).Return(errors.New("delete fail"))
				return r
			},
			wantErrMsg: "rollback delete failed: delete fail",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc, m := newAttachmentService(t)
			r := tt.setupMocks(m)

			a, err := svc.Upload(ctx, tt.caller, UploadInput{
				Reader:      r,
				Filename:    tt.filename,
				ContentType: "application/pdf",
				Size:        11,
				Related:     tt.related,
			})

			switch {
			case tt.wantErr != nil:
				assert.ErrorIs(t, err, tt.wantErr)
			case tt.wantErrMsg != "":
				assert.ErrorContains(t, err, tt.wantErrMsg)
			case tt.wantField != "":
				var vErr *ValidationError
				require.ErrorAs(t, err, &vErr)
				assert.Contains(t, vErr.Fields, tt.wantField)
				m.store.AssertNotCalled(t, "Put", mock.Anything, mock.Anything, mock.Anything, mock.Anything)
			default:
				assert.NoError(t, err)
				assert.NotNil(t, a)
			}

			m.store.AssertExpectations(t)
			m.repo.AssertExpectations(t)
			m.projects.AssertExpectations(t)
			m.tasks.AssertExpectations(t)
		})
	}
}

func TestAttachmentService_UpdateChecksRelated(t *testing.T) {
	ctx := context.Background()
	svc, m := newAttachmentService(t)
	taskID := uuid.NewString()

	existing := &model.Attachment{
		Record:      model.Record{ID: "a-1", OwnerID: "user-1"},
		Filename:    "old.pdf",
		StoragePath: "attachments/a.pdf",
		ContentType: "application/pdf",
	}
	t.Run("missing target is rejected before the row is locked", func(t *testing.T) {
		m.tasks.On("FindActive", ctx, taskID, mock.Anything).Return(nil, sql.ErrNoRows).Once()

		_, err := svc.Update(ctx, member, "a-1", model.AttachmentPatch{Related: &model.RelatedRef{Kind: model.RelatedTask, ID: taskID}})

		var vErr *ValidationError
		require.ErrorAs(t, err, &vErr)
		assert.Equal(t, "task not found", vErr.Fields["related_object"])
		m.repo.AssertNotCalled(t, "Mutate", mock.Anything, mock.Anything, mock.Anything)
	})

	t.Run("visible target", func(t *testing.T) {
		m.tasks.On("FindActive", ctx, taskID, access.Resolve(member, access.ViewActive, "")).
			Return(&model.Task{Record: model.Record{ID: taskID}}, nil).Once()
		m.repo.On("Mutate", ctx, "a-1", mock.Anything).Return(existing, nil).Once()

		out, err := svc.Update(ctx, member, "a-1", model.AttachmentPatch{Related: &model.RelatedRef{Kind: model.RelatedTask, ID: taskID}})

		require.NoError(t, err)
		require.NotNil(t, out.Related)
		assert.Equal(t, taskID, out.Related.ID)
		m.tasks.AssertExpectations(t)
		m.repo.AssertExpectations(t)
	})
}

func TestAttachmentService_UpdateKeepsDeletedRelated(t *testing.T) {
	ctx := context.Background()
	projectID := uuid.NewString()

	newExisting := func() *model.Attachment {
		return &model.Attachment{
			Record:      model.Record{ID: "a-1", OwnerID: "user-1"},
			Filename:    "old.pdf",
			StoragePath: "attachments/a.pdf",
			ContentType: "application/pdf",
			Related:     &model.RelatedRef{Kind: model.RelatedProject, ID: projectID},
		}
	}

	for _, caller := range []access.Caller{member, admin} {
		t.Run(caller.ID, func(t *testing.T) {
			svc, m := newAttachmentService(t)
			// the related project was soft-deleted after the attachment was linked
			m.projects.On("FindActive", mock.Anything, projectID, mock.Anything).Return(nil, sql.ErrNoRows).Maybe()
			m.repo.On("Mutate", ctx, "a-1", mock.Anything).Return(newExisting(), nil).Once()

			name := "new.pdf"
			out, err := svc.Update(ctx, caller, "a-1", model.AttachmentPatch{Filename: &name})

			require.NoError(t, err)
			assert.Equal(t, "new.pdf", out.Filename)
			assert.Equal(t, projectID, out.Related.ID)
			m.projects.AssertNotCalled(t, "FindActive", mock.Anything, mock.Anything, mock.Anything)
		})
	}

	t.Run("clearing the reference needs no lookup", func(t *testing.T) {
		svc, m := newAttachmentService(t)
		m.repo.On("Mutate", ctx, "a-1", mock.Anything).Return(newExisting(), nil).Once()

		out, err := svc.Update(ctx, member, "a-1", model.AttachmentPatch{ClearRelated: true})

		require.NoError(t, err)
		assert.Nil(t, out.Related)
		m.projects.AssertNotCalled(t, "FindActive", mock.Anything, mock.Anything, mock.Anything)
	})
}

func TestAttachmentService_UpdateFilenameOnly(t *testing.T) {
	ctx := context.Background()
	svc, m := newAttachmentService(t)
	created := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)

	existing := &model.Attachment{
		Record:      model.Record{ID: "a-1", OwnerID: "user-1", CreatedAt: created, UpdatedAt: created},
		Filename:    "old.pdf",
		StoragePath: "attachments/a.pdf",
		Size:        42,
		ContentType: "application/pdf",
	}
	m.repo.On("Mutate", ctx, "a-1", mock.Anything).Return(existing, nil).Once()

	name := "new.pdf"
	out, err := svc.Update(ctx, member, "a-1", model.AttachmentPatch{Filename: &name})

	require.NoError(t, err)
	assert.Equal(t, "new.pdf", out.Filename)
	assert.Equal(t, "attachments/a.pdf", out.StoragePath)
	assert.Equal(t, int64(42), out.Size)
	assert.Equal(t, "application/pdf", out.ContentType)
	assert.True(t, out.UpdatedAt.After(created))
}

func TestAttachmentService_DownloadURL(t *testing.T) {
	ctx := context.Background()

	t.Run("presigns visible attachment", func(t *testing.T) {
		svc, m := newAttachmentService(t)
		m.repo.On("FindAll", ctx, "a-1", access.Resolve(member, access.ViewActive, "")).
			Return(&model.Attachment{StoragePath: "attachments/a.pdf"}, nil)
		m.store.On("PresignGet", ctx, "attachments/a.pdf", time.Minute).Return("http://minio/a.pdf?sig", nil)

		u, err := svc.DownloadURL(ctx, member, "a-1")

		require.NoError(t, err)
		assert.Equal(t, "http://minio/a.pdf?sig", u)
		m.store.AssertExpectations(t)
	})

	t.Run("not found", func(t *testing.T) {
		svc, m := newAttachmentService(t)
		m.repo.On("FindAll", ctx, "a-2", mock.Anything).Return(nil, sql.ErrNoRows)

		_, err := svc.DownloadURL(ctx, member, "a-2")

		assert.ErrorIs(t, err, ErrNotFound)
		m.store.AssertNotCalled(t, "PresignGet", mock.Anything, mock.Anything, mock.Anything)
	})

	t.Run("presign error", func(t *testing.T) {
		svc, m := newAttachmentService(t)
		m.repo.On("FindAll", ctx, "a-3", mock.Anything).Return(&model.Attachment{StoragePath: "k"}, nil)
		m.store.On("PresignGet", ctx, "k", time.Minute).Return("", errors.New("no credentials"))

		_, err := svc.DownloadURL(ctx, member, "a-3")

		assert.ErrorContains(t, err, "presign: no credentials")
	})
}

func TestAttachmentService_Open(t *testing.T) {
	ctx := context.Background()
	svc, m := newAttachmentService(t)

	m.repo.On("FindAll", ctx, "a-1", mock.Anything).
		Return(&model.Attachment{Filename: "a.txt", StoragePath: "attachments/a.txt"}, nil)
	m.store.On("Get", ctx, "attachments/a.txt").
		Return(io.NopCloser(strings.NewReader("content")), storage.ObjectInfo{Size: 7}, nil)

	rc, a, err := svc.Open(ctx, member, "a-1")
	require.NoError(t, err)
	defer rc.Close()

	body, err := io.ReadAll(rc)
	require.NoError(t, err)
	assert.Equal(t, "content", string(body))
	assert.Equal(t, "a.txt", a.Filename)
}

func TestAttachmentService_OpenMissingBlob(t *testing.T) {
	ctx := context.Background()
	svc, m := newAttachmentService(t)

	m.repo.On("FindAll", ctx, "a-1", mock.Anything).
		Return(&model.Attachment{StoragePath: "attachments/gone.txt"}, nil)
	m.store.On("Get", ctx, "attachments/gone.txt").
		Return(nil, storage.ObjectInfo{}, fmt.Errorf("%w: NoSuchKey", storage.ErrObjectNotFound))

	_, _, err := svc.Open(ctx, member, "a-1")
	assert.ErrorIs(t, err, ErrNotFound)
}
