package mocks

import (
	"context"
	"io"

	"github.com/stretchr/testify/mock"

	"pmapi/internal/access"
	"pmapi/internal/model"
	"pmapi/internal/service"
)

type MockRecordService[T model.Entity] struct {
	mock.Mock
	kind model.Kind
}

// NewMockRecordService returns a mock reporting kind from Kind().
func NewMockRecordService[T model.Entity](kind model.Kind) *MockRecordService[T] {
	return &MockRecordService[T]{kind: kind}
}

var _ service.RecordService[*model.Project] = (*MockRecordService[*model.Project])(nil)

func (m *MockRecordService[T]) item(args mock.Arguments) T {
	if v, ok := args.Get(0).(T); ok {
		return v
	}
	var zero T
	return zero
}

func (m *MockRecordService[T]) Kind() model.Kind { return m.kind }

func (m *MockRecordService[T]) Create(ctx context.Context, caller access.Caller, item T) (T, error) {
	args := m.Called(ctx, caller, item)
	return m.item(args), args.Error(1)
}

func (m *MockRecordService[T]) List(ctx context.Context, caller access.Caller, q service.ListQuery) (*service.ListResult[T], error) {
	args := m.Called(ctx, caller, q)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*service.ListResult[T]), args.Error(1)
}

func (m *MockRecordService[T]) ListPublic(ctx context.Context, q service.ListQuery) (*service.ListResult[model.PublicRecord], error) {
	args := m.Called(ctx, q)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*service.ListResult[model.PublicRecord]), args.Error(1)
}

func (m *MockRecordService[T]) Detail(ctx context.Context, caller access.Caller, id string, view access.View) (T, error) {
	args := m.Called(ctx, caller, id, view)
	return m.item(args), args.Error(1)
}

func (m *MockRecordService[T]) Update(ctx context.Context, caller access.Caller, id string, patch service.Patch[T]) (T, error) {
	args := m.Called(ctx, caller, id, patch)
	return m.item(args), args.Error(1)
}

func (m *MockRecordService[T]) SetPublished(ctx context.Context, caller access.Caller, id string, status int) (T, error) {
	args := m.Called(ctx, caller, id, status)
	return m.item(args), args.Error(1)
}

func (m *MockRecordService[T]) Delete(ctx context.Context, caller access.Caller, id string) (T, error) {
	args := m.Called(ctx, caller, id)
	return m.item(args), args.Error(1)
}

func (m *MockRecordService[T]) Restore(ctx context.Context, caller access.Caller, id string) (T, error) {
	args := m.Called(ctx, caller, id)
	return m.item(args), args.Error(1)
}

type MockAttachmentService struct {
	MockRecordService[*model.Attachment]
}

// NewMockAttachmentService returns an attachment service mock.
func NewMockAttachmentService() *MockAttachmentService {
	return &MockAttachmentService{MockRecordService: MockRecordService[*model.Attachment]{kind: model.KindAttachment}}
}

var _ service.AttachmentService = (*MockAttachmentService)(nil)

func (m *MockAttachmentService) Upload(ctx context.Context, caller access.Caller, in service.UploadInput) (*model.Attachment, error) {
	args := m.Called(ctx, caller, in)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.Attachment), args.Error(1)
}

func (m *MockAttachmentService) DownloadURL(ctx context.Context, caller access.Caller, id string) (string, error) {
	args := m.Called(ctx, caller, id)
	return args.String(0), args.Error(1)
}

func (m *MockAttachmentService) Open(ctx context.Context, caller access.Caller, id string) (io.ReadCloser, *model.Attachment, error) {
	args := m.Called(ctx, caller, id)
	if args.Get(0) == nil {
		return nil, nil, args.Error(2)
	}
	return args.Get(0).(io.ReadCloser), args.Get(1).(*model.Attachment), args.Error(2)
}
