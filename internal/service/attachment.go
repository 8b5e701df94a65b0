package service

import (
	"context"
	"errors"
	"fmt"
	"io"
	"time"

	"pmapi/internal/access"
	"pmapi/internal/model"
	"pmapi/internal/storage"
)

// UploadInput carries an attachment upload.
type UploadInput struct {
	Reader      io.Reader
	Filename    string
	ContentType string
	Size        int64
	Related     *model.RelatedRef
}

// AttachmentService adds blob handling on top of the attachment lifecycle.
type AttachmentService interface {
	RecordService[*model.Attachment]

	// Upload streams the content to object storage and then stores the record.
	// The object is removed again when the record cannot be saved.
	Upload(ctx context.Context, caller access.Caller, in UploadInput) (*model.Attachment, error)

	// DownloadURL returns a presigned URL for an attachment visible to caller.
	DownloadURL(ctx context.Context, caller access.Caller, id string) (string, error)

	// Open streams the content of an attachment visible to caller.
	Open(ctx context.Context, caller access.Caller, id string) (io.ReadCloser, *model.Attachment, error)
}

type attachmentService struct {
	*Lifecycle[*model.Attachment]
	store         storage.Storage
	presignExpiry time.Duration
}

// NewAttachmentService constructs an AttachmentService. The lifecycle should be
// built WithReferences so related objects are checked.
func NewAttachmentService(lc *Lifecycle[*model.Attachment], store storage.Storage, presignExpiry time.Duration) AttachmentService {
	if presignExpiry <= 0 {
		presignExpiry = 15 * time.Minute
	}
	return &attachmentService{Lifecycle: lc, store: store, presignExpiry: presignExpiry}
}

func (s *attachmentService) Upload(ctx context.Context, caller access.Caller, in UploadInput) (*model.Attachment, error) {
	if in.Reader == nil {
		return nil, ErrReaderNil
	}
	if caller.IsAnonymous() {
		return nil, ErrForbidden
	}

	item := &model.Attachment{
		Filename:    in.Filename,
		ContentType: in.ContentType,
		Size:        in.Size,
		Related:     in.Related,
	}
	item.StoragePath = storage.ObjectKey("attachments", in.Filename)
	s.stamp(caller, item)

	// Reject bad metadata before any bytes are written.
	if err := s.checkNew(ctx, caller, item); err != nil {
		return nil, err
	}

	objInfo, err := s.store.Put(ctx, item.StoragePath, in.Reader, storage.PutObjectOptions{
		Size:        in.Size,
		ContentType: in.ContentType,
		Metadata: map[string]string{
			"original-filename": in.Filename,
			"owner-id":          caller.ID,
		},
	})
	if err != nil {
		return nil, fmt.Errorf("upload to storage: %w", err)
	}
	item.Size = objInfo.Size

	stored, err := s.insert(ctx, item)
	if err != nil {
		if delErr := s.store.Delete(ctx, item.StoragePath); delErr != nil {
			return nil, fmt.Errorf("db save failed: %w; rollback delete failed: %v", err, delErr)
		}
		return nil, fmt.Errorf("db save failed: %w", err)
	}
	return stored, nil
}

func (s *attachmentService) DownloadURL(ctx context.Context, caller access.Caller, id string) (string, error) {
	a, err := s.Detail(ctx, caller, id, access.ViewActive)
	if err != nil {
		return "", err
	}
	u, err := s.store.PresignGet(ctx, a.StoragePath, s.presignExpiry)
	if err != nil {
		return "", fmt.Errorf("presign: %w", err)
	}
	return u, nil
}

func (s *attachmentService) Open(ctx context.Context, caller access.Caller, id string) (io.ReadCloser, *model.Attachment, error) {
	a, err := s.Detail(ctx, caller, id, access.ViewActive)
	if err != nil {
		return nil, nil, err
	}
	rc, _, err := s.store.Get(ctx, a.StoragePath)
	if errors.Is(err, storage.ErrObjectNotFound) {
		return nil, nil, ErrNotFound
	}
	if err != nil {
		return nil, nil, fmt.Errorf("open object: %w", err)
	}
	return rc, a, nil
}
