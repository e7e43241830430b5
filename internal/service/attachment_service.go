package service

import (
	"context"
	"errors"
	"fmt"
	"io"
	"path"
	"strings"
	"time"

	"teamwear/internal/logger"
	"teamwear/internal/model"
	"teamwear/internal/repository"
	"teamwear/internal/storage"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"gorm.io/gorm"
)

// AttachmentFile is one modification attachment. Body is nil when the object
// could not be fetched; callers then redirect to URL instead.
type AttachmentFile struct {
	Name        string
	URL         string
	ContentType string
	Body        io.ReadCloser
}

type AttachmentService interface {
	Open(ctx context.Context, requestID string, index int) (*AttachmentFile, error)
	Upload(ctx context.Context, uploaderID, filename, contentType string, body io.Reader) (*model.Attachment, error)
}

type attachmentService struct {
	repos *repository.Repositories
	store storage.ObjectStore
}

// NewAttachmentService wires attachment access. store may be nil when no
// bucket is configured.
func NewAttachmentService(repos *repository.Repositories, store storage.ObjectStore) AttachmentService {
	return &attachmentService{repos: repos, store: store}
}

// Open resolves attachment index of a modification request and tries to fetch
// it from the bucket. A failed fetch is not an error.
func (s *attachmentService) Open(ctx context.Context, requestID string, index int) (*AttachmentFile, error) {
	id, err := uuid.Parse(requestID)
	if err != nil {
		return nil, fmt.Errorf("%w: invalid request id", ErrInvalidInput)
	}

	row, err := s.repos.Requests.FindByID(ctx, model.KindModification, id)
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrRequestNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load request: %w", err)
	}
	req := row.(*model.PendingModificationRequest)
	if index < 0 || index >= len(req.Attachments) {
		return nil, ErrAttachmentNotFound
	}

	att := req.Attachments[index]
	file := &AttachmentFile{Name: att.Name, URL: att.URL}
	if s.store == nil {
		return file, nil
	}

	key, ok := s.store.KeyFromURL(att.URL)
	if !ok {
		return file, nil
	}
	body, contentType, err := s.store.Get(ctx, key)
	if err != nil {
		logger.Get().WithFields(logrus.Fields{
			"request_id": id,
			"index":      index,
			"key":        key,
		}).WithError(err).Warn("attachment fetch failed, falling back to url")
		return file, nil
	}
	file.Body = body
	file.ContentType = contentType
	return file, nil
}

// Upload stores a file for a modification request about to be submitted and
// returns the attachment entry to send along with it.
func (s *attachmentService) Upload(ctx context.Context, uploaderID, filename, contentType string, body io.Reader) (*model.Attachment, error) {
	if s.store == nil {
		return nil, fmt.Errorf("%w: attachment uploads are not configured", ErrInvalidInput)
	}
	uid, err := parseUserID(uploaderID)
	if err != nil {
		return nil, err
	}
	name := path.Base(strings.ReplaceAll(filename, "\\", "/"))
	if name == "" || name == "." || name == "/" {
		return nil, fmt.Errorf("%w: filename is required", ErrInvalidInput)
	}
	if contentType == "" {
		contentType = "application/octet-stream"
	}

	key := fmt.Sprintf("modifications/%s/%d_%s", uid, time.Now().UnixNano(), name)
	url, err := s.store.Put(ctx, key, body, contentType)
	if err != nil {
		return nil, fmt.Errorf("failed to upload attachment: %w", err)
	}
	return &model.Attachment{Name: name, URL: url}, nil
}
