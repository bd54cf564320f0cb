package documents

import (
	"bytes"
	"context"
	"errors"
	"io"
	"net/http"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"

	"resumegen-backend/internal/shared/storage/object"
)

// ActivityLog records user-facing events. Failures are logged, never fatal.
type ActivityLog interface {
	Record(ctx context.Context, userID, eventType, generationID, documentID, detail string)
}

// Service contains business logic for documents.
type Service struct {
	Store          object.ObjectStore
	Repo           DocumentsRepo
	Activity       ActivityLog
	MaxUploadBytes int64
}

// Upload saves the file to object storage and records the document.
// The detected MIME type must resolve to PDF or Word after normalization.
// Validation runs before the store write: a rejected upload must not leave
// an orphaned blob behind, and a resume is small enough to buffer.
func (s *Service) Upload(ctx context.Context, userId, fileName string, r io.Reader) (Document, error) {
	if fileName == "" {
		return Document{}, ErrInvalidInput
	}

	limit := s.MaxUploadBytes
	if limit <= 0 {
		limit = 5 << 20
	}
	data, err := io.ReadAll(io.LimitReader(r, limit+1))
	if err != nil {
		return Document{}, err
	}
	if int64(len(data)) > limit {
		return Document{}, ErrTooLarge
	}

	sniff := data
	if len(sniff) > 512 {
		sniff = sniff[:512]
	}
	normalized, ok := normalizeMimeType(http.DetectContentType(sniff), fileName)
	if !ok {
		return Document{}, ErrUnsupportedType
	}

	storageKey, size, _, err := s.Store.Save(ctx, userId, fileName, bytes.NewReader(data))
	if err != nil {
		return Document{}, err
	}

	doc := Document{
		ID:         uuid.NewString(),
		UserID:     userId,
		FileName:   fileName,
		MimeType:   normalized,
		SizeBytes:  size,
		StorageKey: storageKey,
		CreatedAt:  time.Now().UTC(),
	}

	if err := s.Repo.Create(ctx, doc); err != nil {
		return Document{}, err
	}

	if s.Activity != nil {
		s.Activity.Record(ctx, userId, "document_uploaded", "", doc.ID, fileName)
	}

	return doc, nil
}

// Get returns a single document owned by the user.
func (s *Service) Get(ctx context.Context, userId, documentID string) (Document, error) {
	if userId == "" || documentID == "" {
		return Document{}, ErrInvalidInput
	}
	return s.Repo.GetByID(ctx, userId, documentID)
}

// Current returns the most recently uploaded document for a user.
func (s *Service) Current(ctx context.Context, userId string) (Document, error) {
	if userId == "" {
		return Document{}, errors.New("user id required")
	}
	return s.Repo.GetCurrentByUser(ctx, userId)
}

// List returns documents for a user, newest first.
func (s *Service) List(ctx context.Context, userId string, limit, offset int) ([]Document, error) {
	if userId == "" {
		return nil, errors.New("user id required")
	}
	return s.Repo.ListByUser(ctx, userId, limit, offset)
}

// normalizeMimeType maps the sniffed content type to one of the accepted
// resume formats. OOXML files sniff as application/zip and legacy Word files
// often sniff as application/octet-stream, so the extension breaks ties.
func normalizeMimeType(detected, fileName string) (string, bool) {
	detected = strings.ToLower(strings.TrimSpace(detected))
	if i := strings.Index(detected, ";"); i >= 0 {
		detected = strings.TrimSpace(detected[:i])
	}
	ext := strings.ToLower(filepath.Ext(fileName))

	switch detected {
	case MimePDF, MimeDoc, MimeDocx:
		return detected, true
	case "application/zip":
		if ext == ".docx" {
			return MimeDocx, true
		}
	case "application/octet-stream", "":
		switch ext {
		case ".pdf":
			return MimePDF, true
		case ".doc":
			return MimeDoc, true
		case ".docx":
			return MimeDocx, true
		}
	}
	return "", false
}
