package documents

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"strings"
	"testing"
)

type recordingStore struct {
	saves   int
	objects map[string][]byte
}

func newRecordingStore() *recordingStore {
	return &recordingStore{objects: make(map[string][]byte)}
}

func (s *recordingStore) Save(ctx context.Context, userId, fileName string, r io.Reader) (string, int64, string, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return "", 0, "", err
	}
	s.saves++
	key := userId + "/" + fileName
	s.objects[key] = data
	return key, int64(len(data)), "application/pdf", nil
}

func (s *recordingStore) Open(ctx context.Context, storageKey string) (io.ReadCloser, error) {
	data, ok := s.objects[storageKey]
	if !ok {
		return nil, fmt.Errorf("object not found: %s", storageKey)
	}
	return io.NopCloser(bytes.NewReader(data)), nil
}

func newUploadService(store *recordingStore, maxBytes int64) *Service {
	return &Service{
		Store:          store,
		Repo:           NewMemoryRepo(),
		MaxUploadBytes: maxBytes,
	}
}

func TestUploadStoresValidPDF(t *testing.T) {
	store := newRecordingStore()
	svc := newUploadService(store, 5<<20)

	body := "%PDF-1.4 " + strings.Repeat("resume content ", 10)
	doc, err := svc.Upload(context.Background(), "u1", "resume.pdf", strings.NewReader(body))
	if err != nil {
		t.Fatalf("Upload: %v", err)
	}
	if doc.MimeType != MimePDF {
		t.Fatalf("MimeType = %q, want %q", doc.MimeType, MimePDF)
	}
	if doc.SizeBytes != int64(len(body)) {
		t.Fatalf("SizeBytes = %d, want %d", doc.SizeBytes, len(body))
	}
	if store.saves != 1 {
		t.Fatalf("store saves = %d, want 1", store.saves)
	}
}

func TestUploadRejectsOversizeBeforeStore(t *testing.T) {
	store := newRecordingStore()
	svc := newUploadService(store, 16)

	_, err := svc.Upload(context.Background(), "u1", "resume.pdf",
		strings.NewReader("%PDF-1.4 "+strings.Repeat("x", 64)))
	if err != ErrTooLarge {
		t.Fatalf("err = %v, want ErrTooLarge", err)
	}
	if store.saves != 0 {
		t.Fatalf("rejected upload wrote %d objects to the store", store.saves)
	}
}

func TestUploadRejectsUnsupportedTypeBeforeStore(t *testing.T) {
	store := newRecordingStore()
	svc := newUploadService(store, 5<<20)

	_, err := svc.Upload(context.Background(), "u1", "notes.txt",
		strings.NewReader("plain text, not a resume format"))
	if err != ErrUnsupportedType {
		t.Fatalf("err = %v, want ErrUnsupportedType", err)
	}
	if store.saves != 0 {
		t.Fatalf("rejected upload wrote %d objects to the store", store.saves)
	}
}
