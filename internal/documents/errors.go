package documents

import "errors"

var (
	// ErrNotFound indicates the document does not exist or is not visible to the caller.
	ErrNotFound = errors.New("not found")

	// ErrInvalidInput indicates the upload request failed validation.
	ErrInvalidInput = errors.New("invalid input")

	// ErrUnsupportedType indicates the uploaded file is not a PDF or Word document.
	ErrUnsupportedType = errors.New("unsupported file type")

	// ErrTooLarge indicates the uploaded file exceeds the size limit.
	ErrTooLarge = errors.New("file too large")
)
