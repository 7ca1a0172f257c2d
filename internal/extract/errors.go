package extract

import (
	"errors"
	"strings"
)

// Extraction failures. Every error returned by Extractor matches exactly one of
// the first three with errors.Is.
var (
	ErrUnreadableDocument = errors.New("unreadable_document")
	ErrOCRUnavailable     = errors.New("ocr_unavailable")
	ErrFieldsNotFound     = errors.New("fields_not_found")
)

// Refinements of ErrFieldsNotFound.
var (
	ErrNameNotFound   = errors.New("name_not_found")
	ErrDOBNotFound    = errors.New("dob_not_found")
	ErrDOBNotParsable = errors.New("dob_not_parsable")
)

// FieldsError reports which required fields the locator could not set.
// It matches ErrFieldsNotFound and each of its Missing reasons.
type FieldsError struct {
	Missing []error
}

func (e *FieldsError) Error() string {
	if len(e.Missing) == 0 {
		return ErrFieldsNotFound.Error()
	}
	parts := make([]string, 0, len(e.Missing))
	for _, m := range e.Missing {
		parts = append(parts, m.Error())
	}
	return ErrFieldsNotFound.Error() + ": " + strings.Join(parts, ", ")
}

func (e *FieldsError) Unwrap() []error {
	out := make([]error, 0, len(e.Missing)+1)
	out = append(out, ErrFieldsNotFound)
	return append(out, e.Missing...)
}

// Kind returns the stable machine name of an extraction error, or "" when err
// is not one of ours.
func Kind(err error) string {
	switch {
	case err == nil:
		return ""
	case errors.Is(err, ErrUnreadableDocument):
		return ErrUnreadableDocument.Error()
	case errors.Is(err, ErrOCRUnavailable):
		return ErrOCRUnavailable.Error()
	case errors.Is(err, ErrFieldsNotFound):
		return ErrFieldsNotFound.Error()
	}
	return ""
}
