package errcodes

import (
	"fmt"
	"net/http"
)

type Error struct {
	HTTPCode int
	Message  string
	Code     string
}

func (err *Error) Error() string {
	return err.Message
}

func (err *Error) As(target interface{}) bool {
	te, ok := target.(*Error)
	if !ok {
		return false
	}
	te.HTTPCode = err.HTTPCode
	te.Message = err.Message
	te.Code = err.Code
	return true
}

func (err *Error) Is(target error) bool {
	te, ok := target.(*Error)
	if !ok {
		return false
	}
	return te.HTTPCode == err.HTTPCode &&
		te.Message == err.Message &&
		te.Code == err.Code
}

// NotFound returns a 404 error with a message indicating the given resource.
func NotFound(resource string) error {
	return &Error{
		http.StatusNotFound,
		resource + " not found.",
		"not_found",
	}
}

func UnsupportedMediaType() error {
	return &Error{
		http.StatusUnsupportedMediaType,
		"Unsupported Media Type",
		"unsupported_media_type",
	}
}

func UnknownParameter(param string) error {
	return &Error{
		http.StatusUnprocessableEntity,
		fmt.Sprintf("Unknown Parameter %q", param),
		"unknown_parameter",
	}
}

func ValidationTypeError(msg string) error {
	return &Error{
		http.StatusUnprocessableEntity,
		msg,
		"validation_type_error",
	}
}

func ValidationError(msg string) error {
	return &Error{
		http.StatusUnprocessableEntity,
		msg,
		"validation_error",
	}
}

func MalformedPayload() error {
	return &Error{
		http.StatusBadRequest,
		"Malformed Payload",
		"malformed_payload",
	}
}

// PayloadTooLarge is returned when an upload exceeds the configured limit.
func PayloadTooLarge(limit int64) error {
	return &Error{
		http.StatusRequestEntityTooLarge,
		fmt.Sprintf("Upload exceeds the maximum size of %d bytes.", limit),
		"payload_too_large",
	}
}

// UnsupportedFileType is returned when an uploaded file has an extension that
// isn't accepted for its role.
func UnsupportedFileType(ext string) error {
	return &Error{
		http.StatusUnprocessableEntity,
		fmt.Sprintf("Files of type %q are not accepted.", ext),
		"unsupported_file_type",
	}
}

// ArchiveUnreadable is returned when an uploaded archive can't be opened or
// extracted. No units are imported.
func ArchiveUnreadable() error {
	return &Error{
		http.StatusUnprocessableEntity,
		"The archive could not be read.",
		"archive_unreadable",
	}
}

// ImportFailed is returned when a directly uploaded book can't be imported.
func ImportFailed(reason string) error {
	return &Error{
		http.StatusUnprocessableEntity,
		fmt.Sprintf("The book could not be imported: %s.", reason),
		"import_failed",
	}
}

func EmptyRequestBody() error {
	return &Error{
		http.StatusBadRequest,
		"Request body can't be empty.",
		"empty_request_body",
	}
}
