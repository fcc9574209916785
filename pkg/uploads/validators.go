package uploads

import "mime/multipart"

type UploadBookPayload struct {
	FormFiles map[string]*multipart.FileHeader `form:"-"`
}

type UploadArchivePayload struct {
	FormFiles map[string]*multipart.FileHeader `form:"-"`
}

const (
	fieldBook    = "book"
	fieldSidecar = "sidecar"
	fieldCover   = "cover"
	fieldArchive = "archive"
)
