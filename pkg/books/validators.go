package books

import "mime/multipart"

type ListBooksQuery struct {
	Limit    int     `query:"limit" json:"limit,omitempty" default:"24" validate:"min=1,max=100"`
	Offset   int     `query:"offset" json:"offset,omitempty" validate:"min=0"`
	Search   *string `query:"search" json:"search,omitempty" validate:"omitempty,max=100"`
	Language *string `query:"language" json:"language,omitempty" validate:"omitempty,langtag"`
	Category *string `query:"category" json:"category,omitempty" validate:"omitempty,max=100"`
}

type UpdateBookPayload struct {
	Title       *string `json:"title,omitempty" validate:"omitempty,max=300"`
	Author      *string `json:"author,omitempty" validate:"omitempty,max=200"`
	Description *string `json:"description,omitempty" validate:"omitempty,max=10000"`
	Language    *string `json:"language,omitempty" validate:"omitempty,langtag"`
	Category    *string `json:"category,omitempty" validate:"omitempty,max=100"`
}

type ReplaceCoverPayload struct {
	FormFiles map[string]*multipart.FileHeader `form:"-"`
}

const fieldCover = "cover"
