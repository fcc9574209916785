package downloads

type DownloadQuery struct {
	Email *string `query:"email" json:"email,omitempty" validate:"omitempty,email,max=254" mod:"trim"`
}

type ListEventsQuery struct {
	Limit  int `query:"limit" json:"limit,omitempty" default:"50" validate:"min=1,max=200"`
	Offset int `query:"offset" json:"offset,omitempty" validate:"min=0"`
}
