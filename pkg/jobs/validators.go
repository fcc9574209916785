package jobs

type ListJobsQuery struct {
	Limit  int      `query:"limit" json:"limit,omitempty" default:"10" validate:"min=1,max=100"`
	Offset int      `query:"offset" json:"offset,omitempty" validate:"min=0"`
	Status []string `query:"status" json:"status,omitempty" validate:"dive,oneof=pending in_progress completed failed"`
	Type   *string  `query:"type" json:"type,omitempty" validate:"omitempty,oneof=import_archive"`
	// Active is shorthand for status=pending&status=in_progress and can't be
	// combined with status.
	Active bool `query:"active" json:"active,omitempty" validate:"excluded_with=Status"`
}

func (q ListJobsQuery) statuses() []string {
	if q.Active {
		return activeStatuses
	}
	return q.Status
}
