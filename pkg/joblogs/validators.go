package joblogs

type ListJobLogsQuery struct {
	AfterID *int     `query:"after_id" json:"after_id,omitempty" validate:"omitempty,min=0"`
	Level   []string `query:"level" json:"level,omitempty" validate:"dive,oneof=info warn error"`
	Unit    *string  `query:"unit" json:"unit,omitempty" mod:"trim" validate:"omitempty,max=1024"`
	Limit   int      `query:"limit" json:"limit,omitempty" default:"200" validate:"min=1,max=1000"`
}
