package domain

type ConflictType string

const (
	ConflictOverlappingShift ConflictType = "overlapping_shift"
	ConflictMaxHoursPerDay   ConflictType = "max_hours_per_day"
	ConflictMaxHoursPerWeek  ConflictType = "max_hours_per_week"
	ConflictInsufficientRest ConflictType = "insufficient_rest"
	ConflictRoleMismatch     ConflictType = "role_mismatch"
	ConflictInvalidBreak     ConflictType = "invalid_break"
)

type Severity string

const (
	SeverityError   Severity = "error"
	SeverityWarning Severity = "warning"
)

type ConflictItem struct {
	Type     ConflictType   `json:"type"`
	Severity Severity       `json:"severity"`
	Message  string         `json:"message"`
	Details  map[string]any `json:"details"`
}

type ConflictReport struct {
	HasConflicts bool           `json:"hasConflicts"`
	Conflicts    []ConflictItem `json:"conflicts"`
	Warnings     []ConflictItem `json:"warnings"`
}

func NewConflictReport() *ConflictReport {
	return &ConflictReport{
		Conflicts: make([]ConflictItem, 0),
		Warnings:  make([]ConflictItem, 0),
	}
}

// Add 按严重程度把检测结果放入 conflicts 或 warnings
func (r *ConflictReport) Add(item ConflictItem) {
	if item.Severity == SeverityError {
		r.Conflicts = append(r.Conflicts, item)
		r.HasConflicts = true
		return
	}
	r.Warnings = append(r.Warnings, item)
}
