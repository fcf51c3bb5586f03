package constants

import "strings"

// Field is a canonical review field known to the built-in rule catalog.
type Field string

const (
	CourseNameNumber  Field = "CourseNameNumber"
	FacultyName       Field = "FacultyName"
	FacultyEmail      Field = "FacultyEmail"
	OfficeHours       Field = "OfficeHours"
	Term              Field = "Term"
	CreditHours       Field = "CreditHours"
	Prerequisites     Field = "Prerequisites"
	RequiredMaterials Field = "RequiredMaterials"
	LearningOutcomes  Field = "LearningOutcomes"
	GradingPolicy     Field = "GradingPolicy"
	AttendancePolicy  Field = "AttendancePolicy"
	LateWorkPolicy    Field = "LateWorkPolicy"
	AcademicIntegrity Field = "AcademicIntegrity"
	AccessibilityNote Field = "AccessibilityStatement"
	TitleIX           Field = "TitleIX"
	CourseSchedule    Field = "CourseSchedule"
	FileName          Field = "FileName"
	CustomField       Field = "Custom"
)

// FallbackEligible reports whether the LLM fallback may fill this field.
func FallbackEligible(f Field) bool {
	return f == CourseNameNumber || f == FacultyName
}

// Cell literals.
const (
	ValueYes     = "Yes"
	ValueUnknown = "Unknown"
)

// Columns appended after the template columns in every result table.
const (
	ProvenanceColumn = "Source File"
	PreviewColumn    = "Text Preview"
)

// DefaultPreviewChars is how much extracted text a row shows.
const DefaultPreviewChars = 2000

// IsReservedColumn reports whether name collides with a column the table adds itself.
func IsReservedColumn(name string) bool {
	n := strings.ToLower(strings.TrimSpace(name))
	return n == strings.ToLower(ProvenanceColumn) || n == strings.ToLower(PreviewColumn)
}
