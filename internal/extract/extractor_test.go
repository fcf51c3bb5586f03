package extract

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/joseph-ayodele/syllabus-review/constants"
)

const janeDoe = `Instructor: Dr. Jane Doe
This course introduces reading and writing at the college level.
Students meet twice a week.`

func TestExtract_InstructorLabel(t *testing.T) {
	ex := NewExtractor(nil, nil)
	cols := []string{"Course Name & Number", "Faculty Name", "Grading Policy Present"}

	row := ex.Extract(janeDoe, "syllabus.txt", cols)

	assert.Equal(t, "Dr. Jane Doe", row.Values["Faculty Name"])
	assert.Equal(t, constants.OriginPattern, row.Origins["Faculty Name"])
	assert.Equal(t, "", row.Values["Course Name & Number"])
	assert.Equal(t, "", row.Values["Grading Policy Present"])
	assert.Equal(t, constants.OriginNone, row.Origins["Grading Policy Present"])
	assert.Equal(t, []string{"Course Name & Number"}, row.Pending)
}

func TestExtract_Deterministic(t *testing.T) {
	ex := NewExtractor(nil, nil)
	cols := []string{"Course", "Instructor", "Email", "Term", "Credits", "Title IX"}
	text := "ENG 101: Composition I\nInstructor: Prof. Alan Smith\nEmail: asmith@college.edu\nTerm: FALL 2024\nCredits: 3\n"

	first := ex.Extract(text, "a.txt", cols)
	for i := 0; i < 5; i++ {
		assert.Equal(t, first, ex.Extract(text, "a.txt", cols))
	}
	assert.Equal(t, "ENG 101 Composition I", first.Values["Course"])
	assert.Equal(t, "Prof. Alan Smith", first.Values["Instructor"])
	assert.Equal(t, "asmith@college.edu", first.Values["Email"])
	assert.Equal(t, "Fall 2024", first.Values["Term"])
	assert.Equal(t, "3", first.Values["Credits"])
	assert.Equal(t, "", first.Values["Title IX"])
	assert.Empty(t, first.Pending)
}

func TestExtract_NeverUnknown(t *testing.T) {
	ex := NewExtractor(nil, nil)
	cols := []string{"Course Name & Number", "Faculty Name", "Notes"}
	row := ex.Extract("Instructor: TBA\nPhone: none\n", "x.txt", cols)

	for _, col := range cols {
		assert.NotEqual(t, constants.ValueUnknown, row.Values[col], col)
		assert.Equal(t, "", row.Values[col], col)
	}
	assert.Equal(t, []string{"Course Name & Number", "Faculty Name"}, row.Pending)
}

func TestExtract_AmbiguousLabel(t *testing.T) {
	ex := NewExtractor(nil, nil)
	text := "Instructor: Dr. Jane Doe\nInstructor: Dr. John Roe\n"
	row := ex.Extract(text, "x.txt", []string{"Faculty Name"})

	assert.Equal(t, "", row.Values["Faculty Name"])
	assert.Equal(t, []string{"Faculty Name"}, row.Pending)
}

func TestExtract_HyphenatedProseIsNotALabel(t *testing.T) {
	ex := NewExtractor(nil, nil)
	text := "Welcome\nCourse-level outcomes are listed below.\nTerm-long project due in week 12.\nTeacher-led discussions happen on Fridays.\n"
	cols := []string{"Course Name & Number", "Term", "Faculty Name"}
	row := ex.Extract(text, "x.txt", cols)

	for _, col := range cols {
		assert.Equal(t, "", row.Values[col], col)
	}
	assert.Equal(t, []string{"Course Name & Number", "Faculty Name"}, row.Pending)
}

func TestExtract_SpacedDashLabel(t *testing.T) {
	ex := NewExtractor(nil, nil)
	row := ex.Extract("Instructor - Dr. Jane Doe\nCourse Number – HIS 120\n", "x.txt", []string{"Faculty Name", "Course Number"})
	assert.Equal(t, "Dr. Jane Doe", row.Values["Faculty Name"])
	assert.Equal(t, "HIS 120", row.Values["Course Number"])
}

func TestExtract_EmptyLabelSkipsLabeledNextLine(t *testing.T) {
	ex := NewExtractor(nil, nil)
	tests := []struct {
		name   string
		text   string
		column string
	}{
		{"email after instructor", "Instructor:\nEmail: jdoe@college.edu\n", "Faculty Name"},
		{"office after instructor", "Instructor:\nOffice: Room 101\n", "Faculty Name"},
		{"instructor after course", "Course:\nInstructor: Dr. Jane Doe\n", "Course Name & Number"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			row := ex.Extract(tt.text, "x.txt", []string{tt.column})
			assert.Equal(t, "", row.Values[tt.column])
			assert.Equal(t, []string{tt.column}, row.Pending)
		})
	}

	row := ex.Extract("Instructor:\n\nDr. Jane Doe\n", "x.txt", []string{"Faculty Name"})
	assert.Equal(t, "Dr. Jane Doe", row.Values["Faculty Name"])
}

func TestExtract_CourseRules(t *testing.T) {
	ex := NewExtractor(nil, nil)
	tests := []struct {
		name     string
		text     string
		filename string
		want     string
	}{
		{"combined label", "Course: BIO 210 General Biology\n", "x.txt", "BIO 210 General Biology"},
		{"separate labels", "Course Number: HIS 120\nCourse Title: World History\n", "x.txt", "HIS 120 World History"},
		{"heading", "MATH 1314 - College Algebra\nSpring 2025\n", "x.txt", "MATH 1314 College Algebra"},
		{"filename", "no code here\n", "eng101_syllabus.pdf", "ENG 101"},
		{"room is not a course", "ROOM 204\n", "x.txt", ""},
		{"two codes are ambiguous", "ENG 101\nENG 102\n", "x.txt", ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			row := ex.Extract(tt.text, tt.filename, []string{"Course Name & Number"})
			assert.Equal(t, tt.want, row.Values["Course Name & Number"])
		})
	}
}

func TestExtract_Keywords(t *testing.T) {
	ex := NewExtractor(nil, nil)
	text := strings.Join([]string{
		"Grading",
		"A 90-100",
		"Academic Integrity: plagiarism will be reported.",
		"Students with disabilities should contact Disability Services.",
		"Week 1 Introduction",
	}, "\n")
	cols := []string{"Grading Policy", "Academic Integrity", "Accessibility", "Course Schedule", "Late Work"}
	row := ex.Extract(text, "x.txt", cols)

	assert.Equal(t, constants.ValueYes, row.Values["Grading Policy"])
	assert.Equal(t, constants.ValueYes, row.Values["Academic Integrity"])
	assert.Equal(t, constants.ValueYes, row.Values["Accessibility"])
	assert.Equal(t, constants.ValueYes, row.Values["Course Schedule"])
	assert.Equal(t, "", row.Values["Late Work"])
}

func TestExtract_FileNameColumn(t *testing.T) {
	ex := NewExtractor(nil, nil)
	row := ex.Extract("text", "bundle.zip/ENG101.docx", []string{"File Name"})
	assert.Equal(t, "ENG101.docx", row.Values["File Name"])
}

func TestPlan(t *testing.T) {
	ex := NewExtractor(nil, nil)
	plan := ex.Plan([]string{"Course Name & Number", "Grading Policy Present", "Notes"})
	require.Len(t, plan, 3)

	assert.Equal(t, constants.CourseNameNumber, plan[0].Field)
	assert.True(t, plan[0].Fallback)
	assert.Equal(t, constants.GradingPolicy, plan[1].Field)
	assert.False(t, plan[1].Fallback)
	assert.Equal(t, constants.Field(""), plan[2].Field)
	assert.Zero(t, plan[2].Rules)
}

func TestResolve(t *testing.T) {
	c := DefaultCatalog()
	tests := []struct {
		header string
		want   constants.Field
		ok     bool
	}{
		{"Course Name & Number", constants.CourseNameNumber, true},
		{"  FACULTY NAME ", constants.FacultyName, true},
		{"Instructor E-mail", constants.FacultyEmail, true},
		{"Grading Policy Present?", constants.GradingPolicy, true},
		{"Title IX Statement", constants.TitleIX, true},
		{"Course Schedule", constants.CourseSchedule, true},
		{"Reviewer Comments", "", false},
		{"", "", false},
	}
	for _, tt := range tests {
		t.Run(tt.header, func(t *testing.T) {
			e, ok := c.Resolve(tt.header)
			assert.Equal(t, tt.ok, ok)
			assert.Equal(t, tt.want, e.Field)
		})
	}
}

func TestNormalizeHeader(t *testing.T) {
	assert.Equal(t, "course name and number", NormalizeHeader("Course Name & Number"))
	assert.Equal(t, "course number", NormalizeHeader("Course #"))
	assert.Equal(t, "faculty email", NormalizeHeader("Faculty E-mail:"))
}
