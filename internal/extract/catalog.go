package extract

import (
	"regexp"
	"strings"
	"sync"

	"github.com/joseph-ayodele/syllabus-review/constants"
)

// Entry is a review field with the header aliases that select it and its rules in
// evaluation order. The first rule that matches wins.
type Entry struct {
	Field   constants.Field
	Name    string
	Aliases []string
	Rules   []Rule
}

// Fallback reports whether the LLM fallback may fill columns of this entry.
func (e Entry) Fallback() bool {
	return constants.FallbackEligible(e.Field)
}

// Catalog resolves template headers to entries.
type Catalog struct {
	entries []Entry
}

// NewCatalog normalizes aliases and compiles rules. Earlier entries win ties.
func NewCatalog(entries ...Entry) *Catalog {
	c := &Catalog{entries: make([]Entry, 0, len(entries))}
	for _, e := range entries {
		aliases := make([]string, 0, len(e.Aliases)+1)
		if e.Name != "" {
			aliases = append(aliases, NormalizeHeader(e.Name))
		}
		for _, a := range e.Aliases {
			aliases = append(aliases, NormalizeHeader(a))
		}
		e.Aliases = aliases
		rules := make([]Rule, len(e.Rules))
		for i := range e.Rules {
			rules[i] = e.Rules[i]
			rules[i].compile()
		}
		e.Rules = rules
		c.entries = append(c.entries, e)
	}
	return c
}

// Extend returns a catalog that evaluates custom entries before c's entries. A custom
// entry named after a fallback-eligible column keeps that field: its rules run first,
// then c's rules, and a blank result still goes to the fallback.
func (c *Catalog) Extend(custom ...Entry) *Catalog {
	adjusted := make([]Entry, 0, len(custom))
	for _, e := range custom {
		if base, ok := c.exact(NormalizeHeader(e.Name)); ok && base.Fallback() {
			e.Field = base.Field
			e.Rules = append(append([]Rule(nil), e.Rules...), base.Rules...)
		}
		adjusted = append(adjusted, e)
	}
	merged := NewCatalog(adjusted...)
	merged.entries = append(merged.entries, c.entries...)
	return merged
}

func (c *Catalog) exact(key string) (Entry, bool) {
	if key == "" {
		return Entry{}, false
	}
	for _, e := range c.entries {
		for _, a := range e.Aliases {
			if a == key {
				return e, true
			}
		}
	}
	return Entry{}, false
}

// Entries returns the entries in resolution order.
func (c *Catalog) Entries() []Entry {
	return append([]Entry(nil), c.entries...)
}

// Resolve finds the entry for a template header: an exact alias match first, then
// the longest multi-word alias contained in the header as whole words.
func (c *Catalog) Resolve(column string) (Entry, bool) {
	key := NormalizeHeader(column)
	if e, ok := c.exact(key); ok {
		return e, true
	}
	if key == "" {
		return Entry{}, false
	}
	padded := " " + key + " "
	best, bestLen := -1, 0
	for i, e := range c.entries {
		for _, a := range e.Aliases {
			if !strings.Contains(a, " ") || len(a) <= bestLen {
				continue
			}
			if strings.Contains(padded, " "+a+" ") {
				best, bestLen = i, len(a)
			}
		}
	}
	if best < 0 {
		return Entry{}, false
	}
	return c.entries[best], true
}

var reHeaderJunk = regexp.MustCompile(`[^\pL\pN]+`)

// NormalizeHeader lowercases a header, spells out "&" and "#", and reduces
// punctuation to single spaces: "Course Name & Number" -> "course name and number".
func NormalizeHeader(s string) string {
	s = strings.ToLower(s)
	s = strings.NewReplacer("&", " and ", "#", " number ", "e-mail", "email").Replace(s)
	s = reHeaderJunk.ReplaceAllString(s, " ")
	return strings.TrimSpace(s)
}

var defaultCatalog = sync.OnceValue(func() *Catalog { return NewCatalog(builtinEntries()...) })

// DefaultCatalog returns the built-in syllabus compliance catalog.
func DefaultCatalog() *Catalog {
	return defaultCatalog()
}

// sep is a label separator: a colon, or a dash with spaces on both sides.
// "Course-level" and "Teacher-led" are prose, not labels.
const sep = `(?:\s*:\s*|\s+[-–]\s+)`

// builtinEntries is the rule table. Order inside each Rules slice is the documented
// evaluation order for that column.
func builtinEntries() []Entry {
	return []Entry{
		{
			Field:   constants.CourseNameNumber,
			Aliases: []string{"course name and number", "course name number", "course number and name",
				"course title and number", "course", "course name", "course title", "course number", "course code"},
			Rules: []Rule{
				// 1. one combined label: "Course: ENG 101 Composition I"
				Label(`^\s*course(?:\s+(?:name|title)\s*(?:and|&)\s*(?:number|no\.?))?`+sep+`(.*)$`, 40, true, 120, cleanValue),
				// 2. separate "Course Number:" and "Course Title:" labels
				Custom(courseNumberAndTitle),
				// 3. heading line that starts with a course code
				Custom(courseHeading),
				// 4. "Course Number:" alone
				courseNumberLabel,
				// 5. code embedded in the filename, e.g. ENG101_syllabus.pdf
				Custom(filenameCourseCode),
			},
		},
		{
			Field:   constants.FacultyName,
			Aliases: []string{"faculty name", "faculty", "instructor", "instructor name", "professor",
				"professor name", "teacher", "lecturer", "faculty member", "instructor of record"},
			Rules: []Rule{
				// 1. "Instructor: Dr. Jane Doe" (value may sit on the next line)
				Label(`^\s*(?:course\s+)?(?:instructor|professor|faculty|lecturer|teacher)(?:\s*(?:name|of\s+record|member))?`+sep+`(.*)$`, 60, true, 80, cleanPersonName),
				// 2. "taught by Dr. Jane Doe"
				Pattern(regexp.MustCompile(`(?i:taught\s+by|instructor\s+is)\s+((?:(?:Dr|Prof)\.?\s+|Professor\s+)?[A-Z][A-Za-z'\-]+(?:\s+[A-Z][A-Za-z'\-]*\.?){0,3})`), 80, cleanPersonName),
			},
		},
		{
			Field:   constants.FacultyEmail,
			Aliases: []string{"faculty email", "instructor email", "professor email", "email", "contact email", "email address"},
			Rules: []Rule{
				// 1. "Email: jdoe@college.edu" near the top
				Label(`^\s*(?:instructor|professor|faculty)?\s*e-?mail(?:\s+address)?`+sep+`(\S+@\S+)`, 60, false, 120, cleanEmail),
				// 2. the only address in the document
				Email(),
			},
		},
		{
			Field:   constants.OfficeHours,
			Aliases: []string{"office hours"},
			Rules: []Rule{
				Label(`^\s*office\s+hours?`+sep+`(.*)$`, 0, true, 160, cleanValue),
				Keywords("office hours", "office hour"),
			},
		},
		{
			Field:   constants.Term,
			Aliases: []string{"term", "semester", "term semester", "academic term", "session"},
			Rules: []Rule{
				Label(`^\s*(?:term|semester|academic\s+term)`+sep+`(.*)$`, 40, false, 40, cleanTerm),
				Pattern(regexp.MustCompile(`\b((?:Fall|Spring|Summer|Winter|FALL|SPRING|SUMMER|WINTER)\s+(?:Semester\s+|Term\s+|Quarter\s+)?20\d{2})\b`), 40, cleanTerm),
			},
		},
		{
			Field:   constants.CreditHours,
			Aliases: []string{"credit hours", "credits", "credit", "units", "credit units", "semester hours"},
			Rules: []Rule{
				Label(`^\s*(?:credit\s*hours?|credits?|units?)`+sep+`(\d+(?:\.\d+)?)`, 60, false, 5, cleanNumber),
				Pattern(regexp.MustCompile(`(?i)\b(\d+(?:\.\d+)?)\s*(?:credit\s*hours?|credits|semester\s+hours|units)\b`), 5, cleanNumber),
			},
		},
		{
			Field:   constants.Prerequisites,
			Aliases: []string{"prerequisites", "prerequisite", "pre requisites", "prereqs"},
			Rules: []Rule{
				Label(`^\s*pre-?requisites?(?:\s*\(s\))?`+sep+`(.*)$`, 0, true, 160, cleanValue),
				Keywords("prerequisite", "prerequisites", "pre-requisite", "pre-requisites"),
			},
		},
		{
			Field:   constants.RequiredMaterials,
			Aliases: []string{"required materials", "required textbook", "required textbooks", "textbook", "textbooks",
				"required texts", "course materials", "materials", "required readings"},
			Rules: []Rule{
				Label(`^\s*(?:required\s+)?(?:text\s*books?|texts?|course\s+materials|materials|readings)`+sep+`(.*)$`, 0, true, 160, cleanValue),
				Keywords("required textbook", "required text", "required texts", "textbook", "required materials",
					"course materials", "required readings"),
			},
		},
		{
			Field:   constants.LearningOutcomes,
			Aliases: []string{"learning outcomes", "student learning outcomes", "learning objectives", "course objectives",
				"course outcomes", "objectives", "outcomes", "slos"},
			Rules: []Rule{
				Keywords("learning outcomes", "learning objectives", "course objectives", "course outcomes",
					"student learning outcomes", "upon successful completion of this course",
					"upon completion of this course", "students will be able to"),
			},
		},
		{
			Field:   constants.GradingPolicy,
			Aliases: []string{"grading policy", "grading", "grading scale", "grading criteria", "grade breakdown", "grades", "evaluation"},
			Rules: []Rule{
				// 1. explicit policy phrases
				Keywords("grading policy", "grading scale", "grading criteria", "grading breakdown",
					"grade distribution", "grade breakdown", "final grades", "letter grade"),
				// 2. a section heading
				Pattern(regexp.MustCompile(`(?im)^\s*(?:grading|grades|evaluation|assessment)(?:\s+(?:policy|procedures|and\s+evaluation))?\s*:?\s*$`), 0, nil),
			},
		},
		{
			Field:   constants.AttendancePolicy,
			Aliases: []string{"attendance policy", "attendance"},
			Rules: []Rule{
				Keywords("attendance policy", "attendance is required", "attendance is mandatory",
					"attendance will be taken", "excused absence", "unexcused absence", "excused absences",
					"unexcused absences"),
				Pattern(regexp.MustCompile(`(?im)^\s*attendance(?:\s+(?:and\s+participation|requirements?))?\s*:?\s*$`), 0, nil),
			},
		},
		{
			Field:   constants.LateWorkPolicy,
			Aliases: []string{"late work policy", "late work", "late policy", "late assignment policy", "late submission policy"},
			Rules: []Rule{
				Keywords("late work", "late assignments", "late assignment", "late submissions", "late submission",
					"late policy", "late penalty"),
			},
		},
		{
			Field:   constants.AcademicIntegrity,
			Aliases: []string{"academic integrity", "academic integrity statement", "academic honesty",
				"academic dishonesty", "plagiarism", "honor code"},
			Rules: []Rule{
				Keywords("academic integrity", "academic honesty", "academic dishonesty", "academic misconduct",
					"plagiarism", "honor code"),
			},
		},
		{
			Field:   constants.AccessibilityNote,
			Aliases: []string{"accessibility statement", "accessibility", "disability statement", "disability",
				"ada statement", "accommodations", "disability accommodations", "ada"},
			Rules: []Rule{
				Keywords("disability services", "disability resources", "students with disabilities",
					"accessibility services", "accessibility resources", "reasonable accommodations",
					"accommodations", "americans with disabilities act", "section 504"),
			},
		},
		{
			Field:   constants.TitleIX,
			Aliases: []string{"title ix", "title ix statement", "title 9"},
			Rules: []Rule{
				Keywords("title ix", "sexual misconduct", "sexual harassment"),
			},
		},
		{
			Field:   constants.CourseSchedule,
			Aliases: []string{"course schedule", "schedule", "course calendar", "calendar", "weekly schedule",
				"tentative schedule", "class schedule"},
			Rules: []Rule{
				Keywords("course schedule", "class schedule", "weekly schedule", "tentative schedule",
					"course calendar", "schedule of topics", "topic outline"),
				Pattern(regexp.MustCompile(`(?im)^\s*week\s*(?:1|one)\b`), 0, nil),
			},
		},
		{
			Field:   constants.FileName,
			Aliases: []string{"file name", "filename", "file", "document", "document name"},
			Rules: []Rule{
				Custom(func(in *Input) (string, bool) { return in.Filename, in.Filename != "" }),
			},
		},
	}
}
