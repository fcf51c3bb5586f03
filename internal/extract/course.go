package extract

import (
	"regexp"
	"strings"
)

// Subject prefixes that look like course codes but are not.
var notSubjects = map[string]struct{}{
	"ROOM": {}, "RM": {}, "SUITE": {}, "BOX": {}, "PHONE": {}, "TEL": {}, "FAX": {},
	"HALL": {}, "BLDG": {}, "UNIT": {}, "WEEK": {}, "CRN": {}, "SEC": {}, "PAGE": {},
	"ZIP":  {}, "FALL": {}, "SPRING": {}, "SUMMER": {}, "WINTER": {}, "SPR": {}, "SUM": {},
	"WIN":  {}, "FA": {}, "SP": {}, "SU": {}, "WI": {}, "AY": {}, "FY": {}, "TERM": {},
	"YEAR": {}, "REV": {}, "VER": {}, "COPY": {}, "SCAN": {}, "IMG": {}, "DOC": {},
	"FILE": {}, "PO": {}, "HWY": {}, "EXT": {},
}

var (
	// "ENG 101: Composition I", "BIO-210 General Biology", "CS1010"
	reCourseHeading = regexp.MustCompile(`^\s*([A-Z]{2,5})\s?[-‐ ]?\s?(\d{3,4}[A-Z]?)\b\s*[:\-–.]?\s*(.*)$`)
	reFilenameCode  = regexp.MustCompile(`(?:^|[^A-Za-z])([A-Za-z]{2,5})[ _\-]?(\d{3,4}[A-Za-z]?)(?:[^0-9]|$)`)

	courseNumberLabel = Label(`^\s*course\s*(?:number|no\.?|#|code|id)`+sep+`(.*)$`, 40, true, 40, cleanValue)
	courseTitleLabel  = Label(`^\s*course\s*(?:title|name)`+sep+`(.*)$`, 40, true, 120, cleanValue)
)

func courseCode(subject, number string) (string, bool) {
	subject = strings.ToUpper(subject)
	if _, bad := notSubjects[subject]; bad {
		return "", false
	}
	return subject + " " + strings.ToUpper(number), true
}

// courseNumberAndTitle combines separate "Course Number:" and "Course Title:" labels.
func courseNumberAndTitle(in *Input) (string, bool) {
	num, ok := courseNumberLabel.Apply(in)
	if !ok {
		return "", false
	}
	title, ok := courseTitleLabel.Apply(in)
	if !ok {
		return "", false
	}
	if strings.Contains(strings.ToLower(title), strings.ToLower(num)) {
		return title, true
	}
	return num + " " + title, true
}

// courseHeading finds a line near the top that starts with a course code. Two
// different codes in the heading area are ambiguous.
func courseHeading(in *Input) (string, bool) {
	lines := in.Lines
	if len(lines) > 15 {
		lines = lines[:15]
	}
	var found []string
	for _, line := range lines {
		m := reCourseHeading.FindStringSubmatch(line)
		if m == nil {
			continue
		}
		code, ok := courseCode(m[1], m[2])
		if !ok {
			continue
		}
		v := code
		if title := cleanValue(m[3]); title != "" && len([]rune(title)) <= 100 {
			v += " " + title
		}
		found = append(found, v)
	}
	codes := map[string]struct{}{}
	first := ""
	for _, v := range found {
		c := strings.Join(strings.Fields(v)[:2], " ")
		codes[c] = struct{}{}
		if first == "" {
			first = v
		}
	}
	if len(codes) != 1 {
		return "", false
	}
	return first, true
}

// filenameCourseCode reads a code like "ENG101" or "bio_210" from the filename.
func filenameCourseCode(in *Input) (string, bool) {
	name := strings.TrimSuffix(in.Filename, pathExt(in.Filename))
	var found []string
	for _, m := range reFilenameCode.FindAllStringSubmatch(name, -1) {
		if code, ok := courseCode(m[1], m[2]); ok {
			found = append(found, code)
		}
	}
	return single(func(s string) string { return s }, found)
}

func pathExt(name string) string {
	if i := strings.LastIndexByte(name, '.'); i > 0 {
		return name[i:]
	}
	return ""
}
