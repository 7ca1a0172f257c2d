package extract

import (
	"regexp"
	"strings"
	"time"

	"github.com/joseph-ayodele/order-intake/constants"
)

var (
	// Name labels only count at the start of a line or a layout column.
	reNameLabel = regexp.MustCompile(`(?i)(?:^|\t|\s{2,})\s*(patient'?s?\s+name\b|full\s+name\b|name\b|patient\s*:)`)
	reDOBLabel  = regexp.MustCompile(`(?i)\b(?:date\s+of\s+birth|birth\s*date|d\.?\s?o\.?\s?b)\b\.?`)

	reTableHeader = regexp.MustCompile(`(?i)patient\s+name\s+and\s+address.*date\s+of\s+birth`)
	reTableRow    = regexp.MustCompile(`^\s*(\p{L}[\p{L}'’.\-]*(?:\s+\p{L}[\p{L}'’.\-]*)+)\s+(\d{1,2}/\d{1,2}/\d{2,4})`)

	reColumnGap = regexp.MustCompile(`\t|\s{2,}`)
)

const valueSeparators = " \t:-–—#"

// Locator finds the patient name and date of birth in acquired text.
// It holds no per-call state and is safe for concurrent use.
type Locator struct {
	policy constants.NameSplitPolicy
	now    func() time.Time
}

type LocatorOption func(*Locator)

// WithClock sets the clock that bounds dates of birth. Tests pin it to a
// fixed day.
func WithClock(now func() time.Time) LocatorOption {
	return func(l *Locator) {
		if now != nil {
			l.now = now
		}
	}
}

// NewLocator returns a locator using the given name split policy.
func NewLocator(policy constants.NameSplitPolicy, opts ...LocatorOption) *Locator {
	if policy == "" {
		policy = constants.SplitLastToken
	}
	l := &Locator{policy: policy, now: time.Now}
	for _, o := range opts {
		o(l)
	}
	return l
}

type scan struct {
	today       time.Time
	first, last string
	nameFound   bool
	dob         time.Time
	dobFound    bool
	dobSeen     bool
}

func (s *scan) done() bool { return s.nameFound && s.dobFound }

// Locate scans text line by line. The first match per field wins; any field
// left unset fails the whole call with a *FieldsError.
func (l *Locator) Locate(text string) (ExtractedFields, error) {
	lines := splitLines(text)
	st := scan{today: l.now()}

	for i := 0; i < len(lines) && !st.done(); i++ {
		line := lines[i]
		if strings.TrimSpace(line) == "" {
			continue
		}
		if reTableHeader.MatchString(line) {
			l.tableRow(lines, i, &st)
			continue
		}
		if !st.nameFound {
			l.name(lines, i, &st)
		}
		if !st.dobFound {
			l.dateOfBirth(lines, i, &st)
		}
	}

	if !st.done() {
		var missing []error
		if !st.nameFound {
			missing = append(missing, ErrNameNotFound)
		}
		if !st.dobFound {
			if st.dobSeen {
				missing = append(missing, ErrDOBNotParsable)
			} else {
				missing = append(missing, ErrDOBNotFound)
			}
		}
		return ExtractedFields{}, &FieldsError{Missing: missing}
	}
	return ExtractedFields{FirstName: st.first, LastName: st.last, DateOfBirth: st.dob}, nil
}

func (l *Locator) name(lines []string, i int, st *scan) {
	loc := reNameLabel.FindStringSubmatchIndex(lines[i])
	if loc == nil {
		return
	}
	value := nameValue(lines[i][loc[3]:])
	if value == "" {
		next, ok := nextValueLine(lines, i)
		if !ok {
			return
		}
		value = nameValue(next)
	}
	if first, last, ok := SplitName(value, l.policy); ok {
		st.first, st.last, st.nameFound = first, last, true
	}
}

func (l *Locator) dateOfBirth(lines []string, i int, st *scan) {
	loc := reDOBLabel.FindStringIndex(lines[i])
	if loc == nil {
		return
	}
	st.dobSeen = true
	value := strings.TrimLeft(lines[i][loc[1]:], valueSeparators)
	if strings.TrimSpace(value) == "" {
		next, ok := nextValueLine(lines, i)
		if !ok {
			return
		}
		value = next
	}
	if t, ok := FindDate(value, st.today); ok {
		st.dob, st.dobFound = t, true
	}
}

// tableRow handles a "Patient Name and Address ... Date of Birth" header whose
// first data row reads "First Last MM/DD/YYYY".
func (l *Locator) tableRow(lines []string, i int, st *scan) {
	next, ok := nextNonEmpty(lines, i)
	if !ok {
		return
	}
	m := reTableRow.FindStringSubmatch(next)
	if m == nil {
		return
	}
	if !st.nameFound {
		if first, last, ok := SplitName(m[1], l.policy); ok {
			st.first, st.last, st.nameFound = first, last, true
		}
	}
	if !st.dobFound {
		st.dobSeen = true
		if t, ok := ParseDate(m[2], st.today); ok {
			st.dob, st.dobFound = t, true
		}
	}
}

// nameValue trims separators and cuts the value at a layout column or a
// date-of-birth label on the same line.
func nameValue(rest string) string {
	rest = strings.TrimLeft(rest, valueSeparators)
	if loc := reDOBLabel.FindStringIndex(rest); loc != nil {
		rest = rest[:loc[0]]
	}
	if loc := reColumnGap.FindStringIndex(rest); loc != nil {
		rest = rest[:loc[0]]
	}
	return strings.TrimSpace(strings.TrimRight(strings.TrimSpace(rest), valueSeparators))
}

// nextValueLine returns the next non-empty line unless it is itself a label line.
func nextValueLine(lines []string, i int) (string, bool) {
	next, ok := nextNonEmpty(lines, i)
	if !ok || isLabelLine(next) {
		return "", false
	}
	return next, true
}

func nextNonEmpty(lines []string, i int) (string, bool) {
	for j := i + 1; j < len(lines); j++ {
		if strings.TrimSpace(lines[j]) != "" {
			return lines[j], true
		}
	}
	return "", false
}

func isLabelLine(s string) bool {
	return reNameLabel.MatchString(s) || reDOBLabel.MatchString(s) || reTableHeader.MatchString(s)
}

func splitLines(text string) []string {
	text = strings.ReplaceAll(text, "\r\n", "\n")
	text = strings.ReplaceAll(text, "\r", "\n")
	text = strings.ReplaceAll(text, "\u00a0", " ")
	return strings.Split(text, "\n")
}
