package dates

import (
	"log/slog"
	"regexp"
	"strconv"
	"strings"
	"time"

	"CompetitionScanner/internal/domain"
)

// startsToday is the literal token meaning "from today on".
const startsToday = "即日起"

const (
	timePart  = `(?:\s*\d{1,2}[点:]\d{2}(?::\d{2})?)?`
	fullDate  = `\d{4}[年./\-]?\d{1,2}[月./\-]?\d{1,2}日?`
	shortDate = `\d{1,2}[月./\-]?\d{1,2}日?`

	// Inside a range the separators are mandatory, otherwise "2025-07-01"
	// itself reads as the range "2025-07" to "01".
	rangeFullDate  = `\d{4}[年./\-]\d{1,2}[月./\-]\d{1,2}日?`
	rangeShortDate = `\d{1,2}[月./\-]\d{1,2}日?`

	dateToken  = `(` + fullDate + timePart + `|` + startsToday + `|` + shortDate + timePart + `)`
	rangeToken = rangeFullDate + timePart + `|` + rangeShortDate + timePart

	// Period phrases (比赛时间, 报名时间, ...) introduce the start of a period,
	// so they only yield an end date through rangeExpr.
	startPhrases = `开始日期|起始日期|开始时间|比赛时间|活动时间|报名时间|start date|start time`
	endPhrases   = `结束日期|截止日期|截止时间|end date|end time|deadline`
	rangePhrases = `开始日期|起始日期|比赛时间|活动时间|报名时间|registration period|competition period|event period`

	phraseSep = `\s*[:：]?\s*`
	rangeSep  = `\s*(?:-|–|—|~|至|到|to|until)\s*`
)

var (
	startExpr = regexp.MustCompile(`(?i)(?:` + startPhrases + `)` + phraseSep + dateToken)
	endExpr   = regexp.MustCompile(`(?i)(?:` + endPhrases + `)` + phraseSep + dateToken)
	rangeExpr = regexp.MustCompile(`(?i)(?:` + rangePhrases + `)` + phraseSep +
		`(` + startsToday + `|` + rangeToken + `)` + rangeSep +
		`(` + rangeToken + `)`)

	tokenReplacer = strings.NewReplacer("年", "-", "月", "-", "日", " ", ".", "-", "/", "-", "点", ":")
)

// layouts are tried in priority order, first on the token as written and then
// with the current year prepended.
var layouts = []string{"2006-1-2 15:4:5", "2006-1-2 15:4", "2006-1-2"}

// Extractor turns free-form page text into a DateRange.
type Extractor struct {
	loc    *time.Location
	now    func() time.Time
	logger *slog.Logger
}

// Option customizes an Extractor.
type Option func(*Extractor)

// WithClock replaces time.Now, which resolves "starting today" and the implicit year.
func WithClock(now func() time.Time) Option {
	return func(e *Extractor) { e.now = now }
}

// WithLogger attaches a diagnostic logger.
func WithLogger(logger *slog.Logger) Option {
	return func(e *Extractor) { e.logger = logger }
}

// NewExtractor parses wall-clock tokens in loc (UTC when nil).
func NewExtractor(loc *time.Location, opts ...Option) *Extractor {
	if loc == nil {
		loc = time.UTC
	}
	e := &Extractor{loc: loc, now: time.Now}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Extract never fails: fields it cannot find or parse come back nil.
// A start-to-end range pattern overrides the standalone phrase matches
// wherever its side parses.
func (e *Extractor) Extract(text string) domain.DateRange {
	var result domain.DateRange
	if strings.TrimSpace(text) == "" {
		return result
	}

	if m := startExpr.FindStringSubmatch(text); m != nil {
		e.debug("start phrase matched", "match", m[0])
		result.Start = e.ParseToken(m[1])
	}
	if m := endExpr.FindStringSubmatch(text); m != nil {
		e.debug("end phrase matched", "match", m[0])
		result.End = e.parseEnd(m[1])
	}

	if m := rangeExpr.FindStringSubmatch(text); m != nil {
		e.debug("range matched", "match", m[0])
		if start := e.ParseToken(m[1]); start != nil {
			result.Start = start
		}
		if end := e.parseEnd(m[2]); end != nil {
			result.End = end
		}
	}

	return result
}

// ParseToken reads a single date token; nil when no layout fits.
func (e *Extractor) ParseToken(token string) *time.Time {
	token = strings.TrimSpace(token)
	if token == "" {
		return nil
	}

	now := e.now().In(e.loc)
	if token == startsToday {
		return &now
	}

	normalized := strings.Join(strings.Fields(tokenReplacer.Replace(token)), " ")

	for _, layout := range layouts {
		if t, err := time.ParseInLocation(layout, normalized, e.loc); err == nil {
			return &t
		}
	}

	withYear := strconv.Itoa(now.Year()) + "-" + normalized
	for _, layout := range layouts {
		if t, err := time.ParseInLocation(layout, withYear, e.loc); err == nil {
			return &t
		}
	}

	e.debug("unparseable date token", "token", token)
	return nil
}

// parseEnd ignores "starting today", which only ever opens a period.
func (e *Extractor) parseEnd(token string) *time.Time {
	if strings.TrimSpace(token) == startsToday {
		return nil
	}
	return e.ParseToken(token)
}

// FormatDate renders t in the full-date form the extractor reads back.
func FormatDate(t time.Time) string {
	return t.Format("2006-01-02")
}

func (e *Extractor) debug(msg string, args ...any) {
	if e.logger != nil {
		e.logger.Debug(msg, args...)
	}
}
