package services

import (
	"regexp"
	"strings"
	"unicode"

	"golang.org/x/text/cases"
	"golang.org/x/text/unicode/norm"

	"crm-system/internal/dto"
	"crm-system/pkg/utils"
)

// sniffRows is how many data rows the content pass inspects.
const sniffRows = 5

var emailRegex = regexp.MustCompile(`^[^\s@]+@[^\s@]+\.[^\s@]+$`)

var headerKeywords = map[string][]string{
	"name":          {"name", "full name", "customer name", "contact", "שם", "שם מלא", "שם לקוח", "לקוח"},
	"phone":         {"phone", "mobile", "telephone", "phone number", "tel", "cell", "טלפון", "נייד", "מספר טלפון", "פלאפון", "טל"},
	"email":         {"email", "e-mail", "mail", "אימייל", "דוא\"ל", "דואל", "מייל", "דואר אלקטרוני"},
	"status":        {"status", "סטטוס", "מצב"},
	"source":        {"source", "lead source", "מקור", "מקור ליד"},
	"notes":         {"notes", "note", "comments", "comment", "הערות", "הערה"},
	"callback_date": {"callback date", "callback_date", "follow up date", "תאריך חזרה", "תאריך שיחה חוזרת"},
	"callback_time": {"callback time", "callback_time", "follow up time", "שעת חזרה", "שעת שיחה חוזרת"},
}

var headerFold = cases.Fold()

// NormalizeHeader folds case, applies NFC and trims decoration so that header
// text typed in Excel compares equal to the keyword lists.
func NormalizeHeader(s string) string {
	s = norm.NFC.String(s)
	s = headerFold.String(s)
	s = strings.TrimFunc(s, func(r rune) bool {
		return unicode.IsSpace(r) || r == '*' || r == ':' || r == '\u200f' || r == '\u200e'
	})
	return strings.Join(strings.Fields(s), " ")
}

// DetectColumns maps the spreadsheet columns. rows[0] is the header row.
// Pass one matches header keywords exactly; pass two sniffs the first data
// rows for whatever name, phone or email column is still missing.
func DetectColumns(rows [][]string, phoneRegion string) dto.ColumnMapping {
	m := dto.ColumnMapping{Name: -1, Phone: -1, Email: -1, Status: -1, Source: -1, Notes: -1, CallbackDate: -1, CallbackTime: -1}
	if len(rows) == 0 {
		return m
	}

	slots := map[string]*int{
		"name": &m.Name, "phone": &m.Phone, "email": &m.Email, "status": &m.Status,
		"source": &m.Source, "notes": &m.Notes, "callback_date": &m.CallbackDate, "callback_time": &m.CallbackTime,
	}
	used := map[int]bool{}

	for col, header := range rows[0] {
		h := NormalizeHeader(header)
		if h == "" {
			continue
		}
		for _, field := range []string{"name", "phone", "email", "status", "source", "notes", "callback_date", "callback_time"} {
			if *slots[field] >= 0 {
				continue
			}
			if containsKeyword(headerKeywords[field], h) {
				*slots[field] = col
				used[col] = true
				break
			}
		}
	}

	end := len(rows)
	if end > sniffRows+1 {
		end = sniffRows + 1
	}
	sample := rows[1:end]
	width := 0
	for _, r := range rows[:end] {
		if len(r) > width {
			width = len(r)
		}
	}

	if m.Email < 0 {
		m.Email = bestColumn(sample, width, used, func(v string) bool { return emailRegex.MatchString(v) })
	}
	if m.Phone < 0 {
		m.Phone = bestColumn(sample, width, used, func(v string) bool { return utils.LooksLikePhone(v, phoneRegion) })
	}
	if m.Name < 0 {
		m.Name = firstTextColumn(sample, width, used)
	}
	return m
}

func containsKeyword(keywords []string, header string) bool {
	for _, k := range keywords {
		if NormalizeHeader(k) == header {
			return true
		}
	}
	return false
}

// bestColumn picks the unused column with the most matching sample cells and
// marks it used. Ties go to the leftmost column.
func bestColumn(sample [][]string, width int, used map[int]bool, match func(string) bool) int {
	best, bestHits := -1, 0
	for col := 0; col < width; col++ {
		if used[col] {
			continue
		}
		hits := 0
		for _, row := range sample {
			if col < len(row) && match(strings.TrimSpace(row[col])) {
				hits++
			}
		}
		if hits > bestHits {
			best, bestHits = col, hits
		}
	}
	if best >= 0 {
		used[best] = true
	}
	return best
}

func firstTextColumn(sample [][]string, width int, used map[int]bool) int {
	for col := 0; col < width; col++ {
		if used[col] {
			continue
		}
		for _, row := range sample {
			if col < len(row) && isNameLike(row[col]) {
				used[col] = true
				return col
			}
		}
	}
	return -1
}

func isNameLike(v string) bool {
	v = strings.TrimSpace(v)
	if v == "" || emailRegex.MatchString(v) {
		return false
	}
	for _, r := range v {
		if unicode.IsLetter(r) {
			return true
		}
	}
	return false
}
