package activity

import (
	"encoding/base64"
	"encoding/csv"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	log "github.com/sirupsen/logrus"
)

// ErrBadBase64 is returned when the uploaded payload is not valid base64.
var ErrBadBase64 = errors.New("invalid base64 payload")

// requiredColumns must all be present in the CSV header. The user_id column
// is required for compatibility with watch exports, but its per-row values
// are ignored; ownership always comes from the authenticated session.
var requiredColumns = []string{"user_id", "date", "steps", "distance_km", "active_minutes"}

// MissingColumnsError reports CSV header columns that are required but absent.
type MissingColumnsError struct {
	Columns []string
}

func (e *MissingColumnsError) Error() string {
	return fmt.Sprintf("CSV is missing required columns: %s", strings.Join(e.Columns, ", "))
}

// ParseCSV decodes a base64 encoded CSV document and converts its rows to
// activity records. Malformed rows are skipped and counted rather than
// failing the whole upload; only a broken payload or a broken header is
// treated as a hard error. The UserID field of returned records is left
// unset.
func ParseCSV(raw string) (records []ActivityRecord, skipped int, err error) {
	decoded, err := base64.StdEncoding.DecodeString(strings.TrimSpace(raw))
	if err != nil {
		return nil, 0, ErrBadBase64
	}

	lines := strings.Split(strings.ReplaceAll(string(decoded), "\r\n", "\n"), "\n")

	headerIndex := -1
	headerLen := 0
	var colIndex map[string]int
	for i, line := range lines {
		if strings.TrimSpace(line) == "" {
			continue
		}
		fields, err := splitCSVLine(line)
		if err != nil {
			return nil, 0, fmt.Errorf("parse CSV header: %w", err)
		}
		colIndex = make(map[string]int, len(fields))
		for j, name := range fields {
			colIndex[strings.ToLower(strings.TrimSpace(name))] = j
		}
		headerIndex = i
		headerLen = len(fields)
		break
	}
	if headerIndex < 0 {
		return nil, 0, &MissingColumnsError{Columns: requiredColumns}
	}

	var missing []string
	for _, col := range requiredColumns {
		if _, ok := colIndex[col]; !ok {
			missing = append(missing, col)
		}
	}
	if len(missing) > 0 {
		return nil, 0, &MissingColumnsError{Columns: missing}
	}

	for _, line := range lines[headerIndex+1:] {
		if strings.TrimSpace(line) == "" {
			continue
		}

		fields, err := splitCSVLine(line)
		if err != nil {
			log.Tracef("skipping malformed CSV row: %s", err)
			skipped++
			continue
		}
		if len(fields) != headerLen {
			log.Tracef("skipping CSV row, expected %d fields, got %d", headerLen, len(fields))
			skipped++
			continue
		}

		dateIdx := colIndex["date"]
		date, err := time.Parse(DateLayout, strings.TrimSpace(fields[dateIdx]))
		if err != nil {
			log.Tracef("skipping CSV row with bad date [%s]: %s", fields[dateIdx], err)
			skipped++
			continue
		}

		records = append(records, ActivityRecord{
			Date:          date,
			Steps:         lenientInt(fieldAt(fields, colIndex["steps"])),
			DistanceKM:    lenientFloat(fieldAt(fields, colIndex["distance_km"])),
			ActiveMinutes: lenientInt(fieldAt(fields, colIndex["active_minutes"])),
		})
	}

	return records, skipped, nil
}

func splitCSVLine(line string) ([]string, error) {
	r := csv.NewReader(strings.NewReader(line))
	r.FieldsPerRecord = -1
	return r.Read()
}

func fieldAt(fields []string, i int) string {
	if i < 0 || i >= len(fields) {
		return ""
	}
	return fields[i]
}

// lenientInt reads the leading integer portion of a value, so that inputs
// like "12 000" or "300min" still yield a usable number. Anything without a
// numeric prefix becomes zero.
func lenientInt(s string) int {
	s = strings.TrimSpace(s)
	if n, err := strconv.Atoi(s); err == nil {
		return n
	}
	end := 0
	if end < len(s) && (s[end] == '-' || s[end] == '+') {
		end++
	}
	for end < len(s) && s[end] >= '0' && s[end] <= '9' {
		end++
	}
	n, err := strconv.Atoi(s[:end])
	if err != nil {
		return 0
	}
	return n
}

func lenientFloat(s string) float64 {
	s = strings.TrimSpace(s)
	if f, err := strconv.ParseFloat(s, 64); err == nil {
		return f
	}
	end := 0
	if end < len(s) && (s[end] == '-' || s[end] == '+') {
		end++
	}
	seenDot := false
	for end < len(s) {
		c := s[end]
		if c >= '0' && c <= '9' {
			end++
			continue
		}
		if c == '.' && !seenDot {
			seenDot = true
			end++
			continue
		}
		break
	}
	f, err := strconv.ParseFloat(s[:end], 64)
	if err != nil {
		return 0
	}
	return f
}
