// Package bulk parses tab-separated nominee rows and reconciles them with
// nominees that are already stored.
package bulk

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"

	"github.com/ahrav/go-panel/internal/domain"
)

// Column layout of an import row.
const (
	colName = iota
	colEmail
	colRegNo
	colShift
	colDepartment

	minFields
)

// Row rejection reasons.
var (
	// ErrTooFewFields is returned for rows with fewer than five tab-separated fields.
	ErrTooFewFields = errors.New("too few fields")

	// ErrInvalidShift is returned when the shift column does not start with an integer.
	ErrInvalidShift = errors.New("shift is not a number")

	// ErrTooManyRows is returned when the input exceeds the configured row limit.
	ErrTooManyRows = errors.New("too many rows")
)

var validate = validator.New()

// RowError describes one rejected input row.
type RowError struct {
	// Line is the 1-based line number in the input text.
	Line int `json:"line"`

	// Raw is the row as it appeared in the input.
	Raw string `json:"raw"`

	Err error `json:"-"`
}

// Error implements the error interface for RowError.
func (e *RowError) Error() string {
	return fmt.Sprintf("line %d: %v", e.Line, e.Err)
}

// Unwrap returns the rejection reason.
func (e *RowError) Unwrap() error { return e.Err }

// Reason returns the rejection reason as text.
func (e *RowError) Reason() string { return e.Err.Error() }

// ParseResult holds the accepted nominees and every rejected row, both in
// input order.
type ParseResult struct {
	Nominees []domain.Nominee
	Rejected []*RowError
}

// ParserConfig bounds the input a Parser accepts.
type ParserConfig struct {
	// MaxRows caps the number of non-blank rows; 0 means unlimited.
	MaxRows int `yaml:"max_rows" json:"max_rows" validate:"min=0"`
}

// Parser turns tab-separated text into nominee records. Rows are laid out as
// name, email, registration number, shift, department; extra fields are
// ignored. A Parser is safe for concurrent use.
type Parser struct {
	config ParserConfig
	newID  func() string
	now    func() time.Time
	check  func(domain.Nominee) error
}

// ParserOption configures a Parser.
type ParserOption func(*Parser)

// WithRowCheck runs check on every row that converts to a nominee. A non-nil
// error rejects the row with that error as the reason.
func WithRowCheck(check func(domain.Nominee) error) ParserOption {
	return func(p *Parser) { p.check = check }
}

// NewParser creates a Parser. newID and now default to uuid.NewString and
// time.Now when nil.
func NewParser(
	config ParserConfig,
	newID func() string,
	now func() time.Time,
	opts ...ParserOption,
) (*Parser, error) {
	if err := validate.Struct(config); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}
	if newID == nil {
		newID = uuid.NewString
	}
	if now == nil {
		now = time.Now
	}
	p := &Parser{config: config, newID: newID, now: now}
	for _, opt := range opts {
		opt(p)
	}
	return p, nil
}

// Parse splits text into rows and converts each into a Nominee. Rows that
// cannot be converted are reported in ParseResult.Rejected and do not stop
// the parse. The position of each nominee is derived from the year encoded in
// the registration number and the shift; rows that map to no position are
// rejected with an error wrapping domain.ErrIneligible.
//
// Rows that pass conversion are then run through the row check, if any.
//
// Parse fails as a whole only when the row limit is exceeded.
func (p *Parser) Parse(text string) (ParseResult, error) {
	result := ParseResult{Nominees: []domain.Nominee{}, Rejected: []*RowError{}}
	now := p.now().UTC()

	rows := 0
	for i, raw := range strings.Split(text, "\n") {
		line := strings.TrimSuffix(raw, "\r")
		if strings.TrimSpace(line) == "" {
			continue
		}
		rows++
		if p.config.MaxRows > 0 && rows > p.config.MaxRows {
			return ParseResult{}, fmt.Errorf("%w: limit is %d", ErrTooManyRows, p.config.MaxRows)
		}

		nominee, err := p.parseRow(line)
		if err == nil {
			nominee.NominatedAt = now
			if p.check != nil {
				err = p.check(nominee)
			}
		}
		if err != nil {
			result.Rejected = append(result.Rejected, &RowError{Line: i + 1, Raw: line, Err: err})
			continue
		}
		result.Nominees = append(result.Nominees, nominee)
	}
	return result, nil
}

func (p *Parser) parseRow(line string) (domain.Nominee, error) {
	fields := strings.Split(line, "\t")
	if len(fields) < minFields {
		return domain.Nominee{}, fmt.Errorf("%w: got %d, want %d", ErrTooFewFields, len(fields), minFields)
	}
	for i := range fields {
		fields[i] = strings.TrimSpace(fields[i])
	}

	shift, ok := leadingInt(fields[colShift])
	if !ok {
		return domain.Nominee{}, fmt.Errorf("%w: %q", ErrInvalidShift, fields[colShift])
	}

	regNo := fields[colRegNo]
	year := domain.YearFromRegNo(regNo)
	position := domain.PositionFor(year, domain.Shift(shift))
	if position == domain.PositionNone {
		return domain.Nominee{}, &domain.EligibilityError{Year: year, Shift: domain.Shift(shift)}
	}

	return domain.Nominee{
		ID:         p.newID(),
		Name:       fields[colName],
		Email:      fields[colEmail],
		RegNo:      regNo,
		Shift:      domain.Shift(shift),
		Department: fields[colDepartment],
		Position:   position,
		Votes:      0,
	}, nil
}

// leadingInt parses the optionally signed decimal prefix of s, so "2" and
// "2nd" both yield 2. It reports false when s does not start with a digit.
func leadingInt(s string) (int, bool) {
	neg := false
	switch {
	case strings.HasPrefix(s, "-"):
		neg = true
		s = s[1:]
	case strings.HasPrefix(s, "+"):
		s = s[1:]
	}

	n, digits := 0, 0
	for _, r := range s {
		if r < '0' || r > '9' {
			break
		}
		if n > 1<<20 {
			// Far outside any shift value; stop before overflow.
			break
		}
		n = n*10 + int(r-'0')
		digits++
	}
	if digits == 0 {
		return 0, false
	}
	if neg {
		n = -n
	}
	return n, true
}
