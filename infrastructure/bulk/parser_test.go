package bulk

import (
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ahrav/go-panel/internal/domain"
)

var fixedNow = time.Date(2025, time.March, 3, 10, 0, 0, 0, time.UTC)

func newTestParser(t *testing.T, config ParserConfig) *Parser {
	t.Helper()
	n := 0
	p, err := NewParser(config, func() string {
		n++
		return fmt.Sprintf("nom-%d", n)
	}, func() time.Time { return fixedNow })
	require.NoError(t, err)
	return p
}

// TestParser_Parse covers the accepted and rejected row shapes.
func TestParser_Parse(t *testing.T) {
	tests := []struct {
		name          string
		text          string
		wantPositions []domain.Position
		wantRejected  []error
	}{
		{
			name:          "third year first shift is chairman",
			text:          "Jane Doe\tjane@x.com\t23000001\t1\tCS",
			wantPositions: []domain.Position{domain.PositionChairman},
		},
		{
			name:         "default year is ineligible",
			text:         "Jane Doe\tjane@x.com\t22000001\t1\tCS",
			wantRejected: []error{domain.ErrIneligible},
		},
		{
			name: "all four positions",
			text: "A One\ta@x.com\t23000001\t1\tCS\n" +
				"B Two\tb@x.com\t23000002\t2\tCS\n" +
				"C Three\tc@x.com\t24000003\t1\tIT\n" +
				"D Four\td@x.com\t24000004\t2\tIT",
			wantPositions: []domain.Position{
				domain.PositionChairman,
				domain.PositionViceChairman,
				domain.PositionSecretary,
				domain.PositionJointSecretary,
			},
		},
		{
			name:         "too few fields",
			text:         "Jane Doe\tjane@x.com\t23000001\t1",
			wantRejected: []error{ErrTooFewFields},
		},
		{
			name:         "non numeric shift",
			text:         "Jane Doe\tjane@x.com\t23000001\tone\tCS",
			wantRejected: []error{ErrInvalidShift},
		},
		{
			name:         "shift out of range",
			text:         "Jane Doe\tjane@x.com\t23000001\t3\tCS",
			wantRejected: []error{domain.ErrIneligible},
		},
		{
			name:          "shift with trailing text uses leading integer",
			text:          "Jane Doe\tjane@x.com\t24000001\t2nd\tCS",
			wantPositions: []domain.Position{domain.PositionJointSecretary},
		},
		{
			name:          "crlf and blank lines",
			text:          "\r\nJane Doe\tjane@x.com\t23000001\t1\tCS\r\n\r\n",
			wantPositions: []domain.Position{domain.PositionChairman},
		},
		{
			name: "mixed rows keep going",
			text: "bad row\n" +
				"Jane Doe\tjane@x.com\t23000001\t1\tCS\textra",
			wantPositions: []domain.Position{domain.PositionChairman},
			wantRejected:  []error{ErrTooFewFields},
		},
		{
			name: "empty input",
			text: "",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := newTestParser(t, ParserConfig{})
			got, err := p.Parse(tt.text)
			require.NoError(t, err)

			require.Len(t, got.Nominees, len(tt.wantPositions))
			for i, want := range tt.wantPositions {
				assert.Equal(t, want, got.Nominees[i].Position)
			}
			require.Len(t, got.Rejected, len(tt.wantRejected))
			for i, want := range tt.wantRejected {
				assert.ErrorIs(t, got.Rejected[i], want)
			}
		})
	}
}

// TestParser_NomineeFields verifies how an accepted row is populated.
func TestParser_NomineeFields(t *testing.T) {
	p := newTestParser(t, ParserConfig{})
	got, err := p.Parse(" Jane Doe \t jane@x.com \t23000001\t1\t CS ")
	require.NoError(t, err)
	require.Len(t, got.Nominees, 1)

	assert.Equal(t, domain.Nominee{
		ID:          "nom-1",
		Name:        "Jane Doe",
		Email:       "jane@x.com",
		RegNo:       "23000001",
		Shift:       domain.ShiftOne,
		Department:  "CS",
		Position:    domain.PositionChairman,
		Votes:       0,
		NominatedAt: fixedNow,
	}, got.Nominees[0])
}

// TestParser_RejectedLineNumbers checks that rejections point at the
// original input line, counting blank lines.
func TestParser_RejectedLineNumbers(t *testing.T) {
	p := newTestParser(t, ParserConfig{})
	got, err := p.Parse("\nJane Doe\tjane@x.com\t23000001\t1\tCS\n\nshort\trow")
	require.NoError(t, err)
	require.Len(t, got.Rejected, 1)

	assert.Equal(t, 4, got.Rejected[0].Line)
	assert.Equal(t, "short\trow", got.Rejected[0].Raw)
	assert.Contains(t, got.Rejected[0].Error(), "line 4")
	assert.Contains(t, got.Rejected[0].Reason(), "too few fields")
}

// TestParser_MaxRows verifies the row limit counts only non-blank rows.
func TestParser_MaxRows(t *testing.T) {
	p := newTestParser(t, ParserConfig{MaxRows: 1})

	_, err := p.Parse("\n\nJane Doe\tjane@x.com\t23000001\t1\tCS\n")
	assert.NoError(t, err)

	_, err = p.Parse("a\tb\tc\td\te\nf\tg\th\ti\tj")
	assert.ErrorIs(t, err, ErrTooManyRows)
}

// TestNewParser_InvalidConfig ensures negative limits are rejected.
func TestNewParser_InvalidConfig(t *testing.T) {
	_, err := NewParser(ParserConfig{MaxRows: -1}, nil, nil)
	assert.Error(t, err)
}

func TestLeadingInt(t *testing.T) {
	tests := []struct {
		in     string
		want   int
		wantOK bool
	}{
		{"1", 1, true},
		{"2nd", 2, true},
		{"-1", -1, true},
		{"+2", 2, true},
		{"1.5", 1, true},
		{"", 0, false},
		{"x1", 0, false},
		{"-", 0, false},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, ok := leadingInt(tt.in)
			assert.Equal(t, tt.wantOK, ok)
			assert.Equal(t, tt.want, got)
		})
	}
}

// TestParser_RowCheck verifies converted rows that fail the row check are
// rejected with the check's error and keep their line numbers.
func TestParser_RowCheck(t *testing.T) {
	errBlankEmail := errors.New("email is required")
	p, err := NewParser(ParserConfig{}, nil, func() time.Time { return fixedNow },
		WithRowCheck(func(n domain.Nominee) error {
			if n.Email == "" {
				return errBlankEmail
			}
			return nil
		}))
	require.NoError(t, err)

	got, err := p.Parse("Jane Doe\tjane@x.com\t23000001\t1\tCS\nNo Mail\t\t23000002\t1\tCS")
	require.NoError(t, err)

	require.Len(t, got.Nominees, 1)
	assert.Equal(t, "Jane Doe", got.Nominees[0].Name)
	require.Len(t, got.Rejected, 1)
	assert.Equal(t, 2, got.Rejected[0].Line)
	assert.ErrorIs(t, got.Rejected[0], errBlankEmail)
}
