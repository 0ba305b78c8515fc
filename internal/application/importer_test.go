package application

import (
	"context"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ahrav/go-panel/infrastructure/bulk"
	"github.com/ahrav/go-panel/internal/domain"
	"github.com/ahrav/go-panel/internal/ports"
	"github.com/ahrav/go-panel/internal/testutils"
)

func newImporter(t *testing.T, env testEnv, cfg ImportConfig) *ImportService {
	t.Helper()
	svc, err := NewImportService(env.deps, cfg)
	require.NoError(t, err)
	return svc
}

// TestImportService_ImportNominees covers a mixed batch: new rows, a stored
// duplicate, an in-batch duplicate, an ineligible row and a near duplicate.
func TestImportService_ImportNominees(t *testing.T) {
	env := newTestEnv(t)
	election := newElection(t, env)
	addNominee(t, election, "Choudhry", "24107078@srcas.ac.in", "24107078", 2, domain.PositionJointSecretary)

	text := strings.Join([]string{
		testutils.NomineeRow("Jane Doe", "jane@x.com", "23000001", "1", "CS"),
		testutils.NomineeRow("Choudhry", "24107078@SRCAS.ac.in", "24107078", "2", "BSC IT"),
		"",
		testutils.NomineeRow("Old Timer", "old@x.com", "22000001", "1", "CS"),
		testutils.NomineeRow("Jane Doe", "JANE@x.com", "23000001", "1", "CS"),
		testutils.NomineeRow("Sri Thraishika.S", "sri1@x.com", "24128062", "2", "BSC CS AI DS"),
		testutils.NomineeRow("Sri Thraishika S", "sri2@x.com", "24128063", "2", "BSC CS AI DS"),
	}, "\r\n")

	svc := newImporter(t, env, DefaultConfig().Import)

	_, err := svc.ImportNominees(context.Background(), testutils.Interviewer, text)
	assert.ErrorIs(t, err, domain.ErrForbidden)

	report, err := svc.ImportNominees(context.Background(), testutils.Admin, text)
	require.NoError(t, err)

	var imported []string
	for _, n := range report.Imported {
		imported = append(imported, n.Name)
	}
	assert.Equal(t, []string{"Jane Doe", "Sri Thraishika.S", "Sri Thraishika S"}, imported)
	require.Len(t, report.Duplicates, 2)
	assert.NotEmpty(t, report.Duplicates[0].ExistingID)
	assert.Empty(t, report.Duplicates[1].ExistingID)
	require.Len(t, report.Rejected, 1)
	assert.Equal(t, 4, report.Rejected[0].Line)
	assert.ErrorIs(t, report.Rejected[0], domain.ErrIneligible)
	require.Len(t, report.NearDuplicates, 1)
	assert.Equal(t, 1, report.NearDuplicates[0].Distance)

	all, err := election.ListNominees(context.Background(), domain.PositionNone)
	require.NoError(t, err)
	assert.Len(t, all, 4)

	assert.Equal(t, float64(3), env.metrics.Counter(ports.MetricImportRows, map[string]string{"outcome": "imported"}))
	assert.Equal(t, float64(2), env.metrics.Counter(ports.MetricImportRows, map[string]string{"outcome": "duplicate"}))
	assert.Equal(t, float64(1), env.metrics.Counter(ports.MetricImportRows, map[string]string{"outcome": "rejected"}))
}

// TestImportService_Preview verifies previews leave the store untouched.
func TestImportService_Preview(t *testing.T) {
	env := newTestEnv(t)
	svc := newImporter(t, env, DefaultConfig().Import)

	report, err := svc.Preview(context.Background(), testutils.NomineeRow("Jane Doe", "jane@x.com", "23000001", "1", "CS"))
	require.NoError(t, err)
	require.Len(t, report.Imported, 1)
	assert.Equal(t, domain.PositionChairman, report.Imported[0].Position)

	records, err := env.deps.Store.Scan(context.Background(), domain.Nominees.Name())
	require.NoError(t, err)
	assert.Empty(t, records)
}

// TestImportService_Limits covers the row cap and the disabled near-duplicate
// check.
func TestImportService_Limits(t *testing.T) {
	env := newTestEnv(t)
	svc := newImporter(t, env, ImportConfig{MaxRows: 1, NearDuplicateDistance: -1})

	text := testutils.NomineeRow("Jane Doe", "jane@x.com", "23000001", "1", "CS") + "\n" +
		testutils.NomineeRow("Jane Dot", "dot@x.com", "23000002", "1", "CS")
	_, err := svc.ImportNominees(context.Background(), testutils.Admin, text)
	assert.ErrorIs(t, err, bulk.ErrTooManyRows)

	svc = newImporter(t, env, ImportConfig{NearDuplicateDistance: -1})
	report, err := svc.ImportNominees(context.Background(), testutils.Admin, text)
	require.NoError(t, err)
	assert.Len(t, report.Imported, 2)
	assert.Empty(t, report.NearDuplicates)
}

// TestImportService_RejectsInvalidRows verifies rows with blank or malformed
// fields are rejected per row instead of being stored, and that blank emails
// are not reported as duplicates of each other.
func TestImportService_RejectsInvalidRows(t *testing.T) {
	env := newTestEnv(t)
	election := newElection(t, env)
	svc := newImporter(t, env, DefaultConfig().Import)

	text := strings.Join([]string{
		testutils.NomineeRow("", "", "23", "1", ""),
		testutils.NomineeRow("Xavier", "not-an-email", "24000001", "2", "CS"),
		testutils.NomineeRow("Yasmin", "", "23000002", "2", "CS"),
		testutils.NomineeRow("Zara Khan", "zara@x.com", "2400", "1", "CS"),
		testutils.NomineeRow("Jane Doe", "jane@x.com", "23000001", "1", "CS"),
	}, "\n")

	report, err := svc.ImportNominees(context.Background(), testutils.Admin, text)
	require.NoError(t, err)

	require.Len(t, report.Imported, 1)
	assert.Equal(t, "Jane Doe", report.Imported[0].Name)
	assert.Empty(t, report.Duplicates)

	require.Len(t, report.Rejected, 4)
	for i, row := range report.Rejected {
		assert.Equal(t, i+1, row.Line)
		var verr *domain.ValidationError
		assert.ErrorAs(t, row, &verr)
	}
	assert.Contains(t, report.Rejected[0].Reason(), "name is required")
	assert.Contains(t, report.Rejected[0].Reason(), "department is required")
	assert.Contains(t, report.Rejected[1].Reason(), "email must be a valid email address")
	assert.Contains(t, report.Rejected[2].Reason(), "email is required")
	assert.Contains(t, report.Rejected[3].Reason(), "regno must be at least 8 characters")

	all, err := election.ListNominees(context.Background(), domain.PositionNone)
	require.NoError(t, err)
	assert.Len(t, all, 1)
	assert.Equal(t, float64(4), env.metrics.Counter(ports.MetricImportRows, map[string]string{"outcome": "rejected"}))
}
