package store

import (
	"context"
	"testing"
	"time"

	"github.com/pashagolub/pgxmock/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/matlycreative/seo-prospects/internal/model"
)

// newMockPostgresStore creates a PostgresStore backed by pgxmock for unit testing.
func newMockPostgresStore(t *testing.T) (*PostgresStore, pgxmock.PgxPoolIface) {
	t.Helper()
	mock, err := pgxmock.NewPool(pgxmock.QueryMatcherOption(pgxmock.QueryMatcherRegexp))
	require.NoError(t, err)
	t.Cleanup(func() { mock.Close() })

	s := &PostgresStore{pool: mock}
	return s, mock
}

func TestPostgresStore_AppendLead(t *testing.T) {
	s, mock := newMockPostgresStore(t)

	mock.ExpectExec(`INSERT INTO leads`).
		WithArgs(pgxmock.AnyArg(), pgxmock.AnyArg(), "Zurich", "Switzerland", "Ace Plumbing", "https://ace-plumbing.co").
		WillReturnResult(pgxmock.NewResult("INSERT", 1))

	err := s.AppendLead(context.Background(), model.LeadRow{
		City: "Zurich", Country: "Switzerland",
		Company: "Ace Plumbing", Website: "https://ace-plumbing.co",
	})
	require.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresStore_AppendLeadsUsesCopy(t *testing.T) {
	s, mock := newMockPostgresStore(t)

	mock.ExpectCopyFrom([]string{"leads"}, []string{"id", "created_at", "city", "country", "company", "website"}).
		WillReturnResult(2)

	n, err := s.AppendLeads(context.Background(), []model.LeadRow{
		{City: "Zurich", Country: "Switzerland", Company: "A", Website: "https://a.co"},
		{City: "Zurich", Country: "Switzerland", Company: "B", Website: "https://b.co"},
	})
	require.NoError(t, err)
	assert.Equal(t, int64(2), n)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresStore_ListLeads(t *testing.T) {
	s, mock := newMockPostgresStore(t)
	now := time.Now().UTC()

	rows := pgxmock.NewRows([]string{"id", "created_at", "city", "country", "company", "website"}).
		AddRow("r1", now, "Zurich", "Switzerland", "Ace Plumbing", "https://ace-plumbing.co")
	mock.ExpectQuery(`SELECT id, created_at, city, country, company, website FROM leads WHERE city = \$1`).
		WithArgs("Zurich").
		WillReturnRows(rows)

	leads, err := s.ListLeads(context.Background(), LeadFilter{City: "Zurich"})
	require.NoError(t, err)
	require.Len(t, leads, 1)
	assert.Equal(t, "r1", leads[0].ID)
	assert.Equal(t, "Ace Plumbing", leads[0].Company)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestBuildPoolConfigAppliesSizing(t *testing.T) {
	cfg, err := buildPoolConfig("postgres://u@localhost/leads", &PoolConfig{MaxConns: 7, MinConns: 3})
	require.NoError(t, err)
	assert.Equal(t, int32(7), cfg.MaxConns)
	assert.Equal(t, int32(3), cfg.MinConns)
}

func TestBuildPoolConfigDefaults(t *testing.T) {
	cfg, err := buildPoolConfig("postgres://u@localhost/leads", nil)
	require.NoError(t, err)
	assert.Equal(t, int32(10), cfg.MaxConns)
	assert.Equal(t, int32(2), cfg.MinConns)
}

func TestPostgresStore_Migrate(t *testing.T) {
	s, mock := newMockPostgresStore(t)

	mock.ExpectExec(`CREATE TABLE IF NOT EXISTS leads`).
		WillReturnResult(pgxmock.NewResult("CREATE", 0))

	require.NoError(t, s.Migrate(context.Background()))
	assert.NoError(t, mock.ExpectationsWereMet())
}
