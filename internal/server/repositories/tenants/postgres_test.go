package tenants

import (
	"context"
	"database/sql"
	"errors"
	"regexp"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/dmitrijs2005/docbox/internal/common"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var cols = []string{"id", "name", "env", "db_name", "db_secret_name", "s3_name", "os_index_name", "event_queue_url"}

func newRepoWithMock(t *testing.T) (*PostgresRepository, sqlmock.Sqlmock, *sql.DB) {
	t.Helper()
	db, mock, err := sqlmock.New(sqlmock.QueryMatcherOption(sqlmock.QueryMatcherRegexp))
	require.NoError(t, err)
	return NewPostgresRepository(db), mock, db
}

func TestFindByID_Success(t *testing.T) {
	repo, mock, db := newRepoWithMock(t)
	defer db.Close()

	id := uuid.New()
	mock.ExpectQuery(`(?s)^SELECT .* FROM docbox_tenants WHERE env = \$1 AND id = \$2$`).
		WithArgs("Development", id).
		WillReturnRows(sqlmock.NewRows(cols).
			AddRow(id.String(), "acme", "Development", "docbox-acme", "postgres/acme", "acme-bucket", "acme-index", "https://sqs/acme"))

	got, err := repo.FindByID(context.Background(), "Development", id)
	require.NoError(t, err)
	assert.Equal(t, id, got.ID)
	assert.Equal(t, "acme-bucket", got.S3Name)
	require.NotNil(t, got.EventQueueURL)
	assert.Equal(t, "https://sqs/acme", *got.EventQueueURL)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestFindByID_NotFound(t *testing.T) {
	repo, mock, db := newRepoWithMock(t)
	defer db.Close()

	mock.ExpectQuery(`FROM docbox_tenants WHERE env`).WillReturnError(sql.ErrNoRows)

	_, err := repo.FindByID(context.Background(), "Development", uuid.New())
	assert.ErrorIs(t, err, common.ErrorNotFound)
}

func TestFindByID_DBError(t *testing.T) {
	repo, mock, db := newRepoWithMock(t)
	defer db.Close()

	mock.ExpectQuery(`FROM docbox_tenants WHERE env`).WillReturnError(errors.New("db down"))

	_, err := repo.FindByID(context.Background(), "Development", uuid.New())
	require.Error(t, err)
	assert.False(t, errors.Is(err, common.ErrorNotFound))
	assert.Regexp(t, regexp.MustCompile(`db error: .*db down`), err.Error())
}

func TestFindByBucket(t *testing.T) {
	repo, mock, db := newRepoWithMock(t)
	defer db.Close()

	id := uuid.New()
	mock.ExpectQuery(`FROM docbox_tenants WHERE s3_name = \$1$`).
		WithArgs("acme-bucket").
		WillReturnRows(sqlmock.NewRows(cols).
			AddRow(id.String(), "acme", "Production", "db", "secret", "acme-bucket", "idx", nil))
	mock.ExpectQuery(`FROM docbox_tenants WHERE s3_name = \$1$`).
		WithArgs("other").
		WillReturnRows(sqlmock.NewRows(cols))

	got, err := repo.FindByBucket(context.Background(), "acme-bucket")
	require.NoError(t, err)
	assert.Equal(t, "Production", got.Env)
	assert.Nil(t, got.EventQueueURL)

	_, err = repo.FindByBucket(context.Background(), "other")
	assert.ErrorIs(t, err, common.ErrorNotFound)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestList(t *testing.T) {
	repo, mock, db := newRepoWithMock(t)
	defer db.Close()

	a, b := uuid.New(), uuid.New()
	mock.ExpectQuery(`FROM docbox_tenants ORDER BY env, id$`).
		WillReturnRows(sqlmock.NewRows(cols).
			AddRow(a.String(), "a", "Development", "db", "s", "bucket-a", "idx", nil).
			AddRow(b.String(), "b", "Production", "db", "s", "bucket-b", "idx", nil))

	got, err := repo.List(context.Background())
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, a, got[0].ID)
	assert.Equal(t, b, got[1].ID)
}

func TestList_QueryError(t *testing.T) {
	repo, mock, db := newRepoWithMock(t)
	defer db.Close()

	mock.ExpectQuery(`FROM docbox_tenants`).WillReturnError(errors.New("boom"))

	_, err := repo.List(context.Background())
	assert.ErrorContains(t, err, "failed to select tenants")
}
