package index

import (
	"context"
	"database/sql"
	"errors"
	"regexp"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/require"

	"github.com/Dshubhambadola/CivicSeal/interfaces"
)

func newDocumentRepoWithMock(t *testing.T) (*DocumentRepository, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New(sqlmock.QueryMatcherOption(sqlmock.QueryMatcherRegexp))
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })
	return NewDocumentRepository(db), mock
}

var documentRow = []string{"content_hash", "blob_ref", "submitter_id", "escrow_key", "original_name", "registered_at", "revoked"}

func TestCreateDocument_ConflictIsNotWritten(t *testing.T) {
	repo, mock := newDocumentRepoWithMock(t)
	hash := interfaces.Identify([]byte("hello-doc"))

	q := `(?s)^INSERT\s+INTO\s+documents\s*\(.*\)\s*VALUES\s*\(\$1,.*\$7\)\s*ON\s+CONFLICT\s*\(content_hash\)\s*DO\s+NOTHING$`
	mock.ExpectExec(q).
		WithArgs(hash.String(), "QmHello", addressKey(alice), sqlmock.AnyArg(), "", int64(1_700_000_000_000), false).
		WillReturnResult(sqlmock.NewResult(0, 0))

	written, err := repo.CreateDocument(context.Background(), &interfaces.DocumentRecord{
		ContentHash:  hash,
		BlobRef:      "QmHello",
		SubmitterID:  alice,
		RegisteredAt: time.UnixMilli(1_700_000_000_000),
	})
	require.NoError(t, err)
	require.False(t, written)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestCreateDocument_DBError(t *testing.T) {
	repo, mock := newDocumentRepoWithMock(t)

	mock.ExpectExec(`INSERT\s+INTO\s+documents`).WillReturnError(errors.New("db down"))

	_, err := repo.CreateDocument(context.Background(), &interfaces.DocumentRecord{SubmitterID: alice})
	require.Error(t, err)
	require.Regexp(t, regexp.MustCompile(`db error: .*db down`), err.Error())
}

func TestGetDocument_Found(t *testing.T) {
	repo, mock := newDocumentRepoWithMock(t)
	hash := interfaces.Identify([]byte("hello-doc"))
	escrow := interfaces.PlainKey([]byte("k"))

	q := `(?s)^SELECT\s+content_hash,.*revoked\s+FROM\s+documents\s+WHERE\s+content_hash\s*=\s*\$1$`
	mock.ExpectQuery(q).
		WithArgs(hash.String()).
		WillReturnRows(sqlmock.NewRows(documentRow).
			AddRow(hash.String(), "QmHello", addressKey(alice), escrow.Encode(), "hello.txt", int64(1_700_000_000_000), true))

	got, err := repo.GetDocument(context.Background(), hash)
	require.NoError(t, err)
	require.Equal(t, hash, got.ContentHash)
	require.Equal(t, alice, got.SubmitterID)
	require.Equal(t, escrow, got.EscrowedKey)
	require.True(t, got.Revoked)
}

func TestGetDocument_NotFound(t *testing.T) {
	repo, mock := newDocumentRepoWithMock(t)
	hash := interfaces.Identify([]byte("ghost"))

	mock.ExpectQuery(`FROM\s+documents`).WithArgs(hash.String()).WillReturnError(sql.ErrNoRows)

	_, err := repo.GetDocument(context.Background(), hash)
	require.ErrorIs(t, err, interfaces.ErrNotFound)
}

func TestGetDocument_DBError(t *testing.T) {
	repo, mock := newDocumentRepoWithMock(t)
	hash := interfaces.Identify([]byte("hello-doc"))

	mock.ExpectQuery(`FROM\s+documents`).WithArgs(hash.String()).WillReturnError(errors.New("db err"))

	_, err := repo.GetDocument(context.Background(), hash)
	require.Error(t, err)
	require.NotErrorIs(t, err, interfaces.ErrNotFound)
	require.Regexp(t, `db error: .*db err`, err.Error())
}

func TestListDocumentsBySubmitter_RowError(t *testing.T) {
	repo, mock := newDocumentRepoWithMock(t)
	hash := interfaces.Identify([]byte("hello-doc"))

	rows := sqlmock.NewRows(documentRow).
		AddRow(hash.String(), "QmHello", addressKey(alice), nil, "", int64(1), false).
		RowError(0, errors.New("broken row"))
	mock.ExpectQuery(`(?s)FROM\s+documents\s+WHERE\s+submitter_id\s*=\s*\$1\s+ORDER\s+BY`).
		WithArgs(addressKey(alice)).
		WillReturnRows(rows)

	_, err := repo.ListDocumentsBySubmitter(context.Background(), alice)
	require.Error(t, err)
	require.Regexp(t, `db error: .*broken row`, err.Error())
}

func TestMarkRevoked_Missing(t *testing.T) {
	repo, mock := newDocumentRepoWithMock(t)
	hash := interfaces.Identify([]byte("ghost"))

	mock.ExpectExec(`UPDATE\s+documents\s+SET\s+revoked\s*=\s*\$1\s+WHERE\s+content_hash\s*=\s*\$2`).
		WithArgs(true, hash.String()).
		WillReturnResult(sqlmock.NewResult(0, 0))

	require.ErrorIs(t, repo.MarkRevoked(context.Background(), hash), interfaces.ErrNotFound)
}
