package repository

import (
	"context"
	"regexp"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/KunBoy5240/chatgpt-on-wechat/pkg/domain"
)

func newPostgresMock(t *testing.T) (*generationPostgresRepository, sqlmock.Sqlmock) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	return NewGenerationPostgresRepository(db), mock
}

func TestGenerationPostgresRepositorySave(t *testing.T) {
	repo, mock := newPostgresMock(t)
	createdAt := time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)

	mock.ExpectQuery(regexp.QuoteMeta("INSERT INTO generations (session_id, params, result_url, created_at)")).
		WithArgs("1:2", `{"model":"m","version":"v","width":768}`, "https://replicate.delivery/out.png", createdAt).
		WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow(int64(42)))

	id, err := repo.Save(context.Background(), domain.Generation{
		SessionID: "1:2",
		Params:    domain.Params{Model: "m", Version: "v", Extra: map[string]any{"width": 768}},
		ResultURL: "https://replicate.delivery/out.png",
		CreatedAt: createdAt,
	})
	require.NoError(t, err)
	assert.Equal(t, "42", id)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestGenerationPostgresRepositoryGetByID(t *testing.T) {
	repo, mock := newPostgresMock(t)
	createdAt := time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)

	mock.ExpectQuery(regexp.QuoteMeta("SELECT id, session_id, params, result_url, created_at")).
		WithArgs(int64(42)).
		WillReturnRows(sqlmock.NewRows([]string{"id", "session_id", "params", "result_url", "created_at"}).
			AddRow(int64(42), "1:2", []byte(`{"model":"m","version":"v","_version":2,"width":768}`), "https://replicate.delivery/out.png", createdAt))

	got, err := repo.GetByID(context.Background(), "42")
	require.NoError(t, err)
	assert.Equal(t, "42", got.ID)
	assert.Equal(t, "1:2", got.SessionID)
	assert.Equal(t, "m", got.Params.Model)
	assert.Equal(t, "v", got.Params.Version)
	assert.Equal(t, float64(2), got.Params.InputVersion)
	assert.Equal(t, float64(768), got.Params.Extra["width"])
	assert.Equal(t, "https://replicate.delivery/out.png", got.ResultURL)
	assert.Equal(t, createdAt, got.CreatedAt)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestGenerationPostgresRepositoryNotFound(t *testing.T) {
	repo, mock := newPostgresMock(t)

	mock.ExpectQuery(regexp.QuoteMeta("SELECT id, session_id, params, result_url, created_at")).
		WithArgs(int64(7)).
		WillReturnRows(sqlmock.NewRows([]string{"id", "session_id", "params", "result_url", "created_at"}))

	_, err := repo.GetByID(context.Background(), "7")
	assert.ErrorIs(t, err, domain.ErrNotFound)

	_, err = repo.GetByID(context.Background(), "not-a-number")
	assert.ErrorIs(t, err, domain.ErrNotFound)

	assert.NoError(t, mock.ExpectationsWereMet())
}
