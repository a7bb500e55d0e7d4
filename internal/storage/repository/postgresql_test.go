package repository

import (
	"context"
	"database/sql/driver"
	"regexp"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/magabrotheeeer/greencore-api/internal/apperr"
	"github.com/magabrotheeeer/greencore-api/internal/filter"
	"github.com/magabrotheeeer/greencore-api/internal/models"
)

func newMockStorage(t *testing.T) (*Storage, sqlmock.Sqlmock) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() {
		assert.NoError(t, mock.ExpectationsWereMet())
		_ = db.Close()
	})
	return NewWithDB(db), mock
}

var (
	reserveSelect = regexp.QuoteMeta(`SELECT k.active, k.expires_at, k.usage_count, p.request_quota, p.cooldown_seconds`) +
		`.*` + regexp.QuoteMeta(`FOR UPDATE OF k`)
	reserveUpdate = regexp.QuoteMeta(`UPDATE api_keys SET usage_count = $1`)
	reserveCols   = []string{"active", "expires_at", "usage_count", "request_quota", "cooldown_seconds", "next_issue_allowed"}
)

func TestStorage_ReserveUsage(t *testing.T) {
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	past := now.Add(-time.Hour)
	cooldownEnd := now.Add(24 * time.Hour)

	tests := []struct {
		name      string
		row       []driver.Value
		wantErr   error
		wantRes   models.Reservation
		expectUpd func(mock sqlmock.Sqlmock)
	}{
		{
			name:    "increments usage below quota",
			row:     []driver.Value{true, nil, 2, 5, 86400, nil},
			wantRes: models.Reservation{KeyID: 7},
			expectUpd: func(mock sqlmock.Sqlmock) {
				mock.ExpectExec(reserveUpdate).
					WithArgs(3, true, nil, now, int64(7)).
					WillReturnResult(sqlmock.NewResult(0, 1))
			},
		},
		{
			name:    "last unit deactivates key and sets cooldown",
			row:     []driver.Value{true, nil, 4, 5, 86400, nil},
			wantRes: models.Reservation{KeyID: 7, Exhausted: true, NextIssue: &cooldownEnd},
			expectUpd: func(mock sqlmock.Sqlmock) {
				mock.ExpectExec(reserveUpdate).
					WithArgs(5, false, now.Add(24*time.Hour), now, int64(7)).
					WillReturnResult(sqlmock.NewResult(0, 1))
			},
		},
		{
			name:    "last unit without cooldown deactivates permanently",
			row:     []driver.Value{true, nil, 0, 1, nil, nil},
			wantRes: models.Reservation{KeyID: 7, Exhausted: true},
			expectUpd: func(mock sqlmock.Sqlmock) {
				mock.ExpectExec(reserveUpdate).
					WithArgs(1, false, nil, now, int64(7)).
					WillReturnResult(sqlmock.NewResult(0, 1))
			},
		},
		{
			name: "exhaustion keeps earlier cooldown in reservation",
			row:  []driver.Value{true, nil, 0, 1, nil, past},
			wantRes: models.Reservation{
				KeyID: 7, Exhausted: true, PrevNextIssue: &past, NextIssue: &past,
			},
			expectUpd: func(mock sqlmock.Sqlmock) {
				mock.ExpectExec(reserveUpdate).
					WithArgs(1, false, nil, now, int64(7)).
					WillReturnResult(sqlmock.NewResult(0, 1))
			},
		},
		{
			name:    "unlimited plan",
			row:     []driver.Value{true, nil, 1000, nil, nil, nil},
			wantRes: models.Reservation{KeyID: 7},
			expectUpd: func(mock sqlmock.Sqlmock) {
				mock.ExpectExec(reserveUpdate).
					WithArgs(1001, true, nil, now, int64(7)).
					WillReturnResult(sqlmock.NewResult(0, 1))
			},
		},
		{
			name:    "quota already reached",
			row:     []driver.Value{false, nil, 5, 5, 86400, nil},
			wantErr: apperr.ErrQuotaExceeded,
		},
		{
			name:    "inactive key",
			row:     []driver.Value{false, nil, 1, 5, nil, nil},
			wantErr: apperr.ErrInactive,
		},
		{
			name:    "expired key",
			row:     []driver.Value{true, past, 1, nil, nil, nil},
			wantErr: apperr.ErrExpired,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			storage, mock := newMockStorage(t)

			mock.ExpectBegin()
			mock.ExpectQuery(reserveSelect).
				WithArgs(int64(7)).
				WillReturnRows(sqlmock.NewRows(reserveCols).AddRow(tt.row...))
			if tt.expectUpd != nil {
				tt.expectUpd(mock)
				mock.ExpectCommit()
			} else {
				mock.ExpectRollback()
			}

			res, err := storage.ReserveUsage(context.Background(), 7, now)
			if tt.wantErr != nil {
				require.ErrorIs(t, err, tt.wantErr)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.wantRes, res)
		})
	}
}

func TestStorage_ReserveUsage_UnknownKey(t *testing.T) {
	storage, mock := newMockStorage(t)

	mock.ExpectBegin()
	mock.ExpectQuery(reserveSelect).WithArgs(int64(1)).WillReturnRows(sqlmock.NewRows(reserveCols))
	mock.ExpectRollback()

	_, err := storage.ReserveUsage(context.Background(), 1, time.Now())
	require.ErrorIs(t, err, apperr.ErrInvalidCredential)
}

func TestStorage_ReleaseUsage(t *testing.T) {
	t.Run("plain release", func(t *testing.T) {
		storage, mock := newMockStorage(t)

		mock.ExpectBegin()
		mock.ExpectQuery(regexp.QuoteMeta(`SELECT usage_count FROM api_keys WHERE id = $1 FOR UPDATE`)).
			WithArgs(int64(3)).
			WillReturnRows(sqlmock.NewRows([]string{"usage_count"}).AddRow(2))
		mock.ExpectExec(regexp.QuoteMeta(`UPDATE api_keys SET usage_count = usage_count - 1 WHERE id = $1`)).
			WithArgs(int64(3)).
			WillReturnResult(sqlmock.NewResult(0, 1))
		mock.ExpectCommit()

		require.NoError(t, storage.ReleaseUsage(context.Background(), models.Reservation{KeyID: 3}))
	})

	t.Run("release undoes exhaustion", func(t *testing.T) {
		storage, mock := newMockStorage(t)
		next := time.Date(2026, 3, 2, 12, 0, 0, 0, time.UTC)

		mock.ExpectBegin()
		mock.ExpectQuery(`SELECT usage_count FROM api_keys`).
			WithArgs(int64(3)).
			WillReturnRows(sqlmock.NewRows([]string{"usage_count"}).AddRow(5))
		mock.ExpectExec(regexp.QuoteMeta(`UPDATE api_keys SET usage_count = usage_count - 1 WHERE id = $1`)).
			WithArgs(int64(3)).
			WillReturnResult(sqlmock.NewResult(0, 1))
		mock.ExpectExec(regexp.QuoteMeta(`WHERE id = $1 AND active = FALSE AND next_issue_allowed IS NOT DISTINCT FROM $3`)).
			WithArgs(int64(3), nil, next).
			WillReturnResult(sqlmock.NewResult(0, 1))
		mock.ExpectCommit()

		r := models.Reservation{KeyID: 3, Exhausted: true, NextIssue: &next}
		require.NoError(t, storage.ReleaseUsage(context.Background(), r))
	})

	t.Run("changed row is not reactivated", func(t *testing.T) {
		storage, mock := newMockStorage(t)

		mock.ExpectBegin()
		mock.ExpectQuery(`SELECT usage_count FROM api_keys`).
			WithArgs(int64(3)).
			WillReturnRows(sqlmock.NewRows([]string{"usage_count"}).AddRow(5))
		mock.ExpectExec(regexp.QuoteMeta(`UPDATE api_keys SET usage_count = usage_count - 1 WHERE id = $1`)).
			WithArgs(int64(3)).
			WillReturnResult(sqlmock.NewResult(0, 1))
		mock.ExpectExec(regexp.QuoteMeta(`SET active = TRUE`)).
			WithArgs(int64(3), nil, nil).
			WillReturnResult(sqlmock.NewResult(0, 0))
		mock.ExpectCommit()

		r := models.Reservation{KeyID: 3, Exhausted: true}
		require.NoError(t, storage.ReleaseUsage(context.Background(), r))
	})

	t.Run("usage already zero", func(t *testing.T) {
		storage, mock := newMockStorage(t)

		mock.ExpectBegin()
		mock.ExpectQuery(`SELECT usage_count FROM api_keys`).
			WithArgs(int64(3)).
			WillReturnRows(sqlmock.NewRows([]string{"usage_count"}).AddRow(0))
		mock.ExpectCommit()

		require.NoError(t, storage.ReleaseUsage(context.Background(), models.Reservation{KeyID: 3}))
	})
}

var keyWithPlanCols = []string{
	"id", "token", "owner", "plan_name", "active", "created_at", "expires_at", "usage_count",
	"max_page_size", "next_issue_allowed", "name", "request_quota", "max_page_size", "price",
	"allowed_filters", "allowed_fields", "cooldown_seconds",
}

func TestStorage_GetKeyWithPlan(t *testing.T) {
	created := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)

	t.Run("with plan", func(t *testing.T) {
		storage, mock := newMockStorage(t)
		mock.ExpectQuery(`FROM api_keys k\s+LEFT JOIN plans p`).
			WithArgs("gc_token").
			WillReturnRows(sqlmock.NewRows(keyWithPlanCols).AddRow(
				int64(1), "gc_token", "a@b.com", "free", true, created, nil, 2, 20, nil,
				"free", 5, 10, 0.0, []byte(`["view","light"]`), []byte(`["id","view"]`), 86400,
			))

		got, err := storage.GetKeyWithPlan(context.Background(), "gc_token")
		require.NoError(t, err)
		require.NotNil(t, got.Plan)
		assert.Equal(t, "a@b.com", got.Key.Owner)
		assert.Equal(t, 2, got.Key.UsageCount)
		require.NotNil(t, got.Key.MaxPageSize)
		assert.Equal(t, 20, *got.Key.MaxPageSize)
		assert.Nil(t, got.Key.ExpiresAt)
		assert.Equal(t, 5, *got.Plan.RequestQuota)
		assert.Equal(t, []string{"view", "light"}, got.Plan.AllowedFilters)
		assert.Equal(t, []string{"id", "view"}, got.Plan.AllowedFields)
		assert.Equal(t, 24*time.Hour, *got.Plan.Cooldown)
	})

	t.Run("stale plan", func(t *testing.T) {
		storage, mock := newMockStorage(t)
		mock.ExpectQuery(`FROM api_keys k`).
			WithArgs("gc_token").
			WillReturnRows(sqlmock.NewRows(keyWithPlanCols).AddRow(
				int64(1), "gc_token", "admin", "legacy", true, created, nil, 0, nil, nil,
				nil, nil, nil, nil, nil, nil, nil,
			))

		got, err := storage.GetKeyWithPlan(context.Background(), "gc_token")
		require.NoError(t, err)
		assert.Nil(t, got.Plan)
		assert.Nil(t, got.Key.MaxPageSize)
	})

	t.Run("unknown token", func(t *testing.T) {
		storage, mock := newMockStorage(t)
		mock.ExpectQuery(`FROM api_keys k`).
			WithArgs("nope").
			WillReturnRows(sqlmock.NewRows(keyWithPlanCols))

		_, err := storage.GetKeyWithPlan(context.Background(), "nope")
		require.ErrorIs(t, err, apperr.ErrInvalidCredential)
	})
}

var fulfillSelect = regexp.QuoteMeta(`SELECT plan_name, email, api_key FROM pending_payments WHERE payment_id = $1 FOR UPDATE`)

func TestStorage_FulfillPayment(t *testing.T) {
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	cols := []string{"plan_name", "email", "api_key"}

	t.Run("succeeded issues key once", func(t *testing.T) {
		storage, mock := newMockStorage(t)

		mock.ExpectBegin()
		mock.ExpectQuery(fulfillSelect).
			WithArgs("pay-1").
			WillReturnRows(sqlmock.NewRows(cols).AddRow("premium", "a@b.com", nil))
		mock.ExpectExec(regexp.QuoteMeta(`UPDATE pending_payments SET status = $1 WHERE payment_id = $2`)).
			WithArgs("succeeded", "pay-1").
			WillReturnResult(sqlmock.NewResult(0, 1))
		mock.ExpectQuery(regexp.QuoteMeta(`INSERT INTO api_keys`)).
			WithArgs("gc_new", "a@b.com", "premium", nil, nil).
			WillReturnRows(sqlmock.NewRows([]string{"id", "created_at"}).AddRow(int64(10), now))
		mock.ExpectExec(regexp.QuoteMeta(`UPDATE pending_payments SET api_key = $1, paid_at = $2 WHERE payment_id = $3`)).
			WithArgs("gc_new", now, "pay-1").
			WillReturnResult(sqlmock.NewResult(0, 1))
		mock.ExpectCommit()

		res, err := storage.FulfillPayment(context.Background(), "pay-1", "succeeded", "gc_new", now)
		require.NoError(t, err)
		assert.True(t, res.Found)
		assert.True(t, res.Issued)
		assert.Equal(t, "gc_new", res.APIKey)
		assert.Equal(t, "premium", res.PlanName)
	})

	t.Run("redelivery is a no-op", func(t *testing.T) {
		storage, mock := newMockStorage(t)

		mock.ExpectBegin()
		mock.ExpectQuery(fulfillSelect).
			WithArgs("pay-1").
			WillReturnRows(sqlmock.NewRows(cols).AddRow("premium", "a@b.com", "gc_old"))
		mock.ExpectCommit()

		res, err := storage.FulfillPayment(context.Background(), "pay-1", "succeeded", "gc_new", now)
		require.NoError(t, err)
		assert.True(t, res.Found)
		assert.False(t, res.Issued)
	})

	t.Run("canceled only updates status", func(t *testing.T) {
		storage, mock := newMockStorage(t)

		mock.ExpectBegin()
		mock.ExpectQuery(fulfillSelect).
			WithArgs("pay-2").
			WillReturnRows(sqlmock.NewRows(cols).AddRow("basic", "a@b.com", nil))
		mock.ExpectExec(`UPDATE pending_payments SET status`).
			WithArgs("canceled", "pay-2").
			WillReturnResult(sqlmock.NewResult(0, 1))
		mock.ExpectCommit()

		res, err := storage.FulfillPayment(context.Background(), "pay-2", "canceled", "gc_new", now)
		require.NoError(t, err)
		assert.False(t, res.Issued)
	})

	t.Run("unknown payment", func(t *testing.T) {
		storage, mock := newMockStorage(t)

		mock.ExpectBegin()
		mock.ExpectQuery(fulfillSelect).WithArgs("nope").WillReturnRows(sqlmock.NewRows(cols))
		mock.ExpectCommit()

		res, err := storage.FulfillPayment(context.Background(), "nope", "succeeded", "gc_new", now)
		require.NoError(t, err)
		assert.False(t, res.Found)
	})
}

func TestStorage_ConsumeLoginToken(t *testing.T) {
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	tokenSelect := regexp.QuoteMeta(`SELECT id, user_id, expires_at, used FROM auth_tokens WHERE token = $1 FOR UPDATE`)
	tokenCols := []string{"id", "user_id", "expires_at", "used"}

	t.Run("mints key for new user", func(t *testing.T) {
		storage, mock := newMockStorage(t)

		mock.ExpectBegin()
		mock.ExpectQuery(tokenSelect).
			WithArgs("tok").
			WillReturnRows(sqlmock.NewRows(tokenCols).AddRow(int64(1), int64(9), now.Add(time.Minute), false))
		mock.ExpectExec(regexp.QuoteMeta(`UPDATE auth_tokens SET used = TRUE WHERE id = $1`)).
			WithArgs(int64(1)).
			WillReturnResult(sqlmock.NewResult(0, 1))
		mock.ExpectQuery(regexp.QuoteMeta(`SELECT email, api_key FROM users WHERE id = $1 FOR UPDATE`)).
			WithArgs(int64(9)).
			WillReturnRows(sqlmock.NewRows([]string{"email", "api_key"}).AddRow("a@b.com", nil))
		mock.ExpectQuery(`INSERT INTO api_keys`).
			WithArgs("gc_login", "a@b.com", "free", nil, nil).
			WillReturnRows(sqlmock.NewRows([]string{"id", "created_at"}).AddRow(int64(4), now))
		mock.ExpectExec(regexp.QuoteMeta(`UPDATE users SET last_login = $1, api_key = $2 WHERE id = $3`)).
			WithArgs(now, "gc_login", int64(9)).
			WillReturnResult(sqlmock.NewResult(0, 1))
		mock.ExpectCommit()

		res, err := storage.ConsumeLoginToken(context.Background(), "tok", now, "gc_login", "free")
		require.NoError(t, err)
		assert.Equal(t, models.LoginResult{UserID: 9, APIKey: "gc_login"}, res)
	})

	t.Run("returns existing key", func(t *testing.T) {
		storage, mock := newMockStorage(t)

		mock.ExpectBegin()
		mock.ExpectQuery(tokenSelect).
			WithArgs("tok").
			WillReturnRows(sqlmock.NewRows(tokenCols).AddRow(int64(1), int64(9), now.Add(time.Minute), false))
		mock.ExpectExec(`UPDATE auth_tokens SET used`).WithArgs(int64(1)).WillReturnResult(sqlmock.NewResult(0, 1))
		mock.ExpectQuery(`SELECT email, api_key FROM users`).
			WithArgs(int64(9)).
			WillReturnRows(sqlmock.NewRows([]string{"email", "api_key"}).AddRow("a@b.com", "gc_existing"))
		mock.ExpectExec(regexp.QuoteMeta(`UPDATE users SET last_login = $1 WHERE id = $2`)).
			WithArgs(now, int64(9)).
			WillReturnResult(sqlmock.NewResult(0, 1))
		mock.ExpectCommit()

		res, err := storage.ConsumeLoginToken(context.Background(), "tok", now, "gc_unused", "free")
		require.NoError(t, err)
		assert.Equal(t, "gc_existing", res.APIKey)
	})

	for name, row := range map[string][]driver.Value{
		"used token":    {int64(1), int64(9), now.Add(time.Minute), true},
		"expired token": {int64(1), int64(9), now.Add(-time.Second), false},
	} {
		t.Run(name, func(t *testing.T) {
			storage, mock := newMockStorage(t)

			mock.ExpectBegin()
			mock.ExpectQuery(tokenSelect).
				WithArgs("tok").
				WillReturnRows(sqlmock.NewRows(tokenCols).AddRow(row...))
			mock.ExpectRollback()

			_, err := storage.ConsumeLoginToken(context.Background(), "tok", now, "gc_x", "free")
			require.ErrorIs(t, err, apperr.ErrInvalidOrExpiredToken)
		})
	}
}

func TestStorage_SearchPlants_BindsPagination(t *testing.T) {
	storage, mock := newMockStorage(t)

	q := filter.Query{Where: "view ILIKE $1", Args: []any{"%роза%"}, OrderBy: "id", Limit: 10, Offset: 20}
	mock.ExpectQuery(regexp.QuoteMeta(`FROM plants WHERE view ILIKE $1 ORDER BY id LIMIT $2 OFFSET $3`)).
		WithArgs("%роза%", 10, 20).
		WillReturnRows(sqlmock.NewRows([]string{
			"id", "view", "family", "cultivar", "insights", "light", "watering", "temperature",
			"soil", "fertilizer", "pruning", "pests_diseases", "indoor", "outdoor", "beginner_friendly",
			"toxicity", "zone_usda", "ru_regions",
		}).AddRow(int64(1), "Роза", nil, nil, nil, "яркий свет", nil, nil,
			nil, nil, nil, nil, false, true, true, "non_toxic", "5-9", nil))

	got, err := storage.SearchPlants(context.Background(), q)
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, "Роза", *got[0].View)
	assert.True(t, *got[0].Outdoor)
}

func TestStorage_GetPlan_NotFound(t *testing.T) {
	storage, mock := newMockStorage(t)
	mock.ExpectQuery(`FROM plans WHERE name = \$1`).
		WithArgs("gold").
		WillReturnRows(sqlmock.NewRows([]string{"name"}))

	_, err := storage.GetPlan(context.Background(), "gold")
	require.ErrorIs(t, err, apperr.ErrNotFound)
}

func TestStorage_CountByFlag_RejectsUnknownColumn(t *testing.T) {
	storage, _ := newMockStorage(t)

	_, err := storage.CountByFlag(context.Background(), PlantFlag("id; DROP TABLE plants"))
	require.Error(t, err)
}
