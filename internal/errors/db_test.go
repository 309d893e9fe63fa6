package errors

import (
	"context"
	"errors"
	"testing"

	"github.com/jackc/pgerrcode"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/stretchr/testify/assert"
)

func TestMapDBError_NilError(t *testing.T) {
	assert.NoError(t, MapDBError(nil))
}

func TestMapDBError_ContextErrors(t *testing.T) {
	assert.True(t, IsTimeout(MapDBError(context.DeadlineExceeded)))
	assert.True(t, IsCanceled(MapDBError(context.Canceled)))
}

func TestMapDBError_NoRows(t *testing.T) {
	assert.True(t, IsNotFound(MapDBError(pgx.ErrNoRows)))
}

func TestMapDBError_UniqueViolation(t *testing.T) {
	tests := []struct {
		name      string
		pgErr     *pgconn.PgError
		wantField string
	}{
		{
			name:      "column name",
			pgErr:     &pgconn.PgError{Code: pgerrcode.UniqueViolation, ColumnName: "email"},
			wantField: "email",
		},
		{
			name: "detail",
			pgErr: &pgconn.PgError{
				Code:   pgerrcode.UniqueViolation,
				Detail: "Key (provider_id)=(uid-1) already exists.",
			},
			wantField: "provider_id",
		},
		{
			name: "constraint with table",
			pgErr: &pgconn.PgError{
				Code:           pgerrcode.UniqueViolation,
				TableName:      "users",
				ConstraintName: "users_provider_id_key",
			},
			wantField: "provider_id",
		},
		{
			name:      "unknown",
			pgErr:     &pgconn.PgError{Code: pgerrcode.UniqueViolation, ConstraintName: "weird"},
			wantField: "",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := MapDBError(tt.pgErr)
			assert.True(t, IsConflict(err))
			var appErr *AppError
			if assert.True(t, errors.As(err, &appErr)) {
				assert.Equal(t, tt.wantField, appErr.Field)
			}
		})
	}
}

func TestMapDBError_ValidationAndInternal(t *testing.T) {
	notNull := MapDBError(&pgconn.PgError{Code: pgerrcode.NotNullViolation, ColumnName: "email"})
	assert.True(t, IsValidation(notNull))

	check := MapDBError(&pgconn.PgError{Code: pgerrcode.CheckViolation})
	assert.True(t, IsValidation(check))

	other := MapDBError(&pgconn.PgError{Code: pgerrcode.DiskFull})
	assert.True(t, IsInternal(other))
}

func TestMapDBError_PassThrough(t *testing.T) {
	plain := errors.New("plain")
	assert.Equal(t, plain, MapDBError(plain))
}
