package mysql

import (
	"context"
	"database/sql"
	"fmt"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	otelcodes "go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"xp-server/internal/domain/account"
)

// AccountRepository MySQL実装のAccountRepository
type AccountRepository struct {
	db     *DB
	tracer trace.Tracer
}

// NewAccountRepository 新しいAccountRepositoryを作成
func NewAccountRepository(db *DB) *AccountRepository {
	return &AccountRepository{
		db:     db,
		tracer: otel.Tracer("account-repository"),
	}
}

// FindByUserIDAndScope ユーザーIDと通貨スコープでアカウントを取得
func (r *AccountRepository) FindByUserIDAndScope(ctx context.Context, userID string, scope account.Scope) (*account.Account, error) {
	ctx, span := r.tracer.Start(ctx, "AccountRepository.FindByUserIDAndScope")
	defer span.End()

	span.SetAttributes(
		attribute.String("db.user_id", userID),
		attribute.String("db.scope", scope.String()),
		attribute.String("db.operation", "SELECT"),
		attribute.String("db.table", "accounts"),
	)

	query := `
		SELECT user_id, currency_scope, current, earned, spent, version
		FROM accounts
		WHERE user_id = ? AND currency_scope = ?
	`

	var dbUserID string
	var dbScope string
	var current, earned, spent int64
	var version int

	err := r.db.conn(ctx).QueryRowContext(ctx, query, userID, scope.String()).Scan(
		&dbUserID,
		&dbScope,
		&current,
		&earned,
		&spent,
		&version,
	)

	if err == sql.ErrNoRows {
		span.SetStatus(otelcodes.Ok, "account not found")
		return nil, account.ErrAccountNotFound
	}
	if err != nil {
		span.RecordError(err)
		span.SetStatus(otelcodes.Error, err.Error())
		return nil, fmt.Errorf("failed to find account: %w", err)
	}

	span.SetAttributes(
		attribute.Int64("db.current", current),
		attribute.Int("db.version", version),
	)
	span.SetStatus(otelcodes.Ok, "account found")

	s, err := account.NewScope(dbScope)
	if err != nil {
		return nil, fmt.Errorf("invalid currency scope: %w", err)
	}

	a, err := account.NewAccount(dbUserID, s, current, earned, spent, version)
	if err != nil {
		return nil, fmt.Errorf("failed to reconstruct account entity: %w", err)
	}

	return a, nil
}

// Save アカウントを保存（更新、楽観的ロック対応）
func (r *AccountRepository) Save(ctx context.Context, a *account.Account) error {
	ctx, span := r.tracer.Start(ctx, "AccountRepository.Save")
	defer span.End()

	span.SetAttributes(
		attribute.String("db.user_id", a.UserID()),
		attribute.String("db.scope", a.Scope().String()),
		attribute.Int64("db.current", a.Current()),
		attribute.Int("db.version", a.Version()),
		attribute.String("db.operation", "UPDATE"),
		attribute.String("db.table", "accounts"),
	)

	query := `
		UPDATE accounts
		SET current = ?, earned = ?, spent = ?, version = version + 1, updated_at = CURRENT_TIMESTAMP
		WHERE user_id = ? AND currency_scope = ? AND version = ?
	`

	result, err := r.db.conn(ctx).ExecContext(ctx, query,
		a.Current(),
		a.Earned(),
		a.Spent(),
		a.UserID(),
		a.Scope().String(),
		a.Version(),
	)

	if err != nil {
		span.RecordError(err)
		span.SetStatus(otelcodes.Error, err.Error())
		return fmt.Errorf("failed to save account: %w", err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		span.RecordError(err)
		span.SetStatus(otelcodes.Error, err.Error())
		return fmt.Errorf("failed to get rows affected: %w", err)
	}

	if rowsAffected == 0 {
		span.RecordError(account.ErrVersionConflict)
		span.SetStatus(otelcodes.Error, account.ErrVersionConflict.Error())
		return account.ErrVersionConflict
	}

	span.SetAttributes(attribute.Int64("db.rows_affected", rowsAffected))
	span.SetStatus(otelcodes.Ok, "account saved")
	return nil
}

// Create 新しいアカウントを作成
func (r *AccountRepository) Create(ctx context.Context, a *account.Account) error {
	ctx, span := r.tracer.Start(ctx, "AccountRepository.Create")
	defer span.End()

	span.SetAttributes(
		attribute.String("db.user_id", a.UserID()),
		attribute.String("db.scope", a.Scope().String()),
		attribute.Int64("db.current", a.Current()),
		attribute.String("db.operation", "INSERT"),
		attribute.String("db.table", "accounts"),
	)

	// ユーザーが存在するか確認（存在しない場合は作成）
	if err := r.ensureUserExists(ctx, a.UserID()); err != nil {
		span.RecordError(err)
		span.SetStatus(otelcodes.Error, err.Error())
		return fmt.Errorf("failed to ensure user exists: %w", err)
	}

	query := `
		INSERT INTO accounts (user_id, currency_scope, current, earned, spent, version)
		VALUES (?, ?, ?, ?, ?, ?)
		ON DUPLICATE KEY UPDATE updated_at = CURRENT_TIMESTAMP
	`

	_, err := r.db.conn(ctx).ExecContext(ctx, query,
		a.UserID(),
		a.Scope().String(),
		a.Current(),
		a.Earned(),
		a.Spent(),
		a.Version(),
	)

	if err != nil {
		span.RecordError(err)
		span.SetStatus(otelcodes.Error, err.Error())
		return fmt.Errorf("failed to create account: %w", err)
	}

	span.SetStatus(otelcodes.Ok, "account created")
	return nil
}

// ensureUserExists ユーザーが存在することを確認（存在しない場合は作成）
func (r *AccountRepository) ensureUserExists(ctx context.Context, userID string) error {
	query := `
		INSERT INTO users (user_id)
		VALUES (?)
		ON DUPLICATE KEY UPDATE updated_at = CURRENT_TIMESTAMP
	`

	_, err := r.db.conn(ctx).ExecContext(ctx, query, userID)
	if err != nil {
		return fmt.Errorf("failed to ensure user exists: %w", err)
	}

	return nil
}
