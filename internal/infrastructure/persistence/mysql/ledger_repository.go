package mysql

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/go-sql-driver/mysql"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	otelcodes "go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"xp-server/internal/domain/ledger"
)

// mysqlErrDuplicateEntry MySQLの一意制約違反エラーコード
const mysqlErrDuplicateEntry = 1062

// LedgerRepository MySQL実装のLedgerRepository
type LedgerRepository struct {
	db     *DB
	tracer trace.Tracer
}

// NewLedgerRepository 新しいLedgerRepositoryを作成
func NewLedgerRepository(db *DB) *LedgerRepository {
	return &LedgerRepository{
		db:     db,
		tracer: otel.Tracer("ledger-repository"),
	}
}

// Append 台帳レコードを追記する
// idempotency_tokenの一意制約違反はErrDuplicateIdempotencyTokenとして返す
func (r *LedgerRepository) Append(ctx context.Context, record *ledger.Record) error {
	ctx, span := r.tracer.Start(ctx, "LedgerRepository.Append")
	defer span.End()

	span.SetAttributes(
		attribute.String("db.record_id", record.RecordID()),
		attribute.String("db.kind", record.Kind().String()),
		attribute.Int64("db.gross", record.Gross()),
		attribute.String("db.operation", "INSERT"),
		attribute.String("db.table", "ledger_records"),
	)

	legsJSON, err := json.Marshal(record.Legs())
	if err != nil {
		span.RecordError(err)
		span.SetStatus(otelcodes.Error, err.Error())
		return fmt.Errorf("failed to marshal legs: %w", err)
	}

	var metadataJSON []byte
	if record.Metadata() != nil {
		metadataJSON, err = json.Marshal(record.Metadata())
		if err != nil {
			span.RecordError(err)
			span.SetStatus(otelcodes.Error, err.Error())
			return fmt.Errorf("failed to marshal metadata: %w", err)
		}
	}

	query := `
		INSERT INTO ledger_records (record_id, idempotency_token, kind, legs, gross, fee, share, metadata, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
	`

	_, err = r.db.conn(ctx).ExecContext(ctx, query,
		record.RecordID(),
		record.IdempotencyToken(),
		record.Kind().String(),
		legsJSON,
		record.Gross(),
		record.Fee(),
		record.Share(),
		nullableJSON(metadataJSON),
		record.CreatedAt(),
	)

	if err != nil {
		var mysqlErr *mysql.MySQLError
		if errors.As(err, &mysqlErr) && mysqlErr.Number == mysqlErrDuplicateEntry {
			span.SetStatus(otelcodes.Ok, "duplicate idempotency token")
			return ledger.ErrDuplicateIdempotencyToken
		}
		span.RecordError(err)
		span.SetStatus(otelcodes.Error, err.Error())
		return fmt.Errorf("failed to append ledger record: %w", err)
	}

	span.SetStatus(otelcodes.Ok, "record appended")
	return nil
}

// FindByRecordID レコードIDで台帳レコードを取得
func (r *LedgerRepository) FindByRecordID(ctx context.Context, recordID string) (*ledger.Record, error) {
	ctx, span := r.tracer.Start(ctx, "LedgerRepository.FindByRecordID")
	defer span.End()

	span.SetAttributes(
		attribute.String("db.record_id", recordID),
		attribute.String("db.operation", "SELECT"),
		attribute.String("db.table", "ledger_records"),
	)

	query := `
		SELECT record_id, idempotency_token, kind, legs, gross, fee, share, metadata, created_at
		FROM ledger_records
		WHERE record_id = ?
	`

	record, err := r.scanRecord(r.db.conn(ctx).QueryRowContext(ctx, query, recordID))
	if err == sql.ErrNoRows {
		span.SetStatus(otelcodes.Ok, "record not found")
		return nil, ledger.ErrRecordNotFound
	}
	if err != nil {
		span.RecordError(err)
		span.SetStatus(otelcodes.Error, err.Error())
		return nil, err
	}

	span.SetStatus(otelcodes.Ok, "record found")
	return record, nil
}

// FindByIdempotencyToken 冪等性トークンで台帳レコードを取得
func (r *LedgerRepository) FindByIdempotencyToken(ctx context.Context, token string) (*ledger.Record, error) {
	ctx, span := r.tracer.Start(ctx, "LedgerRepository.FindByIdempotencyToken")
	defer span.End()

	span.SetAttributes(
		attribute.String("db.operation", "SELECT"),
		attribute.String("db.table", "ledger_records"),
	)

	query := `
		SELECT record_id, idempotency_token, kind, legs, gross, fee, share, metadata, created_at
		FROM ledger_records
		WHERE idempotency_token = ?
	`

	record, err := r.scanRecord(r.db.conn(ctx).QueryRowContext(ctx, query, token))
	if err == sql.ErrNoRows {
		span.SetStatus(otelcodes.Ok, "record not found")
		return nil, ledger.ErrRecordNotFound
	}
	if err != nil {
		span.RecordError(err)
		span.SetStatus(otelcodes.Error, err.Error())
		return nil, err
	}

	span.SetStatus(otelcodes.Ok, "record found")
	return record, nil
}

// FindByUserID ユーザーIDが関与する台帳レコードを新しい順に取得
func (r *LedgerRepository) FindByUserID(ctx context.Context, userID string, limit int, offset int) ([]*ledger.Record, error) {
	ctx, span := r.tracer.Start(ctx, "LedgerRepository.FindByUserID")
	defer span.End()

	span.SetAttributes(
		attribute.String("db.user_id", userID),
		attribute.Int("db.limit", limit),
		attribute.Int("db.offset", offset),
		attribute.String("db.operation", "SELECT"),
		attribute.String("db.table", "ledger_records"),
	)

	query := `
		SELECT record_id, idempotency_token, kind, legs, gross, fee, share, metadata, created_at
		FROM ledger_records
		WHERE JSON_CONTAINS(legs, JSON_OBJECT('user_id', ?))
		ORDER BY created_at DESC, record_id DESC
		LIMIT ? OFFSET ?
	`

	rows, err := r.db.conn(ctx).QueryContext(ctx, query, userID, limit, offset)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(otelcodes.Error, err.Error())
		return nil, fmt.Errorf("failed to query ledger records: %w", err)
	}
	defer rows.Close()

	var records []*ledger.Record
	for rows.Next() {
		record, err := r.scanRecord(rows)
		if err != nil {
			span.RecordError(err)
			span.SetStatus(otelcodes.Error, err.Error())
			return nil, err
		}
		records = append(records, record)
	}

	if err := rows.Err(); err != nil {
		span.RecordError(err)
		span.SetStatus(otelcodes.Error, err.Error())
		return nil, fmt.Errorf("failed to iterate ledger records: %w", err)
	}

	span.SetAttributes(attribute.Int("db.record_count", len(records)))
	span.SetStatus(otelcodes.Ok, "records found")
	return records, nil
}

// rowScanner sql.Rowとsql.Rowsの共通インターフェース
type rowScanner interface {
	Scan(dest ...interface{}) error
}

func (r *LedgerRepository) scanRecord(row rowScanner) (*ledger.Record, error) {
	var recordID, token, kindStr string
	var legsJSON []byte
	var gross, fee, share int64
	var metadataJSON sql.NullString
	var createdAt time.Time

	err := row.Scan(
		&recordID,
		&token,
		&kindStr,
		&legsJSON,
		&gross,
		&fee,
		&share,
		&metadataJSON,
		&createdAt,
	)
	if err == sql.ErrNoRows {
		return nil, err
	}
	if err != nil {
		return nil, fmt.Errorf("failed to scan ledger record: %w", err)
	}

	var legs []ledger.Leg
	if err := json.Unmarshal(legsJSON, &legs); err != nil {
		return nil, fmt.Errorf("failed to unmarshal legs: %w", err)
	}

	var metadata map[string]interface{}
	if metadataJSON.Valid && metadataJSON.String != "" {
		if err := json.Unmarshal([]byte(metadataJSON.String), &metadata); err != nil {
			return nil, fmt.Errorf("failed to unmarshal metadata: %w", err)
		}
	}

	kind, err := ledger.NewKind(kindStr)
	if err != nil {
		return nil, fmt.Errorf("invalid ledger kind: %w", err)
	}

	record, err := ledger.Reconstruct(recordID, token, kind, legs, gross, fee, share, metadata, createdAt)
	if err != nil {
		return nil, fmt.Errorf("failed to reconstruct ledger record: %w", err)
	}

	return record, nil
}

// nullableJSON 空のJSONバイト列をNULLとして扱う
func nullableJSON(b []byte) interface{} {
	if len(b) == 0 {
		return nil
	}
	return b
}
