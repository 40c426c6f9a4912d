// Package repository содержит реализацию доступа к данным в PostgreSQL.
package repository

import (
	"context"
	"embed"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgerrcode"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/jackc/pgx/v5/stdlib"
	"github.com/pressly/goose/v3"

	"github.com/mmeshcher/messhall-system/internal/model"
)

//go:embed migrations/*.sql
var migrationsFS embed.FS

// ErrMemberExists возвращается при попытке зарегистрировать проживающего с занятым tg_user_id или roll_no.
var (
	ErrMemberExists = errors.New("member already exists")
	// ErrMemberNotFound возвращается, если проживающий не найден.
	ErrMemberNotFound = errors.New("member not found")
	// ErrNotPending возвращается при попытке одобрить или отклонить заявку не в статусе PENDING.
	ErrNotPending = errors.New("member is not in pending status")
	// ErrOverlapViolation возвращается, когда новый диапазон дат пересекается с существующим.
	ErrOverlapViolation = errors.New("date range overlaps an existing one")
	// ErrPaymentNotFound возвращается, если платёжный цикл не найден.
	ErrPaymentNotFound = errors.New("payment cycle not found")
	// ErrNotUploaded возвращается при попытке проверить платёж не в статусе UPLOADED.
	ErrNotUploaded = errors.New("payment is not in uploaded status")
	// ErrTokenNotFound возвращается, если токен персонала не найден.
	ErrTokenNotFound = errors.New("staff token not found")
)

// PostgresRepository предоставляет доступ к хранилищу данных в PostgreSQL.
type PostgresRepository struct {
	pool *pgxpool.Pool
}

// NewPostgresRepository создаёт новый репозиторий и инициализирует схему БД через миграции.
func NewPostgresRepository(dsn string) (*PostgresRepository, error) {
	cfg, err := pgxpool.ParseConfig(dsn)
	if err != nil {
		return nil, fmt.Errorf("parse pool config: %w", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	pool, err := pgxpool.NewWithConfig(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("create pool: %w", err)
	}

	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}

	r := &PostgresRepository{pool: pool}

	if err := r.runMigrations(ctx); err != nil {
		pool.Close()
		return nil, err
	}

	return r, nil
}

func (r *PostgresRepository) runMigrations(ctx context.Context) error {
	db := stdlib.OpenDBFromPool(r.pool)
	defer db.Close()

	goose.SetBaseFS(migrationsFS)

	if err := goose.SetDialect("postgres"); err != nil {
		return fmt.Errorf("set dialect: %w", err)
	}

	if err := goose.UpContext(ctx, db, "migrations"); err != nil {
		return fmt.Errorf("run migrations: %w", err)
	}

	return nil
}

func (r *PostgresRepository) withRetry(ctx context.Context, fn func() error) error {
	var err error
	delays := []time.Duration{1 * time.Second, 3 * time.Second, 5 * time.Second}

	for i := 0; i <= len(delays); i++ {
		err = fn()
		if err == nil {
			return nil
		}

		if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
			return err
		}

		// Ретраи нужны для Serialization Failure и Deadlocks на конкурентных
		// проверках пересечения диапазонов.
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) {
			if pgErr.Code == pgerrcode.SerializationFailure || pgErr.Code == pgerrcode.DeadlockDetected {
				if i < len(delays) {
					time.Sleep(delays[i])
					continue
				}
			}
		}

		if isConnectionError(err) {
			if i < len(delays) {
				time.Sleep(delays[i])
				continue
			}
		}

		break
	}
	return err
}

func isConnectionError(err error) bool {
	return strings.Contains(err.Error(), "connection refused") ||
		strings.Contains(err.Error(), "broken pipe") ||
		strings.Contains(err.Error(), "connection reset by peer")
}

// Close закрывает пул соединений с БД.
func (r *PostgresRepository) Close() error {
	r.pool.Close()
	return nil
}

// CreateMember регистрирует нового проживающего.
func (r *PostgresRepository) CreateMember(ctx context.Context, m *model.Member) error {
	_, err := r.pool.Exec(ctx,
		`INSERT INTO members (id, tg_user_id, name, roll_no, room_no, phone, status, credential_version, credential_nonce)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)`,
		m.ID, m.TGUserID, m.Name, m.RollNo, m.RoomNo, m.Phone, string(m.Status), m.CredentialVersion, m.CredentialNonce,
	)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == pgerrcode.UniqueViolation {
			return fmt.Errorf("%w: %s", ErrMemberExists, m.RollNo)
		}
		return fmt.Errorf("create member: %w", err)
	}
	return nil
}

// GetMemberByID возвращает проживающего по идентификатору.
func (r *PostgresRepository) GetMemberByID(ctx context.Context, id uuid.UUID) (*model.Member, error) {
	row := r.pool.QueryRow(ctx,
		`SELECT id, tg_user_id, name, roll_no, room_no, phone, status, credential_version, credential_nonce, created_at, updated_at
		 FROM members WHERE id = $1`,
		id,
	)

	var m model.Member
	var status string
	err := row.Scan(&m.ID, &m.TGUserID, &m.Name, &m.RollNo, &m.RoomNo, &m.Phone, &status,
		&m.CredentialVersion, &m.CredentialNonce, &m.CreatedAt, &m.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrMemberNotFound
		}
		return nil, fmt.Errorf("get member: %w", err)
	}
	m.Status = model.MemberStatus(status)

	return &m, nil
}

// UpdateMemberStatus переводит заявку из PENDING в указанный статус.
func (r *PostgresRepository) UpdateMemberStatus(ctx context.Context, id uuid.UUID, status model.MemberStatus) error {
	cmdTag, err := r.pool.Exec(ctx,
		`UPDATE members SET status = $2, updated_at = now() WHERE id = $1 AND status = $3`,
		id, string(status), string(model.MemberStatusPending),
	)
	if err != nil {
		return fmt.Errorf("update member status: %w", err)
	}

	if cmdTag.RowsAffected() == 1 {
		return nil
	}

	var exists bool
	if err := r.pool.QueryRow(ctx, `SELECT EXISTS(SELECT 1 FROM members WHERE id = $1)`, id).Scan(&exists); err != nil {
		return fmt.Errorf("check member exists: %w", err)
	}
	if !exists {
		return ErrMemberNotFound
	}
	return ErrNotPending
}

// UpdateMemberCredential записывает новую версию и nonce учётки проживающего.
func (r *PostgresRepository) UpdateMemberCredential(ctx context.Context, id uuid.UUID, version int, nonce string) error {
	cmdTag, err := r.pool.Exec(ctx,
		`UPDATE members SET credential_version = $2, credential_nonce = $3, updated_at = now() WHERE id = $1`,
		id, version, nonce,
	)
	if err != nil {
		return fmt.Errorf("update member credential: %w", err)
	}
	if cmdTag.RowsAffected() == 0 {
		return ErrMemberNotFound
	}
	return nil
}

// ListApprovedMemberIDs возвращает идентификаторы всех одобренных проживающих.
func (r *PostgresRepository) ListApprovedMemberIDs(ctx context.Context) ([]uuid.UUID, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT id FROM members WHERE status = $1 ORDER BY created_at`,
		string(model.MemberStatusApproved),
	)
	if err != nil {
		return nil, fmt.Errorf("select approved members: %w", err)
	}
	defer rows.Close()

	var ids []uuid.UUID
	for rows.Next() {
		var id uuid.UUID
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("scan member id: %w", err)
		}
		ids = append(ids, id)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows error: %w", err)
	}

	return ids, nil
}

// CountApprovedMembers возвращает число одобренных проживающих.
func (r *PostgresRepository) CountApprovedMembers(ctx context.Context) (int64, error) {
	var count int64
	err := r.pool.QueryRow(ctx,
		`SELECT COUNT(*) FROM members WHERE status = $1`,
		string(model.MemberStatusApproved),
	).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("count approved members: %w", err)
	}
	return count, nil
}

// GetSecretEpoch возвращает текущую эпоху общего секрета QR-кодов.
func (r *PostgresRepository) GetSecretEpoch(ctx context.Context) (int, error) {
	var epoch int
	err := r.pool.QueryRow(ctx, `SELECT secret_epoch FROM settings WHERE id = 1`).Scan(&epoch)
	if err != nil {
		return 0, fmt.Errorf("get secret epoch: %w", err)
	}
	return epoch, nil
}

// BumpSecretEpoch увеличивает эпоху общего секрета и возвращает новое значение.
func (r *PostgresRepository) BumpSecretEpoch(ctx context.Context) (int, error) {
	var epoch int
	err := r.pool.QueryRow(ctx,
		`UPDATE settings SET secret_epoch = secret_epoch + 1 WHERE id = 1 RETURNING secret_epoch`,
	).Scan(&epoch)
	if err != nil {
		return 0, fmt.Errorf("bump secret epoch: %w", err)
	}
	return epoch, nil
}

// CreatePaymentCycle сохраняет платёжный цикл, проверяя отсутствие пересечений
// с активными циклами проживающего. Строка проживающего блокируется на время
// проверки, чтобы два конкурентных запроса не прошли её одновременно.
func (r *PostgresRepository) CreatePaymentCycle(ctx context.Context, p *model.PaymentCycle) error {
	return r.withRetry(ctx, func() error {
		tx, err := r.pool.Begin(ctx)
		if err != nil {
			return fmt.Errorf("begin tx: %w", err)
		}
		defer tx.Rollback(ctx)

		var dummy int
		err = tx.QueryRow(ctx, `SELECT 1 FROM members WHERE id = $1 FOR UPDATE`, p.MemberID).Scan(&dummy)
		if err != nil {
			if errors.Is(err, pgx.ErrNoRows) {
				return ErrMemberNotFound
			}
			return fmt.Errorf("lock member for update: %w", err)
		}

		var overlaps bool
		err = tx.QueryRow(ctx,
			`SELECT EXISTS(
				SELECT 1 FROM payment_cycles
				WHERE member_id = $1
				  AND status IN ($2, $3)
				  AND cycle_start <= $5
				  AND cycle_end >= $4
			)`,
			p.MemberID, string(model.PaymentStatusUploaded), string(model.PaymentStatusVerified),
			p.CycleStart, p.CycleEnd,
		).Scan(&overlaps)
		if err != nil {
			return fmt.Errorf("check payment overlap: %w", err)
		}
		if overlaps {
			return ErrOverlapViolation
		}

		_, err = tx.Exec(ctx,
			`INSERT INTO payment_cycles (id, member_id, cycle_start, cycle_end, amount_paise, status, source)
			 VALUES ($1, $2, $3, $4, $5, $6, $7)`,
			p.ID, p.MemberID, p.CycleStart, p.CycleEnd, p.AmountPaise, string(p.Status), string(p.Source),
		)
		if err != nil {
			return fmt.Errorf("insert payment cycle: %w", err)
		}

		if err := tx.Commit(ctx); err != nil {
			return fmt.Errorf("commit tx: %w", err)
		}

		return nil
	})
}

// SetPaymentStatus переводит платёж из UPLOADED в указанный статус с фиксацией проверяющего.
func (r *PostgresRepository) SetPaymentStatus(ctx context.Context, id uuid.UUID, status model.PaymentStatus, source *model.PaymentSource, reviewerAdminID int64) error {
	var cmdTag pgconn.CommandTag
	var err error

	if source != nil {
		cmdTag, err = r.pool.Exec(ctx,
			`UPDATE payment_cycles SET status = $2, source = $3, reviewer_admin_id = $4, reviewed_at = now()
			 WHERE id = $1 AND status = $5`,
			id, string(status), string(*source), reviewerAdminID, string(model.PaymentStatusUploaded),
		)
	} else {
		cmdTag, err = r.pool.Exec(ctx,
			`UPDATE payment_cycles SET status = $2, reviewer_admin_id = $3, reviewed_at = now()
			 WHERE id = $1 AND status = $4`,
			id, string(status), reviewerAdminID, string(model.PaymentStatusUploaded),
		)
	}
	if err != nil {
		return fmt.Errorf("update payment status: %w", err)
	}

	if cmdTag.RowsAffected() == 1 {
		return nil
	}

	var exists bool
	if err := r.pool.QueryRow(ctx, `SELECT EXISTS(SELECT 1 FROM payment_cycles WHERE id = $1)`, id).Scan(&exists); err != nil {
		return fmt.Errorf("check payment exists: %w", err)
	}
	if !exists {
		return ErrPaymentNotFound
	}
	return ErrNotUploaded
}

// HasVerifiedPaymentForDate сообщает, покрыт ли указанный день подтверждённым платежом.
func (r *PostgresRepository) HasVerifiedPaymentForDate(ctx context.Context, memberID uuid.UUID, date time.Time) (bool, error) {
	var ok bool
	err := r.pool.QueryRow(ctx,
		`SELECT EXISTS(
			SELECT 1 FROM payment_cycles
			WHERE member_id = $1 AND status = $2 AND cycle_start <= $3 AND cycle_end >= $3
		)`,
		memberID, string(model.PaymentStatusVerified), date,
	).Scan(&ok)
	if err != nil {
		return false, fmt.Errorf("check verified payment: %w", err)
	}
	return ok, nil
}

// CountVerifiedPayments возвращает число подтверждённых платежей.
func (r *PostgresRepository) CountVerifiedPayments(ctx context.Context) (int64, error) {
	var count int64
	err := r.pool.QueryRow(ctx,
		`SELECT COUNT(*) FROM payment_cycles WHERE status = $1`,
		string(model.PaymentStatusVerified),
	).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("count verified payments: %w", err)
	}
	return count, nil
}

// CreateMessCut сохраняет отказ от питания, проверяя отсутствие пересечений
// с уже оформленными отказами проживающего.
func (r *PostgresRepository) CreateMessCut(ctx context.Context, c *model.MessCut) error {
	return r.withRetry(ctx, func() error {
		tx, err := r.pool.Begin(ctx)
		if err != nil {
			return fmt.Errorf("begin tx: %w", err)
		}
		defer tx.Rollback(ctx)

		var dummy int
		err = tx.QueryRow(ctx, `SELECT 1 FROM members WHERE id = $1 FOR UPDATE`, c.MemberID).Scan(&dummy)
		if err != nil {
			if errors.Is(err, pgx.ErrNoRows) {
				return ErrMemberNotFound
			}
			return fmt.Errorf("lock member for update: %w", err)
		}

		var overlaps bool
		err = tx.QueryRow(ctx,
			`SELECT EXISTS(
				SELECT 1 FROM mess_cuts
				WHERE member_id = $1 AND from_date <= $3 AND to_date >= $2
			)`,
			c.MemberID, c.FromDate, c.ToDate,
		).Scan(&overlaps)
		if err != nil {
			return fmt.Errorf("check mess cut overlap: %w", err)
		}
		if overlaps {
			return ErrOverlapViolation
		}

		_, err = tx.Exec(ctx,
			`INSERT INTO mess_cuts (id, member_id, from_date, to_date, applied_by, cutoff_ok)
			 VALUES ($1, $2, $3, $4, $5, $6)`,
			c.ID, c.MemberID, c.FromDate, c.ToDate, string(c.AppliedBy), c.CutoffOK,
		)
		if err != nil {
			return fmt.Errorf("insert mess cut: %w", err)
		}

		if err := tx.Commit(ctx); err != nil {
			return fmt.Errorf("commit tx: %w", err)
		}

		return nil
	})
}

// HasCutForDate сообщает, действует ли у проживающего отказ на указанный день.
func (r *PostgresRepository) HasCutForDate(ctx context.Context, memberID uuid.UUID, date time.Time) (bool, error) {
	var ok bool
	err := r.pool.QueryRow(ctx,
		`SELECT EXISTS(
			SELECT 1 FROM mess_cuts WHERE member_id = $1 AND from_date <= $2 AND to_date >= $2
		)`,
		memberID, date,
	).Scan(&ok)
	if err != nil {
		return false, fmt.Errorf("check mess cut: %w", err)
	}
	return ok, nil
}

// CreateClosure сохраняет закрытие столовой.
func (r *PostgresRepository) CreateClosure(ctx context.Context, c *model.MessClosure) error {
	_, err := r.pool.Exec(ctx,
		`INSERT INTO mess_closures (id, from_date, to_date, reason, created_by_admin_id)
		 VALUES ($1, $2, $3, $4, $5)`,
		c.ID, c.FromDate, c.ToDate, c.Reason, c.CreatedByAdminID,
	)
	if err != nil {
		return fmt.Errorf("insert closure: %w", err)
	}
	return nil
}

// IsClosedForDate сообщает, закрыта ли столовая на указанный день.
func (r *PostgresRepository) IsClosedForDate(ctx context.Context, date time.Time) (bool, error) {
	var ok bool
	err := r.pool.QueryRow(ctx,
		`SELECT EXISTS(
			SELECT 1 FROM mess_closures WHERE from_date <= $1 AND to_date >= $1
		)`,
		date,
	).Scan(&ok)
	if err != nil {
		return false, fmt.Errorf("check closure: %w", err)
	}
	return ok, nil
}

// ListClosures возвращает закрытия столовой, начиная с последних.
func (r *PostgresRepository) ListClosures(ctx context.Context) ([]model.MessClosure, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT id, from_date, to_date, reason, created_by_admin_id, created_at
		 FROM mess_closures ORDER BY from_date DESC`,
	)
	if err != nil {
		return nil, fmt.Errorf("select closures: %w", err)
	}
	defer rows.Close()

	var res []model.MessClosure
	for rows.Next() {
		var c model.MessClosure
		if err := rows.Scan(&c.ID, &c.FromDate, &c.ToDate, &c.Reason, &c.CreatedByAdminID, &c.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan closure: %w", err)
		}
		res = append(res, c)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows error: %w", err)
	}

	return res, nil
}

// CreateStaffToken сохраняет токен персонала.
func (r *PostgresRepository) CreateStaffToken(ctx context.Context, t *model.StaffToken) error {
	_, err := r.pool.Exec(ctx,
		`INSERT INTO staff_tokens (id, label, token_hash, active, expires_at, issued_at)
		 VALUES ($1, $2, $3, $4, $5, $6)`,
		t.ID, t.Label, t.TokenHash, t.Active, t.ExpiresAt, t.IssuedAt,
	)
	if err != nil {
		return fmt.Errorf("insert staff token: %w", err)
	}
	return nil
}

// GetStaffTokenByHash возвращает токен персонала по хэшу секрета.
func (r *PostgresRepository) GetStaffTokenByHash(ctx context.Context, hash string) (*model.StaffToken, error) {
	return r.scanStaffToken(r.pool.QueryRow(ctx,
		`SELECT id, label, token_hash, active, expires_at, issued_at FROM staff_tokens WHERE token_hash = $1`,
		hash,
	))
}

// GetStaffTokenByID возвращает токен персонала по идентификатору.
func (r *PostgresRepository) GetStaffTokenByID(ctx context.Context, id uuid.UUID) (*model.StaffToken, error) {
	return r.scanStaffToken(r.pool.QueryRow(ctx,
		`SELECT id, label, token_hash, active, expires_at, issued_at FROM staff_tokens WHERE id = $1`,
		id,
	))
}

func (r *PostgresRepository) scanStaffToken(row pgx.Row) (*model.StaffToken, error) {
	var t model.StaffToken
	err := row.Scan(&t.ID, &t.Label, &t.TokenHash, &t.Active, &t.ExpiresAt, &t.IssuedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrTokenNotFound
		}
		return nil, fmt.Errorf("get staff token: %w", err)
	}
	return &t, nil
}

// SetStaffTokenActive включает или выключает токен персонала.
func (r *PostgresRepository) SetStaffTokenActive(ctx context.Context, id uuid.UUID, active bool) error {
	cmdTag, err := r.pool.Exec(ctx,
		`UPDATE staff_tokens SET active = $2 WHERE id = $1`,
		id, active,
	)
	if err != nil {
		return fmt.Errorf("update staff token: %w", err)
	}
	if cmdTag.RowsAffected() == 0 {
		return ErrTokenNotFound
	}
	return nil
}

// ListStaffTokens возвращает все токены персонала, начиная с последних.
func (r *PostgresRepository) ListStaffTokens(ctx context.Context) ([]model.StaffToken, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT id, label, token_hash, active, expires_at, issued_at FROM staff_tokens ORDER BY issued_at DESC`,
	)
	if err != nil {
		return nil, fmt.Errorf("select staff tokens: %w", err)
	}
	defer rows.Close()

	var res []model.StaffToken
	for rows.Next() {
		var t model.StaffToken
		if err := rows.Scan(&t.ID, &t.Label, &t.TokenHash, &t.Active, &t.ExpiresAt, &t.IssuedAt); err != nil {
			return nil, fmt.Errorf("scan staff token: %w", err)
		}
		res = append(res, t)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows error: %w", err)
	}

	return res, nil
}

// CreateScanRecord сохраняет факт сканирования. Записи неизменяемы.
func (r *PostgresRepository) CreateScanRecord(ctx context.Context, rec *model.ScanRecord) error {
	_, err := r.pool.Exec(ctx,
		`INSERT INTO scan_records (id, member_id, meal, result, scanned_at, staff_token_id, device_info)
		 VALUES ($1, $2, $3, $4, $5, $6, $7)`,
		rec.ID, rec.MemberID, string(rec.Meal), string(rec.Result), rec.ScannedAt, rec.StaffTokenID, rec.DeviceInfo,
	)
	if err != nil {
		return fmt.Errorf("insert scan record: %w", err)
	}
	return nil
}

// CountScansForDate возвращает число сканирований за день, при onlyAllowed — только допусков.
// Границы дня задаются моментом date в часовом поясе столовой; сравнение
// диапазоном не зависит от часового пояса сессии БД.
func (r *PostgresRepository) CountScansForDate(ctx context.Context, date time.Time, onlyAllowed bool) (int64, error) {
	query := `SELECT COUNT(*) FROM scan_records WHERE scanned_at >= $1 AND scanned_at < $2`
	args := []any{date, date.AddDate(0, 0, 1)}
	if onlyAllowed {
		query += ` AND result = $3`
		args = append(args, string(model.ScanAllowed))
	}

	var count int64
	if err := r.pool.QueryRow(ctx, query, args...).Scan(&count); err != nil {
		return 0, fmt.Errorf("count scans: %w", err)
	}
	return count, nil
}
