// Package sqlstore implements the Case Store on database/sql. PostgreSQL
// (lib/pq) is the production backend; SQLite (modernc) serves single-node
// deployments and tests.
package sqlstore

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/aretw0/intake/pkg/domain"
	"github.com/google/uuid"
	"github.com/lib/pq"
	_ "modernc.org/sqlite"
)

const (
	DriverPostgres = "postgres"
	DriverSQLite   = "sqlite"
)

const schema = `
CREATE TABLE IF NOT EXISTS users (
	id              TEXT PRIMARY KEY,
	name            TEXT NOT NULL,
	guardian_name   TEXT NOT NULL DEFAULT '',
	date_of_birth   TEXT NOT NULL DEFAULT '',
	phone           TEXT NOT NULL,
	email           TEXT NOT NULL DEFAULT '',
	gender          TEXT NOT NULL DEFAULT '',
	village         TEXT NOT NULL DEFAULT '',
	postal_code     TEXT NOT NULL DEFAULT '',
	area            TEXT NOT NULL DEFAULT '',
	district        TEXT NOT NULL DEFAULT '',
	sub_region      TEXT NOT NULL DEFAULT '',
	police_station  TEXT NOT NULL DEFAULT '',
	identity_number TEXT NOT NULL,
	verified        BOOLEAN NOT NULL DEFAULT FALSE,
	created_at      TIMESTAMP NOT NULL,
	CONSTRAINT users_phone_key UNIQUE (phone),
	CONSTRAINT users_identity_number_key UNIQUE (identity_number)
);

CREATE TABLE IF NOT EXISTS complaints (
	case_id         TEXT PRIMARY KEY,
	user_phone      TEXT NOT NULL,
	identity_number TEXT NOT NULL DEFAULT '',
	description     TEXT NOT NULL,
	category        TEXT NOT NULL,
	fraud_type_key  TEXT NOT NULL,
	evidence        TEXT NOT NULL,
	evidence_count  INTEGER NOT NULL DEFAULT 0,
	impersonation   BOOLEAN NOT NULL DEFAULT FALSE,
	status          TEXT NOT NULL DEFAULT 'Registered',
	created_at      TIMESTAMP NOT NULL,
	updated_at      TIMESTAMP NOT NULL
);

CREATE INDEX IF NOT EXISTS complaints_user_phone ON complaints (user_phone);

CREATE TABLE IF NOT EXISTS frozen_accounts (
	account_number TEXT PRIMARY KEY,
	bank_name      TEXT NOT NULL DEFAULT '',
	holder_phone   TEXT NOT NULL DEFAULT '',
	frozen         BOOLEAN NOT NULL DEFAULT FALSE,
	freeze_state   TEXT NOT NULL DEFAULT '',
	freeze_date    TIMESTAMP NULL,
	reason         TEXT NOT NULL DEFAULT '',
	contact_office TEXT NOT NULL DEFAULT '',
	contact_email  TEXT NOT NULL DEFAULT ''
);

CREATE INDEX IF NOT EXISTS frozen_accounts_holder_phone ON frozen_accounts (holder_phone);
`

// uniqueFields maps unique constraints to the record field they guard.
var uniqueFields = map[string]string{
	"users_phone_key":           "phone",
	"users_identity_number_key": "identityNumber",
	"complaints_pkey":           "caseId",
	"users.phone":               "phone",
	"users.identity_number":     "identityNumber",
	"complaints.case_id":        "caseId",
}

// Store implements ports.CaseStore.
type Store struct {
	db     *sql.DB
	driver string
	clock  func() time.Time
}

// Option configures a Store.
type Option func(*Store)

// WithClock sets the clock used for timestamps.
func WithClock(clock func() time.Time) Option {
	return func(s *Store) {
		if clock != nil {
			s.clock = clock
		}
	}
}

// Open connects to dsn with driver, checks the connection and migrates the
// schema.
func Open(ctx context.Context, driver, dsn string, opts ...Option) (*Store, error) {
	if driver != DriverPostgres && driver != DriverSQLite {
		return nil, fmt.Errorf("unsupported database driver %q", driver)
	}
	db, err := sql.Open(driver, dsn)
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", driver, err)
	}
	if driver == DriverSQLite {
		// an in-memory database lives on a single connection
		db.SetMaxOpenConns(1)
	}
	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("ping %s: %w", driver, err)
	}
	s := New(db, driver, opts...)
	if err := s.Migrate(ctx); err != nil {
		_ = db.Close()
		return nil, err
	}
	return s, nil
}

// New wraps an open database.
func New(db *sql.DB, driver string, opts ...Option) *Store {
	s := &Store{db: db, driver: driver, clock: time.Now}
	for _, opt := range opts {
		if opt != nil {
			opt(s)
		}
	}
	return s
}

// Migrate creates the tables when missing.
func (s *Store) Migrate(ctx context.Context) error {
	if _, err := s.db.ExecContext(ctx, schema); err != nil {
		return fmt.Errorf("migrate: %w", err)
	}
	return nil
}

// Close closes the database.
func (s *Store) Close() error {
	return s.db.Close()
}

// Ping checks the database connection.
func (s *Store) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

// SaveRegistration inserts the user. A reused phone or identity number is
// reported as *domain.DuplicateRecordError.
func (s *Store) SaveRegistration(ctx context.Context, u domain.FinalizedUser) (string, error) {
	if u.ID == "" {
		u.ID = uuid.NewString()
	}
	if u.CreatedAt.IsZero() {
		u.CreatedAt = s.clock()
	}
	_, err := s.db.ExecContext(ctx, s.rebind(`
		INSERT INTO users (id, name, guardian_name, date_of_birth, phone, email, gender, village,
			postal_code, area, district, sub_region, police_station, identity_number, verified, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`),
		u.ID, u.Name, u.GuardianName, u.DateOfBirth, u.Phone, u.Email, u.Gender, u.Village,
		u.PostalCode, u.Area, u.District, u.SubRegion, u.PoliceStation, u.IdentityNumber, u.Verified, u.CreatedAt.UTC(),
	)
	if err != nil {
		if dup := duplicate(err); dup != nil {
			return "", dup
		}
		return "", fmt.Errorf("save registration: %w", err)
	}
	return u.ID, nil
}

// SaveComplaint inserts the complaint with its evidence as JSON.
func (s *Store) SaveComplaint(ctx context.Context, c domain.FinalizedComplaint) (string, error) {
	evidence, err := json.Marshal(c.Evidence)
	if err != nil {
		return "", fmt.Errorf("encode evidence: %w", err)
	}
	if c.CreatedAt.IsZero() {
		c.CreatedAt = s.clock()
	}
	created := c.CreatedAt.UTC()
	_, err = s.db.ExecContext(ctx, s.rebind(`
		INSERT INTO complaints (case_id, user_phone, identity_number, description, category,
			fraud_type_key, evidence, evidence_count, impersonation, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`),
		c.CaseID, c.UserPhone, c.IdentityNumber, c.Description, string(c.Category),
		c.FraudTypeKey, string(evidence), len(c.Evidence), c.Impersonation, created, created,
	)
	if err != nil {
		if dup := duplicate(err); dup != nil {
			return "", dup
		}
		return "", fmt.Errorf("save complaint %s: %w", c.CaseID, err)
	}
	return c.CaseID, nil
}

// FindUserByPhone returns domain.ErrNotFound when no user has phone.
func (s *Store) FindUserByPhone(ctx context.Context, phone string) (domain.FinalizedUser, error) {
	var u domain.FinalizedUser
	err := s.db.QueryRowContext(ctx, s.rebind(`
		SELECT id, name, guardian_name, date_of_birth, phone, email, gender, village, postal_code,
			area, district, sub_region, police_station, identity_number, verified, created_at
		FROM users WHERE phone = ?`), phone).Scan(
		&u.ID, &u.Name, &u.GuardianName, &u.DateOfBirth, &u.Phone, &u.Email, &u.Gender, &u.Village, &u.PostalCode,
		&u.Area, &u.District, &u.SubRegion, &u.PoliceStation, &u.IdentityNumber, &u.Verified, &u.CreatedAt,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return domain.FinalizedUser{}, domain.ErrNotFound
	}
	if err != nil {
		return domain.FinalizedUser{}, fmt.Errorf("find user: %w", err)
	}
	return u, nil
}

// LookupCase returns the status of a complaint, matching the case ID
// case-insensitively.
func (s *Store) LookupCase(ctx context.Context, caseID string) (domain.CaseRecord, error) {
	var (
		rec      domain.CaseRecord
		category string
	)
	err := s.db.QueryRowContext(ctx, s.rebind(`
		SELECT case_id, category, fraud_type_key, status, evidence_count, created_at, updated_at
		FROM complaints WHERE case_id = ?`), strings.ToUpper(strings.TrimSpace(caseID))).Scan(
		&rec.CaseID, &category, &rec.FraudTypeKey, &rec.Status, &rec.Evidence, &rec.CreatedAt, &rec.UpdatedAt,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return domain.CaseRecord{}, domain.ErrNotFound
	}
	if err != nil {
		return domain.CaseRecord{}, fmt.Errorf("lookup case: %w", err)
	}
	rec.Category = domain.Category(category)
	return rec, nil
}

// LookupFrozenAccount matches the account number or the holder phone.
func (s *Store) LookupFrozenAccount(ctx context.Context, query string) (domain.FrozenAccount, error) {
	var (
		a    domain.FrozenAccount
		date sql.NullTime
	)
	err := s.db.QueryRowContext(ctx, s.rebind(`
		SELECT account_number, bank_name, holder_phone, frozen, freeze_state, freeze_date,
			reason, contact_office, contact_email
		FROM frozen_accounts WHERE account_number = ? OR holder_phone = ?
		ORDER BY account_number LIMIT 1`), query, query).Scan(
		&a.AccountNumber, &a.BankName, &a.HolderPhone, &a.Frozen, &a.FreezeState, &date,
		&a.Reason, &a.ContactOffice, &a.ContactEmail,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return domain.FrozenAccount{}, domain.ErrNotFound
	}
	if err != nil {
		return domain.FrozenAccount{}, fmt.Errorf("lookup frozen account: %w", err)
	}
	if date.Valid {
		a.FreezeDate = date.Time
	}
	return a, nil
}

// UpsertFrozenAccount inserts or replaces a freeze record. Freeze records
// are imported from the banks, never written by a dialog.
func (s *Store) UpsertFrozenAccount(ctx context.Context, a domain.FrozenAccount) error {
	var date sql.NullTime
	if !a.FreezeDate.IsZero() {
		date = sql.NullTime{Time: a.FreezeDate.UTC(), Valid: true}
	}
	_, err := s.db.ExecContext(ctx, s.rebind(`
		INSERT INTO frozen_accounts (account_number, bank_name, holder_phone, frozen, freeze_state,
			freeze_date, reason, contact_office, contact_email)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT (account_number) DO UPDATE SET
			bank_name = EXCLUDED.bank_name,
			holder_phone = EXCLUDED.holder_phone,
			frozen = EXCLUDED.frozen,
			freeze_state = EXCLUDED.freeze_state,
			freeze_date = EXCLUDED.freeze_date,
			reason = EXCLUDED.reason,
			contact_office = EXCLUDED.contact_office,
			contact_email = EXCLUDED.contact_email`),
		a.AccountNumber, a.BankName, a.HolderPhone, a.Frozen, a.FreezeState,
		date, a.Reason, a.ContactOffice, a.ContactEmail,
	)
	if err != nil {
		return fmt.Errorf("upsert frozen account: %w", err)
	}
	return nil
}

// rebind rewrites ? placeholders as $n for PostgreSQL.
func (s *Store) rebind(query string) string {
	if s.driver != DriverPostgres {
		return query
	}
	var b strings.Builder
	b.Grow(len(query) + 16)
	n := 0
	for _, r := range query {
		if r == '?' {
			n++
			b.WriteByte('$')
			b.WriteString(strconv.Itoa(n))
			continue
		}
		b.WriteRune(r)
	}
	return b.String()
}

// duplicate maps a unique violation of either backend to the domain error.
func duplicate(err error) *domain.DuplicateRecordError {
	var pqErr *pq.Error
	if errors.As(err, &pqErr) {
		if pqErr.Code != "23505" {
			return nil
		}
		if field, ok := uniqueFields[pqErr.Constraint]; ok {
			return &domain.DuplicateRecordError{Field: field}
		}
		return &domain.DuplicateRecordError{Field: pqErr.Constraint}
	}

	// SQLite: "UNIQUE constraint failed: users.phone"
	msg := err.Error()
	_, cols, ok := strings.Cut(msg, "UNIQUE constraint failed: ")
	if !ok {
		return nil
	}
	fields := strings.FieldsFunc(cols, func(r rune) bool { return r == ',' || r == ' ' })
	if len(fields) == 0 {
		return &domain.DuplicateRecordError{}
	}
	col := fields[0]
	if field, ok := uniqueFields[col]; ok {
		return &domain.DuplicateRecordError{Field: field}
	}
	return &domain.DuplicateRecordError{Field: col}
}
