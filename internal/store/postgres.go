package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rotisserie/eris"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/harbor-legal/docketwatch/internal/db"
	"github.com/harbor-legal/docketwatch/internal/model"
)

// runLockKey is the advisory lock key guarding against overlapping sync
// runs. Overlap would double-spend the daily enrichment quota.
const runLockKey = 774215

// Tables names the three logical tables the engine touches.
type Tables struct {
	Clients string
	Cases   string
	Status  string
}

// DefaultTables returns the standard schema-qualified table names.
func DefaultTables() Tables {
	return Tables{
		Clients: "docket.clients",
		Cases:   "docket.case_records",
		Status:  "docket.sync_status",
	}
}

// Postgres implements Store over a pgx connection pool.
type Postgres struct {
	pool    db.Pool
	tables  Tables
	closeFn func()
}

// PoolConfig holds optional connection pool tuning parameters.
type PoolConfig struct {
	MaxConns int32 `yaml:"max_conns" mapstructure:"max_conns"`
	MinConns int32 `yaml:"min_conns" mapstructure:"min_conns"`
}

// NewPostgres creates a Postgres store with its own connection pool.
func NewPostgres(ctx context.Context, connString string, poolCfg *PoolConfig, tables Tables) (*Postgres, error) {
	pgxCfg, err := pgxpool.ParseConfig(connString)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: parse config")
	}

	maxConns := int32(10)
	minConns := int32(2)
	if poolCfg != nil {
		if poolCfg.MaxConns > 0 {
			maxConns = poolCfg.MaxConns
		}
		if poolCfg.MinConns > 0 {
			minConns = poolCfg.MinConns
		}
	}
	pgxCfg.MaxConns = maxConns
	pgxCfg.MinConns = minConns
	pgxCfg.MaxConnLifetime = 30 * time.Minute
	pgxCfg.MaxConnIdleTime = 5 * time.Minute

	pool, err := pgxpool.NewWithConfig(ctx, pgxCfg)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: create pool")
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, eris.Wrap(err, "postgres: ping")
	}

	return &Postgres{pool: pool, tables: tables, closeFn: pool.Close}, nil
}

// NewPostgresWithPool wraps an existing pool; used by tests with pgxmock.
func NewPostgresWithPool(pool db.Pool, tables Tables) *Postgres {
	return &Postgres{pool: pool, tables: tables, closeFn: func() {}}
}

// Pool returns the underlying pool for subsystems needing direct access
// (migrations).
func (s *Postgres) Pool() db.Pool {
	return s.pool
}

// Close releases the connection pool.
func (s *Postgres) Close() {
	s.closeFn()
}

// caseColumns is the full select list for case records. Money columns are
// cast to text and parsed into decimals on scan.
const caseColumns = `id, ticket_number, client_id, respondent_name,
	status, hearing_date, hearing_time, hearing_result,
	violation, violation_date, violation_location, license_plate,
	base_fine::text, amount_due::text, amount_paid::text, penalty_imposed::text,
	document_link, video_link,
	ocr_status, ocr_failure_count, ocr_failure_reason, ocr_failure_at,
	narrative, ocr_docket_id, ocr_license_plate, last_scan_date,
	api_miss_count, is_archived, archived_at, archived_reason,
	last_metadata_sync, last_change_summary, last_change_at, activity_log,
	notes, internal_status, evidence_photos, evidence_witness, added_to_calendar, invoiced,
	created_at, updated_at`

// ListClients returns the full client roster.
func (s *Postgres) ListClients(ctx context.Context) ([]model.Client, error) {
	rows, err := s.pool.Query(ctx,
		fmt.Sprintf(`SELECT id, name, akas, user_id FROM %s ORDER BY name`, s.tables.Clients),
	)
	if err != nil {
		return nil, eris.Wrap(err, "store: list clients")
	}
	defer rows.Close()

	var clients []model.Client
	for rows.Next() {
		var c model.Client
		if err := rows.Scan(&c.ID, &c.Name, &c.AKAs, &c.UserID); err != nil {
			return nil, eris.Wrap(err, "store: scan client")
		}
		clients = append(clients, c)
	}
	return clients, rows.Err()
}

// GetCaseByTicket looks up a case record by its unique source ticket
// number. Returns (nil, nil) when absent.
func (s *Postgres) GetCaseByTicket(ctx context.Context, ticketNumber string) (*model.CaseRecord, error) {
	row := s.pool.QueryRow(ctx,
		fmt.Sprintf(`SELECT %s FROM %s WHERE ticket_number = $1`, caseColumns, s.tables.Cases),
		ticketNumber,
	)
	rec, err := scanCase(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, eris.Wrapf(err, "store: get case by ticket %s", ticketNumber)
	}
	return rec, nil
}

// InsertCase creates a new case record.
func (s *Postgres) InsertCase(ctx context.Context, rec *model.CaseRecord) error {
	activityJSON, err := json.Marshal(rec.ActivityLog)
	if err != nil {
		return eris.Wrap(err, "store: marshal activity log")
	}

	_, err = s.pool.Exec(ctx,
		fmt.Sprintf(`INSERT INTO %s (
			id, ticket_number, client_id, respondent_name,
			status, hearing_date, hearing_time, hearing_result,
			violation, violation_date, violation_location, license_plate,
			base_fine, amount_due, amount_paid, penalty_imposed,
			document_link, video_link,
			ocr_status, ocr_failure_count, api_miss_count,
			last_metadata_sync, activity_log, created_at, updated_at
		) VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13,$14,$15,$16,$17,$18,$19,$20,$21,$22,$23,$24,$25)`,
			s.tables.Cases),
		rec.ID, rec.TicketNumber, rec.ClientID, rec.RespondentName,
		rec.Status, rec.HearingDate, rec.HearingTime, rec.HearingResult,
		rec.Violation, rec.ViolationDate, rec.ViolationLocation, rec.LicensePlate,
		rec.BaseFine.String(), rec.AmountDue.String(), rec.AmountPaid.String(), rec.PenaltyImposed.String(),
		rec.DocumentLink, rec.VideoLink,
		string(rec.OCRStatus), rec.OCRFailureCount, rec.APIMissCount,
		rec.LastMetadataSync, activityJSON, rec.CreatedAt, rec.UpdatedAt,
	)
	if err != nil {
		return eris.Wrapf(err, "store: insert case %s", rec.TicketNumber)
	}
	return nil
}

// UpdateCase applies a typed partial update to one case record. The
// activity log append is expressed as a jsonb concatenation so entries are
// only ever added.
func (s *Postgres) UpdateCase(ctx context.Context, id string, patch *CasePatch) error {
	if patch.IsEmpty() {
		return nil
	}

	cols, args := patch.assignments()
	set := make([]string, 0, len(cols)+2)
	for i, col := range cols {
		set = append(set, fmt.Sprintf("%s = $%d", col, i+1))
	}

	if len(patch.AppendActivity) > 0 {
		entriesJSON, err := json.Marshal(patch.AppendActivity)
		if err != nil {
			return eris.Wrap(err, "store: marshal activity entries")
		}
		args = append(args, entriesJSON)
		set = append(set, fmt.Sprintf("activity_log = activity_log || $%d::jsonb", len(args)))
	}

	set = append(set, "updated_at = now()")

	args = append(args, id)
	sql := fmt.Sprintf("UPDATE %s SET %s WHERE id = $%d",
		s.tables.Cases, strings.Join(set, ", "), len(args))

	tag, err := s.pool.Exec(ctx, sql, args...)
	if err != nil {
		return eris.Wrapf(err, "store: update case %s", id)
	}
	if tag.RowsAffected() == 0 {
		return eris.Errorf("store: update case %s: no such record", id)
	}
	return nil
}

// ListActiveCases returns every non-archived case record, for the ghost
// detection scan. A full scan is acceptable at the expected scale.
func (s *Postgres) ListActiveCases(ctx context.Context) ([]model.CaseRecord, error) {
	rows, err := s.pool.Query(ctx,
		fmt.Sprintf(`SELECT %s FROM %s WHERE NOT is_archived ORDER BY ticket_number`, caseColumns, s.tables.Cases),
	)
	if err != nil {
		return nil, eris.Wrap(err, "store: list active cases")
	}
	defer rows.Close()
	return collectCases(rows)
}

// ListEnrichmentCandidates returns non-archived records pending enrichment,
// including legacy rows that predate the status field and carry no
// narrative.
func (s *Postgres) ListEnrichmentCandidates(ctx context.Context) ([]model.CaseRecord, error) {
	rows, err := s.pool.Query(ctx,
		fmt.Sprintf(`SELECT %s FROM %s
		 WHERE NOT is_archived
		   AND (ocr_status = 'pending' OR (ocr_status = '' AND narrative = ''))
		 ORDER BY ticket_number`, caseColumns, s.tables.Cases),
	)
	if err != nil {
		return nil, eris.Wrap(err, "store: list enrichment candidates")
	}
	defer rows.Close()
	return collectCases(rows)
}

const statusColumns = `id, ocr_processed_today, ocr_processed_date,
	last_run_at, last_run_success, last_run_error,
	last_metadata_at, last_ghost_scan_at, last_enrichment_at,
	last_run_created, last_run_updated, last_run_archived, last_run_enriched,
	updated_at`

// GetSyncStatus returns the singleton status row, creating it if absent.
func (s *Postgres) GetSyncStatus(ctx context.Context) (*model.SyncStatus, error) {
	if _, err := s.pool.Exec(ctx,
		fmt.Sprintf(`INSERT INTO %s (id) VALUES ($1) ON CONFLICT (id) DO NOTHING`, s.tables.Status),
		model.SyncStatusID,
	); err != nil {
		return nil, eris.Wrap(err, "store: ensure sync status")
	}

	row := s.pool.QueryRow(ctx,
		fmt.Sprintf(`SELECT %s FROM %s WHERE id = $1`, statusColumns, s.tables.Status),
		model.SyncStatusID,
	)

	var st model.SyncStatus
	err := row.Scan(
		&st.ID, &st.OCRProcessedToday, &st.OCRProcessedDate,
		&st.LastRunAt, &st.LastRunSuccess, &st.LastRunError,
		&st.LastMetadataAt, &st.LastGhostScanAt, &st.LastEnrichmentAt,
		&st.LastRunCreated, &st.LastRunUpdated, &st.LastRunArchived, &st.LastRunEnriched,
		&st.UpdatedAt,
	)
	if err != nil {
		return nil, eris.Wrap(err, "store: get sync status")
	}
	return &st, nil
}

// UpdateSyncStatus merge-updates the singleton row. A missing row triggers
// the create fallback and one retry; this is the only write path for status
// fields, so it stays idempotent.
func (s *Postgres) UpdateSyncStatus(ctx context.Context, patch *StatusPatch) error {
	cols, args := patch.assignments()
	if len(cols) == 0 {
		return nil
	}

	set := make([]string, 0, len(cols)+1)
	for i, col := range cols {
		set = append(set, fmt.Sprintf("%s = $%d", col, i+1))
	}
	set = append(set, "updated_at = now()")

	args = append(args, model.SyncStatusID)
	sql := fmt.Sprintf("UPDATE %s SET %s WHERE id = $%d",
		s.tables.Status, strings.Join(set, ", "), len(args))

	tag, err := s.pool.Exec(ctx, sql, args...)
	if err != nil {
		return eris.Wrap(err, "store: update sync status")
	}
	if tag.RowsAffected() > 0 {
		return nil
	}

	// Create fallback: first run on a fresh database.
	if _, err := s.pool.Exec(ctx,
		fmt.Sprintf(`INSERT INTO %s (id) VALUES ($1) ON CONFLICT (id) DO NOTHING`, s.tables.Status),
		model.SyncStatusID,
	); err != nil {
		return eris.Wrap(err, "store: create sync status")
	}
	if _, err := s.pool.Exec(ctx, sql, args...); err != nil {
		return eris.Wrap(err, "store: update sync status after create")
	}
	return nil
}

// TryRunLock attempts to take the session-level advisory lock that keeps
// sync runs single-flight.
func (s *Postgres) TryRunLock(ctx context.Context) (bool, error) {
	var acquired bool
	if err := s.pool.QueryRow(ctx, "SELECT pg_try_advisory_lock($1)", runLockKey).Scan(&acquired); err != nil {
		return false, eris.Wrap(err, "store: acquire run lock")
	}
	return acquired, nil
}

// ReleaseRunLock releases the run advisory lock.
func (s *Postgres) ReleaseRunLock(ctx context.Context) error {
	var released bool
	if err := s.pool.QueryRow(ctx, "SELECT pg_advisory_unlock($1)", runLockKey).Scan(&released); err != nil {
		return eris.Wrap(err, "store: release run lock")
	}
	if !released {
		zap.L().Warn("run lock was not held at release")
	}
	return nil
}

func collectCases(rows pgx.Rows) ([]model.CaseRecord, error) {
	var records []model.CaseRecord
	for rows.Next() {
		rec, err := scanCase(rows)
		if err != nil {
			return nil, eris.Wrap(err, "store: scan case")
		}
		records = append(records, *rec)
	}
	return records, rows.Err()
}

// scanCase reads one case record from a row matching caseColumns.
func scanCase(row pgx.Row) (*model.CaseRecord, error) {
	var rec model.CaseRecord
	var baseFine, amountDue, amountPaid, penalty string
	var ocrStatus string
	var activityJSON []byte

	err := row.Scan(
		&rec.ID, &rec.TicketNumber, &rec.ClientID, &rec.RespondentName,
		&rec.Status, &rec.HearingDate, &rec.HearingTime, &rec.HearingResult,
		&rec.Violation, &rec.ViolationDate, &rec.ViolationLocation, &rec.LicensePlate,
		&baseFine, &amountDue, &amountPaid, &penalty,
		&rec.DocumentLink, &rec.VideoLink,
		&ocrStatus, &rec.OCRFailureCount, &rec.OCRFailureReason, &rec.OCRFailureAt,
		&rec.Narrative, &rec.OCRDocketID, &rec.OCRLicensePlate, &rec.LastScanDate,
		&rec.APIMissCount, &rec.IsArchived, &rec.ArchivedAt, &rec.ArchivedReason,
		&rec.LastMetadataSync, &rec.LastChangeSummary, &rec.LastChangeAt, &activityJSON,
		&rec.Notes, &rec.InternalStatus, &rec.EvidencePhotos, &rec.EvidenceWitness, &rec.AddedToCalendar, &rec.Invoiced,
		&rec.CreatedAt, &rec.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}

	rec.OCRStatus = model.OCRStatus(ocrStatus)
	rec.BaseFine = parseMoney(baseFine)
	rec.AmountDue = parseMoney(amountDue)
	rec.AmountPaid = parseMoney(amountPaid)
	rec.PenaltyImposed = parseMoney(penalty)

	if len(activityJSON) > 0 {
		if err := json.Unmarshal(activityJSON, &rec.ActivityLog); err != nil {
			return nil, eris.Wrapf(err, "store: decode activity log for %s", rec.ID)
		}
	}
	return &rec, nil
}

func parseMoney(s string) decimal.Decimal {
	d, err := decimal.NewFromString(s)
	if err != nil {
		return decimal.Zero
	}
	return d
}
