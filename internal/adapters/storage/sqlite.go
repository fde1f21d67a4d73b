package storage

// sqlite.go: journal de decisiones.
//
//   - `decisions`: una fila por decisión (intent + sizing + resumen de la ruta).
//   - `decision_legs`: una fila por venue de la ruta elegida (1 si es single, N si es split).
//   - Prune al arrancar: decisiones más viejas que la retención.
//
// Solo se guardan decisiones. Los outcomes de trades viven en la ventana en
// memoria del sizing y no se persisten.

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	_ "modernc.org/sqlite"

	"github.com/alejandrodnm/tradecore/internal/domain"
)

const schema = `
CREATE TABLE IF NOT EXISTS decisions (
    id              TEXT PRIMARY KEY,
    decided_at_ms   INTEGER NOT NULL,
    market_id       TEXT    NOT NULL,
    side            TEXT    NOT NULL,
    edge_fraction   REAL    NOT NULL DEFAULT 0,
    win_probability REAL    NOT NULL DEFAULT 0,
    kelly_fraction  REAL    NOT NULL DEFAULT 0,
    position_size   REAL    NOT NULL DEFAULT 0,
    confidence      REAL    NOT NULL DEFAULT 0,
    mode            TEXT    NOT NULL DEFAULT '',
    venues          TEXT    NOT NULL DEFAULT '',
    net_price       REAL    NOT NULL DEFAULT 0,
    estimated_fees  REAL    NOT NULL DEFAULT 0,
    is_split        INTEGER NOT NULL DEFAULT 0,
    recommendation  TEXT    NOT NULL DEFAULT '',
    error           TEXT    NOT NULL DEFAULT ''
);

CREATE TABLE IF NOT EXISTS decision_legs (
    decision_id      TEXT    NOT NULL REFERENCES decisions(id) ON DELETE CASCADE,
    leg              INTEGER NOT NULL,
    platform         TEXT    NOT NULL,
    size             REAL    NOT NULL,
    quoted_price     REAL    NOT NULL,
    net_price        REAL    NOT NULL,
    fees             REAL    NOT NULL,
    slippage_percent REAL    NOT NULL,
    is_maker         INTEGER NOT NULL DEFAULT 0,
    PRIMARY KEY (decision_id, leg)
);

CREATE INDEX IF NOT EXISTS idx_decisions_at     ON decisions(decided_at_ms DESC);
CREATE INDEX IF NOT EXISTS idx_decisions_market ON decisions(market_id);
`

// DefaultRetention es cuánto se conservan las decisiones.
const DefaultRetention = 90 * 24 * time.Hour

// SQLiteJournal implementa ports.DecisionJournal usando SQLite (pure Go, sin CGo).
type SQLiteJournal struct {
	db *sql.DB
}

// NewSQLiteJournal abre (o crea) la base de datos y aplica el schema.
// retention <= 0 desactiva el prune.
func NewSQLiteJournal(path string, retention time.Duration) (*SQLiteJournal, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("storage.NewSQLiteJournal: open %q: %w", path, err)
	}
	db.SetMaxOpenConns(1) // SQLite es single-writer
	db.SetMaxIdleConns(1)

	if _, err := db.Exec(`PRAGMA foreign_keys = ON`); err != nil {
		db.Close()
		return nil, fmt.Errorf("storage.NewSQLiteJournal: enable foreign keys: %w", err)
	}
	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("storage.NewSQLiteJournal: apply schema: %w", err)
	}

	j := &SQLiteJournal{db: db}
	if retention > 0 {
		if _, err := j.Prune(context.Background(), time.Now().Add(-retention)); err != nil {
			db.Close()
			return nil, fmt.Errorf("storage.NewSQLiteJournal: %w", err)
		}
	}
	return j, nil
}

// SaveDecision inserta la decisión y sus legs en una transacción.
func (j *SQLiteJournal) SaveDecision(ctx context.Context, d domain.Decision) error {
	rec := d.Record()

	tx, err := j.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("storage.SaveDecision: begin tx: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, `
		INSERT INTO decisions
			(id, decided_at_ms, market_id, side, edge_fraction, win_probability,
			 kelly_fraction, position_size, confidence, mode, venues, net_price,
			 estimated_fees, is_split, recommendation, error)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		rec.ID,
		rec.DecidedAt.UnixMilli(),
		rec.MarketID,
		string(rec.Side),
		rec.EdgeFraction,
		rec.WinProbability,
		rec.KellyFraction,
		rec.PositionSize,
		rec.Confidence,
		string(rec.Mode),
		joinPlatforms(rec.Venues),
		rec.NetPrice,
		rec.EstimatedFees,
		boolInt(rec.Split),
		rec.Recommendation,
		rec.Error,
	); err != nil {
		return fmt.Errorf("storage.SaveDecision: insert %s: %w", rec.ID, err)
	}

	var legs []domain.RouteCandidate
	if d.OK() {
		legs = routeLegs(d.Routing)
	}
	if len(legs) > 0 {
		stmt, err := tx.PrepareContext(ctx, `
			INSERT INTO decision_legs
				(decision_id, leg, platform, size, quoted_price, net_price, fees, slippage_percent, is_maker)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`)
		if err != nil {
			return fmt.Errorf("storage.SaveDecision: prepare legs: %w", err)
		}
		defer stmt.Close()

		for i, c := range legs {
			if _, err := stmt.ExecContext(ctx,
				rec.ID, i, string(c.Platform), c.Size, c.QuotedPrice,
				c.NetPrice, c.EstimatedFees, c.SlippagePercent, boolInt(c.IsMaker),
			); err != nil {
				return fmt.Errorf("storage.SaveDecision: insert leg %d: %w", i, err)
			}
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("storage.SaveDecision: commit: %w", err)
	}
	return nil
}

// RecentDecisions devuelve las decisiones desde since, más recientes primero.
// limit <= 0 no limita.
func (j *SQLiteJournal) RecentDecisions(ctx context.Context, since time.Time, limit int) ([]domain.DecisionRecord, error) {
	if limit <= 0 {
		limit = -1 // SQLite: LIMIT -1 = sin límite
	}
	rows, err := j.db.QueryContext(ctx, `
		SELECT id, decided_at_ms, market_id, side, edge_fraction, win_probability,
		       kelly_fraction, position_size, confidence, mode, venues, net_price,
		       estimated_fees, is_split, recommendation, error
		FROM decisions
		WHERE decided_at_ms >= ?
		ORDER BY decided_at_ms DESC, id
		LIMIT ?`, since.UnixMilli(), limit)
	if err != nil {
		return nil, fmt.Errorf("storage.RecentDecisions: query: %w", err)
	}
	defer rows.Close()

	var out []domain.DecisionRecord
	for rows.Next() {
		var (
			rec        domain.DecisionRecord
			atMs       int64
			side, mode string
			venues     string
			split      int
		)
		if err := rows.Scan(
			&rec.ID, &atMs, &rec.MarketID, &side, &rec.EdgeFraction, &rec.WinProbability,
			&rec.KellyFraction, &rec.PositionSize, &rec.Confidence, &mode, &venues, &rec.NetPrice,
			&rec.EstimatedFees, &split, &rec.Recommendation, &rec.Error,
		); err != nil {
			return nil, fmt.Errorf("storage.RecentDecisions: scan row: %w", err)
		}
		rec.DecidedAt = time.UnixMilli(atMs).UTC()
		rec.Side = domain.Side(side)
		rec.Mode = domain.RouteMode(mode)
		rec.Venues = splitPlatforms(venues)
		rec.Split = split == 1
		out = append(out, rec)
	}
	return out, rows.Err()
}

// Legs devuelve las piernas persistidas de una decisión, en orden.
func (j *SQLiteJournal) Legs(ctx context.Context, decisionID string) ([]domain.RouteCandidate, error) {
	rows, err := j.db.QueryContext(ctx, `
		SELECT platform, size, quoted_price, net_price, fees, slippage_percent, is_maker
		FROM decision_legs
		WHERE decision_id = ?
		ORDER BY leg`, decisionID)
	if err != nil {
		return nil, fmt.Errorf("storage.Legs: query: %w", err)
	}
	defer rows.Close()

	var out []domain.RouteCandidate
	for rows.Next() {
		var c domain.RouteCandidate
		var platform string
		var maker int
		if err := rows.Scan(&platform, &c.Size, &c.QuotedPrice, &c.NetPrice, &c.EstimatedFees, &c.SlippagePercent, &maker); err != nil {
			return nil, fmt.Errorf("storage.Legs: scan row: %w", err)
		}
		c.Platform = domain.Platform(platform)
		c.IsMaker = maker == 1
		out = append(out, c)
	}
	return out, rows.Err()
}

// Prune borra decisiones anteriores a cutoff. Los legs se borran en cascada.
func (j *SQLiteJournal) Prune(ctx context.Context, cutoff time.Time) (int64, error) {
	res, err := j.db.ExecContext(ctx, `DELETE FROM decisions WHERE decided_at_ms < ?`, cutoff.UnixMilli())
	if err != nil {
		return 0, fmt.Errorf("storage.Prune: %w", err)
	}
	n, _ := res.RowsAffected()
	return n, nil
}

// Close cierra la conexión a la base de datos.
func (j *SQLiteJournal) Close() error {
	return j.db.Close()
}

// --- helpers internos ---

// routeLegs devuelve los candidatos ejecutados por la ruta elegida.
func routeLegs(r domain.RoutingResult) []domain.RouteCandidate {
	switch {
	case r.Split != nil:
		out := make([]domain.RouteCandidate, len(r.Split.Legs))
		for i, l := range r.Split.Legs {
			out[i] = l.Candidate
		}
		return out
	case r.BestRoute != nil:
		return []domain.RouteCandidate{*r.BestRoute}
	}
	return nil
}

func joinPlatforms(ps []domain.Platform) string {
	s := make([]string, len(ps))
	for i, p := range ps {
		s[i] = string(p)
	}
	return strings.Join(s, ",")
}

func splitPlatforms(s string) []domain.Platform {
	if s == "" {
		return nil
	}
	parts := strings.Split(s, ",")
	out := make([]domain.Platform, len(parts))
	for i, p := range parts {
		out[i] = domain.Platform(p)
	}
	return out
}

func boolInt(b bool) int {
	if b {
		return 1
	}
	return 0
}
