package storage

// sqlite.go — histórico de rondas.
//
// Estrategia:
//   - `rounds`: una fila por ronda cerrada, con sus warnings.
//   - `clearings`: una fila por compañía y ronda (precio, adjudicado, unsold).
//   - `allocations`: una fila por adjudicación participante/compañía.
// Todo se escribe en una transacción por ronda; GetRounds reconstruye los
// RoundResult completos en orden de ronda.

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	_ "modernc.org/sqlite"

	"github.com/alejandrodnm/marketsim/internal/domain"
)

const schema = `
CREATE TABLE IF NOT EXISTS rounds (
    session_id   TEXT     NOT NULL,
    round        INTEGER  NOT NULL,
    completed_at DATETIME NOT NULL,
    warnings     TEXT     NOT NULL DEFAULT '',
    PRIMARY KEY (session_id, round)
);

CREATE TABLE IF NOT EXISTS clearings (
    session_id     TEXT    NOT NULL,
    round          INTEGER NOT NULL,
    company_id     TEXT    NOT NULL,
    company_name   TEXT    NOT NULL,
    clearing_price REAL    NOT NULL,
    allocated      INTEGER NOT NULL,
    unsold         INTEGER NOT NULL,
    undersold      INTEGER NOT NULL DEFAULT 0,
    PRIMARY KEY (session_id, round, company_id)
);

CREATE TABLE IF NOT EXISTS allocations (
    session_id     TEXT    NOT NULL,
    round          INTEGER NOT NULL,
    company_id     TEXT    NOT NULL,
    participant_id TEXT    NOT NULL,
    shares         INTEGER NOT NULL,
    cost           REAL    NOT NULL,
    PRIMARY KEY (session_id, round, company_id, participant_id)
);

CREATE INDEX IF NOT EXISTS idx_rounds_session ON rounds(session_id, round);
CREATE INDEX IF NOT EXISTS idx_alloc_session  ON allocations(session_id, round);
`

// warningSep separa warnings dentro de la columna de texto. Los warnings son
// frases de diagnóstico de una línea; nunca contienen saltos de línea.
const warningSep = "\n"

// SQLiteHistory implementa ports.History usando SQLite (pure Go, sin CGo).
type SQLiteHistory struct {
	db *sql.DB
}

// NewSQLiteHistory abre (o crea) la base de datos en la ruta dada y aplica
// el schema. Para tests se puede usar ":memory:".
func NewSQLiteHistory(path string) (*SQLiteHistory, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("storage.NewSQLiteHistory: open %q: %w", path, err)
	}
	db.SetMaxOpenConns(1) // SQLite es single-writer
	db.SetMaxIdleConns(1)

	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("storage.NewSQLiteHistory: apply schema: %w", err)
	}
	return &SQLiteHistory{db: db}, nil
}

// SaveRound persiste una ronda completa en una transacción.
func (s *SQLiteHistory) SaveRound(ctx context.Context, result domain.RoundResult) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("storage.SaveRound: begin tx: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx,
		`INSERT INTO rounds (session_id, round, completed_at, warnings) VALUES (?, ?, ?, ?)`,
		result.SessionID, result.Round, result.CompletedAt.UTC().Format(time.RFC3339Nano),
		strings.Join(result.Warnings, warningSep),
	); err != nil {
		return fmt.Errorf("storage.SaveRound: insert round %d: %w", result.Round, err)
	}

	for _, cr := range result.Companies {
		undersold := 0
		if cr.Undersold {
			undersold = 1
		}
		if _, err := tx.ExecContext(ctx, `
			INSERT INTO clearings
				(session_id, round, company_id, company_name, clearing_price, allocated, unsold, undersold)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
			result.SessionID, result.Round, cr.CompanyID, cr.CompanyName,
			cr.ClearingPrice, cr.TotalAllocated, cr.Unsold, undersold,
		); err != nil {
			return fmt.Errorf("storage.SaveRound: insert clearing %s: %w", cr.CompanyID, err)
		}

		for _, a := range cr.Allocations {
			if _, err := tx.ExecContext(ctx, `
				INSERT INTO allocations
					(session_id, round, company_id, participant_id, shares, cost)
				VALUES (?, ?, ?, ?, ?, ?)`,
				result.SessionID, result.Round, cr.CompanyID, a.ParticipantID, a.Shares, a.Cost,
			); err != nil {
				return fmt.Errorf("storage.SaveRound: insert allocation %s/%s: %w",
					cr.CompanyID, a.ParticipantID, err)
			}
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("storage.SaveRound: commit: %w", err)
	}
	return nil
}

// GetRounds devuelve las rondas de una sesión, reconstruidas por completo y
// ordenadas por número de ronda.
func (s *SQLiteHistory) GetRounds(ctx context.Context, sessionID string) ([]domain.RoundResult, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT round, completed_at, warnings
		FROM rounds WHERE session_id = ? ORDER BY round`, sessionID)
	if err != nil {
		return nil, fmt.Errorf("storage.GetRounds: query rounds: %w", err)
	}
	defer rows.Close()

	var results []domain.RoundResult
	for rows.Next() {
		r := domain.RoundResult{SessionID: sessionID}
		var completedAt, warnings string
		if err := rows.Scan(&r.Round, &completedAt, &warnings); err != nil {
			return nil, fmt.Errorf("storage.GetRounds: scan round: %w", err)
		}
		r.CompletedAt, _ = time.Parse(time.RFC3339Nano, completedAt)
		if warnings != "" {
			r.Warnings = strings.Split(warnings, warningSep)
		}
		results = append(results, r)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("storage.GetRounds: rounds: %w", err)
	}

	for i := range results {
		companies, err := s.loadClearings(ctx, sessionID, results[i].Round)
		if err != nil {
			return nil, err
		}
		results[i].Companies = companies
	}
	return results, nil
}

// Close cierra la conexión a la base de datos.
func (s *SQLiteHistory) Close() error {
	return s.db.Close()
}

// loadClearings carga los resultados por compañía de una ronda, con sus
// adjudicaciones anidadas.
func (s *SQLiteHistory) loadClearings(ctx context.Context, sessionID string, round int) ([]domain.CompanyResult, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT company_id, company_name, clearing_price, allocated, unsold, undersold
		FROM clearings WHERE session_id = ? AND round = ? ORDER BY company_id`,
		sessionID, round)
	if err != nil {
		return nil, fmt.Errorf("storage.GetRounds: query clearings: %w", err)
	}
	defer rows.Close()

	var companies []domain.CompanyResult
	for rows.Next() {
		var cr domain.CompanyResult
		var undersold int
		if err := rows.Scan(&cr.CompanyID, &cr.CompanyName, &cr.ClearingPrice,
			&cr.TotalAllocated, &cr.Unsold, &undersold); err != nil {
			return nil, fmt.Errorf("storage.GetRounds: scan clearing: %w", err)
		}
		cr.Undersold = undersold == 1
		companies = append(companies, cr)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("storage.GetRounds: clearings: %w", err)
	}

	for i := range companies {
		allocs, err := s.loadAllocations(ctx, sessionID, round, companies[i].CompanyID)
		if err != nil {
			return nil, err
		}
		companies[i].Allocations = allocs
	}
	return companies, nil
}

func (s *SQLiteHistory) loadAllocations(ctx context.Context, sessionID string, round int, companyID string) ([]domain.Allocation, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT participant_id, shares, cost
		FROM allocations
		WHERE session_id = ? AND round = ? AND company_id = ?
		ORDER BY cost DESC, participant_id`,
		sessionID, round, companyID)
	if err != nil {
		return nil, fmt.Errorf("storage.GetRounds: query allocations: %w", err)
	}
	defer rows.Close()

	var allocs []domain.Allocation
	for rows.Next() {
		var a domain.Allocation
		if err := rows.Scan(&a.ParticipantID, &a.Shares, &a.Cost); err != nil {
			return nil, fmt.Errorf("storage.GetRounds: scan allocation: %w", err)
		}
		allocs = append(allocs, a)
	}
	return allocs, rows.Err()
}
