package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"golang-news-slate/internal/entity"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/lib/pq"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// NewSheetRepository creates a Postgres-backed SheetRepository.
func NewSheetRepository(db *gorm.DB) SheetRepository {
	return &sheetRepository{db: db}
}

type sheetRepository struct {
	db *gorm.DB
}

// isMissingTable reports SQLSTATE 42P01 (undefined_table).
func isMissingTable(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == "42P01"
}

// AppendRows appends rows after the last row of tab. Appends to the same tab are
// serialized with a transaction-scoped advisory lock.
func (r *sheetRepository) AppendRows(ctx context.Context, tab string, rows [][]string) error {
	if len(rows) == 0 {
		return nil
	}
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Exec("SELECT pg_advisory_xact_lock(hashtext(?))", tab).Error; err != nil {
			return fmt.Errorf("failed to lock tab %s: %w", tab, err)
		}

		var last sql.NullInt64
		if err := tx.Model(&entity.SheetRow{}).
			Where("tab = ?", tab).
			Select("MAX(row_index)").
			Scan(&last).Error; err != nil {
			return fmt.Errorf("failed to find last row of %s: %w", tab, err)
		}
		next := 0
		if last.Valid {
			next = int(last.Int64) + 1
		}

		records := make([]entity.SheetRow, len(rows))
		for i, cells := range rows {
			records[i] = entity.SheetRow{Tab: tab, RowIndex: next + i, Cells: cells}
		}
		if err := tx.Create(&records).Error; err != nil {
			return fmt.Errorf("failed to append rows to %s: %w", tab, err)
		}
		return nil
	})
}

// ReadRows returns every row of tab in order. A missing table or tab yields no rows.
func (r *sheetRepository) ReadRows(ctx context.Context, tab string) ([][]string, error) {
	var records []entity.SheetRow
	err := r.db.WithContext(ctx).
		Where("tab = ?", tab).
		Order("row_index ASC").
		Find(&records).Error
	if err != nil {
		if isMissingTable(err) {
			return [][]string{}, nil
		}
		return nil, fmt.Errorf("failed to read rows of %s: %w", tab, err)
	}

	rows := make([][]string, len(records))
	for i, rec := range records {
		rows[i] = []string(rec.Cells)
	}
	return rows, nil
}

func (r *sheetRepository) FindRow(ctx context.Context, tab string, column int, value string) (int, []string, bool, error) {
	var rec entity.SheetRow
	// Postgres arrays are 1-based
	err := r.db.WithContext(ctx).
		Where("tab = ? AND cells[?] = ?", tab, column+1, value).
		Order("row_index ASC").
		First(&rec).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) || isMissingTable(err) {
			return 0, nil, false, nil
		}
		return 0, nil, false, fmt.Errorf("failed to find row in %s: %w", tab, err)
	}
	return rec.RowIndex, []string(rec.Cells), true, nil
}

func (r *sheetRepository) UpdateRange(ctx context.Context, tab string, rowIndex, startColumn int, values []string) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var rec entity.SheetRow
		err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).
			Where("tab = ? AND row_index = ?", tab, rowIndex).
			First(&rec).Error
		if err != nil {
			return fmt.Errorf("failed to load row %d of %s: %w", rowIndex, tab, err)
		}

		rec.Cells = pqCells(writeRange(rec.Cells, startColumn, values))
		if err := tx.Model(&rec).Update("cells", rec.Cells).Error; err != nil {
			return fmt.Errorf("failed to update row %d of %s: %w", rowIndex, tab, err)
		}
		return nil
	})
}

// writeRange copies values into cells at start, padding with empty cells.
func writeRange(cells []string, start int, values []string) []string {
	need := start + len(values)
	out := make([]string, max(len(cells), need))
	copy(out, cells)
	copy(out[start:], values)
	return out
}

func pqCells(cells []string) pq.StringArray {
	return pq.StringArray(cells)
}
