package entity

import (
	"time"

	"github.com/lib/pq"
)

// SheetRow is one row of a tabbed append-only log. Cells are positional; each tab
// defines its own column layout.
type SheetRow struct {
	ID        uint           `gorm:"primaryKey"`
	Tab       string         `gorm:"not null;uniqueIndex:idx_sheet_rows_tab_row"`
	RowIndex  int            `gorm:"not null;uniqueIndex:idx_sheet_rows_tab_row"`
	Cells     pq.StringArray `gorm:"type:text[];not null"`
	CreatedAt time.Time      `gorm:"autoCreateTime"`
	UpdatedAt time.Time      `gorm:"autoUpdateTime"`
}

func (SheetRow) TableName() string {
	return "sheet_rows"
}
