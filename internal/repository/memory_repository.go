package repository

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"golang-news-slate/internal/entity"

	"gorm.io/gorm"
)

// NewMemorySheetRepository returns a process-local SheetRepository, used when the service
// runs without a database (database.driver: memory).
func NewMemorySheetRepository() SheetRepository {
	return &memorySheetRepository{tabs: map[string][][]string{}}
}

type memorySheetRepository struct {
	mu   sync.RWMutex
	tabs map[string][][]string
}

func (r *memorySheetRepository) AppendRows(_ context.Context, tab string, rows [][]string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, row := range rows {
		r.tabs[tab] = append(r.tabs[tab], append([]string(nil), row...))
	}
	return nil
}

func (r *memorySheetRepository) ReadRows(_ context.Context, tab string) ([][]string, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([][]string, len(r.tabs[tab]))
	for i, row := range r.tabs[tab] {
		out[i] = append([]string(nil), row...)
	}
	return out, nil
}

func (r *memorySheetRepository) FindRow(_ context.Context, tab string, column int, value string) (int, []string, bool, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	for i, row := range r.tabs[tab] {
		if column < len(row) && row[column] == value {
			return i, append([]string(nil), row...), true, nil
		}
	}
	return 0, nil, false, nil
}

func (r *memorySheetRepository) UpdateRange(_ context.Context, tab string, rowIndex, startColumn int, values []string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	rows := r.tabs[tab]
	if rowIndex < 0 || rowIndex >= len(rows) {
		return fmt.Errorf("failed to load row %d of %s: %w", rowIndex, tab, gorm.ErrRecordNotFound)
	}
	rows[rowIndex] = writeRange(rows[rowIndex], startColumn, values)
	return nil
}

// NewMemoryTriggerExecutionRepository returns a process-local history store.
func NewMemoryTriggerExecutionRepository() TriggerExecutionRepository {
	return &memoryTriggerExecutionRepository{}
}

type memoryTriggerExecutionRepository struct {
	mu    sync.RWMutex
	items []entity.TriggerExecution
}

func (r *memoryTriggerExecutionRepository) Create(_ context.Context, execution *entity.TriggerExecution) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	execution.ID = uint(len(r.items) + 1)
	r.items = append(r.items, *execution)
	return nil
}

func (r *memoryTriggerExecutionRepository) Update(_ context.Context, execution *entity.TriggerExecution) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if execution.ID == 0 || int(execution.ID) > len(r.items) {
		return gorm.ErrRecordNotFound
	}
	r.items[execution.ID-1] = *execution
	return nil
}

func (r *memoryTriggerExecutionRepository) FindByID(_ context.Context, id uint) (*entity.TriggerExecution, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	if id == 0 || int(id) > len(r.items) {
		return nil, gorm.ErrRecordNotFound
	}
	item := r.items[id-1]
	return &item, nil
}

func (r *memoryTriggerExecutionRepository) FindRecent(_ context.Context, stage entity.Stage, limit int) ([]entity.TriggerExecution, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	var out []entity.TriggerExecution
	for _, item := range r.items {
		if stage == "" || item.Stage == stage {
			out = append(out, item)
		}
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].StartedAt.After(out[j].StartedAt) })
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}
