package records

import (
	"context"
	"errors"

	"gorm.io/gorm"
)

const (
	columnID     = "id"
	queryID      = columnID + " = ?"
	orderIDAsc   = columnID + " ASC"
	errNoRowsMsg = "record not found"
)

// ErrRecordNotFound indicates the addressed record does not exist.
var ErrRecordNotFound = errors.New(errNoRowsMsg)

// Repository persists one collection. Implementations return records ordered by identifier.
type Repository[R Record] interface {
	List(ctx context.Context) ([]R, error)
	Insert(ctx context.Context, record R) error
	Replace(ctx context.Context, id string, record R) error
	Remove(ctx context.Context, id string) error
}

// GormRepository stores a collection in the record type's SQL table.
type GormRepository[R Record] struct {
	db *gorm.DB
}

// NewGormRepository binds a repository to the provided database handle.
func NewGormRepository[R Record](db *gorm.DB) *GormRepository[R] {
	return &GormRepository[R]{db: db}
}

func (r *GormRepository[R]) List(ctx context.Context) ([]R, error) {
	items := make([]R, 0)
	if err := r.db.WithContext(ctx).Order(orderIDAsc).Find(&items).Error; err != nil {
		return nil, err
	}
	return items, nil
}

func (r *GormRepository[R]) Insert(ctx context.Context, record R) error {
	return r.db.WithContext(ctx).Create(&record).Error
}

func (r *GormRepository[R]) Replace(ctx context.Context, id string, record R) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var existing R
		err := tx.Where(queryID, id).Take(&existing).Error
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return ErrRecordNotFound
		}
		if err != nil {
			return err
		}
		return tx.Save(&record).Error
	})
}

func (r *GormRepository[R]) Remove(ctx context.Context, id string) error {
	var target R
	result := r.db.WithContext(ctx).Where(queryID, id).Delete(&target)
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return ErrRecordNotFound
	}
	return nil
}
