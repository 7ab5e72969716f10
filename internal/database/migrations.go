package database

import (
	"errors"
	"time"

	"github.com/MarcoPoloResearchLab/schoolboard/internal/records"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

const (
	migrationCanonicalBirthDates = "2026-10-01_canonical_student_birth_dates"
	storedBirthDateSuffix        = "T00:00:00.000Z"
	plainDateLength              = len("2006-01-02")
)

type migrationRecord struct {
	Name             string `gorm:"column:name;primaryKey;size:190;not null"`
	AppliedAtSeconds int64  `gorm:"column:applied_at_s;not null"`
}

func (migrationRecord) TableName() string {
	return "db_migrations"
}

type migrationDefinition struct {
	name  string
	apply func(*gorm.DB) error
}

func applyMigrations(db *gorm.DB, logger *zap.Logger) error {
	migrations := []migrationDefinition{
		{name: migrationCanonicalBirthDates, apply: canonicalizeBirthDates},
	}

	for _, migration := range migrations {
		var record migrationRecord
		err := db.Where("name = ?", migration.name).Take(&record).Error
		if err == nil {
			continue
		}
		if !errors.Is(err, gorm.ErrRecordNotFound) {
			return err
		}
		if err := migration.apply(db); err != nil {
			return err
		}
		appliedAt := time.Now().UTC().Unix()
		if err := db.Create(&migrationRecord{Name: migration.name, AppliedAtSeconds: appliedAt}).Error; err != nil {
			return err
		}
		if logger != nil {
			logger.Info("database migration applied", zap.String("migration", migration.name))
		}
	}
	return nil
}

// canonicalizeBirthDates rewrites plain YYYY-MM-DD birth dates into the stored timestamp form.
func canonicalizeBirthDates(db *gorm.DB) error {
	return db.Model(&records.Student{}).
		Where("length(birth_date) = ?", plainDateLength).
		Update("birth_date", gorm.Expr("birth_date || ?", storedBirthDateSuffix)).Error
}
