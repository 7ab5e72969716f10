package records

import (
	"path/filepath"
	"strconv"
	"testing"

	sqlite "github.com/glebarez/sqlite"
	"gorm.io/gorm"
)

type sequentialIDs struct {
	next int
}

func (p *sequentialIDs) NewID() (string, error) {
	p.next++
	return "id-" + strconv.Itoa(p.next), nil
}

func openTestDatabase(t *testing.T) *gorm.DB {
	t.Helper()
	db, err := gorm.Open(sqlite.Open(filepath.Join(t.TempDir(), "records.db")), &gorm.Config{})
	if err != nil {
		t.Fatalf("failed to open sqlite: %v", err)
	}
	if err := db.AutoMigrate(&Student{}, &Notice{}, &Announcement{}); err != nil {
		t.Fatalf("failed to migrate: %v", err)
	}
	return db
}

func newStudentService(t *testing.T, db *gorm.DB) *Service[Student, *Student] {
	t.Helper()
	service, err := NewService[Student, *Student](ServiceConfig[Student]{
		Kind:       KindStudent,
		Repository: NewGormRepository[Student](db),
		IDProvider: &sequentialIDs{},
	})
	if err != nil {
		t.Fatalf("unexpected service error: %v", err)
	}
	return service
}
