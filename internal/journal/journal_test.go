package journal

import (
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/glebarez/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/distsim/transformsync/pkg/core"
)

func testDB(t *testing.T) *gorm.DB {
	t.Helper()
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	if err := db.AutoMigrate(Models...); err != nil {
		t.Fatalf("migrate: %v", err)
	}
	return db
}

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func sampleSnap() core.TransformSnapshot {
	return core.TransformSnapshot{
		Position: core.Vector3{X: 1, Y: 2, Z: 3},
		Rotation: core.Identity(),
		Scale:    core.One(),
	}
}

func TestRecordAndFlush(t *testing.T) {
	db := testDB(t)
	s := NewService(db, DefaultFlushInterval, testLogger())

	s.Record(4, 1.5, sampleSnap(), []byte{0xAA, 0xBB})
	s.Record(4, 2.0, sampleSnap(), []byte{0xCC})
	if s.Pending() != 2 {
		t.Fatalf("pending = %d, want 2", s.Pending())
	}

	s.Flush()

	if s.Pending() != 0 {
		t.Fatalf("pending after flush = %d, want 0", s.Pending())
	}
	var count int64
	db.Model(&AppliedSnapshot{}).Count(&count)
	if count != 2 {
		t.Fatalf("stored rows = %d, want 2", count)
	}

	var first AppliedSnapshot
	if err := db.Order("timestamp asc").First(&first).Error; err != nil {
		t.Fatal(err)
	}
	if first.ObjectID != 4 || first.Timestamp != 1.5 {
		t.Fatalf("stored record = %+v", first)
	}
	if len(first.Raw) != 2 || first.Raw[0] != 0xAA {
		t.Fatalf("raw bytes = %v", first.Raw)
	}
}

func TestFlushEmptyIsNoop(t *testing.T) {
	s := NewService(testDB(t), DefaultFlushInterval, testLogger())
	s.Flush()
	if s.Pending() != 0 {
		t.Fatal("pending should stay 0")
	}
}

func TestStartStopIdempotent(t *testing.T) {
	db := testDB(t)
	s := NewService(db, 10*time.Millisecond, testLogger())

	s.Start()
	s.Start()
	if !s.IsRunning() {
		t.Fatal("service should be running")
	}

	s.Record(1, 0.5, sampleSnap(), nil)
	s.Stop()
	s.Stop()

	if s.IsRunning() {
		t.Fatal("service should not be running after Stop")
	}
}

func TestStopFlushesBeforeReturning(t *testing.T) {
	db := testDB(t)
	// Long interval so only the final flush can write the record.
	s := NewService(db, time.Hour, testLogger())

	s.Start()
	s.Record(7, 0.25, sampleSnap(), []byte{0x01})
	s.Stop()

	var count int64
	db.Model(&AppliedSnapshot{}).Count(&count)
	if count != 1 {
		t.Fatalf("rows after Stop = %d, want 1", count)
	}
	if s.Pending() != 0 {
		t.Fatalf("pending after Stop = %d, want 0", s.Pending())
	}
}

func TestRecordCopiesRawBuffer(t *testing.T) {
	db := testDB(t)
	s := NewService(db, DefaultFlushInterval, testLogger())

	raw := []byte{1, 2, 3}
	s.Record(9, 1.0, sampleSnap(), raw)
	raw[0] = 99 // caller reuses its buffer

	s.Flush()

	var rec AppliedSnapshot
	if err := db.First(&rec).Error; err != nil {
		t.Fatal(err)
	}
	if rec.Raw[0] != 1 {
		t.Fatalf("journal saw caller mutation: %v", rec.Raw)
	}
}
