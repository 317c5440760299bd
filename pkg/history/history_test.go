package history

import (
	"path/filepath"
	"testing"
)

func openTestDB(t *testing.T) *DB {
	t.Helper()
	db, err := Open(filepath.Join(t.TempDir(), "history.db"))
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	t.Cleanup(func() { db.Close() })
	return db
}

func testRecords() []PostRecord {
	return []PostRecord{
		{AccountID: "acc_personal", ExternalID: "tx_1", Date: "2025-01-10", Amount: "-5.5", AssetID: 10, Classification: "ordinary"},
		{AccountID: "acc_personal", ExternalID: "tx_pot", Date: "2025-01-10", Amount: "-20", AssetID: 10, Classification: "pot_transfer"},
		{AccountID: "acc_personal", ExternalID: "tx_pot:mirror_savings", Date: "2025-01-10", Amount: "20", AssetID: 30, Classification: "pot_transfer"},
		{AccountID: "acc_joint", ExternalID: "tx_2", Date: "2025-01-11", Amount: "-8", AssetID: 20, Classification: "ordinary"},
	}
}

func TestRecordPostedAndStats(t *testing.T) {
	db := openTestDB(t)

	if err := db.RecordPosted(testRecords()); err != nil {
		t.Fatalf("RecordPosted: %v", err)
	}

	stats, err := db.GetStats()
	if err != nil {
		t.Fatalf("GetStats: %v", err)
	}
	if stats.TotalPosted != 4 {
		t.Errorf("TotalPosted = %d, expected 4", stats.TotalPosted)
	}
	if stats.ByAccount["acc_personal"] != 3 || stats.ByAccount["acc_joint"] != 1 {
		t.Errorf("ByAccount = %v", stats.ByAccount)
	}
	if stats.ByClass["ordinary"] != 2 || stats.ByClass["pot_transfer"] != 2 {
		t.Errorf("ByClass = %v", stats.ByClass)
	}
	if !stats.LastPostedAt.Valid {
		t.Error("LastPostedAt not set")
	}
}

func TestRecordPostedUpsertsOnExternalID(t *testing.T) {
	db := openTestDB(t)

	if err := db.RecordPosted(testRecords()); err != nil {
		t.Fatalf("RecordPosted: %v", err)
	}
	// Re-recording the same batch must not duplicate rows.
	if err := db.RecordPosted(testRecords()); err != nil {
		t.Fatalf("RecordPosted rerun: %v", err)
	}

	stats, err := db.GetStats()
	if err != nil {
		t.Fatalf("GetStats: %v", err)
	}
	if stats.TotalPosted != 4 {
		t.Errorf("TotalPosted = %d after rerun, expected 4", stats.TotalPosted)
	}
}

func TestRecordPostedEmptyBatch(t *testing.T) {
	db := openTestDB(t)
	if err := db.RecordPosted(nil); err != nil {
		t.Errorf("RecordPosted(nil) = %v", err)
	}
}

func TestStatsOnEmptyDatabase(t *testing.T) {
	db := openTestDB(t)
	stats, err := db.GetStats()
	if err != nil {
		t.Fatalf("GetStats: %v", err)
	}
	if stats.TotalPosted != 0 {
		t.Errorf("TotalPosted = %d", stats.TotalPosted)
	}
	if stats.LastPostedAt.Valid {
		t.Errorf("LastPostedAt = %v on empty database", stats.LastPostedAt)
	}
}
