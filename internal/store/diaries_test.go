package store

import (
	"testing"
)

func TestDiaryCRUD(t *testing.T) {
	db := testDB(t)
	u := testUser(t, db)

	p, err := db.CreatePlant(u.ID, PlantInput{Nickname: "Pothos", Species: "Epipremnum", WaterCycle: 7})
	if err != nil {
		t.Fatalf("CreatePlant: %v", err)
	}

	entry, err := db.CreateDiary(u.ID, DiaryInput{
		PlantID:      &p.ID,
		Title:        "New leaf",
		Content:      "A new leaf unfurled today.",
		ActivityType: "watering",
		Weather:      "sunny",
		DiaryDate:    "2025-06-01",
	})
	if err != nil {
		t.Fatalf("CreateDiary: %v", err)
	}
	if entry.PlantID == nil || *entry.PlantID != p.ID {
		t.Errorf("plant link = %v, want %d", entry.PlantID, p.ID)
	}

	entries, err := db.ListDiaries(u.ID)
	if err != nil {
		t.Fatalf("ListDiaries: %v", err)
	}
	if len(entries) != 1 {
		t.Fatalf("listed %d entries, want 1", len(entries))
	}
	if entries[0].DiaryDate != "2025-06-01" {
		t.Errorf("diary date = %q", entries[0].DiaryDate)
	}

	ok, err := db.UpdateDiary(u.ID, entry.ID, DiaryInput{
		Content:   "Two new leaves, actually.",
		DiaryDate: "2025-06-01",
	})
	if err != nil || !ok {
		t.Fatalf("UpdateDiary: ok=%v err=%v", ok, err)
	}

	got, err := db.GetDiary(u.ID, entry.ID)
	if err != nil {
		t.Fatalf("GetDiary: %v", err)
	}
	if got.Content != "Two new leaves, actually." {
		t.Errorf("content = %q", got.Content)
	}
	if got.PlantID != nil {
		t.Errorf("update cleared plant link as requested, got %v", got.PlantID)
	}

	ok, err = db.DeleteDiary(u.ID, entry.ID)
	if err != nil || !ok {
		t.Fatalf("DeleteDiary: ok=%v err=%v", ok, err)
	}
	if got, _ := db.GetDiary(u.ID, entry.ID); got != nil {
		t.Error("soft-deleted diary still visible")
	}
}

func TestDiaryDateDefaultsToToday(t *testing.T) {
	db := testDB(t)
	u := testUser(t, db)

	entry, err := db.CreateDiary(u.ID, DiaryInput{Content: "repotted the aloe"})
	if err != nil {
		t.Fatalf("CreateDiary: %v", err)
	}
	if parseDate(entry.DiaryDate) == nil {
		t.Errorf("diary date = %q, want a valid default", entry.DiaryDate)
	}
}

func TestDiaryOwnershipEnforced(t *testing.T) {
	db := testDB(t)
	owner := testUser(t, db)
	other, err := db.CreateUser("mei", "mei@example.com", "pw")
	if err != nil {
		t.Fatalf("CreateUser: %v", err)
	}

	entry, err := db.CreateDiary(owner.ID, DiaryInput{Content: "private notes"})
	if err != nil {
		t.Fatalf("CreateDiary: %v", err)
	}

	if got, _ := db.GetDiary(other.ID, entry.ID); got != nil {
		t.Error("diary visible to non-owner")
	}
	if ok, _ := db.DeleteDiary(other.ID, entry.ID); ok {
		t.Error("non-owner deleted diary")
	}
}
