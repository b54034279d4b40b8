package store

import (
	"database/sql"
	"fmt"
	"time"
)

// Diary is a free-text care diary entry, optionally linked to a plant.
type Diary struct {
	ID           int64
	UserID       int64
	PlantID      *int64
	Title        string
	Content      string
	ActivityType string
	Weather      string
	DiaryDate    string // "2006-01-02"
	CreatedAt    int64
	UpdatedAt    int64
}

// DiaryInput holds the writable diary fields.
type DiaryInput struct {
	PlantID      *int64
	Title        string
	Content      string
	ActivityType string
	Weather      string
	DiaryDate    string
}

// CreateDiary inserts a diary entry for the user. An empty diary date
// defaults to today.
func (db *DB) CreateDiary(userID int64, in DiaryInput) (*Diary, error) {
	date := in.DiaryDate
	if parseDate(date) == nil {
		date = time.Now().Format(dateLayout)
	}

	now := time.Now().UnixMilli()
	result, err := db.Exec(`
		INSERT INTO diaries (user_id, plant_id, title, content, activity_type, weather, diary_date, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
	`, userID, in.PlantID, in.Title, in.Content, in.ActivityType, in.Weather, date, now, now)
	if err != nil {
		return nil, fmt.Errorf("insert diary: %w", err)
	}

	id, _ := result.LastInsertId()
	return &Diary{
		ID:           id,
		UserID:       userID,
		PlantID:      in.PlantID,
		Title:        in.Title,
		Content:      in.Content,
		ActivityType: in.ActivityType,
		Weather:      in.Weather,
		DiaryDate:    date,
		CreatedAt:    now,
		UpdatedAt:    now,
	}, nil
}

const diaryColumns = `
	SELECT id, user_id, plant_id, COALESCE(title, ''), content,
	       COALESCE(activity_type, ''), COALESCE(weather, ''), diary_date, created_at, updated_at
	FROM diaries`

func scanDiary(scan func(...any) error) (*Diary, error) {
	var d Diary
	var plantID sql.NullInt64
	err := scan(&d.ID, &d.UserID, &plantID, &d.Title, &d.Content,
		&d.ActivityType, &d.Weather, &d.DiaryDate, &d.CreatedAt, &d.UpdatedAt)
	if err != nil {
		return nil, err
	}
	if plantID.Valid {
		d.PlantID = &plantID.Int64
	}
	return &d, nil
}

// ListDiaries returns the user's non-deleted diary entries, newest date first.
func (db *DB) ListDiaries(userID int64) ([]Diary, error) {
	rows, err := db.Query(diaryColumns+` WHERE user_id = ? AND is_deleted = 0
		ORDER BY diary_date DESC, created_at DESC`, userID)
	if err != nil {
		return nil, fmt.Errorf("list diaries: %w", err)
	}
	defer rows.Close()

	var entries []Diary
	for rows.Next() {
		d, err := scanDiary(rows.Scan)
		if err != nil {
			return nil, fmt.Errorf("scan diary: %w", err)
		}
		entries = append(entries, *d)
	}
	return entries, rows.Err()
}

// GetDiary returns a diary entry by id if owned by the user, else nil.
func (db *DB) GetDiary(userID, diaryID int64) (*Diary, error) {
	row := db.QueryRow(diaryColumns+" WHERE id = ? AND user_id = ? AND is_deleted = 0", diaryID, userID)
	d, err := scanDiary(row.Scan)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get diary: %w", err)
	}
	return d, nil
}

// UpdateDiary overwrites an owned diary entry.
// Returns false if the entry does not exist or is not owned by the user.
func (db *DB) UpdateDiary(userID, diaryID int64, in DiaryInput) (bool, error) {
	date := in.DiaryDate
	if parseDate(date) == nil {
		date = time.Now().Format(dateLayout)
	}

	result, err := db.Exec(`
		UPDATE diaries
		SET plant_id = ?, title = ?, content = ?, activity_type = ?, weather = ?, diary_date = ?, updated_at = ?
		WHERE id = ? AND user_id = ? AND is_deleted = 0
	`, in.PlantID, in.Title, in.Content, in.ActivityType, in.Weather, date,
		time.Now().UnixMilli(), diaryID, userID)
	if err != nil {
		return false, fmt.Errorf("update diary: %w", err)
	}
	n, _ := result.RowsAffected()
	return n > 0, nil
}

// DeleteDiary soft-deletes an owned diary entry.
func (db *DB) DeleteDiary(userID, diaryID int64) (bool, error) {
	result, err := db.Exec(`
		UPDATE diaries SET is_deleted = 1, updated_at = ?
		WHERE id = ? AND user_id = ? AND is_deleted = 0
	`, time.Now().UnixMilli(), diaryID, userID)
	if err != nil {
		return false, fmt.Errorf("delete diary: %w", err)
	}
	n, _ := result.RowsAffected()
	return n > 0, nil
}
