package store

import (
	"database/sql"
	"fmt"
	"time"

	"github.com/floramind/floramind/internal/reminder"
)

// dateLayout is the canonical on-disk form for care dates.
const dateLayout = "2006-01-02"

// Plant is a per-user plant record with its care cycle configuration.
type Plant struct {
	ID             int64
	UserID         int64
	Nickname       string
	Species        string
	Icon           string
	WaterCycle     int
	FertilizeCycle int
	LastWatered    *time.Time
	LastFertilized *time.Time
	CreatedAt      int64
	UpdatedAt      int64
}

// PlantInput holds the writable plant fields. Dates arrive as "2006-01-02"
// strings from the API; anything unparsable is stored as absent.
type PlantInput struct {
	Nickname       string
	Species        string
	Icon           string
	WaterCycle     int
	FertilizeCycle int
	LastWatered    string
	LastFertilized string
}

// parseDate normalizes a care date string. Returns nil for empty or
// malformed input rather than an error; the reminder engine treats an
// absent date as never recorded.
func parseDate(s string) *time.Time {
	if s == "" {
		return nil
	}
	t, err := time.Parse(dateLayout, s)
	if err != nil {
		return nil
	}
	return &t
}

func dateString(t *time.Time) any {
	if t == nil {
		return nil
	}
	return t.Format(dateLayout)
}

// CreatePlant inserts a plant for the given user.
func (db *DB) CreatePlant(userID int64, in PlantInput) (*Plant, error) {
	icon := in.Icon
	if icon == "" {
		icon = "🌱"
	}

	watered := parseDate(in.LastWatered)
	fertilized := parseDate(in.LastFertilized)

	now := time.Now().UnixMilli()
	result, err := db.Exec(`
		INSERT INTO plants (user_id, nickname, species, icon, water_cycle, fertilize_cycle,
		                    last_watered, last_fertilized, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`, userID, in.Nickname, in.Species, icon, in.WaterCycle, in.FertilizeCycle,
		dateString(watered), dateString(fertilized), now, now)
	if err != nil {
		return nil, fmt.Errorf("insert plant: %w", err)
	}

	id, _ := result.LastInsertId()
	return &Plant{
		ID:             id,
		UserID:         userID,
		Nickname:       in.Nickname,
		Species:        in.Species,
		Icon:           icon,
		WaterCycle:     in.WaterCycle,
		FertilizeCycle: in.FertilizeCycle,
		LastWatered:    watered,
		LastFertilized: fertilized,
		CreatedAt:      now,
		UpdatedAt:      now,
	}, nil
}

const plantColumns = `
	SELECT id, user_id, nickname, species, icon, water_cycle, fertilize_cycle,
	       last_watered, last_fertilized, created_at, updated_at
	FROM plants`

func scanPlant(scan func(...any) error) (*Plant, error) {
	var p Plant
	var watered, fertilized sql.NullString
	err := scan(&p.ID, &p.UserID, &p.Nickname, &p.Species, &p.Icon,
		&p.WaterCycle, &p.FertilizeCycle, &watered, &fertilized, &p.CreatedAt, &p.UpdatedAt)
	if err != nil {
		return nil, err
	}
	if watered.Valid {
		p.LastWatered = parseDate(watered.String)
	}
	if fertilized.Valid {
		p.LastFertilized = parseDate(fertilized.String)
	}
	return &p, nil
}

// ListPlants returns the user's non-deleted plants, newest first.
func (db *DB) ListPlants(userID int64) ([]Plant, error) {
	rows, err := db.Query(plantColumns+" WHERE user_id = ? AND is_deleted = 0 ORDER BY created_at DESC", userID)
	if err != nil {
		return nil, fmt.Errorf("list plants: %w", err)
	}
	defer rows.Close()

	var plants []Plant
	for rows.Next() {
		p, err := scanPlant(rows.Scan)
		if err != nil {
			return nil, fmt.Errorf("scan plant: %w", err)
		}
		plants = append(plants, *p)
	}
	return plants, rows.Err()
}

// GetPlant returns a plant by id if it belongs to the user, else nil.
func (db *DB) GetPlant(userID, plantID int64) (*Plant, error) {
	row := db.QueryRow(plantColumns+" WHERE id = ? AND user_id = ? AND is_deleted = 0", plantID, userID)
	p, err := scanPlant(row.Scan)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get plant: %w", err)
	}
	return p, nil
}

// UpdatePlant overwrites the writable fields of an owned plant.
// Returns false if the plant does not exist or is not owned by the user.
func (db *DB) UpdatePlant(userID, plantID int64, in PlantInput) (bool, error) {
	result, err := db.Exec(`
		UPDATE plants
		SET nickname = ?, species = ?, icon = ?, water_cycle = ?, fertilize_cycle = ?,
		    last_watered = ?, last_fertilized = ?, updated_at = ?
		WHERE id = ? AND user_id = ? AND is_deleted = 0
	`, in.Nickname, in.Species, in.Icon, in.WaterCycle, in.FertilizeCycle,
		dateString(parseDate(in.LastWatered)), dateString(parseDate(in.LastFertilized)),
		time.Now().UnixMilli(), plantID, userID)
	if err != nil {
		return false, fmt.Errorf("update plant: %w", err)
	}
	n, _ := result.RowsAffected()
	return n > 0, nil
}

// DeletePlant soft-deletes an owned plant.
func (db *DB) DeletePlant(userID, plantID int64) (bool, error) {
	result, err := db.Exec(`
		UPDATE plants SET is_deleted = 1, updated_at = ?
		WHERE id = ? AND user_id = ? AND is_deleted = 0
	`, time.Now().UnixMilli(), plantID, userID)
	if err != nil {
		return false, fmt.Errorf("delete plant: %w", err)
	}
	n, _ := result.RowsAffected()
	return n > 0, nil
}

// RecordAction sets the last-done date for a care action on an owned plant.
// Returns false if the plant does not exist or is not owned by the user.
func (db *DB) RecordAction(userID, plantID int64, action reminder.Action, on time.Time) (bool, error) {
	var col string
	switch action {
	case reminder.ActionWater:
		col = "last_watered"
	case reminder.ActionFertilize:
		col = "last_fertilized"
	default:
		return false, fmt.Errorf("unknown action %q", action)
	}

	result, err := db.Exec(
		"UPDATE plants SET "+col+" = ?, updated_at = ? WHERE id = ? AND user_id = ? AND is_deleted = 0",
		on.Format(dateLayout), time.Now().UnixMilli(), plantID, userID)
	if err != nil {
		return false, fmt.Errorf("record %s: %w", action, err)
	}
	n, _ := result.RowsAffected()
	return n > 0, nil
}

// CareStates loads the user's plants as normalized engine input.
// This is the only bridge between storage and the reminder engine.
func (db *DB) CareStates(userID int64) ([]reminder.PlantCareState, error) {
	plants, err := db.ListPlants(userID)
	if err != nil {
		return nil, err
	}

	states := make([]reminder.PlantCareState, 0, len(plants))
	for _, p := range plants {
		states = append(states, reminder.PlantCareState{
			PlantID:            p.ID,
			Name:               p.Nickname,
			WaterCycleDays:     p.WaterCycle,
			FertilizeCycleDays: p.FertilizeCycle,
			LastWatered:        p.LastWatered,
			LastFertilized:     p.LastFertilized,
		})
	}
	return states, nil
}
