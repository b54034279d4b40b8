// Package reminder computes care reminders from plant cycle configuration.
// It is pure: no clock reads, no I/O. Callers supply the reference date.
package reminder

import (
	"fmt"
	"sort"
	"time"
)

// Action is a tracked care action.
type Action string

const (
	ActionWater     Action = "water"
	ActionFertilize Action = "fertilize"
)

// Urgency is the coarse presentation bucket derived from the overdue ratio.
type Urgency string

const (
	UrgencyLow    Urgency = "low"
	UrgencyMedium Urgency = "medium"
	UrgencyHigh   Urgency = "high"
)

// neverRecorded is the overdue sentinel for plants whose action has no
// recorded date. It forces maximal urgency instead of raising.
const neverRecorded = 999

// PlantCareState is the engine's view of a plant: cycle configuration plus
// normalized last-action dates. A cycle of 0 disables that action's
// reminders; a nil date means the action was never recorded.
type PlantCareState struct {
	PlantID            int64
	Name               string
	WaterCycleDays     int
	FertilizeCycleDays int
	LastWatered        *time.Time
	LastFertilized     *time.Time
}

func (p *PlantCareState) cycleFor(a Action) (int, *time.Time) {
	switch a {
	case ActionWater:
		return p.WaterCycleDays, p.LastWatered
	case ActionFertilize:
		return p.FertilizeCycleDays, p.LastFertilized
	default:
		return 0, nil
	}
}

// Record is one reminder for one plant and action. Records are transient:
// recomputed on every request, never persisted.
type Record struct {
	PlantID      int64   `json:"plant_id"`
	PlantName    string  `json:"plant_name"`
	Action       Action  `json:"type"`
	Message      string  `json:"message"`
	Personalized string  `json:"ai_message,omitempty"`
	DaysOverdue  int     `json:"days_overdue"`
	Urgency      Urgency `json:"urgency"`
	DueDate      string  `json:"due_date"`
	Icon         string  `json:"icon"`
}

// Compute produces the sorted reminder list for a set of plants as of the
// given date. If no actions are named, both tracked actions are computed.
//
// A record is produced for an action when its cycle is positive and the
// plant is due tomorrow or later (raw overdue >= -1). Plants with no
// recorded date take the never-recorded sentinel and sort as maximally
// urgent.
func Compute(plants []PlantCareState, today time.Time, actions ...Action) []Record {
	if len(actions) == 0 {
		actions = []Action{ActionWater, ActionFertilize}
	}

	var records []Record
	for i := range plants {
		p := &plants[i]
		for _, a := range actions {
			cycle, last := p.cycleFor(a)
			if cycle <= 0 {
				continue
			}

			raw := rawOverdue(last, cycle, today)
			if raw < -1 {
				continue
			}
			clamped := raw
			if clamped < 0 {
				clamped = 0
			}
			urgency := urgencyFor(raw, cycle)

			base := today
			if last != nil {
				base = *last
			}
			due := base.AddDate(0, 0, cycle)

			records = append(records, Record{
				PlantID:     p.PlantID,
				PlantName:   p.Name,
				Action:      a,
				Message:     standardMessage(p.Name, a, raw, clamped),
				DaysOverdue: clamped,
				Urgency:     urgency,
				DueDate:     due.Format("2006-01-02"),
				Icon:        Icon(a, urgency),
			})
		}
	}

	Sort(records)
	return records
}

// rawOverdue is elapsed days since the last action minus the cycle length.
// Negative means not yet due; an absent date takes the sentinel.
func rawOverdue(last *time.Time, cycle int, today time.Time) int {
	if last == nil {
		return neverRecorded
	}
	days := int(dateOnly(today).Sub(dateOnly(*last)).Hours() / 24)
	return days - cycle
}

func dateOnly(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

// urgencyFor buckets the overdue ratio. The exact "due tomorrow" case is
// forced low regardless of ratio.
func urgencyFor(raw, cycle int) Urgency {
	if raw < 0 {
		return UrgencyLow
	}
	safe := cycle
	if safe <= 0 {
		safe = 1
	}
	ratio := float64(raw) / float64(safe)
	if ratio > 0.5 {
		return UrgencyHigh
	}
	if ratio > 0.2 {
		return UrgencyMedium
	}
	return UrgencyLow
}

func actionVerb(a Action) string {
	switch a {
	case ActionFertilize:
		return "fertilizing"
	default:
		return "watering"
	}
}

func standardMessage(name string, a Action, raw, clamped int) string {
	if raw == -1 {
		return fmt.Sprintf("%s needs %s tomorrow", name, actionVerb(a))
	}
	return fmt.Sprintf("%s is %d days overdue for %s", name, clamped, actionVerb(a))
}

// Icon returns the presentation glyph for an action at a given urgency.
// The table is part of the UI contract and must stay stable.
func Icon(a Action, u Urgency) string {
	base := "🍃"
	switch a {
	case ActionWater:
		base = "💧"
	case ActionFertilize:
		base = "🌱"
	}
	switch u {
	case UrgencyHigh:
		return base + "🔥"
	case UrgencyMedium:
		return base + "⏰"
	default:
		return base
	}
}

func urgencyRank(u Urgency) int {
	switch u {
	case UrgencyHigh:
		return 0
	case UrgencyMedium:
		return 1
	default:
		return 2
	}
}

// Sort orders records by urgency (high first), then by days overdue
// descending within a tier. The sort is stable so remaining ties preserve
// input order.
func Sort(records []Record) {
	sort.SliceStable(records, func(i, j int) bool {
		ri, rj := urgencyRank(records[i].Urgency), urgencyRank(records[j].Urgency)
		if ri != rj {
			return ri < rj
		}
		return records[i].DaysOverdue > records[j].DaysOverdue
	})
}
