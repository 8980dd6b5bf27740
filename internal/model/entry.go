package model

import (
	"time"

	"github.com/google/uuid"
)

const (
	DateFormat = "2006-01-02"
	TimeFormat = "15:04"
)

// RepeatRule says how an entry recurs after it fires.
type RepeatRule string

const (
	RepeatNone   RepeatRule = "None"
	RepeatDaily  RepeatRule = "Daily"
	RepeatWeekly RepeatRule = "Weekly"
)

// ParseRepeatRule is lenient: unknown names fall back to None so a
// sloppy client payload still creates a valid entry.
func ParseRepeatRule(name string) RepeatRule {
	switch name {
	case string(RepeatDaily):
		return RepeatDaily
	case string(RepeatWeekly):
		return RepeatWeekly
	default:
		return RepeatNone
	}
}

// ScheduleEntry is one reminder. Date/Time hold the next scheduled
// occurrence in the local zone, minute resolution.
type ScheduleEntry struct {
	ID         string     `json:"id" xml:"id"`
	Title      string     `json:"title" xml:"title"`
	Date       string     `json:"date" xml:"date"` // 2006-01-02
	Time       string     `json:"time" xml:"time"` // 15:04 (24h)
	Repeat     RepeatRule `json:"repeat" xml:"repeat"`
	Notified   bool       `json:"-" xml:"-"` // in-memory only, reset on advance
	MusicTitle string     `json:"musicTitle" xml:"musicTitle"`
	MusicURL   string     `json:"musicUrl" xml:"musicUrl"`
	MusicFile  string     `json:"musicFile" xml:"musicFile"`
}

// NewEntry builds an entry with a fresh id and normalized repeat rule.
func NewEntry(title, date, tm string, repeat RepeatRule) ScheduleEntry {
	if repeat == "" {
		repeat = RepeatNone
	}
	return ScheduleEntry{
		ID:     uuid.NewString(),
		Title:  title,
		Date:   date,
		Time:   tm,
		Repeat: repeat,
	}
}

// EnsureID backfills a uuid for entries loaded without one.
func (e *ScheduleEntry) EnsureID() {
	if e.ID == "" {
		e.ID = uuid.NewString()
	}
}

// Occurrence combines Date and Time into the entry's next scheduled
// instant. The zero time is returned when either field is unparsable.
func (e *ScheduleEntry) Occurrence() time.Time {
	t, err := time.ParseInLocation(DateFormat+" "+TimeFormat, e.Date+" "+e.Time, time.Local)
	if err != nil {
		return time.Time{}
	}
	return t
}

// Valid reports whether the entry can be scheduled at all.
func (e *ScheduleEntry) Valid() bool {
	return e.Title != "" && !e.Occurrence().IsZero()
}

// Advance moves a repeating entry to its next occurrence and clears
// the notified flag. Non-repeating entries are untouched.
func (e *ScheduleEntry) Advance() {
	switch e.Repeat {
	case RepeatDaily:
		e.Date = e.Occurrence().AddDate(0, 0, 1).Format(DateFormat)
	case RepeatWeekly:
		e.Date = e.Occurrence().AddDate(0, 0, 7).Format(DateFormat)
	default:
		return
	}
	e.Notified = false
}

// AlignToFuture fast-forwards a repeating entry by whole repeat
// periods until its occurrence is no longer before base. This is the
// one advancement rule shared by creation, load and the tick loop.
func (e *ScheduleEntry) AlignToFuture(base time.Time) {
	if e.Repeat == RepeatNone {
		return
	}
	occ := e.Occurrence()
	if occ.IsZero() {
		return
	}
	for e.Occurrence().Before(base) {
		e.Advance()
	}
}
