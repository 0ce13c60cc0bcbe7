package moods

import (
	"strings"
)

// Mood is one value of the check-in scale.
type Mood string

const (
	MoodAngry   Mood = "ANGRY"
	MoodSad     Mood = "SAD"
	MoodAnxious Mood = "ANXIOUS"
	MoodTired   Mood = "TIRED"
	MoodCalm    Mood = "CALM"
	MoodHappy   Mood = "HAPPY"
)

// scale lists moods from lowest to highest score.
var scale = []Mood{MoodAngry, MoodSad, MoodAnxious, MoodTired, MoodCalm, MoodHappy}

// scores maps each mood to its fixed score. SAD and ANXIOUS share 2, so an
// average cannot tell them apart; that mirrors the check-in UI scale as shipped.
var scores = map[Mood]int{
	MoodAngry:   1,
	MoodSad:     2,
	MoodAnxious: 2,
	MoodTired:   3,
	MoodCalm:    4,
	MoodHappy:   5,
}

// Moods returns the scale in ascending score order.
func Moods() []Mood {
	out := make([]Mood, len(scale))
	copy(out, scale)
	return out
}

// Valid reports whether m is on the scale.
func (m Mood) Valid() bool {
	_, ok := scores[m]
	return ok
}

// Score returns the fixed score for m, or 0 when m is not on the scale.
func (m Mood) Score() int {
	return scores[m]
}

func (m Mood) String() string { return string(m) }

// ParseMood accepts any casing and surrounding whitespace.
func ParseMood(s string) (Mood, error) {
	trimmed := strings.TrimSpace(s)
	if trimmed == "" {
		return "", &ValidationError{Field: "mood", Reason: "is required"}
	}
	m := Mood(strings.ToUpper(trimmed))
	if !m.Valid() {
		return "", &ValidationError{Field: "mood", Reason: "must be one of " + moodList()}
	}
	return m, nil
}

func moodList() string {
	names := make([]string, len(scale))
	for i, m := range scale {
		names[i] = string(m)
	}
	return strings.Join(names, ", ")
}
