package generator

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"

	"nutribyte/fitness-app/internal/domain"
)

// SessionPolicy is the fixed training prescription for one (level, duration) pair.
type SessionPolicy struct {
	Days      int // training days per week
	Minutes   int // bucketed session length: 30, 60, 90 or 120
	Exercises int // exercises per session
	SetsMin   int
	SetsMax   int
	Reps      string
	Rest      string
}

// Sets renders the sets range, e.g. "3-4".
func (p SessionPolicy) Sets() string {
	return fmt.Sprintf("%d-%d", p.SetsMin, p.SetsMax)
}

// DurationLabel renders the session length for prompts and content.
func (p SessionPolicy) DurationLabel() string {
	return fmt.Sprintf("%d minutes", p.Minutes)
}

type levelPolicy struct {
	setsMin, setsMax int
	reps, rest       string
}

var levelPolicies = map[domain.FitnessLevel]levelPolicy{
	domain.LevelBeginner:     {setsMin: 2, setsMax: 3, reps: "12-15", rest: "90 seconds"},
	domain.LevelIntermediate: {setsMin: 3, setsMax: 4, reps: "8-12", rest: "60 seconds"},
	domain.LevelExpert:       {setsMin: 4, setsMax: 5, reps: "6-10", rest: "45-60 seconds"},
}

// exercisesByMinutes is shared by all levels.
var exercisesByMinutes = map[int]int{30: 3, 60: 5, 90: 6, 120: 7}

var (
	dailyPattern     = regexp.MustCompile(`\b(daily|every\s*day)\b`)
	frequencyPattern = regexp.MustCompile(`(\d+)\s*(x|times|days?)\b`)
	durationPattern  = regexp.MustCompile(`(\d+(?:\.\d+)?)\s*(minutes?|mins?|m|hours?|hrs?|h)\b`)
	// "1h30", "1 hour 30 minutes", "2 hrs and 15 min"
	compoundPattern = regexp.MustCompile(`(\d+)\s*(?:hours?|hrs?|h)(?:\s*(?:and\s*)?(\d+)\s*(?:minutes?|mins?|m)\b|(\d{2})\b)`)
	numberWords     = regexp.MustCompile(`\b(once|twice|thrice|one|two|three|four|five|six|seven)\b`)
)

var wordValues = map[string]string{
	"once": "1x", "twice": "2x", "thrice": "3x",
	"one": "1", "two": "2", "three": "3", "four": "4", "five": "5", "six": "6", "seven": "7",
}

// Phrases rewritten before number words, longest first.
var phraseReplacer = strings.NewReplacer(
	"an hour and a half", "90 minutes",
	"half an hour", "30 minutes",
	"half hour", "30 minutes",
	"an hour", "1 hour",
	"a week", "per week",
)

const availableTimeHint = `use a weekly frequency and a session length, e.g. "3x per week, 1 hour" or "twice a week, 1h30"`

// ParseAvailableTime extracts training days per week and session minutes from a
// descriptor such as "3x per week, 1 hour", "twice a week, 1h30" or "1_hour_3x_week".
func ParseAvailableTime(descriptor string) (days, minutes int, err error) {
	s := strings.ToLower(strings.ReplaceAll(descriptor, "_", " "))
	s = phraseReplacer.Replace(s)
	s = numberWords.ReplaceAllStringFunc(s, func(w string) string { return wordValues[w] })

	switch {
	case dailyPattern.MatchString(s):
		days = 7
	default:
		if m := frequencyPattern.FindStringSubmatch(s); m != nil {
			days, _ = strconv.Atoi(m[1])
		}
	}
	if days < 1 || days > 7 {
		return 0, 0, fmt.Errorf("%w: cannot derive training days per week from available time %q, %s", ErrInvalidParameters, descriptor, availableTimeHint)
	}

	raw, ok := sessionMinutes(s)
	if !ok {
		return 0, 0, fmt.Errorf("%w: cannot derive session duration from available time %q, %s", ErrInvalidParameters, descriptor, availableTimeHint)
	}
	return days, bucketMinutes(raw), nil
}

// sessionMinutes reads the first session length in s.
func sessionMinutes(s string) (float64, bool) {
	if m := compoundPattern.FindStringSubmatch(s); m != nil {
		hours, _ := strconv.Atoi(m[1])
		extra := m[2]
		if extra == "" {
			extra = m[3]
		}
		mins, _ := strconv.Atoi(extra)
		if total := hours*60 + mins; total > 0 && mins < 60 {
			return float64(total), true
		}
		return 0, false
	}

	m := durationPattern.FindStringSubmatch(s)
	if m == nil {
		return 0, false
	}
	value, err := strconv.ParseFloat(m[1], 64)
	if err != nil || value <= 0 {
		return 0, false
	}
	if strings.HasPrefix(m[2], "h") {
		value *= 60
	}
	return value, true
}

func bucketMinutes(raw float64) int {
	switch {
	case raw <= 30:
		return 30
	case raw <= 60:
		return 60
	case raw <= 90:
		return 90
	default:
		return 120
	}
}

// PolicyFor resolves the session prescription for a level and available-time descriptor.
func PolicyFor(level domain.FitnessLevel, availableTime string) (SessionPolicy, error) {
	lp, ok := levelPolicies[level]
	if !ok {
		return SessionPolicy{}, fmt.Errorf("%w: unknown fitness level %q", ErrInvalidParameters, level)
	}
	days, minutes, err := ParseAvailableTime(availableTime)
	if err != nil {
		return SessionPolicy{}, err
	}
	return SessionPolicy{
		Days:      days,
		Minutes:   minutes,
		Exercises: exercisesByMinutes[minutes],
		SetsMin:   lp.setsMin,
		SetsMax:   lp.setsMax,
		Reps:      lp.reps,
		Rest:      lp.rest,
	}, nil
}
