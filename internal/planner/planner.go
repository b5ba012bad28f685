// Package planner builds day-wise study plans. The planner is deterministic
// rule-based code, not a model call: plans come out instantly, cost nothing,
// and always follow the same revision arc from basics to mock test.
package planner

import (
	"fmt"
	"strings"

	"github.com/edumentor/edumentor/internal/profile"
)

// Plan shape limits. Out-of-range requests are clamped, not rejected.
const (
	DefaultDays    = 5
	MaxDays        = 14
	DefaultMinutes = 60
	MinMinutes     = 15
	MaxMinutes     = 480
)

// planTopics is the revision arc a plan cycles through.
var planTopics = [...]string{
	"Basic concepts & revision",
	"Practice problems",
	"Advanced problems",
	"Mock test",
	"Revision & weak areas",
}

// coreActivities maps each topic to the main session of that day.
var coreActivities = map[string]string{
	"Basic concepts & revision": "Read the chapter and summarise the key ideas",
	"Practice problems":         "Solve practice problems",
	"Advanced problems":         "Attempt harder multi-step problems",
	"Mock test":                 "Take a timed mock test",
	"Revision & weak areas":     "Revise mistakes from earlier days",
}

// PlanRequest describes the plan a student asked for. Zero values fall back
// to a 5-day plan of 60 minutes per day.
type PlanRequest struct {
	Goal         string
	Subject      string
	Days         int
	DailyMinutes int
	Profile      *profile.Profile
}

// Session is one block of study time within a day.
type Session struct {
	Activity string `json:"activity"`
	Minutes  int    `json:"minutes"`
}

// Day is one day of the plan.
type Day struct {
	Number   int       `json:"number"`
	Topic    string    `json:"topic"`
	Sessions []Session `json:"sessions"`
}

// Plan is a complete study plan. Render turns it into the text the student
// sees; the struct itself serialises for API consumers.
type Plan struct {
	Goal         string `json:"goal"`
	Subject      string `json:"subject,omitempty"`
	DailyMinutes int    `json:"daily_minutes"`
	ProfileLine  string `json:"profile_line,omitempty"`
	Days         []Day  `json:"days"`
}

// BuildPlan creates a study plan for the request. Day counts and daily
// minutes outside the supported range are clamped.
func BuildPlan(req PlanRequest) *Plan {
	days := req.Days
	switch {
	case days <= 0:
		days = DefaultDays
	case days > MaxDays:
		days = MaxDays
	}

	minutes := req.DailyMinutes
	switch {
	case minutes <= 0:
		minutes = DefaultMinutes
	case minutes < MinMinutes:
		minutes = MinMinutes
	case minutes > MaxMinutes:
		minutes = MaxMinutes
	}

	plan := &Plan{
		Goal:         req.Goal,
		Subject:      req.Subject,
		DailyMinutes: minutes,
		ProfileLine:  profileLine(req.Profile, req.Subject),
		Days:         make([]Day, 0, days),
	}

	for i := range days {
		topic := planTopics[i%len(planTopics)]
		plan.Days = append(plan.Days, Day{
			Number:   i + 1,
			Topic:    topic,
			Sessions: sessionsFor(topic, minutes, req.Profile),
		})
	}
	return plan
}

// sessionsFor splits a day into a warm-up and a main session that together
// fill the daily minutes. On revision days the main session names the
// student's weak areas when the profile lists any.
func sessionsFor(topic string, minutes int, p *profile.Profile) []Session {
	activity := coreActivities[topic]
	if topic == "Revision & weak areas" && p != nil && len(p.WeakAreas) > 0 {
		activity = "Revise weak areas: " + strings.Join(p.WeakAreas, ", ")
	}

	warmUp := minutes / 4
	return []Session{
		{Activity: "Warm-up review", Minutes: warmUp},
		{Activity: activity, Minutes: minutes - warmUp},
	}
}

// profileLine renders the compact one-line profile header, or "" when
// nothing is known about the student.
func profileLine(p *profile.Profile, subject string) string {
	var parts []string
	if p != nil {
		if p.Name != "" {
			parts = append(parts, "Student: "+p.Name)
		}
		if p.Grade != "" {
			parts = append(parts, "Grade: "+p.Grade)
		}
		if p.Syllabus != "" {
			parts = append(parts, "Syllabus: "+p.Syllabus)
		}
	}
	if subject != "" {
		parts = append(parts, "Subject: "+subject)
	}
	if p != nil && p.Proficiency != "" {
		parts = append(parts, "Level: "+p.Proficiency)
	}
	return strings.Join(parts, " | ")
}

// Render formats the plan as the text block shown to the student.
func (p *Plan) Render() string {
	lines := []string{fmt.Sprintf("📘 Personalized Study Plan (%d days)", len(p.Days))}
	if p.ProfileLine != "" {
		lines = append(lines, p.ProfileLine)
	}
	lines = append(lines, fmt.Sprintf("Goal: %s\n", p.Goal))

	for _, day := range p.Days {
		lines = append(lines, fmt.Sprintf("Day %d: %s", day.Number, day.Topic))
		for _, s := range day.Sessions {
			lines = append(lines, fmt.Sprintf("  - %s (%d min)", s.Activity, s.Minutes))
		}
		lines = append(lines, "  - Practice quiz included ✅")
	}

	lines = append(lines, "\nStay consistent and review mistakes every day!")
	return strings.Join(lines, "\n")
}
