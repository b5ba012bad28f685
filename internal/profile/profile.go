// Package profile stores student profiles in a single JSON file. Profiles
// carry the personalisation fields the tutor and planner fold into their
// prompts: name, age, grade, syllabus, proficiency, and known weak areas.
package profile

import (
	"errors"
	"fmt"
	"slices"
	"time"
)

// Proficiency levels a profile may declare.
const (
	ProficiencyBeginner     = "beginner"
	ProficiencyIntermediate = "intermediate"
	ProficiencyAdvanced     = "advanced"
)

var (
	// ErrNotFound is returned when no profile exists for a user.
	ErrNotFound = errors.New("profile not found")

	// ErrInvalid wraps all profile validation failures.
	ErrInvalid = errors.New("invalid profile")

	proficiencies = []string{ProficiencyBeginner, ProficiencyIntermediate, ProficiencyAdvanced}
	genders       = []string{"male", "female", "other"}
)

// Profile is one student's stored profile. All fields except UserID are
// optional; missing fields simply reduce how much the prompts personalise.
type Profile struct {
	UserID      string    `json:"user_id"`
	Name        string    `json:"name,omitempty"`
	Age         int       `json:"age,omitempty"`
	Grade       string    `json:"grade,omitempty"`
	Syllabus    string    `json:"syllabus,omitempty"`
	Proficiency string    `json:"proficiency,omitempty"`
	Gender      string    `json:"gender,omitempty"`
	WeakAreas   []string  `json:"weak_areas,omitempty"`
	UpdatedAt   time.Time `json:"updated_at"`
}

// Validate reports whether the profile is storable. Failures wrap ErrInvalid.
func (p *Profile) Validate() error {
	if p.UserID == "" {
		return fmt.Errorf("%w: user ID is required", ErrInvalid)
	}
	if p.Age != 0 && (p.Age < 1 || p.Age > 120) {
		return fmt.Errorf("%w: age must be between 1 and 120, got %d", ErrInvalid, p.Age)
	}
	if p.Proficiency != "" && !slices.Contains(proficiencies, p.Proficiency) {
		return fmt.Errorf("%w: proficiency must be one of %v, got %q", ErrInvalid, proficiencies, p.Proficiency)
	}
	if p.Gender != "" && !slices.Contains(genders, p.Gender) {
		return fmt.Errorf("%w: gender must be one of %v, got %q", ErrInvalid, genders, p.Gender)
	}
	return nil
}
