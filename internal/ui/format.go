// ABOUTME: Terminal UI formatting utilities
// ABOUTME: Provides human-readable output for profiles, trigger logs, and walks

package ui

import (
	"fmt"
	"strings"
	"time"

	"github.com/fatih/color"
	"github.com/harper/leash/internal/models"
)

// FormatProfile formats a dog profile for terminal display.
func FormatProfile(p *models.DogProfile) string {
	if p == nil {
		return color.New(color.Faint).Sprint("(no profile)")
	}
	details := fmt.Sprintf("%s, age %d, %.1fkg, reactivity %d/5", p.Breed, p.Age, p.Weight, p.ReactivityLevel)
	line := fmt.Sprintf("%s - %s", color.GreenString(p.Name), color.New(color.Faint).Sprint(details))
	if len(p.Triggers) > 0 {
		line += fmt.Sprintf("\n  triggers: %s", color.CyanString(strings.Join(p.Triggers, ", ")))
	}
	if p.TrainingMethod != nil {
		line += fmt.Sprintf("\n  method: %s", *p.TrainingMethod)
	}
	return line
}

// FormatTrigger formats a trigger log line for terminal display.
func FormatTrigger(t *models.TriggerLog) string {
	if t == nil {
		return color.New(color.Faint).Sprint("(no trigger)")
	}
	parts := []string{
		SeverityString(t.Severity),
		color.CyanString(t.TriggerType),
	}
	if t.DistanceMeters != nil {
		parts = append(parts, fmt.Sprintf("at %.0fm", *t.DistanceMeters))
	}
	if t.Notes != nil && *t.Notes != "" {
		parts = append(parts, fmt.Sprintf("%q", *t.Notes))
	}
	parts = append(parts, color.New(color.Faint).Sprint(FormatRelativeTime(t.LoggedAt)))
	return strings.Join(parts, " ")
}

// FormatWalk formats a walk summary line for terminal display.
func FormatWalk(w *models.Walk, pointCount int) string {
	if w == nil {
		return color.New(color.Faint).Sprint("(no walk)")
	}
	status := color.YellowString("in progress")
	if w.EndedAt != nil {
		duration := w.EndedAt.Sub(w.StartedAt).Round(time.Minute)
		status = color.New(color.Faint).Sprintf("%s", duration)
	}
	rating := ""
	if w.SuccessRating != nil {
		rating = " " + color.GreenString("%d/5", *w.SuccessRating)
	}
	return fmt.Sprintf("%s  %s  %s%s  %s",
		w.StartedAt.Format("Jan 2, 3:04 PM"),
		status,
		color.New(color.Faint).Sprintf("%d points", pointCount),
		rating,
		color.New(color.Faint).Sprint(w.ID))
}

// SeverityString renders a 1-5 severity with a color ramp.
func SeverityString(severity int) string {
	s := fmt.Sprintf("[%d]", severity)
	switch {
	case severity >= 4:
		return color.RedString(s)
	case severity == 3:
		return color.YellowString(s)
	default:
		return color.GreenString(s)
	}
}

// FormatRelativeTime formats a time as relative to now.
func FormatRelativeTime(t time.Time) string {
	diff := time.Since(t)
	switch {
	case diff < time.Minute:
		return "just now"
	case diff < time.Hour:
		return fmt.Sprintf("%dm ago", int(diff.Minutes()))
	case diff < 24*time.Hour:
		return fmt.Sprintf("%dh ago", int(diff.Hours()))
	case diff < 48*time.Hour:
		return "yesterday"
	default:
		return fmt.Sprintf("%dd ago", int(diff.Hours()/24))
	}
}
