// ABOUTME: Markdown progress report over the repositories
// ABOUTME: Summarizes the active profile, recent walks, and trigger counts by type

package storage

import (
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"
)

// ProgressReport renders a markdown review of the owner's training
// progress: profile header, recent walks with ratings, and trigger
// frequency by type.
func ProgressReport(s *Store, ownerID string) ([]byte, error) {
	profiles := NewProfileRepo(s)
	walks := NewWalkRepo(s)
	triggers := NewTriggerRepo(s)
	points := NewPointRepo(s)

	var sb strings.Builder
	now := time.Now().UTC()
	sb.WriteString(fmt.Sprintf("# Training Progress - %s\n\n", now.Format("2006-01-02")))
	sb.WriteString(fmt.Sprintf("Generated: %s\n\n", now.Format(time.RFC3339)))

	profile, err := profiles.ActiveProfile(ownerID)
	if errors.Is(err, ErrNotFound) {
		sb.WriteString("No dog profile yet.\n")
		return []byte(sb.String()), nil
	}
	if err != nil {
		return nil, err
	}

	sb.WriteString(fmt.Sprintf("## %s\n\n", profile.Name))
	if profile.Breed != "" {
		sb.WriteString(fmt.Sprintf("- Breed: %s\n", profile.Breed))
	}
	sb.WriteString(fmt.Sprintf("- Age: %d\n", profile.Age))
	sb.WriteString(fmt.Sprintf("- Reactivity level: %d/5\n", profile.ReactivityLevel))
	if len(profile.Triggers) > 0 {
		sb.WriteString(fmt.Sprintf("- Triggers: %s\n", strings.Join(profile.Triggers, ", ")))
	}
	if profile.TrainingMethod != nil {
		sb.WriteString(fmt.Sprintf("- Training method: %s\n", *profile.TrainingMethod))
	}
	sb.WriteString("\n")

	recent, err := walks.ListByOwner(ownerID, ListOptions{Sort: SortDesc, Limit: 10})
	if err != nil {
		return nil, err
	}
	sb.WriteString("## Recent walks\n\n")
	if len(recent) == 0 {
		sb.WriteString("No walks recorded.\n\n")
	} else {
		sb.WriteString("| Started | Duration | Rating | Points |\n")
		sb.WriteString("|---------|----------|--------|--------|\n")
		for _, w := range recent {
			duration := "-"
			if w.EndedAt != nil {
				duration = w.EndedAt.Sub(w.StartedAt).Round(time.Minute).String()
			}
			rating := "-"
			if w.SuccessRating != nil {
				rating = fmt.Sprintf("%d/5", *w.SuccessRating)
			}
			count, err := points.CountByWalk(w.ID)
			if err != nil {
				return nil, err
			}
			sb.WriteString(fmt.Sprintf("| %s | %s | %s | %d |\n",
				w.StartedAt.Format("2006-01-02 15:04"), duration, rating, count))
		}
		sb.WriteString("\n")
	}

	logs, err := triggers.ListByOwner(ownerID, ListOptions{Sort: SortDesc})
	if err != nil {
		return nil, err
	}
	sb.WriteString("## Trigger events\n\n")
	if len(logs) == 0 {
		sb.WriteString("No trigger events logged.\n")
		return []byte(sb.String()), nil
	}

	counts := make(map[string]int)
	for _, t := range logs {
		counts[t.TriggerType]++
	}
	types := make([]string, 0, len(counts))
	for tt := range counts {
		types = append(types, tt)
	}
	sort.Slice(types, func(i, j int) bool {
		if counts[types[i]] != counts[types[j]] {
			return counts[types[i]] > counts[types[j]]
		}
		return types[i] < types[j]
	})

	sb.WriteString("| Trigger | Count |\n")
	sb.WriteString("|---------|-------|\n")
	for _, tt := range types {
		sb.WriteString(fmt.Sprintf("| %s | %d |\n", tt, counts[tt]))
	}

	return []byte(sb.String()), nil
}
