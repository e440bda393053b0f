// Package analytics computes the dashboard summary over the employee
// directory.
package analytics

import (
	"math"
	"sort"
	"strings"

	"github.com/demanddesk/demanddesk/internal/employee"
)

const topSkillLimit = 8

type Summary struct {
	TotalEmployees     int          `json:"total_employees"`
	Available          int          `json:"available"`
	PartiallyAvailable int          `json:"partially_available"`
	NotAvailable       int          `json:"not_available"`
	AvailabilityRate   float64      `json:"availability_rate"`
	AverageStrength    float64      `json:"average_strength"`
	Teams              []TeamStat   `json:"teams"`
	TopSkills          []SkillCount `json:"top_skills"`
}

type TeamStat struct {
	Team            string  `json:"team"`
	Members         int     `json:"members"`
	AverageStrength float64 `json:"average_strength"`
}

type SkillCount struct {
	Skill string `json:"skill"`
	Count int    `json:"count"`
}

// Summarize aggregates employees. Availability is matched case-insensitively;
// anything that is neither available nor partially available counts as not
// available. Teams keep first-seen order and skills are ranked by count,
// then name.
func Summarize(employees []employee.Employee) Summary {
	summary := Summary{
		TotalEmployees: len(employees),
		Teams:          []TeamStat{},
		TopSkills:      []SkillCount{},
	}
	if len(employees) == 0 {
		return summary
	}

	var strengthTotal int
	teamIndex := make(map[string]int)
	teamStrength := make([]int, 0)
	skillCounts := make(map[string]int)

	for _, e := range employees {
		switch {
		case strings.EqualFold(e.Availability, employee.AvailabilityAvailable):
			summary.Available++
		case strings.EqualFold(e.Availability, employee.AvailabilityPartiallyAvailable):
			summary.PartiallyAvailable++
		default:
			summary.NotAvailable++
		}
		strengthTotal += e.Strength

		idx, ok := teamIndex[e.Team]
		if !ok {
			idx = len(summary.Teams)
			teamIndex[e.Team] = idx
			summary.Teams = append(summary.Teams, TeamStat{Team: e.Team})
			teamStrength = append(teamStrength, 0)
		}
		summary.Teams[idx].Members++
		teamStrength[idx] += e.Strength

		for _, skill := range e.Skills {
			skillCounts[skill]++
		}
	}

	total := float64(len(employees))
	summary.AvailabilityRate = round1(float64(summary.Available) / total * 100)
	summary.AverageStrength = round1(float64(strengthTotal) / total)
	for i := range summary.Teams {
		summary.Teams[i].AverageStrength = round1(float64(teamStrength[i]) / float64(summary.Teams[i].Members))
	}

	for skill, count := range skillCounts {
		summary.TopSkills = append(summary.TopSkills, SkillCount{Skill: skill, Count: count})
	}
	sort.Slice(summary.TopSkills, func(i, j int) bool {
		if summary.TopSkills[i].Count != summary.TopSkills[j].Count {
			return summary.TopSkills[i].Count > summary.TopSkills[j].Count
		}
		return summary.TopSkills[i].Skill < summary.TopSkills[j].Skill
	})
	if len(summary.TopSkills) > topSkillLimit {
		summary.TopSkills = summary.TopSkills[:topSkillLimit]
	}
	return summary
}

func round1(v float64) float64 {
	return math.Round(v*10) / 10
}
