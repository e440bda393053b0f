package analytics

import (
	"testing"

	"github.com/demanddesk/demanddesk/internal/employee"
)

func TestSummarizeSeed(t *testing.T) {
	s := Summarize(employee.Seed())

	if s.TotalEmployees != 6 {
		t.Fatalf("TotalEmployees = %d", s.TotalEmployees)
	}
	if s.Available != 3 || s.PartiallyAvailable != 1 || s.NotAvailable != 2 {
		t.Fatalf("availability = %d/%d/%d", s.Available, s.PartiallyAvailable, s.NotAvailable)
	}
	if s.AvailabilityRate != 50 {
		t.Fatalf("AvailabilityRate = %v", s.AvailabilityRate)
	}
	if s.AverageStrength != 90.3 {
		t.Fatalf("AverageStrength = %v", s.AverageStrength)
	}

	wantTeams := []string{"Frontend", "Backend", "Full Stack", "Infrastructure", "AI/ML"}
	if len(s.Teams) != len(wantTeams) {
		t.Fatalf("Teams = %+v", s.Teams)
	}
	for i, team := range wantTeams {
		if s.Teams[i].Team != team {
			t.Fatalf("Teams[%d] = %q, want %q", i, s.Teams[i].Team, team)
		}
	}
	if s.Teams[2].Members != 2 || s.Teams[2].AverageStrength != 92 {
		t.Fatalf("Full Stack = %+v", s.Teams[2])
	}

	if len(s.TopSkills) != 8 {
		t.Fatalf("TopSkills len = %d", len(s.TopSkills))
	}
	if s.TopSkills[0] != (SkillCount{Skill: "React", Count: 3}) {
		t.Fatalf("TopSkills[0] = %+v", s.TopSkills[0])
	}
	if s.TopSkills[1].Count != 2 || s.TopSkills[1].Skill != "GraphQL" {
		t.Fatalf("TopSkills[1] = %+v", s.TopSkills[1])
	}
}

func TestSummarizeEmpty(t *testing.T) {
	s := Summarize(nil)
	if s.TotalEmployees != 0 || s.AvailabilityRate != 0 || s.Teams == nil || s.TopSkills == nil {
		t.Fatalf("Summarize(nil) = %+v", s)
	}
}
