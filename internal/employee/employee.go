// Package employee holds the in-memory employee directory and the mapping
// from database rows to employee records.
package employee

import (
	"errors"
	"strings"
)

var ErrNotFound = errors.New("employee not found")

const (
	AvailabilityAvailable          = "Available"
	AvailabilityPartiallyAvailable = "Partially Available"
	AvailabilityNotAvailable       = "Not Available"
)

type Employee struct {
	ID             int      `json:"id"`
	Name           string   `json:"name"`
	Skills         []string `json:"skills"`
	Qualifications []string `json:"qualifications"`
	Strength       int      `json:"strength"`
	Availability   string   `json:"availability"`
	Team           string   `json:"team"`
	Role           string   `json:"role,omitempty"`
}

type Filter struct {
	Skill        string
	Availability string
	Team         string
}

func (f Filter) matches(e Employee) bool {
	if skill := strings.ToLower(strings.TrimSpace(f.Skill)); skill != "" {
		found := false
		for _, s := range e.Skills {
			if strings.Contains(strings.ToLower(s), skill) {
				found = true
				break
			}
		}
		if !found {
			return false
		}
	}
	if f.Availability != "" && !strings.EqualFold(e.Availability, strings.TrimSpace(f.Availability)) {
		return false
	}
	if f.Team != "" && !strings.EqualFold(e.Team, strings.TrimSpace(f.Team)) {
		return false
	}
	return true
}

// Store is a read-only directory. It is populated once at startup and safe
// for concurrent readers.
type Store struct {
	employees []Employee
}

func NewStore(employees []Employee) *Store {
	copied := make([]Employee, len(employees))
	for i, e := range employees {
		copied[i] = e.clone()
	}
	return &Store{employees: copied}
}

func (s *Store) List() []Employee {
	out := make([]Employee, len(s.employees))
	for i, e := range s.employees {
		out[i] = e.clone()
	}
	return out
}

func (s *Store) Get(id int) (Employee, error) {
	for _, e := range s.employees {
		if e.ID == id {
			return e.clone(), nil
		}
	}
	return Employee{}, ErrNotFound
}

func (s *Store) Filter(f Filter) []Employee {
	out := make([]Employee, 0)
	for _, e := range s.employees {
		if f.matches(e) {
			out = append(out, e.clone())
		}
	}
	return out
}

func (e Employee) clone() Employee {
	e.Skills = append([]string(nil), e.Skills...)
	e.Qualifications = append([]string(nil), e.Qualifications...)
	if e.Skills == nil {
		e.Skills = []string{}
	}
	if e.Qualifications == nil {
		e.Qualifications = []string{}
	}
	return e
}
