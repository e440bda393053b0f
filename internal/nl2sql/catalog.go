// Package nl2sql turns a free-text staffing request into a single read-only
// SELECT statement that is pinned to one table and restricted to that
// table's allow-listed columns.
package nl2sql

import (
	"fmt"
	"regexp"
	"strings"
)

var identifierPattern = regexp.MustCompile(`^[A-Za-z_][A-Za-z0-9_]*$`)

// TableProfile is the caller-owned allow-list for one table. Generated SQL
// may only select these columns; the list is never derived from model output.
type TableProfile struct {
	Table   string
	Columns []string
}

func (p TableProfile) validate() error {
	if !identifierPattern.MatchString(p.Table) {
		return fmt.Errorf("invalid table name %q", p.Table)
	}
	if len(p.Columns) == 0 {
		return fmt.Errorf("table %s has an empty column allow-list", p.Table)
	}
	for _, column := range p.Columns {
		if !identifierPattern.MatchString(column) {
			return fmt.Errorf("table %s allow-list has invalid column %q", p.Table, column)
		}
	}
	return nil
}

func (p TableProfile) allows(column string) bool {
	for _, allowed := range p.Columns {
		if strings.EqualFold(allowed, column) {
			return true
		}
	}
	return false
}

// Catalog maps lower-cased table names to their profiles. It is built once at
// startup and only read afterwards.
type Catalog map[string]TableProfile

func NewCatalog(profiles ...TableProfile) Catalog {
	catalog := make(Catalog, len(profiles))
	for _, profile := range profiles {
		catalog[strings.ToLower(profile.Table)] = profile
	}
	return catalog
}

func (c Catalog) Lookup(table string) (TableProfile, bool) {
	profile, ok := c[strings.ToLower(strings.TrimSpace(table))]
	return profile, ok
}

const (
	TableEmployees = "employees"
	TableDemands   = "demands"
)

// DefaultCatalog covers the two tables exposed through the search endpoints.
func DefaultCatalog() Catalog {
	return NewCatalog(
		TableProfile{
			Table: TableEmployees,
			Columns: []string{
				"id", "name", "skills", "qualifications", "strength",
				"availability", "team", "role",
			},
		},
		TableProfile{
			Table: TableDemands,
			Columns: []string{
				"id", "sno", "project_id", "account_id", "role", "roleCode", "location", "revised",
				"originalStartDate", "allocationEndDate", "allocationPercentage", "probability", "status",
				"resourceMapped", "comment", "lastUpdatedBy", "updatedOn", "addedBy", "addedOn",
				"startMonth", "billingRate", "fulfillmentDate",
			},
		},
	)
}
