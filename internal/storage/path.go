package storage

import (
	"fmt"
	"path"
	"regexp"
	"time"
)

var pathComponentPattern = regexp.MustCompile(`^[a-zA-Z0-9][a-zA-Z0-9._-]{0,127}$`)

// BuildUploadPrefix returns uploads/<table>/date=YYYY-MM-DD/<upload id>. The
// date is taken in UTC.
func BuildUploadPrefix(tableName string, uploadedAt time.Time, uploadID string) (string, error) {
	if err := validatePathComponent(tableName, "table name"); err != nil {
		return "", err
	}
	if err := validatePathComponent(uploadID, "upload id"); err != nil {
		return "", err
	}
	ts := uploadedAt.UTC()
	return path.Join(
		"uploads",
		tableName,
		fmt.Sprintf("date=%04d-%02d-%02d", ts.Year(), ts.Month(), ts.Day()),
		uploadID,
	), nil
}

// BuildUploadObjectPath joins an upload prefix with an object file name.
func BuildUploadObjectPath(prefix, fileName string) (string, error) {
	if err := validatePathComponent(fileName, "file name"); err != nil {
		return "", err
	}
	return path.Join(prefix, fileName), nil
}

func validatePathComponent(value, field string) error {
	if !pathComponentPattern.MatchString(value) {
		return fmt.Errorf("invalid %s: %q", field, value)
	}
	return nil
}
