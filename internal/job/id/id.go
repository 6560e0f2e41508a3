// Package id generates job identifiers.
package id

import (
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
)

// timeLayout keeps identifiers sortable by creation time when they are used
// as object key prefixes.
const timeLayout = "20060102T150405Z"

// Generate creates a new unique job ID.
// Format: job-<utc timestamp>-<random>
// Example: job-20261017T093000Z-a1b2c3d4e5f6
func Generate() string {
	timestamp := time.Now().UTC().Format(timeLayout)
	random := strings.ReplaceAll(uuid.New().String(), "-", "")[:12]
	return fmt.Sprintf("job-%s-%s", timestamp, random)
}
