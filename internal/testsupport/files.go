package testsupport

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

// ContributionHeader is the header of the contribution exports the cleaner reads.
var ContributionHeader = []string{
	"",
	"contributor_occupation",
	"contributor_employer",
	"contributor_city",
	"contributor_state",
	"contributor_zip",
	"party",
}

// WriteCSV writes lines (already comma separated) below a ContributionHeader
// line, creating parent directories as needed.
func WriteCSV(t testing.TB, path string, lines ...string) {
	t.Helper()

	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		t.Fatalf("mkdir for %s: %v", path, err)
	}
	body := strings.Join(ContributionHeader, ",") + "\n"
	for _, line := range lines {
		body += line + "\n"
	}
	if err := os.WriteFile(path, []byte(body), 0o644); err != nil {
		t.Fatalf("write %s: %v", path, err)
	}
}
