package buildinfo

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestStringPrefersLdflags(t *testing.T) {
	oldV, oldC, oldD := Version, Commit, Date
	t.Cleanup(func() { Version, Commit, Date = oldV, oldC, oldD })

	Version, Commit, Date = "v1.2.0", "abc123", "2025-04-01"
	assert.Equal(t, "v1.2.0 (commit: abc123, built: 2025-04-01)", String())
}
