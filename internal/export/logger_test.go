package export

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestLogger_DebugGate(t *testing.T) {
	var quiet, loud bytes.Buffer

	NewLogger(&quiet, false).Debugf("hidden %d", 1)
	NewLogger(&quiet, false).Dump("hidden", map[string]int{"a": 1})
	NewLogger(&quiet, false).Warnf("shown %s", "warn")

	NewLogger(&loud, true).Debugf("visible %d", 2)
	NewLogger(&loud, true).Dump("changes", []string{"PatientID"})

	assert.NotContains(t, quiet.String(), "hidden")
	assert.Contains(t, quiet.String(), "WARN: shown warn")
	assert.Contains(t, loud.String(), "DEBUG: visible 2")
	assert.Contains(t, loud.String(), "DEBUG: changes:")
	assert.Contains(t, loud.String(), "PatientID")
}
