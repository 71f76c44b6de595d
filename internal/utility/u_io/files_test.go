package u_io

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestCleanFilename(t *testing.T) {
	tests := map[string]string{
		"report.pdf":        "report.pdf",
		"my report (1).pdf": "my report _1_.pdf",
		"../etc/passwd":     "_etc_passwd",
		"a\\b.txt":          "a_b.txt",
		"  spaced.txt  ":    "spaced.txt",
		".hidden":           "hidden",
		"...":               "_",
		"résumé.docx":       "r_sum_.docx",
	}

	for in, want := range tests {
		assert.Equal(t, want, CleanFilename(in), in)
	}
}
