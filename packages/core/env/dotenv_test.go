package env

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseDotEnv(t *testing.T) {
	tests := []struct {
		name     string
		content  string
		expected map[string]string
	}{
		{"simple", "TOKEN=abc", map[string]string{"TOKEN": "abc"}},
		{"double quoted", `TOKEN="a b"`, map[string]string{"TOKEN": "a b"}},
		{"single quoted", `TOKEN='a b'`, map[string]string{"TOKEN": "a b"}},
		{"mismatched quotes kept", `TOKEN="a b'`, map[string]string{"TOKEN": `"a b'`}},
		{"export prefix", "export HOST=api.local", map[string]string{"HOST": "api.local"}},
		{"whitespace trimmed", "  HOST  =  api.local  ", map[string]string{"HOST": "api.local"}},
		{"value keeps equals", "DSN=postgres://u:p@h/db?ssl=true", map[string]string{"DSN": "postgres://u:p@h/db?ssl=true"}},
		{"comments and blanks", "# c\n\nA=1\n  # d\nB=2", map[string]string{"A": "1", "B": "2"}},
		{"lines without key skipped", "=x\nnoequals\nA=1", map[string]string{"A": "1"}},
		{"later wins", "A=1\nA=2", map[string]string{"A": "2"}},
		{"inline comment is value", "A=1 # not a comment", map[string]string{"A": "1 # not a comment"}},
		{"empty", "", map[string]string{}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			vars, err := ParseDotEnv(strings.NewReader(tt.content))
			require.NoError(t, err)
			assert.Equal(t, tt.expected, vars)
		})
	}
}

func TestLoadDotEnv(t *testing.T) {
	path := filepath.Join(t.TempDir(), ".env")
	require.NoError(t, os.WriteFile(path, []byte("BASE_URL=http://localhost:8080\n"), 0644))

	vars, err := LoadDotEnv(path)
	require.NoError(t, err)
	assert.Equal(t, map[string]string{"BASE_URL": "http://localhost:8080"}, vars)

	_, err = LoadDotEnv(filepath.Join(t.TempDir(), "missing.env"))
	assert.Error(t, err)
}
