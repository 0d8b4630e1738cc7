package gate

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func envFunc(vars map[string]string) func(string) string {
	return func(key string) string { return vars[key] }
}

func TestCanonicalEncoding(t *testing.T) {
	assert.Equal(t, "UTF-8", CanonicalEncoding("UTF-8"))
	assert.Equal(t, "UTF-8", CanonicalEncoding("utf-8"))
	assert.Equal(t, "UTF-8", CanonicalEncoding("utf8"))
	assert.Equal(t, "", CanonicalEncoding("  "))
	assert.Equal(t, "no-such-charset", CanonicalEncoding("no-such-charset"))
}

func TestDetectEncoding(t *testing.T) {
	tests := []struct {
		name string
		vars map[string]string
		want string
	}{
		{"LANG utf8", map[string]string{"LANG": "en_US.UTF-8"}, "UTF-8"},
		{"lowercase codeset", map[string]string{"LANG": "de_DE.utf8"}, "UTF-8"},
		{"LC_ALL wins", map[string]string{"LC_ALL": "C", "LANG": "en_US.UTF-8"}, "US-ASCII"},
		{"LC_CTYPE before LANG", map[string]string{"LC_CTYPE": "sv_SE.UTF-8@euro", "LANG": "C"}, "UTF-8"},
		{"POSIX", map[string]string{"LANG": "POSIX"}, "US-ASCII"},
		{"unset", map[string]string{}, "US-ASCII"},
		{"language only", map[string]string{"LANG": "en_US"}, ""},
		{"language with modifier", map[string]string{"LANG": "de_DE@euro"}, ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, DetectEncoding(envFunc(tt.vars)))
		})
	}
}
