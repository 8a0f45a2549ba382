package logger

import (
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestMaskEmail(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"", ""},
		{"max.mustermann@example.de", "ma...n@example.de"},
		{"ab@example.de", "**@example.de"},
		{"not-an-email", "no...il"},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			assert.Equal(t, tt.want, MaskEmail(tt.in))
		})
	}
}

func TestMaskConnectionString(t *testing.T) {
	assert.Equal(t,
		"postgres://audit:***@db:5432/website?sslmode=disable",
		MaskConnectionString("postgres://audit:hunter2@db:5432/website?sslmode=disable"))
	assert.Equal(t,
		"host=db password=*** dbname=website",
		MaskConnectionString("host=db password=hunter2 dbname=website"))
	assert.Equal(t, "host=db password=***", MaskConnectionString("host=db password=hunter2"))
}

func TestFilterSensitiveHeaders(t *testing.T) {
	h := http.Header{}
	h.Set("Authorization", "Bearer abc")
	h.Set("X-Api-Key", "k")
	h.Set("User-Agent", "curl/8")

	got := filterSensitiveHeaders(h)
	assert.Equal(t, "[REDACTED]", got["Authorization"])
	assert.Equal(t, "[REDACTED]", got["X-Api-Key"])
	assert.Equal(t, "curl/8", got["User-Agent"])
}
