package logging

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func TestSanitizeDSN(t *testing.T) {
	tests := []struct {
		name, dsn, expected string
	}{
		{"empty", "", ""},
		{"sqlite path", "var/app.db", "var/app.db"},
		{"url", "postgres://app:s3cret@db:5432/app?sslmode=disable", "postgres://app:[REDACTED]@db:5432/app?sslmode=disable"},
		{"url without password", "postgres://app@db/app", "postgres://app@db/app"},
		{"keyword", "host=db user=app password=s3cret dbname=app", "host=db user=app password=[REDACTED] dbname=app"},
		{"mysql", "app:s3cret@tcp(db:3306)/app?parseTime=true", "app:[REDACTED]@tcp(db:3306)/app?parseTime=true"},
		{"query parameter", "sqlserver://db?user=app&pwd=s3cret", "sqlserver://db?user=app&pwd=[REDACTED]"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, SanitizeDSN(tt.dsn))
		})
	}
}

func TestNew(t *testing.T) {
	l, err := New("debug", "console")
	require.NoError(t, err)
	assert.True(t, l.Core().Enabled(zap.DebugLevel))

	l, err = New("error", "json")
	require.NoError(t, err)
	assert.False(t, l.Core().Enabled(zap.WarnLevel))
	assert.True(t, l.Core().Enabled(zap.ErrorLevel))

	_, err = New("loud", "console")
	assert.Error(t, err)
}
