package logger

import (
	"bytes"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
)

func TestSetLevelAcceptsServerModes(t *testing.T) {
	defer SetLevel("info")

	SetLevel("release")
	assert.Equal(t, zerolog.InfoLevel, zerolog.GlobalLevel())

	SetLevel("debug")
	assert.Equal(t, zerolog.DebugLevel, zerolog.GlobalLevel())

	SetLevel("warn")
	assert.Equal(t, zerolog.WarnLevel, zerolog.GlobalLevel())

	SetLevel("not-a-level")
	assert.Equal(t, zerolog.InfoLevel, zerolog.GlobalLevel())
}

func TestComponentTagsSublogger(t *testing.T) {
	var buf bytes.Buffer
	sub := Component("storage").Output(&buf)

	sub.Info().Msg("backend ready")
	assert.Contains(t, buf.String(), `"component":"storage"`)
}
