package logging

import (
	"bytes"
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNew_JSON(t *testing.T) {
	var buf bytes.Buffer
	logger, err := New("warn", "json", &buf)
	require.NoError(t, err)

	logger.Info("hidden")
	logger.Warn("shown", "species_id", 7)

	var line map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &line))
	assert.Equal(t, "shown", line["msg"])
	assert.Equal(t, float64(7), line["species_id"])
}

func TestNew_Text(t *testing.T) {
	var buf bytes.Buffer
	logger, err := New("DEBUG", "text", &buf)
	require.NoError(t, err)

	logger.Debug("hello")
	assert.Contains(t, buf.String(), "msg=hello")
}

func TestNew_Invalid(t *testing.T) {
	_, err := New("loud", "text", &bytes.Buffer{})
	assert.Error(t, err)

	_, err = New("info", "xml", &bytes.Buffer{})
	assert.Error(t, err)
}
