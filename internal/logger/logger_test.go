package logger

import (
	"bytes"
	"encoding/json"
	"testing"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewParsesLevel(t *testing.T) {
	assert.Equal(t, logrus.DebugLevel, New("debug").GetLevel())
	assert.Equal(t, logrus.InfoLevel, New("chatty").GetLevel())
}

func TestNewWritesJSON(t *testing.T) {
	log := New("info")
	var buf bytes.Buffer
	log.SetOutput(&buf)

	log.WithFields(logrus.Fields{"advance_id": 3}).Info("advance approved")

	var entry map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &entry))
	assert.Equal(t, "advance approved", entry["msg"])
	assert.EqualValues(t, 3, entry["advance_id"])
}
