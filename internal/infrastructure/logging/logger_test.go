package logging

import (
	"bytes"
	"encoding/json"
	"testing"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/require"

	config "github.com/avatarctic/service-kit/configs"
)

func TestNew_FormatAndLevel(t *testing.T) {
	var buf bytes.Buffer
	logger := NewWithOutput(&config.LogConfig{Level: "debug", Format: "json"}, &buf)
	require.Equal(t, logrus.DebugLevel, logger.GetLevel())

	logger.WithField("k", "v").Debug("hello")
	var line map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &line))
	require.Equal(t, "hello", line["msg"])
	require.Equal(t, "v", line["k"])
}

func TestNew_UnknownLevelFallsBackToInfo(t *testing.T) {
	var buf bytes.Buffer
	logger := NewWithOutput(&config.LogConfig{Level: "chatty", Format: "text"}, &buf)
	require.Equal(t, logrus.InfoLevel, logger.GetLevel())
	require.Contains(t, buf.String(), "unknown log level")
}

func TestJSON(t *testing.T) {
	var buf bytes.Buffer
	logger := NewWithOutput(&config.LogConfig{Level: "info", Format: "text"}, &buf)

	JSON(logger, `{"a":1}`)
	require.Contains(t, buf.String(), `\"a\": 1`)

	buf.Reset()
	JSON(logger, map[string]int{"b": 2})
	require.Contains(t, buf.String(), `\"b\": 2`)

	buf.Reset()
	JSON(logger, "{not json")
	require.Contains(t, buf.String(), "level=warning")

	buf.Reset()
	JSON(logger, func() {})
	require.Contains(t, buf.String(), "level=warning")

	JSON(nil, "{}")
}
