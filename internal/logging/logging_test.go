package logging

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestConfigure_Level(t *testing.T) {
	log := logrus.New()

	closer, err := configure(log, Options{Level: "debug", Format: "json"})
	require.NoError(t, err)
	defer closer.Close()

	assert.Equal(t, logrus.DebugLevel, log.GetLevel())
	assert.IsType(t, &logrus.JSONFormatter{}, log.Formatter)
}

func TestConfigure_Invalid(t *testing.T) {
	_, err := configure(logrus.New(), Options{Level: "loud"})
	assert.Error(t, err)

	_, err = configure(logrus.New(), Options{Format: "xml"})
	assert.Error(t, err)
}

func TestConfigure_FileHook(t *testing.T) {
	path := filepath.Join(t.TempDir(), "anonbox.log")
	log := logrus.New()

	closer, err := configure(log, Options{File: path})
	require.NoError(t, err)

	log.WithField("user", "alice").Info("registered")
	require.NoError(t, closer.Close())

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(data), "registered")
	assert.Contains(t, string(data), "user=alice")
}
