package config

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type sampleConfig struct {
	Name  string `split_words:"true" required:"true"`
	Limit int    `split_words:"true" default:"80"`
}

var errLimit = errors.New("limit must be positive")

func (c sampleConfig) Validate() error {
	if c.Limit <= 0 {
		return errLimit
	}
	return nil
}

func TestNewAppliesDefaultsAndValidation(t *testing.T) {
	t.Setenv("SAMPLE_NAME", "dikas")

	conf, err := New[sampleConfig]("SAMPLE")
	require.NoError(t, err)
	assert.Equal(t, "dikas", conf.Name)
	assert.Equal(t, 80, conf.Limit)

	t.Setenv("SAMPLE_LIMIT", "0")
	_, err = New[sampleConfig]("SAMPLE")
	assert.ErrorIs(t, err, errLimit)
}

func TestExportEnvironmentFromFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "test.env")
	require.NoError(t, os.WriteFile(path, []byte("DIKAS_TEST_EXPORTED=yes\n"), 0o600))
	t.Cleanup(func() { _ = os.Unsetenv("DIKAS_TEST_EXPORTED") })

	require.NoError(t, exportEnvironment(path))
	assert.Equal(t, "yes", os.Getenv("DIKAS_TEST_EXPORTED"))
}

func TestExportEnvironmentKeepsProcessValues(t *testing.T) {
	path := filepath.Join(t.TempDir(), "test.env")
	require.NoError(t, os.WriteFile(path, []byte("DIKAS_TEST_KEPT=file\nDIKAS_TEST_ADDED=file\n"), 0o600))
	t.Setenv("DIKAS_TEST_KEPT", "process")
	t.Cleanup(func() { _ = os.Unsetenv("DIKAS_TEST_ADDED") })

	require.NoError(t, exportEnvironment(path))
	assert.Equal(t, "process", os.Getenv("DIKAS_TEST_KEPT"))
	assert.Equal(t, "file", os.Getenv("DIKAS_TEST_ADDED"))
}
