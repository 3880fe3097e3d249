package logging

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
)

func TestGetBeforeInitializeIsNoop(t *testing.T) {
	CloseAll()
	assert.False(t, IsDebugMode())
	assert.False(t, IsCategoryEnabled(CategoryAPI))

	// Must not panic.
	Get(CategoryAPI).Info("nothing %d", 1)
	API("still nothing")
}

func TestUseRoutesCategoriesByName(t *testing.T) {
	core, logs := observer.New(zapcore.DebugLevel)
	Use(zap.New(core))
	defer CloseAll()

	APIDebug("POST %s", "/api/v1/content/generate")
	Publish("published %s", "c1")
	Get(CategoryGeneration).With("seq", uint64(3)).Warn("dropped")

	entries := logs.All()
	require.Len(t, entries, 3)

	assert.Equal(t, "api", entries[0].LoggerName)
	assert.Equal(t, "POST /api/v1/content/generate", entries[0].Message)
	assert.Equal(t, zapcore.DebugLevel, entries[0].Level)

	assert.Equal(t, "publish", entries[1].LoggerName)
	assert.Equal(t, zapcore.InfoLevel, entries[1].Level)

	assert.Equal(t, "generation", entries[2].LoggerName)
	assert.Equal(t, uint64(3), entries[2].ContextMap()["seq"])
}

func TestInitializeDisabledCategory(t *testing.T) {
	dir := t.TempDir()
	err := Initialize(Options{
		Dir:        dir,
		Level:      "debug",
		DebugMode:  true,
		Categories: map[string]bool{"store": false, "api": true},
	})
	require.NoError(t, err)

	assert.True(t, IsCategoryEnabled(CategoryAPI))
	assert.False(t, IsCategoryEnabled(CategoryStore))

	API("visible entry")
	Store("hidden entry")
	CloseAll()

	data, err := os.ReadFile(filepath.Join(dir, LogFileName))
	require.NoError(t, err)
	content := string(data)
	assert.Contains(t, content, "visible entry")
	assert.NotContains(t, content, "hidden entry")
	assert.Contains(t, content, "campaigner logging initialized")
}

func TestInitializeProductionModeWritesNothing(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "logs")
	require.NoError(t, Initialize(Options{Dir: dir, DebugMode: false}))
	defer CloseAll()

	API("dropped")
	_, err := os.Stat(dir)
	assert.True(t, os.IsNotExist(err))
}

func TestInitializeJSONFormat(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, Initialize(Options{Dir: dir, Level: "info", DebugMode: true, JSONFormat: true}))
	Campaign("saved %s", "c9")
	CampaignDebug("below level")
	CloseAll()

	data, err := os.ReadFile(filepath.Join(dir, LogFileName))
	require.NoError(t, err)
	var found bool
	for _, line := range strings.Split(strings.TrimSpace(string(data)), "\n") {
		if strings.Contains(line, `"logger":"campaign"`) {
			found = true
			assert.Contains(t, line, `"msg":"saved c9"`)
		}
		assert.NotContains(t, line, "below level")
	}
	assert.True(t, found, "expected a campaign entry in %s", data)
}

func TestInitializeRequiresDir(t *testing.T) {
	err := Initialize(Options{DebugMode: true})
	assert.Error(t, err)
}

func TestTimerStop(t *testing.T) {
	core, logs := observer.New(zapcore.DebugLevel)
	Use(zap.New(core))
	defer CloseAll()

	timer := StartTimer(CategoryStore, "LoadDraft")
	elapsed := timer.Stop()
	assert.GreaterOrEqual(t, int64(elapsed), int64(0))
	require.Equal(t, 1, logs.Len())
	assert.Contains(t, logs.All()[0].Message, "LoadDraft completed in")
}

func TestTimerStopWithThreshold(t *testing.T) {
	core, logs := observer.New(zapcore.DebugLevel)
	Use(zap.New(core))
	defer CloseAll()

	StartTimer(CategoryAPI, "fast").StopWithThreshold(time.Hour)
	slow := StartTimer(CategoryAPI, "slow")
	time.Sleep(2 * time.Millisecond)
	slow.StopWithThreshold(time.Millisecond)

	entries := logs.All()
	require.Len(t, entries, 2)
	assert.Equal(t, zapcore.DebugLevel, entries[0].Level)
	assert.Contains(t, entries[0].Message, "fast completed in")
	assert.Equal(t, zapcore.WarnLevel, entries[1].Level)
	assert.Contains(t, entries[1].Message, "slow took")
	assert.Contains(t, entries[1].Message, "threshold: 1ms")
}
