package loader

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/oauthmw/redirect-gateway/config"
	"github.com/oauthmw/redirect-gateway/internal/log"
	"github.com/sirupsen/logrus"
)

func testLogger() log.Logger {
	l := logrus.New()
	l.SetOutput(os.Stderr)
	return log.NewLogrusLogger(l)
}

func writeConfig(t *testing.T, path, contents string) {
	t.Helper()
	require.NoError(t, os.WriteFile(path, []byte(contents), 0o644))
}

func TestLoaderPublishesOnFirstRead(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.json")
	writeConfig(t, path, `[{"tokenUri":"https://p/t","clientId":"cid","clientSecret":"sec","redirectBackHosts":["x.test"]}]`)

	var got []config.Document
	l := New(path, time.Hour, testLogger(), nil, func(d config.Document) {
		got = append(got, d)
	})

	l.tick()
	require.Len(t, got, 1)
	require.Len(t, got[0].Remote, 1)
}

func TestLoaderIgnoresUnchangedContent(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.json")
	writeConfig(t, path, `[]`)

	calls := 0
	l := New(path, time.Hour, testLogger(), nil, func(config.Document) { calls++ })

	l.tick()
	l.tick()
	require.Equal(t, 1, calls)
}

func TestLoaderKeepsLastGoodRegistryOnDecodeError(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.json")
	writeConfig(t, path, `[{"tokenUri":"https://p/t","clientId":"cid","clientSecret":"sec","redirectBackHosts":["x.test"]}]`)

	calls := 0
	l := New(path, time.Hour, testLogger(), nil, func(config.Document) { calls++ })
	l.tick()
	require.Equal(t, 1, calls)

	writeConfig(t, path, `not json at all`)
	l.tick()
	require.Equal(t, 1, calls, "decode error must not invoke OnReload")
}

func TestLoaderInvokesOnUnchangedForAnUnchangedSuccessfulRead(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.json")
	writeConfig(t, path, `[]`)

	l := New(path, time.Hour, testLogger(), nil, func(config.Document) {})
	unchanged := 0
	l.OnUnchanged = func() { unchanged++ }

	l.tick()
	require.Equal(t, 0, unchanged, "the first read has nothing to reconfirm as unchanged")

	l.tick()
	l.tick()
	require.Equal(t, 2, unchanged, "every later tick that finds the file unchanged must reconfirm health")
}

func TestLoaderDoesNotInvokeOnUnchangedOnFailedRead(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.json")
	writeConfig(t, path, `[]`)

	l := New(path, time.Hour, testLogger(), nil, func(config.Document) {})
	unchanged := 0
	l.OnUnchanged = func() { unchanged++ }

	l.tick()
	l.tick()
	require.Equal(t, 1, unchanged)

	require.NoError(t, os.Remove(path))
	l.tick()
	require.Equal(t, 1, unchanged, "a failed read must not invoke OnUnchanged")
}

func TestLoaderDoesNotInvokeOnUnchangedWhenDecodeFails(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.json")
	writeConfig(t, path, `[]`)

	l := New(path, time.Hour, testLogger(), nil, func(config.Document) {})
	unchanged := 0
	l.OnUnchanged = func() { unchanged++ }

	l.tick()
	require.Equal(t, 0, unchanged)

	writeConfig(t, path, `not json at all`)
	l.tick()
	require.Equal(t, 0, unchanged, "a read whose decode fails has not reconfirmed a good state")

	writeConfig(t, path, `not json at all`)
	l.tick()
	require.Equal(t, 0, unchanged, "repeating the same broken content must stay unconfirmed, not be treated as unchanged-good")
}

func TestLoaderSurvivesTransientReadFailure(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.json")
	writeConfig(t, path, `[]`)

	calls := 0
	l := New(path, time.Hour, testLogger(), nil, func(config.Document) { calls++ })
	l.tick()
	require.Equal(t, 1, calls)

	require.NoError(t, os.Remove(path))
	l.tick()
	require.Equal(t, 1, calls, "a failed read must not clear the existing state")

	writeConfig(t, path, `[{"port":5000}]`)
	l.tick()
	require.Equal(t, 2, calls)
}

func TestLoaderAdoptsNewSamplePeriod(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.json")
	writeConfig(t, path, `[{"configSamplePeriod":7}]`)

	l := New(path, time.Hour, testLogger(), nil, func(config.Document) {})
	l.tick()
	require.Equal(t, 7*time.Second, l.period)
}

func TestLoaderDisablesPollingOnZeroPeriod(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.json")
	writeConfig(t, path, `[{"configSamplePeriod":0}]`)

	l := New(path, time.Hour, testLogger(), nil, func(config.Document) {})
	l.tick()
	require.Equal(t, time.Duration(0), l.period)
}

func TestRunStopsOnContextCancel(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.json")
	writeConfig(t, path, `[{"configSamplePeriod":0}]`)

	l := New(path, time.Hour, testLogger(), nil, func(config.Document) {})

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- l.Run(ctx) }()

	cancel()
	select {
	case err := <-done:
		require.ErrorIs(t, err, context.Canceled)
	case <-time.After(time.Second):
		t.Fatal("Run did not stop after cancel")
	}
}
