package main

import (
	"bytes"
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/eintrusts/MahacapV2/internal/app"
	"github.com/eintrusts/MahacapV2/internal/cloudsync"
	"github.com/eintrusts/MahacapV2/internal/config"
	"github.com/eintrusts/MahacapV2/internal/domain"
	"github.com/eintrusts/MahacapV2/internal/drive"
	"github.com/eintrusts/MahacapV2/internal/service"
	"github.com/eintrusts/MahacapV2/internal/statefile"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

// sharedApp hands the same in-memory App to every command so state
// survives between invocations.
func sharedApp(t *testing.T) (*app.App, appFactory) {
	t.Helper()
	cfg := &config.Config{StoreBackend: config.StoreMemory, Cities: domain.DefaultCities}
	cfg.Cloud.Backend = config.CloudMemory
	cfg.Cloud.RootFolder = "MahaCAP"
	cfg.Cloud.StateFilename = statefile.DefaultFilename
	cfg.Cloud.ReplaceStrategy = cloudsync.CreateThenDelete

	a, err := app.New(context.Background(), cfg, zap.NewNop())
	require.NoError(t, err)
	return a, func(context.Context) (*app.App, *zap.Logger, error) {
		return a, zap.NewNop(), nil
	}
}

func run(t *testing.T, f appFactory, args ...string) (string, error) {
	t.Helper()
	cmd := newRootCmd(f)
	var out, errOut bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetErr(&errOut)
	cmd.SetArgs(args)
	err := cmd.Execute()
	return out.String(), err
}

func TestResolve_Idempotent(t *testing.T) {
	_, f := sharedApp(t)

	first, err := run(t, f, "resolve", "MahaCAP")
	require.NoError(t, err)
	second, err := run(t, f, "resolve", "MahaCAP")
	require.NoError(t, err)
	assert.NotEmpty(t, strings.TrimSpace(first))
	assert.Equal(t, first, second)

	child, err := run(t, f, "resolve", "Pune", "--parent", strings.TrimSpace(first))
	require.NoError(t, err)
	assert.NotEqual(t, first, child)
}

func TestPushThenPull(t *testing.T) {
	_, f := sharedApp(t)
	dir := t.TempDir()

	recs := domain.CityRecords{"Pune": {District: "Pune", CAPStatus: domain.CAPCompleted}}
	raw, err := statefile.Encode(recs)
	require.NoError(t, err)
	src := filepath.Join(dir, "state.json")
	require.NoError(t, os.WriteFile(src, raw, 0o600))

	out, err := run(t, f, "push", src)
	require.NoError(t, err)
	assert.Contains(t, out, "uploaded 1 cities")

	dst := filepath.Join(dir, "pulled.json")
	_, err = run(t, f, "pull", "-o", dst)
	require.NoError(t, err)
	pulled, err := os.ReadFile(dst)
	require.NoError(t, err)
	got, err := statefile.Decode(pulled)
	require.NoError(t, err)
	assert.Equal(t, domain.CAPCompleted, got["Pune"].CAPStatus)

	out, err = run(t, f, "pull")
	require.NoError(t, err)
	assert.Contains(t, out, `"Pune"`)
}

func TestPull_NoSnapshot(t *testing.T) {
	_, f := sharedApp(t)
	_, err := run(t, f, "pull", "--city", "Nagpur")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "no snapshot")
}

func TestPush_RejectsBadFile(t *testing.T) {
	_, f := sharedApp(t)
	src := filepath.Join(t.TempDir(), "state.json")
	require.NoError(t, os.WriteFile(src, []byte("[1,2]"), 0o600))

	_, err := run(t, f, "push", src)
	require.ErrorIs(t, err, statefile.ErrDecode)
}

func TestSaveThenLoad(t *testing.T) {
	a, f := sharedApp(t)
	ctx := context.Background()
	_, err := a.Merger.ApplyProfile(ctx, "Thane", domain.CityProfile{CAPStatus: domain.CAPInProgress})
	require.NoError(t, err)

	out, err := run(t, f, "save")
	require.NoError(t, err)
	var saved service.SaveReport
	require.NoError(t, json.Unmarshal([]byte(out), &saved))
	assert.Equal(t, 1, saved.Cities)

	require.NoError(t, a.Store.Replace(ctx, domain.CityRecords{}))

	out, err = run(t, f, "load", "--mode", "merge")
	require.NoError(t, err)
	var loaded service.LoadReport
	require.NoError(t, json.Unmarshal([]byte(out), &loaded))
	assert.True(t, loaded.Found)
	assert.Equal(t, service.LoadMerge, loaded.Mode)

	rec, err := a.Store.Get(ctx, "Thane")
	require.NoError(t, err)
	assert.Equal(t, domain.CAPInProgress, rec.CAPStatus)

	_, err = run(t, f, "load", "--mode", "overwrite")
	require.ErrorIs(t, err, domain.ErrValidation)
}

func TestCommands_FailWithoutCredentials(t *testing.T) {
	cfg := &config.Config{StoreBackend: config.StoreMemory, Cities: domain.DefaultCities, Secrets: map[string]string{}}
	cfg.Cloud.Backend = config.CloudAuto
	cfg.Cloud.RootFolder = "MahaCAP"
	cfg.Cloud.ReplaceStrategy = cloudsync.CreateThenDelete
	f := func(ctx context.Context) (*app.App, *zap.Logger, error) {
		a, err := app.New(ctx, cfg, zap.NewNop())
		return a, zap.NewNop(), err
	}

	_, err := run(t, f, "save")
	require.ErrorIs(t, err, drive.ErrNoCredentials)
	_, err = run(t, f, "pull")
	require.ErrorIs(t, err, drive.ErrNoCredentials)
	_, err = run(t, f, "resolve", "MahaCAP")
	require.ErrorIs(t, err, drive.ErrNoCredentials)
}
