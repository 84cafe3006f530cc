package main

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/couchcryptid/drug-kpi-dashboard/internal/dashboard"
	"github.com/couchcryptid/drug-kpi-dashboard/internal/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRun_OutputValidates(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, run(options{out: dir, seed: 7, from: 2018, to: 2022}))

	checks := dashboard.Validate(context.Background(), dashboard.NewFileSource(dir))
	require.NoError(t, dashboard.Failed(checks))
}

func TestRun_Deterministic(t *testing.T) {
	a, b := t.TempDir(), t.TempDir()
	require.NoError(t, run(options{out: a, seed: 3, from: 2020, to: 2021}))
	require.NoError(t, run(options{out: b, seed: 3, from: 2020, to: 2021}))

	for _, rel := range []string{dashboard.UsageFile, dashboard.ForecastFile("arrests"), dashboard.TrendsFile} {
		want, err := os.ReadFile(filepath.Join(a, rel))
		require.NoError(t, err)
		got, err := os.ReadFile(filepath.Join(b, rel))
		require.NoError(t, err)
		assert.Equal(t, string(want), string(got), rel)
	}
}

func TestRun_ServesEveryRegion(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, run(options{out: dir, seed: 1, from: 2020, to: 2024, xlsx: true}))
	_, err := os.Stat(filepath.Join(dir, dashboard.UsageFile))
	require.ErrorIs(t, err, os.ErrNotExist, "usage written as workbook only")

	src := dashboard.NewFileSource(dir)
	require.NoError(t, dashboard.Failed(dashboard.Validate(context.Background(), src)))

	geoms, err := src.Boundaries(context.Background())
	require.NoError(t, err)
	assert.Len(t, geoms, len(domain.Regions()))
}

func TestRun_RejectsReversedYears(t *testing.T) {
	require.Error(t, run(options{out: t.TempDir(), from: 2024, to: 2020}))
}
