package main

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/tools/go/analysis"
)

func analyzerNames(analyzers []*analysis.Analyzer) []string {
	names := make([]string, 0, len(analyzers))
	for _, analyzer := range analyzers {
		names = append(names, analyzer.Name)
	}
	return names
}

func TestSplitConfigFlag(t *testing.T) {
	tests := []struct {
		name     string
		args     []string
		wantPath string
		wantRest []string
		wantErr  bool
	}{
		{name: "no flag", args: []string{"./..."}, wantRest: []string{"./..."}},
		{name: "separate value", args: []string{"-config", "lint.json", "./..."}, wantPath: "lint.json", wantRest: []string{"./..."}},
		{name: "inline value", args: []string{"--config=lint.json", "-printf.funcs=Logf", "./..."}, wantPath: "lint.json", wantRest: []string{"-printf.funcs=Logf", "./..."}},
		{name: "missing value", args: []string{"-config"}, wantErr: true},
	}

	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			path, rest, err := splitConfigFlag(test.args)
			if test.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, test.wantPath, path)
			assert.Equal(t, test.wantRest, rest)
		})
	}
}

func TestLoadConfig(t *testing.T) {
	t.Run("shipped config", func(t *testing.T) {
		cfg, err := loadConfig(defaultConfig)
		require.NoError(t, err)
		assert.Contains(t, cfg.Checks, "SA*")
		assert.Contains(t, cfg.Checks, "ST1005")
	})

	t.Run("missing default is empty", func(t *testing.T) {
		wd, err := os.Getwd()
		require.NoError(t, err)
		require.NoError(t, os.Chdir(t.TempDir()))
		t.Cleanup(func() { _ = os.Chdir(wd) })

		cfg, err := loadConfig("")
		require.NoError(t, err)
		assert.Empty(t, cfg.Checks)
	})

	t.Run("missing explicit file", func(t *testing.T) {
		_, err := loadConfig(filepath.Join(t.TempDir(), "absent.json"))
		assert.Error(t, err)
	})

	t.Run("malformed file", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "lint.json")
		require.NoError(t, os.WriteFile(path, []byte(`{"checks": "SA4006"}`), 0o600))
		_, err := loadConfig(path)
		assert.Error(t, err)
	})
}

func TestSelectAnalyzers(t *testing.T) {
	names := analyzerNames(selectAnalyzers(&Config{}))
	assert.Contains(t, names, "errorsas")
	assert.Contains(t, names, "nilness")
	assert.Contains(t, names, "httpresponse")
	assert.Contains(t, names, "noosexit")
	assert.NotContains(t, names, "SA4006")

	names = analyzerNames(selectAnalyzers(&Config{
		Checks:   []string{"SA4*", "ST1005"},
		Disabled: []string{"unusedresult"},
	}))
	assert.Contains(t, names, "SA4006")
	assert.Contains(t, names, "ST1005")
	assert.NotContains(t, names, "SA1019")
	assert.NotContains(t, names, "ST1003")
	assert.NotContains(t, names, "unusedresult")
	assert.Contains(t, names, "nilerr")
}
