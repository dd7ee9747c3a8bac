// Command staticlint runs the analyzers this project is checked with:
// a fixed set of go vet passes, ineffassign, nilerr, the noosexit rule for
// main.main and the staticcheck, simple and stylecheck checks listed in a
// JSON config file.
//
// The config file is taken from the -config flag, then from the
// STATICLINT_CONFIG environment variable, then config.json in the working
// directory. Without any of them only the fixed passes run. The file looks
// like
//
//	{
//		"checks": ["SA*", "S1002", "ST1005"],
//		"disabled": ["unusedresult"]
//	}
//
// where a trailing * selects every check with that prefix and disabled
// names fixed passes to skip. Run it from the module root:
//
//	go run ./cmd/staticlint -config cmd/staticlint/config.json ./...
package main

import (
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strings"

	"github.com/gordonklaus/ineffassign/pkg/ineffassign"
	"github.com/gostaticanalysis/nilerr"
	"golang.org/x/tools/go/analysis"
	"golang.org/x/tools/go/analysis/multichecker"
	"golang.org/x/tools/go/analysis/passes/copylock"
	"golang.org/x/tools/go/analysis/passes/errorsas"
	"golang.org/x/tools/go/analysis/passes/httpresponse"
	"golang.org/x/tools/go/analysis/passes/loopclosure"
	"golang.org/x/tools/go/analysis/passes/lostcancel"
	"golang.org/x/tools/go/analysis/passes/nilness"
	"golang.org/x/tools/go/analysis/passes/printf"
	"golang.org/x/tools/go/analysis/passes/stdmethods"
	"golang.org/x/tools/go/analysis/passes/structtag"
	"golang.org/x/tools/go/analysis/passes/testinggoroutine"
	"golang.org/x/tools/go/analysis/passes/unmarshal"
	"golang.org/x/tools/go/analysis/passes/unreachable"
	"golang.org/x/tools/go/analysis/passes/unusedresult"
	"honnef.co/go/tools/analysis/lint"
	"honnef.co/go/tools/simple"
	"honnef.co/go/tools/staticcheck"
	"honnef.co/go/tools/stylecheck"

	"github.com/patric-chuzhbe/essayshare/cmd/staticlint/noosexit"
)

const (
	configFlag      = "config"
	configEnv       = "STATICLINT_CONFIG"
	defaultConfig   = "config.json"
	wildcardPostfix = "*"
)

// Config selects the optional analyzers.
type Config struct {
	// Checks are staticcheck, simple and stylecheck names such as "SA4006" or "ST*".
	Checks []string `json:"checks"`

	// Disabled names fixed passes to leave out, e.g. "unusedresult".
	Disabled []string `json:"disabled"`
}

// fixedAnalyzers always run unless disabled by name.
func fixedAnalyzers() []*analysis.Analyzer {
	return []*analysis.Analyzer{
		copylock.Analyzer,
		errorsas.Analyzer,
		httpresponse.Analyzer,
		loopclosure.Analyzer,
		lostcancel.Analyzer,
		nilness.Analyzer,
		printf.Analyzer,
		stdmethods.Analyzer,
		structtag.Analyzer,
		testinggoroutine.Analyzer,
		unmarshal.Analyzer,
		unreachable.Analyzer,
		unusedresult.Analyzer,

		ineffassign.Analyzer,
		nilerr.Analyzer,

		noosexit.Analyzer,
	}
}

func optionalAnalyzers() []*lint.Analyzer {
	all := make([]*lint.Analyzer, 0, len(staticcheck.Analyzers)+len(simple.Analyzers)+len(stylecheck.Analyzers))
	all = append(all, staticcheck.Analyzers...)
	all = append(all, simple.Analyzers...)
	all = append(all, stylecheck.Analyzers...)
	return all
}

// splitConfigFlag removes -config / --config from args, multichecker
// rejects flags it does not know.
func splitConfigFlag(args []string) (path string, rest []string, err error) {
	rest = make([]string, 0, len(args))
	for i := 0; i < len(args); i++ {
		name := strings.TrimLeft(args[i], "-")
		if name == args[i] {
			rest = append(rest, args[i])
			continue
		}

		if value, ok := strings.CutPrefix(name, configFlag+"="); ok {
			path = value
			continue
		}

		if name == configFlag {
			if i+1 >= len(args) {
				return "", nil, fmt.Errorf("flag -%s needs a value", configFlag)
			}
			path = args[i+1]
			i++
			continue
		}

		rest = append(rest, args[i])
	}
	return path, rest, nil
}

// loadConfig reads path, or the default config when path is empty. A
// missing default config is not an error.
func loadConfig(path string) (*Config, error) {
	explicit := path != ""
	if !explicit {
		path = defaultConfig
	}

	data, err := os.ReadFile(path)
	if err != nil {
		if !explicit && errors.Is(err, fs.ErrNotExist) {
			return &Config{}, nil
		}
		return nil, fmt.Errorf("in cmd/staticlint/main.go/loadConfig(): error while `os.ReadFile()` calling: %w", err)
	}

	cfg := &Config{}
	if err := json.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("in cmd/staticlint/main.go/loadConfig(): error while `json.Unmarshal()` calling: %w", err)
	}
	return cfg, nil
}

func matchesCheck(name string, patterns []string) bool {
	for _, pattern := range patterns {
		if prefix, ok := strings.CutSuffix(pattern, wildcardPostfix); ok {
			if strings.HasPrefix(name, prefix) {
				return true
			}
			continue
		}
		if name == pattern {
			return true
		}
	}
	return false
}

// selectAnalyzers returns the fixed passes minus the disabled ones, then
// the optional checks matching cfg.Checks.
func selectAnalyzers(cfg *Config) []*analysis.Analyzer {
	disabled := make(map[string]bool, len(cfg.Disabled))
	for _, name := range cfg.Disabled {
		disabled[name] = true
	}

	var selected []*analysis.Analyzer
	for _, analyzer := range fixedAnalyzers() {
		if !disabled[analyzer.Name] {
			selected = append(selected, analyzer)
		}
	}

	for _, analyzer := range optionalAnalyzers() {
		if matchesCheck(analyzer.Analyzer.Name, cfg.Checks) {
			selected = append(selected, analyzer.Analyzer)
		}
	}

	return selected
}

func main() {
	path, rest, err := splitConfigFlag(os.Args[1:])
	if err != nil {
		panic(err)
	}
	if path == "" {
		path = os.Getenv(configEnv)
	}

	cfg, err := loadConfig(path)
	if err != nil {
		panic(err)
	}

	os.Args = append(os.Args[:1], rest...)
	multichecker.Main(selectAnalyzers(cfg)...)
}
