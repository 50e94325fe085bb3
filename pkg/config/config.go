// Package config loads and validates the engine's .memoria.json file.
package config

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"

	"github.com/memoria-dev/memoria/internal/cache"
)

// ConfigFileName is the name of the on-disk config file, always read from
// the repository root.
const ConfigFileName = ".memoria.json"

// Thresholds holds the user-overridable tuning knobs for coupling, drift,
// and commit-scale filtering.
type Thresholds struct {
	CouplingPercent   int `json:"couplingPercent"`
	DriftDays         int `json:"driftDays"`
	AnalysisWindow    int `json:"analysisWindow"`
	MaxFilesPerCommit int `json:"maxFilesPerCommit"`
}

// RiskWeights controls how the four risk components combine into the
// final score. Each weight lies in [0,1]; they need not sum to 1 (a
// caller zeroing out three of four, per the engine's config-override
// test, is valid).
type RiskWeights struct {
	Volatility float64 `json:"volatility"`
	Coupling   float64 `json:"coupling"`
	Drift      float64 `json:"drift"`
	Importers  float64 `json:"importers"`
}

// Config is the parsed, validated contents of .memoria.json. Every field
// is optional in the file; zero values here are never used directly,
// only after merging onto DefaultConfig.
type Config struct {
	Thresholds    Thresholds         `json:"thresholds"`
	Ignore        []string           `json:"ignore"`
	PanicKeywords map[string]float64 `json:"panicKeywords"`
	RiskWeights   RiskWeights        `json:"riskWeights"`

	// Overridden records which fields were explicitly present in the
	// source file, as opposed to filled in from DefaultConfig. Adaptive
	// Thresholds consults this to decide whether a velocity-derived
	// value or the file's explicit value wins.
	Overridden Overridden `json:"-"`
}

// Overridden marks which Thresholds/RiskWeights fields an explicit
// .memoria.json set, so a velocity-derived default isn't mistaken for a
// user override (both DefaultConfig and the adaptive base happen to
// agree on the unadjusted values).
type Overridden struct {
	CouplingPercent   bool
	DriftDays         bool
	AnalysisWindow    bool
	MaxFilesPerCommit bool
	Volatility        bool
	Coupling          bool
	Drift             bool
	Importers         bool
}

// rawConfig mirrors Config but with every field a pointer, so the loader
// can tell "absent from the file" apart from "present and zero".
type rawConfig struct {
	Thresholds    *rawThresholds     `json:"thresholds"`
	Ignore        []string           `json:"ignore"`
	PanicKeywords map[string]float64 `json:"panicKeywords"`
	RiskWeights   *rawRiskWeights    `json:"riskWeights"`
}

type rawThresholds struct {
	CouplingPercent   *int `json:"couplingPercent"`
	DriftDays         *int `json:"driftDays"`
	AnalysisWindow    *int `json:"analysisWindow"`
	MaxFilesPerCommit *int `json:"maxFilesPerCommit"`
}

type rawRiskWeights struct {
	Volatility *float64 `json:"volatility"`
	Coupling   *float64 `json:"coupling"`
	Drift      *float64 `json:"drift"`
	Importers  *float64 `json:"importers"`
}

// DefaultPanicKeywords returns the built-in keyword→weight table used when
// a config omits panicKeywords (or is absent entirely): critical-severity
// terms (3), high-urgency terms (2), normal bug language (1), and
// low-urgency maintenance terms (0.5).
func DefaultPanicKeywords() map[string]float64 {
	keywords := map[string]float64{}
	for _, k := range []string{"security", "vulnerability", "cve", "exploit", "crash", "data loss", "corruption", "breach"} {
		keywords[k] = 3
	}
	for _, k := range []string{"revert", "hotfix", "urgent", "breaking", "critical", "emergency", "rollback", "regression"} {
		keywords[k] = 2
	}
	for _, k := range []string{"fix", "bug", "patch", "oops", "typo", "issue", "error", "wrong", "mistake", "broken"} {
		keywords[k] = 1
	}
	for _, k := range []string{"refactor", "cleanup", "lint", "format"} {
		keywords[k] = 0.5
	}
	return keywords
}

// DefaultConfig returns the engine's built-in defaults, applied whenever
// .memoria.json is absent, malformed, or fails validation.
func DefaultConfig() *Config {
	return &Config{
		Thresholds: Thresholds{
			CouplingPercent:   15,
			DriftDays:         7,
			AnalysisWindow:    50,
			MaxFilesPerCommit: 15,
		},
		Ignore:        nil,
		PanicKeywords: DefaultPanicKeywords(),
		RiskWeights: RiskWeights{
			Volatility: 0.35,
			Coupling:   0.30,
			Drift:      0.20,
			Importers:  0.15,
		},
	}
}

// Load reads and strictly validates <repoRoot>/.memoria.json. It returns
// (nil, nil) when the file does not exist: "no config" is a valid,
// expected outcome, not an error. Any other failure (malformed JSON,
// unknown fields, out-of-range values) is returned as an error, so
// callers that want to distinguish "absent" from "invalid" can;
// LoadOrDefault turns both outcomes into DefaultConfig.
func Load(repoRoot string) (*Config, error) {
	path := filepath.Join(repoRoot, ConfigFileName)
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("reading %s: %w", ConfigFileName, err)
	}

	dec := json.NewDecoder(bytes.NewReader(data))
	dec.DisallowUnknownFields()

	var raw rawConfig
	if err := dec.Decode(&raw); err != nil {
		return nil, fmt.Errorf("parsing %s: %w", ConfigFileName, err)
	}

	cfg := mergeDefaults(&raw)
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("validating %s: %w", ConfigFileName, err)
	}
	return cfg, nil
}

// mergeDefaults overlays the fields present in raw onto DefaultConfig.
// panicKeywords is merged key-by-key rather than replaced wholesale, per
// the "merged over defaults" rule.
func mergeDefaults(raw *rawConfig) *Config {
	cfg := DefaultConfig()

	if raw.Thresholds != nil {
		if raw.Thresholds.CouplingPercent != nil {
			cfg.Thresholds.CouplingPercent = *raw.Thresholds.CouplingPercent
			cfg.Overridden.CouplingPercent = true
		}
		if raw.Thresholds.DriftDays != nil {
			cfg.Thresholds.DriftDays = *raw.Thresholds.DriftDays
			cfg.Overridden.DriftDays = true
		}
		if raw.Thresholds.AnalysisWindow != nil {
			cfg.Thresholds.AnalysisWindow = *raw.Thresholds.AnalysisWindow
			cfg.Overridden.AnalysisWindow = true
		}
		if raw.Thresholds.MaxFilesPerCommit != nil {
			cfg.Thresholds.MaxFilesPerCommit = *raw.Thresholds.MaxFilesPerCommit
			cfg.Overridden.MaxFilesPerCommit = true
		}
	}

	if raw.Ignore != nil {
		cfg.Ignore = raw.Ignore
	}

	for k, v := range raw.PanicKeywords {
		cfg.PanicKeywords[k] = v
	}

	if raw.RiskWeights != nil {
		if raw.RiskWeights.Volatility != nil {
			cfg.RiskWeights.Volatility = *raw.RiskWeights.Volatility
			cfg.Overridden.Volatility = true
		}
		if raw.RiskWeights.Coupling != nil {
			cfg.RiskWeights.Coupling = *raw.RiskWeights.Coupling
			cfg.Overridden.Coupling = true
		}
		if raw.RiskWeights.Drift != nil {
			cfg.RiskWeights.Drift = *raw.RiskWeights.Drift
			cfg.Overridden.Drift = true
		}
		if raw.RiskWeights.Importers != nil {
			cfg.RiskWeights.Importers = *raw.RiskWeights.Importers
			cfg.Overridden.Importers = true
		}
	}

	return cfg
}

// Validate checks that every field merged from the file falls within its
// documented range.
func (c *Config) Validate() error {
	var errs []error

	if c.Thresholds.CouplingPercent < 0 || c.Thresholds.CouplingPercent > 100 {
		errs = append(errs, errors.New("thresholds.couplingPercent must be between 0 and 100"))
	}
	if c.Thresholds.DriftDays < 1 || c.Thresholds.DriftDays > 365 {
		errs = append(errs, errors.New("thresholds.driftDays must be between 1 and 365"))
	}
	if c.Thresholds.AnalysisWindow < 10 || c.Thresholds.AnalysisWindow > 500 {
		errs = append(errs, errors.New("thresholds.analysisWindow must be between 10 and 500"))
	}
	if c.Thresholds.MaxFilesPerCommit < 5 || c.Thresholds.MaxFilesPerCommit > 100 {
		errs = append(errs, errors.New("thresholds.maxFilesPerCommit must be between 5 and 100"))
	}

	checkWeight := func(name string, w float64) {
		if w < 0 || w > 1 {
			errs = append(errs, fmt.Errorf("riskWeights.%s must be between 0 and 1", name))
		}
	}
	checkWeight("volatility", c.RiskWeights.Volatility)
	checkWeight("coupling", c.RiskWeights.Coupling)
	checkWeight("drift", c.RiskWeights.Drift)
	checkWeight("importers", c.RiskWeights.Importers)

	if len(errs) > 0 {
		return errors.Join(errs...)
	}
	return nil
}

// LoadResult carries the outcome of a config load alongside where it came
// from, used by the `memoria config show` subcommand.
type LoadResult struct {
	Config *Config
	Source string // path read, empty when defaults were used
}

// LoadOrDefault loads <repoRoot>/.memoria.json, falling back to
// DefaultConfig on any error (missing, malformed, invalid). It never
// returns an error: "no config" is always a valid outcome.
func LoadOrDefault(repoRoot string) *LoadResult {
	cfg, err := Load(repoRoot)
	if err != nil || cfg == nil {
		return &LoadResult{Config: DefaultConfig()}
	}
	return &LoadResult{Config: cfg, Source: filepath.Join(repoRoot, ConfigFileName)}
}

// Digest returns a short, deterministic string derived from the config
// fields that affect computed results. It iterates panicKeywords in
// sorted key order and never relies on json.Marshal's map ordering.
func (c *Config) Digest() string {
	var buf bytes.Buffer
	fmt.Fprintf(&buf, "t:%d,%d,%d,%d|", c.Thresholds.CouplingPercent, c.Thresholds.DriftDays,
		c.Thresholds.AnalysisWindow, c.Thresholds.MaxFilesPerCommit)
	fmt.Fprintf(&buf, "w:%.4f,%.4f,%.4f,%.4f|", c.RiskWeights.Volatility, c.RiskWeights.Coupling,
		c.RiskWeights.Drift, c.RiskWeights.Importers)

	keys := make([]string, 0, len(c.PanicKeywords))
	for k := range c.PanicKeywords {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	buf.WriteString("k:")
	for _, k := range keys {
		fmt.Fprintf(&buf, "%s=%.2f,", k, c.PanicKeywords[k])
	}

	ignore := append([]string(nil), c.Ignore...)
	sort.Strings(ignore)
	buf.WriteString("|i:")
	for _, p := range ignore {
		buf.WriteString(p)
		buf.WriteByte(',')
	}

	return cache.DigestBytes(buf.Bytes())
}
