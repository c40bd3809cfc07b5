package seqcli

import (
	"bytes"
	"errors"
	"fmt"
	"sort"
	"strings"

	"github.com/BurntSushi/toml"

	"seqanim/lib/xmain"
	"seqanim/seqlib"
	"seqanim/seqmodel"
	"seqanim/seqscript"
)

// Config holds the settings that a config file, environment variables and flags can set,
// in increasing order of precedence.
type Config struct {
	Layers  LayersConfig  `toml:"layers"`
	Markers MarkersConfig `toml:"markers"`
	Script  ScriptConfig  `toml:"script"`
}

type LayersConfig struct {
	Sequence string `toml:"sequence"`
	Class    string `toml:"class"`
}

type MarkersConfig struct {
	Lifeline   string `toml:"lifeline"`
	Activation string `toml:"activation"`
	Dashed     string `toml:"dashed"`
}

type ScriptConfig struct {
	Wait    int64   `toml:"wait"`
	Fade    bool    `toml:"fade"`
	Padding float64 `toml:"padding"`
}

func defaultConfig() Config {
	return Config{
		Layers: LayersConfig{
			Sequence: seqlib.DefaultSequenceLayer,
			Class:    seqlib.DefaultClassLayer,
		},
		Markers: MarkersConfig{
			Lifeline:   seqmodel.DefaultLifelineMarker,
			Activation: seqmodel.DefaultActivationMarker,
			Dashed:     seqmodel.DefaultDashedMarker,
		},
		Script: ScriptConfig{
			Wait:    seqscript.DefaultWait,
			Padding: seqmodel.DefaultPadding,
		},
	}
}

// loadConfig decodes the TOML file at path over cfg. Keys the file leaves out keep their
// current value. Unknown keys are an error.
func loadConfig(ms *xmain.State, path string, cfg *Config) error {
	b, err := ms.ReadPath(path)
	if err != nil {
		return err
	}
	meta, err := toml.Decode(string(b), cfg)
	if err != nil {
		return fmt.Errorf("%s: failed to parse TOML: %w", path, err)
	}
	if undecoded := meta.Undecoded(); len(undecoded) > 0 {
		var keys []string
		for _, k := range undecoded {
			keys = append(keys, k.String())
		}
		sort.Strings(keys)
		return fmt.Errorf("%s: unknown keys: %s", path, strings.Join(keys, ", "))
	}
	return nil
}

func (cfg Config) validate() error {
	var errs []string
	if strings.TrimSpace(cfg.Layers.Sequence) == "" {
		errs = append(errs, "[layers].sequence must not be empty")
	}
	if strings.TrimSpace(cfg.Markers.Lifeline) == "" {
		errs = append(errs, "[markers].lifeline must not be empty")
	}
	if strings.TrimSpace(cfg.Markers.Activation) == "" {
		errs = append(errs, "[markers].activation must not be empty")
	}
	if cfg.Script.Wait < 0 {
		errs = append(errs, fmt.Sprintf("[script].wait must not be negative, got %d", cfg.Script.Wait))
	}
	if cfg.Script.Padding < 0 {
		errs = append(errs, fmt.Sprintf("[script].padding must not be negative, got %v", cfg.Script.Padding))
	}
	if len(errs) > 0 {
		return errors.New(strings.Join(errs, "\n"))
	}
	return nil
}

func (cfg Config) options() *seqlib.Options {
	return &seqlib.Options{
		SequenceLayer: cfg.Layers.Sequence,
		ClassLayer:    cfg.Layers.Class,
		Model: seqmodel.Options{
			Markers: seqmodel.Markers{
				Lifeline:   cfg.Markers.Lifeline,
				Activation: cfg.Markers.Activation,
				Dashed:     cfg.Markers.Dashed,
			},
			Padding: cfg.Script.Padding,
		},
		Script: seqscript.Options{
			Wait: int(cfg.Script.Wait),
			Fade: cfg.Script.Fade,
		},
	}
}

// encode renders cfg as a config file.
func (cfg Config) encode() ([]byte, error) {
	var buf bytes.Buffer
	if err := toml.NewEncoder(&buf).Encode(cfg); err != nil {
		return nil, fmt.Errorf("failed to encode TOML: %w", err)
	}
	return buf.Bytes(), nil
}
