package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"iiqsort/internal/grammar"

	"github.com/spf13/viper"
)

const (
	UnmatchedSkip    = "skip"
	UnmatchedIsolate = "isolate"

	EmptyKeep    = "keep"
	EmptySkip    = "skip"
	EmptyIsolate = "isolate"

	ModeMove = "move"
	ModeCopy = "copy"
)

type Config struct {
	Tolerance time.Duration `mapstructure:"tolerance"`

	// Grammar names a preset; GrammarSpec overrides it when its pattern is set.
	Grammar     string       `mapstructure:"grammar"`
	GrammarSpec grammar.Spec `mapstructure:"grammar_spec"`

	Include    []string `mapstructure:"include"`
	IgnoreList []string `mapstructure:"ignore_list"`

	DirPattern  string `mapstructure:"dir_pattern"`
	FilePattern string `mapstructure:"file_pattern"`
	SuffixSep   string `mapstructure:"suffix_sep"`
	SuffixStart int    `mapstructure:"suffix_start"`

	Mode      string `mapstructure:"mode"`
	Overwrite bool   `mapstructure:"overwrite"`
	DryRun    bool   `mapstructure:"dry_run"`

	Unmatched    string `mapstructure:"unmatched"`
	EmptyFiles   string `mapstructure:"empty_files"`
	UnmatchedDir string `mapstructure:"unmatched_dir"`
	EmptyDir     string `mapstructure:"empty_dir"`

	Pair PairConfig `mapstructure:"pair"`

	DBPath     string        `mapstructure:"db_path"`
	ServerPort int           `mapstructure:"server_port"`
	WatchDelay time.Duration `mapstructure:"watch_delay"`
}

// PairConfig drives pair mode: two camera directories under one base, found
// by glob, whose captures are matched by nearest timestamp.
type PairConfig struct {
	Left      string        `mapstructure:"left"`
	Right     string        `mapstructure:"right"`
	Threshold time.Duration `mapstructure:"threshold"`
	Grammar   string        `mapstructure:"grammar"`
}

var Default = Config{
	Tolerance:    60 * time.Second,
	Grammar:      grammar.PresetStation,
	Include:      []string{"*.iiq"},
	IgnoreList:   []string{".git", ".DS_Store", "*.tmp", "*.iiqsort.tmp"},
	DirPattern:   "{station}/{start:20060102_150405}",
	FilePattern:  "{name}",
	SuffixSep:    "_",
	SuffixStart:  1,
	Mode:         ModeMove,
	Unmatched:    UnmatchedSkip,
	EmptyFiles:   EmptyIsolate,
	UnmatchedDir: "unmatched",
	EmptyDir:     "empty",
	DBPath:       "",
	ServerPort:   9100,
	WatchDelay:   30 * time.Second,
	Pair: PairConfig{
		Left:      "C*_RGB",
		Right:     "C*_NIR",
		Threshold: 200 * time.Millisecond,
		Grammar:   grammar.PresetPhaseOne,
	},
}

// Load reads the config file (explicit path, or ~/.iiqsort/config.yaml when
// present) on top of Default. IIQSORT_* environment variables win over both.
func Load(path string) (*Config, error) {
	v := viper.New()

	if path != "" {
		v.SetConfigFile(path)
	} else {
		v.SetConfigName("config")
		v.SetConfigType("yaml")
		if home, err := os.UserHomeDir(); err == nil {
			v.AddConfigPath(filepath.Join(home, ".iiqsort"))
		}
	}

	v.SetDefault("tolerance", Default.Tolerance)
	v.SetDefault("grammar", Default.Grammar)
	v.SetDefault("include", Default.Include)
	v.SetDefault("ignore_list", Default.IgnoreList)
	v.SetDefault("dir_pattern", Default.DirPattern)
	v.SetDefault("file_pattern", Default.FilePattern)
	v.SetDefault("suffix_sep", Default.SuffixSep)
	v.SetDefault("suffix_start", Default.SuffixStart)
	v.SetDefault("mode", Default.Mode)
	v.SetDefault("overwrite", Default.Overwrite)
	v.SetDefault("dry_run", Default.DryRun)
	v.SetDefault("unmatched", Default.Unmatched)
	v.SetDefault("empty_files", Default.EmptyFiles)
	v.SetDefault("unmatched_dir", Default.UnmatchedDir)
	v.SetDefault("empty_dir", Default.EmptyDir)
	v.SetDefault("pair.left", Default.Pair.Left)
	v.SetDefault("pair.right", Default.Pair.Right)
	v.SetDefault("pair.threshold", Default.Pair.Threshold)
	v.SetDefault("pair.grammar", Default.Pair.Grammar)
	v.SetDefault("db_path", Default.DBPath)
	v.SetDefault("server_port", Default.ServerPort)
	v.SetDefault("watch_delay", Default.WatchDelay)

	v.SetEnvPrefix("IIQSORT")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		_, notFound := errors.AsType[viper.ConfigFileNotFoundError](err)
		if path != "" || !notFound {
			return nil, &Error{Field: "config", Err: fmt.Errorf("failed to read config file: %w", err)}
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, &Error{Field: "config", Err: fmt.Errorf("failed to unmarshal config: %w", err)}
	}

	if cfg.DBPath == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return nil, &Error{Field: "db_path", Err: fmt.Errorf("failed to get home dir: %w", err)}
		}
		cfg.DBPath = filepath.Join(home, ".iiqsort", "history.db")
	}

	return &cfg, nil
}

// BuildPairGrammar resolves the grammar used for both camera directories.
// A custom grammar_spec applies here too.
func (c *Config) BuildPairGrammar() (*grammar.Grammar, error) {
	if c.GrammarSpec.Pattern != "" {
		return c.BuildGrammar()
	}
	p, err := grammar.Preset(c.Pair.Grammar)
	if err != nil {
		return nil, &Error{Field: "pair.grammar", Err: err}
	}
	g, err := grammar.New(p)
	if err != nil {
		return nil, &Error{Field: "pair.grammar", Err: err}
	}
	return g, nil
}

// BuildGrammar resolves the preset or custom grammar.
func (c *Config) BuildGrammar() (*grammar.Grammar, error) {
	spec := c.GrammarSpec
	if spec.Pattern == "" {
		p, err := grammar.Preset(c.Grammar)
		if err != nil {
			return nil, &Error{Field: "grammar", Err: err}
		}
		spec = p
	}

	g, err := grammar.New(spec)
	if err != nil {
		return nil, &Error{Field: "grammar", Err: err}
	}
	return g, nil
}
