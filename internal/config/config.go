package config

import (
	"fmt"
	"strings"

	"github.com/BurntSushi/toml"
	"github.com/jelka/validator/internal/protocol"
)

type SourceConfig struct {
	Command  []string `toml:"command" comment:"producer command; empty reads stdin"`
	ReadSize int      `toml:"read_size" comment:"bytes per read from the producer"`
}

type PlaybackConfig struct {
	FPS      int  `toml:"fps" comment:"0 follows the header fps"`
	Realtime bool `toml:"realtime" comment:"pace frame delivery at fps"`
}

type ExpectConfig struct {
	LEDCount    int `toml:"led_count" comment:"required led_count; 0 accepts any"`
	MaxDuration int `toml:"max_duration" comment:"largest accepted duration in frames; 0 accepts any"`
}

type StatusConfig struct {
	Addr        string   `toml:"addr" comment:"status server address; empty disables it"`
	CorsOrigins []string `toml:"cors_origins"`
}

type ValidatorConfig struct {
	Source   SourceConfig   `toml:"source"`
	Playback PlaybackConfig `toml:"playback"`
	Expect   ExpectConfig   `toml:"expect"`
	Status   StatusConfig   `toml:"status"`
}

// ShowConfig describes a show for producers. Duration in frames wins over
// minutes/seconds when set.
type ShowConfig struct {
	Author   string `toml:"author"`
	Title    string `toml:"title"`
	School   string `toml:"school"`
	LEDCount int    `toml:"led_count"`
	FPS      int    `toml:"fps"`
	Minutes  int    `toml:"minutes"`
	Seconds  int    `toml:"seconds"`
	Duration int    `toml:"duration,omitempty"`
}

func DefaultValidatorConfig() ValidatorConfig {
	return ValidatorConfig{
		Source:   SourceConfig{Command: []string{}, ReadSize: 64 * 1024},
		Playback: PlaybackConfig{Realtime: true},
		Expect:   ExpectConfig{LEDCount: protocol.DefaultLEDCount},
		Status:   StatusConfig{CorsOrigins: []string{"http://localhost:3000"}},
	}
}

func DefaultShowConfig() ShowConfig {
	return ShowConfig{
		Author:   "author",
		Title:    "title",
		School:   "school",
		LEDCount: protocol.DefaultLEDCount,
		FPS:      protocol.DefaultFPS,
		Minutes:  3,
		Duration: protocol.DefaultDuration,
	}
}

func LoadValidatorConfig(path string) (ValidatorConfig, error) {
	cfg := DefaultValidatorConfig()
	if _, err := decodeStrict(path, &cfg); err != nil {
		return ValidatorConfig{}, err
	}
	cfg.Source.Command = normalizeArgs(cfg.Source.Command)
	if err := ValidateValidatorConfig(cfg); err != nil {
		return ValidatorConfig{}, err
	}
	return cfg, nil
}

func LoadShowConfig(path string) (ShowConfig, error) {
	cfg := DefaultShowConfig()
	meta, err := decodeStrict(path, &cfg)
	if err != nil {
		return ShowConfig{}, err
	}
	if !meta.IsDefined("duration") {
		cfg.Duration = protocol.ToDuration(cfg.Minutes, cfg.Seconds, cfg.FPS)
	}
	if err := ValidateShowConfig(cfg); err != nil {
		return ShowConfig{}, err
	}
	return cfg, nil
}

func decodeStrict(path string, out any) (toml.MetaData, error) {
	meta, err := toml.DecodeFile(path, out)
	if err != nil {
		return toml.MetaData{}, fmt.Errorf("config load failed (%s): %w", path, err)
	}
	if undecoded := meta.Undecoded(); len(undecoded) > 0 {
		return toml.MetaData{}, fmt.Errorf("config parse failed (%s): unknown key %q", path, undecoded[0].String())
	}
	return meta, nil
}

func ValidateValidatorConfig(cfg ValidatorConfig) error {
	if cfg.Source.ReadSize <= 0 {
		return fmt.Errorf("source.read_size must be positive")
	}
	if cfg.Playback.FPS < 0 {
		return fmt.Errorf("playback.fps must not be negative")
	}
	if cfg.Expect.LEDCount < 0 {
		return fmt.Errorf("expect.led_count must not be negative")
	}
	if cfg.Expect.MaxDuration < 0 {
		return fmt.Errorf("expect.max_duration must not be negative")
	}
	if addr := strings.TrimSpace(cfg.Status.Addr); addr != "" && !strings.Contains(addr, ":") {
		return fmt.Errorf("status.addr must be host:port, got %q", cfg.Status.Addr)
	}
	return nil
}

func ValidateShowConfig(cfg ShowConfig) error {
	if strings.TrimSpace(cfg.Author) == "" {
		return fmt.Errorf("show config missing author")
	}
	if strings.TrimSpace(cfg.Title) == "" {
		return fmt.Errorf("show config missing title")
	}
	if _, err := protocol.EncodeHeader(cfg.Header()); err != nil {
		return fmt.Errorf("show config invalid: %w", err)
	}
	return nil
}

// Header converts the show into a protocol header.
func (s ShowConfig) Header() protocol.Header {
	return protocol.Header{
		Version:  protocol.Version,
		LEDCount: s.LEDCount,
		Duration: s.Duration,
		FPS:      s.FPS,
		Author:   s.Author,
		Title:    s.Title,
		School:   s.School,
	}
}

// CheckHeader reports whether a received header satisfies the expectations.
func (e ExpectConfig) CheckHeader(h protocol.Header) error {
	if e.LEDCount != 0 && h.LEDCount != e.LEDCount {
		return fmt.Errorf("header led_count=%d, expected %d", h.LEDCount, e.LEDCount)
	}
	if e.MaxDuration != 0 && h.Duration > e.MaxDuration {
		return fmt.Errorf("header duration=%d exceeds %d frames", h.Duration, e.MaxDuration)
	}
	return nil
}

func normalizeArgs(in []string) []string {
	out := make([]string, 0, len(in))
	for _, arg := range in {
		if v := strings.TrimSpace(arg); v != "" {
			out = append(out, v)
		}
	}
	return out
}
