// Package config is the keyed run configuration shared by all filters.
//
// Keys have the form "section:key". Values are read from INI-style files,
// where `key = value` lines below a `[section]` header belong to that section
// and lines before the first header belong to "global".
package config

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"maps"
	"os"
	"slices"
	"strconv"
	"strings"
	"time"
)

var (
	ErrInvalidLine  = errors.New("config: invalid line")
	ErrInvalidValue = errors.New("config: invalid value")
)

type Config struct {
	values map[string]string
}

// Defaults mirrors the stock output configuration.
var Defaults = map[string]string{
	"global:src_mac":      "AA:BB:CC:DD:EE:FF",
	"global:dst_mac":      "DE:AD:BE:EF:DE:AD",
	"global:src_ip":       "127.0.0.1",
	"global:dst_ip":       "127.0.0.2",
	"global:src_port":     "8001",
	"global:dst_port":     "8002",
	"global:ssrc":         "0x12011A0C",
	"global:rtp_in_frame": "1",
	"global:start_seq":    "0",
	"global:start_rtp_ts": "0",
	"global:codec":        "pcmu",
	"global:log_level":    "info",

	"network_emulator:loss_model":  "none",
	"network_emulator:delay_model": "none",
	"network_emulator:random_seed": "0",

	"sort:enabled":     "true",
	"sort:buffer_size": "1",

	"log:enabled":  "false",
	"sipp:enabled": "false",

	"pcap:flush_every": "1",
}

// DefaultConfig returns a configuration holding Defaults.
func DefaultConfig() *Config {
	return &Config{values: maps.Clone(Defaults)}
}

// LoadConfig reads path on top of DefaultConfig.
func LoadConfig(path string) (*Config, error) {
	c := DefaultConfig()
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	if err := c.Read(f); err != nil {
		return nil, fmt.Errorf("load %s: %w", path, err)
	}
	return c, nil
}

// Read merges INI content from r into c.
func (c *Config) Read(r io.Reader) error {
	scanner := bufio.NewScanner(r)
	section := "global"
	lineNum := 0

	for scanner.Scan() {
		lineNum++
		line := strings.TrimSpace(scanner.Text())

		if line == "" || strings.HasPrefix(line, "#") || strings.HasPrefix(line, ";") {
			continue
		}
		if strings.HasPrefix(line, "[") && strings.HasSuffix(line, "]") {
			section = strings.ToLower(strings.TrimSpace(line[1 : len(line)-1]))
			continue
		}

		key, value, ok := strings.Cut(line, "=")
		if !ok {
			return fmt.Errorf("%w %d: %s", ErrInvalidLine, lineNum, line)
		}
		key = strings.TrimSpace(key)
		if key == "" {
			return fmt.Errorf("%w %d: empty key", ErrInvalidLine, lineNum)
		}
		c.Set(section+":"+key, unquote(strings.TrimSpace(value)))
	}
	return scanner.Err()
}

func unquote(v string) string {
	if len(v) >= 2 && (v[0] == '"' && v[len(v)-1] == '"' || v[0] == '\'' && v[len(v)-1] == '\'') {
		return v[1 : len(v)-1]
	}
	return v
}

// Set stores value under key. A key without a section is placed in "global".
func (c *Config) Set(key, value string) {
	c.values[normalize(key)] = value
}

// SetFlag parses a "section:key=value" assignment.
func (c *Config) SetFlag(assignment string) error {
	key, value, ok := strings.Cut(assignment, "=")
	if !ok || strings.TrimSpace(key) == "" {
		return fmt.Errorf("%w: %q", ErrInvalidLine, assignment)
	}
	c.Set(strings.TrimSpace(key), strings.TrimSpace(value))
	return nil
}

func normalize(key string) string {
	key = strings.ToLower(strings.TrimSpace(key))
	if !strings.Contains(key, ":") {
		key = "global:" + key
	}
	return key
}

func (c *Config) lookup(key string) (string, bool) {
	v, ok := c.values[normalize(key)]
	return v, ok
}

func (c *Config) Has(key string) bool {
	_, ok := c.lookup(key)
	return ok
}

// Keys returns all set keys in sorted order.
func (c *Config) Keys() []string {
	return slices.Sorted(maps.Keys(c.values))
}

func (c *Config) String(key, def string) string {
	if v, ok := c.lookup(key); ok {
		return v
	}
	return def
}

func (c *Config) Int(key string, def int) (int, error) {
	v, ok := c.lookup(key)
	if !ok || v == "" {
		return def, nil
	}
	n, err := strconv.ParseInt(v, 0, 64)
	if err != nil {
		return def, fmt.Errorf("%w: %s=%q", ErrInvalidValue, key, v)
	}
	return int(n), nil
}

func (c *Config) Float(key string, def float64) (float64, error) {
	v, ok := c.lookup(key)
	if !ok || v == "" {
		return def, nil
	}
	f, err := strconv.ParseFloat(v, 64)
	if err != nil {
		return def, fmt.Errorf("%w: %s=%q", ErrInvalidValue, key, v)
	}
	return f, nil
}

// Bool accepts the usual INI spellings: 1/0, true/false, yes/no, on/off.
func (c *Config) Bool(key string, def bool) (bool, error) {
	v, ok := c.lookup(key)
	if !ok || v == "" {
		return def, nil
	}
	switch strings.ToLower(v) {
	case "1", "y", "yes", "t", "true", "on":
		return true, nil
	case "0", "n", "no", "f", "false", "off":
		return false, nil
	}
	return def, fmt.Errorf("%w: %s=%q", ErrInvalidValue, key, v)
}

// Time parses an RFC 3339 timestamp or a decimal count of Unix seconds.
func (c *Config) Time(key string, def time.Time) (time.Time, error) {
	v, ok := c.lookup(key)
	if !ok || v == "" {
		return def, nil
	}
	if t, err := time.Parse(time.RFC3339Nano, v); err == nil {
		return t, nil
	}
	if f, err := strconv.ParseFloat(v, 64); err == nil {
		sec := int64(f)
		return time.Unix(sec, int64((f-float64(sec))*1e9)), nil
	}
	return def, fmt.Errorf("%w: %s=%q", ErrInvalidValue, key, v)
}
