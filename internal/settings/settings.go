// Package settings holds the formatter configuration and the stores it is
// read from.
package settings

import (
	"fmt"
	"strconv"
	"time"

	"github.com/iancoleman/strcase"
	"github.com/pentops/golib/gl"
)

// Section is the prefix of every setting as the editor names it.
const Section = "stan.format"

const (
	DefaultStancPath  = "stanc"
	DefaultLineLength = 78
	DefaultTimeout    = 30 * time.Second
)

// Settings is the user configuration. Zero values mean the default.
type Settings struct {
	Enable         *bool    `yaml:"enable,omitempty"`
	StancPath      string   `yaml:"stancPath,omitempty"`
	LineLength     int      `yaml:"lineLength,omitempty"`
	AllowUndefined *bool    `yaml:"allowUndefined,omitempty"`
	Timeout        Duration `yaml:"timeout,omitempty"`
}

// Default returns settings with every default applied.
func Default() Settings {
	return Settings{}.WithDefaults()
}

func (s Settings) WithDefaults() Settings {
	if s.Enable == nil {
		s.Enable = gl.Ptr(true)
	}
	if s.StancPath == "" {
		s.StancPath = DefaultStancPath
	}
	if s.LineLength <= 0 {
		s.LineLength = DefaultLineLength
	}
	if s.AllowUndefined == nil {
		s.AllowUndefined = gl.Ptr(true)
	}
	if s.Timeout <= 0 {
		s.Timeout = Duration(DefaultTimeout)
	}
	return s
}

func (s Settings) Enabled() bool {
	return s.Enable == nil || *s.Enable
}

// Key normalizes a setting name given in camel, snake or kebab case, with
// or without the section prefix.
func Key(name string) string {
	if len(name) > len(Section)+1 && name[:len(Section)+1] == Section+"." {
		name = name[len(Section)+1:]
	}
	return strcase.ToLowerCamel(name)
}

// Keys lists the known setting names.
var Keys = []string{"enable", "stancPath", "lineLength", "allowUndefined", "timeout"}

// Set assigns one setting. Values may be typed or strings.
func (s *Settings) Set(key string, value interface{}) error {
	switch Key(key) {
	case "enable":
		v, err := toBool(value)
		if err != nil {
			return fmt.Errorf("setting %q: %w", key, err)
		}
		s.Enable = &v
	case "stancPath":
		v, ok := value.(string)
		if !ok {
			return fmt.Errorf("setting %q: expected string, got %T", key, value)
		}
		s.StancPath = v
	case "lineLength":
		v, err := toInt(value)
		if err != nil {
			return fmt.Errorf("setting %q: %w", key, err)
		}
		if v < 0 {
			return fmt.Errorf("setting %q: must not be negative", key)
		}
		s.LineLength = v
	case "allowUndefined":
		v, err := toBool(value)
		if err != nil {
			return fmt.Errorf("setting %q: %w", key, err)
		}
		s.AllowUndefined = &v
	case "timeout":
		v, err := toDuration(value)
		if err != nil {
			return fmt.Errorf("setting %q: %w", key, err)
		}
		s.Timeout = Duration(v)
	default:
		return fmt.Errorf("unknown setting %q", key)
	}
	return nil
}

func toBool(value interface{}) (bool, error) {
	switch v := value.(type) {
	case bool:
		return v, nil
	case string:
		return strconv.ParseBool(v)
	default:
		return false, fmt.Errorf("expected bool, got %T", value)
	}
}

func toInt(value interface{}) (int, error) {
	switch v := value.(type) {
	case int:
		return v, nil
	case int64:
		return int(v), nil
	case float64:
		if v != float64(int(v)) {
			return 0, fmt.Errorf("expected integer, got %v", v)
		}
		return int(v), nil
	case string:
		return strconv.Atoi(v)
	default:
		return 0, fmt.Errorf("expected integer, got %T", value)
	}
}

func toDuration(value interface{}) (time.Duration, error) {
	switch v := value.(type) {
	case time.Duration:
		return v, nil
	case Duration:
		return time.Duration(v), nil
	case string:
		return time.ParseDuration(v)
	case int:
		return time.Duration(v) * time.Second, nil
	case float64:
		return time.Duration(v * float64(time.Second)), nil
	default:
		return 0, fmt.Errorf("expected duration, got %T", value)
	}
}

// Duration is a time.Duration written as a Go duration string, e.g. "30s".
type Duration time.Duration

func (d Duration) Duration() time.Duration {
	return time.Duration(d)
}

func (d Duration) MarshalYAML() (interface{}, error) {
	return time.Duration(d).String(), nil
}
