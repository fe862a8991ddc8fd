package internal

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"gopkg.in/yaml.v3"
)

// Configuration holds the application settings. It is loaded once and is
// read-only for the lifetime of one run.
type Configuration struct {
	// Window background before any input
	IdleColor string `yaml:"idle_color"`

	// Window background while a password is being typed
	InputColor string `yaml:"input_color"`

	// Window background after a wrong password
	FailedColor string `yaml:"failed_color"`

	// Color of the glyph, outline and dots
	ForegroundColor string `yaml:"foreground_color"`

	// Treat a cleared input like a wrong password (color only)
	FailOnClear bool `yaml:"fail_on_clear"`

	// Draw the crossed circle while idle
	IdleGlyph bool `yaml:"idle_glyph"`

	// Dot diameter in pixels, 0 derives it from the monitor width
	DotSize int `yaml:"dot_size"`

	// Distance between dot centres in pixels, 0 derives it from the monitor width
	DotSpacing int `yaml:"dot_spacing"`

	// User and group to drop privileges to when started privileged
	User  string `yaml:"user"`
	Group string `yaml:"group"`

	// "shadow" checks the passwd/shadow hash, "pam" runs a PAM transaction
	AuthBackend string `yaml:"auth_backend"`

	// PAM service name to use for authentication
	PamService string `yaml:"pam_service"`

	// Bell volume on a failed attempt, -100..100
	BellPercent int `yaml:"bell_percent"`

	// Failed attempts before submits are refused for a while, 0 disables
	MaxAttempts int `yaml:"max_attempts"`

	// Initial lockout duration in seconds
	LockoutSeconds int `yaml:"lockout_seconds"`

	// Command to run before locking the screen
	PreLockCommand string `yaml:"pre_lock_command"`

	// Command to run after unlocking the screen
	PostUnlockCommand string `yaml:"post_unlock_command"`

	// Command started in the background once every screen is locked
	LockedCommand string `yaml:"locked_command"`

	// Pause MPRIS players when locking
	PauseMedia bool `yaml:"pause_media"`

	// Resume MPRIS players after unlocking
	ResumeMedia bool `yaml:"resume_media"`

	// Set the logind LockedHint of the current session while locked
	LockedHint bool `yaml:"locked_hint"`

	// DPMS standby/suspend/off timeout in seconds while locked, 0 leaves DPMS alone
	DPMSTimeout int `yaml:"dpms_timeout"`

	// Idle timeout in seconds before auto-locking in --idle mode
	IdleTimeout int `yaml:"idle_timeout"`

	// Ignore terminal hangup and job-control signals once locked
	Detach bool `yaml:"detach"`
}

// DefaultConfig returns a configuration with sensible defaults
func DefaultConfig() Configuration {
	pamPath := "/etc/pam.d/dotlock"
	pamService := "system-auth"
	if _, err := os.Stat(pamPath); err == nil {
		pamService = "dotlock"
	}

	return Configuration{
		IdleColor:       "#161821",
		InputColor:      "#161821",
		FailedColor:     "#E27878",
		ForegroundColor: "#C6C8D1",
		FailOnClear:     false,
		IdleGlyph:       true,
		User:            "nobody",
		Group:           "nobody",
		AuthBackend:     "shadow",
		PamService:      pamService,
		BellPercent:     100,
		MaxAttempts:     0, // Disabled by default
		LockoutSeconds:  30,
		LockedHint:      true,
		IdleTimeout:     300,
		Detach:          true,
	}
}

// DefaultConfigPath returns the first existing config file in the standard
// locations, or "" if there is none
func DefaultConfigPath() string {
	var dirs []string
	if xdg := os.Getenv("XDG_CONFIG_HOME"); xdg != "" {
		dirs = append(dirs, filepath.Join(xdg, "dotlock"))
	}
	if home, err := os.UserHomeDir(); err == nil {
		dirs = append(dirs, filepath.Join(home, ".config", "dotlock"))
	}

	for _, dir := range dirs {
		for _, name := range []string{"config.yaml", "config.yml", "config.json"} {
			path := filepath.Join(dir, name)
			if _, err := os.Stat(path); err == nil {
				return path
			}
		}
	}
	return ""
}

// LoadConfig loads configuration from the specified file path on top of the
// values already in config. YAML and JSON files are both accepted.
func LoadConfig(path string, config *Configuration) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("failed to read config file: %w", err)
	}

	if err := yaml.Unmarshal(data, config); err != nil {
		return fmt.Errorf("failed to parse config file: %w", err)
	}

	if err := validateConfig(config); err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}

	return nil
}

// validateConfig checks if the configuration is valid
func validateConfig(config *Configuration) error {
	colors := map[string]string{
		"idle_color":       config.IdleColor,
		"input_color":      config.InputColor,
		"failed_color":     config.FailedColor,
		"foreground_color": config.ForegroundColor,
	}
	for key, value := range colors {
		if _, _, _, err := parseColor(value); err != nil {
			return fmt.Errorf("%s: %w", key, err)
		}
	}

	switch config.AuthBackend {
	case "shadow", "pam":
	default:
		return fmt.Errorf("auth_backend must be \"shadow\" or \"pam\", got %q", config.AuthBackend)
	}

	if config.AuthBackend == "pam" && config.PamService == "" {
		return errors.New("pam_service must be set for the pam backend")
	}

	if config.DotSize < 0 || config.DotSpacing < 0 {
		return errors.New("dot_size and dot_spacing must not be negative")
	}

	if config.BellPercent < -100 || config.BellPercent > 100 {
		return fmt.Errorf("bell_percent must be between -100 and 100, got %d", config.BellPercent)
	}

	if config.MaxAttempts < 0 {
		return errors.New("max_attempts must not be negative")
	}

	if config.MaxAttempts > 0 && config.LockoutSeconds <= 0 {
		return errors.New("lockout_seconds must be positive when max_attempts is set")
	}

	if config.DPMSTimeout < 0 || config.DPMSTimeout > 65535 {
		return fmt.Errorf("dpms_timeout must be between 0 and 65535, got %d", config.DPMSTimeout)
	}

	if config.IdleTimeout <= 0 {
		return errors.New("idle_timeout must be positive")
	}

	return nil
}

// Color returns the configured color for a role
func (c Configuration) Color(role ColorRole) string {
	switch role {
	case ColorInput:
		return c.InputColor
	case ColorFailed:
		return c.FailedColor
	case ColorForeground:
		return c.ForegroundColor
	}
	return c.IdleColor
}

// parseColor parses a "#rrggbb" color
func parseColor(s string) (r, g, b uint8, err error) {
	hex := strings.TrimPrefix(s, "#")
	if len(hex) != 6 || hex == s {
		return 0, 0, 0, fmt.Errorf("color %q is not in #rrggbb form", s)
	}
	v, err := strconv.ParseUint(hex, 16, 32)
	if err != nil {
		return 0, 0, 0, fmt.Errorf("color %q is not in #rrggbb form", s)
	}
	return uint8(v >> 16), uint8(v >> 8), uint8(v), nil
}
