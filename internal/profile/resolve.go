package profile

import (
	"fmt"
	"regexp"

	"github.com/matheus3301/tabroom/internal/config"
)

const (
	DefaultProfileName = "default"
	DefaultSessionName = "main"
)

var nameRegexp = regexp.MustCompile(`^[a-z0-9_-]{1,64}$`)

// ValidateName checks that name conforms to profile and session naming rules.
func ValidateName(name string) error {
	if !nameRegexp.MatchString(name) {
		return fmt.Errorf("invalid name %q: must match ^[a-z0-9_-]{1,64}$", name)
	}
	return nil
}

// Resolve determines the active profile and session names using precedence:
// 1. flag overrides (--profile, --session)
// 2. config.toml default_profile / default_session
// 3. "default" / "main"
func Resolve(profileFlag, sessionFlag string, cfg *config.Config) (profile, session string, err error) {
	profile = pick(profileFlag, cfg, func(c *config.Config) string { return c.DefaultProfile }, DefaultProfileName)
	session = pick(sessionFlag, cfg, func(c *config.Config) string { return c.DefaultSession }, DefaultSessionName)
	if err := ValidateName(profile); err != nil {
		return "", "", fmt.Errorf("profile: %w", err)
	}
	if err := ValidateName(session); err != nil {
		return "", "", fmt.Errorf("session: %w", err)
	}
	return profile, session, nil
}

func pick(flag string, cfg *config.Config, field func(*config.Config) string, fallback string) string {
	if flag != "" {
		return flag
	}
	if cfg != nil {
		if v := field(cfg); v != "" {
			return v
		}
	}
	return fallback
}
