package config

import (
	"errors"
	"fmt"
	"path/filepath"

	validation "github.com/go-ozzo/ozzo-validation/v4"
)

// Validate validates the configuration.
func (c *Config) Validate() error {
	if err := c.Site.Validate(); err != nil {
		return fmt.Errorf("site: %w", err)
	}
	if err := c.Paths.Validate(); err != nil {
		return fmt.Errorf("paths: %w", err)
	}
	if err := c.Build.Validate(); err != nil {
		return fmt.Errorf("build: %w", err)
	}
	if err := c.Logging.Validate(); err != nil {
		return fmt.Errorf("logging: %w", err)
	}
	if err := c.Events.Validate(); err != nil {
		return fmt.Errorf("events: %w", err)
	}
	for kind, list := range map[string][]PluginConfig{
		"transformers": c.Transformers,
		"filters":      c.Filters,
		"emitters":     c.Emitters,
	} {
		if err := validatePlugins(list); err != nil {
			return fmt.Errorf("%s: %w", kind, err)
		}
	}
	return nil
}

// Validate validates the site configuration.
func (s *SiteConfig) Validate() error {
	return validation.ValidateStruct(s,
		validation.Field(&s.Title, validation.Required),
		validation.Field(&s.Locale, validation.Required),
		validation.Field(&s.DefaultDateType, validation.Required, validation.In(DateCreated, DateModified, DatePublished)),
		validation.Field(&s.IgnorePatterns, validation.Each(validation.Required, validation.By(validGlob))),
	)
}

// Validate validates the paths configuration.
func (p *PathsConfig) Validate() error {
	if err := validation.ValidateStruct(p,
		validation.Field(&p.Content, validation.Required),
		validation.Field(&p.Output, validation.Required),
	); err != nil {
		return err
	}
	if filepath.Clean(p.Content) == filepath.Clean(p.Output) {
		return errors.New("output directory must differ from content directory")
	}
	return nil
}

// Validate validates the build configuration.
func (b *BuildConfig) Validate() error {
	return validation.ValidateStruct(b,
		validation.Field(&b.Workers, validation.Min(0)),
		validation.Field(&b.DocumentTimeout, validation.Required),
	)
}

// Validate validates the logging configuration.
func (l *LoggingConfig) Validate() error {
	return validation.ValidateStruct(l,
		validation.Field(&l.Level, validation.In("debug", "info", "warn", "warning", "error")),
		validation.Field(&l.Format, validation.In("text", "json")),
	)
}

// Validate validates the events configuration.
func (e *EventsConfig) Validate() error {
	return validation.ValidateStruct(e,
		validation.Field(&e.Subject, validation.When(e.NATSURL != "", validation.Required)),
	)
}

func validatePlugins(list []PluginConfig) error {
	seen := make(map[string]struct{}, len(list))
	for i, p := range list {
		if p.Name == "" {
			return fmt.Errorf("entry %d: name is required", i)
		}
		if _, dup := seen[p.Name]; dup {
			return fmt.Errorf("duplicate entry: %s", p.Name)
		}
		seen[p.Name] = struct{}{}
	}
	return nil
}

func validGlob(value any) error {
	s, _ := value.(string)
	if _, err := filepath.Match(s, ""); err != nil {
		return fmt.Errorf("invalid glob %q: %w", s, err)
	}
	return nil
}
