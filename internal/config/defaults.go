package config

import (
	"runtime"
	"time"
)

const (
	defaultLocale          = "en-US"
	defaultTitle           = "Vault"
	defaultContentDir      = "content"
	defaultOutputDir       = "public"
	defaultStaticDir       = "static"
	defaultDocumentTimeout = 30 * time.Second
	defaultEventsSubject   = "vaultsite.builds"
)

// DefaultIgnorePatterns excludes vault housekeeping directories.
var DefaultIgnorePatterns = []string{"private", "templates", ".obsidian"}

// DefaultTransformers is the stock transformer chain in dependency order.
func DefaultTransformers() []PluginConfig {
	return []PluginConfig{
		{Name: "frontmatter"},
		{Name: "created_modified_date", Options: Options{"priority": []any{"frontmatter", "git", "filesystem"}}},
		{Name: "obsidian_flavored_markdown"},
		{Name: "github_flavored_markdown"},
		{Name: "syntax_highlighting", Options: Options{"theme": map[string]any{"light": "github", "dark": "github-dark"}}},
		{Name: "latex"},
		{Name: "crawl_links", Options: Options{"markdown_link_resolution": "shortest"}},
		{Name: "table_of_contents"},
		{Name: "description"},
	}
}

// DefaultFilters removes drafts.
func DefaultFilters() []PluginConfig {
	return []PluginConfig{{Name: "remove_drafts"}}
}

// DefaultEmitters is the stock emitter set.
func DefaultEmitters() []PluginConfig {
	return []PluginConfig{
		{Name: "alias_redirects"},
		{Name: "component_resources"},
		{Name: "content_page"},
		{Name: "folder_page"},
		{Name: "tag_page"},
		{Name: "content_index", Options: Options{"enable_sitemap": true, "enable_rss": true}},
		{Name: "assets"},
		{Name: "static"},
		{Name: "favicon"},
		{Name: "not_found_page"},
	}
}

// ApplyDefaults fills unset fields in place. Explicitly empty plugin lists are kept.
func ApplyDefaults(cfg *Config) {
	if cfg.Version == "" {
		cfg.Version = CurrentVersion
	}
	applySiteDefaults(&cfg.Site)

	if cfg.Paths.Content == "" {
		cfg.Paths.Content = defaultContentDir
	}
	if cfg.Paths.Output == "" {
		cfg.Paths.Output = defaultOutputDir
	}
	if cfg.Paths.Static == "" {
		cfg.Paths.Static = defaultStaticDir
	}

	if cfg.Build.DocumentTimeout <= 0 {
		cfg.Build.DocumentTimeout = defaultDocumentTimeout
	}
	if cfg.Build.Workers < 0 {
		cfg.Build.Workers = 0
	}

	if cfg.Transformers == nil {
		cfg.Transformers = DefaultTransformers()
	}
	if cfg.Filters == nil {
		cfg.Filters = DefaultFilters()
	}
	if cfg.Emitters == nil {
		cfg.Emitters = DefaultEmitters()
	}

	if cfg.Logging.Level == "" {
		cfg.Logging.Level = "info"
	}
	if cfg.Logging.Format == "" {
		cfg.Logging.Format = "text"
	}
	if cfg.Events.Subject == "" {
		cfg.Events.Subject = defaultEventsSubject
	}
}

func applySiteDefaults(site *SiteConfig) {
	if site.Title == "" {
		site.Title = defaultTitle
	}
	if site.Locale == "" {
		site.Locale = defaultLocale
	}
	if site.IgnorePatterns == nil {
		site.IgnorePatterns = append([]string(nil), DefaultIgnorePatterns...)
	}
	if site.DefaultDateType == "" {
		site.DefaultDateType = DateModified
	}
}

// EffectiveWorkers resolves the worker pool size; 0 means one worker per usable CPU.
func (b BuildConfig) EffectiveWorkers() int {
	if b.Workers > 0 {
		return b.Workers
	}
	return runtime.GOMAXPROCS(0)
}
