package transforms

import (
	"sort"

	"git.home.luguber.info/inful/vaultsite/internal/config"
	"git.home.luguber.info/inful/vaultsite/internal/git"
)

// Kind names a transformer variant. The values are the config keys.
type Kind string

const (
	KindFrontMatter     Kind = "frontmatter"
	KindDates           Kind = "created_modified_date"
	KindObsidian        Kind = "obsidian_flavored_markdown"
	KindGitHub          Kind = "github_flavored_markdown"
	KindSyntaxHighlight Kind = "syntax_highlighting"
	KindLatex           Kind = "latex"
	KindCrawlLinks      Kind = "crawl_links"
	KindTableOfContents Kind = "table_of_contents"
	KindDescription     Kind = "description"
)

// DateSource looks up version-control dates for a file on disk.
type DateSource interface {
	Dates(absPath string) (git.FileDates, bool, error)
}

// Env carries build-wide collaborators into transformer constructors.
type Env struct {
	Site config.SiteConfig
	// Dates is nil when the content directory is not under version control.
	Dates DateSource
}

// Factory constructs a transformer from its options.
type Factory func(opts config.Options, env Env) (Transformer, error)

var registry = map[Kind]Factory{
	KindFrontMatter:     newFrontMatter,
	KindDates:           newDates,
	KindObsidian:        newObsidian,
	KindGitHub:          newGitHub,
	KindSyntaxHighlight: newSyntaxHighlighting,
	KindLatex:           newLatex,
	KindCrawlLinks:      newCrawlLinks,
	KindTableOfContents: newTableOfContents,
	KindDescription:     newDescription,
}

// Kinds returns every registered transformer name, sorted.
func Kinds() []Kind {
	out := make([]Kind, 0, len(registry))
	for k := range registry {
		out = append(out, k)
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}

// New constructs the transformer named by cfg.
func New(cfg config.PluginConfig, env Env) (Transformer, error) {
	factory, ok := registry[Kind(cfg.Name)]
	if !ok {
		return nil, &DependencyError{Transformer: cfg.Name, Reason: "unknown transformer"}
	}
	return factory(cfg.Options, env)
}
