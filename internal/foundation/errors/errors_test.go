package errors

import (
	stderrors "errors"
	"fmt"
	"testing"
)

func TestErrorBuilder(t *testing.T) {
	t.Run("basic error", func(t *testing.T) {
		err := NewError(CategoryConfig, "bad site title").Build()

		if err.Category() != CategoryConfig {
			t.Errorf("expected category %s, got %s", CategoryConfig, err.Category())
		}
		if err.Severity() != SeverityError {
			t.Errorf("expected default severity %s, got %s", SeverityError, err.Severity())
		}
		if err.Message() != "bad site title" {
			t.Errorf("unexpected message %q", err.Message())
		}
	})

	t.Run("wrapped error keeps cause", func(t *testing.T) {
		cause := fmt.Errorf("yaml: line 3")
		err := WrapError(cause, CategoryParse, "front matter unreadable").
			Warning().
			WithContext("path", "notes/a.md").
			Build()

		if !stderrors.Is(err, cause) {
			t.Error("expected wrapped cause to be reachable via errors.Is")
		}
		if path, ok := err.Context().GetString("path"); !ok || path != "notes/a.md" {
			t.Errorf("expected path context, got %q", path)
		}
		if err.IsFatal() {
			t.Error("warning must not be fatal")
		}
	})

	t.Run("convenience constructors carry category defaults", func(t *testing.T) {
		cases := []struct {
			err      *ClassifiedError
			category ErrorCategory
			severity ErrorSeverity
		}{
			{ConfigError("x").Build(), CategoryConfig, SeverityFatal},
			{ParseError("x").Build(), CategoryParse, SeverityWarning},
			{SlugError("x").Build(), CategorySlug, SeverityFatal},
			{LinkWarning("x").Build(), CategoryLink, SeverityWarning},
			{EmitError("x").Build(), CategoryEmit, SeverityError},
		}
		for _, tc := range cases {
			if tc.err.Category() != tc.category || tc.err.Severity() != tc.severity {
				t.Errorf("got %s/%s, want %s/%s", tc.err.Category(), tc.err.Severity(), tc.category, tc.severity)
			}
		}
	})
}

func TestClassificationThroughWrapping(t *testing.T) {
	inner := SlugError("duplicate slug").Build()
	outer := fmt.Errorf("graph: %w", inner)

	if !IsClassified(outer) {
		t.Fatal("expected classified error to be found through fmt wrapping")
	}
	if !HasCategory(outer, CategorySlug) {
		t.Error("expected slug category")
	}
	if GetCategory(fmt.Errorf("plain")) != CategoryInternal {
		t.Error("unclassified errors default to internal")
	}
	if GetSeverity(fmt.Errorf("plain")) != SeverityError {
		t.Error("unclassified errors default to error severity")
	}
}

func TestErrorContextMerge(t *testing.T) {
	a := ErrorContext{"slug": "a", "stage": "parse"}
	b := ErrorContext{"stage": "emit"}
	merged := a.Merge(b)

	if merged["slug"] != "a" || merged["stage"] != "emit" {
		t.Errorf("unexpected merge result %v", merged)
	}
	if a["stage"] != "parse" {
		t.Error("merge must not mutate receiver")
	}

	var empty ErrorContext
	if v, ok := empty.Get("missing"); ok || v != nil {
		t.Error("nil context lookup must report absent")
	}
}

func TestCLIExitCodes(t *testing.T) {
	adapter := NewCLIErrorAdapter(false, nil)

	cases := []struct {
		name string
		err  error
		want int
	}{
		{"nil", nil, ExitSuccess},
		{"plain", fmt.Errorf("boom"), ExitGeneral},
		{"config", ConfigError("missing content dir").Build(), ExitConfig},
		{"validation", ValidationError("bad workers").Build(), ExitConfig},
		{"emit partial", EmitError("sitemap failed").Build(), ExitPartialFailure},
		{"parse partial", ParseError("bad yaml").Build(), ExitPartialFailure},
		{"slug fatal", SlugError("duplicate").Build(), ExitBuildFatal},
		{"filesystem", FileSystemError("write failed").Fatal().Build(), ExitBuildFatal},
		{"internal", InternalError("nil graph").Build(), ExitInternal},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if got := adapter.ExitCodeFor(tc.err); got != tc.want {
				t.Errorf("ExitCodeFor() = %d, want %d", got, tc.want)
			}
		})
	}
}

func TestCLIFormatError(t *testing.T) {
	quiet := NewCLIErrorAdapter(false, nil)
	verbose := NewCLIErrorAdapter(true, nil)

	internal := InternalError("unexpected nil").Build()
	if got := quiet.FormatError(internal); got != "Internal error occurred (use -v for details)" {
		t.Errorf("quiet internal format = %q", got)
	}
	if got := verbose.FormatError(internal); got != internal.Error() {
		t.Errorf("verbose internal format = %q", got)
	}

	cfg := ConfigError("paths.content is required").Build()
	if got := quiet.FormatError(cfg); got != "[config:fatal] paths.content is required" {
		t.Errorf("config format = %q", got)
	}
	if got := quiet.FormatError(fmt.Errorf("boom")); got != "Error: boom" {
		t.Errorf("plain format = %q", got)
	}
}
