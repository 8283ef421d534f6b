package resolver_test

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/bunnylol/bunnylol/internal/config"
	"github.com/bunnylol/bunnylol/internal/registry"
	"github.com/bunnylol/bunnylol/internal/resolver"
)

const ghPlugin = `
function info() {
    return { bindings: ["gh"], description: "GitHub", example: "gh golang/go" };
}
function process(full_args) {
    var rest = get_args(full_args, "gh");
    if (rest === "") { return "https://github.com"; }
    return "https://github.com/" + url_encode_path(rest);
}
`

const ytPlugin = `
function info() {
    return { bindings: ["yt", "youtube"], description: "YouTube", example: "yt rust tutorial" };
}
function process(full_args) {
    var rest = get_args(full_args, "yt");
    if (rest === "") { rest = get_args(full_args, "youtube"); }
    return "https://youtube.com/results?search_query=" + url_encode(rest);
}
`

const badOutputPlugin = `
function info() { return { bindings: ["bad"], description: "", example: "" }; }
function process(full_args) { return "not a url"; }
`

func newTestResolver(t *testing.T, cfg *config.Config, plugins map[string]string) *resolver.Resolver {
	t.Helper()
	dir := t.TempDir()
	for name, src := range plugins {
		if err := os.WriteFile(filepath.Join(dir, name), []byte(src), 0o644); err != nil {
			t.Fatalf("WriteFile: %v", err)
		}
	}
	if cfg == nil {
		cfg = &config.Config{}
	}
	cfg.PluginDirs = append(cfg.PluginDirs, dir)
	if cfg.PluginTimeoutMS == 0 {
		cfg.PluginTimeoutMS = 200
	}
	if cfg.DefaultSearch == "" {
		cfg.DefaultSearch = config.DefaultSearchEngine
	}

	reg := registry.New(cfg, nil)
	if err := reg.Reload(); err != nil {
		t.Fatalf("Reload: %v", err)
	}
	return resolver.New(reg, cfg, nil)
}

func TestResolveGitHubWithArgs(t *testing.T) {
	r := newTestResolver(t, nil, map[string]string{"gh.js": ghPlugin})
	res := r.Resolve("gh facebook%2Freact")
	if res.Outcome != resolver.OutcomeRedirect {
		t.Fatalf("Outcome = %v, want redirect", res.Outcome)
	}
	if res.Location != "https://github.com/facebook/react" {
		t.Errorf("Location = %q", res.Location)
	}
}

func TestResolveGitHubNoArgs(t *testing.T) {
	r := newTestResolver(t, nil, map[string]string{"gh.js": ghPlugin})
	res := r.Resolve("gh")
	if res.Location != "https://github.com" {
		t.Errorf("Location = %q", res.Location)
	}
}

func TestResolvePreservesSpaceViaPathEncoding(t *testing.T) {
	r := newTestResolver(t, nil, map[string]string{"gh.js": ghPlugin})
	res := r.Resolve("gh hello world")
	if res.Location != "https://github.com/hello%20world" {
		t.Errorf("Location = %q", res.Location)
	}
}

func TestResolveYouTubeSynonymBinding(t *testing.T) {
	r := newTestResolver(t, nil, map[string]string{"yt.js": ytPlugin})
	res := r.Resolve("yt rust tutorial")
	if res.Location != "https://youtube.com/results?search_query=rust+tutorial" {
		t.Errorf("Location = %q", res.Location)
	}

	res2 := r.Resolve("youtube rust tutorial")
	if res2.Location != res.Location {
		t.Errorf("synonym binding Location = %q, want %q", res2.Location, res.Location)
	}
}

func TestResolveUnknownCommandFallsBackToSearch(t *testing.T) {
	r := newTestResolver(t, nil, map[string]string{"gh.js": ghPlugin})
	res := r.Resolve("unknowncmd foo bar")
	if res.Outcome != resolver.OutcomeFallback {
		t.Fatalf("Outcome = %v, want fallback", res.Outcome)
	}
	want := "https://www.google.com/search?q=unknowncmd+foo+bar"
	if res.Location != want {
		t.Errorf("Location = %q, want %q", res.Location, want)
	}
}

func TestResolveEmptyQueryReturnsIndex(t *testing.T) {
	r := newTestResolver(t, nil, map[string]string{"gh.js": ghPlugin})
	res := r.Resolve("")
	if res.Outcome != resolver.OutcomeIndex {
		t.Fatalf("Outcome = %v, want index", res.Outcome)
	}
	if res.Location != "/" {
		t.Errorf("Location = %q, want /", res.Location)
	}
}

func TestResolveBadOutputFallsBack(t *testing.T) {
	r := newTestResolver(t, nil, map[string]string{"bad.js": badOutputPlugin})
	res := r.Resolve("bad")
	if res.Outcome != resolver.OutcomeFallback {
		t.Fatalf("Outcome = %v, want fallback", res.Outcome)
	}
}

func TestResolveAliasExpansionAppliesOnce(t *testing.T) {
	cfg := &config.Config{
		Aliases: map[string]string{"g": "gh"},
	}
	r := newTestResolver(t, cfg, map[string]string{"gh.js": ghPlugin})
	res := r.Resolve("g facebook/react")
	if res.Location != "https://github.com/facebook/react" {
		t.Errorf("Location = %q", res.Location)
	}
}

func TestResolveAliasDoesNotChainThroughAnotherAlias(t *testing.T) {
	cfg := &config.Config{
		Aliases: map[string]string{
			"g":   "gh2", // expands to a binding that is itself also an alias key
			"gh2": "gh",  // must NOT be re-expanded
		},
	}
	r := newTestResolver(t, cfg, map[string]string{"gh.js": ghPlugin})
	res := r.Resolve("g facebook/react")
	// "g" expands once to "gh2 facebook/react"; "gh2" is not looked up as
	// an alias again, and no plugin claims "gh2", so this falls back.
	if res.Outcome != resolver.OutcomeFallback {
		t.Fatalf("Outcome = %v, want fallback (alias must not chain)", res.Outcome)
	}
}

func TestResolveCaseInsensitiveBinding(t *testing.T) {
	r := newTestResolver(t, nil, map[string]string{"gh.js": ghPlugin})
	res := r.Resolve("GH facebook/react")
	if res.Outcome != resolver.OutcomeRedirect {
		t.Fatalf("Outcome = %v, want redirect", res.Outcome)
	}
}

func TestResolveShadowedBindingAfterRename(t *testing.T) {
	dir := t.TempDir()
	realPath := filepath.Join(dir, "z-gh.js")
	altPath := filepath.Join(dir, "b-gh.js")
	altPlugin := `
function info() { return { bindings: ["gh"], description: "alt", example: "gh x" }; }
function process(full_args) { return "https://alt.example/" ; }
`
	if err := os.WriteFile(realPath, []byte(ghPlugin), 0o644); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(altPath, []byte(altPlugin), 0o644); err != nil {
		t.Fatal(err)
	}

	cfg := &config.Config{PluginDirs: []string{dir}, PluginTimeoutMS: 200, DefaultSearch: config.DefaultSearchEngine}
	reg := registry.New(cfg, nil)
	if err := reg.Reload(); err != nil {
		t.Fatalf("Reload: %v", err)
	}
	r := resolver.New(reg, cfg, nil)

	// "b-gh.js" sorts before "z-gh.js", so the alt plugin starts active.
	res := r.Resolve("gh facebook/react")
	if res.Location != "https://alt.example/" {
		t.Fatalf("expected b-gh.js (alt plugin) to be active first; got %q", res.Location)
	}

	// Rename the active file so it now sorts after the shadowed one.
	if err := os.Rename(altPath, filepath.Join(dir, "zz-gh.js")); err != nil {
		t.Fatalf("Rename: %v", err)
	}
	if err := reg.Reload(); err != nil {
		t.Fatalf("Reload: %v", err)
	}

	res2 := r.Resolve("gh facebook/react")
	if res2.Location != "https://github.com/facebook/react" {
		t.Errorf("after rename, Location = %q, want the real GitHub plugin's result", res2.Location)
	}
}

func TestResolveTimeoutFallsBack(t *testing.T) {
	loopPlugin := `
function info() { return { bindings: ["loop"], description: "", example: "" }; }
function process(full_args) { while (true) {} }
`
	cfg := &config.Config{PluginTimeoutMS: 20, DefaultSearch: config.DefaultSearchEngine}
	r := newTestResolver(t, cfg, map[string]string{"loop.js": loopPlugin})
	start := time.Now()
	res := r.Resolve("loop")
	if res.Outcome != resolver.OutcomeFallback {
		t.Fatalf("Outcome = %v, want fallback", res.Outcome)
	}
	if time.Since(start) > 2*time.Second {
		t.Error("resolve took too long to fall back on timeout")
	}
}
