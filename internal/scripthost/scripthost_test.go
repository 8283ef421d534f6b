package scripthost

import (
	"errors"
	"strings"
	"testing"
	"time"
)

const ghScript = `
function info() {
    return {
        bindings: ["gh"],
        description: "Jump to a GitHub repository",
        example: "gh golang/go"
    };
}

function process(full_args) {
    var rest = get_args(full_args, "gh");
    if (rest === "") {
        return "https://github.com";
    }
    return "https://github.com/" + url_encode_path(rest);
}
`

func TestHostLoadAndInfo(t *testing.T) {
	h, err := Load("gh.js", ghScript, 0)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	info, err := h.Info()
	if err != nil {
		t.Fatalf("Info: %v", err)
	}
	if len(info.Bindings) != 1 || info.Bindings[0] != "gh" {
		t.Errorf("Bindings = %v, want [gh]", info.Bindings)
	}
	if info.Description == "" {
		t.Error("Description should not be empty")
	}
}

func TestHostProcess(t *testing.T) {
	h, err := Load("gh.js", ghScript, 0)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}

	got, err := h.Process("gh facebook/react")
	if err != nil {
		t.Fatalf("Process: %v", err)
	}
	want := "https://github.com/facebook/react"
	if got != want {
		t.Errorf("Process() = %q, want %q", got, want)
	}
}

func TestHostProcessNoArgs(t *testing.T) {
	h, err := Load("gh.js", ghScript, 0)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	got, err := h.Process("gh")
	if err != nil {
		t.Fatalf("Process: %v", err)
	}
	if got != "https://github.com" {
		t.Errorf("Process() = %q, want https://github.com", got)
	}
}

func TestHostProcessPreservesSpace(t *testing.T) {
	h, err := Load("gh.js", ghScript, 0)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	got, err := h.Process("gh hello world")
	if err != nil {
		t.Fatalf("Process: %v", err)
	}
	if got != "https://github.com/hello%20world" {
		t.Errorf("Process() = %q, want https://github.com/hello%%20world", got)
	}
}

func TestLoadMissingInfo(t *testing.T) {
	_, err := Load("bad.js", `function process(full_args) { return "/"; }`, 0)
	if err == nil {
		t.Fatal("expected error for missing info()")
	}
	if !strings.Contains(err.Error(), "info") {
		t.Errorf("error = %v, want it to mention info()", err)
	}
}

func TestLoadMissingProcess(t *testing.T) {
	_, err := Load("bad.js", `function info() { return {bindings: ["x"]}; }`, 0)
	if err == nil {
		t.Fatal("expected error for missing process()")
	}
	if !strings.Contains(err.Error(), "process") {
		t.Errorf("error = %v, want it to mention process()", err)
	}
}

func TestInfoRequiresBindings(t *testing.T) {
	h, err := Load("bad.js", `
function info() { return {}; }
function process(full_args) { return "/"; }
`, 0)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if _, err := h.Info(); err == nil {
		t.Fatal("expected error for missing bindings")
	}
}

func TestSandboxNoAmbientAccess(t *testing.T) {
	// "process" itself is the plugin's own required function, so the probe
	// for a Node-style process object checks process.env instead.
	cases := []string{"require", "process.env", "fetch", "fs", "__dirname"}
	for _, name := range cases {
		src := `
function info() { return {bindings: ["x"]}; }
function process(full_args) { return typeof ` + name + `; }
`
		h, err := Load("probe.js", src, 0)
		if err != nil {
			t.Fatalf("Load: %v", err)
		}
		got, err := h.Process("x")
		if err != nil {
			t.Fatalf("Process: %v", err)
		}
		if got != "undefined" {
			t.Errorf("global %q leaked into plugin scope (typeof = %q)", name, got)
		}
	}
}

func TestProcessRejectsNonStringResult(t *testing.T) {
	src := `
function info() { return {bindings: ["x"]}; }
function process(full_args) { return 42; }
`
	h, err := Load("numeric.js", src, 0)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if _, err := h.Process("x"); err == nil {
		t.Fatal("expected an error for a non-string process() result")
	}
}

func TestProcessTimeout(t *testing.T) {
	src := `
function info() { return {bindings: ["x"]}; }
function process(full_args) { while (true) {} }
`
	h, err := Load("loop.js", src, 20*time.Millisecond)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	_, err = h.Process("x")
	if err == nil {
		t.Fatal("expected timeout error")
	}
	var timeoutErr ErrTimeout
	if !errors.As(err, &timeoutErr) {
		t.Errorf("error = %v, want ErrTimeout", err)
	}
}
