package scripthost

import (
	"net/url"
	"strings"
)

// bindHostAPI installs the only functions reachable from plugin script
// code (spec §4.A): get_args, url_encode, url_encode_path. No filesystem,
// network, process, or timer API is ever bound — a plugin's only way to
// see the outside world is the full query string it's called with, and
// its only way to act on it is to return a string.
func bindHostAPI(vm vmBinder) error {
	if err := vm.Set("get_args", hostGetArgs); err != nil {
		return err
	}
	if err := vm.Set("url_encode", hostURLEncode); err != nil {
		return err
	}
	if err := vm.Set("url_encode_path", hostURLEncodePath); err != nil {
		return err
	}
	return nil
}

// vmBinder is the subset of *goja.Runtime bindHostAPI needs; kept narrow
// so the host API functions below are easy to unit test without a VM.
type vmBinder interface {
	Set(name string, value interface{}) error
}

// hostGetArgs returns the argument tail of fullArgs, treating binding as
// the command prefix (spec §4.A). After stripping leading whitespace from
// fullArgs, if it starts with binding (case-insensitive) followed by a
// whitespace run or end-of-string, the substring after that whitespace
// run is returned ("" if binding is the entire input). Otherwise "".
func hostGetArgs(fullArgs, binding string) string {
	trimmed := strings.TrimLeft(fullArgs, " \t\r\n")
	if len(trimmed) < len(binding) || !strings.EqualFold(trimmed[:len(binding)], binding) {
		return ""
	}
	rest := trimmed[len(binding):]
	if rest == "" {
		return ""
	}
	if !isASCIISpace(rune(rest[0])) {
		return ""
	}
	i := 0
	for i < len(rest) && isASCIISpace(rune(rest[i])) {
		i++
	}
	return rest[i:]
}

func isASCIISpace(r rune) bool {
	return r == ' ' || r == '\t' || r == '\r' || r == '\n'
}

// hostURLEncode applies application/x-www-form-urlencoded encoding
// (spaces become "+"), the right form for a query-string value.
func hostURLEncode(s string) string {
	return url.QueryEscape(s)
}

// hostURLEncodePath applies RFC 3986 path-segment encoding (spaces become
// "%20", "/" is preserved), the right form for building a URL path.
func hostURLEncodePath(s string) string {
	segments := strings.Split(s, "/")
	for i, seg := range segments {
		segments[i] = url.PathEscape(seg)
	}
	return strings.Join(segments, "/")
}
