// Command libbunnylol builds the stable C ABI entry point the native
// menu-bar shell links against (spec §6): a single exported Serve
// function that blocks until shutdown. Build as a shared library with:
//
//	go build -buildmode=c-shared -o libbunnylol.so ./cmd/libbunnylol
package main

/*
#include <stdint.h>
*/
import "C"

import (
	"log/slog"
	"os"

	"github.com/bunnylol/bunnylol/internal/app"
)

// Serve blocks until the server shuts down. Returns 0 on clean shutdown,
// 1 on bind/listen error, 2 on configuration parse error, 3 on fatal
// internal error (spec §6 "Exit codes from serve"). port of 0 leaves the
// configured/default port untouched.
//
//export Serve
func Serve(port C.uint16_t) C.int32_t {
	logger := slog.New(slog.NewTextHandler(os.Stderr, nil))
	code := app.Serve(app.Options{
		Port:     uint16(port),
		Logger:   logger,
		Watch:    true,
		Schedule: true,
	})
	return C.int32_t(code)
}

func main() {}
