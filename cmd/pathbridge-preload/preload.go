//go:build linux

// Command pathbridge-preload builds libpathbridge-preload.so, the
// LD_PRELOAD shim of spec section 4.4. It is built with
// `go build -buildmode=c-shared`, which gives this package's cgo-exported
// Go function a real C ABI entry point; the actual intercepted libc
// entry points (open, stat, rename, ...) are implemented in shim.c so
// that their signatures match glibc's exactly and the dynamic linker's
// symbol resolution order shadows them the same way a hand-written C
// LD_PRELOAD library would. shim.c calls back into this file's
// pathbridgeTranslate for the one piece of logic that benefits from
// reuse with the FS process: the host-prefix match and rewrite rule of
// internal/interpose.Translator.
//
// Grounded on _examples/original_source/native/fakepath.c, the original
// C implementation this package replaces; see DESIGN.md for the
// per-function correspondence and the two documented REDESIGN FLAGS
// (input-only translation, narrowed case sensitivity).
package main

/*
#include <stdlib.h>
*/
import "C"

import (
	"os"
	"sync"
	"unsafe"

	"github.com/pathbridge/pathbridge/internal/interpose"
)

var (
	initOnce   sync.Once
	translator *interpose.Translator
)

// ensureTranslator performs the lazy prefix-pair initialization of spec
// 4.4 step 2: the host-form prefix comes from the environment, the
// container-form prefix from the real working-directory primitive.
// Go's os.Getwd issues the getwd(2) syscall directly rather than going
// through glibc's getcwd(3), so it cannot recurse into this library's
// own interposition even though (per the REDESIGN FLAG) this library
// does not wrap getcwd at all.
func ensureTranslator() {
	initOnce.Do(func() {
		hostPrefix := os.Getenv("PATHBRIDGE_HOST_PREFIX")
		cwd, err := os.Getwd()
		if err != nil {
			cwd = ""
		}
		translator = interpose.NewTranslator(hostPrefix, cwd)
	})
}

// pathbridgeTranslate is called from shim.c for every intercepted
// pathname argument. It returns a malloc'd, NUL-terminated translated
// path (which the C caller must free) when translation applies, or NULL
// when the argument should be passed through unchanged. C.CString uses
// C's malloc internally, so the result is safe for the C side to pass
// to free() per spec 4.4 step 4 ("free the translated buffer").
//
//export pathbridgeTranslate
func pathbridgeTranslate(cpath *C.char) *C.char {
	if cpath == nil {
		return nil
	}
	ensureTranslator()
	if !translator.Ready() {
		return nil
	}
	path := C.GoString(cpath)
	translated, ok := translator.Translate(path)
	if !ok {
		return nil
	}
	return C.CString(translated)
}

// pathbridgeFreeTranslated is a thin wrapper so shim.c need not assume a
// particular allocator for the string pathbridgeTranslate returned.
//
//export pathbridgeFreeTranslated
func pathbridgeFreeTranslated(p *C.char) {
	if p != nil {
		C.free(unsafe.Pointer(p))
	}
}

// main is required for a buildmode=c-shared package but is never
// invoked; the shared object has no entry point of its own, only the
// exported C symbols shim.c and this file provide.
func main() {}
