// Package binding wraps the SizeCeph native codec's three C entry points
// (size_split, size_restore, size_can_get_restore_fn) behind a process-wide,
// reference-counted singleton (spec §3 "Native binding (process-wide
// singleton)", §9 "Dynamic binding"). This is the one place this module
// reaches for cgo: the native codec is an arbitrary C shared object, and
// Go's own plugin package only loads Go-built plugins, so dlopen/dlsym is
// the only way to bind it at runtime — exactly what the original C++
// ErasureCodeSizeCeph does with <dlfcn.h>.
package binding

/*
#cgo LDFLAGS: -ldl
#include <dlfcn.h>
#include <stdlib.h>

typedef void (*size_split_fn_t)(unsigned char **pp_dst, unsigned char *p_src, unsigned int len);
typedef int  (*size_restore_fn_t)(unsigned char *p_dst, const unsigned char **pp_src, unsigned int len);
typedef int  (*size_can_get_restore_fn_t)(const unsigned char **pp_src);

// cgo cannot call an arbitrary void* as a function directly; these thin
// trampolines cast the resolved dlsym() pointer to its real signature and
// make the call, mirroring what the C++ original does natively.
static void call_size_split(void *fn, unsigned char **pp_dst, unsigned char *p_src, unsigned int len) {
	((size_split_fn_t)fn)(pp_dst, p_src, len);
}

static int call_size_restore(void *fn, unsigned char *p_dst, const unsigned char **pp_src, unsigned int len) {
	return ((size_restore_fn_t)fn)(p_dst, pp_src, len);
}

static int call_size_can_get_restore(void *fn, const unsigned char **pp_src) {
	return ((size_can_get_restore_fn_t)fn)(pp_src);
}
*/
import "C"

import (
	"os"
	"runtime"
	"sync"
	"unsafe"

	"go.uber.org/zap"
)

// DefaultSearchPaths mirrors the original's fixed lib_paths vector, tried in
// order after the environment override (spec §6 "Library-search order").
var DefaultSearchPaths = []string{
	"/usr/local/lib/sizeceph.so",
	"/usr/lib/sizeceph.so",
	"./sizeceph.so",
}

// EnvOverride is the environment variable consulted before DefaultSearchPaths.
const EnvOverride = "SIZECEPH_LIBRARY_PATH"

// Binding is the process-wide native codec handle. The mutex serializes
// load, unload, and reference counting. Split, Restore, and CanRestore hold
// it only long enough to copy one function pointer; the native call itself
// runs without the mutex.
type Binding struct {
	mu         sync.Mutex
	handle     unsafe.Pointer
	refCount   int
	split      unsafe.Pointer
	restore    unsafe.Pointer
	canRestore unsafe.Pointer
	loadedFrom string
	log        *zap.Logger
}

// process is the single process-wide instance (spec §3 "process-wide
// singleton"). SetLogger attaches structured logging; a later call replaces
// the logger, whether or not the library is loaded.
var process = &Binding{log: zap.NewNop()}

// SetLogger attaches log to the process-wide binding for its lifetime.
func SetLogger(log *zap.Logger) {
	process.mu.Lock()
	defer process.mu.Unlock()
	if log != nil {
		process.log = log
	}
}

// Acquire increments the reference count, loading the native library on the
// 0->1 transition (spec invariant I1/I2). It returns an error if no search
// path yields a library exposing all three required symbols.
func Acquire() error {
	process.mu.Lock()
	defer process.mu.Unlock()
	if process.refCount > 0 {
		process.refCount++
		return nil
	}
	if err := process.load(); err != nil {
		return err
	}
	process.refCount = 1
	return nil
}

// Release decrements the reference count, unloading the library and
// clearing all three function pointers together on the 1->0 transition.
func Release() {
	process.mu.Lock()
	defer process.mu.Unlock()
	if process.refCount == 0 {
		return
	}
	process.refCount--
	if process.refCount == 0 {
		process.unloadLocked()
	}
}

// RefCount reports the current reference count, for metrics/diagnostics.
func RefCount() int {
	process.mu.Lock()
	defer process.mu.Unlock()
	return process.refCount
}

// Loaded reports whether the native pointers are currently populated.
func Loaded() bool {
	process.mu.Lock()
	defer process.mu.Unlock()
	return process.handle != nil
}

func searchPaths() []string {
	paths := make([]string, 0, len(DefaultSearchPaths)+1)
	if override := os.Getenv(EnvOverride); override != "" {
		paths = append(paths, override)
	}
	paths = append(paths, DefaultSearchPaths...)
	return paths
}

// load must be called with process.mu held.
func (b *Binding) load() error {
	for _, path := range searchPaths() {
		cPath := C.CString(path)
		handle := C.dlopen(cPath, C.RTLD_LAZY)
		C.free(unsafe.Pointer(cPath))
		if handle == nil {
			b.log.Debug("sizeceph binding: dlopen failed", zap.String("path", path))
			continue
		}

		split := dlsym(handle, "size_split")
		restore := dlsym(handle, "size_restore")
		canRestore := dlsym(handle, "size_can_get_restore_fn")
		if split == nil || restore == nil || canRestore == nil {
			b.log.Warn("sizeceph binding: missing symbol, releasing handle", zap.String("path", path))
			C.dlclose(handle)
			continue
		}

		b.handle = handle
		b.split = split
		b.restore = restore
		b.canRestore = canRestore
		b.loadedFrom = path
		b.log.Info("sizeceph binding: loaded", zap.String("path", path))
		return nil
	}
	return errNotFound
}

// unloadLocked must be called with process.mu held.
func (b *Binding) unloadLocked() {
	if b.handle == nil {
		return
	}
	b.log.Info("sizeceph binding: unloading", zap.String("path", b.loadedFrom))
	C.dlclose(b.handle)
	b.handle = nil
	b.split = nil
	b.restore = nil
	b.canRestore = nil
	b.loadedFrom = ""
}

func dlsym(handle unsafe.Pointer, name string) unsafe.Pointer {
	cName := C.CString(name)
	defer C.free(unsafe.Pointer(cName))
	return C.dlsym(handle, cName)
}

// Split invokes size_split: writes len(in)/Alignment bytes into each of
// len(out) output buffers. Acquire must have succeeded first.
func Split(out [][]byte, in []byte) error {
	process.mu.Lock()
	split := process.split
	process.mu.Unlock()
	if split == nil {
		return errNotFound
	}

	// outPtrs holds a Go pointer into each shard buffer, so every shard
	// buffer must be pinned before the array's address crosses into C:
	// otherwise cgocheck sees a Go pointer (outPtrsPtr) to memory that
	// itself holds unpinned Go pointers and panics.
	var pinner runtime.Pinner
	defer pinner.Unpin()

	outPtrs := make([]*C.uchar, len(out))
	for i, buf := range out {
		if len(buf) == 0 {
			outPtrs[i] = nil
			continue
		}
		pinner.Pin(&buf[0])
		outPtrs[i] = (*C.uchar)(unsafe.Pointer(&buf[0]))
	}
	var inPtr *C.uchar
	if len(in) > 0 {
		inPtr = (*C.uchar)(unsafe.Pointer(&in[0]))
	}
	var outPtrsPtr **C.uchar
	if len(outPtrs) > 0 {
		outPtrsPtr = &outPtrs[0]
	}
	C.call_size_split(split, outPtrsPtr, inPtr, C.uint(len(in)))
	return nil
}

// Restore invokes size_restore: in holds one entry per shard id, with a nil
// entry for a missing shard (spec §4.3 step 3). outLen bytes are written
// into the returned slice. Acquire must have succeeded first.
func Restore(in [][]byte, outLen int) ([]byte, error) {
	process.mu.Lock()
	restore := process.restore
	process.mu.Unlock()
	if restore == nil {
		return nil, errNotFound
	}

	var pinner runtime.Pinner
	defer pinner.Unpin()

	inPtrs := make([]*C.uchar, len(in))
	for i, buf := range in {
		if len(buf) == 0 {
			inPtrs[i] = nil
			continue
		}
		pinner.Pin(&buf[0])
		inPtrs[i] = (*C.uchar)(unsafe.Pointer(&buf[0]))
	}
	out := make([]byte, outLen)
	var outPtr *C.uchar
	if outLen > 0 {
		outPtr = (*C.uchar)(unsafe.Pointer(&out[0]))
	}
	var inPtrsPtr **C.uchar
	if len(inPtrs) > 0 {
		inPtrsPtr = &inPtrs[0]
	}
	rc := C.call_size_restore(restore, outPtr, inPtrsPtr, C.uint(outLen))
	if rc != 0 {
		return nil, errIO
	}
	return out, nil
}

// CanRestore invokes size_can_get_restore_fn on the given availability
// pattern (nil entries denote missing shards). Acquire must have succeeded
// first.
func CanRestore(in [][]byte) (bool, error) {
	process.mu.Lock()
	canRestore := process.canRestore
	process.mu.Unlock()
	if canRestore == nil {
		return false, errNotFound
	}

	var pinner runtime.Pinner
	defer pinner.Unpin()

	inPtrs := make([]*C.uchar, len(in))
	for i, buf := range in {
		if len(buf) == 0 {
			inPtrs[i] = nil
			continue
		}
		pinner.Pin(&buf[0])
		inPtrs[i] = (*C.uchar)(unsafe.Pointer(&buf[0]))
	}
	var inPtrsPtr **C.uchar
	if len(inPtrs) > 0 {
		inPtrsPtr = &inPtrs[0]
	}
	rc := C.call_size_can_get_restore(canRestore, inPtrsPtr)
	return rc != 0, nil
}
