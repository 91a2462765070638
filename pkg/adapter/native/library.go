package native

import "runtime"

// DefaultLibraryName is the platform file name of the renderer library.
func DefaultLibraryName() string {
	switch runtime.GOOS {
	case "darwin":
		return "libnative_renderer.dylib"
	case "windows":
		return "native_renderer.dll"
	default:
		return "libnative_renderer.so"
	}
}
