package errors

import "sort"

// ErrorTemplate defines a registered error type.
type ErrorTemplate struct {
	Category Category
	Message  string
	Detail   string
	Fatal    bool
}

// registry maps error codes to their templates.
var registry = map[string]ErrorTemplate{
	// ============================================
	// Encoder Errors (B001-B009)
	// ============================================

	"B001": {
		Category: CategoryEncoder,
		Message:  "Command header capacity exceeded",
		Detail:   "The frame produced more draw commands than the encoder was sized for. The frame is dropped.",
		Fatal:    true,
	},
	"B002": {
		Category: CategoryEncoder,
		Message:  "Command payload capacity exceeded",
		Detail:   "The text payload of the frame does not fit in the encoder's payload region. The frame is dropped.",
		Fatal:    true,
	},
	"B003": {
		Category: CategoryEncoder,
		Message:  "Malformed command buffers",
		Detail:   "A header or payload range points outside the committed buffers.",
	},

	// ============================================
	// Native Renderer Errors (B010-B019)
	// ============================================

	"B010": {
		Category: CategoryNative,
		Message:  "Native renderer handle creation failed",
		Detail:   "The native library returned a null renderer handle. The bridge cannot run without it.",
		Fatal:    true,
	},
	"B011": {
		Category: CategoryNative,
		Message:  "Native library load failed",
		Detail:   "The shared library implementing the renderer could not be opened or is missing symbols.",
		Fatal:    true,
	},
	"B012": {
		Category: CategoryNative,
		Message:  "Renderer disposed",
		Detail:   "The renderer adapter has been closed and accepts no further calls.",
	},

	// ============================================
	// Sync Errors (B020-B029)
	// ============================================

	"B020": {
		Category: CategorySync,
		Message:  "Mutation batch rejected",
		Detail:   "The native side refused an incremental batch. A full snapshot is sent on the next flush.",
	},
	"B021": {
		Category: CategorySync,
		Message:  "Payload encoding failed",
		Detail:   "A snapshot or mutation batch could not be serialized.",
	},

	// ============================================
	// Tree Errors (B030-B039)
	// ============================================

	"B030": {
		Category: CategoryTree,
		Message:  "Unknown node",
		Detail:   "The node id is not present in the host tree. It was never created or has been released.",
	},
	"B031": {
		Category: CategoryTree,
		Message:  "Invalid tree operation",
		Detail:   "The operation would break parent/child consistency (cycle, wrong parent or detached anchor).",
	},

	// ============================================
	// Dispatch Errors (B040-B049)
	// ============================================

	"B040": {
		Category: CategoryDispatch,
		Message:  "Dispatch queue full",
		Detail:   "Too many handler invocations are waiting for the next tick. The event was dropped.",
	},

	// ============================================
	// Config Errors (B050-B059)
	// ============================================

	"B050": {
		Category: CategoryConfig,
		Message:  "Invalid configuration",
	},
	"B051": {
		Category: CategoryConfig,
		Message:  "Configuration file not found",
	},
	"B052": {
		Category: CategoryConfig,
		Message:  "Configuration file unreadable",
	},

	// ============================================
	// Recording Errors (B060-B069)
	// ============================================

	"B060": {
		Category: CategoryRecording,
		Message:  "Recording decode failed",
		Detail:   "A recorded entry could not be parsed.",
	},
	"B061": {
		Category: CategoryRecording,
		Message:  "Recording sink failed",
		Detail:   "A recording sink could not store an entry.",
	},
}

// Lookup returns the template for a code.
func Lookup(code string) (ErrorTemplate, bool) {
	t, ok := registry[code]
	return t, ok
}

// Codes returns all registered codes in ascending order.
func Codes() []string {
	codes := make([]string, 0, len(registry))
	for code := range registry {
		codes = append(codes, code)
	}
	sort.Strings(codes)
	return codes
}
