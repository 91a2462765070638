// Package render encodes the host tree into draw commands for the native
// renderer.
//
// Commands are written into two fixed-capacity regions owned by an
// Encoder: a header region of 40-byte little-endian records and a payload
// region holding UTF-8 text. Buffers are allocated once and rewound with
// Reset between frames.
//
//	enc := render.NewEncoder(256, 16384)
//	if err := render.Emit(h, enc); err != nil {
//	    return err // ErrHeaderCapacity or ErrPayloadCapacity
//	}
//	bufs := enc.Finalize()
//
// Exceeding either region fails the frame immediately; the encoder never
// grows. Size the encoder for the largest expected tree.
package render
