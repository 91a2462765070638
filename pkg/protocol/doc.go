// Package protocol defines the wire formats exchanged with a native
// renderer.
//
// Three channels cross the boundary:
//
//   - Tree sync: JSON encoded snapshots ({"nodes":[...]}) and mutation
//     batches ({"seq":N,"ops":[...]}), UTF-8, passed opaquely to the
//     renderer.
//   - Draw commands: a header region of fixed 40-byte little-endian
//     records plus a shared payload region holding text bytes.
//   - Events: a native-owned ring of fixed 16-byte little-endian entries
//     with a detail byte region, described by a 16 or 24 byte header.
//
// # Command Header
//
//	offset  size  field
//	     0     1  opcode
//	     1     1  flags
//	     2     2  reserved
//	     4     4  nodeId
//	     8     4  parentId
//	    12    16  x, y, width, height (float32)
//	    28     4  payloadOffset
//	    32     4  payloadLength
//	    36     4  extra (packed RGBA)
//
// # Event Entry
//
//	offset  size  field
//	     0     1  kind
//	     4     4  nodeId
//	     8     4  detailOffset
//	    12     2  detailLen
//
// Unlisted bytes are padding and are written as zero.
package protocol
