// Package luabc reads and writes the .luabc bytecode container.
//
// Wire layout (all multi-byte integers little-endian):
//
//	offset  field
//	0       4-byte magic "LUBC"
//	4       1-byte version
//	5       16-byte BuildID (github.com/google/uuid, root prototype only)
//	21      serialized root prototype
//
// A serialized prototype is:
//
//	u8  nparams
//	u8  is_vararg
//	u16 frame_size
//	u32 ninstr, then ninstr x u32 instructions (opcode in low byte)
//	u32 nconsts, then each constant as a u8 tag followed by its payload:
//	      0 nil (no payload), 1 bool (u8), 2 integer (i64),
//	      3 float (f64), 4 string (u32 length + bytes)
//	u32 nprotos, then nprotos recursively serialized child prototypes
//
// A container may optionally be bzip2-compressed (see WriteFile/LoadFile);
// compression is a transport detail layered outside this wire format, not
// part of it.
package luabc
