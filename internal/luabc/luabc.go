// Package luabc reads and writes the .luabc bytecode container: a
// compact, self-contained encoding of a compiled luacode.Prototype
// tree. The layout is bit-exact and documented in doc.go; it is not
// the real Lua binary-chunk format.
package luabc

import (
	"bytes"
	"encoding/binary"
	"fmt"
	"math"

	"github.com/google/uuid"

	"lua53vm.dev/lua/internal/luacode"
)

// Magic is the 4-byte signature every .luabc file starts with.
const Magic = "LUBC"

// Version is the container format version this package reads and writes.
const Version = 1

// Constant-pool tag bytes, per spec.md §4.4.
const (
	tagNil     = 0
	tagBool    = 1
	tagInteger = 2
	tagFloat   = 3
	tagString  = 4
)

// Marshal encodes root as a .luabc byte stream: magic, version,
// BuildID, then the recursively serialized prototype tree.
func Marshal(root *luacode.Prototype) ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteString(Magic)
	buf.WriteByte(Version)
	buildID, err := root.BuildID.MarshalBinary()
	if err != nil {
		return nil, fmt.Errorf("luabc: marshal: build id: %w", err)
	}
	buf.Write(buildID)
	writePrototype(&buf, root)
	return buf.Bytes(), nil
}

func writePrototype(buf *bytes.Buffer, p *luacode.Prototype) {
	buf.WriteByte(p.NumParams)
	if p.IsVararg {
		buf.WriteByte(1)
	} else {
		buf.WriteByte(0)
	}
	writeUint16(buf, uint16(p.FrameSize))

	writeUint32(buf, uint32(len(p.Code)))
	for _, instr := range p.Code {
		writeUint32(buf, uint32(instr))
	}

	writeUint32(buf, uint32(len(p.Constants)))
	for _, c := range p.Constants {
		writeConstant(buf, c)
	}

	writeUint32(buf, uint32(len(p.Functions)))
	for _, child := range p.Functions {
		writePrototype(buf, child)
	}
}

func writeConstant(buf *bytes.Buffer, v luacode.Value) {
	if v.IsNil() {
		buf.WriteByte(tagNil)
		return
	}
	if b, ok := v.IsBool(); ok {
		buf.WriteByte(tagBool)
		if b {
			buf.WriteByte(1)
		} else {
			buf.WriteByte(0)
		}
		return
	}
	if i, ok := v.IsInteger(); ok {
		buf.WriteByte(tagInteger)
		writeUint64(buf, uint64(i))
		return
	}
	if f, ok := v.IsFloat(); ok {
		buf.WriteByte(tagFloat)
		writeUint64(buf, math.Float64bits(f))
		return
	}
	s, _ := v.IsString()
	buf.WriteByte(tagString)
	writeUint32(buf, uint32(len(s)))
	buf.WriteString(s)
}

func writeUint16(buf *bytes.Buffer, v uint16) {
	var b [2]byte
	binary.LittleEndian.PutUint16(b[:], v)
	buf.Write(b[:])
}

func writeUint32(buf *bytes.Buffer, v uint32) {
	var b [4]byte
	binary.LittleEndian.PutUint32(b[:], v)
	buf.Write(b[:])
}

func writeUint64(buf *bytes.Buffer, v uint64) {
	var b [8]byte
	binary.LittleEndian.PutUint64(b[:], v)
	buf.Write(b[:])
}

// Unmarshal decodes a .luabc byte stream produced by Marshal.
func Unmarshal(data []byte) (*luacode.Prototype, error) {
	r := &reader{data: data}
	magic, ok := r.take(4)
	if !ok || string(magic) != Magic {
		return nil, &luacode.LoadError{Kind: luacode.BadMagic}
	}
	version, ok := r.byte()
	if !ok {
		return nil, &luacode.LoadError{Kind: luacode.Truncated, Detail: "version"}
	}
	if version != Version {
		return nil, &luacode.LoadError{Kind: luacode.BadVersion, Detail: fmt.Sprintf("got %d, want %d", version, Version)}
	}
	idBytes, ok := r.take(16)
	if !ok {
		return nil, &luacode.LoadError{Kind: luacode.Truncated, Detail: "build id"}
	}
	buildID, err := uuid.FromBytes(idBytes)
	if err != nil {
		return nil, &luacode.LoadError{Kind: luacode.Truncated, Detail: "build id: " + err.Error()}
	}
	root, err := r.readPrototype()
	if err != nil {
		return nil, err
	}
	if r.err != nil {
		return nil, r.err
	}
	root.BuildID = buildID
	return root, nil
}

type reader struct {
	data []byte
	pos  int
	err  error
}

func (r *reader) take(n int) ([]byte, bool) {
	if r.err != nil || r.pos+n > len(r.data) {
		return nil, false
	}
	b := r.data[r.pos : r.pos+n]
	r.pos += n
	return b, true
}

func (r *reader) byte() (byte, bool) {
	b, ok := r.take(1)
	if !ok {
		return 0, false
	}
	return b[0], true
}

func (r *reader) uint16() (uint16, bool) {
	b, ok := r.take(2)
	if !ok {
		return 0, false
	}
	return binary.LittleEndian.Uint16(b), true
}

func (r *reader) uint32() (uint32, bool) {
	b, ok := r.take(4)
	if !ok {
		return 0, false
	}
	return binary.LittleEndian.Uint32(b), true
}

func (r *reader) uint64() (uint64, bool) {
	b, ok := r.take(8)
	if !ok {
		return 0, false
	}
	return binary.LittleEndian.Uint64(b), true
}

func (r *reader) readPrototype() (*luacode.Prototype, error) {
	p := new(luacode.Prototype)

	nparams, ok := r.byte()
	if !ok {
		return nil, r.truncated("nparams")
	}
	p.NumParams = nparams

	isVararg, ok := r.byte()
	if !ok {
		return nil, r.truncated("is_vararg")
	}
	p.IsVararg = isVararg != 0

	frameSize, ok := r.uint16()
	if !ok {
		return nil, r.truncated("frame_size")
	}
	p.FrameSize = uint8(frameSize)

	ninstr, ok := r.uint32()
	if !ok {
		return nil, r.truncated("ninstr")
	}
	p.Code = make([]luacode.Instruction, ninstr)
	for i := range p.Code {
		raw, ok := r.uint32()
		if !ok {
			return nil, r.truncated("code")
		}
		instr := luacode.Instruction(raw)
		if !instr.OpCode().IsValid() {
			return nil, &luacode.LoadError{Kind: luacode.InvalidOpcode, Detail: fmt.Sprintf("pc %d", i)}
		}
		p.Code[i] = instr
	}

	nconsts, ok := r.uint32()
	if !ok {
		return nil, r.truncated("nconsts")
	}
	p.Constants = make([]luacode.Value, nconsts)
	for i := range p.Constants {
		v, err := r.readConstant()
		if err != nil {
			return nil, err
		}
		p.Constants[i] = v
	}

	nprotos, ok := r.uint32()
	if !ok {
		return nil, r.truncated("nprotos")
	}
	p.Functions = make([]*luacode.Prototype, nprotos)
	for i := range p.Functions {
		child, err := r.readPrototype()
		if err != nil {
			return nil, err
		}
		p.Functions[i] = child
	}

	return p, nil
}

func (r *reader) readConstant() (luacode.Value, error) {
	tag, ok := r.byte()
	if !ok {
		return luacode.Value{}, r.truncated("constant tag")
	}
	switch tag {
	case tagNil:
		return luacode.NilValue, nil
	case tagBool:
		b, ok := r.byte()
		if !ok {
			return luacode.Value{}, r.truncated("bool constant")
		}
		return luacode.BoolValue(b != 0), nil
	case tagInteger:
		bits, ok := r.uint64()
		if !ok {
			return luacode.Value{}, r.truncated("integer constant")
		}
		return luacode.IntegerValue(int64(bits)), nil
	case tagFloat:
		bits, ok := r.uint64()
		if !ok {
			return luacode.Value{}, r.truncated("float constant")
		}
		return luacode.FloatValue(math.Float64frombits(bits)), nil
	case tagString:
		n, ok := r.uint32()
		if !ok {
			return luacode.Value{}, r.truncated("string constant length")
		}
		b, ok := r.take(int(n))
		if !ok {
			return luacode.Value{}, r.truncated("string constant data")
		}
		return luacode.StringValue(string(b)), nil
	default:
		return luacode.Value{}, &luacode.LoadError{Kind: luacode.BadConstantTag, Detail: fmt.Sprintf("%#02x", tag)}
	}
}

func (r *reader) truncated(what string) error {
	return &luacode.LoadError{Kind: luacode.Truncated, Detail: what}
}
