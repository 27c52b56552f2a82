package log

import (
	"fmt"
	"sync"
	"time"

	"github.com/sirupsen/logrus"
)

const maxZFields = 16

// EntryZ accumulates typed fields and emits them on End. A nil *EntryZ is
// valid: every method is a no-op, so disabled log statements cost a single
// nil check.
type EntryZ struct {
	lvl Level
	mod Module
	msg string

	zfbuf [maxZFields]ZField
	zfidx int
}

var entryZPool = sync.Pool{
	New: func() any { return new(EntryZ) },
}

func NewEntryZ() *EntryZ {
	e := entryZPool.Get().(*EntryZ)
	e.zfidx = 0
	return e
}

func (z *EntryZ) add(f ZField) *EntryZ {
	if z == nil {
		return nil
	}
	if z.zfidx < maxZFields {
		z.zfbuf[z.zfidx] = f
		z.zfidx++
	}
	return z
}

func (z *EntryZ) Bool(key string, v bool) *EntryZ {
	return z.add(ZField{Type: FieldTypeBool, Key: key, Boolean: v})
}

func (z *EntryZ) String(key string, v string) *EntryZ {
	return z.add(ZField{Type: FieldTypeString, Key: key, String: v})
}

func (z *EntryZ) Hex8(key string, v uint8) *EntryZ {
	return z.add(ZField{Type: FieldTypeHex8, Key: key, Integer: uint64(v)})
}

func (z *EntryZ) Hex16(key string, v uint16) *EntryZ {
	return z.add(ZField{Type: FieldTypeHex16, Key: key, Integer: uint64(v)})
}

func (z *EntryZ) Hex32(key string, v uint32) *EntryZ {
	return z.add(ZField{Type: FieldTypeHex32, Key: key, Integer: uint64(v)})
}

func (z *EntryZ) Int(key string, v int) *EntryZ {
	return z.add(ZField{Type: FieldTypeInt, Key: key, Integer: uint64(v)})
}

func (z *EntryZ) Uint(key string, v uint64) *EntryZ {
	return z.add(ZField{Type: FieldTypeUint, Key: key, Integer: v})
}

func (z *EntryZ) Error(key string, err error) *EntryZ {
	return z.add(ZField{Type: FieldTypeError, Key: key, Error: err})
}

func (z *EntryZ) Duration(key string, d time.Duration) *EntryZ {
	return z.add(ZField{Type: FieldTypeDuration, Key: key, Duration: d})
}

func (z *EntryZ) Stringer(key string, s fmt.Stringer) *EntryZ {
	return z.add(ZField{Type: FieldTypeStringer, Key: key, Interface: s})
}

func (z *EntryZ) Blob(key string, b []byte) *EntryZ {
	return z.add(ZField{Type: FieldTypeBlob, Key: key, Blob: b})
}

// End emits the entry and recycles it. The entry must not be used afterwards.
func (z *EntryZ) End() {
	if z == nil {
		return
	}

	fields := make(logrus.Fields, z.zfidx+1)
	fields["_mod"] = modNames[z.mod]
	for i := range z.zfbuf[:z.zfidx] {
		fields[z.zfbuf[i].Key] = z.zfbuf[i].Value()
	}

	entry := std.WithFields(fields)
	switch z.lvl {
	case FatalLevel:
		entry.Fatal(z.msg)
	case ErrorLevel:
		entry.Error(z.msg)
	case WarnLevel:
		entry.Warn(z.msg)
	case InfoLevel:
		entry.Info(z.msg)
	default:
		entry.Debug(z.msg)
	}

	entryZPool.Put(z)
}
