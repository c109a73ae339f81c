package domain

import (
	"encoding/binary"
	"fmt"
	"reflect"
	"strings"
	"time"

	"github.com/cespare/xxhash/v2"
)

const nullMarker = "null"

// equalable is implemented by every entity; Equal consults the other side's
// CanEqual so a wrapping type can refuse comparison.
type equalable interface {
	CanEqual(other any) bool
}

func ref[T any](v T) *T {
	return &v
}

func eqPtr[T comparable](a, b *T) bool {
	if a == nil || b == nil {
		return a == b
	}
	return *a == *b
}

func eqTime(a, b *time.Time) bool {
	if a == nil || b == nil {
		return a == b
	}
	return a.Equal(*b)
}

// isNil reports whether v is nil or a typed nil pointer.
func isNil(v any) bool {
	if v == nil {
		return true
	}
	rv := reflect.ValueOf(v)
	return rv.Kind() == reflect.Pointer && rv.IsNil()
}

func refusesEquality(other any, self any) bool {
	c, ok := other.(equalable)
	return ok && !c.CanEqual(self)
}

// fieldHasher feeds identity fields into an xxhash digest. Each field is
// prefixed with a presence byte so null and zero values hash differently.
type fieldHasher struct {
	d   *xxhash.Digest
	buf [8]byte
}

func newFieldHasher(kind string) *fieldHasher {
	h := &fieldHasher{d: xxhash.New()}
	h.raw(kind)
	return h
}

func (h *fieldHasher) present(ok bool) bool {
	if ok {
		_, _ = h.d.Write([]byte{1})
	} else {
		_, _ = h.d.Write([]byte{0})
	}
	return ok
}

func (h *fieldHasher) u64(v uint64) {
	binary.LittleEndian.PutUint64(h.buf[:], v)
	_, _ = h.d.Write(h.buf[:])
}

func (h *fieldHasher) raw(s string) {
	h.u64(uint64(len(s)))
	_, _ = h.d.WriteString(s)
}

func (h *fieldHasher) Int(v *int) *fieldHasher {
	if h.present(v != nil) {
		h.u64(uint64(*v))
	}
	return h
}

func (h *fieldHasher) Str(v *string) *fieldHasher {
	if h.present(v != nil) {
		h.raw(*v)
	}
	return h
}

func (h *fieldHasher) Bool(v *bool) *fieldHasher {
	if h.present(v != nil) {
		if *v {
			h.u64(1)
		} else {
			h.u64(0)
		}
	}
	return h
}

// Time hashes the instant, not the location, matching time.Time.Equal.
func (h *fieldHasher) Time(v *time.Time) *fieldHasher {
	if h.present(v != nil) {
		h.u64(uint64(v.Unix()))
		h.u64(uint64(v.Nanosecond()))
	}
	return h
}

func (h *fieldHasher) Role(r RoleBasedAuthority) *fieldHasher {
	if h.present(r != "") {
		h.raw(string(r))
	}
	return h
}

func (h *fieldHasher) Sum() uint64 {
	return h.d.Sum64()
}

// fieldWriter renders `Type(name=value, ...)`.
type fieldWriter struct {
	b strings.Builder
	n int
}

func newFieldWriter(kind string) *fieldWriter {
	w := &fieldWriter{}
	w.b.WriteString(kind)
	w.b.WriteByte('(')
	return w
}

func (w *fieldWriter) field(name, value string) *fieldWriter {
	if w.n > 0 {
		w.b.WriteString(", ")
	}
	w.n++
	w.b.WriteString(name)
	w.b.WriteByte('=')
	w.b.WriteString(value)
	return w
}

func (w *fieldWriter) String() string {
	w.b.WriteByte(')')
	return w.b.String()
}

func show[T any](v *T) string {
	if v == nil {
		return nullMarker
	}
	return fmt.Sprint(*v)
}

func showTime(v *time.Time) string {
	if v == nil {
		return nullMarker
	}
	return v.Format(time.RFC3339Nano)
}

func showSize(n int, isNil bool) string {
	if isNil {
		return nullMarker
	}
	return fmt.Sprintf("[%d]", n)
}

func showRef(kind string, id *int, isNil bool) string {
	if isNil {
		return nullMarker
	}
	return kind + "#" + show(id)
}
