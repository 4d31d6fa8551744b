// CLAUDE:SUMMARY Reads and writes pod5 containers: signature, embedded Arrow IPC tables, flatbuffer footer, VBZ signal.
// Package pod5 reads and writes the pod5 nanopore read container.
//
// A pod5 file is a signature, a section marker, a sequence of embedded Arrow
// IPC files (reads, signal, run info) each padded to 8 bytes and followed by
// the section marker, then a flatbuffer footer locating those files, the
// footer length, the section marker and the signature again.
package pod5

import (
	"bytes"
	"encoding/binary"
	"fmt"
	"io"

	flatbuffers "github.com/google/flatbuffers/go"
)

// Signature opens and closes every pod5 file.
var Signature = [8]byte{0x8B, 'P', 'O', 'D', '\r', '\n', 0x1A, '\n'}

var footerMagic = [8]byte{'F', 'O', 'O', 'T', 'E', 'R', 0, 0}

const sectionMarkerLen = 16

// ContentType identifies an embedded Arrow file.
type ContentType int16

const (
	ContentReadsTable ContentType = iota
	ContentSignalTable
	ContentReadIDIndex
	ContentOtherIndex
	ContentRunInfoTable
)

func (c ContentType) String() string {
	switch c {
	case ContentReadsTable:
		return "reads"
	case ContentSignalTable:
		return "signal"
	case ContentReadIDIndex:
		return "read_id_index"
	case ContentOtherIndex:
		return "other_index"
	case ContentRunInfoTable:
		return "run_info"
	default:
		return fmt.Sprintf("content(%d)", int16(c))
	}
}

// EmbeddedFile locates one Arrow IPC file inside the container.
type EmbeddedFile struct {
	Offset      int64
	Length      int64
	ContentType ContentType
}

// Footer is the flatbuffer table at the end of a pod5 file.
type Footer struct {
	FileIdentifier string
	Software       string
	Version        string
	Contents       []EmbeddedFile
}

// Find returns the first embedded file of type c.
func (f *Footer) Find(c ContentType) (EmbeddedFile, bool) {
	for _, e := range f.Contents {
		if e.ContentType == c {
			return e, true
		}
	}
	return EmbeddedFile{}, false
}

// Vtable slots (byte offsets) of the footer schema.
const (
	slotFooterIdentifier = 4
	slotFooterSoftware   = 6
	slotFooterVersion    = 8
	slotFooterContents   = 10

	slotEmbeddedOffset  = 4
	slotEmbeddedLength  = 6
	slotEmbeddedFormat  = 8
	slotEmbeddedContent = 10
)

// readFooter validates both signatures and decodes the footer flatbuffer.
func readFooter(r io.ReaderAt, size int64) (*Footer, error) {
	trailer := int64(len(Signature) + sectionMarkerLen + 8)
	if size < int64(len(Signature))+trailer {
		return nil, fmt.Errorf("pod5: file too small (%d bytes)", size)
	}

	var head [8]byte
	if _, err := r.ReadAt(head[:], 0); err != nil {
		return nil, fmt.Errorf("pod5: read signature: %w", err)
	}
	var tail [8]byte
	if _, err := r.ReadAt(tail[:], size-8); err != nil {
		return nil, fmt.Errorf("pod5: read trailing signature: %w", err)
	}
	if head != Signature || tail != Signature {
		return nil, fmt.Errorf("pod5: bad signature")
	}

	var lenBuf [8]byte
	lenOff := size - trailer
	if _, err := r.ReadAt(lenBuf[:], lenOff); err != nil {
		return nil, fmt.Errorf("pod5: read footer length: %w", err)
	}
	footerLen := int64(binary.LittleEndian.Uint64(lenBuf[:]))
	if footerLen <= 0 || footerLen > lenOff {
		return nil, fmt.Errorf("pod5: footer length %d out of range", footerLen)
	}

	buf := make([]byte, footerLen)
	if _, err := r.ReadAt(buf, lenOff-footerLen); err != nil {
		return nil, fmt.Errorf("pod5: read footer: %w", err)
	}
	return decodeFooter(buf)
}

func decodeFooter(buf []byte) (f *Footer, err error) {
	// The flatbuffers runtime indexes without bounds checks.
	defer func() {
		if r := recover(); r != nil {
			f, err = nil, fmt.Errorf("pod5: corrupt footer: %v", r)
		}
	}()
	if len(buf) < flatbuffers.SizeUOffsetT {
		return nil, fmt.Errorf("pod5: footer too small")
	}

	tab := flatbuffers.Table{Bytes: buf, Pos: flatbuffers.GetUOffsetT(buf)}
	f = &Footer{
		FileIdentifier: tableString(&tab, slotFooterIdentifier),
		Software:       tableString(&tab, slotFooterSoftware),
		Version:        tableString(&tab, slotFooterVersion),
	}

	o := flatbuffers.UOffsetT(tab.Offset(slotFooterContents))
	if o == 0 {
		return f, nil
	}
	vec := tab.Vector(o)
	n := tab.VectorLen(o)
	for j := 0; j < n; j++ {
		x := tab.Indirect(vec + flatbuffers.UOffsetT(j)*flatbuffers.SizeUOffsetT)
		sub := flatbuffers.Table{Bytes: buf, Pos: x}
		f.Contents = append(f.Contents, EmbeddedFile{
			Offset:      tableInt64(&sub, slotEmbeddedOffset),
			Length:      tableInt64(&sub, slotEmbeddedLength),
			ContentType: ContentType(tableInt16(&sub, slotEmbeddedContent)),
		})
	}
	return f, nil
}

func tableString(t *flatbuffers.Table, slot flatbuffers.VOffsetT) string {
	o := flatbuffers.UOffsetT(t.Offset(slot))
	if o == 0 {
		return ""
	}
	return string(t.ByteVector(o + t.Pos))
}

func tableInt64(t *flatbuffers.Table, slot flatbuffers.VOffsetT) int64 {
	o := flatbuffers.UOffsetT(t.Offset(slot))
	if o == 0 {
		return 0
	}
	return t.GetInt64(o + t.Pos)
}

func tableInt16(t *flatbuffers.Table, slot flatbuffers.VOffsetT) int16 {
	o := flatbuffers.UOffsetT(t.Offset(slot))
	if o == 0 {
		return 0
	}
	return t.GetInt16(o + t.Pos)
}

// encodeFooter builds the footer flatbuffer.
func encodeFooter(f *Footer) []byte {
	b := flatbuffers.NewBuilder(256)

	files := make([]flatbuffers.UOffsetT, len(f.Contents))
	for i, e := range f.Contents {
		b.StartObject(4)
		b.PrependInt64Slot(0, e.Offset, 0)
		b.PrependInt64Slot(1, e.Length, 0)
		b.PrependInt16Slot(2, 0, 0) // format: FeatherV2
		b.PrependInt16Slot(3, int16(e.ContentType), 0)
		files[i] = b.EndObject()
	}

	ident := b.CreateString(f.FileIdentifier)
	software := b.CreateString(f.Software)
	version := b.CreateString(f.Version)

	b.StartVector(flatbuffers.SizeUOffsetT, len(files), flatbuffers.SizeUOffsetT)
	for i := len(files) - 1; i >= 0; i-- {
		b.PrependUOffsetT(files[i])
	}
	contents := b.EndVector(len(files))

	b.StartObject(4)
	b.PrependUOffsetTSlot(0, ident, 0)
	b.PrependUOffsetTSlot(1, software, 0)
	b.PrependUOffsetTSlot(2, version, 0)
	b.PrependUOffsetTSlot(3, contents, 0)
	b.Finish(b.EndObject())
	return b.FinishedBytes()
}

// pad8 appends zero bytes until len(buf) is a multiple of 8.
func pad8(buf *bytes.Buffer) {
	if rem := buf.Len() % 8; rem != 0 {
		buf.Write(make([]byte, 8-rem))
	}
}
