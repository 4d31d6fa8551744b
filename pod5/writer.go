package pod5

import (
	"bytes"
	"encoding/binary"
	"fmt"
	"io"

	"github.com/apache/arrow-go/v18/arrow"
	"github.com/apache/arrow-go/v18/arrow/array"
	"github.com/apache/arrow-go/v18/arrow/ipc"
	"github.com/apache/arrow-go/v18/arrow/memory"
	"github.com/google/uuid"
)

// Version is written into the footer and table metadata.
const Version = "0.3.2"

// MaxChunkSamples bounds the samples stored in one signal row.
const MaxChunkSamples = 102400

// Read is one read to be written.
type Read struct {
	ID            uuid.UUID
	ReadNumber    uint32
	Start         uint64
	Channel       uint16
	Well          uint8
	Signal        []int16
	MedianBefore  float32
	AcquisitionID string
}

// WriteOptions carries the run-level fields.
type WriteOptions struct {
	Software   string
	SampleRate uint16
}

func (o *WriteOptions) defaults() {
	if o.Software == "" {
		o.Software = "bulkvis"
	}
	if o.SampleRate == 0 {
		o.SampleRate = 4000
	}
}

func extField(name string, typ arrow.DataType, ext string) arrow.Field {
	return arrow.Field{
		Name: name,
		Type: typ,
		Metadata: arrow.NewMetadata(
			[]string{"ARROW:extension:name", "ARROW:extension:metadata"},
			[]string{ext, ""},
		),
	}
}

func tableMetadata(fileID uuid.UUID, software string) arrow.Metadata {
	return arrow.NewMetadata(
		[]string{"MINKNOW:pod5_version", "MINKNOW:software", "MINKNOW:file_identifier"},
		[]string{Version, software, fileID.String()},
	)
}

// Write encodes reads as a complete pod5 file into w.
func Write(w io.Writer, reads []Read, opts WriteOptions) error {
	opts.defaults()
	fileID := uuid.New()
	marker := uuid.New()
	mem := memory.NewGoAllocator()
	meta := tableMetadata(fileID, opts.Software)

	signalIPC, rowsByRead, err := signalTable(mem, meta, reads)
	if err != nil {
		return err
	}
	runIPC, err := runInfoTable(mem, meta, reads, opts)
	if err != nil {
		return err
	}
	readsIPC, err := readsTable(mem, meta, reads, rowsByRead)
	if err != nil {
		return err
	}

	var buf bytes.Buffer
	buf.Write(Signature[:])
	buf.Write(marker[:])

	footer := &Footer{FileIdentifier: fileID.String(), Software: opts.Software, Version: Version}
	embed := func(c ContentType, data []byte) {
		footer.Contents = append(footer.Contents, EmbeddedFile{
			Offset:      int64(buf.Len()),
			Length:      int64(len(data)),
			ContentType: c,
		})
		buf.Write(data)
		pad8(&buf)
		buf.Write(marker[:])
	}
	embed(ContentSignalTable, signalIPC)
	embed(ContentRunInfoTable, runIPC)
	embed(ContentReadsTable, readsIPC)

	buf.Write(footerMagic[:])
	start := buf.Len()
	buf.Write(encodeFooter(footer))
	pad8(&buf)
	buf.Write(binary.LittleEndian.AppendUint64(nil, uint64(buf.Len()-start)))
	buf.Write(marker[:])
	buf.Write(Signature[:])

	_, err = w.Write(buf.Bytes())
	return err
}

// Bytes is Write into a fresh buffer.
func Bytes(reads []Read, opts WriteOptions) ([]byte, error) {
	var buf bytes.Buffer
	if err := Write(&buf, reads, opts); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func signalTable(mem memory.Allocator, meta arrow.Metadata, reads []Read) ([]byte, [][]uint64, error) {
	schema := arrow.NewSchema([]arrow.Field{
		extField("read_id", &arrow.FixedSizeBinaryType{ByteWidth: 16}, "minknow.uuid"),
		extField("signal", arrow.BinaryTypes.LargeBinary, "minknow.vbz"),
		{Name: "samples", Type: arrow.PrimitiveTypes.Uint32},
	}, &meta)

	b := array.NewRecordBuilder(mem, schema)
	defer b.Release()
	ids := b.Field(0).(*array.FixedSizeBinaryBuilder)
	sig := b.Field(1).(*array.BinaryBuilder)
	counts := b.Field(2).(*array.Uint32Builder)

	rowsByRead := make([][]uint64, len(reads))
	var row uint64
	for i, rd := range reads {
		// An empty signal still gets one (empty) row.
		for off := 0; ; {
			end := min(off+MaxChunkSamples, len(rd.Signal))
			chunk := rd.Signal[off:end]
			ids.Append(rd.ID[:])
			sig.Append(EncodeVBZ(chunk))
			counts.Append(uint32(len(chunk)))
			rowsByRead[i] = append(rowsByRead[i], row)
			row++
			if end == len(rd.Signal) {
				break
			}
			off = end
		}
	}

	rec := b.NewRecord()
	defer rec.Release()
	data, err := writeIPC(mem, schema, rec)
	return data, rowsByRead, err
}

func runInfoTable(mem memory.Allocator, meta arrow.Metadata, reads []Read, opts WriteOptions) ([]byte, error) {
	schema := arrow.NewSchema([]arrow.Field{
		{Name: "acquisition_id", Type: arrow.BinaryTypes.String},
		{Name: "sample_rate", Type: arrow.PrimitiveTypes.Uint16},
		{Name: "software", Type: arrow.BinaryTypes.String},
	}, &meta)

	b := array.NewRecordBuilder(mem, schema)
	defer b.Release()
	seen := map[string]bool{}
	for _, rd := range reads {
		if seen[rd.AcquisitionID] {
			continue
		}
		seen[rd.AcquisitionID] = true
		b.Field(0).(*array.StringBuilder).Append(rd.AcquisitionID)
		b.Field(1).(*array.Uint16Builder).Append(opts.SampleRate)
		b.Field(2).(*array.StringBuilder).Append(opts.Software)
	}

	rec := b.NewRecord()
	defer rec.Release()
	return writeIPC(mem, schema, rec)
}

func readsTable(mem memory.Allocator, meta arrow.Metadata, reads []Read, rowsByRead [][]uint64) ([]byte, error) {
	schema := arrow.NewSchema([]arrow.Field{
		extField("read_id", &arrow.FixedSizeBinaryType{ByteWidth: 16}, "minknow.uuid"),
		{Name: "signal", Type: arrow.ListOf(arrow.PrimitiveTypes.Uint64)},
		{Name: "read_number", Type: arrow.PrimitiveTypes.Uint32},
		{Name: "start", Type: arrow.PrimitiveTypes.Uint64},
		{Name: "median_before", Type: arrow.PrimitiveTypes.Float32},
		{Name: "channel", Type: arrow.PrimitiveTypes.Uint16},
		{Name: "well", Type: arrow.PrimitiveTypes.Uint8},
		{Name: "num_samples", Type: arrow.PrimitiveTypes.Uint64},
		{Name: "run_info", Type: arrow.BinaryTypes.String},
	}, &meta)

	b := array.NewRecordBuilder(mem, schema)
	defer b.Release()
	rows := b.Field(1).(*array.ListBuilder)
	rowValues := rows.ValueBuilder().(*array.Uint64Builder)

	for i, rd := range reads {
		b.Field(0).(*array.FixedSizeBinaryBuilder).Append(rd.ID[:])
		rows.Append(true)
		rowValues.AppendValues(rowsByRead[i], nil)
		b.Field(2).(*array.Uint32Builder).Append(rd.ReadNumber)
		b.Field(3).(*array.Uint64Builder).Append(rd.Start)
		b.Field(4).(*array.Float32Builder).Append(rd.MedianBefore)
		b.Field(5).(*array.Uint16Builder).Append(rd.Channel)
		b.Field(6).(*array.Uint8Builder).Append(rd.Well)
		b.Field(7).(*array.Uint64Builder).Append(uint64(len(rd.Signal)))
		b.Field(8).(*array.StringBuilder).Append(rd.AcquisitionID)
	}

	rec := b.NewRecord()
	defer rec.Release()
	return writeIPC(mem, schema, rec)
}

func writeIPC(mem memory.Allocator, schema *arrow.Schema, rec arrow.Record) ([]byte, error) {
	var buf bytes.Buffer
	w, err := ipc.NewFileWriter(&buf, ipc.WithSchema(schema), ipc.WithAllocator(mem))
	if err != nil {
		return nil, fmt.Errorf("pod5: arrow writer: %w", err)
	}
	if err := w.Write(rec); err != nil {
		w.Close()
		return nil, fmt.Errorf("pod5: arrow write: %w", err)
	}
	if err := w.Close(); err != nil {
		return nil, fmt.Errorf("pod5: arrow close: %w", err)
	}
	return buf.Bytes(), nil
}
