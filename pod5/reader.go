// CLAUDE:SUMMARY Lazy read index over the reads table and batch-cached signal row decoding.
package pod5

import (
	"errors"
	"fmt"
	"io"
	"os"
	"sort"
	"sync"

	"github.com/apache/arrow-go/v18/arrow"
	"github.com/apache/arrow-go/v18/arrow/array"
	"github.com/apache/arrow-go/v18/arrow/ipc"
	"github.com/apache/arrow-go/v18/arrow/memory"
	"github.com/google/uuid"
)

// ErrReadNotFound is returned by Signal for an id absent from the reads table.
var ErrReadNotFound = errors.New("pod5: read not found")

// Reader gives random access to reads and their signal. The read index is
// built on first use. A Reader is safe for concurrent use.
type Reader struct {
	src    io.ReaderAt
	closer io.Closer
	footer *Footer
	mem    memory.Allocator

	mu     sync.Mutex
	reads  *ipc.FileReader
	signal *ipc.FileReader

	indexed  bool
	indexErr error
	order    []uuid.UUID
	rows     map[uuid.UUID][]uint64
	batchEnd []uint64 // cumulative row count per signal batch

	cached      arrow.Record
	cachedBatch int
}

// OpenFile opens a local pod5 file.
func OpenFile(path string) (*Reader, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	st, err := f.Stat()
	if err != nil {
		f.Close()
		return nil, err
	}
	r, err := Open(f, st.Size())
	if err != nil {
		f.Close()
		return nil, err
	}
	r.closer = f
	return r, nil
}

// Open reads the footer and embedded table schemas from src. The caller
// keeps ownership of src unless it is wrapped by OpenFile.
func Open(src io.ReaderAt, size int64) (*Reader, error) {
	footer, err := readFooter(src, size)
	if err != nil {
		return nil, err
	}
	r := &Reader{
		src:         src,
		footer:      footer,
		mem:         memory.NewGoAllocator(),
		cachedBatch: -1,
	}

	if r.reads, err = r.openTable(ContentReadsTable, size); err != nil {
		return nil, err
	}
	if r.signal, err = r.openTable(ContentSignalTable, size); err != nil {
		r.reads.Close()
		return nil, err
	}
	return r, nil
}

// WithCloser makes Close also close c. Used when src owns a resource.
func (r *Reader) WithCloser(c io.Closer) *Reader {
	r.closer = c
	return r
}

func (r *Reader) openTable(c ContentType, size int64) (*ipc.FileReader, error) {
	e, ok := r.footer.Find(c)
	if !ok {
		return nil, fmt.Errorf("pod5: footer has no %s table", c)
	}
	if e.Offset < 0 || e.Length <= 0 || e.Offset+e.Length > size {
		return nil, fmt.Errorf("pod5: %s table [%d,+%d) outside file", c, e.Offset, e.Length)
	}
	fr, err := ipc.NewFileReader(io.NewSectionReader(r.src, e.Offset, e.Length), ipc.WithAllocator(r.mem))
	if err != nil {
		return nil, fmt.Errorf("pod5: open %s table: %w", c, err)
	}
	return fr, nil
}

// Footer returns the decoded container footer.
func (r *Reader) Footer() *Footer { return r.footer }

// Close releases the table readers and the underlying source if owned.
func (r *Reader) Close() error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.cached != nil {
		r.cached.Release()
		r.cached = nil
	}
	if r.reads != nil {
		r.reads.Close()
		r.reads = nil
	}
	if r.signal != nil {
		r.signal.Close()
		r.signal = nil
	}
	if r.closer != nil {
		err := r.closer.Close()
		r.closer = nil
		return err
	}
	return nil
}

// ReadIDs lists every read id in file order.
func (r *Reader) ReadIDs() ([]string, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if err := r.buildIndex(); err != nil {
		return nil, err
	}
	ids := make([]string, len(r.order))
	for i, id := range r.order {
		ids[i] = id.String()
	}
	return ids, nil
}

// Signal returns the full raw signal of one read.
func (r *Reader) Signal(readID string) ([]int16, error) {
	id, err := uuid.Parse(readID)
	if err != nil {
		return nil, fmt.Errorf("%w: %q", ErrReadNotFound, readID)
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	if err := r.buildIndex(); err != nil {
		return nil, err
	}
	rows, ok := r.rows[id]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrReadNotFound, readID)
	}

	var out []int16
	for _, row := range rows {
		chunk, err := r.signalRow(row)
		if err != nil {
			return nil, fmt.Errorf("pod5: read %s signal row %d: %w", readID, row, err)
		}
		out = append(out, chunk...)
	}
	return out, nil
}

func (r *Reader) buildIndex() error {
	if r.reads == nil {
		return errors.New("pod5: reader closed")
	}
	if r.indexed {
		return r.indexErr
	}
	r.indexed = true
	r.indexErr = r.scan()
	return r.indexErr
}

func (r *Reader) scan() error {
	r.rows = make(map[uuid.UUID][]uint64)
	for b := 0; b < r.reads.NumRecords(); b++ {
		rec, err := r.reads.RecordAt(b)
		if err != nil {
			return fmt.Errorf("pod5: reads batch %d: %w", b, err)
		}
		err = r.indexBatch(rec)
		rec.Release()
		if err != nil {
			return err
		}
	}

	var total uint64
	for b := 0; b < r.signal.NumRecords(); b++ {
		rec, err := r.signal.RecordAt(b)
		if err != nil {
			return fmt.Errorf("pod5: signal batch %d: %w", b, err)
		}
		total += uint64(rec.NumRows())
		rec.Release()
		r.batchEnd = append(r.batchEnd, total)
	}
	return nil
}

func (r *Reader) indexBatch(rec arrow.Record) error {
	idCol, err := column[*array.FixedSizeBinary](rec, "read_id")
	if err != nil {
		return err
	}
	sigCol, err := column[*array.List](rec, "signal")
	if err != nil {
		return err
	}
	values, ok := sigCol.ListValues().(*array.Uint64)
	if !ok {
		return fmt.Errorf("pod5: reads signal column holds %s, want uint64", sigCol.ListValues().DataType())
	}

	for i := 0; i < int(rec.NumRows()); i++ {
		id, err := uuid.FromBytes(idCol.Value(i))
		if err != nil {
			return fmt.Errorf("pod5: read_id row %d: %w", i, err)
		}
		start, end := sigCol.ValueOffsets(i)
		rows := make([]uint64, 0, end-start)
		for j := start; j < end; j++ {
			rows = append(rows, values.Value(int(j)))
		}
		if _, dup := r.rows[id]; !dup {
			r.order = append(r.order, id)
		}
		r.rows[id] = rows
	}
	return nil
}

func (r *Reader) signalRow(row uint64) ([]int16, error) {
	b := sort.Search(len(r.batchEnd), func(i int) bool { return r.batchEnd[i] > row })
	if b == len(r.batchEnd) {
		return nil, fmt.Errorf("row %d beyond signal table (%d rows)", row, r.total())
	}
	if b != r.cachedBatch {
		rec, err := r.signal.RecordAt(b)
		if err != nil {
			return nil, err
		}
		if r.cached != nil {
			r.cached.Release()
		}
		r.cached, r.cachedBatch = rec, b
	}
	local := int(row)
	if b > 0 {
		local = int(row - r.batchEnd[b-1])
	}

	samples, err := column[*array.Uint32](r.cached, "samples")
	if err != nil {
		return nil, err
	}
	count := int(samples.Value(local))

	idx := r.cached.Schema().FieldIndices("signal")
	if len(idx) == 0 {
		return nil, errors.New("signal table has no signal column")
	}
	switch sig := r.cached.Column(idx[0]).(type) {
	case *array.LargeBinary:
		return DecodeVBZ(sig.Value(local), count)
	case *array.Binary:
		return DecodeVBZ(sig.Value(local), count)
	case *array.LargeList:
		vals, ok := sig.ListValues().(*array.Int16)
		if !ok {
			return nil, fmt.Errorf("uncompressed signal holds %s", sig.ListValues().DataType())
		}
		start, end := sig.ValueOffsets(local)
		out := make([]int16, end-start)
		copy(out, vals.Int16Values()[start:end])
		return out, nil
	default:
		return nil, fmt.Errorf("unsupported signal column type %s", sig.DataType())
	}
}

func (r *Reader) total() uint64 {
	if len(r.batchEnd) == 0 {
		return 0
	}
	return r.batchEnd[len(r.batchEnd)-1]
}

func column[T arrow.Array](rec arrow.Record, name string) (T, error) {
	var zero T
	idx := rec.Schema().FieldIndices(name)
	if len(idx) == 0 {
		return zero, fmt.Errorf("pod5: table has no %q column", name)
	}
	col, ok := rec.Column(idx[0]).(T)
	if !ok {
		return zero, fmt.Errorf("pod5: column %q has type %s", name, rec.Column(idx[0]).DataType())
	}
	return col, nil
}
