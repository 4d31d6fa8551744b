// CLAUDE:SUMMARY Minimal cgo binding over libhdf5: POSIX, ros3 and in-memory files, hyperslab reads, enum tables, attributes, writers.
// Package hdf5 is the narrow slice of libhdf5 that bulkvis needs.
//
// It opens files through the default POSIX driver, the read-only S3 (ros3)
// driver or an in-memory image, reads 1-D int16 hyperslabs, decodes compound
// tables carrying an enum column together with the enum's declared names,
// enumerates scalar attributes, and writes the handful of objects a fast5
// read needs. libhdf5 is not thread-safe unless built so; every call is
// serialised through one package mutex.
//
// Build requirements: libhdf5 headers and library, found through
// pkg-config (package hdf5; Debian's libhdf5-dev installs it). The ros3
// driver is optional; without it Open with WithROS3 returns
// ErrDriverUnavailable.
package hdf5

/*
#cgo pkg-config: hdf5
#include <stdlib.h>
#include <string.h>
#include <hdf5.h>

// Predefined type ids are macros over library globals; cgo cannot
// reference them directly.
static hid_t go_t_native_int16(void)  { return H5T_NATIVE_INT16; }
static hid_t go_t_native_uint8(void)  { return H5T_NATIVE_UINT8; }
static hid_t go_t_native_int32(void)  { return H5T_NATIVE_INT32; }
static hid_t go_t_native_uint32(void) { return H5T_NATIVE_UINT32; }
static hid_t go_t_native_int64(void)  { return H5T_NATIVE_INT64; }
static hid_t go_t_native_uint64(void) { return H5T_NATIVE_UINT64; }
static hid_t go_t_native_double(void) { return H5T_NATIVE_DOUBLE; }
static hid_t go_t_std_u8(void)  { return H5T_STD_U8LE; }
static hid_t go_t_std_i32(void) { return H5T_STD_I32LE; }
static hid_t go_t_std_u32(void) { return H5T_STD_U32LE; }
static hid_t go_t_std_i64(void) { return H5T_STD_I64LE; }
static hid_t go_t_std_u64(void) { return H5T_STD_U64LE; }
static hid_t go_t_ieee_f64(void) { return H5T_IEEE_F64LE; }

static void go_h5_init(void) {
	H5open();
	H5Eset_auto2(H5E_DEFAULT, NULL, NULL);
}

static hid_t go_fapl_ros3(const char* region, const char* key_id, const char* secret) {
	hid_t fapl = H5Pcreate(H5P_FILE_ACCESS);
	if (fapl < 0) return -1;
#ifdef H5_HAVE_ROS3_VFD
	H5FD_ros3_fapl_t fa;
	memset(&fa, 0, sizeof(fa));
	fa.version = H5FD_CURR_ROS3_FAPL_T_VERSION;
	fa.authenticate = key_id[0] != '\0';
	strncpy(fa.aws_region, region, H5FD_ROS3_MAX_REGION_LEN);
	strncpy(fa.secret_id, key_id, H5FD_ROS3_MAX_SECRET_ID_LEN);
	strncpy(fa.secret_key, secret, H5FD_ROS3_MAX_SECRET_KEY_LEN);
	if (H5Pset_fapl_ros3(fapl, &fa) < 0) {
		H5Pclose(fapl);
		return -1;
	}
	return fapl;
#else
	H5Pclose(fapl);
	return -2;
#endif
}

static hid_t go_open(const char* name, hid_t fapl) {
	return H5Fopen(name, H5F_ACC_RDONLY, fapl);
}

static hid_t go_open_image(const char* name, void* buf, size_t size) {
	hid_t fapl = H5Pcreate(H5P_FILE_ACCESS);
	if (fapl < 0) return -1;
	if (H5Pset_fapl_core(fapl, 64 * 1024, 0) < 0 || H5Pset_file_image(fapl, buf, size) < 0) {
		H5Pclose(fapl);
		return -1;
	}
	hid_t f = H5Fopen(name, H5F_ACC_RDONLY, fapl);
	H5Pclose(fapl);
	return f;
}

static hid_t go_create_image(const char* name) {
	hid_t fapl = H5Pcreate(H5P_FILE_ACCESS);
	if (fapl < 0) return -1;
	if (H5Pset_fapl_core(fapl, 64 * 1024, 0) < 0) {
		H5Pclose(fapl);
		return -1;
	}
	hid_t f = H5Fcreate(name, H5F_ACC_TRUNC, H5P_DEFAULT, fapl);
	H5Pclose(fapl);
	return f;
}

static long long go_image_size(hid_t f) {
	if (H5Fflush(f, H5F_SCOPE_GLOBAL) < 0) return -1;
	return (long long)H5Fget_file_image(f, NULL, 0);
}

static long long go_image_copy(hid_t f, void* buf, size_t size) {
	return (long long)H5Fget_file_image(f, buf, size);
}

// go_exists checks every component of path so that a missing parent
// reports "absent" instead of an error.
static int go_exists(hid_t loc, const char* path) {
	char buf[1024];
	size_t len = strlen(path);
	if (len == 0 || len >= sizeof(buf)) return 0;
	memcpy(buf, path, len + 1);
	for (size_t i = 1; i <= len; i++) {
		if (buf[i] != '/' && buf[i] != '\0') continue;
		char c = buf[i];
		buf[i] = '\0';
		if (strcmp(buf, "/") != 0 && H5Lexists(loc, buf, H5P_DEFAULT) <= 0) return 0;
		buf[i] = c;
	}
	return 1;
}

static long long go_nchildren(hid_t loc, const char* path) {
	H5G_info_t info;
	if (H5Gget_info_by_name(loc, path, &info, H5P_DEFAULT) < 0) return -1;
	return (long long)info.nlinks;
}

static long long go_child_name(hid_t loc, const char* path, unsigned long long i, char* buf, size_t size) {
	return (long long)H5Lget_name_by_idx(loc, path, H5_INDEX_NAME, H5_ITER_INC, (hsize_t)i, buf, size, H5P_DEFAULT);
}

static long long go_extent(hid_t loc, const char* path) {
	hid_t d = H5Dopen2(loc, path, H5P_DEFAULT);
	if (d < 0) return -1;
	hid_t s = H5Dget_space(d);
	long long n = -1;
	if (s >= 0) {
		hsize_t dims[1];
		if (H5Sget_simple_extent_ndims(s) == 1 && H5Sget_simple_extent_dims(s, dims, NULL) == 1) {
			n = (long long)dims[0];
		}
		H5Sclose(s);
	}
	H5Dclose(d);
	return n;
}

static int go_read_i16(hid_t loc, const char* path, unsigned long long lo, unsigned long long n, short* out) {
	hid_t d = H5Dopen2(loc, path, H5P_DEFAULT);
	if (d < 0) return -1;
	hid_t fs = H5Dget_space(d);
	int rc = -1;
	if (fs >= 0) {
		hsize_t start = lo, count = n;
		if (H5Sselect_hyperslab(fs, H5S_SELECT_SET, &start, NULL, &count, NULL) >= 0) {
			hid_t ms = H5Screate_simple(1, &count, NULL);
			if (ms >= 0) {
				if (H5Dread(d, H5T_NATIVE_INT16, ms, fs, H5P_DEFAULT, out) >= 0) rc = 0;
				H5Sclose(ms);
			}
		}
		H5Sclose(fs);
	}
	H5Dclose(d);
	return rc;
}

static long long go_decode_int(const unsigned char* p, size_t sz, int sgn) {
	switch (sz) {
	case 1:
		return sgn ? (long long)*(const signed char*)p : (long long)*p;
	case 2: {
		if (sgn) { short v; memcpy(&v, p, 2); return v; }
		unsigned short v; memcpy(&v, p, 2); return v;
	}
	case 4: {
		if (sgn) { int v; memcpy(&v, p, 4); return v; }
		unsigned int v; memcpy(&v, p, 4); return v;
	}
	default: {
		long long v; memcpy(&v, p, 8); return v;
	}
	}
}

static int go_enum_signed(hid_t et) {
	hid_t base = H5Tget_super(et);
	if (base < 0) return 0;
	int sgn = H5Tget_sign(base) == H5T_SGN_2;
	H5Tclose(base);
	return sgn;
}

// go_enum_field returns a native copy of the enum type of compound member
// field of the dataset at path, or a negative id.
static hid_t go_enum_field(hid_t loc, const char* path, const char* field) {
	hid_t d = H5Dopen2(loc, path, H5P_DEFAULT);
	if (d < 0) return -1;
	hid_t ft = H5Dget_type(d);
	hid_t out = -1;
	if (ft >= 0 && H5Tget_class(ft) == H5T_COMPOUND) {
		int i = H5Tget_member_index(ft, field);
		if (i >= 0) {
			hid_t mt = H5Tget_member_type(ft, (unsigned)i);
			if (mt >= 0) {
				if (H5Tget_class(mt) == H5T_ENUM) out = H5Tget_native_type(mt, H5T_DIR_ASCEND);
				H5Tclose(mt);
			}
		}
	}
	if (ft >= 0) H5Tclose(ft);
	H5Dclose(d);
	return out;
}

static int go_enum_value(hid_t et, unsigned i, long long* out) {
	unsigned char buf[8] = {0};
	size_t sz = H5Tget_size(et);
	if (sz == 0 || sz > 8 || H5Tget_member_value(et, i, buf) < 0) return -1;
	*out = go_decode_int(buf, sz, go_enum_signed(et));
	return 0;
}

static int go_read_enum_table(hid_t loc, const char* path, const char* idx_field, const char* enum_field,
		hid_t et, size_t n, unsigned long long* idx_out, long long* code_out) {
	hid_t d = H5Dopen2(loc, path, H5P_DEFAULT);
	if (d < 0) return -1;
	size_t esz = H5Tget_size(et);
	size_t rec = 8 + esz;
	int rc = -1;
	hid_t mt = H5Tcreate(H5T_COMPOUND, rec);
	if (mt >= 0) {
		if (H5Tinsert(mt, idx_field, 0, H5T_NATIVE_ULLONG) >= 0 && H5Tinsert(mt, enum_field, 8, et) >= 0) {
			unsigned char* buf = malloc(rec * (n > 0 ? n : 1));
			if (buf != NULL) {
				if (H5Dread(d, mt, H5S_ALL, H5S_ALL, H5P_DEFAULT, buf) >= 0) {
					int sgn = go_enum_signed(et);
					for (size_t i = 0; i < n; i++) {
						memcpy(&idx_out[i], buf + i * rec, 8);
						code_out[i] = go_decode_int(buf + i * rec + 8, esz, sgn);
					}
					rc = 0;
				}
				free(buf);
			}
		}
		H5Tclose(mt);
	}
	H5Dclose(d);
	return rc;
}

typedef struct {
	char** names;
	size_t n;
	size_t cap;
} go_names;

static herr_t go_collect_attr(hid_t loc, const char* name, const H5A_info_t* info, void* op) {
	go_names* g = (go_names*)op;
	if (g->n == g->cap) {
		size_t cap = g->cap ? g->cap * 2 : 16;
		char** grown = realloc(g->names, cap * sizeof(char*));
		if (grown == NULL) return -1;
		g->names = grown;
		g->cap = cap;
	}
	g->names[g->n] = strdup(name);
	if (g->names[g->n] == NULL) return -1;
	g->n++;
	return 0;
}

static int go_attr_names(hid_t loc, const char* path, go_names* out) {
	hid_t o = H5Oopen(loc, path, H5P_DEFAULT);
	if (o < 0) return -1;
	hsize_t idx = 0;
	herr_t rc = H5Aiterate2(o, H5_INDEX_NAME, H5_ITER_INC, &idx, go_collect_attr, out);
	H5Oclose(o);
	return rc < 0 ? -1 : 0;
}

static char* go_name_at(go_names* g, size_t i) { return g->names[i]; }

static void go_free_names(go_names* g) {
	for (size_t i = 0; i < g->n; i++) free(g->names[i]);
	free(g->names);
	g->names = NULL;
	g->n = g->cap = 0;
}

enum { GO_ATTR_STRING = 1, GO_ATTR_INT = 2, GO_ATTR_UINT = 3, GO_ATTR_FLOAT = 4 };

// go_read_attr reads one scalar attribute. Strings land in *str (malloc'd,
// NUL padding stripped), numbers in *ival, *uval or *fval.
static int go_read_attr(hid_t loc, const char* path, const char* name,
		char** str, size_t* slen, long long* ival, unsigned long long* uval, double* fval) {
	hid_t a = H5Aopen_by_name(loc, path, name, H5P_DEFAULT, H5P_DEFAULT);
	if (a < 0) return -1;
	hid_t t = H5Aget_type(a);
	hid_t s = H5Aget_space(a);
	int kind = -1;
	if (t >= 0 && s >= 0 && H5Sget_simple_extent_npoints(s) == 1) {
		switch (H5Tget_class(t)) {
		case H5T_STRING:
			if (H5Tis_variable_str(t) > 0) {
				hid_t mt = H5Tcopy(H5T_C_S1);
				H5Tset_size(mt, H5T_VARIABLE);
				H5Tset_cset(mt, H5Tget_cset(t));
				char* v = NULL;
				if (H5Aread(a, mt, &v) >= 0) {
					size_t n = v ? strlen(v) : 0;
					*str = malloc(n + 1);
					if (*str != NULL) {
						if (n > 0) memcpy(*str, v, n);
						*slen = n;
						kind = GO_ATTR_STRING;
					}
					if (v) H5free_memory(v);
				}
				H5Tclose(mt);
			} else {
				size_t sz = H5Tget_size(t);
				char* v = malloc(sz + 1);
				if (v != NULL) {
					if (H5Aread(a, t, v) >= 0) {
						size_t n = sz;
						while (n > 0 && v[n - 1] == '\0') n--;
						*str = v;
						*slen = n;
						kind = GO_ATTR_STRING;
					} else {
						free(v);
					}
				}
			}
			break;
		case H5T_INTEGER:
			if (H5Tget_sign(t) == H5T_SGN_NONE) {
				if (H5Aread(a, H5T_NATIVE_ULLONG, uval) >= 0) kind = GO_ATTR_UINT;
			} else {
				if (H5Aread(a, H5T_NATIVE_LLONG, ival) >= 0) kind = GO_ATTR_INT;
			}
			break;
		case H5T_FLOAT:
			if (H5Aread(a, H5T_NATIVE_DOUBLE, fval) >= 0) kind = GO_ATTR_FLOAT;
			break;
		default:
			kind = -2;
		}
	}
	if (s >= 0) H5Sclose(s);
	if (t >= 0) H5Tclose(t);
	H5Aclose(a);
	return kind;
}

static hid_t go_lcpl(void) {
	hid_t p = H5Pcreate(H5P_LINK_CREATE);
	if (p >= 0) H5Pset_create_intermediate_group(p, 1);
	return p;
}

static int go_create_group(hid_t f, const char* path) {
	if (go_exists(f, path)) return 0;
	hid_t lcpl = go_lcpl();
	hid_t g = H5Gcreate2(f, path, lcpl, H5P_DEFAULT, H5P_DEFAULT);
	H5Pclose(lcpl);
	if (g < 0) return -1;
	H5Gclose(g);
	return 0;
}

static int go_write_i16(hid_t f, const char* path, const short* data, unsigned long long n) {
	hsize_t dims = n;
	hid_t sp = H5Screate_simple(1, &dims, NULL);
	if (sp < 0) return -1;
	hid_t lcpl = go_lcpl();
	hid_t d = H5Dcreate2(f, path, H5T_STD_I16LE, sp, lcpl, H5P_DEFAULT, H5P_DEFAULT);
	int rc = -1;
	if (d >= 0) {
		if (n == 0 || H5Dwrite(d, H5T_NATIVE_INT16, H5S_ALL, H5S_ALL, H5P_DEFAULT, data) >= 0) rc = 0;
		H5Dclose(d);
	}
	H5Pclose(lcpl);
	H5Sclose(sp);
	return rc;
}

static int go_set_attr(hid_t f, const char* path, const char* name, hid_t ftype, hid_t mtype, const void* val) {
	hid_t o = H5Oopen(f, path, H5P_DEFAULT);
	if (o < 0) return -1;
	if (H5Aexists(o, name) > 0) H5Adelete(o, name);
	hid_t sp = H5Screate(H5S_SCALAR);
	int rc = -1;
	if (sp >= 0) {
		hid_t a = H5Acreate2(o, name, ftype, sp, H5P_DEFAULT, H5P_DEFAULT);
		if (a >= 0) {
			if (H5Awrite(a, mtype, val) >= 0) rc = 0;
			H5Aclose(a);
		}
		H5Sclose(sp);
	}
	H5Oclose(o);
	return rc;
}

static int go_set_attr_str(hid_t f, const char* path, const char* name, const char* val, size_t n) {
	size_t sz = n > 0 ? n : 1;
	hid_t t = H5Tcopy(H5T_C_S1);
	if (t < 0) return -1;
	H5Tset_size(t, sz);
	H5Tset_strpad(t, H5T_STR_NULLPAD);
	char* tmp = calloc(sz, 1);
	int rc = -1;
	if (tmp != NULL) {
		if (n > 0) memcpy(tmp, val, n);
		rc = go_set_attr(f, path, name, t, t, tmp);
		free(tmp);
	}
	H5Tclose(t);
	return rc;
}

static hid_t go_enum_u8(int native) {
	return H5Tenum_create(native ? H5T_NATIVE_UINT8 : H5T_STD_U8LE);
}

static int go_enum_insert(hid_t et, const char* name, unsigned char v) {
	return H5Tenum_insert(et, name, &v) < 0 ? -1 : 0;
}

static int go_write_enum_table(hid_t f, const char* path, const char* idx_field, const char* enum_field,
		hid_t file_enum, hid_t mem_enum, const unsigned long long* idx, const unsigned char* codes, size_t n) {
	hid_t ft = H5Tcreate(H5T_COMPOUND, 9);
	hid_t mt = H5Tcreate(H5T_COMPOUND, 9);
	hsize_t dims = n;
	hid_t sp = H5Screate_simple(1, &dims, NULL);
	hid_t lcpl = go_lcpl();
	unsigned char* buf = malloc(9 * (n > 0 ? n : 1));
	int rc = -1;
	if (ft >= 0 && mt >= 0 && sp >= 0 && buf != NULL &&
		H5Tinsert(ft, idx_field, 0, H5T_STD_U64LE) >= 0 && H5Tinsert(ft, enum_field, 8, file_enum) >= 0 &&
		H5Tinsert(mt, idx_field, 0, H5T_NATIVE_ULLONG) >= 0 && H5Tinsert(mt, enum_field, 8, mem_enum) >= 0) {
		for (size_t i = 0; i < n; i++) {
			memcpy(buf + i * 9, &idx[i], 8);
			buf[i * 9 + 8] = codes[i];
		}
		hid_t d = H5Dcreate2(f, path, ft, sp, lcpl, H5P_DEFAULT, H5P_DEFAULT);
		if (d >= 0) {
			if (n == 0 || H5Dwrite(d, mt, H5S_ALL, H5S_ALL, H5P_DEFAULT, buf) >= 0) rc = 0;
			H5Dclose(d);
		}
	}
	free(buf);
	if (lcpl >= 0) H5Pclose(lcpl);
	if (sp >= 0) H5Sclose(sp);
	if (mt >= 0) H5Tclose(mt);
	if (ft >= 0) H5Tclose(ft);
	return rc;
}
*/
import "C"

import (
	"fmt"
	"sync"
	"sync/atomic"
	"unsafe"
)

var (
	mu       sync.Mutex
	initOnce sync.Once
	imageSeq atomic.Uint64
)

func ensureInit() {
	initOnce.Do(func() { C.go_h5_init() })
}

// File is an open HDF5 file.
type File struct {
	id   C.hid_t
	name string
}

type openConfig struct {
	ros3   bool
	region string
	keyID  string
	secret string
}

// Option customises Open.
type Option func(*openConfig)

// WithROS3 selects the read-only S3 driver. An empty keyID opens anonymously.
func WithROS3(region, keyID, secret string) Option {
	return func(c *openConfig) {
		c.ros3 = true
		c.region = region
		c.keyID = keyID
		c.secret = secret
	}
}

// Open opens name read-only. name is a filesystem path, or an https URL when
// WithROS3 is given.
func Open(name string, opts ...Option) (*File, error) {
	var cfg openConfig
	for _, o := range opts {
		o(&cfg)
	}

	mu.Lock()
	defer mu.Unlock()
	ensureInit()

	fapl := C.hid_t(C.H5P_DEFAULT)
	if cfg.ros3 {
		cRegion := C.CString(cfg.region)
		cKey := C.CString(cfg.keyID)
		cSecret := C.CString(cfg.secret)
		fapl = C.go_fapl_ros3(cRegion, cKey, cSecret)
		C.free(unsafe.Pointer(cRegion))
		C.free(unsafe.Pointer(cKey))
		C.free(unsafe.Pointer(cSecret))
		switch {
		case fapl == -2:
			return nil, ErrDriverUnavailable
		case fapl < 0:
			return nil, &Error{Op: "ros3 access list", Path: name}
		}
		defer C.H5Pclose(fapl)
	}

	cName := C.CString(name)
	defer C.free(unsafe.Pointer(cName))
	id := C.go_open(cName, fapl)
	if id < 0 {
		return nil, &Error{Op: "open", Path: name}
	}
	return &File{id: id, name: name}, nil
}

// OpenImage opens an in-memory copy of a complete HDF5 file image.
func OpenImage(image []byte) (*File, error) {
	if len(image) == 0 {
		return nil, &Error{Op: "open image", Path: "<empty>"}
	}

	mu.Lock()
	defer mu.Unlock()
	ensureInit()

	name := fmt.Sprintf("bulkvis-image-%d.h5", imageSeq.Add(1))
	cName := C.CString(name)
	defer C.free(unsafe.Pointer(cName))
	id := C.go_open_image(cName, unsafe.Pointer(&image[0]), C.size_t(len(image)))
	if id < 0 {
		return nil, &Error{Op: "open image", Path: name}
	}
	return &File{id: id, name: name}, nil
}

// CreateImage creates an empty writable file that lives only in memory.
// Call Image to obtain its bytes.
func CreateImage() (*File, error) {
	mu.Lock()
	defer mu.Unlock()
	ensureInit()

	name := fmt.Sprintf("bulkvis-image-%d.h5", imageSeq.Add(1))
	cName := C.CString(name)
	defer C.free(unsafe.Pointer(cName))
	id := C.go_create_image(cName)
	if id < 0 {
		return nil, &Error{Op: "create image", Path: name}
	}
	return &File{id: id, name: name}, nil
}

// Name returns the path, URL or synthetic image name the file was opened with.
func (f *File) Name() string { return f.name }

// Close releases the file. Calling Close twice is a no-op.
func (f *File) Close() error {
	mu.Lock()
	defer mu.Unlock()
	if f.id < 0 {
		return nil
	}
	rc := C.H5Fclose(f.id)
	f.id = -1
	if rc < 0 {
		return &Error{Op: "close", Path: f.name}
	}
	return nil
}

// Image flushes the file and returns a copy of its bytes.
func (f *File) Image() ([]byte, error) {
	mu.Lock()
	defer mu.Unlock()

	size := C.go_image_size(f.id)
	if size <= 0 {
		return nil, &Error{Op: "image size", Path: f.name}
	}
	buf := make([]byte, int(size))
	if n := C.go_image_copy(f.id, unsafe.Pointer(&buf[0]), C.size_t(len(buf))); n < 0 {
		return nil, &Error{Op: "image copy", Path: f.name}
	}
	return buf, nil
}

// Exists reports whether every component of path is present.
func (f *File) Exists(path string) bool {
	mu.Lock()
	defer mu.Unlock()
	return f.exists(path)
}

func (f *File) exists(path string) bool {
	cPath := C.CString(path)
	defer C.free(unsafe.Pointer(cPath))
	return C.go_exists(f.id, cPath) == 1
}

// Children lists the link names of the group at path in name order.
func (f *File) Children(path string) ([]string, error) {
	mu.Lock()
	defer mu.Unlock()

	if !f.exists(path) && path != "/" {
		return nil, &Error{Op: "list", Path: path, Err: ErrNotFound}
	}
	cPath := C.CString(path)
	defer C.free(unsafe.Pointer(cPath))

	n := C.go_nchildren(f.id, cPath)
	if n < 0 {
		return nil, &Error{Op: "list", Path: path}
	}
	names := make([]string, 0, int(n))
	buf := make([]byte, 1024)
	for i := 0; i < int(n); i++ {
		l := C.go_child_name(f.id, cPath, C.ulonglong(i), (*C.char)(unsafe.Pointer(&buf[0])), C.size_t(len(buf)))
		if l < 0 {
			return nil, &Error{Op: "list", Path: path}
		}
		if int(l) >= len(buf) {
			l = C.longlong(len(buf) - 1)
		}
		names = append(names, string(buf[:int(l)]))
	}
	return names, nil
}

// Extent returns the length of the 1-D dataset at path.
func (f *File) Extent(path string) (uint64, error) {
	mu.Lock()
	defer mu.Unlock()

	if !f.exists(path) {
		return 0, &Error{Op: "extent", Path: path, Err: ErrNotFound}
	}
	cPath := C.CString(path)
	defer C.free(unsafe.Pointer(cPath))
	n := C.go_extent(f.id, cPath)
	if n < 0 {
		return 0, &Error{Op: "extent", Path: path}
	}
	return uint64(n), nil
}

// ReadInt16 reads elements [lo, hi) of the 1-D dataset at path, converting
// the stored integer type to int16. hi is clamped to the dataset extent.
func (f *File) ReadInt16(path string, lo, hi uint64) ([]int16, error) {
	n, err := f.Extent(path)
	if err != nil {
		return nil, err
	}
	if hi > n {
		hi = n
	}
	if lo >= hi {
		return []int16{}, nil
	}

	mu.Lock()
	defer mu.Unlock()

	out := make([]int16, int(hi-lo))
	cPath := C.CString(path)
	defer C.free(unsafe.Pointer(cPath))
	if C.go_read_i16(f.id, cPath, C.ulonglong(lo), C.ulonglong(hi-lo), (*C.short)(unsafe.Pointer(&out[0]))) < 0 {
		return nil, &Error{Op: fmt.Sprintf("read [%d:%d]", lo, hi), Path: path}
	}
	return out, nil
}

// ReadEnumTable reads a compound dataset, returning its integer indexField
// column, the integer codes of its enum-typed enumField column, and every
// member the enum type declares.
func (f *File) ReadEnumTable(path, indexField, enumField string) (*EnumTable, error) {
	n, err := f.Extent(path)
	if err != nil {
		return nil, err
	}

	mu.Lock()
	defer mu.Unlock()

	cPath := C.CString(path)
	defer C.free(unsafe.Pointer(cPath))
	cIdx := C.CString(indexField)
	defer C.free(unsafe.Pointer(cIdx))
	cEnum := C.CString(enumField)
	defer C.free(unsafe.Pointer(cEnum))

	et := C.go_enum_field(f.id, cPath, cEnum)
	if et < 0 {
		return nil, &Error{Op: "enum field " + enumField, Path: path}
	}
	defer C.H5Tclose(et)

	members, err := enumMembers(et)
	if err != nil {
		return nil, &Error{Op: "enum members", Path: path, Err: err}
	}

	table := &EnumTable{
		Index:   make([]uint64, int(n)),
		Codes:   make([]int64, int(n)),
		Members: members,
	}
	if n == 0 {
		return table, nil
	}
	rc := C.go_read_enum_table(f.id, cPath, cIdx, cEnum, et, C.size_t(n),
		(*C.ulonglong)(unsafe.Pointer(&table.Index[0])),
		(*C.longlong)(unsafe.Pointer(&table.Codes[0])))
	if rc < 0 {
		return nil, &Error{Op: "read table", Path: path}
	}
	return table, nil
}

func enumMembers(et C.hid_t) ([]EnumMember, error) {
	n := C.H5Tget_nmembers(et)
	if n < 0 {
		return nil, fmt.Errorf("member count")
	}
	members := make([]EnumMember, 0, int(n))
	for i := 0; i < int(n); i++ {
		cName := C.H5Tget_member_name(et, C.uint(i))
		if cName == nil {
			return nil, fmt.Errorf("member %d name", i)
		}
		name := C.GoString(cName)
		C.H5free_memory(unsafe.Pointer(cName))

		var v C.longlong
		if C.go_enum_value(et, C.uint(i), &v) < 0 {
			return nil, fmt.Errorf("member %q value", name)
		}
		members = append(members, EnumMember{Name: name, Value: int64(v)})
	}
	return members, nil
}

// Attrs reads every scalar attribute attached to the object at path.
// Attributes of unsupported classes (compound, array, enum) are skipped.
func (f *File) Attrs(path string) ([]Attr, error) {
	mu.Lock()
	defer mu.Unlock()

	if !f.exists(path) && path != "/" {
		return nil, &Error{Op: "attrs", Path: path, Err: ErrNotFound}
	}
	cPath := C.CString(path)
	defer C.free(unsafe.Pointer(cPath))

	var names C.go_names
	if C.go_attr_names(f.id, cPath, &names) < 0 {
		C.go_free_names(&names)
		return nil, &Error{Op: "attrs", Path: path}
	}
	defer C.go_free_names(&names)

	attrs := make([]Attr, 0, int(names.n))
	for i := 0; i < int(names.n); i++ {
		cName := C.go_name_at(&names, C.size_t(i))
		name := C.GoString(cName)

		var (
			str  *C.char
			slen C.size_t
			ival C.longlong
			uval C.ulonglong
			fval C.double
		)
		kind := C.go_read_attr(f.id, cPath, cName, &str, &slen, &ival, &uval, &fval)
		switch kind {
		case C.GO_ATTR_STRING:
			b := C.GoBytes(unsafe.Pointer(str), C.int(slen))
			C.free(unsafe.Pointer(str))
			attrs = append(attrs, Attr{Name: name, Kind: AttrString, Bytes: b})
		case C.GO_ATTR_INT:
			attrs = append(attrs, Attr{Name: name, Kind: AttrInt, Int: int64(ival)})
		case C.GO_ATTR_UINT:
			attrs = append(attrs, Attr{Name: name, Kind: AttrUint, Uint: uint64(uval)})
		case C.GO_ATTR_FLOAT:
			attrs = append(attrs, Attr{Name: name, Kind: AttrFloat, Float: float64(fval)})
		case -2:
			continue
		default:
			return nil, &Error{Op: "read attr " + name, Path: path}
		}
	}
	return attrs, nil
}

// CreateGroup creates the group at path and any missing parents.
func (f *File) CreateGroup(path string) error {
	mu.Lock()
	defer mu.Unlock()

	cPath := C.CString(path)
	defer C.free(unsafe.Pointer(cPath))
	if C.go_create_group(f.id, cPath) < 0 {
		return &Error{Op: "create group", Path: path}
	}
	return nil
}

// WriteInt16 creates a 1-D little-endian int16 dataset at path.
func (f *File) WriteInt16(path string, data []int16) error {
	mu.Lock()
	defer mu.Unlock()

	cPath := C.CString(path)
	defer C.free(unsafe.Pointer(cPath))
	var ptr *C.short
	if len(data) > 0 {
		ptr = (*C.short)(unsafe.Pointer(&data[0]))
	}
	if C.go_write_i16(f.id, cPath, ptr, C.ulonglong(len(data))) < 0 {
		return &Error{Op: "write int16", Path: path}
	}
	return nil
}

// SetAttr writes a scalar attribute on the object at path, replacing any
// existing one. Supported value types: string, []byte, uint8, int32, uint32,
// int64, uint64, int and float64. Strings are stored NUL-padded, fixed length.
func (f *File) SetAttr(path, name string, value any) error {
	mu.Lock()
	defer mu.Unlock()

	cPath := C.CString(path)
	defer C.free(unsafe.Pointer(cPath))
	cName := C.CString(name)
	defer C.free(unsafe.Pointer(cName))

	var rc C.int
	switch v := value.(type) {
	case string:
		rc = setAttrBytes(f.id, cPath, cName, []byte(v))
	case []byte:
		rc = setAttrBytes(f.id, cPath, cName, v)
	case uint8:
		c := C.uchar(v)
		rc = C.go_set_attr(f.id, cPath, cName, C.go_t_std_u8(), C.go_t_native_uint8(), unsafe.Pointer(&c))
	case int32:
		c := C.int(v)
		rc = C.go_set_attr(f.id, cPath, cName, C.go_t_std_i32(), C.go_t_native_int32(), unsafe.Pointer(&c))
	case uint32:
		c := C.uint(v)
		rc = C.go_set_attr(f.id, cPath, cName, C.go_t_std_u32(), C.go_t_native_uint32(), unsafe.Pointer(&c))
	case int:
		c := C.longlong(v)
		rc = C.go_set_attr(f.id, cPath, cName, C.go_t_std_i64(), C.go_t_native_int64(), unsafe.Pointer(&c))
	case int64:
		c := C.longlong(v)
		rc = C.go_set_attr(f.id, cPath, cName, C.go_t_std_i64(), C.go_t_native_int64(), unsafe.Pointer(&c))
	case uint64:
		c := C.ulonglong(v)
		rc = C.go_set_attr(f.id, cPath, cName, C.go_t_std_u64(), C.go_t_native_uint64(), unsafe.Pointer(&c))
	case float64:
		c := C.double(v)
		rc = C.go_set_attr(f.id, cPath, cName, C.go_t_ieee_f64(), C.go_t_native_double(), unsafe.Pointer(&c))
	default:
		return &Error{Op: fmt.Sprintf("set attr %s: unsupported type %T", name, value), Path: path}
	}
	if rc < 0 {
		return &Error{Op: "set attr " + name, Path: path}
	}
	return nil
}

func setAttrBytes(id C.hid_t, cPath, cName *C.char, b []byte) C.int {
	var ptr *C.char
	if len(b) > 0 {
		ptr = (*C.char)(unsafe.Pointer(&b[0]))
	}
	return C.go_set_attr_str(id, cPath, cName, ptr, C.size_t(len(b)))
}

// WriteEnumTable creates a compound dataset at path with a uint64 column
// indexField and a uint8-based enum column enumField declaring members.
// codes must hold values that fit in a uint8.
func (f *File) WriteEnumTable(path, indexField, enumField string, members []EnumMember, index []uint64, codes []int64) error {
	if len(index) != len(codes) {
		return &Error{Op: "write table: column length mismatch", Path: path}
	}
	small := make([]byte, len(codes))
	for i, c := range codes {
		if c < 0 || c > 255 {
			return &Error{Op: fmt.Sprintf("write table: code %d out of uint8 range", c), Path: path}
		}
		small[i] = byte(c)
	}

	mu.Lock()
	defer mu.Unlock()

	fileEnum := C.go_enum_u8(0)
	memEnum := C.go_enum_u8(1)
	if fileEnum < 0 || memEnum < 0 {
		return &Error{Op: "enum create", Path: path}
	}
	defer C.H5Tclose(fileEnum)
	defer C.H5Tclose(memEnum)

	for _, m := range members {
		if m.Value < 0 || m.Value > 255 {
			return &Error{Op: fmt.Sprintf("enum member %q out of uint8 range", m.Name), Path: path}
		}
		cName := C.CString(m.Name)
		rcF := C.go_enum_insert(fileEnum, cName, C.uchar(m.Value))
		rcM := C.go_enum_insert(memEnum, cName, C.uchar(m.Value))
		C.free(unsafe.Pointer(cName))
		if rcF < 0 || rcM < 0 {
			return &Error{Op: "enum insert " + m.Name, Path: path}
		}
	}

	cPath := C.CString(path)
	defer C.free(unsafe.Pointer(cPath))
	cIdx := C.CString(indexField)
	defer C.free(unsafe.Pointer(cIdx))
	cEnum := C.CString(enumField)
	defer C.free(unsafe.Pointer(cEnum))

	var idxPtr *C.ulonglong
	var codePtr *C.uchar
	if len(index) > 0 {
		idxPtr = (*C.ulonglong)(unsafe.Pointer(&index[0]))
		codePtr = (*C.uchar)(unsafe.Pointer(&small[0]))
	}
	if C.go_write_enum_table(f.id, cPath, cIdx, cEnum, fileEnum, memEnum, idxPtr, codePtr, C.size_t(len(index))) < 0 {
		return &Error{Op: "write table", Path: path}
	}
	return nil
}
