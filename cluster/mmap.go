package cluster

import (
	"encoding/binary"
	"fmt"
	"math"
	"os"

	"github.com/edsrzf/mmap-go"
)

// id uint32, x float64, y float64
const pointRecordSize = 20

func encodePoint(b []byte, p Point) {
	binary.LittleEndian.PutUint32(b[0:], p.ID)
	binary.LittleEndian.PutUint64(b[4:], math.Float64bits(p.X))
	binary.LittleEndian.PutUint64(b[12:], math.Float64bits(p.Y))
}

func decodePoint(b []byte) Point {
	return Point{
		ID: binary.LittleEndian.Uint32(b[0:]),
		X:  math.Float64frombits(binary.LittleEndian.Uint64(b[4:])),
		Y:  math.Float64frombits(binary.LittleEndian.Uint64(b[12:])),
	}
}

// MMapWriter appends fixed-width values to a memory-mapped region.
type MMapWriter struct {
	data   mmap.MMap
	offset int
}

func NewMMapWriter(data mmap.MMap) *MMapWriter {
	return &MMapWriter{data: data}
}

func (w *MMapWriter) WriteUint32(v uint32) {
	binary.LittleEndian.PutUint32(w.data[w.offset:], v)
	w.offset += 4
}

func (w *MMapWriter) WritePoint(p Point) {
	encodePoint(w.data[w.offset:], p)
	w.offset += pointRecordSize
}

// MMapReader reads fixed-width values from a memory-mapped region.
type MMapReader struct {
	data   mmap.MMap
	offset int
}

func NewMMapReader(data mmap.MMap) *MMapReader {
	return &MMapReader{data: data}
}

func (r *MMapReader) Remaining() int {
	return len(r.data) - r.offset
}

func (r *MMapReader) ReadUint32() uint32 {
	v := binary.LittleEndian.Uint32(r.data[r.offset:])
	r.offset += 4
	return v
}

func (r *MMapReader) ReadPoint() Point {
	p := decodePoint(r.data[r.offset:])
	r.offset += pointRecordSize
	return p
}

// SavePointsMMap writes points uncompressed through a memory mapping.
func SavePointsMMap(filename string, points []Point) error {
	size := int64(4 + pointRecordSize*len(points))

	file, err := os.OpenFile(filename, os.O_RDWR|os.O_CREATE|os.O_TRUNC, 0644)
	if err != nil {
		return fmt.Errorf("failed to create file: %w", err)
	}
	defer file.Close()

	if err := file.Truncate(size); err != nil {
		return fmt.Errorf("failed to truncate file: %w", err)
	}

	mmapData, err := mmap.Map(file, mmap.RDWR, 0)
	if err != nil {
		return fmt.Errorf("failed to mmap file: %w", err)
	}
	defer mmapData.Unmap()

	writer := NewMMapWriter(mmapData)
	writer.WriteUint32(uint32(len(points)))
	for _, p := range points {
		writer.WritePoint(p)
	}

	return mmapData.Flush()
}

// LoadPointsMMap reads a file written by SavePointsMMap.
func LoadPointsMMap(filename string) ([]Point, error) {
	file, err := os.Open(filename)
	if err != nil {
		return nil, fmt.Errorf("failed to open file: %w", err)
	}
	defer file.Close()

	mmapData, err := mmap.Map(file, mmap.RDONLY, 0)
	if err != nil {
		return nil, fmt.Errorf("failed to mmap file: %w", err)
	}
	defer mmapData.Unmap()

	reader := NewMMapReader(mmapData)
	if reader.Remaining() < 4 {
		return nil, fmt.Errorf("file %s too short for header", filename)
	}
	n := int(reader.ReadUint32())
	if reader.Remaining() < n*pointRecordSize {
		return nil, fmt.Errorf("file %s truncated: want %d points", filename, n)
	}

	points := make([]Point, n)
	for i := range points {
		points[i] = reader.ReadPoint()
	}
	return points, nil
}
