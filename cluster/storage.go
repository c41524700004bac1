package cluster

import (
	"bufio"
	"encoding/binary"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/klauspost/compress/zstd"
	"github.com/pierrec/lz4/v4"
)

const datasetTimeLayout = "20060102-150405"

// DatasetInfo describes a saved point file.
type DatasetInfo struct {
	ID        string    `json:"id"`
	NumPoints int       `json:"numPoints"`
	Timestamp time.Time `json:"timestamp"`
	FileSize  int64     `json:"fileSize"`
	Path      string    `json:"-"`
}

// Dataset file extensions. The extension selects the encoding used by
// SavePoints and LoadPoints.
const (
	ExtZstd = ".zst"
	ExtLZ4  = ".lz4"
	ExtMMap = ".bin"
)

func knownExt(ext string) bool {
	return ext == ExtZstd || ext == ExtLZ4 || ext == ExtMMap
}

// DatasetFilename returns a new file name of the form
// points-{numPoints}p-{timestamp}-{id}.zst together with its id.
func DatasetFilename(dir string, numPoints int) (path, id string) {
	return DatasetFilenameExt(dir, numPoints, ExtZstd)
}

// DatasetFilenameExt is DatasetFilename with a chosen extension.
func DatasetFilenameExt(dir string, numPoints int, ext string) (path, id string) {
	id = uuid.New().String()[:8]
	name := fmt.Sprintf("points-%dp-%s-%s%s", numPoints, time.Now().Format(datasetTimeLayout), id, ext)
	return filepath.Join(dir, name), id
}

func parseDatasetFilename(name string) (DatasetInfo, bool) {
	ext := filepath.Ext(name)
	if !knownExt(ext) {
		return DatasetInfo{}, false
	}
	parts := strings.Split(strings.TrimSuffix(name, ext), "-")
	if len(parts) != 5 || parts[0] != "points" {
		return DatasetInfo{}, false
	}
	numPoints, err := strconv.Atoi(strings.TrimSuffix(parts[1], "p"))
	if err != nil {
		return DatasetInfo{}, false
	}
	timestamp, err := time.Parse(datasetTimeLayout, parts[2]+"-"+parts[3])
	if err != nil {
		return DatasetInfo{}, false
	}
	return DatasetInfo{ID: parts[4], NumPoints: numPoints, Timestamp: timestamp}, true
}

// ListSavedDatasets returns the point files in dir, newest first.
func ListSavedDatasets(dir string) ([]DatasetInfo, error) {
	files, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("failed to read dataset directory: %w", err)
	}

	datasets := make([]DatasetInfo, 0, len(files))
	for _, file := range files {
		if file.IsDir() {
			continue
		}
		info, ok := parseDatasetFilename(file.Name())
		if !ok {
			continue
		}
		stat, err := file.Info()
		if err != nil {
			continue
		}
		info.FileSize = stat.Size()
		info.Path = filepath.Join(dir, file.Name())
		datasets = append(datasets, info)
	}

	sort.Slice(datasets, func(i, j int) bool {
		return datasets[i].Timestamp.After(datasets[j].Timestamp)
	})
	return datasets, nil
}

// GetDatasetInfo finds the saved point file with the given id.
func GetDatasetInfo(dir, id string) (DatasetInfo, error) {
	datasets, err := ListSavedDatasets(dir)
	if err != nil {
		return DatasetInfo{}, err
	}
	for _, d := range datasets {
		if d.ID == id {
			return d, nil
		}
	}
	return DatasetInfo{}, fmt.Errorf("dataset %s: %w", id, ErrDatasetNotFound)
}

// SavePoints writes points to filename, compressed with lz4 when the name
// ends in .lz4, uncompressed through a memory mapping for .bin and zstd
// otherwise.
func SavePoints(filename string, points []Point) error {
	if filepath.Ext(filename) == ExtMMap {
		return SavePointsMMap(filename, points)
	}

	file, err := os.Create(filename)
	if err != nil {
		return fmt.Errorf("failed to create file: %w", err)
	}
	defer file.Close()

	bufWriter := bufio.NewWriterSize(file, 1024*1024)

	var enc io.WriteCloser
	if filepath.Ext(filename) == ExtLZ4 {
		enc = lz4.NewWriter(bufWriter)
	} else {
		enc, err = zstd.NewWriter(bufWriter, zstd.WithEncoderLevel(zstd.SpeedBestCompression))
		if err != nil {
			return fmt.Errorf("failed to create zstd writer: %w", err)
		}
	}

	if err := writePoints(enc, points); err != nil {
		enc.Close()
		return err
	}
	if err := enc.Close(); err != nil {
		return fmt.Errorf("failed to close encoder: %w", err)
	}
	if err := bufWriter.Flush(); err != nil {
		return fmt.Errorf("failed to flush buffer: %w", err)
	}
	return file.Sync()
}

// LoadPoints reads a file written by SavePoints.
func LoadPoints(filename string) ([]Point, error) {
	if filepath.Ext(filename) == ExtMMap {
		return LoadPointsMMap(filename)
	}

	file, err := os.Open(filename)
	if err != nil {
		return nil, fmt.Errorf("failed to open file: %w", err)
	}
	defer file.Close()

	bufReader := bufio.NewReaderSize(file, 1024*1024)

	if filepath.Ext(filename) == ExtLZ4 {
		return readPoints(lz4.NewReader(bufReader))
	}

	dec, err := zstd.NewReader(bufReader)
	if err != nil {
		return nil, fmt.Errorf("failed to create zstd reader: %w", err)
	}
	defer dec.Close()

	return readPoints(dec)
}

func writePoints(w io.Writer, points []Point) error {
	var buf [pointRecordSize]byte
	binary.LittleEndian.PutUint32(buf[:4], uint32(len(points)))
	if _, err := w.Write(buf[:4]); err != nil {
		return fmt.Errorf("failed to write point count: %w", err)
	}
	for _, p := range points {
		encodePoint(buf[:], p)
		if _, err := w.Write(buf[:]); err != nil {
			return fmt.Errorf("failed to write point %d: %w", p.ID, err)
		}
	}
	return nil
}

const maxPreallocPoints = 1 << 20

func readPoints(r io.Reader) ([]Point, error) {
	var buf [pointRecordSize]byte
	if _, err := io.ReadFull(r, buf[:4]); err != nil {
		return nil, fmt.Errorf("failed to read point count: %w", err)
	}
	n := binary.LittleEndian.Uint32(buf[:4])

	// The header count is not trusted for allocation; a truncated file fails
	// on the first missing record instead.
	points := make([]Point, 0, min(n, maxPreallocPoints))
	for i := uint32(0); i < n; i++ {
		if _, err := io.ReadFull(r, buf[:]); err != nil {
			return nil, fmt.Errorf("failed to read point %d of %d: %w", i, n, err)
		}
		points = append(points, decodePoint(buf[:]))
	}
	return points, nil
}
