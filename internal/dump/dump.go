// Package dump persists live cache entries to versioned snapshot files and
// restores the newest snapshot on startup. Snapshots are an availability
// optimization for restarts; losing one only costs cold-cache misses.
//
// Frame layout per entry: an 8-byte header (LE uint32 payload length,
// LE uint32 crc32 of the payload, zero when checksums are off) followed by
// the encoded entry: key words (v, hi, lo), expiry instant, payload bytes.
package dump

import (
	"bufio"
	"compress/gzip"
	"context"
	"encoding/binary"
	"errors"
	"fmt"
	"hash/crc32"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"

	"github.com/rs/zerolog/log"

	"github.com/Borislavv/go-aside-cache/config"
	"github.com/Borislavv/go-aside-cache/internal/model"
	"github.com/Borislavv/go-aside-cache/internal/shared/cachedtime"
	"github.com/Borislavv/go-aside-cache/internal/store"
)

var (
	ErrDumpNotEnabled = errors.New("persistence mode is not enabled")
	ErrNoDumpFound    = errors.New("no dump version found")
)

const (
	entryHeaderLen = 8
	// key words + expiry, preceding the payload inside a frame
	entryFixedLen = 8 * 4
	// sanity bound for a single frame; anything larger means a broken file
	maxFrameLen = 64 << 20
)

type Dumper interface {
	Dump(ctx context.Context) error
	Load(ctx context.Context) error
}

type Dump struct {
	cfg   *config.PersistenceCfg
	store *store.Store
}

func New(cfg *config.PersistenceCfg, store *store.Store) *Dump {
	return &Dump{cfg: cfg, store: store}
}

// Dump writes all live entries, most recent first, into a fresh version
// directory. The file is written under a temporary name and renamed, so a
// failed dump never corrupts an earlier version.
func (d *Dump) Dump(ctx context.Context) error {
	if !d.cfg.Enabled() {
		return ErrDumpNotEnabled
	}
	if err := os.MkdirAll(d.cfg.Dir, 0o755); err != nil {
		return fmt.Errorf("create base dump dir: %w", err)
	}

	versionDir := filepath.Join(d.cfg.Dir, fmt.Sprintf("v%d", nextVersion(d.cfg.Dir)))
	if err := os.MkdirAll(versionDir, 0o755); err != nil {
		return fmt.Errorf("create version dir: %w", err)
	}

	ext := ".dump"
	if d.cfg.Gzip {
		ext += ".gz"
	}
	timestamp := cachedtime.Now().Format("20060102T150405")
	name := filepath.Join(versionDir, fmt.Sprintf("%s-%s%s", d.cfg.Name, timestamp, ext))
	tmp := name + ".tmp"

	f, err := os.Create(tmp)
	if err != nil {
		log.Err(err).Str("file", tmp).Msg("[dump] create error")
		return fmt.Errorf("create dump file: %w", err)
	}

	var (
		writer io.Writer = f
		gw     *gzip.Writer
	)
	if d.cfg.Gzip {
		gw = gzip.NewWriter(f)
		writer = gw
	}
	bw := bufio.NewWriterSize(writer, 512*1024)

	var written int
	for _, e := range d.store.Entries() {
		select {
		case <-ctx.Done():
			_ = f.Close()
			_ = os.Remove(tmp)
			return ctx.Err()
		default:
		}
		if err = d.writeFrame(bw, e); err != nil {
			log.Err(err).Str("file", tmp).Msg("[dump] write error")
			_ = f.Close()
			_ = os.Remove(tmp)
			return fmt.Errorf("write dump frame: %w", err)
		}
		written++
	}

	if err = bw.Flush(); err != nil {
		_ = f.Close()
		_ = os.Remove(tmp)
		return fmt.Errorf("flush dump: %w", err)
	}
	if gw != nil {
		if err = gw.Close(); err != nil {
			_ = f.Close()
			_ = os.Remove(tmp)
			return fmt.Errorf("close gzip writer: %w", err)
		}
	}
	if err = f.Close(); err != nil {
		return fmt.Errorf("close dump file: %w", err)
	}
	if err = os.Rename(tmp, name); err != nil {
		return fmt.Errorf("rename dump file: %w", err)
	}

	if d.cfg.MaxVersions > 0 {
		d.pruneVersions()
	}

	log.Info().Str("file", name).Int("entries", written).Msg("[dump] snapshot written")
	return nil
}

// Load restores the newest dump version into the store. Already-expired
// entries and frames failing the checksum are skipped; restoring stops at
// capacity, dropping the coldest tail of the snapshot.
func (d *Dump) Load(ctx context.Context) error {
	if !d.cfg.Enabled() {
		return ErrDumpNotEnabled
	}

	versionDir, ok := newestVersion(d.cfg.Dir)
	if !ok {
		return ErrNoDumpFound
	}

	files, err := filepath.Glob(filepath.Join(versionDir, d.cfg.Name+"-*"))
	if err != nil || len(files) == 0 {
		return ErrNoDumpFound
	}
	sort.Strings(files)

	var restored, skipped int
	for _, file := range files {
		r, s, ferr := d.loadFile(ctx, file)
		restored += r
		skipped += s
		if ferr != nil {
			return ferr
		}
	}

	log.Info().Str("dir", versionDir).Int("restored", restored).Int("skipped", skipped).Msg("[dump] snapshot restored")
	return nil
}

func (d *Dump) loadFile(ctx context.Context, file string) (restored, skipped int, err error) {
	f, err := os.Open(file)
	if err != nil {
		return 0, 0, fmt.Errorf("open dump file %s: %w", file, err)
	}
	defer func() { _ = f.Close() }()

	var reader io.Reader = f
	if strings.HasSuffix(file, ".gz") {
		gr, gerr := gzip.NewReader(f)
		if gerr != nil {
			return 0, 0, fmt.Errorf("open gzip reader %s: %w", file, gerr)
		}
		defer func() { _ = gr.Close() }()
		reader = gr
	}
	br := bufio.NewReaderSize(reader, 512*1024)

	for {
		select {
		case <-ctx.Done():
			return restored, skipped, ctx.Err()
		default:
		}

		entry, ferr := d.readFrame(br)
		switch {
		case errors.Is(ferr, io.EOF):
			return restored, skipped, nil
		case errors.Is(ferr, errSkipFrame):
			skipped++ // checksum mismatch, framing still intact
			continue
		case ferr != nil:
			log.Err(ferr).Str("file", file).Msg("[dump] corrupt frame, file abandoned")
			return restored, skipped, nil
		}
		if d.store.Restore(entry) {
			restored++
		} else {
			skipped++
		}
	}
}

func (d *Dump) writeFrame(w io.Writer, e *model.Entry) error {
	data := make([]byte, entryFixedLen+len(e.Payload()))
	binary.LittleEndian.PutUint64(data[0:8], e.Key().Value())
	binary.LittleEndian.PutUint64(data[8:16], e.Key().Hi())
	binary.LittleEndian.PutUint64(data[16:24], e.Key().Lo())
	binary.LittleEndian.PutUint64(data[24:32], uint64(e.ExpiresAt()))
	copy(data[entryFixedLen:], e.Payload())

	var crc uint32
	if d.cfg.Crc32Control {
		crc = crc32.ChecksumIEEE(data)
	}

	var lenBuf [entryHeaderLen]byte
	binary.LittleEndian.PutUint32(lenBuf[0:4], uint32(len(data)))
	binary.LittleEndian.PutUint32(lenBuf[4:8], crc)
	if _, err := w.Write(lenBuf[:]); err != nil {
		return err
	}
	_, err := w.Write(data)
	return err
}

// errSkipFrame marks a frame whose checksum failed: the body is untrusted
// but the length prefix still positions the reader at the next frame.
var errSkipFrame = errors.New("frame checksum mismatch")

// readFrame decodes one frame. io.EOF signals a clean end of file; any
// other error means the file can no longer be trusted past this point.
func (d *Dump) readFrame(r io.Reader) (*model.Entry, error) {
	var lenBuf [entryHeaderLen]byte
	if _, err := io.ReadFull(r, lenBuf[:]); err != nil {
		if errors.Is(err, io.EOF) {
			return nil, io.EOF
		}
		return nil, fmt.Errorf("read frame header: %w", err)
	}

	length := binary.LittleEndian.Uint32(lenBuf[0:4])
	crc := binary.LittleEndian.Uint32(lenBuf[4:8])
	if length < entryFixedLen || length > maxFrameLen {
		return nil, fmt.Errorf("frame length %d out of bounds", length)
	}

	data := make([]byte, length)
	if _, err := io.ReadFull(r, data); err != nil {
		return nil, fmt.Errorf("read frame body: %w", err)
	}

	if d.cfg.Crc32Control && crc32.ChecksumIEEE(data) != crc {
		return nil, errSkipFrame
	}

	key := model.NewKeyFromDigest(
		binary.LittleEndian.Uint64(data[0:8]),
		binary.LittleEndian.Uint64(data[8:16]),
		binary.LittleEndian.Uint64(data[16:24]),
	)
	expiresAt := int64(binary.LittleEndian.Uint64(data[24:32]))
	payload := make([]byte, len(data)-entryFixedLen)
	copy(payload, data[entryFixedLen:])

	return model.NewEntry(key, payload, expiresAt), nil
}

func versionDirs(dir string) []int {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil
	}
	var versions []int
	for _, e := range entries {
		if !e.IsDir() || !strings.HasPrefix(e.Name(), "v") {
			continue
		}
		if n, err := strconv.Atoi(e.Name()[1:]); err == nil {
			versions = append(versions, n)
		}
	}
	sort.Ints(versions)
	return versions
}

func nextVersion(dir string) int {
	versions := versionDirs(dir)
	if len(versions) == 0 {
		return 1
	}
	return versions[len(versions)-1] + 1
}

func newestVersion(dir string) (string, bool) {
	versions := versionDirs(dir)
	if len(versions) == 0 {
		return "", false
	}
	return filepath.Join(dir, fmt.Sprintf("v%d", versions[len(versions)-1])), true
}

func (d *Dump) pruneVersions() {
	versions := versionDirs(d.cfg.Dir)
	for len(versions) > d.cfg.MaxVersions {
		victim := filepath.Join(d.cfg.Dir, fmt.Sprintf("v%d", versions[0]))
		if err := os.RemoveAll(victim); err != nil {
			log.Err(err).Str("dir", victim).Msg("[dump] prune error")
			return
		}
		versions = versions[1:]
	}
}
