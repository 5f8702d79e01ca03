package replay

import (
	"bufio"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/klauspost/compress/zstd"
	"go.uber.org/zap"
)

// Entry is one committed step of a game: lobby changes, the start, or an
// accepted engine action. Digest is the digest of the state after the step.
type Entry struct {
	GameID   string          `json:"gameId"`
	Seq      int64           `json:"seq"`
	PlayerID string          `json:"playerId"`
	Action   string          `json:"action"`
	Payload  json.RawMessage `json:"payload,omitempty"`
	Digest   string          `json:"digest,omitempty"`
	At       time.Time       `json:"at"`
}

// Journal appends entries to one zstd-compressed JSONL file per game.
// Files are opened on first use and kept open until CloseGame or Close.
type Journal struct {
	dir    string
	logger *zap.Logger

	mu    sync.Mutex
	files map[string]*gameFile
}

type gameFile struct {
	f   *os.File
	enc *zstd.Encoder
	w   *bufio.Writer
}

// NewJournal creates a journal rooted at dir.
func NewJournal(dir string, logger *zap.Logger) (*Journal, error) {
	if dir == "" {
		return nil, fmt.Errorf("empty journal dir")
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, err
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Journal{dir: dir, logger: logger, files: make(map[string]*gameFile)}, nil
}

// Path returns the journal file of a game.
func (j *Journal) Path(gameID string) string {
	return filepath.Join(j.dir, gameID+".jsonl.zst")
}

// Append writes one entry and flushes it to the compressor.
func (j *Journal) Append(e Entry) error {
	b, err := json.Marshal(e)
	if err != nil {
		return err
	}

	j.mu.Lock()
	defer j.mu.Unlock()

	gf, err := j.openLocked(e.GameID)
	if err != nil {
		return err
	}
	if _, err := gf.w.Write(b); err != nil {
		return err
	}
	if err := gf.w.WriteByte('\n'); err != nil {
		return err
	}
	if err := gf.w.Flush(); err != nil {
		return err
	}
	return gf.enc.Flush()
}

// CloseGame finishes the game's compressed frame and releases the file.
// Appending again later starts a new frame in the same file.
func (j *Journal) CloseGame(gameID string) error {
	j.mu.Lock()
	defer j.mu.Unlock()

	gf, ok := j.files[gameID]
	if !ok {
		return nil
	}
	delete(j.files, gameID)
	return gf.close()
}

// Close closes every open game file.
func (j *Journal) Close() error {
	j.mu.Lock()
	defer j.mu.Unlock()

	var errs []error
	for id, gf := range j.files {
		if err := gf.close(); err != nil {
			errs = append(errs, fmt.Errorf("close journal %s: %w", id, err))
		}
		delete(j.files, id)
	}
	return errors.Join(errs...)
}

func (j *Journal) openLocked(gameID string) (*gameFile, error) {
	if gf, ok := j.files[gameID]; ok {
		return gf, nil
	}
	if gameID == "" || filepath.Base(gameID) != gameID {
		return nil, fmt.Errorf("invalid game id %q", gameID)
	}
	f, err := os.OpenFile(j.Path(gameID), os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return nil, err
	}
	enc, err := zstd.NewWriter(f, zstd.WithEncoderLevel(zstd.SpeedFastest))
	if err != nil {
		_ = f.Close()
		return nil, err
	}
	gf := &gameFile{f: f, enc: enc, w: bufio.NewWriterSize(enc, 32*1024)}
	j.files[gameID] = gf
	j.logger.Debug("journal opened", zap.String("game_id", gameID))
	return gf, nil
}

func (gf *gameFile) close() error {
	flushErr := gf.w.Flush()
	encErr := gf.enc.Close()
	fileErr := gf.f.Close()
	return errors.Join(flushErr, encErr, fileErr)
}

// ReadFile decodes every entry of a journal file. Files holding several
// compressed frames, from a game closed and reopened, are read as one stream.
func ReadFile(path string) ([]Entry, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	return Read(f)
}

// Read decodes entries from a zstd JSONL stream.
func Read(r io.Reader) ([]Entry, error) {
	dec, err := zstd.NewReader(r)
	if err != nil {
		return nil, err
	}
	defer dec.Close()

	sc := bufio.NewScanner(dec)
	sc.Buffer(make([]byte, 64*1024), 8*1024*1024)

	var entries []Entry
	for sc.Scan() {
		var e Entry
		if err := json.Unmarshal(sc.Bytes(), &e); err != nil {
			return nil, fmt.Errorf("entry %d: unmarshal: %w", len(entries)+1, err)
		}
		entries = append(entries, e)
	}
	if err := sc.Err(); err != nil {
		return entries, err
	}
	return entries, nil
}

// Verify checks that entries form one game's gapless sequence starting at 1.
func Verify(entries []Entry) error {
	for i, e := range entries {
		if e.GameID != entries[0].GameID {
			return fmt.Errorf("entry %d: game id %s, want %s", i+1, e.GameID, entries[0].GameID)
		}
		if e.Seq != int64(i+1) {
			return fmt.Errorf("entry %d: seq %d out of order", i+1, e.Seq)
		}
	}
	return nil
}
