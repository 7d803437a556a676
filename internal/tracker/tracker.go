// Package tracker implements C3 (Replay Tracker): a persistent hash-keyed
// manifest of uploaded replays with atomic save and backward-compatible
// manifest_version migration.
//
// Grounded on _examples/original_source/src-tauri/src/replay_tracker.rs.
package tracker

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"sync"

	"github.com/golang/snappy"

	"github.com/ladderlegends/sc2-uploader-agent/internal/agenterr"
	"github.com/ladderlegends/sc2-uploader-agent/internal/logging"
)

// TrackedReplay is one persisted, previously-uploaded replay (spec.md §3).
type TrackedReplay struct {
	Hash       string `json:"hash"`
	Filename   string `json:"filename"`
	FileSize   int64  `json:"filesize"`
	UploadedAt int64  `json:"uploaded_at"`
	Filepath   string `json:"filepath"`
}

// manifestVersion is a string that also accepts legacy integer documents,
// normalizing any integer (zero or not) to "" on load (spec.md §4.3).
type manifestVersion string

func (m *manifestVersion) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err == nil {
		*m = manifestVersion(s)
		return nil
	}
	var n json.Number
	if err := json.Unmarshal(data, &n); err == nil {
		*m = ""
		return nil
	}
	return fmt.Errorf("manifest_version: unsupported JSON shape: %s", string(data))
}

func (m manifestVersion) MarshalJSON() ([]byte, error) {
	return json.Marshal(string(m))
}

// document is the on-disk JSON shape (spec.md §6: replays.json).
type document struct {
	Replays         map[string]TrackedReplay `json:"replays"`
	TotalUploaded   int                      `json:"total_uploaded"`
	ManifestVersion manifestVersion          `json:"manifest_version"`
}

// Tracker is the in-memory manifest, guarded by a single mutex per spec.md §5.
type Tracker struct {
	mu              sync.Mutex
	path            string
	replays         map[string]TrackedReplay
	totalUploaded   int
	manifestVersion string
	log             *logging.Logger
}

// New returns an empty tracker bound to path (the replays.json location).
func New(path string, log *logging.Logger) *Tracker {
	if log == nil {
		log = logging.NewTestLogger()
	}
	return &Tracker{
		path:    path,
		replays: make(map[string]TrackedReplay),
		log:     log,
	}
}

// Load reads path into a new Tracker. A missing file yields an empty
// tracker; a file that fails to parse also yields an empty tracker (logged,
// never fatal) per spec.md §4.3 / §7 (StateCorrupted).
func Load(path string, log *logging.Logger) *Tracker {
	t := New(path, log)
	data, err := os.ReadFile(path)
	if err != nil {
		return t
	}
	var doc document
	if err := json.Unmarshal(data, &doc); err != nil {
		t.log.Warn("tracker file failed to parse, starting empty",
			logging.String("path", path), logging.Error(err))
		return t
	}
	if doc.Replays == nil {
		doc.Replays = make(map[string]TrackedReplay)
	}
	t.replays = doc.Replays
	t.totalUploaded = len(doc.Replays)
	t.manifestVersion = string(doc.ManifestVersion)
	return t
}

// CalculateHash returns the hex-encoded SHA-256 digest of the file at path.
func CalculateHash(path string) (string, error) {
	f, err := os.Open(path)
	if err != nil {
		return "", agenterr.New(agenterr.IOError, "tracker.CalculateHash", err)
	}
	defer f.Close()
	h := sha256.New()
	if _, err := io.Copy(h, f); err != nil {
		return "", agenterr.New(agenterr.IOError, "tracker.CalculateHash", err)
	}
	return hex.EncodeToString(h.Sum(nil)), nil
}

// IsUploaded reports whether hash is already tracked.
func (t *Tracker) IsUploaded(hash string) bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	_, ok := t.replays[hash]
	return ok
}

// ExistsByMetadata is the cheap pre-hash duplicate check.
func (t *Tracker) ExistsByMetadata(filename string, size int64) bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	for _, r := range t.replays {
		if r.Filename == filename && r.FileSize == size {
			return true
		}
	}
	return false
}

// Add inserts tracked idempotently on hash, updating TotalUploaded.
func (t *Tracker) Add(tracked TrackedReplay) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if _, exists := t.replays[tracked.Hash]; exists {
		return
	}
	t.replays[tracked.Hash] = tracked
	t.totalUploaded = len(t.replays)
}

// GetByHash returns the tracked replay for hash, if any.
func (t *Tracker) GetByHash(hash string) (TrackedReplay, bool) {
	t.mu.Lock()
	defer t.mu.Unlock()
	r, ok := t.replays[hash]
	return r, ok
}

// GetAll returns a sorted-by-hash snapshot of every tracked replay.
func (t *Tracker) GetAll() []TrackedReplay {
	t.mu.Lock()
	defer t.mu.Unlock()
	out := make([]TrackedReplay, 0, len(t.replays))
	for _, r := range t.replays {
		out = append(out, r)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Hash < out[j].Hash })
	return out
}

// TotalUploaded returns the current count; always equal to len(replays).
func (t *Tracker) TotalUploaded() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.totalUploaded
}

// ManifestVersion returns the cached server manifest token.
func (t *Tracker) ManifestVersion() string {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.manifestVersion
}

// SetManifestVersion updates the cached server manifest token.
func (t *Tracker) SetManifestVersion(version string) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.manifestVersion = version
}

// Clear empties the replay map and zeroes the counter but preserves
// ManifestVersion (spec.md §4.3 / §3 invariant (ii)).
func (t *Tracker) Clear() {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.replays = make(map[string]TrackedReplay)
	t.totalUploaded = 0
}

// Save serializes the tracker to its bound path atomically (temp file,
// fsync, rename), then writes a best-effort snappy-compressed backup
// alongside it. The backup is never consulted by Load - it exists purely as
// a fast local recovery artefact, exercising the same
// snappy.NewBufferedWriter/snappy.NewReader pattern as the teacher's
// internal/replay/writer.go event stream.
func (t *Tracker) Save() error {
	t.mu.Lock()
	doc := document{
		Replays:         t.replays,
		TotalUploaded:   t.totalUploaded,
		ManifestVersion: manifestVersion(t.manifestVersion),
	}
	t.mu.Unlock()

	data, err := json.MarshalIndent(doc, "", "  ")
	if err != nil {
		return agenterr.New(agenterr.IOError, "tracker.Save", err)
	}

	if err := atomicWrite(t.path, data); err != nil {
		return agenterr.New(agenterr.IOError, "tracker.Save", err)
	}

	if err := writeSnappyBackup(t.path+".snappy", data); err != nil {
		t.log.Warn("tracker snappy backup failed (non-fatal)",
			logging.String("path", t.path+".snappy"), logging.Error(err))
	}
	return nil
}

func atomicWrite(path string, data []byte) error {
	dir := filepath.Dir(path)
	if dir != "." && dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return err
		}
	}
	tmp := path + ".tmp"
	f, err := os.OpenFile(tmp, os.O_CREATE|os.O_TRUNC|os.O_WRONLY, 0o644)
	if err != nil {
		return err
	}
	if _, err := f.Write(data); err != nil {
		f.Close()
		os.Remove(tmp)
		return err
	}
	if err := f.Sync(); err != nil {
		f.Close()
		os.Remove(tmp)
		return err
	}
	if err := f.Close(); err != nil {
		os.Remove(tmp)
		return err
	}
	if err := os.Rename(tmp, path); err != nil {
		os.Remove(tmp)
		return err
	}
	return nil
}

func writeSnappyBackup(path string, data []byte) error {
	f, err := os.OpenFile(path, os.O_CREATE|os.O_TRUNC|os.O_WRONLY, 0o644)
	if err != nil {
		return err
	}
	defer f.Close()
	w := snappy.NewBufferedWriter(f)
	if _, err := w.Write(data); err != nil {
		w.Close()
		return err
	}
	return w.Close()
}

// RecoverFromBackup reads the snappy backup file, if present, and returns
// its decoded document bytes. Never called by normal load paths - only an
// explicit operator recovery action should reach for it.
func RecoverFromBackup(path string) ([]byte, error) {
	f, err := os.Open(path + ".snappy")
	if err != nil {
		return nil, err
	}
	defer f.Close()
	return io.ReadAll(snappy.NewReader(f))
}
