package export

import (
	"bufio"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/klauspost/compress/zstd"

	"github.com/danielpatrickdp/conflict-twin/internal/analysis"
	"github.com/danielpatrickdp/conflict-twin/internal/dialogue"
	"github.com/danielpatrickdp/conflict-twin/internal/store"
)

// #region types

// Archive is one session with its turns and latest analysis.
type Archive struct {
	Session  store.Session
	Turns    []dialogue.DialogueTurn
	Analysis *analysis.ConversationAnalysis
}

// record is one JSONL line. The session header comes first, then turns in
// order, then at most one analysis.
type record struct {
	Kind     string                         `json:"kind"`
	Session  *store.Session                 `json:"session,omitempty"`
	Turn     *dialogue.DialogueTurn         `json:"turn,omitempty"`
	Analysis *analysis.ConversationAnalysis `json:"analysis,omitempty"`
}

const (
	kindSession  = "session"
	kindTurn     = "turn"
	kindAnalysis = "analysis"
)

// Ext is the archive file suffix.
const Ext = ".jsonl.zst"

// #endregion types

// #region codec

// WriteArchive writes a as zstd-compressed JSONL.
func WriteArchive(w io.Writer, a Archive) error {
	encoder, err := zstd.NewWriter(w)
	if err != nil {
		return fmt.Errorf("create zstd encoder: %w", err)
	}
	enc := json.NewEncoder(encoder)

	records := make([]record, 0, len(a.Turns)+2)
	records = append(records, record{Kind: kindSession, Session: &a.Session})
	for i := range a.Turns {
		records = append(records, record{Kind: kindTurn, Turn: &a.Turns[i]})
	}
	if a.Analysis != nil {
		records = append(records, record{Kind: kindAnalysis, Analysis: a.Analysis})
	}
	for _, r := range records {
		if err := enc.Encode(r); err != nil {
			encoder.Close()
			return fmt.Errorf("encode %s: %w", r.Kind, err)
		}
	}

	if err := encoder.Close(); err != nil {
		return fmt.Errorf("finalize compression: %w", err)
	}
	return nil
}

// ReadArchive decodes an archive written by WriteArchive.
func ReadArchive(r io.Reader) (Archive, error) {
	decoder, err := zstd.NewReader(r)
	if err != nil {
		return Archive{}, fmt.Errorf("create zstd decoder: %w", err)
	}
	defer decoder.Close()

	var a Archive
	a.Turns = []dialogue.DialogueTurn{}
	seenSession := false
	scanner := bufio.NewScanner(decoder)
	scanner.Buffer(make([]byte, 0, 64*1024), 16*1024*1024)
	line := 0
	for scanner.Scan() {
		line++
		if len(scanner.Bytes()) == 0 {
			continue
		}
		var rec record
		if err := json.Unmarshal(scanner.Bytes(), &rec); err != nil {
			return Archive{}, fmt.Errorf("line %d: %w", line, err)
		}
		switch {
		case rec.Kind == kindSession && rec.Session != nil && !seenSession:
			a.Session = *rec.Session
			seenSession = true
		case !seenSession:
			return Archive{}, fmt.Errorf("line %d: expected session header, got %q", line, rec.Kind)
		case rec.Kind == kindTurn && rec.Turn != nil:
			a.Turns = append(a.Turns, *rec.Turn)
		case rec.Kind == kindAnalysis && rec.Analysis != nil:
			a.Analysis = rec.Analysis
		default:
			return Archive{}, fmt.Errorf("line %d: unexpected record %q", line, rec.Kind)
		}
	}
	if err := scanner.Err(); err != nil {
		return Archive{}, fmt.Errorf("decompress: %w", err)
	}
	if !seenSession {
		return Archive{}, errors.New("archive has no session header")
	}
	return a, nil
}

// #endregion codec

// #region files

// ArchivePath returns the deterministic archive path for a session ID.
func ArchivePath(sessionID, dir string) string {
	return filepath.Join(dir, sessionID+Ext)
}

// ExportSession archives a stored session into dir and returns the path.
func ExportSession(st *store.Store, sessionID, dir string) (string, error) {
	sess, err := st.GetSession(sessionID)
	if err != nil {
		return "", fmt.Errorf("export: %w", err)
	}
	turns, err := st.ListTurns(sessionID)
	if err != nil {
		return "", fmt.Errorf("export: %w", err)
	}
	a := Archive{Session: sess, Turns: turns}
	if rec, err := st.LatestAnalysis(sessionID); err == nil {
		a.Analysis = &rec.Analysis
	} else if !errors.Is(err, store.ErrNotFound) {
		return "", fmt.Errorf("export: %w", err)
	}

	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", fmt.Errorf("create archive dir: %w", err)
	}
	destPath := ArchivePath(sessionID, dir)
	dest, err := os.Create(destPath)
	if err != nil {
		return "", fmt.Errorf("create archive: %w", err)
	}
	defer dest.Close()

	if err := WriteArchive(dest, a); err != nil {
		return "", err
	}
	if err := dest.Close(); err != nil {
		return "", fmt.Errorf("close archive: %w", err)
	}
	return destPath, nil
}

// ImportArchive restores an archive as a new session owned by userID (the
// archived owner if empty). Turns keep their scores but get fresh IDs; the
// archived analysis is stored against the imported turn count.
func ImportArchive(st *store.Store, path, userID string) (store.Session, error) {
	src, err := os.Open(path)
	if err != nil {
		return store.Session{}, fmt.Errorf("open archive: %w", err)
	}
	defer src.Close()

	a, err := ReadArchive(src)
	if err != nil {
		return store.Session{}, fmt.Errorf("read archive %s: %w", path, err)
	}
	if userID == "" {
		userID = a.Session.UserID
	}
	sess, err := st.CreateSession(userID, a.Session.Name)
	if err != nil {
		return store.Session{}, fmt.Errorf("import: %w", err)
	}
	for i, t := range a.Turns {
		if _, err := st.AppendTurn(sess.ID, t); err != nil {
			return store.Session{}, fmt.Errorf("import turn %d: %w", i+1, err)
		}
	}
	if a.Analysis != nil {
		if _, err := st.SaveAnalysis(sess.ID, len(a.Turns), *a.Analysis); err != nil {
			return store.Session{}, fmt.Errorf("import analysis: %w", err)
		}
	}
	return sess, nil
}

// #endregion files
