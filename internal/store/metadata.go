// Package store loads the pre-built indexes and their parallel metadata
// arrays and hands them out as read-only corpora.
package store

import (
	"bufio"
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"restaurantbot/internal/domain"
)

// LoadRecords reads the internal metadata array from a JSON array or JSON
// Lines file.
func LoadRecords(path string, logger *slog.Logger) ([]domain.Record, error) {
	return loadMetadata[domain.Record](path, logger)
}

// LoadChunks reads the external metadata array from a JSON array or JSON
// Lines file.
func LoadChunks(path string, logger *slog.Logger) ([]domain.Chunk, error) {
	return loadMetadata[domain.Chunk](path, logger)
}

// loadMetadata decodes entries one by one. A field that fails to decode
// keeps its default and the rest of the entry is kept; an entry that is not
// an object at all becomes a zero value so positions stay aligned with index
// rows.
func loadMetadata[T any](path string, logger *slog.Logger) ([]T, error) {
	if logger == nil {
		logger = slog.Default()
	}
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, fmt.Errorf("%w: metadata file %s not found", domain.ErrMissingResource, path)
		}
		return nil, fmt.Errorf("%w: read metadata %s: %v", domain.ErrMissingResource, path, err)
	}
	raws, err := splitEntries(path, nullNonFinite(data))
	if err != nil {
		return nil, fmt.Errorf("%w: parse metadata %s: %v", domain.ErrMissingResource, path, err)
	}
	out := make([]T, len(raws))
	bad, partial := 0, 0
	for i, raw := range raws {
		fields, err := decodeEntry(raw, &out[i])
		switch {
		case err != nil:
			bad++
			logger.Warn("store: malformed metadata entry, using defaults", "path", path, "row", i, "err", err)
		case len(fields) > 0:
			partial++
			logger.Warn("store: metadata fields reset to defaults", "path", path, "row", i, "fields", fields)
		}
	}
	logger.Info("store: metadata loaded", "path", path, "rows", len(out), "malformed", bad, "partial", partial)
	return out, nil
}

// decodeEntry fills out from raw. When the entry as a whole does not decode,
// it is retried one field at a time and the names of the fields that still
// fail are returned. err is set only when raw is not a JSON object.
func decodeEntry[T any](raw json.RawMessage, out *T) ([]string, error) {
	if err := json.Unmarshal(raw, out); err == nil {
		return nil, nil
	}
	var zero T
	*out = zero
	var fields map[string]json.RawMessage
	if err := json.Unmarshal(raw, &fields); err != nil {
		return nil, err
	}
	if fields == nil {
		return nil, errors.New("entry is null")
	}
	keys := make([]string, 0, len(fields))
	for k := range fields {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	var failed []string
	for _, k := range keys {
		single, err := json.Marshal(map[string]json.RawMessage{k: fields[k]})
		if err != nil {
			failed = append(failed, k)
			continue
		}
		next := *out
		if err := json.Unmarshal(single, &next); err != nil {
			failed = append(failed, k)
			continue
		}
		*out = next
	}
	return failed, nil
}

// nullNonFinite rewrites the bare NaN, Infinity and -Infinity tokens that
// Python's json module emits into null. String contents are left alone.
func nullNonFinite(data []byte) []byte {
	var out []byte
	last := 0
	inString, escaped := false, false
	for i := 0; i < len(data); i++ {
		c := data[i]
		if inString {
			switch {
			case escaped:
				escaped = false
			case c == '\\':
				escaped = true
			case c == '"':
				inString = false
			}
			continue
		}
		if c == '"' {
			inString = true
			continue
		}
		if i > 0 && isWordByte(data[i-1]) {
			continue
		}
		for _, tok := range nonFiniteTokens {
			end := i + len(tok)
			if !bytes.HasPrefix(data[i:], tok) || (end < len(data) && isWordByte(data[end])) {
				continue
			}
			out = append(out, data[last:i]...)
			out = append(out, "null"...)
			last = end
			i = end - 1
			break
		}
	}
	if out == nil {
		return data
	}
	return append(out, data[last:]...)
}

var nonFiniteTokens = [][]byte{[]byte("-Infinity"), []byte("Infinity"), []byte("NaN")}

func isWordByte(c byte) bool {
	return c == '_' || c == '.' || c == '-' || c == '+' ||
		('0' <= c && c <= '9') || ('a' <= c && c <= 'z') || ('A' <= c && c <= 'Z')
}

func splitEntries(path string, data []byte) ([]json.RawMessage, error) {
	trimmed := bytes.TrimSpace(data)
	if len(trimmed) == 0 {
		return nil, nil
	}
	if trimmed[0] == '[' && !strings.EqualFold(filepath.Ext(path), ".jsonl") {
		var raws []json.RawMessage
		if err := json.Unmarshal(trimmed, &raws); err != nil {
			return nil, err
		}
		return raws, nil
	}
	var raws []json.RawMessage
	r := bufio.NewReader(bytes.NewReader(trimmed))
	for {
		line, err := r.ReadBytes('\n')
		if line = bytes.TrimSpace(line); len(line) > 0 {
			raws = append(raws, json.RawMessage(line))
		}
		if errors.Is(err, io.EOF) {
			return raws, nil
		}
		if err != nil {
			return nil, err
		}
	}
}
