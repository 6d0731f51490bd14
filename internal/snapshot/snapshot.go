// Package snapshot exports the content store as JSON Lines and imports it
// back.
//
// A snapshot starts with a header line followed by one node per line in
// pre-order, so parents are always restored before their children. Files
// ending in ".zst" are Zstandard compressed.
package snapshot

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"os"
	"slices"
	"time"

	jsoniter "github.com/json-iterator/go"

	"github.com/2lenet/sulu/internal/atomicfile"
	"github.com/2lenet/sulu/internal/logger"
	"github.com/2lenet/sulu/internal/model"
	"github.com/2lenet/sulu/internal/store"
)

var json = jsoniter.ConfigCompatibleWithStandardLibrary

// Format identifies snapshot streams.
const Format = "sulu-snapshot"

const maxLineSize = 10 * 1024 * 1024

// ErrInvalidSnapshot is returned for streams without a valid header.
var ErrInvalidSnapshot = errors.New("invalid snapshot")

// Header is the first line of a snapshot.
type Header struct {
	Format        string    `json:"format"`
	SchemaVersion int       `json:"schema_version"`
	Created       time.Time `json:"created"`
	Nodes         int       `json:"nodes"`
	Webspaces     []string  `json:"webspaces"`
}

// Export writes every node of st to w through c.
// Returns the number of nodes written.
func Export(w io.Writer, st *store.Store, c Compressor) (int, error) {
	nodes, err := st.Nodes("")
	if err != nil {
		return 0, err
	}
	webspaces, err := st.Webspaces()
	if err != nil {
		return 0, err
	}

	cw, err := c.Compress(w)
	if err != nil {
		return 0, fmt.Errorf("failed to start %s stream: %w", c.Name(), err)
	}
	enc := json.NewEncoder(cw)
	header := Header{
		Format:        Format,
		SchemaVersion: store.SchemaVersion,
		Created:       time.Now().UTC().Truncate(time.Second),
		Nodes:         len(nodes),
		Webspaces:     webspaces,
	}
	if err := enc.Encode(header); err != nil {
		cw.Close()
		return 0, fmt.Errorf("failed to write header: %w", err)
	}
	for _, n := range nodes {
		if err := enc.Encode(n); err != nil {
			cw.Close()
			return 0, fmt.Errorf("failed to write node %s: %w", n.Path, err)
		}
	}
	if err := cw.Close(); err != nil {
		return 0, fmt.Errorf("failed to finish %s stream: %w", c.Name(), err)
	}
	return len(nodes), nil
}

// ExportFile writes a snapshot of st to path, replacing it atomically.
func ExportFile(path string, st *store.Store) (int, error) {
	var count int
	err := atomicfile.Write(path, 0, func(w io.Writer) error {
		n, err := Export(w, st, CompressorFor(path))
		count = n
		return err
	})
	return count, err
}

// Read decodes a snapshot stream.
func Read(r io.Reader, c Compressor) (*Header, []*model.Node, error) {
	rc, err := c.Decompress(r)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to open %s stream: %w", c.Name(), err)
	}
	defer rc.Close()

	scanner := bufio.NewScanner(rc)
	scanner.Buffer(make([]byte, 0, 64*1024), maxLineSize)

	var header *Header
	var nodes []*model.Node
	line := 0
	for scanner.Scan() {
		line++
		data := scanner.Bytes()
		if len(data) == 0 {
			continue
		}
		if header == nil {
			header = &Header{}
			if err := json.Unmarshal(data, header); err != nil || header.Format != Format {
				return nil, nil, fmt.Errorf("%w: missing header", ErrInvalidSnapshot)
			}
			if header.SchemaVersion > store.SchemaVersion {
				return nil, nil, fmt.Errorf("%w: schema version %d is newer than %d",
					ErrInvalidSnapshot, header.SchemaVersion, store.SchemaVersion)
			}
			continue
		}
		var n model.Node
		if err := json.Unmarshal(data, &n); err != nil {
			return nil, nil, fmt.Errorf("%w: line %d: %v", ErrInvalidSnapshot, line, err)
		}
		nodes = append(nodes, &n)
	}
	if err := scanner.Err(); err != nil {
		return nil, nil, err
	}
	if header == nil {
		return nil, nil, fmt.Errorf("%w: empty stream", ErrInvalidSnapshot)
	}
	return header, nodes, nil
}

// Import restores the nodes of a snapshot into st. With replace set, the
// webspaces listed in the snapshot are cleared first.
// Returns the number of nodes restored.
func Import(r io.Reader, st *store.Store, c Compressor, replace bool) (int, error) {
	header, nodes, err := Read(r, c)
	if err != nil {
		return 0, err
	}
	if replace {
		webspaces := slices.Clone(header.Webspaces)
		for _, n := range nodes {
			if !slices.Contains(webspaces, n.Webspace) {
				webspaces = append(webspaces, n.Webspace)
			}
		}
		for _, ws := range webspaces {
			if _, err := st.DeleteWebspace(ws); err != nil {
				return 0, fmt.Errorf("failed to clear webspace %s: %w", ws, err)
			}
		}
	}
	for _, n := range nodes {
		if err := st.SaveNode(n); err != nil {
			return 0, err
		}
	}
	logger.Info("restored %d nodes from snapshot of %s", len(nodes), header.Created.Format(time.RFC3339))
	return len(nodes), nil
}

// ImportFile restores the snapshot at path into st.
func ImportFile(path string, st *store.Store, replace bool) (int, error) {
	f, err := os.Open(path)
	if err != nil {
		return 0, fmt.Errorf("failed to read snapshot %s: %w", path, err)
	}
	defer f.Close()
	return Import(f, st, CompressorFor(path), replace)
}
