package collect

import (
	"bufio"
	"bytes"
	"encoding/json"
	"fmt"
	"io"

	"go.uber.org/zap"

	"github.com/samjhill/dream-companion/internal/dream"
)

// ImportJSON stores every dream in r for user. r holds either a JSON array
// of dream objects or one JSON value per line. Values are stored verbatim;
// ones that are not objects are kept and later counted as skipped by the
// analysis.
func ImportJSON(r io.Reader, store Store, user string) (*Result, error) {
	blobs, err := readBlobs(r)
	if err != nil {
		return nil, err
	}

	c := &Collector{store: store, logger: zap.NewNop()}
	res := newResult()
	res.TotalFound = len(blobs)
	for _, b := range blobs {
		c.insert(res, user, "file", "", b)
	}
	return res, nil
}

// ReadRecords decodes the dreams in r without storing them. It returns the
// records and the number of values that were not dream objects.
func ReadRecords(r io.Reader) ([]dream.Record, int, error) {
	blobs, err := readBlobs(r)
	if err != nil {
		return nil, 0, err
	}
	raw := make([][]byte, len(blobs))
	for i, b := range blobs {
		raw[i] = b
	}
	records, skipped := dream.DecodeAll(raw)
	return records, skipped, nil
}

func readBlobs(r io.Reader) ([]json.RawMessage, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("reading import: %w", err)
	}
	data = bytes.TrimSpace(data)
	if len(data) == 0 {
		return nil, nil
	}

	if data[0] == '[' {
		var blobs []json.RawMessage
		if err := json.Unmarshal(data, &blobs); err != nil {
			return nil, fmt.Errorf("parsing import array: %w", err)
		}
		return blobs, nil
	}

	var blobs []json.RawMessage
	sc := bufio.NewScanner(bytes.NewReader(data))
	sc.Buffer(make([]byte, 0, 64*1024), 4<<20)
	for sc.Scan() {
		line := bytes.TrimSpace(sc.Bytes())
		if len(line) == 0 {
			continue
		}
		blobs = append(blobs, json.RawMessage(bytes.Clone(line)))
	}
	if err := sc.Err(); err != nil {
		return nil, fmt.Errorf("reading import lines: %w", err)
	}
	return blobs, nil
}
