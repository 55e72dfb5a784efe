// Copyright (c) 2025, NVIDIA CORPORATION.  All rights reserved.
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package store

import (
	"encoding/binary"
	"encoding/json"
	"fmt"
	"hash/crc32"
	"log/slog"
	"os"
	"time"

	rkerrors "github.com/NVIDIA/recordkeeper/pkg/errors"
	"github.com/NVIDIA/recordkeeper/pkg/record"
)

const (
	opPut    = "put"
	opDelete = "delete"

	frameLenBytes      = 4
	frameChecksumBytes = 4
	frameHeaderBytes   = frameLenBytes + frameChecksumBytes

	// maxFrameBytes bounds a single mutation so a corrupt length cannot
	// trigger a huge allocation during replay.
	maxFrameBytes = 64 << 20
)

var castagnoli = crc32.MakeTable(crc32.Castagnoli)

// mutation is one journaled state change.
type mutation struct {
	Op     string        `json:"op"`
	Key    string        `json:"key"`
	Record record.Record `json:"record,omitempty"`
	Seq    uint64        `json:"seq"`
	Time   time.Time     `json:"time"`
}

// wireMutation defers record decoding so numbers keep their integer type.
type wireMutation struct {
	Op     string          `json:"op"`
	Key    string          `json:"key"`
	Record json.RawMessage `json:"record,omitempty"`
	Seq    uint64          `json:"seq"`
	Time   time.Time       `json:"time"`
}

// journalFile is the subset of *os.File the journal writes through.
type journalFile interface {
	Write(p []byte) (int, error)
	Sync() error
	Truncate(size int64) error
	Close() error
}

// Journal is a Memory store backed by an append-only journal file.
type Journal struct {
	*Memory
	path string
	file journalFile
	// size is the length of the durable, intact prefix of the file.
	size int64
	// failed is set once the file may hold a frame that could not be
	// rolled back. Every later write is refused.
	failed error
}

// OpenJournal replays the journal at path, creating it when missing, and
// returns a store positioned to append. A torn or corrupt tail is truncated.
func OpenJournal(path string) (*Journal, error) {
	mem := NewMemory()

	data, err := os.ReadFile(path)
	if err != nil && !os.IsNotExist(err) {
		return nil, rkerrors.Wrap(rkerrors.ErrCodeInternal, "failed to read journal", err)
	}

	valid, replayed := replay(data, mem)
	if valid < int64(len(data)) {
		slog.Warn("truncating journal after corrupt or incomplete frame",
			"path", path, "offset", valid, "discardedBytes", int64(len(data))-valid)
		if err := os.Truncate(path, valid); err != nil {
			return nil, rkerrors.Wrap(rkerrors.ErrCodeInternal, "failed to truncate journal", err)
		}
	}

	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o600)
	if err != nil {
		return nil, rkerrors.Wrap(rkerrors.ErrCodeInternal, "failed to open journal", err)
	}

	slog.Debug("journal opened", "path", path, "mutations", replayed, "records", len(mem.entries))

	j := &Journal{Memory: mem, path: path, file: f, size: valid}
	mem.commit = j.append
	return j, nil
}

// Path returns the journal file location.
func (j *Journal) Path() string {
	return j.path
}

// Close closes the journal file.
func (j *Journal) Close() error {
	j.mu.Lock()
	defer j.mu.Unlock()
	if j.file == nil {
		return nil
	}
	err := j.file.Close()
	j.file = nil
	return err
}

// append writes and fsyncs one frame. It runs with the Memory lock held.
// A frame that fails to write or sync is cut off again so it can neither
// hide later frames from replay nor resurface after a restart.
func (j *Journal) append(m mutation) error {
	if j.file == nil {
		return rkerrors.New(rkerrors.ErrCodeUnavailable, "journal is closed")
	}
	if j.failed != nil {
		return rkerrors.Wrap(rkerrors.ErrCodeUnavailable, "journal is unusable after a failed write", j.failed)
	}
	frame, err := encodeFrame(m)
	if err != nil {
		return rkerrors.Wrap(rkerrors.ErrCodeInternal, "failed to encode mutation", err)
	}
	if _, err := j.file.Write(frame); err != nil {
		return j.rollback(rkerrors.Wrap(rkerrors.ErrCodeInternal, "failed to append to journal", err))
	}
	if err := j.file.Sync(); err != nil {
		return j.rollback(rkerrors.Wrap(rkerrors.ErrCodeInternal, "failed to sync journal", err))
	}
	j.size += int64(len(frame))
	return nil
}

// rollback truncates the file back to its last intact frame. When that is
// not possible the journal is marked failed.
func (j *Journal) rollback(cause error) error {
	err := j.file.Truncate(j.size)
	if err == nil {
		err = j.file.Sync()
	}
	if err != nil {
		j.failed = err
		slog.Error("journal rollback failed, refusing further writes",
			"path", j.path, "offset", j.size, "error", err, "cause", cause)
		return rkerrors.Wrap(rkerrors.ErrCodeUnavailable, "journal is unusable after a failed write", err)
	}
	slog.Warn("rolled back failed journal write", "path", j.path, "offset", j.size, "error", cause)
	return cause
}

func encodeFrame(m mutation) ([]byte, error) {
	payload, err := json.Marshal(m)
	if err != nil {
		return nil, err
	}
	frame := make([]byte, frameHeaderBytes+len(payload))
	binary.BigEndian.PutUint32(frame[0:frameLenBytes], uint32(len(payload)))
	binary.BigEndian.PutUint32(frame[frameLenBytes:frameHeaderBytes], crc32.Checksum(payload, castagnoli))
	copy(frame[frameHeaderBytes:], payload)
	return frame, nil
}

// replay applies every intact frame in data to mem and returns the offset
// just past the last intact frame.
func replay(data []byte, mem *Memory) (int64, int) {
	var offset int64
	count := 0
	size := int64(len(data))

	for offset < size {
		if offset+frameHeaderBytes > size {
			break
		}
		n := int64(binary.BigEndian.Uint32(data[offset : offset+frameLenBytes]))
		sum := binary.BigEndian.Uint32(data[offset+frameLenBytes : offset+frameHeaderBytes])
		if n > maxFrameBytes || offset+frameHeaderBytes+n > size {
			break
		}
		payload := data[offset+frameHeaderBytes : offset+frameHeaderBytes+n]
		if crc32.Checksum(payload, castagnoli) != sum {
			break
		}
		m, err := decodeMutation(payload)
		if err != nil {
			slog.Warn("undecodable journal frame", "offset", offset, "error", err)
			break
		}
		mem.apply(m)
		offset += frameHeaderBytes + n
		count++
	}
	return offset, count
}

func decodeMutation(payload []byte) (mutation, error) {
	var w wireMutation
	if err := json.Unmarshal(payload, &w); err != nil {
		return mutation{}, err
	}
	m := mutation{Op: w.Op, Key: w.Key, Seq: w.Seq, Time: w.Time}
	switch w.Op {
	case opPut:
		if len(w.Record) == 0 {
			m.Record = record.Record{}
			break
		}
		rec, err := record.DecodeBytes(w.Record)
		if err != nil {
			return mutation{}, fmt.Errorf("record %q: %w", w.Key, err)
		}
		m.Record = rec
	case opDelete:
	default:
		return mutation{}, fmt.Errorf("unknown op %q", w.Op)
	}
	return m, nil
}
