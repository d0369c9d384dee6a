// Package metadata manages the hierarchical, file-backed directory tree: a
// metadata.json listing per directory mapping names to File or Directory
// entries, and a per-file <cid>.json document holding the ordered block map
// that reassembles its content.
package metadata

import (
	"bytes"
	"encoding/json"
	"fmt"
	"sort"
	"strconv"
	"time"

	"github.com/canmi21/rfs/pkg/digest"
)

// BlockInfo identifies one block within a file's content, by its fingerprint
// and the collision index blockstore assigned it on write.
type BlockInfo struct {
	XXH3  digest.Fingerprint `json:"xxh3"`
	Index uint32             `json:"index"`
}

// FileMetadata is the full per-file document stored at "<cid>.json",
// keyed by the file's own content ID. Blocks is keyed by sequence number
// within the file and is always serialized in ascending numeric order, the
// Go equivalent of an ordered map.
type FileMetadata struct {
	Filename   string
	Size       uint64
	CreatedAt  time.Time
	ModifiedAt time.Time
	Blocks     map[uint64]BlockInfo
}

type fileMetadataHeader struct {
	Filename   string    `json:"filename"`
	Size       uint64    `json:"size"`
	CreatedAt  time.Time `json:"createdAt"`
	ModifiedAt time.Time `json:"modifiedAt"`
}

// MarshalJSON emits blocks as a JSON object with decimal-string keys in
// ascending numeric order, since encoding/json's default map ordering sorts
// keys lexicographically and would interleave single- and multi-digit
// sequence numbers.
func (m FileMetadata) MarshalJSON() ([]byte, error) {
	header, err := json.Marshal(fileMetadataHeader{
		Filename:   m.Filename,
		Size:       m.Size,
		CreatedAt:  m.CreatedAt,
		ModifiedAt: m.ModifiedAt,
	})
	if err != nil {
		return nil, err
	}

	keys := make([]uint64, 0, len(m.Blocks))
	for k := range m.Blocks {
		keys = append(keys, k)
	}
	sort.Slice(keys, func(i, j int) bool { return keys[i] < keys[j] })

	var blocks bytes.Buffer
	blocks.WriteByte('{')
	for i, k := range keys {
		if i > 0 {
			blocks.WriteByte(',')
		}
		keyJSON, _ := json.Marshal(strconv.FormatUint(k, 10))
		blocks.Write(keyJSON)
		blocks.WriteByte(':')
		valueJSON, err := json.Marshal(m.Blocks[k])
		if err != nil {
			return nil, err
		}
		blocks.Write(valueJSON)
	}
	blocks.WriteByte('}')

	out := make([]byte, 0, len(header)+blocks.Len()+16)
	out = append(out, header[:len(header)-1]...)
	out = append(out, []byte(`,"blocks":`)...)
	out = append(out, blocks.Bytes()...)
	out = append(out, '}')
	return out, nil
}

func (m *FileMetadata) UnmarshalJSON(data []byte) error {
	var aux struct {
		fileMetadataHeader
		Blocks map[string]BlockInfo `json:"blocks"`
	}
	if err := json.Unmarshal(data, &aux); err != nil {
		return err
	}

	m.Filename = aux.Filename
	m.Size = aux.Size
	m.CreatedAt = aux.CreatedAt
	m.ModifiedAt = aux.ModifiedAt

	m.Blocks = make(map[uint64]BlockInfo, len(aux.Blocks))
	for k, v := range aux.Blocks {
		n, err := strconv.ParseUint(k, 10, 64)
		if err != nil {
			return fmt.Errorf("metadata: invalid block sequence key %q: %w", k, err)
		}
		m.Blocks[n] = v
	}
	return nil
}

// FileEntry is a file's entry within its containing directory's listing.
type FileEntry struct {
	CID        string    `json:"cid"`
	Size       uint64    `json:"size"`
	CreatedAt  time.Time `json:"createdAt"`
	ModifiedAt time.Time `json:"modifiedAt"`
}

// DirectoryInfo is a subdirectory's entry within its parent's listing.
type DirectoryInfo struct {
	CID        string    `json:"cid"`
	Size       uint64    `json:"size"`
	CreatedAt  time.Time `json:"createdAt"`
	ModifiedAt time.Time `json:"modifiedAt"`
}

// EntryType discriminates the two kinds of DirectoryListing entry.
type EntryType string

const (
	EntryTypeFile      EntryType = "File"
	EntryTypeDirectory EntryType = "Directory"
)

// Entry is a tagged union over FileEntry and DirectoryInfo, matching the
// {"type": "File"|"Directory", ...} shape of a listing's JSON entries.
type Entry struct {
	Type      EntryType
	File      *FileEntry
	Directory *DirectoryInfo
}

// NewFileEntry wraps f as a File-typed Entry.
func NewFileEntry(f FileEntry) Entry {
	return Entry{Type: EntryTypeFile, File: &f}
}

// NewDirectoryEntry wraps d as a Directory-typed Entry.
func NewDirectoryEntry(d DirectoryInfo) Entry {
	return Entry{Type: EntryTypeDirectory, Directory: &d}
}

type taggedFileEntry struct {
	Type EntryType `json:"type"`
	FileEntry
}

type taggedDirectoryInfo struct {
	Type EntryType `json:"type"`
	DirectoryInfo
}

func (e Entry) MarshalJSON() ([]byte, error) {
	switch e.Type {
	case EntryTypeFile:
		if e.File == nil {
			return nil, fmt.Errorf("metadata: File entry missing FileEntry payload")
		}
		return json.Marshal(taggedFileEntry{Type: EntryTypeFile, FileEntry: *e.File})
	case EntryTypeDirectory:
		if e.Directory == nil {
			return nil, fmt.Errorf("metadata: Directory entry missing DirectoryInfo payload")
		}
		return json.Marshal(taggedDirectoryInfo{Type: EntryTypeDirectory, DirectoryInfo: *e.Directory})
	default:
		return nil, fmt.Errorf("metadata: entry has unset type")
	}
}

func (e *Entry) UnmarshalJSON(data []byte) error {
	var discriminator struct {
		Type EntryType `json:"type"`
	}
	if err := json.Unmarshal(data, &discriminator); err != nil {
		return err
	}

	switch discriminator.Type {
	case EntryTypeFile:
		var tagged taggedFileEntry
		if err := json.Unmarshal(data, &tagged); err != nil {
			return err
		}
		e.Type = EntryTypeFile
		e.File = &tagged.FileEntry
	case EntryTypeDirectory:
		var tagged taggedDirectoryInfo
		if err := json.Unmarshal(data, &tagged); err != nil {
			return err
		}
		e.Type = EntryTypeDirectory
		e.Directory = &tagged.DirectoryInfo
	default:
		return fmt.Errorf("metadata: unknown entry type %q", discriminator.Type)
	}
	return nil
}

// DirectoryListing is the content of one directory's metadata.json,
// mapping entry names to their File or Directory entry.
type DirectoryListing map[string]Entry
