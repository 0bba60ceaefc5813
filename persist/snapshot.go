package persist

import (
	"bytes"
	"fmt"
	"os"

	"github.com/gofrs/flock"
	"github.com/marcinbor85/gohex"
	"github.com/sigurn/crc16"
	"gopkg.in/yaml.v2"

	"github.com/gcvm-edu/gcvm/heap"
)

// Snapshot is a structured serialization of a heap sufficient for the
// round-trip equality checks spec.md §6 describes the integration test
// harness needing: roots, objects, free list, memory, and alignment.
type Snapshot struct {
	Alignment int               `yaml:"alignment"`
	Size      int               `yaml:"size"`
	Roots     []int             `yaml:"roots"`
	Objects   []SnapshotObject  `yaml:"objects"`
	FreeList  []heap.FreeRun    `yaml:"free_list"`
	Memory    []heap.MemCell    `yaml:"memory"`
}

// SnapshotObject is one entry of Snapshot.Objects.
type SnapshotObject struct {
	Base   int                `yaml:"base"`
	Marked bool               `yaml:"marked,omitempty"`
	Fields []SnapshotField    `yaml:"fields"`
}

// SnapshotField mirrors heap.Field for serialization. A SnapshotObject with
// no marked key loads as unmarked; forwarding pointers are not serialized
// at all, so a restored object's Forward is always nil.
type SnapshotField struct {
	Kind  string `yaml:"kind"`
	Value int    `yaml:"value,omitempty"`
	Ptr   int    `yaml:"ptr,omitempty"`
}

// TakeSnapshot captures the current state of h.
func TakeSnapshot(h *heap.Heap) Snapshot {
	snap := Snapshot{
		Alignment: h.Alignment,
		Size:      h.Size,
		Roots:     h.Roots(),
		FreeList:  append([]heap.FreeRun{}, h.FreeList().Iter()...),
		Memory:    h.MemoryCells(),
	}
	for _, base := range h.Objects() {
		obj, _ := h.ObjectAt(base)
		so := SnapshotObject{Base: base, Marked: obj.Header.Marked}
		for _, f := range obj.Fields {
			switch f.Kind {
			case heap.Scalar:
				so.Fields = append(so.Fields, SnapshotField{Kind: "scalar", Value: f.Value})
			case heap.Ref:
				so.Fields = append(so.Fields, SnapshotField{Kind: "ref", Ptr: f.Ptr})
			}
		}
		snap.Objects = append(snap.Objects, so)
	}
	return snap
}

// Restore rebuilds a heap from a snapshot, for round-trip equality tests.
func (s Snapshot) Restore() *heap.Heap {
	h := heap.New(s.Size, s.Alignment)
	for _, so := range s.Objects {
		fields := make([]heap.Field, len(so.Fields))
		for i, sf := range so.Fields {
			if sf.Kind == "ref" {
				fields[i] = heap.NewRefField(sf.Ptr)
			} else {
				fields[i] = heap.NewScalarField(sf.Value)
			}
		}
		obj := &heap.Object{Fields: fields}
		obj.Header.Marked = so.Marked
		h.PlaceObject(so.Base, obj, false)
	}
	h.FreeList().Reset(s.FreeList)
	for _, r := range s.Roots {
		h.AddRoot(r)
	}
	return h
}

var crc16Table = crc16.MakeTable(crc16.CRC16_CCITT_FALSE)

// checksum computes the CRC-16/CCITT-FALSE checksum of a snapshot's
// marshaled body, so a truncated or hand-edited fixture is caught before a
// round-trip-equality check even attempts to parse it.
func checksum(body []byte) uint16 {
	return crc16.Checksum(body, crc16Table)
}

// snapshotFile is the on-disk envelope: the marshaled Snapshot plus a
// checksum of its bytes.
type snapshotFile struct {
	Checksum uint16 `yaml:"checksum"`
	Body     string `yaml:"body"`
}

// SaveSnapshotFile writes snap to path as a checksummed YAML envelope,
// under an exclusive file lock.
func SaveSnapshotFile(path string, snap Snapshot) error {
	fl := flock.New(path + ".lock")
	if err := fl.Lock(); err != nil {
		return fmt.Errorf("persist: locking %s: %w", path, err)
	}
	defer fl.Unlock()

	body, err := yaml.Marshal(snap)
	if err != nil {
		return fmt.Errorf("persist: marshaling snapshot: %w", err)
	}
	envelope, err := yaml.Marshal(snapshotFile{Checksum: checksum(body), Body: string(body)})
	if err != nil {
		return fmt.Errorf("persist: marshaling envelope: %w", err)
	}
	if err := os.WriteFile(path, envelope, 0o644); err != nil {
		return fmt.Errorf("persist: writing %s: %w", path, err)
	}
	return nil
}

// LoadSnapshotFile reads a snapshot written by SaveSnapshotFile, verifying
// its checksum before parsing the body.
func LoadSnapshotFile(path string) (Snapshot, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Snapshot{}, fmt.Errorf("persist: reading %s: %w", path, err)
	}
	var envelope snapshotFile
	if err := yaml.Unmarshal(data, &envelope); err != nil {
		return Snapshot{}, fmt.Errorf("persist: parsing %s: %w", path, err)
	}
	if got := checksum([]byte(envelope.Body)); got != envelope.Checksum {
		return Snapshot{}, fmt.Errorf("persist: checksum mismatch in %s: want %04x, got %04x", path, envelope.Checksum, got)
	}
	var snap Snapshot
	if err := yaml.Unmarshal([]byte(envelope.Body), &snap); err != nil {
		return Snapshot{}, fmt.Errorf("persist: parsing snapshot body: %w", err)
	}
	return snap, nil
}

// SaveSnapshotHex encodes a snapshot's memory-cell array as an Intel HEX
// record block, the same record-oriented encoding the teacher
// (marcinbor85/gohex, vendored for tinygo's firmware flashing) uses for
// flashable images, repurposed here as an alternate heap-byte dump format.
func SaveSnapshotHex(path string, snap Snapshot) error {
	mem := gohex.NewMemory()
	raw := make([]byte, len(snap.Memory))
	for i, cell := range snap.Memory {
		raw[i] = byte(cell)
	}
	if err := mem.AddBinary(0, raw); err != nil {
		return fmt.Errorf("persist: building hex image: %w", err)
	}
	var buf bytes.Buffer
	if err := mem.DumpIntelHex(&buf, 16); err != nil {
		return fmt.Errorf("persist: encoding intel hex: %w", err)
	}
	if err := os.WriteFile(path, buf.Bytes(), 0o644); err != nil {
		return fmt.Errorf("persist: writing %s: %w", path, err)
	}
	return nil
}
