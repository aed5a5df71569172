// Package wire implements the binary Wire Codec of spec §4.M: a compact
// encoding for the two payloads that cross a process or storage boundary
// without re-deriving from live entities — CarouselTaskSnapshot (the
// scan_next_region queue payload) and DigestSnapshot (a scheduled digest's
// persisted render snapshot). Both message types satisfy gogo/protobuf's
// Message, Marshaler, and Unmarshaler interfaces, so callers use the
// ordinary proto.Marshal/proto.Unmarshal entry points even though the
// wire-format encoding itself is hand-written rather than protoc-generated
// (the way the teacher's leaves hand-assemble a protobuf message before
// calling proto.Marshal — see leaves/bus_factor.go's serializeBinary).
package wire

import (
	"time"

	"github.com/gogo/protobuf/proto"

	"github.com/valstan/setka/internal/core"
)

func unixOf(t *time.Time) int64 {
	if t == nil || t.IsZero() {
		return 0
	}
	return t.Unix()
}

func timeOf(unix int64) *time.Time {
	if unix == 0 {
		return nil
	}
	t := time.Unix(unix, 0).UTC()
	return &t
}

// CarouselTaskSnapshot is the wire payload for one scan_next_region queue
// message: enough to resume or report on a task without a live Store
// lookup.
type CarouselTaskSnapshot struct {
	TaskID         int64
	RegionID       int64
	CredentialID   int64
	State          string
	QueuedAtUnix   int64
	StartedAtUnix  int64
	FinishedAtUnix int64
	PostsFetched   int64
	ErrorMessage   string
}

// Reset, String, and ProtoMessage satisfy proto.Message.
func (m *CarouselTaskSnapshot) Reset()         { *m = CarouselTaskSnapshot{} }
func (m *CarouselTaskSnapshot) String() string { return proto.CompactTextString(m) }
func (*CarouselTaskSnapshot) ProtoMessage()    {}

// ToCarouselTaskSnapshot flattens a core.CarouselTask into its wire form.
func ToCarouselTaskSnapshot(t core.CarouselTask) CarouselTaskSnapshot {
	return CarouselTaskSnapshot{
		TaskID:         t.ID,
		RegionID:       t.RegionID,
		CredentialID:   t.CredentialID,
		State:          string(t.State),
		QueuedAtUnix:   unixOf(&t.QueuedAt),
		StartedAtUnix:  unixOf(t.StartedAt),
		FinishedAtUnix: unixOf(t.FinishedAt),
		PostsFetched:   t.PostsFetched,
		ErrorMessage:   t.ErrorMessage,
	}
}

// CarouselTask reconstructs a core.CarouselTask from its wire form.
func (m CarouselTaskSnapshot) CarouselTask() core.CarouselTask {
	t := core.CarouselTask{
		ID:           m.TaskID,
		RegionID:     m.RegionID,
		CredentialID: m.CredentialID,
		State:        core.CarouselTaskState(m.State),
		PostsFetched: m.PostsFetched,
		ErrorMessage: m.ErrorMessage,
	}
	if at := timeOf(m.QueuedAtUnix); at != nil {
		t.QueuedAt = *at
	}
	t.StartedAt = timeOf(m.StartedAtUnix)
	t.FinishedAt = timeOf(m.FinishedAtUnix)
	return t
}

// Marshal implements proto.Marshaler: field 1 taskID, 2 regionID, 3
// credentialID, 4 state (bytes), 5 queuedAtUnix, 6 startedAtUnix, 7
// finishedAtUnix, 8 postsFetched, 9 errorMessage (bytes).
func (m *CarouselTaskSnapshot) Marshal() ([]byte, error) {
	var w writer
	w.varintField(1, uint64(m.TaskID))
	w.varintField(2, uint64(m.RegionID))
	w.varintField(3, uint64(m.CredentialID))
	w.stringField(4, m.State)
	w.varintField(5, uint64(m.QueuedAtUnix))
	w.varintField(6, uint64(m.StartedAtUnix))
	w.varintField(7, uint64(m.FinishedAtUnix))
	w.varintField(8, uint64(m.PostsFetched))
	w.stringField(9, m.ErrorMessage)
	return w.buf, nil
}

// Unmarshal implements proto.Unmarshaler, matching each field by wire tag
// rather than assuming the order Marshal wrote them in.
func (m *CarouselTaskSnapshot) Unmarshal(data []byte) error {
	r := reader{data: data}
	for !r.done() {
		field, wireType, err := r.tag()
		if err != nil {
			return err
		}
		switch field {
		case 1:
			v, err := r.getVarint()
			if err != nil {
				return err
			}
			m.TaskID = int64(v)
		case 2:
			v, err := r.getVarint()
			if err != nil {
				return err
			}
			m.RegionID = int64(v)
		case 3:
			v, err := r.getVarint()
			if err != nil {
				return err
			}
			m.CredentialID = int64(v)
		case 4:
			b, err := r.getBytes()
			if err != nil {
				return err
			}
			m.State = string(b)
		case 5:
			v, err := r.getVarint()
			if err != nil {
				return err
			}
			m.QueuedAtUnix = int64(v)
		case 6:
			v, err := r.getVarint()
			if err != nil {
				return err
			}
			m.StartedAtUnix = int64(v)
		case 7:
			v, err := r.getVarint()
			if err != nil {
				return err
			}
			m.FinishedAtUnix = int64(v)
		case 8:
			v, err := r.getVarint()
			if err != nil {
				return err
			}
			m.PostsFetched = int64(v)
		case 9:
			b, err := r.getBytes()
			if err != nil {
				return err
			}
			m.ErrorMessage = string(b)
		default:
			if err := r.skip(wireType); err != nil {
				return err
			}
		}
	}
	return nil
}

// MarshalCarouselTask encodes a task through the ordinary proto.Marshal
// entry point, which dispatches to CarouselTaskSnapshot.Marshal via the
// Marshaler fast path.
func MarshalCarouselTask(t core.CarouselTask) ([]byte, error) {
	snap := ToCarouselTaskSnapshot(t)
	return proto.Marshal(&snap)
}

// UnmarshalCarouselTask decodes bytes written by MarshalCarouselTask.
func UnmarshalCarouselTask(data []byte) (core.CarouselTask, error) {
	var snap CarouselTaskSnapshot
	if err := proto.Unmarshal(data, &snap); err != nil {
		return core.CarouselTask{}, err
	}
	return snap.CarouselTask(), nil
}
