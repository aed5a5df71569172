package wire

import (
	"github.com/gogo/protobuf/proto"

	"github.com/valstan/setka/internal/core"
)

// DigestSnapshot is the persisted render snapshot attached to a scheduled
// Digest: the post ordering and rendered title/footer, frozen at schedule
// time so a later render never re-derives from posts that may since have
// changed status.
type DigestSnapshot struct {
	DigestID        int64
	RegionID        int64
	Topic           string
	PostIDs         []int64
	ScheduledAtUnix int64
	TemplateTitle   string
	TemplateFooter  string
	Cancelled       bool
	CreatedAtUnix   int64
}

func (m *DigestSnapshot) Reset()         { *m = DigestSnapshot{} }
func (m *DigestSnapshot) String() string { return proto.CompactTextString(m) }
func (*DigestSnapshot) ProtoMessage()    {}

// ToDigestSnapshot flattens a core.Digest into its wire form.
func ToDigestSnapshot(d core.Digest) DigestSnapshot {
	return DigestSnapshot{
		DigestID:        d.ID,
		RegionID:        d.RegionID,
		Topic:           d.Topic,
		PostIDs:         append([]int64(nil), d.PostIDs...),
		ScheduledAtUnix: unixOf(&d.ScheduledAt),
		TemplateTitle:   d.TemplateTitle,
		TemplateFooter:  d.TemplateFooter,
		Cancelled:       d.Cancelled,
		CreatedAtUnix:   unixOf(&d.CreatedAt),
	}
}

// Digest reconstructs a core.Digest from its wire form.
func (m DigestSnapshot) Digest() core.Digest {
	d := core.Digest{
		ID:             m.DigestID,
		RegionID:       m.RegionID,
		Topic:          m.Topic,
		PostIDs:        append([]int64(nil), m.PostIDs...),
		TemplateTitle:  m.TemplateTitle,
		TemplateFooter: m.TemplateFooter,
		Cancelled:      m.Cancelled,
	}
	if at := timeOf(m.ScheduledAtUnix); at != nil {
		d.ScheduledAt = *at
	}
	if at := timeOf(m.CreatedAtUnix); at != nil {
		d.CreatedAt = *at
	}
	return d
}

// Marshal implements proto.Marshaler: field 1 digestID, 2 regionID, 3
// topic (bytes), 4 postIDs (packed repeated varint), 5 scheduledAtUnix, 6
// templateTitle (bytes), 7 templateFooter (bytes), 8 cancelled (varint
// bool), 9 createdAtUnix.
func (m *DigestSnapshot) Marshal() ([]byte, error) {
	var w writer
	w.varintField(1, uint64(m.DigestID))
	w.varintField(2, uint64(m.RegionID))
	w.stringField(3, m.Topic)
	w.packedVarintField(4, m.PostIDs)
	w.varintField(5, uint64(m.ScheduledAtUnix))
	w.stringField(6, m.TemplateTitle)
	w.stringField(7, m.TemplateFooter)
	w.boolField(8, m.Cancelled)
	w.varintField(9, uint64(m.CreatedAtUnix))
	return w.buf, nil
}

// Unmarshal implements proto.Unmarshaler.
func (m *DigestSnapshot) Unmarshal(data []byte) error {
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
			m.DigestID = int64(v)
		case 2:
			v, err := r.getVarint()
			if err != nil {
				return err
			}
			m.RegionID = int64(v)
		case 3:
			b, err := r.getBytes()
			if err != nil {
				return err
			}
			m.Topic = string(b)
		case 4:
			ids, err := r.getPackedVarints()
			if err != nil {
				return err
			}
			m.PostIDs = ids
		case 5:
			v, err := r.getVarint()
			if err != nil {
				return err
			}
			m.ScheduledAtUnix = int64(v)
		case 6:
			b, err := r.getBytes()
			if err != nil {
				return err
			}
			m.TemplateTitle = string(b)
		case 7:
			b, err := r.getBytes()
			if err != nil {
				return err
			}
			m.TemplateFooter = string(b)
		case 8:
			v, err := r.getVarint()
			if err != nil {
				return err
			}
			m.Cancelled = v != 0
		case 9:
			v, err := r.getVarint()
			if err != nil {
				return err
			}
			m.CreatedAtUnix = int64(v)
		default:
			if err := r.skip(wireType); err != nil {
				return err
			}
		}
	}
	return nil
}

// MarshalDigest encodes a digest through the ordinary proto.Marshal entry
// point, which dispatches to DigestSnapshot.Marshal via the Marshaler fast
// path.
func MarshalDigest(d core.Digest) ([]byte, error) {
	snap := ToDigestSnapshot(d)
	return proto.Marshal(&snap)
}

// UnmarshalDigest decodes bytes written by MarshalDigest.
func UnmarshalDigest(data []byte) (core.Digest, error) {
	var snap DigestSnapshot
	if err := proto.Unmarshal(data, &snap); err != nil {
		return core.Digest{}, err
	}
	return snap.Digest(), nil
}
