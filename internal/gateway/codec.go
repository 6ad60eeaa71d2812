package gateway

import (
	"fmt"
	"math"

	"github.com/go-gl/mathgl/mgl64"
	"google.golang.org/protobuf/encoding/protowire"

	"github.com/EgorLis/afkbot/internal/game"
)

// Request (client -> gateway) field numbers.
const (
	reqSeq     protowire.Number = 1
	reqHello   protowire.Number = 2
	reqChat    protowire.Number = 3
	reqControl protowire.Number = 4
	reqLook    protowire.Number = 5
	reqGoal    protowire.Number = 6
	reqQuit    protowire.Number = 7
)

// Event (gateway -> client) field numbers.
const (
	evSpawn       protowire.Number = 1
	evChat        protowire.Number = 2
	evGoalReached protowire.Number = 3
	evDeath       protowire.Number = 4
	evKicked      protowire.Number = 5
	evError       protowire.Number = 6
	evEnd         protowire.Number = 7
	evMove        protowire.Number = 8
)

type eventKind int

const (
	eventUnknown eventKind = iota
	eventSpawn
	eventChat
	eventGoalReached
	eventDeath
	eventKicked
	eventError
	eventEnd
	eventMove
)

// event is one decoded gateway frame. Only the fields belonging to kind are set.
type event struct {
	kind   eventKind
	entity game.Entity
	chat   game.ChatMessage
	text   string
}

type hello struct {
	Username string
	Password string
	Auth     string
	Host     string
	Port     int
	Version  string
}

// ========================= encoding =========================

func appendString(b []byte, num protowire.Number, s string) []byte {
	if s == "" {
		return b
	}
	b = protowire.AppendTag(b, num, protowire.BytesType)
	return protowire.AppendString(b, s)
}

func appendBool(b []byte, num protowire.Number, v bool) []byte {
	if !v {
		return b
	}
	b = protowire.AppendTag(b, num, protowire.VarintType)
	return protowire.AppendVarint(b, protowire.EncodeBool(v))
}

func appendVarint(b []byte, num protowire.Number, v uint64) []byte {
	b = protowire.AppendTag(b, num, protowire.VarintType)
	return protowire.AppendVarint(b, v)
}

func appendSint(b []byte, num protowire.Number, v int64) []byte {
	return appendVarint(b, num, protowire.EncodeZigZag(v))
}

func appendDouble(b []byte, num protowire.Number, v float64) []byte {
	b = protowire.AppendTag(b, num, protowire.Fixed64Type)
	return protowire.AppendFixed64(b, math.Float64bits(v))
}

func appendMessage(b []byte, num protowire.Number, msg []byte) []byte {
	b = protowire.AppendTag(b, num, protowire.BytesType)
	return protowire.AppendBytes(b, msg)
}

func encodeRequest(seq uint32, num protowire.Number, body []byte) []byte {
	b := appendVarint(nil, reqSeq, uint64(seq))
	return appendMessage(b, num, body)
}

func helloBody(h hello) []byte {
	var b []byte
	b = appendString(b, 1, h.Username)
	b = appendString(b, 2, h.Password)
	b = appendString(b, 3, h.Auth)
	b = appendString(b, 4, h.Host)
	if h.Port > 0 {
		b = appendVarint(b, 5, uint64(h.Port))
	}
	return appendString(b, 6, h.Version)
}

func chatBody(text string) []byte {
	return appendString(nil, 1, text)
}

func controlBody(c game.Control, state bool) []byte {
	b := appendString(nil, 1, string(c))
	return appendBool(b, 2, state)
}

func lookBody(yaw, pitch float64, force bool) []byte {
	b := appendDouble(nil, 1, yaw)
	b = appendDouble(b, 2, pitch)
	return appendBool(b, 3, force)
}

func goalBody(x, y, z int) []byte {
	b := appendSint(nil, 1, int64(x))
	b = appendSint(b, 2, int64(y))
	return appendSint(b, 3, int64(z))
}

// ========================= decoding =========================

// field is one decoded wire field. For varint and fixed types u holds the raw
// value, for length-delimited fields b holds the payload.
type field struct {
	num protowire.Number
	typ protowire.Type
	u   uint64
	b   []byte
}

func (f field) double() float64 {
	if f.typ != protowire.Fixed64Type {
		return 0
	}
	return math.Float64frombits(f.u)
}

func rangeFields(b []byte, fn func(f field) error) error {
	for len(b) > 0 {
		num, typ, n := protowire.ConsumeTag(b)
		if n < 0 {
			return protowire.ParseError(n)
		}
		b = b[n:]

		f := field{num: num, typ: typ}
		switch typ {
		case protowire.VarintType:
			f.u, n = protowire.ConsumeVarint(b)
		case protowire.Fixed64Type:
			f.u, n = protowire.ConsumeFixed64(b)
		case protowire.Fixed32Type:
			var v uint32
			v, n = protowire.ConsumeFixed32(b)
			f.u = uint64(v)
		case protowire.BytesType:
			f.b, n = protowire.ConsumeBytes(b)
		default:
			n = protowire.ConsumeFieldValue(num, typ, b)
		}
		if n < 0 {
			return protowire.ParseError(n)
		}
		b = b[n:]

		if err := fn(f); err != nil {
			return err
		}
	}
	return nil
}

func decodeVec(b []byte) (mgl64.Vec3, error) {
	var v mgl64.Vec3
	err := rangeFields(b, func(f field) error {
		if f.num >= 1 && f.num <= 3 {
			v[f.num-1] = f.double()
		}
		return nil
	})
	return v, err
}

func decodeEntity(b []byte) (game.Entity, error) {
	var e game.Entity
	err := rangeFields(b, func(f field) error {
		switch f.num {
		case 1:
			pos, err := decodeVec(f.b)
			if err != nil {
				return fmt.Errorf("position: %w", err)
			}
			e.Position = pos
		case 2:
			e.Yaw = f.double()
		case 3:
			e.Pitch = f.double()
		}
		return nil
	})
	return e, err
}

func decodeChat(b []byte) (game.ChatMessage, error) {
	var m game.ChatMessage
	err := rangeFields(b, func(f field) error {
		switch f.num {
		case 1:
			m.Username = string(f.b)
		case 2:
			m.Message = string(f.b)
		}
		return nil
	})
	return m, err
}

func decodeText(b []byte) (string, error) {
	var s string
	err := rangeFields(b, func(f field) error {
		if f.num == 1 {
			s = string(f.b)
		}
		return nil
	})
	return s, err
}

// decodeEvent decodes a gateway frame. Unknown fields are skipped; a frame
// without a known event decodes to eventUnknown.
func decodeEvent(data []byte) (event, error) {
	var ev event
	err := rangeFields(data, func(f field) error {
		if f.typ != protowire.BytesType {
			return nil
		}
		var err error
		switch f.num {
		case evSpawn:
			ev.kind = eventSpawn
			ev.entity, err = decodeEntity(f.b)
		case evMove:
			ev.kind = eventMove
			ev.entity, err = decodeEntity(f.b)
		case evDeath:
			ev.kind = eventDeath
			ev.entity, err = decodeEntity(f.b)
		case evGoalReached:
			ev.kind = eventGoalReached
			ev.entity.Position, err = decodeVec(f.b)
		case evChat:
			ev.kind = eventChat
			ev.chat, err = decodeChat(f.b)
		case evKicked:
			ev.kind = eventKicked
			ev.text, err = decodeText(f.b)
		case evError:
			ev.kind = eventError
			ev.text, err = decodeText(f.b)
		case evEnd:
			ev.kind = eventEnd
			ev.text, err = decodeText(f.b)
		}
		if err != nil {
			return fmt.Errorf("event field %d: %w", f.num, err)
		}
		return nil
	})
	return ev, err
}
