package gateway

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/go-gl/mathgl/mgl64"
	"github.com/gorilla/websocket"
	"google.golang.org/protobuf/encoding/protowire"

	"github.com/EgorLis/afkbot/internal/game"
)

// request is a decoded client frame as seen by the fake gateway.
type request struct {
	seq  uint32
	kind protowire.Number
	body []byte
}

func decodeRequest(data []byte) (request, error) {
	var r request
	err := rangeFields(data, func(f field) error {
		if f.num == reqSeq {
			r.seq = uint32(f.u)
			return nil
		}
		r.kind = f.num
		r.body = f.b
		return nil
	})
	return r, err
}

func stringFields(t *testing.T, body []byte) map[protowire.Number]string {
	t.Helper()
	out := map[protowire.Number]string{}
	err := rangeFields(body, func(f field) error {
		if f.typ == protowire.BytesType {
			out[f.num] = string(f.b)
		}
		return nil
	})
	if err != nil {
		t.Fatalf("decode strings: %v", err)
	}
	return out
}

func appendVec(b []byte, num protowire.Number, v mgl64.Vec3) []byte {
	var vb []byte
	for i := range v {
		vb = appendDouble(vb, protowire.Number(i+1), v[i])
	}
	return appendMessage(b, num, vb)
}

func entityFrame(num protowire.Number, e game.Entity) []byte {
	var b []byte
	b = appendVec(b, 1, e.Position)
	b = appendDouble(b, 2, e.Yaw)
	b = appendDouble(b, 3, e.Pitch)
	return appendMessage(nil, num, b)
}

func chatFrame(username, message string) []byte {
	b := appendString(nil, 1, username)
	b = appendString(b, 2, message)
	return appendMessage(nil, evChat, b)
}

func textFrame(num protowire.Number, text string) []byte {
	return appendMessage(nil, num, appendString(nil, 1, text))
}

// fakeGateway accepts a single websocket client, records its requests and
// lets the test push event frames.
type fakeGateway struct {
	t      *testing.T
	Server *httptest.Server

	connCh chan *websocket.Conn
	reqCh  chan request
}

func newFakeGateway(t *testing.T) *fakeGateway {
	t.Helper()
	g := &fakeGateway{
		t:      t,
		connCh: make(chan *websocket.Conn, 1),
		reqCh:  make(chan request, 64),
	}
	upgrader := websocket.Upgrader{}
	g.Server = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			return
		}
		g.connCh <- conn
		for {
			_, data, err := conn.ReadMessage()
			if err != nil {
				return
			}
			req, err := decodeRequest(data)
			if err != nil {
				t.Errorf("decode request: %v", err)
				return
			}
			g.reqCh <- req
		}
	}))
	t.Cleanup(g.Server.Close)
	return g
}

func (g *fakeGateway) URL() string {
	return "ws" + strings.TrimPrefix(g.Server.URL, "http")
}

func (g *fakeGateway) accept() *websocket.Conn {
	g.t.Helper()
	select {
	case conn := <-g.connCh:
		g.t.Cleanup(func() { _ = conn.Close() })
		return conn
	case <-time.After(2 * time.Second):
		g.t.Fatal("client did not connect")
		return nil
	}
}

func (g *fakeGateway) nextRequest() request {
	g.t.Helper()
	select {
	case r := <-g.reqCh:
		return r
	case <-time.After(2 * time.Second):
		g.t.Fatal("no request received")
		return request{}
	}
}

func (g *fakeGateway) push(conn *websocket.Conn, frame []byte) {
	g.t.Helper()
	if err := conn.WriteMessage(websocket.BinaryMessage, frame); err != nil {
		g.t.Fatalf("push frame: %v", err)
	}
}
