package feed

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/coder/websocket"
	"github.com/gorilla/mux"

	"github.com/tilemark/mapeditor/internal/document"
	"github.com/tilemark/mapeditor/internal/engine"
	"github.com/tilemark/mapeditor/internal/maps"
)

type staticTokens map[string]string

func (s staticTokens) ValidateToken(token string) (string, error) {
	if uid, ok := s[token]; ok {
		return uid, nil
	}
	return "", errors.New("invalid token")
}

func TestSplit(t *testing.T) {
	recs := make([]document.BuildingRecord, 7)
	for i := range recs {
		recs[i].X = i
	}

	tests := []struct {
		size int
		want []int
	}{
		{3, []int{3, 3, 1}},
		{7, []int{7}},
		{10, []int{7}},
		{0, []int{1, 1, 1, 1, 1, 1, 1}},
	}
	for _, tt := range tests {
		got := Split(recs, tt.size)
		if len(got) != len(tt.want) {
			t.Fatalf("size %d: expected %d batches, got %d", tt.size, len(tt.want), len(got))
		}
		next := 0
		for i, b := range got {
			if len(b) != tt.want[i] {
				t.Errorf("size %d batch %d: expected %d records, got %d", tt.size, i, tt.want[i], len(b))
			}
			for _, r := range b {
				if r.X != next {
					t.Errorf("size %d: records out of order, expected %d got %d", tt.size, next, r.X)
				}
				next++
			}
		}
	}

	if got := Split(nil, 4); len(got) != 0 {
		t.Errorf("Expected no batches for empty input, got %d", len(got))
	}
}

func newTestServer(t *testing.T, batchSize int) *httptest.Server {
	t.Helper()
	svc := maps.NewService(nil, engine.DefaultOptions())
	h := NewHandler(svc, staticTokens{"good": "user_01h2xcejqtf2nbrexx3vqjhp41"}, batchSize, []string{"http://localhost:5173"})

	r := mux.NewRouter()
	r.Handle("/ws/maps/{mapId}", h)
	srv := httptest.NewServer(r)
	t.Cleanup(srv.Close)
	return srv
}

func wsURL(srv *httptest.Server, path string) string {
	return "ws" + strings.TrimPrefix(srv.URL, "http") + path
}

func readMessage(t *testing.T, ctx context.Context, conn *websocket.Conn) Message {
	t.Helper()
	_, data, err := conn.Read(ctx)
	if err != nil {
		t.Fatalf("read: %v", err)
	}
	var msg Message
	if err := json.Unmarshal(data, &msg); err != nil {
		t.Fatalf("decode: %v", err)
	}
	return msg
}

func TestStreamSampleIntoEngine(t *testing.T) {
	srv := newTestServer(t, 3)
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	conn, _, err := websocket.Dial(ctx, wsURL(srv, "/ws/maps/"+document.SampleMapID), nil)
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	defer conn.Close(websocket.StatusNormalClosure, "")

	e, err := engine.NewEngine(engine.DefaultOptions())
	if err != nil {
		t.Fatal(err)
	}

	msg := readMessage(t, ctx, conn)
	if msg.Type != TypeMapMeta {
		t.Fatalf("Expected %s first, got %s", TypeMapMeta, msg.Type)
	}
	var meta MetaPayload
	if err := json.Unmarshal(msg.Payload, &meta); err != nil {
		t.Fatal(err)
	}
	if meta.BatchSize != 3 || meta.Map.ID != document.SampleMapID {
		t.Errorf("Unexpected meta %+v", meta)
	}
	if _, err := e.BeginMap(meta.Map); err != nil {
		t.Fatalf("BeginMap failed: %v", err)
	}

	var batches int
	for {
		msg = readMessage(t, ctx, conn)
		if msg.Type == TypeLoadDone {
			break
		}
		if msg.Type != TypeBuildingsBatch {
			t.Fatalf("Unexpected message %s", msg.Type)
		}
		var b BatchPayload
		if err := json.Unmarshal(msg.Payload, &b); err != nil {
			t.Fatal(err)
		}
		batches++
		if b.Seq != int64(batches) {
			t.Errorf("Expected seq %d, got %d", batches, b.Seq)
		}
		if _, err := e.LoadRecords(b.Seq, b.Records); err != nil {
			t.Fatalf("LoadRecords: %v", err)
		}
	}

	var done DonePayload
	if err := json.Unmarshal(msg.Payload, &done); err != nil {
		t.Fatal(err)
	}
	if done.Total != meta.Total || done.Batches != batches {
		t.Errorf("Expected done {%d %d}, got %+v", meta.Total, batches, done)
	}
	if got := e.Placement().Len(); got != meta.Total {
		t.Fatalf("Expected %d buildings placed, got %d", meta.Total, got)
	}

	// A redelivered batch must not duplicate buildings.
	req, _ := json.Marshal(Message{Type: TypeResend, Payload: json.RawMessage(`{"seq":2}`)})
	if err := conn.Write(ctx, websocket.MessageText, req); err != nil {
		t.Fatal(err)
	}
	msg = readMessage(t, ctx, conn)
	var again BatchPayload
	if err := json.Unmarshal(msg.Payload, &again); err != nil {
		t.Fatal(err)
	}
	if msg.Type != TypeBuildingsBatch || again.Seq != 2 {
		t.Fatalf("Expected batch 2 again, got %s seq %d", msg.Type, again.Seq)
	}
	report, err := e.LoadRecords(again.Seq, again.Records)
	if err != nil {
		t.Fatal(err)
	}
	if !report.Duplicate || e.Placement().Len() != meta.Total {
		t.Errorf("Expected duplicate batch to be ignored, report %+v len %d", report, e.Placement().Len())
	}

	req, _ = json.Marshal(Message{Type: TypeResend, Payload: json.RawMessage(`{"seq":99}`)})
	if err := conn.Write(ctx, websocket.MessageText, req); err != nil {
		t.Fatal(err)
	}
	if msg = readMessage(t, ctx, conn); msg.Type != TypeError {
		t.Errorf("Expected error for unknown seq, got %s", msg.Type)
	}
}

func TestFeedRejects(t *testing.T) {
	srv := newTestServer(t, 8)
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	tests := []struct {
		name string
		path string
		want int
	}{
		{"unknown map", "/ws/maps/map_01h2xcejqtf2nbrexx3vqjhp43", http.StatusNotFound},
		{"bad token", "/ws/maps/map_sample?token=bad", http.StatusUnauthorized},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, resp, err := websocket.Dial(ctx, wsURL(srv, tt.path), nil)
			if err == nil {
				t.Fatal("Expected dial to fail")
			}
			if resp == nil || resp.StatusCode != tt.want {
				t.Errorf("Expected status %d, got %+v", tt.want, resp)
			}
		})
	}
}
