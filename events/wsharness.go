package events

import (
	"context"
	"net/http"
	"net/http/httptest"
	"sync"

	"github.com/gorilla/websocket"

	"github.com/yuanjiao014278andrewjones/nexus-sdk-sub001/nexuserrors"
)

// cursorRequest is the harness's request frame: "give me the page after
// this cursor" (nil cursor means "from the start").
type cursorRequest struct {
	Cursor *EventID `json:"cursor"`
}

// TestEventServer fans a fixed, pre-scripted sequence of EventPages out
// over a WebSocket connection, standing in for the remote event log in
// tests that exercise the replayer's transport boundary instead of a
// bare in-memory EventSource.
type TestEventServer struct {
	*httptest.Server

	mu     sync.Mutex
	pages  []EventPage
	cursor int
}

// NewTestEventServer starts a local server that replays pages in order,
// one per received request, regardless of the requested cursor; once
// exhausted it serves an empty page with a nil NextCursor forever.
func NewTestEventServer(pages []EventPage) *TestEventServer {
	s := &TestEventServer{pages: pages}

	upgrader := websocket.Upgrader{
		ReadBufferSize:  4096,
		WriteBufferSize: 4096,
	}

	s.Server = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			return
		}
		defer conn.Close()

		for {
			var req cursorRequest
			if err := conn.ReadJSON(&req); err != nil {
				return
			}

			page := s.nextPage()
			if err := conn.WriteJSON(page); err != nil {
				return
			}
		}
	}))

	return s
}

func (s *TestEventServer) nextPage() EventPage {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.cursor >= len(s.pages) {
		return EventPage{}
	}
	page := s.pages[s.cursor]
	s.cursor++
	return page
}

// WebSocketEventSource is an EventSource backed by a WebSocket connection to a
// TestEventServer (or a compatible real endpoint).
type WebSocketEventSource struct {
	mu   sync.Mutex
	conn *websocket.Conn
}

// DialWebSocketEventSource connects to a WebSocket event endpoint (e.g. a
// *TestEventServer's URL, with "http" swapped for "ws"). The returned
// value satisfies EventSource and must be Close()d when done.
func DialWebSocketEventSource(ctx context.Context, url string) (*WebSocketEventSource, error) {
	conn, _, err := websocket.DefaultDialer.DialContext(ctx, url, nil)
	if err != nil {
		return nil, nexuserrors.Wrap(nexuserrors.KindRemote, err, "events: failed to dial event source")
	}
	return &WebSocketEventSource{conn: conn}, nil
}

func (s *WebSocketEventSource) QueryEvents(ctx context.Context, cursor *EventID) (EventPage, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.conn.WriteJSON(cursorRequest{Cursor: cursor}); err != nil {
		return EventPage{}, nexuserrors.Wrap(nexuserrors.KindRemote, err, "events: failed to send cursor request")
	}

	var page EventPage
	if err := s.conn.ReadJSON(&page); err != nil {
		return EventPage{}, nexuserrors.Wrap(nexuserrors.KindRemote, err, "events: failed to read event page")
	}
	return page, nil
}

// Close releases the underlying WebSocket connection.
func (s *WebSocketEventSource) Close() error {
	return s.conn.Close()
}
