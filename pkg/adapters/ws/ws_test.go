package ws

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/aretw0/intake/pkg/domain"
	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestHub_SendFansOut(t *testing.T) {
	h := NewHub(nil)
	a, cancelA := h.Subscribe("u1")
	b, cancelB := h.Subscribe("u1")
	defer cancelB()

	require.NoError(t, h.Send(context.Background(), "u1", domain.Text("hello")))
	assert.Equal(t, "hello", (<-a).Body)
	assert.Equal(t, "hello", (<-b).Body)
	assert.Equal(t, 2, h.Online("u1"))

	cancelA()
	cancelA()
	assert.Equal(t, 1, h.Online("u1"))
	_, open := <-a
	assert.False(t, open)
}

func TestHub_Offline(t *testing.T) {
	h := NewHub(nil)
	assert.ErrorIs(t, h.Send(context.Background(), "nobody", domain.Text("x")), ErrOffline)

	_, cancel := h.Subscribe("u1")
	cancel()
	assert.ErrorIs(t, h.Send(context.Background(), "u1", domain.Text("x")), ErrOffline)
}

func TestHub_FullBufferDrops(t *testing.T) {
	h := NewHub(nil)
	ch, cancel := h.Subscribe("u1")
	defer cancel()

	for i := 0; i < outboxSize+5; i++ {
		require.NoError(t, h.Send(context.Background(), "u1", domain.Text("x")))
	}
	assert.Len(t, ch, outboxSize)
}

type hubRouter struct {
	hub *Hub
	got chan domain.Message
}

func (r *hubRouter) Route(ctx context.Context, msg domain.Message) error {
	r.got <- msg
	return r.hub.Send(ctx, msg.UserKey, domain.Textf("you said %s", msg.Payload))
}

func dial(t *testing.T, srv *httptest.Server, query string) (*websocket.Conn, *http.Response, error) {
	t.Helper()
	url := "ws" + strings.TrimPrefix(srv.URL, "http") + "/ws?" + query
	return websocket.DefaultDialer.Dial(url, nil)
}

func TestHandler_RoundTrip(t *testing.T) {
	hub := NewHub(nil)
	router := &hubRouter{hub: hub, got: make(chan domain.Message, 4)}
	mux := http.NewServeMux()
	mux.Handle("/ws", NewHandler(router, hub, WithToken("tok")))
	srv := httptest.NewServer(mux)
	defer srv.Close()

	conn, _, err := dial(t, srv, "user=%2B919876543210&token=tok")
	require.NoError(t, err)
	defer conn.Close()

	require.NoError(t, conn.WriteJSON(Frame{ID: "m1", Type: "text", Text: "hi"}))

	select {
	case msg := <-router.got:
		assert.Equal(t, "+919876543210", msg.UserKey)
		assert.Equal(t, "m1", msg.ID)
		assert.Equal(t, domain.ModalityText, msg.Modality)
	case <-time.After(2 * time.Second):
		t.Fatal("message was not routed")
	}

	require.NoError(t, conn.SetReadDeadline(time.Now().Add(2*time.Second)))
	var ev Event
	require.NoError(t, conn.ReadJSON(&ev))
	assert.Equal(t, "message", ev.Type)
	require.NotNil(t, ev.Message)
	assert.Equal(t, "you said hi", ev.Message.Body)

	require.NoError(t, conn.WriteJSON(Frame{ButtonID: "newComplaint"}))
	select {
	case msg := <-router.got:
		assert.Equal(t, domain.ModalityButton, msg.Modality)
		assert.Equal(t, "newComplaint", msg.Payload)
	case <-time.After(2 * time.Second):
		t.Fatal("button was not routed")
	}
}

func TestHandler_RejectsUnauthorized(t *testing.T) {
	hub := NewHub(nil)
	srv := httptest.NewServer(NewHandler(&hubRouter{hub: hub}, hub, WithToken("tok")))
	defer srv.Close()

	_, resp, err := dial(t, srv, "user=u1&token=bad")
	require.Error(t, err)
	require.NotNil(t, resp)
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)

	_, resp, err = dial(t, srv, "token=tok")
	require.Error(t, err)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestToMessage_Media(t *testing.T) {
	msg := toMessage("u1", Frame{Type: "image", MIMEType: "image/png", Data: []byte{0x89, 'P', 'N', 'G'}})
	assert.Equal(t, domain.ModalityImage, msg.Modality)
	require.NotNil(t, msg.Media)
	assert.Equal(t, "image/png", msg.Media.MIMEType)
}
