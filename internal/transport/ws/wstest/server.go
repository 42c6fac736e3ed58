// Package wstest serves a zome.Caller over the conductor websocket protocol so
// code that dials a conductor can be tested against an in-memory one.
package wstest

import (
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gorilla/websocket"

	"github.com/hay-kot/lobby/internal/core/zome"
	"github.com/hay-kot/lobby/internal/transport/ws"
)

// Serve starts a server answering every call frame with caller. The server is
// closed when the test ends.
func Serve(t testing.TB, caller zome.Caller) *httptest.Server {
	t.Helper()

	upgrader := websocket.Upgrader{CheckOrigin: func(*http.Request) bool { return true }}
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			return
		}
		defer conn.Close() //nolint:errcheck

		for {
			var req ws.Request
			if err := conn.ReadJSON(&req); err != nil {
				return
			}
			if err := conn.WriteJSON(answer(r, caller, req)); err != nil {
				return
			}
		}
	}))
	t.Cleanup(srv.Close)
	return srv
}

// URL returns the websocket url of srv.
func URL(srv *httptest.Server) string {
	return "ws" + strings.TrimPrefix(srv.URL, "http")
}

func answer(r *http.Request, caller zome.Caller, req ws.Request) ws.Response {
	var data json.RawMessage
	err := caller.Call(r.Context(), zome.Request{Zome: req.Zome, Fn: req.Fn, Cap: req.Cap, Payload: req.Payload}, &data)

	var re *zome.RemoteError
	switch {
	case errors.As(err, &re):
		return ws.Response{ID: req.ID, Type: ws.TypeError, Error: &ws.ErrorBody{Kind: ws.ErrorGuest, Message: re.Message}}
	case err != nil:
		return ws.Response{ID: req.ID, Type: ws.TypeError, Error: &ws.ErrorBody{Kind: ws.ErrorInternal, Message: err.Error()}}
	default:
		return ws.Response{ID: req.ID, Type: ws.TypeResult, Data: data}
	}
}
