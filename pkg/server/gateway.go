package server

import (
	"encoding/json"
	"net/http"

	"github.com/gorilla/websocket"
)

var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool { return true },
}

// Message is the wire envelope for gateway requests: a method name and its
// JSON-encoded parameters.
type Message struct {
	Method string          `json:"method"`
	Params json.RawMessage `json:"params"`
}

// Response is the wire envelope for gateway replies.
type Response struct {
	Method string     `json:"method"`
	Error  string     `json:"error,omitempty"`
	State  *GameState `json:"state,omitempty"`
}

type createSessionParams struct {
	SessionID string        `json:"session_id"`
	Config    SessionConfig `json:"config"`
}

type sessionOnlyParams struct {
	SessionID string `json:"session_id"`
}

type actionParams struct {
	SessionID string `json:"session_id"`
	PlayerID  string `json:"player_id"`
	Action    string `json:"action"`
	Amount    int64  `json:"amount,omitempty"`
}

type stateParams struct {
	SessionID string `json:"session_id"`
	PlayerID  string `json:"player_id"`
}

// HandleWebSocket upgrades the connection and serves gateway requests on it
// until the peer disconnects. Engine rule violations are reported to the
// peer and the connection stays open; transport errors end it.
func (s *Server) HandleWebSocket(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		s.log.Warnf("websocket upgrade failed: %v", err)
		return
	}
	defer conn.Close()

	s.log.Debugf("websocket connection from %s", conn.RemoteAddr())

	for {
		_, raw, err := conn.ReadMessage()
		if err != nil {
			s.log.Debugf("websocket read from %s: %v", conn.RemoteAddr(), err)
			return
		}

		var m Message
		if err := json.Unmarshal(raw, &m); err != nil {
			s.writeError(conn, "", "invalid message: "+err.Error())
			continue
		}

		state, err := s.dispatch(&m)
		if err != nil {
			s.writeError(conn, m.Method, err.Error())
			continue
		}
		s.write(conn, &Response{Method: m.Method, State: state})
	}
}

// dispatch routes one gateway message to the matching server operation.
func (s *Server) dispatch(m *Message) (*GameState, error) {
	switch m.Method {
	case "create_session":
		var p createSessionParams
		if err := json.Unmarshal(m.Params, &p); err != nil {
			return nil, err
		}
		if err := s.CreateSession(p.SessionID, p.Config); err != nil {
			return nil, err
		}
		return s.GetState(p.SessionID, "")

	case "start_hand":
		var p sessionOnlyParams
		if err := json.Unmarshal(m.Params, &p); err != nil {
			return nil, err
		}
		state, err := s.StartHand(p.SessionID)
		if err != nil {
			return nil, err
		}
		state.redactFor("", state.HandActive)
		return state, nil

	case "player_action":
		var p actionParams
		if err := json.Unmarshal(m.Params, &p); err != nil {
			return nil, err
		}
		state, err := s.ApplyAction(p.SessionID, p.PlayerID, p.Action, p.Amount)
		if err != nil {
			return nil, err
		}
		state.redactFor(p.PlayerID, state.HandActive)
		return state, nil

	case "get_state":
		var p stateParams
		if err := json.Unmarshal(m.Params, &p); err != nil {
			return nil, err
		}
		return s.GetState(p.SessionID, p.PlayerID)

	case "end_session":
		var p sessionOnlyParams
		if err := json.Unmarshal(m.Params, &p); err != nil {
			return nil, err
		}
		return nil, s.EndSession(p.SessionID)

	default:
		return nil, &unknownMethodError{method: m.Method}
	}
}

type unknownMethodError struct {
	method string
}

func (e *unknownMethodError) Error() string {
	return "unknown method " + e.method
}

func (s *Server) write(conn *websocket.Conn, resp *Response) {
	if err := conn.WriteJSON(resp); err != nil {
		s.log.Debugf("websocket write: %v", err)
	}
}

func (s *Server) writeError(conn *websocket.Conn, method, msg string) {
	s.write(conn, &Response{Method: method, Error: msg})
}
