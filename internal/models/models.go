package models

import "encoding/json"

/*** Collaboration wire protocol ***/

// Inbound message types accepted on a session websocket. Anything else is
// dropped without closing the connection.
const (
	MsgCursorUpdate = "cursor_update"
	MsgCode         = "code"
)

// Outbound message types.
const (
	MsgCollaborators = "collaborators"
)

// InboundMessage is the tagged union read from a client connection.
// Cursor and Selection are opaque to the server and relayed as-is.
type InboundMessage struct {
	Type      string          `json:"type"`
	Cursor    json.RawMessage `json:"cursor,omitempty"`
	Selection json.RawMessage `json:"selection,omitempty"`
	Code      string          `json:"code,omitempty"`
}

// CodeBroadcast is sent to every live connection except the originator.
type CodeBroadcast struct {
	Type string `json:"type"`
	Code string `json:"code"`
}

// PresenceSnapshot is sent to every live connection (originator included)
// after each inbound message.
type PresenceSnapshot struct {
	Type          string                   `json:"type"`
	Collaborators map[string]PresenceEntry `json:"collaborators"`
}

// PresenceEntry is one participant's visible state within a session,
// stored serialized in the shared presence hash.
type PresenceEntry struct {
	Name      string          `json:"name"`
	Cursor    json.RawMessage `json:"cursor"`
	Selection json.RawMessage `json:"selection"`
}

/*** Durable session state ***/

// CodeSession is the durable record for a collaborative editing session.
type CodeSession struct {
	ID    string `bson:"_id" json:"session_id"`
	Name  string `bson:"name" json:"name"`
	Owner string `bson:"owner" json:"owner"`
	Code  string `bson:"code" json:"code"`
}

// User is a registered account.
type User struct {
	Username     string `bson:"username" json:"username"`
	PasswordHash string `bson:"password" json:"-"`
}

/*** API request/response shapes ***/

type RegisterRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

type TokenResponse struct {
	AccessToken string `json:"access_token"`
	TokenType   string `json:"token_type"`
}

type CreateSessionRequest struct {
	Name string `json:"name"`
}

type CreateSessionResponse struct {
	SessionID string `json:"session_id"`
}

type SessionCodeResponse struct {
	Code string `json:"code"`
}

type SaveSessionRequest struct {
	SessionID string `json:"session_id"`
}

type SuggestionRequest struct {
	SessionID string `json:"session_id"`
}

// Suggestion is one line-level review comment produced by the model.
type Suggestion struct {
	Line int    `json:"line"`
	Text string `json:"text"`
	Type string `json:"type"` // "error" | "warning" | "info"
}

type SuggestionResponse struct {
	Suggestions []Suggestion `json:"suggestions"`
}

type ErrorResponse struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}
