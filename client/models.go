package client

import (
	"encoding/json"
	"strconv"
)

// Command is the cmd field of an RPC envelope.
type Command string

const (
	CmdDispatch               Command = "DISPATCH"
	CmdAuthorize              Command = "AUTHORIZE"
	CmdSubscribe              Command = "SUBSCRIBE"
	CmdUnsubscribe            Command = "UNSUBSCRIBE"
	CmdSetActivity            Command = "SET_ACTIVITY"
	CmdSendActivityJoinInvite Command = "SEND_ACTIVITY_JOIN_INVITE"
	CmdCloseActivityRequest   Command = "CLOSE_ACTIVITY_REQUEST"
)

// Event names both a server dispatch and a subscription target.
type Event string

const (
	EventReady               Event = "READY"
	EventError               Event = "ERROR"
	EventActivityJoin        Event = "ACTIVITY_JOIN"
	EventActivitySpectate    Event = "ACTIVITY_SPECTATE"
	EventActivityJoinRequest Event = "ACTIVITY_JOIN_REQUEST"
)

// Events lists every event this client understands.
var Events = []Event{
	EventReady,
	EventError,
	EventActivityJoin,
	EventActivitySpectate,
	EventActivityJoinRequest,
}

func (e Event) Valid() bool {
	for _, known := range Events {
		if e == known {
			return true
		}
	}
	return false
}

// Payload is the JSON envelope carried by every OpFrame message.
type Payload[T any] struct {
	Cmd   Command `json:"cmd"`
	Args  *T      `json:"args,omitempty"`
	Data  *T      `json:"data,omitempty"`
	Evt   *Event  `json:"evt,omitempty"`
	Nonce string  `json:"nonce,omitempty"`
}

// rawPayload is the first-pass decode used for routing.
type rawPayload = Payload[json.RawMessage]

func (p Payload[T]) IsDispatch() bool {
	return p.Cmd == CmdDispatch && p.Evt != nil
}

type ServerConfig struct {
	CDNHost     string `json:"cdn_host"`
	APIEndpoint string `json:"api_endpoint"`
	Environment string `json:"environment"`
}

type User struct {
	ID            string `json:"id"`
	Username      string `json:"username"`
	Discriminator string `json:"discriminator,omitempty"`
	GlobalName    string `json:"global_name,omitempty"`
	Avatar        string `json:"avatar,omitempty"`
}

// ReadyEvent is the data of the READY dispatch that completes the handshake.
type ReadyEvent struct {
	V      int          `json:"v"`
	Config ServerConfig `json:"config"`
	User   User         `json:"user"`
}

type ErrorEvent struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
}

type ActivityJoinEvent struct {
	Secret string `json:"secret"`
}

type ActivitySpectateEvent struct {
	Secret string `json:"secret"`
}

type ActivityJoinRequestEvent struct {
	User User `json:"user"`
}

// SubscriptionArgs are the optional filters sent with SUBSCRIBE/UNSUBSCRIBE.
type SubscriptionArgs struct {
	Secret string `json:"secret,omitempty"`
	User   *User  `json:"user,omitempty"`
}

type Subscription struct {
	Evt Event `json:"evt"`
}

// ActivityInviteArgs addresses SEND_ACTIVITY_JOIN_INVITE and
// CLOSE_ACTIVITY_REQUEST at a user.
type ActivityInviteArgs struct {
	UserID string `json:"user_id"`
}

func newActivityInviteArgs(userID uint64) ActivityInviteArgs {
	return ActivityInviteArgs{UserID: strconv.FormatUint(userID, 10)}
}

type AuthorizeArgs struct {
	ClientID string   `json:"client_id"`
	Scopes   []string `json:"scopes"`
}

type AuthorizeData struct {
	Code string `json:"code"`
}
