package client

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/ffx64/discord-rpc-go/transport/ipc"
	"github.com/google/uuid"
)

// execute sends one command and waits for its reply. Every public command is
// a thin wrapper around it.
func execute[A, E any](ctx context.Context, c *Client, cmd Command, args A, evt *Event) (*Payload[E], error) {
	if !c.status.Ready() {
		return nil, ErrNotStarted
	}

	c.callMu.Lock()
	defer c.callMu.Unlock()

	req := Payload[A]{Cmd: cmd, Args: &args, Evt: evt, Nonce: uuid.NewString()}
	msg, err := ipc.NewMessage(ipc.OpFrame, req)
	if err != nil {
		return nil, err
	}

	if n := c.manager.dropStaleReplies(); n > 0 {
		c.log.Debug().Int("dropped", n).Msg("discarded stale replies")
	}
	if err := c.manager.send(ctx, msg); err != nil {
		return nil, err
	}
	reply, err := c.manager.recv(ctx, c.cfg.replyTimeout)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", cmd, err)
	}
	return decodeReply[E](c, cmd, req.Nonce, reply)
}

func decodeReply[E any](c *Client, cmd Command, nonce string, reply ipc.Message) (*Payload[E], error) {
	var raw rawPayload
	if err := json.Unmarshal([]byte(reply.Payload), &raw); err != nil {
		return nil, fmt.Errorf("%w: %s reply: %w", ErrDecode, cmd, err)
	}
	if raw.Nonce != nonce {
		c.log.Debug().Str("cmd", string(cmd)).Str("want", nonce).Str("got", raw.Nonce).Msg("reply nonce mismatch")
	}

	if raw.Evt != nil && *raw.Evt == EventError {
		cerr := &CommandError{Cmd: cmd}
		if raw.Data != nil {
			var ev ErrorEvent
			if json.Unmarshal(*raw.Data, &ev) == nil {
				cerr.Code = ev.Code
				cerr.Message = ev.Message
			}
		}
		return nil, cerr
	}

	out := &Payload[E]{Cmd: raw.Cmd, Evt: raw.Evt, Nonce: raw.Nonce}
	if raw.Data != nil && string(*raw.Data) != "null" {
		var data E
		if err := json.Unmarshal(*raw.Data, &data); err != nil {
			return nil, fmt.Errorf("%w: %s reply data: %w", ErrDecode, cmd, err)
		}
		out.Data = &data
	}
	return out, nil
}

// SetActivity replaces the user's rich presence. Calls beyond the rate limit
// fail with ErrRateLimited without touching the connection.
func (c *Client) SetActivity(ctx context.Context, act Activity) (*Payload[Activity], error) {
	if !c.status.Ready() {
		return nil, ErrNotStarted
	}
	if !c.limiter.allow() {
		return nil, ErrRateLimited
	}
	act = act.normalize()
	return execute[SetActivityArgs, Activity](ctx, c, CmdSetActivity, newSetActivityArgs(&act), nil)
}

// ClearActivity removes the user's rich presence. It is not rate limited, so
// a presence can always be cleared on the way out.
func (c *Client) ClearActivity(ctx context.Context) (*Payload[Activity], error) {
	return execute[SetActivityArgs, Activity](ctx, c, CmdSetActivity, newSetActivityArgs(nil), nil)
}

// SendActivityJoinInvite accepts a join request from userID.
func (c *Client) SendActivityJoinInvite(ctx context.Context, userID uint64) (*Payload[json.RawMessage], error) {
	return execute[ActivityInviteArgs, json.RawMessage](ctx, c, CmdSendActivityJoinInvite, newActivityInviteArgs(userID), nil)
}

// CloseActivityRequest rejects a join request from userID.
func (c *Client) CloseActivityRequest(ctx context.Context, userID uint64) (*Payload[json.RawMessage], error) {
	return execute[ActivityInviteArgs, json.RawMessage](ctx, c, CmdCloseActivityRequest, newActivityInviteArgs(userID), nil)
}

func (c *Client) Subscribe(ctx context.Context, evt Event, args SubscriptionArgs) (*Payload[Subscription], error) {
	return execute[SubscriptionArgs, Subscription](ctx, c, CmdSubscribe, args, &evt)
}

func (c *Client) Unsubscribe(ctx context.Context, evt Event, args SubscriptionArgs) (*Payload[Subscription], error) {
	return execute[SubscriptionArgs, Subscription](ctx, c, CmdUnsubscribe, args, &evt)
}

// Authorize asks the user to grant scopes to the application and returns
// the OAuth2 code on success.
func (c *Client) Authorize(ctx context.Context, scopes ...string) (*Payload[AuthorizeData], error) {
	args := AuthorizeArgs{ClientID: fmt.Sprint(c.ClientID), Scopes: scopes}
	return execute[AuthorizeArgs, AuthorizeData](ctx, c, CmdAuthorize, args, nil)
}
