package ws

import (
	"context"
	"encoding/json"
	"errors"

	"github.com/erdlab/collab/event"
	"github.com/erdlab/collab/lock"
	"github.com/erdlab/collab/types"
)

// Inbound actions a client may send on its channel.
const (
	actionLock      = "lock"
	actionUnlock    = "unlock"
	actionHeartbeat = "heartbeat"
	actionCursor    = "cursor"
	actionDrag      = "drag"
)

// inboundMessage is the envelope of every client-to-server frame.
type inboundMessage struct {
	Action    string          `json:"action"`
	ElementID types.ElementID `json:"elementId,omitempty"`
	X         float64         `json:"x,omitempty"`
	Y         float64         `json:"y,omitempty"`
}

// notice is a server-to-client frame addressed to a single connection,
// used for lock denials and rejected requests that other viewers do not
// need to see.
type notice struct {
	Type      string          `json:"type"`
	Code      string          `json:"code"`
	ElementID types.ElementID `json:"elementId,omitempty"`
	Owner     types.Identity  `json:"owner,omitempty"`
}

const (
	noticeLockDenied    = "LOCK_DENIED"
	noticeLockAbsent    = "LOCK_ABSENT"
	noticeNotOwner      = "NOT_LOCK_OWNER"
	noticeUnavailable   = "TRY_AGAIN"
	noticeUnknownAction = "UNKNOWN_ACTION"
)

// handleMessage dispatches one inbound frame.
func (c *Client) handleMessage(ctx context.Context, data []byte) {
	var msg inboundMessage
	if err := json.Unmarshal(data, &msg); err != nil {
		c.logger.Warnw("dropping malformed frame", "session", c.session, "error", err)
		return
	}

	switch msg.Action {
	case actionLock:
		c.handleLock(ctx, msg)
	case actionUnlock:
		c.handleUnlock(ctx, msg)
	case actionHeartbeat:
		c.handleHeartbeat(ctx, msg)
	case actionCursor:
		c.handleCursor(ctx, msg)
	case actionDrag:
		c.handleDrag(ctx, msg)
	default:
		c.sendNotice(notice{Type: "NOTICE", Code: noticeUnknownAction})
	}
}

// handleLock attempts the acquisition and, on success, announces the new
// owner to the channel. A denial is reported to the requester only.
func (c *Client) handleLock(ctx context.Context, msg inboundMessage) {
	acquired, err := c.hub.locks.Acquire(ctx, msg.ElementID, c.identity)
	if err != nil {
		c.sendNotice(notice{Type: "NOTICE", Code: noticeUnavailable, ElementID: msg.ElementID})
		return
	}
	if !acquired {
		owner, _, _ := c.hub.locks.OwnerOf(ctx, msg.ElementID)
		c.sendNotice(notice{Type: "NOTICE", Code: noticeLockDenied, ElementID: msg.ElementID, Owner: owner})
		return
	}

	c.publish(ctx, event.ElementLocked{
		DiagramID: c.diagram,
		ElementID: msg.ElementID,
		Owner:     c.identity,
		OwnerName: c.name,
	})
}

func (c *Client) handleUnlock(ctx context.Context, msg inboundMessage) {
	if err := c.hub.locks.Release(ctx, msg.ElementID, c.identity); err != nil {
		c.sendNotice(notice{Type: "NOTICE", Code: noticeUnavailable, ElementID: msg.ElementID})
		return
	}

	c.publish(ctx, event.ElementUnlocked{
		DiagramID: c.diagram,
		ElementID: msg.ElementID,
		Owner:     c.identity,
	})
}

func (c *Client) handleHeartbeat(ctx context.Context, msg inboundMessage) {
	err := c.hub.locks.Heartbeat(ctx, msg.ElementID, c.identity)
	switch {
	case err == nil:
	case errors.Is(err, lock.ErrLockAbsent):
		c.sendNotice(notice{Type: "NOTICE", Code: noticeLockAbsent, ElementID: msg.ElementID})
	case errors.Is(err, lock.ErrNotLockOwner):
		c.sendNotice(notice{Type: "NOTICE", Code: noticeNotOwner, ElementID: msg.ElementID})
	default:
		c.sendNotice(notice{Type: "NOTICE", Code: noticeUnavailable, ElementID: msg.ElementID})
	}
}

func (c *Client) handleCursor(ctx context.Context, msg inboundMessage) {
	if !c.limiter.Allow() {
		return // flooded; a newer position supersedes this one anyway
	}

	c.publish(ctx, event.CursorMoved{
		DiagramID:  c.diagram,
		Member:     c.identity,
		MemberName: c.name,
		Color:      event.MemberColor(c.identity),
		X:          msg.X,
		Y:          msg.Y,
	})
}

func (c *Client) handleDrag(ctx context.Context, msg inboundMessage) {
	if !c.limiter.Allow() {
		return
	}

	c.publish(ctx, event.ElementDragged{
		DiagramID: c.diagram,
		ElementID: msg.ElementID,
		X:         msg.X,
		Y:         msg.Y,
	})
}

func (c *Client) publish(ctx context.Context, e event.Event) {
	if c.hub.relay == nil {
		return
	}
	if err := c.hub.relay.Publish(ctx, e); err != nil {
		c.logger.Errorw("failed to publish event", "type", e.Type(), "session", c.session, "error", err)
	}
}

// sendNotice enqueues a frame for this connection only.
func (c *Client) sendNotice(n notice) {
	payload, err := json.Marshal(n)
	if err != nil {
		return
	}
	c.enqueue(payload)
}
