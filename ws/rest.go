package ws

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/erdlab/collab/lock"
	"github.com/erdlab/collab/logger"
	"github.com/erdlab/collab/types"
)

// LockAPI exposes the lock manager's heartbeat and introspection
// operations over HTTP for clients that keep their heartbeat off the
// WebSocket channel.
type LockAPI struct {
	locks    lock.Manager
	resolver IdentityResolver
	logger   logger.Logger
}

// NewLockAPI creates the HTTP surface for locks.
func NewLockAPI(locks lock.Manager, resolver IdentityResolver, log logger.Logger) *LockAPI {
	if log == nil {
		log = &logger.NoOpLogger{}
	}
	return &LockAPI{
		locks:    locks,
		resolver: resolver,
		logger:   log.WithComponent("lockapi"),
	}
}

// Register mounts the lock routes on rg.
func (a *LockAPI) Register(rg *gin.RouterGroup) {
	rg.POST("/locks/:element/heartbeat", a.handleHeartbeat)
	rg.GET("/locks/:element", a.handleInspect)
}

// handleHeartbeat refreshes the caller's liveness marker for an element.
func (a *LockAPI) handleHeartbeat(c *gin.Context) {
	identity, _, err := a.resolver.Resolve(c.Request)
	if err != nil {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "unidentified"})
		return
	}

	elementID := types.ElementID(c.Param("element"))
	err = a.locks.Heartbeat(c.Request.Context(), elementID, identity)
	switch {
	case err == nil:
		c.Status(http.StatusNoContent)
	case errors.Is(err, lock.ErrLockAbsent):
		c.JSON(http.StatusNotFound, gin.H{"error": "element is not locked"})
	case errors.Is(err, lock.ErrNotLockOwner):
		c.JSON(http.StatusForbidden, gin.H{"error": "not the lock owner"})
	default:
		a.logger.Errorw("heartbeat failed", "element", elementID, "error", err)
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "lock store unavailable"})
	}
}

// handleInspect reports whether an element is locked and by whom, for
// "locked by X" indicators.
func (a *LockAPI) handleInspect(c *gin.Context) {
	elementID := types.ElementID(c.Param("element"))

	owner, held, err := a.locks.OwnerOf(c.Request.Context(), elementID)
	if err != nil {
		a.logger.Errorw("lock inspection failed", "element", elementID, "error", err)
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "lock store unavailable"})
		return
	}

	if !held {
		c.JSON(http.StatusOK, gin.H{"locked": false})
		return
	}
	c.JSON(http.StatusOK, gin.H{"locked": true, "owner": owner})
}
