package ws

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/gorilla/websocket"

	"github.com/erdlab/collab/types"
)

// IdentityResolver supplies the identity behind a request. Authentication
// itself is owned by the surrounding application; the collaboration core
// only consumes its result.
type IdentityResolver interface {
	// Resolve returns the caller's identity and display name.
	Resolve(r *http.Request) (types.Identity, string, error)
}

// HeaderIdentityResolver reads the identity from trusted reverse-proxy
// headers. Suitable behind an auth-terminating gateway; real deployments
// plug in their session-backed resolver instead.
type HeaderIdentityResolver struct{}

func (HeaderIdentityResolver) Resolve(r *http.Request) (types.Identity, string, error) {
	id := r.Header.Get("X-User-Email")
	if id == "" {
		return "", "", ErrUnidentified
	}
	name := r.Header.Get("X-User-Name")
	if name == "" {
		name = id
	}
	return types.Identity(id), name, nil
}

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin: func(r *http.Request) bool {
		// Origin policy is enforced by the fronting gateway.
		return true
	},
}

// HandleWS returns the gin handler that upgrades a request into a
// subscription on the diagram channel named by the :diagram path param.
func (h *Hub) HandleWS(resolver IdentityResolver) gin.HandlerFunc {
	return func(c *gin.Context) {
		diagram := types.DiagramID(c.Param("diagram"))
		if diagram == "" {
			c.JSON(http.StatusBadRequest, gin.H{"error": "missing diagram id"})
			return
		}
		if h.relay == nil || h.cleaner == nil {
			c.JSON(http.StatusServiceUnavailable, gin.H{"error": "collaboration not ready"})
			return
		}

		identity, name, err := resolver.Resolve(c.Request)
		if err != nil {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "unidentified"})
			return
		}

		conn, err := upgrader.Upgrade(c.Writer, c.Request, nil)
		if err != nil {
			h.logger.WithDiagram(diagram).Warnw("websocket upgrade failed", "error", err)
			return
		}

		client := newClient(h, conn, types.SessionID(uuid.NewString()), diagram, identity, name)
		h.register(client)
		client.run()

		h.cleaner.OnConnect(c.Request.Context(), diagram, identity, name)
	}
}
