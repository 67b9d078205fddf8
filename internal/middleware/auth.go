package middleware

import (
	"fmt"
	"html"
	"net/http"
	"strings"

	"github.com/contesthub/contesthub/internal/access"
	"github.com/contesthub/contesthub/internal/models"
	"github.com/contesthub/contesthub/internal/session"
	"github.com/m1z23r/drift/pkg/drift"
	"go.uber.org/zap"
)

const UserKey = "user"

type SessionSource interface {
	Snapshot() session.Snapshot
}

type GateMetrics interface {
	ObserveGate(gate, decision string)
}

type GateConfig struct {
	Session   SessionSource
	LoginPath string
	// Fallback receives signed-in users that lack a required role.
	Fallback string
	Metrics  GateMetrics
	Logger   *zap.Logger
}

// RequireAuth admits any signed-in user.
func RequireAuth(cfg GateConfig) drift.HandlerFunc {
	return gate(cfg, "authenticated", func(s access.State) access.Result {
		return access.Authenticated(s, cfg.LoginPath)
	})
}

// RequireRole admits signed-in users holding one of roles.
func RequireRole(cfg GateConfig, roles ...models.Role) drift.HandlerFunc {
	names := make([]string, len(roles))
	for i, r := range roles {
		names[i] = string(r)
	}
	return gate(cfg, "role:"+strings.Join(names, ","), func(s access.State) access.Result {
		return access.RoleScoped(s, roles, cfg.LoginPath, cfg.Fallback)
	})
}

func gate(cfg GateConfig, name string, decide func(access.State) access.Result) drift.HandlerFunc {
	logger := cfg.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	logger = logger.Named("gate")

	return func(c *drift.Context) {
		snap := cfg.Session.Snapshot()
		res := decide(access.State{Loading: snap.IsLoading, User: snap.User})

		if cfg.Metrics != nil {
			cfg.Metrics.ObserveGate(name, string(res.Decision))
		}

		switch res.Decision {
		case access.Pending:
			renderPending(c)
		case access.Denied:
			logger.Debug("route denied",
				zap.String("gate", name),
				zap.String("path", c.Request.URL.Path),
				zap.String("redirect", res.RedirectTo))
			deny(c, res, cfg.LoginPath)
		default:
			c.Set(UserKey, snap.User)
			c.Next()
		}
	}
}

func wantsJSON(c *drift.Context) bool {
	accept := c.GetHeader("Accept")
	return strings.Contains(accept, "application/json") && !strings.Contains(accept, "text/html")
}

func renderPending(c *drift.Context) {
	c.Response.Header().Set("Cache-Control", "no-store")
	if wantsJSON(c) {
		c.Response.Header().Set("Retry-After", "1")
		_ = c.JSON(http.StatusServiceUnavailable, map[string]string{"status": string(access.Pending)})
		c.Abort()
		return
	}
	_ = c.HTML(http.StatusOK, fmt.Sprintf(pendingPage, html.EscapeString(c.Request.URL.RequestURI())))
	c.Abort()
}

func deny(c *drift.Context, res access.Result, loginPath string) {
	if wantsJSON(c) {
		status := http.StatusForbidden
		if res.RedirectTo == loginPath {
			status = http.StatusUnauthorized
		}
		_ = c.JSON(status, map[string]string{"redirectTo": res.RedirectTo})
		c.Abort()
		return
	}
	http.Redirect(c.Response, c.Request, res.RedirectTo, http.StatusFound)
	c.Abort()
}

// GetUser returns the user admitted by a gate, or nil on ungated routes.
func GetUser(c *drift.Context) *models.User {
	if v, ok := c.Get(UserKey); ok {
		if u, ok := v.(*models.User); ok {
			return u
		}
	}
	return nil
}

const pendingPage = `<!DOCTYPE html>
<html>
<head>
    <meta charset="UTF-8">
    <meta http-equiv="refresh" content="1;url=%s">
    <title>ContestHub</title>
    <style>
        body { font-family: system-ui, -apple-system, sans-serif; background: #f9fafb; margin: 0; min-height: 100vh; }
    </style>
</head>
<body></body>
</html>`
