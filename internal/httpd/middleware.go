package httpd

import (
	"net"
	"net/http"

	"github.com/gin-gonic/gin"
)

// loopbackOnly refuses connections whose remote address is not a
// loopback IP (spec §4.D "Refuses connections from non-loopback peers
// (defense in depth)"). The server should only ever be bound to
// 127.0.0.1, so this is a belt-and-braces check, not the primary
// control.
func loopbackOnly() gin.HandlerFunc {
	return func(c *gin.Context) {
		host, _, err := net.SplitHostPort(c.Request.RemoteAddr)
		if err != nil {
			host = c.Request.RemoteAddr
		}
		ip := net.ParseIP(host)
		if ip == nil || !ip.IsLoopback() {
			c.AbortWithStatus(http.StatusForbidden)
			return
		}
		c.Next()
	}
}
