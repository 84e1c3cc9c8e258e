package auth

import "github.com/gin-gonic/gin"

const identityKey = "identity"

// SetIdentity stores the authenticated identity in the Gin context.
func SetIdentity(c *gin.Context, id Identity) {
	c.Set(identityKey, id)
}

// GetIdentity returns the authenticated identity and whether one is present.
func GetIdentity(c *gin.Context) (Identity, bool) {
	if v, ok := c.Get(identityKey); ok {
		if id, ok := v.(Identity); ok {
			return id, true
		}
	}
	return Identity{}, false
}

// GetUserID returns the authenticated user's ID or empty string.
func GetUserID(c *gin.Context) string {
	id, _ := GetIdentity(c)
	return id.UserID
}
