// ABOUTME: Version and product identity constants
// ABOUTME: Used for the websocket User-Agent and startup logging
package version

const (
	Product      = "LiveTranslate"
	Manufacturer = "LiveTranslate"
	Version      = "0.1.0"
)

// UserAgent identifies this client to provider endpoints.
func UserAgent() string {
	return Product + "/" + Version
}
