// Package clientip extracts the real client IP address from HTTP requests
// served behind reverse proxies and CDNs.
//
// GetIP inspects common forwarding headers in priority order and validates
// every candidate before returning it, so spoofed or malformed header values
// never leak through. Middleware stores the resolved IP in the request
// context for handlers that need it later:
//
//	r.Use(clientip.Middleware)
//
//	func handler(w http.ResponseWriter, r *http.Request) {
//	    ip := clientip.FromContext(r.Context())
//	    ...
//	}
package clientip
