package ratelimit

// unlimited lists the routes that are never rate limited, keyed by method and path.
var unlimited = map[string]bool{
	"GET /health": true,
}

// MatchEndpoint returns the configuration registered for exactly this method
// and path, or nil when the request falls under the default limit.
func MatchEndpoint(path, method string, configs []EndpointConfig) *EndpointConfig {
	if unlimited[method+" "+path] {
		// A zero Limit disables the bucket.
		return &EndpointConfig{}
	}

	for i := range configs {
		if configs[i].Path == path && configs[i].Method == method {
			return &configs[i]
		}
	}
	return nil
}
