// Package client is a typed chat-completion client for OpenAI-compatible APIs.
//
// Every request is fingerprinted and resolved cache-aside: the in-memory LRU
// first, then the optional disk mirror, then the API. Successful API
// responses are written back to both layers, so repeating a request, even
// from a new process sharing the cache directory, costs nothing.
//
//	c, err := client.FromEnv("gpt-4o")
//	if err != nil {
//		return err
//	}
//	recipe, err := client.Chat[Recipe](ctx, c, "A recipe for pancakes")
package client
