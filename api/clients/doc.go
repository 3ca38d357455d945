/*
Package clients provides a Go client for the CivicSeal HTTP API.

	c := clients.NewClient("http://127.0.0.1:8080", nil)
	token, err := c.Login(ctx, "alice@example.com", "password")
	c.Token = token
	res, err := c.RegisterDocument(ctx, "deed.pdf", content, clients.RegisterOptions{EncryptionKey: "k"})

Anonymous calls (RegisterIdentity, Login, Verify, ResolveLink) work without a token. Non-2xx responses
are returned as *APIError carrying the status code and server message.
*/
package clients
