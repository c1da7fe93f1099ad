package auth

// StreamTokenResponse carries a short-lived token for opening an event stream.
type StreamTokenResponse struct {
	Token     string `json:"token"`
	ExpiresIn int    `json:"expires_in"`
}
