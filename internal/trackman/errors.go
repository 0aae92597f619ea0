package trackman

import "fmt"

// AuthError reports a failed client-credentials exchange.
type AuthError struct {
	Status int
	Body   string
}

func (e *AuthError) Error() string {
	return fmt.Sprintf("token exchange failed with status %d: %s", e.Status, e.Body)
}

// FetchError reports a non-success response from a data endpoint.
type FetchError struct {
	Endpoint string
	Status   int
	Body     string
}

func (e *FetchError) Error() string {
	return fmt.Sprintf("fetch %s returned %d: %s", e.Endpoint, e.Status, e.Body)
}
