package dto

// OAuthCallback carries everything the provider callback needs.
// StoredState comes from the state cookie, State from the query string.
type OAuthCallback struct {
	Provider    string
	State       string
	StoredState string
	Code        string
}
