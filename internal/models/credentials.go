package models

// CredentialPair holds the two tokens that make up an authenticated session.
// Both are opaque strings to the client; no claims are ever parsed from them.
type CredentialPair struct {
	Access  string `json:"access"`
	Refresh string `json:"refresh"`
}

// IsComplete reports whether both tokens are present. Login responses missing
// either token are protocol violations and must not be stored.
func (p *CredentialPair) IsComplete() bool {
	return p != nil && p.Access != "" && p.Refresh != ""
}

// WithRotation returns the pair that results from a refresh response:
// the new access token plus either the rotated refresh token or, when the
// backend did not rotate, the previous one.
func (p *CredentialPair) WithRotation(access, rotatedRefresh string) *CredentialPair {
	next := &CredentialPair{Access: access, Refresh: p.Refresh}
	if rotatedRefresh != "" && rotatedRefresh != p.Refresh {
		next.Refresh = rotatedRefresh
	}
	return next
}
