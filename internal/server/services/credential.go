package services

// CredentialKind tells which verifier a bearer credential belongs to.
type CredentialKind int

const (
	// CredentialLocal is an access token minted by this service.
	CredentialLocal CredentialKind = iota + 1
	// CredentialFederated is anything else; it may be a federated identity token.
	CredentialFederated
)

func (k CredentialKind) String() string {
	switch k {
	case CredentialLocal:
		return "local"
	case CredentialFederated:
		return "federated"
	default:
		return "unknown"
	}
}

// Credential is a bearer token classified by origin. Subject is set only for
// local credentials.
type Credential struct {
	Kind    CredentialKind
	Token   string
	Subject string
}

// ResolveCredential classifies token. A token the access-token codec accepts
// is local; any codec failure (expired, bad signature, not a JWT at all)
// makes it a federated candidate.
func (s *UserService) ResolveCredential(token string) Credential {
	subject, err := s.codec.Verify(token)
	if err != nil {
		return Credential{Kind: CredentialFederated, Token: token}
	}
	return Credential{Kind: CredentialLocal, Token: token, Subject: subject}
}
