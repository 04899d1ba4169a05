package domain

import "errors"

var (
	ErrNotFound     = errors.New("not found")
	ErrUnauthorized = errors.New("unauthorized")

	ErrInvalidDomain     = errors.New("invalid domain name")
	ErrDomainExists      = errors.New("domain already exists")
	ErrDomainNotVerified = errors.New("domain is not verified")
	ErrDomainInUse       = errors.New("domain has links")
	ErrDomainHasGroups   = errors.New("domain has groups")
	ErrNotPrimary        = errors.New("domain is not a primary domain")
	ErrGroupVerification = errors.New("groups inherit verification from their primary domain")
	ErrInvalidGroupName  = errors.New("invalid group name")
	ErrInvalidVerifyMode = errors.New("unknown verification method")

	ErrInvalidSlug      = errors.New("invalid slug")
	ErrSlugTaken        = errors.New("slug already in use on this domain")
	ErrInvalidURL       = errors.New("invalid destination url")
	ErrInvalidStatus    = errors.New("invalid link status")
	ErrInvalidRedirect  = errors.New("redirect type must be 301 or 307")
	ErrInvalidEPC       = errors.New("epc must not be negative")
	ErrLinkLimitReached = errors.New("link limit reached for plan")
	ErrMissingLinkID    = errors.New("link_id is required")
)
