package topic2html

import "errors"

// Sentinel errors for library operations.
var (
	ErrTopicSchema    = errors.New("topic JSON is missing required fields")
	ErrDiscoveryEmpty = errors.New("no stylesheets discovered from base URL")
	ErrStrictOffline  = errors.New("strict offline check failed")
	ErrNotUTF8        = errors.New("remote text is not valid UTF-8")

	// Input validation errors.
	ErrNilTopic      = errors.New("topic cannot be nil")
	ErrNilBaseURL    = errors.New("base URL cannot be nil")
	ErrBaseURLScheme = errors.New("base URL must use http or https")
	ErrInvalidMode   = errors.New("invalid output mode")
	ErrAssetsDirName = errors.New("assets directory name must be a bare directory name")
	ErrAvatarSize    = errors.New("avatar size must be positive")
)
