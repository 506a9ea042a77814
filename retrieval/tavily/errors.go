package tavily

import "errors"

// ErrAPIKeyRequired indicates the client was created without an API key.
var ErrAPIKeyRequired = errors.New("tavily API key is required")
