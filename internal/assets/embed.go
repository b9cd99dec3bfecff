// Package assets provides files compiled into the binary.
package assets

import _ "embed"

// DefaultStatusTemplate is the status document served when no template
// file is configured or the configured file is missing.
//
//go:embed status_resp.json
var DefaultStatusTemplate []byte
