// Package obslog constructs the process-wide structured logger.
package obslog

import "go.uber.org/zap"

// New builds the process-wide logger: development mode (console encoder,
// debug level) when debug is true, production mode (JSON encoder, info
// level) otherwise.
func New(debug bool) (*zap.Logger, error) {
	if debug {
		return zap.NewDevelopment()
	}
	return zap.NewProduction()
}
