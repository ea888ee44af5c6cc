//go:build !unix && !windows

package frame

// Platforms without socket errnos never report a reset; such errors fall
// through to StatusError.
func isReset(err error) bool {
	return false
}
