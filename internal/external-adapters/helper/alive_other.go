//go:build !unix

package helper

func processAlive(int) error {
	return nil
}

// Privileged reports whether the helper runs with elevated privileges
func Privileged() bool {
	return false
}
