//go:build linux

package helper

// NewIntrospector returns the introspector for the running platform
func NewIntrospector() Introspector {
	return NewProcFS("/proc")
}
