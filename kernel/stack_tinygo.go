//go:build tinygo

package kernel

// TinyGo has no runtime/debug stack dump; the panic keeps the PID and
// operation only.
func captureStack() []byte {
	return nil
}
