//go:build !linux

package filewatcher

// setupNative has no implementation outside Linux; FileWatcher falls
// back to poll-only, which already covers every tracked field.
func setupNative(w *FileWatcher) (func(), bool) {
	return nil, false
}
