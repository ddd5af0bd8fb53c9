package stream

// Faulted reports whether a part upload failed.
func (w *Writer) Faulted() bool {
	return w.fault.failed()
}
