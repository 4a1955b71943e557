package calendar

// recencyWindow tracks the last K source selections per destination+platform
// pair so the same source is not picked again while the window holds it.
type recencyWindow struct {
	size  int
	byKey map[string][]string
}

func newRecencyWindow(size int) *recencyWindow {
	if size <= 0 {
		size = 30
	}
	return &recencyWindow{
		size:  size,
		byKey: make(map[string][]string),
	}
}

func (w *recencyWindow) Contains(key, sourceID string) bool {
	for _, id := range w.byKey[key] {
		if id == sourceID {
			return true
		}
	}
	return false
}

func (w *recencyWindow) Record(key, sourceID string) {
	if w.Contains(key, sourceID) {
		return
	}
	ids := append(w.byKey[key], sourceID)
	if len(ids) > w.size {
		ids = ids[len(ids)-w.size:]
	}
	w.byKey[key] = ids
}

func (w *recencyWindow) Clear(key string) {
	delete(w.byKey, key)
}
