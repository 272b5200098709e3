package models

// DraftEntry is the unsaved creation form.
type DraftEntry struct {
	Name      string
	MoodScore string
	Team      string
}

// Reset clears every field.
func (d *DraftEntry) Reset() {
	*d = DraftEntry{}
}

// CreateForm is the creation form: open or closed, plus its draft. Closing
// always discards the draft.
type CreateForm struct {
	Open  bool
	Draft DraftEntry
}

// Close hides the form and discards the draft.
func (f *CreateForm) Close() {
	f.Open = false
	f.Draft.Reset()
}
