package session

// Document is the single shared buffer. Writes replace the whole value.
type Document struct {
	code string
}

// NewDocument creates a document holding initial
func NewDocument(initial string) *Document {
	return &Document{code: initial}
}

// Get returns the current buffer
func (d *Document) Get() string {
	return d.code
}

// Set replaces the buffer; any string, including "", is accepted
func (d *Document) Set(code string) {
	d.code = code
}
