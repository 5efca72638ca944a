package chart

import (
	"io"
	"os"
)

// Figure is a composed chart ready to rasterize. Composing performs no
// I/O; rendering happens on demand against a writer. WriteFile is the
// separate trivial persistence helper for callers that want a file.
type Figure struct {
	Width  int
	Height int

	render func(w io.Writer) error
}

// Render rasterizes the figure as PNG into w
func (f *Figure) Render(w io.Writer) error {
	return f.render(w)
}

// WriteFile renders the figure into a newly created file at path
func (f *Figure) WriteFile(path string) error {
	out, err := os.Create(path)
	if err != nil {
		return err
	}
	if err := f.Render(out); err != nil {
		out.Close()
		return err
	}
	return out.Close()
}
