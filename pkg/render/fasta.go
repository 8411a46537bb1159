package render

import (
	"bufio"
	"io"
)

// FASTAWriter writes renamed representative sequences.
type FASTAWriter struct {
	w *bufio.Writer
}

func NewFASTAWriter(w io.Writer) *FASTAWriter {
	return &FASTAWriter{w: bufio.NewWriterSize(w, 1<<16)}
}

// BeginRecord writes the header ">name;size=N;".
func (f *FASTAWriter) BeginRecord(name, size string) error {
	f.w.WriteByte('>')
	f.w.WriteString(name)
	f.w.WriteString(";size=")
	f.w.WriteString(size)
	_, err := f.w.WriteString(";\n")
	return err
}

func (f *FASTAWriter) WriteLine(line string) error {
	_, err := f.w.WriteString(line)
	return err
}

func (f *FASTAWriter) EndRecord() error {
	return nil
}

func (f *FASTAWriter) Flush() error {
	return f.w.Flush()
}
