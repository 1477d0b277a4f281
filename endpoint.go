package pipeweld

import (
	"bytes"
	"io"
	"os"
)

type endpointKind int

const (
	endpointInherit endpointKind = iota
	endpointNull
	endpointInputFile
	endpointOutputFile
	endpointAppendFile
	endpointData
	endpointReader
	endpointWriter
)

// Endpoint says where one of a node's standard streams begins or ends when
// no pipe connection claims it. The zero value inherits the corresponding
// stream of the host process.
//
// Input endpoints (stdin): Inherit, Null, InputFile, InputBytes,
// InputString, FromReader. Output endpoints (stdout, stderr): Inherit,
// Null, OutputFile, AppendFile, ToWriter. Using one in the wrong direction
// fails graph validation. Pipe endpoints are not built directly; Connect
// and ConnectStderr install them in pairs.
type Endpoint struct {
	kind endpointKind
	path string
	data []byte
	r    io.Reader
	w    io.Writer
}

// Inherit attaches the host process's own stream.
func Inherit() Endpoint { return Endpoint{kind: endpointInherit} }

// Null reads as immediate EOF on stdin and discards writes on stdout
// or stderr, like the null device.
func Null() Endpoint { return Endpoint{kind: endpointNull} }

// Discard throws away everything the stage writes. It is Null under its
// output-side name.
func Discard() Endpoint { return Endpoint{kind: endpointNull} }

// InputFile feeds stdin from the named file. The file is opened at spawn
// time, so every run of the graph reads it from the start.
func InputFile(path string) Endpoint {
	return Endpoint{kind: endpointInputFile, path: path}
}

// OutputFile writes the stream to the named file, truncating it first.
func OutputFile(path string) Endpoint {
	return Endpoint{kind: endpointOutputFile, path: path}
}

// AppendFile writes the stream to the end of the named file, creating it
// when missing.
func AppendFile(path string) Endpoint {
	return Endpoint{kind: endpointAppendFile, path: path}
}

// InputBytes feeds stdin from an in-memory byte slice. Unlike FromReader
// the bytes are replayed from the start on every spawn of the graph.
func InputBytes(b []byte) Endpoint {
	return Endpoint{kind: endpointData, data: b}
}

// InputString feeds stdin from a string, replayed on every spawn.
func InputString(s string) Endpoint {
	return Endpoint{kind: endpointData, data: []byte(s)}
}

// FromReader feeds stdin from r. The reader is consumed, so an endpoint
// built this way is good for a single spawn.
func FromReader(r io.Reader) Endpoint {
	return Endpoint{kind: endpointReader, r: r}
}

// ToWriter streams stdout or stderr into w. A writer shared between
// stages must be safe for concurrent use.
func ToWriter(w io.Writer) Endpoint {
	return Endpoint{kind: endpointWriter, w: w}
}

func (e Endpoint) isInherit() bool { return e.kind == endpointInherit }

func (e Endpoint) isInput() bool {
	switch e.kind {
	case endpointInherit, endpointNull, endpointInputFile, endpointData, endpointReader:
		return true
	}
	return false
}

func (e Endpoint) isOutput() bool {
	switch e.kind {
	case endpointInherit, endpointNull, endpointOutputFile, endpointAppendFile, endpointWriter:
		return true
	}
	return false
}

// openInput resolves a stdin endpoint at spawn time. The returned file is
// non-nil only when this call opened it, making the caller responsible for
// closing the parent's copy.
func (e Endpoint) openInput() (io.Reader, *os.File, error) {
	switch e.kind {
	case endpointInherit:
		return os.Stdin, nil, nil
	case endpointNull:
		return nil, nil, nil
	case endpointInputFile:
		f, err := os.Open(e.path)
		if err != nil {
			return nil, nil, err
		}
		return f, f, nil
	case endpointData:
		return bytes.NewReader(e.data), nil, nil
	case endpointReader:
		return e.r, nil, nil
	}
	return nil, nil, ErrBadEndpoint
}

// openOutput resolves a stdout or stderr endpoint, with std naming the
// host stream an inherit endpoint attaches to.
func (e Endpoint) openOutput(std *os.File) (io.Writer, *os.File, error) {
	switch e.kind {
	case endpointInherit:
		return std, nil, nil
	case endpointNull:
		return nil, nil, nil
	case endpointOutputFile:
		f, err := os.Create(e.path)
		if err != nil {
			return nil, nil, err
		}
		return f, f, nil
	case endpointAppendFile:
		f, err := os.OpenFile(e.path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o644)
		if err != nil {
			return nil, nil, err
		}
		return f, f, nil
	case endpointWriter:
		return e.w, nil, nil
	}
	return nil, nil, ErrBadEndpoint
}

func (e Endpoint) describe() string {
	switch e.kind {
	case endpointInherit:
		return "inherit"
	case endpointNull:
		return "null"
	case endpointInputFile:
		return "file " + e.path
	case endpointOutputFile:
		return "file " + e.path
	case endpointAppendFile:
		return "append " + e.path
	case endpointData:
		return "data"
	case endpointReader:
		return "reader"
	case endpointWriter:
		return "writer"
	}
	return "unknown"
}
