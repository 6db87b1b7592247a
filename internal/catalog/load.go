package catalog

import (
	"bytes"
	_ "embed"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"cuelang.org/go/cue"
	"cuelang.org/go/cue/cuecontext"
	cueerrors "cuelang.org/go/cue/errors"
	"cuelang.org/go/cue/token"
	"gopkg.in/yaml.v3"
)

//go:embed schema.cue
var schemaSource string

// Format identifies the encoding of a catalog file.
type Format string

const (
	FormatYAML Format = "yaml"
	FormatCUE  Format = "cue"
)

// FormatOf derives the format from a file extension.
func FormatOf(path string) (Format, error) {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		return FormatYAML, nil
	case ".cue":
		return FormatCUE, nil
	}
	return "", fmt.Errorf("unsupported catalog extension %q (want .yaml, .yml or .cue)", filepath.Ext(path))
}

// ParseError is a decoding failure with an optional source position.
type ParseError struct {
	File    string
	Line    int
	Column  int
	Message string
}

func (e *ParseError) Error() string {
	if e.Line > 0 {
		return fmt.Sprintf("%s:%d:%d: %s", e.File, e.Line, e.Column, e.Message)
	}
	return fmt.Sprintf("%s: %s", e.File, e.Message)
}

// Load reads and decodes a catalog file.
func Load(path string) (*File, error) {
	format, err := FormatOf(path)
	if err != nil {
		return nil, err
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read catalog: %w", err)
	}
	return Parse(data, format, path)
}

// Parse decodes catalog bytes. filename is used in error positions only.
func Parse(data []byte, format Format, filename string) (*File, error) {
	switch format {
	case FormatYAML:
		return parseYAML(data, filename)
	case FormatCUE:
		return parseCUE(data, filename)
	}
	return nil, fmt.Errorf("unsupported catalog format %q", format)
}

func parseYAML(data []byte, filename string) (*File, error) {
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)

	var f File
	if err := dec.Decode(&f); err != nil {
		if errors.Is(err, io.EOF) {
			return nil, &ParseError{File: filename, Message: "empty catalog"}
		}
		return nil, &ParseError{File: filename, Message: err.Error()}
	}
	return &f, nil
}

func parseCUE(data []byte, filename string) (*File, error) {
	ctx := cuecontext.New()

	schema := ctx.CompileString(schemaSource, cue.Filename("schema.cue"))
	if err := schema.Err(); err != nil {
		return nil, fmt.Errorf("compile catalog schema: %w", err)
	}

	v := ctx.CompileBytes(data, cue.Filename(filename))
	if err := v.Err(); err != nil {
		return nil, cueParseError(filename, err)
	}

	unified := schema.LookupPath(cue.ParsePath("#Catalog")).Unify(v)
	if err := unified.Validate(cue.Concrete(true)); err != nil {
		return nil, cueParseError(filename, err)
	}

	var f File
	if err := unified.Decode(&f); err != nil {
		return nil, cueParseError(filename, err)
	}
	return &f, nil
}

// cueParseError keeps the first CUE error and its position.
func cueParseError(filename string, err error) error {
	errs := cueerrors.Errors(err)
	if len(errs) == 0 {
		return &ParseError{File: filename, Message: err.Error()}
	}
	first := errs[0]
	pe := &ParseError{File: filename, Message: first.Error()}
	if pos := firstValidPos(cueerrors.Positions(first)); pos.IsValid() {
		pe.File = pos.Filename()
		pe.Line = pos.Line()
		pe.Column = pos.Column()
	}
	return pe
}

func firstValidPos(positions []token.Pos) token.Pos {
	for _, p := range positions {
		if p.IsValid() {
			return p
		}
	}
	return token.NoPos
}
