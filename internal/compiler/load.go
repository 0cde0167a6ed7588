package compiler

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"cuelang.org/go/cue"
	"cuelang.org/go/cue/cuecontext"
)

// Format is the surface syntax of a document file.
type Format string

const (
	FormatYAML Format = "yaml"
	FormatJSON Format = "json"
	FormatCUE  Format = "cue"
)

// FormatOf picks a format from a file extension. Unknown extensions are YAML.
func FormatOf(path string) Format {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".json":
		return FormatJSON
	case ".cue":
		return FormatCUE
	default:
		return FormatYAML
	}
}

// LoadFile reads, decodes and compiles a document.
func LoadFile(path string) (*Document, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read %s: %w", path, err)
	}
	return LoadBytes(path, FormatOf(path), data)
}

// LoadBytes decodes data in the given format and compiles it. name is used
// in CUE positions and as the default document name.
func LoadBytes(name string, format Format, data []byte) (*Document, error) {
	tree, err := Decode(name, format, data)
	if err != nil {
		return nil, err
	}
	doc, err := Compile(tree)
	if err != nil {
		return nil, err
	}
	if doc.Name == "" {
		doc.Name = strings.TrimSuffix(filepath.Base(name), filepath.Ext(name))
	}
	return doc, nil
}

// Decode turns document bytes into a tree.
func Decode(name string, format Format, data []byte) (any, error) {
	switch format {
	case FormatJSON:
		tree, err := DecodeJSON(data)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", name, err)
		}
		return tree, nil
	case FormatCUE:
		ctx := cuecontext.New()
		v := ctx.CompileBytes(data, cue.Filename(name))
		return DecodeCUE(v)
	default:
		tree, err := DecodeYAML(data)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", name, err)
		}
		return tree, nil
	}
}
