package main

import (
	"encoding/json"
	"fmt"
	"io"
	"os"

	"github.com/charmbracelet/glamour"
	"github.com/mattn/go-isatty"
	"github.com/pkg/errors"
	"gopkg.in/yaml.v3"
)

// printMarkdown styles md with glamour when stdout is a terminal and prints
// it verbatim otherwise.
func printMarkdown(w io.Writer, md string) error {
	if !isatty.IsTerminal(os.Stdout.Fd()) {
		_, err := fmt.Fprintln(w, md)
		return err
	}
	styled, err := glamour.Render(md, "dark")
	if err != nil {
		return err
	}
	_, err = fmt.Fprint(w, styled)
	return err
}

func printStructured(w io.Writer, format string, v interface{}) error {
	switch format {
	case "json":
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(v)
	case "yaml":
		enc := yaml.NewEncoder(w)
		defer func() { _ = enc.Close() }()
		return enc.Encode(v)
	default:
		return errors.Errorf("unknown output format %q", format)
	}
}
