package cli

import (
	"encoding/json"
	"fmt"
	"io"
	"os"

	"github.com/mattn/go-isatty"
	"gopkg.in/yaml.v3"
)

const (
	formatYAML = "yaml"
	formatJSON = "json"
)

// format resolves the output flag. Terminals get yaml, pipes get json.
func (rt *session) format() (string, error) {
	switch rt.output {
	case formatYAML, formatJSON:
		return rt.output, nil
	case "":
		if f, ok := rt.opts.Out.(*os.File); ok && (isatty.IsTerminal(f.Fd()) || isatty.IsCygwinTerminal(f.Fd())) {
			return formatYAML, nil
		}
		return formatJSON, nil
	default:
		return "", fmt.Errorf("unknown output format %q", rt.output)
	}
}

func (rt *session) print(v any) error {
	format, err := rt.format()
	if err != nil {
		return err
	}
	return encode(rt.opts.Out, format, v)
}

// encode writes v using its json field names in either format.
func encode(w io.Writer, format string, v any) error {
	raw, err := json.Marshal(v)
	if err != nil {
		return err
	}
	if format == formatJSON {
		_, err = fmt.Fprintln(w, string(raw))
		return err
	}

	var generic any
	if err := json.Unmarshal(raw, &generic); err != nil {
		return err
	}
	enc := yaml.NewEncoder(w)
	enc.SetIndent(2)
	if err := enc.Encode(generic); err != nil {
		return err
	}
	return enc.Close()
}
