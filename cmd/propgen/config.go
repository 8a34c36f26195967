package main

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"reflect"
	"strings"
	"unicode"

	"github.com/goccy/go-json"
	toml "github.com/pelletier/go-toml"
	yaml "gopkg.in/yaml.v3"
)

// ConfigCommand groups config-related subcommands.
type ConfigCommand struct {
	Init ConfigInit `cmd:"" help:"Write a configuration template with the default options."`
}

// ConfigInit writes a config file that the loaders read back.
type ConfigInit struct {
	Format string `arg:"" optional:"" help:"Template format." enum:"json,yaml,yml,toml" default:"yaml"`
	Output string `help:"Destination file. Defaults to propgen.<format> in the working directory." type:"path" short:"o"`
	Force  bool   `help:"Overwrite an existing file."`
}

func (c *ConfigInit) Run() error {
	format := normalizeFormat(c.Format)
	if format == "" {
		return fmt.Errorf("unsupported format: %s", c.Format)
	}

	dest := c.Output
	if dest == "" {
		dest = "propgen." + format
	}
	if !c.Force {
		if _, err := os.Stat(dest); err == nil {
			return errors.New("destination exists; use --force to overwrite")
		}
	}

	data, err := renderTemplate(format)
	if err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(dest), 0755); err != nil {
		return err
	}
	if err := os.WriteFile(dest, data, 0644); err != nil {
		return err
	}
	fmt.Fprintf(stdout, "wrote %s\n", dest)
	return nil
}

func normalizeFormat(f string) string {
	switch strings.ToLower(f) {
	case "json":
		return "json"
	case "yaml", "yml":
		return "yaml"
	case "toml":
		return "toml"
	default:
		return ""
	}
}

// renderTemplate serializes the default options keyed the way each loader
// looks flags up: kong's JSON resolver wants underscores, the YAML and TOML
// loaders want the flag name as is.
func renderTemplate(format string) ([]byte, error) {
	sep := "-"
	if format == "json" {
		sep = "_"
	}
	root := buildMapFromValue(reflect.ValueOf(defaultOptions()), "", sep)
	for k, v := range buildMapFromValue(reflect.ValueOf(LogOptions{Level: "info", Format: "auto"}), "log-", sep) {
		root[k] = v
	}

	switch format {
	case "json":
		data, err := json.MarshalIndent(root, "", "  ")
		if err != nil {
			return nil, err
		}
		return append(data, '\n'), nil
	case "yaml":
		return yaml.Marshal(root)
	default:
		return toml.Marshal(root)
	}
}

func buildMapFromValue(v reflect.Value, prefix, sep string) map[string]any {
	t := v.Type()
	out := map[string]any{}
	for i := 0; i < t.NumField(); i++ {
		f := t.Field(i)
		if !f.IsExported() || f.Tag.Get("kong") == "-" {
			continue
		}
		name := f.Tag.Get("name")
		if name == "" {
			name = flagName(f.Name)
		}
		key := strings.ReplaceAll(prefix+name, "-", sep)

		fv := v.Field(i)
		switch fv.Kind() {
		case reflect.Slice:
			items := make([]any, fv.Len())
			for j := range items {
				items[j] = fv.Index(j).Interface()
			}
			out[key] = items
		default:
			out[key] = fv.Interface()
		}
	}
	return out
}

// flagName converts a field name to kong's default flag name:
// "SourceGlob" becomes "source-glob".
func flagName(field string) string {
	var b strings.Builder
	runes := []rune(field)
	for i, r := range runes {
		if unicode.IsUpper(r) {
			if i > 0 && (unicode.IsLower(runes[i-1]) || i+1 < len(runes) && unicode.IsLower(runes[i+1])) {
				b.WriteByte('-')
			}
			r = unicode.ToLower(r)
		}
		b.WriteRune(r)
	}
	return b.String()
}
