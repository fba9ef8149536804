package config

import (
	"bytes"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"strings"
	"text/template"
)

var templateFuncs = template.FuncMap{
	"env":     os.Getenv,
	"exec":    execLine,
	"default": defaultValue,
}

// expand renders value as a template with the env, exec and default
// functions. Values without template actions are returned untouched.
func expand(value string) (string, error) {
	if !strings.Contains(value, "{{") {
		return value, nil
	}

	tmpl, err := template.New("config_value").Funcs(templateFuncs).Parse(value)
	if err != nil {
		return "", fmt.Errorf("template.Parse: %w", err)
	}

	var out bytes.Buffer
	if err := tmpl.Execute(&out, nil); err != nil {
		return "", fmt.Errorf("tmpl.Execute: %w", err)
	}

	return out.String(), nil
}

// expandMap expands every value of m in place.
func expandMap(m map[string]string) error {
	for key, value := range m {
		ex, err := expand(value)
		if err != nil {
			return fmt.Errorf("%s: %w", key, err)
		}
		m[key] = ex
	}
	return nil
}

// execLine runs a command and returns its trimmed stdout. Lines with a pipe
// go through the shell.
func execLine(line string) (string, error) {
	var cmd *exec.Cmd
	if strings.Contains(line, " | ") {
		cmd = exec.Command("sh", "-c", line)
	} else {
		fields := strings.Fields(line)
		if len(fields) < 1 {
			return "", errors.New("no command provided")
		}
		cmd = exec.Command(fields[0], fields[1:]...)
	}

	out, err := cmd.Output()
	return strings.TrimSpace(string(out)), err
}

// defaultValue is used as {{ env "X" | default "y" }}.
func defaultValue(def, value string) string {
	if value == "" {
		return def
	}
	return value
}
