package cli

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/resinkit/resinkit-go/core"
)

// storeCallLog writes the calls of one query run as a json document.
func storeCallLog(path string, calls []*core.Call) error {
	b, err := json.MarshalIndent(calls, "", "  ")
	if err != nil {
		return fmt.Errorf("json.MarshalIndent: %w", err)
	}

	file, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("os.Create: %w", err)
	}
	defer file.Close()

	if _, err := file.Write(b); err != nil {
		return fmt.Errorf("file.Write: %w", err)
	}

	return nil
}
