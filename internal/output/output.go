// Package output renders query results for humans or machines.
package output

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/Atan-D-RP4/dpms/internal/display"
)

// FormatStatus renders the power state of the queried displays, one line
// per display in text mode, or a JSON array.
func FormatStatus(infos []display.Info, asJSON bool) (string, error) {
	if asJSON {
		return marshal(infos)
	}

	var b strings.Builder
	for _, info := range infos {
		fmt.Fprintf(&b, "%s: %s\n", info.Name, info.Power)
	}
	return b.String(), nil
}

// FormatList renders the display inventory. Verbose text mode adds
// description, make and model where known; JSON always carries them.
func FormatList(infos []display.Info, asJSON, verbose bool) (string, error) {
	if asJSON {
		return marshal(infos)
	}

	var b strings.Builder
	for _, info := range infos {
		fmt.Fprintf(&b, "%s (%s)\n", info.Name, info.Power)
		if !verbose {
			continue
		}
		if info.Description != "" {
			fmt.Fprintf(&b, "  Description: %s\n", info.Description)
		}
		if info.Make != "" {
			fmt.Fprintf(&b, "  Make: %s\n", info.Make)
		}
		if info.Model != "" {
			fmt.Fprintf(&b, "  Model: %s\n", info.Model)
		}
	}
	return b.String(), nil
}

func marshal(infos []display.Info) (string, error) {
	if infos == nil {
		infos = []display.Info{}
	}
	data, err := json.MarshalIndent(infos, "", "  ")
	if err != nil {
		return "", err
	}
	return string(data) + "\n", nil
}
