package main

import (
	"encoding/json"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/olekukonko/tablewriter"
	"gopkg.in/yaml.v3"

	"github.com/ochairo/taskexplorer/internal/domain/entities"
	"github.com/ochairo/taskexplorer/internal/domain/services"
)

// render writes the scan result in the requested format. With pid > 0 only
// that process subtree is written.
func render(w io.Writer, format string, result *entities.ScanResult, pid int) error {
	var doc interface{}
	var roots []*entities.TaskDocument

	if pid > 0 {
		sub := services.ExportSubtree(result, pid)
		if sub == nil {
			return fmt.Errorf("pid %d not found in snapshot", pid)
		}
		doc = sub
		roots = []*entities.TaskDocument{sub}
	} else {
		full := services.ExportSnapshot(result)
		doc = full
		roots = full.Tasks
	}

	switch format {
	case "json":
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		if err := enc.Encode(doc); err != nil {
			return fmt.Errorf("failed to write JSON: %w", err)
		}
	case "yaml":
		enc := yaml.NewEncoder(w)
		enc.SetIndent(2)
		if err := enc.Encode(doc); err != nil {
			return fmt.Errorf("failed to write YAML: %w", err)
		}
		if err := enc.Close(); err != nil {
			return fmt.Errorf("failed to write YAML: %w", err)
		}
	case "table":
		renderTable(w, roots)
		snap := result.Snapshot
		fmt.Fprintf(w, "\n%d processes, %d shared libraries (%d analyses, %d cache hits), state=%s partial=%v\n",
			len(snap.Tasks), len(snap.Dylibs), snap.DylibStats.Analyses, snap.DylibStats.Hits, result.State, result.Partial)
	default:
		return fmt.Errorf("unknown format %q", format)
	}
	return nil
}

// renderTable prints a flat listing; names are indented by tree depth
func renderTable(w io.Writer, roots []*entities.TaskDocument) {
	table := tablewriter.NewWriter(w)
	table.SetHeader([]string{"PID", "PPID", "Name", "Trusted", "Untrusted Libs", "Files", "Sockets", "Issues"})
	table.SetAutoWrapText(false)
	table.SetBorder(false)
	table.SetAlignment(tablewriter.ALIGN_LEFT)

	var walk func(t *entities.TaskDocument, depth int)
	walk = func(t *entities.TaskDocument, depth int) {
		table.Append(tableRow(t, depth))
		for _, child := range t.Children {
			walk(child, depth+1)
		}
	}
	for _, root := range roots {
		walk(root, 0)
	}

	table.Render()
}

func tableRow(t *entities.TaskDocument, depth int) []string {
	name := t.Name
	trusted := "-"
	if t.Binary != nil {
		trusted = yesNo(t.Binary.IsTrusted)
	} else if name != "" {
		name = "[" + name + "]"
	}
	if name == "" {
		name = "?"
	}
	if t.CommandTrusted {
		trusted = "yes (command)"
	}

	untrusted := 0
	for _, d := range t.Dylibs {
		if !d.IsTrusted {
			untrusted++
		}
	}

	ppid := strconv.Itoa(t.PPID)
	if t.PPID == entities.UnknownPPID {
		ppid = "?"
	}

	return []string{
		strconv.Itoa(t.PID),
		ppid,
		strings.Repeat("  ", depth) + name,
		trusted,
		strconv.Itoa(untrusted),
		strconv.Itoa(len(t.Files)),
		strconv.Itoa(len(t.Connections)),
		strconv.Itoa(len(t.Diagnostics)),
	}
}

func yesNo(b bool) string {
	if b {
		return "yes"
	}
	return "no"
}
