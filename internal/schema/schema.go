// Package schema describes the command tree so agents and scripts can
// discover commands, flags and exit codes without parsing help text.
package schema

import (
	"sort"
	"strings"

	clierr "github.com/Ronit-Raj9/chainlink-chromion-hackathon-sub001/internal/errors"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
)

type Command struct {
	Path        string    `json:"path"`
	Use         string    `json:"use"`
	Short       string    `json:"short"`
	Runnable    bool      `json:"runnable"`
	Flags       []Flag    `json:"flags,omitempty"`
	Subcommands []Command `json:"subcommands,omitempty"`
}

type Flag struct {
	Name     string `json:"name"`
	Type     string `json:"type"`
	Usage    string `json:"usage"`
	Default  string `json:"default,omitempty"`
	Required bool   `json:"required,omitempty"`
}

type ExitCode struct {
	Code int    `json:"code"`
	Type string `json:"type"`
}

type Document struct {
	Command   Command    `json:"command"`
	ExitCodes []ExitCode `json:"exit_codes,omitempty"`
}

// Build resolves commandPath below root. The full document, including the
// exit code table, is only produced for the root itself.
func Build(root *cobra.Command, commandPath string) (Document, error) {
	cmd := root
	for _, part := range strings.Fields(commandPath) {
		next := child(cmd, part)
		if next == nil {
			return Document{}, clierr.New(clierr.CodeUsage, "command not found: "+strings.TrimSpace(commandPath))
		}
		cmd = next
	}
	doc := Document{Command: describe(cmd)}
	if cmd == root {
		for _, code := range clierr.Codes() {
			doc.ExitCodes = append(doc.ExitCodes, ExitCode{Code: int(code), Type: code.Kind()})
		}
	}
	return doc, nil
}

func child(cmd *cobra.Command, name string) *cobra.Command {
	for _, c := range cmd.Commands() {
		if c.Name() == name {
			return c
		}
		for _, alias := range c.Aliases {
			if alias == name {
				return c
			}
		}
	}
	return nil
}

func describe(cmd *cobra.Command) Command {
	out := Command{
		Path:     strings.TrimSpace(cmd.CommandPath()),
		Use:      cmd.Use,
		Short:    cmd.Short,
		Runnable: cmd.Runnable(),
		Flags:    flags(cmd),
	}
	for _, sub := range cmd.Commands() {
		if sub.Hidden || sub.Name() == "help" || sub.Name() == "completion" {
			continue
		}
		out.Subcommands = append(out.Subcommands, describe(sub))
	}
	return out
}

func flags(cmd *cobra.Command) []Flag {
	var items []Flag
	cmd.NonInheritedFlags().VisitAll(func(f *pflag.Flag) {
		if f.Name == "help" {
			return
		}
		_, required := f.Annotations[cobra.BashCompOneRequiredFlag]
		items = append(items, Flag{
			Name:     f.Name,
			Type:     f.Value.Type(),
			Usage:    f.Usage,
			Default:  f.DefValue,
			Required: required,
		})
	})
	sort.Slice(items, func(i, j int) bool { return items[i].Name < items[j].Name })
	return items
}
