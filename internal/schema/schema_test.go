package schema

import (
	"testing"

	"github.com/spf13/cobra"
)

func testTree() *cobra.Command {
	root := &cobra.Command{Use: "missions"}
	group := &cobra.Command{Use: "routes", Short: "route cmds"}
	leaf := &cobra.Command{Use: "recommend", Short: "rank candidates", RunE: func(*cobra.Command, []string) error { return nil }}
	leaf.Flags().String("from", "", "source chain")
	leaf.Flags().Bool("all", false, "return all")
	_ = leaf.MarkFlagRequired("from")
	group.AddCommand(leaf)
	root.AddCommand(group)
	return root
}

func TestBuildSubcommand(t *testing.T) {
	doc, err := Build(testTree(), "routes recommend")
	if err != nil {
		t.Fatalf("Build failed: %v", err)
	}
	if doc.Command.Path != "missions routes recommend" || !doc.Command.Runnable {
		t.Fatalf("unexpected command: %+v", doc.Command)
	}
	if len(doc.Command.Flags) != 2 || doc.Command.Flags[0].Name != "all" {
		t.Fatalf("expected sorted flags, got %+v", doc.Command.Flags)
	}
	if !doc.Command.Flags[1].Required || doc.Command.Flags[0].Required {
		t.Fatalf("unexpected required markers: %+v", doc.Command.Flags)
	}
	if len(doc.ExitCodes) != 0 {
		t.Fatal("exit codes are only listed at the root")
	}
}

func TestBuildRootListsExitCodes(t *testing.T) {
	doc, err := Build(testTree(), "")
	if err != nil {
		t.Fatalf("Build failed: %v", err)
	}
	if len(doc.Command.Subcommands) != 1 || doc.Command.Runnable {
		t.Fatalf("unexpected root: %+v", doc.Command)
	}
	found := false
	for _, c := range doc.ExitCodes {
		if c.Code == 22 && c.Type == "hash_conflict" {
			found = true
		}
	}
	if !found {
		t.Fatalf("expected hash_conflict exit code, got %+v", doc.ExitCodes)
	}
}

func TestBuildUnknownPath(t *testing.T) {
	if _, err := Build(testTree(), "routes nope"); err == nil {
		t.Fatal("expected unknown command error")
	}
}
