package main

import (
	"os"
	"path/filepath"
	"regexp"
	"slices"
	"strings"
	"testing"

	"github.com/spf13/cobra"

	"clipper/internal/config"
)

var (
	commandFence  = regexp.MustCompile("(?s)## Commands.*?```bash\n(.*?)```")
	configKeyList = regexp.MustCompile("(?s)Supported config keys:\n\n?((?:- `[^`]+`[^\n]*\n)+)")
	backticked    = regexp.MustCompile("`([^`]+)`")
)

func readme(t *testing.T) string {
	t.Helper()
	data, err := os.ReadFile(filepath.Join("..", "..", "README.md"))
	if err != nil {
		t.Fatalf("read README.md: %v", err)
	}
	return string(data)
}

// documentedCommands returns the subcommand words of each "clipper ..." line
// up to the first argument placeholder or flag.
func documentedCommands(doc string) []string {
	m := commandFence.FindStringSubmatch(doc)
	if m == nil {
		return nil
	}
	var paths []string
	for _, line := range strings.Split(m[1], "\n") {
		fields := strings.Fields(line)
		if len(fields) < 2 || fields[0] != "clipper" {
			continue
		}
		var words []string
		for _, f := range fields[1:] {
			if strings.ContainsAny(f[:1], "<[-") {
				break
			}
			words = append(words, f)
		}
		if len(words) > 0 {
			paths = append(paths, strings.Join(words, " "))
		}
	}
	slices.Sort(paths)
	return slices.Compact(paths)
}

func leafCommands(cmd *cobra.Command, prefix string) []string {
	var out []string
	for _, child := range cmd.Commands() {
		if child.Hidden || child.Name() == "help" || child.Name() == "completion" {
			continue
		}
		path := strings.TrimSpace(prefix + " " + child.Name())
		if child.HasSubCommands() {
			out = append(out, leafCommands(child, path)...)
			continue
		}
		out = append(out, path)
	}
	return out
}

func TestReadmeListsEveryCommand(t *testing.T) {
	documented := documentedCommands(readme(t))
	if len(documented) == 0 {
		t.Fatal("no commands found in README Commands section")
	}
	cfg := config.Default()
	actual := leafCommands(newRootCmd(&cfg), "")
	slices.Sort(actual)
	if !slices.Equal(documented, actual) {
		t.Fatalf("README commands differ from CLI\nREADME: %v\nCLI:    %v", documented, actual)
	}
}

func TestReadmeListsConfigKeysAndEnv(t *testing.T) {
	doc := readme(t)
	m := configKeyList.FindStringSubmatch(doc)
	if m == nil {
		t.Fatal("missing 'Supported config keys:' list in README")
	}
	var documented []string
	for _, line := range strings.Split(strings.TrimSpace(m[1]), "\n") {
		if key := backticked.FindStringSubmatch(line); key != nil {
			documented = append(documented, key[1])
		}
	}
	allowed := slices.Clone(config.AllowedKeys())
	slices.Sort(documented)
	slices.Sort(allowed)
	if !slices.Equal(documented, allowed) {
		t.Fatalf("README config keys differ\nREADME:  %v\nallowed: %v", documented, allowed)
	}

	for _, env := range []string{"CLIPPER_DB", "CLIPPER_DEFAULT_BACKEND", "CLIPPER_SCRATCH_DIR", logLevelEnvKey, "CLIPPER_CONFIG_DIR", "CLIPPER_TRUST_PROJECT_CONFIG"} {
		if !strings.Contains(doc, env) {
			t.Fatalf("README does not mention %s", env)
		}
	}
}
