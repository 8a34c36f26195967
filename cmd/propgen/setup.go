package main

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/goccy/go-json"
)

// serverName keys the propgen entry in client configs.
const serverName = "propgen"

// mcpClient is an MCP client configured through a JSON file in the project.
type mcpClient struct {
	ID          string
	DisplayName string
	// Marker is a directory whose presence means the client is in use.
	// Empty means always offered.
	Marker     string
	ConfigPath string
	// ServersKey is "servers" for VS Code, "mcpServers" elsewhere.
	ServersKey  string
	ExtraFields map[string]string
}

var clientRegistry = []mcpClient{
	{
		ID: "project", DisplayName: "Project (.mcp.json)",
		ConfigPath: ".mcp.json", ServersKey: "mcpServers",
	},
	{
		ID: "vscode", DisplayName: "VS Code",
		Marker: ".vscode", ConfigPath: filepath.Join(".vscode", "mcp.json"),
		ServersKey: "servers", ExtraFields: map[string]string{"type": "stdio"},
	},
	{
		ID: "cursor", DisplayName: "Cursor",
		Marker: ".cursor", ConfigPath: filepath.Join(".cursor", "mcp.json"),
		ServersKey: "mcpServers",
	},
}

// Replaceable for testing.
var statFunc = os.Stat

// SetupCmd registers `propgen serve` with the MCP clients used in a project.
type SetupCmd struct {
	Dir    string   `arg:"" optional:"" help:"Project directory. Defaults to the working directory." type:"path"`
	Client []string `help:"Only configure these clients: project, vscode, cursor." sep:","`
	Yes    bool     `help:"Configure every detected client without prompting." short:"y"`
	Binary string   `help:"Command the client runs." default:"propgen"`
}

func (c *SetupCmd) Run() error {
	dir := c.Dir
	if dir == "" {
		dir = "."
	}
	return executeSetup(stdin, stdout, dir, c)
}

type detectedClient struct {
	def          mcpClient
	configPath   string
	alreadySetup bool
}

// detectClients returns the clients in use under dir, in registry order.
func detectClients(dir string, only []string) []detectedClient {
	var out []detectedClient
	for _, def := range clientRegistry {
		if len(only) > 0 && !contains(only, def.ID) {
			continue
		}
		if def.Marker != "" {
			if _, err := statFunc(filepath.Join(dir, def.Marker)); err != nil {
				continue
			}
		}
		path := filepath.Join(dir, def.ConfigPath)
		out = append(out, detectedClient{
			def:          def,
			configPath:   path,
			alreadySetup: isAlreadyConfigured(path, def.ServersKey),
		})
	}
	return out
}

func contains(list []string, s string) bool {
	for _, v := range list {
		if v == s {
			return true
		}
	}
	return false
}

func isAlreadyConfigured(configPath, serversKey string) bool {
	data, err := os.ReadFile(configPath)
	if err != nil {
		return false
	}
	var config map[string]any
	if err := json.Unmarshal(data, &config); err != nil {
		return false
	}
	servers, ok := config[serversKey].(map[string]any)
	if !ok {
		return false
	}
	_, exists := servers[serverName]
	return exists
}

func serverEntry(binary string, extra map[string]string) map[string]any {
	entry := map[string]any{
		"command": binary,
		"args":    []any{"serve"},
	}
	for k, v := range extra {
		entry[k] = v
	}
	return entry
}

// mergeServerEntry adds the propgen entry under serversKey, keeping
// everything else. Returns nil, nil when the entry already exists.
func mergeServerEntry(existing []byte, serversKey, binary string, extra map[string]string) ([]byte, error) {
	config := make(map[string]any)
	if len(existing) > 0 {
		if err := json.Unmarshal(existing, &config); err != nil {
			return nil, fmt.Errorf("invalid JSON: %w", err)
		}
	}

	servers, ok := config[serversKey].(map[string]any)
	if !ok {
		servers = make(map[string]any)
	}
	if _, exists := servers[serverName]; exists {
		return nil, nil
	}
	servers[serverName] = serverEntry(binary, extra)
	config[serversKey] = servers

	out, err := json.MarshalIndent(config, "", "  ")
	if err != nil {
		return nil, err
	}
	return append(out, '\n'), nil
}

func configureClient(d detectedClient, binary string) error {
	if err := os.MkdirAll(filepath.Dir(d.configPath), 0755); err != nil {
		return fmt.Errorf("create directory: %w", err)
	}
	var existing []byte
	if data, err := os.ReadFile(d.configPath); err == nil {
		existing = data
	}
	merged, err := mergeServerEntry(existing, d.def.ServersKey, binary, d.def.ExtraFields)
	if err != nil {
		return err
	}
	if merged == nil {
		return nil
	}
	return os.WriteFile(d.configPath, merged, 0644)
}

// promptYesNo prints question and reads Y/n. Empty input and EOF are yes.
func promptYesNo(r *bufio.Reader, w io.Writer, question string) bool {
	fmt.Fprintf(w, "%s ", question)
	line, err := r.ReadString('\n')
	if err != nil && line == "" {
		return true
	}
	answer := strings.ToLower(strings.TrimSpace(line))
	return answer == "" || answer == "y" || answer == "yes"
}

func executeSetup(r io.Reader, w io.Writer, dir string, c *SetupCmd) error {
	binary := c.Binary
	if binary == "" {
		binary = "propgen"
	}
	detected := detectClients(dir, c.Client)
	if len(detected) == 0 {
		fmt.Fprintln(w, "No MCP clients detected.")
		return nil
	}

	in := bufio.NewReader(r)
	var failed int
	for _, d := range detected {
		if d.alreadySetup {
			fmt.Fprintf(w, "  = %s already configured (%s)\n", d.def.DisplayName, d.configPath)
			continue
		}
		if !c.Yes && !promptYesNo(in, w, fmt.Sprintf("Add propgen to %s (%s)? [Y/n]", d.def.DisplayName, d.configPath)) {
			fmt.Fprintf(w, "  - %s skipped\n", d.def.DisplayName)
			continue
		}
		if err := configureClient(d, binary); err != nil {
			fmt.Fprintf(w, "  ! %s: %v\n", d.def.DisplayName, err)
			failed++
			continue
		}
		fmt.Fprintf(w, "  + %s configured (%s)\n", d.def.DisplayName, d.configPath)
	}
	if failed > 0 {
		return fmt.Errorf("%d clients could not be configured", failed)
	}
	return nil
}
