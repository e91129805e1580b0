package probe

import (
	"context"
	"fmt"
	"os/exec"
	"runtime"
)

// Command is one external invocation used to answer a query.
type Command struct {
	Name string
	Args []string
}

// CommandTable maps queries to the commands that answer them.
type CommandTable map[Query]Command

var nvidiaSMICommands = CommandTable{
	QueryDriverVersion: {Name: "nvidia-smi", Args: []string{"--query-gpu=driver_version", "--format=csv,noheader,nounits"}},
	QueryCUDAVersion:   {Name: "nvidia-smi", Args: []string{"--query-gpu=cuda_version", "--format=csv,noheader,nounits"}},
	QueryCUDABanner:    {Name: "nvidia-smi"},
}

// WindowsCommands answers every query with wmic, cmd and nvidia-smi.
func WindowsCommands() CommandTable {
	table := CommandTable{
		QueryAdapters:    {Name: "wmic", Args: []string{"path", "win32_VideoController", "get", "Name,AdapterRAM", "/format:csv"}},
		QueryOSVersion:   {Name: "cmd", Args: []string{"/c", "ver"}},
		QueryCPUName:     {Name: "wmic", Args: []string{"cpu", "get", "name", "/format:value"}},
		QueryTotalMemory: {Name: "wmic", Args: []string{"computersystem", "get", "totalphysicalmemory", "/format:value"}},
	}
	for q, c := range nvidiaSMICommands {
		table[q] = c
	}
	return table
}

// UnixCommands only covers the NVIDIA and OS version queries. Adapter
// listing has no portable equivalent and is left to other backends.
func UnixCommands() CommandTable {
	table := CommandTable{
		QueryOSVersion: {Name: "uname", Args: []string{"-sr"}},
	}
	for q, c := range nvidiaSMICommands {
		table[q] = c
	}
	return table
}

// DefaultCommands returns the command table for the running platform.
func DefaultCommands() CommandTable {
	if runtime.GOOS == "windows" {
		return WindowsCommands()
	}
	return UnixCommands()
}

// CommandProbe answers queries by running external commands and returning
// their stdout. It imposes no timeout; pass a context with a deadline.
type CommandProbe struct {
	table CommandTable
}

// NewCommandProbe creates a probe over the given table.
func NewCommandProbe(table CommandTable) *CommandProbe {
	return &CommandProbe{table: table}
}

// Query runs the command registered for q.
func (p *CommandProbe) Query(ctx context.Context, q Query) (string, error) {
	c, ok := p.table[q]
	if !ok {
		return "", fmt.Errorf("%w: %s on %s", ErrUnsupportedQuery, q, runtime.GOOS)
	}

	cmd := exec.CommandContext(ctx, c.Name, c.Args...) // #nosec G204 -- commands come from a fixed table
	hideWindow(cmd)

	out, err := cmd.Output()
	if err != nil {
		return "", fmt.Errorf("%s failed: %w", c.Name, err)
	}
	return string(out), nil
}
