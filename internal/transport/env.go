package transport

import (
	"fmt"
	"os"
	"os/exec"
	"strings"
)

// buildCommand constructs the exec.Cmd for a server config, optionally
// wrapping the command line in the platform shell.
func buildCommand(cfg Config) *exec.Cmd {
	if cfg.Shell {
		parts := append([]string{cfg.Command}, cfg.Args...)
		return shellCommand(strings.Join(parts, " "))
	}
	return exec.Command(cfg.Command, cfg.Args...)
}

// environ returns the host environment merged with the per-server overlay.
// Overlay values win on key collisions.
func environ(overlay map[string]string) []string {
	overrides := make([]string, 0, len(overlay))
	for k, v := range overlay {
		overrides = append(overrides, fmt.Sprintf("%s=%s", k, v))
	}
	return mergeEnvs(os.Environ(), overrides)
}

func mergeEnvs(baseEnvs, overrideEnvs []string) []string {
	envMap := make(map[string]string, len(baseEnvs))

	for _, e := range baseEnvs {
		parts := strings.SplitN(e, "=", 2)
		if len(parts) == 2 {
			envMap[parts[0]] = parts[1]
		}
	}

	for _, e := range overrideEnvs {
		parts := strings.SplitN(e, "=", 2)
		if len(parts) == 2 {
			envMap[parts[0]] = parts[1]
		}
	}

	result := make([]string, 0, len(envMap))
	for k, v := range envMap {
		result = append(result, fmt.Sprintf("%s=%s", k, v))
	}
	return result
}
