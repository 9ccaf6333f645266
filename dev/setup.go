package main

import (
	"fmt"
	"log/slog"
	"os"
	"os/exec"

	devenv "spavail-backend/dev/env"
)

func cmd(name string, args ...string) {
	cmd := exec.Command(name, args...)
	cmd.Stdout = os.Stdout
	cmd.Stderr = os.Stderr

	fullCmd := name
	for _, a := range args {
		fullCmd += " "
		fullCmd += a
	}

	fmt.Printf("$ %s\n", fullCmd)
	err := cmd.Run()
	if err != nil {
		os.Exit(1)
	}
}

// CreateLocalStack starts redis and an otel collector for local runs.
func CreateLocalStack() error {
	err := os.Chdir("dev/local_stack")
	if err != nil {
		return err
	}
	cmd("docker", "compose", "up", "-d")
	return os.Chdir("../..")
}

const liveTemplate = `{
	// used by tests that reach the real booking platform, they are skipped
	// while this file is incomplete
	base_url: "",
	subscription_key: "",
	location_id: 0,
	page_url: "",
	timezone: "America/Los_Angeles",
	browser_exec_path: "",
}
`

const telemetryTemplate = `{
	otlp: {
		traces: { grpc_endpoint: "localhost:4317" },
		metrics: { grpc_endpoint: "localhost:4317" },
	},
}
`

func writeTemplate(path, contents string) error {
	resolved, err := devenv.ResolvePath(path)
	if err != nil {
		return err
	}
	_, err = os.Stat(resolved)
	if err == nil {
		fmt.Println("already exists", resolved)
		return nil
	}
	fmt.Println("writing", resolved)
	return os.WriteFile(resolved, []byte(contents), 0644)
}

func CreateStateTemplates() error {
	err := writeTemplate("<dev_state>/"+devenv.LiveConfigFile, liveTemplate)
	if err != nil {
		return err
	}
	return writeTemplate("<dev_state>/telemetry.json5", telemetryTemplate)
}

func PrintConfigLocations() {
	slog.Info("live tests read dev/.state/live.json5, fill it in to run them. copy dev/.state/telemetry.json5 next to config.json5 to export traces to the local collector.")
}
