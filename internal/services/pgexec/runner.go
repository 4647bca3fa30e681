// Package pgexec runs PostgreSQL client tools either natively or through the
// container runtime, behind a single Runner interface.
package pgexec

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"os"
	"os/exec"
	"strings"
)

// Runner invokes a client tool (psql, pg_dump) with per-invocation environment
// entries, optional piped stdin, and a destination for the tool's stdout.
// Credentials travel only in env, scoped to the single child process.
type Runner interface {
	Run(ctx context.Context, env []string, stdin io.Reader, stdout io.Writer, tool string, args ...string) error
}

// run is the shared execution path. stderr is buffered and folded into the
// returned error so dump output is never polluted by warnings.
func run(ctx context.Context, env []string, stdin io.Reader, stdout io.Writer, name string, args ...string) error {
	cmd := exec.CommandContext(ctx, name, args...)
	cmd.Env = append(os.Environ(), env...)
	cmd.Stdin = stdin
	if stdout == nil {
		stdout = io.Discard
	}
	cmd.Stdout = stdout

	var stderr bytes.Buffer
	cmd.Stderr = &stderr

	if err := cmd.Run(); err != nil {
		return fmt.Errorf("%s failed: %w, stderr: %s", name, err, strings.TrimSpace(stderr.String()))
	}
	return nil
}

// Native runs tools directly from PATH.
type Native struct{}

// Run executes the tool as a local child process.
func (Native) Run(ctx context.Context, env []string, stdin io.Reader, stdout io.Writer, tool string, args ...string) error {
	return run(ctx, env, stdin, stdout, tool, args...)
}

// DockerRun runs tools inside a throwaway container sharing the host network.
// Used for hosts without native client tools.
type DockerRun struct {
	Image string
}

// Run executes the tool via `docker run --rm -i --network host`. Env entries
// are forwarded by name only; values stay in the docker client's environment
// rather than the argv.
func (d DockerRun) Run(ctx context.Context, env []string, stdin io.Reader, stdout io.Writer, tool string, args ...string) error {
	dockerArgs := []string{"run", "--rm", "-i", "--network", "host"}
	for _, e := range env {
		name, _, _ := strings.Cut(e, "=")
		dockerArgs = append(dockerArgs, "-e", name)
	}
	dockerArgs = append(dockerArgs, d.Image, tool)
	dockerArgs = append(dockerArgs, args...)

	return run(ctx, env, stdin, stdout, "docker", dockerArgs...)
}

// DockerExec runs tools inside an already-running container, typically the
// migration target where the client tools are guaranteed to exist.
type DockerExec struct {
	Container string
}

// Run executes the tool via `docker exec -i`. Env forwarding works as in
// DockerRun: names on the argv, values inherited from the docker client.
func (d DockerExec) Run(ctx context.Context, env []string, stdin io.Reader, stdout io.Writer, tool string, args ...string) error {
	dockerArgs := []string{"exec", "-i"}
	for _, e := range env {
		name, _, _ := strings.Cut(e, "=")
		dockerArgs = append(dockerArgs, "-e", name)
	}
	dockerArgs = append(dockerArgs, d.Container, tool)
	dockerArgs = append(dockerArgs, args...)

	return run(ctx, env, stdin, stdout, "docker", dockerArgs...)
}

// HasNativeTools reports whether psql and pg_dump are both on PATH.
func HasNativeTools() bool {
	if _, err := exec.LookPath("psql"); err != nil {
		return false
	}
	if _, err := exec.LookPath("pg_dump"); err != nil {
		return false
	}
	return true
}
