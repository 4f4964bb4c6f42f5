package sources

import (
	"context"
	"path/filepath"
	"testing"
)

func TestTaskfileSource_Discover(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "Taskfile.yml")
	writeFile(t, path, `version: '3'
env:
  GOFLAGS: -mod=mod
tasks:
  build:
    desc: Build the binary
    cmds:
      - go build ./...
  serve:
    desc: Run the server
    dir: cmd/server
    deps: [build, {task: assets}]
    env:
      PORT: "8080"
  assets:
    cmds:
      - npm run assets
  helper:
    internal: true
`)

	tasks, err := NewTaskfileSource().Discover(context.Background(), path)
	if err != nil {
		t.Fatalf("Discover() error = %v", err)
	}
	m := byName(tasks)
	if len(m) != 3 {
		t.Fatalf("got %d tasks, want 3 (internal skipped)", len(m))
	}

	serve := m["serve"]
	if serve == nil {
		t.Fatal("serve task not found")
	}
	if serve.Command != "task" || serve.Args[0] != "serve" {
		t.Errorf("command = %q %v", serve.Command, serve.Args)
	}
	if serve.Cwd != filepath.Join(dir, "cmd/server") {
		t.Errorf("Cwd = %q", serve.Cwd)
	}
	if len(serve.DependsOn) != 2 || serve.DependsOn[0] != "build" || serve.DependsOn[1] != "assets" {
		t.Errorf("DependsOn = %v", serve.DependsOn)
	}
	if serve.Env["PORT"] != "8080" || serve.Env["GOFLAGS"] != "-mod=mod" {
		t.Errorf("Env = %v", serve.Env)
	}
	if serve.Definition["type"] != "taskfile" || serve.Definition["task"] != "serve" {
		t.Errorf("Definition = %v", serve.Definition)
	}
	if m["build"].Description != "Build the binary" {
		t.Errorf("build Description = %q", m["build"].Description)
	}
}
