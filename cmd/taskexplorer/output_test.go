package main

import (
	"bytes"
	"encoding/json"
	"strings"
	"testing"

	"gopkg.in/yaml.v3"

	"github.com/ochairo/taskexplorer/internal/domain/entities"
	"github.com/ochairo/taskexplorer/internal/domain/services"
)

func sampleResult() *entities.ScanResult {
	initTask := entities.NewTask(1, "/sbin/init")
	initTask.PPID = 0
	initTask.Binary.IsTrusted = true

	shell := entities.NewTask(42, "/bin/sh")
	shell.PPID = 1
	shell.Arguments = []string{"/bin/sh", "-c", "sleep 100"}
	shell.Dylibs = []string{"/lib/libc.so.6"}
	shell.Files = []entities.Item{entities.NewOpenFileItem("/tmp/out.log", 3)}

	kthread := entities.NewTask(2, "")
	kthread.PPID = 0
	kthread.Command = "kthreadd"

	libc := entities.NewBinary("/lib/libc.so.6")
	libc.Hashes = &entities.Hashes{MD5: "aa", SHA1: "bb"}

	snap := &entities.Snapshot{
		Tasks:  []*entities.Task{initTask, kthread, shell},
		Dylibs: map[string]*entities.Binary{"/lib/libc.so.6": libc},
	}
	services.BuildTree(snap)

	return &entities.ScanResult{State: entities.ScanCompleted, Snapshot: snap}
}

func TestRender_JSON(t *testing.T) {
	var buf bytes.Buffer
	if err := render(&buf, "json", sampleResult(), 0); err != nil {
		t.Fatalf("render() error = %v", err)
	}

	var doc map[string]interface{}
	if err := json.Unmarshal(buf.Bytes(), &doc); err != nil {
		t.Fatalf("output is not JSON: %v", err)
	}
	if doc["state"] != "completed" {
		t.Errorf("state = %v", doc["state"])
	}
	tasks, _ := doc["tasks"].([]interface{})
	if len(tasks) != 2 {
		t.Errorf("got %d root tasks, want 2", len(tasks))
	}
}

func TestRender_YAMLSubtree(t *testing.T) {
	var buf bytes.Buffer
	if err := render(&buf, "yaml", sampleResult(), 42); err != nil {
		t.Fatalf("render() error = %v", err)
	}

	var doc map[string]interface{}
	if err := yaml.Unmarshal(buf.Bytes(), &doc); err != nil {
		t.Fatalf("output is not YAML: %v", err)
	}
	if doc["pid"] != 42 {
		t.Errorf("pid = %v, want 42", doc["pid"])
	}
	if !strings.Contains(buf.String(), "signedByApple") {
		t.Error("binary fields should use exported names")
	}
}

func TestRender_UnknownPID(t *testing.T) {
	var buf bytes.Buffer
	err := render(&buf, "json", sampleResult(), 9999)
	if err == nil || !strings.Contains(err.Error(), "not found") {
		t.Errorf("render() error = %v, want not found", err)
	}
}

func TestRender_Table(t *testing.T) {
	var buf bytes.Buffer
	if err := render(&buf, "table", sampleResult(), 0); err != nil {
		t.Fatalf("render() error = %v", err)
	}
	out := buf.String()

	for _, want := range []string{"init", "  sh", "[kthreadd]", "3 processes"} {
		if !strings.Contains(out, want) {
			t.Errorf("table output missing %q:\n%s", want, out)
		}
	}
}

func TestTableRow(t *testing.T) {
	doc := services.ExportSubtree(sampleResult(), 42)
	row := tableRow(doc, 1)

	want := []string{"42", "1", "  sh", "no", "1", "1", "0", "0"}
	if strings.Join(row, "|") != strings.Join(want, "|") {
		t.Errorf("tableRow() = %v, want %v", row, want)
	}
}
