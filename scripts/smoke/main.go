// Command smoke probes a running API instance and verifies that every
// read endpoint answers with the expected status and envelope shape.
// It is meant for post-deploy checks, not for CI.
package main

import (
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"log"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"time"
)

type target struct {
	Path     string `json:"path"`
	Status   int    `json:"status"`
	Critical bool   `json:"critical"`
}

type targetsFile struct {
	Targets []target `json:"targets"`
}

type probe struct {
	Target   target
	Status   int
	Envelope bool
	Duration time.Duration
	Err      error
}

func main() {
	var (
		base        string
		token       string
		targetsPath string
		timeout     time.Duration
	)

	flag.StringVar(&base, "base", "http://localhost:8080", "API base URL")
	flag.StringVar(&token, "token", os.Getenv("SMOKE_TOKEN"), "Bearer token for authenticated routes")
	flag.StringVar(&targetsPath, "targets", filepath.Join("scripts", "smoke", "targets.json"), "Path to JSON targets file")
	flag.DurationVar(&timeout, "timeout", 5*time.Second, "HTTP client timeout")
	flag.Parse()

	targets, err := loadTargets(targetsPath)
	if err != nil {
		log.Fatalf("failed to load targets: %v", err)
	}

	client := &http.Client{Timeout: timeout}
	failed := 0

	for _, t := range targets {
		p := check(client, base, token, t)
		report(p)
		if t.Critical && (p.Err != nil || p.Status != t.Status || !p.Envelope) {
			failed++
		}
	}

	fmt.Printf("%d of %d critical probes failed\n", failed, len(targets))
	if failed > 0 {
		os.Exit(1)
	}
}

func loadTargets(path string) ([]target, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var file targetsFile
	if err := json.Unmarshal(data, &file); err != nil {
		return nil, err
	}
	if len(file.Targets) == 0 {
		return nil, fmt.Errorf("no targets defined in %s", path)
	}
	return file.Targets, nil
}

func check(client *http.Client, base, token string, tgt target) probe {
	p := probe{Target: tgt}

	path := tgt.Path
	if !strings.HasPrefix(path, "/") {
		path = "/" + path
	}
	req, err := http.NewRequest(http.MethodGet, strings.TrimRight(base, "/")+path, nil)
	if err != nil {
		p.Err = err
		return p
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	start := time.Now()
	resp, err := client.Do(req)
	p.Duration = time.Since(start)
	if err != nil {
		p.Err = err
		return p
	}
	defer resp.Body.Close()

	p.Status = resp.StatusCode
	body, err := io.ReadAll(resp.Body)
	if err != nil {
		p.Err = fmt.Errorf("read body: %w", err)
		return p
	}
	p.Envelope = hasEnvelope(resp, body)
	return p
}

// hasEnvelope reports whether the body matches the API response
// contract: a JSON object with a data or error key. Non-JSON bodies
// (health text, metrics, file downloads) pass unchecked.
func hasEnvelope(resp *http.Response, body []byte) bool {
	if !strings.Contains(resp.Header.Get("Content-Type"), "application/json") {
		return true
	}
	var envelope map[string]json.RawMessage
	if err := json.Unmarshal(body, &envelope); err != nil {
		return false
	}
	_, hasData := envelope["data"]
	_, hasErr := envelope["error"]
	return hasData || hasErr
}

func report(p probe) {
	mark := "ok"
	switch {
	case p.Err != nil:
		mark = fmt.Sprintf("error: %v", p.Err)
	case p.Status != p.Target.Status:
		mark = fmt.Sprintf("want status %d, got %d", p.Target.Status, p.Status)
	case !p.Envelope:
		mark = "malformed envelope"
	}
	fmt.Printf("%-40s %4d %8s  %s\n", p.Target.Path, p.Status, p.Duration.Round(time.Millisecond), mark)
}
