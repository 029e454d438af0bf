// Package beads implements the System B client: a per-repository,
// JSONL+SQLite tracker living inside a git worktree, fronted by the `bd`
// CLI. The core never talks to B's SQLite database directly (the shell CLI
// wrapper for System B is an out-of-scope external collaborator); instead it
// reads the on-disk `.beads/issues.jsonl` snapshot for bulk listing
// (cheap, lock-free) and shells out to `bd` for mutations, the same
// exec.Command/cmd.Dir/CombinedOutput pattern the teacher's own
// cmd/bd/doctor/git.go uses to drive git itself.
package beads

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"time"

	"github.com/oculairmedia/hvbsync/internal/types"
)

// Record is one line of `.beads/issues.jsonl`.
type Record struct {
	ID          string    `json:"id"`
	Title       string    `json:"title"`
	Description string    `json:"description"`
	Status      string    `json:"status"`
	Priority    string    `json:"priority"`
	Labels      []string  `json:"labels"`
	Parent      string    `json:"parent"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

// Client shells out to the `bd` CLI against a single repo worktree.
type Client struct {
	RepoPath string
	BinPath  string // defaults to "bd" on PATH
}

// NewClient builds a Client rooted at repoPath, the git worktree containing
// `.beads/`.
func NewClient(repoPath string) *Client {
	return &Client{RepoPath: repoPath, BinPath: "bd"}
}

func (c *Client) binPath() string {
	if c.BinPath == "" {
		return "bd"
	}
	return c.BinPath
}

// jsonlPath is the path to the JSONL stream owned by B's CLI.
func (c *Client) jsonlPath() string {
	return filepath.Join(c.RepoPath, ".beads", "issues.jsonl")
}

// ListAll reads the current on-disk snapshot of every issue record,
// tolerating a missing file (no B-side data yet) as an empty list rather
// than an error, since B-side absence is common and non-fatal (spec §7:
// "B-side errors are non-fatal by policy").
func (c *Client) ListAll(ctx context.Context) ([]Record, error) {
	f, err := os.Open(c.jsonlPath())
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, types.NewTrackerError(types.ErrKindTransient, "ListAll", fmt.Errorf("open issues.jsonl: %w", err))
	}
	defer func() { _ = f.Close() }()

	var records []Record
	scanner := bufio.NewScanner(f)
	scanner.Buffer(make([]byte, 0, 64*1024), 4*1024*1024)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}
		var rec Record
		if err := json.Unmarshal([]byte(line), &rec); err != nil {
			// A single malformed line (e.g. torn write mid-append) must not
			// abort the whole snapshot read.
			continue
		}
		records = append(records, rec)
	}
	if err := scanner.Err(); err != nil {
		return nil, types.NewTrackerError(types.ErrKindTransient, "ListAll", fmt.Errorf("scan issues.jsonl: %w", err))
	}
	return records, nil
}

// Get finds a single record by ID in the current snapshot.
func (c *Client) Get(ctx context.Context, id string) (*Record, error) {
	records, err := c.ListAll(ctx)
	if err != nil {
		return nil, err
	}
	for i := range records {
		if records[i].ID == id {
			return &records[i], nil
		}
	}
	return nil, nil
}

// FindByTitle returns the first record matching title exactly.
func (c *Client) FindByTitle(ctx context.Context, title string) (*Record, error) {
	records, err := c.ListAll(ctx)
	if err != nil {
		return nil, err
	}
	for i := range records {
		if records[i].Title == title {
			return &records[i], nil
		}
	}
	return nil, nil
}

// Create shells out to `bd create`, returning the new record's ID.
func (c *Client) Create(ctx context.Context, title, description, priority string) (string, error) {
	args := []string{"create", title, "-d", description}
	if priority != "" {
		args = append(args, "-p", priority)
	}
	out, err := c.run(ctx, args...)
	if err != nil {
		return "", err
	}
	id := strings.TrimSpace(string(out))
	if id == "" {
		return "", types.NewTrackerError(types.ErrKindTransient, "Create", fmt.Errorf("bd create returned no id"))
	}
	return id, nil
}

// Update shells out to `bd update` with the given field assignments.
func (c *Client) Update(ctx context.Context, id string, fields map[string]string) error {
	args := []string{"update", id}
	for k, v := range fields {
		args = append(args, "--"+k, v)
	}
	_, err := c.run(ctx, args...)
	return err
}

// Close shells out to `bd close`, recording reason as the close message.
func (c *Client) Close(ctx context.Context, id, reason string) error {
	args := []string{"close", id}
	if reason != "" {
		args = append(args, "-r", reason)
	}
	_, err := c.run(ctx, args...)
	return err
}

// SetParent shells out to `bd dep add` (parent=="" clears via `bd dep rm`).
func (c *Client) SetParent(ctx context.Context, id string, parent *string) error {
	if parent == nil || *parent == "" {
		_, err := c.run(ctx, "dep", "rm", id, "--parent")
		return err
	}
	_, err := c.run(ctx, "dep", "add", id, *parent, "--type", "parent-child")
	return err
}

// AddLabel / RemoveLabel shell out to `bd label`.
func (c *Client) AddLabel(ctx context.Context, id, label string) error {
	_, err := c.run(ctx, "label", "add", id, label)
	return err
}

func (c *Client) RemoveLabel(ctx context.Context, id, label string) error {
	_, err := c.run(ctx, "label", "rm", id, label)
	return err
}

// CommitChanges commits `.beads/` changes via git, matching spec §4.4 step 6
// ("Commit `.beads/` changes via B's commit activity, if any"). Grounded on
// the exec.Command/cmd.Dir pattern of cmd/bd/doctor/git.go.
func (c *Client) CommitChanges(ctx context.Context, message string) error {
	add := exec.CommandContext(ctx, "git", "add", ".beads/")
	add.Dir = c.RepoPath
	if out, err := add.CombinedOutput(); err != nil {
		return types.NewTrackerError(types.ErrKindTransient, "CommitChanges", fmt.Errorf("git add: %w: %s", err, out))
	}

	commit := exec.CommandContext(ctx, "git", "commit", "-m", message, "--", ".beads/")
	commit.Dir = c.RepoPath
	out, err := commit.CombinedOutput()
	if err != nil {
		if strings.Contains(string(out), "nothing to commit") {
			return nil
		}
		return types.NewTrackerError(types.ErrKindTransient, "CommitChanges", fmt.Errorf("git commit: %w: %s", err, out))
	}
	return nil
}

// run invokes the `bd` CLI against RepoPath, classifying a non-zero exit as
// Transient (spec §7: B-side/CLI errors are non-fatal by policy, but the
// caller still needs to know the op did not land).
func (c *Client) run(ctx context.Context, args ...string) ([]byte, error) {
	cmd := exec.CommandContext(ctx, c.binPath(), args...)
	cmd.Dir = c.RepoPath
	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr
	if err := cmd.Run(); err != nil {
		return nil, types.NewTrackerError(types.ErrKindTransient, strings.Join(args, " "), fmt.Errorf("bd %s: %w: %s", args[0], err, stderr.String()))
	}
	return stdout.Bytes(), nil
}
