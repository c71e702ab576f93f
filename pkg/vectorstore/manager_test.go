package vectorstore

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"testing"

	"github.com/jaffee/respcli/pkg/respcli"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestManagerCmd(t *testing.T) {
	ctx := context.Background()
	mem := NewMemory()
	docs, err := mem.CreateStore(ctx, "Project Docs")
	require.NoError(t, err)
	other, err := mem.CreateStore(ctx, "other")
	require.NoError(t, err)
	fid, err := mem.Register(ctx, "a.txt", []byte("abc"), "assistants")
	require.NoError(t, err)
	_, err = mem.Attach(ctx, docs.ID, fid)
	require.NoError(t, err)

	cmd := NewManagerCmd()
	cmd.Backend = "memory"
	cmd.AddService("memory", mem)
	cmd.SetPrompter(&respcli.ScriptedPrompter{Answers: []string{
		"1",
		"2", "project",
		"2", "zzz",
		"4", docs.ID,
		"5", docs.ID, fid,
		"4", docs.ID,
		"3", other.ID,
		"3", "vs_gone",
		"9",
		"6",
	}})
	stdout, stderr := &bytes.Buffer{}, &bytes.Buffer{}
	cmd.stdout, cmd.stderr = stdout, stderr

	require.NoError(t, cmd.Run())

	out := stdout.String()
	assert.Contains(t, out, "The total number of vector stores is 2")
	assert.Contains(t, out, "1. ID: vs_000001 - Name: Project Docs - Size: 1")
	assert.Contains(t, out, "Found 1 matching vector store(s):\n1. ID: vs_000001\n   Name: Project Docs\n   Files: 1\n")
	assert.Contains(t, out, "No vector stores found matching 'zzz'")
	assert.Contains(t, out, "1. ID: "+fid+" (completed)")
	assert.Contains(t, out, "Deleted file: "+fid)
	assert.Contains(t, out, "Deleted vector store: "+other.ID)
	assert.Contains(t, out, "Invalid choice. Please try again.")
	assert.Contains(t, out, "Exiting the manager.\nThank you for using Vector Store Manager!\n")
	assert.Contains(t, stderr.String(), "An error occurred: vector store 'vs_gone': not found")

	stores, err := mem.ListStores(ctx)
	require.NoError(t, err)
	require.Len(t, stores, 1)
	assert.Equal(t, 0, stores[0].FileCounts.Total)
}

func TestManagerCmdEOF(t *testing.T) {
	cmd := NewManagerCmd()
	cmd.Backend = "memory"
	cmd.AddService("memory", NewMemory())
	cmd.SetPrompter(&respcli.ScriptedPrompter{Answers: []string{"2"}})
	stdout := &bytes.Buffer{}
	cmd.stdout = stdout

	require.NoError(t, cmd.Run())
	assert.Contains(t, stdout.String(), "Gracefully shutting down...\nThank you for using Vector Store Manager!\n")
}

// interruptPrompter answers from a script and then reports Ctrl-C.
type interruptPrompter struct {
	respcli.ScriptedPrompter
}

func (p *interruptPrompter) Prompt(label string) (string, error) {
	line, err := p.ScriptedPrompter.Prompt(label)
	if err == io.EOF {
		return "", respcli.ErrInterrupt
	}
	return line, err
}

func TestManagerCmdInterrupt(t *testing.T) {
	for i, answers := range [][]string{{}, {"2"}, {"5", "vs_000001"}} {
		t.Run(fmt.Sprintf("%d", i), func(t *testing.T) {
			cmd := NewManagerCmd()
			cmd.Backend = "memory"
			cmd.AddService("memory", NewMemory())
			cmd.SetPrompter(&interruptPrompter{respcli.ScriptedPrompter{Answers: answers}})
			stdout, stderr := &bytes.Buffer{}, &bytes.Buffer{}
			cmd.stdout, cmd.stderr = stdout, stderr

			require.NoError(t, cmd.Run())
			assert.Contains(t, stdout.String(), "Gracefully shutting down...\nThank you for using Vector Store Manager!\n")
			assert.Empty(t, stderr.String())
		})
	}
}

func TestTeardownCmd(t *testing.T) {
	ctx := context.Background()
	mem := NewMemory()
	s, err := mem.CreateStore(ctx, "docs")
	require.NoError(t, err)

	newCmd := func(answers ...string) (*TeardownCmd, *bytes.Buffer) {
		cmd := NewTeardownCmd()
		cmd.Backend = "memory"
		cmd.AddService("memory", mem)
		cmd.SetPrompter(&respcli.ScriptedPrompter{Answers: answers})
		buf := &bytes.Buffer{}
		cmd.stdout = buf
		return cmd, buf
	}

	cmd, _ := newCmd("abc123")
	err = cmd.Run()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "must start with 'vs_'")

	cmd, buf := newCmd(s.ID)
	require.NoError(t, cmd.Run())
	assert.Equal(t, "Successfully deleted vector store with ID: "+s.ID+"\n", buf.String())

	cmd, _ = newCmd()
	cmd.StoreID = s.ID
	require.ErrorIs(t, cmd.Run(), ErrNotFound)
}
