package fmterr

import (
	"context"
	"fmt"
	"io"
	"strings"
	"sync"
)

// Output is the user-visible log of formatting activity.
type Output interface {
	AppendLine(ctx context.Context, line string)
	// Show reveals the output to the user.
	Show(ctx context.Context)
	Clear(ctx context.Context)
}

// WriterOutput writes each line to an io.Writer. Show and Clear have no
// effect.
type WriterOutput struct {
	mu sync.Mutex
	w  io.Writer
}

func NewWriterOutput(w io.Writer) *WriterOutput {
	return &WriterOutput{w: w}
}

func (wo *WriterOutput) AppendLine(_ context.Context, line string) {
	wo.mu.Lock()
	defer wo.mu.Unlock()
	fmt.Fprintln(wo.w, line)
}

func (wo *WriterOutput) Show(context.Context)  {}
func (wo *WriterOutput) Clear(context.Context) {}

// BufferOutput keeps lines in memory.
type BufferOutput struct {
	mu     sync.Mutex
	lines  []string
	shown  int
	clears int
}

func (bo *BufferOutput) AppendLine(_ context.Context, line string) {
	bo.mu.Lock()
	defer bo.mu.Unlock()
	bo.lines = append(bo.lines, line)
}

func (bo *BufferOutput) Show(context.Context) {
	bo.mu.Lock()
	defer bo.mu.Unlock()
	bo.shown++
}

func (bo *BufferOutput) Clear(context.Context) {
	bo.mu.Lock()
	defer bo.mu.Unlock()
	bo.lines = nil
	bo.clears++
}

func (bo *BufferOutput) Lines() []string {
	bo.mu.Lock()
	defer bo.mu.Unlock()
	return append([]string(nil), bo.lines...)
}

func (bo *BufferOutput) String() string {
	return strings.Join(bo.Lines(), "\n")
}

// Shown returns how many times the output was revealed.
func (bo *BufferOutput) Shown() int {
	bo.mu.Lock()
	defer bo.mu.Unlock()
	return bo.shown
}

func (bo *BufferOutput) Clears() int {
	bo.mu.Lock()
	defer bo.mu.Unlock()
	return bo.clears
}
