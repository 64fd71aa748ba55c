package heapscript_test

import (
	"bytes"
	"strings"
	"testing"

	"github.com/monoheap/monoheap/internal/heap"
	"github.com/monoheap/monoheap/internal/heap/hostmem"
	"github.com/monoheap/monoheap/internal/heapscript"
)

func newInterpreter(t *testing.T) (*heapscript.Interpreter, *bytes.Buffer) {
	t.Helper()

	h, err := heap.New(heap.Config{Strategy: hostmem.StrategySlice})
	if err != nil {
		t.Fatalf("heap.New: %v", err)
	}

	t.Cleanup(func() { _ = h.Close() })

	a := heap.NewAllocator(h)
	gc := heap.NewGC(h, a)

	var out bytes.Buffer

	return heapscript.New(h, a, gc, &out), &out
}

func TestBuildAppendAndDump(t *testing.T) {
	in, out := newInterpreter(t)

	// reg0 = array, reg1 = int32(1), reg2 = array after append,
	// reg3 = float64(2.5), reg4 = array after second append.
	script := strings.NewReader(`
array
int32 1
append 0 1
float64 2.5
append 2 3
dump
`)

	if err := in.Run(script); err != nil {
		t.Fatalf("Run: %v", err)
	}

	if !strings.Contains(out.String(), "ARRAY_S8") {
		t.Fatalf("dump output missing ARRAY_S8 entry:\n%s", out.String())
	}

	if !strings.Contains(out.String(), "reg[4]") {
		t.Fatalf("dump output missing register table:\n%s", out.String())
	}
}

func TestPushPopShiftRemove(t *testing.T) {
	in, _ := newInterpreter(t)

	script := strings.NewReader(`
array
int32 10
append 0 1
int32 20
append 2 3
int32 30
push 4 5
pop 6
shift 6
remove 6 0
`)

	if err := in.Run(script); err != nil {
		t.Fatalf("Run: %v", err)
	}
}

func TestSliceAndConcat(t *testing.T) {
	in, _ := newInterpreter(t)

	script := strings.NewReader(`
array
int32 1
append 0 1
int32 2
append 2 3
int32 3
append 4 5
slice 6 0 1
array
int32 9
append 8 9
concat 7 10
`)

	if err := in.Run(script); err != nil {
		t.Fatalf("Run: %v", err)
	}
}

func TestGCReportsCycle(t *testing.T) {
	in, out := newInterpreter(t)

	script := strings.NewReader("gc\n")
	if err := in.Run(script); err != nil {
		t.Fatalf("Run: %v", err)
	}

	if out.Len() == 0 {
		t.Fatal("gc command produced no output")
	}
}

func TestUnknownOperationReportsLineNumber(t *testing.T) {
	in, _ := newInterpreter(t)

	script := strings.NewReader("array\nbogus\n")

	err := in.Run(script)
	if err == nil {
		t.Fatal("expected an error for an unrecognized operation")
	}

	if !strings.Contains(err.Error(), "line 2") {
		t.Fatalf("error = %v, want it to mention line 2", err)
	}
}

func TestAppendRequiresArrayRegister(t *testing.T) {
	in, _ := newInterpreter(t)

	script := strings.NewReader("int32 1\nint32 2\nappend 0 1\n")

	err := in.Run(script)
	if err == nil {
		t.Fatal("expected an error: appending onto a non-array register")
	}

	if !strings.Contains(err.Error(), "does not hold an array") {
		t.Fatalf("error = %v, want it to mention the register is not an array", err)
	}
}

func TestInlineCommentIsStripped(t *testing.T) {
	in, _ := newInterpreter(t)

	script := strings.NewReader("array  # build the list\nint32 1  # first element\n")

	if err := in.Run(script); err != nil {
		t.Fatalf("Run: %v", err)
	}
}
