// Package heapscript interprets the line-oriented op-script format that
// drives a heap without a full guest-language parser: one operation per
// line, each success appending a new entry to a numbered, append-only
// value register file. It exists because the guest language's AST parser
// and tree-walking interpreter are out of scope — this is the thin,
// programmatic substitute cmd/heapscript exposes as a CLI.
package heapscript

import (
	"bufio"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/monoheap/monoheap/internal/heap"
	"github.com/monoheap/monoheap/internal/heapdump"
)

// value is one register's contents: every value carries the mono that
// holds it, and array additionally carries the typed wrapper so
// array-only operations can reject a non-array operand with a clear
// message instead of a type panic.
type value struct {
	mono  *heap.Mono
	array *heap.ArrayWrapper
}

// Interpreter runs op-scripts against a single heap/allocator/GC triple.
// Registers are never overwritten or reclaimed: every successful operation
// other than gc and dump appends one (or two, for pop/shift/remove) new
// entries, so earlier results stay addressable for later lines and for "dump".
type Interpreter struct {
	heap  *heap.Heap
	alloc *heap.Allocator
	gc    *heap.GC
	out   io.Writer
	regs  []value
}

// New builds an interpreter over the given heap components. out receives
// "gc" and "dump" command output.
func New(h *heap.Heap, a *heap.Allocator, gc *heap.GC, out io.Writer) *Interpreter {
	return &Interpreter{heap: h, alloc: a, gc: gc, out: out}
}

// Run executes every non-blank, non-comment line of script in order,
// stopping at the first error. A line's error is wrapped with its 1-based
// line number.
func (in *Interpreter) Run(script io.Reader) error {
	scanner := bufio.NewScanner(script)
	lineNo := 0

	for scanner.Scan() {
		lineNo++

		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}

		if err := in.exec(line); err != nil {
			return fmt.Errorf("line %d: %q: %w", lineNo, line, err)
		}
	}

	return scanner.Err()
}

func (in *Interpreter) exec(line string) error {
	fields := strings.Fields(stripComment(line))
	op, args := fields[0], fields[1:]

	switch op {
	case "int32":
		return in.opInt32(args)
	case "float64":
		return in.opFloat64(args)
	case "array":
		return in.opArray(args)
	case "append":
		return in.opAppend(args)
	case "slice":
		return in.opSlice(args)
	case "concat":
		return in.opConcat(args)
	case "push":
		return in.opPush(args)
	case "pop":
		return in.opPop(args)
	case "shift":
		return in.opShift(args)
	case "remove":
		return in.opRemove(args)
	case "gc":
		return in.opGC(args)
	case "dump":
		return in.opDump(args)
	default:
		return fmt.Errorf("unrecognized operation %q", op)
	}
}

func stripComment(line string) string {
	if i := strings.Index(line, "#"); i >= 0 {
		return strings.TrimSpace(line[:i])
	}

	return line
}

// push appends v as a new register and returns its index.
func (in *Interpreter) push(v value) int {
	in.regs = append(in.regs, v)
	return len(in.regs) - 1
}

func (in *Interpreter) reg(arg string) (value, error) {
	i, err := strconv.Atoi(arg)
	if err != nil {
		return value{}, fmt.Errorf("parsing register index %q: %w", arg, err)
	}

	if i < 0 || i >= len(in.regs) {
		return value{}, fmt.Errorf("register %d out of range (have 0..%d)", i, len(in.regs)-1)
	}

	return in.regs[i], nil
}

func (in *Interpreter) arrayReg(arg string) (*heap.ArrayWrapper, error) {
	v, err := in.reg(arg)
	if err != nil {
		return nil, err
	}

	if v.array == nil {
		return nil, fmt.Errorf("register %s does not hold an array", arg)
	}

	return v.array, nil
}

func (in *Interpreter) opInt32(args []string) error {
	if len(args) != 1 {
		return fmt.Errorf("usage: int32 <value>")
	}

	n, err := strconv.ParseInt(args[0], 10, 32)
	if err != nil {
		return fmt.Errorf("parsing int32 literal: %w", err)
	}

	w, err := in.alloc.Int32(int32(n))
	if err != nil {
		return err
	}

	in.push(value{mono: w.Mono()})

	return nil
}

func (in *Interpreter) opFloat64(args []string) error {
	if len(args) != 1 {
		return fmt.Errorf("usage: float64 <value>")
	}

	f, err := strconv.ParseFloat(args[0], 64)
	if err != nil {
		return fmt.Errorf("parsing float64 literal: %w", err)
	}

	w, err := in.alloc.Float64(f)
	if err != nil {
		return err
	}

	in.push(value{mono: w.Mono()})

	return nil
}

func (in *Interpreter) opArray(args []string) error {
	if len(args) != 0 {
		return fmt.Errorf("usage: array")
	}

	arr, err := in.alloc.Array()
	if err != nil {
		return err
	}

	in.push(value{mono: arr.Mono(), array: arr})

	return nil
}

// opAppend appends the mono held at register <ref> to the array held at
// register <reg>, mutating it in place (the low-level construction
// primitive), then re-registers the array's post-append state.
func (in *Interpreter) opAppend(args []string) error {
	if len(args) != 2 {
		return fmt.Errorf("usage: append <reg> <ref>")
	}

	arr, err := in.arrayReg(args[0])
	if err != nil {
		return err
	}

	element, err := in.reg(args[1])
	if err != nil {
		return err
	}

	if err := arr.Append(element.mono); err != nil {
		return err
	}

	in.push(value{mono: arr.Mono(), array: arr})

	return nil
}

func (in *Interpreter) opSlice(args []string) error {
	if len(args) != 3 {
		return fmt.Errorf("usage: slice <reg> <from> <to>")
	}

	arr, err := in.arrayReg(args[0])
	if err != nil {
		return err
	}

	from, to, err := parseRange(args[1], args[2])
	if err != nil {
		return err
	}

	out, err := arr.Slice(from, to)
	if err != nil {
		return err
	}

	in.push(value{mono: out.Mono(), array: out})

	return nil
}

func (in *Interpreter) opConcat(args []string) error {
	if len(args) != 2 {
		return fmt.Errorf("usage: concat <reg-a> <reg-b>")
	}

	a, err := in.arrayReg(args[0])
	if err != nil {
		return err
	}

	b, err := in.arrayReg(args[1])
	if err != nil {
		return err
	}

	out, err := a.Concat(b)
	if err != nil {
		return err
	}

	in.push(value{mono: out.Mono(), array: out})

	return nil
}

func (in *Interpreter) opPush(args []string) error {
	if len(args) != 2 {
		return fmt.Errorf("usage: push <reg> <ref>")
	}

	arr, err := in.arrayReg(args[0])
	if err != nil {
		return err
	}

	element, err := in.reg(args[1])
	if err != nil {
		return err
	}

	out, err := arr.Push(element.mono)
	if err != nil {
		return err
	}

	in.push(value{mono: out.Mono(), array: out})

	return nil
}

func (in *Interpreter) opPop(args []string) error {
	if len(args) != 1 {
		return fmt.Errorf("usage: pop <reg>")
	}

	arr, err := in.arrayReg(args[0])
	if err != nil {
		return err
	}

	rest, removed, err := arr.Pop()
	if err != nil {
		return err
	}

	in.push(value{mono: rest.Mono(), array: rest})
	in.push(value{mono: removed})

	return nil
}

func (in *Interpreter) opShift(args []string) error {
	if len(args) != 1 {
		return fmt.Errorf("usage: shift <reg>")
	}

	arr, err := in.arrayReg(args[0])
	if err != nil {
		return err
	}

	rest, removed, err := arr.Shift()
	if err != nil {
		return err
	}

	in.push(value{mono: rest.Mono(), array: rest})
	in.push(value{mono: removed})

	return nil
}

func (in *Interpreter) opRemove(args []string) error {
	if len(args) != 2 {
		return fmt.Errorf("usage: remove <reg> <index>")
	}

	arr, err := in.arrayReg(args[0])
	if err != nil {
		return err
	}

	i, err := strconv.Atoi(args[1])
	if err != nil {
		return fmt.Errorf("parsing index: %w", err)
	}

	rest, removed, err := arr.Remove(i)
	if err != nil {
		return err
	}

	in.push(value{mono: rest.Mono(), array: rest})
	in.push(value{mono: removed})

	return nil
}

func (in *Interpreter) opGC(args []string) error {
	if len(args) != 0 {
		return fmt.Errorf("usage: gc")
	}

	if err := in.gc.Collect(); err != nil {
		fmt.Fprintf(in.out, "gc: %v\n", err)
		return nil
	}

	fmt.Fprintln(in.out, "gc: collected one cycle")

	return nil
}

// opDump prints the register file (one line per register: index, kind,
// address) followed by the full JSON heap snapshot.
func (in *Interpreter) opDump(args []string) error {
	if len(args) != 0 {
		return fmt.Errorf("usage: dump")
	}

	for i, v := range in.regs {
		fmt.Fprintf(in.out, "reg[%d] = %s @ %d\n", i, v.mono.Kind(), uint64(v.mono.Address()))
	}

	dump, err := heapdump.Snapshot(in.heap)
	if err != nil {
		return err
	}

	text, err := heapdump.Pretty(dump)
	if err != nil {
		return err
	}

	fmt.Fprintln(in.out, text)

	return nil
}

func parseRange(fromArg, toArg string) (int, int, error) {
	from, err := strconv.Atoi(fromArg)
	if err != nil {
		return 0, 0, fmt.Errorf("parsing <from>: %w", err)
	}

	to, err := strconv.Atoi(toArg)
	if err != nil {
		return 0, 0, fmt.Errorf("parsing <to>: %w", err)
	}

	return from, to, nil
}
