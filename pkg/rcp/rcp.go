// Package rcp reads scheduling instances in the Patterson .rcp text format.
//
// The first non-blank line (task and resource counts) is ignored. The next
// line holds the resource capacities. Every further non-blank line is one
// task: its length, one cost per resource, the successor count (ignored) and
// the successor numbers. Tasks are numbered by their order in the file.
package rcp

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/kilianp07/rcpsp/core/model"
)

// ParseError identifies the offending line of an instance file.
type ParseError struct {
	Line int
	Msg  string
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("line %d: %s", e.Line, e.Msg)
}

// ReadFile parses the instance at path. The instance is named after the
// file's base name.
func ReadFile(path string) (model.Instance, error) {
	f, err := os.Open(path)
	if err != nil {
		return model.Instance{}, err
	}
	defer f.Close()
	return Read(f, filepath.Base(path))
}

// Read parses an instance from r and validates it.
func Read(r io.Reader, name string) (model.Instance, error) {
	inst := model.Instance{Name: name}
	sc := bufio.NewScanner(r)
	sc.Buffer(make([]byte, 64*1024), 1024*1024)
	line := 0

	next := func() (string, bool) {
		for sc.Scan() {
			line++
			if text := strings.TrimSpace(sc.Text()); text != "" {
				return text, true
			}
		}
		return "", false
	}

	if _, ok := next(); !ok {
		return inst, scanErr(sc, &ParseError{Line: line, Msg: "missing header line"})
	}
	caps, ok := next()
	if !ok {
		return inst, scanErr(sc, &ParseError{Line: line, Msg: "missing resource capacities"})
	}
	var err error
	if inst.ResourceCaps, err = ints(caps, line); err != nil {
		return inst, err
	}
	if len(inst.ResourceCaps) == 0 {
		return inst, &ParseError{Line: line, Msg: "no resources"}
	}
	numRes := len(inst.ResourceCaps)

	for {
		text, ok := next()
		if !ok {
			break
		}
		fields, err := ints(text, line)
		if err != nil {
			return inst, err
		}
		if len(fields) < numRes+1 {
			return inst, &ParseError{Line: line, Msg: fmt.Sprintf("expected length and %d resource costs, got %d fields", numRes, len(fields))}
		}
		task := model.Task{
			Number:        len(inst.Tasks) + 1,
			Length:        fields[0],
			ResourceCosts: fields[1 : numRes+1],
		}
		if len(fields) > numRes+2 {
			task.Successors = fields[numRes+2:]
		}
		inst.Tasks = append(inst.Tasks, task)
	}
	if err := sc.Err(); err != nil {
		return inst, err
	}
	if len(inst.Tasks) == 0 {
		return inst, &ParseError{Line: line, Msg: "no tasks"}
	}
	if err := inst.Validate(); err != nil {
		return inst, err
	}
	return inst, nil
}

func ints(text string, line int) ([]int, error) {
	fields := strings.Fields(text)
	out := make([]int, len(fields))
	for i, f := range fields {
		v, err := strconv.Atoi(f)
		if err != nil {
			return nil, &ParseError{Line: line, Msg: fmt.Sprintf("field %d: %q is not an integer", i+1, f)}
		}
		out[i] = v
	}
	return out, nil
}

func scanErr(sc *bufio.Scanner, fallback error) error {
	if err := sc.Err(); err != nil {
		return errors.Join(fallback, err)
	}
	return fallback
}
