// Package main provides framectl, a headless tool for frame documents and
// scripts.
//
// Usage:
//
//	framectl show [-demo] [file]            Print a hierarchy with every transform view
//	framectl eval [-o out] script.frames    Run a script and write its document
//	framectl convert in.json out.yaml       Re-encode a document
//	framectl validate file...               Check documents and scripts
//	framectl watch file                     Reprint a document whenever it changes
package main

import (
	"fmt"
	"io"
	"os"
)

const usage = `framectl - inspect and convert reference-frame hierarchies

Usage:
  framectl <command> [options] [args]

Commands:
  show        Print a hierarchy: local and world transforms of every frame
  eval        Evaluate a frame script and write the resulting document
  convert     Convert a document between JSON and YAML
  validate    Check that documents and scripts form a single valid tree
  watch       Print a document again each time the file changes
  config      Print the effective settings as YAML
  help        Show this help message

Inputs ending in .frames or .lisp are scripts; .json, .yaml and .yml are
documents.

Examples:
  framectl show -demo
  framectl show examples/robot_arm.frames
  framectl eval -o arm.yaml examples/robot_arm.frames
  framectl convert arm.yaml arm.json
  framectl validate arm.json other.yaml
  framectl watch arm.yaml
`

func main() {
	if len(os.Args) < 2 {
		fmt.Print(usage)
		os.Exit(1)
	}
	if err := run(os.Args[1], os.Args[2:], os.Stdout); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

func run(command string, args []string, out io.Writer) error {
	switch command {
	case "show":
		return runShow(args, out)
	case "eval":
		return runEval(args, out)
	case "convert":
		return runConvert(args, out)
	case "validate":
		return runValidate(args, out)
	case "watch":
		return runWatch(args, out)
	case "config":
		return runConfig(args, out)
	case "help", "-h", "--help":
		fmt.Fprint(out, usage)
		return nil
	default:
		return fmt.Errorf("unknown command: %s", command)
	}
}
