package main

import (
	"io"
	"os"
)

type command interface {
	Run(args []string) int
}

type commandDeps struct {
	Stdout     io.Writer
	Stderr     io.Writer
	RunServe   func(args []string) int
	RunWatch   func(args []string, out io.Writer, errOut io.Writer) int
	RunExec    func(args []string, out io.Writer, errOut io.Writer) int
	RunVersion func(out io.Writer) int
}

func defaultCommandDeps() commandDeps {
	return commandDeps{
		Stdout:     os.Stdout,
		Stderr:     os.Stderr,
		RunServe:   runServe,
		RunWatch:   runWatch,
		RunExec:    runExec,
		RunVersion: runVersion,
	}
}

type serveCommand struct {
	deps commandDeps
}

func (c serveCommand) Run(args []string) int {
	return c.deps.RunServe(args)
}

type watchCommand struct {
	deps commandDeps
}

func (c watchCommand) Run(args []string) int {
	return c.deps.RunWatch(args, c.deps.Stdout, c.deps.Stderr)
}

type execCommand struct {
	deps commandDeps
}

func (c execCommand) Run(args []string) int {
	return c.deps.RunExec(args, c.deps.Stdout, c.deps.Stderr)
}

type versionCommand struct {
	deps commandDeps
}

func (c versionCommand) Run(args []string) int {
	return c.deps.RunVersion(c.deps.Stdout)
}

func resolveCommand(args []string, deps commandDeps) (command, []string) {
	if len(args) > 0 && args[0] == "watch" {
		return watchCommand{deps: deps}, args[1:]
	}
	if len(args) > 0 && args[0] == "run" {
		return execCommand{deps: deps}, args[1:]
	}
	if len(args) > 0 && args[0] == "version" {
		return versionCommand{deps: deps}, args[1:]
	}
	if len(args) > 0 && args[0] == "serve" {
		return serveCommand{deps: deps}, args[1:]
	}
	return serveCommand{deps: deps}, args
}
