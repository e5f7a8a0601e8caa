package main

import "github.com/fatih/color"

var (
	bold      = color.New(color.Bold).SprintFunc()
	boldGreen = color.New(color.FgGreen, color.Bold).SprintFunc()
	cyan      = color.New(color.FgCyan).SprintFunc()
	gray      = color.New(color.FgHiBlack).SprintFunc()
	red       = color.New(color.FgRed).SprintFunc()
)
