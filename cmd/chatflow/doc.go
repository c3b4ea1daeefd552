// Package main implements the chatflow command line tool.
package main
