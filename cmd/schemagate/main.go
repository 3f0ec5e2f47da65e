// Package main is the entry point for schemagate.
package main

func main() {
	Execute()
}
