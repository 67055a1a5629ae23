// Package main is the rentdesk command line client for the car rental
// backend.
package main

func main() {
	Execute()
}
