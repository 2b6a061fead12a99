// Command clockctl reads, sets and monitors the clock of a timekeeper MCU.
package main

func main() {
	Execute()
}
