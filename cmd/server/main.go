// Command server runs the quote board API and its maintenance commands.
package main

func main() {
	Execute()
}
