// Command fotara-cli agrupa tareas de operación sobre la integración JoFotara.
package main

func main() {
	Execute()
}
