package main

import "github.com/gaurav-prasanna/parapipe/cmd"

func main() {
	cmd.Execute()
}
