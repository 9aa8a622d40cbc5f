// The main package for the civicingest executable.
package main

import "github.com/datopublico/civicingest/cmd"

func main() {
	cmd.Execute()
}
