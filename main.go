// The main package for the advanced-web-crawler executable.
package main

import (
	"github.com/itisuniqueofficial/advanced-web-crawler/cmd"
)

func main() {
	cmd.Execute()
}
