package main

import "github.com/meysamhadeli/repoaudit/cmd"

func main() {
	cmd.Execute()
}
