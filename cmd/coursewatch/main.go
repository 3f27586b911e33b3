// Command coursewatch watches a Blackboard portal and mails what changed.
package main

import "github.com/mesh-intelligence/coursewatch/internal/cli"

func main() {
	cli.Execute()
}
