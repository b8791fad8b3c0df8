// conflictctl scores, analyzes and simulates conflict conversations.
//
// Usage:
//
//	conflictctl repl [--user name]
//	conflictctl score "text" [--speaker self|counterpart] [--quick]
//	conflictctl session new|add|list
//	conflictctl analyze <session-id>... | --file turns.yaml [--pipeline]
//	conflictctl simulate <session-id> "draft"
//	conflictctl inspect [session-id] [--json]
//	conflictctl replay <fixture>... [--json]
//	conflictctl export <session-id> [--dir d] [--fixture out.yaml] | --import path
//	conflictctl profile <user-id>
//	conflictctl schema [name]
package main

import (
	"fmt"
	"os"
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
