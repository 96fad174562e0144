package main

import (
    "log"

    "github.com/spf13/cobra"

    platformcli "github.com/amirimatin/go-platform/pkg/cli"
)

func main() {
    if err := newRoot().Execute(); err != nil {
        log.Fatal(err)
    }
}

func newRoot() *cobra.Command {
    root := &cobra.Command{
        Use:           "platformctl",
        Short:         "platform node health and process launch CLI",
        SilenceUsage:  true,
        SilenceErrors: true,
    }
    platformcli.AddAll(root)
    return root
}
