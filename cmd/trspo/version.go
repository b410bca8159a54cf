package main

import (
	"runtime"

	"github.com/urfave/cli/v2"

	"github.com/zavalska7893/trspo"
)

// VersionResponse is the response for the version command.
type VersionResponse struct {
	Version   string `json:"version" yaml:"version"`
	Commit    string `json:"commit" yaml:"commit"`
	GoVersion string `json:"go_version" yaml:"go_version"`
}

func versionCommand() *cli.Command {
	return &cli.Command{
		Name:  "version",
		Usage: "Show version information",
		Flags: outputFlags(),
		Action: func(c *cli.Context) error {
			r, err := newRenderer(c)
			if err != nil {
				return cli.Exit(err.Error(), exitInvalidInput)
			}
			return exitError(r.Render(VersionResponse{
				Version:   trspo.Version,
				Commit:    commit,
				GoVersion: runtime.Version(),
			}))
		},
	}
}
