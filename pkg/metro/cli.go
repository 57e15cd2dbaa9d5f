package metro

import (
	"errors"
	"fmt"
	"strings"

	"github.com/urfave/cli/v2"
)

func RegisterCLI() *cli.Command {
	return &cli.Command{
		Name:      "which-platform",
		Usage:     "Show which platform to catch a train from to reach a destination",
		ArgsUsage: "FROM TO",
		Action: func(c *cli.Context) error {
			if c.NArg() != 2 {
				return errors.New("from and to station codes are required")
			}

			from := strings.ToUpper(c.Args().Get(0))
			to := strings.ToUpper(c.Args().Get(1))

			platform, err := WhichPlatform(from, to)
			if err != nil {
				return fmt.Errorf("%s to %s: %w", from, to, err)
			}

			fmt.Fprintf(c.App.Writer, "%s to %s: platform %s\n", from, to, platform)

			return nil
		},
	}
}
