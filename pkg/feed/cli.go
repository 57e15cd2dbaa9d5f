package feed

import (
	"errors"
	"fmt"
	"sort"

	"github.com/kr/pretty"
	"github.com/urfave/cli/v2"
)

func RegisterCLI() []*cli.Command {
	apiBaseFlag := &cli.StringFlag{
		Name:    "api-base",
		Value:   DefaultAPIBase,
		Usage:   "base URL of the metro RTI API",
		EnvVars: []string{"METRO_API_BASE"},
	}

	return []*cli.Command{
		{
			Name:  "stations",
			Usage: "List the stations and platforms known to the feed",
			Flags: []cli.Flag{
				apiBaseFlag,
				&cli.BoolFlag{
					Name:  "platforms",
					Usage: "also print the platform records of every station",
				},
			},
			Action: func(c *cli.Context) error {
				client := NewClient(c.String("api-base"), 0)

				stations, err := client.GetStations(c.Context)
				if err != nil {
					return err
				}

				codes := make([]string, 0, len(stations))
				for code := range stations {
					codes = append(codes, code)
				}
				sort.Strings(codes)

				var platforms map[string][]PlatformRecord
				if c.Bool("platforms") {
					if platforms, err = client.GetPlatforms(c.Context); err != nil {
						return err
					}
				}

				for _, code := range codes {
					fmt.Fprintf(c.App.Writer, "%s\t%s\n", code, stations[code])
					if platforms != nil {
						pretty.Println(platforms[code])
					}
				}

				return nil
			},
		},
		{
			Name:      "times",
			Usage:     "Print the raw arrival predictions for a platform",
			ArgsUsage: "STATION PLATFORM",
			Flags:     []cli.Flag{apiBaseFlag},
			Action: func(c *cli.Context) error {
				if c.NArg() != 2 {
					return errors.New("station and platform codes are required")
				}

				client := NewClient(c.String("api-base"), 0)

				arrivals, err := client.GetTimes(c.Context, c.Args().Get(0), c.Args().Get(1))
				if err != nil {
					return err
				}

				pretty.Println(arrivals)

				return nil
			},
		},
	}
}
