// Command panelctl operates an interview panel and club election from the
// terminal: seeding, logins, candidate scoring, nominee imports, voting,
// results and dataset transfer.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"log"
	"os"
	"os/signal"

	"github.com/joho/godotenv"
)

func main() {
	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		log.Printf("Failed to load .env: %v", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	if err := run(ctx, os.Args[1:], os.Stdout, os.Stderr); err != nil {
		if errors.Is(err, flag.ErrHelp) {
			os.Exit(2)
		}
		fmt.Fprintf(os.Stderr, "panelctl: %v\n", err)
		os.Exit(1)
	}
}

const usage = `usage: panelctl [-config file] [-plain] [-metrics] <command> [flags]

commands:
  seed                 install stock accounts and candidates into an empty store
  login                print a session token for -email and -password
  candidates           list candidates, optionally filtered by -q
  register             register a candidate
  rate                 rate a candidate as the token's interviewer
  scores               print one candidate's aggregated scores
  dashboard            rank candidates by overall score
  pending              list candidates the token's interviewer has not rated
  reports              candidate counts and averages by department and position
  nominate             add an election nominee
  nominees             list nominees, optionally for one -position
  import-nominees      bulk import nominees from tab-separated -file
  vote                 cast a vote for -nominee as voter -regno
  results              ranked results for -position
  export               write users, candidates and ratings as JSON to -out
  import               replace users, candidates and ratings from -in

Protected commands read the session token from -token or PANEL_TOKEN.
`

// run parses global flags, builds the application and dispatches the
// command.
func run(ctx context.Context, args []string, stdout, stderr io.Writer) error {
	global := flag.NewFlagSet("panelctl", flag.ContinueOnError)
	global.SetOutput(stderr)
	global.Usage = func() { fmt.Fprint(stderr, usage) }
	var (
		configPath = global.String("config", os.Getenv("PANEL_CONFIG"), "YAML configuration file")
		plain      = global.Bool("plain", false, "disable coloured headings")
		metrics    = global.Bool("metrics", false, "print collected metrics after the command")
	)
	if err := global.Parse(args); err != nil {
		return err
	}
	if global.NArg() == 0 {
		global.Usage()
		return flag.ErrHelp
	}

	name, rest := global.Arg(0), global.Args()[1:]
	cmd, ok := commands[name]
	if !ok {
		global.Usage()
		return fmt.Errorf("unknown command %q", name)
	}

	a, err := newApp(ctx, *configPath, *plain, *metrics, stdout, stderr)
	if err != nil {
		return err
	}
	defer a.close()

	if err := cmd(ctx, a, rest); err != nil {
		return err
	}
	a.printMetrics()
	return nil
}
