package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"os"
	"path/filepath"
	"strconv"

	"github.com/ahrav/go-panel/infrastructure/report"
	"github.com/ahrav/go-panel/internal/application"
	"github.com/ahrav/go-panel/internal/domain"
)

type command func(ctx context.Context, a *app, args []string) error

var commands = map[string]command{
	"seed":            seedCmd,
	"login":           loginCmd,
	"candidates":      candidatesCmd,
	"register":        registerCmd,
	"rate":            rateCmd,
	"scores":          scoresCmd,
	"dashboard":       dashboardCmd,
	"pending":         pendingCmd,
	"reports":         reportsCmd,
	"nominate":        nominateCmd,
	"nominees":        nomineesCmd,
	"import-nominees": importNomineesCmd,
	"vote":            voteCmd,
	"results":         resultsCmd,
	"export":          exportCmd,
	"import":          importCmd,
}

// flags creates a flag set for a command. When withToken is set it also
// registers -token, defaulting to PANEL_TOKEN.
func flags(a *app, name string, withToken bool) (*flag.FlagSet, *string) {
	fs := flag.NewFlagSet(name, flag.ContinueOnError)
	fs.SetOutput(a.out)
	var token *string
	if withToken {
		token = fs.String("token", os.Getenv("PANEL_TOKEN"), "session token from the login command")
	}
	return fs, token
}

func (a *app) principal(token string) (domain.Principal, error) {
	if token == "" {
		return domain.Principal{}, errors.New("a session token is required; run login first")
	}
	return a.auth.Verify(token)
}

func parseWithPrincipal(a *app, fs *flag.FlagSet, token *string, args []string) (domain.Principal, error) {
	if err := fs.Parse(args); err != nil {
		return domain.Principal{}, err
	}
	return a.principal(*token)
}

func seedCmd(ctx context.Context, a *app, args []string) error {
	fs, _ := flags(a, "seed", false)
	if err := fs.Parse(args); err != nil {
		return err
	}
	rep, err := application.Seed(ctx, a.auth, a.scoring, application.DefaultSeed())
	if err != nil {
		return err
	}
	fmt.Fprintf(a.out, "seeded %d user(s) and %d candidate(s); skipped %d duplicate(s)\n",
		rep.Users, rep.Candidates, rep.Skipped)
	return nil
}

func loginCmd(ctx context.Context, a *app, args []string) error {
	fs, _ := flags(a, "login", false)
	email := fs.String("email", "", "account email")
	password := fs.String("password", os.Getenv("PANEL_PASSWORD"), "account password")
	if err := fs.Parse(args); err != nil {
		return err
	}
	session, err := a.auth.Login(ctx, *email, *password)
	if err != nil {
		return err
	}
	fmt.Fprintln(a.out, session.Token)
	return nil
}

func candidatesCmd(ctx context.Context, a *app, args []string) error {
	fs, token := flags(a, "candidates", true)
	query := fs.String("q", "", "case-insensitive search on name, department or position")
	p, err := parseWithPrincipal(a, fs, token, args)
	if err != nil {
		return err
	}
	candidates, err := a.scoring.SearchCandidates(ctx, p, *query)
	if err != nil {
		return err
	}
	rows := make([][]string, 0, len(candidates))
	for _, c := range candidates {
		rows = append(rows, []string{c.ID, c.Name, c.RegNo, c.Department, strconv.Itoa(c.Year), string(c.Position)})
	}
	a.tables.Table("Candidates", []string{"ID", "Name", "Reg No", "Department", "Year", "Position"}, rows)
	return nil
}

func registerCmd(ctx context.Context, a *app, args []string) error {
	fs, token := flags(a, "register", true)
	var in application.NewCandidate
	fs.StringVar(&in.Name, "name", "", "full name")
	fs.StringVar(&in.Email, "email", "", "email address")
	fs.StringVar(&in.RegNo, "regno", "", "registration number")
	fs.StringVar(&in.Department, "department", "", "department")
	shift := fs.Int("shift", 1, "teaching shift, 1 or 2")
	p, err := parseWithPrincipal(a, fs, token, args)
	if err != nil {
		return err
	}
	in.Shift = domain.Shift(*shift)
	c, err := a.scoring.RegisterCandidate(ctx, p, in)
	if err != nil {
		return err
	}
	fmt.Fprintf(a.out, "registered %s for %s (id %s)\n", c.Name, c.Position, c.ID)
	return nil
}

func rateCmd(ctx context.Context, a *app, args []string) error {
	fs, token := flags(a, "rate", true)
	candidate := fs.String("candidate", "", "candidate id")
	schema := fs.String("schema", "", "rubric: technical or leadership (default from config)")
	remarks := fs.String("remarks", "", "optional remarks, at most 500 characters")
	scores := make(map[domain.Parameter]int)
	fs.Func("score", "parameter=value, repeatable (e.g. -score presentation=4)", func(s string) error {
		param, value, err := parseScore(s)
		if err != nil {
			return err
		}
		scores[param] = value
		return nil
	})
	p, err := parseWithPrincipal(a, fs, token, args)
	if err != nil {
		return err
	}
	r, err := a.scoring.SubmitRating(ctx, p, application.RatingInput{
		CandidateID: *candidate,
		Schema:      domain.Schema(*schema),
		Scores:      scores,
		Remarks:     *remarks,
	})
	if err != nil {
		return err
	}
	fmt.Fprintf(a.out, "rating %s recorded, mean %.2f\n", r.ID, r.Mean())
	return nil
}

func parseScore(s string) (domain.Parameter, int, error) {
	for i := range len(s) {
		if s[i] == '=' {
			v, err := strconv.Atoi(s[i+1:])
			if err != nil {
				return "", 0, fmt.Errorf("score %q: %w", s, err)
			}
			return domain.Parameter(s[:i]), v, nil
		}
	}
	return "", 0, fmt.Errorf("score %q: want parameter=value", s)
}

func scoresCmd(ctx context.Context, a *app, args []string) error {
	fs, token := flags(a, "scores", true)
	id := fs.String("candidate", "", "candidate id")
	p, err := parseWithPrincipal(a, fs, token, args)
	if err != nil {
		return err
	}
	c, err := a.scoring.GetCandidate(ctx, p, *id)
	if err != nil {
		return err
	}
	summary, err := a.scoring.CandidateScores(ctx, p, *id)
	if err != nil {
		return err
	}
	a.tables.Scores(c, summary)
	return nil
}

func dashboardCmd(ctx context.Context, a *app, args []string) error {
	fs, token := flags(a, "dashboard", true)
	p, err := parseWithPrincipal(a, fs, token, args)
	if err != nil {
		return err
	}
	d, err := a.scoring.Dashboard(ctx, p)
	if err != nil {
		return err
	}
	rows := make([][]string, 0, len(d.Standings))
	for i, s := range d.Standings {
		ratings := 0
		if s.Summary != nil {
			ratings = s.Summary.Ratings
		}
		rows = append(rows, []string{
			strconv.Itoa(i + 1),
			s.Candidate.Name,
			string(s.Candidate.Position),
			strconv.Itoa(ratings),
			report.Score(s.Overall()),
		})
	}
	title := fmt.Sprintf("Dashboard: %d candidate(s), %d rated, %d rating(s), panel average %s",
		d.Candidates, d.Rated, d.TotalRatings, report.Score(d.PanelAverage))
	a.tables.Table(title, []string{"#", "Name", "Position", "Ratings", "Overall"}, rows)
	return nil
}

func pendingCmd(ctx context.Context, a *app, args []string) error {
	fs, token := flags(a, "pending", true)
	interviewer := fs.String("interviewer", "", "interviewer email (default: the token's subject)")
	p, err := parseWithPrincipal(a, fs, token, args)
	if err != nil {
		return err
	}
	pending, err := a.scoring.PendingFor(ctx, p, *interviewer)
	if err != nil {
		return err
	}
	rows := make([][]string, 0, len(pending))
	for _, c := range pending {
		rows = append(rows, []string{c.ID, c.Name, string(c.Position)})
	}
	a.tables.Table("Awaiting your rating", []string{"ID", "Name", "Position"}, rows)
	return nil
}

func reportsCmd(ctx context.Context, a *app, args []string) error {
	fs, token := flags(a, "reports", true)
	p, err := parseWithPrincipal(a, fs, token, args)
	if err != nil {
		return err
	}
	byDept, err := a.reports.ByDepartment(ctx, p)
	if err != nil {
		return err
	}
	byPos, err := a.reports.ByPosition(ctx, p)
	if err != nil {
		return err
	}
	header := []string{"Group", "Candidates", "Rated", "Average"}
	a.tables.Table("By department", header, groupRows(byDept))
	a.tables.Table("By position", header, groupRows(byPos))
	return nil
}

func groupRows(groups []application.GroupReport) [][]string {
	rows := make([][]string, 0, len(groups))
	for _, g := range groups {
		rows = append(rows, []string{g.Group, strconv.Itoa(g.Candidates), strconv.Itoa(g.Rated), report.Score(g.AverageOverall)})
	}
	return rows
}

func nominateCmd(ctx context.Context, a *app, args []string) error {
	fs, token := flags(a, "nominate", true)
	var in application.NewNominee
	fs.StringVar(&in.Name, "name", "", "full name")
	fs.StringVar(&in.Email, "email", "", "email address")
	fs.StringVar(&in.RegNo, "regno", "", "registration number")
	fs.StringVar(&in.Department, "department", "", "department")
	shift := fs.Int("shift", 1, "teaching shift, 1 or 2")
	position := fs.String("position", "", "Chairman, Vice Chairman, Secretary or Joint Secretary")
	p, err := parseWithPrincipal(a, fs, token, args)
	if err != nil {
		return err
	}
	in.Shift = domain.Shift(*shift)
	in.Position = domain.Position(*position)
	n, err := a.election.AddNominee(ctx, p, in)
	if err != nil {
		return err
	}
	fmt.Fprintf(a.out, "nominated %s for %s (id %s)\n", n.Name, n.Position, n.ID)
	return nil
}

func nomineesCmd(ctx context.Context, a *app, args []string) error {
	fs, _ := flags(a, "nominees", false)
	position := fs.String("position", "", "only list nominees for this position")
	if err := fs.Parse(args); err != nil {
		return err
	}
	pos, err := positionFlag(*position, true)
	if err != nil {
		return err
	}
	nominees, err := a.election.ListNominees(ctx, pos)
	if err != nil {
		return err
	}
	a.tables.Nominees("Nominees", nominees)
	return nil
}

func positionFlag(label string, optional bool) (domain.Position, error) {
	if label == "" && optional {
		return domain.PositionNone, nil
	}
	pos, ok := domain.ParsePosition(label)
	if !ok {
		return domain.PositionNone, fmt.Errorf("unknown position %q", label)
	}
	return pos, nil
}

func importNomineesCmd(ctx context.Context, a *app, args []string) error {
	fs, token := flags(a, "import-nominees", true)
	file := fs.String("file", "", "tab-separated file: name, email, regno, shift, department")
	dryRun := fs.Bool("dry-run", false, "report what would be imported without writing")
	if err := fs.Parse(args); err != nil {
		return err
	}
	data, err := os.ReadFile(filepath.Clean(*file))
	if err != nil {
		return fmt.Errorf("read nominees: %w", err)
	}

	var rep application.ImportReport
	if *dryRun {
		rep, err = a.importer.Preview(ctx, string(data))
	} else {
		var p domain.Principal
		if p, err = a.principal(*token); err != nil {
			return err
		}
		rep, err = a.importer.ImportNominees(ctx, p, string(data))
	}
	if err != nil {
		return err
	}

	a.tables.Nominees("Imported", rep.Imported)
	if len(rep.Duplicates) > 0 {
		rows := make([][]string, 0, len(rep.Duplicates))
		for _, d := range rep.Duplicates {
			rows = append(rows, []string{d.Nominee.Name, d.Nominee.Email})
		}
		a.tables.Table("Skipped duplicates", []string{"Name", "Email"}, rows)
	}
	a.tables.Rejected(rep.Rejected)
	if len(rep.NearDuplicates) > 0 {
		rows := make([][]string, 0, len(rep.NearDuplicates))
		for _, nd := range rep.NearDuplicates {
			rows = append(rows, []string{nd.A.Name, nd.B.Name, strconv.Itoa(nd.Distance)})
		}
		a.tables.Table("Similar names", []string{"Name", "Similar to", "Edits"}, rows)
	}
	return nil
}

func voteCmd(ctx context.Context, a *app, args []string) error {
	fs, _ := flags(a, "vote", false)
	regNo := fs.String("regno", "", "voter registration number")
	nominee := fs.String("nominee", "", "nominee id")
	if err := fs.Parse(args); err != nil {
		return err
	}
	vote, err := a.election.CastVote(ctx, *regNo, *nominee)
	if err != nil {
		return err
	}
	fmt.Fprintf(a.out, "vote recorded for %s\n", vote.Position)
	return nil
}

func resultsCmd(ctx context.Context, a *app, args []string) error {
	fs, token := flags(a, "results", true)
	position := fs.String("position", "", "position to rank; all positions when empty")
	p, err := parseWithPrincipal(a, fs, token, args)
	if err != nil {
		return err
	}
	positions := domain.Positions()
	if *position != "" {
		pos, err := positionFlag(*position, false)
		if err != nil {
			return err
		}
		positions = []domain.Position{pos}
	}
	for _, pos := range positions {
		standings, err := a.election.Results(ctx, p, pos)
		if err != nil {
			return err
		}
		a.tables.Results(pos, standings)
	}
	return nil
}

func exportCmd(ctx context.Context, a *app, args []string) error {
	fs, token := flags(a, "export", true)
	out := fs.String("out", "", "output file (default stdout)")
	p, err := parseWithPrincipal(a, fs, token, args)
	if err != nil {
		return err
	}
	data, err := a.data.Export(ctx, p)
	if err != nil {
		return err
	}
	if *out == "" {
		_, err = fmt.Fprintln(a.out, string(data))
		return err
	}
	if err := os.WriteFile(filepath.Clean(*out), data, 0o600); err != nil {
		return fmt.Errorf("write export: %w", err)
	}
	fmt.Fprintf(a.out, "exported to %s\n", *out)
	return nil
}

func importCmd(ctx context.Context, a *app, args []string) error {
	fs, token := flags(a, "import", true)
	in := fs.String("in", "", "JSON document produced by export")
	p, err := parseWithPrincipal(a, fs, token, args)
	if err != nil {
		return err
	}
	data, err := os.ReadFile(filepath.Clean(*in))
	if err != nil {
		return fmt.Errorf("read import: %w", err)
	}
	if err := a.data.Import(ctx, p, data); err != nil {
		return err
	}
	fmt.Fprintln(a.out, "dataset imported")
	return nil
}
