package main

import (
	"context"
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/pkg/errors"

	"github.com/mtokoni/tathmini/core"
	"github.com/mtokoni/tathmini/core/team"
)

// importTeams loads teams and their ideas from a CSV file.
// Expected columns: team_id, team_name, ps_id, ps_title, ps_description,
// idea_title, idea_description, link, is_primary. The first row is the header.
// Rows are upserted so the import can be re-run safely.
func (cli *commandLine) importTeams(path string) error {
	f, err := os.Open(path)
	if err != nil {
		return err
	}
	defer f.Close()

	r := csv.NewReader(f)
	r.FieldsPerRecord = -1

	header, err := r.Read()
	if err != nil {
		return errors.Wrap(err, "reading header")
	}
	cols := make(map[string]int, len(header))
	for i, name := range header {
		cols[core.CleanString(name, true /* lower */)] = i
	}
	for _, required := range []string{"team_id", "team_name", "idea_title"} {
		if _, ok := cols[required]; !ok {
			return errors.Errorf("missing column %q", required)
		}
	}
	field := func(record []string, name string) string {
		i, ok := cols[name]
		if !ok || i >= len(record) {
			return ""
		}
		return core.CleanString(record[i])
	}

	ctx := context.Background()
	var teams, ideas int
	for line := 2; ; line++ {
		record, err := r.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return errors.Wrapf(err, "reading line %d", line)
		}

		teamID := field(record, "team_id")
		if teamID == "" {
			continue
		}

		if _, err = cli.teamSvc.GetByTeamID(ctx, teamID); err != nil {
			if errors.Cause(err) != team.ErrNotFound {
				return errors.Wrapf(err, "line %d: finding team %q", line, teamID)
			}
			if _, err = cli.teamSvc.Create(ctx, team.NewTeam{
				TeamID:   teamID,
				TeamName: field(record, "team_name"),
			}); err != nil {
				return errors.Wrapf(err, "line %d: creating team %q", line, teamID)
			}
			teams++
		}

		ideaTitle := field(record, "idea_title")
		if ideaTitle == "" {
			continue
		}
		isPrimary := strings.EqualFold(field(record, "is_primary"), "true") ||
			field(record, "is_primary") == "1"
		if _, _, err = cli.teamSvc.UpsertIdea(ctx, teamID, team.UpsertIdea{
			PSID:            field(record, "ps_id"),
			PSTitle:         field(record, "ps_title"),
			PSDescription:   field(record, "ps_description"),
			IdeaTitle:       ideaTitle,
			IdeaDescription: field(record, "idea_description"),
			Link:            field(record, "link"),
			IsPrimary:       isPrimary,
		}); err != nil {
			return errors.Wrapf(err, "line %d: upserting idea %q", line, ideaTitle)
		}
		ideas++
	}

	fmt.Printf("imported %d new teams, %d ideas\n", teams, ideas)
	return nil
}
