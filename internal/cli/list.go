package cli

import (
	"encoding/json"
	"fmt"
	"strings"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/mesh-intelligence/coursewatch/pkg/types"
)

func newListCmd() *cobra.Command {
	var (
		course string
		where  []string
		asJSON bool
	)
	cmd := &cobra.Command{
		Use:   "list <kind>",
		Short: "List stored entities of one kind",
		Long: `List queries the event store for one entity kind.

Kinds: courses, folders, content, files, assignments, announcements, calendar.
--where filters on title, course_id, path or any metadata key; repeated
filters are ANDed together.

Example:
  coursewatch list assignments --course _101_1
  coursewatch list assignments --where is_finished=false --json`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			kind, err := types.ParseKind(args[0])
			if err != nil {
				return err
			}
			filter, err := parseFilter(where)
			if err != nil {
				return err
			}
			if course != "" {
				filter[types.AttrCourseID] = course
			}

			e, err := loadEnv(cmd)
			if err != nil {
				return err
			}
			store, err := e.attachStore()
			if err != nil {
				return err
			}
			defer store.Detach()

			entities, err := store.Filter(kind, filter)
			if err != nil {
				return fmt.Errorf("list %s: %w", kind, err)
			}

			snaps := make([]types.Snapshot, len(entities))
			for i, ent := range entities {
				snaps[i] = ent.Snapshot()
			}
			if asJSON {
				out, err := json.MarshalIndent(snaps, "", "  ")
				if err != nil {
					return fmt.Errorf("marshal entities: %w", err)
				}
				fmt.Fprintln(cmd.OutOrStdout(), string(out))
				return nil
			}
			return printTable(cmd, snaps)
		},
	}
	cmd.Flags().StringVar(&course, "course", "", "only entities of this course id")
	cmd.Flags().StringArrayVar(&where, "where", nil, "attribute filter key=value (repeatable)")
	cmd.Flags().BoolVar(&asJSON, "json", false, "output in JSON format")
	return cmd
}

func parseFilter(pairs []string) (types.Filter, error) {
	filter := types.Filter{}
	for _, p := range pairs {
		key, value, ok := strings.Cut(p, "=")
		if !ok || key == "" {
			return nil, fmt.Errorf("invalid filter %q (expected key=value)", p)
		}
		filter[key] = value
	}
	return filter, nil
}

func printTable(cmd *cobra.Command, snaps []types.Snapshot) error {
	w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, "ID\tTITLE\tCOURSE\tPATH")
	for _, s := range snaps {
		fmt.Fprintf(w, "%s\t%s\t%s\t%s\n", s.ID, s.Title, s.CourseID, s.Path)
	}
	return w.Flush()
}
